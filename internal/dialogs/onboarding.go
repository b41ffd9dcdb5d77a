package dialogs

import (
	"context"
	"fmt"

	"homebot/internal/dialog"
	"homebot/internal/domain"
)

type onboardingState struct {
	UserInfo domain.UserInfo `json:"userInfo"`
}

// Onboarding collects the user's name and unit number and stores them in user state.
type Onboarding struct {
	*dialog.Waterfall
	msgs Messages
}

func NewOnboarding(msgs Messages) (*Onboarding, error) {
	o := &Onboarding{msgs: msgs}
	w, err := dialog.NewWaterfall(o.askName, o.askUnit, o.finish)
	if err != nil {
		return nil, err
	}
	o.Waterfall = w
	return o, nil
}

func (o *Onboarding) askName(_ context.Context, dc *dialog.Context, _ any) (dialog.Result, error) {
	dc.Turn.Conversation.ActiveFlow = true
	if err := dc.SaveState(onboardingState{}); err != nil {
		return dialog.Result{}, err
	}
	dc.Turn.Send(o.msgs.Greeting)
	return dc.Prompt(UserNamePrompt, o.msgs.AskName)
}

func (o *Onboarding) askUnit(_ context.Context, dc *dialog.Context, value any) (dialog.Result, error) {
	name, _ := value.(string)
	var st onboardingState
	if err := dc.LoadState(&st); err != nil {
		return dialog.Result{}, err
	}
	st.UserInfo.UserName = name
	if err := dc.SaveState(st); err != nil {
		return dialog.Result{}, err
	}
	dc.Turn.Send(fmt.Sprintf(o.msgs.NiceToMeet, name))
	return dc.Prompt(UnitNumberPrompt, o.msgs.AskUnit)
}

func (o *Onboarding) finish(_ context.Context, dc *dialog.Context, value any) (dialog.Result, error) {
	unit, _ := value.(string)
	var st onboardingState
	if err := dc.LoadState(&st); err != nil {
		return dialog.Result{}, err
	}
	st.UserInfo.UnitNumber = unit
	info := st.UserInfo
	dc.Turn.User.UserInfo = &info

	dc.Turn.Send(o.msgs.OnboardingDone)
	dc.Turn.Send(o.msgs.Capabilities)
	dc.Turn.Conversation.ActiveFlow = false
	return dc.End(info)
}
