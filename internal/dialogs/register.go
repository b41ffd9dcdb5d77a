// Package dialogs contains the HomeBot conversation flows.
package dialogs

import (
	"strings"
	"time"

	"homebot/internal/dialog"
	"homebot/internal/domain"
	"homebot/internal/validate"
)

// Dialog and prompt names. Dialogs begun from the domain classifier are named
// after the intent label that starts them.
const (
	OnboardingID  = "getUserInfo"
	MaintenanceID = "property_maintenance"
	FeedbackID    = "property_feedback"
	NoneID        = "None"

	UserNamePrompt   = "userNamePrompt"
	UnitNumberPrompt = "unitNumberPrompt"
	ConfirmPrompt    = "confirmPrompt"
)

// DefaultFeedbackEntityKey is the entity type the feedback dialog reports.
const DefaultFeedbackEntityKey = "appliance"

// Options configures the registered flows.
type Options struct {
	Messages          Messages
	FeedbackEntityKey string
	Now               func() time.Time
}

// Register installs every flow and prompt into set.
func Register(set *dialog.Set, opts Options) error {
	opts.Messages = opts.Messages.Merge(DefaultMessages())
	if strings.TrimSpace(opts.FeedbackEntityKey) == "" {
		opts.FeedbackEntityKey = DefaultFeedbackEntityKey
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	onboarding, err := NewOnboarding(opts.Messages)
	if err != nil {
		return err
	}
	maintenance, err := NewMaintenance(opts.Messages, opts.Now)
	if err != nil {
		return err
	}
	feedback, err := NewFeedback(opts.Messages, opts.FeedbackEntityKey)
	if err != nil {
		return err
	}
	none, err := NewNone(opts.Messages)
	if err != nil {
		return err
	}

	for name, d := range map[string]dialog.Dialog{
		OnboardingID:  onboarding,
		MaintenanceID: maintenance,
		FeedbackID:    feedback,
		NoneID:        none,
	} {
		if err := set.Add(name, d); err != nil {
			return err
		}
	}
	for name, p := range map[string]dialog.Prompt{
		UserNamePrompt:   dialog.NewTextPrompt(validate.Name()),
		UnitNumberPrompt: dialog.NewTextPrompt(validate.UnitNumber()),
		ConfirmPrompt:    dialog.NewConfirmPrompt(),
	} {
		if err := set.AddPrompt(name, p); err != nil {
			return err
		}
	}
	return nil
}

// entitiesOf reads the entity mapping out of begin args.
func entitiesOf(args any) map[string][]string {
	switch a := args.(type) {
	case *domain.IntentResult:
		if a != nil {
			return a.Entities
		}
	case map[string][]string:
		return a
	}
	return nil
}
