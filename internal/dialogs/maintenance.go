package dialogs

import (
	"context"
	"fmt"
	"time"

	"homebot/internal/dialog"
	"homebot/internal/domain"
	"homebot/internal/entity"
)

const (
	applianceEntity = "maintenance_appliance"
	issueEntity     = "maintenance_issue"
)

type maintenanceState struct {
	Appliance  string `json:"appliance,omitempty"`
	Issue      string `json:"issue,omitempty"`
	Confirming bool   `json:"confirming"`
}

// Maintenance confirms a maintenance request described by classifier entities.
type Maintenance struct {
	*dialog.Waterfall
	msgs Messages
	now  func() time.Time
}

func NewMaintenance(msgs Messages, now func() time.Time) (*Maintenance, error) {
	m := &Maintenance{msgs: msgs, now: now}
	w, err := dialog.NewWaterfall(m.confirm, m.acknowledge)
	if err != nil {
		return nil, err
	}
	m.Waterfall = w
	return m, nil
}

func (m *Maintenance) confirm(_ context.Context, dc *dialog.Context, args any) (dialog.Result, error) {
	dc.Turn.Conversation.ActiveFlow = true

	entities := entitiesOf(args)
	appliance, hasAppliance := entity.First(applianceEntity, entities)
	issue, hasIssue := entity.First(issueEntity, entities)

	var st maintenanceState
	question := m.msgs.MaintenanceGeneric
	if hasAppliance && hasIssue {
		st = maintenanceState{Appliance: appliance, Issue: issue, Confirming: true}
		question = fmt.Sprintf(m.msgs.MaintenanceDetail, appliance, issue)
	}
	if err := dc.SaveState(st); err != nil {
		return dialog.Result{}, err
	}
	return dc.Prompt(ConfirmPrompt, question)
}

func (m *Maintenance) acknowledge(_ context.Context, dc *dialog.Context, value any) (dialog.Result, error) {
	confirmed, _ := value.(bool)
	answer := "no"
	if confirmed {
		answer = "yes"
	}
	dc.Turn.Send(fmt.Sprintf(m.msgs.MaintenanceAck, answer))

	var st maintenanceState
	if err := dc.LoadState(&st); err != nil {
		return dialog.Result{}, err
	}
	if confirmed && st.Confirming {
		req := domain.MaintenanceRequest{
			Appliance:  st.Appliance,
			Issue:      st.Issue,
			ReportedAt: m.now().UTC(),
		}
		if info := dc.Turn.User.UserInfo; info != nil {
			req.UnitNumber = info.UnitNumber
		}
		dc.Turn.User.MaintenanceRequests = append(dc.Turn.User.MaintenanceRequests, req)
		dc.Turn.Send(fmt.Sprintf(m.msgs.MaintenanceLogged, st.Appliance))
	}

	dc.Turn.Conversation.ActiveFlow = false
	return dc.End(confirmed)
}
