package dialogs

import (
	"context"
	"fmt"
	"strings"

	"homebot/internal/dialog"
	"homebot/internal/domain"
	"homebot/internal/entity"
)

// Feedback counts feedback turns and echoes the appliance entities it found.
type Feedback struct {
	*dialog.Waterfall
	msgs      Messages
	entityKey string
}

func NewFeedback(msgs Messages, entityKey string) (*Feedback, error) {
	f := &Feedback{msgs: msgs, entityKey: entityKey}
	w, err := dialog.NewWaterfall(f.report)
	if err != nil {
		return nil, err
	}
	f.Waterfall = w
	return f, nil
}

func (f *Feedback) report(_ context.Context, dc *dialog.Context, args any) (dialog.Result, error) {
	conv := dc.Turn.Conversation
	conv.ActiveFlow = true

	appliances, found := entity.Extract(f.entityKey, entitiesOf(args))
	n := conv.Increment(domain.CounterPropertyFeedback)
	dc.Turn.Send(fmt.Sprintf(f.msgs.FeedbackReached, n))
	if found {
		dc.Turn.Send(fmt.Sprintf(f.msgs.FeedbackEntities, strings.Join(appliances, ", ")))
	}

	conv.ActiveFlow = false
	return dc.End(n)
}

// None handles turns no other flow claims.
type None struct {
	*dialog.Waterfall
	msgs Messages
}

func NewNone(msgs Messages) (*None, error) {
	d := &None{msgs: msgs}
	w, err := dialog.NewWaterfall(d.report)
	if err != nil {
		return nil, err
	}
	d.Waterfall = w
	return d, nil
}

func (d *None) report(_ context.Context, dc *dialog.Context, _ any) (dialog.Result, error) {
	conv := dc.Turn.Conversation
	conv.ActiveFlow = true
	n := conv.Increment(domain.CounterNoneIntent)
	dc.Turn.Send(fmt.Sprintf(d.msgs.NoneReached, n))
	conv.ActiveFlow = false
	return dc.End(n)
}
