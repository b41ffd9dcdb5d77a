package dialog

import (
	"context"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"

	"homebot/internal/domain"
	"homebot/internal/turn"
)

// Context is the dialog stack of one conversation bound to one turn.
type Context struct {
	Turn *turn.Context
	set  *Set
}

func (dc *Context) stack() []domain.DialogInstance {
	return dc.Turn.Conversation.DialogStack
}

// Active returns the instance on top of the stack, or nil.
// The pointer is only valid until the stack is next modified.
func (dc *Context) Active() *domain.DialogInstance {
	st := dc.stack()
	if len(st) == 0 {
		return nil
	}
	return &st[len(st)-1]
}

// Begin pushes a new instance of the named dialog and runs its first step.
func (dc *Context) Begin(ctx context.Context, name string, args any) (Result, error) {
	d, ok := dc.set.dialogs[name]
	if !ok {
		return Result{}, &NotFoundError{Name: name}
	}
	conv := dc.Turn.Conversation
	conv.DialogStack = append(conv.DialogStack, domain.DialogInstance{
		ID:        name,
		StartedAt: dc.set.now().UTC(),
	})
	depth := len(conv.DialogStack)

	res, err := d.Begin(ctx, dc, args)
	if err != nil {
		return Result{}, fmt.Errorf("dialog: begin %q: %w", name, err)
	}
	dc.advance(depth, name, res.Status)
	return res, nil
}

// Continue feeds the turn's text to the top instance. With an empty stack it
// returns StatusEmpty and does nothing.
func (dc *Context) Continue(ctx context.Context) (Result, error) {
	inst := dc.Active()
	if inst == nil {
		return Result{Status: StatusEmpty}, nil
	}
	name := inst.ID
	depth := len(dc.stack())
	d, ok := dc.set.dialogs[name]
	if !ok {
		return Result{}, &NotFoundError{Name: name}
	}

	var value any = dc.Turn.Activity.Text
	if inst.Prompt != nil {
		p, ok := dc.set.prompts[inst.Prompt.ID]
		if !ok {
			return Result{}, &NotFoundError{Name: inst.Prompt.ID}
		}
		v, accepted := p.Recognize(dc.Turn.Activity.Text)
		if !accepted {
			inst.Prompt.Attempts++
			if msg := p.RetryMessage(); msg != "" {
				dc.Turn.Send(msg)
			}
			dc.Turn.Send(inst.Prompt.Text)
			return Result{Status: StatusWaiting}, nil
		}
		inst.Prompt = nil
		value = v
	}

	res, err := d.Resume(ctx, dc, value)
	if err != nil {
		return Result{}, fmt.Errorf("dialog: resume %q: %w", name, err)
	}
	dc.advance(depth, name, res.Status)
	return res, nil
}

// advance moves the instance at depth to its next step once a step has
// suspended and the instance is still on the stack.
func (dc *Context) advance(depth int, name string, status Status) {
	if status != StatusWaiting {
		return
	}
	st := dc.stack()
	if len(st) < depth || st[depth-1].ID != name {
		return
	}
	st[depth-1].Step++
}

// Prompt asks a question on behalf of the active instance and suspends it
// until a reply is recognized by the named prompt.
func (dc *Context) Prompt(name, text string) (Result, error) {
	inst := dc.Active()
	if inst == nil {
		return Result{}, ErrNoActiveDialog
	}
	if _, ok := dc.set.prompts[name]; !ok {
		return Result{}, &NotFoundError{Name: name}
	}
	inst.Prompt = &domain.PendingPrompt{ID: name, Text: text}
	dc.Turn.Send(text)
	return Result{Status: StatusWaiting}, nil
}

// Wait suspends the active instance without a prompt; the next turn's text is
// passed to its next step as-is.
func (dc *Context) Wait() (Result, error) {
	if dc.Active() == nil {
		return Result{}, ErrNoActiveDialog
	}
	return Result{Status: StatusWaiting}, nil
}

// End pops the top instance. A parent left on the stack is not resumed; it
// receives the next turn through Continue.
func (dc *Context) End(result any) (Result, error) {
	conv := dc.Turn.Conversation
	if n := len(conv.DialogStack); n > 0 {
		conv.DialogStack = conv.DialogStack[:n-1]
	}
	if len(conv.DialogStack) == 0 {
		conv.DialogStack = nil
	}
	return Result{Status: StatusComplete, Value: result}, nil
}

// Cancel discards every instance on the stack and clears the active flow.
func (dc *Context) Cancel() (Result, error) {
	conv := dc.Turn.Conversation
	conv.DialogStack = nil
	conv.ActiveFlow = false
	return Result{Status: StatusCancelled}, nil
}

// LoadState decodes the active instance's private state into v. Empty state
// leaves v untouched.
func (dc *Context) LoadState(v any) error {
	inst := dc.Active()
	if inst == nil {
		return ErrNoActiveDialog
	}
	if len(strings.TrimSpace(string(inst.State))) == 0 {
		return nil
	}
	if err := sonic.Unmarshal(inst.State, v); err != nil {
		return fmt.Errorf("dialog: decode %q state: %w", inst.ID, err)
	}
	return nil
}

// SaveState replaces the active instance's private state with v.
func (dc *Context) SaveState(v any) error {
	inst := dc.Active()
	if inst == nil {
		return ErrNoActiveDialog
	}
	raw, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("dialog: encode %q state: %w", inst.ID, err)
	}
	inst.State = raw
	return nil
}
