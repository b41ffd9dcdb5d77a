package dialog

import (
	"context"
	"errors"
)

// Step is one stage of a Waterfall. value is the begin args for the first
// step and the recognized reply for later ones.
type Step func(ctx context.Context, dc *Context, value any) (Result, error)

// Waterfall runs a fixed sequence of steps, one per turn, using the instance's
// step index to pick the next one.
type Waterfall struct {
	steps []Step
}

// NewWaterfall returns a Waterfall over steps.
func NewWaterfall(steps ...Step) (*Waterfall, error) {
	if len(steps) == 0 {
		return nil, errors.New("dialog: waterfall needs at least one step")
	}
	for _, s := range steps {
		if s == nil {
			return nil, errors.New("dialog: waterfall step must not be nil")
		}
	}
	return &Waterfall{steps: steps}, nil
}

// Begin runs the first step.
func (w *Waterfall) Begin(ctx context.Context, dc *Context, args any) (Result, error) {
	return w.steps[0](ctx, dc, args)
}

// Resume runs the step at the instance's current index. Running past the last
// step ends the dialog with value as its result.
func (w *Waterfall) Resume(ctx context.Context, dc *Context, value any) (Result, error) {
	inst := dc.Active()
	if inst == nil {
		return Result{}, ErrNoActiveDialog
	}
	if inst.Step < 0 || inst.Step >= len(w.steps) {
		return dc.End(value)
	}
	return w.steps[inst.Step](ctx, dc, value)
}

// Len returns the number of steps.
func (w *Waterfall) Len() int { return len(w.steps) }
