// Package dialog implements resumable multi-step dialogs and the per-conversation
// dialog stack they run on.
//
// A dialog suspends by returning StatusWaiting; its DialogInstance (name, step
// index, private state and pending prompt) is persisted with the conversation
// and rehydrated on the next turn.
package dialog

import "context"

// Status is the outcome of running a dialog for one turn.
type Status string

const (
	StatusEmpty     Status = "empty"
	StatusWaiting   Status = "waiting"
	StatusComplete  Status = "complete"
	StatusCancelled Status = "cancelled"
)

// Result is returned by stack operations. Value carries the result passed to End.
type Result struct {
	Status Status
	Value  any
}

// Dialog is a named, resumable unit of conversation logic.
type Dialog interface {
	// Begin runs the first step with the arguments given to Context.Begin.
	Begin(ctx context.Context, dc *Context, args any) (Result, error)
	// Resume runs the current step with the recognized reply to the last prompt.
	Resume(ctx context.Context, dc *Context, value any) (Result, error)
}

// Prompt recognizes the reply to a question asked by a dialog step.
type Prompt interface {
	// Recognize returns the normalized value and true when text answers the prompt.
	Recognize(text string) (any, bool)
	// RetryMessage is sent before the question is asked again.
	RetryMessage() string
}
