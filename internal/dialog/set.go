package dialog

import (
	"strings"
	"time"

	"homebot/internal/turn"
)

// Set holds every registered dialog and prompt. Names share one namespace.
// A Set is built at startup and read-only afterwards.
type Set struct {
	dialogs map[string]Dialog
	prompts map[string]Prompt
	now     func() time.Time
}

// NewSet returns an empty Set.
func NewSet() *Set {
	return &Set{
		dialogs: make(map[string]Dialog),
		prompts: make(map[string]Prompt),
		now:     time.Now,
	}
}

// Add registers a dialog under a unique name.
func (s *Set) Add(name string, d Dialog) error {
	if err := s.checkName(name); err != nil {
		return err
	}
	if d == nil {
		return &ConfigurationError{Name: name, Reason: "dialog must not be nil"}
	}
	s.dialogs[name] = d
	return nil
}

// AddPrompt registers a prompt under a unique name.
func (s *Set) AddPrompt(name string, p Prompt) error {
	if err := s.checkName(name); err != nil {
		return err
	}
	if p == nil {
		return &ConfigurationError{Name: name, Reason: "prompt must not be nil"}
	}
	s.prompts[name] = p
	return nil
}

func (s *Set) checkName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ConfigurationError{Name: name, Reason: "name must not be empty"}
	}
	if _, ok := s.dialogs[name]; ok {
		return &ConfigurationError{Name: name, Reason: "duplicate name"}
	}
	if _, ok := s.prompts[name]; ok {
		return &ConfigurationError{Name: name, Reason: "duplicate name"}
	}
	return nil
}

// Has reports whether a dialog is registered under name.
func (s *Set) Has(name string) bool {
	_, ok := s.dialogs[name]
	return ok
}

// Require fails with a NotFoundError for the first name that is not a registered dialog.
func (s *Set) Require(names ...string) error {
	for _, name := range names {
		if !s.Has(name) {
			return &NotFoundError{Name: name}
		}
	}
	return nil
}

// CreateContext binds the conversation's dialog stack to the current turn.
func (s *Set) CreateContext(tc *turn.Context) *Context {
	return &Context{Turn: tc, set: s}
}
