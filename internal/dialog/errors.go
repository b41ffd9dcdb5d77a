package dialog

import (
	"errors"
	"fmt"
)

// ErrNoActiveDialog is returned by operations that need a running instance.
var ErrNoActiveDialog = errors.New("dialog: no active dialog")

// ConfigurationError reports an invalid registration.
type ConfigurationError struct {
	Name   string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("dialog: configuration error for %q: %s", e.Name, e.Reason)
}

// NotFoundError reports a reference to an unregistered dialog or prompt.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("dialog: %q is not registered", e.Name)
}
