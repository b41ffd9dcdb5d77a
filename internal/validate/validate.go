// Package validate holds the slot validators used by text prompts.
package validate

import (
	"regexp"
	"strings"
)

// Validator accepts or rejects raw user text for a slot.
type Validator interface {
	// Validate returns the normalized value and true when raw is acceptable.
	Validate(raw string) (string, bool)
	// Message is the guidance sent back when a value is rejected.
	Message() string
}

var (
	namePattern = regexp.MustCompile(`^[A-Za-z ]{2,30}$`)
	unitPattern = regexp.MustCompile(`^[0-9A-Z]{2,6}$`)
)

const (
	nameMessage = "To ensure uniqueness please provide a name (or nickname) between 2 and 30 characters long that only contains letters and spaces."
	unitMessage = "Unit numbers are between 2 and 6 characters long and only contain numbers and letters (no spaces)."
)

type rule struct {
	pattern   *regexp.Regexp
	normalize func(string) string
	message   string
}

func (r rule) Validate(raw string) (string, bool) {
	v := raw
	if r.normalize != nil {
		v = r.normalize(v)
	}
	if v == "" || !r.pattern.MatchString(v) {
		return "", false
	}
	return v, true
}

func (r rule) Message() string { return r.message }

// Name accepts letters and spaces only, 2 to 30 characters.
func Name() Validator {
	return rule{pattern: namePattern, message: nameMessage}
}

// UnitNumber uppercases the input and accepts 2 to 6 letters or digits.
func UnitNumber() Validator {
	return rule{pattern: unitPattern, normalize: strings.ToUpper, message: unitMessage}
}
