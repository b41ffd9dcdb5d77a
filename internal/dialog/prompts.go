package dialog

import (
	"strings"
	"unicode"

	"homebot/internal/validate"
)

// TextPrompt accepts free text, optionally checked by a validator.
type TextPrompt struct {
	validator validate.Validator
}

// NewTextPrompt returns a TextPrompt. A nil validator accepts any non-blank text.
func NewTextPrompt(v validate.Validator) *TextPrompt {
	return &TextPrompt{validator: v}
}

func (p *TextPrompt) Recognize(text string) (any, bool) {
	text = strings.TrimSpace(text)
	if p.validator == nil {
		return text, text != ""
	}
	v, ok := p.validator.Validate(text)
	if !ok {
		return nil, false
	}
	return v, true
}

func (p *TextPrompt) RetryMessage() string {
	if p.validator == nil {
		return ""
	}
	return p.validator.Message()
}

var confirmWords = map[string]bool{
	"yes": true, "y": true, "yeah": true, "yep": true, "yup": true, "sure": true,
	"ok": true, "okay": true, "correct": true, "right": true, "true": true,
	"no": false, "n": false, "nope": false, "nah": false, "incorrect": false,
	"wrong": false, "false": false,
}

// ConfirmPrompt turns a yes/no shaped reply into a bool.
type ConfirmPrompt struct{}

// NewConfirmPrompt returns a ConfirmPrompt.
func NewConfirmPrompt() *ConfirmPrompt { return &ConfirmPrompt{} }

func (p *ConfirmPrompt) Recognize(text string) (any, bool) {
	word := strings.ToLower(strings.TrimFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsPunct(r)
	}))
	v, ok := confirmWords[word]
	if !ok {
		return nil, false
	}
	return v, true
}

func (p *ConfirmPrompt) RetryMessage() string {
	return "Please answer yes or no."
}
