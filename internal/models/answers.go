package models

import (
	"bytes"
	"errors"
	"strings"

	"github.com/goccy/go-json"
)

// ErrInvalidAnswer is returned when an answer is neither a string nor a list of strings.
var ErrInvalidAnswer = errors.New("answer must be a string or an array of strings")

// AnswerValue is a submitted answer: either a single token or an ordered list of tokens.
// The JSON form round-trips exactly as submitted.
type AnswerValue struct {
	single *string
	multi  []string
}

// Single builds a one-token answer.
func Single(s string) AnswerValue { return AnswerValue{single: &s} }

// Multiple builds a list answer.
func Multiple(tokens ...string) AnswerValue {
	if tokens == nil {
		tokens = []string{}
	}
	return AnswerValue{multi: tokens}
}

// IsMultiple reports whether the answer was submitted as a list.
func (a AnswerValue) IsMultiple() bool { return a.single == nil && a.multi != nil }

// Tokens normalizes the answer to a token list; a single string is a one-element list.
func (a AnswerValue) Tokens() []string {
	if a.single != nil {
		return []string{*a.single}
	}
	return append([]string(nil), a.multi...)
}

// IsEmpty reports whether no non-blank token was submitted.
func (a AnswerValue) IsEmpty() bool {
	for _, t := range a.Tokens() {
		if strings.TrimSpace(t) != "" {
			return false
		}
	}
	return true
}

func (a AnswerValue) MarshalJSON() ([]byte, error) {
	if a.single != nil {
		return json.Marshal(*a.single)
	}
	if a.multi == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a.multi)
}

func (a *AnswerValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 {
		return ErrInvalidAnswer
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return ErrInvalidAnswer
		}
		*a = Single(s)
		return nil
	case '[':
		var list []string
		if err := json.Unmarshal(b, &list); err != nil {
			return ErrInvalidAnswer
		}
		*a = Multiple(list...)
		return nil
	}
	return ErrInvalidAnswer
}
