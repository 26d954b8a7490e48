package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrUnrecognized marks lines no registered rule matched: MOTD text,
	// prompts, blank lines.
	ErrUnrecognized = errors.New("unrecognized line")

	// ErrMalformedField marks lines that matched a rule but carried a field
	// that failed conversion.
	ErrMalformedField = errors.New("malformed field")
)

// UnrecognizedError carries the original, untrimmed line.
type UnrecognizedError struct {
	Line string
}

func (e *UnrecognizedError) Error() string {
	return fmt.Sprintf("unrecognized line %q", e.Line)
}

func (e *UnrecognizedError) Is(target error) bool {
	return target == ErrUnrecognized
}

// MalformedFieldError reports a field of a matched rule that could not be
// converted. Text is the raw captured substring.
type MalformedFieldError struct {
	Category Category
	Field    string
	Text     string
	Err      error
}

func (e *MalformedFieldError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: malformed %s %q", e.Category, e.Field, e.Text)
	}
	return fmt.Sprintf("%s: malformed %s %q: %v", e.Category, e.Field, e.Text, e.Err)
}

func (e *MalformedFieldError) Is(target error) bool {
	return target == ErrMalformedField
}

func (e *MalformedFieldError) Unwrap() error {
	return e.Err
}
