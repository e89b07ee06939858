package domain

import (
	"errors"
	"fmt"
)

var (
	ErrEventNotFound    = errors.New("event not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrEventClosed      = errors.New("event is closed")
	ErrJoinCodeTaken    = errors.New("join code already exists")
)

// ValidationError carries the field and human-readable reason for a rejected
// input. The reason is surfaced verbatim to the caller.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}
