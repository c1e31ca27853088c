package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure the orchestrator surfaces wraps exactly one of
// these, so callers can match with errors.Is without knowing the code.
var (
	ErrValidation = errors.New("validation error")
	ErrProcessing = errors.New("processing error")
	ErrRefund     = errors.New("refund error")
	ErrNotFound   = errors.New("not found")

	// ErrVersionConflict is returned by the record store when an optimistic
	// update lost the race against a concurrent writer.
	ErrVersionConflict = errors.New("optimistic lock conflict")
)

// Error carries a kind, a stable machine-readable code and a human-readable
// message across the orchestrator boundary.
type Error struct {
	Kind    error
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

func (e *Error) Unwrap() error { return e.Kind }

func NewValidationError(code, message string) *Error {
	return &Error{Kind: ErrValidation, Code: code, Message: message}
}

func NewProcessingError(code, message string) *Error {
	return &Error{Kind: ErrProcessing, Code: code, Message: message}
}

func NewRefundError(code, message string) *Error {
	return &Error{Kind: ErrRefund, Code: code, Message: message}
}

func NewNotFoundError(code, message string) *Error {
	return &Error{Kind: ErrNotFound, Code: code, Message: message}
}
