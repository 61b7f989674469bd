// Package domain defines core types, interfaces, and errors for the async query service.
package domain

import (
	"errors"
	"fmt"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ConflictError indicates a conflict (e.g., duplicate resource).
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// TranslationError indicates a filter expression could not be turned into a
// predicate. No store interaction happens once this is returned.
type TranslationError struct {
	Expression string
	Pos        int // byte offset into Expression, -1 when unknown
	Message    string
}

func (e *TranslationError) Error() string {
	if e.Pos >= 0 {
		return fmt.Sprintf("invalid filter %q at offset %d: %s", e.Expression, e.Pos, e.Message)
	}
	return fmt.Sprintf("invalid filter %q: %s", e.Expression, e.Message)
}

// TransactionError reports a failed store transaction. The transaction has
// been rolled back; none of its changes are visible.
type TransactionError struct {
	Op  string
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s: transaction rolled back: %v", e.Op, e.Err)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// TransitionError indicates a status change the state machine does not allow.
type TransitionError struct {
	ID   string
	From QueryStatus
	To   QueryStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("async query %q cannot move from %s to %s", e.ID, e.From, e.To)
}

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrConflict creates a ConflictError with a formatted message.
func ErrConflict(format string, args ...interface{}) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}

// ErrTranslation creates a TranslationError for expr at pos.
func ErrTranslation(expr string, pos int, format string, args ...interface{}) *TranslationError {
	return &TranslationError{Expression: expr, Pos: pos, Message: fmt.Sprintf(format, args...)}
}

// IsTranslationError reports whether err is, or wraps, a TranslationError.
func IsTranslationError(err error) bool {
	var te *TranslationError
	return errors.As(err, &te)
}

// IsTransactionError reports whether err is, or wraps, a TransactionError.
func IsTransactionError(err error) bool {
	var te *TransactionError
	return errors.As(err, &te)
}
