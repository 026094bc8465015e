package model

import "fmt"

// ValidationError reports malformed or out-of-range input. It is always
// surfaced to the caller, never silently corrected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// Validationf builds a ValidationError for a field.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a referenced entity that does not exist.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// NotFound builds a NotFoundError.
func NotFound(kind, id string) error {
	return &NotFoundError{Kind: kind, ID: id}
}

// StateError reports an operation applied in an illegal lifecycle state,
// such as mutating a terminal tracked bet. Fatal to that operation only.
type StateError struct {
	Op    string
	State string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("illegal state for %s: %s", e.Op, e.State)
}

// RiskLimitError reports a portfolio-level exposure violation. It blocks
// the new recommendation without invalidating the underlying evaluation.
type RiskLimitError struct {
	Limit  string
	Detail string
}

func (e *RiskLimitError) Error() string {
	return fmt.Sprintf("risk limit %s: %s", e.Limit, e.Detail)
}
