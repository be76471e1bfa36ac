package audit

import (
	"fmt"

	"github.com/jonathan/contract-auditor/internal/db"
)

// NotFoundError is returned when a contract ID is unknown.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("contract %s not found", e.ID)
}

// Unwrap lets callers match db.ErrNotFound.
func (e *NotFoundError) Unwrap() error {
	return db.ErrNotFound
}

// ValidationError reports a malformed correction request.
type ValidationError struct {
	Message string
	Cause   error
}

func (e *ValidationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid update: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("invalid update: %s", e.Message)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}
