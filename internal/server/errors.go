// Package server provides the HTTP REST API for the contract auditor.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jonathan/contract-auditor/internal/audit"
	"github.com/jonathan/contract-auditor/internal/db"
	"github.com/jonathan/contract-auditor/internal/ingestion"
	"github.com/jonathan/contract-auditor/internal/lifecycle"
)

// ErrValidation indicates a malformed HTTP request
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error
func HTTPStatus(err error) int {
	var (
		validation *ErrValidation
		update     *audit.ValidationError
		notFound   *audit.NotFoundError
		extraction *ingestion.ExtractionError
		transition *lifecycle.TransitionError
		persist    *db.PersistenceError
	)

	switch {
	case err == nil:
		return http.StatusInternalServerError
	case errors.As(err, &validation), errors.As(err, &update):
		return http.StatusBadRequest
	case errors.As(err, &notFound), errors.Is(err, db.ErrNotFound):
		return http.StatusNotFound
	case errors.As(err, &extraction):
		return http.StatusUnprocessableEntity
	case errors.As(err, &transition):
		return http.StatusConflict
	case errors.Is(err, lifecycle.ErrNotesRequired):
		return http.StatusUnprocessableEntity
	case errors.As(err, &persist):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
