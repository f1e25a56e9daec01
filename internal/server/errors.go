// Package server provides the HTTP API for submitting research runs and
// reading their progress and results.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrNotFound indicates a search or artifact does not exist for the caller.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrConflict indicates a client-chosen search id is already taken.
type ErrConflict struct {
	ID string
}

func (e *ErrConflict) Error() string {
	return "search already exists: " + e.ID
}

// ErrValidation indicates request validation failure.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	if e.Field == "" {
		return "validation error: " + e.Message
	}
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the status code for err.
func HTTPStatus(err error) int {
	var notFound *ErrNotFound
	var invalid *ErrValidation
	var conflict *ErrConflict
	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &invalid):
		return http.StatusBadRequest
	case errors.As(err, &conflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// validationError turns validator output into an ErrValidation naming the
// first failing field.
func validationError(err error) error {
	var fields validator.ValidationErrors
	if errors.As(err, &fields) && len(fields) > 0 {
		f := fields[0]
		return &ErrValidation{Field: f.Field(), Message: "failed " + f.Tag() + " check"}
	}
	return &ErrValidation{Message: err.Error()}
}
