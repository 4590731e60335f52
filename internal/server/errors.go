// Package server provides the HTTP REST API for the innovation analyzer.
package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/perviz24/innovati-x/internal/pipeline"
	"github.com/perviz24/innovati-x/internal/store"
)

// ErrEmailAlreadyExists indicates the email is already registered.
type ErrEmailAlreadyExists struct {
	Email string
}

func (e *ErrEmailAlreadyExists) Error() string {
	return fmt.Sprintf("email already registered: %s", e.Email)
}

// ErrInvalidCredentials indicates a failed login. The message is identical
// for unknown accounts and wrong passwords.
type ErrInvalidCredentials struct{}

func (e *ErrInvalidCredentials) Error() string {
	return "invalid email or password"
}

// ErrValidation indicates request validation failure.
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus maps an error to its HTTP response status.
func HTTPStatus(err error) int {
	var (
		validation     *ErrValidation
		pipeValidation *pipeline.ValidationError
		conflict       *pipeline.ConflictError
		emailTaken     *ErrEmailAlreadyExists
		badLogin       *ErrInvalidCredentials
	)

	switch {
	case errors.As(err, &validation), errors.As(err, &pipeValidation):
		return http.StatusBadRequest
	case errors.As(err, &conflict), errors.As(err, &emailTaken), errors.Is(err, store.ErrEmailTaken):
		return http.StatusConflict
	case errors.As(err, &badLogin):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
