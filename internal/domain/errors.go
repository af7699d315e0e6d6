package domain

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInsufficientData    = errors.New("insufficient demand data")
	ErrAdvisoryUnavailable = errors.New("advisory service unavailable")
	ErrInvalidTransition   = errors.New("invalid action plan transition")
	ErrValidation          = errors.New("validation failed")
	ErrPlanNotFound        = errors.New("action plan not found")
	ErrDuplicatePlan       = errors.New("action plan already exists")
	ErrPolicyNotFound      = errors.New("policy draft not found")
)

// ValidationError reports a malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// MapHTTPStatus maps domain errors to HTTP status codes.
func MapHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrPlanNotFound), errors.Is(err, ErrPolicyNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrDuplicatePlan):
		return http.StatusConflict
	case errors.Is(err, ErrAdvisoryUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
