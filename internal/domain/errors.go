package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// ValidationError is returned when a required request parameter is missing or malformed
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s is required", e.Field)
}

// AuthError is returned when an OAuth exchange or credential check fails
type AuthError struct {
	Message string
	Status  int
	Err     error
}

func (e *AuthError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "authentication failed"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// UpstreamError is returned when a call to the Shopify Admin API fails
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s failed", e.Op)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// NotFoundError is returned when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// InvalidSessionError is returned when a session token is malformed, expired or
// resolves to a shop without a stored session
type InvalidSessionError struct {
	Reason string
	Err    error
}

func (e *InvalidSessionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid session: %s: %v", e.Reason, e.Err)
	}
	return "invalid session: " + e.Reason
}

func (e *InvalidSessionError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps an error from the taxonomy above to the status code route
// handlers respond with. Unknown errors map to 500.
func HTTPStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	var validationErr *ValidationError
	var authErr *AuthError
	var sessionErr *InvalidSessionError
	var notFoundErr *NotFoundError
	var upstreamErr *UpstreamError

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &sessionErr):
		return http.StatusUnauthorized
	case errors.As(err, &authErr):
		if authErr.Status != 0 {
			return authErr.Status
		}
		return http.StatusUnauthorized
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound
	case errors.As(err, &upstreamErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
