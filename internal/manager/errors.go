package manager

import (
	"errors"
	"net/http"
)

// ErrModelNotFound returns an error when a requested label or id is not in the catalog.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether the error indicates a missing model.
func IsModelNotFound(err error) bool {
	var e modelNotFoundError
	return errors.As(err, &e)
}

// dependencyUnavailableError signals that the diffusion runtime is missing or
// unreachable so the HTTP layer can return 503 instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var e dependencyUnavailableError
	return errors.As(err, &e)
}

// invalidRequestError rejects parameters that cannot be normalized.
type invalidRequestError struct{ msg string }

func (e invalidRequestError) Error() string { return e.msg }

// IsInvalidRequest reports whether err was caused by bad request parameters.
func IsInvalidRequest(err error) bool {
	var e invalidRequestError
	return errors.As(err, &e)
}

// runtimeError is a non-2xx answer from the diffusion runtime. It maps to 502.
type runtimeError struct {
	status int
	msg    string
}

func (e runtimeError) Error() string {
	if e.msg == "" {
		return "diffusion runtime error: " + http.StatusText(e.status)
	}
	return "diffusion runtime error: " + e.msg
}

// StatusCode implements the HTTP layer's HTTPError interface.
func (e runtimeError) StatusCode() int { return http.StatusBadGateway }

// RuntimeStatus returns the runtime's own HTTP status when err is a runtime error.
func RuntimeStatus(err error) (int, bool) {
	var e runtimeError
	if errors.As(err, &e) {
		return e.status, true
	}
	return 0, false
}
