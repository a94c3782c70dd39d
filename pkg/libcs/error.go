package libcs

import (
	"github.com/pkg/errors"
)

type (
	// An AuthError is a refusal returned by the authentication endpoint.
	AuthError struct {
		StatusCode int
		Message    string
	}

	// A NetworkError is returned when the authentication endpoint could not be reached
	// or replied with something else than the expected envelope.
	NetworkError struct {
		Err error
	}
)

func (e *AuthError) Error() string {
	if e.Message == "" {
		return "Authentication failed"
	}
	return e.Message
}

func (e *NetworkError) Error() string {
	return "could not reach authentication server: " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsNetworkError returns true if err is caused by an unreachable endpoint.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
