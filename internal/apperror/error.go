package apperror

import (
	"net/http"

	"github.com/pkg/errors"
)

// A Kind classifies an application error.
type Kind string

// Error kinds.
const (
	NotFound             Kind = "not-found"
	AlreadyExists        Kind = "already-exists"
	InvalidCredentials   Kind = "invalid-credentials"
	IncorrectPassword    Kind = "incorrect-password"
	StorageQuotaExceeded Kind = "storage-quota-exceeded"
	NetworkError         Kind = "network-error"
	ValidationError      Kind = "validation-error"
	SignInRequired       Kind = "sign-in-required"
	Forbidden            Kind = "forbidden"
)

var codes = map[Kind]int{
	NotFound:             http.StatusNotFound,
	AlreadyExists:        http.StatusConflict,
	InvalidCredentials:   http.StatusUnauthorized,
	IncorrectPassword:    http.StatusUnauthorized,
	StorageQuotaExceeded: http.StatusRequestEntityTooLarge,
	NetworkError:         http.StatusBadGateway,
	ValidationError:      http.StatusBadRequest,
	SignInRequired:       http.StatusUnauthorized,
	Forbidden:            http.StatusForbidden,
}

type (
	// An Error represents the error format rendered to the user.
	Error struct {
		HTTPCode   int  `json:"-"`
		Kind       Kind `json:"-"`
		FieldError err  `json:"error"`
	}

	err struct {
		Tag     string `json:"tag,omitempty"`
		Message string `json:"message"`
	}
)

// New returns a new Error of the given kind with the given message.
func New(kind Kind, message string) *Error {
	code, ok := codes[kind]
	if !ok {
		code = http.StatusInternalServerError
	}
	return &Error{HTTPCode: code, Kind: kind, FieldError: err{Tag: string(kind), Message: message}}
}

// Newf returns a new Error of the given kind with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, errors.Errorf(format, args...).Error())
}

// Error implements error interface.
func (e *Error) Error() string {
	return e.FieldError.Message
}

// Is returns true if err (or its cause) is an Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// StatusCode returns the HTTP status code.
func StatusCode(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.HTTPCode
	}
	return http.StatusInternalServerError
}

// Message returns a human-readable message for the given error.
// Unexpected errors are not leaked.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Error()
	}
	return "Something went wrong, please try again."
}
