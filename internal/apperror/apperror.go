// Package apperror defines the error taxonomy shared by the store, the
// subscription service and the HTTP layer.
//
// Every failure a caller can see is an *AppError wrapping one of the
// sentinels below, so callers branch with errors.Is and never on message
// text. The HTTP layer (handler/response.go) is the only place that turns
// these into status codes.
package apperror

import (
	"errors"
	"fmt"
)

// Generic categories.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")
)

// Domain errors.
var (
	ErrUserNotFound      = errors.New("user not found")
	ErrDuplicateUsername = errors.New("duplicate username")
	ErrCityUnknown       = errors.New("city unknown")
	ErrDuplicateCityName = errors.New("duplicate city name")
	ErrNotTracked        = errors.New("city not tracked by user")
	ErrAlreadyTracked    = errors.New("city already tracked")
	ErrTimeNotAvailable  = errors.New("time not available")
	ErrUpstream          = errors.New("upstream error")
)

type AppError struct {
	Err     error  // sentinel identifying the kind of failure
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: lower-level error that triggered this one
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the cause to errors.Is / errors.As.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func UserNotFound(id int64) *AppError {
	return &AppError{
		Err:     ErrUserNotFound,
		Message: "User not found.",
		Field:   fmt.Sprint(id),
	}
}

func UsernameNotFound(username string) *AppError {
	return &AppError{
		Err:     ErrUserNotFound,
		Message: "User not found.",
		Field:   username,
	}
}

func DuplicateUsername(username string) *AppError {
	return &AppError{
		Err:     ErrDuplicateUsername,
		Message: "User already exists.",
		Field:   username,
	}
}

// CityUnknown reports a city name nobody has ever tracked.
func CityUnknown(name string) *AppError {
	return &AppError{
		Err:     ErrCityUnknown,
		Message: fmt.Sprintf("%s is not being tracked for any of users", name),
		Field:   name,
	}
}

func DuplicateCityName(name string) *AppError {
	return &AppError{
		Err:     ErrDuplicateCityName,
		Message: fmt.Sprintf("City %s already exists.", name),
		Field:   name,
	}
}

// NotTracked reports a city that exists but is not linked to the user.
func NotTracked(name string, userID int64) *AppError {
	return &AppError{
		Err:     ErrNotTracked,
		Message: fmt.Sprintf("%s is not being tracked for user with id: %d", name, userID),
		Field:   name,
	}
}

func AlreadyTracked(name string) *AppError {
	return &AppError{
		Err:     ErrAlreadyTracked,
		Message: fmt.Sprintf("City %s is already being tracked.", name),
		Field:   name,
	}
}

func TimeNotAvailable(timeOfDay string) *AppError {
	return &AppError{
		Err:     ErrTimeNotAvailable,
		Message: "Weather data not available at this time.",
		Field:   timeOfDay,
	}
}

// Upstream wraps a failed call to the weather provider.
func Upstream(cause error) *AppError {
	return &AppError{
		Err:     ErrUpstream,
		Message: "Weather provider request failed.",
		Cause:   cause,
	}
}
