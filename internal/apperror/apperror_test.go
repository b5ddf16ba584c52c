package apperror

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIs(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		target    error
		wantMatch bool
	}{
		{
			name:      "NotFound wraps ErrNotFound",
			err:       NotFound("city", "7"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("latitude", "latitude is required"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "UserNotFound wraps ErrUserNotFound",
			err:       UserNotFound(999),
			target:    ErrUserNotFound,
			wantMatch: true,
		},
		{
			name:      "CityUnknown is not NotTracked",
			err:       CityUnknown("Paris"),
			target:    ErrNotTracked,
			wantMatch: false,
		},
		{
			name:      "NotTracked is not CityUnknown",
			err:       NotTracked("Paris", 1),
			target:    ErrCityUnknown,
			wantMatch: false,
		},
		{
			name:      "wrapped AlreadyTracked still matches",
			err:       fmt.Errorf("tracking city: %w", AlreadyTracked("Paris")),
			target:    ErrAlreadyTracked,
			wantMatch: true,
		},
		{
			name:      "DuplicateUsername does NOT match ErrDuplicateCityName",
			err:       DuplicateUsername("alice"),
			target:    ErrDuplicateCityName,
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := errors.Is(tt.err, tt.target)
			if got != tt.wantMatch {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.wantMatch)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name        string
		err         *AppError
		wantMessage string
	}{
		{
			name:        "UserNotFound",
			err:         UserNotFound(3),
			wantMessage: "User not found.",
		},
		{
			name:        "DuplicateUsername",
			err:         DuplicateUsername("alice"),
			wantMessage: "User already exists.",
		},
		{
			name:        "AlreadyTracked names the city",
			err:         AlreadyTracked("Moscow"),
			wantMessage: "City Moscow is already being tracked.",
		},
		{
			name:        "NotTracked names city and user",
			err:         NotTracked("Moscow", 2),
			wantMessage: "Moscow is not being tracked for user with id: 2",
		},
		{
			name:        "CityUnknown",
			err:         CityUnknown("Kazan"),
			wantMessage: "Kazan is not being tracked for any of users",
		},
		{
			name:        "TimeNotAvailable",
			err:         TimeNotAvailable("30:00"),
			wantMessage: "Weather data not available at this time.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.wantMessage {
				t.Errorf("Error() = %q, want %q", got, tt.wantMessage)
			}
		})
	}
}

func TestUpstreamKeepsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Upstream(cause)

	if !errors.Is(err, ErrUpstream) {
		t.Errorf("errors.Is(err, ErrUpstream) = false, want true")
	}
	if !errors.Is(err, cause) {
		t.Errorf("errors.Is(err, cause) = false, want true")
	}
}

func TestUnwrapWithoutCause(t *testing.T) {
	errs := NotFound("city", "1").Unwrap()

	if len(errs) != 1 || errs[0] != ErrNotFound {
		t.Errorf("Unwrap() = %v, want [%v]", errs, ErrNotFound)
	}
}

func TestValidationFailedField(t *testing.T) {
	err := ValidationFailed("time", "time must be HH:MM")

	if err.Field != "time" {
		t.Errorf("Field = %q, want %q", err.Field, "time")
	}
}
