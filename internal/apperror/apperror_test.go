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
			err:       NotFound("preference", "theme"),
			target:    ErrNotFound,
			wantMatch: true,
		},
		{
			name:      "ValidationFailed wraps ErrValidation",
			err:       ValidationFailed("theme", "unknown theme"),
			target:    ErrValidation,
			wantMatch: true,
		},
		{
			name:      "Conflict wraps ErrConflict",
			err:       Conflict("run", "block-0"),
			target:    ErrConflict,
			wantMatch: true,
		},
		{
			name:      "Timeout wraps ErrTimeout",
			err:       Timeout("evaluate"),
			target:    ErrTimeout,
			wantMatch: true,
		},
		{
			name:      "Timeout is not a communication error",
			err:       Timeout("evaluate"),
			target:    ErrCommunication,
			wantMatch: false,
		},
		{
			name:      "wrapped Communication still matches",
			err:       fmt.Errorf("remote: evaluate: %w", Communication("network", errors.New("refused"))),
			target:    ErrCommunication,
			wantMatch: true,
		},
		{
			name:      "NotFound does NOT match ErrValidation",
			err:       NotFound("preference", "theme"),
			target:    ErrValidation,
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
			name:        "NotFound message includes resource and id",
			err:         NotFound("preference", "theme"),
			wantMessage: "preference not found with id theme",
		},
		{
			name:        "ValidationFailed uses custom message",
			err:         ValidationFailed("theme", "unknown theme"),
			wantMessage: "unknown theme",
		},
		{
			name:        "Communication names category and cause",
			err:         Communication("status 502", errors.New("bad gateway")),
			wantMessage: "communication error: status 502: bad gateway",
		},
		{
			name:        "Communication without cause",
			err:         Communication("decode", nil),
			wantMessage: "communication error: decode",
		},
		{
			name:        "Timeout names the operation",
			err:         Timeout("evaluate"),
			wantMessage: "communication timeout: evaluate",
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

func TestCategory(t *testing.T) {
	if got := Category(fmt.Errorf("wrap: %w", Communication("network", nil))); got != "network" {
		t.Errorf("Category() = %q, want %q", got, "network")
	}
	if got := Category(Timeout("crates")); got != "timeout" {
		t.Errorf("Category() = %q, want %q", got, "timeout")
	}
	if got := Category(errors.New("plain")); got != "" {
		t.Errorf("Category() = %q, want empty", got)
	}
}

func TestUnwrap(t *testing.T) {
	err := NotFound("preference", "theme")
	if unwrapped := err.Unwrap(); unwrapped != ErrNotFound {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, ErrNotFound)
	}
}
