package errs

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestPredicates(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		validation   bool
		notFound     bool
		conflict     bool
		invalidState bool
	}{
		{name: "validation", err: Validationf("amount", "must be positive"), validation: true},
		{name: "wrapped not found", err: fmt.Errorf("failed to load: %w", NotFound("group", "g1")), notFound: true},
		{name: "conflict", err: &ConflictError{Entity: "settlements", ID: "t1"}, conflict: true},
		{name: "invalid state", err: &InvalidStateError{Entity: "settlement", ID: "s1", State: "settled"}, invalidState: true},
		{name: "plain", err: errors.New("boom")},
		{name: "nil", err: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidation(tt.err); got != tt.validation {
				t.Errorf("IsValidation = %v", got)
			}
			if got := IsNotFound(tt.err); got != tt.notFound {
				t.Errorf("IsNotFound = %v", got)
			}
			if got := IsConflict(tt.err); got != tt.conflict {
				t.Errorf("IsConflict = %v", got)
			}
			if got := IsInvalidState(tt.err); got != tt.invalidState {
				t.Errorf("IsInvalidState = %v", got)
			}
		})
	}
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{Validation("participants required"), "participants required"},
		{Validationf("amount", "must be positive, got %s", "-1"), "amount: must be positive, got -1"},
		{NotFound("group", "g1"), "group not found: g1"},
		{&InvalidStateError{Entity: "settlement", ID: "s1", State: "settled"}, "settlement s1 is already settled"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestPartialFailure(t *testing.T) {
	err := error(&PartialFailure{Failures: []GroupFailure{
		{GroupID: "g1", Err: context.DeadlineExceeded},
		{GroupID: "g2", Err: NotFound("group", "g2")},
	}})

	if want := "balances unavailable for 2 group(s): g1, g2"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("expected errors.Is to reach the group error")
	}
	if !IsNotFound(err) {
		t.Error("expected IsNotFound through Unwrap")
	}

	var pf *PartialFailure
	if !errors.As(fmt.Errorf("totals: %w", err), &pf) || len(pf.Failures) != 2 {
		t.Errorf("errors.As = %+v", pf)
	}
}
