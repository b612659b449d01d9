package errs

import (
	"errors"
	"testing"
)

func TestMalformedProblemErrorUnwrap(t *testing.T) {
	cause := errors.New("position collision")
	err := &MalformedProblemError{Reason: "duplicate position", Refs: []string{"task-1"}, Err: cause}

	var target *MalformedProblemError
	if !errors.As(err, &target) {
		t.Fatalf("expected errors.As to match MalformedProblemError")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find wrapped cause")
	}
	if got := err.Error(); got == "" {
		t.Fatalf("expected non-empty error string")
	}
}

func TestStorageFailureWrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewStorageFailure("store_schedule", cause)

	if !errors.Is(err, cause) {
		t.Fatalf("expected errors.Is to find wrapped cause")
	}
}

func TestTimeLimitAndCanceledDistinctMessages(t *testing.T) {
	tl := &TimeLimitError{HasFeasible: true}
	c := &CanceledError{HasFeasible: true}
	if tl.Error() == c.Error() {
		t.Fatalf("expected TimeLimitError and CanceledError to report distinct messages")
	}
}
