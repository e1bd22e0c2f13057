package contextpg

import (
	"errors"
	"testing"
)

func TestWrapError(t *testing.T) {
	if WrapError("ProcessTurn", "sess", nil) != nil {
		t.Error("WrapError(nil) != nil")
	}

	inner := errors.New("connection refused")
	err := WrapError("LoadState", "sess-1", inner)
	if !errors.Is(err, inner) {
		t.Error("wrapped error does not unwrap to the cause")
	}

	var ee *EngineError
	if !errors.As(err, &ee) {
		t.Fatal("errors.As(EngineError) = false")
	}
	if ee.Op != "LoadState" || ee.SessionID != "sess-1" {
		t.Errorf("EngineError = %+v", ee)
	}

	want := "contextpg LoadState failed for session sess-1: connection refused"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}

func TestEngineError_NoSession(t *testing.T) {
	err := &EngineError{Op: "ParseSettings", Err: ErrInvalidConfig}
	want := "contextpg ParseSettings failed: invalid configuration"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
