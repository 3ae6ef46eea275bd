package errs

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorsIsByKind(t *testing.T) {
	err := NotFound("Proxy with id %d not found", 7)
	if !errors.Is(err, ErrNotFound) {
		t.Error("Expected not-found error to match ErrNotFound")
	}
	if errors.Is(err, ErrConflict) {
		t.Error("Did not expect not-found error to match ErrConflict")
	}
	if err.Error() != "Proxy with id 7 not found" {
		t.Errorf("Unexpected message: %s", err.Error())
	}
}

func TestIntegrityMatchesNotFound(t *testing.T) {
	err := fmt.Errorf("open session: %w", Integrity("Proxy with id %d does not exist", 3))
	if !errors.Is(err, ErrIntegrity) {
		t.Error("Expected wrapped integrity error to match ErrIntegrity")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("Expected integrity error to also match ErrNotFound")
	}
	if KindOf(err) != KindIntegrity {
		t.Errorf("Expected kind integrity, got %s", KindOf(err))
	}
}

func TestConflictUnwrap(t *testing.T) {
	cause := errors.New("UNIQUE constraint failed: users.username")
	err := Conflict(cause, "Username %q already exists", "alice")
	if !errors.Is(err, cause) {
		t.Error("Expected conflict to unwrap to its cause")
	}
	if KindOf(errors.New("plain")) != 0 {
		t.Error("Expected untyped error to have no kind")
	}
}
