package orm

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyStoreErr(t *testing.T) {
	if err := classifyStoreErr(nil); err != nil {
		t.Errorf("nil should stay nil, got %v", err)
	}

	err := classifyStoreErr(fmt.Errorf("SQL logic error: UNIQUE constraint failed: users.username"))
	if !errors.Is(err, ErrConstraint) {
		t.Errorf("expected ErrConstraint, got %v", err)
	}

	err = classifyStoreErr(fmt.Errorf("database is locked (5) (SQLITE_BUSY)"))
	if !errors.Is(err, ErrBusy) {
		t.Errorf("expected ErrBusy, got %v", err)
	}

	// Unrecognized faults still come back wrapped, never raw.
	cause := errors.New("disk I/O error")
	err = classifyStoreErr(cause)
	if err == nil || !errors.Is(err, cause) {
		t.Errorf("unclassified error should wrap its cause, got %v", err)
	}
	if errors.Is(err, ErrConstraint) || errors.Is(err, ErrBusy) {
		t.Errorf("unclassified error should not match a sentinel: %v", err)
	}
}
