package orm

import (
	"errors"
	"fmt"
	"strings"

	"modernc.org/sqlite"
)

// Schema declaration errors. All surface at Register time, never later.
var (
	ErrInvalidTable        = errors.New("invalid table name")
	ErrInvalidField        = errors.New("invalid field declaration")
	ErrDuplicateField      = errors.New("duplicate field name")
	ErrDuplicatePrimaryKey = errors.New("more than one primary key field")
)

// Query construction errors. Captured when the query is built and returned
// by every materializer before any store access.
var (
	ErrUnknownField  = errors.New("unknown field")
	ErrUnknownLookup = errors.New("unknown lookup suffix")
	ErrInvalidValue  = errors.New("invalid value for field")
)

// Execution errors.
var (
	ErrNotRegistered   = errors.New("model not registered")
	ErrNotFound        = errors.New("no matching row")
	ErrMultipleResults = errors.New("query matched more than one row")
	ErrConstraint      = errors.New("constraint violation")
	ErrBusy            = errors.New("store busy")
	ErrRowVanished     = errors.New("saved row no longer exists")
	ErrClosed          = errors.New("database is closed")
)

// SQLite primary result codes relevant to classification.
const (
	sqliteBusy       = 5
	sqliteLocked     = 6
	sqliteConstraint = 19
)

// classifyStoreErr wraps a driver error into one of the package error kinds
// so no raw store error reaches a caller unclassified.
func classifyStoreErr(err error) error {
	if err == nil {
		return nil
	}
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() & 0xff {
		case sqliteConstraint:
			return fmt.Errorf("%w: %v", ErrConstraint, err)
		case sqliteBusy, sqliteLocked:
			return fmt.Errorf("%w: %v", ErrBusy, err)
		}
	}
	// The driver does not always surface a typed error; fall back to the
	// message text it emits for constraint and lock failures.
	msg := err.Error()
	switch {
	case strings.Contains(msg, "constraint failed"):
		return fmt.Errorf("%w: %v", ErrConstraint, err)
	case strings.Contains(msg, "database is locked"), strings.Contains(msg, "database table is locked"):
		return fmt.Errorf("%w: %v", ErrBusy, err)
	}
	return fmt.Errorf("store: %w", err)
}
