package orm

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the semantic type of a field.
type Kind int

const (
	KindText Kind = iota
	KindInteger
	KindBoolean
	KindDateTime
	KindForeignKey
)

// String returns the kind name for error messages.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindBoolean:
		return "boolean"
	case KindDateTime:
		return "datetime"
	case KindForeignKey:
		return "foreign key"
	default:
		return "unknown"
	}
}

// RefSelf marks a foreign key that references its own table.
const RefSelf = "self"

// timeLayout is the stored timestamp format. Fixed fractional width keeps
// lexicographic TEXT comparison consistent with chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Field declares one typed column of a model. Fields are immutable after
// registration; Register copies the descriptor list it is given.
type Field struct {
	Name       string
	Kind       Kind
	PrimaryKey bool
	Nullable   bool
	Unique     bool
	Default    any    // applied engine-side when Create omits the field
	AutoNowAdd bool   // set once at insert (datetime only)
	AutoNow    bool   // refreshed on every save (datetime only)
	MaxLength  int    // advisory, not enforced by the store
	References string // referenced table for KindForeignKey; RefSelf allowed
}

// validate checks constraint compatibility at declaration time.
func (f Field) validate() error {
	if !validIdent(f.Name) || strings.Contains(f.Name, "__") {
		return fmt.Errorf("%w: field name %q", ErrInvalidField, f.Name)
	}
	if f.PrimaryKey && f.Kind != KindInteger && f.Kind != KindText {
		return fmt.Errorf("%w: primary key %q must be integer or text", ErrInvalidField, f.Name)
	}
	if f.PrimaryKey && f.Nullable {
		return fmt.Errorf("%w: primary key %q cannot be nullable", ErrInvalidField, f.Name)
	}
	if f.Unique && f.Kind == KindBoolean {
		return fmt.Errorf("%w: unique field %q needs a discriminating type", ErrInvalidField, f.Name)
	}
	if (f.AutoNowAdd || f.AutoNow) && f.Kind != KindDateTime {
		return fmt.Errorf("%w: auto timestamp on non-datetime field %q", ErrInvalidField, f.Name)
	}
	if (f.AutoNowAdd || f.AutoNow) && f.Default != nil {
		return fmt.Errorf("%w: field %q mixes auto timestamp with default", ErrInvalidField, f.Name)
	}
	if f.Kind == KindForeignKey && f.References == "" {
		return fmt.Errorf("%w: foreign key %q missing referenced table", ErrInvalidField, f.Name)
	}
	if f.Kind != KindForeignKey && f.References != "" {
		return fmt.Errorf("%w: non-foreign-key field %q references %q", ErrInvalidField, f.Name, f.References)
	}
	return nil
}

// encode converts a semantic value to the store's primitive representation:
// booleans to 0/1 integers, timestamps to fixed-width UTC text, foreign keys
// to the referenced primary key value. nil passes through for NULL.
func (f Field) encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch f.Kind {
	case KindText:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case KindInteger:
		if n, ok := toInt64(v); ok {
			return n, nil
		}
	case KindBoolean:
		if b, ok := v.(bool); ok {
			if b {
				return int64(1), nil
			}
			return int64(0), nil
		}
	case KindDateTime:
		if t, ok := v.(time.Time); ok {
			return t.UTC().Format(timeLayout), nil
		}
	case KindForeignKey:
		switch ref := v.(type) {
		case string:
			return ref, nil
		case *Instance:
			if ref == nil {
				return nil, nil
			}
			return ref.schema.fields[ref.schema.pk].encode(ref.PrimaryKey())
		default:
			if n, ok := toInt64(v); ok {
				return n, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s field %q got %T", ErrInvalidValue, f.Kind, f.Name, v)
}

// decode converts a scanned store value back to the semantic representation.
func (f Field) decode(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	switch f.Kind {
	case KindText:
		if s, ok := rawString(raw); ok {
			return s, nil
		}
	case KindInteger:
		if n, ok := raw.(int64); ok {
			return n, nil
		}
	case KindBoolean:
		if n, ok := raw.(int64); ok {
			return n != 0, nil
		}
	case KindDateTime:
		if s, ok := rawString(raw); ok {
			t, err := time.Parse(time.RFC3339Nano, s)
			if err != nil {
				return nil, fmt.Errorf("parsing %q timestamp: %w", f.Name, err)
			}
			return t, nil
		}
	case KindForeignKey:
		if n, ok := raw.(int64); ok {
			return n, nil
		}
		if s, ok := rawString(raw); ok {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %s field %q stored as %T", ErrInvalidValue, f.Kind, f.Name, raw)
}

// columnDef renders the column definition contributed to CREATE TABLE.
// refTable, refPK, and refKind describe the resolved referenced primary key
// for foreign keys (RefSelf resolved to the owning table by the caller).
func (f Field) columnDef(refTable, refPK string, refKind Kind) string {
	var b strings.Builder
	b.WriteString(f.Name)
	switch {
	case f.Kind == KindInteger && f.PrimaryKey:
		b.WriteString(" INTEGER PRIMARY KEY AUTOINCREMENT")
		return b.String()
	case f.Kind == KindText && f.PrimaryKey:
		b.WriteString(" TEXT PRIMARY KEY")
		return b.String()
	case f.Kind == KindInteger, f.Kind == KindBoolean:
		b.WriteString(" INTEGER")
	case f.Kind == KindForeignKey && refKind == KindText:
		b.WriteString(" TEXT")
	case f.Kind == KindForeignKey:
		b.WriteString(" INTEGER")
	default:
		b.WriteString(" TEXT")
	}
	if !f.Nullable {
		b.WriteString(" NOT NULL")
	}
	if f.Unique {
		b.WriteString(" UNIQUE")
	}
	if f.Kind == KindForeignKey {
		fmt.Fprintf(&b, " REFERENCES %s(%s)", refTable, refPK)
	}
	return b.String()
}

// validIdent reports whether s is a safe SQL identifier. Identifiers are the
// only text interpolated into statements; everything else binds as a parameter.
func validIdent(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case int32:
		return int64(n), true
	default:
		return 0, false
	}
}

func rawString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case []byte:
		return string(s), true
	default:
		return "", false
	}
}
