package orm

import (
	"fmt"
	"reflect"
	"strings"
)

// Op tags the comparison a predicate performs. Lookup keys are parsed once
// when the query is built; execution never re-parses strings.
type Op int

const (
	OpEq Op = iota
	OpGt
	OpGte
	OpLt
	OpLte
	OpContains
	OpIContains
	OpStartsWith
	OpEndsWith
	OpIn
)

// suffixOps maps a lookup suffix to its operator.
var suffixOps = map[string]Op{
	"gt":         OpGt,
	"gte":        OpGte,
	"lt":         OpLt,
	"lte":        OpLte,
	"contains":   OpContains,
	"icontains":  OpIContains,
	"startswith": OpStartsWith,
	"endswith":   OpEndsWith,
	"in":         OpIn,
}

// Lookups is a set of field or field__suffix keys with comparison values.
// The same grammar serves Filter, Exclude, and the bulk Update/Delete filters.
type Lookups map[string]any

// predicate is one resolved lookup: field, operator, and the value(s)
// already encoded to the store representation.
type predicate struct {
	field string
	op    Op
	args  []any
}

// parseLookup resolves a key of the form "field" or "field__suffix" against
// the schema. Unknown fields and suffixes are configuration errors caught
// here, before any store access.
func parseLookup(s *Schema, key string, value any) (predicate, error) {
	name, suffix := key, ""
	if i := strings.Index(key, "__"); i >= 0 {
		name, suffix = key[:i], key[i+2:]
	}

	f, ok := s.Field(name)
	if !ok {
		return predicate{}, fmt.Errorf("%w: %s.%s", ErrUnknownField, s.table, name)
	}

	op := OpEq
	if suffix != "" {
		op, ok = suffixOps[suffix]
		if !ok {
			return predicate{}, fmt.Errorf("%w: %q", ErrUnknownLookup, suffix)
		}
	}

	switch op {
	case OpIn:
		members, err := encodeMembers(f, value)
		if err != nil {
			return predicate{}, err
		}
		return predicate{field: name, op: op, args: members}, nil
	case OpContains, OpIContains, OpStartsWith, OpEndsWith:
		sv, ok := value.(string)
		if !ok {
			return predicate{}, fmt.Errorf("%w: %s lookup on %q needs a string, got %T",
				ErrInvalidValue, suffix, name, value)
		}
		return predicate{field: name, op: op, args: []any{sv}}, nil
	default:
		enc, err := f.encode(value)
		if err != nil {
			return predicate{}, err
		}
		return predicate{field: name, op: op, args: []any{enc}}, nil
	}
}

// encodeMembers encodes each element of an __in sequence.
func encodeMembers(f Field, value any) ([]any, error) {
	rv := reflect.ValueOf(value)
	if value == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, fmt.Errorf("%w: in lookup on %q needs a sequence, got %T",
			ErrInvalidValue, f.Name, value)
	}
	members := make([]any, rv.Len())
	for i := range members {
		enc, err := f.encode(rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		members[i] = enc
	}
	return members, nil
}

// fragment renders the parameterized predicate. Values never interpolate as
// literals. Substring and affix matches avoid LIKE so that case sensitivity
// does not depend on SQLite's ASCII-only LIKE folding.
func (p predicate) fragment() (string, []any) {
	switch p.op {
	case OpEq:
		if len(p.args) == 1 && p.args[0] == nil {
			return p.field + " IS NULL", nil
		}
		return p.field + " = ?", p.args
	case OpGt:
		return p.field + " > ?", p.args
	case OpGte:
		return p.field + " >= ?", p.args
	case OpLt:
		return p.field + " < ?", p.args
	case OpLte:
		return p.field + " <= ?", p.args
	case OpContains:
		return "instr(" + p.field + ", ?) > 0", p.args
	case OpIContains:
		return "instr(lower(" + p.field + "), lower(?)) > 0", p.args
	case OpStartsWith:
		return "substr(" + p.field + ", 1, length(?)) = ?", []any{p.args[0], p.args[0]}
	case OpEndsWith:
		return "substr(" + p.field + ", -length(?)) = ?", []any{p.args[0], p.args[0]}
	case OpIn:
		if len(p.args) == 0 {
			return "1 = 0", nil
		}
		placeholders := strings.Repeat("?, ", len(p.args))
		return p.field + " IN (" + placeholders[:len(placeholders)-2] + ")", p.args
	default:
		return "1 = 0", nil
	}
}
