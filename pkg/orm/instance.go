package orm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Instance is one row of a model: a mapping from field name to current value
// plus the schema it belongs to. An instance is transient until its first
// successful Save or until hydrated from the store, and persisted afterwards.
type Instance struct {
	model  *Model
	schema *Schema
	values map[string]any
	saved  bool
}

// Get returns the current value of name, nil when the field is unknown or
// NULL. Values use the semantic types: string, int64, bool, time.Time.
func (in *Instance) Get(name string) any {
	return in.values[name]
}

// Set assigns a new value to name. The value is validated against the field
// descriptor; the store is not touched until Save.
func (in *Instance) Set(name string, value any) error {
	f, ok := in.schema.Field(name)
	if !ok {
		return fmt.Errorf("%w: %s.%s", ErrUnknownField, in.schema.table, name)
	}
	if _, err := f.encode(value); err != nil {
		return err
	}
	in.values[name] = value
	return nil
}

// String returns the value of name as a string, or "" when absent.
func (in *Instance) String(name string) string {
	s, _ := in.values[name].(string)
	return s
}

// Int returns the value of name as an int64, or 0 when absent.
func (in *Instance) Int(name string) int64 {
	n, _ := toInt64(in.values[name])
	return n
}

// Bool returns the value of name as a bool, or false when absent.
func (in *Instance) Bool(name string) bool {
	b, _ := in.values[name].(bool)
	return b
}

// Time returns the value of name as a time.Time, or the zero time when absent.
func (in *Instance) Time(name string) time.Time {
	t, _ := in.values[name].(time.Time)
	return t
}

// PrimaryKey returns the primary key value, nil while transient.
func (in *Instance) PrimaryKey() any {
	return in.values[in.schema.PrimaryKey().Name]
}

// Saved reports whether the instance is bound to a stored row.
func (in *Instance) Saved() bool { return in.saved }

// Save persists the instance: an insert while transient, binding the
// assigned primary key back onto the instance, or an update keyed by primary
// key once persisted. A persisted update matching zero rows returns
// ErrRowVanished instead of silently succeeding.
func (in *Instance) Save() error {
	if in.saved {
		return in.update()
	}
	return in.insert()
}

func (in *Instance) insert() error {
	now := time.Now()
	pk := in.schema.PrimaryKey()

	var cols []string
	var args []any
	for _, f := range in.schema.fields {
		v, present := in.values[f.Name]
		switch {
		case f.AutoNowAdd || f.AutoNow:
			v = now
			in.values[f.Name] = now
		case !present || v == nil:
			if f.Default != nil {
				v = f.Default
				in.values[f.Name] = v
			}
		}
		if f.PrimaryKey {
			if f.Kind == KindInteger && v == nil {
				continue // assigned by the store
			}
			if f.Kind == KindText && (v == nil || v == "") {
				v = uuid.Must(uuid.NewV7()).String()
				in.values[f.Name] = v
			}
		}
		if v == nil && !f.Nullable {
			return fmt.Errorf("%w: field %q is not nullable and has no value", ErrConstraint, f.Name)
		}
		enc, err := f.encode(v)
		if err != nil {
			return err
		}
		cols = append(cols, f.Name)
		args = append(args, enc)
	}

	stmt := "INSERT INTO " + in.schema.table + " (" + strings.Join(cols, ", ") + ") VALUES (" + placeholders(len(cols)) + ")"

	release, err := in.model.db.acquireWrite()
	if err != nil {
		return err
	}
	defer release()

	res, err := in.model.db.conn.Exec(stmt, args...)
	if err != nil {
		return classifyStoreErr(err)
	}
	if pk.Kind == KindInteger && in.values[pk.Name] == nil {
		id, err := res.LastInsertId()
		if err != nil {
			return classifyStoreErr(err)
		}
		in.values[pk.Name] = id
	}
	in.saved = true
	return nil
}

func (in *Instance) update() error {
	pk := in.schema.PrimaryKey()
	now := time.Now()

	var sets []string
	var args []any
	for _, f := range in.schema.fields {
		if f.PrimaryKey {
			continue
		}
		if f.AutoNow {
			in.values[f.Name] = now
		}
		enc, err := f.encode(in.values[f.Name])
		if err != nil {
			return err
		}
		sets = append(sets, f.Name+" = ?")
		args = append(args, enc)
	}
	pkEnc, err := pk.encode(in.values[pk.Name])
	if err != nil {
		return err
	}
	args = append(args, pkEnc)

	stmt := "UPDATE " + in.schema.table + " SET " + strings.Join(sets, ", ") + " WHERE " + pk.Name + " = ?"

	release, err := in.model.db.acquireWrite()
	if err != nil {
		return err
	}
	defer release()

	res, err := in.model.db.conn.Exec(stmt, args...)
	if err != nil {
		return classifyStoreErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return classifyStoreErr(err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s primary key %v", ErrRowVanished, in.schema.table, in.values[pk.Name])
	}
	return nil
}

// Related resolves a foreign key field to its referenced instance with an
// explicit secondary lookup. A NULL reference returns nil without error; the
// referenced model must be registered.
func (in *Instance) Related(field string) (*Instance, error) {
	f, ok := in.schema.Field(field)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownField, in.schema.table, field)
	}
	if f.Kind != KindForeignKey {
		return nil, fmt.Errorf("%w: %q is not a foreign key", ErrInvalidField, field)
	}
	v := in.values[field]
	if v == nil {
		return nil, nil
	}
	target := f.References
	if target == RefSelf {
		target = in.schema.table
	}
	m, err := in.model.db.Model(target)
	if err != nil {
		return nil, err
	}
	return m.Objects().Filter(Lookups{m.schema.PrimaryKey().Name: v}).Get()
}

// ToMap copies all field values into a map keyed by field name. Use
// MarshalJSON when declaration order matters in the output.
func (in *Instance) ToMap() map[string]any {
	out := make(map[string]any, len(in.values))
	for k, v := range in.values {
		out[k] = v
	}
	return out
}

// MarshalJSON serializes field values in declaration order.
func (in *Instance) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range in.schema.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(in.values[f.Name])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
