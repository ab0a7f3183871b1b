package orm

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Model is the handle for one registered schema. All CRUD routes through the
// query builder and the DB's write gate.
type Model struct {
	db     *DB
	schema *Schema
}

// Schema returns the model's derived schema.
func (m *Model) Schema() *Schema { return m.schema }

// Objects returns a fresh unfiltered query over the model's table.
func (m *Model) Objects() *Query { return newQuery(m) }

// Create validates the given field values, applies declared defaults and auto
// timestamps, inserts the row, and returns the persisted instance with its
// primary key populated. A constraint rejection returns ErrConstraint and no
// instance.
func (m *Model) Create(fields map[string]any) (*Instance, error) {
	in := &Instance{
		model:  m,
		schema: m.schema,
		values: make(map[string]any, len(m.schema.fields)),
	}
	for name, v := range fields {
		if err := in.Set(name, v); err != nil {
			return nil, err
		}
	}
	if err := in.Save(); err != nil {
		return nil, err
	}
	return in, nil
}

// Get returns the single instance matching the lookups: ErrNotFound on zero
// matches, ErrMultipleResults on more than one.
func (m *Model) Get(lookups Lookups) (*Instance, error) {
	return m.Objects().Filter(lookups).Get()
}

// All materializes the full unfiltered query set.
func (m *Model) All() ([]*Instance, error) {
	return m.Objects().All()
}

// Count returns the number of rows matching the lookups.
func (m *Model) Count(lookups Lookups) (int64, error) {
	return m.Objects().Filter(lookups).Count()
}

// Exists reports whether any row matches the lookups.
func (m *Model) Exists(lookups Lookups) (bool, error) {
	return m.Objects().Filter(lookups).Exists()
}

// Update applies values to every row matching filters in one statement and
// returns the affected row count. filters uses the same lookup grammar as
// Filter; values are plain field assignments.
func (m *Model) Update(filters Lookups, values map[string]any) (int64, error) {
	q := m.Objects().Filter(filters)
	if q.err != nil {
		return 0, q.err
	}

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var sets []string
	var args []any
	for _, name := range names {
		f, ok := m.schema.Field(name)
		if !ok {
			return 0, fmt.Errorf("%w: %s.%s", ErrUnknownField, m.schema.table, name)
		}
		if f.PrimaryKey {
			return 0, fmt.Errorf("%w: cannot bulk-update primary key %q", ErrInvalidValue, name)
		}
		enc, err := f.encode(values[name])
		if err != nil {
			return 0, err
		}
		sets = append(sets, f.Name+" = ?")
		args = append(args, enc)
	}
	if len(sets) == 0 {
		return 0, nil
	}

	where, whereArgs := q.whereClause()
	stmt := "UPDATE " + m.schema.table + " SET " + strings.Join(sets, ", ") + where
	args = append(args, whereArgs...)

	return m.execWrite(stmt, args)
}

// Delete removes every row matching the lookups and returns the affected
// row count.
func (m *Model) Delete(lookups Lookups) (int64, error) {
	q := m.Objects().Filter(lookups)
	if q.err != nil {
		return 0, q.err
	}
	where, args := q.whereClause()
	stmt := "DELETE FROM " + m.schema.table + where
	return m.execWrite(stmt, args)
}

// execWrite runs one write statement under the gate and returns RowsAffected.
func (m *Model) execWrite(stmt string, args []any) (int64, error) {
	release, err := m.db.acquireWrite()
	if err != nil {
		return 0, err
	}
	defer release()

	res, err := m.db.conn.Exec(stmt, args...)
	if err != nil {
		return 0, classifyStoreErr(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, classifyStoreErr(err)
	}
	return affected, nil
}

// scanInstance hydrates one row, decoding stored primitives back to semantic
// values in declaration order.
func (m *Model) scanInstance(rows *sql.Rows) (*Instance, error) {
	raw := make([]any, len(m.schema.fields))
	ptrs := make([]any, len(raw))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, classifyStoreErr(err)
	}

	values := make(map[string]any, len(raw))
	for i, f := range m.schema.fields {
		v, err := f.decode(raw[i])
		if err != nil {
			return nil, err
		}
		if v != nil {
			values[f.Name] = v
		}
	}
	return &Instance{model: m, schema: m.schema, values: values, saved: true}, nil
}

// placeholders returns n comma-joined parameter markers.
func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	s := strings.Repeat("?, ", n)
	return s[:len(s)-2]
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
