package orm

import (
	"fmt"
	"strings"
)

// Schema is the derived table shape of a registered model: table name,
// ordered field descriptors, and the primary key position. Schemas are
// immutable; one exists per model type for the lifetime of the DB it was
// registered against.
type Schema struct {
	table  string
	fields []Field
	pk     int
	index  map[string]int
}

// newSchema validates a declaration and derives the schema. When no primary
// key is declared an integer "id" field is prepended, assigned by the store.
func newSchema(table string, declared []Field) (*Schema, error) {
	if !validIdent(table) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}

	fields := make([]Field, len(declared))
	copy(fields, declared)

	pk := -1
	for i, f := range fields {
		if err := f.validate(); err != nil {
			return nil, err
		}
		if f.PrimaryKey {
			if pk >= 0 {
				return nil, fmt.Errorf("%w: %q and %q", ErrDuplicatePrimaryKey, fields[pk].Name, f.Name)
			}
			pk = i
		}
	}
	if pk < 0 {
		fields = append([]Field{{Name: "id", Kind: KindInteger, PrimaryKey: true}}, fields...)
		pk = 0
	}

	index := make(map[string]int, len(fields))
	for i, f := range fields {
		if _, dup := index[f.Name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateField, f.Name)
		}
		index[f.Name] = i
	}

	return &Schema{table: table, fields: fields, pk: pk, index: index}, nil
}

// Table returns the backing table name.
func (s *Schema) Table() string { return s.table }

// Fields returns the field descriptors in declaration order.
func (s *Schema) Fields() []Field {
	out := make([]Field, len(s.fields))
	copy(out, s.fields)
	return out
}

// PrimaryKey returns the primary key field descriptor.
func (s *Schema) PrimaryKey() Field { return s.fields[s.pk] }

// Field returns the descriptor for name.
func (s *Schema) Field(name string) (Field, bool) {
	i, ok := s.index[name]
	if !ok {
		return Field{}, false
	}
	return s.fields[i], true
}

// columnList returns the comma-joined column names in declaration order.
func (s *Schema) columnList() string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return strings.Join(names, ", ")
}

// createDDL renders the CREATE TABLE statement. resolve maps a referenced
// table name to its primary key for foreign key column typing; unregistered
// references fall back to integer keys.
func (s *Schema) createDDL(resolve func(table string) (Field, bool)) string {
	defs := make([]string, len(s.fields))
	for i, f := range s.fields {
		target, refKind, refPK := "", KindInteger, "id"
		if f.Kind == KindForeignKey {
			target = f.References
			if target == RefSelf {
				target = s.table
			}
			if pk, ok := resolve(target); ok {
				refKind, refPK = pk.Kind, pk.Name
			}
		}
		defs[i] = f.columnDef(target, refPK, refKind)
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n    %s\n);",
		s.table, strings.Join(defs, ",\n    "))
}
