package orm

import (
	"fmt"
	"sort"
	"strings"
)

// Query is an immutable accumulated filter/exclude/order/limit state.
// Every chaining call returns a new Query; the receiver is never mutated, so
// a base query can be branched and reused from any number of goroutines.
// Building never touches the store; only materializers execute SQL, and they
// re-execute on every call.
type Query struct {
	model    *Model
	where    []predicate
	excludes [][]predicate
	orderBy  string
	desc     bool
	limit    int
	err      error
}

func newQuery(m *Model) *Query {
	return &Query{model: m, limit: -1}
}

// clone copies the query with room for one appended element per slice.
func (q *Query) clone() *Query {
	next := *q
	next.where = append(make([]predicate, 0, len(q.where)+1), q.where...)
	next.excludes = append(make([][]predicate, 0, len(q.excludes)+1), q.excludes...)
	return &next
}

// Err returns the first configuration error captured while building, if any.
// Materializers return it before any store access.
func (q *Query) Err() error { return q.err }

// resolve parses lookups in deterministic key order.
func (q *Query) resolve(lookups Lookups) ([]predicate, error) {
	keys := make([]string, 0, len(lookups))
	for k := range lookups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	preds := make([]predicate, 0, len(keys))
	for _, k := range keys {
		p, err := parseLookup(q.model.schema, k, lookups[k])
		if err != nil {
			return nil, err
		}
		preds = append(preds, p)
	}
	return preds, nil
}

// Filter returns a query narrowed by the conjunction of the given lookups.
// Successive Filter calls also conjoin.
func (q *Query) Filter(lookups Lookups) *Query {
	next := q.clone()
	if next.err != nil {
		return next
	}
	preds, err := next.resolve(lookups)
	if err != nil {
		next.err = err
		return next
	}
	next.where = append(next.where, preds...)
	return next
}

// Exclude returns a query that drops rows matching the conjunction of the
// given lookups. The conjunction is negated as a unit.
func (q *Query) Exclude(lookups Lookups) *Query {
	next := q.clone()
	if next.err != nil {
		return next
	}
	preds, err := next.resolve(lookups)
	if err != nil {
		next.err = err
		return next
	}
	next.excludes = append(next.excludes, preds)
	return next
}

// OrderBy returns a query ordered by field, ascending unless descending.
func (q *Query) OrderBy(field string, descending bool) *Query {
	next := q.clone()
	if next.err != nil {
		return next
	}
	if _, ok := next.model.schema.Field(field); !ok {
		next.err = fmt.Errorf("%w: %s.%s", ErrUnknownField, next.model.schema.table, field)
		return next
	}
	next.orderBy = field
	next.desc = descending
	return next
}

// Limit returns a query capped at n rows. Negative n removes the cap.
func (q *Query) Limit(n int) *Query {
	next := q.clone()
	if n < 0 {
		n = -1
	}
	next.limit = n
	return next
}

// whereClause renders the WHERE fragment and its bound parameters.
func (q *Query) whereClause() (string, []any) {
	var parts []string
	var args []any
	for _, p := range q.where {
		frag, a := p.fragment()
		parts = append(parts, frag)
		args = append(args, a...)
	}
	for _, group := range q.excludes {
		sub := make([]string, 0, len(group))
		for _, p := range group {
			frag, a := p.fragment()
			sub = append(sub, frag)
			args = append(args, a...)
		}
		parts = append(parts, "NOT ("+strings.Join(sub, " AND ")+")")
	}
	if len(parts) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(parts, " AND "), args
}

// tailClause renders ORDER BY and LIMIT.
func (q *Query) tailClause() (string, []any) {
	var tail string
	var args []any
	if q.orderBy != "" {
		dir := "ASC"
		if q.desc {
			dir = "DESC"
		}
		tail += " ORDER BY " + q.orderBy + " " + dir
	}
	if q.limit >= 0 {
		tail += " LIMIT ?"
		args = append(args, q.limit)
	}
	return tail, args
}

// All materializes the query as instances in declaration field order.
func (q *Query) All() ([]*Instance, error) {
	if q.err != nil {
		return nil, q.err
	}
	where, args := q.whereClause()
	tail, tailArgs := q.tailClause()
	stmt := "SELECT " + q.model.schema.columnList() + " FROM " + q.model.schema.table + where + tail
	args = append(args, tailArgs...)

	conn, err := q.model.db.reader()
	if err != nil {
		return nil, err
	}
	rows, err := conn.Query(stmt, args...)
	if err != nil {
		return nil, classifyStoreErr(err)
	}
	defer rows.Close()

	var results []*Instance
	for rows.Next() {
		in, err := q.model.scanInstance(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, in)
	}
	if results == nil {
		results = []*Instance{}
	}
	return results, classifyStoreErr(rows.Err())
}

// Count returns the number of matching rows without hydrating them.
func (q *Query) Count() (int64, error) {
	if q.err != nil {
		return 0, q.err
	}
	where, args := q.whereClause()
	stmt := "SELECT COUNT(*) FROM " + q.model.schema.table + where
	if q.limit >= 0 {
		stmt = "SELECT COUNT(*) FROM (SELECT 1 FROM " + q.model.schema.table + where + " LIMIT ?)"
		args = append(args, q.limit)
	}

	conn, err := q.model.db.reader()
	if err != nil {
		return 0, err
	}
	var n int64
	if err := conn.QueryRow(stmt, args...).Scan(&n); err != nil {
		return 0, classifyStoreErr(err)
	}
	return n, nil
}

// Exists reports whether any row matches, short-circuiting after one row.
func (q *Query) Exists() (bool, error) {
	if q.err != nil {
		return false, q.err
	}
	where, args := q.whereClause()
	stmt := "SELECT 1 FROM " + q.model.schema.table + where + " LIMIT 1"

	conn, err := q.model.db.reader()
	if err != nil {
		return false, err
	}
	var one int
	err = conn.QueryRow(stmt, args...).Scan(&one)
	if err == nil {
		return true, nil
	}
	if isNoRows(err) {
		return false, nil
	}
	return false, classifyStoreErr(err)
}

// First returns the first matching instance, or nil when nothing matches.
// The absent result is a plain nil, not an error; callers branch on it.
func (q *Query) First() (*Instance, error) {
	results, err := q.Limit(1).All()
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}
	return results[0], nil
}

// Get returns the single matching instance. Zero matches yield ErrNotFound;
// more than one is a programming error and yields ErrMultipleResults.
func (q *Query) Get() (*Instance, error) {
	results, err := q.Limit(2).All()
	if err != nil {
		return nil, err
	}
	switch len(results) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return results[0], nil
	default:
		return nil, ErrMultipleResults
	}
}
