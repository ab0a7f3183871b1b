// Package orm maps declared record schemas onto a single-file SQLite store.
// Callers declare models as ordered field descriptor lists, register them
// against a DB, and read or write rows through an immutable query builder
// with a field__suffix lookup grammar. All SQL is parameterized; writes are
// serialized through a gate owned by the DB.
package orm
