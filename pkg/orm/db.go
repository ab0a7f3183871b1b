package orm

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultBusyTimeout bounds how long an operation waits for the write gate.
const DefaultBusyTimeout = 5 * time.Second

// Config holds the parameters for Open.
type Config struct {
	// Path is the store file, created if absent.
	Path string
	// BusyTimeout bounds write gate acquisition; zero means DefaultBusyTimeout.
	BusyTimeout time.Duration
}

// Validate checks that the Config is well-formed.
func (c Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("store path must not be empty")
	}
	if c.BusyTimeout < 0 {
		return fmt.Errorf("busy timeout must not be negative")
	}
	return nil
}

// DB owns the single physical connection to the store, the write gate, and
// the schema registry. One DB is created per store file and passed explicitly
// to every component needing storage access; there is no package-level state.
type DB struct {
	conn    *sql.DB
	gate    chan struct{}
	timeout time.Duration

	mu      sync.RWMutex
	closed  bool
	schemas map[string]*Schema
	models  map[string]*Model
}

// Open opens or creates the store file and returns a DB ready for Register.
func Open(config Config) (*DB, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if dir := filepath.Dir(config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	timeout := config.BusyTimeout
	if timeout == 0 {
		timeout = DefaultBusyTimeout
	}

	conn, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// One physical connection; SQLite restricts concurrent writers and the
	// write gate already provides the serialized order the engine promises.
	conn.SetMaxOpenConns(1)
	if _, err := conn.Exec(busyPragma(timeout)); err != nil {
		conn.Close()
		return nil, classifyStoreErr(err)
	}
	return &DB{
		conn:    conn,
		gate:    make(chan struct{}, 1),
		timeout: timeout,
		schemas: make(map[string]*Schema),
		models:  make(map[string]*Model),
	}, nil
}

// busyPragma renders the driver-side lock wait bound from the configured
// gate timeout so the two bounds stay consistent.
func busyPragma(timeout time.Duration) string {
	return fmt.Sprintf("PRAGMA busy_timeout = %d", timeout.Milliseconds())
}

// Close releases the physical connection. Idempotent; operations after Close
// return ErrClosed.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	return db.conn.Close()
}

// acquireWrite takes the write gate, failing with ErrBusy when the gate
// cannot be acquired within the configured timeout. The returned release
// must be called on every exit path.
func (db *DB) acquireWrite() (release func(), err error) {
	db.mu.RLock()
	closed := db.closed
	db.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	timer := time.NewTimer(db.timeout)
	defer timer.Stop()
	select {
	case db.gate <- struct{}{}:
		return func() { <-db.gate }, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: write gate held longer than %v", ErrBusy, db.timeout)
	}
}

// reader returns the connection for read statements. Reads do not take the
// write gate; statement-level atomicity in the store keeps them from
// observing a partial write.
func (db *DB) reader() (*sql.DB, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.closed {
		return nil, ErrClosed
	}
	return db.conn, nil
}

// Register derives the schema for a model declaration, creates the backing
// table if absent, and returns the model handle. Register is idempotent per
// table and safe to call concurrently; only one caller executes the DDL.
func (db *DB) Register(table string, fields []Field) (*Model, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil, ErrClosed
	}
	if m, ok := db.models[table]; ok {
		return m, nil
	}

	schema, err := newSchema(table, fields)
	if err != nil {
		return nil, err
	}
	ddl := schema.createDDL(func(ref string) (Field, bool) {
		if ref == table {
			return schema.PrimaryKey(), true
		}
		if s, ok := db.schemas[ref]; ok {
			return s.PrimaryKey(), true
		}
		return Field{}, false
	})

	// Table creation goes through the gate like any other write so DDL never
	// interleaves with concurrent inserts.
	timer := time.NewTimer(db.timeout)
	defer timer.Stop()
	select {
	case db.gate <- struct{}{}:
	case <-timer.C:
		return nil, fmt.Errorf("%w: write gate held longer than %v", ErrBusy, db.timeout)
	}
	_, err = db.conn.Exec(ddl)
	<-db.gate
	if err != nil {
		return nil, fmt.Errorf("creating table %s: %w", table, classifyStoreErr(err))
	}

	m := &Model{db: db, schema: schema}
	db.schemas[table] = schema
	db.models[table] = m
	return m, nil
}

// SchemaFor returns the registered schema for table, or ErrNotRegistered.
func (db *DB) SchemaFor(table string) (*Schema, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	s, ok := db.schemas[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, table)
	}
	return s, nil
}

// Model returns the registered model handle for table, or ErrNotRegistered.
func (db *DB) Model(table string) (*Model, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()
	m, ok := db.models[table]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotRegistered, table)
	}
	return m, nil
}
