// Package sqlite implements the repository interfaces on an embedded SQLite
// database (modernc.org/sqlite, pure Go, no CGo).
//
// Every collection is a table of JSON documents:
//
//	CREATE TABLE users (id TEXT PRIMARY KEY, doc TEXT NOT NULL)
//
// Secondary indexes are expression indexes over json_extract(doc, ...), so
// the schema stays a declarative map (see schema.go) instead of one
// hand-written table per entity.
//
// The pattern for a caller is:
//  1. conn := sqlite.Open(path, sqlite.DefaultSchema)
//  2. factory := sqlite.NewFactory(conn, logger)
//  3. users, err := factory.Users(ctx)  → opens and upgrades on first use
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sakif/newsdesk/internal/repository"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

const (
	driverName = "sqlite"

	// DefaultOpenTimeout bounds a single initialization attempt.
	DefaultOpenTimeout = 10 * time.Second

	// MemoryPath opens a private in-memory database.
	MemoryPath = ":memory:"
)

// Conn owns the single database handle of the process. It is safe for
// concurrent use; the handle is opened lazily by Initialize.
type Conn struct {
	path    string
	schema  Schema
	driver  string
	timeout time.Duration
	logger  *slog.Logger

	group singleflight.Group

	mu    sync.Mutex
	db    *sql.DB
	epoch uint64 // bumped by Close; an attempt from an older epoch is discarded
}

// Option configures a Conn.
type Option func(*Conn)

// WithLogger sets the logger used for lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Conn) { c.logger = logger }
}

// WithOpenTimeout bounds how long one initialization attempt may take.
func WithOpenTimeout(d time.Duration) Option {
	return func(c *Conn) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithDriver overrides the database/sql driver name.
func WithDriver(name string) Option {
	return func(c *Conn) { c.driver = name }
}

// Open returns a manager for the database at path. Nothing is opened until
// the first Initialize or Database call.
func Open(path string, schema Schema, opts ...Option) *Conn {
	c := &Conn{
		path:    path,
		schema:  schema,
		driver:  driverName,
		timeout: DefaultOpenTimeout,
		logger:  slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Schema returns the schema the connection was opened with.
func (c *Conn) Schema() Schema { return c.schema }

// Initialize opens the database and brings the schema up to date. It is
// idempotent: concurrent callers share one attempt, and once it succeeds
// every call returns the same handle. A failed attempt is not remembered,
// so a later call tries again.
func (c *Conn) Initialize(ctx context.Context) (*sql.DB, error) {
	c.mu.Lock()
	if c.db != nil {
		db := c.db
		c.mu.Unlock()
		return db, nil
	}
	epoch := c.epoch
	c.mu.Unlock()

	ch := c.group.DoChan(fmt.Sprintf("initialize/%d", epoch), func() (any, error) {
		if db := c.current(); db != nil {
			return db, nil
		}
		// The attempt belongs to every waiter, not to whoever arrived first,
		// so it is detached from the caller's cancellation.
		openCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()

		db, err := c.openWithTimeout(openCtx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.epoch != epoch {
			c.mu.Unlock()
			db.Close()
			return nil, connectionFailed("Connection.initialize", "connection closed during initialization", nil)
		}
		c.db = db
		c.mu.Unlock()
		return db, nil
	})

	select {
	case <-ctx.Done():
		return nil, connectionFailed("Connection.initialize", "gave up waiting for database", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*sql.DB), nil
	}
}

// Database returns the open handle, initializing it first if needed.
func (c *Conn) Database(ctx context.Context) (*sql.DB, error) {
	return c.Initialize(ctx)
}

// Close closes the handle. An attempt still in flight is discarded when it
// finishes. A later Initialize opens a fresh one.
func (c *Conn) Close() error {
	c.mu.Lock()
	db := c.db
	c.db = nil
	c.epoch++
	c.mu.Unlock()

	if db == nil {
		return nil
	}
	if err := db.Close(); err != nil {
		return fmt.Errorf("sqlite: closing database: %w", err)
	}
	c.logger.Info("database closed", slog.String("path", c.path))
	return nil
}

// WithTx runs fn inside one read-write transaction. The transaction commits
// if fn returns nil and rolls back otherwise.
func (c *Conn) WithTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	db, err := c.Database(ctx)
	if err != nil {
		return err
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return Classify(op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return Classify(op, err)
	}
	if err := tx.Commit(); err != nil {
		return Classify(op, err)
	}
	return nil
}

// DeleteDatabase removes the database file at path together with its WAL
// companions. Missing files are not an error. Close any Conn on path first.
func DeleteDatabase(path string) error {
	if path == "" || path == MemoryPath {
		return nil
	}
	for _, name := range []string{path, path + "-wal", path + "-shm"} {
		if err := os.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("sqlite: deleting %s: %w", name, err)
		}
	}
	return nil
}

func (c *Conn) current() *sql.DB {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db
}

type openResult struct {
	db  *sql.DB
	err error
}

// openWithTimeout gives up on a hung open when ctx expires. The abandoned
// attempt is reaped in the background and its handle closed.
func (c *Conn) openWithTimeout(ctx context.Context) (*sql.DB, error) {
	done := make(chan openResult, 1)
	go func() {
		db, err := c.open(ctx)
		done <- openResult{db: db, err: err}
	}()

	select {
	case r := <-done:
		return r.db, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.db != nil {
				r.db.Close()
			}
		}()
		c.logger.Error("database open timed out",
			slog.String("path", c.path),
			slog.Duration("timeout", c.timeout),
		)
		return nil, connectionFailed("Connection.initialize", "database open timed out", ctx.Err())
	}
}

func (c *Conn) open(ctx context.Context) (*sql.DB, error) {
	const op = "Connection.initialize"

	if err := c.schema.validate(); err != nil {
		return nil, connectionFailed(op, "invalid schema", err)
	}

	// Capability check: without the driver there is nothing to retry.
	if !slices.Contains(sql.Drivers(), c.driver) {
		return nil, connectionFailed(op,
			fmt.Sprintf("embedded database driver %q is not available", c.driver), nil)
	}

	db, err := sql.Open(c.driver, c.path)
	if err != nil {
		return nil, connectionFailed(op, "opening database", err)
	}

	// One connection: SQLite serializes writers anyway, and ":memory:" is
	// private to the connection that created it.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, connectionFailed(op, "pinging database", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, connectionFailed(op, p, err)
		}
	}

	if err := upgrade(ctx, db, c.schema, c.logger); err != nil {
		db.Close()
		return nil, err
	}

	c.logger.Info("database opened",
		slog.String("path", c.path),
		slog.Int64("version", c.schema.Version),
	)
	return db, nil
}

func connectionFailed(op, message string, cause error) *repository.StorageError {
	return &repository.StorageError{
		Kind:    repository.ErrConnectionFailed,
		Op:      op,
		Message: fmt.Sprintf("Database connection failed during %s: %s", op, message),
		Cause:   cause,
	}
}
