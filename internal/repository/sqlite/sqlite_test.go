package sqlite

import (
	"context"
	"database/sql"
	sqldriver "database/sql/driver"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	moderncsqlite "modernc.org/sqlite"

	"github.com/sakif/newsdesk/internal/repository"
)

// fixedTime survives a JSON round trip unchanged, which keeps deep-equality
// assertions honest.
var fixedTime = time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestConn opens a fresh in-memory database with the default schema.
func newTestConn(t *testing.T) *Conn {
	t.Helper()
	conn := Open(MemoryPath, DefaultSchema, WithLogger(testLogger()))
	if _, err := conn.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// =========================================================================
// INITIALIZE TESTS
// =========================================================================

func TestInitializeIsShared(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	conn := Open(path, DefaultSchema, WithLogger(testLogger()))
	t.Cleanup(func() { conn.Close() })

	const callers = 16
	var (
		wg  sync.WaitGroup
		mu  sync.Mutex
		dbs = make(map[*sql.DB]int)
	)
	for range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			db, err := conn.Initialize(context.Background())
			assert.NoError(t, err)
			mu.Lock()
			dbs[db]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, dbs, 1, "every caller should get the same handle")

	again, err := conn.Database(context.Background())
	require.NoError(t, err)
	assert.Equal(t, callers, dbs[again])
}

func TestInitializeMissingDriver(t *testing.T) {
	conn := Open(MemoryPath, DefaultSchema, WithLogger(testLogger()), WithDriver("no-such-driver"))

	_, err := conn.Initialize(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrConnectionFailed)

	// Dependent operations fail the same way.
	_, err = NewUserRepository(conn).FindAll(context.Background())
	assert.ErrorIs(t, err, repository.ErrConnectionFailed)
}

func TestInitializeRetriesAfterFailure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "later")
	conn := Open(filepath.Join(dir, "app.db"), DefaultSchema, WithLogger(testLogger()))
	t.Cleanup(func() { conn.Close() })

	_, err := conn.Initialize(context.Background())
	require.Error(t, err, "directory does not exist yet")
	assert.ErrorIs(t, err, repository.ErrConnectionFailed)

	require.NoError(t, os.MkdirAll(dir, 0o755))

	_, err = conn.Initialize(context.Background())
	assert.NoError(t, err, "a failed attempt must not be memoized")
}

func TestInitializeTimeout(t *testing.T) {
	conn := Open(filepath.Join(t.TempDir(), "slow.db"), DefaultSchema,
		WithLogger(testLogger()), WithOpenTimeout(time.Nanosecond))
	t.Cleanup(func() { conn.Close() })

	_, err := conn.Initialize(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrConnectionFailed)
}

func TestInitializeCallerCancelled(t *testing.T) {
	conn := Open(MemoryPath, DefaultSchema, WithLogger(testLogger()))
	t.Cleanup(func() { conn.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Either the open wins the race or the caller gives up; both are fine,
	// but a cancelled caller must never see a half-open handle.
	db, err := conn.Initialize(ctx)
	if err != nil {
		assert.ErrorIs(t, err, repository.ErrConnectionFailed)
		assert.Nil(t, db)
	}
}

func TestCloseAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")
	conn := Open(path, DefaultSchema, WithLogger(testLogger()))
	users := NewUserRepository(conn)
	ctx := context.Background()

	_, err := users.Create(ctx, testStoredUser("u1", "one@example.com"))
	require.NoError(t, err)
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close(), "closing twice is harmless")

	got, err := users.FindByID(ctx, "u1")
	require.NoError(t, err, "the next call reopens the database")
	require.NotNil(t, got)
	assert.Equal(t, "one@example.com", got.Email)
	require.NoError(t, conn.Close())
}

// gatedDriver holds its first Open until release is closed, so a test can
// act while an initialization is in flight.
type gatedDriver struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (d *gatedDriver) Open(name string) (sqldriver.Conn, error) {
	d.once.Do(func() {
		close(d.entered)
		<-d.release
	})
	return (&moderncsqlite.Driver{}).Open(name)
}

func TestCloseDuringInitialize(t *testing.T) {
	gate := &gatedDriver{entered: make(chan struct{}), release: make(chan struct{})}
	sql.Register("sqlite-gated-close", gate)

	conn := Open(MemoryPath, DefaultSchema, WithLogger(testLogger()), WithDriver("sqlite-gated-close"))
	t.Cleanup(func() { conn.Close() })
	ctx := context.Background()

	errc := make(chan error, 1)
	go func() {
		_, err := conn.Initialize(ctx)
		errc <- err
	}()

	<-gate.entered
	require.NoError(t, conn.Close())
	close(gate.release)

	err := <-errc
	require.Error(t, err, "an attempt that outlived Close must not publish its handle")
	assert.ErrorIs(t, err, repository.ErrConnectionFailed)
	assert.Nil(t, conn.current())

	db, err := conn.Initialize(ctx)
	require.NoError(t, err, "a later call opens a fresh handle")
	assert.NotNil(t, db)
}

// =========================================================================
// SCHEMA VERSION TESTS
// =========================================================================

func TestUpgradeRecreatesCollections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "upgrade.db")
	ctx := context.Background()

	v1 := DefaultSchema
	v1.Version = 1
	conn := Open(path, v1, WithLogger(testLogger()))
	_, err := NewUserRepository(conn).Create(ctx, testStoredUser("u1", "one@example.com"))
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	// Reopening at the same version keeps the data.
	conn = Open(path, v1, WithLogger(testLogger()))
	n, err := NewUserRepository(conn).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.NoError(t, conn.Close())

	// A version bump drops and rebuilds every collection.
	conn = Open(path, DefaultSchema, WithLogger(testLogger()))
	t.Cleanup(func() { conn.Close() })
	n, err = NewUserRepository(conn).Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "schema upgrades are not data-preserving")
}

func TestDowngradeIsVersionError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "downgrade.db")
	ctx := context.Background()

	conn := Open(path, DefaultSchema, WithLogger(testLogger()))
	_, err := conn.Initialize(ctx)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	older := DefaultSchema
	older.Version = 1
	conn = Open(path, older, WithLogger(testLogger()))
	_, err = conn.Initialize(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrVersion)
}

func TestInvalidSchema(t *testing.T) {
	conn := Open(MemoryPath, Schema{Version: 0}, WithLogger(testLogger()))
	_, err := conn.Initialize(context.Background())
	assert.ErrorIs(t, err, repository.ErrConnectionFailed)
}

// =========================================================================
// DELETE DATABASE TESTS
// =========================================================================

func TestDeleteDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gone.db")
	conn := Open(path, DefaultSchema, WithLogger(testLogger()))
	_, err := conn.Initialize(context.Background())
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	require.NoError(t, DeleteDatabase(path))
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist), "database file should be removed")

	assert.NoError(t, DeleteDatabase(path), "deleting a missing database is not an error")
	assert.NoError(t, DeleteDatabase(MemoryPath))
}

// =========================================================================
// TRANSACTION TESTS
// =========================================================================

func TestWithTxRollsBack(t *testing.T) {
	conn := newTestConn(t)
	users := NewUserRepository(conn)
	ctx := context.Background()

	boom := errors.New("boom")
	err := conn.WithTx(ctx, "test.rollback", func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO users (id, doc) VALUES ('u1', '{\"id\":\"u1\",\"email\":\"x@example.com\"}')"); err != nil {
			return err
		}
		return boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	got, err := users.FindByID(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got, "the insert must be rolled back")
}
