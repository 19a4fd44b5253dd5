package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sakif/newsdesk/internal/repository"
)

// Store is the generic repository over one collection. Specialized
// repositories embed it and add their own queries.
type Store[T repository.Record] struct {
	conn *Conn
	coll Collection
	name string // used in error ops, e.g. "UserRepository.create"
	now  func() time.Time
}

func newStore[T repository.Record](conn *Conn, collection, name string) *Store[T] {
	coll, ok := conn.Schema().Collection(collection)
	if !ok {
		// Unknown collections fail at query time with StoreNotFound.
		coll = Collection{Name: collection, KeyPath: "id"}
	}
	return &Store[T]{conn: conn, coll: coll, name: name, now: time.Now}
}

// NewStore returns a generic repository over collection.
func NewStore[T repository.Record](conn *Conn, collection string) *Store[T] {
	return newStore[T](conn, collection, "Repository("+collection+")")
}

func (s *Store[T]) op(method string) string {
	return s.name + "." + method
}

// Create inserts item. It never overwrites: an existing key fails with
// repository.ErrDuplicateKey.
func (s *Store[T]) Create(ctx context.Context, item T) (string, error) {
	op := s.op("create")
	id := item.Key()
	if id == "" {
		return "", &repository.StorageError{
			Kind:    repository.ErrUnknown,
			Op:      op,
			Message: fmt.Sprintf("Error in %s: record has no key", op),
		}
	}

	db, err := s.conn.Database(ctx)
	if err != nil {
		return "", err
	}
	doc, err := json.Marshal(item)
	if err != nil {
		return "", Classify(op, fmt.Errorf("encoding record: %w", err))
	}

	_, err = db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (id, doc) VALUES (?, ?)", s.coll.Name),
		id, string(doc),
	)
	if err != nil {
		return "", Classify(op, err)
	}
	return id, nil
}

// FindByID returns the record or (nil, nil) if there is none.
func (s *Store[T]) FindByID(ctx context.Context, id string) (*T, error) {
	op := s.op("findById")
	db, err := s.conn.Database(ctx)
	if err != nil {
		return nil, err
	}

	var doc string
	err = db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT doc FROM %s WHERE id = ?", s.coll.Name), id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, Classify(op, err)
	}

	item, err := decode[T](doc)
	if err != nil {
		return nil, Classify(op, err)
	}
	return &item, nil
}

// FindAll returns every record. Order is unspecified.
func (s *Store[T]) FindAll(ctx context.Context) ([]T, error) {
	return s.query(ctx, s.op("findAll"), fmt.Sprintf("SELECT doc FROM %s", s.coll.Name))
}

// Update merges patch over the stored record and persists the result. The
// read and the write share one transaction. The key cannot change.
func (s *Store[T]) Update(ctx context.Context, id string, patch repository.Patch[T]) (*T, error) {
	op := s.op("update")
	var merged T
	err := s.conn.WithTx(ctx, op, func(tx *sql.Tx) error {
		var err error
		merged, err = s.updateTx(ctx, tx, op, id, patch)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &merged, nil
}

func (s *Store[T]) updateTx(ctx context.Context, tx *sql.Tx, op, id string, patch repository.Patch[T]) (T, error) {
	var zero T

	var doc string
	err := tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT doc FROM %s WHERE id = ?", s.coll.Name), id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return zero, itemNotFound(op, id)
	}
	if err != nil {
		return zero, err
	}

	item, err := decode[T](doc)
	if err != nil {
		return zero, err
	}
	patch.Apply(&item)
	if item.Key() != id {
		return zero, &repository.StorageError{
			Kind:    repository.ErrUnknown,
			Op:      op,
			Message: fmt.Sprintf("Error in %s: update must not change the key %s", op, id),
		}
	}

	updated, err := json.Marshal(item)
	if err != nil {
		return zero, fmt.Errorf("encoding record: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		fmt.Sprintf("UPDATE %s SET doc = ? WHERE id = ?", s.coll.Name),
		string(updated), id,
	); err != nil {
		return zero, err
	}
	return item, nil
}

// Delete removes the record. Deleting an unknown id is not an error.
func (s *Store[T]) Delete(ctx context.Context, id string) error {
	_, err := s.exec(ctx, s.op("delete"),
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.coll.Name), id)
	return err
}

// Clear removes every record in the collection.
func (s *Store[T]) Clear(ctx context.Context) error {
	_, err := s.exec(ctx, s.op("clear"), fmt.Sprintf("DELETE FROM %s", s.coll.Name))
	return err
}

func (s *Store[T]) Count(ctx context.Context) (int, error) {
	return s.count(ctx, s.op("count"), fmt.Sprintf("SELECT COUNT(*) FROM %s", s.coll.Name))
}

// =========================================================================
// Index helpers for the specialized repositories
// =========================================================================

// index resolves a queryable index. ScanOnly indexes are refused so that
// a lookup on such a field cannot silently depend on it.
func (s *Store[T]) index(name string) (Index, error) {
	ix, ok := s.coll.Index(name)
	if !ok {
		return Index{}, fmt.Errorf("collection %s has no index %q", s.coll.Name, name)
	}
	if ix.Policy == ScanOnly {
		return Index{}, fmt.Errorf("index %s.%s is scan-only", s.coll.Name, name)
	}
	return ix, nil
}

// findBy returns every record whose indexed field equals value.
func (s *Store[T]) findBy(ctx context.Context, op, indexName string, value any) ([]T, error) {
	ix, err := s.index(indexName)
	if err != nil {
		return nil, Classify(op, err)
	}
	return s.query(ctx, op,
		fmt.Sprintf("SELECT doc FROM %s WHERE %s = %s", s.coll.Name, ix.expr(), ix.arg()),
		value,
	)
}

// findOneBy is findBy for unique indexes.
func (s *Store[T]) findOneBy(ctx context.Context, op, indexName string, value any) (*T, error) {
	items, err := s.findBy(ctx, op, indexName, value)
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return &items[0], nil
}

func (s *Store[T]) countBy(ctx context.Context, op, indexName string, value any) (int, error) {
	ix, err := s.index(indexName)
	if err != nil {
		return 0, Classify(op, err)
	}
	return s.count(ctx, op,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s = %s", s.coll.Name, ix.expr(), ix.arg()),
		value,
	)
}

func (s *Store[T]) deleteBy(ctx context.Context, op, indexName string, value any) (int, error) {
	ix, err := s.index(indexName)
	if err != nil {
		return 0, Classify(op, err)
	}
	return s.exec(ctx, op,
		fmt.Sprintf("DELETE FROM %s WHERE %s = %s", s.coll.Name, ix.expr(), ix.arg()),
		value,
	)
}

// findAfter returns records whose time index is strictly after t.
func (s *Store[T]) findAfter(ctx context.Context, op, indexName string, t time.Time) ([]T, error) {
	ix, err := s.index(indexName)
	if err != nil {
		return nil, Classify(op, err)
	}
	return s.query(ctx, op,
		fmt.Sprintf("SELECT doc FROM %s WHERE %s > %s", s.coll.Name, ix.expr(), ix.arg()),
		timeArg(t),
	)
}

// deleteUpTo sweeps every record whose time index is at or before t and
// returns how many were removed.
func (s *Store[T]) deleteUpTo(ctx context.Context, op, indexName string, t time.Time) (int, error) {
	ix, err := s.index(indexName)
	if err != nil {
		return 0, Classify(op, err)
	}
	return s.exec(ctx, op,
		fmt.Sprintf("DELETE FROM %s WHERE %s <= %s", s.coll.Name, ix.expr(), ix.arg()),
		timeArg(t),
	)
}

// put writes doc under id, replacing any existing document.
func (s *Store[T]) put(ctx context.Context, op, id string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return Classify(op, fmt.Errorf("encoding record: %w", err))
	}
	_, err = s.exec(ctx, op,
		fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET doc = excluded.doc`, s.coll.Name),
		id, string(raw),
	)
	return err
}

// getRaw decodes the document under id into dst, which need not be T.
// It reports whether the document exists.
func (s *Store[T]) getRaw(ctx context.Context, op, id string, dst any) (bool, error) {
	db, err := s.conn.Database(ctx)
	if err != nil {
		return false, err
	}
	var doc string
	err = db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT doc FROM %s WHERE id = ?", s.coll.Name), id,
	).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, Classify(op, err)
	}
	if err := json.Unmarshal([]byte(doc), dst); err != nil {
		return false, Classify(op, fmt.Errorf("decoding record %s: %w", id, err))
	}
	return true, nil
}

func (s *Store[T]) query(ctx context.Context, op, query string, args ...any) ([]T, error) {
	db, err := s.conn.Database(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Classify(op, err)
	}
	defer rows.Close()

	items, err := scanDocs[T](rows)
	if err != nil {
		return nil, Classify(op, err)
	}
	return items, nil
}

func (s *Store[T]) count(ctx context.Context, op, query string, args ...any) (int, error) {
	db, err := s.conn.Database(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, Classify(op, err)
	}
	return n, nil
}

func (s *Store[T]) exec(ctx context.Context, op, query string, args ...any) (int, error) {
	db, err := s.conn.Database(ctx)
	if err != nil {
		return 0, err
	}
	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, Classify(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, Classify(op, err)
	}
	return int(n), nil
}

func scanDocs[T any](rows *sql.Rows) ([]T, error) {
	items := []T{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, err
		}
		item, err := decode[T](doc)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func decode[T any](doc string) (T, error) {
	var item T
	if err := json.Unmarshal([]byte(doc), &item); err != nil {
		return item, fmt.Errorf("decoding record: %w", err)
	}
	return item, nil
}

// timeArg formats t for comparison against a julianday time index.
func timeArg(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
