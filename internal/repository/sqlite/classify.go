package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	driver "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/newsdesk/internal/repository"
)

// Classify maps a raw error from database/sql or the driver to a
// *repository.StorageError. Errors that are already classified pass through
// unchanged; nil stays nil. Every repository method returns its failures
// through here.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var se *repository.StorageError
	if errors.As(err, &se) {
		return err
	}

	kind := classifyKind(err)
	return &repository.StorageError{
		Kind:    kind,
		Op:      op,
		Message: messageFor(kind, op),
		Cause:   err,
	}
}

func classifyKind(err error) repository.Kind {
	var sqliteErr *driver.Error
	if errors.As(err, &sqliteErr) {
		// Extended result codes carry the primary code in the low byte.
		switch sqliteErr.Code() & 0xff {
		case sqlite3.SQLITE_CONSTRAINT:
			return repository.ErrDuplicateKey
		case sqlite3.SQLITE_FULL:
			return repository.ErrQuotaExceeded
		case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
			return repository.ErrTransactionFailed
		case sqlite3.SQLITE_CANTOPEN, sqlite3.SQLITE_NOTADB, sqlite3.SQLITE_CORRUPT:
			return repository.ErrConnectionFailed
		case sqlite3.SQLITE_ERROR:
			if strings.Contains(sqliteErr.Error(), "no such table") {
				return repository.ErrStoreNotFound
			}
		}
	}

	switch {
	case errors.Is(err, sql.ErrTxDone):
		return repository.ErrTransactionFailed
	case errors.Is(err, sql.ErrConnDone),
		strings.Contains(err.Error(), "database is closed"):
		return repository.ErrConnectionFailed
	case errors.Is(err, context.DeadlineExceeded):
		return repository.ErrConnectionFailed
	case strings.Contains(err.Error(), "no such table"):
		return repository.ErrStoreNotFound
	}
	return repository.ErrUnknown
}

func messageFor(kind repository.Kind, op string) string {
	switch kind {
	case repository.ErrConnectionFailed:
		return fmt.Sprintf("Database connection failed during %s", op)
	case repository.ErrTransactionFailed:
		return fmt.Sprintf("Transaction failed during %s", op)
	case repository.ErrStoreNotFound:
		return fmt.Sprintf("Object store not found in %s", op)
	case repository.ErrItemNotFound:
		return fmt.Sprintf("Item not found in %s", op)
	case repository.ErrDuplicateKey:
		return fmt.Sprintf("Duplicate key constraint violated in %s", op)
	case repository.ErrQuotaExceeded:
		return fmt.Sprintf("Storage quota exceeded during %s", op)
	case repository.ErrVersion:
		return fmt.Sprintf("Database version mismatch in %s", op)
	default:
		return fmt.Sprintf("Unknown database error in %s", op)
	}
}

func itemNotFound(op, id string) error {
	return &repository.StorageError{
		Kind:    repository.ErrItemNotFound,
		Op:      op,
		Message: fmt.Sprintf("Item with id %s not found in %s", id, op),
	}
}
