package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"

	"github.com/sakif/newsdesk/internal/repository"
)

// upgrade brings db to schema.Version with goose.
//
// Every version from 1 to schema.Version is a Go migration that drops and
// recreates all collections from the current schema map. Goose skips the
// versions already applied, so opening an up-to-date database is a no-op
// and bumping the version wipes every collection once. Upgrades are not
// data-preserving.
func upgrade(ctx context.Context, db *sql.DB, schema Schema, logger *slog.Logger) error {
	const op = "Connection.upgrade"

	migrations := make([]*goose.Migration, 0, schema.Version)
	for v := int64(1); v <= schema.Version; v++ {
		migrations = append(migrations, goose.NewGoMigration(v,
			&goose.GoFunc{RunTx: recreateCollections(schema)},
			nil,
		))
	}

	provider, err := goose.NewProvider(goose.DialectSQLite3, db, nil,
		goose.WithDisableGlobalRegistry(true),
		goose.WithGoMigrations(migrations...),
	)
	if err != nil {
		return Classify(op, fmt.Errorf("creating migration provider: %w", err))
	}

	current, err := provider.GetDBVersion(ctx)
	if err != nil {
		return Classify(op, fmt.Errorf("reading schema version: %w", err))
	}
	if current > schema.Version {
		return &repository.StorageError{
			Kind:    repository.ErrVersion,
			Op:      op,
			Message: fmt.Sprintf("Database version mismatch in %s: stored %d, requested %d", op, current, schema.Version),
		}
	}
	if current == schema.Version {
		return nil
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return Classify(op, fmt.Errorf("applying schema version %d: %w", schema.Version, err))
	}

	logger.Info("database schema upgraded",
		slog.Int64("from", current),
		slog.Int64("to", schema.Version),
		slog.Int("steps", len(results)),
	)
	return nil
}

func recreateCollections(schema Schema) func(ctx context.Context, tx *sql.Tx) error {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, c := range schema.Collections {
			for _, stmt := range c.ddl() {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return fmt.Errorf("recreating %s: %w", c.Name, err)
				}
			}
		}
		return nil
	}
}
