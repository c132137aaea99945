package persistence

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"

	"go.uber.org/zap"
)

const (
	createMigrationsTable = `
        CREATE TABLE IF NOT EXISTS schema_migrations (
            version    TEXT PRIMARY KEY,
            applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`
	selectAppliedMigrations = `SELECT version FROM schema_migrations`
	insertAppliedMigration  = `INSERT INTO schema_migrations (version) VALUES ($1)`
)

// Migrator applies the .sql files of a directory once each, in lexical
// order. Applied file names are kept in schema_migrations.
type Migrator struct {
	db     DB
	files  fs.FS
	tx     *TxManager
	logger *zap.Logger
}

// NewMigrator reads migrations from dir on disk.
func NewMigrator(db DB, dir string, logger *zap.Logger) *Migrator {
	return NewMigratorFS(db, os.DirFS(dir), logger)
}

// NewMigratorFS reads migrations from the root of files.
func NewMigratorFS(db DB, files fs.FS, logger *zap.Logger) *Migrator {
	return &Migrator{db: db, files: files, tx: NewTxManager(db), logger: logger}
}

// Up applies pending migrations and reports how many ran. Each file and
// its bookkeeping row commit together.
func (m *Migrator) Up(ctx context.Context) (int, error) {
	if m.db == nil {
		m.logger.Warn("no postgres pool available; skipping migrations")
		return 0, nil
	}

	names, err := fs.Glob(m.files, "*.sql")
	if err != nil {
		return 0, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)

	if _, err := m.db.Exec(ctx, createMigrationsTable); err != nil {
		return 0, fmt.Errorf("create schema_migrations: %w", err)
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, name := range names {
		if applied[name] {
			continue
		}
		content, err := fs.ReadFile(m.files, name)
		if err != nil {
			return count, fmt.Errorf("read migration %s: %w", name, err)
		}

		m.logger.Info("applying migration", zap.String("file", path.Base(name)))
		err = m.tx.WithinTx(ctx, func(ctx context.Context) error {
			conn := Conn(ctx, m.db)
			if _, err := conn.Exec(ctx, string(content)); err != nil {
				return err
			}
			_, err := conn.Exec(ctx, insertAppliedMigration, name)
			return err
		})
		if err != nil {
			return count, fmt.Errorf("apply migration %s: %w", name, err)
		}
		count++
	}

	m.logger.Info("migrations up to date", zap.Int("applied", count), zap.Int("total", len(names)))
	return count, nil
}

func (m *Migrator) applied(ctx context.Context) (map[string]bool, error) {
	rows, err := m.db.Query(ctx, selectAppliedMigrations)
	if err != nil {
		return nil, fmt.Errorf("load applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}
