// Package migrations holds the versioned schema and applies it.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/fixora/tasktrail/internal/logger"
)

//go:embed *.sql
var files embed.FS

// Direction selects which half of each migration to run
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

type migrationFile struct {
	version int
	name    string
	path    string
	kind    Direction
}

// Migrator applies embedded SQL migrations and records them in
// schema_migrations
type Migrator struct {
	db     *sql.DB
	source fs.FS
	log    logger.Logger
}

// New creates a migrator over the embedded migrations
func New(db *sql.DB, log logger.Logger) *Migrator {
	return &Migrator{db: db, source: files, log: log}
}

// Run applies every pending migration in the given direction
func (m *Migrator) Run(ctx context.Context, dir Direction) error {
	if dir != Up && dir != Down {
		return fmt.Errorf("unknown migration direction %q", dir)
	}

	if err := m.ensureSchemaMigrations(ctx); err != nil {
		return fmt.Errorf("failed to ensure schema_migrations: %w", err)
	}

	all, err := m.load()
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	var selected []migrationFile
	for _, f := range all {
		if f.kind == dir {
			selected = append(selected, f)
		}
	}
	if dir == Down {
		sort.Slice(selected, func(i, j int) bool { return selected[i].version > selected[j].version })
	}

	for _, f := range selected {
		applied, err := m.alreadyApplied(ctx, f.version)
		if err != nil {
			return err
		}
		if applied == (dir == Up) {
			continue
		}

		m.log.Info(ctx, "Applying migration", map[string]interface{}{
			"version":   f.version,
			"name":      f.name,
			"direction": string(dir),
		})
		if err := m.apply(ctx, f); err != nil {
			return fmt.Errorf("failed applying %s: %w", f.path, err)
		}
	}
	return nil
}

func (m *Migrator) ensureSchemaMigrations(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

func (m *Migrator) load() ([]migrationFile, error) {
	entries, err := fs.ReadDir(m.source, ".")
	if err != nil {
		return nil, err
	}

	var out []migrationFile
	for _, e := range entries {
		name := e.Name()
		lower := strings.ToLower(name)
		if e.IsDir() || !strings.HasSuffix(lower, ".sql") {
			continue
		}

		kind := Up
		if strings.HasSuffix(lower, ".down.sql") {
			kind = Down
		}

		ver, migName, err := parseVersionAndName(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}

		out = append(out, migrationFile{version: ver, name: migName, path: name, kind: kind})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

// parseVersionAndName splits 001_init.up.sql into 1 and init
func parseVersionAndName(filename string) (int, string, error) {
	prefix, rest, ok := strings.Cut(filename, "_")
	if !ok {
		return 0, "", errors.New("missing version prefix")
	}
	ver, err := strconv.Atoi(prefix)
	if err != nil || ver <= 0 {
		return 0, "", errors.New("invalid version prefix")
	}
	rest = strings.TrimSuffix(strings.TrimSuffix(strings.TrimSuffix(rest, ".sql"), ".up"), ".down")
	return ver, rest, nil
}

func (m *Migrator) alreadyApplied(ctx context.Context, version int) (bool, error) {
	var exists bool
	err := m.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version).Scan(&exists)
	return exists, err
}

// apply runs one file and updates schema_migrations in the same transaction
func (m *Migrator) apply(ctx context.Context, f migrationFile) error {
	body, err := fs.ReadFile(m.source, f.path)
	if err != nil {
		return err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return err
	}

	if f.kind == Up {
		_, err = tx.ExecContext(ctx, "INSERT INTO schema_migrations(version, name, applied_at) VALUES($1, $2, $3)", f.version, f.name, time.Now().UTC())
	} else {
		_, err = tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = $1", f.version)
	}
	if err != nil {
		return err
	}

	return tx.Commit()
}
