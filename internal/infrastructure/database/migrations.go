package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
)

// MigrationsFS holds the embedded migration files. It is registered by
// the top-level migrations package at init time.
var MigrationsFS embed.FS

// MigrationsDir is the directory within MigrationsFS containing the
// .sql files.
var MigrationsDir = "."

// Migration represents a single database schema migration.
type Migration struct {
	// Version is the numeric version derived from the filename timestamp.
	Version int64

	// Name is the human-readable migration name from the filename.
	Name string

	// UpSQL contains the SQL to apply the migration.
	UpSQL string

	// DownSQL contains the SQL to roll back the migration.
	DownSQL string
}

// Migrate applies all pending migrations embedded in the binary.
// Each migration runs in its own transaction; a failure stops the
// run and leaves earlier migrations applied.
func (db *DB) Migrate(ctx context.Context) error {
	if err := db.createMigrationsTable(ctx); err != nil {
		return fmt.Errorf("creating migrations table: %w", err)
	}

	applied, err := db.appliedVersions(ctx)
	if err != nil {
		return fmt.Errorf("loading applied migrations: %w", err)
	}

	all, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}

	for _, m := range all {
		if applied[m.Version] {
			continue
		}
		if err := db.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("applying migration %d (%s): %w", m.Version, m.Name, err)
		}
	}

	return nil
}

// MigrateDown rolls back the most recently applied migration.
func (db *DB) MigrateDown(ctx context.Context) error {
	var version int64
	err := db.QueryRowContext(ctx,
		"SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1",
	).Scan(&version)
	if err != nil {
		return fmt.Errorf("finding latest migration: %w", err)
	}

	all, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("loading embedded migrations: %w", err)
	}

	for _, m := range all {
		if m.Version != version {
			continue
		}
		if m.DownSQL == "" {
			return fmt.Errorf("migration %d has no down script", version)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, m.DownSQL); err != nil {
			tx.Rollback() //nolint:errcheck // Best effort on error path
			return fmt.Errorf("executing down migration %d: %w", version, err)
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM schema_migrations WHERE version = ?", version,
		); err != nil {
			tx.Rollback() //nolint:errcheck // Best effort on error path
			return fmt.Errorf("removing migration record %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing rollback of %d: %w", version, err)
		}
		return nil
	}

	return fmt.Errorf("migration %d not found in embedded files", version)
}

// GetMigrationStatus reports applied and pending migration versions.
func (db *DB) GetMigrationStatus(ctx context.Context) (applied, pending []int64, err error) {
	appliedSet, err := db.appliedVersions(ctx)
	if err != nil {
		return nil, nil, err
	}

	all, err := loadMigrations()
	if err != nil {
		return nil, nil, err
	}

	for _, m := range all {
		if appliedSet[m.Version] {
			applied = append(applied, m.Version)
		} else {
			pending = append(pending, m.Version)
		}
	}
	return applied, pending, nil
}

func (db *DB) createMigrationsTable(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TEXT NOT NULL DEFAULT (datetime('now'))
		)
	`)
	return err
}

func (db *DB) appliedVersions(ctx context.Context) (map[int64]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck // Read-only query

	applied := make(map[int64]bool)
	for rows.Next() {
		var v int64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (db *DB) applyMigration(ctx context.Context, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
		tx.Rollback() //nolint:errcheck // Best effort on error path
		return fmt.Errorf("executing migration SQL: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)",
		m.Version, m.Name,
	); err != nil {
		tx.Rollback() //nolint:errcheck // Best effort on error path
		return fmt.Errorf("recording migration: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing migration: %w", err)
	}
	return nil
}

// loadMigrations reads the embedded migration files and pairs up/down
// scripts by version. Migrations are returned sorted by version.
func loadMigrations() ([]Migration, error) {
	entries, err := fs.ReadDir(MigrationsFS, MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("reading migrations directory: %w", err)
	}

	byVersion := make(map[int64]*Migration)
	for _, entry := range entries {
		name := entry.Name()
		if !strings.HasSuffix(name, ".sql") {
			continue
		}

		version, migName, isUp, err := parseMigrationFilename(name)
		if err != nil {
			return nil, err
		}

		content, err := fs.ReadFile(MigrationsFS, path.Join(MigrationsDir, name))
		if err != nil {
			return nil, fmt.Errorf("reading migration %s: %w", name, err)
		}

		m, ok := byVersion[version]
		if !ok {
			m = &Migration{Version: version, Name: migName}
			byVersion[version] = m
		}
		if isUp {
			m.UpSQL = string(content)
		} else {
			m.DownSQL = string(content)
		}
	}

	result := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if m.UpSQL == "" {
			return nil, fmt.Errorf("migration %d (%s) has no up script", m.Version, m.Name)
		}
		result = append(result, *m)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Version < result[j].Version
	})
	return result, nil
}

// parseMigrationFilename extracts the version, name, and direction from a
// migration filename of the form YYYYMMDD_HHMMSS_name.up.sql.
func parseMigrationFilename(filename string) (version int64, name string, isUp bool, err error) {
	base := strings.TrimSuffix(filename, ".sql")

	switch {
	case strings.HasSuffix(base, ".up"):
		isUp = true
		base = strings.TrimSuffix(base, ".up")
	case strings.HasSuffix(base, ".down"):
		base = strings.TrimSuffix(base, ".down")
	default:
		return 0, "", false, fmt.Errorf("migration %s: missing .up or .down suffix", filename)
	}

	// Expect YYYYMMDD_HHMMSS_name
	parts := strings.SplitN(base, "_", 3)
	if len(parts) != 3 {
		return 0, "", false, fmt.Errorf("migration %s: expected YYYYMMDD_HHMMSS_name format", filename)
	}

	version, err = strconv.ParseInt(parts[0]+parts[1], 10, 64)
	if err != nil {
		return 0, "", false, fmt.Errorf("migration %s: invalid timestamp: %w", filename, err)
	}

	return version, parts[2], isUp, nil
}
