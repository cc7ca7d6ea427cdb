package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

type direction string

const (
	directionUp   direction = "up"
	directionDown direction = "down"
)

type migrationFile struct {
	version int
	name    string
	path    string
	dir     direction
}

var errNoVersion = errors.New("migration file name must start with a numeric version")

// parseMigrationName splits "002_create_travel_requests.up.sql" into its
// version, name and direction. Files without .up/.down count as up.
func parseMigrationName(filename string) (int, string, direction, error) {
	lower := strings.ToLower(filename)
	if !strings.HasSuffix(lower, ".sql") {
		return 0, "", "", fmt.Errorf("not a sql file: %s", filename)
	}

	base := filename[:len(filename)-len(".sql")]
	dir := directionUp
	switch {
	case strings.HasSuffix(strings.ToLower(base), ".down"):
		dir = directionDown
		base = base[:len(base)-len(".down")]
	case strings.HasSuffix(strings.ToLower(base), ".up"):
		base = base[:len(base)-len(".up")]
	}

	verStr, name, ok := strings.Cut(base, "_")
	if !ok || name == "" {
		return 0, "", "", errNoVersion
	}
	ver, err := strconv.Atoi(verStr)
	if err != nil || ver <= 0 {
		return 0, "", "", errNoVersion
	}
	return ver, name, dir, nil
}

// loadMigrations returns the migration files of dir ordered by version.
func loadMigrations(dir string) ([]migrationFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]string)
	var files []migrationFile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(strings.ToLower(e.Name()), ".sql") {
			continue
		}
		ver, name, d, err := parseMigrationName(e.Name())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		key := fmt.Sprintf("%d/%s", ver, d)
		if prev, dup := seen[key]; dup {
			return nil, fmt.Errorf("duplicate %s migration version %d: %s and %s", d, ver, prev, e.Name())
		}
		seen[key] = e.Name()
		files = append(files, migrationFile{version: ver, name: name, path: filepath.Join(dir, e.Name()), dir: d})
	}

	sort.Slice(files, func(i, j int) bool { return files[i].version < files[j].version })
	return files, nil
}

type migrator struct {
	db  *sql.DB
	log *logrus.Logger
}

func (m *migrator) ensureSchemaMigrations(ctx context.Context) error {
	_, err := m.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

func (m *migrator) applied(ctx context.Context) (map[int]bool, error) {
	rows, err := m.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out[v] = true
	}
	return out, rows.Err()
}

func (m *migrator) up(ctx context.Context, files []migrationFile) (int, error) {
	done, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, f := range files {
		if f.dir != directionUp || done[f.version] {
			continue
		}
		m.log.WithFields(logrus.Fields{"version": f.version, "name": f.name}).Info("applying migration")
		if err := m.run(ctx, f, `INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, f.version, f.name); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// down reverts applied migrations newest first. steps <= 0 reverts all.
func (m *migrator) down(ctx context.Context, files []migrationFile, steps int) (int, error) {
	done, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	downs := make([]migrationFile, 0, len(files))
	for _, f := range files {
		if f.dir == directionDown && done[f.version] {
			downs = append(downs, f)
		}
	}
	sort.Slice(downs, func(i, j int) bool { return downs[i].version > downs[j].version })
	if steps > 0 && steps < len(downs) {
		downs = downs[:steps]
	}

	count := 0
	for _, f := range downs {
		m.log.WithFields(logrus.Fields{"version": f.version, "name": f.name}).Info("reverting migration")
		if err := m.run(ctx, f, `DELETE FROM schema_migrations WHERE version = $1`, f.version); err != nil {
			return count, err
		}
		count++
	}
	return count, nil
}

// run executes one file and its bookkeeping statement in a single transaction.
func (m *migrator) run(ctx context.Context, f migrationFile, bookkeeping string, args ...interface{}) error {
	body, err := os.ReadFile(f.path)
	if err != nil {
		return err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(body)); err != nil {
		return fmt.Errorf("%s: %w", f.path, err)
	}
	if _, err := tx.ExecContext(ctx, bookkeeping, args...); err != nil {
		return fmt.Errorf("%s bookkeeping: %w", f.path, err)
	}
	return tx.Commit()
}
