/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	applog "sceneledger/internal/log"
	"sceneledger/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// DirName holds the ledger database next to the script it tracks.
	DirName  = ".sceneledger"
	FileName = "ledger.sqlite"

	// schemaVersion tracks the SQLite schema. Bump it together with a new
	// step in runMigrations.
	schemaVersion = 3

	// timestampLayout has a fixed-width fraction so stored timestamps sort
	// as text.
	timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

var (
	// ErrStoreLocked is returned by Open when another process holds the database.
	ErrStoreLocked = errors.New("ledger database is in use by another process")
	// ErrCorrupt is returned by Open when the database fails its integrity check.
	// A copy of the damaged file is kept in the backups directory.
	ErrCorrupt = errors.New("ledger database is corrupt")
)

// DefaultPath returns the ledger database path for a project root.
func DefaultPath(root string) string {
	return filepath.Join(root, DirName, FileName)
}

// SQLiteStore keeps the ledger, its import history and script snapshots in one
// SQLite file. A file lock next to the database keeps other processes out.
type SQLiteStore struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open opens or creates the ledger database at path, enables WAL mode and
// brings the schema up to date.
func Open(path string) (*SQLiteStore, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.Error("create database dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create database dir: %w", err)
	}

	lock := flock.New(path + ".lock")
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrStoreLocked
	}
	db, err := openDB(path)
	if err != nil {
		_ = lock.Unlock()
		l.Error("open database failed", slog.Any("err", err))
		return nil, err
	}
	l.Info("ledger database ready")
	return &SQLiteStore{db: db, path: path, lock: lock}, nil
}

func openDB(path string) (*sql.DB, error) {
	// Forward slashes for the SQLite URI.
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := quickCheck(ctx, db); err != nil {
		_ = db.Close()
		backupFile(path)
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON;"); err != nil {
		applog.WithComponent("storage").Warn("enable foreign_keys failed", slog.Any("err", err))
	}
	for _, step := range []func(context.Context, *sql.DB) error{ensureMetaAndVersion, ensureSchema, runMigrations} {
		if err := step(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	return db, nil
}

func quickCheck(ctx context.Context, db *sql.DB) error {
	var chk string
	if err := db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); err != nil {
		return err
	}
	if !strings.EqualFold(strings.TrimSpace(chk), "ok") {
		return errors.New(chk)
	}
	return nil
}

// Close closes the database and releases the file lock.
func (s *SQLiteStore) Close() error {
	err := s.db.Close()
	if uerr := s.lock.Unlock(); err == nil {
		err = uerr
	}
	return err
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// SchemaVersion returns the schema version recorded in the database.
func (s *SQLiteStore) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&v); err != nil {
		return 0, fmt.Errorf("read schema version: %w", err)
	}
	return v, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var curSchema int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&curSchema)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, ?, ?, ?, ?)`, schemaVersion, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		// Keep the stored schema so runMigrations can step it forward.
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to schemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if cur > schemaVersion {
		applog.WithComponent("storage").Warn("database schema is newer than this build", slog.Int("schema", cur), slog.Int("supported", schemaVersion))
		return nil
	}
	for cur < schemaVersion {
		next := cur + 1
		if err := migrate(ctx, db, next, migrationSteps[next]); err != nil {
			return err
		}
		if next == 2 {
			// Best effort, outside the tx.
			_, _ = db.ExecContext(ctx, `INSERT INTO fts_scenes(fts_scenes) VALUES('optimize')`)
		}
		cur = next
	}
	return nil
}

// migrationSteps holds the statements that move the schema to each version.
var migrationSteps = map[int][]string{
	2: {
		`CREATE INDEX IF NOT EXISTS idx_imports_parsed_at ON imports(parsed_at);`,
		`CREATE INDEX IF NOT EXISTS idx_scenes_location ON scenes(location);`,
	},
	3: {
		`CREATE TABLE IF NOT EXISTS edit_history (
			id         INTEGER PRIMARY KEY CHECK(id=1),
			data       TEXT    NOT NULL,
			updated_at TEXT    NOT NULL
		);`,
	},
}

func migrate(ctx context.Context, db *sql.DB, next int, stmts []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", next, err)
	}
	for _, q := range stmts {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d stmt failed: %w", next, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("migration %d update version: %w", next, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("migration %d commit: %w", next, err)
	}
	applog.WithOperation(applog.WithComponent("storage"), "migrate").Info("schema migrated", slog.Int("schema", next))
	return nil
}

// ensureSchema creates the ledger tables and the scene search index.
func ensureSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		// Single row describing the stored ledger.
		`CREATE TABLE IF NOT EXISTS ledger_meta (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			generation  INTEGER NOT NULL,
			source_hash TEXT    NOT NULL,
			updated_at  TEXT    NOT NULL
		);`,
		// One row per scene; data holds the full scene as JSON, the other
		// columns feed filters and the search index.
		`CREATE TABLE IF NOT EXISTS scenes (
			id          INTEGER PRIMARY KEY,
			number      TEXT    NOT NULL UNIQUE,
			location    TEXT    NOT NULL,
			cast_names  TEXT    NOT NULL,
			tags        TEXT    NOT NULL,
			search_text TEXT    NOT NULL,
			data        TEXT    NOT NULL
		);`,
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_scenes USING fts5(
			search_text,
			content='scenes',
			content_rowid='id',
			tokenize = 'unicode61'
		);`,
		`CREATE TABLE IF NOT EXISTS conflicts (
			id     TEXT PRIMARY KEY,
			reason TEXT NOT NULL,
			data   TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS imports (
			id          TEXT    PRIMARY KEY,
			parsed_at   TEXT    NOT NULL,
			source_hash TEXT    NOT NULL,
			scenes      INTEGER NOT NULL,
			created     INTEGER NOT NULL,
			updated     INTEGER NOT NULL,
			orphaned    INTEGER NOT NULL,
			conflicts   INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS script_snapshots (
			id    INTEGER PRIMARY KEY,
			ts    TEXT    NOT NULL,
			hash  TEXT    NOT NULL,
			text  TEXT    NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS edit_history (
			id         INTEGER PRIMARY KEY CHECK(id=1),
			data       TEXT    NOT NULL,
			updated_at TEXT    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_script_snapshots_ts ON script_snapshots(ts);`,
		`CREATE INDEX IF NOT EXISTS idx_imports_parsed_at ON imports(parsed_at);`,
		`CREATE INDEX IF NOT EXISTS idx_scenes_location ON scenes(location);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	// Keep the external-content FTS index in step with scenes.search_text.
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS scenes_ai AFTER INSERT ON scenes BEGIN
			INSERT INTO fts_scenes(rowid, search_text) VALUES (new.id, new.search_text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS scenes_ad AFTER DELETE ON scenes BEGIN
			INSERT INTO fts_scenes(fts_scenes, rowid, search_text) VALUES ('delete', old.id, old.search_text);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS scenes_au AFTER UPDATE OF search_text ON scenes BEGIN
			INSERT INTO fts_scenes(fts_scenes, rowid, search_text) VALUES ('delete', old.id, old.search_text);
			INSERT INTO fts_scenes(rowid, search_text) VALUES (new.id, new.search_text);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// backupFile copies a file into a timestamped backup in a backups directory
// next to it.
func backupFile(path string) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	_ = os.MkdirAll(bdir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), stamp))
	if data, err := os.ReadFile(path); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}
