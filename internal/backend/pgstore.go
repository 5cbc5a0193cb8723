/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"sceneledger/internal/domain"
	"sceneledger/internal/ledger"
	applog "sceneledger/internal/log"
	"sceneledger/internal/storage"
)

var _ ledger.Store = (*PGStore)(nil)

// PGStore keeps the ledger of one project in Postgres. Several projects can
// share a database.
type PGStore struct {
	db      *sql.DB
	project string
}

// NewPGStore returns a store for project on an already migrated db.
func NewPGStore(db *sql.DB, project string) (*PGStore, error) {
	if strings.TrimSpace(project) == "" {
		return nil, errors.New("project is required")
	}
	return &PGStore{db: db, project: project}, nil
}

// SaveLedger replaces the project's stored ledger with snap.
func (s *PGStore) SaveLedger(ctx context.Context, snap *ledger.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO ledgers(project, generation, source_hash, updated_at) VALUES($1, $2, $3, now())
		ON CONFLICT (project) DO UPDATE SET generation = EXCLUDED.generation, source_hash = EXCLUDED.source_hash, updated_at = now()`,
		s.project, int64(snap.Generation), snap.SourceHash); err != nil {
		return fmt.Errorf("write ledger: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_scenes WHERE project = $1`, s.project); err != nil {
		return fmt.Errorf("clear scenes: %w", err)
	}
	for i, sc := range snap.Scenes {
		data, err := json.Marshal(sc)
		if err != nil {
			return fmt.Errorf("marshal scene %s: %w", sc.Number, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO ledger_scenes(project, position, number, location, cast_names, tags, search_text, data)
			VALUES($1, $2, $3, $4, $5, $6, $7, $8)`,
			s.project, i, sc.Number, sc.Location, lowered(sc.Cast), tagKeys(sc.Elements), storage.SearchText(sc), string(data)); err != nil {
			return fmt.Errorf("insert scene %s: %w", sc.Number, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_conflicts WHERE project = $1`, s.project); err != nil {
		return fmt.Errorf("clear conflicts: %w", err)
	}
	for i, c := range snap.Conflicts {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal conflict %s: %w", c.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO ledger_conflicts(id, project, position, reason, data) VALUES($1, $2, $3, $4, $5)`,
			c.ID.String(), s.project, i, c.Reason.String(), string(data)); err != nil {
			return fmt.Errorf("insert conflict %s: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	applog.WithOperation(applog.WithComponent("backend"), "save_ledger").Debug("ledger saved",
		slog.String("project", s.project), slog.Uint64("generation", snap.Generation), slog.Int("scenes", len(snap.Scenes)))
	return nil
}

// LoadLedger returns the project's stored ledger, or nil if none was saved.
func (s *PGStore) LoadLedger(ctx context.Context) (*ledger.Snapshot, error) {
	var (
		gen  int64
		hash string
	)
	err := s.db.QueryRowContext(ctx, `SELECT generation, source_hash FROM ledgers WHERE project = $1`, s.project).Scan(&gen, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger: %w", err)
	}
	snap := &ledger.Snapshot{Generation: uint64(gen), SourceHash: hash, Scenes: []domain.Scene{}}

	rows, err := s.db.QueryContext(ctx, `SELECT number, data FROM ledger_scenes WHERE project = $1 ORDER BY position`, s.project)
	if err != nil {
		return nil, fmt.Errorf("query scenes: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var number string
		var data []byte
		if err := rows.Scan(&number, &data); err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		var sc domain.Scene
		if err := json.Unmarshal(data, &sc); err != nil {
			return nil, fmt.Errorf("decode scene %s: %w", number, err)
		}
		snap.Scenes = append(snap.Scenes, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	crows, err := s.db.QueryContext(ctx, `SELECT data FROM ledger_conflicts WHERE project = $1 ORDER BY position`, s.project)
	if err != nil {
		return nil, fmt.Errorf("query conflicts: %w", err)
	}
	defer func() { _ = crows.Close() }()
	for crows.Next() {
		var data []byte
		if err := crows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		var c ledger.Conflict
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decode conflict: %w", err)
		}
		snap.Conflicts = append(snap.Conflicts, c)
	}
	return snap, crows.Err()
}

// RecordImport appends r to the project's import history.
func (s *PGStore) RecordImport(ctx context.Context, r domain.ImportRecord) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO ledger_imports(id, project, parsed_at, source_hash, scenes, created, updated, orphaned, conflicts)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, s.project, r.ParsedAt.UTC(), r.SourceHash, r.Scenes, r.Created, r.Updated, r.Orphaned, r.Conflicts)
	if err != nil {
		return fmt.Errorf("record import %s: %w", r.ID, err)
	}
	return nil
}

// ListImports returns up to limit most recent imports, newest first.
func (s *PGStore) ListImports(ctx context.Context, limit int) ([]domain.ImportRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT id::text, parsed_at, source_hash, scenes, created, updated, orphaned, conflicts
		FROM ledger_imports WHERE project = $1 ORDER BY parsed_at DESC LIMIT $2`, s.project, limit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []domain.ImportRecord
	for rows.Next() {
		var r domain.ImportRecord
		if err := rows.Scan(&r.ID, &r.ParsedAt, &r.SourceHash, &r.Scenes, &r.Created, &r.Updated, &r.Orphaned, &r.Conflicts); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		r.ParsedAt = r.ParsedAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func lowered(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = strings.ToLower(n)
	}
	return out
}

func tagKeys(e domain.Elements) []string {
	out := []string{}
	for _, c := range domain.Categories {
		for _, t := range e.Tags(c) {
			out = append(out, storage.TagKey(c, t))
		}
	}
	return out
}
