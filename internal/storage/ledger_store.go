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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sceneledger/internal/domain"
	"sceneledger/internal/ledger"
	applog "sceneledger/internal/log"
)

var _ ledger.Store = (*SQLiteStore)(nil)

// language=SQL
// dialect=SQLite
const upsertLedgerMetaSQL = `INSERT INTO ledger_meta(id, generation, source_hash, updated_at) VALUES(1, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET generation=excluded.generation, source_hash=excluded.source_hash, updated_at=excluded.updated_at`

// language=SQL
// dialect=SQLite
const insertSceneSQL = `INSERT INTO scenes(number, location, cast_names, tags, search_text, data) VALUES(?,?,?,?,?,?)`

// language=SQL
// dialect=SQLite
const insertConflictSQL = `INSERT INTO conflicts(id, reason, data) VALUES(?,?,?)`

// SaveLedger replaces the stored ledger with snap in one transaction.
func (s *SQLiteStore) SaveLedger(ctx context.Context, snap *ledger.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, upsertLedgerMetaSQL, int64(snap.Generation), snap.SourceHash, time.Now().UTC().Format(timestampLayout)); err != nil {
		return fmt.Errorf("write ledger meta: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM scenes;`); err != nil {
		return fmt.Errorf("clear scenes: %w", err)
	}
	ins, err := tx.PrepareContext(ctx, insertSceneSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer ins.Close()
	for _, sc := range snap.Scenes {
		data, err := json.Marshal(sc)
		if err != nil {
			return fmt.Errorf("marshal scene %s: %w", sc.Number, err)
		}
		if _, err := ins.ExecContext(ctx, sc.Number, sc.Location, castColumn(sc.Cast), tagsColumn(sc.Elements), SearchText(sc), string(data)); err != nil {
			return fmt.Errorf("insert scene %s: %w", sc.Number, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM conflicts;`); err != nil {
		return fmt.Errorf("clear conflicts: %w", err)
	}
	for _, c := range snap.Conflicts {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal conflict %s: %w", c.ID, err)
		}
		if _, err := tx.ExecContext(ctx, insertConflictSQL, c.ID.String(), c.Reason.String(), string(data)); err != nil {
			return fmt.Errorf("insert conflict %s: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	applog.WithOperation(applog.WithComponent("storage"), "save_ledger").Debug("ledger saved",
		slog.Uint64("generation", snap.Generation), slog.Int("scenes", len(snap.Scenes)), slog.Int("conflicts", len(snap.Conflicts)))
	return nil
}

// LoadLedger returns the stored ledger, or nil when nothing was saved yet.
func (s *SQLiteStore) LoadLedger(ctx context.Context) (*ledger.Snapshot, error) {
	var (
		gen  int64
		hash string
	)
	err := s.db.QueryRowContext(ctx, `SELECT generation, source_hash FROM ledger_meta WHERE id=1`).Scan(&gen, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger meta: %w", err)
	}
	snap := &ledger.Snapshot{Generation: uint64(gen), SourceHash: hash, Scenes: []domain.Scene{}}

	rows, err := s.db.QueryContext(ctx, `SELECT number, data FROM scenes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query scenes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var number, data string
		if err := rows.Scan(&number, &data); err != nil {
			return nil, fmt.Errorf("scan scene: %w", err)
		}
		var sc domain.Scene
		if err := decodeScene(data, &sc); err != nil {
			return nil, fmt.Errorf("decode scene %s: %w", number, err)
		}
		snap.Scenes = append(snap.Scenes, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	crows, err := s.db.QueryContext(ctx, `SELECT id, data FROM conflicts ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("query conflicts: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var id, data string
		if err := crows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		var c ledger.Conflict
		if err := json.Unmarshal([]byte(data), &c); err != nil {
			return nil, fmt.Errorf("decode conflict %s: %w", id, err)
		}
		snap.Conflicts = append(snap.Conflicts, c)
	}
	return snap, crows.Err()
}

func decodeScene(data string, sc *domain.Scene) error {
	return json.Unmarshal([]byte(data), sc)
}

// castColumn and tagsColumn wrap every entry in '|' so filters can match
// whole values with LIKE.
func castColumn(cast []string) string {
	if len(cast) == 0 {
		return ""
	}
	return "|" + strings.Join(cast, "|") + "|"
}

func tagsColumn(e domain.Elements) string {
	var b strings.Builder
	for _, c := range domain.Categories {
		for _, t := range e.Tags(c) {
			if b.Len() == 0 {
				b.WriteByte('|')
			}
			b.WriteString(TagKey(c, t))
			b.WriteByte('|')
		}
	}
	return b.String()
}

// TagKey is the stored form of a breakdown tag, e.g. "sfx:rain".
func TagKey(c domain.Category, tag string) string {
	return strings.ToLower(c.String()) + ":" + strings.ToLower(tag)
}

// SearchText is the text indexed for full-text search of a scene.
func SearchText(sc domain.Scene) string {
	parts := []string{sc.Number, sc.IntExt.String(), sc.Location, sc.TimeOfDay.String(), sc.Synopsis}
	parts = append(parts, sc.Cast...)
	for _, c := range domain.Categories {
		if c == domain.CategoryCast || c == domain.CategoryLocation {
			continue
		}
		parts = append(parts, sc.Elements.Tags(c)...)
	}
	return strings.Join(parts, " ")
}
