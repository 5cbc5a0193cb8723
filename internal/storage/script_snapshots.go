/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// language=SQL
// dialect=SQLite
const insertScriptSnapshotSQL = `INSERT INTO script_snapshots(ts, hash, text) VALUES (?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestScriptSnapshotSQL = `SELECT ts, hash, text FROM script_snapshots ORDER BY ts DESC, id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listScriptSnapshotsSQL = `SELECT ts, hash, text FROM script_snapshots ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldScriptSnapshotsSQL = `DELETE FROM script_snapshots WHERE id NOT IN (
	SELECT id FROM script_snapshots ORDER BY ts DESC, id DESC LIMIT ?
)`

// ScriptSnapshot is the full text of an imported script.
type ScriptSnapshot struct {
	TS   time.Time
	Hash string
	Text string
}

// SaveScriptSnapshot stores the imported script text. A text whose hash
// matches the latest snapshot is not stored again; saved reports whether a
// row was written.
func (s *SQLiteStore) SaveScriptSnapshot(ctx context.Context, hash, text string, ts time.Time) (saved bool, err error) {
	latest, err := s.LatestScriptSnapshot(ctx)
	if err != nil {
		return false, err
	}
	if latest != nil && latest.Hash == hash {
		return false, nil
	}
	if _, err := s.db.ExecContext(ctx, insertScriptSnapshotSQL, ts.UTC().Format(timestampLayout), hash, text); err != nil {
		return false, err
	}
	return true, nil
}

// LatestScriptSnapshot returns the newest snapshot, or nil if none.
func (s *SQLiteStore) LatestScriptSnapshot(ctx context.Context) (*ScriptSnapshot, error) {
	var tsStr string
	var snap ScriptSnapshot
	err := s.db.QueryRowContext(ctx, selectLatestScriptSnapshotSQL).Scan(&tsStr, &snap.Hash, &snap.Text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	snap.TS, _ = time.Parse(time.RFC3339Nano, tsStr)
	return &snap, nil
}

// ListScriptSnapshots returns up to limit most recent script snapshots.
func (s *SQLiteStore) ListScriptSnapshots(ctx context.Context, limit int) ([]ScriptSnapshot, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, listScriptSnapshotsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []ScriptSnapshot
	for rows.Next() {
		var tsStr string
		var snap ScriptSnapshot
		if err := rows.Scan(&tsStr, &snap.Hash, &snap.Text); err != nil {
			return nil, err
		}
		snap.TS, _ = time.Parse(time.RFC3339Nano, tsStr)
		out = append(out, snap)
	}
	return out, rows.Err()
}

// PruneOldScriptSnapshots keeps at most keepLast snapshots and deletes older ones.
func (s *SQLiteStore) PruneOldScriptSnapshots(ctx context.Context, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, pruneOldScriptSnapshotsSQL, keepLast)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
