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
	"time"

	"sceneledger/internal/ledger"
	"sceneledger/internal/undo"
)

var _ ledger.HistoryStore = (*SQLiteStore)(nil)

// language=SQL
// dialect=SQLite
const upsertHistorySQL = `INSERT INTO edit_history(id, data, updated_at) VALUES(1, ?, ?)
ON CONFLICT(id) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at`

// SaveHistory stores the edit history as one JSON document.
func (s *SQLiteStore) SaveHistory(ctx context.Context, h undo.History) error {
	if h.Empty() {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM edit_history`); err != nil {
			return fmt.Errorf("clear edit history: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshal edit history: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, upsertHistorySQL, string(data), time.Now().UTC().Format(timestampLayout)); err != nil {
		return fmt.Errorf("write edit history: %w", err)
	}
	return nil
}

// LoadHistory returns the stored edit history, empty when none was saved.
func (s *SQLiteStore) LoadHistory(ctx context.Context) (undo.History, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM edit_history WHERE id=1`).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return undo.History{}, nil
	}
	if err != nil {
		return undo.History{}, fmt.Errorf("read edit history: %w", err)
	}
	var h undo.History
	if err := json.Unmarshal([]byte(data), &h); err != nil {
		return undo.History{}, fmt.Errorf("%w: edit history: %v", ErrCorrupt, err)
	}
	return h, nil
}
