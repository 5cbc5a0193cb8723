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

	"sceneledger/internal/ledger"
	"sceneledger/internal/undo"
)

var _ ledger.HistoryStore = (*PGStore)(nil)

// SaveHistory stores the project's edit history. The ledger row must exist,
// which ledger.Save guarantees by saving the snapshot first.
func (s *PGStore) SaveHistory(ctx context.Context, h undo.History) error {
	if h.Empty() {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM ledger_history WHERE project = $1`, s.project); err != nil {
			return fmt.Errorf("clear edit history: %w", err)
		}
		return nil
	}
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("marshal edit history: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO ledger_history(project, data, updated_at) VALUES($1, $2, now())
		ON CONFLICT (project) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`, s.project, string(data))
	if err != nil {
		return fmt.Errorf("write edit history: %w", err)
	}
	return nil
}

// LoadHistory returns the project's edit history, empty when none was saved.
func (s *PGStore) LoadHistory(ctx context.Context) (undo.History, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM ledger_history WHERE project = $1`, s.project).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return undo.History{}, nil
	}
	if err != nil {
		return undo.History{}, fmt.Errorf("read edit history: %w", err)
	}
	var h undo.History
	if err := json.Unmarshal(data, &h); err != nil {
		return undo.History{}, fmt.Errorf("decode edit history: %w", err)
	}
	return h, nil
}
