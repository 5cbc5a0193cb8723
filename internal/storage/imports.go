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
	"fmt"
	"time"

	"sceneledger/internal/domain"
)

// language=SQL
// dialect=SQLite
const insertImportSQL = `INSERT INTO imports(id, parsed_at, source_hash, scenes, created, updated, orphaned, conflicts)
VALUES(?,?,?,?,?,?,?,?)`

// language=SQL
// dialect=SQLite
const listImportsSQL = `SELECT id, parsed_at, source_hash, scenes, created, updated, orphaned, conflicts
FROM imports ORDER BY parsed_at DESC, rowid DESC LIMIT ?`

// RecordImport appends r to the import history.
func (s *SQLiteStore) RecordImport(ctx context.Context, r domain.ImportRecord) error {
	_, err := s.db.ExecContext(ctx, insertImportSQL, r.ID, r.ParsedAt.UTC().Format(timestampLayout), r.SourceHash,
		r.Scenes, r.Created, r.Updated, r.Orphaned, r.Conflicts)
	if err != nil {
		return fmt.Errorf("record import %s: %w", r.ID, err)
	}
	return nil
}

// ListImports returns up to limit most recent imports, newest first.
func (s *SQLiteStore) ListImports(ctx context.Context, limit int) ([]domain.ImportRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, listImportsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("list imports: %w", err)
	}
	defer rows.Close()
	var out []domain.ImportRecord
	for rows.Next() {
		var r domain.ImportRecord
		var ts string
		if err := rows.Scan(&r.ID, &ts, &r.SourceHash, &r.Scenes, &r.Created, &r.Updated, &r.Orphaned, &r.Conflicts); err != nil {
			return nil, fmt.Errorf("scan import: %w", err)
		}
		r.ParsedAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, r)
	}
	return out, rows.Err()
}
