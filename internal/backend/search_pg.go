/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"sceneledger/internal/storage"
)

// SearchScenes runs q over the project's scenes using tsvector and filters
// and returns results shaped like the SQLite store's to ease parity checks.
func (s *PGStore) SearchScenes(ctx context.Context, q storage.SearchQuery) ([]storage.SearchResult, error) {
	var (
		args []any
		b    strings.Builder
	)
	if strings.TrimSpace(q.Text) != "" {
		b.WriteString("SELECT sc.number, sc.data, ")
		b.WriteString("COALESCE(ts_headline('simple', sc.search_text, plainto_tsquery('simple', $1), 'StartSel=[, StopSel=], MaxFragments=1, MaxWords=12'), '') AS snippet ")
		b.WriteString("FROM ledger_scenes sc WHERE sc.project = $2 AND sc.search_vector @@ plainto_tsquery('simple', $1) ")
		args = append(args, q.Text, s.project)
	} else {
		b.WriteString("SELECT sc.number, sc.data, '' AS snippet ")
		b.WriteString("FROM ledger_scenes sc WHERE sc.project = $1 ")
		args = append(args, s.project)
	}

	// Helper to add parameter and return placeholder like $n
	place := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if c := strings.TrimSpace(q.Character); c != "" {
		b.WriteString(" AND " + place(strings.ToLower(c)) + " = ANY (sc.cast_names) ")
	}
	if l := strings.TrimSpace(q.Location); l != "" {
		b.WriteString(" AND lower(sc.location) = " + place(strings.ToLower(l)) + " ")
	}
	for _, t := range q.Tags {
		key, err := storage.ParseTagFilter(t)
		if err != nil {
			return nil, err
		}
		if key == "" {
			continue
		}
		b.WriteString(" AND " + place(key) + " = ANY (sc.tags) ")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	b.WriteString(" ORDER BY sc.position ")
	b.WriteString(" LIMIT " + place(limit) + " OFFSET " + place(offset))

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search pg query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []storage.SearchResult
	for rows.Next() {
		var r storage.SearchResult
		var data []byte
		if err := rows.Scan(&r.Number, &data, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if err := json.Unmarshal(data, &r.Scene); err != nil {
			return nil, fmt.Errorf("decode scene %s: %w", r.Number, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
