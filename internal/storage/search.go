/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * Licensed under the Apache License, Version 2.0.
 */
package storage

import (
	"context"
	"fmt"
	"strings"

	"sceneledger/internal/domain"
)

// SearchQuery describes a scene search.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT)
// and matches headings, synopses, cast names and element tags.
// Character and Location match whole values, case-insensitively.
// Tags are "category:tag" pairs, e.g. "sfx:rain"; all must be present.
// Limit/Offset implement pagination; reasonable defaults applied if zero.
type SearchQuery struct {
	Text      string
	Character string
	Location  string
	Tags      []string
	Limit     int
	Offset    int
}

// SearchResult is one matching scene. Snippet highlights the match with
// [ ] markers when Text was given.
type SearchResult struct {
	Number  string
	Scene   domain.Scene
	Snippet string
}

// SearchScenes runs q against the stored ledger. Results come in storage
// order, which is scene-number order for ledgers saved by SaveLedger.
func (s *SQLiteStore) SearchScenes(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	var args []any
	var sb strings.Builder
	if strings.TrimSpace(q.Text) != "" {
		sb.WriteString("SELECT sc.number, sc.data, snippet(fts_scenes, 0, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_scenes JOIN scenes sc ON fts_scenes.rowid = sc.id\n")
		sb.WriteString("WHERE fts_scenes MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT sc.number, sc.data, ''\n")
		sb.WriteString("FROM scenes sc\nWHERE 1=1\n")
	}
	if c := strings.TrimSpace(q.Character); c != "" {
		sb.WriteString(" AND lower(sc.cast_names) LIKE ?\n")
		args = append(args, likeContains("|"+strings.ToLower(c)+"|"))
	}
	if l := strings.TrimSpace(q.Location); l != "" {
		sb.WriteString(" AND lower(sc.location) = ?\n")
		args = append(args, strings.ToLower(l))
	}
	for _, t := range q.Tags {
		key, err := ParseTagFilter(t)
		if err != nil {
			return nil, err
		}
		if key == "" {
			continue
		}
		sb.WriteString(" AND sc.tags LIKE ?\n")
		args = append(args, likeContains("|"+key+"|"))
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	sb.WriteString("ORDER BY sc.id\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		var data string
		if err := rows.Scan(&r.Number, &data, &r.Snippet); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		if err := decodeScene(data, &r.Scene); err != nil {
			return nil, fmt.Errorf("decode scene %s: %w", r.Number, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ParseTagFilter turns "Category:tag" into the key produced by TagKey.
func ParseTagFilter(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	cat, tag, ok := strings.Cut(s, ":")
	if !ok {
		return "", fmt.Errorf("tag filter %q: want category:tag", s)
	}
	c, err := domain.ParseCategory(cat)
	if err != nil {
		return "", fmt.Errorf("tag filter %q: %w", s, err)
	}
	return TagKey(c, strings.TrimSpace(tag)), nil
}

func likeContains(s string) string { return "%" + s + "%" }
