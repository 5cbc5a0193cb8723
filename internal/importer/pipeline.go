/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package importer runs a screenplay through classify, segment, extract and
// estimate and reconciles the result into a ledger.
package importer

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"

	"sceneledger/internal/breakdown"
	"sceneledger/internal/domain"
	"sceneledger/internal/ledger"
	applog "sceneledger/internal/log"
	"sceneledger/internal/pagecount"
	"sceneledger/internal/screenplay"
)

// Options tune a Pipeline. The zero value uses the defaults.
type Options struct {
	Estimator   pagecount.Estimator
	Lexicon     *breakdown.Lexicon
	SynopsisMax int
	// Parallel caps the goroutines extracting scenes; 0 or 1 extracts in
	// order on the calling goroutine.
	Parallel int
	Now      func() time.Time
}

// ScriptDocument is one parse of a script. It is discarded once reconciled.
type ScriptDocument struct {
	Lines      []screenplay.RawLine
	Roles      []screenplay.LineRole
	Scenes     []domain.Scene
	ParsedAt   time.Time
	SourceHash string
}

// Text returns the normalized document text the hash was taken over.
func (d *ScriptDocument) Text() string {
	return joinLines(d.Lines)
}

// Record summarizes an import of d for the history table.
func (d *ScriptDocument) Record(res ledger.Result) domain.ImportRecord {
	return domain.ImportRecord{
		ID:         uuid.NewString(),
		ParsedAt:   d.ParsedAt,
		SourceHash: d.SourceHash,
		Scenes:     len(d.Scenes),
		Created:    len(res.Created),
		Updated:    len(res.Updated),
		Orphaned:   len(res.Orphaned),
		Conflicts:  len(res.Conflicts),
	}
}

// Pipeline parses scripts with fixed options. It holds no per-import state
// and is safe for concurrent use.
type Pipeline struct {
	opts      Options
	extractor *breakdown.Extractor
}

// New returns a pipeline.
func New(opts Options) *Pipeline {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Pipeline{opts: opts, extractor: breakdown.NewExtractor(opts.Lexicon, opts.SynopsisMax)}
}

// Parse turns document text into scenes without touching any ledger. A
// document with no content yields no scenes and no error.
func (p *Pipeline) Parse(ctx context.Context, text string) (*ScriptDocument, error) {
	lines, err := screenplay.ReadLines(text)
	if err != nil {
		return nil, fmt.Errorf("parse script: %w", err)
	}
	doc := &ScriptDocument{Lines: lines, ParsedAt: p.opts.Now().UTC()}
	doc.SourceHash = SourceHash(joinLines(lines))
	doc.Roles = screenplay.ClassifyAll(lines)
	spans := screenplay.Segment(doc.Roles)
	if len(spans) == 0 {
		return doc, nil
	}
	roster := breakdown.NewRoster(doc.Roles)
	doc.Scenes = make([]domain.Scene, len(spans))

	build := func(i int) {
		sc := p.extractor.Extract(spans[i], doc.Roles, roster)
		sc.Pages = p.opts.Estimator.Estimate(doc.Roles, spans[i].Lines)
		doc.Scenes[i] = sc
	}
	if p.opts.Parallel <= 1 {
		for i := range spans {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			build(i)
		}
		return doc, nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Parallel)
	for i := range spans {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			build(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Import parses text and reconciles it into l. The document is returned
// alongside the result so callers can record it. Cancellation before the
// reconcile commits leaves l unchanged.
func (p *Pipeline) Import(ctx context.Context, text string, l *ledger.Ledger) (ledger.Result, *ScriptDocument, error) {
	lg := applog.WithOperation(applog.WithComponent("importer"), "import")
	doc, err := p.Parse(ctx, text)
	if err != nil {
		return ledger.Result{}, nil, err
	}
	if len(doc.Scenes) == 0 {
		lg.InfoContext(ctx, "empty document, nothing to reconcile", slog.Int("lines", len(doc.Lines)))
		return ledger.Result{}, doc, nil
	}
	if doc.SourceHash == l.Snapshot().SourceHash {
		lg.DebugContext(ctx, "source unchanged since last import", slog.String("hash", doc.SourceHash))
	}
	res, err := l.Reconcile(ctx, doc.Scenes, doc.SourceHash)
	if err != nil {
		return ledger.Result{}, nil, err
	}
	return res, doc, nil
}

// ImportScript parses documentText with the default options and reconciles
// it into l.
func ImportScript(ctx context.Context, documentText string, l *ledger.Ledger) (ledger.Result, error) {
	res, _, err := New(Options{}).Import(ctx, documentText, l)
	return res, err
}

// SourceHash is the hex BLAKE3-256 digest of text.
func SourceHash(text string) string {
	sum := blake3.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func joinLines(lines []screenplay.RawLine) string {
	var b strings.Builder
	for i, l := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(l.Text)
	}
	return b.String()
}
