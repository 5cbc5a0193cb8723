/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ledger

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"sceneledger/internal/domain"
	applog "sceneledger/internal/log"
)

// Result reports what a reconcile changed. Scenes are copies taken after the
// change.
type Result struct {
	Updated   []domain.Scene `json:"updated"`
	Created   []domain.Scene `json:"created"`
	Orphaned  []domain.Scene `json:"orphaned"`
	Conflicts []Conflict     `json:"conflicts"`
	// Unchanged counts matched scenes the parse left as they were.
	Unchanged int `json:"unchanged"`
}

// Changed reports whether the result touched any scene.
func (r Result) Changed() bool {
	return len(r.Updated)+len(r.Created)+len(r.Orphaned) > 0
}

// matchKey is the slugline a ledger scene was last parsed with. Hand edits
// of the slugline do not move the key.
func matchKey(sc domain.Scene) domain.HeadingKey {
	if sc.Base != nil {
		return sc.Base.HeadingKey()
	}
	return sc.HeadingKey()
}

// matcher tracks the pairing of parsed scenes with ledger scenes.
type matcher struct {
	existing []domain.Scene // ordered by number
	parsed   []domain.Scene // ordered by line span

	byNumber   map[string]int
	pairOf     []int        // parsed index -> existing index, -1 if none
	taken      map[int]bool // existing index -> matched
	conflicted map[int]bool // existing index -> named by a conflict
	parsedHeld []bool       // parsed index -> held by a conflict
	conflicts  []Conflict
}

func newMatcher(existing, parsed []domain.Scene) *matcher {
	m := &matcher{
		existing:   existing,
		parsed:     parsed,
		byNumber:   make(map[string]int, len(existing)),
		pairOf:     make([]int, len(parsed)),
		taken:      map[int]bool{},
		conflicted: map[int]bool{},
		parsedHeld: make([]bool, len(parsed)),
	}
	for i, e := range existing {
		m.byNumber[e.Number] = i
	}
	for i := range m.pairOf {
		m.pairOf[i] = -1
	}
	return m
}

func (m *matcher) free(e int) bool { return !m.taken[e] && !m.conflicted[e] }

func (m *matcher) open(p int) bool { return m.pairOf[p] < 0 && !m.parsedHeld[p] }

func (m *matcher) pair(p, e int) {
	m.pairOf[p] = e
	m.taken[e] = true
}

func (m *matcher) addConflict(reason ConflictReason, existing []int, parsed []int) {
	c := Conflict{ID: uuid.New(), Reason: reason}
	for _, e := range existing {
		m.conflicted[e] = true
		c.Existing = append(c.Existing, m.existing[e].Number)
	}
	for _, p := range parsed {
		m.parsedHeld[p] = true
		c.Parsed = append(c.Parsed, m.parsed[p].Clone())
	}
	m.conflicts = append(m.conflicts, c)
}

// byNumberAndKey pairs scenes that kept both their number and their slugline.
func (m *matcher) byNumberAndKey() {
	for p, ps := range m.parsed {
		if e, ok := m.byNumber[ps.Number]; ok && m.free(e) && matchKey(m.existing[e]) == ps.HeadingKey() {
			m.pair(p, e)
		}
	}
}

// byKey pairs renumbered scenes through their slugline. Among several ledger
// scenes with the same slugline the one sharing the most lines wins; a tie is
// a conflict. Several parsed scenes claiming the same ledger scene are decided
// the same way.
func (m *matcher) byKey() {
	claims := map[int][]int{} // existing -> parsed claimants
	for p, ps := range m.parsed {
		if !m.open(p) {
			continue
		}
		var cands []int
		for e, es := range m.existing {
			if m.free(e) && matchKey(es) == ps.HeadingKey() {
				cands = append(cands, e)
			}
		}
		if len(cands) == 0 {
			continue
		}
		top := best(cands, func(e int) int { return ps.Span.Overlap(m.existing[e].Span) })
		if len(top) > 1 {
			m.addConflict(AmbiguousMatch, top, []int{p})
			continue
		}
		claims[top[0]] = append(claims[top[0]], p)
	}
	for e := range m.existing {
		ps, ok := claims[e]
		if !ok || m.conflicted[e] {
			continue
		}
		if len(ps) == 1 {
			m.pair(ps[0], e)
			continue
		}
		top := best(ps, func(p int) int { return m.parsed[p].Span.Overlap(m.existing[e].Span) })
		if len(top) > 1 {
			m.addConflict(AmbiguousMatch, []int{e}, top)
			continue
		}
		m.pair(top[0], e)
	}
}

// best returns the candidates with the highest score.
func best(cands []int, score func(int) int) []int {
	top, out := -1, []int(nil)
	for _, c := range cands {
		switch s := score(c); {
		case s > top:
			top, out = s, []int{c}
		case s == top:
			out = append(out, c)
		}
	}
	return out
}

// byNumberOnly pairs scenes whose slugline was rewritten in the script but whose
// number stayed. Orphaned ledger scenes only come back through their slugline.
func (m *matcher) byNumberOnly() {
	for p, ps := range m.parsed {
		if !m.open(p) {
			continue
		}
		if e, ok := m.byNumber[ps.Number]; ok && m.free(e) && !m.existing[e].Orphaned {
			m.pair(p, e)
		}
	}
}

// relocated holds back parsed scenes that took over the lines of a parsed
// ledger scene under a new number and a new slugline.
func (m *matcher) relocated() {
	for p, ps := range m.parsed {
		if !m.open(p) {
			continue
		}
		var hits []int
		for e, es := range m.existing {
			if m.free(e) && es.Base != nil && !es.Orphaned && ps.Span.Overlaps(es.Span) {
				hits = append(hits, e)
			}
		}
		if len(hits) > 0 {
			m.addConflict(RenumberedAndRelocated, hits, []int{p})
		}
	}
}

// Reconcile merges a fresh parse into the ledger. parsed must be ordered by
// line span. Edited fields survive, unmatched parsed scenes are created,
// parsed ledger scenes missing from the script are marked orphaned, and
// undecidable matches come back as conflicts with the scenes involved left
// unchanged. A cancelled ctx leaves the ledger unchanged.
func (l *Ledger) Reconcile(ctx context.Context, parsed []domain.Scene, sourceHash string) (Result, error) {
	if !l.mu.TryLock() {
		return Result{}, ErrLedgerLocked
	}
	defer l.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	lg := applog.WithOperation(applog.WithComponent("ledger"), "reconcile")

	next := l.state.clone()
	next.conflicts = nil
	m := newMatcher(next.sorted(), parsed)
	m.byNumberAndKey()
	m.byKey()
	m.byNumberOnly()
	m.relocated()

	var res Result
	renamed := map[string]string{}
	prev := ""
	for p, ps := range parsed {
		if m.parsedHeld[p] {
			continue
		}
		if e := m.pairOf[p]; e >= 0 {
			mine := m.existing[e]
			merged := Merge(mine, ps)
			if changed(mine, merged) {
				merged.Revision++
				res.Updated = append(res.Updated, merged.Clone())
			} else {
				res.Unchanged++
			}
			next.scenes[mine.Number] = merged
			prev = mine.Number
			continue
		}
		sc := next.create(ps, prev)
		if sc.Number != ps.Number {
			renamed[ps.Number] = sc.Number
		}
		res.Created = append(res.Created, sc.Clone())
		prev = sc.Number
	}
	for e, es := range m.existing {
		if m.taken[e] || m.conflicted[e] || es.Base == nil || es.Orphaned {
			continue
		}
		es.Orphaned = true
		es.Revision++
		next.scenes[es.Number] = es
		res.Orphaned = append(res.Orphaned, es.Clone())
	}
	next.conflicts = m.conflicts
	res.Conflicts = cloneConflicts(m.conflicts)

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if !res.Changed() && len(res.Conflicts) == 0 && len(l.state.conflicts) == 0 && sourceHash == l.state.sourceHash {
		lg.Debug("no change", slog.Int("scenes", len(parsed)))
		return res, nil
	}
	next.sourceHash = sourceHash
	l.commit(next)
	lg.Info("reconciled",
		slog.Int("parsed", len(parsed)),
		slog.Int("updated", len(res.Updated)),
		slog.Int("created", len(res.Created)),
		slog.Int("orphaned", len(res.Orphaned)),
		slog.Int("conflicts", len(res.Conflicts)),
		slog.Int("unchanged", res.Unchanged),
		slog.Any("renumbered", renamed))
	return res, nil
}

// create inserts parsed scene ps as a new ledger scene placed after prev. It
// keeps the parsed number when free and otherwise takes a letter suffix
// between prev and the scene following it. An empty prev places the scene
// before the lowest label ("0A" ahead of "1").
func (s *state) create(ps domain.Scene, prev string) domain.Scene {
	sc := ps.Clone()
	sc.Origin = domain.OriginParsedOnly
	sc.Revision = 1
	sc.Orphaned = false
	fields := sc.UserFields()
	sc.Base = &fields

	used := func(n string) bool { _, ok := s.scenes[n]; return ok }
	if sc.Number == "" || used(sc.Number) {
		succ := ""
		for n := range s.scenes {
			if (prev == "" || domain.CompareSceneNumbers(n, prev) > 0) && (succ == "" || domain.CompareSceneNumbers(n, succ) < 0) {
				succ = n
			}
		}
		sc.Number = domain.NumberAfter(prev, succ, s.highest(), used)
	}
	s.scenes[sc.Number] = sc
	return sc
}
