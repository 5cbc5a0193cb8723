/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ledger

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"sceneledger/internal/domain"
	applog "sceneledger/internal/log"
)

// ConflictReason says why a match could not be decided automatically.
type ConflictReason int

const (
	// AmbiguousMatch: several parsed scenes match one ledger scene equally
	// well, or one parsed scene matches several ledger scenes equally well.
	AmbiguousMatch ConflictReason = iota + 1
	// RenumberedAndRelocated: a parsed scene occupies the lines of a ledger
	// scene but both its number and its slugline changed.
	RenumberedAndRelocated
)

var reasonNames = map[ConflictReason]string{
	AmbiguousMatch:         "AMBIGUOUS_MATCH",
	RenumberedAndRelocated: "RENUMBERED_AND_RELOCATED",
}

func (r ConflictReason) String() string {
	if s, ok := reasonNames[r]; ok {
		return s
	}
	return fmt.Sprintf("ConflictReason(%d)", int(r))
}

func (r ConflictReason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *ConflictReason) UnmarshalText(b []byte) error {
	for k, v := range reasonNames {
		if v == string(b) {
			*r = k
			return nil
		}
	}
	return fmt.Errorf("unknown conflict reason %q", string(b))
}

// Conflict is a reconcile decision left to the caller. The ledger scenes it
// names are left untouched and its parsed scenes are not applied until the
// conflict is resolved. Pending conflicts are replaced by the next import.
type Conflict struct {
	ID       uuid.UUID      `json:"id"`
	Reason   ConflictReason `json:"reason"`
	Existing []string       `json:"existing"` // ledger scene numbers
	Parsed   []domain.Scene `json:"parsed"`   // candidates, numbered as parsed
}

func (c Conflict) clone() Conflict {
	out := Conflict{ID: c.ID, Reason: c.Reason, Existing: slices.Clone(c.Existing)}
	out.Parsed = make([]domain.Scene, len(c.Parsed))
	for i, p := range c.Parsed {
		out.Parsed[i] = p.Clone()
	}
	return out
}

func cloneConflicts(cs []Conflict) []Conflict {
	var out []Conflict
	for _, c := range cs {
		out = append(out, c.clone())
	}
	return out
}

// DecisionKind selects how a conflict is resolved.
type DecisionKind int

const (
	// DecidePick merges one parsed candidate into one ledger scene; the other
	// candidates are created as new scenes.
	DecidePick DecisionKind = iota + 1
	// DecideCreateAll creates every parsed candidate as a new scene.
	DecideCreateAll
	// DecideKeepExisting drops the parsed candidates.
	DecideKeepExisting
)

// Decision is the caller's answer to a Conflict.
type Decision struct {
	Kind DecisionKind
	// Existing is the ledger scene to merge into; may be empty when the
	// conflict names only one.
	Existing string
	// Parsed indexes Conflict.Parsed.
	Parsed int
}

// Pick returns a decision merging candidate parsed into ledger scene existing.
func Pick(existing string, parsed int) Decision {
	return Decision{Kind: DecidePick, Existing: existing, Parsed: parsed}
}

// CreateAll returns a decision creating every candidate.
func CreateAll() Decision { return Decision{Kind: DecideCreateAll} }

// KeepExisting returns a decision discarding the candidates.
func KeepExisting() Decision { return Decision{Kind: DecideKeepExisting} }

// ResolveConflict applies d to the pending conflict id.
func (l *Ledger) ResolveConflict(id uuid.UUID, d Decision) (Result, error) {
	if !l.mu.TryLock() {
		return Result{}, ErrLedgerLocked
	}
	defer l.mu.Unlock()

	idx := slices.IndexFunc(l.state.conflicts, func(c Conflict) bool { return c.ID == id })
	if idx < 0 {
		return Result{}, fmt.Errorf("resolve %s: %w", id, ErrConflictNotFound)
	}
	next := l.state.clone()
	c := next.conflicts[idx]
	next.conflicts = slices.Delete(next.conflicts, idx, idx+1)

	var res Result
	switch d.Kind {
	case DecidePick:
		target := d.Existing
		if target == "" && len(c.Existing) == 1 {
			target = c.Existing[0]
		}
		if !slices.Contains(c.Existing, target) || d.Parsed < 0 || d.Parsed >= len(c.Parsed) {
			return Result{}, fmt.Errorf("resolve %s: %w", id, ErrInvalidDecision)
		}
		mine, ok := next.scenes[target]
		if !ok {
			return Result{}, fmt.Errorf("resolve %s: scene %q: %w", id, target, ErrSceneNotFound)
		}
		merged := Merge(mine, c.Parsed[d.Parsed])
		if changed(mine, merged) {
			merged.Revision++
			res.Updated = append(res.Updated, merged.Clone())
		} else {
			res.Unchanged++
		}
		next.scenes[target] = merged
		for i, p := range c.Parsed {
			if i != d.Parsed {
				res.Created = append(res.Created, next.create(p, target).Clone())
			}
		}
	case DecideCreateAll:
		after := ""
		if len(c.Existing) > 0 {
			after = c.Existing[len(c.Existing)-1]
		}
		for _, p := range c.Parsed {
			sc := next.create(p, after)
			after = sc.Number
			res.Created = append(res.Created, sc.Clone())
		}
	case DecideKeepExisting:
	default:
		return Result{}, fmt.Errorf("resolve %s: %w", id, ErrInvalidDecision)
	}
	res.Conflicts = cloneConflicts(next.conflicts)
	l.commit(next)
	applog.WithOperation(applog.WithComponent("ledger"), "resolve").Info("conflict resolved",
		slog.String("conflict", id.String()), slog.Int("updated", len(res.Updated)), slog.Int("created", len(res.Created)))
	return res, nil
}
