/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package ledger is the persistent, addressable store of scenes. It merges
// freshly parsed scenes into existing, possibly hand-edited records and is the
// only mutable shared state of an import.
//
// Writes are single-writer: a write that finds the ledger busy fails with
// ErrLedgerLocked instead of waiting. Readers take a Snapshot, which is the
// state published at the end of the last completed write.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"sceneledger/internal/domain"
	applog "sceneledger/internal/log"
	"sceneledger/internal/undo"
)

// Snapshot is an immutable view of the ledger. Scenes are ordered by scene
// number.
type Snapshot struct {
	Generation uint64         `json:"generation"`
	SourceHash string         `json:"sourceHash,omitempty"`
	Scenes     []domain.Scene `json:"scenes"`
	Conflicts  []Conflict     `json:"conflicts,omitempty"`
}

// Scene returns the scene with the given number.
func (s *Snapshot) Scene(number string) (domain.Scene, bool) {
	for _, sc := range s.Scenes {
		if sc.Number == number {
			return sc.Clone(), true
		}
	}
	return domain.Scene{}, false
}

// Clone returns a deep copy.
func (s *Snapshot) Clone() *Snapshot {
	c := &Snapshot{Generation: s.Generation, SourceHash: s.SourceHash}
	c.Scenes = make([]domain.Scene, len(s.Scenes))
	for i, sc := range s.Scenes {
		c.Scenes[i] = sc.Clone()
	}
	for _, cf := range s.Conflicts {
		c.Conflicts = append(c.Conflicts, cf.clone())
	}
	return c
}

// Store persists ledger snapshots.
type Store interface {
	// LoadLedger returns the stored snapshot, or nil for an empty store.
	LoadLedger(ctx context.Context) (*Snapshot, error)
	SaveLedger(ctx context.Context, s *Snapshot) error
}

// HistoryStore is implemented by stores that also keep the edit history, so
// Undo works across processes.
type HistoryStore interface {
	LoadHistory(ctx context.Context) (undo.History, error)
	SaveHistory(ctx context.Context, h undo.History) error
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithUndo sets the edit history caps.
func WithUndo(cfg undo.Config) Option {
	return func(l *Ledger) { l.history = undo.NewManager(cfg) }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// Ledger holds the scenes of one script.
type Ledger struct {
	mu      sync.Mutex
	state   state
	history *undo.Manager
	now     func() time.Time
	snap    atomic.Pointer[Snapshot]
}

// state is the mutable part of the ledger. Writers copy it, change the copy
// and swap it in on success.
type state struct {
	gen        uint64
	sourceHash string
	scenes     map[string]domain.Scene
	conflicts  []Conflict
}

func (s state) clone() state {
	c := state{gen: s.gen, sourceHash: s.sourceHash, scenes: make(map[string]domain.Scene, len(s.scenes))}
	for k, v := range s.scenes {
		c.scenes[k] = v.Clone()
	}
	for _, cf := range s.conflicts {
		c.conflicts = append(c.conflicts, cf.clone())
	}
	return c
}

// sorted returns the scenes ordered by number.
func (s state) sorted() []domain.Scene {
	out := make([]domain.Scene, 0, len(s.scenes))
	for _, sc := range s.scenes {
		out = append(out, sc)
	}
	slices.SortFunc(out, func(a, b domain.Scene) int { return domain.CompareSceneNumbers(a.Number, b.Number) })
	return out
}

func (s state) highest() int {
	h := 0
	for n := range s.scenes {
		if v, _, ok := domain.SplitSceneNumber(n); ok && v > h {
			h = v
		}
	}
	return h
}

// New returns an empty ledger.
func New(opts ...Option) *Ledger {
	l := &Ledger{state: state{scenes: map[string]domain.Scene{}}, now: time.Now}
	for _, o := range opts {
		o(l)
	}
	if l.history == nil {
		l.history = undo.NewManager(undo.Config{})
	}
	l.publish()
	return l
}

// Load builds a ledger from the snapshot held by store.
func Load(ctx context.Context, store Store, opts ...Option) (*Ledger, error) {
	l := New(opts...)
	snap, err := store.LoadLedger(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	if snap != nil {
		if err := l.Restore(snap); err != nil {
			return nil, err
		}
	}
	if hs, ok := store.(HistoryStore); ok {
		h, err := hs.LoadHistory(ctx)
		if err != nil {
			return nil, fmt.Errorf("load edit history: %w", err)
		}
		l.RestoreHistory(h)
	}
	return l, nil
}

// Save writes the current snapshot to store.
func (l *Ledger) Save(ctx context.Context, store Store) error {
	if err := store.SaveLedger(ctx, l.Snapshot()); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	if hs, ok := store.(HistoryStore); ok {
		if err := hs.SaveHistory(ctx, l.History()); err != nil {
			return fmt.Errorf("save edit history: %w", err)
		}
		size, scenes, snapshots := l.history.Stats()
		applog.WithOperation(applog.WithComponent("ledger"), "save").DebugContext(ctx, "edit history saved",
			slog.Int("scenes", scenes), slog.Int("snapshots", snapshots), slog.Int("bytes", size))
	}
	return nil
}

// History returns a copy of the edit history.
func (l *Ledger) History() undo.History {
	return l.history.Export()
}

// RestoreHistory replaces the edit history with h. Stacks of scenes that are
// not in the ledger are dropped.
func (l *Ledger) RestoreHistory(h undo.History) {
	snap := l.snap.Load()
	keep := func(m map[string][]undo.Snapshot) map[string][]undo.Snapshot {
		out := map[string][]undo.Snapshot{}
		for n, stack := range m {
			if _, ok := snap.Scene(n); ok {
				out[n] = stack
			}
		}
		return out
	}
	l.history.Import(undo.History{Undo: keep(h.Undo), Redo: keep(h.Redo)})
}

// Restore replaces the ledger content with snap. Edit history is dropped.
func (l *Ledger) Restore(snap *Snapshot) error {
	if !l.mu.TryLock() {
		return ErrLedgerLocked
	}
	defer l.mu.Unlock()
	next := state{gen: snap.Generation, sourceHash: snap.SourceHash, scenes: make(map[string]domain.Scene, len(snap.Scenes))}
	for _, sc := range snap.Scenes {
		if sc.Number == "" {
			return fmt.Errorf("restore: scene without number: %w", ErrInvalidScene)
		}
		if _, dup := next.scenes[sc.Number]; dup {
			return fmt.Errorf("restore: scene %q: %w", sc.Number, ErrDuplicateSceneNumber)
		}
		next.scenes[sc.Number] = sc.Clone()
	}
	for _, cf := range snap.Conflicts {
		next.conflicts = append(next.conflicts, cf.clone())
	}
	l.state = next
	l.history.Reset()
	l.publish()
	return nil
}

// Snapshot returns the state published by the last completed write.
func (l *Ledger) Snapshot() *Snapshot {
	return l.snap.Load().Clone()
}

// Scene returns one scene from the current snapshot.
func (l *Ledger) Scene(number string) (domain.Scene, bool) {
	return l.snap.Load().Scene(number)
}

// Conflicts returns the pending conflicts.
func (l *Ledger) Conflicts() []Conflict {
	return l.Snapshot().Conflicts
}

// publish must be called with mu held or before the ledger is shared.
func (l *Ledger) publish() {
	c := l.state.clone()
	l.snap.Store(&Snapshot{Generation: c.gen, SourceHash: c.sourceHash, Scenes: c.sorted(), Conflicts: c.conflicts})
}

// commit swaps in next and publishes it.
func (l *Ledger) commit(next state) {
	next.gen = l.state.gen + 1
	l.state = next
	l.publish()
}

// editState is what the edit history records for a scene.
type editState struct {
	Fields domain.UserFields `json:"fields"`
	Origin domain.Origin     `json:"origin"`
}

func (l *Ledger) encodeEdit(sc domain.Scene) (undo.Snapshot, error) {
	b, err := json.Marshal(editState{Fields: sc.UserFields(), Origin: sc.Origin})
	if err != nil {
		return undo.Snapshot{}, fmt.Errorf("encode history for %q: %w", sc.Number, err)
	}
	return undo.Snapshot{Scene: sc.Number, Blob: b, TS: l.now()}, nil
}

// Edit applies a manual change to the user-set fields of a scene. A field
// change marks the scene as manually edited and bumps its revision; a no-op
// edit leaves the scene untouched.
func (l *Ledger) Edit(number string, fn func(*domain.UserFields) error) (domain.Scene, error) {
	if !l.mu.TryLock() {
		return domain.Scene{}, ErrLedgerLocked
	}
	defer l.mu.Unlock()
	sc, ok := l.state.scenes[number]
	if !ok {
		return domain.Scene{}, fmt.Errorf("edit %q: %w", number, ErrSceneNotFound)
	}
	fields := sc.UserFields()
	if err := fn(&fields); err != nil {
		return domain.Scene{}, fmt.Errorf("edit %q: %w", number, err)
	}
	fields.Location = strings.Join(strings.Fields(fields.Location), " ")
	if fields.Equal(sc.UserFields()) {
		return sc.Clone(), nil
	}
	prev, err := l.encodeEdit(sc)
	if err != nil {
		return domain.Scene{}, fmt.Errorf("edit %q: %w", number, err)
	}
	l.history.PushSnapshot(prev)

	next := l.state.clone()
	edited := next.scenes[number]
	edited.SetUserFields(fields)
	if edited.Origin == domain.OriginParsedOnly {
		edited.Origin = domain.OriginManuallyEdited
	}
	edited.Revision++
	next.scenes[number] = edited
	l.commit(next)
	applog.WithOperation(applog.WithComponent("ledger"), "edit").Info("scene edited",
		slog.String("scene", number), slog.Uint64("revision", edited.Revision))
	return edited.Clone(), nil
}

// Undo reverts the last manual edit of a scene.
func (l *Ledger) Undo(number string) (domain.Scene, error) {
	return l.step(number, "undo")
}

// Redo reapplies the last undone edit of a scene.
func (l *Ledger) Redo(number string) (domain.Scene, error) {
	return l.step(number, "redo")
}

func (l *Ledger) step(number, op string) (domain.Scene, error) {
	if !l.mu.TryLock() {
		return domain.Scene{}, ErrLedgerLocked
	}
	defer l.mu.Unlock()
	sc, ok := l.state.scenes[number]
	if !ok {
		return domain.Scene{}, fmt.Errorf("%s %q: %w", op, number, ErrSceneNotFound)
	}
	current, err := l.encodeEdit(sc)
	if err != nil {
		return domain.Scene{}, fmt.Errorf("%s %q: %w", op, number, err)
	}
	var (
		snap  undo.Snapshot
		found bool
	)
	if op == "undo" {
		snap, found = l.history.Undo(number, current)
		if !found {
			return domain.Scene{}, fmt.Errorf("undo %q: %w", number, ErrNothingToUndo)
		}
	} else {
		snap, found = l.history.Redo(number, current)
		if !found {
			return domain.Scene{}, fmt.Errorf("redo %q: %w", number, ErrNothingToRedo)
		}
	}
	var es editState
	if err := json.Unmarshal(snap.Blob, &es); err != nil {
		return domain.Scene{}, fmt.Errorf("%s %q: decode history: %w", op, number, err)
	}
	next := l.state.clone()
	restored := next.scenes[number]
	restored.SetUserFields(es.Fields)
	restored.Origin = es.Origin
	restored.Revision++
	next.scenes[number] = restored
	l.commit(next)
	return restored.Clone(), nil
}

// AddManual inserts a hand-made scene. An empty number takes the next free
// integer. Hand-made scenes are never orphaned by a later import.
func (l *Ledger) AddManual(sc domain.Scene) (domain.Scene, error) {
	if !l.mu.TryLock() {
		return domain.Scene{}, ErrLedgerLocked
	}
	defer l.mu.Unlock()
	sc = sc.Clone()
	sc.Number = strings.ToUpper(strings.TrimSpace(sc.Number))
	if sc.Number == "" {
		sc.Number = strconv.Itoa(l.state.highest() + 1)
	}
	if strings.ContainsAny(sc.Number, " \t") {
		return domain.Scene{}, fmt.Errorf("add %q: %w", sc.Number, ErrInvalidScene)
	}
	if _, dup := l.state.scenes[sc.Number]; dup {
		return domain.Scene{}, fmt.Errorf("add %q: %w", sc.Number, ErrDuplicateSceneNumber)
	}
	sc.Origin = domain.OriginManuallyEdited
	sc.Revision = 1
	sc.Base = nil
	sc.Orphaned = false
	for _, n := range sc.Cast {
		sc.Elements.Add(domain.CategoryCast, n)
	}
	if sc.Location != "" {
		sc.Elements.Add(domain.CategoryLocation, sc.Location)
	}
	next := l.state.clone()
	next.scenes[sc.Number] = sc
	l.commit(next)
	return sc.Clone(), nil
}

// Delete removes a scene by hand. Imports never delete scenes themselves.
func (l *Ledger) Delete(number string) error {
	if !l.mu.TryLock() {
		return ErrLedgerLocked
	}
	defer l.mu.Unlock()
	if _, ok := l.state.scenes[number]; !ok {
		return fmt.Errorf("delete %q: %w", number, ErrSceneNotFound)
	}
	next := l.state.clone()
	delete(next.scenes, number)
	l.commit(next)
	l.history.Clear(number)
	return nil
}
