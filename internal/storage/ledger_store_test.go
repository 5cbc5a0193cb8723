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
	"testing"
	"time"

	"sceneledger/internal/domain"
	"sceneledger/internal/ledger"
)

func storedScene(num string, ie domain.IntExt, loc string, tod domain.TimeOfDay, cast []string, start, end int) domain.Scene {
	sc := domain.Scene{
		Number: num, IntExt: ie, Location: loc, TimeOfDay: tod,
		Synopsis: "Something happens at the " + loc + ".",
		Cast:     cast,
		Span:     domain.LineSpan{Start: start, End: end},
		Pages:    domain.Eighths(3),
		Revision: 1,
		Origin:   domain.OriginParsedOnly,
	}
	for _, c := range cast {
		sc.Elements.Add(domain.CategoryCast, c)
	}
	sc.Elements.Add(domain.CategoryLocation, loc)
	base := sc.UserFields()
	sc.Base = &base
	return sc
}

func sampleSnapshot() *ledger.Snapshot {
	rain := storedScene("2", domain.Exterior, "CITY STREET", domain.Night, []string{"MARCUS", "AGENT K"}, 11, 20)
	rain.Elements.Add(domain.CategorySFX, "rain")
	rain.Elements.Add(domain.CategoryVehicle, "sedan")
	edited := storedScene("3", domain.Interior, "LABORATORY", domain.Day, []string{"DR. WEBB", "MARCUS"}, 21, 30)
	edited.Location = "SECRET LAB"
	edited.Origin = domain.OriginManuallyEdited
	edited.Revision = 4
	return &ledger.Snapshot{
		Generation: 7,
		SourceHash: "deadbeef",
		Scenes: []domain.Scene{
			storedScene("1", domain.Interior, "COFFEE SHOP", domain.Day, []string{"MARCUS", "ELENA"}, 0, 10),
			rain,
			edited,
		},
	}
}

func TestLoadLedgerEmptyStore(t *testing.T) {
	st := openTestStore(t)
	snap, err := st.LoadLedger(context.Background())
	if err != nil || snap != nil {
		t.Fatalf("empty store = %+v, %v", snap, err)
	}
	l, err := ledger.Load(context.Background(), st)
	if err != nil {
		t.Fatalf("ledger.Load: %v", err)
	}
	if len(l.Snapshot().Scenes) != 0 {
		t.Fatalf("expected empty ledger")
	}
}

func TestSaveAndLoadLedger(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	in := sampleSnapshot()
	l := ledger.New()
	if err := l.Restore(in); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	conflicted, err := l.Reconcile(ctx, []domain.Scene{
		storedScene("9", domain.Exterior, "ALLEY", domain.Dusk, nil, 11, 20),
	}, "cafe")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(conflicted.Conflicts) != 1 {
		t.Fatalf("setup: expected one conflict, got %+v", conflicted)
	}
	if err := l.Save(ctx, st); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// saving twice replaces instead of appending
	if err := l.Save(ctx, st); err != nil {
		t.Fatalf("Save again: %v", err)
	}

	back, err := ledger.Load(ctx, st)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want, got := l.Snapshot(), back.Snapshot()
	if got.Generation != want.Generation || got.SourceHash != "cafe" || len(got.Scenes) != len(want.Scenes) {
		t.Fatalf("loaded gen=%d hash=%q scenes=%d, want gen=%d scenes=%d", got.Generation, got.SourceHash, len(got.Scenes), want.Generation, len(want.Scenes))
	}
	for i := range want.Scenes {
		if !got.Scenes[i].Equal(want.Scenes[i]) {
			t.Fatalf("scene %d differs:\n got %+v\nwant %+v", i, got.Scenes[i], want.Scenes[i])
		}
	}
	if len(got.Conflicts) != 1 || got.Conflicts[0].ID != want.Conflicts[0].ID || got.Conflicts[0].Reason != ledger.RenumberedAndRelocated {
		t.Fatalf("conflicts = %+v", got.Conflicts)
	}
	// a loaded conflict can still be resolved
	if _, err := back.ResolveConflict(got.Conflicts[0].ID, ledger.KeepExisting()); err != nil {
		t.Fatalf("ResolveConflict after load: %v", err)
	}
}

func TestImportHistory(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	t0 := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, id := range []string{"a", "b", "c"} {
		rec := domain.ImportRecord{ID: id, ParsedAt: t0.Add(time.Duration(i) * time.Hour), SourceHash: "h" + id, Scenes: 5, Created: 5 - i}
		if err := st.RecordImport(ctx, rec); err != nil {
			t.Fatalf("RecordImport: %v", err)
		}
	}
	recs, err := st.ListImports(ctx, 2)
	if err != nil {
		t.Fatalf("ListImports: %v", err)
	}
	if len(recs) != 2 || recs[0].ID != "c" || recs[1].ID != "b" {
		t.Fatalf("imports = %+v", recs)
	}
	if !recs[0].ParsedAt.Equal(t0.Add(2*time.Hour)) || recs[0].Created != 3 {
		t.Fatalf("record = %+v", recs[0])
	}
	if err := st.RecordImport(ctx, domain.ImportRecord{ID: "a", ParsedAt: t0}); err == nil {
		t.Fatalf("duplicate import id accepted")
	}
}

func TestScriptSnapshots(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	now := time.Now()
	if latest, err := st.LatestScriptSnapshot(ctx); err != nil || latest != nil {
		t.Fatalf("empty latest = %+v, %v", latest, err)
	}
	for i, txt := range []string{"one", "two", "three"} {
		saved, err := st.SaveScriptSnapshot(ctx, "h-"+txt, txt, now.Add(time.Duration(i)*time.Second))
		if err != nil || !saved {
			t.Fatalf("save %q: %v, %v", txt, saved, err)
		}
	}
	if saved, err := st.SaveScriptSnapshot(ctx, "h-three", "three", now.Add(time.Minute)); err != nil || saved {
		t.Fatalf("same hash saved again: %v, %v", saved, err)
	}
	latest, err := st.LatestScriptSnapshot(ctx)
	if err != nil || latest == nil || latest.Text != "three" || latest.Hash != "h-three" {
		t.Fatalf("latest = %+v, %v", latest, err)
	}
	n, err := st.PruneOldScriptSnapshots(ctx, 2)
	if err != nil || n != 1 {
		t.Fatalf("prune = %d, %v", n, err)
	}
	list, err := st.ListScriptSnapshots(ctx, 10)
	if err != nil || len(list) != 2 || list[1].Text != "two" {
		t.Fatalf("list = %+v, %v", list, err)
	}
}
