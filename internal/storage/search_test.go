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
	"strings"
	"testing"

	"sceneledger/internal/domain"
)

func TestSearchScenes(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	if err := st.SaveLedger(ctx, sampleSnapshot()); err != nil {
		t.Fatalf("SaveLedger: %v", err)
	}
	numbers := func(rs []SearchResult) []string {
		var out []string
		for _, r := range rs {
			out = append(out, r.Number)
		}
		return out
	}

	res, err := st.SearchScenes(ctx, SearchQuery{Text: "rain"})
	if err != nil {
		t.Fatalf("fts search: %v", err)
	}
	if len(res) != 1 || res[0].Number != "2" || !strings.Contains(res[0].Snippet, "[rain]") {
		t.Fatalf("rain search = %+v", res)
	}
	if res[0].Scene.Location != "CITY STREET" || !res[0].Scene.Elements.Has(domain.CategoryCast, "MARCUS") {
		t.Fatalf("decoded scene = %+v", res[0].Scene)
	}

	res, err = st.SearchScenes(ctx, SearchQuery{Character: "marcus"})
	if err != nil || len(res) != 3 {
		t.Fatalf("character search = %v, %v", numbers(res), err)
	}
	// whole names only
	res, err = st.SearchScenes(ctx, SearchQuery{Character: "MARC"})
	if err != nil || len(res) != 0 {
		t.Fatalf("partial character search = %v, %v", numbers(res), err)
	}
	res, err = st.SearchScenes(ctx, SearchQuery{Character: "Dr. Webb", Location: "secret lab"})
	if err != nil || len(res) != 1 || res[0].Number != "3" {
		t.Fatalf("combined search = %v, %v", numbers(res), err)
	}
	res, err = st.SearchScenes(ctx, SearchQuery{Tags: []string{"vehicle:SEDAN", "sfx:rain"}})
	if err != nil || len(res) != 1 || res[0].Number != "2" {
		t.Fatalf("tag search = %v, %v", numbers(res), err)
	}
	if _, err := st.SearchScenes(ctx, SearchQuery{Tags: []string{"weather:rain"}}); err == nil {
		t.Fatalf("unknown category accepted")
	}
	res, err = st.SearchScenes(ctx, SearchQuery{Limit: 1, Offset: 1})
	if err != nil || len(res) != 1 || res[0].Number != "2" {
		t.Fatalf("paged search = %v, %v", numbers(res), err)
	}
}

func TestSearchFollowsSaves(t *testing.T) {
	st := openTestStore(t)
	ctx := context.Background()
	snap := sampleSnapshot()
	if err := st.SaveLedger(ctx, snap); err != nil {
		t.Fatal(err)
	}
	snap.Scenes = snap.Scenes[:1]
	if err := st.SaveLedger(ctx, snap); err != nil {
		t.Fatal(err)
	}
	res, err := st.SearchScenes(ctx, SearchQuery{Text: "rain"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 0 {
		t.Fatalf("stale fts rows: %+v", res)
	}
	res, err = st.SearchScenes(ctx, SearchQuery{Text: "coffee"})
	if err != nil || len(res) != 1 {
		t.Fatalf("coffee = %+v, %v", res, err)
	}
}
