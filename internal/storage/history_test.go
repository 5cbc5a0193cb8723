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

	"sceneledger/internal/domain"
	"sceneledger/internal/ledger"
)

func TestEditHistoryAcrossOpens(t *testing.T) {
	ctx := context.Background()
	path := DefaultPath(t.TempDir())
	st, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	l := ledger.New()
	if err := l.Restore(sampleSnapshot()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if _, err := l.Edit("1", func(f *domain.UserFields) error { f.Location = "DINER"; return nil }); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if err := l.Save(ctx, st); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	st, err = Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer st.Close()
	again, err := ledger.Load(ctx, st)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	sc, err := again.Undo("1")
	if err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if sc.Location != "COFFEE SHOP" {
		t.Fatalf("undo restored %q", sc.Location)
	}

	// The history is cleared once nothing is left to undo or redo.
	if _, err := again.Redo("1"); err != nil {
		t.Fatalf("Redo: %v", err)
	}
	if _, err := again.Undo("1"); err != nil {
		t.Fatalf("Undo: %v", err)
	}
	if err := again.Delete("1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := again.Save(ctx, st); err != nil {
		t.Fatalf("Save: %v", err)
	}
	h, err := st.LoadHistory(ctx)
	if err != nil || !h.Empty() {
		t.Fatalf("history after delete = %+v, %v", h, err)
	}
}
