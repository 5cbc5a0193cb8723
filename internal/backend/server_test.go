/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"sceneledger/internal/ledger"
)

func newTestServer(t *testing.T, ready func(context.Context) error) (*ledger.Ledger, *httptest.Server) {
	t.Helper()
	l := ledger.New()
	if err := l.Restore(testSnapshot()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	ts := httptest.NewServer(NewServer(l, ready).Handler())
	t.Cleanup(ts.Close)
	return l, ts
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestServerHealthAndVersion(t *testing.T) {
	_, ts := newTestServer(t, nil)
	if code, body := get(t, ts.URL+"/healthz"); code != http.StatusOK || body != "ok" {
		t.Fatalf("healthz = %d %q", code, body)
	}
	if code, _ := get(t, ts.URL+"/readyz"); code != http.StatusOK {
		t.Fatalf("readyz = %d", code)
	}
	if code, body := get(t, ts.URL+"/version"); code != http.StatusOK || body == "" {
		t.Fatalf("version = %d %q", code, body)
	}
}

func TestServerNotReady(t *testing.T) {
	_, ts := newTestServer(t, func(context.Context) error { return errors.New("db down") })
	if code, _ := get(t, ts.URL+"/readyz"); code != http.StatusServiceUnavailable {
		t.Fatalf("readyz = %d, want 503", code)
	}
}

func TestClientReadsLedger(t *testing.T) {
	l, ts := newTestServer(t, nil)
	c := NewClient(ts.URL + "/")
	ctx := context.Background()

	list, err := c.ListScenes(ctx)
	if err != nil {
		t.Fatalf("ListScenes: %v", err)
	}
	if list.Generation != 3 || len(list.Scenes) != 3 {
		t.Fatalf("list = gen %d, %d scenes", list.Generation, len(list.Scenes))
	}
	sc, err := c.GetScene(ctx, "2")
	if err != nil {
		t.Fatalf("GetScene: %v", err)
	}
	want, _ := l.Scene("2")
	if !sc.Equal(want) {
		t.Fatalf("scene 2 = %+v, want %+v", sc, want)
	}
	if _, err := c.GetScene(ctx, "42"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("GetScene(42) err = %v, want ErrNotFound", err)
	}
	cs, err := c.ListConflicts(ctx)
	if err != nil || len(cs) != 0 {
		t.Fatalf("ListConflicts = %v, %v", cs, err)
	}
}

func TestServerFollowsLedger(t *testing.T) {
	l, ts := newTestServer(t, nil)
	c := NewClient(ts.URL)
	ctx := context.Background()
	if err := l.Delete("3"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := l.Reconcile(ctx, testSnapshot().Scenes[:1], "zzz"); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	list, err := c.ListScenes(ctx)
	if err != nil {
		t.Fatalf("ListScenes: %v", err)
	}
	for _, sc := range list.Scenes {
		if sc.Number == "3" {
			t.Fatalf("deleted scene still served")
		}
	}
	if list.SourceHash != "zzz" {
		t.Fatalf("source hash = %q", list.SourceHash)
	}
	code, body := get(t, ts.URL+"/api/scenes/3")
	if code != http.StatusNotFound || !strings.Contains(body, "scene not found") {
		t.Fatalf("GET deleted scene = %d %q", code, body)
	}
}
