/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sceneledger/internal/domain"
	"sceneledger/internal/ledger"
	"sceneledger/internal/storage"
)

const testScript = `INT. COFFEE SHOP - DAY

MARCUS enters the busy coffee shop. He spots ELENA in the corner booth.

MARCUS
I need to find her before they do.

ELENA
You're late.

EXT. CITY STREET - NIGHT

Rain pours down as MARCUS runs through the empty streets. A black sedan follows.

INT. WAREHOUSE - NIGHT

MARCUS and ELENA face each other in the dim light.
`

type cliEnv struct {
	dir    string
	ledger string
	script string
}

func newCLIEnv(t *testing.T) cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("SLG_CONFIG", filepath.Join(dir, "missing.yaml"))
	t.Setenv("SLG_LOG_LEVEL", "error")
	script := filepath.Join(dir, "script.txt")
	if err := os.WriteFile(script, []byte(testScript), 0o644); err != nil {
		t.Fatal(err)
	}
	return cliEnv{dir: dir, ledger: filepath.Join(dir, "ledger.sqlite"), script: script}
}

func (e cliEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--ledger", e.ledger}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e cliEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	if err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out
}

func (e cliEnv) scenes(t *testing.T) []domain.Scene {
	t.Helper()
	var scenes []domain.Scene
	if err := json.Unmarshal([]byte(e.mustRun(t, "scenes", "--json")), &scenes); err != nil {
		t.Fatalf("decode scenes: %v", err)
	}
	return scenes
}

func TestImportListAndReimport(t *testing.T) {
	e := newCLIEnv(t)
	out := e.mustRun(t, "import", e.script)
	if !strings.Contains(out, "COFFEE SHOP") {
		t.Fatalf("import output:\n%s", out)
	}
	scenes := e.scenes(t)
	if len(scenes) != 3 || scenes[1].Number != "2" || scenes[1].Location != "CITY STREET" {
		t.Fatalf("scenes = %+v", scenes)
	}
	if !scenes[1].Elements.Has(domain.CategorySFX, "rain") {
		t.Fatalf("scene 2 elements = %v", scenes[1].Elements)
	}
	if out := e.mustRun(t, "import", e.script); !strings.Contains(out, "No changes") {
		t.Fatalf("reimport output:\n%s", out)
	}

	var recs []domain.ImportRecord
	if err := json.Unmarshal([]byte(e.mustRun(t, "history", "--json")), &recs); err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 || recs[0].Scenes != 3 {
		t.Fatalf("history = %+v", recs)
	}
}

func TestDryRunLeavesLedgerEmpty(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun(t, "import", "--dry-run", e.script)
	if out := e.mustRun(t, "scenes"); !strings.Contains(out, "No scenes") {
		t.Fatalf("scenes after dry run:\n%s", out)
	}
}

func TestEditUndoRedoAcrossInvocations(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun(t, "import", e.script)
	e.mustRun(t, "edit", "2", "--location", "DOWNTOWN", "--add-tag", "WARDROBE=trench coat")

	var sc domain.Scene
	if err := json.Unmarshal([]byte(e.mustRun(t, "show", "2", "--json")), &sc); err != nil {
		t.Fatal(err)
	}
	if sc.Location != "DOWNTOWN" || !sc.Elements.Has(domain.CategoryWardrobe, "trench coat") {
		t.Fatalf("edited scene = %+v", sc)
	}

	// The edit survives a reimport of the unchanged script.
	e.mustRun(t, "import", e.script)
	if got := e.scenes(t)[1].Location; got != "DOWNTOWN" {
		t.Fatalf("location after reimport = %q", got)
	}

	e.mustRun(t, "undo", "2")
	if got := e.scenes(t)[1].Location; got != "CITY STREET" {
		t.Fatalf("location after undo = %q", got)
	}
	e.mustRun(t, "redo", "2")
	if got := e.scenes(t)[1].Location; got != "DOWNTOWN" {
		t.Fatalf("location after redo = %q", got)
	}
	_, err := e.run(t, "redo", "2")
	if !errors.Is(err, ledger.ErrNothingToRedo) {
		t.Fatalf("second redo err = %v", err)
	}
}

func TestShowUnknownScene(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun(t, "import", e.script)
	if _, err := e.run(t, "show", "9"); !errors.Is(err, ledger.ErrSceneNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestAddAndDelete(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun(t, "import", e.script)
	e.mustRun(t, "add", "ROOFTOP", "--int-ext", "EXT", "--time", "NIGHT", "--cast", "ELENA")
	scenes := e.scenes(t)
	if len(scenes) != 4 || scenes[3].Location != "ROOFTOP" {
		t.Fatalf("after add = %+v", scenes)
	}
	e.mustRun(t, "delete", scenes[3].Number)
	if n := len(e.scenes(t)); n != 3 {
		t.Fatalf("after delete %d scenes", n)
	}
}

func TestSearch(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun(t, "import", e.script)
	var res []storage.SearchResult
	if err := json.Unmarshal([]byte(e.mustRun(t, "search", "rain", "--json")), &res); err != nil {
		t.Fatal(err)
	}
	if len(res) != 1 || res[0].Number != "2" {
		t.Fatalf("search rain = %+v", res)
	}
	out := e.mustRun(t, "search", "--character", "ELENA")
	if !strings.Contains(out, "COFFEE SHOP") || strings.Contains(out, "CITY STREET") {
		t.Fatalf("search by character:\n%s", out)
	}
	if _, err := e.run(t, "search"); err == nil {
		t.Fatal("empty search accepted")
	}
}

func TestExportAndRestore(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun(t, "import", e.script)
	path := filepath.Join(e.dir, "out", "ledger.json")
	e.mustRun(t, "export", path)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := storage.ValidateExport(data); err != nil {
		t.Fatalf("export invalid: %v", err)
	}

	e.mustRun(t, "delete", "3")
	if n := len(e.scenes(t)); n != 2 {
		t.Fatalf("after delete %d scenes", n)
	}
	e.mustRun(t, "restore", path)
	if n := len(e.scenes(t)); n != 3 {
		t.Fatalf("after restore %d scenes", n)
	}
}

func TestConflictsEmpty(t *testing.T) {
	e := newCLIEnv(t)
	e.mustRun(t, "import", e.script)
	if out := e.mustRun(t, "conflicts"); !strings.Contains(out, "No pending conflicts") {
		t.Fatalf("conflicts:\n%s", out)
	}
	if _, err := e.run(t, "resolve", "0000", "--keep"); !errors.Is(err, ledger.ErrConflictNotFound) {
		t.Fatalf("resolve unknown err = %v", err)
	}
}

func TestVersionSkipsConfig(t *testing.T) {
	e := newCLIEnv(t)
	// An invalid driver fails every command that loads the config.
	t.Setenv("SLG_LEDGER_DRIVER", "bogus")
	out := e.mustRun(t, "version")
	if strings.TrimSpace(out) == "" {
		t.Fatal("empty version")
	}
	if _, err := e.run(t, "scenes"); err == nil {
		t.Fatal("bogus driver accepted")
	}
}
