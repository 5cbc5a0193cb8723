/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestStaticAttrsReachLogFile(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "slg.json")
	Init(Options{Level: "debug", Format: "json", File: fpath, Console: io.Discard})
	t.Cleanup(func() { Init(Options{Level: "info"}) })

	WithOperation(WithComponent("storage"), "save").Info("ledger saved", slog.Int("scenes", 12))

	b, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &m); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	if m["app"] != "sceneledger" {
		t.Fatalf("missing app attr: %v", m["app"])
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr")
	}
	if m["component"] != "storage" || m["op"] != "save" || m["msg"] != "ledger saved" || m["scenes"] != float64(12) {
		t.Fatalf("record = %v", m)
	}
}

func TestEnricherAddsScriptFromContext(t *testing.T) {
	var buf strings.Builder
	Init(Options{Level: "info", Format: "json", Console: &buf})
	t.Cleanup(func() { Init(Options{Level: "info"}) })

	ctx := WithScript(context.Background(), "pilot.fountain")
	WithComponent("importer").InfoContext(ctx, "imported")
	WithComponent("importer").Info("no script")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	var first, second map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &second); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if first["script"] != "pilot.fountain" {
		t.Fatalf("script attr missing: %v", first)
	}
	if _, ok := second["script"]; ok {
		t.Fatalf("unexpected script attr: %v", second)
	}
}
