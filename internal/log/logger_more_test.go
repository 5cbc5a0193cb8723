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
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func resetLogger(t *testing.T) {
	t.Helper()
	t.Cleanup(func() { Init(Options{Level: "info"}) })
}

func TestWithEnvOverridesConfiguredOptions(t *testing.T) {
	t.Setenv(EnvLevel, "debug")
	t.Setenv(EnvSource, "true")
	t.Setenv(EnvFormat, "")
	t.Setenv(EnvFile, "  ")

	cfg := Options{Level: "info", Format: "console", File: "ledger.log"}
	got := cfg.WithEnv()
	if got.Level != "debug" || !got.AddSource {
		t.Fatalf("env should win for level and source: %+v", got)
	}
	if got.Format != "console" || got.File != "ledger.log" {
		t.Fatalf("unset env should keep configured values: %+v", got)
	}

	t.Setenv(EnvSource, "false")
	if (Options{AddSource: true}).WithEnv().AddSource {
		t.Fatalf("SLG_LOG_SOURCE=false should switch source off")
	}
	if o := FromEnv(); o.Level != "debug" || o.File != "" {
		t.Fatalf("FromEnv = %+v", o)
	}
}

func TestConsoleLineCarriesScopeAndScript(t *testing.T) {
	var buf strings.Builder
	Init(Options{Level: "info", Console: &buf})
	resetLogger(t)

	ctx := WithScript(context.Background(), "pilot.fountain")
	WithOperation(WithComponent("ledger"), "edit").InfoContext(ctx, "scene edited",
		slog.String("location", "COFFEE SHOP"), slog.Int("revision", 2))

	out := buf.String()
	for _, want := range []string{" INF [ledger/edit] scene edited", `location="COFFEE SHOP"`, "revision=2", "script=pilot.fountain"} {
		if !strings.Contains(out, want) {
			t.Fatalf("console line %q missing %q", out, want)
		}
	}
	if strings.Contains(out, "app=") || strings.Contains(out, "ver=") {
		t.Fatalf("static attrs should stay out of the console: %q", out)
	}
	if strings.Count(out, "\n") != 1 {
		t.Fatalf("expected a single line, got %q", out)
	}
}

func TestConsoleFiltersLevelAndPrefixesGroups(t *testing.T) {
	var buf strings.Builder
	Init(Options{Level: "warn", Console: &buf})
	resetLogger(t)

	WithComponent("importer").Info("parsed", slog.Int("scenes", 5))
	if buf.Len() != 0 {
		t.Fatalf("info logged at warn level: %q", buf.String())
	}
	WithComponent("importer").WithGroup("pages").Warn("estimate capped",
		slog.Int("eighths", 9), slog.Group("span", slog.Int("start", 3), slog.Int("end", 40)))
	out := buf.String()
	if !strings.Contains(out, "WRN [importer] estimate capped") {
		t.Fatalf("unexpected line: %q", out)
	}
	if !strings.Contains(out, "pages.eighths=9") || !strings.Contains(out, "pages.span.start=3 pages.span.end=40") {
		t.Fatalf("group keys not prefixed: %q", out)
	}
}

func TestFileAndConsoleBothReceiveRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sceneledger.log")
	var buf strings.Builder
	Init(Options{Level: "debug", Format: "json", Console: &buf, File: path})
	resetLogger(t)

	ctx := WithScript(context.Background(), "draft2.txt")
	WithOperation(WithComponent("ledger"), "save").DebugContext(ctx, "history retained", slog.Int("snapshots", 3))

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	for name, line := range map[string]string{"console": buf.String(), "file": string(b)} {
		var m map[string]any
		if err := json.Unmarshal([]byte(strings.TrimSpace(line)), &m); err != nil {
			t.Fatalf("%s output %q: %v", name, line, err)
		}
		if m["script"] != "draft2.txt" || m["op"] != "save" || m["snapshots"] != float64(3) || m["app"] != "sceneledger" {
			t.Fatalf("%s record = %v", name, m)
		}
	}
}
