/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type ParserConfig struct {
	LinesPerPage  int    `yaml:"lines_per_page" env:"SLG_LINES_PER_PAGE"`
	ActionWidth   int    `yaml:"action_width" env:"SLG_ACTION_WIDTH"`
	DialogueWidth int    `yaml:"dialogue_width" env:"SLG_DIALOGUE_WIDTH"`
	SynopsisMax   int    `yaml:"synopsis_max" env:"SLG_SYNOPSIS_MAX"`
	LexiconFile   string `yaml:"lexicon_file" env:"SLG_LEXICON_FILE"`
	Parallel      int    `yaml:"parallel" env:"SLG_PARALLEL"`
}

type LedgerConfig struct {
	Driver  string `yaml:"driver" env:"SLG_LEDGER_DRIVER"` // "sqlite" | "postgres"
	Path    string `yaml:"path" env:"SLG_LEDGER_PATH"`     // sqlite file; empty means <cwd>/.sceneledger/ledger.sqlite
	DSN     string `yaml:"dsn" env:"SLG_PG_DSN"`
	Project string `yaml:"project" env:"SLG_PROJECT"`
	// ServeAddr is the listen address of the read-only HTTP view.
	ServeAddr string `yaml:"serve_addr" env:"SLG_SERVE_ADDR"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"SLG_LOG_LEVEL"`
	Format string `yaml:"format" env:"SLG_LOG_FORMAT"`
	Source bool   `yaml:"source" env:"SLG_LOG_SOURCE"`
	File   string `yaml:"file" env:"SLG_LOG_FILE"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Parser        ParserConfig  `yaml:"parser"`
	Ledger        LedgerConfig  `yaml:"ledger"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Drivers accepted in ledger.driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Parser:        ParserConfig{LinesPerPage: 55, ActionWidth: 60, DialogueWidth: 35, SynopsisMax: 120},
		Ledger:        LedgerConfig{Driver: DriverSQLite, Project: "default", ServeAddr: "127.0.0.1:8080"},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile    = "SLG_CONFIG"
	EnvLedgerDriver  = "SLG_LEDGER_DRIVER"
	EnvLedgerPath    = "SLG_LEDGER_PATH"
	EnvPGDSN         = "SLG_PG_DSN"
	EnvProject       = "SLG_PROJECT"
	EnvServeAddr     = "SLG_SERVE_ADDR"
	EnvLinesPerPage  = "SLG_LINES_PER_PAGE"
	EnvActionWidth   = "SLG_ACTION_WIDTH"
	EnvDialogueWidth = "SLG_DIALOGUE_WIDTH"
	EnvSynopsisMax   = "SLG_SYNOPSIS_MAX"
	EnvLexiconFile   = "SLG_LEXICON_FILE"
	EnvParallel      = "SLG_PARALLEL"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "SLG_LOG_LEVEL"
	EnvLogFormat = "SLG_LOG_FORMAT"
	EnvLogSource = "SLG_LOG_SOURCE"
	EnvLogFile   = "SLG_LOG_FILE"
)

var envForKey = map[string]string{
	"parser.lines_per_page": EnvLinesPerPage,
	"parser.action_width":   EnvActionWidth,
	"parser.dialogue_width": EnvDialogueWidth,
	"parser.synopsis_max":   EnvSynopsisMax,
	"parser.lexicon_file":   EnvLexiconFile,
	"parser.parallel":       EnvParallel,
	"ledger.driver":         EnvLedgerDriver,
	"ledger.path":           EnvLedgerPath,
	"ledger.dsn":            EnvPGDSN,
	"ledger.project":        EnvProject,
	"ledger.serve_addr":     EnvServeAddr,
	"logging.level":         EnvLogLevel,
	"logging.format":        EnvLogFormat,
	"logging.source":        EnvLogSource,
	"logging.file":          EnvLogFile,
}

// ConfigPath returns the per-user config file path. SLG_CONFIG overrides it.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "SceneLedger")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "SceneLedger")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "sceneledger")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
func Load() (AppConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		return Defaults(), err
	}
	return LoadFile(path)
}

// LoadFile is Load with an explicit file path. A missing file yields the
// defaults; a malformed one is an error.
func LoadFile(path string) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := applyEnvOverrides(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate rejects settings no component can run with.
func (c AppConfig) Validate() error {
	switch c.Ledger.Driver {
	case DriverSQLite:
	case DriverPostgres:
		if strings.TrimSpace(c.Ledger.Project) == "" {
			return errors.New("config: ledger.project is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown ledger.driver %q", c.Ledger.Driver)
	}
	if c.Parser.Parallel < 0 {
		return fmt.Errorf("config: parser.parallel must not be negative, got %d", c.Parser.Parallel)
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	// parser: zero means "keep default"
	if src.Parser.LinesPerPage > 0 {
		dst.Parser.LinesPerPage = src.Parser.LinesPerPage
	}
	if src.Parser.ActionWidth > 0 {
		dst.Parser.ActionWidth = src.Parser.ActionWidth
	}
	if src.Parser.DialogueWidth > 0 {
		dst.Parser.DialogueWidth = src.Parser.DialogueWidth
	}
	if src.Parser.SynopsisMax > 0 {
		dst.Parser.SynopsisMax = src.Parser.SynopsisMax
	}
	if strings.TrimSpace(src.Parser.LexiconFile) != "" {
		dst.Parser.LexiconFile = strings.TrimSpace(src.Parser.LexiconFile)
	}
	if src.Parser.Parallel != 0 {
		dst.Parser.Parallel = src.Parser.Parallel
	}
	// ledger
	if strings.TrimSpace(src.Ledger.Driver) != "" {
		dst.Ledger.Driver = strings.ToLower(strings.TrimSpace(src.Ledger.Driver))
	}
	if strings.TrimSpace(src.Ledger.Path) != "" {
		dst.Ledger.Path = strings.TrimSpace(src.Ledger.Path)
	}
	if strings.TrimSpace(src.Ledger.DSN) != "" {
		dst.Ledger.DSN = strings.TrimSpace(src.Ledger.DSN)
	}
	if strings.TrimSpace(src.Ledger.Project) != "" {
		dst.Ledger.Project = strings.TrimSpace(src.Ledger.Project)
	}
	if strings.TrimSpace(src.Ledger.ServeAddr) != "" {
		dst.Ledger.ServeAddr = strings.TrimSpace(src.Ledger.ServeAddr)
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

// applyEnvOverrides parses SLG_* variables over cfg. Unset variables leave
// the field alone.
func applyEnvOverrides(cfg *AppConfig) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	cfg.Ledger.Driver = strings.ToLower(strings.TrimSpace(cfg.Ledger.Driver))
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	return nil
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envForKey[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}
