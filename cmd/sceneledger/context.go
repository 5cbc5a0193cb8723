/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"sceneledger/internal/backend"
	"sceneledger/internal/breakdown"
	"sceneledger/internal/config"
	"sceneledger/internal/domain"
	"sceneledger/internal/importer"
	"sceneledger/internal/ledger"
	applog "sceneledger/internal/log"
	"sceneledger/internal/pagecount"
	"sceneledger/internal/storage"
	"sceneledger/internal/undo"
)

// undoDepth caps the persisted edit history per scene.
const undoDepth = 50

type commandContext struct {
	configFlag *string
	ledgerFlag *string

	configOnce sync.Once
	config     *config.AppConfig
	configErr  error
}

func newCommandContext(configFlag, ledgerFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		ledgerFlag: ledgerFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.AppConfig, error) {
	c.configOnce.Do(func() {
		var (
			cfg config.AppConfig
			err error
		)
		if path := strings.TrimSpace(*c.configFlag); path != "" {
			cfg, err = config.LoadFile(path)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			c.configErr = err
			return
		}
		if path := strings.TrimSpace(*c.ledgerFlag); path != "" {
			cfg.Ledger.Driver = config.DriverSQLite
			cfg.Ledger.Path = path
		}
		applog.Init(applog.Options{
			Level:     cfg.Logging.Level,
			Format:    cfg.Logging.Format,
			AddSource: cfg.Logging.Source,
			File:      cfg.Logging.File,
		})
		c.config = &cfg
	})
	return c.config, c.configErr
}

// ledgerStore is what the commands need from either backend.
type ledgerStore interface {
	ledger.Store
	ledger.HistoryStore
	RecordImport(ctx context.Context, r domain.ImportRecord) error
	ListImports(ctx context.Context, limit int) ([]domain.ImportRecord, error)
	SearchScenes(ctx context.Context, q storage.SearchQuery) ([]storage.SearchResult, error)
}

type openStore struct {
	ledgerStore
	// sqlite is set for the sqlite driver, which also keeps script snapshots.
	sqlite  *storage.SQLiteStore
	closeFn func() error
}

func (s *openStore) Close() error { return s.closeFn() }

func (c *commandContext) openStore(ctx context.Context) (*openStore, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	switch cfg.Ledger.Driver {
	case config.DriverPostgres:
		db, err := backend.OpenDB(ctx, cfg.Ledger.DSN)
		if err != nil {
			return nil, err
		}
		pg, err := backend.NewPGStore(db, cfg.Ledger.Project)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return &openStore{ledgerStore: pg, closeFn: db.Close}, nil
	default:
		path := cfg.Ledger.Path
		if path == "" {
			wd, err := os.Getwd()
			if err != nil {
				return nil, err
			}
			path = storage.DefaultPath(wd)
		}
		st, err := storage.Open(path)
		if errors.Is(err, storage.ErrStoreLocked) {
			return nil, fmt.Errorf("ledger %s is in use by another sceneledger process: %w", path, err)
		}
		if err != nil {
			return nil, err
		}
		return &openStore{ledgerStore: st, sqlite: st, closeFn: st.Close}, nil
	}
}

// loadLedger opens the store and loads the ledger from it. The caller closes
// the store.
func (c *commandContext) loadLedger(ctx context.Context) (*openStore, *ledger.Ledger, error) {
	st, err := c.openStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	l, err := ledger.Load(ctx, st, ledger.WithUndo(undo.Config{MaxPerScene: undoDepth}))
	if err != nil {
		_ = st.Close()
		return nil, nil, err
	}
	return st, l, nil
}

// withLedger runs fn on the stored ledger and saves it afterwards when fn
// changed it.
func (c *commandContext) withLedger(ctx context.Context, fn func(*openStore, *ledger.Ledger) error) error {
	st, l, err := c.loadLedger(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	before := l.Snapshot().Generation
	if err := fn(st, l); err != nil {
		return err
	}
	if l.Snapshot().Generation == before {
		return nil
	}
	return l.Save(ctx, st)
}

func (c *commandContext) pipeline() (*importer.Pipeline, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	var lex *breakdown.Lexicon
	if path := strings.TrimSpace(cfg.Parser.LexiconFile); path != "" {
		lex, err = breakdown.LoadLexicon(path)
		if err != nil {
			return nil, err
		}
	}
	return importer.New(importer.Options{
		Estimator: pagecount.Estimator{
			LinesPerPage:  cfg.Parser.LinesPerPage,
			ActionWidth:   cfg.Parser.ActionWidth,
			DialogueWidth: cfg.Parser.DialogueWidth,
		},
		Lexicon:     lex,
		SynopsisMax: cfg.Parser.SynopsisMax,
		Parallel:    cfg.Parser.Parallel,
	}), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
