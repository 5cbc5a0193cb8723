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
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/spf13/cobra"

	"sceneledger/internal/backend"
	"sceneledger/internal/ledger"
	applog "sceneledger/internal/log"
)

// storeSource serves the last snapshot read from the store. The store is
// opened only while reloading so writers are not kept out.
type storeSource struct {
	ctx  *commandContext
	snap atomic.Pointer[ledger.Snapshot]
}

func (s *storeSource) Snapshot() *ledger.Snapshot {
	if p := s.snap.Load(); p != nil {
		return p
	}
	return &ledger.Snapshot{}
}

func (s *storeSource) reload(ctx context.Context) error {
	st, l, err := s.ctx.loadLedger(ctx)
	if err != nil {
		return err
	}
	defer st.Close()
	s.snap.Store(l.Snapshot())
	return nil
}

func (s *storeSource) ready(context.Context) error {
	if s.snap.Load() == nil {
		return errors.New("ledger not loaded")
	}
	return nil
}

func (s *storeSource) watch(ctx context.Context, every time.Duration) {
	lg := applog.WithOperation(applog.WithComponent("serve"), "reload")
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			before := s.Snapshot().Generation
			if err := s.reload(ctx); err != nil {
				// A locked store is expected while an import runs.
				lg.Debug("reload skipped", slog.Any("err", err))
				continue
			}
			if gen := s.Snapshot().Generation; gen != before {
				lg.Info("ledger reloaded", slog.Uint64("generation", gen))
			}
		}
	}
}

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string
	var reload time.Duration

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve a read-only HTTP view of the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Ledger.ServeAddr
			}
			src := &storeSource{ctx: ctx}
			if err := src.reload(cmd.Context()); err != nil {
				return err
			}
			if reload > 0 {
				go src.watch(cmd.Context(), reload)
			}
			applog.WithOperation(applog.WithComponent("serve"), "listen").Info("serving ledger", slog.String("addr", addr))
			fmt.Fprintf(cmd.OutOrStdout(), "Serving ledger on http://%s\n", addr)
			return backend.NewServer(src, src.ready).ListenAndServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to ledger.serve_addr)")
	cmd.Flags().DurationVar(&reload, "reload", 5*time.Second, "How often to re-read the ledger; 0 disables")
	return cmd
}
