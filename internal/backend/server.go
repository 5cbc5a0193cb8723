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
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"sceneledger/internal/domain"
	"sceneledger/internal/ledger"
	applog "sceneledger/internal/log"
	"sceneledger/internal/version"
)

// SnapshotSource hands out consistent ledger views. *ledger.Ledger is one.
type SnapshotSource interface {
	Snapshot() *ledger.Snapshot
}

// SceneList is the body of GET /api/scenes.
type SceneList struct {
	Generation uint64         `json:"generation"`
	SourceHash string         `json:"source_hash,omitempty"`
	Scenes     []domain.Scene `json:"scenes"`
}

// Server is a read-only HTTP view of a ledger for downstream tools. Every
// response is built from one snapshot.
type Server struct {
	src   SnapshotSource
	ready func(context.Context) error
	mux   *http.ServeMux
}

// NewServer returns a server over src. ready, if set, backs /readyz.
func NewServer(src SnapshotSource, ready func(context.Context) error) *Server {
	s := &Server{src: src, ready: ready, mux: http.NewServeMux()}
	s.mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.HandleFunc("GET /readyz", s.handleReady)
	s.mux.HandleFunc("GET /version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(version.String()))
	})
	s.mux.HandleFunc("GET /api/scenes", func(w http.ResponseWriter, r *http.Request) {
		snap := s.src.Snapshot()
		writeJSON(w, http.StatusOK, SceneList{Generation: snap.Generation, SourceHash: snap.SourceHash, Scenes: snap.Scenes})
	})
	s.mux.HandleFunc("GET /api/scenes/{number}", func(w http.ResponseWriter, r *http.Request) {
		sc, ok := s.src.Snapshot().Scene(r.PathValue("number"))
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("scene %q: %w", r.PathValue("number"), ledger.ErrSceneNotFound))
			return
		}
		writeJSON(w, http.StatusOK, sc)
	})
	s.mux.HandleFunc("GET /api/conflicts", func(w http.ResponseWriter, r *http.Request) {
		cs := s.src.Snapshot().Conflicts
		if cs == nil {
			cs = []ledger.Conflict{}
		}
		writeJSON(w, http.StatusOK, cs)
	})
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.mux }

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l := applog.WithOperation(applog.WithComponent("backend"), "serve")
	srv := &http.Server{Addr: addr, Handler: s.mux, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	l.Info("listening", slog.String("addr", addr))
	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		l.Info("shutting down")
		return srv.Shutdown(sctx)
	}
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}
