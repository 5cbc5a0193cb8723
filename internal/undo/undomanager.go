/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"
	"time"
)

// Snapshot is a reversible state blob for one scene, keyed by scene number.
// Blob content is opaque to the manager; size is estimated as len(Blob).
// TS is when the snapshot was captured.
type Snapshot struct {
	Scene string    `json:"scene"`
	Blob  []byte    `json:"blob"`
	TS    time.Time `json:"ts"`
}

// History is the content of a Manager in a form that can be persisted
// between processes.
type History struct {
	Undo map[string][]Snapshot `json:"undo,omitempty"`
	Redo map[string][]Snapshot `json:"redo,omitempty"`
}

// Empty reports whether h holds no snapshots.
func (h History) Empty() bool { return len(h.Undo) == 0 && len(h.Redo) == 0 }

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerScene limits number of snapshots per scene kept in memory (0 means unlimited).
	MaxPerScene int
	// MinInterval coalesces snapshots captured within the interval for the same scene,
	// keeping the earlier one so a burst of edits undoes in one step. Zero disables coalescing.
	MinInterval time.Duration
}

// Manager provides an in-memory undo/redo stack per scene with memory caps.
// It is safe for concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex
	// per-scene stacks
	undo map[string][]Snapshot
	redo map[string][]Snapshot
	// accounting
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &Manager{cfg: cfg, undo: make(map[string][]Snapshot), redo: make(map[string][]Snapshot)}
}

// PushSnapshot records the state of a scene before a change. Within MinInterval
// of the last snapshot on the same scene the earlier snapshot is kept.
// Clears the redo stack for that scene.
func (m *Manager) PushSnapshot(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropRedoLocked(s.Scene)
	stack := m.undo[s.Scene]
	if n := len(stack); n > 0 && m.cfg.MinInterval > 0 {
		if s.TS.Sub(stack[n-1].TS) < m.cfg.MinInterval {
			stack[n-1].TS = s.TS
			return
		}
	}
	m.undo[s.Scene] = append(stack, s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked(s.Scene)
}

// Undo pops the latest snapshot of a scene. current is the scene's state
// right now; it moves to the redo stack.
func (m *Manager) Undo(scene string, current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[scene]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[scene] = stack[:len(stack)-1]
	if len(m.undo[scene]) == 0 {
		delete(m.undo, scene)
	}
	m.totalBytes -= len(s.Blob)
	current.Scene = scene
	m.redo[scene] = append(m.redo[scene], current)
	m.totalBytes += len(current.Blob)
	return s, true
}

// Redo reverses the last Undo of a scene. current moves back to the undo stack.
func (m *Manager) Redo(scene string, current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[scene]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[scene] = r[:len(r)-1]
	m.totalBytes -= len(s.Blob)
	current.Scene = scene
	m.undo[scene] = append(m.undo[scene], current)
	m.totalBytes += len(current.Blob)
	m.enforceCapsLocked(scene)
	return s, true
}

// Clear drops the history of a scene.
func (m *Manager) Clear(scene string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[scene] {
		m.totalBytes -= len(s.Blob)
	}
	m.dropRedoLocked(scene)
	delete(m.undo, scene)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Reset drops the history of every scene.
func (m *Manager) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo = make(map[string][]Snapshot)
	m.redo = make(map[string][]Snapshot)
	m.totalBytes = 0
}

// Export copies the stacks of every scene.
func (m *Manager) Export() History {
	m.mu.Lock()
	defer m.mu.Unlock()
	return History{Undo: copyStacks(m.undo), Redo: copyStacks(m.redo)}
}

// Import replaces the stacks with h. Caps apply as if the snapshots had been
// pushed.
func (m *Manager) Import(h History) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.undo = copyStacks(h.Undo)
	m.redo = copyStacks(h.Redo)
	m.totalBytes = 0
	for _, stacks := range []map[string][]Snapshot{m.undo, m.redo} {
		for _, stack := range stacks {
			for _, s := range stack {
				m.totalBytes += len(s.Blob)
			}
		}
	}
	for scene := range m.undo {
		m.enforceCapsLocked(scene)
	}
}

func copyStacks(src map[string][]Snapshot) map[string][]Snapshot {
	out := make(map[string][]Snapshot, len(src))
	for k, stack := range src {
		if len(stack) == 0 {
			continue
		}
		c := make([]Snapshot, len(stack))
		for i, s := range stack {
			s.Scene = k
			s.Blob = append([]byte(nil), s.Blob...)
			c[i] = s
		}
		out[k] = c
	}
	return out
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, scenes int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	scenes = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	return m.totalBytes, scenes, totalSnapshots
}

func (m *Manager) dropRedoLocked(scene string) {
	for _, s := range m.redo[scene] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.redo, scene)
}

func (m *Manager) enforceCapsLocked(scene string) {
	// Per-scene depth cap
	if m.cfg.MaxPerScene > 0 {
		stack := m.undo[scene]
		if len(stack) > m.cfg.MaxPerScene {
			// drop the oldest extras
			toDrop := len(stack) - m.cfg.MaxPerScene
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[scene] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune oldest across all scenes
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldestScene := ""
		oldestIdx := -1
		var oldestTS time.Time
		for key, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if oldestIdx == -1 || stack[0].TS.Before(oldestTS) {
				oldestScene = key
				oldestIdx = 0
				oldestTS = stack[0].TS
			}
		}
		if oldestIdx == -1 {
			break
		}
		stack := m.undo[oldestScene]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldestScene] = stack[1:]
		if len(m.undo[oldestScene]) == 0 {
			delete(m.undo, oldestScene)
		}
	}
}
