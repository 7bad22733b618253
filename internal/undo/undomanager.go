/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps per-document histories of design snapshots.
package undo

import (
	"bytes"
	"sync"
	"time"
)

// Snapshot is the state of one document after a change. Blob is opaque to
// the manager; size is estimated as len(Blob).
type Snapshot struct {
	Doc  string
	Blob []byte
	TS   time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerDoc limits the history depth per document (0 means unlimited).
	MaxPerDoc int
	// MinInterval coalesces snapshots captured within the interval for the same
	// document, replacing the previous one instead of pushing a new entry.
	MinInterval time.Duration
}

// Manager holds the history of every open document. The top of a history is
// the current state; Undo steps below it.
// It is safe for concurrent use.
type Manager struct {
	cfg  Config
	mu   sync.Mutex
	undo map[string][]Snapshot
	redo map[string][]Snapshot

	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = 250 * time.Millisecond
	}
	return &Manager{cfg: cfg, undo: make(map[string][]Snapshot), redo: make(map[string][]Snapshot)}
}

// Push records the state after a change. An identical blob is ignored. A
// push within MinInterval of the previous one replaces it, unless that one
// is the document's only entry. Any push clears the redo history.
func (m *Manager) Push(s Snapshot) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[s.Doc]
	if n := len(stack); n > 0 {
		last := stack[n-1]
		if bytes.Equal(last.Blob, s.Blob) {
			return false
		}
		if n > 1 && s.TS.Sub(last.TS) < m.cfg.MinInterval {
			m.totalBytes += len(s.Blob) - len(last.Blob)
			stack[n-1] = s
			m.dropRedoLocked(s.Doc)
			m.enforceCapsLocked(s.Doc)
			return true
		}
	}
	m.undo[s.Doc] = append(stack, s)
	m.totalBytes += len(s.Blob)
	m.dropRedoLocked(s.Doc)
	m.enforceCapsLocked(s.Doc)
	return true
}

// Reset starts a fresh history for doc at s, as after loading a file.
func (m *Manager) Reset(s Snapshot) {
	m.Clear(s.Doc)
	m.Push(s)
}

// Undo moves the current state of doc to the redo history and returns the
// state before it.
func (m *Manager) Undo(doc string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[doc]
	if len(stack) < 2 {
		return Snapshot{}, false
	}
	cur := stack[len(stack)-1]
	m.undo[doc] = stack[:len(stack)-1]
	m.totalBytes -= len(cur.Blob)
	m.redo[doc] = append(m.redo[doc], cur)
	return stack[len(stack)-2], true
}

// Redo reapplies the most recently undone state.
func (m *Manager) Redo(doc string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[doc]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[doc] = r[:len(r)-1]
	m.undo[doc] = append(m.undo[doc], s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked(doc)
	return s, true
}

// Current returns the top of doc's history.
func (m *Manager) Current(doc string) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[doc]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	return stack[len(stack)-1], true
}

// CanUndo and CanRedo drive menu state.
func (m *Manager) CanUndo(doc string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[doc]) > 1
}

func (m *Manager) CanRedo(doc string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[doc]) > 0
}

// Clear drops the history of doc.
func (m *Manager) Clear(doc string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[doc] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.undo, doc)
	delete(m.redo, doc)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, docs int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	return m.totalBytes, docs, totalSnapshots
}

func (m *Manager) dropRedoLocked(doc string) { m.redo[doc] = nil }

func (m *Manager) enforceCapsLocked(doc string) {
	if m.cfg.MaxPerDoc > 0 {
		stack := m.undo[doc]
		if len(stack) > m.cfg.MaxPerDoc {
			toDrop := len(stack) - m.cfg.MaxPerDoc
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[doc] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune the oldest entry across documents, never a
	// document's current state.
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldestDoc := ""
		found := false
		var oldestTS time.Time
		for d, stack := range m.undo {
			if len(stack) < 2 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldestDoc, oldestTS, found = d, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldestDoc]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldestDoc] = stack[1:]
	}
}
