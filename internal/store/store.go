/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package store is a small reactive state container.
// State is replaced wholesale on every write and listeners observe complete
// snapshots only. Listeners run synchronously on the writer's goroutine after
// the write has been published.
package store

import "sync"

// Listener receives the new and the previous snapshot.
type Listener[S any] func(next, prev S)

// Store holds a snapshot of S. It is safe for concurrent use.
type Store[S any] struct {
	mu        sync.RWMutex
	state     S
	nextID    int
	listeners []subscription[S]
}

type subscription[S any] struct {
	id int
	fn Listener[S]
}

// New creates a store holding initial.
func New[S any](initial S) *Store[S] {
	return &Store[S]{state: initial}
}

// Get returns the current snapshot.
func (s *Store[S]) Get() S {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Set replaces the snapshot and notifies listeners.
func (s *Store[S]) Set(next S) {
	s.Update(func(S) S { return next })
}

// Update derives the next snapshot from the current one atomically.
// Listeners may write to the store again; nested writes notify before the
// outer fan-out continues.
func (s *Store[S]) Update(fn func(S) S) {
	s.mu.Lock()
	prev := s.state
	next := fn(prev)
	s.state = next
	subs := append([]subscription[S](nil), s.listeners...)
	s.mu.Unlock()

	for _, sub := range subs {
		sub.fn(next, prev)
	}
}

// Subscribe registers fn and returns a function removing it again.
// Calling the returned function more than once is harmless.
func (s *Store[S]) Subscribe(fn Listener[S]) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, subscription[S]{id: id, fn: fn})
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			for i, sub := range s.listeners {
				if sub.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// Watch subscribes to one slice of the state. fn runs only when equal reports
// that the selected slice changed between two snapshots.
func Watch[S, T any](s *Store[S], selector func(S) T, equal func(a, b T) bool, fn func(next, prev T)) (unsubscribe func()) {
	return s.Subscribe(func(next, prev S) {
		n, p := selector(next), selector(prev)
		if equal(n, p) {
			return
		}
		fn(n, p)
	})
}

// SameSlice reports whether two slices hold the same elements in the same
// order, compared with ==. Handy as the equal argument to Watch for slices of
// pointers.
func SameSlice[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Equal compares comparable values; the equal argument to Watch for scalars.
func Equal[T comparable](a, b T) bool { return a == b }
