/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package objects is the catalog of placeable object kinds. An entry bundles
// the factory, the property blocks and the template exporter of one kind;
// adding a kind needs nothing but a new entry.
package objects

import (
	"errors"
	"fmt"
	"sync"

	"labeldesigner/internal/editor"
	"labeldesigner/internal/panels"
	"labeldesigner/internal/scene"
)

// ErrDuplicateKind is returned by Register for a key already present.
var ErrDuplicateKind = errors.New("object kind already registered")

// Exporter renders the template fragments of one object. id is unique per
// document and usable as a CSS class.
type Exporter interface {
	Style(o *scene.Object, id string) string
	Content(o *scene.Object, id string) string
}

// Entry describes one object kind.
type Entry struct {
	Key     scene.Kind
	Name    string
	Icon    string
	Factory scene.Factory

	SettingBlocks []panels.Block
	DefaultOpen   []string

	// Export is optional; kinds without it contribute no template markup.
	Export Exporter
}

// Registry maps kind keys to entries and keeps registration order.
type Registry struct {
	mu      sync.RWMutex
	byKey   map[scene.Kind]*Entry
	ordered []*Entry
}

func NewRegistry() *Registry {
	return &Registry{byKey: map[scene.Kind]*Entry{}}
}

// Register adds e. The key must be non-empty and unused.
func (r *Registry) Register(e Entry) error {
	if e.Key == "" {
		return errors.New("object kind key is required")
	}
	if e.Factory == nil {
		return fmt.Errorf("object kind %q: factory is required", e.Key)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[e.Key]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateKind, e.Key)
	}
	entry := e
	r.byKey[e.Key] = &entry
	r.ordered = append(r.ordered, &entry)
	return nil
}

// MustRegister is Register for static tables.
func (r *Registry) MustRegister(e Entry) {
	if err := r.Register(e); err != nil {
		panic(err)
	}
}

// Lookup returns the entry of key.
func (r *Registry) Lookup(key scene.Kind) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byKey[key]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Entries returns all entries in registration order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.ordered))
	for i, e := range r.ordered {
		out[i] = *e
	}
	return out
}

// Exporter returns the exporter of key, if the kind has one.
func (r *Registry) Exporter(key scene.Kind) (Exporter, bool) {
	e, ok := r.Lookup(key)
	if !ok || e.Export == nil {
		return nil, false
	}
	return e.Export, true
}

// SceneKinds feeds the canvas type table and the object palette.
func (r *Registry) SceneKinds() []editor.KindInfo {
	entries := r.Entries()
	out := make([]editor.KindInfo, len(entries))
	for i, e := range entries {
		out[i] = editor.KindInfo{Kind: e.Key, Name: e.Name, Icon: e.Icon, Factory: e.Factory}
	}
	return out
}

// SettingBlocks serves the object options panel.
func (r *Registry) SettingBlocks(kind scene.Kind) (panels.KindBlocks, bool) {
	e, ok := r.Lookup(kind)
	if !ok {
		return panels.KindBlocks{}, false
	}
	return panels.KindBlocks{Name: e.Name, Blocks: e.SettingBlocks, DefaultOpen: e.DefaultOpen}, true
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the shared registry holding the built-in kinds.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = NewRegistry()
		defaultReg.MustRegister(Rectangle())
		defaultReg.MustRegister(Circle())
	})
	return defaultReg
}
