/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package panels

import (
	"labeldesigner/internal/editor"
	"labeldesigner/internal/scene"
	"labeldesigner/internal/store"
)

// Block is one accordion section of the object options.
type Block struct {
	Key  string
	Name string
	// Groups builds the section's input groups. Nil renders an empty section.
	Groups func(env Env) []*ObjectGroup
}

// KindBlocks is what the object options need to know about a kind.
type KindBlocks struct {
	Name        string
	Blocks      []Block
	DefaultOpen []string
}

// BlockSource looks up the setting blocks of an object kind.
type BlockSource interface {
	SettingBlocks(kind scene.Kind) (KindBlocks, bool)
}

// OptionsState is the display state of the object options tab.
type OptionsState int

const (
	OptionsEmpty OptionsState = iota
	OptionsUnsupported
	OptionsObject
)

const (
	msgNoSelection = "No objects selected"
	msgMultiple    = "Multiple objects selected, which is not supported currently"
)

// Section is a live accordion section.
type Section struct {
	Key    string
	Name   string
	Open   bool
	Groups []*ObjectGroup
}

// ObjectOptions is the "object options" tab. Any selection other than a
// single editable object is a terminal read-only state.
type ObjectOptions struct {
	env    Env
	source BlockSource

	state    OptionsState
	kind     scene.Kind
	name     string
	sections []*Section

	off       func()
	listeners []func()
}

// NewObjectOptions follows the store's selection.
func NewObjectOptions(env Env, source BlockSource) *ObjectOptions {
	p := &ObjectOptions{env: env, source: source}
	p.off = store.Watch(env.Store, editor.SelectSelected, editor.SameObjects,
		func(next, _ []*scene.Object) { p.rebuild(next) })
	p.rebuild(env.Store.Get().Selected)
	return p
}

// Close releases every section's groups.
func (p *ObjectOptions) Close() {
	p.off()
	p.closeSections()
}

func (p *ObjectOptions) closeSections() {
	for _, s := range p.sections {
		for _, g := range s.Groups {
			g.Close()
		}
	}
	p.sections = nil
}

func (p *ObjectOptions) rebuild(sel []*scene.Object) {
	switch {
	case len(sel) == 0:
		p.setState(OptionsEmpty, "", "")
		return
	case len(sel) > 1 || sel[0].Kind == editor.KindGroup:
		p.setState(OptionsUnsupported, "", "")
		return
	}
	kind := sel[0].Kind
	if p.state == OptionsObject && p.kind == kind {
		// The groups follow the selection themselves.
		return
	}
	kb, ok := p.source.SettingBlocks(kind)
	if !ok {
		p.setState(OptionsUnsupported, "", "")
		return
	}
	p.closeSections()
	open := map[string]bool{}
	for _, k := range kb.DefaultOpen {
		open[k] = true
	}
	if len(kb.DefaultOpen) == 0 && len(kb.Blocks) > 0 {
		open[kb.Blocks[0].Key] = true
	}
	for _, b := range kb.Blocks {
		s := &Section{Key: b.Key, Name: b.Name, Open: open[b.Key]}
		if b.Groups != nil {
			s.Groups = b.Groups(p.env)
		}
		p.sections = append(p.sections, s)
	}
	p.state, p.kind, p.name = OptionsObject, kind, kb.Name
	p.notify()
}

func (p *ObjectOptions) setState(st OptionsState, kind scene.Kind, name string) {
	if p.state == st && st != OptionsObject {
		return
	}
	p.closeSections()
	p.state, p.kind, p.name = st, kind, name
	p.notify()
}

func (p *ObjectOptions) notify() {
	for _, fn := range p.listeners {
		fn()
	}
}

// OnChange registers fn for state and section changes.
func (p *ObjectOptions) OnChange(fn func()) { p.listeners = append(p.listeners, fn) }

func (p *ObjectOptions) State() OptionsState  { return p.state }
func (p *ObjectOptions) Sections() []*Section { return p.sections }

// Title is the tab label.
func (p *ObjectOptions) Title() string {
	if p.state == OptionsObject && p.name != "" {
		return p.name + " options"
	}
	return "Object options"
}

// Message explains an empty or unsupported state.
func (p *ObjectOptions) Message() string {
	switch p.state {
	case OptionsEmpty:
		return msgNoSelection
	case OptionsUnsupported:
		return msgMultiple
	}
	return ""
}

// SetOpen expands or collapses a section.
func (p *ObjectOptions) SetOpen(key string, open bool) {
	for _, s := range p.sections {
		if s.Key == key && s.Open != open {
			s.Open = open
			p.notify()
		}
	}
}
