/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package panels

import (
	"fmt"

	"labeldesigner/internal/editor"
	"labeldesigner/internal/scene"
	"labeldesigner/internal/store"
)

// ElementItem is one line of the elements list.
type ElementItem struct {
	Label    string
	Name     string
	Object   *scene.Object
	Selected bool
}

// ElementsPanel lists the design's objects in z-order.
type ElementsPanel struct {
	env       Env
	offs      []func()
	listeners []func()
}

// NewElementsPanel follows objects and selection independently.
func NewElementsPanel(env Env) *ElementsPanel {
	p := &ElementsPanel{env: env}
	notify := func(_, _ []*scene.Object) { p.notify() }
	p.offs = append(p.offs,
		store.Watch(env.Store, editor.SelectObjects, editor.SameObjects, notify),
		store.Watch(env.Store, editor.SelectSelected, editor.SameObjects, notify),
		// Names change in place.
		env.Canvas.On(scene.ObjectModified, func(*scene.Event) { p.notify() }),
	)
	return p
}

// Close detaches the panel.
func (p *ElementsPanel) Close() {
	for _, off := range p.offs {
		off()
	}
	p.offs = nil
}

// OnChange registers fn for list changes.
func (p *ElementsPanel) OnChange(fn func()) { p.listeners = append(p.listeners, fn) }

func (p *ElementsPanel) notify() {
	for _, fn := range p.listeners {
		fn()
	}
}

// Items returns the current list. Selected items render bold.
func (p *ElementsPanel) Items() []ElementItem {
	s := p.env.Store.Get()
	items := make([]ElementItem, 0, len(s.Objects))
	for i, o := range s.Objects {
		items = append(items, ElementItem{
			Label:    fmt.Sprintf("%s (%d)", o.Kind, i),
			Name:     o.Name,
			Object:   o,
			Selected: containsObject(s.Selected, o),
		})
	}
	return items
}

// Select makes item i the active object.
func (p *ElementsPanel) Select(i int) {
	objs := p.env.Store.Get().Objects
	if i < 0 || i >= len(objs) {
		return
	}
	p.env.Canvas.SetActiveObject(objs[i])
	p.env.Canvas.RequestRender()
}

func containsObject(objs []*scene.Object, o *scene.Object) bool {
	for _, x := range objs {
		if x == o {
			return true
		}
	}
	return false
}
