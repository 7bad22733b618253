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
	"math"

	"labeldesigner/internal/editor"
	"labeldesigner/internal/scene"
	"labeldesigner/internal/store"
)

// Tab is one entry of the right-hand panel.
type Tab struct {
	Key   editor.PanelKey
	Label string
	Icon  string
}

// ObjectInsertX and ObjectInsertY place objects added from the palette.
const (
	ObjectInsertX = 10
	ObjectInsertY = 10
)

// RightPanel composes the three tabs. The active tab lives in the store so
// the surface can switch it.
type RightPanel struct {
	env Env

	Document *DocumentPanel
	Elements *ElementsPanel
	Options  *ObjectOptions
}

// NewRightPanel builds every tab.
func NewRightPanel(env Env, source BlockSource) *RightPanel {
	return &RightPanel{
		env:      env,
		Document: NewDocumentPanel(env),
		Elements: NewElementsPanel(env),
		Options:  NewObjectOptions(env, source),
	}
}

// Tabs lists the tabs in display order.
func (r *RightPanel) Tabs() []Tab {
	return []Tab{
		{Key: editor.PanelDocument, Label: "Document", Icon: "file"},
		{Key: editor.PanelElements, Label: "Elements", Icon: "list"},
		{Key: editor.PanelObjectOptions, Label: r.Options.Title(), Icon: "settings"},
	}
}

func (r *RightPanel) Active() editor.PanelKey { return r.env.Store.Get().Panel }

func (r *RightPanel) SetActive(k editor.PanelKey) { editor.SetPanel(r.env.Store, k) }

// OnSwitch calls fn with the new tab whenever the active tab changes.
func (r *RightPanel) OnSwitch(fn func(editor.PanelKey)) (off func()) {
	return store.Watch(r.env.Store, editor.SelectPanel, editor.SamePanel,
		func(next, _ editor.PanelKey) { fn(next) })
}

// Close releases every tab.
func (r *RightPanel) Close() {
	r.Document.Close()
	r.Elements.Close()
	r.Options.Close()
}

// Footer shows the zoom level and offers zoom-to-fit.
type Footer struct {
	env       Env
	off       func()
	listeners []func()
}

func NewFooter(env Env) *Footer {
	f := &Footer{env: env}
	f.off = env.Canvas.On(scene.MouseWheel, func(*scene.Event) {
		for _, fn := range f.listeners {
			fn()
		}
	})
	return f
}

// OnChange registers fn for zoom changes made with the wheel.
func (f *Footer) OnChange(fn func()) { f.listeners = append(f.listeners, fn) }

func (f *Footer) Close() { f.off() }

// ZoomLabel renders the zoom with one decimal, e.g. "Zoom: 205.8%".
func (f *Footer) ZoomLabel() string {
	return fmt.Sprintf("Zoom: %v%%", math.Round(f.env.Viewport.Zoom()*1000)/10)
}

// FitClicked zooms the page to fit the surface.
func (f *Footer) FitClicked() {
	f.env.Viewport.ZoomToFit()
	for _, fn := range f.listeners {
		fn()
	}
}

// PaletteItem is one object kind the left panel can add.
type PaletteItem struct {
	Kind scene.Kind
	Name string
	Icon string
}

// LeftPanel is the object palette.
type LeftPanel struct {
	env   Env
	kinds []editor.KindInfo
}

func NewLeftPanel(env Env, catalog editor.Catalog) *LeftPanel {
	return &LeftPanel{env: env, kinds: catalog.SceneKinds()}
}

func (l *LeftPanel) Items() []PaletteItem {
	out := make([]PaletteItem, 0, len(l.kinds))
	for _, k := range l.kinds {
		out = append(out, PaletteItem{Kind: k.Kind, Name: k.Name, Icon: k.Icon})
	}
	return out
}

// Add creates an object of kind at the insert position, selects it and
// shows its options.
func (l *LeftPanel) Add(kind scene.Kind) (*scene.Object, error) {
	for _, k := range l.kinds {
		if k.Kind != kind {
			continue
		}
		o := k.Factory()
		o.Left, o.Top = ObjectInsertX, ObjectInsertY
		l.env.Canvas.Add(o)
		l.env.Canvas.SetActiveObject(o)
		editor.SetPanel(l.env.Store, editor.PanelObjectOptions)
		l.env.Canvas.RequestRender()
		return o, nil
	}
	return nil, &scene.UnknownTypeError{Kind: kind}
}
