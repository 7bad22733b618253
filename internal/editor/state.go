/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor holds the label editor's state and the surface that binds
// pointer, wheel and keyboard input on a scene canvas to editor behaviour.
package editor

import (
	"fmt"

	"labeldesigner/internal/scene"
	"labeldesigner/internal/store"
	"labeldesigner/internal/units"
)

// PanelKey names the right-hand panel tab.
type PanelKey string

const (
	PanelDocument      PanelKey = "document"
	PanelElements      PanelKey = "objects"
	PanelObjectOptions PanelKey = "object-options"
)

// TemplateInfo is the label template the session edits.
type TemplateInfo struct {
	ID          int     `json:"pk,omitempty"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	WidthMM     float64 `json:"width"`
	HeightMM    float64 `json:"height"`
}

// State is one editor snapshot. Objects and Selected reference canvas
// objects; the canvas stays the owner of their geometry.
type State struct {
	PageWidth    float64
	PageHeight   float64
	Objects      []*scene.Object
	Selected     []*scene.Object
	PageSettings PageSettings
	Template     TemplateInfo
	Panel        PanelKey
}

// Store is the editor's state container.
type Store = store.Store[State]

// NewState derives the page size in pixels from the template.
func NewState(t TemplateInfo, ps PageSettings) (State, error) {
	if err := ps.Validate(); err != nil {
		return State{}, err
	}
	w, h, err := pageSize(t)
	if err != nil {
		return State{}, err
	}
	return State{PageWidth: w, PageHeight: h, PageSettings: ps, Template: t, Panel: PanelDocument}, nil
}

// NewStore creates the store for one session.
func NewStore(t TemplateInfo, ps PageSettings) (*Store, error) {
	s, err := NewState(t, ps)
	if err != nil {
		return nil, err
	}
	return store.New(s), nil
}

func pageSize(t TemplateInfo) (float64, float64, error) {
	w, err := units.ToPixels(t.WidthMM, units.Millimeter)
	if err != nil {
		return 0, 0, err
	}
	h, err := units.ToPixels(t.HeightMM, units.Millimeter)
	if err != nil {
		return 0, 0, err
	}
	return w, h, nil
}

// SetPageSettings validates ps and replaces the settings slice.
func SetPageSettings(st *Store, ps PageSettings) error {
	if err := ps.Validate(); err != nil {
		return err
	}
	st.Update(func(s State) State { s.PageSettings = ps; return s })
	return nil
}

// SetTemplate replaces the template and recomputes the page size.
func SetTemplate(st *Store, t TemplateInfo) error {
	w, h, err := pageSize(t)
	if err != nil {
		return fmt.Errorf("template %q: %w", t.Name, err)
	}
	st.Update(func(s State) State {
		s.Template, s.PageWidth, s.PageHeight = t, w, h
		return s
	})
	return nil
}

// SetPanel switches the right-hand panel.
func SetPanel(st *Store, p PanelKey) {
	st.Update(func(s State) State { s.Panel = p; return s })
}

// Selectors and comparators for store.Watch.
func SelectObjects(s State) []*scene.Object   { return s.Objects }
func SelectSelected(s State) []*scene.Object  { return s.Selected }
func SelectPageSettings(s State) PageSettings { return s.PageSettings }
func SelectPanel(s State) PanelKey            { return s.Panel }
func SelectPageSize(s State) [2]float64       { return [2]float64{s.PageWidth, s.PageHeight} }
func SelectTemplate(s State) TemplateInfo     { return s.Template }
func SameObjects(a, b []*scene.Object) bool   { return store.SameSlice(a, b) }
func SameSettings(a, b PageSettings) bool     { return a == b }
func SamePageSize(a, b [2]float64) bool       { return a == b }
func SameTemplate(a, b TemplateInfo) bool     { return a == b }
func SamePanel(a, b PanelKey) bool            { return a == b }

func hasObject(objs []*scene.Object, o *scene.Object) bool {
	for _, x := range objs {
		if x == o {
			return true
		}
	}
	return false
}
