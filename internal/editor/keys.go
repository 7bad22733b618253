/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"strings"

	"labeldesigner/internal/scene"
	"labeldesigner/internal/units"
)

// Key names as reported by the host toolkit.
const (
	KeyBackspace  = "Backspace"
	KeyDelete     = "Delete"
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
	KeyArrowUp    = "ArrowUp"
	KeyArrowDown  = "ArrowDown"
)

// KeyEvent is one key press or release.
type KeyEvent struct {
	Key   string
	Alt   bool
	Ctrl  bool
	Shift bool
	// Focus is the tag of the focused element ("INPUT", "SELECT", "TEXTAREA"
	// or "" for the canvas).
	Focus string
}

// InTextInput reports whether typing goes to a form control.
func (k KeyEvent) InTextInput() bool {
	switch strings.ToUpper(k.Focus) {
	case "INPUT", "SELECT", "TEXTAREA":
		return true
	}
	return false
}

// KeyUp deletes the selection on Backspace or Delete. It reports whether the
// key was handled.
func (s *Surface) KeyUp(k KeyEvent) bool {
	if !s.mounted || k.InTextInput() {
		return false
	}
	if k.Key != KeyBackspace && k.Key != KeyDelete {
		return false
	}
	sel := s.st.Get().Selected
	for _, o := range sel {
		s.canvas.Remove(o)
	}
	s.canvas.DiscardActiveObject()
	SetPanel(s.st, PanelDocument)
	s.canvas.RequestRender()
	return len(sel) > 0
}

// KeyDown nudges the selection with the arrow keys, one grid unit per press
// or ten with Alt. The move goes through object:moving so snapping and the
// position inputs see it.
func (s *Surface) KeyDown(k KeyEvent) bool {
	if !s.mounted || k.InTextInput() {
		return false
	}
	var dx, dy float64
	switch k.Key {
	case KeyArrowLeft:
		dx = -1
	case KeyArrowRight:
		dx = 1
	case KeyArrowUp:
		dy = -1
	case KeyArrowDown:
		dy = 1
	default:
		return false
	}
	sel := s.st.Get().Selected
	if len(sel) == 0 {
		return false
	}
	step := s.nudgeStep()
	if k.Alt {
		step *= 10
	}
	for _, o := range sel {
		if o.Canvas() != s.canvas {
			continue
		}
		o.Left += dx * step
		o.Top += dy * step
		s.canvas.Fire(scene.ObjectMoving, &scene.Event{Target: o, Alt: k.Alt, Transform: &scene.Transform{Action: "drag"}})
		s.canvas.Fire(scene.ObjectModified, &scene.Event{Target: o})
	}
	s.canvas.RequestRender()
	return true
}

// nudgeStep is the grid size in pixels, or one pixel when the grid is unusable.
func (s *Surface) nudgeStep() float64 {
	ps := s.st.Get().PageSettings
	g, err := units.ToPixels(ps.Grid.SizeValue, ps.Grid.SizeUnit)
	if err != nil || !(g > 0) {
		return 1
	}
	return g
}
