//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"labeldesigner/internal/designer"
	"labeldesigner/internal/scene"
)

// LabelCanvas shows the design surface of a session and forwards pointer
// input to it. Rendering happens in a raster at device pixels; positions
// are converted with the same factor.
type LabelCanvas struct {
	widget.BaseWidget

	s      *designer.Session
	raster *canvas.Raster

	pixW, pixH int
	fitted     bool
	down       bool
	last       fyne.Position
	mod        fyne.KeyModifier

	// keyModifiers reports the modifiers held right now; ok is false when
	// the driver cannot tell.
	keyModifiers func() (mod fyne.KeyModifier, ok bool)

	// OnChange runs after every handled input event.
	OnChange func()
}

var (
	_ desktop.Mouseable = (*LabelCanvas)(nil)
	_ desktop.Hoverable = (*LabelCanvas)(nil)
	_ fyne.Draggable    = (*LabelCanvas)(nil)
	_ fyne.Scrollable   = (*LabelCanvas)(nil)
)

func NewLabelCanvas(s *designer.Session) *LabelCanvas {
	lc := &LabelCanvas{s: s}
	lc.ExtendBaseWidget(lc)
	return lc
}

func (lc *LabelCanvas) CreateRenderer() fyne.WidgetRenderer {
	lc.raster = canvas.NewRaster(lc.draw)
	return widget.NewSimpleRenderer(lc.raster)
}

// MinSize keeps the surface usable when the panels take most of the window.
func (lc *LabelCanvas) MinSize() fyne.Size { return fyne.NewSize(320, 240) }

func (lc *LabelCanvas) draw(w, h int) image.Image {
	if w != lc.pixW || h != lc.pixH {
		lc.pixW, lc.pixH = w, h
		lc.s.Surface.Resize(float64(w), float64(h))
		if !lc.fitted {
			lc.s.Surface.ZoomToFit()
			lc.fitted = true
		}
	}
	return RenderView(lc.s, w, h)
}

// scale converts widget units to raster pixels.
func (lc *LabelCanvas) scale() float64 {
	sz := lc.Size()
	if lc.pixW == 0 || sz.Width <= 0 {
		return 1
	}
	return float64(lc.pixW) / float64(sz.Width)
}

func (lc *LabelCanvas) pointer(pos fyne.Position, button int, mod fyne.KeyModifier) scene.PointerInput {
	k := lc.scale()
	return scene.PointerInput{
		X:      float64(pos.X) * k,
		Y:      float64(pos.Y) * k,
		Button: button,
		Alt:    mod&fyne.KeyModifierAlt != 0,
		Shift:  mod&fyne.KeyModifierShift != 0,
	}
}

// liveModifiers asks a desktop driver for the held modifier keys.
func liveModifiers() (fyne.KeyModifier, bool) {
	a := fyne.CurrentApp()
	if a == nil {
		return 0, false
	}
	d, ok := a.Driver().(desktop.Driver)
	if !ok {
		return 0, false
	}
	return d.CurrentKeyModifiers(), true
}

// dragModifier is the modifier state during a drag. Drag events carry no
// modifiers; without a desktop driver the state seen on the last mouse
// event is used.
func (lc *LabelCanvas) dragModifier() fyne.KeyModifier {
	read := lc.keyModifiers
	if read == nil {
		read = liveModifiers
	}
	if mod, ok := read(); ok {
		return mod
	}
	return lc.mod
}

func sceneButton(b desktop.MouseButton) int {
	switch b {
	case desktop.MouseButtonSecondary:
		return scene.ButtonRight
	case desktop.MouseButtonTertiary:
		return scene.ButtonMiddle
	}
	return scene.ButtonLeft
}

func (lc *LabelCanvas) changed() {
	lc.s.Tick()
	lc.Refresh()
	if lc.OnChange != nil {
		lc.OnChange()
	}
}

func (lc *LabelCanvas) MouseDown(e *desktop.MouseEvent) {
	lc.down, lc.last, lc.mod = true, e.Position, e.Modifier
	lc.s.Canvas.PointerDown(lc.pointer(e.Position, sceneButton(e.Button), e.Modifier))
	lc.changed()
}

func (lc *LabelCanvas) MouseUp(e *desktop.MouseEvent) {
	if !lc.down {
		return
	}
	lc.down, lc.mod = false, e.Modifier
	lc.s.Canvas.PointerUp(lc.pointer(e.Position, sceneButton(e.Button), e.Modifier))
	lc.changed()
}

func (lc *LabelCanvas) Dragged(e *fyne.DragEvent) {
	lc.last = e.Position
	lc.s.Canvas.PointerMove(lc.pointer(e.Position, scene.ButtonLeft, lc.dragModifier()))
	lc.changed()
}

// DragEnd closes a gesture when the button was released outside the widget.
func (lc *LabelCanvas) DragEnd() {
	if !lc.down {
		return
	}
	lc.down = false
	lc.s.Canvas.PointerUp(lc.pointer(lc.last, scene.ButtonLeft, lc.dragModifier()))
	lc.changed()
}

func (lc *LabelCanvas) MouseIn(*desktop.MouseEvent) {}

func (lc *LabelCanvas) MouseMoved(e *desktop.MouseEvent) {
	lc.mod = e.Modifier
	if lc.down {
		return
	}
	lc.s.Canvas.PointerMove(lc.pointer(e.Position, sceneButton(e.Button), e.Modifier))
}

func (lc *LabelCanvas) MouseOut() {}

// Scrolled zooms around the cursor. Fyne reports wheel-up as positive DY,
// the surface expects DOM wheel deltas.
func (lc *LabelCanvas) Scrolled(e *fyne.ScrollEvent) {
	k := lc.scale()
	lc.s.Canvas.Wheel(scene.WheelInput{
		X:      float64(e.Position.X) * k,
		Y:      float64(e.Position.Y) * k,
		DeltaY: -float64(e.Scrolled.DY),
	})
	lc.changed()
}

// Fit zooms the page to the current widget size.
func (lc *LabelCanvas) Fit() {
	lc.s.Footer.FitClicked()
	lc.Refresh()
}
