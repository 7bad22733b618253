/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"math"
	"testing"

	"labeldesigner/internal/scene"
	"labeldesigner/internal/units"
)

type testCatalog struct{}

func (testCatalog) SceneKinds() []KindInfo {
	return []KindInfo{{Kind: "rect", Name: "Rectangle", Factory: func() *scene.Object {
		o := scene.NewObject(&scene.RectShape{})
		o.Width, o.Height = 50, 50
		return o
	}}}
}

func pxGrid(size float64, snap bool) PageSettings {
	ps := DefaultPageSettings()
	ps.Grid.SizeValue, ps.Grid.SizeUnit = size, units.Pixel
	ps.Snap.GridEnabled = snap
	return ps
}

func mount(t *testing.T, ps PageSettings) (*Surface, *Store, *scene.Canvas) {
	t.Helper()
	st, err := NewStore(TemplateInfo{Name: "label", WidthMM: 100, HeightMM: 50}, ps)
	if err != nil {
		t.Fatal(err)
	}
	c := scene.NewCanvas(800, 600)
	s := NewSurface(c, st, testCatalog{}, Options{})
	if err := s.Mount(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Unmount)
	return s, st, c
}

func addRect(t *testing.T, c *scene.Canvas, l, top float64) *scene.Object {
	t.Helper()
	o := scene.NewObject(&scene.RectShape{})
	o.Left, o.Top, o.Width, o.Height = l, top, 50, 50
	c.Add(o)
	return o
}

func at(c *scene.Canvas, x, y float64, mods ...func(*scene.PointerInput)) scene.PointerInput {
	p := c.ToScreen(scene.Pt{X: x, Y: y})
	in := scene.PointerInput{X: p.X, Y: p.Y}
	for _, m := range mods {
		m(&in)
	}
	return in
}

func alt(in *scene.PointerInput) { in.Alt = true }

func near(a, b, eps float64) bool { return math.Abs(a-b) <= eps }

func TestZoomToFitOnMount(t *testing.T) {
	_, st, c := mount(t, DefaultPageSettings())
	s := st.Get()
	if !near(s.PageWidth, 377.95, 0.01) || !near(s.PageHeight, 188.98, 0.01) {
		t.Fatalf("page = %v x %v", s.PageWidth, s.PageHeight)
	}
	if !near(c.Zoom(), 2.06, 0.01) {
		t.Fatalf("zoom = %v, want ~2.06", c.Zoom())
	}
	// fit zoom is below canvas/page on both axes, so the page is centered
	vpt := c.ViewportTransform()
	if !near(vpt.E, 400-s.PageWidth*c.Zoom()/2, 1e-9) || !near(vpt.F, 300-s.PageHeight*c.Zoom()/2, 1e-9) {
		t.Fatalf("page not centered: %+v", vpt)
	}
}

func TestPageElementIsOverlay(t *testing.T) {
	s, st, c := mount(t, DefaultPageSettings())
	addRect(t, c, 10, 10)
	if got := len(st.Get().Objects); got != 1 {
		t.Fatalf("store objects = %d, want 1", got)
	}
	if len(c.ToJSON().Objects) != 1 {
		t.Fatal("page element must not be exported")
	}
	old := s.Page()
	if err := SetTemplate(st, TemplateInfo{Name: "square", WidthMM: 50, HeightMM: 50}); err != nil {
		t.Fatal(err)
	}
	if s.Page() == old || old.Canvas() != nil {
		t.Fatal("page element not rebuilt")
	}
	if !near(s.Page().Width, st.Get().PageWidth, 1e-9) || len(st.Get().Objects) != 1 {
		t.Fatalf("page = %v, objects = %d", s.Page().Width, len(st.Get().Objects))
	}
}

func TestDragSnapsToGrid(t *testing.T) {
	_, _, c := mount(t, pxGrid(5, true))
	o := addRect(t, c, 10, 10)
	c.PointerDown(at(c, 20, 20))
	c.PointerMove(at(c, 23, 23))
	c.PointerUp(at(c, 23, 23))
	if o.Left != 15 || o.Top != 15 {
		t.Fatalf("position = %v,%v, want 15,15", o.Left, o.Top)
	}
}

func TestMoveSnapFollowsCurrentSettings(t *testing.T) {
	_, st, c := mount(t, pxGrid(5, true))
	o := addRect(t, c, 10, 10)
	if err := SetPageSettings(st, pxGrid(4, true)); err != nil {
		t.Fatal(err)
	}
	c.PointerDown(at(c, 20, 20))
	c.PointerMove(at(c, 23, 23))
	if o.Left != 12 {
		t.Fatalf("left = %v, want 12 with a 4px grid", o.Left)
	}
}

func TestResizeBakesScale(t *testing.T) {
	_, _, c := mount(t, pxGrid(5, false))
	o := addRect(t, c, 10, 10)
	c.SetActiveObject(o)
	br := c.Controls(o)[scene.ControlBR]
	c.PointerDown(scene.PointerInput{X: br.X, Y: br.Y})
	c.PointerMove(at(c, 85, 70))
	if o.ScaleX != 1 || o.ScaleY != 1 || !near(o.Width, 75, 1e-6) || !near(o.Height, 60, 1e-6) {
		t.Fatalf("after tick: scale=%v,%v size=%v,%v", o.ScaleX, o.ScaleY, o.Width, o.Height)
	}
	c.PointerMove(at(c, 110, 60))
	c.PointerUp(at(c, 110, 60))
	if o.ScaleX != 1 || o.ScaleY != 1 || !near(o.Width, 100, 1e-6) || !near(o.Height, 50, 1e-6) {
		t.Fatalf("after gesture: scale=%v,%v size=%v,%v", o.ScaleX, o.ScaleY, o.Width, o.Height)
	}
}

func TestResizeSnapsMovingEdges(t *testing.T) {
	_, _, c := mount(t, pxGrid(5, true))
	o := addRect(t, c, 10, 10)
	c.SetActiveObject(o)
	br := c.Controls(o)[scene.ControlBR]
	c.PointerDown(scene.PointerInput{X: br.X, Y: br.Y})
	c.PointerMove(at(c, 83, 71))
	if !near(o.Width, 75, 1e-6) || !near(o.Height, 60, 1e-6) || o.Left != 10 || o.Top != 10 {
		t.Fatalf("br snap: pos=%v,%v size=%v,%v", o.Left, o.Top, o.Width, o.Height)
	}
	c.PointerUp(at(c, 83, 71))

	tl := c.Controls(o)[scene.ControlTL]
	c.PointerDown(scene.PointerInput{X: tl.X, Y: tl.Y})
	c.PointerMove(at(c, 2, 3))
	if !near(o.Left, 0, 1e-6) || !near(o.Top, 5, 1e-6) || !near(o.Width, 85, 1e-6) || !near(o.Height, 65, 1e-6) {
		t.Fatalf("tl snap: pos=%v,%v size=%v,%v", o.Left, o.Top, o.Width, o.Height)
	}
}

func TestSnapScaleIsStableOnGrid(t *testing.T) {
	o := scene.NewObject(&scene.RectShape{})
	o.Left, o.Top, o.Width, o.Height = 10, 10, 40, 40
	for _, corner := range []string{scene.ControlTL, scene.ControlBR, scene.ControlMT, scene.ControlML} {
		SnapScale(o, corner, 5)
		if o.ScaleX != 1 || o.ScaleY != 1 || o.Left != 10 || o.Top != 10 {
			t.Fatalf("%s changed an on-grid object: %+v", corner, o)
		}
	}
}

func TestRotateUsesConfiguredSteps(t *testing.T) {
	rs := DefaultRotateSnap()
	cases := []struct {
		enabled, mod bool
		want         float64
	}{
		{true, false, 15},
		{true, true, 0.1},
		{false, false, 0.1},
		{false, true, 45},
	}
	for _, tc := range cases {
		got := rs.Step(SnapSettings{AngleEnabled: tc.enabled, AngleValue: 15}, tc.mod)
		if got != tc.want {
			t.Fatalf("enabled=%v mod=%v: step %v, want %v", tc.enabled, tc.mod, got, tc.want)
		}
	}

	_, _, c := mount(t, DefaultPageSettings())
	o := addRect(t, c, 10, 10)
	c.SetActiveObject(o)
	mtr := c.Controls(o)[scene.ControlMTR]
	c.PointerDown(scene.PointerInput{X: mtr.X, Y: mtr.Y})
	// About 21 degrees clockwise from straight up.
	c.PointerMove(at(c, 35+25, 35-65))
	if o.Angle != 15 || o.SnapAngle != 15 {
		t.Fatalf("angle=%v snap=%v, want 15", o.Angle, o.SnapAngle)
	}
	if ctr := o.Center(); !near(ctr.X, 35, 1e-6) || !near(ctr.Y, 35, 1e-6) {
		t.Fatalf("center moved: %v", ctr)
	}
}

func TestPanClampIdempotent(t *testing.T) {
	f := Frame{CanvasW: 800, CanvasH: 600, PageW: 377.95, PageH: 188.98}
	for _, zoom := range []float64{0.5, 2.06, 3, 8, 20} {
		for _, d := range []scene.Pt{{}, {X: 5000, Y: -5000}, {X: -12, Y: 7}} {
			vpt := scene.Affine2D{A: zoom, D: zoom, E: 13, F: -40}
			delta := d
			once := ClampPan(vpt, f, &delta)
			twice := ClampPan(once, f, nil)
			if once != twice {
				t.Fatalf("zoom %v delta %v: %+v then %+v", zoom, d, once, twice)
			}
		}
	}
}

func TestWheelZoomStaysInBounds(t *testing.T) {
	f := Frame{CanvasW: 800, CanvasH: 600, PageW: 377.95, PageH: 188.98}
	z := 1.0
	deltas := []float64{-100000, 3, 250, 99999, 99999, -7, -400, 1e6, -1e6, 12, -1, 0}
	for i, d := range deltas {
		lo := MinZoom(f, z)
		z = WheelZoom(z, d, f, 200, 20)
		if z < lo || z > 20 {
			t.Fatalf("step %d: zoom %v outside [%v, 20]", i, z, lo)
		}
	}
}

func TestWheelZoomsAtPointer(t *testing.T) {
	_, _, c := mount(t, DefaultPageSettings())
	before := c.ToPage(scene.Pt{X: 400, Y: 300})
	c.Wheel(scene.WheelInput{X: 400, Y: 300, DeltaY: 200})
	if !near(c.Zoom(), 3.06, 0.01) {
		t.Fatalf("zoom = %v", c.Zoom())
	}
	after := c.ToPage(scene.Pt{X: 400, Y: 300})
	if !near(before.X, after.X, 1e-6) || !near(before.Y, after.Y, 1e-6) {
		t.Fatalf("anchor moved %v -> %v", before, after)
	}
}

func TestAltDragPansWithoutMovingObjects(t *testing.T) {
	s, _, c := mount(t, DefaultPageSettings())
	o := addRect(t, c, 10, 10)
	c.ZoomToPoint(scene.Pt{X: 400, Y: 300}, 5)
	s.HandleDrag(nil)
	e0 := c.ViewportTransform().E

	c.PointerDown(at(c, 20, 20, alt))
	if !s.Panning() || c.Selection {
		t.Fatal("alt press should start a pan and disable selection")
	}
	p := at(c, 20, 20)
	c.PointerMove(scene.PointerInput{X: p.X + 10, Y: p.Y, Alt: true})
	c.PointerUp(scene.PointerInput{X: p.X + 10, Y: p.Y})
	if got := c.ViewportTransform().E; !near(got, e0+10, 1e-9) {
		t.Fatalf("pan offset = %v, want %v", got, e0+10)
	}
	if o.Left != 10 || c.ActiveObject() != nil || s.Panning() || !c.Selection {
		t.Fatalf("left=%v active=%v panning=%v selection=%v", o.Left, c.ActiveObject(), s.Panning(), c.Selection)
	}
}

func TestSelectionTrackingAndPanels(t *testing.T) {
	s, st, c := mount(t, DefaultPageSettings())
	o := addRect(t, c, 10, 10)
	s.Queue().Flush()

	c.PointerDown(at(c, 20, 20))
	c.PointerUp(at(c, 20, 20))
	if got := st.Get(); len(got.Selected) != 1 || got.Selected[0] != o || got.Panel != PanelObjectOptions {
		t.Fatalf("after click: selected=%v panel=%v", got.Selected, got.Panel)
	}

	SetPanel(st, PanelElements)
	c.DiscardActiveObject()
	c.SetActiveObject(o)
	if st.Get().Panel != PanelElements {
		t.Fatal("programmatic selection must not switch panels")
	}

	c.PointerDown(at(c, 300, 150))
	c.PointerUp(at(c, 300, 150))
	if len(st.Get().Selected) != 1 {
		t.Fatal("clear must wait one tick")
	}
	s.Queue().Flush()
	if got := st.Get(); len(got.Selected) != 0 || got.Panel != PanelDocument {
		t.Fatalf("after tick: selected=%v panel=%v", got.Selected, got.Panel)
	}
}

func TestReselectCancelsPendingClear(t *testing.T) {
	s, st, c := mount(t, DefaultPageSettings())
	o := addRect(t, c, 10, 10)
	c.SetActiveObject(o)
	c.DiscardActiveObject()
	c.SetActiveObject(o)
	s.Queue().Flush()
	if len(st.Get().Selected) != 1 {
		t.Fatal("stale clear dropped a newer selection")
	}
}

func TestMultiSelectionShowsElements(t *testing.T) {
	_, st, c := mount(t, DefaultPageSettings())
	addRect(t, c, 10, 10)
	addRect(t, c, 100, 100)
	c.PointerDown(at(c, 20, 20))
	c.PointerUp(at(c, 20, 20))
	c.PointerDown(at(c, 110, 110, func(in *scene.PointerInput) { in.Shift = true }))
	c.PointerUp(at(c, 110, 110))
	if got := st.Get(); len(got.Selected) != 2 || got.Panel != PanelElements {
		t.Fatalf("selected=%d panel=%v", len(got.Selected), got.Panel)
	}
}

func TestDeleteKey(t *testing.T) {
	s, st, c := mount(t, DefaultPageSettings())
	o := addRect(t, c, 10, 10)
	c.SetActiveObject(o)

	if s.KeyUp(KeyEvent{Key: KeyDelete, Focus: "input"}) {
		t.Fatal("delete inside an input must be ignored")
	}
	if len(st.Get().Objects) != 1 {
		t.Fatal("object removed while typing")
	}
	if !s.KeyUp(KeyEvent{Key: KeyBackspace}) {
		t.Fatal("backspace not handled")
	}
	if got := st.Get(); len(got.Objects) != 0 || len(got.Selected) != 0 || got.Panel != PanelDocument || o.Canvas() != nil {
		t.Fatalf("after delete: %+v", got)
	}
}

func TestArrowKeysNudgeByGrid(t *testing.T) {
	s, _, c := mount(t, pxGrid(5, true))
	o := addRect(t, c, 10, 10)
	c.SetActiveObject(o)
	moves := 0
	c.On(scene.ObjectMoving, func(*scene.Event) { moves++ })

	s.KeyDown(KeyEvent{Key: KeyArrowRight})
	s.KeyDown(KeyEvent{Key: KeyArrowDown, Alt: true})
	if o.Left != 15 || o.Top != 60 || moves != 2 {
		t.Fatalf("pos=%v,%v moves=%d", o.Left, o.Top, moves)
	}
	if s.KeyDown(KeyEvent{Key: KeyArrowUp, Focus: "TEXTAREA"}) {
		t.Fatal("arrow in textarea handled")
	}
}

func TestAutoNamingIsDeferredAndUnique(t *testing.T) {
	s, _, c := mount(t, DefaultPageSettings())
	a := addRect(t, c, 0, 0)
	if a.Name != "" {
		t.Fatal("name assigned before the next tick")
	}
	b := addRect(t, c, 0, 0)
	s.Queue().Flush()
	if a.Name != "Rectangle 1" || b.Name != "Rectangle 2" {
		t.Fatalf("names %q %q", a.Name, b.Name)
	}
	c.Remove(a)
	d := addRect(t, c, 0, 0)
	s.Queue().Flush()
	if d.Name != "Rectangle 1" {
		t.Fatalf("reused name = %q", d.Name)
	}
}

func TestUnmountDetachesAndCancels(t *testing.T) {
	s, st, c := mount(t, DefaultPageSettings())
	o := addRect(t, c, 0, 0)
	s.Unmount()
	if n := s.Queue().Flush(); n != 0 || o.Name != "" {
		t.Fatalf("deferred work ran after unmount: %d %q", n, o.Name)
	}
	for _, ev := range []string{scene.ObjectAdded, scene.MouseWheel, scene.SelectionCleared} {
		if c.HandlerCount(ev) != 0 {
			t.Fatalf("%s handler left attached", ev)
		}
	}
	addRect(t, c, 5, 5)
	if len(st.Get().Objects) != 1 {
		t.Fatal("store followed the canvas after unmount")
	}
}

func TestRemountRunsDeferredWork(t *testing.T) {
	s, _, c := mount(t, DefaultPageSettings())
	s.Unmount()
	if err := s.Mount(); err != nil {
		t.Fatal(err)
	}
	if err := s.Mount(); err == nil {
		t.Fatal("second Mount while mounted succeeded")
	}
	o := addRect(t, c, 0, 0)
	if n := s.Queue().Flush(); n == 0 || o.Name == "" {
		t.Fatalf("deferred work dropped after remount: ran %d, name %q", n, o.Name)
	}
}

func TestUniformScalingFollowsSettings(t *testing.T) {
	_, st, c := mount(t, DefaultPageSettings())
	ps := DefaultPageSettings()
	ps.Scale.UniformEnabled = true
	if err := SetPageSettings(st, ps); err != nil {
		t.Fatal(err)
	}
	if !c.UniformScaling {
		t.Fatal("uniform scaling not mirrored")
	}
}
