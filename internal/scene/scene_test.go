/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func newRect(l, t, w, h float64) *Object {
	o := NewObject(&RectShape{})
	o.Left, o.Top, o.Width, o.Height = l, t, w, h
	return o
}

func TestAffineInvertRoundTrip(t *testing.T) {
	m := Translate(12, -3).Mul(Rotate(33)).Mul(Scale(2, 0.5))
	p := Pt{7, 9}
	q := m.Invert().Apply(m.Apply(p))
	if !approx(p.X, q.X) || !approx(p.Y, q.Y) {
		t.Fatalf("round trip %v -> %v", p, q)
	}
	if (Affine2D{}).Invert() != Identity {
		t.Fatal("singular matrix should invert to identity")
	}
}

func TestSnapToIsIdempotent(t *testing.T) {
	for _, v := range []float64{0, 2.4, 2.5, 13, -7.2, 99.99} {
		once := SnapTo(v, 5)
		if SnapTo(once, 5) != once {
			t.Fatalf("SnapTo not idempotent for %v", v)
		}
	}
	if SnapTo(3.3, 0) != 3.3 {
		t.Fatal("zero step must not snap")
	}
}

func TestZoomToPointKeepsAnchor(t *testing.T) {
	c := NewCanvas(800, 600)
	c.SetViewportTransform(Affine2D{A: 1.5, D: 1.5, E: 40, F: 20})
	anchor := Pt{300, 200}
	before := c.ToPage(anchor)
	c.ZoomToPoint(anchor, 3)
	after := c.ToPage(anchor)
	if !approx(before.X, after.X) || !approx(before.Y, after.Y) {
		t.Fatalf("anchor moved: %v -> %v", before, after)
	}
	if c.Zoom() != 3 {
		t.Fatalf("zoom = %v", c.Zoom())
	}
}

func TestHitRespectsRotationAndEllipse(t *testing.T) {
	r := newRect(0, 0, 100, 10)
	r.Angle = 90
	if r.Hit(Pt{50, 5}) {
		t.Fatal("rotated rect should not cover its unrotated area")
	}
	if !r.Hit(Pt{-5, 50}) {
		t.Fatal("rotated rect should cover the rotated area")
	}

	c := NewObject(&CircleShape{})
	c.Width, c.Height = 50, 50
	if !c.Hit(Pt{25, 25}) || c.Hit(Pt{2, 2}) {
		t.Fatal("circle hit should follow the ellipse, not the box")
	}
}

func TestSelectionEventsCarryUserFlag(t *testing.T) {
	c := NewCanvas(200, 200)
	a, b := newRect(10, 10, 50, 50), newRect(100, 100, 50, 50)
	c.Add(a, b)
	var got []string
	var users []bool
	for _, n := range []string{SelectionCreated, SelectionUpdated, SelectionCleared} {
		c.On(n, func(e *Event) { got = append(got, e.Name); users = append(users, e.User) })
	}

	c.SetActiveObject(a)
	c.PointerDown(PointerInput{X: 120, Y: 120})
	c.PointerUp(PointerInput{X: 120, Y: 120})
	c.PointerDown(PointerInput{X: 190, Y: 10})
	c.PointerUp(PointerInput{X: 190, Y: 10})

	want := []string{SelectionCreated, SelectionUpdated, SelectionCleared}
	if len(got) != len(want) {
		t.Fatalf("events = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v", got)
		}
	}
	if users[0] || !users[1] || !users[2] {
		t.Fatalf("user flags = %v", users)
	}
}

func TestShiftClickExtendsSelection(t *testing.T) {
	c := NewCanvas(200, 200)
	a, b := newRect(10, 10, 50, 50), newRect(100, 100, 50, 50)
	c.Add(a, b)
	c.SetActiveObject(a)
	c.PointerDown(PointerInput{X: 120, Y: 120, Shift: true})
	c.PointerUp(PointerInput{X: 120, Y: 120})
	if len(c.ActiveObjects()) != 2 || c.ActiveObject() != nil {
		t.Fatalf("active = %v", c.ActiveObjects())
	}
}

func TestMoveGestureFiresMovingAndModified(t *testing.T) {
	c := NewCanvas(200, 200)
	o := newRect(10, 10, 50, 50)
	c.Add(o)
	moving, modified := 0, 0
	c.On(ObjectMoving, func(*Event) { moving++ })
	c.On(ObjectModified, func(*Event) { modified++ })

	c.PointerDown(PointerInput{X: 20, Y: 20})
	c.PointerMove(PointerInput{X: 23, Y: 23})
	c.PointerMove(PointerInput{X: 25, Y: 30})
	c.PointerUp(PointerInput{X: 25, Y: 30})
	if o.Left != 15 || o.Top != 20 {
		t.Fatalf("position = %v,%v", o.Left, o.Top)
	}
	if moving != 2 || modified != 1 {
		t.Fatalf("moving=%d modified=%d", moving, modified)
	}
}

func TestSelectionDisabledOnlyReportsPointer(t *testing.T) {
	c := NewCanvas(200, 200)
	o := newRect(10, 10, 50, 50)
	c.Add(o)
	c.Selection = false
	downs := 0
	c.On(MouseDown, func(*Event) { downs++ })
	c.PointerDown(PointerInput{X: 20, Y: 20})
	c.PointerMove(PointerInput{X: 40, Y: 40})
	if downs != 1 || c.ActiveObject() != nil || c.Dragging() || o.Left != 10 {
		t.Fatalf("downs=%d active=%v dragging=%v left=%v", downs, c.ActiveObject(), c.Dragging(), o.Left)
	}
}

func TestScaleGestureKeepsOppositeEdge(t *testing.T) {
	c := NewCanvas(200, 200)
	o := newRect(10, 10, 50, 50)
	c.Add(o)
	c.SetActiveObject(o)
	var corner string
	c.On(ObjectScaling, func(e *Event) { corner = e.Transform.Corner })

	c.PointerDown(PointerInput{X: 60, Y: 60})
	c.PointerMove(PointerInput{X: 80, Y: 70})
	if corner != ControlBR || !approx(o.ScaleX, 1.4) || !approx(o.ScaleY, 1.2) || o.Left != 10 || o.Top != 10 {
		t.Fatalf("br scale: corner=%q scale=%v,%v pos=%v,%v", corner, o.ScaleX, o.ScaleY, o.Left, o.Top)
	}
	c.PointerUp(PointerInput{X: 80, Y: 70})

	o.BakeScale()
	c.PointerDown(PointerInput{X: 10, Y: 10})
	c.PointerMove(PointerInput{X: 0, Y: 5})
	if corner != ControlTL || !approx(o.Left, 0) || !approx(o.Top, 5) || !approx(o.ScaledWidth(), 80) || !approx(o.ScaledHeight(), 65) {
		t.Fatalf("tl scale: pos=%v,%v size=%v,%v", o.Left, o.Top, o.ScaledWidth(), o.ScaledHeight())
	}
}

func TestUniformScalingOnCorners(t *testing.T) {
	c := NewCanvas(200, 200)
	c.UniformScaling = true
	o := newRect(0, 0, 50, 25)
	c.Add(o)
	c.SetActiveObject(o)
	c.PointerDown(PointerInput{X: 50, Y: 25})
	c.PointerMove(PointerInput{X: 100, Y: 30})
	if !approx(o.ScaleX, 2) || !approx(o.ScaleY, 2) {
		t.Fatalf("uniform scale = %v,%v", o.ScaleX, o.ScaleY)
	}
	c.PointerMove(PointerInput{X: 100, Y: 30, Alt: true})
	if !approx(o.ScaleX, 2) || !approx(o.ScaleY, 1.2) {
		t.Fatalf("alt should free the aspect ratio: %v,%v", o.ScaleX, o.ScaleY)
	}
}

func TestRotateGestureAroundCenter(t *testing.T) {
	c := NewCanvas(200, 200)
	o := newRect(10, 10, 50, 50)
	c.Add(o)
	c.SetActiveObject(o)
	var raw float64
	c.On(ObjectRotating, func(e *Event) { raw = e.Transform.RawAngle })

	c.PointerDown(PointerInput{X: 35, Y: -30})
	c.PointerMove(PointerInput{X: 100, Y: 35})
	if !approx(raw, 90) || !approx(o.Angle, 90) {
		t.Fatalf("raw=%v angle=%v", raw, o.Angle)
	}
	ctr := o.Center()
	if !approx(ctr.X, 35) || !approx(ctr.Y, 35) {
		t.Fatalf("center moved to %v", ctr)
	}

	o.SnapAngle = 45
	c.PointerMove(PointerInput{X: 100, Y: 60})
	if o.Angle != 90 && o.Angle != 135 {
		t.Fatalf("snapped angle = %v", o.Angle)
	}
}

func TestToJSONAndLoadObjects(t *testing.T) {
	c := NewCanvas(200, 200)
	c.RegisterType("rect", func() *Object { return NewObject(&RectShape{}) })
	c.RegisterType("circle", func() *Object { return NewObject(&CircleShape{}) })
	page := newRect(0, 0, 10, 10)
	page.ExcludeFromExport = true
	r := newRect(1, 2, 30, 40)
	r.Name, r.Angle = "Rectangle 1", 15
	circ := NewObject(&CircleShape{Radius: 5})
	circ.Width, circ.Height = 10, 10
	c.Add(page, r, circ)

	data, err := json.Marshal(c.ToJSON())
	if err != nil {
		t.Fatal(err)
	}
	var back struct {
		Version string            `json:"version"`
		Objects []json.RawMessage `json:"objects"`
	}
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if back.Version != Version || len(back.Objects) != 2 {
		t.Fatalf("export = %s", data)
	}

	objs, err := c.LoadObjects(back.Objects)
	if err != nil {
		t.Fatal(err)
	}
	all := c.Objects()
	if len(all) != 3 || all[0] != page {
		t.Fatalf("page element must survive a load: %v", all)
	}
	if objs[0].Name != "Rectangle 1" || objs[0].Angle != 15 || objs[0].Width != 30 || objs[0].Top != 2 {
		t.Fatalf("rect = %+v", objs[0])
	}
	if cs, ok := objs[1].Variant.(*CircleShape); !ok || cs.Radius != 5 {
		t.Fatalf("circle variant = %#v", objs[1].Variant)
	}
}

func TestLoadObjectsUnknownTypeLeavesCanvas(t *testing.T) {
	c := NewCanvas(200, 200)
	c.RegisterType("rect", func() *Object { return NewObject(&RectShape{}) })
	o := newRect(0, 0, 5, 5)
	c.Add(o)
	_, err := c.LoadObjects([]json.RawMessage{[]byte(`{"type":"rect"}`), []byte(`{"type":"star"}`)})
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("err = %v", err)
	}
	if got := c.Objects(); len(got) != 1 || got[0] != o {
		t.Fatalf("canvas changed: %v", got)
	}
}

func TestSetAttrRejectsNonFinite(t *testing.T) {
	o := newRect(0, 0, 10, 10)
	if err := o.SetAttr(AttrLeft, math.NaN()); err == nil {
		t.Fatal("NaN accepted")
	}
	if err := o.SetAttr(AttrWidth, math.Inf(1)); err == nil {
		t.Fatal("Inf accepted")
	}
	if err := o.SetAttr(AttrSizeUnit, "CM"); err != nil || o.SizeUnit != "cm" {
		t.Fatalf("unit attr: %v %v", err, o.SizeUnit)
	}
	if v, ok := o.Attr(AttrWidth); !ok || v.(float64) != 10 {
		t.Fatalf("Attr(width) = %v", v)
	}
}

func TestOffRemovesHandler(t *testing.T) {
	c := NewCanvas(10, 10)
	n := 0
	off := c.On(ObjectAdded, func(*Event) { n++ })
	c.Add(newRect(0, 0, 1, 1))
	off()
	c.Add(newRect(0, 0, 1, 1))
	if n != 1 || c.HandlerCount(ObjectAdded) != 0 {
		t.Fatalf("n=%d handlers=%d", n, c.HandlerCount(ObjectAdded))
	}
}
