/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import "math"

// Control keys of the transform handles around the active object.
const (
	ControlTL  = "tl"
	ControlTR  = "tr"
	ControlBL  = "bl"
	ControlBR  = "br"
	ControlML  = "ml"
	ControlMR  = "mr"
	ControlMT  = "mt"
	ControlMB  = "mb"
	ControlMTR = "mtr"
)

// Handle geometry in screen pixels.
const (
	ControlSize        = 13
	RotateHandleOffset = 40
	minScaledSize      = 1
)

// Mouse buttons, DOM numbering.
const (
	ButtonLeft   = 0
	ButtonMiddle = 1
	ButtonRight  = 2
)

// PointerInput is one pointer sample in screen coordinates.
type PointerInput struct {
	X, Y   float64
	Button int
	Alt    bool
	Shift  bool
}

// WheelInput is one wheel tick at screen position X, Y.
type WheelInput struct {
	X, Y   float64
	DeltaY float64
}

type gesture struct {
	action  string
	corner  string
	target  *Object
	targets []*Object
	start   Pt // page
	starts  []Pt
	changed bool

	// scale
	frame    Affine2D
	sw0, sh0 float64

	// rotate
	center Pt
	angle0 float64
	theta0 float64
}

// Controls returns the screen position of every handle of o.
func (c *Canvas) Controls(o *Object) map[string]Pt {
	m := c.vpt.Mul(o.Transform())
	w, h := o.ScaledWidth(), o.ScaledHeight()
	pts := map[string]Pt{
		ControlTL: m.Apply(Pt{0, 0}),
		ControlTR: m.Apply(Pt{w, 0}),
		ControlBL: m.Apply(Pt{0, h}),
		ControlBR: m.Apply(Pt{w, h}),
		ControlMT: m.Apply(Pt{w / 2, 0}),
		ControlMB: m.Apply(Pt{w / 2, h}),
		ControlML: m.Apply(Pt{0, h / 2}),
		ControlMR: m.Apply(Pt{w, h / 2}),
	}
	up := Pt{0, -RotateHandleOffset}.Rotate(o.Angle)
	pts[ControlMTR] = pts[ControlMT].Add(up)
	return pts
}

// ControlAt returns the handle of the single active object under screen
// point p, or "".
func (c *Canvas) ControlAt(p Pt) string {
	o := c.ActiveObject()
	if o == nil || !o.Selectable {
		return ""
	}
	order := []string{ControlMTR, ControlTL, ControlTR, ControlBL, ControlBR, ControlML, ControlMR, ControlMT, ControlMB}
	ctl := c.Controls(o)
	for _, k := range order {
		q := ctl[k]
		if math.Abs(q.X-p.X) <= ControlSize/2.0 && math.Abs(q.Y-p.Y) <= ControlSize/2.0 {
			return k
		}
	}
	return ""
}

func (c *Canvas) pointerEvent(in PointerInput) *Event {
	s := Pt{in.X, in.Y}
	return &Event{Screen: s, Pointer: c.ToPage(s), Button: in.Button, Alt: in.Alt, Shift: in.Shift}
}

// PointerDown reports mouse:down and, while Selection is enabled, starts a
// selection or gesture.
func (c *Canvas) PointerDown(in PointerInput) {
	e := c.pointerEvent(in)
	var target *Object
	if c.Selection {
		target = c.FindTarget(e.Screen)
	}
	e.Target = target
	c.Fire(MouseDown, e)
	if !c.Selection || in.Button != ButtonLeft {
		return
	}

	if corner := c.ControlAt(e.Screen); corner != "" {
		o := c.ActiveObject()
		if corner == ControlMTR {
			c.beginRotate(o, e.Pointer)
		} else {
			c.beginScale(o, corner)
		}
		return
	}
	if target == nil || !target.Selectable {
		c.setActive(nil, true)
		return
	}
	switch {
	case in.Shift && len(c.active) > 0:
		if containsObj(c.active, target) {
			c.setActive(without(c.active, target), true)
			return
		}
		c.setActive(append(c.ActiveObjects(), target), true)
	case !containsObj(c.active, target):
		c.setActive([]*Object{target}, true)
	}
	c.beginMove(e.Pointer)
}

// PointerMove reports mouse:move and advances a running gesture.
func (c *Canvas) PointerMove(in PointerInput) {
	e := c.pointerEvent(in)
	c.Fire(MouseMove, e)
	g := c.gesture
	if g == nil {
		return
	}
	switch g.action {
	case "drag":
		c.moveTo(g, e)
	case "scale":
		c.scaleTo(g, e)
	case "rotate":
		c.rotateTo(g, e)
	}
}

// PointerUp reports mouse:up and finishes a running gesture with
// object:modified.
func (c *Canvas) PointerUp(in PointerInput) {
	e := c.pointerEvent(in)
	g := c.gesture
	c.gesture = nil
	if g != nil {
		e.Target = g.target
	}
	c.Fire(MouseUp, e)
	if g == nil || !g.changed {
		return
	}
	for _, o := range g.targets {
		c.Fire(ObjectModified, &Event{Target: o, Transform: &Transform{Action: g.action, Corner: g.corner}})
	}
}

// Wheel reports mouse:wheel; zoom policy is left to the handlers.
func (c *Canvas) Wheel(in WheelInput) {
	s := Pt{in.X, in.Y}
	c.Fire(MouseWheel, &Event{Screen: s, Pointer: c.ToPage(s), DeltaY: in.DeltaY})
}

// Dragging reports whether a gesture is running.
func (c *Canvas) Dragging() bool { return c.gesture != nil }

func (c *Canvas) beginMove(p Pt) {
	g := &gesture{action: "drag", start: p, targets: c.ActiveObjects()}
	g.target = firstOf(g.targets)
	for _, o := range g.targets {
		g.starts = append(g.starts, Pt{o.Left, o.Top})
	}
	c.gesture = g
}

func (c *Canvas) moveTo(g *gesture, e *Event) {
	d := e.Pointer.Sub(g.start)
	for i, o := range g.targets {
		if o.canvas != c {
			continue
		}
		o.Left, o.Top = g.starts[i].X+d.X, g.starts[i].Y+d.Y
		g.changed = true
		c.Fire(ObjectMoving, &Event{Target: o, Pointer: e.Pointer, Screen: e.Screen, Alt: e.Alt, Shift: e.Shift,
			Transform: &Transform{Action: "drag"}})
	}
	c.RequestRender()
}

func (c *Canvas) beginScale(o *Object, corner string) {
	c.gesture = &gesture{
		action:  "scale",
		corner:  corner,
		target:  o,
		targets: []*Object{o},
		frame:   o.Transform(),
		sw0:     o.ScaledWidth(),
		sh0:     o.ScaledHeight(),
	}
}

func (g *gesture) movesLeft() bool   { return g.corner == ControlTL || g.corner == ControlML || g.corner == ControlBL }
func (g *gesture) movesRight() bool  { return g.corner == ControlTR || g.corner == ControlMR || g.corner == ControlBR }
func (g *gesture) movesTop() bool    { return g.corner == ControlTL || g.corner == ControlMT || g.corner == ControlTR }
func (g *gesture) movesBottom() bool { return g.corner == ControlBL || g.corner == ControlMB || g.corner == ControlBR }

func isCorner(k string) bool {
	return k == ControlTL || k == ControlTR || k == ControlBL || k == ControlBR
}

// scaleTo resizes in the object frame captured at gesture start; the edge
// opposite the dragged handle stays put.
func (c *Canvas) scaleTo(g *gesture, e *Event) {
	o := g.target
	if o.canvas != c {
		return
	}
	q := g.frame.Invert().Apply(e.Pointer)
	sw, sh := g.sw0, g.sh0
	switch {
	case g.movesRight():
		sw = q.X
	case g.movesLeft():
		sw = g.sw0 - q.X
	}
	switch {
	case g.movesBottom():
		sh = q.Y
	case g.movesTop():
		sh = g.sh0 - q.Y
	}
	sw = math.Max(sw, minScaledSize)
	sh = math.Max(sh, minScaledSize)
	if isCorner(g.corner) && c.UniformScaling != e.Alt && g.sw0 > 0 && g.sh0 > 0 {
		f := math.Max(sw/g.sw0, sh/g.sh0)
		sw, sh = g.sw0*f, g.sh0*f
	}

	var ox, oy float64
	if g.movesLeft() {
		ox = g.sw0 - sw
	}
	if g.movesTop() {
		oy = g.sh0 - sh
	}
	origin := g.frame.Apply(Pt{ox, oy})
	o.Left, o.Top = origin.X, origin.Y
	if base := o.Width + o.StrokeWidth; base > 0 {
		o.ScaleX = sw / base
	}
	if base := o.Height + o.StrokeWidth; base > 0 {
		o.ScaleY = sh / base
	}
	g.changed = true
	c.Fire(ObjectScaling, &Event{Target: o, Pointer: e.Pointer, Screen: e.Screen, Alt: e.Alt, Shift: e.Shift,
		Transform: &Transform{Action: "scale", Corner: g.corner}})
	c.RequestRender()
}

func (c *Canvas) beginRotate(o *Object, p Pt) {
	ctr := o.Center()
	c.gesture = &gesture{
		action:  "rotate",
		corner:  ControlMTR,
		target:  o,
		targets: []*Object{o},
		center:  ctr,
		angle0:  o.Angle,
		theta0:  math.Atan2(p.Y-ctr.Y, p.X-ctr.X),
	}
}

func (c *Canvas) rotateTo(g *gesture, e *Event) {
	o := g.target
	if o.canvas != c {
		return
	}
	theta := math.Atan2(e.Pointer.Y-g.center.Y, e.Pointer.X-g.center.X)
	raw := g.angle0 + (theta-g.theta0)*180/math.Pi
	o.RotateAroundCenter(SnapTo(raw, o.SnapAngle))
	g.changed = true
	c.Fire(ObjectRotating, &Event{Target: o, Pointer: e.Pointer, Screen: e.Screen, Alt: e.Alt, Shift: e.Shift,
		Transform: &Transform{Action: "rotate", Corner: ControlMTR, RawAngle: raw}})
	c.RequestRender()
}
