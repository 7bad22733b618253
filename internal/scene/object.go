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
	"fmt"
	"math"

	"labeldesigner/internal/units"
)

// Kind discriminates object variants; it doubles as the serialized type tag.
type Kind string

// Variant carries the kind-specific part of an Object.
type Variant interface {
	Kind() Kind
}

// Containment lets a variant refine hit testing inside the local box
// [0,w]x[0,h]. Variants without it hit on the whole box.
type Containment interface {
	Contains(local Pt, w, h float64) bool
}

// ResizeAware variants are told when the object's true size was re-baked.
type ResizeAware interface {
	Resized(o *Object)
}

// RectShape is a rectangle with optional corner radii.
type RectShape struct {
	RX float64 `json:"rx"`
	RY float64 `json:"ry"`
}

func (*RectShape) Kind() Kind { return "rect" }

// CircleShape is an ellipse inscribed in the object's box. Radius follows
// the width.
type CircleShape struct {
	Radius float64 `json:"radius"`
}

func (*CircleShape) Kind() Kind { return "circle" }

func (*CircleShape) Contains(q Pt, w, h float64) bool {
	rx, ry := w/2, h/2
	if rx <= 0 || ry <= 0 {
		return false
	}
	dx := (q.X - rx) / rx
	dy := (q.Y - ry) / ry
	return dx*dx+dy*dy <= 1
}

func (c *CircleShape) Resized(o *Object) { c.Radius = o.Width / 2 }

// Object is one placed primitive. Geometry is page-relative pixels. Width and
// Height are the true size; ScaleX/ScaleY are only non-1 while an interactive
// resize is in flight.
type Object struct {
	ID          string
	Kind        Kind
	Name        string
	Left, Top   float64
	Width       float64
	Height      float64
	Angle       float64
	ScaleX      float64
	ScaleY      float64
	StrokeWidth float64
	Fill        string
	Stroke      string

	// Units the object was last edited in, per attribute group.
	PositionUnit    units.Unit
	SizeUnit        units.Unit
	StrokeWidthUnit units.Unit

	Variant Variant

	Selectable        bool
	Evented           bool
	ExcludeFromExport bool
	// SnapAngle quantises interactive rotation; 0 disables snapping.
	SnapAngle float64

	canvas *Canvas
}

// NewObject returns an object of variant v with neutral defaults.
func NewObject(v Variant) *Object {
	return &Object{
		Kind:       v.Kind(),
		Variant:    v,
		ScaleX:     1,
		ScaleY:     1,
		Fill:       "transparent",
		Stroke:     "black",
		Selectable: true,
		Evented:    true,
	}
}

// Canvas returns the canvas the object is attached to, or nil.
func (o *Object) Canvas() *Canvas { return o.canvas }

// ScaledWidth is the on-page width including stroke.
func (o *Object) ScaledWidth() float64 { return (o.Width + o.StrokeWidth) * o.ScaleX }

// ScaledHeight is the on-page height including stroke.
func (o *Object) ScaledHeight() float64 { return (o.Height + o.StrokeWidth) * o.ScaleY }

// Transform maps the local box [0,ScaledWidth]x[0,ScaledHeight] to page
// coordinates. The object rotates around its (Left, Top) origin.
func (o *Object) Transform() Affine2D {
	return Translate(o.Left, o.Top).Mul(Rotate(o.Angle))
}

// Corners returns tl, tr, br, bl in page coordinates.
func (o *Object) Corners() [4]Pt {
	m := o.Transform()
	w, h := o.ScaledWidth(), o.ScaledHeight()
	return [4]Pt{m.Apply(Pt{0, 0}), m.Apply(Pt{w, 0}), m.Apply(Pt{w, h}), m.Apply(Pt{0, h})}
}

// Bounds is the axis-aligned page box around the rotated object.
func (o *Object) Bounds() Rect {
	c := o.Corners()
	return boundsOf(c[:]...)
}

// Center returns the page coordinate of the object's center.
func (o *Object) Center() Pt {
	return o.Transform().Apply(Pt{o.ScaledWidth() / 2, o.ScaledHeight() / 2})
}

// RotateAroundCenter sets the angle while keeping the center fixed.
func (o *Object) RotateAroundCenter(deg float64) {
	c := o.Center()
	o.Angle = NormalizeAngle(deg)
	off := Pt{o.ScaledWidth() / 2, o.ScaledHeight() / 2}.Rotate(o.Angle)
	o.Left, o.Top = c.X-off.X, c.Y-off.Y
}

// Hit reports whether page point p lies on the object.
func (o *Object) Hit(p Pt) bool {
	q := o.Transform().Invert().Apply(p)
	w, h := o.ScaledWidth(), o.ScaledHeight()
	if !(Rect{W: w, H: h}).Contains(q) {
		return false
	}
	if c, ok := o.Variant.(Containment); ok {
		return c.Contains(q, w, h)
	}
	return true
}

// BakeScale folds ScaleX/ScaleY into Width/Height and resets them to 1.
func (o *Object) BakeScale() {
	o.Width *= o.ScaleX
	o.Height *= o.ScaleY
	o.ScaleX, o.ScaleY = 1, 1
	if r, ok := o.Variant.(ResizeAware); ok {
		r.Resized(o)
	}
}

// Attribute names understood by Attr and SetAttr.
const (
	AttrName            = "name"
	AttrLeft            = "left"
	AttrTop             = "top"
	AttrWidth           = "width"
	AttrHeight          = "height"
	AttrAngle           = "angle"
	AttrScaleX          = "scaleX"
	AttrScaleY          = "scaleY"
	AttrStrokeWidth     = "strokeWidth"
	AttrFill            = "fill"
	AttrStroke          = "stroke"
	AttrPositionUnit    = "positionUnit"
	AttrSizeUnit        = "sizeUnit"
	AttrStrokeWidthUnit = "strokeWidthUnit"
)

func (o *Object) floatField(name string) *float64 {
	switch name {
	case AttrLeft:
		return &o.Left
	case AttrTop:
		return &o.Top
	case AttrWidth:
		return &o.Width
	case AttrHeight:
		return &o.Height
	case AttrAngle:
		return &o.Angle
	case AttrScaleX:
		return &o.ScaleX
	case AttrScaleY:
		return &o.ScaleY
	case AttrStrokeWidth:
		return &o.StrokeWidth
	}
	return nil
}

func (o *Object) stringField(name string) *string {
	switch name {
	case AttrName:
		return &o.Name
	case AttrFill:
		return &o.Fill
	case AttrStroke:
		return &o.Stroke
	}
	return nil
}

func (o *Object) unitField(name string) *units.Unit {
	switch name {
	case AttrPositionUnit:
		return &o.PositionUnit
	case AttrSizeUnit:
		return &o.SizeUnit
	case AttrStrokeWidthUnit:
		return &o.StrokeWidthUnit
	}
	return nil
}

// Attr reads a named attribute. Numbers are float64, colors and names are
// string, unit shadows are units.Unit.
func (o *Object) Attr(name string) (any, bool) {
	if f := o.floatField(name); f != nil {
		return *f, true
	}
	if s := o.stringField(name); s != nil {
		return *s, true
	}
	if u := o.unitField(name); u != nil {
		return *u, true
	}
	return nil, false
}

// SetAttr writes a named attribute. Numeric attributes reject non-finite
// values; unit attributes reject unknown units.
func (o *Object) SetAttr(name string, v any) error {
	if f := o.floatField(name); f != nil {
		var n float64
		switch x := v.(type) {
		case float64:
			n = x
		case float32:
			n = float64(x)
		case int:
			n = float64(x)
		default:
			return fmt.Errorf("attribute %s: want number, got %T", name, v)
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return fmt.Errorf("attribute %s: non-finite value", name)
		}
		*f = n
		if name == AttrWidth {
			if r, ok := o.Variant.(ResizeAware); ok {
				r.Resized(o)
			}
		}
		return nil
	}
	if s := o.stringField(name); s != nil {
		x, ok := v.(string)
		if !ok {
			return fmt.Errorf("attribute %s: want string, got %T", name, v)
		}
		*s = x
		return nil
	}
	if u := o.unitField(name); u != nil {
		var parsed units.Unit
		var err error
		switch x := v.(type) {
		case units.Unit:
			parsed, err = units.Parse(string(x))
		case string:
			parsed, err = units.Parse(x)
		default:
			return fmt.Errorf("attribute %s: want unit, got %T", name, v)
		}
		if err != nil {
			return fmt.Errorf("attribute %s: %w", name, err)
		}
		*u = parsed
		return nil
	}
	return fmt.Errorf("unknown attribute %q", name)
}

// objectJSON is the wire shape of the shared part of an object.
type objectJSON struct {
	Type            Kind       `json:"type"`
	ID              string     `json:"id,omitempty"`
	Name            string     `json:"name,omitempty"`
	Left            float64    `json:"left"`
	Top             float64    `json:"top"`
	Width           float64    `json:"width"`
	Height          float64    `json:"height"`
	Angle           float64    `json:"angle"`
	ScaleX          float64    `json:"scaleX"`
	ScaleY          float64    `json:"scaleY"`
	StrokeWidth     float64    `json:"strokeWidth"`
	Fill            string     `json:"fill"`
	Stroke          string     `json:"stroke"`
	PositionUnit    units.Unit `json:"positionUnit,omitempty"`
	SizeUnit        units.Unit `json:"sizeUnit,omitempty"`
	StrokeWidthUnit units.Unit `json:"strokeWidthUnit,omitempty"`
}

// MarshalJSON flattens the shared fields and the variant fields into one object.
func (o *Object) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal(objectJSON{
		Type: o.Kind, ID: o.ID, Name: o.Name,
		Left: o.Left, Top: o.Top, Width: o.Width, Height: o.Height, Angle: o.Angle,
		ScaleX: o.ScaleX, ScaleY: o.ScaleY, StrokeWidth: o.StrokeWidth,
		Fill: o.Fill, Stroke: o.Stroke,
		PositionUnit: o.PositionUnit, SizeUnit: o.SizeUnit, StrokeWidthUnit: o.StrokeWidthUnit,
	})
	if err != nil || o.Variant == nil {
		return base, err
	}
	extra, err := json.Marshal(o.Variant)
	if err != nil {
		return nil, fmt.Errorf("marshal %s variant: %w", o.Kind, err)
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(extra, &fields); err != nil {
		return nil, fmt.Errorf("variant %s must marshal to an object: %w", o.Kind, err)
	}
	for k, v := range fields {
		if _, clash := merged[k]; !clash {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON fills the shared fields and, when Variant is set, the
// variant fields. Fields absent from data keep their current values, so an
// object produced by a type factory keeps its defaults.
func (o *Object) UnmarshalJSON(data []byte) error {
	cur := objectJSON{
		Type: o.Kind, ID: o.ID, Name: o.Name,
		Left: o.Left, Top: o.Top, Width: o.Width, Height: o.Height, Angle: o.Angle,
		ScaleX: o.ScaleX, ScaleY: o.ScaleY, StrokeWidth: o.StrokeWidth,
		Fill: o.Fill, Stroke: o.Stroke,
		PositionUnit: o.PositionUnit, SizeUnit: o.SizeUnit, StrokeWidthUnit: o.StrokeWidthUnit,
	}
	if err := json.Unmarshal(data, &cur); err != nil {
		return err
	}
	if o.Variant != nil && cur.Type != o.Variant.Kind() {
		return fmt.Errorf("object type %q does not match variant %q", cur.Type, o.Variant.Kind())
	}
	o.Kind, o.ID, o.Name = cur.Type, cur.ID, cur.Name
	o.Left, o.Top, o.Width, o.Height, o.Angle = cur.Left, cur.Top, cur.Width, cur.Height, cur.Angle
	o.ScaleX, o.ScaleY, o.StrokeWidth = cur.ScaleX, cur.ScaleY, cur.StrokeWidth
	o.Fill, o.Stroke = cur.Fill, cur.Stroke
	o.PositionUnit, o.SizeUnit, o.StrokeWidthUnit = cur.PositionUnit, cur.SizeUnit, cur.StrokeWidthUnit
	if o.ScaleX == 0 {
		o.ScaleX = 1
	}
	if o.ScaleY == 0 {
		o.ScaleY = 1
	}
	if o.Variant != nil {
		if err := json.Unmarshal(data, o.Variant); err != nil {
			return fmt.Errorf("unmarshal %s variant: %w", o.Kind, err)
		}
	}
	return nil
}
