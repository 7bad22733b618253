/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders label previews as SVG, PDF and PNG at physical size.
package export

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"

	"labeldesigner/internal/editor"
	"labeldesigner/internal/scene"
	"labeldesigner/internal/units"
)

// ErrEmptyLabel is returned for labels without a positive size.
var ErrEmptyLabel = errors.New("label has no size")

// Label is a design ready for rendering. Object geometry is in page pixels.
type Label struct {
	Name     string
	WidthMM  float64
	HeightMM float64
	Objects  []*scene.Object
}

// FromDesign collects the exportable objects on c for the template of s.
func FromDesign(s editor.State, c *scene.Canvas) (Label, error) {
	if c == nil {
		return Label{}, errors.New("no canvas to export")
	}
	return Label{Name: s.Template.Name, WidthMM: s.Template.WidthMM, HeightMM: s.Template.HeightMM, Objects: c.ToJSON().Objects}, nil
}

func (l Label) validate() error {
	if !(l.WidthMM > 0) || !(l.HeightMM > 0) {
		return fmt.Errorf("%w: %vx%v mm", ErrEmptyLabel, l.WidthMM, l.HeightMM)
	}
	return nil
}

// Options shared by all renderers.
type Options struct {
	// IncludeGuides draws a hairline around the label edge.
	IncludeGuides bool
	// DPI drives raster size and the SVG width/height attributes; 0 means 300.
	DPI        float64
	GuideColor color.RGBA
	// Background fills the label before drawing; zero means white.
	Background color.RGBA
}

func (o Options) withDefaults() Options {
	if o.DPI <= 0 {
		o.DPI = 300
	}
	if o.GuideColor == (color.RGBA{}) {
		o.GuideColor = color.RGBA{R: 255, A: 255}
	}
	if o.Background == (color.RGBA{}) {
		o.Background = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	}
	return o
}

// mm converts page pixels to millimetres.
func mm(px float64) float64 {
	v, _ := units.ToUnitSigned(px, units.Millimeter)
	return v
}

// shape is an object in mm with its box anchored at (X, Y) and rotated by
// Angle degrees clockwise around that anchor.
type shape struct {
	ID          string
	X, Y        float64
	W, H        float64
	Angle       float64
	StrokeWidth float64
	Fill        color.RGBA
	Stroke      color.RGBA
	Ellipse     bool
}

func shapeOf(o *scene.Object) shape {
	fill, _ := ParseColor(o.Fill)
	stroke, _ := ParseColor(o.Stroke)
	_, round := o.Variant.(*scene.CircleShape)
	return shape{
		ID: o.ID, X: mm(o.Left), Y: mm(o.Top),
		W: mm(o.ScaledWidth()), H: mm(o.ScaledHeight()),
		Angle:       scene.NormalizeAngle(o.Angle),
		StrokeWidth: mm(o.StrokeWidth),
		Fill:        fill, Stroke: stroke, Ellipse: round,
	}
}

func (l Label) shapes() []shape {
	out := make([]shape, 0, len(l.Objects))
	for _, o := range l.Objects {
		if o == nil || o.ExcludeFromExport {
			continue
		}
		out = append(out, shapeOf(o))
	}
	return out
}

// ParseColor understands the colour strings the editor stores: CSS names,
// "transparent", #rgb, #rrggbb, #rrggbbaa and rgb()/rgba().
func ParseColor(s string) (color.RGBA, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch {
	case s == "" || s == "transparent" || s == "none":
		return color.RGBA{}, true
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgb"):
		return parseFunc(s)
	}
	c, ok := colornames.Map[s]
	return c, ok
}

func parseHex(h string) (color.RGBA, bool) {
	switch len(h) {
	case 3, 4:
		var b strings.Builder
		for _, r := range h {
			b.WriteRune(r)
			b.WriteRune(r)
		}
		h = b.String()
	}
	if len(h) == 6 {
		h += "ff"
	}
	if len(h) != 8 {
		return color.RGBA{}, false
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, false
	}
	a := uint16(uint8(v))
	pm := func(c uint8) uint8 { return uint8(uint16(c) * a / 255) }
	return color.RGBA{R: pm(uint8(v >> 24)), G: pm(uint8(v >> 16)), B: pm(uint8(v >> 8)), A: uint8(a)}, true
}

func parseFunc(s string) (color.RGBA, bool) {
	open, end := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return color.RGBA{}, false
	}
	parts := strings.Split(s[open+1:end], ",")
	if len(parts) != 3 && len(parts) != 4 {
		return color.RGBA{}, false
	}
	var ch [4]float64
	ch[3] = 1
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return color.RGBA{}, false
		}
		ch[i] = v
	}
	clamp := func(v, max float64) uint8 { return uint8(math.Round(math.Max(0, math.Min(v, max)) * 255 / max)) }
	a := clamp(ch[3], 1)
	// color.RGBA is alpha-premultiplied.
	pm := func(v float64) uint8 { return uint8(uint16(clamp(v, 255)) * uint16(a) / 255) }
	return color.RGBA{R: pm(ch[0]), G: pm(ch[1]), B: pm(ch[2]), A: a}, true
}

// straight returns the non-premultiplied channels of c.
func straight(c color.RGBA) (r, g, b uint8) {
	if c.A == 0 || c.A == 255 {
		return c.R, c.G, c.B
	}
	un := func(v uint8) uint8 { return uint8(math.Min(255, math.Round(float64(v)*255/float64(c.A)))) }
	return un(c.R), un(c.G), un(c.B)
}
