/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/vector"

	"labeldesigner/internal/scene"
)

const ellipseSegments = 96

// RenderPNG rasterises l at opt.DPI with anti-aliased edges.
func RenderPNG(l Label, opt Options) (*image.RGBA, error) {
	if err := l.validate(); err != nil {
		return nil, err
	}
	opt = opt.withDefaults()
	scale := opt.DPI / 25.4 // px per mm
	pixW := int(math.Round(l.WidthMM * scale))
	pixH := int(math.Round(l.HeightMM * scale))
	if pixW <= 0 || pixH <= 0 {
		return nil, fmt.Errorf("%w: %dx%d px at %v dpi", ErrEmptyLabel, pixW, pixH, opt.DPI)
	}
	img := image.NewRGBA(image.Rect(0, 0, pixW, pixH))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: opt.Background}, image.Point{}, draw.Src)

	Draw(img, l, scene.Scale(scale, scale))
	if opt.IncludeGuides {
		z := vector.NewRasterizer(pixW, pixH)
		page := scene.Affine2D{A: 1, D: 1}
		outline(z, page, false, 0, float64(pixW), float64(pixH), false)
		outline(z, page, false, 1, float64(pixW), float64(pixH), true)
		paint(z, img, opt.GuideColor)
	}
	return img, nil
}

// Draw paints the objects of l onto dst. view maps label millimetres to dst
// pixels; RenderPNG passes a plain scale, the editor view adds pan and zoom.
func Draw(dst *image.RGBA, l Label, view scene.Affine2D) {
	b := dst.Bounds()
	z := vector.NewRasterizer(b.Dx(), b.Dy())
	for _, s := range l.shapes() {
		m := view.Mul(scene.Translate(s.X, s.Y)).Mul(scene.Rotate(s.Angle))
		hasStroke := s.StrokeWidth > 0 && s.Stroke.A > 0
		if s.Fill.A > 0 {
			in := 0.0
			if hasStroke {
				in = s.StrokeWidth / 2
			}
			z.Reset(b.Dx(), b.Dy())
			outline(z, m, s.Ellipse, in, s.W, s.H, false)
			paint(z, dst, s.Fill)
		}
		if hasStroke {
			z.Reset(b.Dx(), b.Dy())
			outline(z, m, s.Ellipse, 0, s.W, s.H, false)
			outline(z, m, s.Ellipse, s.StrokeWidth, s.W, s.H, true)
			paint(z, dst, s.Stroke)
		}
	}
}

// WritePNG renders l and encodes it as PNG.
func WritePNG(w io.Writer, l Label, opt Options) error {
	img, err := RenderPNG(l, opt)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// outline adds the box [0,w]x[0,h] inset by in, or the ellipse inscribed in
// it, transformed by m. reverse flips the winding so the path cuts a hole.
func outline(z *vector.Rasterizer, m scene.Affine2D, ellipse bool, in, w, h float64, reverse bool) {
	iw, ih := w-2*in, h-2*in
	if iw <= 0 || ih <= 0 {
		return
	}
	var pts []scene.Pt
	if ellipse {
		cx, cy, rx, ry := w/2, h/2, iw/2, ih/2
		pts = make([]scene.Pt, ellipseSegments)
		for i := range pts {
			a := 2 * math.Pi * float64(i) / ellipseSegments
			pts[i] = scene.Pt{X: cx + rx*math.Cos(a), Y: cy + ry*math.Sin(a)}
		}
	} else {
		pts = []scene.Pt{{X: in, Y: in}, {X: w - in, Y: in}, {X: w - in, Y: h - in}, {X: in, Y: h - in}}
	}
	if reverse {
		for i, j := 0, len(pts)-1; i < j; i, j = i+1, j-1 {
			pts[i], pts[j] = pts[j], pts[i]
		}
	}
	for i, p := range pts {
		q := m.Apply(p)
		if i == 0 {
			z.MoveTo(float32(q.X), float32(q.Y))
			continue
		}
		z.LineTo(float32(q.X), float32(q.Y))
	}
	z.ClosePath()
}

func paint(z *vector.Rasterizer, dst *image.RGBA, c color.RGBA) {
	z.DrawOp = draw.Over
	z.Draw(dst, dst.Bounds(), &image.Uniform{C: c}, image.Point{})
}
