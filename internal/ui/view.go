/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package ui is the desktop shell of the label designer. The Fyne window
// is only built with -tags fyne; the view rendering here is shared and
// headless.
package ui

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"labeldesigner/internal/config"
	"labeldesigner/internal/designer"
	"labeldesigner/internal/editor"
	"labeldesigner/internal/export"
	"labeldesigner/internal/scene"
	"labeldesigner/internal/storage"
	"labeldesigner/internal/units"
)

// Options for Run.
type Options struct {
	Config   config.AppConfig
	Library  *storage.Library
	Template editor.TemplateInfo
	// Text is loaded into the session when not empty.
	Text string
}

var (
	viewBackground = color.RGBA{R: 30, G: 30, B: 34, A: 255}
	viewPage       = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	viewSelection  = color.RGBA{R: 0, G: 170, B: 255, A: 255}
	viewGrid       = color.RGBA{R: 220, G: 220, B: 230, A: 255}
)

const handleSize = 6

// RenderView draws what the surface shows at w x h screen pixels: the page,
// the grid when enabled, the design and the selection controls.
func RenderView(s *designer.Session, w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: viewBackground}, image.Point{}, draw.Src)
	c := s.Canvas
	st := s.Store.Get()
	vpt := c.ViewportTransform()

	tl := vpt.Apply(scene.Pt{})
	br := vpt.Apply(scene.Pt{X: st.PageWidth, Y: st.PageHeight})
	page := image.Rect(int(math.Round(tl.X)), int(math.Round(tl.Y)), int(math.Round(br.X)), int(math.Round(br.Y)))
	draw.Draw(img, page.Intersect(img.Bounds()), &image.Uniform{C: viewPage}, image.Point{}, draw.Src)

	if st.PageSettings.Grid.Show {
		if g, err := st.PageSettings.GridPixels(); err == nil && g*vpt.A >= 4 {
			drawGrid(img, page, g*vpt.A)
		}
	}

	pxPerMM, _ := units.ToPixels(1, units.Millimeter)
	label := export.Label{WidthMM: st.Template.WidthMM, HeightMM: st.Template.HeightMM, Objects: c.Objects()}
	export.Draw(img, label, vpt.Mul(scene.Scale(pxPerMM, pxPerMM)))

	for _, o := range c.ActiveObjects() {
		drawSelection(img, c, o)
	}
	return img
}

func drawGrid(img *image.RGBA, page image.Rectangle, step float64) {
	for x := float64(page.Min.X); x < float64(page.Max.X); x += step {
		col := image.Rect(int(x), page.Min.Y, int(x)+1, page.Max.Y)
		draw.Draw(img, col.Intersect(img.Bounds()), &image.Uniform{C: viewGrid}, image.Point{}, draw.Over)
	}
	for y := float64(page.Min.Y); y < float64(page.Max.Y); y += step {
		row := image.Rect(page.Min.X, int(y), page.Max.X, int(y)+1)
		draw.Draw(img, row.Intersect(img.Bounds()), &image.Uniform{C: viewGrid}, image.Point{}, draw.Over)
	}
}

func drawSelection(img *image.RGBA, c *scene.Canvas, o *scene.Object) {
	vpt := c.ViewportTransform()
	corners := o.Corners()
	for i := range corners {
		a, b := vpt.Apply(corners[i]), vpt.Apply(corners[(i+1)%len(corners)])
		drawLine(img, a, b, viewSelection)
	}
	// Controls are in screen space already.
	for _, q := range c.Controls(o) {
		r := image.Rect(int(q.X)-handleSize/2, int(q.Y)-handleSize/2, int(q.X)+handleSize/2, int(q.Y)+handleSize/2)
		draw.Draw(img, r.Intersect(img.Bounds()), &image.Uniform{C: viewSelection}, image.Point{}, draw.Src)
	}
}

func drawLine(img *image.RGBA, a, b scene.Pt, c color.RGBA) {
	n := int(math.Ceil(a.Dist(b)))
	for i := 0; i <= n; i++ {
		t := 0.0
		if n > 0 {
			t = float64(i) / float64(n)
		}
		x := int(math.Round(a.X + (b.X-a.X)*t))
		y := int(math.Round(a.Y + (b.Y-a.Y)*t))
		if image.Pt(x, y).In(img.Bounds()) {
			img.SetRGBA(x, y, c)
		}
	}
}

// NewSession opens a designer session for opts sized to the window.
func NewSession(opts Options, width, height float64) (*designer.Session, error) {
	ps, err := opts.Config.Editor.PageSettings()
	if err != nil {
		ps = editor.DefaultPageSettings()
	}
	s, err := designer.New(designer.Options{
		Template:      opts.Template,
		PageSettings:  ps,
		Surface:       opts.Config.Editor.SurfaceOptions(),
		CanvasWidth:   width,
		CanvasHeight:  height,
		Library:       opts.Library,
		KeepSnapshots: opts.Config.Library.Snapshots,
	})
	if err != nil {
		return nil, err
	}
	if opts.Text != "" {
		// A parse failure leaves the session in its failure mode for the
		// window to offer discard or raw text.
		_ = s.SetCode(opts.Text)
	}
	return s, nil
}
