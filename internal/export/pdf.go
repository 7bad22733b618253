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
	"image/color"
	"io"
	"math"

	"github.com/jung-kurt/gofpdf"

	"labeldesigner/internal/version"
)

// WritePDF renders l as a single page PDF of the label's physical size.
//
// Coordinates:
// - Page origin is top-left, units are millimetres.
// - Objects rotate clockwise around their top-left anchor; gofpdf rotates
// counter-clockwise, so angles are negated.
func WritePDF(w io.Writer, l Label, opt Options) error {
	if err := l.validate(); err != nil {
		return err
	}
	opt = opt.withDefaults()

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "mm",
		Size:    gofpdf.SizeType{Wd: l.WidthMM, Ht: l.HeightMM},
		// Orientation follows the size
		OrientationStr: "",
	})
	if l.Name != "" {
		pdf.SetTitle(l.Name, true)
	}
	pdf.SetCreator("labeldesigner "+version.String(), true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPageFormat("", gofpdf.SizeType{Wd: l.WidthMM, Ht: l.HeightMM})

	setFillColor(pdf, opt.Background)
	pdf.Rect(0, 0, l.WidthMM, l.HeightMM, "F")

	for _, s := range l.shapes() {
		style := ""
		if s.Fill.A > 0 {
			setFillColor(pdf, s.Fill)
			style += "F"
		}
		in := 0.0
		if s.StrokeWidth > 0 && s.Stroke.A > 0 {
			setDrawColor(pdf, s.Stroke)
			pdf.SetLineWidth(s.StrokeWidth)
			in = s.StrokeWidth / 2
			style += "D"
		}
		if style == "" {
			continue
		}
		// Fill and stroke may differ in alpha; gofpdf has one alpha per state.
		pdf.SetAlpha(math.Max(opacity(s.Fill), opacity(s.Stroke)), "Normal")
		if s.Angle != 0 {
			pdf.TransformBegin()
			pdf.TransformRotate(-s.Angle, s.X, s.Y)
		}
		w, h := math.Max(0, s.W-2*in), math.Max(0, s.H-2*in)
		if s.Ellipse {
			pdf.Ellipse(s.X+s.W/2, s.Y+s.H/2, w/2, h/2, 0, style)
		} else {
			pdf.Rect(s.X+in, s.Y+in, w, h, style)
		}
		if s.Angle != 0 {
			pdf.TransformEnd()
		}
		pdf.SetAlpha(1, "Normal")
	}

	if opt.IncludeGuides {
		setDrawColor(pdf, opt.GuideColor)
		pdf.SetLineWidth(0.1)
		pdf.Rect(0, 0, l.WidthMM, l.HeightMM, "D")
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func setDrawColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	r, g, b := straight(c)
	pdf.SetDrawColor(int(r), int(g), int(b))
}

func setFillColor(pdf *gofpdf.Fpdf, c color.RGBA) {
	r, g, b := straight(c)
	pdf.SetFillColor(int(r), int(g), int(b))
}
