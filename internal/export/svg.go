/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"math"
)

// WriteSVG renders l as an SVG document whose user space is millimetres.
func WriteSVG(w io.Writer, l Label, opt Options) error {
	if err := l.validate(); err != nil {
		return err
	}
	opt = opt.withDefaults()
	pxW := int(math.Round(l.WidthMM / 25.4 * opt.DPI))
	pxH := int(math.Round(l.HeightMM / 25.4 * opt.DPI))

	var buf bytes.Buffer
	var werr error
	wf := func(format string, args ...any) {
		if werr != nil {
			return
		}
		_, werr = fmt.Fprintf(&buf, format, args...)
	}

	wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	wf("<svg xmlns=\"http://www.w3.org/2000/svg\" version=\"1.1\" width=\"%dpx\" height=\"%dpx\" viewBox=\"0 0 %g %g\">\n", pxW, pxH, r3(l.WidthMM), r3(l.HeightMM))
	if l.Name != "" {
		wf("  <title>%s</title>\n", escText(l.Name))
	}
	wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"%s\"/>\n", r3(l.WidthMM), r3(l.HeightMM), svgColor(opt.Background))

	for _, s := range l.shapes() {
		attrs := fmt.Sprintf("fill=\"%s\"", svgColor(s.Fill))
		if op := opacity(s.Fill); op < 1 {
			attrs += fmt.Sprintf(" fill-opacity=\"%g\"", op)
		}
		// The stroke sits inside the box, so inset the outline by half its width.
		in := 0.0
		if s.StrokeWidth > 0 && s.Stroke.A > 0 {
			in = s.StrokeWidth / 2
			attrs += fmt.Sprintf(" stroke=\"%s\" stroke-width=\"%g\"", svgColor(s.Stroke), r3(s.StrokeWidth))
			if op := opacity(s.Stroke); op < 1 {
				attrs += fmt.Sprintf(" stroke-opacity=\"%g\"", op)
			}
		}
		tr := ""
		if s.Angle != 0 {
			tr = fmt.Sprintf(" transform=\"rotate(%g %g %g)\"", r3(s.Angle), r3(s.X), r3(s.Y))
		}
		id := ""
		if s.ID != "" {
			id = fmt.Sprintf(" id=\"%s\"", escAttr(s.ID))
		}
		w, h := math.Max(0, s.W-2*in), math.Max(0, s.H-2*in)
		if s.Ellipse {
			wf("  <ellipse%s cx=\"%g\" cy=\"%g\" rx=\"%g\" ry=\"%g\" %s%s/>\n", id, r3(s.X+s.W/2), r3(s.Y+s.H/2), r3(w/2), r3(h/2), attrs, tr)
		} else {
			wf("  <rect%s x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" %s%s/>\n", id, r3(s.X+in), r3(s.Y+in), r3(w), r3(h), attrs, tr)
		}
	}

	if opt.IncludeGuides {
		wf("  <rect x=\"0\" y=\"0\" width=\"%g\" height=\"%g\" fill=\"none\" stroke=\"%s\" stroke-width=\"0.1\"/>\n", r3(l.WidthMM), r3(l.HeightMM), svgColor(opt.GuideColor))
	}
	wf("</svg>\n")
	if werr != nil {
		return fmt.Errorf("build svg: %w", werr)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

func r3(v float64) float64 { return math.Round(v*1000) / 1000 }

func svgColor(c color.RGBA) string {
	if c.A == 0 {
		return "none"
	}
	r, g, b := straight(c)
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

func opacity(c color.RGBA) float64 { return math.Round(float64(c.A)/255*1000) / 1000 }

func escAttr(s string) string {
	// naive escaping sufficient for our simple usage
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '"':
			out = append(out, "&quot;"...)
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '\n':
			out = append(out, ' ')
		case '\r':
			// skip
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '&':
			out = append(out, "&amp;"...)
		case '<':
			out = append(out, "&lt;"...)
		case '>':
			out = append(out, "&gt;"...)
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
