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

	"labeldesigner/internal/scene"
)

// Viewport is the pan and zoom capability the surface hands to panels and
// the footer.
type Viewport interface {
	// HandleDrag pans by delta screen pixels and re-applies the pan clamp.
	// A nil delta only re-clamps.
	HandleDrag(delta *scene.Pt)
	ZoomToFit()
	Zoom() float64
}

// Frame is the canvas and page size the viewport policies work on.
type Frame struct {
	CanvasW, CanvasH float64
	PageW, PageH     float64
}

const (
	// FitMargin is added to the page size by zoom-to-fit.
	FitMargin = 10
	// MaxWheelZoomOut caps the dynamic minimum zoom.
	MaxWheelZoomOut = 0.5
)

// ClampPan applies delta to the translation of vpt and clamps it per axis.
// While the page is narrower than the canvas at the current zoom it is
// centered; otherwise it may leave the canvas by at most half a page.
func ClampPan(vpt scene.Affine2D, f Frame, delta *scene.Pt) scene.Affine2D {
	zoom := vpt.A
	var dx, dy float64
	if delta != nil {
		dx, dy = delta.X, delta.Y
	}
	vpt.E = clampAxis(vpt.E, dx, zoom, f.CanvasW, f.PageW)
	vpt.F = clampAxis(vpt.F, dy, zoom, f.CanvasH, f.PageH)
	return vpt
}

func clampAxis(off, delta, zoom, canvas, page float64) float64 {
	if !(page > 0) || zoom < canvas/page {
		return canvas/2 - page*zoom/2
	}
	space := page / 2
	off += delta
	if off >= space*zoom {
		return space * zoom
	}
	if lo := canvas - page*zoom - space*zoom; off < lo {
		return lo
	}
	return off
}

// MinZoom is the lower wheel-zoom bound at the current zoom.
func MinZoom(f Frame, zoom float64) float64 {
	return math.Min(math.Min(
		f.CanvasW/(f.PageW+f.PageW/2*zoom),
		f.CanvasH/(f.PageH+f.PageH/2*zoom)),
		MaxWheelZoomOut)
}

// ClampZoom bounds next to [MinZoom(f, zoom), maxZoom].
func ClampZoom(next, zoom float64, f Frame, maxZoom float64) float64 {
	if next > maxZoom {
		next = maxZoom
	}
	if lo := MinZoom(f, zoom); next < lo || math.IsNaN(next) {
		next = lo
	}
	return next
}

// WheelZoom returns the zoom after one wheel tick of deltaY.
func WheelZoom(zoom, deltaY float64, f Frame, divisor, maxZoom float64) float64 {
	if divisor == 0 {
		divisor = 200
	}
	return ClampZoom(zoom+deltaY/divisor, zoom, f, maxZoom)
}

// FitZoom is the largest zoom showing the page plus margin.
func FitZoom(f Frame) float64 {
	return math.Min(f.CanvasW/(f.PageW+FitMargin), f.CanvasH/(f.PageH+FitMargin))
}
