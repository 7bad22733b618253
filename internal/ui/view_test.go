/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"testing"

	"labeldesigner/internal/config"
	"labeldesigner/internal/designer"
	"labeldesigner/internal/editor"
	"labeldesigner/internal/scene"
)

func session(t *testing.T, text string) *designer.Session {
	t.Helper()
	s, err := NewSession(Options{
		Config:   config.Defaults(),
		Template: editor.TemplateInfo{Name: "view", WidthMM: 50, HeightMM: 30},
		Text:     text,
	}, 400, 300)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestRenderViewPageAndBackground(t *testing.T) {
	s := session(t, "")
	img := RenderView(s, 400, 300)
	if img.Bounds().Dx() != 400 || img.Bounds().Dy() != 300 {
		t.Fatalf("bounds = %v", img.Bounds())
	}
	if got := img.RGBAAt(0, 0); got != viewBackground {
		t.Fatalf("corner = %v, want background", got)
	}
	// The page is fitted into view on mount, so the centre is on the page.
	if got := img.RGBAAt(200, 150); got == viewBackground {
		t.Fatalf("centre is background, page not drawn")
	}
}

func TestRenderViewDrawsObjectAndSelection(t *testing.T) {
	s := session(t, "")
	o, err := s.AddObject("rect")
	if err != nil {
		t.Fatal(err)
	}
	o.Fill = "#ff0000"
	o.StrokeWidth = 0
	img := RenderView(s, 400, 300)

	vpt := s.Canvas.ViewportTransform()
	centre := vpt.Apply(o.Center())
	if got := img.RGBAAt(int(centre.X), int(centre.Y)); got.R != 255 || got.G != 0 {
		t.Fatalf("object centre = %v", got)
	}
	tl := s.Canvas.Controls(o)[scene.ControlTL]
	if got := img.RGBAAt(int(tl.X), int(tl.Y)); got != viewSelection {
		t.Fatalf("control handle = %v", got)
	}
}

func TestNewSessionKeepsInvalidText(t *testing.T) {
	s := session(t, "not a template")
	if s.Mode() != designer.ModeParseFailure {
		t.Fatalf("mode = %s", s.Mode())
	}
	if code, _ := s.GetCode(); code != "not a template" {
		t.Fatalf("code = %q", code)
	}
}
