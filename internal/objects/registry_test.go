/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package objects

import (
	"errors"
	"strings"
	"testing"

	"labeldesigner/internal/scene"
	"labeldesigner/internal/units"
)

func TestDefaultKinds(t *testing.T) {
	r := Default()
	rect, ok := r.Lookup(KindRect)
	if !ok || rect.Name != "Rectangle" {
		t.Fatalf("rect entry = %+v", rect)
	}
	o := rect.Factory()
	if o.Kind != KindRect || o.Width != 50 || o.Height != 50 || o.StrokeWidth != 0 {
		t.Fatalf("rect defaults: %+v", o)
	}
	if o.Fill != "transparent" || o.Stroke != "black" || o.PositionUnit != units.Millimeter || o.SizeUnit != units.Millimeter {
		t.Fatalf("rect style defaults: fill %q stroke %q units %v/%v", o.Fill, o.Stroke, o.PositionUnit, o.SizeUnit)
	}
	if got := strings.Join(rect.DefaultOpen, ","); got != "general,layout" {
		t.Fatalf("default open = %s", got)
	}

	circle, _ := r.Lookup(KindCircle)
	c := circle.Factory()
	cs, ok := c.Variant.(*scene.CircleShape)
	if !ok || cs.Radius != 25 || c.Width != 50 {
		t.Fatalf("circle defaults: %+v", c)
	}
	if _, ok := r.Lookup("star"); ok {
		t.Fatal("lookup of unknown kind succeeded")
	}
}

func TestFactoriesReturnFreshObjects(t *testing.T) {
	e := Rectangle()
	a, b := e.Factory(), e.Factory()
	a.Width = 10
	if b.Width != 50 {
		t.Fatal("factory shares state")
	}
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(Rectangle()); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(Rectangle()); !errors.Is(err, ErrDuplicateKind) {
		t.Fatalf("duplicate: %v", err)
	}
	if err := r.Register(Entry{Key: "x"}); err == nil {
		t.Fatal("entry without factory accepted")
	}
	if n := len(r.Entries()); n != 1 {
		t.Fatalf("entries = %d", n)
	}
}

func TestRegistryFeedsEditorAndPanels(t *testing.T) {
	r := Default()
	kinds := r.SceneKinds()
	if len(kinds) != 2 || kinds[0].Kind != KindRect || kinds[1].Kind != KindCircle {
		t.Fatalf("kinds %+v", kinds)
	}
	kb, ok := r.SettingBlocks(KindRect)
	if !ok || kb.Name != "Rectangle" || len(kb.Blocks) != 3 || kb.Blocks[1].Key != "layout" {
		t.Fatalf("blocks %+v", kb)
	}
}

func TestBoxExporter(t *testing.T) {
	o := Rectangle().Factory()
	o.Left, o.Top = 96, 0
	o.StrokeWidth = 0
	style := BoxExporter{}.Style(o, "a1")
	for _, want := range []string{".ld-obj-a1 {", "left: 25.4mm;", "top: 0mm;", "width: 13.229mm;", "background-color: transparent;"} {
		if !strings.Contains(style, want) {
			t.Errorf("style misses %q:\n%s", want, style)
		}
	}
	if strings.Contains(style, "border:") || strings.Contains(style, "rotate") {
		t.Errorf("unexpected declarations:\n%s", style)
	}
	o.Angle, o.StrokeWidth, o.Stroke = 30, 2, "red;}"
	style = BoxExporter{Round: true}.Style(o, "a 1")
	for _, want := range []string{".ld-obj-a-1 {", "rotate(30deg)", "solid red;", "border-radius: 50%;"} {
		if !strings.Contains(style, want) {
			t.Errorf("style misses %q:\n%s", want, style)
		}
	}
	if got := (BoxExporter{}).Content(o, "a1"); got != `<div class="ld-obj-a1"></div>` {
		t.Fatalf("content = %s", got)
	}
}

func TestBoxExporterNegativePosition(t *testing.T) {
	o := Rectangle().Factory()
	o.Left, o.Top = -37.795, -96
	style := BoxExporter{}.Style(o, "a1")
	for _, want := range []string{"left: -10mm;", "top: -25.4mm;"} {
		if !strings.Contains(style, want) {
			t.Errorf("style misses %q:\n%s", want, style)
		}
	}
}
