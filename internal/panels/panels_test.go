/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package panels

import (
	"errors"
	"math"
	"testing"

	"labeldesigner/internal/editor"
	"labeldesigner/internal/scene"
	"labeldesigner/internal/units"
)

type catalog struct{}

func newRect() *scene.Object {
	o := scene.NewObject(&scene.RectShape{})
	o.Width, o.Height = 50, 50
	o.PositionUnit, o.SizeUnit = units.Millimeter, units.Millimeter
	return o
}

func (catalog) SceneKinds() []editor.KindInfo {
	return []editor.KindInfo{{Kind: "rect", Name: "Rectangle", Icon: "square", Factory: newRect}}
}

func (catalog) SettingBlocks(kind scene.Kind) (KindBlocks, bool) {
	if kind != "rect" {
		return KindBlocks{}, false
	}
	return KindBlocks{
		Name: "Rectangle",
		Blocks: []Block{
			{Key: "general", Name: "General", Groups: func(env Env) []*ObjectGroup { return []*ObjectGroup{NameGroup(env)} }},
			{Key: "layout", Name: "Layout", Groups: func(env Env) []*ObjectGroup {
				return []*ObjectGroup{PositionGroup(env), AngleGroup(env), SizeGroup(env)}
			}},
			{Key: "style", Name: "Style"},
		},
		DefaultOpen: []string{"general", "layout"},
	}, true
}

func setup(t *testing.T) (Env, *editor.Surface) {
	t.Helper()
	st, err := editor.NewStore(editor.TemplateInfo{Name: "label", WidthMM: 100, HeightMM: 50}, editor.DefaultPageSettings())
	if err != nil {
		t.Fatal(err)
	}
	c := scene.NewCanvas(800, 600)
	s := editor.NewSurface(c, st, catalog{}, editor.Options{})
	if err := s.Mount(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(s.Unmount)
	return Env{Store: st, Canvas: c, Viewport: s}, s
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestGroupInvalidNumberKeepsRawText(t *testing.T) {
	var pushed []Values
	g := NewGroup(Spec{
		Rows:         []Row{{Key: "a", Columns: []Column{{Key: "n", Type: TypeNumber, Default: 1.0}}}},
		UpdateCanvas: func(v Values) { pushed = append(pushed, v) },
	}, editor.DefaultPageSettings())
	g.Input("a.n", "1.5x")
	if !g.Invalid("a.n") || g.Display("a.n") != "1.5x" || g.Value("a.n") != 1.0 {
		t.Fatalf("invalid input: display %q value %v", g.Display("a.n"), g.Value("a.n"))
	}
	g.Input("a.n", "2.25")
	g.Blur("a.n")
	if g.Invalid("a.n") || len(pushed) != 1 || pushed[0]["a.n"] != 2.25 {
		t.Fatalf("valid input not committed: %v", pushed)
	}
}

func TestGroupUnitTemplate(t *testing.T) {
	ps := editor.DefaultPageSettings()
	ps.Unit.LengthUnit = units.Inch
	g := NewGroup(Spec{Rows: []Row{{Key: "size", Columns: []Column{{Key: "unit", Template: TemplateUnit}}}}}, ps)
	c, ok := g.Column("size.unit")
	if !ok || c.Type != TypeSelect || len(c.Options) != len(units.All()) {
		t.Fatalf("unit column = %+v", c)
	}
	if g.Value("size.unit") != "in" {
		t.Fatalf("default unit = %v", g.Value("size.unit"))
	}
}

func TestUnitConversionOnUnitChange(t *testing.T) {
	var pushed Values
	g := NewGroup(Spec{
		Rows: []Row{{Key: "size", Columns: []Column{
			{Key: "w", Type: TypeNumber, Default: 25.4},
			{Key: "unit", Template: TemplateUnit, Default: "mm"},
		}}},
		OnBlur:       UnitConversion("size.unit", []string{"size.w"}),
		UpdateCanvas: func(v Values) { pushed = v },
	}, editor.DefaultPageSettings())
	g.Toggle("size.unit", "in")
	if w, _ := g.Value("size.w").(float64); !near(w, 1) {
		t.Fatalf("25.4mm in inches = %v", g.Value("size.w"))
	}
	if pushed["size.unit"] != "in" || !near(pushed["size.w"].(float64), 1) {
		t.Fatalf("pushed %v", pushed)
	}
}

func TestObjectGroupPullAndPush(t *testing.T) {
	env, _ := setup(t)
	pos := PositionGroup(env)
	defer pos.Close()
	if !pos.Disabled() {
		t.Fatal("group enabled without selection")
	}
	o := newRect()
	o.Left, o.Top = 96, 48
	env.Canvas.Add(o)
	env.Canvas.SetActiveObject(o)
	if pos.Disabled() {
		t.Fatal("group disabled with one selected object")
	}
	if x, _ := pos.Value("position.x").(float64); !near(x, 25.4) {
		t.Fatalf("x = %v mm, want 25.4", pos.Value("position.x"))
	}
	pos.Input("position.x", "10")
	pos.Blur("position.x")
	want, _ := units.ToPixels(10, units.Millimeter)
	if !near(o.Left, want) {
		t.Fatalf("left = %v, want %v", o.Left, want)
	}
	pos.Toggle("position.unit", "in")
	if !near(o.Left, want) || o.PositionUnit != units.Inch {
		t.Fatalf("unit change moved object: left %v unit %v", o.Left, o.PositionUnit)
	}
	if x, _ := pos.Value("position.x").(float64); !near(x, 10/25.4) {
		t.Fatalf("x = %v in", pos.Value("position.x"))
	}
}

func TestPositionGroupKeepsNegativeCoordinates(t *testing.T) {
	env, _ := setup(t)
	pos := PositionGroup(env)
	defer pos.Close()
	o := newRect()
	o.Left, o.Top = -20, 30
	env.Canvas.Add(o)
	env.Canvas.SetActiveObject(o)
	wantX, _ := units.ToUnitSigned(-20, units.Millimeter)
	if x, _ := pos.Value("position.x").(float64); !near(x, wantX) || x >= 0 {
		t.Fatalf("x = %v mm, want %v", pos.Value("position.x"), wantX)
	}
	pos.Input("position.y", "12")
	pos.Blur("position.y")
	if !near(o.Left, -20) {
		t.Fatalf("editing y moved left to %v", o.Left)
	}
	wantY, _ := units.ToPixels(12, units.Millimeter)
	if !near(o.Top, wantY) {
		t.Fatalf("top = %v, want %v", o.Top, wantY)
	}
	pos.Toggle("position.unit", "in")
	if !near(o.Left, -20) || o.PositionUnit != units.Inch {
		t.Fatalf("unit change: left %v unit %v", o.Left, o.PositionUnit)
	}
	if x, _ := pos.Value("position.x").(float64); !near(x, -20.0/96) {
		t.Fatalf("x = %v in, want %v", pos.Value("position.x"), -20.0/96)
	}
	pos.Input("position.x", "-1")
	pos.Blur("position.x")
	if !near(o.Left, -96) {
		t.Fatalf("left = %v, want -96", o.Left)
	}
}

func TestUnitConversionClampsNegativeLengths(t *testing.T) {
	var pushed Values
	g := NewGroup(Spec{
		Rows: []Row{{Key: "size", Columns: []Column{
			{Key: "w", Type: TypeNumber, Default: -5.0},
			{Key: "unit", Template: TemplateUnit, Default: "mm"},
		}}},
		OnBlur:       UnitConversion("size.unit", []string{"size.w"}),
		UpdateCanvas: func(v Values) { pushed = v },
	}, editor.DefaultPageSettings())
	g.Toggle("size.unit", "in")
	if w, _ := g.Value("size.w").(float64); w != 0 {
		t.Fatalf("negative length converted to %v", w)
	}
	if pushed == nil {
		t.Fatal("unit change not pushed")
	}
}

func TestObjectGroupInvalidInputSurvivesPush(t *testing.T) {
	env, _ := setup(t)
	size := SizeGroup(env)
	defer size.Close()
	o := newRect()
	env.Canvas.Add(o)
	env.Canvas.SetActiveObject(o)
	size.Input("size.width", "abc")
	size.Input("size.height", "20")
	size.Blur("size.height")
	h, _ := units.ToPixels(20, units.Millimeter)
	if !near(o.Height, h) || o.Width != 50 {
		t.Fatalf("size = %v x %v", o.Width, o.Height)
	}
	if size.Display("size.width") != "abc" {
		t.Fatalf("raw text lost: %q", size.Display("size.width"))
	}
}

func TestObjectGroupFollowsTriggerEvents(t *testing.T) {
	env, _ := setup(t)
	name := NameGroup(env)
	defer name.Close()
	o := newRect()
	env.Canvas.Add(o)
	env.Canvas.SetActiveObject(o)
	o.Name = "Badge"
	env.Canvas.Fire(scene.ObjectModified, &scene.Event{Target: o})
	if name.Value("name.name") != "Badge" {
		t.Fatalf("name = %v", name.Value("name.name"))
	}
}

func TestObjectGroupDisabledForMultiSelect(t *testing.T) {
	env, _ := setup(t)
	g := AngleGroup(env)
	defer g.Close()
	a, b := newRect(), newRect()
	env.Canvas.Add(a, b)
	env.Canvas.SetActiveObjects([]*scene.Object{a, b})
	if !g.Disabled() {
		t.Fatal("group enabled with two objects selected")
	}
}

func TestObjectOptionsStates(t *testing.T) {
	env, _ := setup(t)
	p := NewObjectOptions(env, catalog{})
	defer p.Close()
	if p.State() != OptionsEmpty || p.Message() != "No objects selected" || p.Title() != "Object options" {
		t.Fatalf("empty: %v %q %q", p.State(), p.Message(), p.Title())
	}
	a, b := newRect(), newRect()
	env.Canvas.Add(a, b)
	env.Canvas.SetActiveObject(a)
	if p.State() != OptionsObject || p.Title() != "Rectangle options" {
		t.Fatalf("single: %v %q", p.State(), p.Title())
	}
	secs := p.Sections()
	if len(secs) != 3 || !secs[0].Open || !secs[1].Open || secs[2].Open {
		t.Fatalf("sections %+v", secs)
	}
	p.SetOpen("style", true)
	if !p.Sections()[2].Open {
		t.Fatal("style did not open")
	}
	env.Canvas.SetActiveObjects([]*scene.Object{a, b})
	if p.State() != OptionsUnsupported || p.Message() != "Multiple objects selected, which is not supported currently" {
		t.Fatalf("multi: %v %q", p.State(), p.Message())
	}
	if len(p.Sections()) != 0 {
		t.Fatal("sections kept for unsupported selection")
	}
}

func TestElementsPanel(t *testing.T) {
	env, s := setup(t)
	p := NewElementsPanel(env)
	defer p.Close()
	changes := 0
	p.OnChange(func() { changes++ })
	a, b := newRect(), newRect()
	env.Canvas.Add(a, b)
	s.Queue().Flush()
	items := p.Items()
	if len(items) != 2 || items[0].Label != "rect (0)" || items[1].Name != "Rectangle 2" {
		t.Fatalf("items %+v", items)
	}
	p.Select(1)
	items = p.Items()
	if items[0].Selected || !items[1].Selected {
		t.Fatalf("selection not reflected: %+v", items)
	}
	if changes == 0 {
		t.Fatal("no change notifications")
	}
}

func TestDocumentPanelWritesSettings(t *testing.T) {
	env, _ := setup(t)
	p := NewDocumentPanel(env)
	defer p.Close()
	if p.Dimensions.Value("dimensions.width") != 100.0 {
		t.Fatalf("width = %v", p.Dimensions.Value("dimensions.width"))
	}
	if _, ok := p.Dimensions.Column("dimensions.width"); !ok {
		t.Fatal("missing width column")
	}
	p.Dimensions.Input("dimensions.width", "20")
	if p.Dimensions.Value("dimensions.width") != 100.0 {
		t.Fatal("read-only dimensions accepted input")
	}

	p.Snap.Input("angle.value", "30")
	p.Snap.Blur("angle.value")
	if got := env.Store.Get().PageSettings.Snap.AngleValue; got != 30 {
		t.Fatalf("angle step = %v", got)
	}

	p.Grid.Toggle("size.unit", "cm")
	ps := env.Store.Get().PageSettings
	if ps.Grid.SizeUnit != units.Centimeter || !near(ps.Grid.SizeValue, 0.5) {
		t.Fatalf("grid = %v %v", ps.Grid.SizeValue, ps.Grid.SizeUnit)
	}

	p.Grid.Toggle("dpi.unit", DPIPerMM)
	if ps := env.Store.Get().PageSettings; ps.Grid.DPI != 300 {
		t.Fatalf("dpi drifted to %v", ps.Grid.DPI)
	}
	if v, _ := p.Grid.Value("dpi.value").(float64); !near(v, 300/25.4) {
		t.Fatalf("dpmm = %v", p.Grid.Value("dpi.value"))
	}
}

func TestDocumentPanelRejectsInvalidSettings(t *testing.T) {
	env, _ := setup(t)
	p := NewDocumentPanel(env)
	defer p.Close()
	p.Grid.Input("size.size", "0")
	p.Grid.Blur("size.size")
	if got := env.Store.Get().PageSettings.Grid.SizeValue; got != 5 {
		t.Fatalf("grid size = %v", got)
	}
	if p.Grid.Value("size.size") != 5.0 {
		t.Fatalf("input not restored: %v", p.Grid.Value("size.size"))
	}
	if err := editor.SetPageSettings(env.Store, p.Settings()); err != nil {
		t.Fatalf("restored settings invalid: %v", err)
	}
}

type fakeViewport struct {
	zoom float64
	fits int
}

func (f *fakeViewport) HandleDrag(*scene.Pt) {}
func (f *fakeViewport) ZoomToFit()           { f.fits++ }
func (f *fakeViewport) Zoom() float64        { return f.zoom }

func TestFooter(t *testing.T) {
	env, _ := setup(t)
	vp := &fakeViewport{zoom: 2.0578}
	env.Viewport = vp
	f := NewFooter(env)
	defer f.Close()
	if got := f.ZoomLabel(); got != "Zoom: 205.8%" {
		t.Fatalf("label = %q", got)
	}
	vp.zoom = 1
	if got := f.ZoomLabel(); got != "Zoom: 100%" {
		t.Fatalf("label = %q", got)
	}
	f.FitClicked()
	if vp.fits != 1 {
		t.Fatal("fit not forwarded")
	}
}

func TestLeftPanelAdd(t *testing.T) {
	env, _ := setup(t)
	l := NewLeftPanel(env, catalog{})
	if items := l.Items(); len(items) != 1 || items[0].Icon != "square" {
		t.Fatalf("items %+v", items)
	}
	o, err := l.Add("rect")
	if err != nil {
		t.Fatal(err)
	}
	s := env.Store.Get()
	if o.Left != ObjectInsertX || o.Top != ObjectInsertY || len(s.Selected) != 1 || s.Selected[0] != o {
		t.Fatalf("added at %v,%v selected %v", o.Left, o.Top, s.Selected)
	}
	if s.Panel != editor.PanelObjectOptions {
		t.Fatalf("panel = %v", s.Panel)
	}
	if _, err := l.Add("star"); !errors.Is(err, scene.ErrUnknownType) {
		t.Fatalf("unknown kind: %v", err)
	}
}

func TestRightPanelTabs(t *testing.T) {
	env, _ := setup(t)
	r := NewRightPanel(env, catalog{})
	defer r.Close()
	var switched []editor.PanelKey
	off := r.OnSwitch(func(k editor.PanelKey) { switched = append(switched, k) })
	defer off()
	if r.Active() != editor.PanelDocument || len(r.Tabs()) != 3 {
		t.Fatalf("active %v tabs %v", r.Active(), r.Tabs())
	}
	r.SetActive(editor.PanelElements)
	if r.Active() != editor.PanelElements || len(switched) != 1 {
		t.Fatalf("switch: %v %v", r.Active(), switched)
	}
}
