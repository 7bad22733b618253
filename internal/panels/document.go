/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package panels

import (
	"log/slog"

	"labeldesigner/internal/editor"
	applog "labeldesigner/internal/log"
	"labeldesigner/internal/store"
	"labeldesigner/internal/units"
)

// DPI display units of the grid group.
const (
	DPIPerInch = "dpi"
	DPIPerCM   = "dpcm"
	DPIPerMM   = "dpmm"
)

var dpiFactor = map[string]float64{DPIPerInch: 1, DPIPerCM: 2.54, DPIPerMM: 25.4}

// DocumentPanel shows the label dimensions and edits the page settings.
// Every commit replaces the settings wholesale.
type DocumentPanel struct {
	env  Env
	log  *slog.Logger
	offs []func()

	Dimensions *Group
	Grid       *Group
	Snap       *Group
	Scale      *Group
	Units      *Group
}

// NewDocumentPanel builds the groups and follows the template and settings.
func NewDocumentPanel(env Env) *DocumentPanel {
	p := &DocumentPanel{env: env, log: applog.WithComponent("panels")}
	ps := env.Store.Get().PageSettings

	p.Dimensions = NewGroup(Spec{
		Name: "Dimensions",
		Icon: "dimensions",
		Rows: []Row{{Key: "dimensions", Columns: []Column{
			{Key: "width", Label: "Width", Type: TypeNumber, Disabled: true},
			{Key: "height", Label: "Height", Type: TypeNumber, Disabled: true},
			{Key: "unit", Template: TemplateUnit, Default: string(units.Millimeter), Disabled: true},
		}}},
	}, ps)

	dpiOptions := []Option{{Value: DPIPerInch, Label: "Dots per inch"}, {Value: DPIPerCM, Label: "Dots per cm"}, {Value: DPIPerMM, Label: "Dots per mm"}}
	p.Grid = NewGroup(Spec{
		Name: "Grid",
		Icon: "grid-dots",
		Rows: []Row{
			{Key: "grid", Columns: []Column{
				{Key: "enable", Label: "Snap to grid", Type: TypeSwitch},
				{Key: "show", Label: "Show grid", Type: TypeSwitch},
			}},
			{Key: "size", Columns: []Column{
				{Key: "size", Label: "Grid size", Type: TypeNumber},
				{Key: "unit", Template: TemplateUnit},
			}},
			{Key: "dpi", Columns: []Column{
				{Key: "value", Label: "Resolution", Type: TypeNumber},
				{Key: "unit", Label: "Unit", Type: TypeSelect, Options: dpiOptions, Default: DPIPerInch},
			}},
		},
		OnBlur:       p.gridBlur,
		UpdateCanvas: func(Values) { p.commit() },
	}, ps)

	p.Snap = NewGroup(Spec{
		Name: "Angle snap",
		Icon: "angle",
		Rows: []Row{{Key: "angle", Columns: []Column{
			{Key: "enable", Label: "Snap angle", Type: TypeSwitch},
			{Key: "value", Label: "Step [°]", Type: TypeNumber},
		}}},
		UpdateCanvas: func(Values) { p.commit() },
	}, ps)

	p.Scale = NewGroup(Spec{
		Name: "Scaling",
		Icon: "aspect-ratio",
		Rows: []Row{{Key: "scale", Columns: []Column{
			{Key: "uniform", Label: "Uniform scaling", Type: TypeCheckbox, Tooltip: "Hold alt to invert while resizing"},
		}}},
		UpdateCanvas: func(Values) { p.commit() },
	}, ps)

	p.Units = NewGroup(Spec{
		Name: "Units",
		Icon: "ruler",
		Rows: []Row{{Key: "unit", Columns: []Column{{Key: "length", Label: "Default length unit", Template: TemplateUnit}}}},
		UpdateCanvas: func(Values) { p.commit() },
	}, ps)

	p.offs = append(p.offs,
		store.Watch(env.Store, editor.SelectTemplate, editor.SameTemplate,
			func(t, _ editor.TemplateInfo) { p.pullTemplate(t) }),
		store.Watch(env.Store, editor.SelectPageSettings, editor.SameSettings,
			func(ps, _ editor.PageSettings) { p.pullSettings(ps) }),
	)
	p.pullTemplate(env.Store.Get().Template)
	p.pullSettings(ps)
	return p
}

// Close detaches the panel from the store.
func (p *DocumentPanel) Close() {
	for _, off := range p.offs {
		off()
	}
	p.offs = nil
}

// Groups lists the groups in display order.
func (p *DocumentPanel) Groups() []*Group {
	return []*Group{p.Dimensions, p.Grid, p.Snap, p.Scale, p.Units}
}

func (p *DocumentPanel) pullTemplate(t editor.TemplateInfo) {
	p.Dimensions.SetValue("dimensions.width", t.WidthMM, false)
	p.Dimensions.SetValue("dimensions.height", t.HeightMM, false)
}

func (p *DocumentPanel) pullSettings(ps editor.PageSettings) {
	p.Grid.SetValue("grid.enable", ps.Snap.GridEnabled, false)
	p.Grid.SetValue("grid.show", ps.Grid.Show, false)
	p.Grid.SetValue("size.size", ps.Grid.SizeValue, false)
	p.Grid.SetValue("size.unit", string(ps.Grid.SizeUnit), false)
	du, _ := p.Grid.Value("dpi.unit").(string)
	if _, ok := dpiFactor[du]; !ok {
		du = DPIPerInch
		p.Grid.SetValue("dpi.unit", du, false)
	}
	p.Grid.SetValue("dpi.value", units.Round(ps.Grid.DPI/dpiFactor[du], 10), false)

	p.Snap.SetValue("angle.enable", ps.Snap.AngleEnabled, false)
	p.Snap.SetValue("angle.value", ps.Snap.AngleValue, false)
	p.Scale.SetValue("scale.uniform", ps.Scale.UniformEnabled, false)
	p.Units.SetValue("unit.length", string(ps.Unit.LengthUnit), false)
}

// gridBlur keeps the grid size and resolution stable while their display
// units change.
func (p *DocumentPanel) gridBlur(key string, v any, values, old Values, g *Group) {
	if key == "dpi.unit" {
		from, _ := old["dpi.unit"].(string)
		to, _ := v.(string)
		if n, ok := asFloat(values["dpi.value"]); ok && dpiFactor[from] > 0 && dpiFactor[to] > 0 {
			g.SetValue("dpi.value", units.Round(n*dpiFactor[from]/dpiFactor[to], 10), false)
		}
	}
	UnitConversion("size.unit", []string{"size.size"})(key, v, g.Values(), old, g)
}

// Settings assembles page settings from the current inputs. Inputs holding
// invalid text keep the stored value.
func (p *DocumentPanel) Settings() editor.PageSettings {
	ps := p.env.Store.Get().PageSettings
	ps.Snap.GridEnabled = asBool(p.Grid.Value("grid.enable"))
	ps.Grid.Show = asBool(p.Grid.Value("grid.show"))
	if n, ok := asFloat(p.Grid.Value("size.size")); ok && !p.Grid.Invalid("size.size") {
		ps.Grid.SizeValue = n
	}
	if u, ok := asUnit(p.Grid.Value("size.unit")); ok {
		ps.Grid.SizeUnit = u
	}
	du, _ := p.Grid.Value("dpi.unit").(string)
	if n, ok := asFloat(p.Grid.Value("dpi.value")); ok && dpiFactor[du] > 0 && !p.Grid.Invalid("dpi.value") {
		ps.Grid.DPI = units.Round(n*dpiFactor[du], 6)
	}
	ps.Snap.AngleEnabled = asBool(p.Snap.Value("angle.enable"))
	if n, ok := asFloat(p.Snap.Value("angle.value")); ok && !p.Snap.Invalid("angle.value") {
		ps.Snap.AngleValue = n
	}
	ps.Scale.UniformEnabled = asBool(p.Scale.Value("scale.uniform"))
	if u, ok := asUnit(p.Units.Value("unit.length")); ok {
		ps.Unit.LengthUnit = u
	}
	return ps
}

func (p *DocumentPanel) commit() {
	ps := p.Settings()
	if err := editor.SetPageSettings(p.env.Store, ps); err != nil {
		p.log.Warn("page settings rejected", slog.Any("err", err))
		p.pullSettings(p.env.Store.Get().PageSettings)
		return
	}
	if p.env.Canvas != nil {
		p.env.Canvas.RequestRender()
	}
}
