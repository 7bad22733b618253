/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package panels contains the property panels of the label designer as
// toolkit-independent view models. An input group binds named fields to
// values and reports edits through change and blur hooks; the UI layer only
// renders the rows and forwards input.
package panels

import (
	"math"
	"strconv"
	"strings"

	"labeldesigner/internal/editor"
	"labeldesigner/internal/units"
)

// InputType selects the control a column renders as.
type InputType string

const (
	TypeNumber   InputType = "number"
	TypeText     InputType = "text"
	TypeSwitch   InputType = "switch"
	TypeCheckbox InputType = "checkbox"
	TypeSelect   InputType = "select"
	TypeColor    InputType = "color"
	TypeRadio    InputType = "radio"
)

// Immediate reports whether edits commit without waiting for blur.
func (t InputType) Immediate() bool {
	switch t {
	case TypeSwitch, TypeCheckbox, TypeSelect, TypeColor, TypeRadio:
		return true
	}
	return false
}

// TemplateUnit expands a column into a unit select.
const TemplateUnit = "unit"

// Option is one entry of a select or radio column.
type Option struct {
	Value string
	Label string
}

// Column is one control. Its value is addressed as "<row>.<column>".
type Column struct {
	Key      string
	Label    string
	Type     InputType
	Default  any
	Disabled bool
	Tooltip  string
	Options  []Option
	Template string
}

// Row groups columns on one line.
type Row struct {
	Key     string
	Columns []Column
}

// Values maps full keys to values.
type Values map[string]any

func (v Values) clone() Values {
	out := make(Values, len(v))
	for k, x := range v {
		out[k] = x
	}
	return out
}

// BlurFunc commits an edit. values holds the group's values after the edit,
// old the values before it.
type BlurFunc func(key string, value any, values, old Values, g *Group)

// Spec declares an input group.
type Spec struct {
	Name string
	Icon string
	Rows []Row

	OnChange func(key string, value any, values Values)
	// OnBlur replaces the default commit, which is UpdateCanvas(values).
	OnBlur       BlurFunc
	UpdateCanvas func(values Values)
}

// Group is the live state of one input group.
type Group struct {
	spec     Spec
	rows     []Row
	columns  map[string]Column
	values   Values
	raw      map[string]string
	disabled bool

	listeners []func()
}

// NewGroup resolves column templates against ps and seeds the defaults.
func NewGroup(spec Spec, ps editor.PageSettings) *Group {
	g := &Group{
		spec:    spec,
		columns: map[string]Column{},
		values:  Values{},
		raw:     map[string]string{},
	}
	for _, r := range spec.Rows {
		row := Row{Key: r.Key}
		for _, c := range r.Columns {
			c = resolveTemplate(c, ps)
			row.Columns = append(row.Columns, c)
			k := r.Key + "." + c.Key
			g.columns[k] = c
			g.values[k] = c.Default
		}
		g.rows = append(g.rows, row)
	}
	return g
}

func resolveTemplate(c Column, ps editor.PageSettings) Column {
	if c.Template != TemplateUnit {
		return c
	}
	out := Column{Key: c.Key, Label: "Unit", Type: TypeSelect, Default: string(ps.Unit.LengthUnit), Template: c.Template}
	for _, u := range units.All() {
		out.Options = append(out.Options, Option{Value: string(u.Unit), Label: u.Name})
	}
	if c.Label != "" {
		out.Label = c.Label
	}
	if c.Default != nil {
		out.Default = c.Default
	}
	out.Disabled = c.Disabled
	out.Tooltip = c.Tooltip
	return out
}

func (g *Group) Name() string { return g.spec.Name }
func (g *Group) Icon() string { return g.spec.Icon }
func (g *Group) Rows() []Row  { return g.rows }

// Column returns the resolved column of a full key.
func (g *Group) Column(key string) (Column, bool) {
	c, ok := g.columns[key]
	return c, ok
}

// Value returns the committed value of key.
func (g *Group) Value(key string) any { return g.values[key] }

// Values returns a copy of all values.
func (g *Group) Values() Values { return g.values.clone() }

// Disabled reports whether the whole group is read-only.
func (g *Group) Disabled() bool { return g.disabled }

// SetDisabled toggles the read-only state.
func (g *Group) SetDisabled(d bool) {
	if g.disabled == d {
		return
	}
	g.disabled = d
	g.changed()
}

// OnUpdate registers fn to be called whenever a value or the disabled state
// changes.
func (g *Group) OnUpdate(fn func()) (off func()) {
	g.listeners = append(g.listeners, fn)
	i := len(g.listeners) - 1
	return func() {
		if i < len(g.listeners) {
			g.listeners[i] = nil
		}
	}
}

func (g *Group) changed() {
	for _, fn := range g.listeners {
		if fn != nil {
			fn()
		}
	}
}

// SetValue stores v under key; trigger runs the change hook.
func (g *Group) SetValue(key string, v any, trigger bool) {
	g.values[key] = v
	delete(g.raw, key)
	if trigger && g.spec.OnChange != nil {
		g.spec.OnChange(key, v, g.values.clone())
	}
	g.changed()
}

// Input receives typed text. Numbers that do not parse to a finite value are
// kept as raw text for display and leave the value untouched.
func (g *Group) Input(key, text string) {
	c, ok := g.columns[key]
	if !ok || g.disabled || c.Disabled {
		return
	}
	if c.Type != TypeNumber {
		g.SetValue(key, text, true)
		return
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(text), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		g.raw[key] = text
		g.changed()
		return
	}
	g.SetValue(key, v, true)
}

// Invalid reports whether key holds unparsed text.
func (g *Group) Invalid(key string) bool {
	_, ok := g.raw[key]
	return ok
}

// Display formats the value of key for its control.
func (g *Group) Display(key string) string {
	if raw, ok := g.raw[key]; ok {
		return raw
	}
	switch v := g.values[key].(type) {
	case nil:
		return ""
	case float64:
		return formatNumber(v)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case string:
		return v
	case units.Unit:
		return string(v)
	default:
		return ""
	}
}

func formatNumber(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(units.Round(v, 10), 'f', -1, 64)
}

// Blur commits key after text editing.
func (g *Group) Blur(key string) {
	if g.disabled {
		return
	}
	vals := g.values.clone()
	g.commit(key, g.values[key], vals, vals)
}

// Toggle sets and commits key in one step, as boolean, select, color and
// radio controls do.
func (g *Group) Toggle(key string, v any) {
	c, ok := g.columns[key]
	if !ok || g.disabled || c.Disabled {
		return
	}
	old := g.values.clone()
	g.SetValue(key, v, true)
	g.commit(key, v, g.values.clone(), old)
}

func (g *Group) commit(key string, v any, values, old Values) {
	if g.spec.OnBlur != nil {
		g.spec.OnBlur(key, v, values, old, g)
		return
	}
	g.UpdateCanvas(values)
}

// UpdateCanvas pushes values through the group's canvas hook.
func (g *Group) UpdateCanvas(values Values) {
	if g.spec.UpdateCanvas != nil {
		g.spec.UpdateCanvas(values)
	}
}

// UnitConversion returns a blur handler that re-expresses valueKeys in the
// new unit when unitKey changes, then pushes to the canvas. Pixel geometry
// does not change. Values are lengths; see SignedUnitConversion for
// coordinates.
func UnitConversion(unitKey string, valueKeys []string) BlurFunc {
	return unitConversion(unitKey, valueKeys, units.Convert)
}

// SignedUnitConversion is UnitConversion for values that may be negative,
// such as positions.
func SignedUnitConversion(unitKey string, valueKeys []string) BlurFunc {
	return unitConversion(unitKey, valueKeys, units.ConvertSigned)
}

func unitConversion(unitKey string, valueKeys []string, convert func(float64, units.Unit, units.Unit) (float64, error)) BlurFunc {
	return func(key string, _ any, values, old Values, g *Group) {
		vals := values.clone()
		if key == unitKey {
			from, okFrom := asUnit(old[unitKey])
			to, okTo := asUnit(vals[unitKey])
			if okFrom && okTo {
				for _, vk := range valueKeys {
					n, ok := asFloat(vals[vk])
					if !ok {
						continue
					}
					conv, err := convert(n, from, to)
					if err != nil {
						continue
					}
					vals[vk] = conv
					g.SetValue(vk, conv, false)
				}
			}
		}
		g.UpdateCanvas(vals)
	}
}

func asFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, !math.IsNaN(x) && !math.IsInf(x, 0)
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	}
	return 0, false
}

func asUnit(v any) (units.Unit, bool) {
	var s string
	switch x := v.(type) {
	case units.Unit:
		s = string(x)
	case string:
		s = x
	default:
		return "", false
	}
	u, err := units.Parse(s)
	return u, err == nil
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}
