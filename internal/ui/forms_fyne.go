//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"labeldesigner/internal/panels"
)

// groupForm renders an input group as a titled form and keeps the controls
// in sync with the group's values. after runs once an edit was committed.
// The returned func detaches the form from the group.
func groupForm(g *panels.Group, after func()) (fyne.CanvasObject, func()) {
	var syncs []func()
	syncing := false
	form := widget.NewForm()

	for _, row := range g.Rows() {
		for _, col := range row.Columns {
			key := row.Key + "." + col.Key
			c, _ := g.Column(key)
			var obj fyne.CanvasObject
			var sync func()

			switch c.Type {
			case panels.TypeSwitch, panels.TypeCheckbox:
				chk := widget.NewCheck("", nil)
				chk.OnChanged = func(v bool) {
					if syncing {
						return
					}
					g.Toggle(key, v)
					after()
				}
				sync = func() {
					v, _ := g.Value(key).(bool)
					chk.SetChecked(v)
					setEnabled(chk, !(g.Disabled() || c.Disabled))
				}
				obj = chk

			case panels.TypeSelect, panels.TypeRadio:
				labels, byLabel, byValue := optionMaps(c.Options)
				pick := func(label string) {
					if syncing {
						return
					}
					if v, ok := byLabel[label]; ok {
						g.Toggle(key, v)
						after()
					}
				}
				if c.Type == panels.TypeRadio {
					rg := widget.NewRadioGroup(labels, pick)
					rg.Horizontal = true
					sync = func() {
						rg.SetSelected(byValue[g.Display(key)])
						setEnabled(rg, !(g.Disabled() || c.Disabled))
					}
					obj = rg
				} else {
					sel := widget.NewSelect(labels, pick)
					sync = func() {
						sel.SetSelected(byValue[g.Display(key)])
						setEnabled(sel, !(g.Disabled() || c.Disabled))
					}
					obj = sel
				}

			default:
				e := widget.NewEntry()
				if c.Type == panels.TypeColor {
					e.SetPlaceHolder("#rrggbb")
					e.OnSubmitted = func(text string) {
						g.Toggle(key, text)
						after()
					}
				} else {
					e.OnChanged = func(text string) {
						if syncing {
							return
						}
						g.Input(key, text)
					}
					e.OnSubmitted = func(string) {
						g.Blur(key)
						after()
					}
				}
				sync = func() {
					if t := g.Display(key); e.Text != t {
						e.SetText(t)
					}
					if g.Invalid(key) {
						e.SetValidationError(errInvalidNumber)
					} else {
						e.SetValidationError(nil)
					}
					setEnabled(e, !(g.Disabled() || c.Disabled))
				}
				obj = e
			}

			item := widget.NewFormItem(c.Label, obj)
			item.HintText = c.Tooltip
			form.AppendItem(item)
			syncs = append(syncs, sync)
		}
	}

	refresh := func() {
		syncing = true
		defer func() { syncing = false }()
		for _, fn := range syncs {
			fn()
		}
	}
	refresh()
	off := g.OnUpdate(refresh)
	return widget.NewCard(g.Name(), "", form), off
}

type disableable interface {
	Enable()
	Disable()
}

func setEnabled(d disableable, on bool) {
	if on {
		d.Enable()
	} else {
		d.Disable()
	}
}

func optionMaps(opts []panels.Option) (labels []string, byLabel, byValue map[string]string) {
	byLabel, byValue = map[string]string{}, map[string]string{}
	for _, o := range opts {
		l := o.Label
		if l == "" {
			l = o.Value
		}
		labels = append(labels, l)
		byLabel[l] = o.Value
		byValue[o.Value] = l
	}
	return labels, byLabel, byValue
}

// groupsBox stacks the forms of gs and returns their combined detach func.
func groupsBox(gs []*panels.Group, after func()) (fyne.CanvasObject, func()) {
	box := container.NewVBox()
	var offs []func()
	for _, g := range gs {
		obj, off := groupForm(g, after)
		box.Add(obj)
		offs = append(offs, off)
	}
	return box, func() {
		for _, off := range offs {
			off()
		}
	}
}
