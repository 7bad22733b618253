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
	"labeldesigner/internal/scene"
	"labeldesigner/internal/store"
	"labeldesigner/internal/units"
)

// Env is what panels need from the running editor.
type Env struct {
	Store    *editor.Store
	Canvas   *scene.Canvas
	Viewport editor.Viewport
}

// Connection binds an object attribute to an input key.
type Connection struct {
	ObjAttr  string
	InputKey string
}

// ObjectSpec declares an input group bound to the selected object.
type ObjectSpec struct {
	Spec
	// UnitKey names the unit select; ValueKeys are the inputs expressed in it.
	UnitKey   string
	ValueKeys []string
	// Signed value keys are coordinates and keep their sign when converted.
	Signed bool
	// ConnectionUnitKey is the object attribute remembering the unit.
	ConnectionUnitKey string
	Connections       []Connection
	// TriggerEvents re-read the object when fired for it.
	TriggerEvents []string
}

// ObjectGroup pulls the single selected object's attributes into its inputs
// and pushes committed edits back.
type ObjectGroup struct {
	*Group
	env  Env
	spec ObjectSpec
	offs []func()
	log  *slog.Logger

	pushing bool
}

// NewObjectGroup attaches the group to env; Close detaches it.
func NewObjectGroup(env Env, spec ObjectSpec) *ObjectGroup {
	og := &ObjectGroup{env: env, spec: spec, log: applog.WithComponent("panels")}
	s := spec.Spec
	s.UpdateCanvas = og.push
	if spec.UnitKey != "" {
		s.OnBlur = UnitConversion(spec.UnitKey, spec.ValueKeys)
		if spec.Signed {
			s.OnBlur = SignedUnitConversion(spec.UnitKey, spec.ValueKeys)
		}
	}
	og.Group = NewGroup(s, env.Store.Get().PageSettings)

	for _, ev := range spec.TriggerEvents {
		og.offs = append(og.offs, env.Canvas.On(ev, func(e *scene.Event) {
			if !og.pushing && e.Target != nil && e.Target == og.selected() {
				og.Pull(e.Target)
			}
		}))
	}
	og.offs = append(og.offs, store.Watch(env.Store, editor.SelectSelected, editor.SameObjects,
		func(next, _ []*scene.Object) { og.selectionChanged(next) }))
	og.selectionChanged(env.Store.Get().Selected)
	return og
}

// Close detaches every handler.
func (og *ObjectGroup) Close() {
	for _, off := range og.offs {
		off()
	}
	og.offs = nil
}

func (og *ObjectGroup) selected() *scene.Object {
	sel := og.env.Store.Get().Selected
	if len(sel) != 1 {
		return nil
	}
	return sel[0]
}

func (og *ObjectGroup) selectionChanged(sel []*scene.Object) {
	og.SetDisabled(len(sel) != 1)
	if len(sel) == 1 {
		og.Pull(sel[0])
	}
}

func (og *ObjectGroup) isValueKey(k string) bool {
	for _, v := range og.spec.ValueKeys {
		if v == k {
			return true
		}
	}
	return false
}

func (og *ObjectGroup) toUnit(px float64, u units.Unit) (float64, error) {
	if og.spec.Signed {
		return units.ToUnitSigned(px, u)
	}
	return units.ToUnit(px, u)
}

func (og *ObjectGroup) toPixels(v float64, u units.Unit) (float64, error) {
	if og.spec.Signed {
		return units.ToPixelsSigned(v, u)
	}
	return units.ToPixels(v, u)
}

// Pull copies the attributes of o into the inputs, converted into the unit
// o was last edited in.
func (og *ObjectGroup) Pull(o *scene.Object) {
	var unit units.Unit
	if og.spec.ConnectionUnitKey != "" {
		if v, ok := o.Attr(og.spec.ConnectionUnitKey); ok {
			unit, _ = v.(units.Unit)
		}
	}
	for _, c := range og.spec.Connections {
		v, ok := o.Attr(c.ObjAttr)
		if !ok {
			continue
		}
		if og.spec.UnitKey != "" && unit != "" && og.isValueKey(c.InputKey) {
			px, _ := v.(float64)
			conv, err := og.toUnit(px, unit)
			if err != nil {
				og.log.Warn("cannot express attribute in unit", slog.String("attr", c.ObjAttr), slog.Any("err", err))
				continue
			}
			v = conv
		}
		if u, isUnit := v.(units.Unit); isUnit {
			v = string(u)
		}
		og.SetValue(c.InputKey, v, false)
	}
	if og.spec.UnitKey != "" && unit != "" {
		og.SetValue(og.spec.UnitKey, string(unit), false)
	}
}

// push writes values to the selected object and requests a render.
func (og *ObjectGroup) push(values Values) {
	o := og.selected()
	if o == nil {
		return
	}
	unit, hasUnit := asUnit(values[og.spec.UnitKey])
	for _, c := range og.spec.Connections {
		if og.Invalid(c.InputKey) {
			continue
		}
		v := values[c.InputKey]
		if og.spec.UnitKey != "" && og.isValueKey(c.InputKey) {
			n, ok := asFloat(v)
			if !ok || !hasUnit {
				continue
			}
			px, err := og.toPixels(n, unit)
			if err != nil {
				continue
			}
			v = px
		}
		if err := o.SetAttr(c.ObjAttr, v); err != nil {
			og.log.Debug("attribute not updated", slog.String("attr", c.ObjAttr), slog.Any("err", err))
		}
	}
	if og.spec.UnitKey != "" && og.spec.ConnectionUnitKey != "" && hasUnit {
		_ = o.SetAttr(og.spec.ConnectionUnitKey, unit)
	}
	og.env.Canvas.RequestRender()
	// Our own modified event must not re-pull and drop raw text of this group.
	og.pushing = true
	og.env.Canvas.Fire(scene.ObjectModified, &scene.Event{Target: o})
	og.pushing = false
}
