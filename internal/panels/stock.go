/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package panels

import "labeldesigner/internal/scene"

// Stock object input groups.

func NameGroup(env Env) *ObjectGroup {
	return NewObjectGroup(env, ObjectSpec{
		Spec: Spec{
			Name: "Name",
			Icon: "tag",
			Rows: []Row{{Key: "name", Columns: []Column{{Key: "name", Type: TypeText}}}},
		},
		Connections:   []Connection{{ObjAttr: scene.AttrName, InputKey: "name.name"}},
		TriggerEvents: []string{scene.ObjectModified},
	})
}

func PositionGroup(env Env) *ObjectGroup {
	return NewObjectGroup(env, ObjectSpec{
		Spec: Spec{
			Name: "Position",
			Icon: "arrows-right-down",
			Rows: []Row{{Key: "position", Columns: []Column{
				{Key: "x", Label: "X", Type: TypeNumber},
				{Key: "y", Label: "Y", Type: TypeNumber},
				{Key: "unit", Template: TemplateUnit},
			}}},
		},
		UnitKey:           "position.unit",
		ValueKeys:         []string{"position.x", "position.y"},
		Signed:            true,
		ConnectionUnitKey: scene.AttrPositionUnit,
		Connections: []Connection{
			{ObjAttr: scene.AttrLeft, InputKey: "position.x"},
			{ObjAttr: scene.AttrTop, InputKey: "position.y"},
		},
		TriggerEvents: []string{scene.ObjectMoving, scene.ObjectAdded, scene.ObjectModified},
	})
}

func SizeGroup(env Env) *ObjectGroup {
	return NewObjectGroup(env, ObjectSpec{
		Spec: Spec{
			Name: "Size",
			Icon: "dimensions",
			Rows: []Row{{Key: "size", Columns: []Column{
				{Key: "width", Label: "Width", Type: TypeNumber},
				{Key: "height", Label: "Height", Type: TypeNumber},
				{Key: "unit", Template: TemplateUnit},
			}}},
		},
		UnitKey:           "size.unit",
		ValueKeys:         []string{"size.width", "size.height"},
		ConnectionUnitKey: scene.AttrSizeUnit,
		Connections: []Connection{
			{ObjAttr: scene.AttrWidth, InputKey: "size.width"},
			{ObjAttr: scene.AttrHeight, InputKey: "size.height"},
		},
		TriggerEvents: []string{scene.ObjectScaling, scene.ObjectAdded},
	})
}

func AngleGroup(env Env) *ObjectGroup {
	return NewObjectGroup(env, ObjectSpec{
		Spec: Spec{
			Name: "Angle",
			Icon: "angle",
			Rows: []Row{{Key: "angle", Columns: []Column{{Key: "value", Label: "Angle [°]", Type: TypeNumber}}}},
		},
		Connections:   []Connection{{ObjAttr: scene.AttrAngle, InputKey: "angle.value"}},
		TriggerEvents: []string{scene.ObjectRotating, scene.ObjectAdded},
	})
}

func BackgroundColorGroup(env Env) *ObjectGroup {
	return NewObjectGroup(env, ObjectSpec{
		Spec: Spec{
			Name: "Background Color",
			Icon: "palette",
			Rows: []Row{{Key: "backgroundColor", Columns: []Column{{Key: "value", Type: TypeColor}}}},
		},
		Connections:   []Connection{{ObjAttr: scene.AttrFill, InputKey: "backgroundColor.value"}},
		TriggerEvents: []string{scene.ObjectModified},
	})
}

func BorderStyleGroup(env Env) *ObjectGroup {
	return NewObjectGroup(env, ObjectSpec{
		Spec: Spec{
			Name: "Border Style",
			Icon: "border-outer",
			Rows: []Row{
				{Key: "color", Columns: []Column{{Key: "value", Type: TypeColor, Default: "#000000"}}},
				{Key: "width", Columns: []Column{
					{Key: "value", Label: "Width", Type: TypeNumber, Default: 1.0},
					{Key: "unit", Template: TemplateUnit},
				}},
			},
		},
		UnitKey:           "width.unit",
		ValueKeys:         []string{"width.value"},
		ConnectionUnitKey: scene.AttrStrokeWidthUnit,
		Connections: []Connection{
			{ObjAttr: scene.AttrStroke, InputKey: "color.value"},
			{ObjAttr: scene.AttrStrokeWidth, InputKey: "width.value"},
		},
		TriggerEvents: []string{scene.ObjectModified},
	})
}
