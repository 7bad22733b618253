/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package objects

import (
	"labeldesigner/internal/panels"
	"labeldesigner/internal/scene"
	"labeldesigner/internal/units"
)

const (
	KindRect   scene.Kind = "rect"
	KindCircle scene.Kind = "circle"
)

// Default geometry of new objects, in pixels.
const (
	DefaultRectSize     = 50
	DefaultCircleRadius = 25
)

// newBase applies the defaults every placeable kind shares.
func newBase(v scene.Variant) *scene.Object {
	o := scene.NewObject(v)
	o.PositionUnit = units.Millimeter
	o.SizeUnit = units.Millimeter
	o.StrokeWidthUnit = units.Millimeter
	o.StrokeWidth = 0
	return o
}

// Shared setting blocks.
var (
	GeneralBlock = panels.Block{
		Key:    "general",
		Name:   "General",
		Groups: func(env panels.Env) []*panels.ObjectGroup { return []*panels.ObjectGroup{panels.NameGroup(env)} },
	}
	LayoutBlock = panels.Block{
		Key:  "layout",
		Name: "Layout",
		Groups: func(env panels.Env) []*panels.ObjectGroup {
			return []*panels.ObjectGroup{panels.PositionGroup(env), panels.AngleGroup(env), panels.SizeGroup(env)}
		},
	}
	StyleBlock = panels.Block{
		Key:  "style",
		Name: "Style",
		Groups: func(env panels.Env) []*panels.ObjectGroup {
			return []*panels.ObjectGroup{panels.BackgroundColorGroup(env), panels.BorderStyleGroup(env)}
		},
	}
)

// Rectangle is the rect kind: a 50px square.
func Rectangle() Entry {
	return Entry{
		Key:  KindRect,
		Name: "Rectangle",
		Icon: "rectangle-filled",
		Factory: func() *scene.Object {
			o := newBase(&scene.RectShape{})
			o.Width, o.Height = DefaultRectSize, DefaultRectSize
			return o
		},
		SettingBlocks: []panels.Block{GeneralBlock, LayoutBlock, StyleBlock},
		DefaultOpen:   []string{"general", "layout"},
		Export:        BoxExporter{},
	}
}

// Circle is the circle kind. Its box follows the radius.
func Circle() Entry {
	return Entry{
		Key:  KindCircle,
		Name: "Circle",
		Icon: "circle-filled",
		Factory: func() *scene.Object {
			o := newBase(&scene.CircleShape{Radius: DefaultCircleRadius})
			o.Width, o.Height = 2*DefaultCircleRadius, 2*DefaultCircleRadius
			return o
		},
		SettingBlocks: []panels.Block{GeneralBlock, LayoutBlock, StyleBlock},
		Export:        BoxExporter{Round: true},
	}
}
