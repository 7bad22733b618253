/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package objects

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"labeldesigner/internal/scene"
	"labeldesigner/internal/units"
)

// ClassPrefix prefixes the CSS class of every exported object.
const ClassPrefix = "ld-obj-"

// BoxExporter renders an object as an absolutely positioned box measured in
// millimetres. Round turns the box into an ellipse.
type BoxExporter struct {
	Round bool
}

func (b BoxExporter) Style(o *scene.Object, id string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, ".%s {\n", className(id))
	sb.WriteString("    position: absolute;\n")
	fmt.Fprintf(&sb, "    left: %smm;\n", mm(o.Left))
	fmt.Fprintf(&sb, "    top: %smm;\n", mm(o.Top))
	fmt.Fprintf(&sb, "    width: %smm;\n", mm(o.ScaledWidth()))
	fmt.Fprintf(&sb, "    height: %smm;\n", mm(o.ScaledHeight()))
	sb.WriteString("    box-sizing: border-box;\n")
	fmt.Fprintf(&sb, "    background-color: %s;\n", cssValue(o.Fill, "transparent"))
	if o.StrokeWidth > 0 {
		fmt.Fprintf(&sb, "    border: %smm solid %s;\n", mm(o.StrokeWidth), cssValue(o.Stroke, "black"))
	}
	if b.Round {
		sb.WriteString("    border-radius: 50%;\n")
	}
	if a := scene.NormalizeAngle(o.Angle); a != 0 {
		sb.WriteString("    transform-origin: top left;\n")
		fmt.Fprintf(&sb, "    transform: rotate(%sdeg);\n", strconv.FormatFloat(units.Round(a, 4), 'f', -1, 64))
	}
	sb.WriteString("}")
	return sb.String()
}

func (b BoxExporter) Content(o *scene.Object, id string) string {
	return fmt.Sprintf(`<div class="%s"></div>`, html.EscapeString(className(id)))
}

func className(id string) string {
	return ClassPrefix + sanitizeIdent(id)
}

func mm(px float64) string {
	v, err := units.ToUnitSigned(px, units.Millimeter)
	if err != nil {
		v = 0
	}
	return strconv.FormatFloat(units.Round(v, 3), 'f', -1, 64)
}

// sanitizeIdent keeps characters valid in a CSS identifier.
func sanitizeIdent(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, s)
}

// cssValue drops characters that could end the declaration.
func cssValue(s, fallback string) string {
	s = strings.TrimSpace(strings.Map(func(r rune) rune {
		switch r {
		case ';', '{', '}', '<', '>', '"', '\'', '\\':
			return -1
		}
		return r
	}, s))
	if s == "" {
		return fallback
	}
	return s
}
