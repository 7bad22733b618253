/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"errors"
	"fmt"

	"labeldesigner/internal/units"
)

// ErrInvalidSettings is wrapped by every PageSettings validation failure.
var ErrInvalidSettings = errors.New("invalid page settings")

// GridSettings size and show the background grid; SizeValue is in SizeUnit.
type GridSettings struct {
	SizeValue float64    `json:"sizeValue"`
	SizeUnit  units.Unit `json:"sizeUnit"`
	DPI       float64    `json:"dpi"`
	Show      bool       `json:"show"`
}

// SnapSettings switch grid snapping for moves and angle snapping in steps
// of AngleValue degrees for rotation.
type SnapSettings struct {
	GridEnabled  bool    `json:"gridEnabled"`
	AngleEnabled bool    `json:"angleEnabled"`
	AngleValue   float64 `json:"angleValue"`
}

// UnitSettings hold the default unit for new length inputs.
type UnitSettings struct {
	LengthUnit units.Unit `json:"lengthUnit"`
}

// ScaleSettings control uniform scaling of objects on the canvas.
type ScaleSettings struct {
	UniformEnabled bool `json:"uniformEnabled"`
}

// PageSettings is an immutable value; replace it wholesale to change it.
type PageSettings struct {
	Grid  GridSettings  `json:"grid"`
	Snap  SnapSettings  `json:"snap"`
	Unit  UnitSettings  `json:"unit"`
	Scale ScaleSettings `json:"scale"`
}

// DefaultPageSettings returns a 5mm grid with grid and 15 degree angle
// snapping enabled.
func DefaultPageSettings() PageSettings {
	return PageSettings{
		Grid:  GridSettings{SizeValue: 5, SizeUnit: units.Millimeter, DPI: 300, Show: true},
		Snap:  SnapSettings{GridEnabled: true, AngleEnabled: true, AngleValue: 15},
		Unit:  UnitSettings{LengthUnit: units.Millimeter},
		Scale: ScaleSettings{UniformEnabled: false},
	}
}

// Validate checks the invariants of a settings value.
func (p PageSettings) Validate() error {
	if !p.Grid.SizeUnit.Valid() {
		return fmt.Errorf("%w: grid unit: %w", ErrInvalidSettings, &units.UnknownUnitError{Unit: p.Grid.SizeUnit})
	}
	if p.Unit.LengthUnit != "" && !p.Unit.LengthUnit.Valid() {
		return fmt.Errorf("%w: length unit: %w", ErrInvalidSettings, &units.UnknownUnitError{Unit: p.Unit.LengthUnit})
	}
	if p.Snap.GridEnabled && !(p.Grid.SizeValue > 0) {
		return fmt.Errorf("%w: grid size must be positive when grid snapping is enabled, got %v", ErrInvalidSettings, p.Grid.SizeValue)
	}
	if p.Snap.AngleEnabled && !(p.Snap.AngleValue > 0) {
		return fmt.Errorf("%w: angle step must be positive when angle snapping is enabled, got %v", ErrInvalidSettings, p.Snap.AngleValue)
	}
	if p.Grid.DPI < 0 {
		return fmt.Errorf("%w: negative dpi %v", ErrInvalidSettings, p.Grid.DPI)
	}
	return nil
}

// GridPixels returns the grid size in device pixels.
func (p PageSettings) GridPixels() (float64, error) {
	return units.ToPixels(p.Grid.SizeValue, p.Grid.SizeUnit)
}

// RotateSnap holds the angle steps used while rotating. With angle snap
// enabled the step is the page's angle value, or EnabledModifierStep while
// the modifier is held. With angle snap disabled the step is DisabledStep,
// or DisabledModifierStep while the modifier is held.
type RotateSnap struct {
	EnabledModifierStep  float64 `yaml:"enabled_modifier_step"`
	DisabledStep         float64 `yaml:"disabled_step"`
	DisabledModifierStep float64 `yaml:"disabled_modifier_step"`
}

// DefaultRotateSnap mirrors the historic behaviour: fine snapping while
// angle snap is off, coarse 45 degree steps with the modifier.
func DefaultRotateSnap() RotateSnap {
	return RotateSnap{EnabledModifierStep: 0.1, DisabledStep: 0.1, DisabledModifierStep: 45}
}

// Step returns the snap step for the current settings and modifier state.
func (r RotateSnap) Step(s SnapSettings, modifier bool) float64 {
	switch {
	case s.AngleEnabled && modifier:
		return r.EnabledModifierStep
	case s.AngleEnabled:
		return s.AngleValue
	case modifier:
		return r.DisabledModifierStep
	default:
		return r.DisabledStep
	}
}
