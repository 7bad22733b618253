/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package units converts physical lengths to device pixels and back.
// The device resolution is fixed at 96 pixels per inch, which is what the
// label renderer on the server side assumes for CSS pixels.
package units

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// DPI is the device resolution used for every conversion.
const DPI = 96.0

// Unit is a length unit understood by the designer.
type Unit string

const (
	Pixel      Unit = "px"
	Millimeter Unit = "mm"
	Centimeter Unit = "cm"
	Inch       Unit = "in"
)

// ErrUnknownUnit is matched by every UnknownUnitError.
var ErrUnknownUnit = errors.New("unknown length unit")

// UnknownUnitError reports a unit outside the supported set.
type UnknownUnitError struct{ Unit Unit }

func (e *UnknownUnitError) Error() string        { return fmt.Sprintf("unknown length unit %q", string(e.Unit)) }
func (e *UnknownUnitError) Is(target error) bool { return target == ErrUnknownUnit }

// Info describes a unit for select controls.
type Info struct {
	Unit Unit
	Name string
}

var all = []Info{
	{Unit: Pixel, Name: "Pixels"},
	{Unit: Millimeter, Name: "Millimeters"},
	{Unit: Centimeter, Name: "Centimeters"},
	{Unit: Inch, Name: "Inches"},
}

// All returns the supported units in display order.
func All() []Info { return append([]Info(nil), all...) }

// Valid reports whether u is a supported unit.
func (u Unit) Valid() bool {
	_, err := perInch(u)
	return err == nil
}

func (u Unit) String() string { return string(u) }

// Parse accepts a unit name case-insensitively ("MM", " in ").
func Parse(s string) (Unit, error) {
	u := Unit(strings.ToLower(strings.TrimSpace(s)))
	if !u.Valid() {
		return "", &UnknownUnitError{Unit: Unit(s)}
	}
	return u, nil
}

// perInch returns how many of u make up one inch.
func perInch(u Unit) (float64, error) {
	switch u {
	case Pixel:
		return DPI, nil
	case Millimeter:
		return 25.4, nil
	case Centimeter:
		return 2.54, nil
	case Inch:
		return 1, nil
	}
	return 0, &UnknownUnitError{Unit: u}
}

// ToPixels converts value expressed in u into device pixels.
// Zero, negative and NaN values yield 0.
func ToPixels(value float64, u Unit) (float64, error) {
	f, err := perInch(u)
	if err != nil {
		return 0, err
	}
	if !(value > 0) {
		return 0, nil
	}
	if u == Pixel {
		return value, nil
	}
	return value / f * DPI, nil
}

// ToUnit converts a pixel value into u.
// Zero, negative and NaN values yield 0.
func ToUnit(value float64, u Unit) (float64, error) {
	f, err := perInch(u)
	if err != nil {
		return 0, err
	}
	if !(value > 0) {
		return 0, nil
	}
	if u == Pixel {
		return value, nil
	}
	return value / DPI * f, nil
}

// Convert re-expresses value from one unit in another.
func Convert(value float64, from, to Unit) (float64, error) {
	px, err := ToPixels(value, from)
	if err != nil {
		return 0, err
	}
	return ToUnit(px, to)
}

// ToPixelsSigned is ToPixels for coordinates, which may be negative.
// The sign is kept; NaN yields 0.
func ToPixelsSigned(value float64, u Unit) (float64, error) {
	return signed(value, u, ToPixels)
}

// ToUnitSigned is ToUnit for coordinates, which may be negative.
func ToUnitSigned(value float64, u Unit) (float64, error) {
	return signed(value, u, ToUnit)
}

// ConvertSigned is Convert for coordinates, which may be negative.
func ConvertSigned(value float64, from, to Unit) (float64, error) {
	px, err := ToPixelsSigned(value, from)
	if err != nil {
		return 0, err
	}
	return ToUnitSigned(px, to)
}

func signed(value float64, u Unit, conv func(float64, Unit) (float64, error)) (float64, error) {
	if value < 0 {
		v, err := conv(-value, u)
		return -v, err
	}
	return conv(value, u)
}

// Round rounds v to n decimal places; used for display and generated CSS.
func Round(v float64, places int) float64 {
	if places < 0 {
		return v
	}
	pow := math.Pow(10, float64(places))
	return math.Round(v*pow) / pow
}
