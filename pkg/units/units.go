// Package units carries the length unit of model geometry explicitly so that
// tolerances and coordinates are never compared across unit systems.
package units

import (
	"fmt"
	"strings"
)

// Unit is a length unit for model geometry.
type Unit string

const (
	Meters      Unit = "Meters"
	Millimeters Unit = "Millimeters"
	Centimeters Unit = "Centimeters"
	Feet        Unit = "Feet"
	Inches      Unit = "Inches"
)

// All lists every supported unit
var All = []Unit{Meters, Millimeters, Centimeters, Feet, Inches}

// ToMeters returns the factor that converts a length in u to meters.
func (u Unit) ToMeters() float64 {
	switch u {
	case Millimeters:
		return 0.001
	case Centimeters:
		return 0.01
	case Feet:
		return 0.3048
	case Inches:
		return 0.0254
	default:
		return 1
	}
}

// Valid reports whether u is one of the supported units
func (u Unit) Valid() bool {
	for _, known := range All {
		if u == known {
			return true
		}
	}
	return false
}

// Factor returns the scale factor converting lengths from one unit to another.
func Factor(from, to Unit) float64 {
	if from == to {
		return 1
	}
	return from.ToMeters() / to.ToMeters()
}

// Parse converts a case-insensitive unit name. An empty string means Meters.
func Parse(s string) (Unit, error) {
	if s == "" {
		return Meters, nil
	}
	for _, u := range All {
		if strings.EqualFold(string(u), s) {
			return u, nil
		}
	}
	return "", fmt.Errorf("unknown length unit %q", s)
}

// Length is a magnitude tagged with its unit.
type Length struct {
	Value float64 `json:"value" yaml:"value"`
	Unit  Unit    `json:"unit" yaml:"unit"`
}

// NewLength creates a Length.
func NewLength(value float64, unit Unit) Length {
	return Length{Value: value, Unit: unit}
}

// In returns the magnitude expressed in the target unit.
func (l Length) In(target Unit) float64 {
	unit := l.Unit
	if unit == "" {
		unit = Meters
	}
	return l.Value * Factor(unit, target)
}

// Meters returns the magnitude in meters.
func (l Length) Meters() float64 {
	return l.In(Meters)
}

func (l Length) String() string {
	unit := l.Unit
	if unit == "" {
		unit = Meters
	}
	return fmt.Sprintf("%g %s", l.Value, unit)
}
