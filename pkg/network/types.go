// Package network holds the caller-owned inputs of topology resolution:
// connectors, area features, buildings and the district systems that group them.
//
// Nothing in this package derives topology. Values are plain data that can be
// decoded from JSON, validated, and transformed.
package network

import (
	"github.com/paulmach/orb"

	"github.com/dd0wney/cluso-district/pkg/units"
)

// Kind identifies what an area feature represents.
type Kind string

const (
	KindBuilding    Kind = "Building"
	KindGHEField    Kind = "GHEField"
	KindSubstation  Kind = "Substation"
	KindTransformer Kind = "Transformer"
)

// Connector is a pipe or wire run: an ordered polyline between two nodes.
type Connector struct {
	ID          string         `json:"id" validate:"required"`
	DisplayName string         `json:"display_name,omitempty"`
	Geometry    orb.LineString `json:"geometry" validate:"min=2"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// Start returns the first vertex.
func (c Connector) Start() orb.Point { return c.Geometry[0] }

// End returns the last vertex.
func (c Connector) End() orb.Point { return c.Geometry[len(c.Geometry)-1] }

// Name returns the display name, falling back to the id.
func (c Connector) Name() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.ID
}

// Clone returns a deep copy of the geometry. Attributes are shared.
func (c Connector) Clone() Connector {
	out := c
	out.Geometry = c.Geometry.Clone()
	return out
}

// Reversed returns a copy running the other way.
func (c Connector) Reversed() Connector {
	out := c.Clone()
	out.Geometry.Reverse()
	return out
}

// Feature is an area a network can touch.
type Feature struct {
	ID          string      `json:"id" validate:"required"`
	DisplayName string      `json:"display_name,omitempty"`
	Kind        Kind        `json:"kind" validate:"required,oneof=Building GHEField Substation Transformer"`
	Geometry    orb.Polygon `json:"geometry" validate:"min=1"`
	// Required features must be integrated into a thermal loop.
	Required bool `json:"required,omitempty"`
}

// Clone returns a deep copy.
func (f Feature) Clone() Feature {
	out := f
	out.Geometry = f.Geometry.Clone()
	return out
}

// Building is a host building with one footprint per disconnected floor plate.
type Building struct {
	ID          string        `json:"id" validate:"required"`
	DisplayName string        `json:"display_name,omitempty"`
	Footprints  []orb.Polygon `json:"footprints" validate:"min=1,dive,min=1"`
}

// Features expands the building into one feature per footprint, all sharing the building id.
func (b Building) Features() []Feature {
	out := make([]Feature, 0, len(b.Footprints))
	for _, fp := range b.Footprints {
		out = append(out, Feature{
			ID:          b.ID,
			DisplayName: b.DisplayName,
			Kind:        KindBuilding,
			Geometry:    fp.Clone(),
		})
	}
	return out
}

// Clone returns a deep copy.
func (b Building) Clone() Building {
	out := b
	out.Footprints = make([]orb.Polygon, len(b.Footprints))
	for i, fp := range b.Footprints {
		out.Footprints[i] = fp.Clone()
	}
	return out
}

// ThermalLoop is a fifth-generation district thermal loop: a single closed
// cycle of pipes passing through buildings and ground heat exchanger fields.
type ThermalLoop struct {
	ID            string      `json:"id" validate:"required"`
	DisplayName   string      `json:"display_name,omitempty"`
	GHEFields     []Feature   `json:"ghe_fields" validate:"dive"`
	Connectors    []Connector `json:"connectors" validate:"min=1,dive"`
	ClockwiseFlow bool        `json:"clockwise_flow"`
	Units         units.Unit  `json:"units,omitempty" validate:"lengthunit"`
}

// ElectricalNetwork is a substation-rooted distribution network of wires and transformers.
type ElectricalNetwork struct {
	ID           string      `json:"id" validate:"required"`
	DisplayName  string      `json:"display_name,omitempty"`
	Substation   Feature     `json:"substation"`
	Transformers []Feature   `json:"transformers" validate:"dive"`
	Connectors   []Connector `json:"connectors" validate:"min=1,dive"`
	Units        units.Unit  `json:"units,omitempty" validate:"lengthunit"`
}

// RoadNetwork is a set of roads connected to a substation, used for
// network planning tools that route along streets.
type RoadNetwork struct {
	ID          string      `json:"id" validate:"required"`
	DisplayName string      `json:"display_name,omitempty"`
	Substation  Feature     `json:"substation"`
	Roads       []Connector `json:"roads" validate:"min=1,dive"`
	Units       units.Unit  `json:"units,omitempty" validate:"lengthunit"`
}

// UnitOf returns u, treating the empty unit as meters.
func UnitOf(u units.Unit) units.Unit {
	if u == "" {
		return units.Meters
	}
	return u
}
