package network

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb"

	"github.com/dd0wney/cluso-district/pkg/geometry"
	"github.com/dd0wney/cluso-district/pkg/projection"
	"github.com/dd0wney/cluso-district/pkg/units"
	"github.com/dd0wney/cluso-district/pkg/validation"
)

// Model is a district model document. District systems are held directly by
// the model; buildings are shared by every system that touches them.
type Model struct {
	ID                 string              `json:"id" validate:"required"`
	DisplayName        string              `json:"display_name,omitempty"`
	Units              units.Unit          `json:"units,omitempty" validate:"lengthunit"`
	Location           projection.Location `json:"location"`
	ReferencePoint     orb.Point           `json:"reference_point"`
	Buildings          []Building          `json:"buildings" validate:"dive"`
	ThermalLoops       []ThermalLoop       `json:"thermal_loops,omitempty" validate:"dive"`
	ElectricalNetworks []ElectricalNetwork `json:"electrical_networks,omitempty" validate:"dive"`
	RoadNetworks       []RoadNetwork       `json:"road_networks,omitempty" validate:"dive"`
}

// DecodeModel reads a JSON model document. Networks without an explicit unit
// inherit the model unit.
func DecodeModel(r io.Reader) (*Model, error) {
	var m Model
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	m.inheritUnits()
	return &m, nil
}

// LoadModel reads a JSON model document from path.
func LoadModel(path string) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()
	return DecodeModel(f)
}

func (m *Model) inheritUnits() {
	u := UnitOf(m.Units)
	m.Units = u
	for i := range m.ThermalLoops {
		m.ThermalLoops[i].Units = defaultUnit(m.ThermalLoops[i].Units, u)
	}
	for i := range m.ElectricalNetworks {
		m.ElectricalNetworks[i].Units = defaultUnit(m.ElectricalNetworks[i].Units, u)
	}
	for i := range m.RoadNetworks {
		m.RoadNetworks[i].Units = defaultUnit(m.RoadNetworks[i].Units, u)
	}
}

func defaultUnit(u, fallback units.Unit) units.Unit {
	if u == "" {
		return fallback
	}
	return u
}

// Validate checks struct tags, identifiers and coordinate sanity.
func (m *Model) Validate() error {
	if err := validation.ValidateStruct(m); err != nil {
		return err
	}
	for _, b := range m.Buildings {
		if err := validation.ValidateID(b.ID); err != nil {
			return fmt.Errorf("building: %w", err)
		}
		for _, fp := range b.Footprints {
			if err := finitePolygon(fp); err != nil {
				return fmt.Errorf("building %s: %w", b.ID, err)
			}
		}
	}
	for i := range m.ThermalLoops {
		if err := m.ThermalLoops[i].Validate(); err != nil {
			return err
		}
	}
	for i := range m.ElectricalNetworks {
		if err := m.ElectricalNetworks[i].Validate(); err != nil {
			return err
		}
	}
	for i := range m.RoadNetworks {
		if err := m.RoadNetworks[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks the loop's tags, identifiers and coordinates.
func (l *ThermalLoop) Validate() error {
	if err := validation.ValidateStruct(l); err != nil {
		return err
	}
	if err := validation.ValidateConnectorCount(len(l.Connectors)); err != nil {
		return fmt.Errorf("thermal loop %s: %w", l.ID, err)
	}
	if err := validateFeatures(l.GHEFields, KindGHEField); err != nil {
		return fmt.Errorf("thermal loop %s: %w", l.ID, err)
	}
	if err := validateConnectors(l.Connectors); err != nil {
		return fmt.Errorf("thermal loop %s: %w", l.ID, err)
	}
	return nil
}

// Validate checks the network's tags, identifiers and coordinates.
func (n *ElectricalNetwork) Validate() error {
	if err := validation.ValidateStruct(n); err != nil {
		return err
	}
	if err := validation.ValidateConnectorCount(len(n.Connectors)); err != nil {
		return fmt.Errorf("electrical network %s: %w", n.ID, err)
	}
	if err := validateFeatures([]Feature{n.Substation}, KindSubstation); err != nil {
		return fmt.Errorf("electrical network %s: %w", n.ID, err)
	}
	if err := validateFeatures(n.Transformers, KindTransformer); err != nil {
		return fmt.Errorf("electrical network %s: %w", n.ID, err)
	}
	if err := validateConnectors(n.Connectors); err != nil {
		return fmt.Errorf("electrical network %s: %w", n.ID, err)
	}
	return nil
}

// Validate checks the network's tags, identifiers and coordinates.
func (n *RoadNetwork) Validate() error {
	if err := validation.ValidateStruct(n); err != nil {
		return err
	}
	if err := validation.ValidateConnectorCount(len(n.Roads)); err != nil {
		return fmt.Errorf("road network %s: %w", n.ID, err)
	}
	if err := validateFeatures([]Feature{n.Substation}, KindSubstation); err != nil {
		return fmt.Errorf("road network %s: %w", n.ID, err)
	}
	if err := validateConnectors(n.Roads); err != nil {
		return fmt.Errorf("road network %s: %w", n.ID, err)
	}
	return nil
}

func validateFeatures(fs []Feature, kind Kind) error {
	for _, f := range fs {
		if f.Kind != kind {
			return fmt.Errorf("feature %s: kind %s, want %s", f.ID, f.Kind, kind)
		}
		if err := validation.ValidateID(f.ID); err != nil {
			return fmt.Errorf("feature: %w", err)
		}
		if err := finitePolygon(f.Geometry); err != nil {
			return fmt.Errorf("feature %s: %w", f.ID, err)
		}
	}
	return nil
}

func validateConnectors(cs []Connector) error {
	seen := make(map[string]bool, len(cs))
	for _, c := range cs {
		if err := validation.ValidateID(c.ID); err != nil {
			return fmt.Errorf("connector: %w", err)
		}
		if seen[c.ID] {
			return fmt.Errorf("connector %s: duplicate id", c.ID)
		}
		seen[c.ID] = true
		for _, p := range c.Geometry {
			if !geometry.Finite(p) {
				return fmt.Errorf("connector %s: non-finite coordinate %v", c.ID, p)
			}
		}
	}
	return nil
}

func finitePolygon(poly orb.Polygon) error {
	for _, r := range poly {
		if len(r) < 3 {
			return fmt.Errorf("ring has %d vertices, need at least 3", len(r))
		}
		for _, p := range r {
			if !geometry.Finite(p) {
				return fmt.Errorf("non-finite coordinate %v", p)
			}
		}
	}
	return nil
}

// BuildingByID returns the building with id, if any.
func (m *Model) BuildingByID(id string) (Building, bool) {
	for _, b := range m.Buildings {
		if b.ID == id {
			return b, true
		}
	}
	return Building{}, false
}

// BuildingsIn returns copies of the model's buildings expressed in u.
func (m *Model) BuildingsIn(u units.Unit) []Building {
	out := make([]Building, len(m.Buildings))
	from := UnitOf(m.Units)
	f := scaler(units.Factor(from, UnitOf(u)), orb.Point{})
	for i, b := range m.Buildings {
		out[i] = b.Clone()
		if from != UnitOf(u) {
			for _, fp := range out[i].Footprints {
				f.polygon(fp)
			}
		}
	}
	return out
}

// ConvertToUnits rescales every building and network so the model is expressed in u.
func (m *Model) ConvertToUnits(u units.Unit) {
	from := UnitOf(m.Units)
	if from != u {
		f := scaler(units.Factor(from, u), orb.Point{})
		for _, b := range m.Buildings {
			for _, fp := range b.Footprints {
				f.polygon(fp)
			}
		}
		m.ReferencePoint = f(m.ReferencePoint)
	}
	for i := range m.ThermalLoops {
		m.ThermalLoops[i].ConvertToUnits(u)
	}
	for i := range m.ElectricalNetworks {
		m.ElectricalNetworks[i].ConvertToUnits(u)
	}
	for i := range m.RoadNetworks {
		m.RoadNetworks[i].ConvertToUnits(u)
	}
	m.Units = u
}

// Duplicate returns a deep copy of the model.
func (m *Model) Duplicate() *Model {
	out := *m
	out.Buildings = make([]Building, len(m.Buildings))
	for i, b := range m.Buildings {
		out.Buildings[i] = b.Clone()
	}
	out.ThermalLoops = make([]ThermalLoop, len(m.ThermalLoops))
	for i := range m.ThermalLoops {
		out.ThermalLoops[i] = *m.ThermalLoops[i].Duplicate()
	}
	out.ElectricalNetworks = make([]ElectricalNetwork, len(m.ElectricalNetworks))
	for i := range m.ElectricalNetworks {
		out.ElectricalNetworks[i] = *m.ElectricalNetworks[i].Duplicate()
	}
	out.RoadNetworks = make([]RoadNetwork, len(m.RoadNetworks))
	for i := range m.RoadNetworks {
		out.RoadNetworks[i] = *m.RoadNetworks[i].Duplicate()
	}
	return &out
}
