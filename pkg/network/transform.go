package network

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/dd0wney/cluso-district/pkg/units"
)

// pointFunc maps one point to another.
type pointFunc func(orb.Point) orb.Point

func mover(v orb.Point) pointFunc {
	return func(p orb.Point) orb.Point { return orb.Point{p[0] + v[0], p[1] + v[1]} }
}

// rotator rotates counterclockwise by angle degrees around origin.
func rotator(angle float64, origin orb.Point) pointFunc {
	rad := angle * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	return func(p orb.Point) orb.Point {
		dx, dy := p[0]-origin[0], p[1]-origin[1]
		return orb.Point{origin[0] + dx*cos - dy*sin, origin[1] + dx*sin + dy*cos}
	}
}

func scaler(factor float64, origin orb.Point) pointFunc {
	return func(p orb.Point) orb.Point {
		return orb.Point{origin[0] + (p[0]-origin[0])*factor, origin[1] + (p[1]-origin[1])*factor}
	}
}

func (f pointFunc) lineString(ls orb.LineString) {
	for i := range ls {
		ls[i] = f(ls[i])
	}
}

func (f pointFunc) polygon(poly orb.Polygon) {
	for _, r := range poly {
		f.lineString(orb.LineString(r))
	}
}

func (f pointFunc) connectors(cs []Connector) {
	for i := range cs {
		f.lineString(cs[i].Geometry)
	}
}

func (f pointFunc) features(fs []Feature) {
	for i := range fs {
		f.polygon(fs[i].Geometry)
	}
}

// Duplicate returns a deep copy of the loop.
func (l *ThermalLoop) Duplicate() *ThermalLoop {
	out := *l
	out.GHEFields = cloneFeatures(l.GHEFields)
	out.Connectors = cloneConnectors(l.Connectors)
	return &out
}

func (l *ThermalLoop) apply(f pointFunc) {
	f.features(l.GHEFields)
	f.connectors(l.Connectors)
}

// Move translates the loop by v.
func (l *ThermalLoop) Move(v orb.Point) { l.apply(mover(v)) }

// Rotate rotates the loop counterclockwise by angle degrees around origin.
func (l *ThermalLoop) Rotate(angle float64, origin orb.Point) { l.apply(rotator(angle, origin)) }

// Scale scales the loop by factor around origin.
func (l *ThermalLoop) Scale(factor float64, origin orb.Point) { l.apply(scaler(factor, origin)) }

// ConvertToUnits rescales geometry so it is expressed in u.
func (l *ThermalLoop) ConvertToUnits(u units.Unit) {
	if from := UnitOf(l.Units); from != u {
		l.Scale(units.Factor(from, u), orb.Point{})
	}
	l.Units = u
}

// Duplicate returns a deep copy of the network.
func (n *ElectricalNetwork) Duplicate() *ElectricalNetwork {
	out := *n
	out.Substation = n.Substation.Clone()
	out.Transformers = cloneFeatures(n.Transformers)
	out.Connectors = cloneConnectors(n.Connectors)
	return &out
}

func (n *ElectricalNetwork) apply(f pointFunc) {
	f.polygon(n.Substation.Geometry)
	f.features(n.Transformers)
	f.connectors(n.Connectors)
}

// Move translates the network by v.
func (n *ElectricalNetwork) Move(v orb.Point) { n.apply(mover(v)) }

// Rotate rotates the network counterclockwise by angle degrees around origin.
func (n *ElectricalNetwork) Rotate(angle float64, origin orb.Point) { n.apply(rotator(angle, origin)) }

// Scale scales the network by factor around origin.
func (n *ElectricalNetwork) Scale(factor float64, origin orb.Point) { n.apply(scaler(factor, origin)) }

// ConvertToUnits rescales geometry so it is expressed in u.
func (n *ElectricalNetwork) ConvertToUnits(u units.Unit) {
	if from := UnitOf(n.Units); from != u {
		n.Scale(units.Factor(from, u), orb.Point{})
	}
	n.Units = u
}

// Duplicate returns a deep copy of the network.
func (n *RoadNetwork) Duplicate() *RoadNetwork {
	out := *n
	out.Substation = n.Substation.Clone()
	out.Roads = cloneConnectors(n.Roads)
	return &out
}

func (n *RoadNetwork) apply(f pointFunc) {
	f.polygon(n.Substation.Geometry)
	f.connectors(n.Roads)
}

// Move translates the network by v.
func (n *RoadNetwork) Move(v orb.Point) { n.apply(mover(v)) }

// Rotate rotates the network counterclockwise by angle degrees around origin.
func (n *RoadNetwork) Rotate(angle float64, origin orb.Point) { n.apply(rotator(angle, origin)) }

// Scale scales the network by factor around origin.
func (n *RoadNetwork) Scale(factor float64, origin orb.Point) { n.apply(scaler(factor, origin)) }

// ConvertToUnits rescales geometry so it is expressed in u.
func (n *RoadNetwork) ConvertToUnits(u units.Unit) {
	if from := UnitOf(n.Units); from != u {
		n.Scale(units.Factor(from, u), orb.Point{})
	}
	n.Units = u
}

func cloneConnectors(cs []Connector) []Connector {
	if cs == nil {
		return nil
	}
	out := make([]Connector, len(cs))
	for i, c := range cs {
		out[i] = c.Clone()
	}
	return out
}

func cloneFeatures(fs []Feature) []Feature {
	if fs == nil {
		return nil
	}
	out := make([]Feature, len(fs))
	for i, f := range fs {
		out[i] = f.Clone()
	}
	return out
}
