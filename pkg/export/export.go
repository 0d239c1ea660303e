// Package export renders resolved networks as GeoJSON and reads connector
// layouts back from GeoJSON.
//
// Exported coordinates are [longitude, latitude]. Model geometry is converted
// to meters before projection, so lengths and areas in properties are meters.
package export

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"github.com/dd0wney/cluso-district/pkg/network"
	"github.com/dd0wney/cluso-district/pkg/projection"
	"github.com/dd0wney/cluso-district/pkg/topology"
	"github.com/dd0wney/cluso-district/pkg/units"
)

// Feature type property values.
const (
	TypeThermalJunction     = "ThermalJunction"
	TypeThermalConnector    = "ThermalConnector"
	TypeElectricalJunction  = "ElectricalJunction"
	TypeElectricalConnector = "ElectricalConnector"
	TypeDistrictSystem      = "District System"
	TypeRoad                = "Road"
)

// District system type property values.
const (
	SystemGHE        = "Ground Heat Exchanger"
	SystemSubstation = "Electrical Substation"
	SystemTransform  = "Transformer"
)

// Anchor places local model coordinates on the globe: Location sits at
// ReferencePoint.
type Anchor struct {
	Location       projection.Location
	ReferencePoint orb.Point
	// Units of ReferencePoint; meters when empty. It may differ from the
	// units of the geometry being placed.
	Units units.Unit
}

// frame converts geometry in one unit system into lon/lat.
type frame struct {
	proj  projection.Projector
	scale float64 // model units to meters
}

// newFrame places geometry given in u using a.
func newFrame(a Anchor, u units.Unit) frame {
	scale := units.Factor(network.UnitOf(u), units.Meters)
	refScale := units.Factor(network.UnitOf(a.Units), units.Meters)
	ref := orb.Point{a.ReferencePoint[0] * refScale, a.ReferencePoint[1] * refScale}
	return frame{proj: projection.NewProjector(a.Location, ref), scale: scale}
}

func (f frame) meters(ls orb.LineString) orb.LineString {
	out := make(orb.LineString, len(ls))
	for i, p := range ls {
		out[i] = orb.Point{p[0] * f.scale, p[1] * f.scale}
	}
	return out
}

func (f frame) point(p orb.Point) orb.Point {
	return f.proj.Point(orb.Point{p[0] * f.scale, p[1] * f.scale})
}

func (f frame) line(ls orb.LineString) orb.LineString {
	return f.proj.LineString(f.meters(ls))
}

func (f frame) polygon(poly orb.Polygon) orb.Polygon {
	out := make(orb.Polygon, len(poly))
	for i, r := range poly {
		out[i] = orb.Ring(f.meters(orb.LineString(r)))
	}
	return f.proj.Polygon(out)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func closed(r orb.Ring) orb.LineString {
	ls := orb.LineString(r).Clone()
	if len(ls) > 0 && !r.Closed() {
		ls = append(ls, ls[0])
	}
	return ls
}

func districtSystemType(k network.Kind) string {
	switch k {
	case network.KindGHEField:
		return SystemGHE
	case network.KindSubstation:
		return SystemSubstation
	case network.KindTransformer:
		return SystemTransform
	default:
		return string(k)
	}
}

func systemFeature(f frame, feat network.Feature) *geojson.Feature {
	gf := geojson.NewFeature(f.polygon(feat.Geometry))
	var area, perimeter float64
	if len(feat.Geometry) > 0 {
		outer := f.meters(closed(feat.Geometry[0]))
		area = math.Abs(planar.Area(orb.Ring(outer)))
		perimeter = planar.Length(outer)
		for _, hole := range feat.Geometry[1:] {
			area -= math.Abs(planar.Area(orb.Ring(f.meters(closed(hole)))))
		}
	}
	gf.Properties["id"] = feat.ID
	gf.Properties["name"] = nameOf(feat.DisplayName, feat.ID)
	gf.Properties["type"] = TypeDistrictSystem
	gf.Properties["district_system_type"] = districtSystemType(feat.Kind)
	gf.Properties["footprint_area"] = round(area, 1)
	gf.Properties["footprint_perimeter"] = round(perimeter, 1)
	return gf
}

func nameOf(display, id string) string {
	if display != "" {
		return display
	}
	return id
}

func junctionFeature(f frame, j topology.Junction, typ string) *geojson.Feature {
	gf := geojson.NewFeature(f.point(j.Position))
	gf.Properties["id"] = j.ID
	gf.Properties["type"] = typ
	if j.SystemID != "" {
		gf.Properties["DSId"] = j.SystemID
	}
	if j.BuildingID != "" {
		gf.Properties["buildingId"] = j.BuildingID
	}
	return gf
}

func connectorFeature(f frame, c topology.ResolvedConnector, typ string) *geojson.Feature {
	gf := geojson.NewFeature(f.line(c.Geometry))
	for k, v := range c.Attributes {
		gf.Properties[k] = v
	}
	gf.Properties["id"] = c.ID
	gf.Properties["type"] = typ
	gf.Properties["name"] = c.Name()
	gf.Properties["startJunctionId"] = c.StartJunctionID
	gf.Properties["endJunctionId"] = c.EndJunctionID
	gf.Properties["total_length"] = round(planar.Length(f.meters(c.Geometry)), 2)
	return gf
}

// ThermalLoopFeatures renders a resolved loop: its GHE fields, its connectors
// in flow order, then its junctions.
func ThermalLoopFeatures(res *topology.ThermalResult, a Anchor) []*geojson.Feature {
	f := newFrame(a, res.Units)
	out := make([]*geojson.Feature, 0, len(res.GHEFields)+len(res.Connectors)+len(res.Junctions))
	for _, g := range res.GHEFields {
		out = append(out, systemFeature(f, g))
	}
	for _, c := range res.Connectors {
		gf := connectorFeature(f, c, TypeThermalConnector)
		if c.StartFeatureID != "" {
			gf.Properties["startFeatureId"] = c.StartFeatureID
		}
		if c.EndFeatureID != "" {
			gf.Properties["endFeatureId"] = c.EndFeatureID
		}
		out = append(out, gf)
	}
	for _, j := range res.Junctions {
		out = append(out, junctionFeature(f, j, TypeThermalJunction))
	}
	return out
}

// ElectricalNetworkFeatures renders a resolved electrical network: substation,
// transformers, wires, then junctions.
func ElectricalNetworkFeatures(res *topology.ElectricalResult, a Anchor) []*geojson.Feature {
	f := newFrame(a, res.Units)
	out := make([]*geojson.Feature, 0, 1+len(res.Transformers)+len(res.Connectors)+len(res.Junctions))
	out = append(out, systemFeature(f, res.Substation))
	for _, t := range res.Transformers {
		out = append(out, systemFeature(f, t))
	}
	for _, c := range res.Connectors {
		gf := connectorFeature(f, c, TypeElectricalConnector)
		gf.Properties["connector_type"] = "Wire"
		out = append(out, gf)
	}
	for _, j := range res.Junctions {
		out = append(out, junctionFeature(f, j, TypeElectricalJunction))
	}
	return out
}

// RoadNetworkFeatures renders a resolved road network: its substation and roads.
func RoadNetworkFeatures(res *topology.ElectricalResult, a Anchor) []*geojson.Feature {
	f := newFrame(a, res.Units)
	out := make([]*geojson.Feature, 0, 1+len(res.Connectors))
	out = append(out, systemFeature(f, res.Substation))
	for _, c := range res.Connectors {
		gf := geojson.NewFeature(f.line(c.Geometry))
		gf.Properties["id"] = c.ID
		gf.Properties["name"] = c.Name()
		gf.Properties["type"] = TypeRoad
		gf.Properties["total_length"] = round(planar.Length(f.meters(c.Geometry)), 1)
		out = append(out, gf)
	}
	return out
}

// FeatureCollection wraps features with a project member recording the anchor,
// so the collection can be read back into the same local frame.
func FeatureCollection(features []*geojson.Feature, a Anchor) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = append(fc.Features, features...)
	fc.ExtraMembers = geojson.Properties{
		"project": map[string]any{
			"latitude":        a.Location.Latitude,
			"longitude":       a.Location.Longitude,
			"cad_coordinates": []float64{a.ReferencePoint[0], a.ReferencePoint[1]},
			"units":           string(network.UnitOf(a.Units)),
		},
	}
	return fc
}
