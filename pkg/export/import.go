package export

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/dd0wney/cluso-district/pkg/network"
	"github.com/dd0wney/cluso-district/pkg/projection"
	"github.com/dd0wney/cluso-district/pkg/units"
)

// ErrInvalidGeoJSON marks input that cannot be read as a network layout.
var ErrInvalidGeoJSON = errors.New("invalid geojson")

// ImportOptions controls how a feature collection maps into model space.
type ImportOptions struct {
	// Location overrides the collection's project location.
	Location *projection.Location
	// ReferencePoint overrides the project's cad_coordinates; in Units.
	ReferencePoint *orb.Point
	// Units of the returned geometry; meters when empty.
	Units         units.Unit
	ClockwiseFlow bool
}

type reader struct {
	fc   *geojson.FeatureCollection
	opts ImportOptions
	f    frame
}

func readCollection(r io.Reader, opts ImportOptions) (*geojson.FeatureCollection, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read geojson: %w", err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGeoJSON, err)
	}
	if opts.Units != "" && !opts.Units.Valid() {
		return nil, fmt.Errorf("unknown units %q", opts.Units)
	}
	return fc, nil
}

// anchor resolves where the local frame sits, falling back to the bottom-left
// corner of the connectors when the collection carries no location.
func (rd *reader) anchor(connectors []*geojson.Feature) (Anchor, error) {
	var a Anchor
	var haveLoc bool

	if prj, ok := rd.fc.ExtraMembers["project"].(map[string]any); ok {
		lat, latOK := prj["latitude"].(float64)
		lon, lonOK := prj["longitude"].(float64)
		if latOK && lonOK {
			a.Location = projection.Location{Latitude: lat, Longitude: lon}
			haveLoc = true
		}
		if cad, ok := prj["cad_coordinates"].([]any); ok && len(cad) >= 2 {
			x, xOK := cad[0].(float64)
			y, yOK := cad[1].(float64)
			if xOK && yOK {
				a.ReferencePoint = orb.Point{x, y}
			}
		}
		if u, ok := prj["units"].(string); ok && u != "" {
			if !units.Unit(u).Valid() {
				return Anchor{}, fmt.Errorf("%w: project units %q", ErrInvalidGeoJSON, u)
			}
			a.Units = units.Unit(u)
		}
	}
	if rd.opts.Location != nil {
		a.Location, haveLoc = *rd.opts.Location, true
	}
	if rd.opts.ReferencePoint != nil {
		a.ReferencePoint, a.Units = *rd.opts.ReferencePoint, rd.opts.Units
	}

	if !haveLoc {
		minLon, minLat := math.Inf(1), math.Inf(1)
		for _, c := range connectors {
			ls, ok := c.Geometry.(orb.LineString)
			if !ok {
				continue
			}
			for _, p := range ls {
				minLon, minLat = math.Min(minLon, p[0]), math.Min(minLat, p[1])
			}
		}
		if math.IsInf(minLon, 1) {
			return Anchor{}, fmt.Errorf("%w: no location and no connector coordinates", ErrInvalidGeoJSON)
		}
		a.Location = projection.Location{Latitude: minLat, Longitude: minLon}
	}
	return a, nil
}

// toModel converts lon/lat geometry into the requested units.
func (rd *reader) toModel(pts []orb.Point) []orb.Point {
	back := units.Factor(units.Meters, network.UnitOf(rd.opts.Units))
	out := make([]orb.Point, len(pts))
	for i, p := range pts {
		m := rd.f.proj.Local(p)
		out[i] = orb.Point{m[0] * back, m[1] * back}
	}
	return out
}

func (rd *reader) connector(gf *geojson.Feature) (network.Connector, error) {
	ls, ok := gf.Geometry.(orb.LineString)
	if !ok {
		return network.Connector{}, fmt.Errorf("%w: connector %v has geometry %T, want LineString",
			ErrInvalidGeoJSON, gf.Properties["id"], gf.Geometry)
	}
	id := gf.Properties.MustString("id", "")
	if id == "" {
		return network.Connector{}, fmt.Errorf("%w: connector without id", ErrInvalidGeoJSON)
	}
	name := gf.Properties.MustString("name", "")
	if name == id {
		name = ""
	}
	return network.Connector{
		ID:          id,
		DisplayName: name,
		Geometry:    orb.LineString(rd.toModel(ls)),
	}, nil
}

func (rd *reader) feature(gf *geojson.Feature, kind network.Kind) (network.Feature, error) {
	poly, ok := gf.Geometry.(orb.Polygon)
	if !ok {
		return network.Feature{}, fmt.Errorf("%w: %s %v is not a Polygon", ErrInvalidGeoJSON, kind, gf.Properties["id"])
	}
	id := gf.Properties.MustString("id", "")
	if id == "" {
		return network.Feature{}, fmt.Errorf("%w: %s without id", ErrInvalidGeoJSON, kind)
	}
	out := make(orb.Polygon, len(poly))
	for i, r := range poly {
		out[i] = orb.Ring(rd.toModel(r))
	}
	name := gf.Properties.MustString("name", "")
	if name == id {
		name = ""
	}
	return network.Feature{ID: id, DisplayName: name, Kind: kind, Geometry: out}, nil
}

func (rd *reader) setup(connectors []*geojson.Feature) error {
	a, err := rd.anchor(connectors)
	if err != nil {
		return err
	}
	rd.f = newFrame(a, rd.opts.Units)
	return nil
}

// ThermalLoopFromGeoJSON reads ThermalConnector and Ground Heat Exchanger
// features into a loop named id. Junctions and other features are ignored.
func ThermalLoopFromGeoJSON(r io.Reader, id string, opts ImportOptions) (*network.ThermalLoop, error) {
	fc, err := readCollection(r, opts)
	if err != nil {
		return nil, err
	}
	rd := &reader{fc: fc, opts: opts}

	var connData, gheData []*geojson.Feature
	for _, gf := range fc.Features {
		switch gf.Properties.MustString("type", "") {
		case TypeThermalConnector:
			connData = append(connData, gf)
		case TypeDistrictSystem:
			if gf.Properties.MustString("district_system_type", "") == SystemGHE {
				gheData = append(gheData, gf)
			}
		}
	}
	if err := rd.setup(connData); err != nil {
		return nil, err
	}

	loop := &network.ThermalLoop{ID: id, ClockwiseFlow: opts.ClockwiseFlow, Units: network.UnitOf(opts.Units)}
	for _, gf := range connData {
		c, err := rd.connector(gf)
		if err != nil {
			return nil, err
		}
		loop.Connectors = append(loop.Connectors, c)
	}
	for _, gf := range gheData {
		f, err := rd.feature(gf, network.KindGHEField)
		if err != nil {
			return nil, err
		}
		loop.GHEFields = append(loop.GHEFields, f)
	}
	return loop, nil
}

// ElectricalNetworkFromGeoJSON reads wires, transformers and exactly one
// substation into a network named id. Both the exported layout and the
// distribution planner's Line/DistribTransf layout are accepted.
func ElectricalNetworkFromGeoJSON(r io.Reader, id string, opts ImportOptions) (*network.ElectricalNetwork, error) {
	fc, err := readCollection(r, opts)
	if err != nil {
		return nil, err
	}
	rd := &reader{fc: fc, opts: opts}

	var connData, transData, subData []*geojson.Feature
	for _, gf := range fc.Features {
		typ := gf.Properties.MustString("type", "")
		dst := gf.Properties.MustString("district_system_type", "")
		switch {
		case typ == TypeElectricalConnector || typ == "Line":
			connData = append(connData, gf)
		case typ == "DistribTransf" || (typ == TypeDistrictSystem && dst == SystemTransform):
			transData = append(transData, gf)
		case strings.Contains(typ, "Substation") || (typ == TypeDistrictSystem && dst == SystemSubstation):
			subData = append(subData, gf)
		}
	}
	if len(subData) != 1 {
		return nil, fmt.Errorf("%w: found %d substations, want 1", ErrInvalidGeoJSON, len(subData))
	}
	if err := rd.setup(connData); err != nil {
		return nil, err
	}

	net := &network.ElectricalNetwork{ID: id, Units: network.UnitOf(opts.Units)}
	if net.Substation, err = rd.feature(subData[0], network.KindSubstation); err != nil {
		return nil, err
	}
	for _, gf := range transData {
		t, err := rd.feature(gf, network.KindTransformer)
		if err != nil {
			return nil, err
		}
		net.Transformers = append(net.Transformers, t)
	}
	for _, gf := range connData {
		c, err := rd.connector(gf)
		if err != nil {
			return nil, err
		}
		net.Connectors = append(net.Connectors, c)
	}
	return net, nil
}
