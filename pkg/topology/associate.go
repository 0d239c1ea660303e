package topology

import (
	"github.com/paulmach/orb"

	"github.com/dd0wney/cluso-district/pkg/geometry"
	"github.com/dd0wney/cluso-district/pkg/network"
)

// AssignJunctionBuildings returns a copy of junctions with BuildingID set by
// the first footprint, in building then footprint order, whose edge lies
// within tol. Junctions that already carry a building keep it.
func AssignJunctionBuildings(junctions []Junction, buildings []network.Building, tol float64) []Junction {
	out := make([]Junction, len(junctions))
	copy(out, junctions)
	for i := range out {
		if out[i].BuildingID != "" {
			continue
		}
	search:
		for _, b := range buildings {
			for _, fp := range b.Footprints {
				if geometry.PointOnEdge(fp, out[i].Position, tol) {
					out[i].BuildingID = b.ID
					break search
				}
			}
		}
	}
	return out
}

// AssignJunctionSystems returns a copy of junctions with SystemID set by the
// first infrastructure feature whose boundary lies within tol.
func AssignJunctionSystems(junctions []Junction, systems []network.Feature, tol float64) []Junction {
	out := make([]Junction, len(junctions))
	copy(out, junctions)
	for i := range out {
		if out[i].SystemID != "" {
			continue
		}
		for _, f := range systems {
			if geometry.PointOnEdge(f.Geometry, out[i].Position, tol) {
				out[i].SystemID = f.ID
				break
			}
		}
	}
	return out
}

// Contact is a connector endpoint lying on a feature boundary.
type Contact struct {
	Connector int // index into the connector list
	AtStart   bool
	Point     orb.Point
}

// FeatureGroup is one logical loop member: every footprint sharing an id.
type FeatureGroup struct {
	ID       string
	Kind     network.Kind
	Required bool
	Shapes   []orb.Polygon
}

func (g FeatureGroup) touches(p orb.Point, tol float64) bool {
	for _, s := range g.Shapes {
		if geometry.PointOnEdge(s, p, tol) {
			return true
		}
	}
	return false
}

// GroupFeatures merges features sharing an id, keeping first-appearance order.
// A group is required when any of its features is.
func GroupFeatures(features []network.Feature) []FeatureGroup {
	var groups []FeatureGroup
	pos := make(map[string]int)
	for _, f := range features {
		i, ok := pos[f.ID]
		if !ok {
			pos[f.ID] = len(groups)
			groups = append(groups, FeatureGroup{ID: f.ID, Kind: f.Kind})
			i = len(groups) - 1
		}
		groups[i].Required = groups[i].Required || f.Required
		groups[i].Shapes = append(groups[i].Shapes, f.Geometry)
	}
	return groups
}

// FeatureContacts finds every connector endpoint lying on the group's
// boundary. A connector contributes at most one contact; one touching the
// group with both ends is ambiguous. Two connectors meeting at one junction
// on the boundary give two contacts at the same point.
func FeatureContacts(g FeatureGroup, connectors []network.Connector, tol float64) ([]Contact, error) {
	var contacts []Contact
	for i, c := range connectors {
		start := g.touches(c.Start(), tol)
		end := g.touches(c.End(), tol)
		switch {
		case start && end:
			return nil, NewError("associate").Feature(g.ID).
				Context("connector %s touches it at both ends", c.ID).
				Cause(ErrToleranceMismatch).Err()
		case start:
			contacts = append(contacts, Contact{Connector: i, AtStart: true, Point: c.Start()})
		case end:
			contacts = append(contacts, Contact{Connector: i, AtStart: false, Point: c.End()})
		}
	}
	return contacts, nil
}

// ConnectorFeatures returns, for each connector, the id of the first group
// touching its start and the first touching its end.
func ConnectorFeatures(connectors []network.Connector, groups []FeatureGroup, tol float64) [][2]string {
	out := make([][2]string, len(connectors))
	for i, c := range connectors {
		for _, g := range groups {
			if out[i][0] == "" && g.touches(c.Start(), tol) {
				out[i][0] = g.ID
			}
			if out[i][1] == "" && g.touches(c.End(), tol) {
				out[i][1] = g.ID
			}
		}
	}
	return out
}
