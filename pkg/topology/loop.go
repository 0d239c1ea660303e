package topology

import (
	"github.com/paulmach/orb"

	"github.com/dd0wney/cluso-district/pkg/geometry"
	"github.com/dd0wney/cluso-district/pkg/network"
)

// LoopMember is a feature the loop passes through. The synthetic segment
// between its two contacts stands in for the piping inside it; when both
// contacts sit on one junction the segment has no length.
type LoopMember struct {
	FeatureID string
	Kind      network.Kind
	Segment   orb.LineString
}

// Loop is a single closed cycle wound in the direction of flow.
type Loop struct {
	// Ring is explicitly closed: its last vertex repeats the first.
	Ring          orb.Ring
	ClockwiseFlow bool
	Members       []LoopMember
	// Excluded lists optional features that no connector touches.
	Excluded []string
}

// AssembleLoop merges connectors and feature pass-through segments into one
// simple closed ring whose winding matches clockwise. Groups are checked in
// order; each must be touched by exactly two connector ends or by none.
// Exactly two piece ends must meet at every point of the ring.
func AssembleLoop(connectors []network.Connector, groups []FeatureGroup, clockwise bool, tol float64) (*Loop, error) {
	loop := &Loop{ClockwiseFlow: clockwise}

	pieces := make([]orb.LineString, 0, len(connectors)+len(groups))
	for _, c := range connectors {
		pieces = append(pieces, c.Geometry)
	}

	for _, g := range groups {
		contacts, err := FeatureContacts(g, connectors, tol)
		if err != nil {
			return nil, err
		}
		switch n := len(contacts); {
		case n == 2:
			seg := orb.LineString{contacts[0].Point, contacts[1].Point}
			loop.Members = append(loop.Members, LoopMember{FeatureID: g.ID, Kind: g.Kind, Segment: seg})
			pieces = append(pieces, seg)
		case n == 0 && !g.Required:
			loop.Excluded = append(loop.Excluded, g.ID)
		case n < 2:
			return nil, NewError("assemble").Feature(g.ID).Count(n).
				Context("%s has %d connections", g.Kind, n).Cause(ErrFeatureNotIntegrated).Err()
		default:
			return nil, NewError("assemble").Feature(g.ID).Count(n).
				Context("%s has %d connections", g.Kind, n).Cause(ErrAmbiguousConnections).Err()
		}
	}

	for _, n := range geometry.EndDegrees(pieces, tol) {
		if n.Degree > 2 {
			return nil, NewError("assemble").Count(n.Degree).
				Context("%d ends meet at %v", n.Degree, n.Point).Cause(ErrBranchedLoop).Err()
		}
	}

	chains := geometry.Join(pieces, tol)
	if len(chains) != 1 {
		return nil, NewError("assemble").Count(len(chains)).
			Context("%d separate loops", len(chains)).Cause(ErrMultipleLoops).Err()
	}
	if !geometry.IsClosed(chains[0], tol) {
		return nil, NewError("assemble").
			Context("ends %v and %v do not meet", chains[0][0], chains[0][len(chains[0])-1]).
			Cause(ErrOpenLoop).Err()
	}

	ring := geometry.ToRing(chains[0], tol)
	if p, ok := geometry.RepeatedVertex(ring, tol); ok {
		return nil, NewError("assemble").
			Context("loop passes through %v twice", p).Cause(ErrBranchedLoop).Err()
	}
	switch ring.Orientation() {
	case 0:
		return nil, NewError("assemble").Context("loop encloses no area").Cause(ErrGeometry).Err()
	case orb.CW:
		if !clockwise {
			ring.Reverse()
		}
	default:
		if clockwise {
			ring.Reverse()
		}
	}
	loop.Ring = ring
	return loop, nil
}
