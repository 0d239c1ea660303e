package topology

import (
	"github.com/paulmach/orb"

	"github.com/dd0wney/cluso-district/pkg/geometry"
	"github.com/dd0wney/cluso-district/pkg/network"
)

// Ordering is the result of walking a loop.
type Ordering struct {
	// Connectors are copies in loop order, each oriented with the flow.
	Connectors []network.Connector
	// Reversed is parallel to Connectors and marks flipped copies.
	Reversed []bool
	// Sequence lists connector and member feature ids in walk order.
	Sequence []string
}

// OrderConnectors walks loop.Ring and returns copies of connectors in walk
// order, each oriented along the walk. connectors is never modified.
//
// The walk starts where the first connector sits on the ring. Every ring
// segment must be covered by exactly one connector or one member's
// pass-through segment; anything else is an invariant violation. A member
// whose segment has no length is passed at its vertex.
func OrderConnectors(loop *Loop, connectors []network.Connector, tol float64) (*Ordering, error) {
	if loop == nil || len(loop.Ring) < 4 || len(connectors) == 0 {
		return nil, NewError("order").Context("empty loop").Cause(ErrInvariant).Err()
	}

	start := findOnRing(loop.Ring, connectors[0].Geometry, tol)
	if start < 0 {
		return nil, NewError("order").Connector(connectors[0].ID).
			Context("not on loop").Cause(ErrInvariant).Err()
	}
	ring := geometry.RotateRing(loop.Ring, start)
	segments := len(ring) - 1

	out := &Ordering{
		Connectors: make([]network.Connector, 0, len(connectors)),
		Reversed:   make([]bool, 0, len(connectors)),
	}
	used := make([]bool, len(connectors))
	passed := make([]bool, len(loop.Members))
	passAt := func(p orb.Point) {
		for k, m := range loop.Members {
			if !passed[k] && geometry.Degenerate(m.Segment, tol) && geometry.Equivalent(p, m.Segment[0], tol) {
				passed[k] = true
				out.Sequence = append(out.Sequence, m.FeatureID)
			}
		}
	}

	for pos := 0; pos < segments; {
		matched := false
		for i, c := range connectors {
			if used[i] {
				continue
			}
			fwd, rev := matchAt(ring, pos, c.Geometry, tol)
			if !fwd && !rev {
				continue
			}
			oriented := c.Clone()
			if !fwd {
				oriented = c.Reversed()
			}
			used[i] = true
			out.Connectors = append(out.Connectors, oriented)
			out.Reversed = append(out.Reversed, !fwd)
			out.Sequence = append(out.Sequence, c.ID)
			pos += len(c.Geometry) - 1
			matched = true
			break
		}
		if matched {
			passAt(ring[pos])
			continue
		}

		a, b := ring[pos], ring[pos+1]
		for k, m := range loop.Members {
			if !passed[k] && geometry.SegmentEquivalent(a, b, m.Segment[0], m.Segment[1], tol) {
				passed[k] = true
				out.Sequence = append(out.Sequence, m.FeatureID)
				matched = true
				break
			}
		}
		if !matched {
			return nil, NewError("order").
				Context("segment %v-%v matches no connector", a, b).
				Cause(ErrInvariant).Err()
		}
		pos++
		passAt(ring[pos])
	}

	for i, ok := range used {
		if !ok {
			return nil, NewError("order").Connector(connectors[i].ID).
				Context("not on loop").Cause(ErrInvariant).Err()
		}
	}
	for k, ok := range passed {
		if !ok {
			return nil, NewError("order").Feature(loop.Members[k].FeatureID).
				Context("not on loop").Cause(ErrInvariant).Err()
		}
	}
	return out, nil
}

// matchAt reports whether line coincides with the ring starting at vertex
// pos, either in its stored direction or reversed.
func matchAt(ring orb.Ring, pos int, line orb.LineString, tol float64) (fwd, rev bool) {
	n := len(line)
	if n < 2 || pos+n > len(ring) {
		return false, false
	}
	fwd, rev = true, true
	for j := 0; j < n && (fwd || rev); j++ {
		p := ring[pos+j]
		fwd = fwd && geometry.Equivalent(p, line[j], tol)
		rev = rev && geometry.Equivalent(p, line[n-1-j], tol)
	}
	return fwd, rev && !fwd
}

// findOnRing returns the first ring vertex at which line lies along the ring.
func findOnRing(ring orb.Ring, line orb.LineString, tol float64) int {
	segments := len(ring) - 1
	for s := 0; s < segments; s++ {
		rot := geometry.RotateRing(ring, s)
		if fwd, rev := matchAt(rot, 0, line, tol); fwd || rev {
			return s
		}
	}
	return -1
}
