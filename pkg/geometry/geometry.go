// Package geometry provides tolerance-aware planar predicates on orb geometry
// used throughout topology resolution.
//
// All comparisons are strict: two points coincide when their distance is
// less than the tolerance, never equal to it.
package geometry

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Equivalent reports whether a and b lie within tol of each other.
func Equivalent(a, b orb.Point, tol float64) bool {
	return planar.Distance(a, b) < tol
}

// Finite reports whether both coordinates of p are finite numbers.
func Finite(p orb.Point) bool {
	return !math.IsNaN(p[0]) && !math.IsNaN(p[1]) && !math.IsInf(p[0], 0) && !math.IsInf(p[1], 0)
}

// DistanceToBoundary returns the distance from p to the nearest edge of any ring of poly.
// Rings may be given open or closed.
func DistanceToBoundary(poly orb.Polygon, p orb.Point) float64 {
	best := math.Inf(1)
	for _, ring := range poly {
		n := len(ring)
		if n == 0 {
			continue
		}
		if n == 1 {
			best = math.Min(best, planar.Distance(ring[0], p))
			continue
		}
		for i := 0; i < n-1; i++ {
			best = math.Min(best, planar.DistanceFromSegment(ring[i], ring[i+1], p))
		}
		if !ring.Closed() {
			best = math.Min(best, planar.DistanceFromSegment(ring[n-1], ring[0], p))
		}
	}
	return best
}

// PointOnEdge reports whether p lies within tol of the boundary of poly.
func PointOnEdge(poly orb.Polygon, p orb.Point, tol float64) bool {
	return DistanceToBoundary(poly, p) < tol
}

// Segments splits a polyline into its two-point segments.
func Segments(ls orb.LineString) []orb.LineString {
	if len(ls) < 2 {
		return nil
	}
	segs := make([]orb.LineString, 0, len(ls)-1)
	for i := 0; i < len(ls)-1; i++ {
		segs = append(segs, orb.LineString{ls[i], ls[i+1]})
	}
	return segs
}

// Reversed returns a reversed copy of ls.
func Reversed(ls orb.LineString) orb.LineString {
	out := ls.Clone()
	out.Reverse()
	return out
}

// SegmentEquivalent reports whether two segments coincide within tol, in either direction.
func SegmentEquivalent(a1, a2, b1, b2 orb.Point, tol float64) bool {
	if Equivalent(a1, b1, tol) && Equivalent(a2, b2, tol) {
		return true
	}
	return Equivalent(a1, b2, tol) && Equivalent(a2, b1, tol)
}

// IsClosed reports whether ls starts and ends within tol and has enough
// vertices to enclose an area.
func IsClosed(ls orb.LineString, tol float64) bool {
	if len(ls) < 4 {
		return false
	}
	return Equivalent(ls[0], ls[len(ls)-1], tol)
}

// ToRing converts a closed polyline to an explicitly closed ring whose last
// vertex is identical to its first.
func ToRing(ls orb.LineString, tol float64) orb.Ring {
	pts := ls.Clone()
	if len(pts) > 1 && Equivalent(pts[0], pts[len(pts)-1], tol) {
		pts = pts[:len(pts)-1]
	}
	ring := orb.Ring(pts)
	if len(ring) > 0 {
		ring = append(ring, ring[0])
	}
	return ring
}

// Clockwise reports whether a ring winds clockwise when viewed from above.
func Clockwise(r orb.Ring) bool {
	return r.Orientation() == orb.CW
}

// RotateRing returns a closed copy of r whose first vertex is r[start].
func RotateRing(r orb.Ring, start int) orb.Ring {
	open := r
	if r.Closed() {
		open = r[:len(r)-1]
	}
	n := len(open)
	if n == 0 {
		return orb.Ring{}
	}
	start = ((start % n) + n) % n
	out := make(orb.Ring, 0, n+1)
	out = append(out, open[start:]...)
	out = append(out, open[:start]...)
	out = append(out, out[0])
	return out
}

// Length returns the planar length of a polyline.
func Length(ls orb.LineString) float64 {
	return planar.Length(ls)
}

// Degenerate reports whether every vertex of ls lies within tol of the first,
// so the polyline has no extent.
func Degenerate(ls orb.LineString, tol float64) bool {
	for _, p := range ls {
		if !Equivalent(ls[0], p, tol) {
			return false
		}
	}
	return true
}

// Node is a point where polyline ends meet.
type Node struct {
	Point  orb.Point
	Degree int
}

// EndDegrees counts how many polyline ends land on each point, merging ends
// within tol of an earlier one. Nodes come back in first-seen order.
// Degenerate polylines are skipped.
func EndDegrees(lines []orb.LineString, tol float64) []Node {
	var nodes []Node
	add := func(p orb.Point) {
		for i := range nodes {
			if Equivalent(nodes[i].Point, p, tol) {
				nodes[i].Degree++
				return
			}
		}
		nodes = append(nodes, Node{Point: p, Degree: 1})
	}
	for _, l := range lines {
		if len(l) < 2 || Degenerate(l, tol) {
			continue
		}
		add(l[0])
		add(l[len(l)-1])
	}
	return nodes
}

// RepeatedVertex returns the first vertex of r that another vertex revisits
// within tol. The closing vertex of a closed ring is not counted.
func RepeatedVertex(r orb.Ring, tol float64) (orb.Point, bool) {
	open := r
	if len(r) > 1 && r.Closed() {
		open = r[:len(r)-1]
	}
	for i := 0; i < len(open); i++ {
		for j := i + 1; j < len(open); j++ {
			if Equivalent(open[i], open[j], tol) {
				return open[i], true
			}
		}
	}
	return orb.Point{}, false
}

// Join chains polylines whose ends coincide within tol into as few polylines as
// possible, reversing pieces where needed. A chain stops growing once it closes.
// Degenerate polylines are dropped. Inputs are never modified.
func Join(lines []orb.LineString, tol float64) []orb.LineString {
	pending := make([]orb.LineString, 0, len(lines))
	for _, l := range lines {
		if len(l) >= 2 && !Degenerate(l, tol) {
			pending = append(pending, l.Clone())
		}
	}

	var out []orb.LineString
	for len(pending) > 0 {
		chain := pending[0]
		pending = pending[1:]

		for !IsClosed(chain, tol) {
			extended := false
			for i := 0; i < len(pending); i++ {
				next := pending[i]
				head, tail := chain[0], chain[len(chain)-1]
				switch {
				case Equivalent(tail, next[0], tol):
					chain = append(chain, next[1:]...)
				case Equivalent(tail, next[len(next)-1], tol):
					chain = append(chain, Reversed(next)[1:]...)
				case Equivalent(head, next[len(next)-1], tol):
					chain = append(next[:len(next)-1].Clone(), chain...)
				case Equivalent(head, next[0], tol):
					rev := Reversed(next)
					chain = append(rev[:len(rev)-1], chain...)
				default:
					continue
				}
				pending = append(pending[:i], pending[i+1:]...)
				extended = true
				break
			}
			if !extended {
				break
			}
		}
		out = append(out, chain)
	}
	return out
}
