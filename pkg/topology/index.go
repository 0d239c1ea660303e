package topology

import (
	"math"

	"github.com/paulmach/orb"

	"github.com/dd0wney/cluso-district/pkg/geometry"
)

// IndexStrategy selects how junction candidates are searched.
type IndexStrategy string

const (
	// IndexLinear scans every junction in creation order.
	IndexLinear IndexStrategy = "linear"
	// IndexGrid buckets junctions into tolerance-sized cells and scans the 3x3 neighborhood.
	IndexGrid IndexStrategy = "grid"
)

// pointIndex finds the earliest-created point within tolerance of a query.
type pointIndex interface {
	// find returns the creation index of the first stored point within tolerance, or -1.
	find(p orb.Point) int
	// add stores p and returns its creation index.
	add(p orb.Point) int
}

func newPointIndex(strategy IndexStrategy, tol float64) pointIndex {
	if strategy == IndexGrid {
		return &gridIndex{tol: tol, cells: make(map[cell][]int)}
	}
	return &linearIndex{tol: tol}
}

type linearIndex struct {
	tol float64
	pts []orb.Point
}

func (ix *linearIndex) find(p orb.Point) int {
	for i, q := range ix.pts {
		if geometry.Equivalent(p, q, ix.tol) {
			return i
		}
	}
	return -1
}

func (ix *linearIndex) add(p orb.Point) int {
	ix.pts = append(ix.pts, p)
	return len(ix.pts) - 1
}

type cell struct{ x, y int64 }

// gridIndex is a spatial hash with cell size equal to the tolerance, so any
// point closer than the tolerance lies in the same or an adjacent cell.
type gridIndex struct {
	tol   float64
	pts   []orb.Point
	cells map[cell][]int
}

func (ix *gridIndex) cellOf(p orb.Point) cell {
	return cell{int64(math.Floor(p[0] / ix.tol)), int64(math.Floor(p[1] / ix.tol))}
}

func (ix *gridIndex) find(p orb.Point) int {
	c := ix.cellOf(p)
	best := -1
	for dx := int64(-1); dx <= 1; dx++ {
		for dy := int64(-1); dy <= 1; dy++ {
			for _, i := range ix.cells[cell{c.x + dx, c.y + dy}] {
				if best != -1 && i >= best {
					break
				}
				if geometry.Equivalent(p, ix.pts[i], ix.tol) {
					best = i
					break
				}
			}
		}
	}
	return best
}

func (ix *gridIndex) add(p orb.Point) int {
	ix.pts = append(ix.pts, p)
	i := len(ix.pts) - 1
	c := ix.cellOf(p)
	ix.cells[c] = append(ix.cells[c], i)
	return i
}
