package topology

import (
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/dd0wney/cluso-district/pkg/geometry"
	"github.com/dd0wney/cluso-district/pkg/network"
)

// CheckReachability verifies that every transformer and every
// building-touching junction is connected to the substation.
//
// Junctions and features are nodes of one undirected graph. Connectors join
// their end junctions; a feature joins every junction on its boundary, so
// current may pass through a transformer between two of its terminals.
func CheckReachability(set *JunctionSet, substation network.Feature, transformers []network.Feature, tol float64) error {
	g := simple.NewUndirectedGraph()
	nj := int64(len(set.Junctions))
	for i := int64(0); i < nj; i++ {
		g.AddNode(simple.Node(i))
	}

	features := append([]network.Feature{substation}, transformers...)
	for k := range features {
		g.AddNode(simple.Node(nj + int64(k)))
	}

	pos := set.positions()
	for _, e := range set.Ends {
		a, b := int64(pos[e.Start]), int64(pos[e.End])
		if a != b {
			g.SetEdge(g.NewEdge(simple.Node(a), simple.Node(b)))
		}
	}
	for k, f := range features {
		fn := simple.Node(nj + int64(k))
		for i, j := range set.Junctions {
			if geometry.PointOnEdge(f.Geometry, j.Position, tol) {
				g.SetEdge(g.NewEdge(fn, simple.Node(int64(i))))
			}
		}
	}

	root := simple.Node(nj)
	if g.From(root.ID()).Len() == 0 {
		return NewError("reach").Feature(substation.ID).
			Context("no connector touches the substation").Cause(ErrDisconnected).Err()
	}

	var bfs traverse.BreadthFirst
	bfs.Walk(g, root, func(graph.Node, int) bool { return false })

	for k, f := range transformers {
		if !bfs.Visited(simple.Node(nj + int64(k+1))) {
			return NewError("reach").Feature(f.ID).
				Context("transformer unreachable from %s", substation.ID).Cause(ErrDisconnected).Err()
		}
	}
	for i, j := range set.Junctions {
		if j.BuildingID != "" && !bfs.Visited(simple.Node(int64(i))) {
			return NewError("reach").Feature(j.BuildingID).
				Context("junction %s unreachable from %s", j.ID, substation.ID).Cause(ErrDisconnected).Err()
		}
	}
	return nil
}
