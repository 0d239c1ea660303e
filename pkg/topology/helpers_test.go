package topology

import (
	"github.com/paulmach/orb"

	"github.com/dd0wney/cluso-district/pkg/network"
)

const testTol = 0.01

func conn(id string, pts ...orb.Point) network.Connector {
	return network.Connector{ID: id, Geometry: orb.LineString(pts)}
}

func rect(x0, y0, x1, y1 float64) orb.Polygon {
	return orb.Polygon{{{x0, y0}, {x1, y0}, {x1, y1}, {x0, y1}, {x0, y0}}}
}

func feature(id string, kind network.Kind, poly orb.Polygon) network.Feature {
	return network.Feature{ID: id, Kind: kind, Geometry: poly}
}

// squareConnectors is a counterclockwise 10x10 square of four segments.
func squareConnectors() []network.Connector {
	return []network.Connector{
		conn("c1", orb.Point{0, 0}, orb.Point{10, 0}),
		conn("c2", orb.Point{10, 0}, orb.Point{10, 10}),
		conn("c3", orb.Point{10, 10}, orb.Point{0, 10}),
		conn("c4", orb.Point{0, 10}, orb.Point{0, 0}),
	}
}

// gheLoopConnectors run from the left edge of the field at (20,0)-(30,10)
// around a rectangle and back; the field closes the loop.
func gheLoopConnectors() []network.Connector {
	return []network.Connector{
		conn("c1", orb.Point{20, 2}, orb.Point{0, 2}),
		conn("c2", orb.Point{0, 2}, orb.Point{0, 8}),
		conn("c3", orb.Point{0, 8}, orb.Point{20, 8}),
	}
}

func gheField() network.Feature {
	return feature("ghe", network.KindGHEField, rect(20, 0, 30, 10))
}

func cloneConnectors(cs []network.Connector) []network.Connector {
	out := make([]network.Connector, len(cs))
	for i, c := range cs {
		out[i] = c.Clone()
	}
	return out
}

// cross returns the z component of the cross product of two connector directions.
func cross(a, b network.Connector) float64 {
	ax, ay := a.End()[0]-a.Start()[0], a.End()[1]-a.Start()[1]
	bx, by := b.End()[0]-b.Start()[0], b.End()[1]-b.Start()[1]
	return ax*by - ay*bx
}
