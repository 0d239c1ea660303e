package topology

import (
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-district/pkg/network"
)

func TestAssembleLoop_Square(t *testing.T) {
	loop, err := AssembleLoop(squareConnectors(), nil, false, testTol)
	require.NoError(t, err)

	want := orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}
	assert.Equal(t, want, loop.Ring)
	assert.Equal(t, orb.CCW, loop.Ring.Orientation())
	assert.Empty(t, loop.Members)
}

func TestAssembleLoop_WindsWithFlow(t *testing.T) {
	for _, clockwise := range []bool{true, false} {
		loop, err := AssembleLoop(squareConnectors(), nil, clockwise, testTol)
		require.NoError(t, err)

		assert.Equal(t, clockwise, loop.Ring.Orientation() == orb.CW)
		assert.True(t, loop.Ring.Closed())
	}
}

func TestAssembleLoop_ShuffledAndReversedInputs(t *testing.T) {
	cs := squareConnectors()
	shuffled := []network.Connector{cs[2], cs[0].Reversed(), cs[3], cs[1]}

	loop, err := AssembleLoop(shuffled, nil, false, testTol)
	require.NoError(t, err)
	assert.Len(t, loop.Ring, 5)
	assert.Equal(t, orb.CCW, loop.Ring.Orientation())
}

func TestAssembleLoop_Errors(t *testing.T) {
	square := squareConnectors()
	far := []network.Connector{
		conn("d1", orb.Point{100, 0}, orb.Point{110, 0}),
		conn("d2", orb.Point{110, 0}, orb.Point{110, 10}),
		conn("d3", orb.Point{110, 10}, orb.Point{100, 0}),
	}

	tests := []struct {
		name       string
		connectors []network.Connector
		want       error
		count      int
	}{
		{"open loop", square[:3], ErrOpenLoop, 0},
		{"multiple loops", append(cloneConnectors(square), far...), ErrMultipleLoops, 2},
		{"zero area", []network.Connector{
			conn("a", orb.Point{0, 0}, orb.Point{10, 0}),
			conn("b", orb.Point{10, 0}, orb.Point{20, 0}),
			conn("c", orb.Point{20, 0}, orb.Point{0, 0}),
		}, ErrGeometry, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AssembleLoop(tt.connectors, nil, false, testTol)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var te *TopologyError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, tt.count, te.Count)
		})
	}
}

func TestAssembleLoop_GHEMember(t *testing.T) {
	groups := GroupFeatures([]network.Feature{gheField()})
	loop, err := AssembleLoop(gheLoopConnectors(), groups, true, testTol)
	require.NoError(t, err)

	require.Len(t, loop.Members, 1)
	m := loop.Members[0]
	assert.Equal(t, "ghe", m.FeatureID)
	assert.Equal(t, network.KindGHEField, m.Kind)
	assert.Equal(t, orb.LineString{{20, 2}, {20, 8}}, m.Segment)

	assert.Equal(t, orb.Ring{{20, 2}, {0, 2}, {0, 8}, {20, 8}, {20, 2}}, loop.Ring)
}

func TestAssembleLoop_UntouchedFeatures(t *testing.T) {
	far := feature("far", network.KindGHEField, rect(100, 100, 110, 110))

	t.Run("optional is excluded", func(t *testing.T) {
		loop, err := AssembleLoop(squareConnectors(), GroupFeatures([]network.Feature{far}), false, testTol)
		require.NoError(t, err)
		assert.Equal(t, []string{"far"}, loop.Excluded)
	})

	t.Run("required fails", func(t *testing.T) {
		req := far
		req.Required = true
		_, err := AssembleLoop(squareConnectors(), GroupFeatures([]network.Feature{req}), false, testTol)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrFeatureNotIntegrated))

		id, ok := FeatureID(err)
		require.True(t, ok)
		assert.Equal(t, "far", id)
	})
}

func TestAssembleLoop_FeatureNotIntegrated(t *testing.T) {
	// the building only meets the start of c1 at (20,2)
	b := feature("b", network.KindBuilding, rect(15, 1, 20, 2))
	groups := GroupFeatures([]network.Feature{gheField(), b})

	_, err := AssembleLoop(gheLoopConnectors(), groups, false, testTol)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFeatureNotIntegrated))
	assert.True(t, errors.Is(err, ErrTopology))
	assert.Contains(t, err.Error(), "Building has 1 connections")
}

// splitSquare is squareConnectors with c1 split at (5,0).
func splitSquare() []network.Connector {
	cs := squareConnectors()
	return append([]network.Connector{
		conn("c1a", orb.Point{0, 0}, orb.Point{5, 0}),
		conn("c1b", orb.Point{5, 0}, orb.Point{10, 0}),
	}, cs[1:]...)
}

func TestAssembleLoop_FeatureAtJunction(t *testing.T) {
	// the building touches the loop only where c1a and c1b meet
	b := feature("b", network.KindBuilding, orb.Polygon{{{5, 0}, {7, -3}, {3, -3}, {5, 0}}})

	loop, err := AssembleLoop(splitSquare(), GroupFeatures([]network.Feature{b}), false, testTol)
	require.NoError(t, err)
	require.Len(t, loop.Members, 1)
	assert.Equal(t, "b", loop.Members[0].FeatureID)
	assert.Equal(t, orb.LineString{{5, 0}, {5, 0}}, loop.Members[0].Segment)
	assert.Equal(t, orb.Ring{{0, 0}, {5, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}, loop.Ring)
}

func TestAssembleLoop_Branched(t *testing.T) {
	// two squares sharing the corner (10,10)
	c := squareConnectors()
	d := []network.Connector{
		conn("d1", orb.Point{10, 10}, orb.Point{20, 10}),
		conn("d2", orb.Point{20, 10}, orb.Point{20, 20}),
		conn("d3", orb.Point{20, 20}, orb.Point{10, 20}),
		conn("d4", orb.Point{10, 20}, orb.Point{10, 10}),
	}
	orders := map[string][]network.Connector{
		"squares in turn":     {c[0], c[1], c[2], c[3], d[0], d[1], d[2], d[3]},
		"second inside first": {c[0], c[1], d[0], d[1], d[2], d[3], c[2], c[3]},
	}

	for name, cs := range orders {
		t.Run(name, func(t *testing.T) {
			_, err := AssembleLoop(cs, nil, false, testTol)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrBranchedLoop), "got %v", err)
			assert.Equal(t, "branched_loop", ErrorKind(err))

			var te *TopologyError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, 4, te.Count)
		})
	}

	t.Run("polylines crossing at a vertex", func(t *testing.T) {
		cs := []network.Connector{
			conn("a", orb.Point{0, 0}, orb.Point{10, 0}, orb.Point{10, 10}, orb.Point{20, 10}, orb.Point{20, 20}),
			conn("b", orb.Point{20, 20}, orb.Point{10, 20}, orb.Point{10, 10}, orb.Point{0, 10}, orb.Point{0, 0}),
		}
		_, err := AssembleLoop(cs, nil, false, testTol)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrBranchedLoop), "got %v", err)
		assert.Contains(t, err.Error(), "[10 10] twice")
	})
}

func TestAssembleLoop_AmbiguousConnections(t *testing.T) {
	cs := append(gheLoopConnectors(), conn("spur", orb.Point{25, 10}, orb.Point{25, 20}))

	_, err := AssembleLoop(cs, GroupFeatures([]network.Feature{gheField()}), true, testTol)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAmbiguousConnections))

	var te *TopologyError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, 3, te.Count)
	assert.Equal(t, "ghe", te.ID)
}

func TestAssembleLoop_DoesNotModifyInput(t *testing.T) {
	cs := squareConnectors()
	before := cloneConnectors(cs)

	_, err := AssembleLoop(cs, nil, true, testTol)
	require.NoError(t, err)
	assert.Equal(t, before, cs)
}
