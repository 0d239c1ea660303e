package topology

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dd0wney/cluso-district/pkg/logging"
	"github.com/dd0wney/cluso-district/pkg/metrics"
	"github.com/dd0wney/cluso-district/pkg/network"
	"github.com/dd0wney/cluso-district/pkg/units"
)

func newTestResolver(t *testing.T, reg *metrics.Registry) *Resolver {
	t.Helper()
	r, err := NewResolver(DefaultOptions(), logging.NewNopLogger(), reg)
	require.NoError(t, err)
	return r
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.Counter.GetValue()
}

// campusLoop runs from the GHE field through building "lab" and back.
func campusLoop() (*network.ThermalLoop, []network.Building) {
	loop := &network.ThermalLoop{
		ID: "loop-1",
		Connectors: []network.Connector{
			conn("c1", orb.Point{20, 2}, orb.Point{0, 2}),
			conn("c2a", orb.Point{0, 2}, orb.Point{0, 4}),
			conn("c2b", orb.Point{0, 6}, orb.Point{0, 8}),
			conn("c3", orb.Point{0, 8}, orb.Point{20, 8}),
		},
		GHEFields: []network.Feature{
			gheField(),
			feature("spare", network.KindGHEField, rect(100, 100, 110, 110)),
		},
		ClockwiseFlow: true,
	}
	buildings := []network.Building{
		{ID: "lab", Footprints: []orb.Polygon{rect(-2, 4, 2, 6)}},
	}
	return loop, buildings
}

func TestNewResolver_Options(t *testing.T) {
	tests := []struct {
		name    string
		opts    Options
		wantErr error
	}{
		{"defaults", DefaultOptions(), nil},
		{"grid index", Options{Tolerance: units.NewLength(1, units.Centimeters), Index: IndexGrid}, nil},
		{"zero tolerance", Options{Tolerance: units.NewLength(0, units.Meters)}, ErrToleranceMismatch},
		{"negative tolerance", Options{Tolerance: units.NewLength(-1, units.Meters)}, ErrToleranceMismatch},
		{"unknown unit", Options{Tolerance: units.NewLength(1, "parsecs")}, ErrToleranceMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewResolver(tt.opts, logging.NewNopLogger(), nil)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, r.Options().IDs)
			assert.NotEmpty(t, r.Options().Index)
		})
	}

	_, err := NewResolver(Options{Tolerance: DefaultTolerance, Index: "kd-tree"}, nil, nil)
	assert.Error(t, err)
}

func TestResolveThermalLoop(t *testing.T) {
	reg := metrics.NewRegistry()
	r := newTestResolver(t, reg)
	loop, buildings := campusLoop()

	res, err := r.ResolveThermalLoop(loop, buildings)
	require.NoError(t, err)

	assert.Equal(t, "loop-1", res.LoopID)
	assert.Equal(t, units.Meters, res.Units)
	assert.InDelta(t, 0.01, res.Tolerance, 1e-12)
	assert.Equal(t, []string{"c1", "c2a", "lab", "c2b", "c3", "ghe"}, res.Sequence)
	assert.Equal(t, []string{"lab"}, res.BuildingsServed)
	assert.Equal(t, []string{"spare"}, res.Loop.Excluded)
	assert.True(t, res.Loop.ClockwiseFlow)
	require.Len(t, res.GHEFields, 2)

	require.Len(t, res.Junctions, 6)
	systems, served := 0, 0
	for _, j := range res.Junctions {
		if j.SystemID == "ghe" {
			systems++
		}
		if j.BuildingID == "lab" {
			served++
		}
	}
	assert.Equal(t, 2, systems)
	assert.Equal(t, 2, served)

	require.Len(t, res.Connectors, 4)
	assert.Equal(t, "ghe", res.Connectors[0].StartFeatureID)
	assert.Equal(t, "lab", res.Connectors[1].EndFeatureID)
	assert.Equal(t, "lab", res.Connectors[2].StartFeatureID)
	assert.Equal(t, "ghe", res.Connectors[3].EndFeatureID)
	for i, c := range res.Connectors {
		next := res.Connectors[(i+1)%len(res.Connectors)]
		if c.EndFeatureID == "" {
			assert.Equal(t, c.EndJunctionID, next.StartJunctionID, "connector %s", c.ID)
		}
	}

	assert.Equal(t, 1.0, counterValue(t, reg.ResolutionsTotal.WithLabelValues(VariantThermal, "success")))
	assert.Equal(t, 1.0, counterValue(t, reg.FeaturesExcludedTotal.WithLabelValues(VariantThermal)))
}

func TestResolveThermalLoop_DoesNotModifyInputs(t *testing.T) {
	r := newTestResolver(t, nil)
	loop, buildings := campusLoop()
	before := cloneConnectors(loop.Connectors)

	res, err := r.ResolveThermalLoop(loop, buildings)
	require.NoError(t, err)
	assert.Equal(t, before, loop.Connectors)

	res.GHEFields[0].Geometry[0][0] = orb.Point{-1, -1}
	assert.Equal(t, orb.Point{20, 0}, loop.GHEFields[0].Geometry[0][0])
}

func TestResolveThermalLoop_Millimeters(t *testing.T) {
	r := newTestResolver(t, nil)

	build := func(gap float64) *network.ThermalLoop {
		return &network.ThermalLoop{
			ID:    "mm",
			Units: units.Millimeters,
			Connectors: []network.Connector{
				conn("c1", orb.Point{0, 0}, orb.Point{10000, 0}),
				conn("c2", orb.Point{10000 + gap, 0}, orb.Point{10000, 10000}),
				conn("c3", orb.Point{10000, 10000}, orb.Point{0, 10000}),
				conn("c4", orb.Point{0, 10000}, orb.Point{0, 0}),
			},
		}
	}

	res, err := r.ResolveThermalLoop(build(5), nil)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, res.Tolerance, 1e-9)
	assert.Len(t, res.Junctions, 4)

	_, err = r.ResolveThermalLoop(build(50), nil)
	assert.True(t, errors.Is(err, ErrOpenLoop), "got %v", err)
}

func TestResolveThermalLoop_Errors(t *testing.T) {
	reg := metrics.NewRegistry()
	r := newTestResolver(t, reg)

	t.Run("open loop", func(t *testing.T) {
		loop := &network.ThermalLoop{ID: "open", Connectors: squareConnectors()[:3]}
		_, err := r.ResolveThermalLoop(loop, nil)
		assert.True(t, errors.Is(err, ErrOpenLoop))
	})

	t.Run("invalid input", func(t *testing.T) {
		loop := &network.ThermalLoop{ID: "empty"}
		_, err := r.ResolveThermalLoop(loop, nil)
		assert.True(t, errors.Is(err, ErrGeometry))
	})

	t.Run("building touched once", func(t *testing.T) {
		loop := &network.ThermalLoop{ID: "corner", Connectors: gheLoopConnectors(), GHEFields: []network.Feature{gheField()}}
		b := network.Building{ID: "shed", Footprints: []orb.Polygon{rect(15, 1, 20, 2)}}
		_, err := r.ResolveThermalLoop(loop, []network.Building{b})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrFeatureNotIntegrated))
		id, _ := FeatureID(err)
		assert.Equal(t, "shed", id)
	})

	assert.Equal(t, 1.0, counterValue(t, reg.TopologyErrorsTotal.WithLabelValues(VariantThermal, "open_loop")))
	assert.Equal(t, 1.0, counterValue(t, reg.TopologyErrorsTotal.WithLabelValues(VariantThermal, "geometry")))
	assert.Equal(t, 1.0, counterValue(t, reg.TopologyErrorsTotal.WithLabelValues(VariantThermal, "feature_not_integrated")))
	assert.Equal(t, 3.0, counterValue(t, reg.ResolutionsTotal.WithLabelValues(VariantThermal, "error")))
}

func TestResolveThermalLoop_BuildingAtJunction(t *testing.T) {
	// c1 and c2 both end on the shed, which the loop passes at (10,0)
	loop := &network.ThermalLoop{ID: "corner", Connectors: squareConnectors()}
	b := network.Building{ID: "shed", Footprints: []orb.Polygon{rect(10, -5, 15, 0)}}

	res, err := newTestResolver(t, nil).ResolveThermalLoop(loop, []network.Building{b})
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "shed", "c2", "c3", "c4"}, res.Sequence)
	assert.Equal(t, []string{"shed"}, res.BuildingsServed)
	assert.Len(t, res.Junctions, 4)
}

func TestResolveThermalLoop_Logs(t *testing.T) {
	var buf bytes.Buffer
	r, err := NewResolver(DefaultOptions(), logging.NewJSONLogger(&buf, logging.InfoLevel), nil)
	require.NoError(t, err)

	loop, buildings := campusLoop()
	_, err = r.ResolveThermalLoop(loop, buildings)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var warn map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &warn))
	assert.Equal(t, "WARN", warn["level"])
	assert.Equal(t, "ghe field not on loop", warn["msg"])
	assert.Equal(t, "spare", warn["fields"].(map[string]any)["feature_id"])

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &entry))
	assert.Equal(t, "thermal loop resolved", entry["msg"])
	fields, ok := entry["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "loop-1", fields["network_id"])
	assert.Equal(t, "topology", fields["component"])
	assert.EqualValues(t, 6, fields["junctions"])
}

func electricalNetwork() (*network.ElectricalNetwork, []network.Building) {
	f := newGridFixture()
	return &network.ElectricalNetwork{
		ID:           "grid",
		Substation:   f.substation,
		Transformers: f.transformers,
		Connectors:   f.connectors,
	}, f.buildings
}

func TestResolveElectricalNetwork(t *testing.T) {
	reg := metrics.NewRegistry()
	r := newTestResolver(t, reg)
	net, buildings := electricalNetwork()

	res, err := r.ResolveElectricalNetwork(net, buildings)
	require.NoError(t, err)

	assert.Equal(t, VariantElectrical, res.Variant)
	assert.Equal(t, "grid", res.NetworkID)
	assert.Len(t, res.Junctions, 6)
	require.Len(t, res.Connectors, 3)
	assert.Equal(t, "w1", res.Connectors[0].ID)
	assert.Equal(t, "sub", res.Connectors[0].StartFeatureID)
	assert.Equal(t, "T1", res.Connectors[0].EndFeatureID)
	assert.Equal(t, "T1", res.Connectors[2].StartFeatureID)
	assert.Equal(t, "b1", res.Connectors[2].EndFeatureID)
	assert.Equal(t, "sub", res.Substation.ID)
	assert.Len(t, res.Transformers, 2)

	var served []string
	for _, j := range res.Junctions {
		if j.BuildingID != "" {
			served = append(served, j.BuildingID)
		}
	}
	assert.Equal(t, []string{"b1"}, served)
	assert.Equal(t, 1.0, counterValue(t, reg.ResolutionsTotal.WithLabelValues(VariantElectrical, "success")))
}

func TestResolveElectricalNetwork_Disconnected(t *testing.T) {
	reg := metrics.NewRegistry()
	r := newTestResolver(t, reg)
	net, buildings := electricalNetwork()
	net.Transformers = append(net.Transformers, feature("T3", network.KindTransformer, rect(50, 0, 52, 2)))
	net.Connectors = append(net.Connectors, conn("w3", orb.Point{40, 0}, orb.Point{50, 0}))

	_, err := r.ResolveElectricalNetwork(net, buildings)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDisconnected))
	assert.Contains(t, err.Error(), "T3")
	assert.Equal(t, 1.0, counterValue(t, reg.TopologyErrorsTotal.WithLabelValues(VariantElectrical, "disconnected")))
}

func TestResolveElectricalNetwork_WrongFeatureKind(t *testing.T) {
	r := newTestResolver(t, nil)
	net, buildings := electricalNetwork()
	net.Transformers[0].Kind = network.KindGHEField

	_, err := r.ResolveElectricalNetwork(net, buildings)
	assert.True(t, errors.Is(err, ErrGeometry))
}

func TestResolveRoadNetwork(t *testing.T) {
	r := newTestResolver(t, nil)
	f := newGridFixture()
	roads := &network.RoadNetwork{
		ID:         "roads",
		Substation: f.substation,
		Roads: []network.Connector{
			conn("r1", orb.Point{-1, -1}, orb.Point{2, 5}),
			conn("r2", orb.Point{2, 5}, orb.Point{2, 10}),
		},
	}

	res, err := r.ResolveRoadNetwork(roads, f.buildings)
	require.NoError(t, err)
	assert.Equal(t, VariantRoad, res.Variant)
	assert.Len(t, res.Junctions, 3)
	assert.Empty(t, res.Transformers)

	roads.Roads[1] = conn("r2", orb.Point{3, 5}, orb.Point{2, 10})
	_, err = r.ResolveRoadNetwork(roads, f.buildings)
	require.Error(t, err)
	id, _ := FeatureID(err)
	assert.Equal(t, "b1", id)
}
