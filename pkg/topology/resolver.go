// Package topology turns unordered connectors and area features into a
// validated network graph.
//
// A thermal loop must form exactly one closed cycle through every building and
// ground heat exchanger field it touches; the resolver returns its connectors
// in flow order. Electrical and road networks need only be connected to their
// substation. Resolution never modifies its inputs.
package topology

import (
	"fmt"
	"math"
	"sort"

	"github.com/dd0wney/cluso-district/pkg/logging"
	"github.com/dd0wney/cluso-district/pkg/metrics"
	"github.com/dd0wney/cluso-district/pkg/network"
	"github.com/dd0wney/cluso-district/pkg/units"
)

// Variant labels the kind of network being resolved.
const (
	VariantThermal    = "thermal"
	VariantElectrical = "electrical"
	VariantRoad       = "road"
)

// DefaultTolerance is the coincidence distance used when none is configured.
var DefaultTolerance = units.NewLength(0.01, units.Meters)

// Options configures a Resolver.
type Options struct {
	// Tolerance is converted into each network's units before use.
	Tolerance units.Length
	Index     IndexStrategy
	// IDs names junctions; DeterministicIDs when nil.
	IDs IDGenerator
}

// DefaultOptions returns deterministic ids, a linear index and a 1 cm tolerance.
func DefaultOptions() Options {
	return Options{
		Tolerance: DefaultTolerance,
		Index:     IndexLinear,
		IDs:       DeterministicIDs{},
	}
}

// Resolver resolves network topology. It is safe for concurrent use when its
// IDGenerator is.
type Resolver struct {
	opts    Options
	logger  logging.Logger
	metrics *metrics.Registry
}

// NewResolver validates opts and creates a Resolver. logger may be nil for the
// default logger; reg may be nil to skip metrics.
func NewResolver(opts Options, logger logging.Logger, reg *metrics.Registry) (*Resolver, error) {
	tol := opts.Tolerance.Value
	if math.IsNaN(tol) || math.IsInf(tol, 0) || tol <= 0 {
		return nil, fmt.Errorf("%w: tolerance %s must be a positive finite length", ErrToleranceMismatch, opts.Tolerance)
	}
	if opts.Tolerance.Unit != "" && !opts.Tolerance.Unit.Valid() {
		return nil, fmt.Errorf("%w: unknown tolerance unit %q", ErrToleranceMismatch, opts.Tolerance.Unit)
	}
	switch opts.Index {
	case "":
		opts.Index = IndexLinear
	case IndexLinear, IndexGrid:
	default:
		return nil, fmt.Errorf("unknown index strategy %q", opts.Index)
	}
	if opts.IDs == nil {
		opts.IDs = DeterministicIDs{}
	}
	return &Resolver{
		opts:    opts,
		logger:  logging.OrDefault(logger).With(logging.Component("topology")),
		metrics: reg,
	}, nil
}

// Options returns the resolver's effective options.
func (r *Resolver) Options() Options {
	return r.opts
}

// ResolvedConnector is a connector with its end junctions and touched features.
type ResolvedConnector struct {
	network.Connector
	StartJunctionID string
	EndJunctionID   string
	StartFeatureID  string
	EndFeatureID    string
}

// ThermalResult is a resolved thermal loop.
type ThermalResult struct {
	LoopID    string
	Units     units.Unit
	Tolerance float64
	Loop      *Loop
	// Connectors are in flow order and oriented with the flow.
	Connectors []ResolvedConnector
	Junctions  []Junction
	// Sequence interleaves connector and member feature ids in flow order.
	Sequence []string
	// BuildingsServed holds the sorted ids of buildings touched by a junction.
	BuildingsServed []string
	GHEFields       []network.Feature
}

// ElectricalResult is a resolved electrical or road network.
type ElectricalResult struct {
	NetworkID string
	Variant   string
	Units     units.Unit
	Tolerance float64
	// Connectors keep their input order and orientation.
	Connectors   []ResolvedConnector
	Junctions    []Junction
	Substation   network.Feature
	Transformers []network.Feature
}

func (r *Resolver) tolerance(u units.Unit) float64 {
	return r.opts.Tolerance.In(network.UnitOf(u))
}

func (r *Resolver) dedup() DedupOptions {
	return DedupOptions{Index: r.opts.Index, IDs: r.opts.IDs}
}

// finish records metrics and logs the outcome of one resolution.
func (r *Resolver) finish(timer *logging.TimedOperation, variant string, err error, junctions, connectors int) {
	if r.metrics != nil {
		kind := ""
		if err != nil {
			kind = ErrorKind(err)
		}
		r.metrics.RecordResolution(variant, kind, timer.Elapsed(), junctions, connectors)
	}
	if err != nil {
		fields := []logging.Field{logging.String("kind", ErrorKind(err))}
		if id, ok := FeatureID(err); ok {
			fields = append(fields, logging.FeatureID(id))
		}
		timer.EndError(err, fields...)
		return
	}
	timer.End(logging.Int("junctions", junctions), logging.Int("connectors", connectors))
}

// ResolveThermalLoop assembles loop into a single closed cycle through the
// buildings and GHE fields it touches and orders its connectors along the flow.
// buildings must share the loop's units.
func (r *Resolver) ResolveThermalLoop(loop *network.ThermalLoop, buildings []network.Building) (res *ThermalResult, err error) {
	log := r.logger.With(logging.NetworkID(loop.ID), logging.Variant(VariantThermal))
	timer := logging.StartTimer(log, "thermal loop resolved")
	if r.metrics != nil {
		defer r.metrics.TrackInFlight()()
	}
	defer func() {
		j, c := 0, 0
		if res != nil {
			j, c = len(res.Junctions), len(res.Connectors)
		}
		r.finish(timer, VariantThermal, err, j, c)
	}()

	if verr := loop.Validate(); verr != nil {
		return nil, NewError("validate").Network(loop.ID).Context("%v", verr).Cause(ErrGeometry).Err()
	}
	tol := r.tolerance(loop.Units)
	log.Debug("resolving", logging.Tolerance(tol, string(network.UnitOf(loop.Units))), logging.Count(len(loop.Connectors)))

	var features []network.Feature
	for _, b := range buildings {
		features = append(features, b.Features()...)
	}
	features = append(features, loop.GHEFields...)
	groups := GroupFeatures(features)

	assembled, err := AssembleLoop(loop.Connectors, groups, loop.ClockwiseFlow, tol)
	if err != nil {
		return nil, err
	}
	for _, id := range assembled.Excluded {
		if hasFeature(loop.GHEFields, id) {
			log.Warn("ghe field not on loop", logging.FeatureID(id))
			continue
		}
		log.Debug("feature not on loop", logging.FeatureID(id))
	}
	if r.metrics != nil {
		r.metrics.RecordExcludedFeatures(VariantThermal, excludedSystems(assembled.Excluded, loop.GHEFields))
	}

	ordering, err := OrderConnectors(assembled, loop.Connectors, tol)
	if err != nil {
		return nil, err
	}

	set, err := DeduplicateJunctions(loop.ID, ordering.Connectors, tol, r.dedup())
	if err != nil {
		return nil, err
	}
	junctions := AssignJunctionSystems(set.Junctions, loop.GHEFields, tol)
	junctions = AssignJunctionBuildings(junctions, buildings, tol)

	touched := ConnectorFeatures(ordering.Connectors, groups, tol)
	resolved := make([]ResolvedConnector, len(ordering.Connectors))
	for i, c := range ordering.Connectors {
		resolved[i] = ResolvedConnector{
			Connector:       c,
			StartJunctionID: set.Ends[i].Start,
			EndJunctionID:   set.Ends[i].End,
			StartFeatureID:  touched[i][0],
			EndFeatureID:    touched[i][1],
		}
	}

	return &ThermalResult{
		LoopID:          loop.ID,
		Units:           network.UnitOf(loop.Units),
		Tolerance:       tol,
		Loop:            assembled,
		Connectors:      resolved,
		Junctions:       junctions,
		Sequence:        ordering.Sequence,
		BuildingsServed: buildingsServed(junctions),
		GHEFields:       cloneFeatureList(loop.GHEFields),
	}, nil
}

// ResolveElectricalNetwork checks that every transformer and every
// building-touching junction is reachable from the substation.
func (r *Resolver) ResolveElectricalNetwork(net *network.ElectricalNetwork, buildings []network.Building) (*ElectricalResult, error) {
	return r.resolveRadial(VariantElectrical, net.ID, net.Validate, net.Units, net.Connectors, net.Substation, net.Transformers, buildings)
}

// ResolveRoadNetwork checks that every building-touching road junction is
// reachable from the substation.
func (r *Resolver) ResolveRoadNetwork(net *network.RoadNetwork, buildings []network.Building) (*ElectricalResult, error) {
	return r.resolveRadial(VariantRoad, net.ID, net.Validate, net.Units, net.Roads, net.Substation, nil, buildings)
}

func (r *Resolver) resolveRadial(variant, id string, validate func() error, u units.Unit, connectors []network.Connector,
	substation network.Feature, transformers []network.Feature, buildings []network.Building) (res *ElectricalResult, err error) {

	log := r.logger.With(logging.NetworkID(id), logging.Variant(variant))
	timer := logging.StartTimer(log, variant+" network resolved")
	if r.metrics != nil {
		defer r.metrics.TrackInFlight()()
	}
	defer func() {
		j, c := 0, 0
		if res != nil {
			j, c = len(res.Junctions), len(res.Connectors)
		}
		r.finish(timer, variant, err, j, c)
	}()

	if verr := validate(); verr != nil {
		return nil, NewError("validate").Network(id).Context("%v", verr).Cause(ErrGeometry).Err()
	}
	tol := r.tolerance(u)
	log.Debug("resolving", logging.Tolerance(tol, string(network.UnitOf(u))), logging.Count(len(connectors)))

	set, err := DeduplicateJunctions(id, connectors, tol, r.dedup())
	if err != nil {
		return nil, err
	}
	systems := append([]network.Feature{substation}, transformers...)
	junctions := AssignJunctionSystems(set.Junctions, systems, tol)
	junctions = AssignJunctionBuildings(junctions, buildings, tol)

	checked := &JunctionSet{Junctions: junctions, Ends: set.Ends}
	if err = CheckReachability(checked, substation, transformers, tol); err != nil {
		return nil, err
	}

	groups := GroupFeatures(systems)
	for _, b := range buildings {
		groups = append(groups, GroupFeatures(b.Features())...)
	}
	touched := ConnectorFeatures(connectors, groups, tol)
	resolved := make([]ResolvedConnector, len(connectors))
	for i, c := range connectors {
		resolved[i] = ResolvedConnector{
			Connector:       c.Clone(),
			StartJunctionID: set.Ends[i].Start,
			EndJunctionID:   set.Ends[i].End,
			StartFeatureID:  touched[i][0],
			EndFeatureID:    touched[i][1],
		}
	}

	return &ElectricalResult{
		NetworkID:    id,
		Variant:      variant,
		Units:        network.UnitOf(u),
		Tolerance:    tol,
		Connectors:   resolved,
		Junctions:    junctions,
		Substation:   substation.Clone(),
		Transformers: cloneFeatureList(transformers),
	}, nil
}

func buildingsServed(junctions []Junction) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, j := range junctions {
		if j.BuildingID != "" && !seen[j.BuildingID] {
			seen[j.BuildingID] = true
			ids = append(ids, j.BuildingID)
		}
	}
	sort.Strings(ids)
	return ids
}

// excludedSystems counts excluded ids that name a GHE field rather than a building.
func excludedSystems(excluded []string, fields []network.Feature) int {
	n := 0
	for _, id := range excluded {
		if hasFeature(fields, id) {
			n++
		}
	}
	return n
}

func hasFeature(fields []network.Feature, id string) bool {
	for _, f := range fields {
		if f.ID == id {
			return true
		}
	}
	return false
}

func cloneFeatureList(fs []network.Feature) []network.Feature {
	out := make([]network.Feature, len(fs))
	for i, f := range fs {
		out[i] = f.Clone()
	}
	return out
}
