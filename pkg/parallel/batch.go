package parallel

import (
	"context"
	"fmt"

	"github.com/dd0wney/cluso-district/pkg/logging"
	"github.com/dd0wney/cluso-district/pkg/network"
	"github.com/dd0wney/cluso-district/pkg/topology"
	"github.com/dd0wney/cluso-district/pkg/units"
)

// Outcome is the resolution of one network of a model. Exactly one of
// Thermal, Radial and Err is set.
type Outcome struct {
	Variant   string
	NetworkID string
	Thermal   *topology.ThermalResult
	Radial    *topology.ElectricalResult
	Err       error
}

// OK reports whether the network resolved.
func (o Outcome) OK() bool {
	return o.Err == nil
}

type job struct {
	variant string
	id      string
	run     func() Outcome
}

// ResolveModel resolves every network of m on a pool of workers and returns one
// outcome per network in model order: thermal loops, electrical networks, then
// road networks. A failing network never stops the others.
//
// When ctx ends before every network has been scheduled, the unscheduled
// outcomes carry ctx's error and so does the returned error.
func ResolveModel(ctx context.Context, r *topology.Resolver, m *network.Model, workers int, logger logging.Logger) ([]Outcome, error) {
	log := logging.OrDefault(logger).With(logging.Component("batch"), logging.NetworkID(m.ID))

	buildings := make(map[units.Unit][]network.Building)
	buildingsIn := func(u units.Unit) []network.Building {
		u = network.UnitOf(u)
		if _, ok := buildings[u]; !ok {
			buildings[u] = m.BuildingsIn(u)
		}
		return buildings[u]
	}

	var jobs []job
	for i := range m.ThermalLoops {
		loop := &m.ThermalLoops[i]
		bs := buildingsIn(loop.Units)
		jobs = append(jobs, job{topology.VariantThermal, loop.ID, func() Outcome {
			res, err := r.ResolveThermalLoop(loop, bs)
			return Outcome{Thermal: res, Err: err}
		}})
	}
	for i := range m.ElectricalNetworks {
		net := &m.ElectricalNetworks[i]
		bs := buildingsIn(net.Units)
		jobs = append(jobs, job{topology.VariantElectrical, net.ID, func() Outcome {
			res, err := r.ResolveElectricalNetwork(net, bs)
			return Outcome{Radial: res, Err: err}
		}})
	}
	for i := range m.RoadNetworks {
		net := &m.RoadNetworks[i]
		bs := buildingsIn(net.Units)
		jobs = append(jobs, job{topology.VariantRoad, net.ID, func() Outcome {
			res, err := r.ResolveRoadNetwork(net, bs)
			return Outcome{Radial: res, Err: err}
		}})
	}

	timer := logging.StartTimer(log, "model resolved", logging.Count(len(jobs)))
	outcomes := make([]Outcome, len(jobs))
	for i, j := range jobs {
		outcomes[i] = Outcome{Variant: j.variant, NetworkID: j.id}
	}

	pool, err := NewWorkerPool(workers, log)
	if err != nil {
		return nil, err
	}

	var scheduleErr error
	for i, j := range jobs {
		task := func() {
			if err := ctx.Err(); err != nil {
				outcomes[i].Err = err
				return
			}
			outcomes[i] = runJob(j)
		}
		err := ctx.Err()
		if err == nil {
			err = pool.SubmitContext(ctx, task)
		}
		if err != nil {
			scheduleErr = err
			for k := i; k < len(jobs); k++ {
				outcomes[k].Err = err
			}
			break
		}
	}
	pool.Close()

	failed := 0
	for _, o := range outcomes {
		if !o.OK() {
			failed++
		}
	}
	timer.End(logging.Int("failed", failed), logging.Int("workers", pool.Workers()))
	return outcomes, scheduleErr
}

// runJob runs j, turning a panic into an invariant error on its outcome.
func runJob(j job) (out Outcome) {
	defer func() {
		if p := recover(); p != nil {
			out = Outcome{Err: fmt.Errorf("%w: panic resolving %s: %v", topology.ErrInvariant, j.id, p)}
		}
		out.Variant, out.NetworkID = j.variant, j.id
	}()
	return j.run()
}
