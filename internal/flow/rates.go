package flow

import (
	"math"
	"sort"

	"github.com/san-kum/pwrsim/internal/plant"
)

// NodeRate is the time derivative of a flow node's conserved inventory.
type NodeRate struct {
	DMass   float64 // kg/s
	DEnergy float64 // W
	DNcg    plant.Composition
}

// RateSet maps flow node id to its rate.
type RateSet map[string]NodeRate

// ComputeRates builds donor-cell transport rates for every connection. Mass
// and energy leave the upstream node at its specific energy. Gas moves only
// when the upstream node has a vapor space.
func ComputeRates(state plant.SimulationState) (RateSet, error) {
	return computeRates(state, nil)
}

// LimitedRates is ComputeRates with every donor's outflow scaled down so it
// loses at most its whole inventory over dt. It also returns the ids of the
// donors that were limited.
func LimitedRates(state plant.SimulationState, dt float64) (RateSet, []string, error) {
	var scale map[string]float64
	var limited []string
	for id, out := range Outflow(state) {
		node, ok := state.FlowNodes[id]
		if !ok || out <= 0 || out*dt <= node.Fluid.Mass {
			continue
		}
		if scale == nil {
			scale = make(map[string]float64)
		}
		scale[id] = math.Max(0, node.Fluid.Mass) / (out * dt)
		limited = append(limited, id)
	}
	sort.Strings(limited)
	rates, err := computeRates(state, scale)
	return rates, limited, err
}

func computeRates(state plant.SimulationState, scale map[string]float64) (RateSet, error) {
	rates := make(RateSet, len(state.FlowNodes))
	for _, c := range state.FlowConnections {
		from, ok := state.FlowNodes[c.From]
		if !ok {
			return nil, &plant.TopologyError{Kind: "flow", ConnectionID: c.ID, NodeID: c.From}
		}
		to, ok := state.FlowNodes[c.To]
		if !ok {
			return nil, &plant.TopologyError{Kind: "flow", ConnectionID: c.ID, NodeID: c.To}
		}
		if c.MassFlowRate == 0 {
			continue
		}

		donor, receiver := from, to
		if c.MassFlowRate < 0 {
			donor, receiver = to, from
		}
		if donor.Fluid.Mass <= 0 {
			continue
		}

		mdot := math.Abs(c.MassFlowRate)
		if f, ok := scale[donor.ID]; ok {
			mdot *= f
		}
		energy := mdot * donor.Fluid.SpecificEnergy()
		var gas plant.Composition
		if donor.Fluid.Phase.HasVapor() {
			gas = donor.Fluid.NCG.Scale(mdot / donor.Fluid.Mass)
		}

		d := rates[donor.ID]
		d.DMass -= mdot
		d.DEnergy -= energy
		d.DNcg = d.DNcg.Add(gas.Scale(-1))
		rates[donor.ID] = d

		r := rates[receiver.ID]
		r.DMass += mdot
		r.DEnergy += energy
		r.DNcg = r.DNcg.Add(gas)
		rates[receiver.ID] = r
	}
	return rates, nil
}

// Outflow returns the total mass leaving each node, kg/s.
func Outflow(state plant.SimulationState) map[string]float64 {
	out := make(map[string]float64, len(state.FlowNodes))
	for _, c := range state.FlowConnections {
		switch {
		case c.MassFlowRate > 0:
			out[c.From] += c.MassFlowRate
		case c.MassFlowRate < 0:
			out[c.To] -= c.MassFlowRate
		}
	}
	return out
}
