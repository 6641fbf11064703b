// Package thermal moves heat between lumped solids and the coolant: it
// deposits core power into the fuel, conducts between thermal nodes and
// convects into flow nodes.
package thermal

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/pwrsim/internal/logging"
	"github.com/san-kum/pwrsim/internal/neutronics"
	"github.com/san-kum/pwrsim/internal/plant"
	"github.com/san-kum/pwrsim/internal/solver"
	"github.com/san-kum/pwrsim/internal/steam"
)

// FluidHeatCapacity approximates the specific heat of water used only for
// the stability bound on convective exchange, J/(kg·K).
const FluidHeatCapacity = 5500.0

// HeatRates are the net heat flows into each node over a step, W.
type HeatRates struct {
	Thermal map[string]float64
	Flow    map[string]float64
}

type Operator struct {
	eos    *steam.Solver
	logger *slog.Logger
}

func NewOperator(eos *steam.Solver, logger *slog.Logger) *Operator {
	if eos == nil {
		eos = steam.Default()
	}
	return &Operator{eos: eos, logger: logging.OrNoop(logger).With("operator", "thermal")}
}

func (o *Operator) Name() string { return "thermal" }

// ComputeHeatRates evaluates conduction, convection and power deposition at
// the current temperatures.
func ComputeHeatRates(state plant.SimulationState) (HeatRates, error) {
	r := HeatRates{Thermal: map[string]float64{}, Flow: map[string]float64{}}

	for _, c := range state.ThermalConnections {
		a, ok := state.ThermalNodes[c.A]
		if !ok {
			return r, &plant.TopologyError{Kind: "thermal", ConnectionID: c.ID, NodeID: c.A}
		}
		b, ok := state.ThermalNodes[c.B]
		if !ok {
			return r, &plant.TopologyError{Kind: "thermal", ConnectionID: c.ID, NodeID: c.B}
		}
		q := c.Conductance * (a.Temperature - b.Temperature)
		r.Thermal[c.A] -= q
		r.Thermal[c.B] += q
	}

	for _, c := range state.ConvectionConnections {
		solid, ok := state.ThermalNodes[c.ThermalNodeID]
		if !ok {
			return r, &plant.TopologyError{Kind: "convection", ConnectionID: c.ID, NodeID: c.ThermalNodeID}
		}
		fluid, ok := state.FlowNodes[c.FlowNodeID]
		if !ok {
			return r, &plant.TopologyError{Kind: "convection", ConnectionID: c.ID, NodeID: c.FlowNodeID}
		}
		if fluid.Fluid.Mass <= 0 {
			continue
		}
		q := c.Conductance * (solid.Temperature - fluid.Fluid.Temperature)
		r.Thermal[c.ThermalNodeID] -= q
		r.Flow[c.FlowNodeID] += q
	}

	for id, share := range fuelShares(state) {
		r.Thermal[id] += share * state.Neutronics.Power
	}
	return r, nil
}

// fuelShares splits core power over fuel nodes by mass.
func fuelShares(state plant.SimulationState) map[string]float64 {
	shares := map[string]float64{}
	total := 0.0
	for _, id := range state.ThermalNodeIDs() {
		n := state.ThermalNodes[id]
		if plant.HasLabel(n.Label, neutronics.FuelLabels...) && !n.Fixed && n.Mass > 0 {
			shares[id] = n.Mass
			total += n.Mass
		}
	}
	if total == 0 {
		if n, ok := state.ThermalNodes[state.Neutronics.FuelNodeID]; ok && !n.Fixed {
			return map[string]float64{n.ID: 1}
		}
		return nil
	}
	for id := range shares {
		shares[id] /= total
	}
	return shares
}

func (o *Operator) Apply(state plant.SimulationState, dt float64) (plant.SimulationState, error) {
	rates, err := ComputeHeatRates(state)
	if err != nil {
		return state, err
	}

	next := state.Clone()
	for id, q := range rates.Thermal {
		n := next.ThermalNodes[id]
		if n.Fixed {
			continue
		}
		c := n.HeatCapacity()
		if c <= 0 {
			return state, fmt.Errorf("thermal: node %q has no heat capacity", id)
		}
		n.Temperature += dt * q / c
		next.ThermalNodes[id] = n
	}
	for id, q := range rates.Flow {
		n := next.FlowNodes[id]
		n.Fluid.InternalEnergy += dt * q
		n.Fluid = o.eos.Close(n.Fluid, n.Volume)
		next.FlowNodes[id] = n
	}
	if !next.IsValid() {
		return state, fmt.Errorf("thermal: %w at t=%.4f", plant.ErrInvalidState, state.Time)
	}
	return next, nil
}

// MaxStableDt is half the smallest C/ΣG over every node that can change
// temperature.
func (o *Operator) MaxStableDt(state plant.SimulationState) float64 {
	g := map[string]float64{}
	gf := map[string]float64{}
	for _, c := range state.ThermalConnections {
		g[c.A] += c.Conductance
		g[c.B] += c.Conductance
	}
	for _, c := range state.ConvectionConnections {
		g[c.ThermalNodeID] += c.Conductance
		gf[c.FlowNodeID] += c.Conductance
	}

	limit := math.Inf(1)
	for id, sum := range g {
		n, ok := state.ThermalNodes[id]
		if !ok || n.Fixed || sum <= 0 {
			continue
		}
		limit = math.Min(limit, n.HeatCapacity()/sum)
	}
	for id, sum := range gf {
		n, ok := state.FlowNodes[id]
		if !ok || sum <= 0 || n.Fluid.Mass <= 0 {
			continue
		}
		limit = math.Min(limit, n.Fluid.Mass*FluidHeatCapacity/sum)
	}
	return 0.5 * limit
}

func (o *Operator) SubcycleCount(state plant.SimulationState, dt float64) int {
	return solver.SubcycleCount(dt, o.MaxStableDt(state))
}
