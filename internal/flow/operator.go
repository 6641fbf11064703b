package flow

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/pwrsim/internal/logging"
	"github.com/san-kum/pwrsim/internal/plant"
	"github.com/san-kum/pwrsim/internal/solver"
	"github.com/san-kum/pwrsim/internal/steam"
)

// DefaultCourant is the fraction of a donor's inventory that may leave it
// in one sub-step.
const DefaultCourant = 0.5

// massRoundoff absorbs the rounding left in a donor drained to zero.
const massRoundoff = 1e-9 // kg

// Operator transports mass, energy and non-condensible gas along the flow
// network. Connection flow rates are inputs.
type Operator struct {
	eos     *steam.Solver
	logger  *slog.Logger
	courant float64
}

func NewOperator(eos *steam.Solver, logger *slog.Logger) *Operator {
	if eos == nil {
		eos = steam.Default()
	}
	return &Operator{
		eos:     eos,
		logger:  logging.OrNoop(logger).With("operator", "flow"),
		courant: DefaultCourant,
	}
}

func (o *Operator) Name() string { return "flow" }

// Apply transports over dt. A donor never gives up more than it holds; its
// outflow is scaled down when the connection rates would overdraw it.
func (o *Operator) Apply(state plant.SimulationState, dt float64) (plant.SimulationState, error) {
	rates, limited, err := LimitedRates(state, dt)
	if err != nil {
		return state, err
	}
	if len(limited) > 0 {
		o.logger.Warn("donor outflow limited to inventory", "nodes", limited, "dt", dt, "time", state.Time)
	}
	return o.ApplyRates(state, rates, dt)
}

// ApplyRates integrates rates over dt with forward Euler, clamps negative
// inventories and re-closes every touched node through the EOS.
func (o *Operator) ApplyRates(state plant.SimulationState, rates RateSet, dt float64) (plant.SimulationState, error) {
	next := state.Clone()
	for id, r := range rates {
		node, ok := next.FlowNodes[id]
		if !ok {
			return state, &plant.TopologyError{Kind: "flow", NodeID: id}
		}
		f := node.Fluid
		f.Mass += r.DMass * dt
		f.InternalEnergy += r.DEnergy * dt
		f.NCG = f.NCG.Add(r.DNcg.Scale(dt))

		if f.Mass < 0 && f.Mass > -massRoundoff {
			f.Mass, f.InternalEnergy = 0, 0
		}
		if f.Mass < 0 {
			o.logger.Warn("clamped negative mass", "node", id, "mass", f.Mass, "time", state.Time)
			f.Mass = 0
			f.InternalEnergy = 0
		}
		var clamped bool
		if f.NCG, clamped = f.NCG.Clamp(); clamped {
			o.logger.Warn("clamped negative gas inventory", "node", id, "time", state.Time)
		}

		if f.Mass > 0 {
			f = o.eos.Close(f, node.Volume)
		}
		node.Fluid = f
		next.FlowNodes[id] = node
	}
	if !next.IsValid() {
		return state, fmt.Errorf("flow: %w at t=%.4f", plant.ErrInvalidState, state.Time)
	}
	return next, nil
}

// MaxStableDt limits the sub-step so no donor loses more than the Courant
// fraction of its inventory.
func (o *Operator) MaxStableDt(state plant.SimulationState) float64 {
	limit := math.Inf(1)
	for id, out := range Outflow(state) {
		node, ok := state.FlowNodes[id]
		if !ok || out <= 0 || node.Fluid.Mass <= 0 {
			continue
		}
		limit = math.Min(limit, node.Fluid.Mass/out)
	}
	return o.courant * limit
}

func (o *Operator) SubcycleCount(state plant.SimulationState, dt float64) int {
	return solver.SubcycleCount(dt, o.MaxStableDt(state))
}
