// Package neutronics implements single-group point kinetics with
// temperature and density feedback, decay heat and reactor protection.
package neutronics

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/pwrsim/internal/logging"
	"github.com/san-kum/pwrsim/internal/plant"
	"github.com/san-kum/pwrsim/internal/solver"
)

// ScramRecorder is notified when the operator trips the reactor.
type ScramRecorder interface {
	RecordScram(reason string)
}

type Operator struct {
	limits   Limits
	logger   *slog.Logger
	recorder ScramRecorder
}

func NewOperator(limits Limits, logger *slog.Logger) *Operator {
	return &Operator{
		limits: limits,
		logger: logging.OrNoop(logger).With("operator", "neutronics"),
	}
}

func (o *Operator) SetScramRecorder(r ScramRecorder) { o.recorder = r }

func (o *Operator) Limits() Limits { return o.limits }

func (o *Operator) Name() string { return "neutronics" }

// Apply advances kinetics and decay heat by dt, then evaluates the trip
// setpoints against the advanced state.
func (o *Operator) Apply(state plant.SimulationState, dt float64) (plant.SimulationState, error) {
	if state.Neutronics.PromptNeutronLifetime <= 0 {
		return state, fmt.Errorf("neutronics: prompt neutron lifetime must be positive, got %g", state.Neutronics.PromptNeutronLifetime)
	}
	breakdown := ComputeReactivity(state)
	n := state.Neutronics
	// reactivity is fixed for the call; refine to its prompt bound
	k := solver.SubcycleCount(dt, promptLimit(n, breakdown.Total))
	for i := 0; i < k; i++ {
		n = StepKinetics(n, breakdown.Total, dt/float64(k))
	}
	n.Breakdown = breakdown
	n = StepDecayHeat(n, state.Time+dt, dt)

	if !n.Scrammed && n.PowerFraction() > o.limits.LowPower {
		n.LowPowerTripArmed = true
	}

	next := state
	next.Neutronics = n

	if n.Scrammed {
		if n.ControlRodPosition > o.limits.ClearRodPosition && n.Reactivity > 0 {
			o.logger.Info("scram cleared", "time", state.Time, "reason", n.ScramReason, "rod_position", n.ControlRodPosition)
			n.Scrammed = false
			n.ScramReason = ""
			next.Neutronics = n
		}
		return next, nil
	}

	if trip, reason := o.limits.CheckScramConditions(next); trip {
		o.logger.Warn("reactor scram", "time", next.Time, "reason", reason, "power_fraction", n.PowerFraction())
		next = TriggerScram(next, reason)
		if o.recorder != nil {
			o.recorder.RecordScram(reason)
		}
	}
	return next, nil
}

// MaxStableDt bounds the explicit kinetics step by the prompt and delayed
// time constants.
func (o *Operator) MaxStableDt(state plant.SimulationState) float64 {
	n := state.Neutronics
	limit := 2 * promptLimit(n, n.Reactivity)
	if n.DecayConstant > 0 {
		limit = math.Min(limit, 1/n.DecayConstant)
	}
	return 0.5 * limit
}

func promptLimit(n plant.NeutronicsState, rho float64) float64 {
	d := math.Abs(rho - n.DelayedFraction)
	if d == 0 || n.PromptNeutronLifetime <= 0 {
		return math.Inf(1)
	}
	return 0.5 * n.PromptNeutronLifetime / d
}

func (o *Operator) SubcycleCount(state plant.SimulationState, dt float64) int {
	return solver.SubcycleCount(dt, o.MaxStableDt(state))
}
