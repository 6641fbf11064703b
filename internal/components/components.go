// Package components drives connection flow rates from pumps and valves
// and implements the administrative actions on them.
package components

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/pwrsim/internal/logging"
	"github.com/san-kum/pwrsim/internal/plant"
)

// Operator updates pump speeds and sets the mass flow rate of every
// connection served by a pump or valve.
type Operator struct {
	logger *slog.Logger
}

func NewOperator(logger *slog.Logger) *Operator {
	return &Operator{logger: logging.OrNoop(logger).With("operator", "components")}
}

func (o *Operator) Name() string { return "components" }

func (o *Operator) Apply(state plant.SimulationState, dt float64) (plant.SimulationState, error) {
	next := state.Clone()
	for id, p := range next.Components.Pumps {
		next.Components.Pumps[id] = StepPump(p, dt)
	}
	flows, err := ConnectionFlows(next)
	if err != nil {
		return state, err
	}
	for i, c := range next.FlowConnections {
		if f, ok := flows[c.ID]; ok {
			next.FlowConnections[i].MassFlowRate = f
		}
	}
	return next, nil
}

// MaxStableDt is unbounded: coastdown is integrated exactly and spin-up
// is linear.
func (o *Operator) MaxStableDt(plant.SimulationState) float64 { return math.Inf(1) }

func (o *Operator) SubcycleCount(plant.SimulationState, float64) int { return 1 }

// StepPump advances pump speed by dt.
func StepPump(p plant.Pump, dt float64) plant.Pump {
	switch {
	case p.Running && p.SpinUpTime > 0:
		p.Speed = math.Min(1, p.Speed+dt/p.SpinUpTime)
	case p.Running:
		p.Speed = 1
	case p.CoastdownTime > 0:
		p.Speed *= math.Exp(-dt / p.CoastdownTime)
	default:
		p.Speed = 0
	}
	return p
}

// ConnectionFlows computes the driven flow of each pumped or valved
// connection. Check valves block reverse flow on any connection.
func ConnectionFlows(state plant.SimulationState) (map[string]float64, error) {
	flows := map[string]float64{}
	for _, id := range sortedKeys(state.Components.Pumps) {
		p := state.Components.Pumps[id]
		for _, cid := range p.Connections {
			if _, ok := connection(state, cid); !ok {
				return nil, fmt.Errorf("%w: pump %q references connection %q", plant.ErrUnknownComponent, id, cid)
			}
			flows[cid] += p.RatedFlow * p.Speed
		}
	}
	for _, id := range sortedKeys(state.Components.Valves) {
		v := state.Components.Valves[id]
		c, ok := connection(state, v.ConnectionID)
		if !ok {
			return nil, fmt.Errorf("%w: valve %q references connection %q", plant.ErrUnknownComponent, id, v.ConnectionID)
		}
		opening := clamp01(v.Opening)
		if f, pumped := flows[c.ID]; pumped {
			flows[c.ID] = f * opening
		} else {
			flows[c.ID] = v.RatedFlow * opening
		}
	}
	for _, cv := range state.Components.CheckValves {
		c, ok := connection(state, cv.ConnectionID)
		if !ok {
			return nil, fmt.Errorf("%w: check valve %q references connection %q", plant.ErrUnknownComponent, cv.ID, cv.ConnectionID)
		}
		f, driven := flows[c.ID]
		if !driven {
			f = c.MassFlowRate
		}
		flows[c.ID] = math.Max(0, f)
	}
	return flows, nil
}

func connection(state plant.SimulationState, id string) (plant.FlowConnection, bool) {
	for _, c := range state.FlowConnections {
		if c.ID == id {
			return c, true
		}
	}
	return plant.FlowConnection{}, false
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}
