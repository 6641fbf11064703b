package components

import (
	"fmt"
	"sort"

	"github.com/san-kum/pwrsim/internal/plant"
)

// TripPump stops a pump; it coasts down from its current speed.
func TripPump(state plant.SimulationState, id string) (plant.SimulationState, error) {
	return updatePump(state, id, func(p *plant.Pump) { p.Running = false })
}

// StartPump starts a pump; it spins up from its current speed.
func StartPump(state plant.SimulationState, id string) (plant.SimulationState, error) {
	return updatePump(state, id, func(p *plant.Pump) { p.Running = true })
}

// SetValve sets a valve opening, clamped to [0,1].
func SetValve(state plant.SimulationState, id string, opening float64) (plant.SimulationState, error) {
	v, ok := state.Components.Valves[id]
	if !ok {
		return state, fmt.Errorf("%w: valve %q", plant.ErrUnknownComponent, id)
	}
	next := state.Clone()
	v.Opening = clamp01(opening)
	next.Components.Valves[id] = v
	return next, nil
}

// SetRodPosition moves the control rods, clamped to [0,1] (1 is fully
// withdrawn).
func SetRodPosition(state plant.SimulationState, position float64) plant.SimulationState {
	state.Neutronics.ControlRodPosition = clamp01(position)
	return state
}

func updatePump(state plant.SimulationState, id string, f func(*plant.Pump)) (plant.SimulationState, error) {
	p, ok := state.Components.Pumps[id]
	if !ok {
		return state, fmt.Errorf("%w: pump %q", plant.ErrUnknownComponent, id)
	}
	next := state.Clone()
	f(&p)
	next.Components.Pumps[id] = p
	return next, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
