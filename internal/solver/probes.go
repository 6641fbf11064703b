package solver

import (
	"math"

	"github.com/san-kum/pwrsim/internal/plant"
)

// CoreProbes samples the neutronic state.
func CoreProbes() []Probe {
	return []Probe{
		{Name: "power_mw", Value: func(s plant.SimulationState) float64 { return s.Neutronics.Power / 1e6 }},
		{Name: "neutron_population", Value: func(s plant.SimulationState) float64 { return s.Neutronics.NeutronPopulation }},
		{Name: "reactivity_pcm", Value: func(s plant.SimulationState) float64 { return s.Neutronics.Reactivity * 1e5 }},
		{Name: "decay_heat_fraction", Value: func(s plant.SimulationState) float64 { return s.Neutronics.DecayHeatFraction }},
		{Name: "rod_position", Value: func(s plant.SimulationState) float64 { return s.Neutronics.ControlRodPosition }},
		{Name: "scrammed", Value: func(s plant.SimulationState) float64 {
			if s.Neutronics.Scrammed {
				return 1
			}
			return 0
		}},
	}
}

func FlowNodeTemperature(id string) Probe {
	return Probe{Name: id + "_temperature", Value: func(s plant.SimulationState) float64 {
		return flowValue(s, id, func(f plant.Fluid) float64 { return f.Temperature })
	}}
}

func FlowNodePressure(id string) Probe {
	return Probe{Name: id + "_pressure_mpa", Value: func(s plant.SimulationState) float64 {
		return flowValue(s, id, func(f plant.Fluid) float64 { return f.Pressure / 1e6 })
	}}
}

func FlowNodeQuality(id string) Probe {
	return Probe{Name: id + "_quality", Value: func(s plant.SimulationState) float64 {
		return flowValue(s, id, func(f plant.Fluid) float64 { return f.Quality })
	}}
}

func ThermalNodeTemperature(id string) Probe {
	return Probe{Name: id + "_temperature", Value: func(s plant.SimulationState) float64 {
		n, ok := s.ThermalNodes[id]
		if !ok {
			return math.NaN()
		}
		return n.Temperature
	}}
}

// ConnectionFlow samples the mass flow rate of a connection, kg/s.
func ConnectionFlow(id string) Probe {
	return Probe{Name: id + "_flow", Value: func(s plant.SimulationState) float64 {
		for _, c := range s.FlowConnections {
			if c.ID == id {
				return c.MassFlowRate
			}
		}
		return math.NaN()
	}}
}

func TotalWaterMass() Probe {
	return Probe{Name: "total_water_mass", Value: func(s plant.SimulationState) float64 { return s.TotalWaterMass() }}
}

func flowValue(s plant.SimulationState, id string, get func(plant.Fluid) float64) float64 {
	n, ok := s.FlowNodes[id]
	if !ok {
		return math.NaN()
	}
	return get(n.Fluid)
}
