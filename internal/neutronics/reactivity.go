package neutronics

import (
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/pwrsim/internal/plant"
)

// Label markers that select the nodes averaged into feedback.
var (
	FuelLabels    = []string{"fuel"}
	CoolantLabels = []string{"coolant", "core"}
)

// ComputeReactivity evaluates rod worth and the three feedback terms.
func ComputeReactivity(state plant.SimulationState) plant.ReactivityBreakdown {
	n := state.Neutronics
	fuelT := FuelTemperature(state)
	coolT, coolRho := CoolantAverages(state)

	b := plant.ReactivityBreakdown{
		Rods:                  -n.ControlRodWorth * (1 - n.ControlRodPosition),
		Doppler:               n.DopplerCoefficient * (fuelT - n.FuelTemperatureRef),
		CoolantTemperature:    n.CoolantTemperatureCoefficient * (coolT - n.CoolantTemperatureRef),
		CoolantDensity:        n.CoolantDensityCoefficient * (coolRho - n.CoolantDensityRef),
		FuelTemperature:       fuelT,
		CoolantTemperatureAvg: coolT,
		CoolantDensityAvg:     coolRho,
	}
	b.Total = b.Rods + b.Doppler + b.CoolantTemperature + b.CoolantDensity
	return b
}

// FuelTemperature is the mass-weighted mean temperature of fuel-labelled
// thermal nodes, falling back to FuelNodeID and then to the reference.
func FuelTemperature(state plant.SimulationState) float64 {
	var temps, weights []float64
	for _, id := range state.ThermalNodeIDs() {
		node := state.ThermalNodes[id]
		if plant.HasLabel(node.Label, FuelLabels...) {
			temps = append(temps, node.Temperature)
			weights = append(weights, node.Mass)
		}
	}
	if len(temps) > 0 && sum(weights) > 0 {
		return stat.Mean(temps, weights)
	}
	if node, ok := state.ThermalNodes[state.Neutronics.FuelNodeID]; ok {
		return node.Temperature
	}
	return state.Neutronics.FuelTemperatureRef
}

// CoolantAverages returns the mass-weighted mean temperature and density of
// coolant-labelled flow nodes, falling back to CoolantNodeID and then to
// the references.
func CoolantAverages(state plant.SimulationState) (temperature, density float64) {
	var temps, dens, weights []float64
	for _, id := range state.FlowNodeIDs() {
		node := state.FlowNodes[id]
		if plant.HasLabel(node.Label, CoolantLabels...) && node.Fluid.Mass > 0 {
			temps = append(temps, node.Fluid.Temperature)
			dens = append(dens, node.Fluid.Density(node.Volume))
			weights = append(weights, node.Fluid.Mass)
		}
	}
	if len(temps) > 0 {
		return stat.Mean(temps, weights), stat.Mean(dens, weights)
	}
	n := state.Neutronics
	if node, ok := state.FlowNodes[n.CoolantNodeID]; ok {
		return node.Fluid.Temperature, node.Fluid.Density(node.Volume)
	}
	return n.CoolantTemperatureRef, n.CoolantDensityRef
}

func sum(xs []float64) float64 {
	s := 0.0
	for _, x := range xs {
		s += x
	}
	return s
}
