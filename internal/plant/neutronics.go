package plant

import "math"

// ReactivityBreakdown is the per-term reactivity snapshot of the last
// neutronics step, with the averages it was computed from.
type ReactivityBreakdown struct {
	Rods                  float64
	Doppler               float64
	CoolantTemperature    float64
	CoolantDensity        float64
	Total                 float64
	FuelTemperature       float64
	CoolantTemperatureAvg float64
	CoolantDensityAvg     float64
}

// NeutronicsState is the single-group point-kinetics core model.
type NeutronicsState struct {
	CoreNodeID    string
	FuelNodeID    string
	CoolantNodeID string

	Power             float64 // supplied thermal power, W
	NominalPower      float64 // W
	NeutronPopulation float64 // normalized, 1.0 at nominal
	Reactivity        float64

	PromptNeutronLifetime float64 // Λ, s
	DelayedFraction       float64 // β
	Precursors            float64 // C, normalized
	DecayConstant         float64 // λ, 1/s

	DopplerCoefficient            float64 // 1/K
	CoolantTemperatureCoefficient float64 // 1/K
	CoolantDensityCoefficient     float64 // per kg/m³
	FuelTemperatureRef            float64
	CoolantTemperatureRef         float64
	CoolantDensityRef             float64

	ControlRodPosition float64 // 0 inserted, 1 withdrawn
	ControlRodWorth    float64

	DecayHeatFraction  float64
	DecayHeatBasePower float64

	Scrammed          bool
	ScramTime         float64
	ScramReason       string
	LowPowerTripArmed bool

	Breakdown ReactivityBreakdown
}

// FissionPower is the prompt fission power implied by the population.
func (n NeutronicsState) FissionPower() float64 {
	return n.NeutronPopulation * n.NominalPower
}

// PowerFraction is supplied power relative to nominal.
func (n NeutronicsState) PowerFraction() float64 {
	if n.NominalPower <= 0 {
		return 0
	}
	return n.Power / n.NominalPower
}

func (n NeutronicsState) IsValid() bool {
	for _, v := range []float64{n.Power, n.NeutronPopulation, n.Reactivity, n.Precursors, n.DecayHeatFraction, n.DecayHeatBasePower, n.ControlRodPosition} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
