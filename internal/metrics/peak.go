package metrics

import (
	"math"

	"github.com/san-kum/pwrsim/internal/plant"
)

// Peak tracks the maximum of a scalar extracted from the state.
type Peak struct {
	name    string
	extract func(plant.SimulationState) float64
	peak    float64
	samples int
}

func NewPeak(name string, extract func(plant.SimulationState) float64) *Peak {
	return &Peak{name: name, extract: extract}
}

// NewPeakPower tracks supplied core power as a fraction of nominal.
func NewPeakPower() *Peak {
	return NewPeak("peak_power_fraction", func(s plant.SimulationState) float64 {
		return s.Neutronics.PowerFraction()
	})
}

// NewPeakFuelTemperature tracks the hottest fuel-labelled or reference
// fuel node, K.
func NewPeakFuelTemperature() *Peak {
	return NewPeak("peak_fuel_temperature", func(s plant.SimulationState) float64 {
		hottest := math.Inf(-1)
		for id, n := range s.ThermalNodes {
			if id == s.Neutronics.FuelNodeID || plant.HasLabel(n.Label, "fuel") {
				hottest = math.Max(hottest, n.Temperature)
			}
		}
		return hottest
	})
}

func (p *Peak) Name() string { return p.name }

func (p *Peak) Observe(s plant.SimulationState) {
	v := p.extract(s)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return
	}
	if p.samples == 0 || v > p.peak {
		p.peak = v
	}
	p.samples++
}

func (p *Peak) Value() float64 {
	if p.samples == 0 {
		return 0
	}
	return p.peak
}

func (p *Peak) Reset() {
	p.peak = 0
	p.samples = 0
}
