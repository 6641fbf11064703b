package metrics

import (
	"math"

	"github.com/san-kum/pwrsim/internal/plant"
)

// MassDrift is the largest relative change of total water inventory seen
// since the first observation.
type MassDrift struct {
	name     string
	initial  float64
	maxDrift float64
	samples  int
}

func NewMassDrift() *MassDrift {
	return &MassDrift{name: "mass_drift"}
}

func (m *MassDrift) Name() string { return m.name }

func (m *MassDrift) Observe(s plant.SimulationState) {
	mass := s.TotalWaterMass()
	if m.samples == 0 {
		m.initial = mass
	}
	m.samples++
	if m.initial != 0 {
		m.maxDrift = math.Max(m.maxDrift, math.Abs(mass-m.initial)/m.initial)
	}
}

func (m *MassDrift) Value() float64 { return m.maxDrift }

func (m *MassDrift) Reset() {
	m.initial = 0
	m.maxDrift = 0
	m.samples = 0
}

// GasDrift is the largest absolute change in total moles of any gas
// species since the first observation.
type GasDrift struct {
	name     string
	initial  plant.Composition
	maxDrift float64
	samples  int
}

func NewGasDrift() *GasDrift {
	return &GasDrift{name: "ncg_drift"}
}

func (g *GasDrift) Name() string { return g.name }

func (g *GasDrift) Observe(s plant.SimulationState) {
	total := s.TotalNCG()
	if g.samples == 0 {
		g.initial = total
	}
	g.samples++
	for i := range total {
		g.maxDrift = math.Max(g.maxDrift, math.Abs(total[i]-g.initial[i]))
	}
}

func (g *GasDrift) Value() float64 { return g.maxDrift }

func (g *GasDrift) Reset() {
	g.initial = plant.Composition{}
	g.maxDrift = 0
	g.samples = 0
}
