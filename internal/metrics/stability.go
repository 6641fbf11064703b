package metrics

import "github.com/san-kum/pwrsim/internal/plant"

// Margin is the fraction of observations with power at or below the
// threshold fraction of nominal.
type Margin struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewMargin(threshold float64) *Margin {
	return &Margin{
		name:      "power_margin",
		threshold: threshold,
	}
}

func (m *Margin) Name() string {
	return m.name
}

func (m *Margin) Observe(s plant.SimulationState) {
	m.samples++
	if s.Neutronics.PowerFraction() > m.threshold {
		m.violations++
	}
}

func (m *Margin) Value() float64 {
	if m.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(m.violations)/float64(m.samples)
}

func (m *Margin) Reset() {
	m.violations = 0
	m.samples = 0
}
