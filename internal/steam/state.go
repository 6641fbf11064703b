package steam

import (
	"fmt"

	"github.com/san-kum/pwrsim/internal/plant"
)

// Source records which solve path produced a State.
type Source string

const (
	SourceTable      Source = "table"
	SourceSaturation Source = "saturation"
	SourceLiquid     Source = "liquid"
	SourceVapor      Source = "vapor"
	SourceDefault    Source = "default"
)

// State is the intensive thermodynamic state closing a control volume.
type State struct {
	Temperature float64 // K
	Pressure    float64 // Pa
	Phase       plant.Phase
	Quality     float64
	Source      Source
}

// DefaultState is returned for inputs the solver cannot interpret.
func DefaultState() State {
	return State{
		Temperature: 293.15,
		Pressure:    101325,
		Phase:       plant.PhaseLiquid,
		Quality:     0,
		Source:      SourceDefault,
	}
}

func (s State) String() string {
	return fmt.Sprintf("T=%.2fK P=%.4gPa %s x=%.4f (%s)", s.Temperature, s.Pressure, s.Phase, s.Quality, s.Source)
}

// Apply writes the state into f, leaving the conserved inventory untouched.
func (s State) Apply(f plant.Fluid) plant.Fluid {
	f.Temperature = s.Temperature
	f.Pressure = s.Pressure
	f.Phase = s.Phase
	f.Quality = s.Quality
	return f
}

// withQuality normalizes phase from quality: 0 is liquid, 1 is vapor.
func withQuality(T, P, x float64, src Source) State {
	x = clamp01(x)
	phase := plant.PhaseTwoPhase
	switch x {
	case 0:
		phase = plant.PhaseLiquid
	case 1:
		phase = plant.PhaseVapor
	}
	return State{Temperature: T, Pressure: P, Phase: phase, Quality: x, Source: src}
}
