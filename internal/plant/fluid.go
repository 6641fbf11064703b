package plant

import (
	"fmt"
	"math"
	"strings"
)

type Phase string

const (
	PhaseLiquid   Phase = "liquid"
	PhaseTwoPhase Phase = "two-phase"
	PhaseVapor    Phase = "vapor"
)

// HasVapor reports whether the phase carries a vapor space that can entrain gas.
func (p Phase) HasVapor() bool {
	return p == PhaseVapor || p == PhaseTwoPhase
}

// Species enumerates the non-condensible gases tracked per node.
type Species int

const (
	N2 Species = iota
	O2
	H2
	Ar
	He
	CO2

	SpeciesCount
)

var speciesNames = [SpeciesCount]string{"N2", "O2", "H2", "Ar", "He", "CO2"}

func (s Species) String() string {
	if s < 0 || s >= SpeciesCount {
		return fmt.Sprintf("Species(%d)", int(s))
	}
	return speciesNames[s]
}

// ParseSpecies resolves a species by its chemical formula, case-insensitively.
func ParseSpecies(name string) (Species, error) {
	for i, n := range speciesNames {
		if strings.EqualFold(n, name) {
			return Species(i), nil
		}
	}
	return 0, fmt.Errorf("plant: unknown gas species %q", name)
}

// Composition holds moles per species. The zero value means no gas.
type Composition [SpeciesCount]float64

func (c Composition) Total() float64 {
	sum := 0.0
	for _, v := range c {
		sum += v
	}
	return sum
}

func (c Composition) IsZero() bool {
	for _, v := range c {
		if v != 0 {
			return false
		}
	}
	return true
}

func (c Composition) Add(other Composition) Composition {
	for i := range c {
		c[i] += other[i]
	}
	return c
}

func (c Composition) Scale(factor float64) Composition {
	for i := range c {
		c[i] *= factor
	}
	return c
}

// Clamp floors every species at zero and reports whether anything changed.
func (c Composition) Clamp() (Composition, bool) {
	clamped := false
	for i, v := range c {
		if v < 0 || math.IsNaN(v) {
			c[i] = 0
			clamped = true
		}
	}
	return c, clamped
}

// Fluid is the water inventory of a control volume. Mass and InternalEnergy
// are the conserved quantities; the rest is closed by the equation of state.
type Fluid struct {
	Mass           float64 // kg
	InternalEnergy float64 // J, extensive
	Temperature    float64 // K
	Pressure       float64 // Pa
	Phase          Phase
	Quality        float64
	NCG            Composition
}

// SpecificEnergy returns U/m in J/kg, or zero for an empty volume.
func (f Fluid) SpecificEnergy() float64 {
	if f.Mass <= 0 {
		return 0
	}
	return f.InternalEnergy / f.Mass
}

func (f Fluid) Density(volume float64) float64 {
	if volume <= 0 {
		return 0
	}
	return f.Mass / volume
}

func (f Fluid) IsValid() bool {
	for _, v := range []float64{f.Mass, f.InternalEnergy, f.Temperature, f.Pressure, f.Quality} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	for _, v := range f.NCG {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
