package neutronics

import (
	"math"

	"github.com/san-kum/pwrsim/internal/plant"
)

const (
	populationFloor = 1e-12
	// maxPopulationRate bounds |dN/dt| to 400 % of nominal per second.
	maxPopulationRate = 4.0

	decayHeatEquilibrium = 0.07
	decayHeatFloor       = 0.01
	decayHeatTau         = 100.0 // s
	scramTransientTau    = 0.01  // s
	scramTransientEnd    = 0.1   // s
)

// StepKinetics advances the point-kinetics equations by dt with forward
// Euler at reactivity rho.
func StepKinetics(n plant.NeutronicsState, rho, dt float64) plant.NeutronicsState {
	lambda, beta, gen := n.DecayConstant, n.DelayedFraction, n.PromptNeutronLifetime
	N, C := n.NeutronPopulation, n.Precursors

	dN := ((rho-beta)/gen)*N + lambda*C
	dC := (beta/gen)*N - lambda*C

	change := dt * dN
	limit := maxPopulationRate * dt
	change = math.Max(-limit, math.Min(limit, change))

	n.NeutronPopulation = math.Max(N+change, populationFloor)
	n.Precursors = math.Max(C+dt*dC, populationFloor)
	n.Reactivity = rho
	return n
}

// EquilibriumPrecursors returns the precursor level that holds N steady at
// zero reactivity.
func EquilibriumPrecursors(n plant.NeutronicsState) float64 {
	if n.DecayConstant <= 0 || n.PromptNeutronLifetime <= 0 {
		return 0
	}
	return n.DelayedFraction * n.NeutronPopulation / (n.DecayConstant * n.PromptNeutronLifetime)
}

// ScramDecayFraction is the decay heat fraction ts seconds after a scram
// once the initial transient has passed.
func ScramDecayFraction(ts float64) float64 {
	return math.Max(0.066*math.Pow(math.Max(ts, scramTransientEnd), -0.2), decayHeatFloor)
}

// StepDecayHeat updates the decay heat fraction and base power over dt
// ending at time t, then sets the supplied power.
func StepDecayHeat(n plant.NeutronicsState, t, dt float64) plant.NeutronicsState {
	fission := n.FissionPower()
	if n.Scrammed {
		ts := t - n.ScramTime
		target := ScramDecayFraction(ts)
		if ts < scramTransientEnd {
			n.DecayHeatFraction += (target - n.DecayHeatFraction) * math.Min(1, dt/scramTransientTau)
		} else {
			n.DecayHeatFraction = target
		}
		n.DecayHeatFraction = math.Max(n.DecayHeatFraction, decayHeatFloor)
	} else {
		if n.DecayHeatFraction < decayHeatEquilibrium {
			n.DecayHeatFraction += (decayHeatEquilibrium - n.DecayHeatFraction) * math.Min(1, dt/decayHeatTau)
		}
		n.DecayHeatBasePower += (fission - n.DecayHeatBasePower) * math.Min(1, dt/decayHeatTau)
	}
	f := n.DecayHeatFraction
	n.Power = (1-f)*fission + f*n.DecayHeatBasePower
	return n
}
