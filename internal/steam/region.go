package steam

import "math"

const (
	// BulkModulus is the constant liquid bulk modulus of the compressed
	// liquid correction, Pa.
	BulkModulus = 2.2e9
	// VaporSpecificHeat is the constant-volume specific heat of superheated
	// vapor, J/(kg·K).
	VaporSpecificHeat = 1500.0
	// MinPressure floors liquid pressures recovered from expanded states.
	MinPressure = 611.0
)

// CompressedLiquid returns specific internal energy (J/kg) and density
// (kg/m³) of liquid water at T and P. Internal energy follows the
// saturated liquid at T; density is corrected by the bulk modulus.
func CompressedLiquid(T, P float64) (u, rho float64) {
	T = clampSat(T)
	dp := P - SaturationPressure(T)
	vf := 1 / SaturatedLiquidDensity(T)
	v := vf * (1 - dp/BulkModulus)
	return SaturatedLiquidEnergy(T), 1 / v
}

// SuperheatedVapor returns specific internal energy and density of vapor
// at T and P. Temperatures below saturation at P are raised to it.
func SuperheatedVapor(T, P float64) (u, rho float64) {
	ts := SaturationTemperature(P)
	if T < ts {
		T = ts
	}
	u = SaturatedVaporEnergy(ts) + VaporSpecificHeat*(T-ts)
	rho = SaturatedVaporDensity(ts) * ts / T
	return u, rho
}

// Mixture returns specific internal energy and density of a saturated
// mixture at T with vapor quality x.
func Mixture(T, x float64) (u, rho float64) {
	x = clamp01(x)
	uf, ug := SaturatedLiquidEnergy(T), SaturatedVaporEnergy(T)
	vf, vg := 1/SaturatedLiquidDensity(T), 1/SaturatedVaporDensity(T)
	u = (1-x)*uf + x*ug
	v := (1-x)*vf + x*vg
	return u, 1 / v
}

// liquidTemperature inverts SaturatedLiquidEnergy. Energies outside the
// liquid range pin T to the triple or critical point and report clamped.
func liquidTemperature(u float64) (T float64, clamped bool) {
	lo, hi := TriplePointTemperature, CriticalTemperature
	if u <= SaturatedLiquidEnergy(lo) {
		return lo, true
	}
	if u >= SaturatedLiquidEnergy(hi) {
		return hi, true
	}
	for i := 0; i < 60 && hi-lo > 1e-9; i++ {
		mid := 0.5 * (lo + hi)
		if SaturatedLiquidEnergy(mid) < u {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0.5 * (lo + hi), false
}

// liquidState recovers T and P of liquid from specific energy and volume.
func liquidState(u, v float64) (T, P float64, clamped bool) {
	T, clamped = liquidTemperature(u)
	vf := 1 / SaturatedLiquidDensity(T)
	P = SaturationPressure(T) + BulkModulus*(1-v/vf)
	return T, math.Max(P, MinPressure), clamped
}

// vaporState recovers T and P of superheated vapor. ok is false when no
// saturation temperature satisfies both the energy and density relations.
func vaporState(u, v float64) (T, P float64, ok bool) {
	rho := 1 / v
	h := func(ts float64) float64 {
		dt := math.Max(0, u-SaturatedVaporEnergy(ts)) / VaporSpecificHeat
		return rho*(ts+dt) - SaturatedVaporDensity(ts)*ts
	}
	lo, hi := TriplePointTemperature, CriticalTemperature
	hlo, hhi := h(lo), h(hi)
	if hlo == 0 {
		hi = lo
	} else if hhi == 0 {
		lo = hi
	} else if math.Signbit(hlo) == math.Signbit(hhi) {
		return 0, 0, false
	}
	for i := 0; i < 60 && hi-lo > 1e-9; i++ {
		mid := 0.5 * (lo + hi)
		if math.Signbit(h(mid)) == math.Signbit(hlo) {
			lo = mid
		} else {
			hi = mid
		}
	}
	ts := 0.5 * (lo + hi)
	T = ts + math.Max(0, u-SaturatedVaporEnergy(ts))/VaporSpecificHeat
	return T, SaturationPressure(ts), true
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
