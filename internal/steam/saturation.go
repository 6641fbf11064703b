package steam

import "math"

// IAPWS critical and triple point constants.
const (
	CriticalTemperature    = 647.096  // K
	CriticalPressure       = 22.064e6 // Pa
	CriticalDensity        = 322.0    // kg/m³
	TriplePointTemperature = 273.16   // K
	TriplePointPressure    = 611.657  // Pa
	alpha0                 = 1000.0   // J/kg
	dAlpha                 = -1135.905627715
)

// Wagner–Pruss coefficients for the saturation curve.
var (
	satA = [6]float64{-7.85951783, 1.84408259, -11.7866497, 22.6807411, -15.9618719, 1.80122502}
	satB = [6]float64{1.99274064, 1.09965342, -0.510839303, -1.75493479, -45.5170352, -6.74694450e5}
	satC = [6]float64{-2.03150240, -2.68302940, -5.38626492, -17.2991605, -44.7586581, -63.9201063}
	satD = [5]float64{-5.65134998e-8, 2690.66631, 127.287297, -135.003439, 0.981825814}
)

func clampSat(T float64) float64 {
	switch {
	case T < TriplePointTemperature:
		return TriplePointTemperature
	case T > CriticalTemperature:
		return CriticalTemperature
	}
	return T
}

func tau(T float64) float64 {
	return 1 - clampSat(T)/CriticalTemperature
}

// satPressureTerms returns the Wagner–Pruss sum and its derivative in τ.
func satPressureTerms(t float64) (f, df float64) {
	a := satA
	f = a[0]*t + a[1]*math.Pow(t, 1.5) + a[2]*math.Pow(t, 3) +
		a[3]*math.Pow(t, 3.5) + a[4]*math.Pow(t, 4) + a[5]*math.Pow(t, 7.5)
	df = a[0] + 1.5*a[1]*math.Sqrt(t) + 3*a[2]*t*t +
		3.5*a[3]*math.Pow(t, 2.5) + 4*a[4]*t*t*t + 7.5*a[5]*math.Pow(t, 6.5)
	return f, df
}

// SaturationPressure returns Psat(T) in Pa. T is clamped to the
// triple–critical range.
func SaturationPressure(T float64) float64 {
	T = clampSat(T)
	f, _ := satPressureTerms(tau(T))
	return CriticalPressure * math.Exp(CriticalTemperature/T*f)
}

// SaturationSlope returns dPsat/dT in Pa/K.
func SaturationSlope(T float64) float64 {
	T = clampSat(T)
	f, df := satPressureTerms(tau(T))
	p := CriticalPressure * math.Exp(CriticalTemperature/T*f)
	return p * (-(CriticalTemperature/(T*T))*f - df/T)
}

// SaturationTemperature inverts SaturationPressure by bisection.
func SaturationTemperature(P float64) float64 {
	switch {
	case !(P > TriplePointPressure):
		return TriplePointTemperature
	case P >= CriticalPressure:
		return CriticalTemperature
	}
	lo, hi := TriplePointTemperature, CriticalTemperature
	for i := 0; i < 60 && hi-lo > 1e-9; i++ {
		mid := 0.5 * (lo + hi)
		if SaturationPressure(mid) < P {
			lo = mid
		} else {
			hi = mid
		}
	}
	return 0.5 * (lo + hi)
}

// SaturatedLiquidDensity returns ρ'(T) in kg/m³.
func SaturatedLiquidDensity(T float64) float64 {
	t := tau(T)
	b := satB
	r := 1 + b[0]*math.Cbrt(t) + b[1]*math.Pow(t, 2.0/3) + b[2]*math.Pow(t, 5.0/3) +
		b[3]*math.Pow(t, 16.0/3) + b[4]*math.Pow(t, 43.0/3) + b[5]*math.Pow(t, 110.0/3)
	return CriticalDensity * r
}

// SaturatedVaporDensity returns ρ''(T) in kg/m³.
func SaturatedVaporDensity(T float64) float64 {
	t := tau(T)
	c := satC
	l := c[0]*math.Pow(t, 2.0/6) + c[1]*math.Pow(t, 4.0/6) + c[2]*math.Pow(t, 8.0/6) +
		c[3]*math.Pow(t, 18.0/6) + c[4]*math.Pow(t, 37.0/6) + c[5]*math.Pow(t, 71.0/6)
	return CriticalDensity * math.Exp(l)
}

// alpha is the auxiliary quantity α(T) of the saturation enthalpies.
func alpha(T float64) float64 {
	th := clampSat(T) / CriticalTemperature
	d := satD
	return alpha0 * (dAlpha + d[0]*math.Pow(th, -19) + d[1]*th +
		d[2]*math.Pow(th, 4.5) + d[3]*math.Pow(th, 5) + d[4]*math.Pow(th, 54.5))
}

// SaturatedLiquidEnthalpy returns h'(T) in J/kg.
func SaturatedLiquidEnthalpy(T float64) float64 {
	T = clampSat(T)
	return alpha(T) + T/SaturatedLiquidDensity(T)*SaturationSlope(T)
}

// SaturatedVaporEnthalpy returns h''(T) in J/kg.
func SaturatedVaporEnthalpy(T float64) float64 {
	T = clampSat(T)
	return alpha(T) + T/SaturatedVaporDensity(T)*SaturationSlope(T)
}

// SaturatedLiquidEnergy returns u'(T) = h' − Psat/ρ' in J/kg.
func SaturatedLiquidEnergy(T float64) float64 {
	return SaturatedLiquidEnthalpy(T) - SaturationPressure(T)/SaturatedLiquidDensity(T)
}

// SaturatedVaporEnergy returns u''(T) = h'' − Psat/ρ'' in J/kg.
func SaturatedVaporEnergy(T float64) float64 {
	return SaturatedVaporEnthalpy(T) - SaturationPressure(T)/SaturatedVaporDensity(T)
}
