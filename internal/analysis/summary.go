package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes one trace column.
type Summary struct {
	Min, Max    float64
	Mean        float64
	StdDev      float64
	Initial     float64
	Final       float64
	PeakTime    float64 // time of Max
	SettleTime  float64 // from here on the column stays inside the band
	Oscillating bool
}

// Summarize computes column statistics. band is the relative settling band
// around the final value, e.g. 0.02.
func Summarize(times, values []float64, band float64) Summary {
	if len(values) == 0 || len(times) != len(values) {
		return Summary{SettleTime: math.NaN()}
	}
	s := Summary{
		Min:     floats.Min(values),
		Max:     floats.Max(values),
		Initial: values[0],
		Final:   values[len(values)-1],
	}
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	if len(values) < 2 {
		s.StdDev = 0
	}
	s.PeakTime = times[floats.MaxIdx(values)]

	tol := band * math.Abs(s.Final)
	if tol == 0 {
		tol = band
	}
	s.SettleTime = times[0]
	for i := len(values) - 1; i >= 0; i-- {
		if math.Abs(values[i]-s.Final) > tol {
			s.SettleTime = times[i+1]
			break
		}
	}

	crossings := 0
	for i := 1; i < len(values); i++ {
		if (values[i-1]-s.Mean)*(values[i]-s.Mean) < 0 {
			crossings++
		}
	}
	s.Oscillating = crossings >= 4
	return s
}
