package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"
)

// Spectrum returns the one-sided amplitude spectrum of evenly spaced
// samples taken every dt seconds. The mean is removed first, so bin 0 is
// zero. Amplitudes are scaled so a pure sine of amplitude A on an exact bin
// reads A.
func Spectrum(samples []float64, dt float64) (freqs, amps []float64) {
	n := len(samples)
	if n < 2 || !(dt > 0) {
		return nil, nil
	}
	mean := stat.Mean(samples, nil)
	centered := make([]float64, n)
	for i, v := range samples {
		centered[i] = v - mean
	}

	coeffs := fft.FFTReal(centered)
	half := n/2 + 1
	freqs = make([]float64, half)
	amps = make([]float64, half)
	for k := 0; k < half; k++ {
		freqs[k] = float64(k) / (float64(n) * dt)
		scale := 2.0
		if k == 0 || (n%2 == 0 && k == n/2) {
			scale = 1
		}
		amps[k] = scale * cmplx.Abs(coeffs[k]) / float64(n)
	}
	return freqs, amps
}

// DominantFrequency returns the strongest non-zero frequency and its
// amplitude. ok is false when the signal is flat.
func DominantFrequency(samples []float64, dt float64) (freq, amp float64, ok bool) {
	freqs, amps := Spectrum(samples, dt)
	best := 0
	for k := 1; k < len(amps); k++ {
		if amps[k] > amps[best] {
			best = k
		}
	}
	if best == 0 || amps[best] < 1e-12 {
		return 0, 0, false
	}
	return freqs[best], amps[best], true
}
