package analysis

import (
	"math"
	"testing"
)

func sine(n int, dt, freq, amp, offset float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = offset + amp*math.Sin(2*math.Pi*freq*float64(i)*dt)
	}
	return out
}

func TestDominantFrequency(t *testing.T) {
	tests := []struct {
		name string
		n    int
		dt   float64
		freq float64
		amp  float64
	}{
		{"half hertz", 200, 0.1, 0.5, 3},
		{"slow", 256, 1, 1.0 / 32, 10},
		{"odd length", 99, 0.1, 10.0 / 9.9, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, amp, ok := DominantFrequency(sine(tt.n, tt.dt, tt.freq, tt.amp, 1000), tt.dt)
			if !ok {
				t.Fatal("expected a dominant frequency")
			}
			if math.Abs(f-tt.freq) > 1e-9 {
				t.Errorf("frequency: got %v, want %v", f, tt.freq)
			}
			if math.Abs(amp-tt.amp) > 1e-6 {
				t.Errorf("amplitude: got %v, want %v", amp, tt.amp)
			}
		})
	}
}

func TestDominantFrequencyFlat(t *testing.T) {
	flat := make([]float64, 64)
	for i := range flat {
		flat[i] = 7
	}
	if _, _, ok := DominantFrequency(flat, 0.1); ok {
		t.Error("flat signal should have no dominant frequency")
	}
	if f, a := Spectrum([]float64{1}, 0.1); f != nil || a != nil {
		t.Error("single sample should give no spectrum")
	}
	if f, _ := Spectrum(flat, 0); f != nil {
		t.Error("zero dt should give no spectrum")
	}
}

func TestSpectrumBins(t *testing.T) {
	freqs, amps := Spectrum(sine(100, 0.05, 2, 1, 0), 0.05)
	if len(freqs) != 51 || len(amps) != 51 {
		t.Fatalf("bins: got %d/%d, want 51", len(freqs), len(amps))
	}
	if freqs[50] != 10 {
		t.Errorf("nyquist: got %v, want 10", freqs[50])
	}
	if amps[0] > 1e-9 {
		t.Errorf("DC bin should be removed, got %v", amps[0])
	}
}

func TestSummarize(t *testing.T) {
	times := []float64{0, 1, 2, 3, 4, 5}
	values := []float64{100, 130, 90, 101, 100.5, 100}
	s := Summarize(times, values, 0.02)

	if s.Min != 90 || s.Max != 130 {
		t.Errorf("extrema: got %v/%v", s.Min, s.Max)
	}
	if s.PeakTime != 1 {
		t.Errorf("peak time: got %v, want 1", s.PeakTime)
	}
	if s.Initial != 100 || s.Final != 100 {
		t.Errorf("endpoints: got %v/%v", s.Initial, s.Final)
	}
	if s.SettleTime != 3 {
		t.Errorf("settle time: got %v, want 3", s.SettleTime)
	}
	if math.Abs(s.Mean-103.583333333) > 1e-6 {
		t.Errorf("mean: got %v", s.Mean)
	}
}

func TestSummarizeOscillation(t *testing.T) {
	n := 100
	times := make([]float64, n)
	for i := range times {
		times[i] = float64(i) * 0.1
	}
	s := Summarize(times, sine(n, 0.1, 0.5, 1, 5), 0.01)
	if !s.Oscillating {
		t.Error("sine should be flagged as oscillating")
	}
	if !math.IsNaN(Summarize(nil, nil, 0.02).SettleTime) {
		t.Error("empty summary settle time should be NaN")
	}
}
