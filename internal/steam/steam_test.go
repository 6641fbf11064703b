package steam

import (
	"math"
	"testing"

	"github.com/san-kum/pwrsim/internal/plant"
)

func approx(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestSaturationCurve(t *testing.T) {
	tests := []struct {
		T       float64
		wantP   float64
		wantRf  float64
		wantRg  float64
		wantHf  float64
		wantHg  float64
		relTolP float64
	}{
		{373.15, 101418, 958.37, 0.5977, 419.17e3, 2675.6e3, 0.005},
		{573.15, 8.5879e6, 712.14, 46.17, 1344.8e3, 2749.6e3, 0.005},
	}
	for _, tt := range tests {
		if got := SaturationPressure(tt.T); !approx(got, tt.wantP, tt.wantP*tt.relTolP) {
			t.Errorf("Psat(%v) = %v, want %v", tt.T, got, tt.wantP)
		}
		if got := SaturatedLiquidDensity(tt.T); !approx(got, tt.wantRf, 1) {
			t.Errorf("rho_f(%v) = %v, want %v", tt.T, got, tt.wantRf)
		}
		if got := SaturatedVaporDensity(tt.T); !approx(got, tt.wantRg, tt.wantRg*0.01) {
			t.Errorf("rho_g(%v) = %v, want %v", tt.T, got, tt.wantRg)
		}
		if got := SaturatedLiquidEnthalpy(tt.T); !approx(got, tt.wantHf, 2e3) {
			t.Errorf("h_f(%v) = %v, want %v", tt.T, got, tt.wantHf)
		}
		if got := SaturatedVaporEnthalpy(tt.T); !approx(got, tt.wantHg, 3e3) {
			t.Errorf("h_g(%v) = %v, want %v", tt.T, got, tt.wantHg)
		}
	}
}

func TestSaturationTemperatureInverts(t *testing.T) {
	for _, T := range []float64{300, 400, 500, 600, 640} {
		if got := SaturationTemperature(SaturationPressure(T)); !approx(got, T, 1e-4) {
			t.Errorf("Tsat(Psat(%v)) = %v", T, got)
		}
	}
	if got := SaturationTemperature(1); got != TriplePointTemperature {
		t.Errorf("below triple: got %v", got)
	}
	if got := SaturationTemperature(30e6); got != CriticalTemperature {
		t.Errorf("above critical: got %v", got)
	}
}

func TestSaturationSlopeMatchesFiniteDifference(t *testing.T) {
	for _, T := range []float64{350, 450, 550} {
		h := 1e-3
		fd := (SaturationPressure(T+h) - SaturationPressure(T-h)) / (2 * h)
		if got := SaturationSlope(T); !approx(got, fd, fd*1e-4) {
			t.Errorf("dP/dT(%v) = %v, want %v", T, got, fd)
		}
	}
}

func TestCalculateStateInvalidInputs(t *testing.T) {
	s := NewSolver(WithTable(nil))
	inputs := [][3]float64{
		{0, 1e6, 1},
		{-1, 1e6, 1},
		{1, 1e6, 0},
		{math.NaN(), 1e6, 1},
		{1, math.Inf(1), 1},
		{1, 1e6, math.Inf(1)},
	}
	for _, in := range inputs {
		got := s.CalculateState(in[0], in[1], in[2])
		if got != DefaultState() {
			t.Errorf("CalculateState(%v) = %v, want default", in, got)
		}
	}
	if st := s.Stats(); st.InvalidInputs != uint64(len(inputs)) || st.Calls != uint64(len(inputs)) {
		t.Errorf("stats = %+v", st)
	}
}

func TestCompressedLiquidRoundTrip(t *testing.T) {
	s := NewSolver(WithTable(nil))
	cases := []struct{ T, P float64 }{
		{300, 1e6},
		{500, 10e6},
		{565, 15.5e6},
		{590, 15.5e6},
	}
	for _, c := range cases {
		u, rho := CompressedLiquid(c.T, c.P)
		mass := 1000.0
		got := s.CalculateState(mass, u*mass, mass/rho)
		if got.Phase != plant.PhaseLiquid {
			t.Errorf("(%v,%v): phase %v, want liquid", c.T, c.P, got.Phase)
		}
		if !approx(got.Temperature, c.T, 0.01) {
			t.Errorf("(%v,%v): T = %v", c.T, c.P, got.Temperature)
		}
		if !approx(got.Pressure, c.P, 2e4) {
			t.Errorf("(%v,%v): P = %v", c.T, c.P, got.Pressure)
		}
	}
}

func TestTwoPhaseRoundTrip(t *testing.T) {
	s := NewSolver(WithTable(nil))
	for _, c := range []struct{ T, x float64 }{{400, 0.2}, {618, 0.05}, {550, 0.5}} {
		u, rho := Mixture(c.T, c.x)
		got := s.CalculateState(1, u, 1/rho)
		if got.Phase != plant.PhaseTwoPhase {
			t.Fatalf("(%v,%v): phase %v, want two-phase", c.T, c.x, got.Phase)
		}
		if !approx(got.Temperature, c.T, 0.01) || !approx(got.Quality, c.x, 1e-3) {
			t.Errorf("(%v,%v): got %v", c.T, c.x, got)
		}
		if !approx(got.Pressure, SaturationPressure(c.T), SaturationPressure(c.T)*1e-3) {
			t.Errorf("(%v,%v): P = %v", c.T, c.x, got.Pressure)
		}
	}
	if st := s.Stats(); st.QualityDisagreements != 0 {
		t.Errorf("unexpected disagreements: %d", st.QualityDisagreements)
	}
}

func TestSuperheatedVaporRoundTrip(t *testing.T) {
	s := NewSolver(WithTable(nil))
	for _, c := range []struct{ T, P float64 }{{600, 1e6}, {700, 5e6}} {
		u, rho := SuperheatedVapor(c.T, c.P)
		got := s.CalculateState(2, 2*u, 2/rho)
		if got.Phase != plant.PhaseVapor || got.Quality != 1 {
			t.Fatalf("(%v,%v): got %v", c.T, c.P, got)
		}
		if !approx(got.Temperature, c.T, 0.1) || !approx(got.Pressure, c.P, c.P*1e-3) {
			t.Errorf("(%v,%v): got %v", c.T, c.P, got)
		}
	}
}

func TestPhaseBoundaryQuality(t *testing.T) {
	if got := withQuality(400, 1e5, 0, SourceSaturation); got.Phase != plant.PhaseLiquid {
		t.Errorf("x=0: got %v", got.Phase)
	}
	if got := withQuality(400, 1e5, 1, SourceSaturation); got.Phase != plant.PhaseVapor {
		t.Errorf("x=1: got %v", got.Phase)
	}
	if got := withQuality(400, 1e5, 1.7, SourceSaturation); got.Quality != 1 {
		t.Errorf("quality not clamped: %v", got.Quality)
	}
}

func TestBisectionFailureCounted(t *testing.T) {
	s := NewSolver(WithTable(nil))
	u, rho := Mixture(450, 0.3)
	s.SolveSaturation(u, 1/rho, 2)
	st := s.Stats()
	if st.BisectionAttempts != 1 || st.BisectionFailures != 1 {
		t.Errorf("stats = %+v", st)
	}
	if s.FailureRate() != 1 {
		t.Errorf("FailureRate = %v, want 1", s.FailureRate())
	}
}

func TestLiquidRangeClampCounted(t *testing.T) {
	s := NewSolver(WithTable(nil))
	u, rho := CompressedLiquid(560, 15.5e6)
	s.CalculateState(1, u, 1/rho)
	if st := s.Stats(); st.RangeClamps != 0 {
		t.Fatalf("in-range liquid counted as clamp: %+v", st)
	}

	// denser than saturated liquid with energy above u_f at the critical point
	got := s.CalculateState(1, 2.3e6, 0.0011)
	if got.Phase != plant.PhaseLiquid || got.Temperature != CriticalTemperature {
		t.Errorf("got %v", got)
	}
	if st := s.Stats(); st.RangeClamps != 1 {
		t.Errorf("RangeClamps = %d, want 1", st.RangeClamps)
	}
}

func TestDefaultSolverIsShared(t *testing.T) {
	if Default() != Default() {
		t.Error("Default must return the same solver")
	}
	u, rho := CompressedLiquid(560, 15.5e6)
	got := CalculateState(10, 10*u, 10/rho)
	if got.Phase != plant.PhaseLiquid {
		t.Errorf("got %v", got)
	}
}
