package steam

import (
	"testing"

	"github.com/san-kum/pwrsim/internal/plant"
)

func TestTableMatchesSaturationSolver(t *testing.T) {
	table := NewTable(DefaultTableConfig())
	exact := NewSolver(WithTable(nil))

	cases := []struct{ T, P float64 }{
		{300, 1e6},
		{333.3, 7.3e6},
		{552, 15.5e6},
		{583, 15.5e6},
	}
	for _, c := range cases {
		u, rho := CompressedLiquid(c.T, c.P)
		got, ok := table.Lookup(u, 1/rho)
		if !ok {
			t.Fatalf("(%v,%v): unexpected table gap", c.T, c.P)
		}
		want := exact.SolveSaturation(u, 1/rho, DefaultMaxIterations)
		if got.Phase != want.Phase || got.Source != SourceTable {
			t.Errorf("(%v,%v): got %v, want %v", c.T, c.P, got, want)
		}
		if !approx(got.Temperature, want.Temperature, 0.05) {
			t.Errorf("(%v,%v): T = %v, want %v", c.T, c.P, got.Temperature, want.Temperature)
		}
		if !approx(got.Pressure, want.Pressure, 0.3e6) {
			t.Errorf("(%v,%v): P = %v, want %v", c.T, c.P, got.Pressure, want.Pressure)
		}
	}
}

func TestTableGapsNearSaturation(t *testing.T) {
	table := NewTable(DefaultTableConfig())
	for _, T := range []float64{450, 560, 600} {
		u, rho := CompressedLiquid(T, SaturationPressure(T)*1.001)
		if st, ok := table.Lookup(u, 1/rho); ok {
			t.Errorf("T=%v: expected gap, got %v", T, st)
		}
	}
	u, rho := Mixture(500, 0.1)
	if _, ok := table.Lookup(u, 1/rho); ok {
		t.Error("two-phase query must miss the liquid table")
	}
}

func TestSolverFallsBackOnGap(t *testing.T) {
	s := NewSolver()
	u, rho := CompressedLiquid(560, SaturationPressure(560)*1.001)
	got := s.CalculateState(1, u, 1/rho)
	if got.Phase != plant.PhaseLiquid || got.Source == SourceTable {
		t.Errorf("got %v", got)
	}

	u, rho = CompressedLiquid(565, 15.5e6)
	if got := s.CalculateState(1, u, 1/rho); got.Source != SourceTable {
		t.Errorf("expected table hit, got %v", got)
	}

	u, rho = Mixture(500, 0.1)
	if got := s.CalculateState(1, u, 1/rho); got.Phase != plant.PhaseTwoPhase {
		t.Errorf("expected two-phase from the saturation solver, got %v", got)
	}

	st := s.Stats()
	if st.TableMisses != 2 || st.TableHits != 1 || st.Calls != 3 {
		t.Errorf("stats = %+v", st)
	}
}

func TestTableSize(t *testing.T) {
	points, triangles := NewTable(DefaultTableConfig()).Size()
	if points == 0 || triangles == 0 {
		t.Fatalf("empty table: %d points, %d triangles", points, triangles)
	}
	if _, ok := NewTable(TableConfig{}).Lookup(1e6, 1e-3); ok {
		t.Error("degenerate table must always miss")
	}
}
