package steam

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/san-kum/pwrsim/internal/logging"
	"github.com/san-kum/pwrsim/internal/plant"
)

const (
	// DefaultMaxIterations bounds the saturation-temperature bisection.
	DefaultMaxIterations = 30

	energyTolerance      = 1.0  // J/kg
	temperatureTolerance = 1e-6 // K
	qualityTolerance     = 1e-6
	qualityDisagreement  = 0.3
	saturationCeiling    = CriticalTemperature - 0.01
)

// Stats is a snapshot of solver counters.
type Stats struct {
	Calls                uint64
	TableHits            uint64
	TableMisses          uint64
	BisectionAttempts    uint64
	BisectionFailures    uint64
	BracketMisses        uint64
	InvalidInputs        uint64
	QualityDisagreements uint64
	RangeClamps          uint64
}

// FailureRate is the fraction of saturation bisections that did not
// converge.
func (s Stats) FailureRate() float64 {
	if s.BisectionAttempts == 0 {
		return 0
	}
	return float64(s.BisectionFailures) / float64(s.BisectionAttempts)
}

type counters struct {
	calls, tableHits, tableMisses      atomic.Uint64
	attempts, failures, bracketMisses  atomic.Uint64
	invalidInputs, qualityDisagreement atomic.Uint64
	rangeClamps                        atomic.Uint64
}

// Solver closes (mass, U, V) into an intensive state. The saturation
// solver is authoritative; the table, when present, answers
// compressed-liquid queries first. Safe for concurrent use.
type Solver struct {
	table   *Table
	maxIter int
	logger  *slog.Logger
	stats   counters
}

type Option func(*Solver)

// WithTable replaces the lookup table. A nil table disables the fast path.
func WithTable(t *Table) Option {
	return func(s *Solver) { s.table = t }
}

func WithMaxIterations(n int) Option {
	return func(s *Solver) {
		if n > 0 {
			s.maxIter = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Solver) { s.logger = logging.OrNoop(l) }
}

// NewSolver builds a solver with the default compressed-liquid table
// unless WithTable overrides it.
func NewSolver(opts ...Option) *Solver {
	s := &Solver{
		table:   sharedTable(),
		maxIter: DefaultMaxIterations,
		logger:  logging.Noop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var (
	tableOnce     sync.Once
	defaultTable  *Table
	solverOnce    sync.Once
	defaultSolver *Solver
)

func sharedTable() *Table {
	tableOnce.Do(func() {
		defaultTable = NewTable(DefaultTableConfig())
	})
	return defaultTable
}

// Default returns the process-wide solver, built on first use.
func Default() *Solver {
	solverOnce.Do(func() {
		defaultSolver = NewSolver()
	})
	return defaultSolver
}

// CalculateState closes a control volume with the default solver.
func CalculateState(mass, energy, volume float64) State {
	return Default().CalculateState(mass, energy, volume)
}

func (s *Solver) Stats() Stats {
	return Stats{
		Calls:                s.stats.calls.Load(),
		TableHits:            s.stats.tableHits.Load(),
		TableMisses:          s.stats.tableMisses.Load(),
		BisectionAttempts:    s.stats.attempts.Load(),
		BisectionFailures:    s.stats.failures.Load(),
		BracketMisses:        s.stats.bracketMisses.Load(),
		InvalidInputs:        s.stats.invalidInputs.Load(),
		QualityDisagreements: s.stats.qualityDisagreement.Load(),
		RangeClamps:          s.stats.rangeClamps.Load(),
	}
}

func (s *Solver) FailureRate() float64 {
	return s.Stats().FailureRate()
}

// Table returns the lookup table in use, or nil.
func (s *Solver) Table() *Table {
	return s.table
}

// CalculateState returns temperature, pressure, phase and quality for mass
// (kg), extensive internal energy (J) and volume (m³). Inputs that are not
// finite, or a non-positive mass or volume, yield DefaultState.
func (s *Solver) CalculateState(mass, energy, volume float64) State {
	s.stats.calls.Add(1)
	if !finite(mass) || !finite(energy) || !finite(volume) || mass <= 0 || volume <= 0 {
		s.stats.invalidInputs.Add(1)
		return DefaultState()
	}
	u, v := energy/mass, volume/mass

	if s.table != nil {
		if st, ok := s.table.Lookup(u, v); ok {
			s.stats.tableHits.Add(1)
			return st
		}
		s.stats.tableMisses.Add(1)
	}
	return s.SolveSaturation(u, v, s.maxIter)
}

// Close runs the solver on a fluid and returns it with the intensive state
// filled in.
func (s *Solver) Close(f plant.Fluid, volume float64) plant.Fluid {
	return s.CalculateState(f.Mass, f.InternalEnergy, volume).Apply(f)
}

// SolveSaturation bisects on the saturation temperature at which a
// saturated mixture of specific volume v has specific energy u. A root
// strictly inside the dome is two-phase with quality from the energy
// lever rule; anything else resolves to single-phase liquid or vapor.
func (s *Solver) SolveSaturation(u, v float64, maxIter int) State {
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}
	s.stats.attempts.Add(1)

	g := func(T float64) float64 {
		return mixtureEnergy(T, v) - u
	}
	lo, hi := TriplePointTemperature, saturationCeiling
	glo, ghi := g(lo), g(hi)
	if math.Signbit(glo) == math.Signbit(ghi) && glo != 0 && ghi != 0 {
		s.stats.bracketMisses.Add(1)
		return s.singlePhase(u, v)
	}

	converged := false
	T := lo
	for i := 0; i < maxIter; i++ {
		T = 0.5 * (lo + hi)
		r := g(T)
		if math.Abs(r) < energyTolerance {
			converged = true
			break
		}
		if math.Signbit(r) == math.Signbit(glo) {
			lo = T
		} else {
			hi = T
		}
		if hi-lo < temperatureTolerance {
			T = 0.5 * (lo + hi)
			converged = true
			break
		}
	}
	if !converged {
		s.stats.failures.Add(1)
		s.logger.Warn("saturation bisection did not converge",
			"u", u, "v", v, "iterations", maxIter, "bracket_lo", lo, "bracket_hi", hi)
		return s.singlePhase(u, v)
	}

	uf, ug := SaturatedLiquidEnergy(T), SaturatedVaporEnergy(T)
	xu := (u - uf) / (ug - uf)
	if xu <= qualityTolerance || xu >= 1-qualityTolerance {
		return s.singlePhase(u, v)
	}

	xv := volumeQuality(T, v)
	if math.Abs(xu-xv) > qualityDisagreement {
		s.stats.qualityDisagreement.Add(1)
		s.logger.Warn("energy and density qualities disagree",
			"temperature", T, "quality_energy", xu, "quality_density", xv)
	}
	return withQuality(T, SaturationPressure(T), xu, SourceSaturation)
}

// singlePhase resolves a state outside the two-phase dome. A liquid whose
// energy lies beyond the saturated-liquid range is returned pinned at the
// range bound, counted in RangeClamps and logged.
func (s *Solver) singlePhase(u, v float64) State {
	T, P, clamped := liquidState(u, v)
	liquid := State{Temperature: T, Pressure: P, Phase: plant.PhaseLiquid, Source: SourceLiquid}
	if v <= 1/SaturatedLiquidDensity(T) || v < 1/CriticalDensity {
		return s.liquid(liquid, u, v, clamped)
	}
	if Tv, Pv, ok := vaporState(u, v); ok {
		return State{Temperature: Tv, Pressure: Pv, Phase: plant.PhaseVapor, Quality: 1, Source: SourceVapor}
	}
	return s.liquid(liquid, u, v, clamped)
}

func (s *Solver) liquid(st State, u, v float64, clamped bool) State {
	if clamped {
		s.stats.rangeClamps.Add(1)
		s.logger.Warn("liquid energy outside saturated range, temperature clamped",
			"u", u, "v", v, "temperature", st.Temperature, "pressure", st.Pressure)
	}
	return st
}

func volumeQuality(T, v float64) float64 {
	vf, vg := 1/SaturatedLiquidDensity(T), 1/SaturatedVaporDensity(T)
	if vg <= vf {
		return 0
	}
	return clamp01((v - vf) / (vg - vf))
}

func mixtureEnergy(T, v float64) float64 {
	x := volumeQuality(T, v)
	return (1-x)*SaturatedLiquidEnergy(T) + x*SaturatedVaporEnergy(T)
}
