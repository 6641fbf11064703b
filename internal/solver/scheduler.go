package solver

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/san-kum/pwrsim/internal/logging"
	"github.com/san-kum/pwrsim/internal/plant"
)

const tracerName = "github.com/san-kum/pwrsim/internal/solver"

// Scheduler advances the plant by operator splitting. Each outer step runs
// every operator in registration order, each at its own sub-step.
type Scheduler struct {
	operators  []Operator
	controller Controller
	metrics    []Metric
	observers  []Observer
	probes     []Probe
	recorder   Recorder
	logger     *slog.Logger
	tracer     trace.Tracer
}

func New(ops ...Operator) *Scheduler {
	return &Scheduler{
		operators: ops,
		logger:    logging.Noop(),
		tracer:    otel.Tracer(tracerName),
	}
}

func (s *Scheduler) AddMetric(m Metric)         { s.metrics = append(s.metrics, m) }
func (s *Scheduler) AddObserver(o Observer)     { s.observers = append(s.observers, o) }
func (s *Scheduler) AddProbe(p ...Probe)        { s.probes = append(s.probes, p...) }
func (s *Scheduler) SetController(c Controller) { s.controller = c }
func (s *Scheduler) SetRecorder(r Recorder)     { s.recorder = r }
func (s *Scheduler) SetLogger(l *slog.Logger)   { s.logger = logging.OrNoop(l) }
func (s *Scheduler) SetTracer(t trace.Tracer)   { s.tracer = t }
func (s *Scheduler) Operators() []Operator      { return s.operators }

// Step advances state by dt. Each operator sizes its sub-steps against the
// state it is handed, so flows set by an earlier operator in the same step
// bound the later ones. Every operator starts from time t0, and the
// returned state is at t0+dt.
func (s *Scheduler) Step(ctx context.Context, state plant.SimulationState, dt float64) (plant.SimulationState, error) {
	next, _, err := s.step(ctx, state, dt)
	return next, err
}

func (s *Scheduler) step(ctx context.Context, state plant.SimulationState, dt float64) (plant.SimulationState, []int, error) {
	if !(dt > 0) {
		return state, nil, ErrInvalidDt
	}
	if len(s.operators) == 0 {
		return state, nil, ErrNoOperators
	}

	_, span := s.tracer.Start(ctx, "solver.Step", trace.WithAttributes(
		attribute.Float64("sim.time", state.Time),
		attribute.Float64("sim.dt", dt),
	))
	defer span.End()
	start := time.Now()

	t0 := state.Time
	counts := make([]int, len(s.operators))
	current := state
	for i, op := range s.operators {
		n := op.SubcycleCount(current, dt)
		counts[i] = n
		sub := dt / float64(n)
		current.Time = t0
		for k := 0; k < n; k++ {
			next, err := op.Apply(current, sub)
			if err != nil {
				span.RecordError(err)
				return state, counts, fmt.Errorf("%s: %w", op.Name(), err)
			}
			next.Time = t0 + float64(k+1)*sub
			current = next
		}
		span.SetAttributes(attribute.Int("subcycles."+op.Name(), n))
		if s.recorder != nil {
			s.recorder.RecordSubcycles(op.Name(), n)
		}
	}
	current.Time = t0 + dt

	if s.recorder != nil {
		s.recorder.RecordStep(time.Since(start))
	}
	return current, counts, nil
}

// Run integrates from initial for cfg.Duration. On failure the partial
// result is returned together with a *SimError.
func (s *Scheduler) Run(ctx context.Context, initial plant.SimulationState, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	if len(s.operators) == 0 {
		return nil, ErrNoOperators
	}
	if cfg.SampleEvery < 1 {
		cfg.SampleEvery = 1
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	result := &Result{
		Metrics:   make(map[string]float64),
		Subcycles: make(map[string]int),
	}
	result.Trace.Columns = make([]string, len(s.probes))
	for i, p := range s.probes {
		result.Trace.Columns[i] = p.Name
	}

	for _, m := range s.metrics {
		m.Reset()
	}
	if r, ok := s.controller.(Resetter); ok {
		r.Reset()
	}

	started := time.Now()
	state := initial.Clone()
	s.sample(&result.Trace, state)
	s.logger.Info("run started", "steps", steps, "dt", cfg.Dt, "operators", len(s.operators))

	var runErr error
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
		default:
		}
		if runErr != nil {
			break
		}

		if s.controller != nil {
			controlled, err := s.controller.Control(state)
			if err != nil {
				runErr = &SimError{Step: i, Time: state.Time, Operator: "controller", Err: err}
				break
			}
			state = controlled
		}

		for _, m := range s.metrics {
			m.Observe(state)
		}
		for _, obs := range s.observers {
			obs.OnStep(state)
		}

		next, counts, err := s.step(ctx, state, cfg.Dt)
		for j, n := range counts {
			result.Subcycles[s.operators[j].Name()] += n
		}
		if err != nil {
			runErr = &SimError{Step: i, Time: state.Time, Err: err}
			break
		}

		if cfg.ValidateState && !next.IsValid() {
			runErr = &SimError{Step: i, Time: state.Time, Err: plant.ErrInvalidState}
			break
		}

		state = next
		result.StepsTaken++
		if result.StepsTaken%cfg.SampleEvery == 0 {
			s.sample(&result.Trace, state)
		}
	}

	for _, m := range s.metrics {
		m.Observe(state)
		result.Metrics[m.Name()] = m.Value()
	}
	result.Final = state
	result.Elapsed = time.Since(started)

	if runErr != nil {
		s.logger.Error("run stopped", "error", runErr, "steps", result.StepsTaken)
		return result, runErr
	}
	s.logger.Info("run finished", "steps", result.StepsTaken, "sim_time", state.Time, "elapsed", result.Elapsed)
	return result, nil
}

func (s *Scheduler) sample(tr *Trace, state plant.SimulationState) {
	row := make([]float64, len(s.probes))
	for i, p := range s.probes {
		row[i] = p.Value(state)
	}
	tr.Times = append(tr.Times, state.Time)
	tr.Rows = append(tr.Rows, row)
}

func validateConfig(cfg Config) error {
	if !(cfg.Dt > 0) {
		return fmt.Errorf("%w, got %f", ErrInvalidDt, cfg.Dt)
	}
	if !(cfg.Duration > 0) {
		return fmt.Errorf("%w, got %f", ErrInvalidDuration, cfg.Duration)
	}
	return nil
}
