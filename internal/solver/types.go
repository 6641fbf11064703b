package solver

import (
	"math"
	"time"

	"github.com/san-kum/pwrsim/internal/plant"
)

// MaxSubcycles caps the number of sub-steps any operator may take in one
// outer step.
const MaxSubcycles = 1000

// Operator advances one physics domain of the plant state.
type Operator interface {
	Name() string
	Apply(state plant.SimulationState, dt float64) (plant.SimulationState, error)
	MaxStableDt(state plant.SimulationState) float64
	SubcycleCount(state plant.SimulationState, dt float64) int
}

// SubcycleCount returns how many sub-steps of at most dtMax cover dt.
func SubcycleCount(dt, dtMax float64) int {
	if !(dt > 0) || dt <= dtMax {
		return 1
	}
	if !(dtMax > 0) {
		return MaxSubcycles
	}
	n := math.Ceil(dt / dtMax)
	if n > MaxSubcycles {
		return MaxSubcycles
	}
	return int(n)
}

// Controller applies administrative actions before each outer step.
type Controller interface {
	Control(state plant.SimulationState) (plant.SimulationState, error)
}

// Resetter is implemented by controllers that keep state between steps.
// Run resets them before the first step.
type Resetter interface {
	Reset()
}

type ControllerFunc func(state plant.SimulationState) (plant.SimulationState, error)

func (f ControllerFunc) Control(state plant.SimulationState) (plant.SimulationState, error) {
	return f(state)
}

type Metric interface {
	Name() string
	Observe(state plant.SimulationState)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(state plant.SimulationState)
}

// Recorder receives scheduler timings. Implemented by the Prometheus
// collector.
type Recorder interface {
	RecordStep(elapsed time.Duration)
	RecordSubcycles(operator string, n int)
}

// Probe extracts one trace column from the state.
type Probe struct {
	Name  string
	Value func(state plant.SimulationState) float64
}

type Config struct {
	Dt            float64 // outer step, s
	Duration      float64 // s
	SampleEvery   int     // record every n outer steps
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.1,
		Duration:      60,
		SampleEvery:   1,
		ValidateState: true,
	}
}

// Trace is the sampled time history of a run.
type Trace struct {
	Columns []string
	Times   []float64
	Rows    [][]float64
}

// Column returns the samples of the named column, or nil.
func (t *Trace) Column(name string) []float64 {
	for i, c := range t.Columns {
		if c != name {
			continue
		}
		out := make([]float64, len(t.Rows))
		for j, row := range t.Rows {
			out[j] = row[i]
		}
		return out
	}
	return nil
}

type Result struct {
	Trace      Trace
	Final      plant.SimulationState
	Metrics    map[string]float64
	Subcycles  map[string]int // total sub-steps per operator
	StepsTaken int
	Elapsed    time.Duration
}
