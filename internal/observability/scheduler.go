package observability

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/pwrsim/internal/plant"
)

// SchedulerCollector exposes scheduler and core metrics. It satisfies the
// scheduler's Recorder and Observer hooks and the neutronics scram hook.
type SchedulerCollector struct {
	gatherer prometheus.Gatherer

	Steps          prometheus.Counter
	StepDuration   prometheus.Histogram
	Subcycles      *prometheus.CounterVec
	LastSubcycles  *prometheus.GaugeVec
	Scrams         *prometheus.CounterVec
	CorePower      prometheus.Gauge
	Reactivity     prometheus.Gauge
	SimulationTime prometheus.Gauge
}

// NewSchedulerCollector registers scheduler metrics against the provided registerer.
func NewSchedulerCollector(reg prometheus.Registerer) (*SchedulerCollector, error) {
	reg, gatherer := resolve(reg)

	steps, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "pwrsim_steps_total",
		Help: "Outer simulation steps completed.",
	}), "pwrsim_steps_total")
	if err != nil {
		return nil, err
	}

	duration, err := register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "pwrsim_step_duration_seconds",
		Help:    "Wall-clock duration of one outer step.",
		Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}), "pwrsim_step_duration_seconds")
	if err != nil {
		return nil, err
	}

	subcycles, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pwrsim_subcycles_total",
		Help: "Sub-steps taken per operator.",
	}, []string{"operator"}), "pwrsim_subcycles_total")
	if err != nil {
		return nil, err
	}

	last, err := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pwrsim_subcycles_last",
		Help: "Sub-steps per operator in the most recent outer step.",
	}, []string{"operator"}), "pwrsim_subcycles_last")
	if err != nil {
		return nil, err
	}

	scrams, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "pwrsim_scrams_total",
		Help: "Reactor trips by reason.",
	}, []string{"reason"}), "pwrsim_scrams_total")
	if err != nil {
		return nil, err
	}

	power, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pwrsim_core_power_watts",
		Help: "Supplied thermal power of the core.",
	}), "pwrsim_core_power_watts")
	if err != nil {
		return nil, err
	}

	rho, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pwrsim_core_reactivity",
		Help: "Total core reactivity.",
	}), "pwrsim_core_reactivity")
	if err != nil {
		return nil, err
	}

	simTime, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "pwrsim_simulation_time_seconds",
		Help: "Simulated time of the last observed state.",
	}), "pwrsim_simulation_time_seconds")
	if err != nil {
		return nil, err
	}

	return &SchedulerCollector{
		gatherer:       gatherer,
		Steps:          steps,
		StepDuration:   duration,
		Subcycles:      subcycles,
		LastSubcycles:  last,
		Scrams:         scrams,
		CorePower:      power,
		Reactivity:     rho,
		SimulationTime: simTime,
	}, nil
}

func (c *SchedulerCollector) RecordStep(elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Steps.Inc()
	c.StepDuration.Observe(elapsed.Seconds())
}

func (c *SchedulerCollector) RecordSubcycles(operator string, n int) {
	if c == nil {
		return
	}
	c.Subcycles.WithLabelValues(operator).Add(float64(n))
	c.LastSubcycles.WithLabelValues(operator).Set(float64(n))
}

// RecordScram counts a trip under the reason's stem, dropping the
// parenthesised measurement.
func (c *SchedulerCollector) RecordScram(reason string) {
	if c == nil {
		return
	}
	if i := strings.Index(reason, " ("); i >= 0 {
		reason = reason[:i]
	}
	c.Scrams.WithLabelValues(reason).Inc()
}

func (c *SchedulerCollector) OnStep(state plant.SimulationState) {
	if c == nil {
		return
	}
	c.CorePower.Set(state.Neutronics.Power)
	c.Reactivity.Set(state.Neutronics.Reactivity)
	c.SimulationTime.Set(state.Time)
}

func (c *SchedulerCollector) Gatherer() prometheus.Gatherer { return c.gatherer }
