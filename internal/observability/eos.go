package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/pwrsim/internal/steam"
)

// StatsSource exposes EOS solver counters.
type StatsSource interface {
	Stats() steam.Stats
}

// EOSCollector publishes the EOS solver counters as Prometheus metrics read
// at scrape time.
type EOSCollector struct {
	gatherer prometheus.Gatherer

	Calls       prometheus.CounterFunc
	TableHits   prometheus.CounterFunc
	TableMisses prometheus.CounterFunc
	Attempts    prometheus.CounterFunc
	Failures    prometheus.CounterFunc
	Misses      prometheus.CounterFunc
	Invalid     prometheus.CounterFunc
	Disagree    prometheus.CounterFunc
	Clamps      prometheus.CounterFunc
	FailureRate prometheus.GaugeFunc
}

// NewEOSCollector registers EOS metrics for src against reg, defaulting to
// the global registry when nil.
func NewEOSCollector(reg prometheus.Registerer, src StatsSource) (*EOSCollector, error) {
	reg, gatherer := resolve(reg)
	c := &EOSCollector{gatherer: gatherer}

	counters := []struct {
		dst  *prometheus.CounterFunc
		name string
		help string
		get  func(steam.Stats) uint64
	}{
		{&c.Calls, "pwrsim_eos_calls_total", "Total EOS state closures.", func(s steam.Stats) uint64 { return s.Calls }},
		{&c.TableHits, "pwrsim_eos_table_hits_total", "Closures answered by the compressed-liquid table.", func(s steam.Stats) uint64 { return s.TableHits }},
		{&c.TableMisses, "pwrsim_eos_table_misses_total", "Table queries left to the saturation solver, including states outside the liquid table.", func(s steam.Stats) uint64 { return s.TableMisses }},
		{&c.Attempts, "pwrsim_eos_bisection_attempts_total", "Saturation-temperature bisections started.", func(s steam.Stats) uint64 { return s.BisectionAttempts }},
		{&c.Failures, "pwrsim_eos_bisection_failures_total", "Saturation-temperature bisections that did not converge.", func(s steam.Stats) uint64 { return s.BisectionFailures }},
		{&c.Misses, "pwrsim_eos_bracket_misses_total", "Bisections whose bracket held no sign change.", func(s steam.Stats) uint64 { return s.BracketMisses }},
		{&c.Invalid, "pwrsim_eos_invalid_inputs_total", "Closures rejected for non-finite or non-positive input.", func(s steam.Stats) uint64 { return s.InvalidInputs }},
		{&c.Disagree, "pwrsim_eos_quality_disagreements_total", "Two-phase closures whose energy and density qualities differ by more than 0.3.", func(s steam.Stats) uint64 { return s.QualityDisagreements }},
		{&c.Clamps, "pwrsim_eos_range_clamps_total", "Liquid closures whose energy fell outside the saturated-liquid range.", func(s steam.Stats) uint64 { return s.RangeClamps }},
	}
	for _, def := range counters {
		get := def.get
		fn := prometheus.NewCounterFunc(prometheus.CounterOpts{Name: def.name, Help: def.help}, func() float64 {
			return float64(get(src.Stats()))
		})
		registered, err := register(reg, fn, def.name)
		if err != nil {
			return nil, err
		}
		*def.dst = registered
	}

	rate := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "pwrsim_eos_failure_rate",
		Help: "Fraction of saturation bisections that did not converge.",
	}, func() float64 { return src.Stats().FailureRate() })
	rate, err := register(reg, rate, "pwrsim_eos_failure_rate")
	if err != nil {
		return nil, err
	}
	c.FailureRate = rate
	return c, nil
}

func (c *EOSCollector) Gatherer() prometheus.Gatherer { return c.gatherer }
