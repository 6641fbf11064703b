// Package sweep runs one scenario over a grid of plant parameters in
// parallel and collects the run metrics of every grid point.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/pwrsim/internal/control"
	"github.com/san-kum/pwrsim/internal/logging"
	"github.com/san-kum/pwrsim/internal/neutronics"
	"github.com/san-kum/pwrsim/internal/scenario"
	"github.com/san-kum/pwrsim/internal/solver"
	"github.com/san-kum/pwrsim/internal/steam"
)

var ErrInvalidAxis = errors.New("sweep: invalid axis")

var setters = map[string]func(*scenario.PWRParams, float64){
	"nominal_power":         func(p *scenario.PWRParams, v float64) { p.NominalPower = v },
	"primary_pressure":      func(p *scenario.PWRParams, v float64) { p.PrimaryPressure = v },
	"core_temperature":      func(p *scenario.PWRParams, v float64) { p.CoreTemperature = v },
	"loop_flow":             func(p *scenario.PWRParams, v float64) { p.LoopFlow = v },
	"secondary_temperature": func(p *scenario.PWRParams, v float64) { p.SecondaryTemperature = v },
	"rod_position":          func(p *scenario.PWRParams, v float64) { p.RodPosition = v },
	"pump_coastdown":        func(p *scenario.PWRParams, v float64) { p.PumpCoastdown = v },
	"pressurizer_n2":        func(p *scenario.PWRParams, v float64) { p.PressurizerN2 = v },
	"pressurizer_h2":        func(p *scenario.PWRParams, v float64) { p.PressurizerH2 = v },
}

// Params lists the plant parameters an axis may sweep.
func Params() []string {
	names := make([]string, 0, len(setters))
	for name := range setters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Axis is one swept plant parameter.
type Axis struct {
	Param  string
	Values []float64
}

// ParseAxis reads "param=v1,v2,..." or "param=lo:hi:n".
func ParseAxis(s string) (Axis, error) {
	name, values, ok := strings.Cut(s, "=")
	if !ok {
		return Axis{}, fmt.Errorf("%w: %q: want param=values", ErrInvalidAxis, s)
	}
	if _, known := setters[name]; !known {
		return Axis{}, fmt.Errorf("%w: unknown parameter %q", ErrInvalidAxis, name)
	}
	a := Axis{Param: name}

	if parts := strings.Split(values, ":"); len(parts) == 3 {
		lo, errLo := strconv.ParseFloat(parts[0], 64)
		hi, errHi := strconv.ParseFloat(parts[1], 64)
		n, errN := strconv.Atoi(parts[2])
		if err := errors.Join(errLo, errHi, errN); err != nil || n < 2 {
			return Axis{}, fmt.Errorf("%w: %q: want lo:hi:n with n >= 2", ErrInvalidAxis, values)
		}
		for i := 0; i < n; i++ {
			a.Values = append(a.Values, lo+(hi-lo)*float64(i)/float64(n-1))
		}
		return a, nil
	}

	for _, f := range strings.Split(values, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return Axis{}, fmt.Errorf("%w: %v", ErrInvalidAxis, err)
		}
		a.Values = append(a.Values, v)
	}
	return a, nil
}

// Point is the outcome of one grid point. A failed run keeps its partial
// metrics and sets Err.
type Point struct {
	Params      map[string]float64
	Metrics     map[string]float64
	Scrammed    bool
	ScramReason string
	Steps       int
	Err         error
}

type Runner struct {
	Registry *scenario.Registry
	Scenario string
	Base     scenario.PWRParams
	Events   []scenario.Event // empty uses the scenario's own events
	Limits   neutronics.Limits
	Rods     control.RodConfig // applied when enabled
	Config   solver.Config
	EOS      *steam.Solver
	Workers  int
	Logger   *slog.Logger // nil takes the logger on the Run context
}

// Grid expands the axes into their cartesian product, first axis slowest.
func Grid(axes []Axis) []map[string]float64 {
	grid := []map[string]float64{{}}
	for _, a := range axes {
		next := make([]map[string]float64, 0, len(grid)*len(a.Values))
		for _, g := range grid {
			for _, v := range a.Values {
				p := make(map[string]float64, len(g)+1)
				for k, x := range g {
					p[k] = x
				}
				p[a.Param] = v
				next = append(next, p)
			}
		}
		grid = next
	}
	return grid
}

// Run simulates every grid point with at most Workers runs in flight.
// Points come back in grid order. Only cancellation aborts the sweep; a
// failing point is reported in its Err.
func (r *Runner) Run(ctx context.Context, axes []Axis) ([]Point, error) {
	for _, a := range axes {
		if _, ok := setters[a.Param]; !ok || len(a.Values) == 0 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidAxis, a.Param)
		}
	}
	if r.Registry == nil {
		r.Registry = scenario.NewRegistry()
	}
	if r.EOS == nil {
		r.EOS = steam.Default()
	}
	logger := r.Logger
	if logger == nil {
		logger = logging.FromContext(ctx)
	}
	logger = logger.With("scenario", r.Scenario)

	grid := Grid(axes)
	points := make([]Point, len(grid))

	g, ctx := errgroup.WithContext(ctx)
	workers := r.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, params := range grid {
		i, params := i, params
		g.Go(func() error {
			points[i] = r.runPoint(ctx, params, logger)
			if points[i].Err != nil {
				logger.Warn("sweep point failed", "params", params, "error", points[i].Err)
			}
			return ctx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return points, err
	}
	logger.Info("sweep finished", "points", len(points))
	return points, nil
}

func (r *Runner) runPoint(ctx context.Context, params map[string]float64, logger *slog.Logger) Point {
	pt := Point{Params: params}
	p := r.Base
	for name, v := range params {
		setters[name](&p, v)
	}

	state, sc, err := r.Registry.Build(r.Scenario, p, r.EOS)
	if err != nil {
		pt.Err = err
		return pt
	}
	events := r.Events
	if len(events) == 0 {
		events = sc.Events
	}
	timeline, err := scenario.NewTimeline(events, logger)
	if err != nil {
		pt.Err = err
		return pt
	}
	sched, err := r.Registry.NewScheduler(scenario.Deps{EOS: r.EOS, Limits: r.Limits, Logger: logger})
	if err != nil {
		pt.Err = err
		return pt
	}
	if r.Rods.Enabled {
		sched.SetController(control.Chain(timeline, control.NewRodController(r.Rods, logger)))
	} else {
		sched.SetController(timeline)
	}
	for _, m := range r.Registry.DefaultMetrics(r.Limits) {
		sched.AddMetric(m)
	}

	result, err := sched.Run(ctx, state, r.Config)
	pt.Err = err
	if result != nil {
		pt.Metrics = result.Metrics
		pt.Steps = result.StepsTaken
		pt.Scrammed = result.Final.Neutronics.Scrammed
		pt.ScramReason = result.Final.Neutronics.ScramReason
	}
	return pt
}

// Best returns the successful point with the smallest (or largest)
// value of the named metric.
func Best(points []Point, metric string, maximize bool) (Point, bool) {
	best := math.Inf(1)
	if maximize {
		best = math.Inf(-1)
	}
	var out Point
	found := false
	for _, pt := range points {
		v, ok := pt.Metrics[metric]
		if pt.Err != nil || !ok || math.IsNaN(v) {
			continue
		}
		if (maximize && v > best) || (!maximize && v < best) {
			best, out, found = v, pt, true
		}
	}
	return out, found
}
