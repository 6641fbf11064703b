package scenario

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/san-kum/pwrsim/internal/components"
	"github.com/san-kum/pwrsim/internal/flow"
	"github.com/san-kum/pwrsim/internal/metrics"
	"github.com/san-kum/pwrsim/internal/neutronics"
	"github.com/san-kum/pwrsim/internal/plant"
	"github.com/san-kum/pwrsim/internal/solver"
	"github.com/san-kum/pwrsim/internal/steam"
	"github.com/san-kum/pwrsim/internal/thermal"
)

// DefaultOrder is the splitting order of one outer step: driven flows
// first, then transport, heat transfer and kinetics.
var DefaultOrder = []string{"components", "flow", "thermal", "neutronics"}

// Scenario is a named initial plant with its scripted events. A positive
// RodSetpoint runs the scenario under automatic rod control.
type Scenario struct {
	Name        string
	Description string
	Events      []Event
	RodSetpoint float64
}

// Deps are the shared services handed to operator factories.
type Deps struct {
	EOS    *steam.Solver
	Limits neutronics.Limits
	Logger *slog.Logger
}

type Registry struct {
	scenarios map[string]Scenario
	operators map[string]func(Deps) solver.Operator
}

func NewRegistry() *Registry {
	r := &Registry{
		scenarios: make(map[string]Scenario),
		operators: make(map[string]func(Deps) solver.Operator),
	}

	r.Register(Scenario{
		Name:        "steady",
		Description: "full power with all pumps running",
	})
	r.Register(Scenario{
		Name:        "pump-trip",
		Description: "reactor coolant pump trips at 10 s; low core flow trips the reactor",
		Events:      []Event{{At: 10, Action: ActionTripPump, Target: PumpRCP}},
	})
	r.Register(Scenario{
		Name:        "scram",
		Description: "manual scram at 5 s followed by decay heat removal",
		Events:      []Event{{At: 5, Action: ActionScram}},
	})
	r.Register(Scenario{
		Name:        "rod-insertion",
		Description: "rods driven to 90 % withdrawn at 5 s; power settles lower",
		Events:      []Event{{At: 5, Action: ActionSetRods, Value: 0.9}},
	})
	r.Register(Scenario{
		Name:        "spray-isolation",
		Description: "pressurizer spray valve closes at 5 s",
		Events:      []Event{{At: 5, Action: ActionSetValve, Target: ValveSpray, Value: 0}},
	})
	r.Register(Scenario{
		Name:        "pump-restart",
		Description: "pump trips at 5 s and restarts at 8 s before the flow trip",
		Events: []Event{
			{At: 5, Action: ActionTripPump, Target: PumpRCP},
			{At: 8, Action: ActionStartPump, Target: PumpRCP},
		},
	})

	r.Register(Scenario{
		Name:        "power-setback",
		Description: "automatic rod control drives power down to 80 %",
		RodSetpoint: 0.8,
	})

	r.operators["components"] = func(d Deps) solver.Operator { return components.NewOperator(d.Logger) }
	r.operators["flow"] = func(d Deps) solver.Operator { return flow.NewOperator(d.EOS, d.Logger) }
	r.operators["thermal"] = func(d Deps) solver.Operator { return thermal.NewOperator(d.EOS, d.Logger) }
	r.operators["neutronics"] = func(d Deps) solver.Operator { return neutronics.NewOperator(d.Limits, d.Logger) }

	return r
}

func (r *Registry) Register(s Scenario) {
	r.scenarios[s.Name] = s
}

func (r *Registry) Get(name string) (Scenario, error) {
	s, ok := r.scenarios[name]
	if !ok {
		return Scenario{}, fmt.Errorf("unknown scenario: %s", name)
	}
	s.Events = append([]Event(nil), s.Events...)
	return s, nil
}

// Build returns the initial state of the named scenario.
func (r *Registry) Build(name string, params PWRParams, eos *steam.Solver) (plant.SimulationState, Scenario, error) {
	s, err := r.Get(name)
	if err != nil {
		return plant.SimulationState{}, Scenario{}, err
	}
	state, err := BuildPWR(params, eos)
	if err != nil {
		return plant.SimulationState{}, Scenario{}, err
	}
	return state, s, nil
}

func (r *Registry) GetOperator(name string, d Deps) (solver.Operator, error) {
	fn, ok := r.operators[name]
	if !ok {
		return nil, fmt.Errorf("unknown operator: %s", name)
	}
	return fn(d), nil
}

// NewScheduler assembles a scheduler over the named operators, in order.
// With no names the default order is used.
func (r *Registry) NewScheduler(d Deps, order ...string) (*solver.Scheduler, error) {
	if len(order) == 0 {
		order = DefaultOrder
	}
	ops := make([]solver.Operator, 0, len(order))
	for _, name := range order {
		op, err := r.GetOperator(name, d)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	s := solver.New(ops...)
	s.SetLogger(d.Logger)
	return s, nil
}

func (r *Registry) ListScenarios() []string {
	names := make([]string, 0, len(r.scenarios))
	for name := range r.scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics are the run summary metrics for any scenario.
func (r *Registry) DefaultMetrics(limits neutronics.Limits) []solver.Metric {
	return []solver.Metric{
		metrics.NewMassDrift(),
		metrics.NewGasDrift(),
		metrics.NewPeakPower(),
		metrics.NewPeakFuelTemperature(),
		metrics.NewMargin(limits.HighPower),
	}
}

// DefaultProbes are the trace columns recorded for the reference plant.
func DefaultProbes() []solver.Probe {
	probes := solver.CoreProbes()
	for _, id := range []string{NodeCore, NodeHotLeg, NodeColdLeg, NodePressurizer, NodeSGSecondary} {
		probes = append(probes, solver.FlowNodeTemperature(id), solver.FlowNodePressure(id))
	}
	probes = append(probes,
		solver.FlowNodeQuality(NodePressurizer),
		solver.ThermalNodeTemperature(NodeFuel),
		solver.ConnectionFlow("cold-core"),
		solver.TotalWaterMass(),
	)
	return probes
}
