// Package scenario builds plant states, names them in a registry and
// drives timed operator actions during a run.
package scenario

import (
	"fmt"

	"github.com/san-kum/pwrsim/internal/neutronics"
	"github.com/san-kum/pwrsim/internal/plant"
	"github.com/san-kum/pwrsim/internal/steam"
)

// Node and component ids of the reference plant.
const (
	NodeCore          = "core"
	NodeHotLeg        = "hot-leg"
	NodeSGPrimary     = "sg-primary"
	NodeColdLeg       = "cold-leg"
	NodePressurizer   = "pressurizer"
	NodeSGSecondary   = "sg-secondary"
	NodeFuel          = "fuel"
	NodeSGTube        = "sg-tube"
	NodeHeatSink      = "condenser"
	PumpRCP           = "rcp"
	ValveSurge        = "surge"
	ValveSpray        = "spray"
	CheckValveCoolant = "cold-leg-check"
)

// PWRParams sizes the reference single-loop plant.
type PWRParams struct {
	NominalPower         float64 `yaml:"nominal_power"`         // W
	PrimaryPressure      float64 `yaml:"primary_pressure"`      // Pa
	CoreTemperature      float64 `yaml:"core_temperature"`      // K
	LoopFlow             float64 `yaml:"loop_flow"`             // kg/s
	SecondaryTemperature float64 `yaml:"secondary_temperature"` // K
	RodPosition          float64 `yaml:"rod_position"`          // initial, 1 withdrawn
	PumpCoastdown        float64 `yaml:"pump_coastdown"`        // s
	PressurizerN2        float64 `yaml:"pressurizer_n2"`        // mol
	PressurizerH2        float64 `yaml:"pressurizer_h2"`        // mol
}

func DefaultPWRParams() PWRParams {
	return PWRParams{
		NominalPower:         1e9,
		PrimaryPressure:      15.5e6,
		CoreTemperature:      583,
		LoopFlow:             8000,
		SecondaryTemperature: 558,
		RodPosition:          1,
		PumpCoastdown:        5,
		PressurizerN2:        1,
		PressurizerH2:        2,
	}
}

func (p PWRParams) validate() error {
	switch {
	case !(p.NominalPower > 0):
		return fmt.Errorf("%w: nominal power must be positive", plant.ErrInvalidState)
	case !(p.PrimaryPressure > 0):
		return fmt.Errorf("%w: primary pressure must be positive", plant.ErrInvalidState)
	case !(p.CoreTemperature > steam.TriplePointTemperature) || p.CoreTemperature >= steam.CriticalTemperature:
		return fmt.Errorf("%w: core temperature %g K out of range", plant.ErrInvalidState, p.CoreTemperature)
	case !(p.SecondaryTemperature > steam.TriplePointTemperature) || p.SecondaryTemperature >= p.CoreTemperature:
		return fmt.Errorf("%w: secondary temperature must sit below the core", plant.ErrInvalidState)
	case p.LoopFlow < 0:
		return fmt.Errorf("%w: loop flow must be non-negative", plant.ErrInvalidState)
	}
	return nil
}

// BuildPWR assembles the reference loop: core, hot leg, steam generator
// and cold leg in series, a pressurizer on surge and spray lines, and a
// boiling secondary cooled by a fixed-temperature condenser. Heat transfer
// conductances are sized so that nominal power flows from fuel to
// condenser at the initial temperatures.
func BuildPWR(p PWRParams, eos *steam.Solver) (plant.SimulationState, error) {
	if err := p.validate(); err != nil {
		return plant.SimulationState{}, err
	}
	if eos == nil {
		eos = steam.Default()
	}

	const (
		fuelTemperature = 900.0
		sgSplit         = 10.0 // K from primary to tube wall
		loopDrop        = 5.0  // K from core to steam generator outlet
	)
	power := p.NominalPower
	sgPrimaryT := p.CoreTemperature - loopDrop
	coldT := sgPrimaryT - loopDrop
	tubeT := 0.5 * (sgPrimaryT + p.SecondaryTemperature)
	sinkT := 300.0

	liquid := func(id, label string, volume, T float64) plant.FlowNode {
		u, rho := steam.CompressedLiquid(T, p.PrimaryPressure)
		mass := rho * volume
		return plant.FlowNode{
			ID: id, Label: label, Volume: volume,
			Fluid: eos.Close(plant.Fluid{Mass: mass, InternalEnergy: u * mass}, volume),
		}
	}
	mixture := func(id, label string, volume, T, x float64, gas plant.Composition) plant.FlowNode {
		u, rho := steam.Mixture(T, x)
		mass := rho * volume
		return plant.FlowNode{
			ID: id, Label: label, Volume: volume,
			Fluid: eos.Close(plant.Fluid{Mass: mass, InternalEnergy: u * mass, NCG: gas}, volume),
		}
	}

	state := plant.SimulationState{
		FlowNodes: map[string]plant.FlowNode{
			NodeCore:      liquid(NodeCore, "core coolant", 14, p.CoreTemperature),
			NodeHotLeg:    liquid(NodeHotLeg, "hot leg", 8, p.CoreTemperature),
			NodeSGPrimary: liquid(NodeSGPrimary, "steam generator primary", 20, sgPrimaryT),
			NodeColdLeg:   liquid(NodeColdLeg, "cold leg", 8, coldT),
			NodePressurizer: mixture(NodePressurizer, "pressurizer", 40,
				steam.SaturationTemperature(p.PrimaryPressure), 0.05,
				plant.Composition{plant.N2: p.PressurizerN2, plant.H2: p.PressurizerH2}),
			NodeSGSecondary: mixture(NodeSGSecondary, "steam generator secondary", 60,
				p.SecondaryTemperature, 0.1, plant.Composition{}),
		},
		ThermalNodes: map[string]plant.ThermalNode{
			NodeFuel:     {ID: NodeFuel, Label: "fuel", Temperature: fuelTemperature, Mass: 80000, SpecificHeat: 300, MaxTemperature: 1500},
			NodeSGTube:   {ID: NodeSGTube, Label: "steam generator tube", Temperature: tubeT, Mass: 50000, SpecificHeat: 500},
			NodeHeatSink: {ID: NodeHeatSink, Label: "condenser", Temperature: sinkT, Mass: 1, SpecificHeat: 1, Fixed: true},
		},
		FlowConnections: []plant.FlowConnection{
			{ID: "cold-core", From: NodeColdLeg, To: NodeCore, MassFlowRate: p.LoopFlow, FlowArea: 4, Length: 4},
			{ID: "core-hot", From: NodeCore, To: NodeHotLeg, MassFlowRate: p.LoopFlow, FlowArea: 0.4, Length: 6},
			{ID: "hot-sg", From: NodeHotLeg, To: NodeSGPrimary, MassFlowRate: p.LoopFlow, FlowArea: 0.4, Length: 6},
			{ID: "sg-cold", From: NodeSGPrimary, To: NodeColdLeg, MassFlowRate: p.LoopFlow, FlowArea: 0.4, Length: 6},
			{ID: "surge", From: NodeHotLeg, To: NodePressurizer, MassFlowRate: 5, FlowArea: 0.05, Length: 10},
			{ID: "spray", From: NodePressurizer, To: NodeColdLeg, MassFlowRate: 5, FlowArea: 0.01, Length: 12},
		},
		ConvectionConnections: []plant.ConvectionConnection{
			{ID: "fuel-core", ThermalNodeID: NodeFuel, FlowNodeID: NodeCore, Conductance: power / (fuelTemperature - p.CoreTemperature)},
			{ID: "sg-tube-primary", ThermalNodeID: NodeSGTube, FlowNodeID: NodeSGPrimary, Conductance: power / sgSplit},
			{ID: "sg-tube-secondary", ThermalNodeID: NodeSGTube, FlowNodeID: NodeSGSecondary, Conductance: power / (tubeT - p.SecondaryTemperature)},
			{ID: "condenser", ThermalNodeID: NodeHeatSink, FlowNodeID: NodeSGSecondary, Conductance: power / (p.SecondaryTemperature - sinkT)},
		},
		Components: plant.Components{
			Pumps: map[string]plant.Pump{
				PumpRCP: {
					ID:            PumpRCP,
					Connections:   []string{"cold-core", "core-hot", "hot-sg", "sg-cold"},
					RatedFlow:     p.LoopFlow,
					Speed:         1,
					Running:       true,
					CoastdownTime: p.PumpCoastdown,
					SpinUpTime:    10,
				},
			},
			Valves: map[string]plant.Valve{
				ValveSurge: {ID: ValveSurge, ConnectionID: "surge", Opening: 1, RatedFlow: 5},
				ValveSpray: {ID: ValveSpray, ConnectionID: "spray", Opening: 1, RatedFlow: 5},
			},
			CheckValves: map[string]plant.CheckValve{
				CheckValveCoolant: {ID: CheckValveCoolant, ConnectionID: "cold-core"},
			},
		},
	}

	n := plant.NeutronicsState{
		CoreNodeID:                    NodeCore,
		FuelNodeID:                    NodeFuel,
		CoolantNodeID:                 NodeCore,
		Power:                         power,
		NominalPower:                  power,
		NeutronPopulation:             1,
		PromptNeutronLifetime:         2e-5,
		DelayedFraction:               0.0065,
		DecayConstant:                 0.08,
		DopplerCoefficient:            -2.5e-5,
		CoolantTemperatureCoefficient: -2e-4,
		CoolantDensityCoefficient:     1e-4,
		ControlRodPosition:            p.RodPosition,
		ControlRodWorth:               0.05,
		DecayHeatFraction:             0.07,
		DecayHeatBasePower:            power,
	}
	n.Precursors = neutronics.EquilibriumPrecursors(n)
	state.Neutronics = n

	// Feedback references are taken from the assembled state so that the
	// plant starts at zero feedback reactivity.
	state.Neutronics.FuelTemperatureRef = neutronics.FuelTemperature(state)
	state.Neutronics.CoolantTemperatureRef, state.Neutronics.CoolantDensityRef = neutronics.CoolantAverages(state)
	state.Neutronics.Breakdown = neutronics.ComputeReactivity(state)
	state.Neutronics.Reactivity = state.Neutronics.Breakdown.Total

	if err := state.Validate(); err != nil {
		return plant.SimulationState{}, fmt.Errorf("build pwr: %w", err)
	}
	return state, nil
}
