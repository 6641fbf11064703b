package thermal

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/pwrsim/internal/plant"
	"github.com/san-kum/pwrsim/internal/steam"
)

func solids() plant.SimulationState {
	return plant.SimulationState{
		ThermalNodes: map[string]plant.ThermalNode{
			"a":    {ID: "a", Temperature: 400, Mass: 10, SpecificHeat: 100},
			"b":    {ID: "b", Temperature: 300, Mass: 10, SpecificHeat: 100},
			"sink": {ID: "sink", Temperature: 280, Mass: 1, SpecificHeat: 1, Fixed: true},
		},
		ThermalConnections: []plant.ThermalConnection{
			{ID: "ab", A: "a", B: "b", Conductance: 10},
		},
	}
}

func TestConductionConservesEnergy(t *testing.T) {
	op := NewOperator(nil, nil)
	next, err := op.Apply(solids(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := next.ThermalNodes["a"].Temperature; math.Abs(got-399) > 1e-12 {
		t.Errorf("a: got %v, want 399", got)
	}
	if got := next.ThermalNodes["b"].Temperature; math.Abs(got-301) > 1e-12 {
		t.Errorf("b: got %v, want 301", got)
	}
}

func TestFixedNodeHoldsTemperature(t *testing.T) {
	s := solids()
	s.ThermalConnections = append(s.ThermalConnections, plant.ThermalConnection{ID: "b-sink", A: "b", B: "sink", Conductance: 50})
	next, err := NewOperator(nil, nil).Apply(s, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := next.ThermalNodes["sink"].Temperature; got != 280 {
		t.Errorf("sink moved to %v", got)
	}
	// b gains 1000 W from a and loses 1000 W to the sink
	if got := next.ThermalNodes["b"].Temperature; math.Abs(got-300) > 1e-12 {
		t.Errorf("b: got %v, want 300", got)
	}
}

func TestPowerSplitByFuelMass(t *testing.T) {
	s := plant.SimulationState{
		ThermalNodes: map[string]plant.ThermalNode{
			"f1": {ID: "f1", Label: "fuel inner", Temperature: 600, Mass: 1, SpecificHeat: 100},
			"f2": {ID: "f2", Label: "fuel outer", Temperature: 600, Mass: 3, SpecificHeat: 100},
		},
		Neutronics: plant.NeutronicsState{Power: 400},
	}
	rates, err := ComputeHeatRates(s)
	if err != nil {
		t.Fatal(err)
	}
	if rates.Thermal["f1"] != 100 || rates.Thermal["f2"] != 300 {
		t.Errorf("got %v", rates.Thermal)
	}

	s.ThermalNodes = map[string]plant.ThermalNode{
		"pin": {ID: "pin", Temperature: 600, Mass: 1, SpecificHeat: 100},
	}
	s.Neutronics.FuelNodeID = "pin"
	rates, _ = ComputeHeatRates(s)
	if rates.Thermal["pin"] != 400 {
		t.Errorf("fallback: got %v", rates.Thermal)
	}
}

func TestConvectionHeatsFluid(t *testing.T) {
	u, rho := steam.CompressedLiquid(560, 15.5e6)
	mass := 1000.0
	fluid := steam.Default().Close(plant.Fluid{Mass: mass, InternalEnergy: u * mass}, mass/rho)

	s := plant.SimulationState{
		ThermalNodes: map[string]plant.ThermalNode{
			"tube": {ID: "tube", Temperature: 600, Mass: 100, SpecificHeat: 500},
		},
		FlowNodes: map[string]plant.FlowNode{
			"pool": {ID: "pool", Volume: mass / rho, Fluid: fluid},
		},
		ConvectionConnections: []plant.ConvectionConnection{
			{ID: "tube-pool", ThermalNodeID: "tube", FlowNodeID: "pool", Conductance: 1000},
		},
	}
	op := NewOperator(nil, nil)
	next, err := op.Apply(s, 1)
	if err != nil {
		t.Fatal(err)
	}
	q := 1000 * (600 - fluid.Temperature)
	gotU := next.FlowNodes["pool"].Fluid.InternalEnergy - fluid.InternalEnergy
	if math.Abs(gotU-q) > 1e-3 {
		t.Errorf("fluid energy gain: got %v, want %v", gotU, q)
	}
	gotT := 600 - next.ThermalNodes["tube"].Temperature
	if math.Abs(gotT-q/(100*500)) > 1e-9 {
		t.Errorf("tube cooling: got %v", gotT)
	}
	if next.FlowNodes["pool"].Fluid.Temperature <= fluid.Temperature {
		t.Error("fluid temperature did not rise")
	}
}

func TestMaxStableDt(t *testing.T) {
	op := NewOperator(nil, nil)
	// C = 1000 J/K, ΣG = 10 W/K on both nodes
	if got := op.MaxStableDt(solids()); math.Abs(got-50) > 1e-12 {
		t.Errorf("got %v, want 50", got)
	}
	if got := op.SubcycleCount(solids(), 120); got != 3 {
		t.Errorf("SubcycleCount: got %v, want 3", got)
	}
	if got := op.MaxStableDt(plant.SimulationState{}); !math.IsInf(got, 1) {
		t.Errorf("empty: got %v", got)
	}
}

func TestUnknownNode(t *testing.T) {
	s := solids()
	s.ThermalConnections[0].B = "ghost"
	_, err := NewOperator(nil, nil).Apply(s, 1)
	if !errors.Is(err, plant.ErrUnknownNode) {
		t.Errorf("got %v", err)
	}
}
