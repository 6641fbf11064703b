package neutronics

import (
	"fmt"

	"github.com/san-kum/pwrsim/internal/plant"
)

// Scram reasons.
const (
	ReasonHighPower       = "high power"
	ReasonLowPower        = "low power"
	ReasonFuelTemperature = "high fuel temperature"
	ReasonLowCoreFlow     = "low core flow"
	ReasonManual          = "manual"
)

// Limits are the reactor protection trip setpoints.
type Limits struct {
	HighPower        float64 `yaml:"high_power"`          // fraction of nominal
	LowPower         float64 `yaml:"low_power"`           // fraction of nominal, armed once exceeded
	FuelTemperature  float64 `yaml:"fuel_temperature"`    // fraction of rated maximum
	MinCoreFlow      float64 `yaml:"min_core_flow"`       // kg/s, zero disables
	FlowTripMinPower float64 `yaml:"flow_trip_min_power"` // population above which the flow trip is live
	ClearRodPosition float64 `yaml:"clear_rod_position"`  // rods beyond this may clear a scram
}

func DefaultLimits() Limits {
	return Limits{
		HighPower:        1.25,
		LowPower:         0.12,
		FuelTemperature:  0.95,
		MinCoreFlow:      1000,
		FlowTripMinPower: 0.05,
		ClearRodPosition: 0.2,
	}
}

// TriggerScram inserts all rods and latches the scram. A second call on a
// scrammed state changes nothing.
func TriggerScram(state plant.SimulationState, reason string) plant.SimulationState {
	if state.Neutronics.Scrammed {
		return state
	}
	n := state.Neutronics
	n.Scrammed = true
	n.ScramTime = state.Time
	n.ScramReason = reason
	n.ControlRodPosition = 0
	n.LowPowerTripArmed = false
	state.Neutronics = n
	return state
}

// CheckScramConditions evaluates the trip setpoints against state.
func (l Limits) CheckScramConditions(state plant.SimulationState) (bool, string) {
	n := state.Neutronics
	power := n.PowerFraction()

	if l.HighPower > 0 && power > l.HighPower {
		return true, fmt.Sprintf("%s (%.1f%%)", ReasonHighPower, power*100)
	}
	if n.LowPowerTripArmed && power < l.LowPower {
		return true, fmt.Sprintf("%s (%.1f%%)", ReasonLowPower, power*100)
	}
	for _, id := range state.ThermalNodeIDs() {
		node := state.ThermalNodes[id]
		isFuel := id == n.FuelNodeID || plant.HasLabel(node.Label, FuelLabels...)
		if isFuel && node.MaxTemperature > 0 && node.Temperature > l.FuelTemperature*node.MaxTemperature {
			return true, fmt.Sprintf("%s (%s %.0fK)", ReasonFuelTemperature, id, node.Temperature)
		}
	}
	if l.MinCoreFlow > 0 && n.CoolantNodeID != "" && n.NeutronPopulation > l.FlowTripMinPower {
		if flow := state.FlowIntoNode(n.CoolantNodeID); flow < l.MinCoreFlow {
			return true, fmt.Sprintf("%s (%.0f kg/s)", ReasonLowCoreFlow, flow)
		}
	}
	return false, ""
}
