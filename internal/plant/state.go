package plant

import (
	"math"
	"sort"
	"strings"
)

// FlowNode is a control volume in the hydraulic network.
type FlowNode struct {
	ID                string
	Label             string
	Fluid             Fluid
	Volume            float64 // m³
	HydraulicDiameter float64 // m
	FlowArea          float64 // m²
	Elevation         float64 // m
}

// FlowConnection is a directed edge carrying a signed mass flow rate.
// Positive MassFlowRate flows From → To.
type FlowConnection struct {
	ID                    string
	From                  string
	To                    string
	MassFlowRate          float64 // kg/s
	FlowArea              float64
	HydraulicDiameter     float64
	Length                float64
	ElevationChange       float64
	ResistanceCoefficient float64
}

// ThermalNode is a lumped solid: fuel, cladding, tube wall or a fixed sink.
type ThermalNode struct {
	ID             string
	Label          string
	Temperature    float64 // K
	Mass           float64 // kg
	SpecificHeat   float64 // J/(kg·K)
	MaxTemperature float64 // rated limit, K; zero means unrated
	Fixed          bool    // boundary node held at constant temperature
}

func (n ThermalNode) HeatCapacity() float64 {
	return n.Mass * n.SpecificHeat
}

// ThermalConnection conducts heat between two thermal nodes.
type ThermalConnection struct {
	ID          string
	A           string
	B           string
	Conductance float64 // W/K
}

// ConvectionConnection couples a thermal node to the fluid of a flow node.
type ConvectionConnection struct {
	ID            string
	ThermalNodeID string
	FlowNodeID    string
	Conductance   float64 // h·A, W/K
}

// SimulationState is the entire world at time Time.
type SimulationState struct {
	Time                  float64
	ThermalNodes          map[string]ThermalNode
	FlowNodes             map[string]FlowNode
	ThermalConnections    []ThermalConnection
	ConvectionConnections []ConvectionConnection
	FlowConnections       []FlowConnection
	Neutronics            NeutronicsState
	Components            Components
}

// Clone returns a deep copy that shares no maps or slices with s.
func (s SimulationState) Clone() SimulationState {
	c := s
	c.ThermalNodes = make(map[string]ThermalNode, len(s.ThermalNodes))
	for k, v := range s.ThermalNodes {
		c.ThermalNodes[k] = v
	}
	c.FlowNodes = make(map[string]FlowNode, len(s.FlowNodes))
	for k, v := range s.FlowNodes {
		c.FlowNodes[k] = v
	}
	c.ThermalConnections = append([]ThermalConnection(nil), s.ThermalConnections...)
	c.ConvectionConnections = append([]ConvectionConnection(nil), s.ConvectionConnections...)
	c.FlowConnections = append([]FlowConnection(nil), s.FlowConnections...)
	c.Components = s.Components.Clone()
	return c
}

// Validate checks the construction invariants: every connection references
// existing nodes, volumes are positive and inventories are non-negative.
func (s SimulationState) Validate() error {
	for _, c := range s.FlowConnections {
		for _, id := range []string{c.From, c.To} {
			if _, ok := s.FlowNodes[id]; !ok {
				return &TopologyError{Kind: "flow", ConnectionID: c.ID, NodeID: id}
			}
		}
	}
	for _, c := range s.ThermalConnections {
		for _, id := range []string{c.A, c.B} {
			if _, ok := s.ThermalNodes[id]; !ok {
				return &TopologyError{Kind: "thermal", ConnectionID: c.ID, NodeID: id}
			}
		}
	}
	for _, c := range s.ConvectionConnections {
		if _, ok := s.ThermalNodes[c.ThermalNodeID]; !ok {
			return &TopologyError{Kind: "convection", ConnectionID: c.ID, NodeID: c.ThermalNodeID}
		}
		if _, ok := s.FlowNodes[c.FlowNodeID]; !ok {
			return &TopologyError{Kind: "convection", ConnectionID: c.ID, NodeID: c.FlowNodeID}
		}
	}
	for _, n := range s.FlowNodes {
		if !(n.Volume > 0) {
			return ErrInvalidVolume
		}
		if n.Fluid.Mass < 0 {
			return ErrNegativeInventory
		}
		for _, m := range n.Fluid.NCG {
			if m < 0 {
				return ErrNegativeInventory
			}
		}
	}
	return s.Components.validate(s)
}

// IsValid reports whether every numeric field in the state is finite.
func (s SimulationState) IsValid() bool {
	if math.IsNaN(s.Time) || math.IsInf(s.Time, 0) {
		return false
	}
	for _, n := range s.FlowNodes {
		if !n.Fluid.IsValid() {
			return false
		}
	}
	for _, n := range s.ThermalNodes {
		if math.IsNaN(n.Temperature) || math.IsInf(n.Temperature, 0) {
			return false
		}
	}
	return s.Neutronics.IsValid()
}

// FlowNodeIDs returns the flow node ids in sorted order.
func (s SimulationState) FlowNodeIDs() []string {
	ids := make([]string, 0, len(s.FlowNodes))
	for id := range s.FlowNodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ThermalNodeIDs returns the thermal node ids in sorted order.
func (s SimulationState) ThermalNodeIDs() []string {
	ids := make([]string, 0, len(s.ThermalNodes))
	for id := range s.ThermalNodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// TotalWaterMass sums the fluid mass over all flow nodes.
func (s SimulationState) TotalWaterMass() float64 {
	sum := 0.0
	for _, id := range s.FlowNodeIDs() {
		sum += s.FlowNodes[id].Fluid.Mass
	}
	return sum
}

// TotalNCG sums gas moles per species over all flow nodes.
func (s SimulationState) TotalNCG() Composition {
	var total Composition
	for _, id := range s.FlowNodeIDs() {
		total = total.Add(s.FlowNodes[id].Fluid.NCG)
	}
	return total
}

// FlowIntoNode sums |ṁ| over the connections touching id.
func (s SimulationState) FlowIntoNode(id string) float64 {
	sum := 0.0
	for _, c := range s.FlowConnections {
		switch {
		case c.To == id && c.MassFlowRate > 0:
			sum += c.MassFlowRate
		case c.From == id && c.MassFlowRate < 0:
			sum -= c.MassFlowRate
		}
	}
	return sum
}

// HasLabel reports whether a node label contains any of the given markers.
func HasLabel(label string, markers ...string) bool {
	l := strings.ToLower(label)
	for _, m := range markers {
		if strings.Contains(l, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
