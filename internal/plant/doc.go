// Package plant defines the world state shared by every simulation operator.
//
// The package holds only data and the invariants over it:
//
//   - [SimulationState]: the entire plant at simulated time t
//   - [Fluid]: conserved water inventory of a control volume plus its
//     EOS-closed intensive state and passive non-condensible gas
//   - [FlowNode], [FlowConnection]: the hydraulic network
//   - [ThermalNode], [ThermalConnection], [ConvectionConnection]: solids
//     and their coupling to the fluid
//   - [NeutronicsState]: point-kinetics core state and SCRAM flags
//   - [Components]: pumps, valves and check valves
//
// # Copy on write
//
// Operators receive a SimulationState by value and must not mutate the maps
// or slices reachable from it. Use [SimulationState.Clone] before writing:
//
//	next := state.Clone()
//	node := next.FlowNodes[id]
//	node.Fluid.Mass += dm
//	next.FlowNodes[id] = node
package plant
