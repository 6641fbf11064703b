package plant

import "fmt"

// Pump drives the mass flow of the loop connections it serves.
type Pump struct {
	ID            string
	Connections   []string
	RatedFlow     float64 // kg/s at full speed
	Speed         float64 // fraction of rated, [0,1]
	Running       bool
	CoastdownTime float64 // e-folding time after trip, s
	SpinUpTime    float64 // time to full speed, s
}

// Valve scales the flow of one connection by its opening. On a connection
// without a pump the valve sets the flow to RatedFlow·Opening.
type Valve struct {
	ID           string
	ConnectionID string
	Opening      float64 // [0,1]
	RatedFlow    float64 // kg/s, signed along the connection
}

// CheckValve blocks reverse flow on a connection.
type CheckValve struct {
	ID           string
	ConnectionID string
}

type Components struct {
	Pumps       map[string]Pump
	Valves      map[string]Valve
	CheckValves map[string]CheckValve
}

func (c Components) Clone() Components {
	out := Components{}
	if c.Pumps != nil {
		out.Pumps = make(map[string]Pump, len(c.Pumps))
		for k, p := range c.Pumps {
			p.Connections = append([]string(nil), p.Connections...)
			out.Pumps[k] = p
		}
	}
	if c.Valves != nil {
		out.Valves = make(map[string]Valve, len(c.Valves))
		for k, v := range c.Valves {
			out.Valves[k] = v
		}
	}
	if c.CheckValves != nil {
		out.CheckValves = make(map[string]CheckValve, len(c.CheckValves))
		for k, v := range c.CheckValves {
			out.CheckValves[k] = v
		}
	}
	return out
}

func (c Components) validate(s SimulationState) error {
	conns := make(map[string]bool, len(s.FlowConnections))
	for _, fc := range s.FlowConnections {
		conns[fc.ID] = true
	}
	check := func(kind, id, connID string) error {
		if !conns[connID] {
			return fmt.Errorf("%w: %s %q references connection %q", ErrUnknownComponent, kind, id, connID)
		}
		return nil
	}
	for id, p := range c.Pumps {
		for _, cid := range p.Connections {
			if err := check("pump", id, cid); err != nil {
				return err
			}
		}
	}
	for id, v := range c.Valves {
		if err := check("valve", id, v.ConnectionID); err != nil {
			return err
		}
	}
	for id, v := range c.CheckValves {
		if err := check("check valve", id, v.ConnectionID); err != nil {
			return err
		}
	}
	return nil
}
