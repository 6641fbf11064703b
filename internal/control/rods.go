package control

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/pwrsim/internal/components"
	"github.com/san-kum/pwrsim/internal/logging"
	"github.com/san-kum/pwrsim/internal/plant"
	"github.com/san-kum/pwrsim/internal/solver"
)

// RodConfig tunes automatic rod control. The loop output is rod speed in
// fraction of travel per second.
type RodConfig struct {
	Enabled  bool    `yaml:"enabled"`
	Setpoint float64 `yaml:"setpoint"` // power fraction of nominal
	Kp       float64 `yaml:"kp"`       // 1/s per unit power error
	Ki       float64 `yaml:"ki"`       // 1/s² per unit power error
	Kd       float64 `yaml:"kd"`
	MaxSpeed float64 `yaml:"max_speed"` // travel fraction per second
	Deadband float64 `yaml:"deadband"`  // power fraction
}

func DefaultRodConfig() RodConfig {
	return RodConfig{
		Setpoint: 1,
		Kp:       0.05,
		Ki:       0.002,
		MaxSpeed: 0.01,
		Deadband: 0.005,
	}
}

func (c RodConfig) Validate() error {
	switch {
	case !(c.Setpoint > 0):
		return fmt.Errorf("rod control: setpoint must be positive")
	case !(c.MaxSpeed > 0):
		return fmt.Errorf("rod control: max speed must be positive")
	case c.Deadband < 0:
		return fmt.Errorf("rod control: deadband must be non-negative")
	}
	return nil
}

// RodController drives rod position to hold core power at the setpoint.
// It stands down once the reactor has scrammed.
type RodController struct {
	cfg    RodConfig
	pid    *PID
	prevT  float64
	primed bool
	logger *slog.Logger
}

func NewRodController(cfg RodConfig, logger *slog.Logger) *RodController {
	pid := NewPID(cfg.Kp, cfg.Ki, cfg.Kd, cfg.Setpoint)
	pid.Min, pid.Max = -cfg.MaxSpeed, cfg.MaxSpeed
	return &RodController{
		cfg:    cfg,
		pid:    pid,
		logger: logging.OrNoop(logger).With("controller", "rods"),
	}
}

func (r *RodController) Control(state plant.SimulationState) (plant.SimulationState, error) {
	if state.Neutronics.Scrammed {
		return state, nil
	}
	if !r.primed {
		r.prevT = state.Time
		r.primed = true
	}
	dt := state.Time - r.prevT
	r.prevT = state.Time

	power := state.Neutronics.PowerFraction()
	speed := r.pid.Update(power, state.Time)
	if math.Abs(r.cfg.Setpoint-power) <= r.cfg.Deadband || dt <= 0 {
		return state, nil
	}

	from := state.Neutronics.ControlRodPosition
	next := components.SetRodPosition(state, from+speed*dt)
	if next.Neutronics.ControlRodPosition != from {
		r.logger.Debug("rods moved", "from", from, "to", next.Neutronics.ControlRodPosition, "power", power)
	}
	return next, nil
}

// Reset forgets loop history; the next call starts a fresh loop.
func (r *RodController) Reset() {
	r.pid.Reset()
	r.primed = false
}

// Chain applies controllers in order, each seeing the previous output.
// Resetting the chain resets every member that keeps state.
func Chain(cs ...solver.Controller) solver.Controller {
	out := make(chain, 0, len(cs))
	for _, c := range cs {
		if c != nil {
			out = append(out, c)
		}
	}
	return out
}

type chain []solver.Controller

func (ch chain) Control(state plant.SimulationState) (plant.SimulationState, error) {
	for _, c := range ch {
		next, err := c.Control(state)
		if err != nil {
			return state, err
		}
		state = next
	}
	return state, nil
}

func (ch chain) Reset() {
	for _, c := range ch {
		if r, ok := c.(solver.Resetter); ok {
			r.Reset()
		}
	}
}
