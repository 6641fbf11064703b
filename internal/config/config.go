package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/pwrsim/internal/control"
	"github.com/san-kum/pwrsim/internal/logging"
	"github.com/san-kum/pwrsim/internal/neutronics"
	"github.com/san-kum/pwrsim/internal/observability"
	"github.com/san-kum/pwrsim/internal/scenario"
	"github.com/san-kum/pwrsim/internal/solver"
	"github.com/san-kum/pwrsim/internal/steam"
)

const (
	DefaultScenario    = "steady"
	DefaultDt          = 0.1
	DefaultDuration    = 60.0
	DefaultSampleEvery = 1
)

var ErrInvalidConfig = errors.New("config: invalid")

type Config struct {
	Scenario    string                      `yaml:"scenario"`
	Dt          float64                     `yaml:"dt"`
	Duration    float64                     `yaml:"duration"`
	SampleEvery int                         `yaml:"sample_every"`
	Plant       scenario.PWRParams          `yaml:"plant"`
	EOS         EOSConfig                   `yaml:"eos"`
	Limits      neutronics.Limits           `yaml:"limits"`
	Rods        control.RodConfig           `yaml:"rods"`
	Events      []scenario.Event            `yaml:"events,omitempty"`
	Log         logging.Config              `yaml:"log"`
	Tracing     observability.TracingConfig `yaml:"tracing"`
}

// EOSConfig selects the water property solver settings.
type EOSConfig struct {
	MaxIterations int               `yaml:"max_iterations"`
	Table         bool              `yaml:"table"`
	Grid          steam.TableConfig `yaml:"grid"`
}

func DefaultConfig() *Config {
	return &Config{
		Scenario:    DefaultScenario,
		Dt:          DefaultDt,
		Duration:    DefaultDuration,
		SampleEvery: DefaultSampleEvery,
		Plant:       scenario.DefaultPWRParams(),
		EOS: EOSConfig{
			MaxIterations: steam.DefaultMaxIterations,
			Table:         true,
			Grid:          steam.DefaultTableConfig(),
		},
		Limits:  neutronics.DefaultLimits(),
		Rods:    control.DefaultRodConfig(),
		Log:     logging.Config{Level: "info", Format: "text"},
		Tracing: observability.DefaultTracingConfig(),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks run settings and every scripted event.
func (c *Config) Validate() error {
	switch {
	case !(c.Dt > 0):
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalidConfig, c.Dt)
	case !(c.Duration > 0):
		return fmt.Errorf("%w: duration must be positive, got %g", ErrInvalidConfig, c.Duration)
	case c.Duration < c.Dt:
		return fmt.Errorf("%w: duration %g shorter than dt %g", ErrInvalidConfig, c.Duration, c.Dt)
	case c.SampleEvery < 0:
		return fmt.Errorf("%w: sample_every must be non-negative", ErrInvalidConfig)
	case c.EOS.MaxIterations < 0:
		return fmt.Errorf("%w: eos.max_iterations must be non-negative", ErrInvalidConfig)
	case c.Limits.HighPower > 0 && c.Limits.LowPower >= c.Limits.HighPower:
		return fmt.Errorf("%w: low power trip %g not below high power trip %g", ErrInvalidConfig, c.Limits.LowPower, c.Limits.HighPower)
	}
	if c.Rods.Enabled {
		if err := c.Rods.Validate(); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
		}
	}
	for i, e := range c.Events {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("%w: events[%d]: %w", ErrInvalidConfig, i, err)
		}
		if e.At > c.Duration {
			return fmt.Errorf("%w: events[%d] at %gs is after the run ends", ErrInvalidConfig, i, e.At)
		}
	}
	return nil
}

// SolverConfig is the scheduler run configuration.
func (c *Config) SolverConfig() solver.Config {
	cfg := solver.DefaultConfig()
	cfg.Dt = c.Dt
	cfg.Duration = c.Duration
	cfg.SampleEvery = c.SampleEvery
	return cfg
}

// RodControl is the effective rod control for a scenario. A scenario
// with a power setpoint turns automatic control on at that setpoint
// unless the config already enables it.
func (c *Config) RodControl(sc scenario.Scenario) control.RodConfig {
	rods := c.Rods
	if !rods.Enabled && sc.RodSetpoint > 0 {
		rods.Enabled = true
		rods.Setpoint = sc.RodSetpoint
	}
	return rods
}

// NewEOS builds the water property solver. The shared default table is
// reused when the grid is unchanged.
func (c *Config) NewEOS(logger *slog.Logger) *steam.Solver {
	opts := []steam.Option{steam.WithLogger(logger)}
	if c.EOS.MaxIterations > 0 {
		opts = append(opts, steam.WithMaxIterations(c.EOS.MaxIterations))
	}
	switch {
	case !c.EOS.Table:
		opts = append(opts, steam.WithTable(nil))
	case c.EOS.Grid != steam.DefaultTableConfig():
		opts = append(opts, steam.WithTable(steam.NewTable(c.EOS.Grid)))
	}
	return steam.NewSolver(opts...)
}
