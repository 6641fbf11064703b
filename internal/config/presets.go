package config

import (
	"sort"

	"github.com/san-kum/pwrsim/internal/scenario"
)

func preset(name string, dt, duration float64, mutate func(*Config)) *Config {
	cfg := DefaultConfig()
	cfg.Scenario = name
	cfg.Dt = dt
	cfg.Duration = duration
	if mutate != nil {
		mutate(cfg)
	}
	return cfg
}

var Presets = map[string]map[string]*Config{
	"steady": {
		"short": preset("steady", 0.1, 10, nil),
		"long":  preset("steady", 0.1, 300, func(c *Config) { c.SampleEvery = 10 }),
		"fine":  preset("steady", 0.01, 5, nil),
	},
	"pump-trip": {
		"default": preset("pump-trip", 0.1, 60, nil),
		"fast-coastdown": preset("pump-trip", 0.05, 30, func(c *Config) {
			c.Plant.PumpCoastdown = 2
		}),
		"no-flow-trip": preset("pump-trip", 0.1, 60, func(c *Config) {
			c.Limits.MinCoreFlow = 0
		}),
	},
	"scram": {
		"default": preset("scram", 0.1, 120, nil),
		"decay-heat": preset("scram", 0.5, 1800, func(c *Config) {
			c.SampleEvery = 4
		}),
	},
	"rod-insertion": {
		"default": preset("rod-insertion", 0.1, 60, nil),
		"deep": preset("rod-insertion", 0.1, 60, func(c *Config) {
			c.Events = []scenario.Event{{At: 5, Action: scenario.ActionSetRods, Value: 0.7}}
		}),
	},
	"spray-isolation": {
		"default": preset("spray-isolation", 0.1, 60, nil),
		"auto-rods": preset("spray-isolation", 0.1, 60, func(c *Config) {
			c.Rods.Enabled = true
		}),
	},
	"pump-restart": {
		"default": preset("pump-restart", 0.1, 40, nil),
	},
	"power-setback": {
		"default": preset("power-setback", 0.1, 120, nil),
		"deep": preset("power-setback", 0.1, 180, func(c *Config) {
			c.Rods.Enabled = true
			c.Rods.Setpoint = 0.5
		}),
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(scenarioName, name string) *Config {
	scenarioPresets, ok := Presets[scenarioName]
	if !ok {
		return nil
	}
	cfg, ok := scenarioPresets[name]
	if !ok {
		return nil
	}
	out := *cfg
	out.Events = append([]scenario.Event(nil), cfg.Events...)
	return &out
}

func ListPresets(scenarioName string) []string {
	scenarioPresets, ok := Presets[scenarioName]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(scenarioPresets))
	for name := range scenarioPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
