package config

import (
	"maps"
	"slices"
)

func preset(edit func(c *Config)) *Config {
	c := DefaultConfig()
	edit(c)
	return c
}

var Presets = map[string]*Config{
	"calm": preset(func(c *Config) {
		c.Population = 32
		c.Params = map[string]float64{"gravity": 4, "wind": 0, "vortex_strength": 10, "vortex_spin": 5}
		c.Aggregator.Smoothing = 0.8
	}),
	"storm": preset(func(c *Config) {
		c.Params = map[string]float64{"wind": 6, "vortex_strength": 120, "vortex_spin": 60}
		c.Inputs.LFOs = []LFOConfig{
			{Channel: "wind", Wave: "sine", Rate: 0.15, Depth: 0.8, Offset: 0.5},
			{Channel: "vortex_spin", Wave: "triangle", Rate: 0.05, Depth: 1, Offset: 0.5},
		}
		c.Inputs.Clocks = []ClockConfig{{Kind: "ball", Rate: 3}}
	}),
	"zero-g": preset(func(c *Config) {
		c.Params = map[string]float64{"gravity": 0, "inertial_scale": 2}
		c.Aggregator.Smoothing = 0.5
	}),
	"dense": preset(func(c *Config) {
		c.Population = 256
		c.Audio.Voices = 16
		c.Queues.Spawn = 1024
		c.Queues.Hits = 1024
		c.Inputs.Clocks = []ClockConfig{
			{Kind: "ball", Rate: 8},
			{Kind: "square", Rate: 5},
			{Kind: "triangle", Rate: 3},
		}
	}),
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *p
	c.Params = maps.Clone(p.Params)
	c.Inputs.LFOs = slices.Clone(p.Inputs.LFOs)
	c.Inputs.Clocks = slices.Clone(p.Inputs.Clocks)
	return &c
}

// ListPresets returns the preset names in order.
func ListPresets() []string {
	return slices.Sorted(maps.Keys(Presets))
}
