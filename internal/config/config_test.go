package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/bouncebox/internal/cv"
	"github.com/san-kum/bouncebox/internal/kind"
	"github.com/san-kum/bouncebox/internal/params"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.TickRate != 60 {
		t.Errorf("expected tick rate 60, got %f", cfg.TickRate)
	}
	if cfg.Router.CooldownMs != 50 {
		t.Errorf("expected cooldown 50ms, got %d", cfg.Router.CooldownMs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
	if cfg.WorldWidth() != 16 || cfg.WorldHeight() != 12 {
		t.Errorf("expected 16x12 world, got %fx%f", cfg.WorldWidth(), cfg.WorldHeight())
	}
}

func TestPresetsValidate(t *testing.T) {
	for _, name := range ListPresets() {
		if err := GetPreset(name).Validate(); err != nil {
			t.Errorf("preset %s: %v", name, err)
		}
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("zero-g")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Params["gravity"] != 0 {
		t.Errorf("expected gravity 0, got %f", cfg.Params["gravity"])
	}

	cfg.Params["gravity"] = 5
	if GetPreset("zero-g").Params["gravity"] != 0 {
		t.Error("GetPreset must return a copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if cfg := GetPreset("nonexistent"); cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets()
	want := []string{"calm", "dense", "storm", "zero-g"}
	if len(presets) != len(want) {
		t.Fatalf("expected %v, got %v", want, presets)
	}
	for i := range want {
		if presets[i] != want[i] {
			t.Errorf("expected %v, got %v", want, presets)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		edit func(c *Config)
	}{
		{"tick rate", func(c *Config) { c.TickRate = 0 }},
		{"canvas", func(c *Config) { c.Canvas.PixelsPerMeter = 0 }},
		{"population", func(c *Config) { c.Population = 0 }},
		{"queue", func(c *Config) { c.Queues.Hits = 0 }},
		{"backend", func(c *Config) { c.Audio.Backend = "jack" }},
		{"voices", func(c *Config) { c.Audio.Voices = 99 }},
		{"smoothing", func(c *Config) { c.Aggregator.Smoothing = 1 }},
		{"lfo channel", func(c *Config) { c.Inputs.LFOs = []LFOConfig{{Channel: "friction", Rate: 1}} }},
		{"clock kind", func(c *Config) { c.Inputs.Clocks = []ClockConfig{{Kind: "hexagon", Rate: 1}} }},
		{"param", func(c *Config) { c.Params = map[string]float64{"viscosity": 1} }},
	}
	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.edit(cfg)
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: expected ErrInvalidConfig, got %v", tt.name, err)
		}
	}
}

func TestLoadSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bouncebox.yaml")
	cfg := GetPreset("storm")
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Inputs.LFOs) != 2 || got.Params["wind"] != 6 {
		t.Errorf("round trip lost data: %+v", got)
	}
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("population: 10\naudio:\n  backend: off\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Population != 10 || cfg.Audio.Backend != "off" {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.Audio.SampleRate != DefaultConfig().Audio.SampleRate {
		t.Error("unset fields should keep defaults")
	}
}

func TestApplyParams(t *testing.T) {
	cfg := GetPreset("calm")
	store := params.NewStore()
	if err := cfg.ApplyParams(store); err != nil {
		t.Fatal(err)
	}
	if store.Cap() != 32 {
		t.Errorf("expected cap 32, got %d", store.Cap())
	}
	if store.Get(params.Gravity) != 4 {
		t.Errorf("expected gravity 4, got %f", store.Get(params.Gravity))
	}
}

func TestAudioSource(t *testing.T) {
	cfg := GetPreset("storm")
	src, err := cfg.AudioSource()
	if err != nil {
		t.Fatal(err)
	}
	in := src.Fill(16)
	if in.Mod[cv.ModWind] == nil || in.Mod[cv.ModVortexSpin] == nil {
		t.Error("expected wind and spin generators")
	}
	if in.Mod[cv.ModGravity] != nil {
		t.Error("gravity should stay disconnected")
	}
	if in.Triggers[kind.Ball] == nil || in.Triggers[kind.Square] != nil {
		t.Error("expected only the ball clock")
	}
}

func TestModChannel(t *testing.T) {
	tests := []struct {
		name string
		want cv.Channel
	}{
		{"gravity", cv.ModGravity},
		{"wind", cv.ModWind},
		{"vortex_strength", cv.ModVortexStrength},
		{"vortex_spin", cv.ModVortexSpin},
	}
	for _, tt := range tests {
		got, err := ModChannel(tt.name)
		if err != nil || got != tt.want {
			t.Errorf("%s: got %v %v", tt.name, got, err)
		}
	}
}
