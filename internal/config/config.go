package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/san-kum/bouncebox/internal/audio"
	"github.com/san-kum/bouncebox/internal/cv"
	"github.com/san-kum/bouncebox/internal/kind"
	"github.com/san-kum/bouncebox/internal/params"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTickRate       = 60.0
	DefaultWidth          = 800
	DefaultHeight         = 600
	DefaultPixelsPerMeter = 50.0
	DefaultQueueSize      = 256
	DefaultMass           = 1.0
	DefaultCooldownMs     = 50
	DefaultMaxVelocity    = 20.0
	DefaultAddr           = "localhost:7400"
	DefaultBroadcastHz    = 20.0
)

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("config: invalid")

type Config struct {
	TickRate   float64            `yaml:"tick_rate"`
	Canvas     CanvasConfig       `yaml:"canvas"`
	Population int                `yaml:"population"`
	Spawn      SpawnConfig        `yaml:"spawn"`
	Queues     QueueConfig        `yaml:"queues"`
	Audio      AudioConfig        `yaml:"audio"`
	Router     RouterConfig       `yaml:"router"`
	Aggregator AggregatorConfig   `yaml:"aggregator"`
	Emitters   EmitterConfig      `yaml:"emitters"`
	Inputs     InputsConfig       `yaml:"inputs"`
	Server     ServerConfig       `yaml:"server"`
	Params     map[string]float64 `yaml:"params,omitempty"`
}

type CanvasConfig struct {
	Width          int     `yaml:"width"`
	Height         int     `yaml:"height"`
	PixelsPerMeter float64 `yaml:"pixels_per_meter"`
}

type SpawnConfig struct {
	Mass  float64    `yaml:"mass"`
	Point [2]float64 `yaml:"point,flow"` // world units
}

type QueueConfig struct {
	Spawn   int `yaml:"spawn"`
	Destroy int `yaml:"destroy"`
	Stroke  int `yaml:"stroke"`
	Control int `yaml:"control"`
	Hits    int `yaml:"hits"`
}

type AudioConfig struct {
	Backend    string  `yaml:"backend"` // speaker, portaudio, headless or off
	SampleRate int     `yaml:"sample_rate"`
	BlockSize  int     `yaml:"block_size"`
	Voices     int     `yaml:"voices"`
	Volume     float64 `yaml:"volume"`
	Cutoff     float64 `yaml:"cutoff"`
	Room       float64 `yaml:"room"`
}

type RouterConfig struct {
	CooldownMs       int     `yaml:"cooldown_ms"`
	ImpulseThreshold float64 `yaml:"impulse_threshold"`
	ConveyorSpeed    float64 `yaml:"conveyor_speed"`
	GooRestitution   float64 `yaml:"goo_restitution"`
	MudDamping       float64 `yaml:"mud_damping"`
}

type AggregatorConfig struct {
	MaxVelocity float64 `yaml:"max_velocity"`
	Smoothing   float64 `yaml:"smoothing"`
}

type EmitterConfig struct {
	MaxCatchUp int `yaml:"max_catch_up"` // 0 is unbounded
}

// InputsConfig describes built-in generators for input channels that have
// no external signal.
type InputsConfig struct {
	LFOs   []LFOConfig   `yaml:"lfos,omitempty"`
	Clocks []ClockConfig `yaml:"clocks,omitempty"`
}

type LFOConfig struct {
	Channel string  `yaml:"channel"` // gravity, wind, vortex_strength, vortex_spin
	Wave    string  `yaml:"wave"`
	Rate    float64 `yaml:"rate"`
	Depth   float64 `yaml:"depth"`
	Offset  float64 `yaml:"offset"`
}

type ClockConfig struct {
	Kind string  `yaml:"kind"`
	Rate float64 `yaml:"rate"`
}

type ServerConfig struct {
	Addr        string  `yaml:"addr"`
	BroadcastHz float64 `yaml:"broadcast_hz"`
}

func DefaultConfig() *Config {
	return &Config{
		TickRate: DefaultTickRate,
		Canvas: CanvasConfig{
			Width:          DefaultWidth,
			Height:         DefaultHeight,
			PixelsPerMeter: DefaultPixelsPerMeter,
		},
		Population: int(params.SpecOf(params.PopulationCap).Default),
		Spawn: SpawnConfig{
			Mass:  DefaultMass,
			Point: [2]float64{DefaultWidth / DefaultPixelsPerMeter / 2, DefaultHeight / DefaultPixelsPerMeter * 0.9},
		},
		Queues: QueueConfig{
			Spawn:   DefaultQueueSize,
			Destroy: DefaultQueueSize,
			Stroke:  64,
			Control: 16,
			Hits:    DefaultQueueSize,
		},
		Audio: AudioConfig{
			Backend:    string(audio.Headless),
			SampleRate: audio.DefaultSampleRate,
			BlockSize:  audio.DefaultBlockSize,
			Voices:     audio.DefaultVoices,
			Volume:     0.8,
			Cutoff:     9000,
			Room:       0.2,
		},
		Router: RouterConfig{
			CooldownMs:       DefaultCooldownMs,
			ImpulseThreshold: 0.5,
			ConveyorSpeed:    4,
			GooRestitution:   1.4,
			MudDamping:       8,
		},
		Aggregator: AggregatorConfig{
			MaxVelocity: DefaultMaxVelocity,
		},
		Server: ServerConfig{
			Addr:        DefaultAddr,
			BroadcastHz: DefaultBroadcastHz,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
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

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate checks ranges and names.
func (c *Config) Validate() error {
	if c.TickRate <= 0 || c.TickRate > 1000 {
		return invalid("tick_rate %v", c.TickRate)
	}
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 || c.Canvas.PixelsPerMeter <= 0 {
		return invalid("canvas %+v", c.Canvas)
	}
	capSpec := params.SpecOf(params.PopulationCap)
	if float64(c.Population) < capSpec.Min || float64(c.Population) > capSpec.Max {
		return invalid("population %d outside [%v, %v]", c.Population, capSpec.Min, capSpec.Max)
	}
	if c.Spawn.Mass <= 0 {
		return invalid("spawn mass %v", c.Spawn.Mass)
	}
	for name, n := range map[string]int{
		"spawn": c.Queues.Spawn, "destroy": c.Queues.Destroy, "stroke": c.Queues.Stroke,
		"control": c.Queues.Control, "hits": c.Queues.Hits,
	} {
		if n <= 0 {
			return invalid("queue %s size %d", name, n)
		}
	}
	switch c.Audio.Backend {
	case "off", string(audio.Speaker), string(audio.PortAudio), string(audio.Headless):
	default:
		return invalid("audio backend %q", c.Audio.Backend)
	}
	if c.Audio.SampleRate <= 0 || c.Audio.BlockSize <= 0 || c.Audio.Voices <= 0 {
		return invalid("audio %+v", c.Audio)
	}
	if c.Audio.Voices > audio.MaxVoices {
		return invalid("audio voices %d exceeds %d", c.Audio.Voices, audio.MaxVoices)
	}
	if c.Router.CooldownMs < 0 || c.Router.ImpulseThreshold < 0 {
		return invalid("router %+v", c.Router)
	}
	if c.Aggregator.MaxVelocity <= 0 || c.Aggregator.Smoothing < 0 || c.Aggregator.Smoothing >= 1 {
		return invalid("aggregator %+v", c.Aggregator)
	}
	if c.Emitters.MaxCatchUp < 0 {
		return invalid("emitters max_catch_up %d", c.Emitters.MaxCatchUp)
	}
	for _, l := range c.Inputs.LFOs {
		if _, err := ModChannel(l.Channel); err != nil {
			return invalid("lfo: %v", err)
		}
		if _, err := audio.ParseWave(l.Wave); err != nil {
			return invalid("lfo: %v", err)
		}
		if l.Rate <= 0 {
			return invalid("lfo %s rate %v", l.Channel, l.Rate)
		}
	}
	for _, ck := range c.Inputs.Clocks {
		if _, err := kind.ParseShape(ck.Kind); err != nil {
			return invalid("clock: %v", err)
		}
		if ck.Rate <= 0 {
			return invalid("clock %s rate %v", ck.Kind, ck.Rate)
		}
	}
	for name := range c.Params {
		if _, ok := params.Lookup(name); !ok {
			return invalid("unknown param %q", name)
		}
	}
	return nil
}

// ModChannel maps a channel name to its modulation channel.
func ModChannel(name string) (cv.Channel, error) {
	for c := cv.Channel(0); c < cv.NumChannels; c++ {
		if c.Param().String() == name {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown modulation channel: %s", name)
}

// ApplyParams writes the base parameter values into store.
func (c *Config) ApplyParams(store *params.Store) error {
	store.Set(params.PopulationCap, float64(c.Population))
	for name, v := range c.Params {
		if _, err := store.SetByName(name, v); err != nil {
			return err
		}
	}
	return nil
}

// AudioSource builds the configured input generators.
func (c *Config) AudioSource() (*audio.Source, error) {
	src := audio.NewSource(c.Audio.BlockSize)
	for _, l := range c.Inputs.LFOs {
		ch, err := ModChannel(l.Channel)
		if err != nil {
			return nil, err
		}
		wave, err := audio.ParseWave(l.Wave)
		if err != nil {
			return nil, err
		}
		src.Mod[ch] = audio.NewLFO(wave, l.Rate, l.Depth, l.Offset, c.Audio.SampleRate)
	}
	for _, ck := range c.Inputs.Clocks {
		k, err := kind.ParseShape(ck.Kind)
		if err != nil {
			return nil, err
		}
		src.Triggers[k] = audio.NewClock(ck.Rate, c.Audio.SampleRate)
	}
	return src, nil
}

// RenderConfig returns the render configuration.
func (c *Config) RenderConfig() audio.Config {
	return audio.Config{
		SampleRate: c.Audio.SampleRate,
		BlockSize:  c.Audio.BlockSize,
		Voices:     c.Audio.Voices,
		Cutoff:     c.Audio.Cutoff,
		Room:       c.Audio.Room,
		RoomTime:   audio.DefaultConfig().RoomTime,
	}
}

// WorldWidth returns the canvas width in world units.
func (c *Config) WorldWidth() float64 { return float64(c.Canvas.Width) / c.Canvas.PixelsPerMeter }

// WorldHeight returns the canvas height in world units.
func (c *Config) WorldHeight() float64 { return float64(c.Canvas.Height) / c.Canvas.PixelsPerMeter }
