package audio

import (
	"math"
	"sync/atomic"

	"github.com/san-kum/bouncebox/internal/cv"
	"github.com/san-kum/bouncebox/internal/kind"
	"github.com/san-kum/bouncebox/internal/queue"
)

const (
	DefaultSampleRate = 48000
	DefaultBlockSize  = 256
	DefaultVoices     = 8

	// TriggerThreshold is the level a trigger input must rise through.
	TriggerThreshold = 0.5
)

// Config sets up the render path.
type Config struct {
	SampleRate int
	BlockSize  int
	Voices     int
	Cutoff     float64 // low-pass on the mix in Hz, 0 disables
	Room       float64 // delay send in [0,1]
	RoomTime   float64 // delay length in seconds
}

// DefaultConfig returns the stock render configuration.
func DefaultConfig() Config {
	return Config{
		SampleRate: DefaultSampleRate,
		BlockSize:  DefaultBlockSize,
		Voices:     DefaultVoices,
		Cutoff:     9000,
		Room:       0.2,
		RoomTime:   0.12,
	}
}

// Inputs are the input channels for one block. A nil channel is not
// connected.
type Inputs struct {
	Triggers [kind.NumShapes][]float32
	Mod      [cv.NumChannels][]float32
}

// Outputs are the non-audio outputs of one block. Triggers[0] pulses on
// any collision, Triggers[1+k] on collisions of shape kind k.
type Outputs struct {
	Triggers [1 + kind.NumShapes]float32
	CV       [cv.NumOutputs]float32
}

// Links are the channels the processor shares with the physics tick.
type Links struct {
	Bridge  *cv.Bridge              // written here
	Outputs *cv.Outputs             // read here
	Spawns  *queue.Ring[kind.Shape] // produced here
	Hits    *queue.Ring[Hit]        // consumed here
	Tap     *queue.Ring[float32]    // optional mono copy of the mix
}

// Processor is the render callback.
type Processor struct {
	cfg    Config
	links  Links
	pool   *Pool
	pulses Pulses

	prev   [kind.NumShapes]float32
	filter [2]float64
	alpha  float64
	delay  [2][]float64
	head   int
	mono   []float32

	onHit func(Hit)

	blocks     atomic.Uint64
	spawnDrops atomic.Uint64
}

// NewProcessor allocates everything Render needs up front.
func NewProcessor(cfg Config, links Links) *Processor {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = DefaultSampleRate
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = DefaultBlockSize
	}
	p := &Processor{
		cfg:   cfg,
		links: links,
		pool:  NewPool(cfg.Voices, cfg.SampleRate),
		mono:  make([]float32, cfg.BlockSize),
	}
	if cfg.Cutoff > 0 {
		dt := 1 / float64(cfg.SampleRate)
		rc := 1 / (2 * math.Pi * cfg.Cutoff)
		p.alpha = dt / (rc + dt)
	}
	if cfg.Room > 0 && cfg.RoomTime > 0 {
		n := max(1, int(cfg.RoomTime*float64(cfg.SampleRate)))
		p.delay = [2][]float64{make([]float64, n), make([]float64, n)}
	}
	p.onHit = p.hit
	return p
}

// Pool returns the voice pool.
func (p *Processor) Pool() *Pool { return p.pool }

// Pulses returns the pulse flags.
func (p *Processor) Pulses() *Pulses { return &p.pulses }

// Blocks returns the number of rendered blocks. Safe from any goroutine.
func (p *Processor) Blocks() uint64 { return p.blocks.Load() }

// SpawnDrops returns how many trigger spawns the full spawn queue dropped.
func (p *Processor) SpawnDrops() uint64 { return p.spawnDrops.Load() }

func (p *Processor) hit(h Hit) {
	profile := ProfileOf(h.Material)
	if profile.Silent() {
		return
	}
	p.pool.Trigger(profile, h.Impulse, h.Pan)
	p.pulses.Fire(h.Kind)
}

// detect pushes one spawn per rising edge through TriggerThreshold.
func (p *Processor) detect(k kind.Shape, block []float32) {
	if block == nil {
		p.prev[k] = 0
		return
	}
	prev := p.prev[k]
	for _, x := range block {
		if prev < TriggerThreshold && x >= TriggerThreshold {
			if p.links.Spawns == nil || !p.links.Spawns.Push(k) {
				p.spawnDrops.Add(1)
			}
		}
		prev = x
	}
	p.prev[k] = prev
}

// Render processes one block. out is overwritten.
func (p *Processor) Render(in Inputs, out [][2]float64) Outputs {
	if p.links.Bridge != nil {
		for c := range cv.NumChannels {
			p.links.Bridge.Publish(cv.Channel(c), in.Mod[c])
		}
	}
	for k := range kind.NumShapes {
		p.detect(kind.Shape(k), in.Triggers[k])
	}
	if p.links.Hits != nil {
		p.links.Hits.Drain(p.onHit)
	}

	for i := range out {
		out[i] = [2]float64{}
	}
	p.pool.Mix(out)
	p.post(out)

	var o Outputs
	if p.pulses.ReadAny() {
		o.Triggers[0] = 1
	}
	for k := range kind.NumShapes {
		if p.pulses.Read(kind.Shape(k)) {
			o.Triggers[1+k] = 1
		}
	}
	if p.links.Outputs != nil {
		p.links.Outputs.ReadAll(&o.CV)
	}
	p.blocks.Add(1)
	return o
}

// post filters the mix, adds the room and feeds the tap.
func (p *Processor) post(out [][2]float64) {
	for i := range out {
		l, r := out[i][0], out[i][1]
		if p.alpha > 0 {
			p.filter[0] += p.alpha * (l - p.filter[0])
			p.filter[1] += p.alpha * (r - p.filter[1])
			l, r = p.filter[0], p.filter[1]
		}
		if p.delay[0] != nil {
			dl, dr := p.delay[0][p.head], p.delay[1][p.head]
			// ping-pong feedback
			p.delay[0][p.head] = l + dr*0.4
			p.delay[1][p.head] = r + dl*0.4
			p.head = (p.head + 1) % len(p.delay[0])
			l += dl * p.cfg.Room
			r += dr * p.cfg.Room
		}
		out[i][0], out[i][1] = l, r
	}

	if p.links.Tap == nil {
		return
	}
	for off := 0; off < len(out); off += len(p.mono) {
		n := min(len(p.mono), len(out)-off)
		for i := 0; i < n; i++ {
			s := out[off+i]
			p.mono[i] = float32((s[0] + s[1]) / 2)
		}
		p.links.Tap.PushBatch(p.mono[:n])
	}
}
