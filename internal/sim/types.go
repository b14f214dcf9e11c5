package sim

import (
	"github.com/san-kum/bouncebox/internal/audio"
	"github.com/san-kum/bouncebox/internal/kind"
	"github.com/san-kum/bouncebox/internal/queue"
	"github.com/san-kum/bouncebox/internal/world"
)

// CommandKind selects a control operation run on the physics goroutine.
type CommandKind int

const (
	CmdClear CommandKind = iota
	CmdLoad
	CmdSnapshot
)

var commandNames = [...]string{"clear", "load", "snapshot"}

func (k CommandKind) String() string {
	if int(k) < len(commandNames) {
		return commandNames[k]
	}
	return "unknown"
}

// Reply answers a Command. Scene is set for snapshots.
type Reply struct {
	Scene *world.Scene
	Err   error
}

// Command is a whole-world operation queued by the interaction side.
// Reply, when set, must be buffered; the driver never blocks on it.
type Command struct {
	Kind  CommandKind
	Scene *world.Scene
	Reply chan Reply
}

// Erase targets either an object or a stroke.
type Erase struct {
	Object world.ObjectID
	Stroke world.StrokeID
}

// Queues are the rings feeding and fed by the physics goroutine. Any of
// them may be nil.
type Queues struct {
	Spawns  *queue.Ring[kind.Shape]          // audio -> physics
	Destroy *queue.Ring[Erase]               // interaction -> physics
	Strokes *queue.Ring[world.StrokeRequest] // interaction -> physics
	Control *queue.Ring[Command]             // interaction -> physics
	Hits    *queue.Ring[audio.Hit]           // physics -> audio
}

// NewQueues allocates every ring with the given capacities.
func NewQueues(spawn, destroy, stroke, control, hits int) Queues {
	return Queues{
		Spawns:  queue.MustNew[kind.Shape](spawn),
		Destroy: queue.MustNew[Erase](destroy),
		Strokes: queue.MustNew[world.StrokeRequest](stroke),
		Control: queue.MustNew[Command](control),
		Hits:    queue.MustNew[audio.Hit](hits),
	}
}

// Drops counts requests lost to full rings.
type Drops struct {
	Spawn   uint64 `json:"spawn"`
	Destroy uint64 `json:"destroy"`
	Stroke  uint64 `json:"stroke"`
	Control uint64 `json:"control"`
	Hits    uint64 `json:"hits"`
}

// Total sums every counter.
func (d Drops) Total() uint64 {
	return d.Spawn + d.Destroy + d.Stroke + d.Control + d.Hits
}

func (q Queues) drops() Drops {
	var d Drops
	if q.Spawns != nil {
		d.Spawn = q.Spawns.Dropped()
	}
	if q.Destroy != nil {
		d.Destroy = q.Destroy.Dropped()
	}
	if q.Strokes != nil {
		d.Stroke = q.Strokes.Dropped()
	}
	if q.Control != nil {
		d.Control = q.Control.Dropped()
	}
	if q.Hits != nil {
		d.Hits = q.Hits.Dropped()
	}
	return d
}

// Observer is notified after every tick on the physics goroutine.
type Observer interface {
	OnTick(f *Frame)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(f *Frame)

func (fn ObserverFunc) OnTick(f *Frame) { fn(f) }
