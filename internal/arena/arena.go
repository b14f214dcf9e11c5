// Package arena provides a generation-counted slot table.
//
// Values are addressed by a [Handle] that packs a slot index with the slot's
// generation. Removing a value bumps the generation, so a handle kept across
// a removal resolves to "not found" instead of aliasing whatever value reuses
// the slot later.
package arena

// Handle identifies a value stored in an [Arena]. The zero Handle is never
// issued and always resolves to nothing.
type Handle uint64

// Nil is the zero handle.
const Nil Handle = 0

func makeHandle(index, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(index))
}

// Index returns the slot index encoded in h.
func (h Handle) Index() uint32 { return uint32(h) }

// Generation returns the slot generation encoded in h.
func (h Handle) Generation() uint32 { return uint32(h >> 32) }

// IsNil reports whether h is the zero handle.
func (h Handle) IsNil() bool { return h == Nil }

type slot[T any] struct {
	value T
	gen   uint32
	live  bool
}

// Arena stores values of type T behind generation-counted handles.
// It is not safe for concurrent use.
type Arena[T any] struct {
	slots []slot[T]
	free  []uint32
	count int
}

// New returns an arena with room for capacity values before it grows.
func New[T any](capacity int) *Arena[T] {
	return &Arena[T]{
		slots: make([]slot[T], 0, capacity),
		free:  make([]uint32, 0, capacity),
	}
}

// Insert stores v and returns its handle.
func (a *Arena[T]) Insert(v T) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		// generation starts at 1 so that no live handle equals Nil
		a.slots = append(a.slots, slot[T]{gen: 1})
	}
	s := &a.slots[idx]
	s.value = v
	s.live = true
	a.count++
	return makeHandle(idx, s.gen)
}

// Get returns the value for h. The second result is false for stale or
// unknown handles.
func (a *Arena[T]) Get(h Handle) (T, bool) {
	var zero T
	s := a.lookup(h)
	if s == nil {
		return zero, false
	}
	return s.value, true
}

// Contains reports whether h refers to a live value.
func (a *Arena[T]) Contains(h Handle) bool {
	return a.lookup(h) != nil
}

// Remove deletes the value for h and returns it.
func (a *Arena[T]) Remove(h Handle) (T, bool) {
	var zero T
	s := a.lookup(h)
	if s == nil {
		return zero, false
	}
	v := s.value
	s.value = zero
	s.live = false
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	a.free = append(a.free, h.Index())
	a.count--
	return v, true
}

// Len returns the number of live values.
func (a *Arena[T]) Len() int { return a.count }

// Each calls fn for every live value in slot order. fn must not insert or
// remove values.
func (a *Arena[T]) Each(fn func(Handle, T)) {
	for i := range a.slots {
		s := &a.slots[i]
		if s.live {
			fn(makeHandle(uint32(i), s.gen), s.value)
		}
	}
}

// Clear removes every value. Outstanding handles become stale.
func (a *Arena[T]) Clear() {
	var zero T
	for i := range a.slots {
		s := &a.slots[i]
		if s.live {
			s.value = zero
			s.live = false
			s.gen++
			if s.gen == 0 {
				s.gen = 1
			}
			a.free = append(a.free, uint32(i))
		}
	}
	a.count = 0
}

func (a *Arena[T]) lookup(h Handle) *slot[T] {
	idx := h.Index()
	if h.IsNil() || int(idx) >= len(a.slots) {
		return nil
	}
	s := &a.slots[idx]
	if !s.live || s.gen != h.Generation() {
		return nil
	}
	return s
}
