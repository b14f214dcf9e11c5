package queue

import (
	"sync"
	"testing"
)

func TestNewRoundsCapacity(t *testing.T) {
	tests := []struct {
		capacity int
		expected int
	}{
		{1, 1},
		{3, 4},
		{64, 64},
		{65, 128},
	}

	for _, tt := range tests {
		r, err := New[int](tt.capacity)
		if err != nil {
			t.Fatalf("New(%d): %v", tt.capacity, err)
		}
		if r.Cap() != tt.expected {
			t.Errorf("New(%d).Cap() = %d, want %d", tt.capacity, r.Cap(), tt.expected)
		}
	}

	if _, err := New[int](0); err == nil {
		t.Error("expected error for zero capacity")
	}
}

func TestRingFIFO(t *testing.T) {
	r := MustNew[int](8)
	for i := 0; i < 5; i++ {
		if !r.Push(i) {
			t.Fatalf("push %d failed", i)
		}
	}

	got := make([]int, 0, 5)
	n := r.Drain(func(v int) { got = append(got, v) })
	if n != 5 {
		t.Fatalf("expected 5 drained, got %d", n)
	}
	for i, v := range got {
		if v != i {
			t.Errorf("position %d: got %d", i, v)
		}
	}
	if r.Len() != 0 {
		t.Errorf("expected empty ring, got len %d", r.Len())
	}
}

func TestRingDropsNewestWhenFull(t *testing.T) {
	r := MustNew[int](4)
	for i := 0; i < 4; i++ {
		r.Push(i)
	}
	if r.Push(99) {
		t.Fatal("push into full ring succeeded")
	}
	if r.Dropped() != 1 {
		t.Errorf("expected 1 drop, got %d", r.Dropped())
	}

	got := make([]int, 0, 4)
	r.Drain(func(v int) { got = append(got, v) })
	for i, v := range got {
		if v != i {
			t.Errorf("oldest entries must survive: position %d got %d", i, v)
		}
	}
}

func TestRingPushBatchAllOrNothing(t *testing.T) {
	r := MustNew[int](4)
	r.Push(1)
	r.Push(2)

	if r.PushBatch([]int{3, 4, 5}) {
		t.Fatal("batch larger than free space accepted")
	}
	if r.Len() != 2 {
		t.Errorf("rejected batch changed length to %d", r.Len())
	}
	if !r.PushBatch([]int{3, 4}) {
		t.Fatal("batch that fits was rejected")
	}
	if r.Len() != 4 {
		t.Errorf("expected len 4, got %d", r.Len())
	}
}

func TestRingPop(t *testing.T) {
	r := MustNew[string](2)
	if _, ok := r.Pop(); ok {
		t.Error("pop on empty ring succeeded")
	}
	r.Push("a")
	if v, ok := r.Pop(); !ok || v != "a" {
		t.Errorf("Pop() = %q, %v", v, ok)
	}
}

func TestRingConcurrentSPSC(t *testing.T) {
	const total = 100000
	r := MustNew[int](64)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < total; {
			if r.Push(i) {
				i++
			}
		}
	}()

	next := 0
	for next < total {
		r.Drain(func(v int) {
			if v != next {
				t.Errorf("out of order: got %d want %d", v, next)
			}
			next++
		})
	}
	wg.Wait()
}
