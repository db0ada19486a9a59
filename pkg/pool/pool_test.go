package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type widget struct {
	A, B int64
}

func TestAllocateDeallocateRoundTrip(t *testing.T) {
	p := New[widget](Config{MinSlots: 2})

	w := p.Allocate()
	require.NotNil(t, w)
	w.A = 42

	stats := p.Stats()
	require.Equal(t, 1, stats.Used)

	p.Deallocate(w)
	stats = p.Stats()
	require.Equal(t, 0, stats.Used)
}

func TestPoolGrowsBeyondInitialSlab(t *testing.T) {
	p := New[widget](Config{MinSlots: 1})

	var handles []*widget
	for i := 0; i < 50; i++ {
		w := p.Allocate()
		require.NotNil(t, w)
		w.A = int64(i)
		handles = append(handles, w)
	}

	for i, w := range handles {
		require.Equal(t, int64(i), w.A)
	}

	for _, w := range handles {
		p.Deallocate(w)
	}
	require.Equal(t, 0, p.Stats().Used)
}

func TestReserveDoesNotAllocateLater(t *testing.T) {
	p := New[widget](Config{MinSlots: 1})
	require.True(t, p.Reserve(10))
	require.GreaterOrEqual(t, p.Stats().Free, 10)
}

func TestDeallocateRejectsForeignPointer(t *testing.T) {
	p1 := New[widget](Config{MinSlots: 1})
	p2 := New[widget](Config{MinSlots: 1})

	w := p1.Allocate()
	require.Panics(t, func() { p2.Deallocate(w) })

	// p1 still thinks w is allocated to it; clean it up through the right pool.
	p1.Deallocate(w)
}

func TestDeallocateDetectsOverflow(t *testing.T) {
	p := New[widget](Config{MinSlots: 1})
	w := p.Allocate()

	slot := slotFromValue(w)
	slot.after[0] ^= 0xff

	require.Panics(t, func() { p.Deallocate(w) })
}

func TestUnpairedDeallocatePanics(t *testing.T) {
	p := New[widget](Config{MinSlots: 1})
	w := p.Allocate()
	p.Deallocate(w)

	require.Panics(t, func() { p.Deallocate(w) })
}
