package ringbuf

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBytesEmptyInitially(t *testing.T) {
	b := NewBytes(8, 4)
	require.True(t, b.IsEmpty())
	require.Nil(t, b.BeginRead())
}

func TestBytesWriteThenRead(t *testing.T) {
	b := NewBytes(4, 2)

	chunk := b.BeginWrite()
	require.NotNil(t, chunk)
	copy(chunk, []byte{1, 2, 3, 4})
	b.EndWrite()

	require.False(t, b.IsEmpty())

	got := b.BeginRead()
	require.Equal(t, []byte{1, 2, 3, 4}, got)
	b.EndRead()

	require.True(t, b.IsEmpty())
}

func TestBytesFullReturnsNil(t *testing.T) {
	b := NewBytes(4, 2)

	for i := 0; i < 2; i++ {
		chunk := b.BeginWrite()
		require.NotNil(t, chunk, "write %d", i)
		b.EndWrite()
	}

	// capacity is 2 usable chunks; the 3rd write must be rejected.
	require.Nil(t, b.BeginWrite())

	// draining one slot makes room for exactly one more write.
	require.NotNil(t, b.BeginRead())
	b.EndRead()
	require.NotNil(t, b.BeginWrite())
}

func TestBytesConcurrentProducerConsumer(t *testing.T) {
	const n = 10000
	b := NewBytes(8, 16)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		for i := uint64(0); i < n; {
			chunk := b.BeginWrite()
			if chunk == nil {
				continue
			}
			for j := range chunk {
				chunk[j] = byte(i)
			}
			b.EndWrite()
			i++
		}
	}()

	var sum uint64
	go func() {
		defer wg.Done()
		for i := uint64(0); i < n; {
			chunk := b.BeginRead()
			if chunk == nil {
				continue
			}
			sum += uint64(chunk[0])
			b.EndRead()
			i++
		}
	}()

	wg.Wait()
	// every produced chunk was consumed exactly once; reaching here at all
	// (no deadlock, no panic) is the real assertion for a lock-free ring.
	_ = sum
}
