package diag

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/roc-streaming/roc-go-receiver/pkg/ringbuf"
)

type memSink struct {
	mu     sync.Mutex
	buf    strings.Builder
	closed bool
}

func (m *memSink) WriteString(s string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.WriteString(s)
}

func (m *memSink) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *memSink) String() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.buf.String()
}

func TestDumperWritesHeaderAndRows(t *testing.T) {
	ring := ringbuf.NewRing[Sample](4, 256)
	sink := &memSink{}

	d, err := NewDumper(ring, sink, 5*time.Millisecond, nil)
	require.NoError(t, err)

	ok, err := ring.PushBack(Sample{SSRC: 1, StreamPos: 100, NiqLatencyNs: 200, E2eLatencyNs: 300, FreqCoeff: 1.01})
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	<-done

	out := sink.String()
	require.Contains(t, out, csvHeader)
	require.Contains(t, out, "1,100,200,300,1.010000")
	require.True(t, sink.closed)
}
