package audio

import (
	"github.com/roc-streaming/roc-go-receiver/pkg/packet"
	"github.com/roc-streaming/roc-go-receiver/pkg/sampleutil"
)

// DelayedReader buffers packets from upstream until their span reaches a
// target latency, so the depacketizer never sees zero-gaps during the
// first jitter window of a new session. Port of roc_packet::DelayedReader.
type DelayedReader struct {
	upstream      PacketReader
	spec          sampleutil.SampleSpec
	targetLatency uint32 // in samples_per_channel
	queue         *packet.Queue
	passthrough   bool
}

// NewDelayedReader constructs a DelayedReader that accumulates packets
// until the queued span reaches targetLatencyNs.
func NewDelayedReader(upstream PacketReader, spec sampleutil.SampleSpec, targetLatencyNs int64) *DelayedReader {
	return &DelayedReader{
		upstream:      upstream,
		spec:          spec,
		targetLatency: spec.PacketLength(targetLatencyNs),
		queue:         packet.NewQueue(0),
	}
}

// Read implements PacketReader: until the queued span reaches the target
// latency it only accumulates (returning the queue's drain error); after
// that it drains its own queue first and then reads straight from
// upstream.
func (d *DelayedReader) Read() (*packet.Packet, error) {
	if !d.passthrough {
		d.fill()
	}

	p, err := d.queue.Read(packet.ModeFetch)
	if err == nil {
		return p, nil
	}
	if !d.passthrough {
		return nil, err
	}

	// queue drained and we're already in passthrough mode: go straight to
	// upstream.
	return d.upstream.Read()
}

func (d *DelayedReader) fill() {
	for {
		if d.span() >= d.targetLatency {
			d.passthrough = true
			return
		}
		p, err := d.upstream.Read()
		if err != nil || p == nil {
			return
		}
		_ = d.queue.Write(p)
	}
}

// span returns the queue's current span (tail.end - head.begin, modular,
// clamped to >= 0), in samples_per_channel.
func (d *DelayedReader) span() uint32 {
	head := d.queue.Head()
	tail := d.queue.Tail()
	if head == nil || tail == nil {
		return 0
	}
	diff := packet.TimestampDiff(head.Begin(), tail.End())
	if diff < 0 {
		return 0
	}
	return uint32(diff)
}
