package audio

import (
	"fmt"

	"github.com/roc-streaming/roc-go-receiver/pkg/packet"
	"github.com/roc-streaming/roc-go-receiver/pkg/sampleutil"
)

// PacketReader is the upstream of a Depacketizer: the FEC reader, or a
// bare sorted queue when FEC is not in use. A nil, nil return means no
// packet is available right now (queue drained).
type PacketReader interface {
	Read() (*packet.Packet, error)
}

// PayloadDecoder turns one packet's raw payload into interleaved PCM
// samples, appending samplesPerChan*numChannels float32 values to dst and
// returning the updated slice. Implementations are keyed to one wire PCM
// subformat (see pkg/sampleutil.PcmFormat).
type PayloadDecoder interface {
	Decode(dst []float32, payload []byte, spec sampleutil.SampleSpec) ([]float32, error)
}

// Depacketizer pulls packets from upstream, decodes their payloads, and
// produces a frame stream of exactly the requested duration per Read
// call, zero-filling any gap left by lost or not-yet-arrived packets.
type Depacketizer struct {
	upstream PacketReader
	decoder  PayloadDecoder
	spec     sampleutil.SampleSpec

	current       *packet.Packet
	nextTimestamp uint32
	started       bool
}

// NewDepacketizer constructs a Depacketizer. spec describes the PCM
// encoding and channel layout packets arrive in (and frames are produced
// in — the PCM mapper handles any further conversion).
func NewDepacketizer(upstream PacketReader, decoder PayloadDecoder, spec sampleutil.SampleSpec) *Depacketizer {
	return &Depacketizer{upstream: upstream, decoder: decoder, spec: spec}
}

// NextTimestamp returns the stream timestamp of the next sample this
// depacketizer expects to emit. Used by the latency monitor to compute
// niq_latency.
func (d *Depacketizer) NextTimestamp() uint32 {
	return d.nextTimestamp
}

// IsStarted reports whether the first packet has been processed.
func (d *Depacketizer) IsStarted() bool {
	return d.started
}

// Read fills frame.Samples with exactly frame.DurationSamples samples per
// channel. Samples covered by a packet are decoded from it; a gap before
// the next packet is zero-filled and marks the frame Incomplete|Drops; if
// upstream has no packet, the rest of the frame is zero-filled and marked
// Incomplete.
func (d *Depacketizer) Read(frame *Frame) error {
	numChannels := d.spec.NumChannels()
	remaining := frame.DurationSamples
	frame.Samples = frame.Samples[:0]
	frame.Flags = 0
	captureSet := false

	for remaining > 0 {
		if d.current == nil {
			p, err := d.upstream.Read()
			if err != nil || p == nil {
				d.appendZeros(frame, remaining, numChannels)
				frame.Flags |= FlagIncomplete
				return nil
			}
			d.current = p
			if !d.started {
				d.nextTimestamp = p.Begin()
				d.started = true
			}
		}

		cur := d.current

		switch {
		case packet.CompareTimestamp(d.nextTimestamp, cur.Begin()) < 0:
			// gap before the current packet starts
			gap := uint32(packet.TimestampDiff(d.nextTimestamp, cur.Begin()))
			n := gap
			if n > remaining {
				n = remaining
			}
			d.appendZeros(frame, n, numChannels)
			frame.Flags |= FlagIncomplete | FlagDrops
			d.nextTimestamp += n
			remaining -= n

		case packet.CompareTimestamp(d.nextTimestamp, cur.End()) >= 0:
			// fully consumed; move on
			d.current = nil

		default:
			if !captureSet {
				frame.CaptureTimestampNs = packetCaptureTimestampNs(cur, d.spec)
				captureSet = true
			}
			avail := uint32(packet.TimestampDiff(d.nextTimestamp, cur.End()))
			n := avail
			if n > remaining {
				n = remaining
			}
			decoded, err := d.decoder.Decode(nil, cur.Payload, d.spec)
			if err != nil {
				return fmt.Errorf("audio: depacketizer: decode: %w", err)
			}
			offsetSamples := d.nextTimestamp - cur.Begin()
			start := int(offsetSamples) * numChannels
			end := start + int(n)*numChannels
			if end > len(decoded) {
				end = len(decoded)
			}
			if start > end {
				start = end
			}
			frame.Samples = append(frame.Samples, decoded[start:end]...)
			got := uint32((end - start) / numChannels)
			d.nextTimestamp += got
			remaining -= got
			if got < n {
				// payload shorter than expected; treat the rest as gap
				frame.Flags |= FlagIncomplete
				d.current = nil
			} else if n == avail {
				d.current = nil
			}
		}
	}

	return nil
}

func (d *Depacketizer) appendZeros(frame *Frame, n uint32, numChannels int) {
	for i := uint32(0); i < n; i++ {
		for c := 0; c < numChannels; c++ {
			frame.Samples = append(frame.Samples, 0)
		}
	}
}

// packetCaptureTimestampNs derives a capture time for a packet. Packets do
// not carry an absolute time, only a stream timestamp, and there is no
// session-level mapping from stream time to wall-clock time, so this
// returns the packet's stream timestamp converted to nanoseconds: a time
// on the sender's stream clock, not a wall-clock time.
func packetCaptureTimestampNs(p *packet.Packet, spec sampleutil.SampleSpec) int64 {
	return spec.StreamTimestampDeltaToNs(int64(p.StreamTimestamp))
}
