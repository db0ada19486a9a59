package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/roc-streaming/roc-go-receiver/pkg/packet"
	"github.com/roc-streaming/roc-go-receiver/pkg/rtpwire"
	"github.com/roc-streaming/roc-go-receiver/pkg/sampleutil"
)

// synthToneHz is the frequency of the sine wave the generator encodes
// into each packet's payload, chosen only to give the WAV output
// something audible rather than pure silence.
const synthToneHz = 440.0

// ErrSourceExhausted is returned by ReadPacket once PacketCount packets
// have been generated and emitted; it's the expected, non-error way this
// synthetic source ends.
var ErrSourceExhausted = errors.New("roc-recv-sim: synthetic stream exhausted")

// SynthSourceConfig controls the loss/reorder behavior of a SynthSource,
// standing in for a real lossy/best-effort network without needing a
// socket.
type SynthSourceConfig struct {
	SSRC          uint32
	Spec          sampleutil.SampleSpec
	SamplesPerPkt uint32
	PacketCount   int

	// LossRate is the fraction of packets dropped outright, in [0, 1).
	LossRate float64

	// ReorderWindow delays a packet by up to this many positions by
	// holding it in a small shuffle buffer before emitting it.
	ReorderWindow int

	RNG *rand.Rand
}

// SynthSource generates a synthetic mono/stereo PCM stream, packetizes it
// with rtpwire, and hands out RTP datagrams through ReadPacket with
// configurable loss and reordering. It implements session.PacketSource.
type SynthSource struct {
	cfg     SynthSourceConfig
	nextSeq uint16
	nextTs  uint32
	emitted int

	shuffle [][]byte
}

// NewSynthSource constructs a SynthSource. If cfg.RNG is nil, a new
// unseeded-by-caller generator is created.
func NewSynthSource(cfg SynthSourceConfig) *SynthSource {
	if cfg.RNG == nil {
		cfg.RNG = rand.New(rand.NewSource(1))
	}
	return &SynthSource{cfg: cfg}
}

// ReadPacket produces the next datagram in the synthetic stream, or
// io.EOF-equivalent once PacketCount packets have been generated. addr is
// always "synthetic" since there's no real network endpoint.
func (s *SynthSource) ReadPacket(ctx context.Context) (data []byte, addr string, err error) {
	for {
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		default:
		}

		if s.emitted >= s.cfg.PacketCount && len(s.shuffle) == 0 {
			return nil, "", ErrSourceExhausted
		}

		if s.emitted < s.cfg.PacketCount {
			pkt := s.nextPacket()
			s.emitted++

			if s.cfg.LossRate > 0 && s.cfg.RNG.Float64() < s.cfg.LossRate {
				continue
			}

			wire, err := rtpwire.Compose(pkt, rtpwire.Binding{PayloadType: 97})
			if err != nil {
				return nil, "", fmt.Errorf("roc-recv-sim: compose: %w", err)
			}

			if s.cfg.ReorderWindow > 0 {
				s.shuffle = append(s.shuffle, wire)
				if len(s.shuffle) < s.cfg.ReorderWindow {
					continue
				}
			} else {
				return wire, "synthetic", nil
			}
		}

		if len(s.shuffle) > 0 {
			idx := s.cfg.RNG.Intn(len(s.shuffle))
			wire := s.shuffle[idx]
			s.shuffle = append(s.shuffle[:idx], s.shuffle[idx+1:]...)
			return wire, "synthetic", nil
		}
	}
}

func (s *SynthSource) nextPacket() *packet.Packet {
	n := s.cfg.SamplesPerPkt
	numChannels := s.cfg.Spec.NumChannels()
	bps := s.cfg.Spec.Format.BytesPerSample()
	if bps == 0 {
		bps = 2
	}

	payload := make([]byte, int(n)*numChannels*bps)
	for i := 0; i < int(n); i++ {
		t := float64(s.nextTs+uint32(i)) / float64(s.cfg.Spec.Rate)
		v := math.Sin(2 * math.Pi * synthToneHz * t)
		sample := int16(v * 0.8 * 32767)
		for c := 0; c < numChannels; c++ {
			off := (i*numChannels + c) * bps
			switch bps {
			case 1:
				payload[off] = byte(sample>>8) + 128
			case 2:
				binary.BigEndian.PutUint16(payload[off:], uint16(sample))
			default:
				binary.BigEndian.PutUint16(payload[off:off+2], uint16(sample))
			}
		}
	}

	p := &packet.Packet{
		SourceID:        s.cfg.SSRC,
		Seqnum:          s.nextSeq,
		StreamTimestamp: s.nextTs,
		Samples:         n,
		Payload:         payload,
		Flags:           packet.FlagRTP | packet.FlagAudio,
	}

	s.nextSeq++
	s.nextTs += n

	return p
}
