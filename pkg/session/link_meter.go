package session

import (
	"github.com/roc-streaming/roc-go-receiver/pkg/packet"
)

// LinkStats is a snapshot of per-session network statistics, derived
// purely from the sequence number and arrival-time stream the session
// already ingests. RTCP wire generation is out of scope; this is just the
// bookkeeping a report would need.
type LinkStats struct {
	PacketsReceived uint64
	PacketsLost     int64
	JitterSamples   float64 // RFC 3550 §6.4.1 interarrival jitter, in timestamp units

	// LastSourceAddr is the UDPSourceAddr of the most recently received
	// source packet, surfaced for diagnostics (e.g. detecting a sender
	// failover mid-session). Empty if the host program never populates
	// Packet.UDPSourceAddr.
	LastSourceAddr string
}

// LinkMeter accumulates jitter and loss statistics as packets arrive, the
// way a sender-side RTCP receiver report would, without generating any
// wire traffic of its own.
type LinkMeter struct {
	haveFirst bool
	baseSeq   uint16
	maxSeq    uint16
	received  uint64

	havePrev    bool
	prevArrival int64
	prevRTP     uint32
	jitter      float64
	rate        uint32 // sample rate, for converting ns arrival deltas to RTP timestamp units

	lastSourceAddr string
}

// NewLinkMeter constructs a LinkMeter for a stream sampled at rate Hz.
func NewLinkMeter(rate uint32) *LinkMeter {
	return &LinkMeter{rate: rate}
}

// Update folds one arriving packet into the running statistics. arrivalNs
// is the local wall-clock time the packet was enqueued.
func (lm *LinkMeter) Update(p *packet.Packet, arrivalNs int64) {
	lm.received++
	lm.lastSourceAddr = p.UDPSourceAddr

	if !lm.haveFirst {
		lm.haveFirst = true
		lm.baseSeq = p.Seqnum
		lm.maxSeq = p.Seqnum
	} else if packet.CompareSeqnum(p.Seqnum, lm.maxSeq) > 0 {
		lm.maxSeq = p.Seqnum
	}

	if lm.havePrev {
		arrivalDelta := arrivalNs - lm.prevArrival
		rtpDelta := int64(packet.TimestampDiff(lm.prevRTP, p.StreamTimestamp))

		arrivalInRTPUnits := float64(arrivalDelta) * float64(lm.rate) / 1e9
		d := arrivalInRTPUnits - float64(rtpDelta)
		if d < 0 {
			d = -d
		}
		lm.jitter += (d - lm.jitter) / 16
	}

	lm.prevArrival = arrivalNs
	lm.prevRTP = p.StreamTimestamp
	lm.havePrev = true
}

// Stats returns the current snapshot. PacketsLost is expected-minus-received
// over the observed sequence number span; negative means duplicates
// outran genuine losses (can happen under heavy retransmission/duplication).
func (lm *LinkMeter) Stats() LinkStats {
	if !lm.haveFirst {
		return LinkStats{}
	}
	expected := int64(int16(lm.maxSeq-lm.baseSeq)) + 1
	return LinkStats{
		PacketsReceived: lm.received,
		PacketsLost:     expected - int64(lm.received),
		JitterSamples:   lm.jitter,
		LastSourceAddr:  lm.lastSourceAddr,
	}
}
