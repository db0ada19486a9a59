package sampleutil

import (
	"fmt"
	"math"
	"strings"
)

const nsPerSecond = 1_000_000_000

// SampleSpec describes the rate, wire encoding and channel layout of a PCM
// stream. It is the unit every duration<->sample-count conversion in this
// module goes through, so that "how many samples is 20ms" is answered in
// exactly one place.
type SampleSpec struct {
	Rate     uint32
	Format   PcmFormat
	Channels ChannelSet
}

// Validate reports whether the triple is well-formed enough to compute
// with. It does not check that Format is byte-aligned for a given
// transport; the pcm mapper rejects unsupported formats itself, through
// its codec table.
func (s SampleSpec) Validate() error {
	if s.Rate == 0 {
		return fmt.Errorf("sampleutil: sample rate must be non-zero")
	}
	if s.Format == PcmInvalid {
		return fmt.Errorf("sampleutil: pcm format must be set")
	}
	if s.Channels.NumChannels() == 0 {
		return fmt.Errorf("sampleutil: channel set must be non-empty")
	}
	return nil
}

// String renders the canonical "<format>/<rate>/<channels>" form that
// ParseSampleSpec reads back.
func (s SampleSpec) String() string {
	return fmt.Sprintf("%s/%d/%s", s.Format, s.Rate, s.Channels)
}

// ParseSampleSpec parses the "<format>/<rate>/<channels>" wire string, e.g.
// "s16be/44100/stereo" or "f32/48000/FL,FR,FC".
func ParseSampleSpec(s string) (SampleSpec, error) {
	parts := strings.SplitN(s, "/", 3)
	if len(parts) != 3 {
		return SampleSpec{}, fmt.Errorf("sampleutil: malformed sample spec %q", s)
	}

	format, err := ParsePcmFormat(parts[0])
	if err != nil {
		return SampleSpec{}, err
	}

	var rate uint32
	if _, err := fmt.Sscanf(parts[1], "%d", &rate); err != nil {
		return SampleSpec{}, fmt.Errorf("sampleutil: invalid sample rate %q: %w", parts[1], err)
	}

	channels, err := ParseChannelSet(parts[2])
	if err != nil {
		return SampleSpec{}, err
	}

	spec := SampleSpec{Rate: rate, Format: format, Channels: channels}
	if err := spec.Validate(); err != nil {
		return SampleSpec{}, err
	}
	return spec, nil
}

// NumChannels is shorthand for Channels.NumChannels.
func (s SampleSpec) NumChannels() int {
	return s.Channels.NumChannels()
}

// NsToSamplesPerChan converts a duration in nanoseconds to a number of
// samples per channel at this spec's rate, saturating at the uint64 range
// instead of wrapping on overflow (an attacker- or config-supplied
// multi-hour duration should clamp, not wrap, into a bogus small number).
func (s SampleSpec) NsToSamplesPerChan(ns uint64) uint64 {
	return saturatingMulDiv(ns, uint64(s.Rate), nsPerSecond)
}

// SamplesPerChanToNs is the reverse conversion of NsToSamplesPerChan. Both
// truncate toward zero, so a samples->ns->samples round trip can come back
// one sample short (e.g. 1 sample at 48kHz -> 20833ns -> 0 samples).
func (s SampleSpec) SamplesPerChanToNs(samples uint64) uint64 {
	if s.Rate == 0 {
		return 0
	}
	return saturatingMulDiv(samples, nsPerSecond, uint64(s.Rate))
}

// PacketLength converts a duration in nanoseconds to a sample count that
// fits a uint32 stream-timestamp delta, saturating at math.MaxUint32
// instead of silently wrapping the way a raw uint32(NsToSamplesPerChan(...))
// cast would for a pathologically large duration. Matches
// roc_audio::SampleSpec::ns_2_samples_overflow's overflow-safety contract.
func (s SampleSpec) PacketLength(durationNs int64) uint32 {
	if durationNs <= 0 {
		return 0
	}
	n := s.NsToSamplesPerChan(uint64(durationNs))
	if n > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(n)
}

// NsToStreamTimestampDelta converts a (possibly negative) duration in
// nanoseconds to a stream-timestamp delta at this spec's rate, matching
// roc_audio::SampleSpec::ns_2_stream_timestamp_delta. The sign of the input
// is preserved; magnitude saturates the same way NsToSamplesPerChan does.
func (s SampleSpec) NsToStreamTimestampDelta(ns int64) int64 {
	neg := ns < 0
	mag := uint64(ns)
	if neg {
		mag = uint64(-ns)
	}
	d := int64(s.NsToSamplesPerChan(mag))
	if neg {
		return -d
	}
	return d
}

// StreamTimestampDeltaToNs is the inverse of NsToStreamTimestampDelta.
func (s SampleSpec) StreamTimestampDeltaToNs(delta int64) int64 {
	neg := delta < 0
	mag := uint64(delta)
	if neg {
		mag = uint64(-delta)
	}
	ns := int64(s.SamplesPerChanToNs(mag))
	if neg {
		return -ns
	}
	return ns
}

// saturatingMulDiv computes a*b/c without overflowing uint64 along the way
// when a*b would otherwise overflow, and clamps the result to
// math.MaxUint64 rather than wrapping.
func saturatingMulDiv(a, b, c uint64) uint64 {
	if c == 0 {
		return 0
	}
	hi, lo := bitsMul64(a, b)
	if hi == 0 {
		return lo / c
	}
	if hi >= c {
		return math.MaxUint64
	}
	q, _ := bitsDiv64(hi, lo, c)
	return q
}

// bitsMul64 returns the 128-bit product of a*b as (hi, lo).
func bitsMul64(a, b uint64) (hi, lo uint64) {
	const mask32 = 1<<32 - 1
	aLo, aHi := a&mask32, a>>32
	bLo, bHi := b&mask32, b>>32

	t := aLo * bLo
	w0 := t & mask32
	k := t >> 32

	t = aHi*bLo + k
	w1 := t & mask32
	w2 := t >> 32

	t = aLo*bHi + w1
	k = t >> 32

	hi = aHi*bHi + w2 + k
	lo = (t << 32) | w0
	return hi, lo
}

// bitsDiv64 divides the 128-bit (hi, lo) by c, assuming hi < c so the
// quotient fits in 64 bits. Binary long division, one bit of the dividend
// at a time, most significant first: the 64 bits of hi, then the 64 bits
// of lo.
func bitsDiv64(hi, lo, c uint64) (q, r uint64) {
	for i := 63; i >= 0; i-- {
		r = (r << 1) | (hi >> uint(i) & 1)
		if r >= c {
			r -= c
		}
	}
	for i := 63; i >= 0; i-- {
		r = (r << 1) | (lo >> uint(i) & 1)
		q <<= 1
		if r >= c {
			r -= c
			q |= 1
		}
	}
	return q, r
}
