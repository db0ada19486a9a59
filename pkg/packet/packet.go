// Package packet defines the wire-independent packet value type shared by
// the sorted queue, the FEC block reader, and the depacketizer, along with
// the modular comparison the whole pipeline orders packets by.
package packet

import "fmt"

// Flags is a bitset of properties attached to a packet at parse time.
type Flags uint32

const (
	FlagAudio Flags = 1 << iota
	FlagRepair
	FlagRTP
	FlagFEC
	FlagPrepared
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// FECView carries the FEC footer fields parsed off a source or repair
// packet. Only meaningful when Flags has FlagFEC set.
type FECView struct {
	SBN uint32 // source block number
	ESI uint32 // encoding symbol id
	SBL uint32 // source block length
	BL  uint32 // block length (SBL + repair count)
}

// Packet is immutable once composed. It is shared by reference between the
// sorted queue, the FEC reader's blocks, and any reader still holding it;
// nothing in this package ever mutates a Packet's fields after Compose
// returns it.
type Packet struct {
	SourceID        uint32
	Seqnum          uint16
	StreamTimestamp uint32
	Marker          bool
	PayloadType     uint8
	Flags           Flags
	Payload         []byte

	// Samples is the number of samples_per_channel this packet's
	// payload decodes to, used to compute End().
	Samples uint32

	// CSRC is the RTP contributing source identifier list, parsed
	// straight from the wire header. Nothing in the pull chain consumes
	// it today; it is carried so a round-tripped packet (parse then
	// compose) reproduces the original header losslessly.
	CSRC []uint32

	// UDPSourceAddr is the sender address the packet arrived from, as
	// reported by the host program's PacketSource. Opaque to this
	// package; carried through so link-meter/diagnostics consumers can
	// report per-sender stats even though socket I/O itself is out of
	// scope here.
	UDPSourceAddr string

	FEC *FECView
}

// Begin returns the stream timestamp of this packet's first sample.
func (p *Packet) Begin() uint32 {
	return p.StreamTimestamp
}

// End returns the stream timestamp one past this packet's last sample.
func (p *Packet) End() uint32 {
	return p.StreamTimestamp + p.Samples
}

func (p *Packet) String() string {
	return fmt.Sprintf("packet(ssrc=%d seq=%d ts=%d samples=%d flags=%#x)",
		p.SourceID, p.Seqnum, p.StreamTimestamp, p.Samples, p.Flags)
}

// CompareSeqnum compares two 16-bit sequence numbers using signed-delta
// (modular) arithmetic: a precedes b iff int16(a-b) < 0. This treats the
// sequence number space as circular, so it stays correct across wraparound
// from 65535 back to 0.
func CompareSeqnum(a, b uint16) int {
	d := int16(a - b)
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	default:
		return 0
	}
}

// CompareTimestamp compares two 32-bit stream timestamps the same way,
// using signed-delta arithmetic on the wrap-around 32-bit space.
func CompareTimestamp(a, b uint32) int {
	d := int32(a - b)
	switch {
	case d < 0:
		return -1
	case d > 0:
		return 1
	default:
		return 0
	}
}

// Compare orders two packets by sequence number, modularly.
func Compare(a, b *Packet) int {
	return CompareSeqnum(a.Seqnum, b.Seqnum)
}

// TimestampDiff returns b - a as a signed sample count, i.e. the number of
// samples by which b follows a (negative if b precedes a). Used to compute
// queue span and niq latency without worrying about 32-bit wraparound.
func TimestampDiff(a, b uint32) int32 {
	return int32(b - a)
}
