// Package fec reassembles source packets lost in transit using parity
// packets from a matching repair stream. Port of roc_fec::Reader,
// generalized with the newer max_sbn_jump guard the original added in a
// later revision (see reader.h's ReaderConfig) rather than the behavior
// of the older reader.cpp, per the rule that a newer upstream revision's
// contract wins over an older one when the two disagree.
package fec

import (
	"errors"
	"fmt"

	"github.com/roc-streaming/roc-go-receiver/pkg/packet"
)

// ErrSSRCMismatch is returned (and makes the reader no longer Alive) when
// a repaired packet's SSRC does not match the session's SSRC: the whole
// reader is shut down rather than only the repaired packet being dropped.
var ErrSSRCMismatch = errors.New("fec: repaired packet SSRC mismatch")

// ErrSBNJump is returned (and makes the reader no longer Alive) when a
// new source block number jumps further ahead of the current one than
// Config.MaxSBNJump allows.
var ErrSBNJump = errors.New("fec: source block number jumped too far")

// BlockDecoder is the pluggable erasure-coding backend. Reader calls Set
// for every payload it has (source and repair, by ESI), then Repair for
// every missing source ESI it needs reconstructed. A BlockDecoder is used
// for exactly one block and discarded; Reader creates a fresh one (via
// Config.NewDecoder) per source block.
type BlockDecoder interface {
	// Set records a known-good payload. For a source payload (isRepair
	// false) esi is its ESI, 0..SBL-1; for a repair payload (isRepair
	// true) esi is its index within the repair block, 0..BL-SBL-1, i.e.
	// the packet's ESI minus SBL.
	Set(esi int, isRepair bool, payload []byte) error
	// Repair reconstructs the source payload at the given ESI (which must
	// be in 0..SBL-1). Returns an error if reconstruction is not
	// possible (too few surviving symbols) — non-fatal to the reader,
	// the packet is simply not produced.
	Repair(esi int) ([]byte, error)
}

// Config parameterizes a Reader.
type Config struct {
	// SSRC of the session this reader belongs to; repaired packets whose
	// parsed SSRC differs are rejected (see ErrSSRCMismatch).
	SSRC uint32
	// MaxSBNJump bounds how far a new source block number may jump ahead
	// of cur_sbn before the reader considers the stream corrupted.
	MaxSBNJump uint32
	// NewDecoder constructs a fresh BlockDecoder sized for the given
	// source/repair block lengths, for each new source block.
	NewDecoder func(sbl, bl int) BlockDecoder
	// ParseRepaired parses a reconstructed source payload back into a
	// Packet, so its SSRC and stream-timestamp fields become visible to
	// the reader (the repaired bytes are a full RTP datagram, not just
	// the raw audio payload).
	ParseRepaired func(data []byte) (*packet.Packet, error)
}

// Reader implements the FEC block reader described in the package doc.
// Not safe for concurrent use.
type Reader struct {
	cfg Config

	sourceQueue *packet.Queue
	repairQueue *packet.Queue

	started bool
	alive   bool

	curSBN        uint32
	sourceBlock   []*packet.Packet
	repairBlock   []*packet.Packet
	sourceBlockLen int
	blockLen       int
	nextESI        int
}

// NewReader constructs a Reader pulling source and repair packets from the
// given queues.
func NewReader(cfg Config, sourceQueue, repairQueue *packet.Queue) *Reader {
	return &Reader{
		cfg:         cfg,
		sourceQueue: sourceQueue,
		repairQueue: repairQueue,
		alive:       true,
	}
}

// Alive reports whether the reader is still usable. Once false (an SBN
// jump past the limit, or an SSRC mismatch on a repaired packet), the
// reader never recovers; the owning session must be torn down.
func (r *Reader) Alive() bool {
	return r.alive
}

// Read returns the next source packet in ESI order, reconstructing it via
// the block decoder if it was lost, or nil and a non-nil error if none is
// currently available (the source queue's rocstatus.Drain error when it is
// empty, a descriptive error while waiting for block alignment or for a
// repair to become possible).
func (r *Reader) Read() (*packet.Packet, error) {
	if !r.alive {
		return nil, fmt.Errorf("fec: reader is not alive")
	}

	r.fetchPackets()

	if !r.started {
		head, err := r.sourceQueue.Read(packet.ModePeek)
		if err != nil {
			return nil, err
		}
		if head.FEC == nil {
			return nil, fmt.Errorf("fec: source packet missing FEC view")
		}
		r.curSBN = head.FEC.SBN
		r.dropStaleRepairPackets()
		if head.FEC.ESI != 0 {
			// Not aligned to a block start yet; keep accumulating until
			// we do see ESI==0, per the original's startup rule.
			return nil, fmt.Errorf("fec: waiting for block alignment")
		}
		r.beginBlock(head.FEC.SBL, head.FEC.BL)
		r.started = true

		// The packet that just established alignment was only peeked
		// above, never fetched (fetchPackets at the top of this call
		// only drains once started is true). Re-run it now so that
		// packet lands in sourceBlock before getNextPacket looks for
		// it, instead of requiring a second Read() call to surface it.
		r.fetchPackets()
	}

	return r.getNextPacket()
}

func (r *Reader) beginBlock(sbl, bl int) {
	r.sourceBlockLen = sbl
	r.blockLen = bl
	r.sourceBlock = make([]*packet.Packet, sbl)
	r.repairBlock = make([]*packet.Packet, bl-sbl)
	r.nextESI = 0
}

func (r *Reader) fetchPackets() {
	for {
		head, err := r.sourceQueue.Read(packet.ModePeek)
		if err != nil {
			break
		}
		if head.FEC == nil {
			_, _ = r.sourceQueue.Read(packet.ModeFetch)
			continue
		}
		cmp := compareSBN(head.FEC.SBN, r.curSBN)
		if r.started && cmp < 0 {
			_, _ = r.sourceQueue.Read(packet.ModeFetch)
			continue
		}
		if r.started && cmp == 0 {
			_, _ = r.sourceQueue.Read(packet.ModeFetch)
			if head.FEC.ESI < r.sourceBlockLen {
				r.sourceBlock[head.FEC.ESI] = head
			}
			continue
		}
		// belongs to a future block; stop draining until we advance
		break
	}

	for {
		head, err := r.repairQueue.Read(packet.ModePeek)
		if err != nil {
			break
		}
		if head.FEC == nil {
			_, _ = r.repairQueue.Read(packet.ModeFetch)
			continue
		}
		cmp := compareSBN(head.FEC.SBN, r.curSBN)
		if r.started && cmp < 0 {
			_, _ = r.repairQueue.Read(packet.ModeFetch)
			continue
		}
		if r.started && cmp == 0 {
			_, _ = r.repairQueue.Read(packet.ModeFetch)
			idx := head.FEC.ESI - r.sourceBlockLen
			if idx >= 0 && idx < len(r.repairBlock) {
				r.repairBlock[idx] = head
			}
			continue
		}
		break
	}
}

func (r *Reader) dropStaleRepairPackets() {
	for {
		head, err := r.repairQueue.Read(packet.ModePeek)
		if err != nil {
			return
		}
		if head.FEC != nil && compareSBN(head.FEC.SBN, r.curSBN) < 0 {
			_, _ = r.repairQueue.Read(packet.ModeFetch)
			continue
		}
		return
	}
}

func (r *Reader) getNextPacket() (*packet.Packet, error) {
	for {
		if r.nextESI >= r.sourceBlockLen {
			if err := r.advanceBlock(); err != nil {
				return nil, err
			}
			// advanceBlock cleared started; block alignment must be
			// rediscovered on the next Read() call before we can make
			// further progress.
			return nil, fmt.Errorf("fec: block exhausted, awaiting next block alignment")
		}

		if p := r.sourceBlock[r.nextESI]; p != nil {
			r.nextESI++
			return p, nil
		}

		repaired, err := r.tryRepair()
		if err != nil {
			r.alive = false
			return nil, err
		}
		if repaired != nil {
			r.nextESI++
			return repaired, nil
		}

		// repair not yet possible (decoder error or insufficient
		// symbols): nothing more to deliver right now.
		return nil, fmt.Errorf("fec: no packet available at esi %d", r.nextESI)
	}
}

func (r *Reader) advanceBlock() error {
	nextSBN := r.curSBN + 1
	if compareSBN(nextSBN, r.curSBN) > 0 {
		jump := nextSBN - r.curSBN
		if r.cfg.MaxSBNJump > 0 && jump > r.cfg.MaxSBNJump {
			r.alive = false
			return fmt.Errorf("%w: jump=%d max=%d", ErrSBNJump, jump, r.cfg.MaxSBNJump)
		}
	}
	r.curSBN = nextSBN
	r.sourceBlockLen = 0
	r.blockLen = 0
	r.sourceBlock = nil
	r.repairBlock = nil
	r.nextESI = 0
	r.started = false
	return nil
}

func (r *Reader) tryRepair() (*packet.Packet, error) {
	haveRepair := false
	missing := 0
	for _, p := range r.repairBlock {
		if p != nil {
			haveRepair = true
		}
	}
	for _, p := range r.sourceBlock {
		if p == nil {
			missing++
		}
	}
	if !haveRepair || missing == 0 {
		return nil, nil
	}

	dec := r.cfg.NewDecoder(r.sourceBlockLen, r.blockLen)
	for i, p := range r.sourceBlock {
		if p != nil {
			if err := dec.Set(i, false, p.Payload); err != nil {
				return nil, nil
			}
		}
	}
	for i, p := range r.repairBlock {
		if p != nil {
			if err := dec.Set(i, true, p.Payload); err != nil {
				return nil, nil
			}
		}
	}

	data, err := dec.Repair(r.nextESI)
	if err != nil {
		// non-fatal: this particular symbol could not be reconstructed
		return nil, nil
	}

	repaired, err := r.cfg.ParseRepaired(data)
	if err != nil {
		return nil, nil
	}
	if repaired.SourceID != r.cfg.SSRC {
		return nil, ErrSSRCMismatch
	}

	r.sourceBlock[r.nextESI] = repaired
	return repaired, nil
}

// compareSBN compares two source block numbers using the same
// signed-delta modular arithmetic as sequence numbers, but widened to 32
// bits since SBN can come from the large-block LDPC scheme.
func compareSBN(a, b uint32) int {
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
