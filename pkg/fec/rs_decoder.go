package fec

import (
	"fmt"

	"github.com/klauspost/reedsolomon"
)

// RSBlockDecoder is a BlockDecoder backed by klauspost/reedsolomon,
// implementing the Reed-Solomon m=8 scheme referenced throughout the
// package (source block limited to 255 symbols, one byte ESI/SBN in the
// wire footer — see pkg/rtpwire's SchemeReedSolomon8).
type RSBlockDecoder struct {
	sourceBlockLen int
	repairLen      int
	shardSize      int
	shards         [][]byte
}

// NewRSBlockDecoder matches the fec.Config.NewDecoder signature.
func NewRSBlockDecoder(sbl, bl int) BlockDecoder {
	return &RSBlockDecoder{
		sourceBlockLen: sbl,
		repairLen:      bl - sbl,
		shards:         make([][]byte, bl),
	}
}

func (d *RSBlockDecoder) Set(esi int, isRepair bool, payload []byte) error {
	idx := esi
	if isRepair {
		idx = d.sourceBlockLen + esi
	}
	if idx < 0 || idx >= len(d.shards) {
		return fmt.Errorf("fec: shard index %d out of range [0,%d)", idx, len(d.shards))
	}

	if d.shardSize == 0 {
		d.shardSize = len(payload)
	} else if len(payload) != d.shardSize {
		return fmt.Errorf("fec: mismatched shard size: got %d, want %d", len(payload), d.shardSize)
	}

	shard := make([]byte, d.shardSize)
	copy(shard, payload)
	d.shards[idx] = shard
	return nil
}

func (d *RSBlockDecoder) Repair(esi int) ([]byte, error) {
	if esi < 0 || esi >= d.sourceBlockLen {
		return nil, fmt.Errorf("fec: repair requested for out-of-range esi %d", esi)
	}
	if d.repairLen == 0 {
		return nil, fmt.Errorf("fec: no repair shards available")
	}

	enc, err := reedsolomon.New(d.sourceBlockLen, d.repairLen)
	if err != nil {
		return nil, fmt.Errorf("fec: construct reed-solomon encoder: %w", err)
	}

	if err := enc.Reconstruct(d.shards); err != nil {
		return nil, fmt.Errorf("fec: reconstruct: %w", err)
	}

	if d.shards[esi] == nil {
		return nil, fmt.Errorf("fec: esi %d still missing after reconstruction", esi)
	}
	return d.shards[esi], nil
}
