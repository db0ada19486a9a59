package fec

import (
	"testing"

	"github.com/klauspost/reedsolomon"
	"github.com/stretchr/testify/require"

	"github.com/roc-streaming/roc-go-receiver/pkg/packet"
)

const testSSRC = 777

func fecPacket(sbn, esi, sbl, bl uint32, seq uint16, payload []byte, repair bool) *packet.Packet {
	flags := packet.FlagRTP | packet.FlagAudio | packet.FlagFEC
	if repair {
		flags |= packet.FlagRepair
	}
	return &packet.Packet{
		SourceID:        testSSRC,
		Seqnum:          seq,
		StreamTimestamp: esi * 160,
		Samples:         160,
		Flags:           flags,
		Payload:         payload,
		FEC:             &packet.FECView{SBN: sbn, ESI: esi, SBL: sbl, BL: bl},
	}
}

// buildRSBlock produces sbl source shards and (bl-sbl) parity shards for a
// block, all of shardSize bytes, using the same reedsolomon backend the
// decoder under test uses, so deletions are actually recoverable.
func buildRSBlock(t *testing.T, sbl, bl, shardSize int) [][]byte {
	t.Helper()
	enc, err := reedsolomon.New(sbl, bl-sbl)
	require.NoError(t, err)

	shards := make([][]byte, bl)
	for i := 0; i < sbl; i++ {
		shards[i] = make([]byte, shardSize)
		for j := range shards[i] {
			shards[i][j] = byte((i*31 + j) % 256)
		}
	}
	for i := sbl; i < bl; i++ {
		shards[i] = make([]byte, shardSize)
	}
	require.NoError(t, enc.Encode(shards))
	return shards
}

func TestFECReaderRepairsMissingSourcePacket(t *testing.T) {
	const sbl, bl, shardSize = 10, 15, 16
	shards := buildRSBlock(t, sbl, bl, shardSize)

	sourceQ := packet.NewQueue(0)
	repairQ := packet.NewQueue(0)

	// deliver ESI 0..4 and 6..9 (ESI 5 missing), plus repair shard 0.
	var seq uint16
	for _, esi := range []int{0, 1, 2, 3, 4, 6, 7, 8, 9} {
		require.NoError(t, sourceQ.Write(fecPacket(1, uint32(esi), sbl, bl, seq, shards[esi], false)))
		seq++
	}
	require.NoError(t, repairQ.Write(fecPacket(1, uint32(sbl), sbl, bl, seq, shards[sbl], true)))

	reader := NewReader(Config{
		SSRC:       testSSRC,
		MaxSBNJump: 100,
		NewDecoder: NewRSBlockDecoder,
		ParseRepaired: func(data []byte) (*packet.Packet, error) {
			return &packet.Packet{SourceID: testSSRC, Payload: data}, nil
		},
	}, sourceQ, repairQ)

	var got [][]byte
	for i := 0; i < sbl; i++ {
		p, err := reader.Read()
		require.NoError(t, err, "expected packet at position %d", i)
		got = append(got, p.Payload)
	}

	for i := 0; i < sbl; i++ {
		require.Equal(t, shards[i], got[i], "esi %d payload mismatch", i)
	}
	require.True(t, reader.Alive())
}

func TestFECReaderSSRCMismatchKillsReader(t *testing.T) {
	const sbl, bl, shardSize = 4, 6, 8
	shards := buildRSBlock(t, sbl, bl, shardSize)

	sourceQ := packet.NewQueue(0)
	repairQ := packet.NewQueue(0)

	var seq uint16
	for _, esi := range []int{0, 1, 3} {
		require.NoError(t, sourceQ.Write(fecPacket(1, uint32(esi), sbl, bl, seq, shards[esi], false)))
		seq++
	}
	require.NoError(t, repairQ.Write(fecPacket(1, uint32(sbl), sbl, bl, seq, shards[sbl], true)))

	reader := NewReader(Config{
		SSRC:       testSSRC,
		MaxSBNJump: 100,
		NewDecoder: NewRSBlockDecoder,
		ParseRepaired: func(data []byte) (*packet.Packet, error) {
			return &packet.Packet{SourceID: testSSRC + 1, Payload: data}, nil
		},
	}, sourceQ, repairQ)

	var sawError bool
	for i := 0; i < sbl+1; i++ {
		if _, err := reader.Read(); err != nil {
			sawError = true
		}
	}
	require.True(t, sawError)
	require.False(t, reader.Alive())
}
