package rtpwire

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roc-streaming/roc-go-receiver/pkg/packet"
)

func sixteenBitSamples(payload []byte) uint32 {
	return uint32(len(payload) / 2 / 2) // 2 channels, 2 bytes per sample
}

func TestComposeParseRoundTripPlain(t *testing.T) {
	binding := Binding{PayloadType: 111, Scheme: SchemeNone}

	orig := &packet.Packet{
		SourceID:        0xCAFEBABE,
		Seqnum:          1234,
		StreamTimestamp: 99999,
		Marker:          true,
		PayloadType:     111,
		Payload:         []byte{1, 2, 3, 4, 5, 6, 7, 8},
	}

	data, err := Compose(orig, binding)
	require.NoError(t, err)

	got, err := Parse(data, binding, sixteenBitSamples)
	require.NoError(t, err)

	require.Equal(t, orig.SourceID, got.SourceID)
	require.Equal(t, orig.Seqnum, got.Seqnum)
	require.Equal(t, orig.StreamTimestamp, got.StreamTimestamp)
	require.Equal(t, orig.Marker, got.Marker)
	require.Equal(t, orig.PayloadType, got.PayloadType)
	require.Equal(t, orig.Payload, got.Payload)
	require.True(t, got.Flags.Has(packet.FlagRTP))
	require.True(t, got.Flags.Has(packet.FlagAudio))
	require.False(t, got.Flags.Has(packet.FlagFEC))
	require.Equal(t, uint32(2), got.Samples)
}

func TestComposeParseRoundTripPreservesCSRC(t *testing.T) {
	binding := Binding{PayloadType: 111, Scheme: SchemeNone}

	orig := &packet.Packet{
		SourceID:        0xCAFEBABE,
		Seqnum:          1234,
		StreamTimestamp: 99999,
		PayloadType:     111,
		Payload:         []byte{1, 2, 3, 4, 5, 6, 7, 8},
		CSRC:            []uint32{0x1111, 0x2222, 0x3333},
	}

	data, err := Compose(orig, binding)
	require.NoError(t, err)

	got, err := Parse(data, binding, sixteenBitSamples)
	require.NoError(t, err)

	require.Equal(t, orig.CSRC, got.CSRC)
}

func TestComposeParseRoundTripSourceWithFEC(t *testing.T) {
	binding := Binding{PayloadType: 120, Scheme: SchemeReedSolomon8, IsRepair: false}

	orig := &packet.Packet{
		SourceID:        42,
		Seqnum:          7,
		StreamTimestamp: 1600,
		PayloadType:     120,
		Payload:         []byte{0xAA, 0xBB, 0xCC, 0xDD},
		FEC:             &packet.FECView{SBN: 3, ESI: 5, SBL: 10, BL: 15},
	}

	data, err := Compose(orig, binding)
	require.NoError(t, err)

	got, err := Parse(data, binding, sixteenBitSamples)
	require.NoError(t, err)

	require.Equal(t, orig.Payload, got.Payload)
	require.True(t, got.Flags.Has(packet.FlagFEC))
	require.False(t, got.Flags.Has(packet.FlagRepair))
	require.Equal(t, orig.FEC, got.FEC)
}

func TestComposeParseRoundTripRepairWithFEC(t *testing.T) {
	binding := Binding{PayloadType: 121, Scheme: SchemeLDPCStaircase, IsRepair: true}

	orig := &packet.Packet{
		SourceID:    42,
		Seqnum:      8,
		PayloadType: 121,
		Payload:     []byte{0x01, 0x02, 0x03, 0x04},
		FEC:         &packet.FECView{SBN: 100000, ESI: 9, SBL: 10, BL: 15},
	}

	data, err := Compose(orig, binding)
	require.NoError(t, err)

	got, err := Parse(data, binding, nil)
	require.NoError(t, err)

	require.Equal(t, orig.Payload, got.Payload)
	require.True(t, got.Flags.Has(packet.FlagRepair))
	require.Equal(t, orig.FEC, got.FEC)
	require.Equal(t, uint32(0), got.Samples, "repair packets carry no sample count")
}

func TestParseRejectsShortFECPayload(t *testing.T) {
	binding := Binding{PayloadType: 120, Scheme: SchemeReedSolomon8}

	orig := &packet.Packet{
		PayloadType: 120,
		Payload:     []byte{0x01, 0x02},
	}
	data, err := Compose(orig, binding)
	require.NoError(t, err)

	// orig carries no FEC view, so no footer was composed: the 2-byte
	// payload is shorter than the 4-byte Reed-Solomon footer Parse expects
	_, err = Parse(data, binding, nil)
	require.Error(t, err)
}
