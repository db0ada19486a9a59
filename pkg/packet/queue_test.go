package packet

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func mkPacket(seq uint16) *Packet {
	return &Packet{Seqnum: seq, StreamTimestamp: uint32(seq) * 160, Samples: 160}
}

func fetchAll(t *testing.T, q *Queue) []uint16 {
	t.Helper()
	var out []uint16
	for {
		p, err := q.Read(ModeFetch)
		if err != nil {
			break
		}
		out = append(out, p.Seqnum)
	}
	return out
}

func TestSortedQueueWithDuplicates(t *testing.T) {
	q := NewQueue(0)
	for _, s := range []uint16{3, 1, 4, 1, 5, 9, 2, 6, 5, 3} {
		require.NoError(t, q.Write(mkPacket(s)))
	}

	got := fetchAll(t, q)
	require.Equal(t, []uint16{1, 2, 3, 4, 5, 6, 9}, got)
}

func TestSortedQueueWraparound(t *testing.T) {
	q := NewQueue(0)
	for _, s := range []uint16{1, 65535, 0, 65534, 2} {
		require.NoError(t, q.Write(mkPacket(s)))
	}

	got := fetchAll(t, q)
	require.Equal(t, []uint16{65534, 65535, 0, 1, 2}, got)
}

func TestSortedQueueMaxSizeDropsPacket(t *testing.T) {
	q := NewQueue(2)
	require.NoError(t, q.Write(mkPacket(1)))
	require.NoError(t, q.Write(mkPacket(2)))
	require.NoError(t, q.Write(mkPacket(3)))

	require.Equal(t, 2, q.Size())
}

func TestSortedQueueLatestSurvivesRead(t *testing.T) {
	q := NewQueue(0)
	require.NoError(t, q.Write(mkPacket(1)))
	require.NoError(t, q.Write(mkPacket(5)))
	require.NoError(t, q.Write(mkPacket(3)))

	require.Equal(t, uint16(5), q.Latest().Seqnum)

	_, err := q.Read(ModeFetch)
	require.NoError(t, err)
	require.Equal(t, uint16(5), q.Latest().Seqnum, "latest must survive reads")
}

func TestSortedQueuePeekDoesNotRemove(t *testing.T) {
	q := NewQueue(0)
	require.NoError(t, q.Write(mkPacket(7)))

	p, err := q.Read(ModePeek)
	require.NoError(t, err)
	require.Equal(t, uint16(7), p.Seqnum)
	require.Equal(t, 1, q.Size())
}

func TestSortedQueueDrainOnEmpty(t *testing.T) {
	q := NewQueue(0)
	_, err := q.Read(ModeFetch)
	require.Error(t, err)
}

func TestSortedQueueNilPacketPanics(t *testing.T) {
	q := NewQueue(0)
	require.Panics(t, func() { _ = q.Write(nil) })
}
