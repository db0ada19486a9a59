package session

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roc-streaming/roc-go-receiver/pkg/audio"
)

func TestMixerSumsTwoSessions(t *testing.T) {
	mixer := NewMixer()

	s1 := newTestSession(t)
	s2 := newTestSession(t)
	require.NoError(t, s1.WritePacket(testPacket(0, 0, 100), 0))
	require.NoError(t, s2.WritePacket(testPacket(0, 0, 100), 0))

	mixer.Add(s1)
	mixer.Add(s2)

	frame := &audio.Frame{DurationSamples: 20}
	require.NoError(t, mixer.Read(frame, 0))
	require.Len(t, frame.Samples, 20)
	// each session decodes payload byte 128+k to k/128, so the mix is 2k/128
	require.InDelta(t, 20.0/128, float64(frame.Samples[10]), 1e-6)
}

func TestMixerRemoveDropsSession(t *testing.T) {
	mixer := NewMixer()
	s1 := newTestSession(t)
	s2 := newTestSession(t)

	mixer.Add(s1)
	mixer.Add(s2)
	require.Len(t, mixer.Sessions(), 2)

	mixer.Remove(s1)
	require.Len(t, mixer.Sessions(), 1)
	require.Equal(t, s2, mixer.Sessions()[0])
}

func TestMixerClampsOverflowingSum(t *testing.T) {
	mixer := NewMixer()
	s1 := newTestSession(t)
	s2 := newTestSession(t)
	s3 := newTestSession(t)

	for _, s := range []*Session{s1, s2, s3} {
		p := testPacket(0, 0, 10)
		for i := range p.Payload {
			p.Payload[i] = 255 // max uint8 sample, decodes near +1.0
		}
		require.NoError(t, s.WritePacket(p, 0))
		mixer.Add(s)
	}

	frame := &audio.Frame{DurationSamples: 10}
	require.NoError(t, mixer.Read(frame, 0))
	for _, v := range frame.Samples {
		require.LessOrEqual(t, v, float32(1.0))
	}
}
