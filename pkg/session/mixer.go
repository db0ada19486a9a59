package session

import (
	"github.com/roc-streaming/roc-go-receiver/pkg/audio"
)

// Mixer sums the output of multiple sessions into one frame stream, the
// way a receiver with several simultaneous senders presents a single
// audio device write. Dead sessions are dropped silently rather than
// propagating their error, since one sender going away shouldn't
// interrupt playback of the others.
type Mixer struct {
	sessions []*Session
	scratch  audio.Frame
}

// NewMixer constructs an empty Mixer. Add sessions with Add.
func NewMixer() *Mixer {
	return &Mixer{}
}

// Add registers a session to be summed into future Read calls.
func (m *Mixer) Add(s *Session) {
	m.sessions = append(m.sessions, s)
}

// Remove drops a session from the mix (e.g. once ReadFrame has reported
// it dead).
func (m *Mixer) Remove(s *Session) {
	for i, cur := range m.sessions {
		if cur == s {
			m.sessions = append(m.sessions[:i], m.sessions[i+1:]...)
			return
		}
	}
}

// Sessions returns the currently mixed sessions, for iteration by a
// caller that wants to prune dead ones itself.
func (m *Mixer) Sessions() []*Session {
	return m.sessions
}

// Read pulls one frame from every live session and sums them
// sample-for-sample into frame.Samples, clamped to [-1, 1]. Sessions that
// return an error are skipped for this frame (treated as silence) rather
// than failing the whole mix; callers should separately poll Alive() and
// Remove dead sessions on their own schedule.
func (m *Mixer) Read(frame *audio.Frame, nowNs int64) error {
	want := frame.DurationSamples
	numChannels := 1
	if len(m.sessions) > 0 {
		numChannels = m.sessions[0].cfg.OutputSpec.NumChannels()
	}
	out := frame.Samples[:0]
	for i := 0; i < int(want)*numChannels; i++ {
		out = append(out, 0)
	}

	for _, s := range m.sessions {
		if !s.Alive() {
			continue
		}

		m.scratch.DurationSamples = want
		m.scratch.Samples = m.scratch.Samples[:0]
		m.scratch.Flags = 0

		if err := s.ReadFrame(&m.scratch, nowNs); err != nil {
			continue
		}

		n := len(m.scratch.Samples)
		if n > len(out) {
			n = len(out)
		}
		for i := 0; i < n; i++ {
			out[i] += m.scratch.Samples[i]
		}
	}

	for i, v := range out {
		if v > 1 {
			out[i] = 1
		} else if v < -1 {
			out[i] = -1
		}
	}

	frame.Samples = out
	return nil
}
