package audio

import (
	"fmt"

	"github.com/roc-streaming/roc-go-receiver/pkg/sampleutil"
)

const (
	// resamplerMinScaling and resamplerMaxScaling bound the range
	// set_scaling will accept. Port of the numeric range
	// roc_audio::ResamplerReader validates its backend against.
	resamplerMinScaling = 0.5
	resamplerMaxScaling = 2.0
)

// ResamplerReader is a variable-rate sample-rate converter. It pulls input
// frames from upstream at a rate governed by its scaling factor and
// produces exactly the requested number of output samples per Read,
// interpolating between input samples with a linear kernel. Port of
// roc_audio::ResamplerReader, with a linear-interpolation backend in place
// of the original's windowed-sinc core (an implementation detail the
// package doc calls out as replaceable).
type ResamplerReader struct {
	upstream Reader
	spec     sampleutil.SampleSpec

	scaling float64

	window      []float32 // two numChannels-wide frames back to back
	windowStart int64     // absolute input frame index of window's first frame
	framePos    float64   // fractional input frame position of the next output sample
	initialized bool

	upstreamExhausted bool
	upstreamFlags     FrameFlags // flags of upstream frames consumed since the last Read
}

// NewResamplerReader constructs a ResamplerReader with scaling initialized
// to 1.0 (passthrough rate).
func NewResamplerReader(upstream Reader, spec sampleutil.SampleSpec) *ResamplerReader {
	numChannels := spec.NumChannels()
	r := &ResamplerReader{
		upstream: upstream,
		spec:     spec,
		scaling:  1.0,
		window:   make([]float32, 2*numChannels),
	}
	return r
}

// SetScaling implements ScalingResampler. It rejects factors outside the
// backend's supported range.
func (r *ResamplerReader) SetScaling(scaling float64) bool {
	if scaling < resamplerMinScaling || scaling > resamplerMaxScaling {
		return false
	}
	r.scaling = scaling
	return true
}

// Read implements Reader: fills frame with exactly frame.DurationSamples
// samples_per_channel, advancing the internal fractional read position by
// r.scaling input samples per output sample produced.
func (r *ResamplerReader) Read(frame *Frame) error {
	numChannels := r.spec.NumChannels()
	want := frame.DurationSamples
	out := frame.Samples[:0]

	if !r.initialized && !r.upstreamExhausted {
		if err := r.fillInitialWindow(); err != nil {
			r.upstreamExhausted = true
		}
		r.initialized = true
	}

	for i := uint32(0); i < want; i++ {
		for r.framePos >= float64(r.windowStart+1) && !r.upstreamExhausted {
			if err := r.slideWindow(); err != nil {
				r.upstreamExhausted = true
				break
			}
		}

		lo := int64(r.framePos)
		frac := float32(r.framePos - float64(lo))

		for c := 0; c < numChannels; c++ {
			a := r.sampleAt(lo, c)
			b := r.sampleAt(lo+1, c)
			out = append(out, a+(b-a)*frac)
		}

		r.framePos += r.scaling
	}

	frame.Samples = out
	frame.Flags |= r.upstreamFlags
	r.upstreamFlags = 0
	if r.upstreamExhausted {
		frame.Flags |= FlagIncomplete
	}
	return nil
}

// sampleAt returns the sample for channel c at absolute input frame index
// idx, or 0 if idx falls before the current window (never happens in
// practice since framePos only advances) or at/after upstream exhaustion.
func (r *ResamplerReader) sampleAt(idx int64, c int) float32 {
	offset := idx - r.windowStart
	numChannels := r.spec.NumChannels()
	if offset < 0 || int(offset)*numChannels+c >= len(r.window) {
		return 0
	}
	return r.window[int(offset)*numChannels+c]
}

// fillInitialWindow pulls the first two input frames, establishing
// window[0]=sample(0) and window[1]=sample(1) at windowStart=0.
func (r *ResamplerReader) fillInitialWindow() error {
	numChannels := r.spec.NumChannels()
	for n := 0; n < 2; n++ {
		in := &Frame{DurationSamples: 1}
		if err := r.upstream.Read(in); err != nil {
			return err
		}
		if len(in.Samples) < numChannels {
			return fmt.Errorf("audio: resampler reader: short upstream frame")
		}
		copy(r.window[n*numChannels:(n+1)*numChannels], in.Samples[:numChannels])
		r.upstreamFlags |= in.Flags
	}
	return nil
}

// slideWindow pulls one more input frame from upstream, shifting the
// two-deep window forward by one input sample.
func (r *ResamplerReader) slideWindow() error {
	numChannels := r.spec.NumChannels()
	in := &Frame{DurationSamples: 1}
	if err := r.upstream.Read(in); err != nil {
		return err
	}
	if len(in.Samples) < numChannels {
		return fmt.Errorf("audio: resampler reader: short upstream frame")
	}

	copy(r.window, r.window[numChannels:])
	copy(r.window[numChannels:], in.Samples[:numChannels])
	r.windowStart++
	r.upstreamFlags |= in.Flags

	return nil
}
