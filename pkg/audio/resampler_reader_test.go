package audio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roc-streaming/roc-go-receiver/pkg/sampleutil"
)

// constReader hands out an endless stream of mono samples counting
// upward by one each Read call, one sample per call, so tests can reason
// about exact interpolated values.
type constReader struct {
	next float32
}

func (c *constReader) Read(frame *Frame) error {
	frame.Samples = []float32{c.next}
	c.next++
	return nil
}

type finiteReader struct {
	values []float32
	i      int
}

func (f *finiteReader) Read(frame *Frame) error {
	if f.i >= len(f.values) {
		return errors.New("drain")
	}
	frame.Samples = []float32{f.values[f.i]}
	f.i++
	return nil
}

func monoResamplerSpec() sampleutil.SampleSpec {
	return sampleutil.SampleSpec{Rate: 48000, Format: sampleutil.PcmSint16BE, Channels: sampleutil.ChannelSet{Mask: 1, Named: true}}
}

func TestResamplerReaderPassthroughAtUnityScaling(t *testing.T) {
	upstream := &finiteReader{values: []float32{0, 1, 2, 3, 4, 5}}
	r := NewResamplerReader(upstream, monoResamplerSpec())

	frame := &Frame{DurationSamples: 4}
	require.NoError(t, r.Read(frame))
	require.InDeltaSlice(t, []float64{0, 1, 2, 3}, toFloat64(frame.Samples), 1e-6)
}

func TestResamplerReaderRejectsScalingOutOfRange(t *testing.T) {
	r := NewResamplerReader(&constReader{}, monoResamplerSpec())
	require.False(t, r.SetScaling(10.0))
	require.False(t, r.SetScaling(0.01))
	require.True(t, r.SetScaling(1.02))
}

func TestResamplerReaderSlowsDownProducesInterpolatedValues(t *testing.T) {
	upstream := &finiteReader{values: []float32{0, 10, 20, 30, 40, 50}}
	r := NewResamplerReader(upstream, monoResamplerSpec())
	r.SetScaling(0.5)

	frame := &Frame{DurationSamples: 4}
	require.NoError(t, r.Read(frame))
	// advancing input position by 0.5 per output sample: 0, 5, 10, 15
	require.InDeltaSlice(t, []float64{0, 5, 10, 15}, toFloat64(frame.Samples), 1e-6)
}

func TestResamplerReaderMarksIncompleteOnExhaustion(t *testing.T) {
	upstream := &finiteReader{values: []float32{0, 1}}
	r := NewResamplerReader(upstream, monoResamplerSpec())

	frame := &Frame{DurationSamples: 10}
	require.NoError(t, r.Read(frame))
	require.True(t, frame.Flags.Has(FlagIncomplete))
}

func toFloat64(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}
