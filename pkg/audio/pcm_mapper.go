package audio

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/roc-streaming/roc-go-receiver/pkg/sampleutil"
)

// sampleCodec converts one PCM wire subformat to/from the pipeline's
// internal float32 representation. Byte-aligned PCM only — bit-packed
// formats have no place in sampleutil.PcmFormat's closed set, so
// codecFor rejecting anything else is the only validation needed.
type sampleCodec struct {
	bytesPerSample int
	decode         func(b []byte) float32
	encode         func(v float32, b []byte)
}

func u8Codec() sampleCodec {
	return sampleCodec{
		bytesPerSample: 1,
		decode: func(b []byte) float32 {
			return (float32(b[0]) - 128) / 128
		},
		encode: func(v float32, b []byte) {
			b[0] = byte(clamp(v)*128 + 128)
		},
	}
}

func s16beCodec() sampleCodec {
	return sampleCodec{
		bytesPerSample: 2,
		decode: func(b []byte) float32 {
			return float32(int16(binary.BigEndian.Uint16(b))) / 32768
		},
		encode: func(v float32, b []byte) {
			binary.BigEndian.PutUint16(b, uint16(int16(clamp(v)*32767)))
		},
	}
}

func s24beCodec() sampleCodec {
	return sampleCodec{
		bytesPerSample: 3,
		decode: func(b []byte) float32 {
			v := int32(b[0])<<16 | int32(b[1])<<8 | int32(b[2])
			if v&0x800000 != 0 {
				v |= ^int32(0xFFFFFF)
			}
			return float32(v) / 8388608
		},
		encode: func(v float32, b []byte) {
			x := int32(clamp(v) * 8388607)
			b[0] = byte(x >> 16)
			b[1] = byte(x >> 8)
			b[2] = byte(x)
		},
	}
}

func s32beCodec() sampleCodec {
	return sampleCodec{
		bytesPerSample: 4,
		decode: func(b []byte) float32 {
			return float32(int32(binary.BigEndian.Uint32(b))) / 2147483648
		},
		encode: func(v float32, b []byte) {
			binary.BigEndian.PutUint32(b, uint32(int32(clamp(v)*2147483647)))
		},
	}
}

func f32beCodec() sampleCodec {
	return sampleCodec{
		bytesPerSample: 4,
		decode: func(b []byte) float32 {
			return math.Float32frombits(binary.BigEndian.Uint32(b))
		},
		encode: func(v float32, b []byte) {
			binary.BigEndian.PutUint32(b, math.Float32bits(v))
		},
	}
}

func clamp(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

func codecFor(format sampleutil.PcmFormat) (sampleCodec, error) {
	switch format {
	case sampleutil.PcmUint8:
		return u8Codec(), nil
	case sampleutil.PcmSint16BE:
		return s16beCodec(), nil
	case sampleutil.PcmSint24BE:
		return s24beCodec(), nil
	case sampleutil.PcmSint32BE:
		return s32beCodec(), nil
	case sampleutil.PcmFloat32BE:
		return f32beCodec(), nil
	default:
		return sampleCodec{}, fmt.Errorf("audio: unsupported pcm format %s", format)
	}
}

// PcmDecoder adapts a wire PCM subformat into the Depacketizer's
// PayloadDecoder interface.
type PcmDecoder struct {
	codec sampleCodec
}

// NewPcmDecoder builds a decoder for the given wire format.
func NewPcmDecoder(format sampleutil.PcmFormat) (*PcmDecoder, error) {
	codec, err := codecFor(format)
	if err != nil {
		return nil, err
	}
	return &PcmDecoder{codec: codec}, nil
}

// Decode implements PayloadDecoder.
func (d *PcmDecoder) Decode(dst []float32, payload []byte, spec sampleutil.SampleSpec) ([]float32, error) {
	bps := d.codec.bytesPerSample
	if len(payload)%bps != 0 {
		return dst, fmt.Errorf("audio: payload length %d not a multiple of sample size %d", len(payload), bps)
	}
	n := len(payload) / bps
	out := dst
	for i := 0; i < n; i++ {
		out = append(out, d.codec.decode(payload[i*bps:(i+1)*bps]))
	}
	return out, nil
}

// PcmMapperReader converts frames produced by an upstream Reader from one
// PCM-derived float32 representation to a different wire subformat's
// round-trip precision, by re-quantizing through the target codec. Both
// sides must already agree on rate and channel count — PcmMapperReader
// does not resample or remix, only requantizes.
type PcmMapperReader struct {
	upstream Reader
	to       sampleCodec
}

// NewPcmMapperReader builds a mapper that requantizes every frame pulled
// from upstream through toFormat's codec (rounding it to that format's
// precision) before handing the frame onward, while leaving the
// in-pipeline representation as float32.
func NewPcmMapperReader(upstream Reader, toFormat sampleutil.PcmFormat) (*PcmMapperReader, error) {
	to, err := codecFor(toFormat)
	if err != nil {
		return nil, err
	}
	return &PcmMapperReader{upstream: upstream, to: to}, nil
}

// Read pulls exactly one frame from upstream and requantizes it in place.
// Frame count in equals frame count out.
func (m *PcmMapperReader) Read(frame *Frame) error {
	if err := m.upstream.Read(frame); err != nil {
		return err
	}
	buf := make([]byte, m.to.bytesPerSample)
	for i, v := range frame.Samples {
		m.to.encode(v, buf)
		frame.Samples[i] = m.to.decode(buf)
	}
	return nil
}