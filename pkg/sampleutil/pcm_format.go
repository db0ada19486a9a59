package sampleutil

import "fmt"

// PcmFormat is the closed set of PCM sample encodings this module moves
// between the wire/depacketizer and the frame pipeline. Mirrors the
// subset of roc_audio::PcmFormat that a receiver (as opposed to an
// encoder) needs to understand.
type PcmFormat int

const (
	PcmInvalid PcmFormat = iota
	PcmUint8
	PcmSint16BE
	PcmSint24BE // 3 bytes per sample, big-endian, sign-extended to int32
	PcmSint32BE
	PcmFloat32BE
)

func (f PcmFormat) String() string {
	switch f {
	case PcmUint8:
		return "u8"
	case PcmSint16BE:
		return "s16be"
	case PcmSint24BE:
		return "s24_3be"
	case PcmSint32BE:
		return "s32be"
	case PcmFloat32BE:
		return "f32"
	default:
		return "invalid"
	}
}

// BytesPerSample returns the wire width of a single channel's sample for
// this format, or 0 if the format is byte-unaligned or invalid.
func (f PcmFormat) BytesPerSample() int {
	switch f {
	case PcmUint8:
		return 1
	case PcmSint16BE:
		return 2
	case PcmSint24BE:
		return 3
	case PcmSint32BE, PcmFloat32BE:
		return 4
	default:
		return 0
	}
}

var pcmFormatByName = map[string]PcmFormat{
	"u8":      PcmUint8,
	"s16be":   PcmSint16BE,
	"s24_3be": PcmSint24BE,
	"s32be":   PcmSint32BE,
	"f32":     PcmFloat32BE,
}

// ParsePcmFormat parses one of the names PcmFormat.String produces.
func ParsePcmFormat(s string) (PcmFormat, error) {
	f, ok := pcmFormatByName[s]
	if !ok {
		return PcmInvalid, fmt.Errorf("sampleutil: unknown pcm format %q", s)
	}
	return f, nil
}
