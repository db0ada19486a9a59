package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/roc-streaming/roc-go-receiver/pkg/audio"
	"github.com/roc-streaming/roc-go-receiver/pkg/sampleutil"
)

// wavHeaderSize is the canonical 44-byte RIFF/WAVE header: 12 bytes of
// RIFF chunk, 24 bytes of fmt subchunk, 8 bytes of data subchunk header.
const wavHeaderSize = 44

// WavSink writes 16-bit PCM frames to a WAV file, patching the two
// size fields in the header on Close once the final sample count is
// known. It implements session.FrameSink.
type WavSink struct {
	f           *os.File
	spec        sampleutil.SampleSpec
	dataBytes   uint32
	wroteHeader bool
}

// NewWavSink creates (or truncates) path and reserves space for the
// header, to be filled in properly once the sample count is known.
func NewWavSink(path string, spec sampleutil.SampleSpec) (*WavSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("roc-recv-sim: create wav file: %w", err)
	}
	s := &WavSink{f: f, spec: spec}
	if err := s.writeHeader(0); err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

// Write appends frame.Samples (float32, [-1, 1]) to the file as signed
// 16-bit little-endian PCM.
func (s *WavSink) Write(frame *audio.Frame) error {
	buf := make([]byte, len(frame.Samples)*2)
	for i, v := range frame.Samples {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(int16(v*32767)))
	}
	n, err := s.f.Write(buf)
	if err != nil {
		return fmt.Errorf("roc-recv-sim: write wav samples: %w", err)
	}
	s.dataBytes += uint32(n)
	return nil
}

// Close patches the RIFF and data chunk sizes now that dataBytes is
// known, and closes the underlying file.
func (s *WavSink) Close() error {
	if err := s.writeHeader(s.dataBytes); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

func (s *WavSink) writeHeader(dataBytes uint32) error {
	numChannels := uint16(s.spec.NumChannels())
	bitsPerSample := uint16(16)
	byteRate := s.spec.Rate * uint32(numChannels) * uint32(bitsPerSample/8)
	blockAlign := numChannels * (bitsPerSample / 8)

	hdr := make([]byte, wavHeaderSize)
	copy(hdr[0:4], "RIFF")
	binary.LittleEndian.PutUint32(hdr[4:8], 36+dataBytes)
	copy(hdr[8:12], "WAVE")

	copy(hdr[12:16], "fmt ")
	binary.LittleEndian.PutUint32(hdr[16:20], 16) // subchunk1_size, PCM
	binary.LittleEndian.PutUint16(hdr[20:22], 1)  // audio_format, PCM
	binary.LittleEndian.PutUint16(hdr[22:24], numChannels)
	binary.LittleEndian.PutUint32(hdr[24:28], s.spec.Rate)
	binary.LittleEndian.PutUint32(hdr[28:32], byteRate)
	binary.LittleEndian.PutUint16(hdr[32:34], blockAlign)
	binary.LittleEndian.PutUint16(hdr[34:36], bitsPerSample)

	copy(hdr[36:40], "data")
	binary.LittleEndian.PutUint32(hdr[40:44], dataBytes)

	if _, err := s.f.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("roc-recv-sim: seek wav header: %w", err)
	}
	if _, err := s.f.Write(hdr); err != nil {
		return fmt.Errorf("roc-recv-sim: write wav header: %w", err)
	}
	if !s.wroteHeader {
		s.wroteHeader = true
		if _, err := s.f.Seek(0, io.SeekEnd); err != nil {
			return fmt.Errorf("roc-recv-sim: seek wav data: %w", err)
		}
	}
	return nil
}
