package sampleutil

import "testing"

func TestParseSampleSpecRoundTrip(t *testing.T) {
	spec, err := ParseSampleSpec("s16be/44100/stereo")
	if err != nil {
		t.Fatalf("ParseSampleSpec: %v", err)
	}
	if spec.Rate != 44100 || spec.Format != PcmSint16BE || spec.NumChannels() != 2 {
		t.Fatalf("unexpected spec: %+v", spec)
	}
	if got := spec.String(); got != "s16be/44100/FL,FR" {
		t.Fatalf("String() = %q", got)
	}
}

func TestParseSampleSpecRejectsGarbage(t *testing.T) {
	if _, err := ParseSampleSpec("not-a-spec"); err == nil {
		t.Fatalf("expected error for malformed spec")
	}
	if _, err := ParseSampleSpec("bogus/44100/stereo"); err == nil {
		t.Fatalf("expected error for unknown format")
	}
	if _, err := ParseSampleSpec("s16be/0/stereo"); err == nil {
		t.Fatalf("expected error for zero rate")
	}
}

func TestNsToSamplesPerChanRoundTrip(t *testing.T) {
	spec := SampleSpec{Rate: 48000, Format: PcmSint16BE, Channels: ChannelSet{Mask: mask("FL", "FR"), Named: true}}

	for _, samples := range []uint64{0, 1, 480, 48000, 123456} {
		ns := spec.SamplesPerChanToNs(samples)
		back := spec.NsToSamplesPerChan(ns)
		if back != samples {
			t.Fatalf("round trip mismatch: samples=%d ns=%d back=%d", samples, ns, back)
		}
	}
}

func TestNsToStreamTimestampDeltaPreservesSign(t *testing.T) {
	spec := SampleSpec{Rate: 44100, Format: PcmSint16BE, Channels: ChannelSet{Mask: mask("FL", "FR"), Named: true}}

	pos := spec.NsToStreamTimestampDelta(20_000_000)
	neg := spec.NsToStreamTimestampDelta(-20_000_000)
	if pos <= 0 {
		t.Fatalf("expected positive delta, got %d", pos)
	}
	if neg != -pos {
		t.Fatalf("expected symmetric delta, got %d and %d", pos, neg)
	}
}

func TestChannelSetParsing(t *testing.T) {
	cases := []struct {
		in       string
		channels int
	}{
		{"stereo", 2},
		{"mono", 1},
		{"surround5.1", 6},
		{"surround5.1.2", 8},
		{"FL,FR,FC", 3},
		{"0,1,2,3", 4},
		{"1-8", 8},
		{"0xAC", 4},
	}
	for _, c := range cases {
		set, err := ParseChannelSet(c.in)
		if err != nil {
			t.Fatalf("ParseChannelSet(%q): %v", c.in, err)
		}
		if got := set.NumChannels(); got != c.channels {
			t.Fatalf("ParseChannelSet(%q).NumChannels() = %d, want %d", c.in, got, c.channels)
		}
	}
}

func TestChannelSetRejectsGarbage(t *testing.T) {
	if _, err := ParseChannelSet(""); err == nil {
		t.Fatalf("expected error for empty channel set")
	}
	if _, err := ParseChannelSet("not,a,channel"); err == nil {
		t.Fatalf("expected error for unrecognized channel set")
	}
}
