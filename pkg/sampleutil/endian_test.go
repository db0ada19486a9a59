package sampleutil

import "testing"

func TestSwapEndianRoundTrip(t *testing.T) {
	if got := SwapEndian16(SwapEndian16(0xABCD)); got != 0xABCD {
		t.Fatalf("SwapEndian16 round trip: got %x", got)
	}
	if got := SwapEndian32(SwapEndian32(0x01020304)); got != 0x01020304 {
		t.Fatalf("SwapEndian32 round trip: got %x", got)
	}
	if got := SwapEndian64(SwapEndian64(0x0102030405060708)); got != 0x0102030405060708 {
		t.Fatalf("SwapEndian64 round trip: got %x", got)
	}
}

func TestSwapEndianKnownValue(t *testing.T) {
	if got := SwapEndian16(0x1234); got != 0x3412 {
		t.Fatalf("SwapEndian16(0x1234) = %x, want 0x3412", got)
	}
	if got := SwapEndian32(0x01020304); got != 0x04030201 {
		t.Fatalf("SwapEndian32(0x01020304) = %x, want 0x04030201", got)
	}
}

func TestNtoHHtoNRoundTrip(t *testing.T) {
	if got := NtoH16(HtoN16(0xBEEF)); got != 0xBEEF {
		t.Fatalf("NtoH16(HtoN16(x)) = %x", got)
	}
	if got := NtoH32(HtoN32(0xDEADBEEF)); got != 0xDEADBEEF {
		t.Fatalf("NtoH32(HtoN32(x)) = %x", got)
	}
}
