package shared

import "errors"

// Sentinel errors for programmer-contract violations: invalid construction
// arguments, components used before they are wired up, or APIs called out
// of order. These are distinct from pkg/rocstatus.Error, which carries the
// closed runtime status taxonomy (packet loss, session termination, etc.)
// handled by callers in the normal course of operation.
var (
	ErrNoLogger           = errors.New("no logger provided")
	ErrInvalidConfig      = errors.New("invalid configuration")
	ErrNotStarted         = errors.New("component not started")
	ErrAlreadyStarted     = errors.New("component already started")
	ErrNilPacket          = errors.New("nil packet")
	ErrNilFrame           = errors.New("nil frame")
	ErrSampleRateMismatch = errors.New("sample rate mismatch")
	ErrChannelMismatch    = errors.New("channel count mismatch")
	ErrUnalignedFormat    = errors.New("pcm format is not byte-aligned")
)
