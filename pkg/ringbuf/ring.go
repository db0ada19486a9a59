package ringbuf

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// Ring is a generic single-producer single-consumer queue of values,
// layered on top of Bytes by gob-encoding each value into one chunk. It
// gives PushBack/PopFront ergonomics (used by the diagnostics channel)
// instead of raw chunk buffers.
type Ring[T any] struct {
	buf *Bytes
}

// NewRing allocates a ring of capacity elements, each gob-encoded into a
// chunk of at most maxEncodedSize bytes.
func NewRing[T any](capacity int, maxEncodedSize int) *Ring[T] {
	return &Ring[T]{buf: NewBytes(maxEncodedSize, capacity)}
}

// PushBack enqueues v, returning false if the ring is full or v's encoded
// form exceeds the chunk size.
func (r *Ring[T]) PushBack(v T) (bool, error) {
	chunk := r.buf.BeginWrite()
	if chunk == nil {
		return false, nil
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return false, fmt.Errorf("ringbuf: encode: %w", err)
	}
	if buf.Len() > len(chunk) {
		return false, fmt.Errorf("ringbuf: encoded value (%d bytes) exceeds chunk size (%d bytes)", buf.Len(), len(chunk))
	}

	n := copy(chunk, buf.Bytes())
	for i := n; i < len(chunk); i++ {
		chunk[i] = 0
	}

	r.buf.EndWrite()
	return true, nil
}

// PopFront dequeues the oldest value, returning ok=false if the ring is
// empty.
func (r *Ring[T]) PopFront() (v T, ok bool, err error) {
	chunk := r.buf.BeginRead()
	if chunk == nil {
		return v, false, nil
	}

	if decErr := gob.NewDecoder(bytes.NewReader(chunk)).Decode(&v); decErr != nil {
		r.buf.EndRead()
		return v, false, fmt.Errorf("ringbuf: decode: %w", decErr)
	}

	r.buf.EndRead()
	return v, true, nil
}

// IsEmpty reports whether there is nothing to pop right now.
func (r *Ring[T]) IsEmpty() bool {
	return r.buf.IsEmpty()
}
