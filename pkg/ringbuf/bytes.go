// Package ringbuf provides a lock-free single-producer single-consumer
// circular buffer of fixed-size byte chunks, plus a generic typed wrapper
// around it. Port of roc_core::SpscByteBuffer: one writer goroutine and one
// reader goroutine may call their respective halves concurrently without
// blocking each other, under sequentially consistent cursor updates.
package ringbuf

import "sync/atomic"

// Bytes is a fixed-capacity ring of chunk_size-byte chunks. The zero value
// is not usable; construct with NewBytes.
type Bytes struct {
	chunkSize int
	chunks    [][]byte

	// readPos/writePos are monotonically increasing cursors into the
	// chunk ring, mod len(chunks). One extra guard chunk (chunkCount =
	// n_chunks+1) keeps a full ring distinguishable from an empty one
	// without a separate count field.
	readPos  atomic.Uint32
	writePos atomic.Uint32
}

// NewBytes allocates a ring of nChunks usable chunks of chunkSize bytes
// each (nChunks+1 are actually allocated, for the guard slot).
func NewBytes(chunkSize int, nChunks int) *Bytes {
	if chunkSize <= 0 || nChunks <= 0 {
		panic("ringbuf: chunkSize and nChunks must be positive")
	}
	chunkCount := nChunks + 1
	chunks := make([][]byte, chunkCount)
	for i := range chunks {
		chunks[i] = make([]byte, chunkSize)
	}
	b := &Bytes{
		chunkSize: chunkSize,
		chunks:    chunks,
	}
	b.writePos.Store(1)
	return b
}

// IsEmpty reports whether there is currently nothing to read. Safe to call
// from either the reader or writer goroutine.
func (b *Bytes) IsEmpty() bool {
	wr := b.writePos.Load()
	rd := b.readPos.Load()
	return rd+1 == wr
}

// BeginWrite returns the chunk the writer may fill, or nil if the ring is
// full. Must be called only from the writer goroutine.
func (b *Bytes) BeginWrite() []byte {
	wr := b.writePos.Load()
	rd := b.readPos.Load()

	if wr-rd >= uint32(len(b.chunks)) {
		return nil
	}
	return b.chunks[wr%uint32(len(b.chunks))]
}

// EndWrite publishes the chunk most recently returned by BeginWrite. Must
// be called exactly once per non-nil BeginWrite, from the writer goroutine.
func (b *Bytes) EndWrite() {
	b.writePos.Add(1)
}

// BeginRead returns the next chunk to consume, or nil if the ring is
// empty. Must be called only from the reader goroutine.
func (b *Bytes) BeginRead() []byte {
	rd := b.readPos.Load()
	wr := b.writePos.Load()

	if rd+1 == wr {
		return nil
	}
	return b.chunks[(rd+1)%uint32(len(b.chunks))]
}

// EndRead releases the chunk most recently returned by BeginRead. Must be
// called exactly once per non-nil BeginRead, from the reader goroutine.
func (b *Bytes) EndRead() {
	b.readPos.Add(1)
}

// ChunkSize returns the fixed size of every chunk in the ring.
func (b *Bytes) ChunkSize() int {
	return b.chunkSize
}
