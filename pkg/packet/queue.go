package packet

import "github.com/roc-streaming/roc-go-receiver/pkg/rocstatus"

// ReadMode selects whether Queue.Read removes the packet it returns.
type ReadMode int

const (
	// ModePeek returns the head packet without removing it.
	ModePeek ReadMode = iota
	// ModeFetch returns and removes the head packet.
	ModeFetch
)

// Queue is an insertion-sorted, modular-compare packet queue with an
// optional maximum size. Not safe for concurrent use; callers crossing a
// thread boundary (network thread enqueuing, device thread dequeuing) must
// hold their own lock around each call.
type Queue struct {
	items   []*Packet
	latest  *Packet
	maxSize int
}

// NewQueue creates an empty queue. maxSize of 0 means unlimited.
func NewQueue(maxSize int) *Queue {
	return &Queue{maxSize: maxSize}
}

// Size returns the number of packets currently queued.
func (q *Queue) Size() int {
	return len(q.items)
}

// Latest returns the latest packet (by modular sequence order) ever
// written to this queue, even if it has since been read out, or nil if
// the queue has never held a packet.
func (q *Queue) Latest() *Packet {
	return q.latest
}

// Head returns the first packet in the queue without removing it, or nil.
func (q *Queue) Head() *Packet {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

// Tail returns the last packet in the queue without removing it, or nil.
func (q *Queue) Tail() *Packet {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[len(q.items)-1]
}

// Write inserts p keeping the queue sorted by Compare. It drops p
// (returning nil either way — a drop is not an error, only a
// diagnostic condition) when the queue is at max size or p duplicates an
// already-queued packet.
func (q *Queue) Write(p *Packet) error {
	if p == nil {
		panic("packet queue: attempting to add nil packet")
	}

	if q.maxSize > 0 && len(q.items) == q.maxSize {
		return nil
	}

	if q.latest == nil || Compare(q.latest, p) <= 0 {
		q.latest = p
	}

	i := len(q.items) - 1
	for ; i >= 0; i-- {
		cmp := Compare(p, q.items[i])
		if cmp < 0 {
			continue
		}
		if cmp == 0 {
			// duplicate, drop
			return nil
		}
		break
	}

	insertAt := i + 1
	q.items = append(q.items, nil)
	copy(q.items[insertAt+1:], q.items[insertAt:])
	q.items[insertAt] = p

	return nil
}

// Read returns the head packet, removing it if mode is ModeFetch. Returns
// a rocstatus.Drain error if the queue is empty.
func (q *Queue) Read(mode ReadMode) (*Packet, error) {
	if len(q.items) == 0 {
		return nil, rocstatus.New(rocstatus.Drain)
	}

	p := q.items[0]
	if mode == ModeFetch {
		copy(q.items, q.items[1:])
		q.items[len(q.items)-1] = nil
		q.items = q.items[:len(q.items)-1]
	}
	return p, nil
}
