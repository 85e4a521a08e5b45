// Package retransmit implements the Retransmit Queue: an ordered
// multiset of in-flight outbound frames keyed by sequence number,
// tracking send time per frame so stale entries can be found and
// resent. Backed by container/heap, the idiomatic Go shape for a
// priority structure (see PeernetOfficial/core's udt receiver, which
// keeps its own send/receive bookkeeping in the same kind of heap).
package retransmit

import (
	"container/heap"
	"time"

	"reliudp/internal/wire"
)

// Entry is a frame in flight, plus its last send time.
type Entry struct {
	Frame    wire.Frame
	SentAt   time.Time
	inserted uint64 // tiebreaker: container/heap is not stable
	index    int    // heap.Interface bookkeeping
}

// End returns the offset one past this entry's payload.
func (e *Entry) End() uint64 {
	return e.Frame.End()
}

type entryHeap []*Entry

func (h entryHeap) Len() int { return len(h) }

func (h entryHeap) Less(i, j int) bool {
	if h[i].Frame.Seq != h[j].Frame.Seq {
		return h[i].Frame.Seq < h[j].Frame.Seq
	}
	return h[i].inserted < h[j].inserted
}

func (h entryHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *entryHeap) Push(x any) {
	e := x.(*Entry)
	e.index = len(*h)
	*h = append(*h, e)
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*h = old[:n-1]
	return e
}

// Queue is the Retransmit Queue: a min-heap of Entry ordered by Seq
// ascending, ties broken by insertion order.
type Queue struct {
	h    entryHeap
	next uint64
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{h: make(entryHeap, 0)}
}

// Push inserts frame with the given send time.
func (q *Queue) Push(frame wire.Frame, now time.Time) *Entry {
	e := &Entry{Frame: frame, SentAt: now, inserted: q.next}
	q.next++
	heap.Push(&q.h, e)
	return e
}

// Peek returns the minimum-seq entry, if any.
func (q *Queue) Peek() (*Entry, bool) {
	if len(q.h) == 0 {
		return nil, false
	}
	return q.h[0], true
}

// PopFront removes the minimum-seq entry, if any.
func (q *Queue) PopFront() {
	if len(q.h) == 0 {
		return
	}
	heap.Pop(&q.h)
}

// Len reports the number of entries currently queued.
func (q *Queue) Len() int {
	return len(q.h)
}

// Prune pops every entry whose payload ends at or before watermark
// (seq+len(payload) <= watermark). This intentionally differs from the
// original source's simpler `seq < watermark` predicate: under
// variable payload sizes that predicate can prune a frame slightly
// before it is fully acknowledged. See DESIGN.md.
func (q *Queue) Prune(watermark uint64) int {
	pruned := 0
	for len(q.h) > 0 && q.h[0].End() <= watermark {
		heap.Pop(&q.h)
		pruned++
	}
	return pruned
}

// FirstStale returns the minimum entry if it has been in flight longer
// than timeout, else (nil, false). Only the minimum is ever considered:
// the caller's loop provides repetition across calls.
func (q *Queue) FirstStale(now time.Time, timeout time.Duration) (*Entry, bool) {
	if len(q.h) == 0 {
		return nil, false
	}
	e := q.h[0]
	if now.Sub(e.SentAt) > timeout {
		return e, true
	}
	return nil, false
}

// Requeue removes e from the queue and reinserts it with a refreshed
// send time, used when a stale entry is retransmitted.
func (q *Queue) Requeue(e *Entry, now time.Time) {
	if e.index >= 0 && e.index < len(q.h) && q.h[e.index] == e {
		heap.Remove(&q.h, e.index)
	}
	e.SentAt = now
	e.inserted = q.next
	q.next++
	heap.Push(&q.h, e)
}
