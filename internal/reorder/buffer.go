// Package reorder implements the Reorder Buffer: an ordered multiset of
// inbound data frames keyed by sequence number, draining contiguously
// into the receiver's byte stream. Same heap shape as
// internal/retransmit, mirroring how reliable-UDP implementations in
// the wild (e.g. PeernetOfficial/core/udt's receiveLossHeap/
// dataPacketHeap) keep send- and receive-side bookkeeping structurally
// identical.
package reorder

import (
	"container/heap"

	"reliudp/internal/wire"
)

type pending struct {
	frame    wire.Frame
	inserted uint64
	index    int
}

type pendingHeap []*pending

func (h pendingHeap) Len() int { return len(h) }

func (h pendingHeap) Less(i, j int) bool {
	if h[i].frame.Seq != h[j].frame.Seq {
		return h[i].frame.Seq < h[j].frame.Seq
	}
	return h[i].inserted < h[j].inserted
}

func (h pendingHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *pendingHeap) Push(x any) {
	p := x.(*pending)
	p.index = len(*h)
	*h = append(*h, p)
}

func (h *pendingHeap) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	old[n-1] = nil
	p.index = -1
	*h = old[:n-1]
	return p
}

// Buffer is the Reorder Buffer.
type Buffer struct {
	h    pendingHeap
	next uint64
}

// New returns an empty Buffer.
func New() *Buffer {
	return &Buffer{h: make(pendingHeap, 0)}
}

// Insert adds a received data frame. Duplicate sequence numbers are
// permitted; they are discarded on Drain.
func (b *Buffer) Insert(frame wire.Frame) {
	p := &pending{frame: frame, inserted: b.next}
	b.next++
	heap.Push(&b.h, p)
}

// Len reports the number of entries currently buffered.
func (b *Buffer) Len() int {
	return len(b.h)
}

// Drain pops entries with seq <= watermark. An entry with seq ==
// watermark is appended to the returned bytes and advances the
// watermark by its payload length; anything else at the front (seq <
// watermark, or a duplicate at the old watermark) is discarded.
// Stops when the front entry has seq > watermark or the buffer is
// empty.
func (b *Buffer) Drain(watermark uint64) (newWatermark uint64, appended []byte) {
	newWatermark = watermark
	for len(b.h) > 0 && b.h[0].frame.Seq <= newWatermark {
		p := heap.Pop(&b.h).(*pending)
		if p.frame.Seq == newWatermark {
			appended = append(appended, p.frame.Payload...)
			newWatermark += uint64(p.frame.Len())
		}
		// else: p.frame.Seq < newWatermark, a duplicate — discard
	}
	return newWatermark, appended
}
