// Package frame implements the Video Frame Ring component (C4, spec.md
// §4.4): a small bounded ring of decoded pictures ordered by presentation
// timestamp, filled by the video worker and drained by the caller. Unlike
// internal/queue's packet rings, this one never grows — it is sized once at
// VideoFramesToPrefetch+1 and overflow means "drop the oldest", not "grow".
package frame

import "github.com/crudelios/easyav1-go/internal/av1dec"

// Frame pairs a decoded picture with its presentation timestamp.
type Frame struct {
	Picture   *av1dec.Picture
	Timestamp uint64
}

// Ring is a fixed-capacity FIFO of Frames. Capacity is chosen by the caller
// (spec.md §4.4 ties it to VideoFramesToPrefetch+1) and never changes.
type Ring struct {
	slots []*Frame
	begin int
	count int
}

// New creates a ring with the given fixed capacity.
func New(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{slots: make([]*Frame, capacity)}
}

func (r *Ring) Len() int      { return r.count }
func (r *Ring) Cap() int      { return len(r.slots) }
func (r *Ring) IsEmpty() bool { return r.count == 0 }
func (r *Ring) IsFull() bool  { return r.count == len(r.slots) }

func (r *Ring) index(logical int) int {
	return (r.begin + logical) % len(r.slots)
}

// Push appends f; if the ring is already full, the oldest slot is dropped
// (its picture released) to make room first.
func (r *Ring) Push(f *Frame) {
	if r.count == len(r.slots) {
		r.dropOldest()
	}
	r.slots[r.index(r.count)] = f
	r.count++
}

// PushReplacing releases the oldest slot (if any) before appending f. The
// video worker uses this for pictures decoded from a produced-during-seek
// packet, so at most one such picture survives a seek-reset decode
// (spec.md §4.4).
func (r *Ring) PushReplacing(f *Frame) {
	if r.count > 0 {
		r.dropOldest()
	}
	r.slots[r.index(r.count)] = f
	r.count++
}

func (r *Ring) dropOldest() {
	head := r.slots[r.begin]
	if head != nil && head.Picture != nil && head.Picture.Unref != nil {
		head.Picture.Unref()
	}
	r.slots[r.begin] = nil
	r.begin = r.index(1)
	r.count--
}

// PeekOldest returns the head Frame, or nil if empty.
func (r *Ring) PeekOldest() *Frame {
	if r.count == 0 {
		return nil
	}
	return r.slots[r.begin]
}

// Pop releases the head Frame's picture and advances begin.
func (r *Ring) Pop() {
	if r.count == 0 {
		return
	}
	r.dropOldest()
}

// Take removes and returns the head Frame without releasing its picture —
// used when the caller (GetVideoFrame) is taking ownership of the picture
// itself rather than discarding it.
func (r *Ring) Take() *Frame {
	if r.count == 0 {
		return nil
	}
	f := r.slots[r.begin]
	r.slots[r.begin] = nil
	r.begin = r.index(1)
	r.count--
	return f
}

// Clear releases every buffered picture, used at the start of every seek
// pass.
func (r *Ring) Clear() {
	for r.count > 0 {
		r.dropOldest()
	}
}
