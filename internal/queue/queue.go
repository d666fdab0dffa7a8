// Package queue implements the Packet Queues component (C1, spec.md §4.1):
// two bounded ring buffers ordered by stream position, holding owned
// demuxer-packet handles plus derived metadata. Growth is the only capacity
// change a Ring ever undergoes; synchronizing that growth against a
// concurrent reader is the caller's job (spec.md §5), not this package's —
// mirroring how the teacher's SharedAudioBuffer locks only its own state and
// leaves cross-component ordering to whoever composes it.
package queue

import "fmt"

// InvalidTimestamp is the sentinel spec.md §3 reserves for "no timestamp".
const InvalidTimestamp uint64 = ^uint64(0)

// Type distinguishes the two track kinds the pipeline ever queues.
type Type int

const (
	TypeVideo Type = iota
	TypeAudio
)

// RawPacket is the demuxer-owned packet handle a Packet wraps. Release must
// be idempotent-safe to call exactly once; the queue guarantees it calls it
// exactly once, on release, clear, or teardown.
type RawPacket interface {
	Release()
	TrackIndex() int
	ChunkCount() int
	Chunk(i int) []byte
	IsKeyframe() bool
}

// Packet is an entity owning one demuxer packet handle plus the metadata
// spec.md §3 lists: normalized timestamp, type, keyframe flag, a decoded
// flag set by the video worker once its picture lands on the frame ring,
// and a produced-during-seek flag telling the worker to replace rather than
// append.
type Packet struct {
	Raw                RawPacket
	Timestamp          uint64
	Type               Type
	Keyframe           bool
	Decoded            bool
	ProducedDuringSeek bool
}

// growBy is the fixed capacity increment spec.md §4.1 specifies.
const growBy = 16

// Ring is a growable, FIFO ring of Packets of one Type. Capacity only grows;
// it never shrinks during a session.
type Ring struct {
	slots []*Packet
	begin int
	count int
}

// NewRing creates a ring with the given initial capacity, raised to growBy
// if smaller.
func NewRing(initialCapacity int) *Ring {
	if initialCapacity < growBy {
		initialCapacity = growBy
	}
	return &Ring{slots: make([]*Packet, initialCapacity)}
}

func (r *Ring) Len() int      { return r.count }
func (r *Ring) Cap() int      { return len(r.slots) }
func (r *Ring) IsEmpty() bool { return r.count == 0 }

func (r *Ring) index(logical int) int {
	return (r.begin + logical) % len(r.slots)
}

// ReserveSlot appends p at the tail, growing the
// backing array by growBy if it is full. The caller must hold whatever lock
// spec.md §5 requires during growth (the decoder mutex) before calling this
// when the ring might be full.
func (r *Ring) ReserveSlot(p *Packet) {
	if r.count == len(r.slots) {
		r.grow()
	}
	r.slots[r.index(r.count)] = p
	r.count++
}

// grow re-linearizes the backing array into a larger one. The caller must
// already hold the decoder mutex (spec.md §9: this is the one place a naive
// split lock is insufficient, because the worker may still be reading a
// packet's chunk pointers through the old storage while this runs).
func (r *Ring) grow() {
	newSlots := make([]*Packet, len(r.slots)+growBy)
	for i := 0; i < r.count; i++ {
		newSlots[i] = r.slots[r.index(i)]
	}
	r.slots = newSlots
	r.begin = 0
}

// PeekOldest returns the head of the ring, or nil if empty.
func (r *Ring) PeekOldest() *Packet {
	if r.count == 0 {
		return nil
	}
	return r.slots[r.begin]
}

// PeekNewest returns the tail of the ring, or nil if empty.
func (r *Ring) PeekNewest() *Packet {
	if r.count == 0 {
		return nil
	}
	return r.slots[r.index(r.count-1)]
}

// PeekOldestUndecodedVideo scans from begin for the first packet whose
// Decoded flag is false, per spec.md §4.1. It bounds its own scan: once it
// has seen more than prefetchWindow packets whose timestamp already exceeds
// position, it stops and returns nil, throttling work during playback
// stalls rather than scanning the whole ring every call.
func (r *Ring) PeekOldestUndecodedVideo(position uint64, prefetchWindow int) *Packet {
	aheadOfPosition := 0
	for i := 0; i < r.count; i++ {
		p := r.slots[r.index(i)]
		if !p.Decoded {
			return p
		}
		if p.Timestamp > position {
			aheadOfPosition++
			if aheadOfPosition > prefetchWindow {
				return nil
			}
		}
	}
	return nil
}

// ReleaseOldest frees the head packet's underlying demuxer handle, advances
// begin, and decrements count. It panics if p is not the current head,
// since that would indicate a caller bug (spec.md §4.1: release_oldest
// "asserts that packet points at slot begin").
func (r *Ring) ReleaseOldest(p *Packet) {
	if r.count == 0 || r.slots[r.begin] != p {
		panic(fmt.Sprintf("queue: ReleaseOldest called with non-head packet"))
	}
	p.Raw.Release()
	r.slots[r.begin] = nil
	r.begin = r.index(1)
	r.count--
}

// Clear releases every queued packet and resets the ring to empty, used at
// the start of every seek pass (spec.md §4.7).
func (r *Ring) Clear() {
	for r.count > 0 {
		r.ReleaseOldest(r.slots[r.begin])
	}
}
