// Package audioring implements the Audio Buffer component (C3, spec.md §3):
// a fixed-capacity ring of decoded PCM samples, planar per channel, that the
// audio decoder writes into and the session reads out of in timestamp order.
// It is adapted from the teacher's SharedAudioBuffer — same shift-oldest-out
// ring discipline under a single mutex — generalized from the teacher's
// fixed-stereo shape to the spec's arbitrary channel count and to the two
// distinct consumers spec.md §4.3 describes: a bulk drain for playback and a
// peek that never advances the read position.
package audioring

import "sync"

// Ring holds up to capacity samples per channel. Capacity is fixed at
// construction: spec.md §3 ties it to AudioOffsetTime and sample rate, which
// are only known once the stream is open, not while the ring merely grows
// (unlike internal/queue's packet rings, which grow during playback).
type Ring struct {
	mu       sync.Mutex
	channels int
	capacity int
	planes   [][]float32 // each len == capacity, used as a circular buffer
	begin    int
	count    int

	// firstTimestamp is the playback timestamp of the sample at begin, in
	// the same units as queue.Packet.Timestamp. It advances by one unit of
	// 1/sampleRate seconds per sample consumed.
	firstTimestamp uint64
	sampleRate     int
}

// New creates a ring for the given channel count, sample rate and capacity
// in samples per channel.
func New(channels, sampleRate, capacity int) *Ring {
	planes := make([][]float32, channels)
	for i := range planes {
		planes[i] = make([]float32, capacity)
	}
	return &Ring{
		channels:   channels,
		capacity:   capacity,
		planes:     planes,
		sampleRate: sampleRate,
	}
}

func (r *Ring) Channels() int { return r.channels }
func (r *Ring) Capacity() int { return r.capacity }

func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

func (r *Ring) IsFull() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count == r.capacity
}

func (r *Ring) index(logical int) int {
	return (r.begin + logical) % r.capacity
}

// Write appends up to len(planes[0]) samples, starting at startTimestamp for
// the first sample written if the ring is currently empty (otherwise the
// existing firstTimestamp continues to govern). Per spec.md §4.3's overflow
// policy, if the ring is full the oldest samples are shifted out to make
// room rather than rejecting the write — decoded audio is never dropped in
// favor of what's already buffered.
func (r *Ring) Write(planes [][]float32, startTimestamp uint64) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	if len(planes) > 0 {
		n = len(planes[0])
	}
	if n == 0 {
		return 0
	}
	if r.count == 0 {
		r.firstTimestamp = startTimestamp
	}

	written := 0
	for written < n {
		if r.count == r.capacity {
			r.shiftOldestLocked(1)
		}
		dst := r.index(r.count)
		for ch := 0; ch < r.channels; ch++ {
			if ch < len(planes) {
				r.planes[ch][dst] = planes[ch][written]
			}
		}
		r.count++
		written++
	}
	return written
}

// shiftOldestLocked drops n samples from the head, advancing firstTimestamp.
// Caller must hold mu.
func (r *Ring) shiftOldestLocked(n int) {
	if n > r.count {
		n = r.count
	}
	r.begin = r.index(n)
	r.count -= n
	if r.sampleRate > 0 {
		r.firstTimestamp += uint64(n) * uint64(1000) / uint64(r.sampleRate)
	}
}

// Read drains up to len(out[0]) samples per channel from the head, advancing
// the read position. Returns the number of samples read per channel.
func (r *Ring) Read(out [][]float32) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	if len(out) > 0 {
		n = len(out[0])
	}
	if n > r.count {
		n = r.count
	}
	for i := 0; i < n; i++ {
		src := r.index(i)
		for ch := 0; ch < r.channels && ch < len(out); ch++ {
			out[ch][i] = r.planes[ch][src]
		}
	}
	r.shiftOldestLocked(n)
	return n
}

// PeekTimestamp returns the timestamp of the oldest buffered sample and
// whether the ring is non-empty, without consuming anything.
func (r *Ring) PeekTimestamp() (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.count == 0 {
		return 0, false
	}
	return r.firstTimestamp, true
}

// Clear empties the ring, used at the start of every seek pass.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin = 0
	r.count = 0
	r.firstTimestamp = 0
}
