package demux

import (
	"fmt"

	"github.com/crudelios/easyav1-go/internal/queue"
)

// packetAdapter makes a RawPacket satisfy queue.RawPacket without the
// queue package needing to know anything about demux types.
type packetAdapter struct{ p *RawPacket }

func (a packetAdapter) Release() {
	if a.p.Release != nil {
		a.p.Release()
	}
}
func (a packetAdapter) TrackIndex() int  { return a.p.TrackIndex }
func (a packetAdapter) ChunkCount() int  { return len(a.p.Chunks) }
func (a packetAdapter) Chunk(i int) []byte { return a.p.Chunks[i] }
func (a packetAdapter) IsKeyframe() bool { return a.p.Keyframe }

// FetchResult is FetchOne's tri-valued outcome (spec.md §4.2).
type FetchResult int

const (
	Fetched FetchResult = iota
	EndOfFile
	FetchError
)

// Driver is the Demuxer Driver component (C2) plus the Sync & Prefetch
// policy (C6, spec.md §4.6) layered on top of it. It owns no locks itself;
// the session wraps every call in whatever mutex spec.md §5 requires.
type Driver struct {
	demuxer Demuxer

	videoTrack int // -1 if no video track selected
	audioTrack int // -1 if no audio track selected

	timeScale    uint64
	durationMS   uint64
	audioOffsetMS int64

	videoQueue *queue.Ring
	audioQueue *queue.Ring

	allFetched bool
	synced     bool
}

// New builds a Driver. videoTrack/audioTrack are -1 to disable that stream.
func New(demuxer Demuxer, videoTrack, audioTrack int, audioOffsetMS int64, videoQueue, audioQueue *queue.Ring) *Driver {
	ts := demuxer.TimeScale()
	if ts == 0 {
		ts = 1
	}
	return &Driver{
		demuxer:       demuxer,
		videoTrack:    videoTrack,
		audioTrack:    audioTrack,
		timeScale:     ts,
		durationMS:    scaleToMS(demuxer.Duration(), ts),
		audioOffsetMS: audioOffsetMS,
		videoQueue:    videoQueue,
		audioQueue:    audioQueue,
	}
}

func scaleToMS(internal, timeScale uint64) uint64 {
	// ms = internal * 1000 / timeScale, truncating (spec.md §4.2 numeric
	// policy); timeScale is units-per-second, e.g. 1e9 for nanoseconds.
	return (internal * 1000) / timeScale
}

func (d *Driver) AllFetched() bool { return d.allFetched }
func (d *Driver) DurationMS() uint64 { return d.durationMS }

// FetchOne reads one packet from the demuxer, classifies it against the
// active tracks, normalizes its timestamp, applies the audio offset, and
// enqueues it. Packets on tracks that aren't the active video/audio track
// are read and immediately freed (spec.md §4.2).
func (d *Driver) FetchOne() (FetchResult, error) {
	raw, ok, err := d.demuxer.ReadPacket()
	if err != nil {
		return FetchError, fmt.Errorf("demux: read packet: %w", err)
	}
	if !ok {
		d.allFetched = true
		return EndOfFile, nil
	}

	switch raw.TrackIndex {
	case d.videoTrack:
		ts := scaleToMS(raw.Timestamp, d.timeScale)
		d.videoQueue.ReserveSlot(&queue.Packet{
			Raw:       packetAdapter{raw},
			Timestamp: ts,
			Type:      queue.TypeVideo,
			Keyframe:  raw.Keyframe,
		})
	case d.audioTrack:
		rawMS := int64(scaleToMS(raw.Timestamp, d.timeScale))
		adjusted := rawMS + d.audioOffsetMS
		if d.audioOffsetMS < 0 && -d.audioOffsetMS > rawMS {
			packetAdapter{raw}.Release()
			return Fetched, nil
		}
		if d.audioOffsetMS > 0 && uint64(adjusted) > d.durationMS {
			packetAdapter{raw}.Release()
			return Fetched, nil
		}
		d.audioQueue.ReserveSlot(&queue.Packet{
			Raw:       packetAdapter{raw},
			Timestamp: uint64(adjusted),
			Type:      queue.TypeAudio,
		})
	default:
		packetAdapter{raw}.Release()
	}
	d.synced = false
	return Fetched, nil
}

// SyncPacketQueues implements the Sync & Prefetch policy (C6, spec.md
// §4.6): calls FetchOne until the video prefetch window and the audio-offset
// invariant are both satisfied, or EOF is reached.
func (d *Driver) SyncPacketQueues(position uint64, videoActive, audioActive bool, prefetchWindow int) error {
	if d.synced {
		return nil
	}
	for {
		if d.allFetched {
			break
		}
		needMore := false

		if videoActive && d.videoQueue.Len() < prefetchWindow+1 {
			needMore = true
		}
		if audioActive && d.audioOffsetMS < 0 {
			newest := d.audioQueue.PeekNewest()
			if newest == nil || newest.Timestamp < position {
				needMore = true
			}
		}
		if d.videoQueue.IsEmpty() && d.audioQueue.IsEmpty() {
			needMore = true
		}
		if !needMore {
			break
		}

		result, err := d.FetchOne()
		if err != nil {
			return err
		}
		if result == EndOfFile {
			break
		}
	}
	d.synced = true
	return nil
}

// InvalidateSync clears the synced latch; called whenever a release from
// the packet queues happens (spec.md §4.6).
func (d *Driver) InvalidateSync() { d.synced = false }

// Reset clears both queues and the EOF latch, used at the start of every
// seek pass (spec.md §4.7).
func (d *Driver) Reset() {
	d.videoQueue.Clear()
	d.audioQueue.Clear()
	d.allFetched = false
	d.synced = false
}

func (d *Driver) Demuxer() Demuxer { return d.demuxer }
