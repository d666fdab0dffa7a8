// Package demux defines the WebM demuxer collaborator contract (spec.md
// §6.2) and the Driver that turns its packet-at-a-time API into queued,
// normalized, synced Packets (C2 and C6, spec.md §4.2/§4.6).
package demux

// TrackType distinguishes the two track kinds the pipeline selects between.
type TrackType int

const (
	TrackVideo TrackType = iota
	TrackAudio
)

// VideoProperties is what the demuxer knows about a video track without
// decoding any of its frames.
type VideoProperties struct {
	Width, Height       int
	DefaultFrameDuration uint64 // nanoseconds, per WebM convention
}

// AudioProperties is what the demuxer knows about an audio track up front.
type AudioProperties struct {
	Channels   int
	SampleRate int
	CodecDelay uint64 // nanoseconds
}

// RawPacket is one packet as the demuxer hands it over: a track index, an
// internal-units timestamp, a keyframe flag, and one or more contiguous
// byte chunks (WebM lets a block carry several "lacing" sub-frames). Release
// frees whatever C-owned storage backs Chunks, mirroring the demuxer's
// free_packet (spec.md §6.2); it is nil-safe for demuxers with no such need.
type RawPacket struct {
	TrackIndex int
	Timestamp  uint64
	Keyframe   bool
	Chunks     [][]byte
	Release    func()
}

// Demuxer is the external WebM parser collaborator (spec.md §6.2), treated
// as a black box: the core only ever drives it through this contract, never
// inspects EBML structure itself.
type Demuxer interface {
	TrackCount() int
	TrackType(track int) TrackType
	CodecID(track int) string
	VideoProperties(track int) VideoProperties
	AudioProperties(track int) AudioProperties
	// CodecPrivate returns the codec-private header block(s) for a track —
	// for Vorbis, the three header packets; for AV1, the sequence header.
	CodecPrivate(track int) [][]byte

	// ReadPacket reads the next packet in the file, or (nil, io.EOF)-shaped
	// via ok=false at end of stream.
	ReadPacket() (pkt *RawPacket, ok bool, err error)

	HasKeyframe(track int) bool
	HasCues() bool
	// CuePointBefore returns the largest cue-point timestamp on track that
	// is ≤ targetTimestamp (internal units), used by the seek engine's
	// Pass A to pick its initial demuxer seek target (spec.md §4.7). found
	// is false if the track has no cues, or none at or before the target.
	CuePointBefore(track int, targetTimestamp uint64) (ts uint64, found bool)

	// TrackSeek repositions the demuxer so the next ReadPacket returns data
	// at or before internalTimestamp on track.
	TrackSeek(track int, internalTimestamp uint64) error

	Duration() uint64   // internal units
	TimeScale() uint64  // internal units per second, e.g. 1_000_000_000 for ns
}
