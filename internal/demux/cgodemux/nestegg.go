// Package cgodemux is the default demux.Demuxer, binding nestegg through
// cgo — the same pkg-config-and-thin-wrapper idiom as internal/av1dec's
// dav1d binding and internal/vorbisdec's libvorbis binding. nestegg is the
// small, pure-C WebM demuxer used by the reference AV1 decode tools
// (dav1d's own player among them), and its I/O callback struct is close
// enough to spec.md §6.1's read/seek/tell abstraction that the stream
// package's Handler bridges onto it directly.
package cgodemux

/*
#cgo pkg-config: nestegg
#include <stdlib.h>
#include <string.h>
#include <nestegg/nestegg.h>

extern int goIORead(void *buffer, size_t length, void *userdata);
extern int goIOSeek(int64_t offset, int whence, void *userdata);
extern int64_t goIOTell(void *userdata);

static nestegg_io make_io(void *userdata) {
    nestegg_io io;
    io.read = goIORead;
    io.seek = goIOSeek;
    io.tell = goIOTell;
    io.userdata = userdata;
    return io;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"unsafe"

	"github.com/crudelios/easyav1-go/internal/demux"
	"github.com/crudelios/easyav1-go/stream"
)

// handles maps the opaque userdata pointers cgo hands back on each callback
// to the stream.Handler they were registered for. cgo forbids passing Go
// pointers that reference other Go pointers across the boundary, so a
// small integer token stands in for the handler instead of a *Handler.
var (
	handlesMu sync.Mutex
	handles   = map[int]stream.Handler{}
	nextToken int
)

func register(h stream.Handler) (int, func()) {
	handlesMu.Lock()
	defer handlesMu.Unlock()
	nextToken++
	tok := nextToken
	handles[tok] = h
	return tok, func() {
		handlesMu.Lock()
		delete(handles, tok)
		handlesMu.Unlock()
	}
}

func lookup(tok int) stream.Handler {
	handlesMu.Lock()
	defer handlesMu.Unlock()
	return handles[tok]
}

//export goIORead
func goIORead(buffer unsafe.Pointer, length C.size_t, userdata unsafe.Pointer) C.int {
	h := lookup(int(uintptr(userdata)))
	if h == nil {
		return -1
	}
	buf := unsafe.Slice((*byte)(buffer), int(length))
	n, err := io.ReadFull(h, buf)
	switch {
	case err == nil:
		return 1
	case errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF):
		if n > 0 {
			return 1
		}
		return 0
	default:
		return -1
	}
}

//export goIOSeek
func goIOSeek(offset C.int64_t, whence C.int, userdata unsafe.Pointer) C.int {
	h := lookup(int(uintptr(userdata)))
	if h == nil {
		return -1
	}
	var goWhence int
	switch whence {
	case C.NESTEGG_SEEK_SET:
		goWhence = io.SeekStart
	case C.NESTEGG_SEEK_CUR:
		goWhence = io.SeekCurrent
	case C.NESTEGG_SEEK_END:
		goWhence = io.SeekEnd
	}
	if _, err := h.Seek(int64(offset), goWhence); err != nil {
		return -1
	}
	return 0
}

//export goIOTell
func goIOTell(userdata unsafe.Pointer) C.int64_t {
	h := lookup(int(uintptr(userdata)))
	if h == nil {
		return -1
	}
	pos, err := h.Tell()
	if err != nil {
		return -1
	}
	return C.int64_t(pos)
}

// Demuxer wraps a nestegg context opened against a stream.Handler.
type Demuxer struct {
	ctx      *C.nestegg
	handler  stream.Handler
	token    int
	unregister func()
}

// Open parses the WebM headers from h and returns a ready-to-read Demuxer.
func Open(h stream.Handler) (*Demuxer, error) {
	tok, unregister := register(h)
	io := C.make_io(unsafe.Pointer(uintptr(tok)))

	d := &Demuxer{handler: h, token: tok, unregister: unregister}
	if ret := C.nestegg_init(&d.ctx, io, nil, -1); ret != 0 {
		unregister()
		return nil, fmt.Errorf("cgodemux: nestegg_init failed: %d", int(ret))
	}
	return d, nil
}

func (d *Demuxer) TrackCount() int {
	var n C.uint
	C.nestegg_track_count(d.ctx, &n)
	return int(n)
}

func (d *Demuxer) TrackType(track int) demux.TrackType {
	switch C.nestegg_track_type(d.ctx, C.uint(track)) {
	case C.NESTEGG_TRACK_VIDEO:
		return demux.TrackVideo
	default:
		return demux.TrackAudio
	}
}

func (d *Demuxer) CodecID(track int) string {
	switch C.nestegg_track_codec_id(d.ctx, C.uint(track)) {
	case C.NESTEGG_CODEC_AV1:
		return "AV1"
	case C.NESTEGG_CODEC_VORBIS:
		return "Vorbis"
	default:
		return "unknown"
	}
}

func (d *Demuxer) VideoProperties(track int) demux.VideoProperties {
	var p C.nestegg_video_params
	C.nestegg_track_video_params(d.ctx, C.uint(track), &p)
	var dur C.uint64_t
	C.nestegg_track_default_duration(d.ctx, C.uint(track), &dur)
	return demux.VideoProperties{
		Width:                int(p.width),
		Height:               int(p.height),
		DefaultFrameDuration: uint64(dur),
	}
}

func (d *Demuxer) AudioProperties(track int) demux.AudioProperties {
	var p C.nestegg_audio_params
	C.nestegg_track_audio_params(d.ctx, C.uint(track), &p)
	return demux.AudioProperties{
		Channels:   int(p.channels),
		SampleRate: int(p.rate),
		CodecDelay: uint64(p.codec_delay),
	}
}

func (d *Demuxer) CodecPrivate(track int) [][]byte {
	var count C.uint
	C.nestegg_track_codec_data_count(d.ctx, C.uint(track), &count)
	out := make([][]byte, 0, int(count))
	for i := C.uint(0); i < count; i++ {
		var data *C.uchar
		var length C.size_t
		if C.nestegg_track_codec_data(d.ctx, C.uint(track), i, &data, &length) != 0 {
			continue
		}
		out = append(out, C.GoBytes(unsafe.Pointer(data), C.int(length)))
	}
	return out
}

func (d *Demuxer) ReadPacket() (*demux.RawPacket, bool, error) {
	var pkt *C.nestegg_packet
	ret := C.nestegg_read_packet(d.ctx, &pkt)
	if ret == 0 {
		return nil, false, nil
	}
	if ret < 0 {
		return nil, false, fmt.Errorf("cgodemux: nestegg_read_packet failed: %d", int(ret))
	}

	var track C.uint
	C.nestegg_packet_track(pkt, &track)
	var tstamp C.uint64_t
	C.nestegg_packet_tstamp(pkt, &tstamp)
	var count C.uint
	C.nestegg_packet_count(pkt, &count)

	chunks := make([][]byte, int(count))
	for i := C.uint(0); i < count; i++ {
		var data *C.uchar
		var length C.size_t
		C.nestegg_packet_data(pkt, i, &data, &length)
		chunks[i] = C.GoBytes(unsafe.Pointer(data), C.int(length))
	}

	keyframe := C.nestegg_packet_has_keyframe(pkt) == C.NESTEGG_PACKET_HAS_KEYFRAME_TRUE

	raw := &demux.RawPacket{
		TrackIndex: int(track),
		Timestamp:  uint64(tstamp),
		Keyframe:   keyframe,
		Chunks:     chunks,
		Release: func() {
			C.nestegg_free_packet(pkt)
		},
	}
	return raw, true, nil
}

// HasKeyframe reports whether packets on track carry a keyframe flag worth
// consulting at all — true for video, false for audio, which nestegg always
// reports as NESTEGG_PACKET_HAS_KEYFRAME_UNKNOWN.
func (d *Demuxer) HasKeyframe(track int) bool {
	return d.TrackType(track) == demux.TrackVideo
}

func (d *Demuxer) HasCues() bool {
	return C.nestegg_has_cues(d.ctx) != 0
}

// CuePointBefore walks nestegg_get_cue_point with increasing estimated file
// offsets — its native way of surfacing cues, being itself a lazy index
// over the file rather than a precomputed list — keeping the best (largest,
// still ≤ target) timestamp seen. Short clips (spec.md §1) make a linear
// probe over offsets cheap enough not to need a binary search.
func (d *Demuxer) CuePointBefore(track int, targetTimestamp uint64) (uint64, bool) {
	if C.nestegg_has_cues(d.ctx) == 0 {
		return 0, false
	}

	const probes = 64
	fileSize := int64(0)
	if sz, err := d.handler.Seek(0, io.SeekEnd); err == nil {
		fileSize = sz
	}
	if fileSize <= 0 {
		return 0, false
	}

	bestTS := uint64(0)
	found := false
	for i := 0; i < probes; i++ {
		estimated := fileSize * int64(i) / probes
		var start, end C.int64_t
		var ts C.uint64_t
		if C.nestegg_get_cue_point(d.ctx, C.uint(track), -1, C.int64_t(estimated), &start, &end, &ts) != 0 {
			continue
		}
		if uint64(ts) <= targetTimestamp && (!found || uint64(ts) > bestTS) {
			bestTS = uint64(ts)
			found = true
		}
	}
	return bestTS, found
}

func (d *Demuxer) TrackSeek(track int, internalTimestamp uint64) error {
	if ret := C.nestegg_track_seek(d.ctx, C.uint(track), C.uint64_t(internalTimestamp)); ret != 0 {
		return fmt.Errorf("cgodemux: nestegg_track_seek failed: %d", int(ret))
	}
	return nil
}

func (d *Demuxer) Duration() uint64 {
	var dur C.uint64_t
	C.nestegg_duration(d.ctx, &dur)
	return uint64(dur)
}

func (d *Demuxer) TimeScale() uint64 {
	// nestegg_packet_tstamp already reports nanoseconds regardless of the
	// file's own TimecodeScale element, so the units-per-second constant is
	// fixed rather than read from the file.
	return 1_000_000_000
}

func (d *Demuxer) Close() error {
	if d.ctx != nil {
		C.nestegg_destroy(d.ctx)
		d.ctx = nil
	}
	if d.unregister != nil {
		d.unregister()
	}
	return nil
}

var _ demux.Demuxer = (*Demuxer)(nil)
