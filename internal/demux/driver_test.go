package demux

import (
	"testing"

	"github.com/crudelios/easyav1-go/internal/queue"
)

// fakeDemuxer replays a fixed, pre-built packet list — enough to exercise
// Driver's classification, offset, and sync-policy logic without a real
// WebM file or cgo.
type fakeDemuxer struct {
	packets []RawPacket
	pos     int
	ts      uint64
}

func (f *fakeDemuxer) TrackCount() int                    { return 2 }
func (f *fakeDemuxer) TrackType(track int) TrackType {
	if track == 0 {
		return TrackVideo
	}
	return TrackAudio
}
func (f *fakeDemuxer) CodecID(track int) string                    { return "" }
func (f *fakeDemuxer) VideoProperties(track int) VideoProperties   { return VideoProperties{} }
func (f *fakeDemuxer) AudioProperties(track int) AudioProperties   { return AudioProperties{} }
func (f *fakeDemuxer) CodecPrivate(track int) [][]byte             { return nil }

func (f *fakeDemuxer) ReadPacket() (*RawPacket, bool, error) {
	if f.pos >= len(f.packets) {
		return nil, false, nil
	}
	p := f.packets[f.pos]
	f.pos++
	return &p, true, nil
}

func (f *fakeDemuxer) HasKeyframe(track int) bool { return track == 0 }
func (f *fakeDemuxer) HasCues() bool              { return false }
func (f *fakeDemuxer) CuePointBefore(track int, targetTimestamp uint64) (uint64, bool) {
	return 0, false
}
func (f *fakeDemuxer) TrackSeek(track int, internalTimestamp uint64) error {
	f.pos = 0
	return nil
}
func (f *fakeDemuxer) Duration() uint64  { return f.ts }
func (f *fakeDemuxer) TimeScale() uint64 { return 1000 } // 1 unit == 1ms, for easy assertions

var _ Demuxer = (*fakeDemuxer)(nil)

func packet(track int, ts uint64, keyframe bool) RawPacket {
	return RawPacket{
		TrackIndex: track,
		Timestamp:  ts,
		Keyframe:   keyframe,
		Chunks:     [][]byte{{0xAA}},
		Release:    func() {},
	}
}

func TestFetchOneClassifiesByTrack(t *testing.T) {
	fd := &fakeDemuxer{packets: []RawPacket{
		packet(0, 0, true),
		packet(1, 0, false),
		packet(2, 0, false), // unselected track, must be dropped
	}}
	videoQ := queue.NewRing(4)
	audioQ := queue.NewRing(4)
	d := New(fd, 0, 1, 0, videoQ, audioQ)

	for i := 0; i < 3; i++ {
		if _, err := d.FetchOne(); err != nil {
			t.Fatalf("FetchOne() error = %v", err)
		}
	}

	if videoQ.Len() != 1 {
		t.Fatalf("videoQ.Len() = %d, want 1", videoQ.Len())
	}
	if audioQ.Len() != 1 {
		t.Fatalf("audioQ.Len() = %d, want 1", audioQ.Len())
	}
}

func TestFetchOneReportsEndOfFile(t *testing.T) {
	fd := &fakeDemuxer{packets: nil}
	videoQ := queue.NewRing(4)
	audioQ := queue.NewRing(4)
	d := New(fd, 0, 1, 0, videoQ, audioQ)

	result, err := d.FetchOne()
	if err != nil {
		t.Fatalf("FetchOne() error = %v", err)
	}
	if result != EndOfFile {
		t.Fatalf("FetchOne() = %v, want EndOfFile", result)
	}
	if !d.AllFetched() {
		t.Fatal("AllFetched() = false after EOF")
	}
}

func TestFetchOneDropsAudioBeforeNegativeOffsetWindow(t *testing.T) {
	fd := &fakeDemuxer{packets: []RawPacket{
		packet(1, 0, false), // ts=0ms, offset=-50ms => dropped (0 < 50)
		packet(1, 100, false),
	}}
	videoQ := queue.NewRing(4)
	audioQ := queue.NewRing(4)
	d := New(fd, -1, 1, -50, videoQ, audioQ)

	d.FetchOne()
	d.FetchOne()

	if audioQ.Len() != 1 {
		t.Fatalf("audioQ.Len() = %d, want 1 (first packet dropped by offset)", audioQ.Len())
	}
	if got := audioQ.PeekOldest().Timestamp; got != 50 {
		t.Fatalf("surviving packet timestamp = %d, want 50 (100 - 50 offset)", got)
	}
}

func TestSyncPacketQueuesFillsPrefetchWindow(t *testing.T) {
	packets := make([]RawPacket, 0, 10)
	for i := uint64(0); i < 10; i++ {
		packets = append(packets, packet(0, i, i == 0))
	}
	fd := &fakeDemuxer{packets: packets}
	videoQ := queue.NewRing(32)
	audioQ := queue.NewRing(32)
	d := New(fd, 0, -1, 0, videoQ, audioQ)

	if err := d.SyncPacketQueues(0, true, false, 3); err != nil {
		t.Fatalf("SyncPacketQueues() error = %v", err)
	}
	if videoQ.Len() < 4 {
		t.Fatalf("videoQ.Len() = %d, want >= prefetchWindow+1 (4)", videoQ.Len())
	}
}

func TestResetClearsQueuesAndEOFLatch(t *testing.T) {
	fd := &fakeDemuxer{packets: []RawPacket{packet(0, 0, true)}}
	videoQ := queue.NewRing(4)
	audioQ := queue.NewRing(4)
	d := New(fd, 0, -1, 0, videoQ, audioQ)

	d.FetchOne()
	d.FetchOne() // hits EOF, sets allFetched

	d.Reset()
	if d.AllFetched() {
		t.Fatal("AllFetched() still true after Reset()")
	}
	if videoQ.Len() != 0 {
		t.Fatalf("videoQ.Len() after Reset() = %d, want 0", videoQ.Len())
	}
}
