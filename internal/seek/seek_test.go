package seek

import (
	"testing"

	"github.com/crudelios/easyav1-go/internal/av1dec"
	"github.com/crudelios/easyav1-go/internal/demux"
	"github.com/crudelios/easyav1-go/internal/frame"
	"github.com/crudelios/easyav1-go/internal/queue"
	"github.com/crudelios/easyav1-go/internal/vorbisdec"
)

// fakeClip is a tiny in-memory WebM stand-in: a fixed, time-ordered packet
// list with a handful of video keyframes, queryable by CuePointBefore and
// resettable by TrackSeek — just enough of demux.Demuxer's contract for the
// seek protocol to exercise against.
type fakeClip struct {
	packets []demux.RawPacket
	keyTS   []uint64 // keyframe timestamps, ascending
	pos     int
}

func (c *fakeClip) TrackCount() int                  { return 2 }
func (c *fakeClip) TrackType(track int) demux.TrackType {
	if track == 0 {
		return demux.TrackVideo
	}
	return demux.TrackAudio
}
func (c *fakeClip) CodecID(int) string                        { return "" }
func (c *fakeClip) VideoProperties(int) demux.VideoProperties { return demux.VideoProperties{} }
func (c *fakeClip) AudioProperties(int) demux.AudioProperties { return demux.AudioProperties{} }
func (c *fakeClip) CodecPrivate(int) [][]byte                 { return nil }

func (c *fakeClip) ReadPacket() (*demux.RawPacket, bool, error) {
	if c.pos >= len(c.packets) {
		return nil, false, nil
	}
	p := c.packets[c.pos]
	c.pos++
	return &p, true, nil
}

func (c *fakeClip) HasKeyframe(track int) bool { return track == 0 }
func (c *fakeClip) HasCues() bool              { return true }

func (c *fakeClip) CuePointBefore(track int, target uint64) (uint64, bool) {
	best := uint64(0)
	found := false
	for _, ts := range c.keyTS {
		if ts <= target && (!found || ts > best) {
			best, found = ts, true
		}
	}
	return best, found
}

func (c *fakeClip) TrackSeek(track int, internalTimestamp uint64) error {
	for i, p := range c.packets {
		if p.Timestamp >= internalTimestamp {
			c.pos = i
			return nil
		}
	}
	c.pos = len(c.packets)
	return nil
}

func (c *fakeClip) Duration() uint64  { return c.packets[len(c.packets)-1].Timestamp }
func (c *fakeClip) TimeScale() uint64 { return 1000 }

var _ demux.Demuxer = (*fakeClip)(nil)

func vpkt(ts uint64, keyframe bool) demux.RawPacket {
	return demux.RawPacket{TrackIndex: 0, Timestamp: ts, Keyframe: keyframe, Chunks: [][]byte{{0x01}}}
}

func apkt(ts uint64) demux.RawPacket {
	return demux.RawPacket{TrackIndex: 1, Timestamp: ts, Chunks: [][]byte{{0x02}}}
}

// fakeVideoDec treats every chunk as a valid sequence header, so Pass A's
// "parse a sequence header" step always succeeds on the first video packet
// it sees after a reset.
type fakeVideoDec struct{}

func (fakeVideoDec) SendData([]byte) error                { return nil }
func (fakeVideoDec) GetPicture() (*av1dec.Picture, error) { return nil, av1dec.ErrAgain }
func (fakeVideoDec) ParseSequenceHeader([]byte) error     { return nil }
func (fakeVideoDec) Flush()                               {}
func (fakeVideoDec) Close() error                          { return nil }

var _ av1dec.Decoder = fakeVideoDec{}

type fakeAudioDec struct{}

func (fakeAudioDec) HeaderIn([]byte) error        { return nil }
func (fakeAudioDec) SynthesisInit() error         { return nil }
func (fakeAudioDec) BlockInit() error             { return nil }
func (fakeAudioDec) Synthesis([]byte) error       { return nil }
func (fakeAudioDec) SynthesisBlockIn() error      { return nil }
func (fakeAudioDec) SynthesisPCMOut(int) ([][]float32, int, error) {
	return nil, 0, nil
}
func (fakeAudioDec) SynthesisRead(int) error          { return nil }
func (fakeAudioDec) SynthesisTrackOnly([]byte) error  { return nil }
func (fakeAudioDec) SynthesisRestart() error          { return nil }
func (fakeAudioDec) Channels() int                    { return 1 }
func (fakeAudioDec) SampleRate() int                  { return 48000 }
func (fakeAudioDec) Clear() error                     { return nil }

var _ vorbisdec.Decoder = fakeAudioDec{}

// countingVideoDec decodes exactly one picture per SendData call, so tests
// can assert how many pictures Pass B actually produced and that repeated
// decodes collapse onto the frame ring instead of piling up.
type countingVideoDec struct {
	pending int
	decodes int
}

func (d *countingVideoDec) SendData([]byte) error {
	d.pending++
	d.decodes++
	return nil
}

func (d *countingVideoDec) GetPicture() (*av1dec.Picture, error) {
	if d.pending == 0 {
		return nil, av1dec.ErrAgain
	}
	d.pending--
	return &av1dec.Picture{Unref: func() {}}, nil
}

func (d *countingVideoDec) ParseSequenceHeader([]byte) error { return nil }
func (d *countingVideoDec) Flush()                           { d.pending = 0 }
func (d *countingVideoDec) Close() error                     { return nil }

var _ av1dec.Decoder = (*countingVideoDec)(nil)

// countingAudioDec counts how many packets were warmed up (decoded and
// discarded) versus actually synthesized to the ring, so tests can confirm
// Pass B only reaches the real ring once position has reached target.
type countingAudioDec struct {
	warmups int
	decodes int
}

func (d *countingAudioDec) HeaderIn([]byte) error { return nil }
func (d *countingAudioDec) SynthesisInit() error  { return nil }
func (d *countingAudioDec) BlockInit() error      { return nil }
func (d *countingAudioDec) Synthesis([]byte) error {
	d.decodes++
	return nil
}
func (d *countingAudioDec) SynthesisBlockIn() error { return nil }
func (d *countingAudioDec) SynthesisPCMOut(int) ([][]float32, int, error) {
	return nil, 0, nil
}
func (d *countingAudioDec) SynthesisRead(int) error { return nil }
func (d *countingAudioDec) SynthesisTrackOnly([]byte) error {
	d.warmups++
	return nil
}
func (d *countingAudioDec) SynthesisRestart() error { return nil }
func (d *countingAudioDec) Channels() int           { return 1 }
func (d *countingAudioDec) SampleRate() int         { return 48000 }
func (d *countingAudioDec) Clear() error            { return nil }

var _ vorbisdec.Decoder = (*countingAudioDec)(nil)

func newTestEngine(t *testing.T, clip *fakeClip, useFastSeeking bool) *Engine {
	t.Helper()
	return newTestEngineWithDecoders(t, clip, useFastSeeking, fakeVideoDec{}, fakeAudioDec{})
}

func newTestEngineWithDecoders(t *testing.T, clip *fakeClip, useFastSeeking bool, videoDec av1dec.Decoder, rawAudioDec vorbisdec.Decoder) *Engine {
	t.Helper()
	videoQueue := queue.NewRing(32)
	audioQueue := queue.NewRing(32)
	frameRing := frame.New(8)
	driver := demux.New(clip, 0, 1, 0, videoQueue, audioQueue)

	audioDec := vorbisdec.NewStreamDecoder(rawAudioDec)
	if err := audioDec.Open([][]byte{{1}, {2}, {3}}, 2.0); err != nil {
		t.Fatalf("audioDec.Open() error = %v", err)
	}

	return New(driver, videoQueue, audioQueue, frameRing, nil, videoDec, audioDec, 0, 1, useFastSeeking)
}

func TestSeekToLandsOnKeyframeAtOrBeforeTarget(t *testing.T) {
	clip := &fakeClip{
		keyTS: []uint64{0, 30},
		packets: []demux.RawPacket{
			vpkt(0, true), apkt(2),
			vpkt(10, false), apkt(12),
			vpkt(20, false), apkt(22),
			vpkt(30, true), apkt(32),
			vpkt(40, false), apkt(42),
			vpkt(50, false), apkt(52),
		},
	}
	e := newTestEngine(t, clip, false)

	resume, err := e.SeekTo(45)
	if err != nil {
		t.Fatalf("SeekTo() error = %v", err)
	}
	if resume != 45 {
		t.Fatalf("SeekTo(45) resume = %d, want 45", resume)
	}
	if e.State() != NotSeeking {
		t.Fatalf("State() after SeekTo = %v, want NotSeeking", e.State())
	}
}

func TestSeekToWithFastSeekingStopsAtKeyframe(t *testing.T) {
	clip := &fakeClip{
		keyTS: []uint64{0, 30},
		packets: []demux.RawPacket{
			vpkt(0, true), apkt(2),
			vpkt(10, false), apkt(12),
			vpkt(20, false), apkt(22),
			vpkt(30, true), apkt(32),
			vpkt(40, false), apkt(42),
		},
	}
	e := newTestEngine(t, clip, true)

	resume, err := e.SeekTo(45)
	if err != nil {
		t.Fatalf("SeekTo() error = %v", err)
	}
	if resume != 30 {
		t.Fatalf("SeekTo(45) with UseFastSeeking resume = %d, want 30 (last keyframe)", resume)
	}
}

func TestSeekToPastEndOfFileResumesAtDuration(t *testing.T) {
	clip := &fakeClip{
		keyTS: []uint64{0},
		packets: []demux.RawPacket{
			vpkt(0, true), apkt(2),
			vpkt(10, false), apkt(12),
		},
	}
	e := newTestEngine(t, clip, false)

	resume, err := e.SeekTo(10_000)
	if err != nil {
		t.Fatalf("SeekTo() error = %v", err)
	}
	if resume != clip.Duration() {
		t.Fatalf("SeekTo(way past EOF) resume = %d, want duration %d", resume, clip.Duration())
	}
}

// TestPassAKeepsLastKeyframeAtOrBeforeTargetWhenStraddled covers two
// keyframes straddling the target with inter-frames between them: the
// second keyframe (past target) must never overwrite the first as the
// chosen resume point.
func TestPassAKeepsLastKeyframeAtOrBeforeTargetWhenStraddled(t *testing.T) {
	clip := &fakeClip{
		keyTS: []uint64{0, 30},
		packets: []demux.RawPacket{
			vpkt(0, true), apkt(2),
			vpkt(10, false), apkt(12),
			vpkt(20, false), apkt(22),
			vpkt(30, true), apkt(32),
		},
	}
	e := newTestEngine(t, clip, false)

	lastKeyframeTS, err := e.passA(25, 0)
	if err != nil {
		t.Fatalf("passA() error = %v", err)
	}
	if lastKeyframeTS != 0 {
		t.Fatalf("passA(target=25) lastKeyframeTS = %d, want 0 (the keyframe at 30 is past target)", lastKeyframeTS)
	}
}

// TestPassBDecodesForwardAndCollapsesFrameRing confirms Pass B actually
// drives the AV1 decoder across every packet from the keyframe up to
// target, replacing (not appending) each result, and that it stops
// warming up audio only once position reaches target.
func TestPassBDecodesForwardAndCollapsesFrameRing(t *testing.T) {
	clip := &fakeClip{
		keyTS: []uint64{0, 30},
		packets: []demux.RawPacket{
			vpkt(0, true), apkt(2),
			vpkt(10, false), apkt(12),
			vpkt(20, false), apkt(22),
			vpkt(30, true), apkt(32),
			vpkt(40, false), apkt(42),
			vpkt(50, false), apkt(52),
		},
	}
	videoDec := &countingVideoDec{}
	audioDec := &countingAudioDec{}
	e := newTestEngineWithDecoders(t, clip, false, videoDec, audioDec)

	resume, err := e.SeekTo(45)
	if err != nil {
		t.Fatalf("SeekTo() error = %v", err)
	}
	if resume != 45 {
		t.Fatalf("SeekTo(45) resume = %d, want 45", resume)
	}

	if videoDec.decodes != 2 {
		t.Fatalf("videoDec.decodes = %d, want 2 (keyframe@30 and frame@40)", videoDec.decodes)
	}
	if e.frameRing.Len() != 1 {
		t.Fatalf("frameRing.Len() = %d, want 1 (intermediate pictures must replace, not append)", e.frameRing.Len())
	}
	if got := e.frameRing.PeekOldest().Timestamp; got != 40 {
		t.Fatalf("surviving frame timestamp = %d, want 40 (the last one decoded before reaching target)", got)
	}

	if audioDec.warmups != 2 {
		t.Fatalf("audioDec.warmups = %d, want 2 (packets at 32 and 42 are both before target 45)", audioDec.warmups)
	}
	if audioDec.decodes != 0 {
		t.Fatalf("audioDec.decodes = %d, want 0 (no audio packet at/after target was fetched this seek)", audioDec.decodes)
	}

	if got := e.videoQueue.Len(); got != 1 {
		t.Fatalf("videoQueue.Len() after SeekTo = %d, want 1 (the packet at/after target stays queued for ordinary playback)", got)
	}
	if got := e.videoQueue.PeekOldest().Timestamp; got != 50 {
		t.Fatalf("leftover queued packet timestamp = %d, want 50", got)
	}
	if e.videoQueue.PeekOldest().Decoded {
		t.Fatal("leftover packet at/after target must not be decoded during the seek")
	}
}
