// Package seek implements the Seek Engine component (C7, spec.md §4.7):
// the two-pass protocol that locates the last keyframe at or before a
// target timestamp (Pass A), then decodes forward from there discarding
// output before the target (Pass B), never decoding frames AV1's
// keyframe/sequence-header dependency would make meaningless to show.
package seek

import (
	"fmt"

	"github.com/crudelios/easyav1-go/internal/av1dec"
	"github.com/crudelios/easyav1-go/internal/demux"
	"github.com/crudelios/easyav1-go/internal/frame"
	"github.com/crudelios/easyav1-go/internal/queue"
	"github.com/crudelios/easyav1-go/internal/vorbisdec"
	"github.com/crudelios/easyav1-go/internal/worker"
)

// State is the five-state (plus terminal) seek state machine (spec.md §3).
type State int

const (
	NotSeeking State = iota
	StartingSeek
	SeekingForSqhdr
	SeekingForKeyframe
	SeekingFoundKeyframe
	SeekingForTimestamp
)

// Engine drives one seek_to_timestamp call to completion. It is
// constructed fresh per call — it holds no state across seeks — and is the
// caller-thread-only half of C7; the worker it pauses is a peer component,
// not owned by Engine.
type Engine struct {
	driver      *demux.Driver
	videoQueue  *queue.Ring
	audioQueue  *queue.Ring
	frameRing   *frame.Ring
	videoWorker *worker.Worker
	videoDec    av1dec.Decoder
	audioDec    *vorbisdec.StreamDecoder

	videoTrack    int // -1 if disabled
	audioTrack    int // -1 if disabled
	useFastSeeking bool

	state State
}

// New builds an Engine for a single seek call. Any of videoWorker/videoDec
// (if videoTrack < 0) or audioDec (if audioTrack < 0) may be nil.
func New(driver *demux.Driver, videoQueue, audioQueue *queue.Ring, frameRing *frame.Ring, videoWorker *worker.Worker, videoDec av1dec.Decoder, audioDec *vorbisdec.StreamDecoder, videoTrack, audioTrack int, useFastSeeking bool) *Engine {
	return &Engine{
		driver:         driver,
		videoQueue:     videoQueue,
		audioQueue:     audioQueue,
		frameRing:      frameRing,
		videoWorker:    videoWorker,
		videoDec:       videoDec,
		audioDec:       audioDec,
		videoTrack:     videoTrack,
		audioTrack:     audioTrack,
		useFastSeeking: useFastSeeking,
	}
}

func (e *Engine) State() State { return e.state }

// SeekTo runs the full protocol and returns the position playback should
// resume at.
func (e *Engine) SeekTo(target uint64) (resumePosition uint64, err error) {
	e.state = StartingSeek
	if e.videoWorker != nil {
		e.videoWorker.RequestPause()
		defer e.videoWorker.Resume()
	}

	cue := uint64(0)
	if e.videoTrack >= 0 {
		// CuePointBefore works in the demuxer's internal units, target is ms.
		internalTarget := target * e.driver.Demuxer().TimeScale() / 1000
		if ts, found := e.driver.Demuxer().CuePointBefore(e.videoTrack, internalTarget); found {
			cue = ts
		}
	}

	lastKeyframeTS, err := e.passA(target, cue)
	if err != nil {
		return 0, err
	}

	resumePosition, err = e.passB(target, cue, lastKeyframeTS)
	if err != nil {
		return 0, err
	}

	e.state = NotSeeking
	return resumePosition, nil
}

// passA locates the minimum safe resume point: a sequence header followed
// by a keyframe, at or before target. It never pushes decoded pictures —
// only parses sequence headers and watches for keyframe packets.
func (e *Engine) passA(target, cue uint64) (lastKeyframeTS uint64, err error) {
	for {
		e.state = SeekingForSqhdr
		if err := e.resetForPass(cue, false); err != nil {
			return 0, err
		}

		foundSqhdr := false
		foundKeyframe := false
		var keyframeTS uint64

		for {
			result, err := e.driver.FetchOne()
			if err != nil {
				return 0, err
			}
			if result == demux.EndOfFile {
				break
			}

			pkt := e.videoQueue.PeekNewest()
			if pkt == nil || pkt.Type != queue.TypeVideo {
				continue
			}

			if !foundSqhdr {
				for i := 0; i < pkt.Raw.ChunkCount(); i++ {
					if e.videoDec.ParseSequenceHeader(pkt.Raw.Chunk(i)) == nil {
						foundSqhdr = true
						e.state = SeekingForKeyframe
						break
					}
				}
			}
			if foundSqhdr && pkt.Keyframe && pkt.Timestamp <= target {
				foundKeyframe = true
				keyframeTS = pkt.Timestamp
				e.state = SeekingFoundKeyframe
			}

			if foundKeyframe && pkt.Timestamp >= target {
				break
			}
		}

		if foundKeyframe {
			return keyframeTS, nil
		}
		if cue == 0 {
			return 0, fmt.Errorf("seek: no keyframe found at or before target")
		}
		if ts, found := e.driver.Demuxer().CuePointBefore(e.videoTrack, cue-1); found {
			cue = ts
		} else {
			cue = 0
		}
	}
}

// passB re-seeks to cue, re-enables audio, and decodes forward from the
// keyframe, discarding output before target (or stopping at the keyframe
// itself if use_fast_seeking is set). Every video packet from the keyframe
// through target is actually run through the AV1 decoder here — the worker
// stays paused for the whole of SeekTo, so nothing else will ever decode
// them — with each resulting picture replacing, not appending, the frame
// ring's contents so the ring holds exactly one picture once the seek ends
// (spec.md §4.7 step 4, scenario 3/4).
func (e *Engine) passB(target, cue, lastKeyframeTS uint64) (uint64, error) {
	e.state = SeekingForTimestamp
	if err := e.resetForPass(cue, true); err != nil {
		return 0, err
	}

	reachedKeyframe := false

	for {
		result, err := e.driver.FetchOne()
		if err != nil {
			return 0, err
		}

		if e.audioTrack >= 0 {
			for {
				ap := e.audioQueue.PeekOldest()
				if ap == nil {
					break
				}
				for i := 0; i < ap.Raw.ChunkCount(); i++ {
					chunk := ap.Raw.Chunk(i)
					if ap.Timestamp < target {
						if err := e.audioDec.WarmupAfterSeek(chunk); err != nil {
							return 0, err
						}
						continue
					}
					if _, err := e.audioDec.DecodePacket(chunk, ap.Timestamp); err != nil {
						return 0, err
					}
				}
				e.audioQueue.ReleaseOldest(ap)
			}
		}

		for {
			vp := e.videoQueue.PeekOldest()
			if vp == nil {
				break
			}

			if vp.Timestamp < lastKeyframeTS {
				// Before the real keyframe: part of an earlier GOP the
				// decoder never needs to see. Discard without decoding.
				e.videoQueue.ReleaseOldest(vp)
				continue
			}

			reachedKeyframe = true

			if vp.Timestamp == lastKeyframeTS && e.useFastSeeking {
				vp.ProducedDuringSeek = true
				if err := e.decodeOntoRing(vp); err != nil {
					return 0, err
				}
				e.videoQueue.ReleaseOldest(vp)
				return lastKeyframeTS, nil
			}

			if vp.Timestamp >= target {
				// Leave it queued and undecoded: ordinary playback picks
				// it up once SeekTo returns and continues decoding from
				// here using the same (already-warmed) decoder state.
				return target, nil
			}

			vp.ProducedDuringSeek = true
			if err := e.decodeOntoRing(vp); err != nil {
				return 0, err
			}
			e.videoQueue.ReleaseOldest(vp)
		}

		if result == demux.EndOfFile {
			if !reachedKeyframe {
				return 0, fmt.Errorf("seek: end of file before reaching keyframe")
			}
			return e.driver.DurationMS(), nil
		}
	}
}

// decodeOntoRing runs one video packet through the AV1 decoder directly
// (the video worker is paused for the duration of SeekTo, so nothing else
// will drive the decoder) and collapses the frame ring down to just the
// resulting picture, mirroring the worker's own decode-then-replace path
// (internal/worker/worker.go's PushReplacing branch) for a packet marked
// produced-during-seek.
func (e *Engine) decodeOntoRing(pkt *queue.Packet) error {
	for i := 0; i < pkt.Raw.ChunkCount(); i++ {
		if err := e.videoDec.SendData(pkt.Raw.Chunk(i)); err != nil {
			return err
		}
	}

	var first *av1dec.Picture
	for {
		pic, err := e.videoDec.GetPicture()
		if err == av1dec.ErrAgain {
			break
		}
		if err != nil {
			return err
		}
		if first == nil {
			first = pic
		} else {
			pic.Unref()
		}
	}

	pkt.Decoded = true
	if first != nil {
		e.frameRing.PushReplacing(&frame.Frame{Picture: first, Timestamp: pkt.Timestamp})
	}
	return nil
}

// resetForPass clears both queues and the frame ring, resets the AV1
// decoder, and re-seeks the demuxer to cue. restartAudio additionally
// restarts Vorbis synthesis state, used only on entry to Pass B.
func (e *Engine) resetForPass(cue uint64, restartAudio bool) error {
	e.driver.Reset()
	e.frameRing.Clear()
	if e.videoDec != nil {
		e.videoDec.Flush()
	}
	if restartAudio && e.audioDec != nil {
		if err := e.audioDec.Reset(); err != nil {
			return err
		}
	}
	if e.videoTrack >= 0 {
		if err := e.driver.Demuxer().TrackSeek(e.videoTrack, cue); err != nil {
			return fmt.Errorf("seek: track seek: %w", err)
		}
	}
	return nil
}
