package easyav1

import "github.com/crudelios/easyav1-go/internal/seek"

// SeekToTimestamp seeks to targetMS using the two-pass protocol (C7,
// spec.md §4.7). Calling it twice with the same target is a no-op in
// observable state the second time (spec.md §8 round-trip property): the
// engine always re-locates the same keyframe and the position setter is
// idempotent.
func (s *Session) SeekToTimestamp(targetMS uint64) Result {
	if err := s.seekToTimestampInternal(targetMS); err != nil {
		return ResultError
	}
	return s.resultForStatus()
}

func (s *Session) seekToTimestampInternal(targetMS uint64) error {
	if s.getStatus() == StatusError {
		return nil
	}
	if targetMS > s.duration {
		targetMS = s.duration
	}

	s.ioMu.Lock()
	if s.currentPicture != nil {
		s.currentPicture.Unref()
		s.currentPicture = nil
	}
	s.hasUnreadVideo = false
	s.hasUnreadAudio = false
	s.ioMu.Unlock()

	engine := seek.New(s.driver, s.videoQueue, s.audioQueue, s.frameRing, s.videoWorker, s.videoDec, s.audioDec, s.videoTrack, s.audioTrack, s.settings.UseFastSeeking)
	resume, err := engine.SeekTo(targetMS)
	if err != nil {
		s.setStatus(StatusError, KindDecoderError)
		return err
	}

	s.setPosition(resume)
	if resume >= s.duration {
		s.setStatus(StatusFinished, KindNone)
	} else {
		s.setStatus(StatusOK, KindNone)
	}
	return nil
}

// SeekForward seeks to the current position plus deltaMS.
func (s *Session) SeekForward(deltaMS uint64) Result {
	return s.SeekToTimestamp(s.Position() + deltaMS)
}

// SeekBackward seeks to the current position minus deltaMS, clamped to 0.
func (s *Session) SeekBackward(deltaMS uint64) Result {
	pos := s.Position()
	if deltaMS >= pos {
		return s.SeekToTimestamp(0)
	}
	return s.SeekToTimestamp(pos - deltaMS)
}
