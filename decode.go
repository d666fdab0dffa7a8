package easyav1

// pump runs one step of the decode pipeline: sync the packet queues against
// the prefetch policy (C6, spec.md §4.6), decode whatever audio packets are
// ready (the caller thread's own job — spec.md §5), and release at most one
// decoded video packet from the head of the queue, waiting on
// has_frames_to_display if the head hasn't been decoded by the worker yet.
// This is decode_packet from spec.md §5's suspension-point list.
func (s *Session) pump() error {
	videoActive := s.videoTrack >= 0
	audioActive := s.audioTrack >= 0

	// Syncing may grow the packet queues, which must happen under the
	// decoder mutex as well as the I/O mutex (internal/queue.Ring.grow).
	s.decoderMu.Lock()
	s.ioMu.Lock()
	err := s.driver.SyncPacketQueues(s.Position(), videoActive, audioActive, VideoFramesToPrefetch)
	s.ioMu.Unlock()
	s.decoderMu.Unlock()
	if err != nil {
		s.setStatus(StatusError, KindDecoderError)
		return err
	}

	if audioActive {
		if err := s.drainAudio(); err != nil {
			s.setStatus(StatusError, KindDecoderError)
			return err
		}
	}

	if videoActive {
		s.releaseOneDecodedVideo()
	}

	if s.driver.AllFetched() && s.videoQueue.IsEmpty() && s.audioQueue.IsEmpty() {
		s.setStatus(StatusFinished, KindNone)
	}
	return nil
}

func (s *Session) drainAudio() error {
	for {
		s.ioMu.Lock()
		ap := s.audioQueue.PeekOldest()
		s.ioMu.Unlock()
		if ap == nil {
			return nil
		}

		for i := 0; i < ap.Raw.ChunkCount(); i++ {
			if _, err := s.audioDec.DecodePacket(ap.Raw.Chunk(i), ap.Timestamp); err != nil {
				return err
			}
		}
		s.hasUnreadAudio = true

		s.ioMu.Lock()
		s.audioQueue.ReleaseOldest(ap)
		s.driver.InvalidateSync()
		s.ioMu.Unlock()
	}
}

// releaseOneDecodedVideo waits, if necessary, for the video worker to
// finish decoding the head packet, then releases it from the queue — the
// picture itself already lives on the frame ring by the time Decoded is
// set true (spec.md §4.5 step 5).
func (s *Session) releaseOneDecodedVideo() {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()

	vp := s.videoQueue.PeekOldest()
	for vp != nil && !vp.Decoded {
		if s.getStatus() != StatusOK {
			return
		}
		s.hasFramesToDisplay.Wait()
		vp = s.videoQueue.PeekOldest()
	}
	if vp == nil {
		return
	}
	s.videoQueue.ReleaseOldest(vp)
	s.driver.InvalidateSync()
	s.totalVideoFramesProcessed++
	s.hasUnreadVideo = true

	if s.settings.VideoCallback != nil {
		if f := s.frameRing.PeekOldest(); f != nil {
			vf := videoFrameFromPicture(f.Picture, f.Timestamp)
			s.settings.VideoCallback(vf, s.settings.CallbackUserdata)
		}
	}
}

// DecodeNext runs exactly one pipeline step and advances position to the
// timestamp of whatever it just made available, if anything.
func (s *Session) DecodeNext() Result {
	if s.getStatus() == StatusError {
		return ResultError
	}
	if err := s.pump(); err != nil {
		return ResultError
	}
	s.advancePositionToAvailable()
	return s.resultForStatus()
}

// DecodeUntil pumps the pipeline until position reaches targetMS, status
// stops being OK, or no further progress is possible (EOF with both queues
// drained).
func (s *Session) DecodeUntil(targetMS uint64) Result {
	if err := s.decodeUntilInternal(targetMS); err != nil {
		return ResultError
	}
	return s.resultForStatus()
}

func (s *Session) decodeUntilInternal(targetMS uint64) error {
	for s.getStatus() == StatusOK && s.Position() < targetMS {
		if err := s.pump(); err != nil {
			return err
		}
		s.advancePositionToAvailable()
		if s.Position() < targetMS && s.driver.AllFetched() && s.videoQueue.IsEmpty() && s.audioQueue.IsEmpty() {
			s.setPosition(targetMS)
			break
		}
	}
	if s.getStatus() != StatusError && s.Position() < targetMS {
		s.setPosition(targetMS)
	}
	return nil
}

// DecodeFor is DecodeUntil(current position + durationMS).
func (s *Session) DecodeFor(durationMS uint64) Result {
	return s.DecodeUntil(s.Position() + durationMS)
}

// advancePositionToAvailable moves position forward to the newest timestamp
// this pump step made ready — the oldest frame ring slot's timestamp, or
// the audio ring's — whichever model a caller-visible decode step: at most
// one of each per pump (spec.md §4.1's "one picture per packet" + one
// audio-buffer fill per packet).
func (s *Session) advancePositionToAvailable() {
	s.ioMu.Lock()
	var candidate uint64
	has := false
	if f := s.frameRing.PeekOldest(); f != nil {
		candidate, has = f.Timestamp, true
	}
	s.ioMu.Unlock()

	if s.audioDec != nil {
		if ts, ok := s.audioDec.Ring().PeekTimestamp(); ok && (!has || ts > candidate) {
			candidate, has = ts, true
		}
	}
	if has && candidate > s.Position() {
		s.setPosition(candidate)
	}
}

func (s *Session) Position() uint64 {
	s.infoMu.Lock()
	defer s.infoMu.Unlock()
	return s.position
}

func (s *Session) setPosition(ms uint64) {
	s.infoMu.Lock()
	s.position = ms
	s.infoMu.Unlock()
}
