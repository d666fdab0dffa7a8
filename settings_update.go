package easyav1

// GetCurrentSettings returns the session's active settings.
func (s *Session) GetCurrentSettings() Settings { return s.settings }

// UpdateSettings applies new settings, reopening audio and/or video when
// the selected tracks or the audio offset change, then issuing a forced
// seek to the current position so decode state stays coherent (spec.md
// §4.9) — the two decoders and the queues would otherwise disagree with
// whatever track or offset was just switched to.
func (s *Session) UpdateSettings(next Settings) Result {
	if s.getStatus() == StatusError {
		return ResultError
	}

	prev := s.settings
	reopenNeeded := prev.VideoTrack != next.VideoTrack ||
		prev.AudioTrack != next.AudioTrack ||
		prev.EnableVideo != next.EnableVideo ||
		prev.EnableAudio != next.EnableAudio ||
		prev.AudioOffsetTime != next.AudioOffsetTime

	s.settings = next

	if reopenNeeded {
		pos := s.Position()
		if err := s.reopenDecoders(); err != nil {
			s.setStatus(StatusError, KindDecoderError)
			return ResultError
		}
		if err := s.seekToTimestampInternal(pos); err != nil {
			return ResultError
		}
	}
	return s.resultForStatus()
}

// reopenDecoders tears down and rebuilds the video/audio decoders and
// track selection against the (already-updated) settings, leaving the
// demuxer and stream handle untouched.
func (s *Session) reopenDecoders() error {
	if s.videoWorker != nil {
		s.videoWorker.Stop()
		s.videoWorker = nil
	}
	if s.videoDec != nil {
		s.videoDec.Close()
		s.videoDec = nil
	}
	if s.audioDec != nil {
		s.audioDec.Close()
		s.audioDec = nil
	}
	s.videoTrack, s.audioTrack = -1, -1
	s.videoQueue.Clear()
	s.audioQueue.Clear()
	s.frameRing.Clear()

	if err := s.selectTracks(); err != nil {
		return err
	}
	return s.openDecodersForSelectedTracks()
}
