package easyav1

// getters.go collects the read-only introspection and output operations of
// spec.md §6.4. Getters that can fail return the zero value rather than an
// error, matching the spec's "getters that can fail return zero/false on
// invalid input" rule.

func (s *Session) HasVideoTrack() bool { return s.videoTrack >= 0 }
func (s *Session) HasAudioTrack() bool { return s.audioTrack >= 0 }
func (s *Session) TotalVideoTracks() int { return s.totalVideoTracks }
func (s *Session) TotalAudioTracks() int { return s.totalAudioTracks }

func (s *Session) VideoWidth() int     { return s.videoWidth }
func (s *Session) VideoHeight() int    { return s.videoHeight }
func (s *Session) VideoFPS() float64   { return s.videoFPS }
func (s *Session) AudioChannels() int  { return s.audioChannels }
func (s *Session) AudioSampleRate() int { return s.audioSampleRate }

func (s *Session) Duration() uint64 { return s.duration }

func (s *Session) CurrentTimestamp() uint64 { return s.Position() }

func (s *Session) IsFinished() bool { return s.getStatus() == StatusFinished }

func (s *Session) TotalVideoFramesProcessed() uint64 { return s.totalVideoFramesProcessed }

// HasVideoFrame reports whether a picture is ready for GetVideoFrame at the
// current position: the frame ring's head exists and its timestamp is at
// or before the session's position (spec.md §8: "for every picture that
// leaves the frame ring... its timestamp ≤ session position").
func (s *Session) HasVideoFrame() bool {
	s.ioMu.Lock()
	defer s.ioMu.Unlock()
	f := s.frameRing.PeekOldest()
	return f != nil && f.Timestamp <= s.Position()
}

// GetVideoFrame pops the ready frame ring slot (if any), wraps its picture
// in a new VideoFrame kept as the session's output frame, and returns it.
// The returned frame's planes stay valid until the next GetVideoFrame call,
// at which point its backing picture is released (spec.md §6.4).
func (s *Session) GetVideoFrame() *VideoFrame {
	s.ioMu.Lock()
	f := s.frameRing.PeekOldest()
	if f == nil || f.Timestamp > s.Position() {
		s.ioMu.Unlock()
		return nil
	}
	taken := s.frameRing.Take()
	s.ioMu.Unlock()
	pic, ts := taken.Picture, taken.Timestamp

	if s.currentPicture != nil {
		s.currentPicture.Unref()
	}
	s.currentPicture = pic
	s.outputVideoFrame = videoFrameFromPicture(pic, ts)
	s.hasUnreadVideo = false
	return s.outputVideoFrame
}

// IsAudioBufferFilled reports whether the audio ring has any samples ready.
func (s *Session) IsAudioBufferFilled() bool {
	if s.audioDec == nil {
		return false
	}
	return s.audioDec.Ring().Len() > 0
}

// GetAudioFrame drains up to maxSamples samples per channel from the audio
// ring into an AudioFrame shaped per Settings.InterlaceAudio, or nil if the
// audio track is disabled or the ring is empty.
func (s *Session) GetAudioFrame(maxSamples int) *AudioFrame {
	if s.audioDec == nil {
		return nil
	}
	ring := s.audioDec.Ring()
	if ring.Len() == 0 {
		return nil
	}
	if maxSamples <= 0 || maxSamples > ring.Len() {
		maxSamples = ring.Len()
	}

	ts, _ := ring.PeekTimestamp()
	planes := make([][]float32, ring.Channels())
	for i := range planes {
		planes[i] = make([]float32, maxSamples)
	}
	n := ring.Read(planes)
	for i := range planes {
		planes[i] = planes[i][:n]
	}

	af := &AudioFrame{
		Channels:    ring.Channels(),
		SampleRate:  s.audioSampleRate,
		SampleCount: n,
		Timestamp:   ts,
	}
	if s.settings.InterlaceAudio {
		af.Samples = interleave(planes, n)
	} else {
		af.Planes = planes
	}

	s.hasUnreadAudio = false
	if s.settings.AudioCallback != nil {
		s.settings.AudioCallback(af, s.settings.CallbackUserdata)
	}
	return af
}

func (s *Session) Settings() Settings { return s.settings }
