package easyav1

// Play starts the Playback Driver (C8, spec.md §4.8): a background
// goroutine that advances decode in wall-clock time from the current
// position. It is a no-op if playback is already running.
func (s *Session) Play() Result {
	if s.getStatus() == StatusError {
		return ResultError
	}
	s.playbackDriver.Play(s.Position())
	return s.resultForStatus()
}

// Stop halts the playback goroutine started by Play and waits for it to
// exit. It is a no-op if playback isn't running.
func (s *Session) Stop() Result {
	s.playbackDriver.Stop()
	return s.resultForStatus()
}
