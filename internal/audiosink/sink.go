// Package audiosink drives the demo player's live audio output. It is not
// part of the decode pipeline: the pipeline only ever hands the caller a
// PCM buffer through GetAudioFrame, and has no opinion on what happens to it
// next. This package is one opinion, used by cmd/demoplayer.
package audiosink

// Sink receives PCM float32 samples produced by repeated GetAudioFrame calls
// and plays them, or drops them in the NullSink case.
type Sink interface {
	// Start begins playback at the given sample rate and channel count.
	Start(sampleRate, channels int) error
	// Write enqueues interleaved samples for playback. May block to apply
	// backpressure if the device can't keep up.
	Write(samples []float32) error
	// Stop halts playback and releases the device.
	Stop() error
}

// NullSink discards everything written to it. Used when no output device is
// configured, so the demo player can still run headless.
type NullSink struct{}

func (NullSink) Start(sampleRate, channels int) error { return nil }
func (NullSink) Write(samples []float32) error        { return nil }
func (NullSink) Stop() error                          { return nil }
