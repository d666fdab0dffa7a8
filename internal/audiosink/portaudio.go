package audiosink

import (
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
)

// PortAudioSink plays interleaved float32 PCM through the host's default
// output device. Grounded on the teacher's AudioPlayer: a pre-allocated
// ring that the output callback drains, guarded by a mutex, with Stop()
// tearing the stream down idempotently.
type PortAudioSink struct {
	mu       sync.Mutex
	stream   *portaudio.Stream
	pending  []float32
	channels int
}

// NewPortAudioSink initializes the PortAudio host API. Call once per process.
func NewPortAudioSink() (*PortAudioSink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio: initialize: %w", err)
	}
	return &PortAudioSink{}, nil
}

func (s *PortAudioSink) Start(sampleRate, channels int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.channels = channels
	stream, err := portaudio.OpenDefaultStream(0, channels, float64(sampleRate), 0, s.callback)
	if err != nil {
		return fmt.Errorf("portaudio: open stream: %w", err)
	}
	if err := stream.Start(); err != nil {
		return fmt.Errorf("portaudio: start stream: %w", err)
	}
	s.stream = stream
	return nil
}

// callback is invoked on PortAudio's audio thread; it must not block.
func (s *PortAudioSink) callback(out []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := copy(out, s.pending)
	s.pending = s.pending[n:]
	for i := n; i < len(out); i++ {
		out[i] = 0 // underrun: pad with silence rather than stall
	}
}

func (s *PortAudioSink) Write(samples []float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, samples...)
	return nil
}

func (s *PortAudioSink) Stop() error {
	s.mu.Lock()
	stream := s.stream
	s.stream = nil
	s.mu.Unlock()

	if stream == nil {
		return nil
	}
	if err := stream.Stop(); err != nil {
		return fmt.Errorf("portaudio: stop stream: %w", err)
	}
	return stream.Close()
}

// Terminate shuts down the PortAudio host API. Call once per process, after
// the last sink has stopped.
func Terminate() error {
	return portaudio.Terminate()
}
