package vorbisdec

import (
	"fmt"

	"github.com/crudelios/easyav1-go/internal/audioring"
)

// pcmCapacity bounds a single SynthesisPCMOut call; libvorbis rarely has
// more than a couple thousand samples ready per packet, so this is just a
// generous scratch-buffer size, not a protocol limit.
const pcmCapacity = 8192

// StreamDecoder drives a Decoder across the life of one audio track,
// bridging its planar float32 output into an audioring.Ring the way the
// video worker (internal/worker) bridges av1dec.Picture into the frame
// ring — both are the "C5-shaped" half of their respective collaborators,
// except this one runs on the caller thread instead of a dedicated
// goroutine (spec.md §5).
type StreamDecoder struct {
	dec   Decoder
	ring  *audioring.Ring
	ready bool
}

// NewStreamDecoder wraps dec; the ring is supplied once headers are known,
// via Open, since channel count and sample rate aren't known until then.
func NewStreamDecoder(dec Decoder) *StreamDecoder {
	return &StreamDecoder{dec: dec}
}

// Open feeds the three Vorbis header packets (identification, comment,
// setup) in order and initializes synthesis state, then constructs the
// backing ring sized for offsetSeconds plus one second of audio at the
// decoded sample rate (spec.md §3: the audio buffer's capacity is derived from
// AudioOffsetTime).
func (s *StreamDecoder) Open(headers [][]byte, offsetSeconds float64) error {
	for i, h := range headers {
		if err := s.dec.HeaderIn(h); err != nil {
			return fmt.Errorf("vorbisdec: header %d: %w", i, err)
		}
	}
	if err := s.dec.SynthesisInit(); err != nil {
		return fmt.Errorf("vorbisdec: %w", err)
	}
	if err := s.dec.BlockInit(); err != nil {
		return fmt.Errorf("vorbisdec: %w", err)
	}

	rate := s.dec.SampleRate()
	capacity := int(offsetSeconds*float64(rate)) + rate
	s.ring = audioring.New(s.dec.Channels(), rate, capacity)
	s.ready = true
	return nil
}

func (s *StreamDecoder) Ring() *audioring.Ring { return s.ring }

// DecodePacket decodes one audio packet and appends its samples to the ring,
// returning how many samples per channel it produced. producedDuringSeek
// packets from a just-completed seek still decode normally; only whether
// they're discarded before decode is the seek engine's call (spec.md §4.7).
func (s *StreamDecoder) DecodePacket(packet []byte, timestamp uint64) (int, error) {
	if !s.ready {
		return 0, fmt.Errorf("vorbisdec: DecodePacket before Open")
	}
	if err := s.dec.Synthesis(packet); err != nil {
		return 0, err
	}
	if err := s.dec.SynthesisBlockIn(); err != nil {
		return 0, err
	}

	total := 0
	for {
		planes, n, err := s.dec.SynthesisPCMOut(pcmCapacity)
		if err != nil {
			return total, err
		}
		if n == 0 {
			break
		}
		// timestamp only takes effect if the ring is currently empty; once
		// it holds anything, Ring tracks position itself as samples shift
		// out, so later writes within the same packet don't need their own.
		s.ring.Write(planes, timestamp)
		if err := s.dec.SynthesisRead(n); err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// WarmupAfterSeek advances decoder state for a packet without producing
// output, used for the handful of packets the seek engine decodes-and-
// discards before the target to let the DSP state settle (spec.md §4.3,
// §4.7 Pass B).
func (s *StreamDecoder) WarmupAfterSeek(packet []byte) error {
	return s.dec.SynthesisTrackOnly(packet)
}

// Reset restarts synthesis state (used when audio re-enabled after a seek's
// Pass A) and clears any buffered samples from before the seek.
func (s *StreamDecoder) Reset() error {
	if err := s.dec.SynthesisRestart(); err != nil {
		return err
	}
	if s.ring != nil {
		s.ring.Clear()
	}
	return nil
}

func (s *StreamDecoder) Close() error {
	return s.dec.Clear()
}
