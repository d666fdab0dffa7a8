// Package vorbisdec defines the Vorbis decoder collaborator contract
// spec.md §6.3 describes, mirroring libvorbis's own object model
// (info/comment/dsp state/block) rather than hiding it, since every
// operation spec.md names is one of libvorbis's own entry points.
package vorbisdec

// Decoder is one Vorbis logical bitstream's worth of state: the three
// headers, the synthesis DSP state, and one reusable block. It is touched
// only by the caller thread (spec.md §5) — there is no dedicated audio
// thread the way there is a video worker.
type Decoder interface {
	// HeaderIn must be called for all three header packets (identification,
	// comment, setup), in order, before Synthesis can be called.
	HeaderIn(header []byte) error
	SynthesisInit() error
	BlockInit() error

	// Synthesis decodes one audio packet into the current block.
	Synthesis(packet []byte) error
	// SynthesisBlockIn hands the decoded block to the DSP state, making its
	// samples available through SynthesisPCMOut.
	SynthesisBlockIn() error
	// SynthesisPCMOut returns up to capacity samples per channel as planar
	// float32, and how many were written per channel.
	SynthesisPCMOut(capacity int) (planes [][]float32, n int, err error)
	// SynthesisRead tells the decoder n samples per channel have been
	// consumed and can be dropped from its internal buffer.
	SynthesisRead(n int) error

	// SynthesisTrackOnly advances internal codec state for packet without
	// producing output samples — used during seek warmup (spec.md §4.3).
	SynthesisTrackOnly(packet []byte) error
	// SynthesisRestart resets DSP state without re-reading headers, used
	// when audio is re-enabled after seek Pass A (spec.md §4.7).
	SynthesisRestart() error

	Channels() int
	SampleRate() int

	Clear() error
}
