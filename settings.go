package easyav1

// LogLevel mirrors the settings.log_level entry of spec.md §6.5.
type LogLevel int

const (
	LogError LogLevel = iota
	LogWarning
	LogInfo
)

// VideoCallback is invoked after a successful decode step produces a
// display-ready video frame, carrying the caller's userdata verbatim.
type VideoCallback func(frame *VideoFrame, userdata any)

// AudioCallback is invoked by GetAudioFrame with each audio frame it hands
// to the caller, carrying the caller's userdata verbatim; decode steps do
// not invoke it.
type AudioCallback func(frame *AudioFrame, userdata any)

// Settings holds every tunable of spec.md §6.5. It is a plain value type,
// not a struct of pointers like the teacher's flag-bound options structs,
// because UpdateSettings copies it wholesale rather than binding flags to it.
type Settings struct {
	EnableVideo bool
	EnableAudio bool

	// SkipUnprocessedFrames: in pull mode, if the decoder cannot keep up,
	// issue a silent fast-seek to the requested timestamp.
	SkipUnprocessedFrames bool

	// InterlaceAudio selects interleaved floats (true) vs. planar (false)
	// output for GetAudioFrame.
	InterlaceAudio bool

	// CloseHandleOnDestroy closes the file handle / frees the memory buffer
	// on Destroy.
	CloseHandleOnDestroy bool

	// VideoTrack / AudioTrack select a 0-indexed track among same-type tracks.
	VideoTrack int
	AudioTrack int

	// UseFastSeeking: a seek ends at the last keyframe <= target, not at
	// target exactly.
	UseFastSeeking bool

	// AudioOffsetTime in ms; see the audio-offset invariant in spec.md §3.
	AudioOffsetTime int64

	LogLevel LogLevel

	VideoCallback  VideoCallback
	AudioCallback  AudioCallback
	CallbackUserdata any
}

// DefaultSettings returns the settings a freshly constructed Session uses
// when none are supplied, mirroring the teacher's flag-default pattern
// (cmd/main.go) translated from CLI flags to a struct literal.
func DefaultSettings() Settings {
	return Settings{
		EnableVideo:           true,
		EnableAudio:           true,
		SkipUnprocessedFrames: false,
		InterlaceAudio:        true,
		CloseHandleOnDestroy:  true,
		VideoTrack:            0,
		AudioTrack:            0,
		UseFastSeeking:        false,
		AudioOffsetTime:       0,
		LogLevel:              defaultLogLevel,
	}
}
