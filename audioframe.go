package easyav1

// AudioFrame is one drained batch of decoded PCM handed back by
// GetAudioFrame. Samples holds interleaved data if Settings.InterlaceAudio
// was set when it was filled, otherwise Planes holds one slice per channel;
// exactly one of the two is populated.
type AudioFrame struct {
	Samples []float32 // interleaved, len == SampleCount*Channels
	Planes  [][]float32 // planar, len(Planes) == Channels, each len == SampleCount

	Channels   int
	SampleRate int
	SampleCount int
	Timestamp  uint64
}

func interleave(planes [][]float32, n int) []float32 {
	channels := len(planes)
	out := make([]float32, n*channels)
	for i := 0; i < n; i++ {
		for ch := 0; ch < channels; ch++ {
			out[i*channels+ch] = planes[ch][i]
		}
	}
	return out
}
