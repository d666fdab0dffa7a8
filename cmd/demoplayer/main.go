// Command demoplayer plays a WebM/AV1/Vorbis clip in a window, the
// exerciser application for the core decode pipeline: it drives Play(),
// displays each frame GetVideoFrame hands back through a GLFW/OpenGL blit,
// pushes PCM to a live audio sink, and prints a crude terminal spectrum
// from whatever's in the audio buffer. None of this file is part of the
// pipeline itself — it is deliberately out of scope (spec.md §1) — but it
// is the harness that exercises the teacher's windowing/audio stack against
// the new domain.
package main

import (
	"flag"
	"log"
	"time"

	"github.com/mjibson/go-dsp/fft"

	easyav1 "github.com/crudelios/easyav1-go"
	"github.com/crudelios/easyav1-go/internal/audiosink"
)

func main() {
	path := flag.String("input", "", "path to a WebM/AV1/Vorbis clip")
	mute := flag.Bool("mute", false, "disable audio output")
	flag.Parse()

	if *path == "" {
		log.Fatal("demoplayer: -input is required")
	}

	settings := easyav1.DefaultSettings()
	session, err := easyav1.Open(*path, &settings)
	if err != nil {
		log.Fatalf("demoplayer: open: %v", err)
	}
	defer session.Destroy()

	var sink audiosink.Sink = audiosink.NullSink{}
	if !*mute && session.HasAudioTrack() {
		pa, err := audiosink.NewPortAudioSink()
		if err != nil {
			log.Printf("demoplayer: audio sink disabled: %v", err)
		} else {
			sink = pa
			defer audiosink.Terminate()
		}
	}
	if session.HasAudioTrack() {
		if err := sink.Start(session.AudioSampleRate(), session.AudioChannels()); err != nil {
			log.Printf("demoplayer: sink start: %v", err)
			sink = audiosink.NullSink{}
		}
		defer sink.Stop()
	}

	win, err := newWindow("easyav1 demo", session.VideoWidth(), session.VideoHeight())
	if err != nil {
		log.Fatalf("demoplayer: window: %v", err)
	}
	defer win.Shutdown()

	// Fan each audio buffer out to the sink and the visualizer independently,
	// the same split the teacher uses for "play it" vs. "show it" consumers
	// of one ffmpeg audio stream (audio/ffmpegbase.go's player/producer tee).
	playerChan := make(chan []float32, 16)
	visChan := make(chan []float32, 16)
	producerChan := make(chan []float32, 16)
	audiosink.Tee(producerChan, playerChan, visChan)

	go func() {
		for samples := range playerChan {
			if err := sink.Write(samples); err != nil {
				log.Printf("demoplayer: sink write: %v", err)
			}
		}
	}()
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		var latest []float32
		for {
			select {
			case samples, ok := <-visChan:
				if !ok {
					return
				}
				latest = samples
			case <-ticker.C:
				if latest != nil {
					printSpectrum(latest, session.AudioChannels())
				}
			}
		}
	}()

	session.Play()
	defer session.Stop()

	for !win.ShouldClose() {
		if session.HasVideoFrame() {
			if f := session.GetVideoFrame(); f != nil {
				win.Draw(f)
			}
		}
		if af := session.GetAudioFrame(4096); af != nil {
			samples := af.Samples
			if samples == nil && len(af.Planes) > 0 {
				samples = af.Planes[0]
			}
			producerChan <- samples
		}

		win.EndFrame()

		if session.IsFinished() {
			break
		}
	}
	close(producerChan)
}

// printSpectrum runs an FFT over the most recent audio block and prints a
// crude bar chart of its low-frequency magnitude bins — a terminal
// placeholder for the kind of visualizer a real embedding app would render
// with the GPU it already has open for video.
func printSpectrum(samples []float32, channels int) {
	if channels == 2 {
		samples = audiosink.DownmixStereoToMono(samples)
	}
	if len(samples) == 0 {
		return
	}
	input := make([]float64, len(samples))
	for i, s := range samples {
		input[i] = float64(s)
	}
	spectrum := fft.FFTReal(input)

	const bars = 16
	bucket := len(spectrum) / 2 / bars
	if bucket == 0 {
		return
	}
	line := make([]byte, 0, bars)
	for b := 0; b < bars; b++ {
		mag := 0.0
		for i := b * bucket; i < (b+1)*bucket; i++ {
			m := cabs(spectrum[i])
			if m > mag {
				mag = m
			}
		}
		level := int(mag * 2)
		if level > 9 {
			level = 9
		}
		line = append(line, byte('0'+level))
	}
	log.Printf("spectrum: %s", line)
}

func cabs(c complex128) float64 {
	r, i := real(c), imag(c)
	return r*r + i*i
}
