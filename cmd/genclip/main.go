// Command genclip synthesizes a short WebM/AV1/Vorbis test clip by driving
// ffmpeg as a subprocess: a test-pattern video track and a sine-tone audio
// track, muxed together, so the rest of the repo has a deterministic fixture
// to open without needing a checked-in binary asset. Grounded on the
// teacher's own use of ffmpeg-go (audio/ffmpegbase.go), generalized from
// "capture live audio through a pipe" to "invoke ffmpeg's lavfi sources and
// write a file directly," since this needs a finished file on disk rather
// than a streamed channel of samples.
package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

func main() {
	out := flag.String("out", "clip.webm", "output WebM path")
	duration := flag.Duration("duration", 3*time.Second, "clip duration")
	width := flag.Int("width", 640, "video width")
	height := flag.Int("height", 480, "video height")
	fps := flag.Int("fps", 30, "video frame rate")
	freq := flag.Float64("freq", 440.0, "audio tone frequency in Hz")
	ffmpegPath := flag.String("ffmpeg", "", "path to the ffmpeg binary, if not on PATH")
	flag.Parse()

	seconds := duration.Seconds()

	video := ffmpeg.Input(
		fmt.Sprintf("testsrc=duration=%g:size=%dx%d:rate=%d", seconds, *width, *height, *fps),
		ffmpeg.KwArgs{"f": "lavfi"},
	)
	audio := ffmpeg.Input(
		fmt.Sprintf("sine=frequency=%g:duration=%g", *freq, seconds),
		ffmpeg.KwArgs{"f": "lavfi"},
	)

	outputArgs := ffmpeg.KwArgs{
		"c:v": "libaom-av1",
		"crf": "32",
		"c:a": "libvorbis",
		"b:a": "96k",
	}

	cmd := ffmpeg.Output([]*ffmpeg.Stream{video, audio}, *out, outputArgs).
		OverWriteOutput().ErrorToStdOut()
	if *ffmpegPath != "" {
		cmd.SetFfmpegPath(*ffmpegPath)
	}

	if err := cmd.Run(); err != nil {
		log.Fatalf("genclip: ffmpeg: %v", err)
	}
	log.Printf("genclip: wrote %s (%s, %dx%d @ %dfps, %gHz tone)", *out, *duration, *width, *height, *fps, *freq)
}
