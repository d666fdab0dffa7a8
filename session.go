// Package easyav1 plays back short WebM clips carrying AV1 video and
// Vorbis audio through a pull-style API: open a stream, then either poll
// packet-by-packet or hand timing over to Play, reading decoded YUV
// pictures and float PCM back out. Session is the Session/Control
// component (C9, spec.md §4.9): it holds settings, status, position and
// duration, owns every mutex and condition variable spec.md §5 specifies,
// and is the only type every other component is reached through.
package easyav1

import (
	"os"
	"sync"

	"github.com/crudelios/easyav1-go/internal/av1dec"
	"github.com/crudelios/easyav1-go/internal/av1dec/cgodav1d"
	"github.com/crudelios/easyav1-go/internal/demux"
	"github.com/crudelios/easyav1-go/internal/demux/cgodemux"
	"github.com/crudelios/easyav1-go/internal/frame"
	"github.com/crudelios/easyav1-go/internal/playback"
	"github.com/crudelios/easyav1-go/internal/queue"
	"github.com/crudelios/easyav1-go/internal/vorbisdec"
	"github.com/crudelios/easyav1-go/internal/vorbisdec/cgovorbis"
	"github.com/crudelios/easyav1-go/internal/worker"
	"github.com/crudelios/easyav1-go/stream"
)

// VideoFramesToPrefetch is the floor spec.md §3 requires for the frame
// ring's capacity (capacity = this + 1, so at least 11 slots).
const VideoFramesToPrefetch = 10

// AudioBufferSeconds sizes the audio ring independent of AudioOffsetTime
// when the offset is small or zero; it is a floor, not a ceiling — Open
// grows it to cover AudioOffsetTime when that's larger.
const AudioBufferSeconds = 2

// Session is the opaque handle every public operation is a method on.
type Session struct {
	settings Settings
	handler  stream.Handler

	ioMu      sync.Mutex
	decoderMu sync.Mutex
	infoMu    sync.Mutex
	statusMu  sync.Mutex

	hasPackets         *sync.Cond
	hasFramesToDisplay *sync.Cond
	hasChangedStatus   *sync.Cond

	status     Status
	errorKind  Kind
	position   uint64
	duration   uint64
	finishedAt uint64

	demuxer demux.Demuxer
	driver  *demux.Driver

	videoQueue *queue.Ring
	audioQueue *queue.Ring
	frameRing  *frame.Ring

	videoDec    av1dec.Decoder
	audioDec    *vorbisdec.StreamDecoder
	videoWorker *worker.Worker

	videoTrack        int // selected track index, -1 if disabled
	audioTrack        int
	totalVideoTracks  int
	totalAudioTracks  int
	videoWidth        int
	videoHeight       int
	videoFPS          float64
	audioChannels     int
	audioSampleRate   int

	currentPicture    *av1dec.Picture
	outputVideoFrame  *VideoFrame
	hasUnreadVideo    bool
	hasUnreadAudio    bool

	totalVideoFramesProcessed uint64

	playbackDriver *playback.Driver

	// seekPending is not set or read anywhere: UpdateSettings performs its
	// forced reseek to the current position (spec.md §4.9) directly rather
	// than deferring it to the next decode operation.
	seekPending bool
}

// Open constructs a Session reading from path. settings may be nil to use
// DefaultSettings().
func Open(path string, settings *Settings) (*Session, error) {
	h, err := stream.FromPath(path)
	if err != nil {
		return nil, wrapError(KindIOError, err, "open %q", path)
	}
	return OpenStream(h, settings)
}

// OpenFile constructs a Session reading from an already-open file handle.
func OpenFile(f *os.File, closeOnDestroy bool, settings *Settings) (*Session, error) {
	return OpenStream(stream.FromFile(f, closeOnDestroy), settings)
}

// OpenMemory constructs a Session reading from an in-memory byte buffer.
func OpenMemory(buf []byte, closeOnDestroy bool, settings *Settings) (*Session, error) {
	return OpenStream(stream.FromMemory(buf, closeOnDestroy), settings)
}

// OpenStream constructs a Session from any caller-supplied stream.Handler,
// the most general of the four constructors spec.md §6.4 lists.
func OpenStream(h stream.Handler, settings *Settings) (*Session, error) {
	s := &Session{handler: h, videoTrack: -1, audioTrack: -1}
	if settings != nil {
		s.settings = *settings
	} else {
		s.settings = DefaultSettings()
	}
	s.hasPackets = sync.NewCond(&s.ioMu)
	s.hasFramesToDisplay = sync.NewCond(&s.ioMu)
	s.hasChangedStatus = sync.NewCond(&s.statusMu)

	if err := s.open(); err != nil {
		h.Close()
		return nil, err
	}
	return s, nil
}

func (s *Session) open() error {
	demuxer, err := cgodemux.Open(s.handler)
	if err != nil {
		return wrapError(KindIOError, err, "open demuxer")
	}
	s.demuxer = demuxer
	s.duration = scaleToMS(demuxer.Duration(), demuxer.TimeScale())

	if err := s.selectTracks(); err != nil {
		return err
	}

	s.videoQueue = queue.NewRing(32)
	s.audioQueue = queue.NewRing(32)
	s.frameRing = frame.New(VideoFramesToPrefetch + 1)

	if err := s.openDecodersForSelectedTracks(); err != nil {
		return err
	}

	s.playbackDriver = playback.New(
		func(targetMS uint64) error { return s.decodeUntilInternal(targetMS) },
		func(targetMS uint64) error { return s.seekToTimestampInternal(targetMS) },
	)

	return nil
}

// openDecodersForSelectedTracks builds the driver (against the current
// audio offset) and the video/audio decoders for whichever tracks
// selectTracks just picked. Called once from open, and again from
// UpdateSettings' reopenDecoders after a track or offset change.
func (s *Session) openDecodersForSelectedTracks() error {
	s.driver = demux.New(s.demuxer, s.videoTrack, s.audioTrack, s.settings.AudioOffsetTime, s.videoQueue, s.audioQueue)

	if s.videoTrack >= 0 {
		vd, err := cgodav1d.New()
		if err != nil {
			return wrapError(KindDecoderError, err, "open AV1 decoder")
		}
		s.videoDec = vd

		locks := worker.Locks{
			IO:                 &s.ioMu,
			Decoder:            &s.decoderMu,
			Status:             &s.statusMu,
			HasPackets:         s.hasPackets,
			HasFramesToDisplay: s.hasFramesToDisplay,
			HasChangedStatus:   s.hasChangedStatus,
		}
		s.videoWorker = worker.New(locks, s.videoQueue, s.frameRing, s.videoDec, VideoFramesToPrefetch, s.Position, s.onWorkerError)
		s.videoWorker.Start()
	}

	if s.audioTrack >= 0 {
		ad := vorbisdec.NewStreamDecoder(cgovorbis.New())
		headers := s.demuxer.CodecPrivate(s.audioTrack)
		offsetSeconds := float64(AudioBufferSeconds)
		if s.settings.AudioOffsetTime > 0 {
			extra := float64(s.settings.AudioOffsetTime) / 1000.0
			if extra > offsetSeconds {
				offsetSeconds = extra
			}
		}
		if err := ad.Open(headers, offsetSeconds); err != nil {
			return wrapError(KindDecoderError, err, "open Vorbis decoder")
		}
		s.audioDec = ad
	}
	return nil
}

func scaleToMS(internal, timeScale uint64) uint64 {
	if timeScale == 0 {
		return 0
	}
	return (internal * 1000) / timeScale
}

// selectTracks scans the demuxer's tracks, counting same-type tracks and
// picking the VideoTrack'th/AudioTrack'th one of each kind, per
// Settings.VideoTrack/AudioTrack (spec.md §6.5).
func (s *Session) selectTracks() error {
	videoSeen, audioSeen := 0, 0
	for i := 0; i < s.demuxer.TrackCount(); i++ {
		switch s.demuxer.TrackType(i) {
		case demux.TrackVideo:
			if s.settings.EnableVideo && videoSeen == s.settings.VideoTrack {
				s.videoTrack = i
				props := s.demuxer.VideoProperties(i)
				s.videoWidth, s.videoHeight = props.Width, props.Height
				if props.DefaultFrameDuration > 0 {
					s.videoFPS = 1e9 / float64(props.DefaultFrameDuration)
				}
			}
			videoSeen++
		case demux.TrackAudio:
			if s.settings.EnableAudio && audioSeen == s.settings.AudioTrack {
				s.audioTrack = i
				props := s.demuxer.AudioProperties(i)
				s.audioChannels, s.audioSampleRate = props.Channels, props.SampleRate
			}
			audioSeen++
		}
	}
	s.totalVideoTracks, s.totalAudioTracks = videoSeen, audioSeen

	if s.settings.EnableVideo && s.videoTrack < 0 && videoSeen > 0 {
		return newError(KindInvalidArgument, "video track %d out of range (have %d)", s.settings.VideoTrack, videoSeen)
	}
	if s.settings.EnableAudio && s.audioTrack < 0 && audioSeen > 0 {
		return newError(KindInvalidArgument, "audio track %d out of range (have %d)", s.settings.AudioTrack, audioSeen)
	}
	return nil
}

func (s *Session) onWorkerError(err error) {
	s.infoMu.Lock()
	s.status = StatusError
	s.errorKind = KindDecoderError
	s.infoMu.Unlock()
	s.logf(LogError, "video worker: %v", err)
}

// Destroy stops the video worker and playback driver, releases the
// decoders and the frame ring's remaining pictures, and closes the stream
// handle if CloseHandleOnDestroy is set.
func (s *Session) Destroy() {
	if s.playbackDriver != nil {
		s.playbackDriver.Stop()
	}
	if s.videoWorker != nil {
		s.videoWorker.Stop()
	}
	if s.frameRing != nil {
		s.frameRing.Clear()
	}
	if s.currentPicture != nil {
		s.currentPicture.Unref()
		s.currentPicture = nil
	}
	if s.videoQueue != nil {
		s.videoQueue.Clear()
	}
	if s.audioQueue != nil {
		s.audioQueue.Clear()
	}
	if s.videoDec != nil {
		s.videoDec.Close()
	}
	if s.audioDec != nil {
		s.audioDec.Close()
	}
	if closer, ok := s.demuxer.(interface{ Close() error }); ok {
		closer.Close()
	}
	if s.settings.CloseHandleOnDestroy && s.handler != nil {
		s.handler.Close()
	}
}

func (s *Session) setStatus(status Status, kind Kind) {
	s.infoMu.Lock()
	if s.status != StatusError {
		s.status = status
		s.errorKind = kind
	}
	s.infoMu.Unlock()
}

func (s *Session) getStatus() Status {
	s.infoMu.Lock()
	defer s.infoMu.Unlock()
	return s.status
}

func (s *Session) Status() Status { return s.getStatus() }

func (s *Session) resultForStatus() Result {
	switch s.getStatus() {
	case StatusFinished:
		return ResultFinished
	case StatusError:
		return ResultError
	default:
		return ResultOK
	}
}
