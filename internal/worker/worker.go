// Package worker implements the Video Worker component (C5, spec.md §4.5):
// a dedicated goroutine that pulls the oldest undecoded video packet, runs
// AV1 decode on it, and pushes the resulting picture onto the frame ring.
// Its pause/resume/stop handshake is grounded on the teacher's
// AudioPlayer.runOutputLoop pattern generalized from a ticker-driven loop
// to a condition-variable-driven one, since this worker is woken by new
// work arriving rather than by a fixed clock.
package worker

import (
	"fmt"
	"log"
	"sync"

	"github.com/crudelios/easyav1-go/internal/av1dec"
	"github.com/crudelios/easyav1-go/internal/frame"
	"github.com/crudelios/easyav1-go/internal/queue"
)

// Command is the worker's three-valued control word (spec.md §4.5).
type Command int

const (
	CmdNone Command = iota
	CmdPause
	CmdStop
)

// Locks bundles the session-owned mutexes/condvars this worker needs, so
// the package never constructs its own — spec.md §5 is explicit that all
// four mutexes and three condvars live on the session, shared with the
// playback driver, the seek engine, and the caller's getters.
type Locks struct {
	IO       *sync.Mutex
	Decoder  *sync.Mutex
	Status   *sync.Mutex
	HasPackets          *sync.Cond // keyed to IO
	HasFramesToDisplay  *sync.Cond // keyed to IO
	HasChangedStatus    *sync.Cond // keyed to Status
}

// Worker runs the C5 loop on its own goroutine once Start is called.
type Worker struct {
	locks Locks

	videoQueue *queue.Ring
	frameRing  *frame.Ring
	decoder    av1dec.Decoder

	position func() uint64

	prefetchWindow int

	command Command
	paused  bool

	onError func(error)

	done chan struct{}
}

// New builds a Worker. position reports the session's current timestamp,
// used to bound peek_oldest_undecoded_video's scan (spec.md §4.1).
// onError is called (off the I/O/status locks) when the worker hits an
// unrecoverable decoder failure, so the session can latch DECODER_ERROR
// and let the worker exit (spec.md §4.5).
func New(locks Locks, videoQueue *queue.Ring, frameRing *frame.Ring, decoder av1dec.Decoder, prefetchWindow int, position func() uint64, onError func(error)) *Worker {
	return &Worker{
		locks:          locks,
		videoQueue:     videoQueue,
		frameRing:      frameRing,
		decoder:        decoder,
		position:       position,
		prefetchWindow: prefetchWindow,
		onError:        onError,
		done:           make(chan struct{}),
	}
}

// Start launches the worker goroutine. It returns immediately.
func (w *Worker) Start() {
	go w.run()
}

// Done is closed once the worker goroutine has exited.
func (w *Worker) Done() <-chan struct{} { return w.done }

func (w *Worker) run() {
	defer close(w.done)
	for {
		w.locks.Status.Lock()
		cmd := w.command
		if cmd == CmdStop {
			w.locks.Status.Unlock()
			return
		}
		if cmd == CmdPause {
			w.command = CmdNone
			w.paused = true
			w.locks.HasChangedStatus.Broadcast()
			for w.paused && w.command != CmdStop {
				w.locks.HasChangedStatus.Wait()
			}
			stop := w.command == CmdStop
			w.locks.Status.Unlock()
			if stop {
				return
			}
			continue
		}
		w.locks.Status.Unlock()

		w.locks.IO.Lock()
		pkt := w.videoQueue.PeekOldestUndecodedVideo(w.position(), w.prefetchWindow)
		if pkt == nil {
			w.locks.HasPackets.Wait() // releases IO, reacquires on wake
			w.locks.IO.Unlock()
			continue
		}
		w.locks.IO.Unlock()

		pic, err := w.decodeLocked(pkt)
		if err != nil {
			if w.onError != nil {
				w.onError(fmt.Errorf("worker: %w", err))
			}
			return
		}

		w.locks.IO.Lock()
		if pic != nil {
			f := &frame.Frame{Picture: pic, Timestamp: pkt.Timestamp}
			if pkt.ProducedDuringSeek {
				w.frameRing.PushReplacing(f)
			} else {
				w.frameRing.Push(f)
			}
		}
		pkt.Decoded = true
		w.locks.HasFramesToDisplay.Broadcast()
		w.locks.IO.Unlock()
	}
}

// decodeLocked acquires the decoder mutex for the duration of one packet's
// AV1 decode, feeding every chunk and taking only the first resulting
// picture — extras are dropped with a warning, a documented design choice
// (spec.md §4.5) rather than a bug: callers that want every picture a
// packet can yield aren't a case this pipeline needs to serve.
func (w *Worker) decodeLocked(pkt *queue.Packet) (*av1dec.Picture, error) {
	w.locks.Decoder.Lock()
	defer w.locks.Decoder.Unlock()

	for i := 0; i < pkt.Raw.ChunkCount(); i++ {
		if err := w.decoder.SendData(pkt.Raw.Chunk(i)); err != nil {
			return nil, err
		}
	}

	var first *av1dec.Picture
	for {
		pic, err := w.decoder.GetPicture()
		if err == av1dec.ErrAgain {
			break
		}
		if err != nil {
			return nil, err
		}
		if first == nil {
			first = pic
		} else {
			log.Printf("worker: packet at %dms produced more than one picture; dropping the extra", pkt.Timestamp)
			pic.Unref()
		}
	}
	return first, nil
}

// RequestPause sets the command to PAUSE, signals has_packets so a worker
// blocked waiting for work re-checks it, and waits for acknowledgment via
// has_changed_status (spec.md §4.5's pause contract).
func (w *Worker) RequestPause() {
	w.locks.Status.Lock()
	w.command = CmdPause
	w.locks.Status.Unlock()

	w.locks.IO.Lock()
	w.locks.HasPackets.Broadcast()
	w.locks.IO.Unlock()

	w.locks.Status.Lock()
	for w.command != CmdNone {
		w.locks.HasChangedStatus.Wait()
	}
	w.locks.Status.Unlock()
}

// Resume clears the paused latch and wakes the worker's wait in run().
func (w *Worker) Resume() {
	w.locks.Status.Lock()
	w.paused = false
	w.locks.HasChangedStatus.Broadcast()
	w.locks.Status.Unlock()
}

// Stop requests the worker exit and unblocks any wait it might be in.
func (w *Worker) Stop() {
	w.locks.Status.Lock()
	w.command = CmdStop
	w.locks.Status.Unlock()
	w.locks.Status.Lock()
	w.locks.HasChangedStatus.Broadcast()
	w.locks.Status.Unlock()

	w.locks.IO.Lock()
	w.locks.HasPackets.Broadcast()
	w.locks.IO.Unlock()

	<-w.done
}
