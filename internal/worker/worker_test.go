package worker

import (
	"sync"
	"testing"
	"time"

	"github.com/crudelios/easyav1-go/internal/av1dec"
	"github.com/crudelios/easyav1-go/internal/frame"
	"github.com/crudelios/easyav1-go/internal/queue"
)

// fakeDecoder decodes every SendData into exactly one Picture, never
// needing more than one call before a picture is ready.
type fakeDecoder struct {
	mu      sync.Mutex
	pending int
}

func (f *fakeDecoder) SendData(data []byte) error {
	f.mu.Lock()
	f.pending++
	f.mu.Unlock()
	return nil
}

func (f *fakeDecoder) GetPicture() (*av1dec.Picture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending == 0 {
		return nil, av1dec.ErrAgain
	}
	f.pending--
	return &av1dec.Picture{Unref: func() {}}, nil
}

func (f *fakeDecoder) ParseSequenceHeader(data []byte) error { return nil }
func (f *fakeDecoder) Flush()                                {}
func (f *fakeDecoder) Close() error                          { return nil }

func newTestLocks() Locks {
	var io, decoder, status sync.Mutex
	return Locks{
		IO:                 &io,
		Decoder:            &decoder,
		Status:             &status,
		HasPackets:         sync.NewCond(&io),
		HasFramesToDisplay: sync.NewCond(&io),
		HasChangedStatus:   sync.NewCond(&status),
	}
}

func newTestRawPacket() *testRawPacket {
	return &testRawPacket{chunks: [][]byte{{1, 2, 3}}}
}

type testRawPacket struct {
	chunks   [][]byte
	released bool
}

func (p *testRawPacket) Release()          { p.released = true }
func (p *testRawPacket) TrackIndex() int   { return 0 }
func (p *testRawPacket) ChunkCount() int   { return len(p.chunks) }
func (p *testRawPacket) Chunk(i int) []byte { return p.chunks[i] }
func (p *testRawPacket) IsKeyframe() bool  { return false }

func TestWorkerDecodesQueuedPacketOntoFrameRing(t *testing.T) {
	locks := newTestLocks()
	videoQueue := queue.NewRing(4)
	frameRing := frame.New(4)
	dec := &fakeDecoder{}

	videoQueue.ReserveSlot(&queue.Packet{Raw: newTestRawPacket(), Timestamp: 0, Type: queue.TypeVideo})

	w := New(locks, videoQueue, frameRing, dec, 10, func() uint64 { return 0 }, nil)
	w.Start()

	deadline := time.After(2 * time.Second)
	for {
		locks.IO.Lock()
		f := frameRing.PeekOldest()
		locks.IO.Unlock()
		if f != nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("worker never pushed a decoded frame onto the ring")
		case <-time.After(time.Millisecond):
		}
	}

	w.Stop()

	locks.IO.Lock()
	pkt := videoQueue.PeekOldest()
	locks.IO.Unlock()
	if pkt == nil || !pkt.Decoded {
		t.Fatal("worker did not mark the packet Decoded")
	}
}

func TestRequestPauseThenResume(t *testing.T) {
	locks := newTestLocks()
	videoQueue := queue.NewRing(4)
	frameRing := frame.New(4)
	dec := &fakeDecoder{}

	w := New(locks, videoQueue, frameRing, dec, 10, func() uint64 { return 0 }, nil)
	w.Start()

	done := make(chan struct{})
	go func() {
		w.RequestPause()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("RequestPause never returned")
	}

	// Queue work while paused; the worker must not touch it until resumed.
	locks.IO.Lock()
	videoQueue.ReserveSlot(&queue.Packet{Raw: newTestRawPacket(), Timestamp: 0, Type: queue.TypeVideo})
	locks.IO.Unlock()

	time.Sleep(20 * time.Millisecond)
	locks.IO.Lock()
	decodedWhilePaused := videoQueue.PeekOldest().Decoded
	locks.IO.Unlock()
	if decodedWhilePaused {
		t.Fatal("worker decoded a packet while paused")
	}

	w.Resume()

	deadline := time.After(2 * time.Second)
	for {
		locks.IO.Lock()
		decoded := videoQueue.PeekOldest().Decoded
		locks.IO.Unlock()
		if decoded {
			break
		}
		select {
		case <-deadline:
			t.Fatal("worker never resumed decoding")
		case <-time.After(time.Millisecond):
		}
	}

	w.Stop()
}

func TestStopUnblocksWorkerWaitingOnPackets(t *testing.T) {
	locks := newTestLocks()
	videoQueue := queue.NewRing(4)
	frameRing := frame.New(4)
	dec := &fakeDecoder{}

	w := New(locks, videoQueue, frameRing, dec, 10, func() uint64 { return 0 }, nil)
	w.Start()

	time.Sleep(10 * time.Millisecond) // let it settle into its HasPackets wait

	done := make(chan struct{})
	go func() {
		w.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop() never returned while the worker was idle-waiting")
	}
}
