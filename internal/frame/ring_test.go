package frame

import (
	"testing"

	"github.com/crudelios/easyav1-go/internal/av1dec"
)

func newTestFrame(ts uint64) (*Frame, *bool) {
	unrefed := false
	pic := &av1dec.Picture{Unref: func() { unrefed = true }}
	return &Frame{Picture: pic, Timestamp: ts}, &unrefed
}

func TestPushDropsOldestOnOverflow(t *testing.T) {
	r := New(2)
	f0, unrefed0 := newTestFrame(0)
	f1, _ := newTestFrame(1)
	f2, _ := newTestFrame(2)

	r.Push(f0)
	r.Push(f1)
	if r.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", r.Len())
	}

	r.Push(f2) // ring full, should drop f0
	if !*unrefed0 {
		t.Fatal("Push did not Unref the dropped oldest picture")
	}
	if r.Len() != 2 {
		t.Fatalf("Len() after overflow push = %d, want 2", r.Len())
	}
	if got := r.PeekOldest().Timestamp; got != 1 {
		t.Fatalf("PeekOldest().Timestamp = %d, want 1", got)
	}
}

func TestPushReplacingKeepsAtMostOne(t *testing.T) {
	r := New(4)
	f0, unrefed0 := newTestFrame(0)
	r.Push(f0)

	f1, _ := newTestFrame(1)
	r.PushReplacing(f1)

	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	if !*unrefed0 {
		t.Fatal("PushReplacing did not release the previous occupant")
	}
	if r.PeekOldest().Timestamp != 1 {
		t.Fatalf("PeekOldest().Timestamp = %d, want 1", r.PeekOldest().Timestamp)
	}
}

func TestTakeDoesNotRelease(t *testing.T) {
	r := New(2)
	f0, unrefed0 := newTestFrame(5)
	r.Push(f0)

	taken := r.Take()
	if taken == nil || taken.Timestamp != 5 {
		t.Fatalf("Take() = %v, want timestamp 5", taken)
	}
	if *unrefed0 {
		t.Fatal("Take() released the picture; it must transfer ownership instead")
	}
	if r.Len() != 0 {
		t.Fatalf("Len() after Take() = %d, want 0", r.Len())
	}
}

func TestClearReleasesAll(t *testing.T) {
	r := New(3)
	f0, u0 := newTestFrame(0)
	f1, u1 := newTestFrame(1)
	r.Push(f0)
	r.Push(f1)

	r.Clear()

	if !*u0 || !*u1 {
		t.Fatal("Clear() did not release every buffered picture")
	}
	if r.Len() != 0 {
		t.Fatalf("Len() after Clear() = %d, want 0", r.Len())
	}
}
