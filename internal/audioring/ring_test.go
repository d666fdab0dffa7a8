package audioring

import "testing"

func monoPlanes(samples ...float32) [][]float32 {
	return [][]float32{samples}
}

func TestWriteThenReadRoundTrips(t *testing.T) {
	r := New(1, 1000, 4)
	r.Write(monoPlanes(1, 2, 3), 100)

	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}
	ts, ok := r.PeekTimestamp()
	if !ok || ts != 100 {
		t.Fatalf("PeekTimestamp() = (%d, %v), want (100, true)", ts, ok)
	}

	out := [][]float32{make([]float32, 3)}
	n := r.Read(out)
	if n != 3 {
		t.Fatalf("Read() = %d, want 3", n)
	}
	if out[0][0] != 1 || out[0][1] != 2 || out[0][2] != 3 {
		t.Fatalf("Read() samples = %v, want [1 2 3]", out[0])
	}
	if r.Len() != 0 {
		t.Fatalf("Len() after full read = %d, want 0", r.Len())
	}
}

func TestWriteShiftsOldestOnOverflow(t *testing.T) {
	// sampleRate=1000 means each sample advances the timestamp by 1ms.
	r := New(1, 1000, 3)
	r.Write(monoPlanes(1, 2, 3), 0)
	r.Write(monoPlanes(4, 5), 0) // overflow: must shift 2 oldest out

	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 (capacity)", r.Len())
	}
	ts, ok := r.PeekTimestamp()
	if !ok || ts != 2 {
		t.Fatalf("PeekTimestamp() = (%d, %v), want (2, true)", ts, ok)
	}

	out := [][]float32{make([]float32, 3)}
	n := r.Read(out)
	if n != 3 {
		t.Fatalf("Read() = %d, want 3", n)
	}
	if out[0][0] != 3 || out[0][1] != 4 || out[0][2] != 5 {
		t.Fatalf("Read() samples after overflow = %v, want [3 4 5]", out[0])
	}
}

func TestReadPartialLeavesRemainder(t *testing.T) {
	r := New(1, 1000, 4)
	r.Write(monoPlanes(1, 2, 3), 0)

	out := [][]float32{make([]float32, 2)}
	n := r.Read(out)
	if n != 2 {
		t.Fatalf("Read() = %d, want 2", n)
	}
	if r.Len() != 1 {
		t.Fatalf("Len() after partial read = %d, want 1", r.Len())
	}
	ts, _ := r.PeekTimestamp()
	if ts != 2 {
		t.Fatalf("PeekTimestamp() after partial read = %d, want 2", ts)
	}
}

func TestPeekTimestampEmptyRing(t *testing.T) {
	r := New(2, 1000, 4)
	if _, ok := r.PeekTimestamp(); ok {
		t.Fatal("PeekTimestamp() on empty ring returned ok=true")
	}
}

func TestClearResetsState(t *testing.T) {
	r := New(1, 1000, 4)
	r.Write(monoPlanes(1, 2), 500)
	r.Clear()

	if r.Len() != 0 {
		t.Fatalf("Len() after Clear() = %d, want 0", r.Len())
	}
	if _, ok := r.PeekTimestamp(); ok {
		t.Fatal("PeekTimestamp() after Clear() returned ok=true")
	}
}

func TestMultiChannelWriteRead(t *testing.T) {
	r := New(2, 1000, 4)
	r.Write([][]float32{{1, 2}, {10, 20}}, 0)

	out := [][]float32{make([]float32, 2), make([]float32, 2)}
	n := r.Read(out)
	if n != 2 {
		t.Fatalf("Read() = %d, want 2", n)
	}
	if out[0][0] != 1 || out[0][1] != 2 {
		t.Fatalf("channel 0 = %v, want [1 2]", out[0])
	}
	if out[1][0] != 10 || out[1][1] != 20 {
		t.Fatalf("channel 1 = %v, want [10 20]", out[1])
	}
}
