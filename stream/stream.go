// Package stream provides the input abstraction the pipeline reads packets
// through (spec.md §6.1): a file path, an already-open file handle, or an
// in-memory byte buffer, all exposed as the same io.ReadSeeker-shaped
// Handler so the demuxer never needs to know which one it was given.
package stream

import (
	"fmt"
	"io"
	"os"
)

// Handler is what the demuxer reads bytes and seeks through. It is
// io.ReadSeeker plus Tell, since Go's Seek already folds start/current/end
// origin into the whence argument — no separate origin enum is needed.
type Handler interface {
	io.ReadSeeker
	Tell() (int64, error)
	// Close releases any resource the handler owns, honoring whatever
	// close-on-destroy policy the handler was constructed with.
	Close() error
}

// FileHandler reads from an *os.File, either one it opened itself (from a
// path) or one the caller already had open.
type FileHandler struct {
	f               *os.File
	closeOnDestroy bool
}

// FromPath opens path read-only and returns a handler that owns the file.
func FromPath(path string) (*FileHandler, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("stream: open %q: %w", path, err)
	}
	return &FileHandler{f: f, closeOnDestroy: true}, nil
}

// FromFile wraps an already-open file. closeOnDestroy controls whether
// Close() closes the caller's handle or leaves it open for them.
func FromFile(f *os.File, closeOnDestroy bool) *FileHandler {
	return &FileHandler{f: f, closeOnDestroy: closeOnDestroy}
}

func (h *FileHandler) Read(p []byte) (int, error)                 { return h.f.Read(p) }
func (h *FileHandler) Seek(offset int64, whence int) (int64, error) { return h.f.Seek(offset, whence) }

func (h *FileHandler) Tell() (int64, error) {
	return h.f.Seek(0, io.SeekCurrent)
}

func (h *FileHandler) Close() error {
	if !h.closeOnDestroy {
		return nil
	}
	return h.f.Close()
}

// MemoryHandler reads from an in-memory byte buffer the caller owns.
type MemoryHandler struct {
	data           []byte
	pos            int64
	closeOnDestroy bool
}

// FromMemory wraps buf without copying it. closeOnDestroy controls whether
// Close() drops the handler's reference to buf (allowing it to be GC'd).
func FromMemory(buf []byte, closeOnDestroy bool) *MemoryHandler {
	return &MemoryHandler{data: buf, closeOnDestroy: closeOnDestroy}
}

func (h *MemoryHandler) Read(p []byte) (int, error) {
	if h.pos >= int64(len(h.data)) {
		return 0, io.EOF
	}
	n := copy(p, h.data[h.pos:])
	h.pos += int64(n)
	return n, nil
}

func (h *MemoryHandler) Seek(offset int64, whence int) (int64, error) {
	var newPos int64
	switch whence {
	case io.SeekStart:
		newPos = offset
	case io.SeekCurrent:
		newPos = h.pos + offset
	case io.SeekEnd:
		newPos = int64(len(h.data)) + offset
	default:
		return 0, fmt.Errorf("stream: invalid whence %d", whence)
	}
	if newPos < 0 {
		return 0, fmt.Errorf("stream: negative seek position %d", newPos)
	}
	h.pos = newPos
	return h.pos, nil
}

func (h *MemoryHandler) Tell() (int64, error) { return h.pos, nil }

func (h *MemoryHandler) Close() error {
	if h.closeOnDestroy {
		h.data = nil
	}
	return nil
}
