// Package cgodav1d is the default av1dec.Decoder, binding dav1d through
// cgo the same way the teacher's encoder package binds libavcodec: a thin
// CFLAGS/pkg-config header include, small C wrapper functions for the few
// operations that are awkward to call straight from Go, and Go code that
// owns the lifetime of every C allocation it creates.
package cgodav1d

/*
#cgo pkg-config: dav1d
#include <errno.h>
#include <stdlib.h>
#include <string.h>
#include <dav1d/dav1d.h>

// dav1d_open/dav1d_send_data/etc. are plain C functions; EAGAIN is reported
// as DAV1D_ERR(EAGAIN), a negative errno whose value differs by platform, so
// the comparison is done here where the C errno constant is available.
static int dav1d_is_again(int ret) {
    return ret == DAV1D_ERR(EAGAIN);
}
*/
import "C"

import (
	"fmt"
	"unsafe"

	"github.com/crudelios/easyav1-go/internal/av1dec"
)

// Decoder wraps a single Dav1dContext. Not safe for concurrent use; the
// video worker is its only caller (spec.md §5).
type Decoder struct {
	ctx *C.Dav1dContext
}

// New opens a dav1d decoder context with library defaults.
func New() (*Decoder, error) {
	var settings C.Dav1dSettings
	C.dav1d_default_settings(&settings)

	d := &Decoder{}
	if ret := C.dav1d_open(&d.ctx, &settings); ret != 0 {
		return nil, fmt.Errorf("cgodav1d: dav1d_open failed: %d", ret)
	}
	return d, nil
}

func (d *Decoder) SendData(data []byte) error {
	var buf C.Dav1dData
	if ret := C.dav1d_data_create(&buf, C.size_t(len(data))); ret != 0 {
		return fmt.Errorf("cgodav1d: dav1d_data_create failed: %d", ret)
	}
	if len(data) > 0 {
		C.memcpy(unsafe.Pointer(buf.data), unsafe.Pointer(&data[0]), C.size_t(len(data)))
	}

	ret := C.dav1d_send_data(d.ctx, &buf)
	if ret != 0 && C.dav1d_is_again(ret) == 0 {
		return fmt.Errorf("cgodav1d: dav1d_send_data failed: %d", ret)
	}
	// dav1d_send_data takes ownership of whatever it consumed; unref any
	// remainder so a partial send doesn't leak.
	if buf.sz > 0 {
		C.dav1d_data_unref(&buf)
	}
	return nil
}

func (d *Decoder) GetPicture() (*av1dec.Picture, error) {
	var pic C.Dav1dPicture
	ret := C.dav1d_get_picture(d.ctx, &pic)
	if C.dav1d_is_again(ret) != 0 {
		return nil, av1dec.ErrAgain
	}
	if ret != 0 {
		return nil, fmt.Errorf("cgodav1d: dav1d_get_picture failed: %d", ret)
	}
	return toPicture(&pic), nil
}

func toPicture(pic *C.Dav1dPicture) *av1dec.Picture {
	w := int(pic.p.w)
	h := int(pic.p.h)
	bitDepth := 8
	if pic.p.bpc > 8 {
		bitDepth = int(pic.p.bpc)
	}

	layout := av1dec.Layout420
	switch pic.p.layout {
	case C.DAV1D_PIXEL_LAYOUT_I400:
		layout = av1dec.Layout400
	case C.DAV1D_PIXEL_LAYOUT_I420:
		layout = av1dec.Layout420
	case C.DAV1D_PIXEL_LAYOUT_I422:
		layout = av1dec.Layout422
	case C.DAV1D_PIXEL_LAYOUT_I444:
		layout = av1dec.Layout444
	}

	out := &av1dec.Picture{
		Width:                   w,
		Height:                  h,
		BitDepth:                bitDepth,
		Layout:                  layout,
		ColorPrimaries:          uint8(pic.seq_hdr.pri),
		TransferCharacteristics: uint8(pic.seq_hdr.trc),
		MatrixCoefficients:      uint8(pic.seq_hdr.mtrx),
		ChromaSamplePosition:    uint8(pic.seq_hdr.chr),
	}

	planeHeights := [3]int{h, h, h}
	if layout == av1dec.Layout420 {
		planeHeights[1], planeHeights[2] = (h+1)/2, (h+1)/2
	}
	planeCount := 3
	if layout == av1dec.Layout400 {
		planeCount = 1
	}

	data := [3]unsafe.Pointer{pic.data[0], pic.data[1], pic.data[2]}
	strides := [2]C.ptrdiff_t{pic.stride[0], pic.stride[1]}
	for i := 0; i < planeCount; i++ {
		stride := int(strides[0])
		if i > 0 {
			stride = int(strides[1])
		}
		out.Strides[i] = stride
		if data[i] != nil {
			out.Planes[i] = unsafe.Slice((*byte)(data[i]), stride*planeHeights[i])
		}
	}

	// The picture's storage is reference counted by dav1d; copy the handle
	// so Unref can drop this specific reference independent of local pic.
	picCopy := pic
	out.Unref = func() {
		C.dav1d_picture_unref(picCopy)
	}
	return out
}

func (d *Decoder) ParseSequenceHeader(data []byte) error {
	var hdr C.Dav1dSequenceHeader
	var ptr unsafe.Pointer
	if len(data) > 0 {
		ptr = unsafe.Pointer(&data[0])
	}
	ret := C.dav1d_parse_sequence_header(&hdr, (*C.uint8_t)(ptr), C.size_t(len(data)))
	if ret != 0 {
		return fmt.Errorf("cgodav1d: dav1d_parse_sequence_header failed: %d", ret)
	}
	return nil
}

func (d *Decoder) Flush() {
	C.dav1d_flush(d.ctx)
}

func (d *Decoder) Close() error {
	if d.ctx != nil {
		C.dav1d_close(&d.ctx)
	}
	return nil
}

var _ av1dec.Decoder = (*Decoder)(nil)
