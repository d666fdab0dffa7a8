// Package cgovorbis is the default vorbisdec.Decoder, binding libvorbis
// directly through cgo the same way the teacher's encoder package binds
// libavcodec, and the same way the pack's g3n-engine ov package binds
// libvorbisfile: #cgo pkg-config, a thin header include, and Go code that
// owns every C allocation it creates.
//
// WebM delivers Vorbis packets pre-framed (one codec packet per SimpleBlock,
// headers out of CodecPrivate), so there is no Ogg page/stream layer to
// drive here the way a .ogg file reader needs — only the synthesis half of
// libvorbis's object model, fed one raw packet at a time.
package cgovorbis

/*
#cgo pkg-config: vorbis ogg
#include <stdlib.h>
#include <string.h>
#include <vorbis/codec.h>

// vorbis_synthesis_pcmout's pcm out-param is a pointer to an array of
// per-channel float arrays (float**); cgo can index through it once we hand
// back the float** itself, but building the ogg_packet's two 64-bit fields
// from Go int64s is clearer done here than with repeated casts on the Go side.
static void set_packet_pos(ogg_packet *op, long bos, long eos, long long granulepos, long long packetno) {
    op->b_o_s = bos;
    op->e_o_s = eos;
    op->granulepos = (ogg_int64_t)granulepos;
    op->packetno = (ogg_int64_t)packetno;
}
*/
import "C"

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/crudelios/easyav1-go/internal/vorbisdec"
)

// Decoder wraps one logical Vorbis bitstream's worth of libvorbis state.
// Not safe for concurrent use; only the caller thread touches it (spec
// mirrors libvorbis's own single-threaded object model).
type Decoder struct {
	info    C.vorbis_info
	comment C.vorbis_comment
	dsp     C.vorbis_dsp_state
	block   C.vorbis_block

	infoInit    bool
	dspInit     bool
	blockInit   bool
	headerCount int
	packetno    int64
}

// New allocates an unopened decoder; HeaderIn must be called three times
// before SynthesisInit.
func New() *Decoder {
	d := &Decoder{}
	C.vorbis_info_init(&d.info)
	C.vorbis_comment_init(&d.comment)
	d.infoInit = true
	return d
}

func (d *Decoder) packetFor(data []byte, bos, eos int) C.ogg_packet {
	var op C.ogg_packet
	if len(data) > 0 {
		op.packet = (*C.uchar)(unsafe.Pointer(&data[0]))
	}
	op.bytes = C.long(len(data))
	C.set_packet_pos(&op, C.long(bos), C.long(eos), 0, C.longlong(d.packetno))
	d.packetno++
	return op
}

func (d *Decoder) HeaderIn(header []byte) error {
	if d.headerCount >= 3 {
		return fmt.Errorf("cgovorbis: HeaderIn called a fourth time")
	}
	bos := 0
	if d.headerCount == 0 {
		bos = 1
	}
	op := d.packetFor(header, bos, 0)
	if ret := C.vorbis_synthesis_headerin(&d.info, &d.comment, &op); ret < 0 {
		return fmt.Errorf("cgovorbis: vorbis_synthesis_headerin failed: %d", int(ret))
	}
	d.headerCount++
	return nil
}

func (d *Decoder) SynthesisInit() error {
	if ret := C.vorbis_synthesis_init(&d.dsp, &d.info); ret != 0 {
		return fmt.Errorf("cgovorbis: vorbis_synthesis_init failed: %d", int(ret))
	}
	d.dspInit = true
	return nil
}

func (d *Decoder) BlockInit() error {
	if ret := C.vorbis_block_init(&d.dsp, &d.block); ret != 0 {
		return fmt.Errorf("cgovorbis: vorbis_block_init failed: %d", int(ret))
	}
	d.blockInit = true
	return nil
}

func (d *Decoder) Synthesis(packet []byte) error {
	op := d.packetFor(packet, 0, 0)
	if ret := C.vorbis_synthesis(&d.block, &op); ret != 0 {
		return fmt.Errorf("cgovorbis: vorbis_synthesis failed: %d", int(ret))
	}
	return nil
}

func (d *Decoder) SynthesisBlockIn() error {
	if ret := C.vorbis_synthesis_blockin(&d.dsp, &d.block); ret != 0 {
		return fmt.Errorf("cgovorbis: vorbis_synthesis_blockin failed: %d", int(ret))
	}
	return nil
}

// SynthesisPCMOut returns up to capacity samples per channel. libvorbis may
// have more ready than capacity; whatever isn't copied out stays buffered
// internally since SynthesisRead is only told about the samples actually
// consumed.
func (d *Decoder) SynthesisPCMOut(capacity int) ([][]float32, int, error) {
	channels := int(d.info.channels)
	if channels <= 0 {
		return nil, 0, errors.New("cgovorbis: SynthesisPCMOut before headers decoded")
	}

	var pcm **C.float
	avail := int(C.vorbis_synthesis_pcmout(&d.dsp, &pcm))
	if avail <= 0 {
		return nil, 0, nil
	}
	if avail > capacity {
		avail = capacity
	}

	channelPtrs := unsafe.Slice(pcm, channels)
	planes := make([][]float32, channels)
	for ch := 0; ch < channels; ch++ {
		src := unsafe.Slice((*float32)(unsafe.Pointer(channelPtrs[ch])), avail)
		dst := make([]float32, avail)
		copy(dst, src)
		planes[ch] = dst
	}
	return planes, avail, nil
}

func (d *Decoder) SynthesisRead(n int) error {
	if ret := C.vorbis_synthesis_read(&d.dsp, C.int(n)); ret != 0 {
		return fmt.Errorf("cgovorbis: vorbis_synthesis_read failed: %d", int(ret))
	}
	return nil
}

func (d *Decoder) SynthesisTrackOnly(packet []byte) error {
	op := d.packetFor(packet, 0, 0)
	if ret := C.vorbis_synthesis_trackonly(&d.block, &op); ret != 0 {
		return fmt.Errorf("cgovorbis: vorbis_synthesis_trackonly failed: %d", int(ret))
	}
	return nil
}

func (d *Decoder) SynthesisRestart() error {
	if ret := C.vorbis_synthesis_restart(&d.dsp); ret != 0 {
		return fmt.Errorf("cgovorbis: vorbis_synthesis_restart failed: %d", int(ret))
	}
	return nil
}

func (d *Decoder) Channels() int   { return int(d.info.channels) }
func (d *Decoder) SampleRate() int { return int(d.info.rate) }

func (d *Decoder) Clear() error {
	if d.blockInit {
		C.vorbis_block_clear(&d.block)
		d.blockInit = false
	}
	if d.dspInit {
		C.vorbis_dsp_clear(&d.dsp)
		d.dspInit = false
	}
	C.vorbis_comment_clear(&d.comment)
	if d.infoInit {
		C.vorbis_info_clear(&d.info)
		d.infoInit = false
	}
	return nil
}

var _ vorbisdec.Decoder = (*Decoder)(nil)
