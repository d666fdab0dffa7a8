package easyav1

import "github.com/crudelios/easyav1-go/internal/av1dec"

// PixelLayout mirrors internal/av1dec.Layout at the public surface, so
// callers outside the module never need to import an internal package.
type PixelLayout int

const (
	PixelLayout400 PixelLayout = iota
	PixelLayout420
	PixelLayout422
	PixelLayout444
)

func fromInternalLayout(l av1dec.Layout) PixelLayout {
	switch l {
	case av1dec.Layout400:
		return PixelLayout400
	case av1dec.Layout422:
		return PixelLayout422
	case av1dec.Layout444:
		return PixelLayout444
	default:
		return PixelLayout420
	}
}

// VideoFrame is one decoded picture handed back by GetVideoFrame. Its
// Planes/Strides are only valid until the next GetVideoFrame call on the
// same Session, which releases the picture they point into — spec.md §6.4
// calls this "ownership of one decoded picture slot". Each call builds a
// new VideoFrame and keeps it as the session's current output frame.
type VideoFrame struct {
	Planes [3][]byte
	Strides [3]int
	Width, Height int
	BitDepth int
	Layout PixelLayout

	ColorPrimaries          uint8
	TransferCharacteristics uint8
	MatrixCoefficients      uint8
	ChromaSamplePosition    uint8

	Timestamp uint64
}

func videoFrameFromPicture(pic *av1dec.Picture, timestamp uint64) *VideoFrame {
	return &VideoFrame{
		Planes:                  pic.Planes,
		Strides:                 pic.Strides,
		Width:                   pic.Width,
		Height:                  pic.Height,
		BitDepth:                pic.BitDepth,
		Layout:                  fromInternalLayout(pic.Layout),
		ColorPrimaries:          pic.ColorPrimaries,
		TransferCharacteristics: pic.TransferCharacteristics,
		MatrixCoefficients:      pic.MatrixCoefficients,
		ChromaSamplePosition:    pic.ChromaSamplePosition,
		Timestamp:               timestamp,
	}
}
