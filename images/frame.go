package images

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/pkg/errors"
)

// PixelFormat describes the byte layout of a single pixel in a Frame.
type PixelFormat int

const (
	// PixelFormatRGBA8888 is 4 bytes per pixel, R,G,B,A (image.RGBA / image.NRGBA).
	PixelFormatRGBA8888 PixelFormat = iota
	// PixelFormatBGRA8888 is 4 bytes per pixel, B,G,R,A.
	PixelFormatBGRA8888
	// PixelFormatARGB8888 is 4 bytes per pixel, A,R,G,B (camera bitmaps).
	PixelFormatARGB8888
	// PixelFormatRGB888 is 3 bytes per pixel, R,G,B.
	PixelFormatRGB888
	// PixelFormatBGR888 is 3 bytes per pixel, B,G,R (OpenCV Mat).
	PixelFormatBGR888
)

// BytesPerPixel returns the number of bytes a single pixel occupies.
func (f PixelFormat) BytesPerPixel() int {
	switch f {
	case PixelFormatRGB888, PixelFormatBGR888:
		return 3
	default:
		return 4
	}
}

// Offsets returns the byte offsets of the red, green and blue channels inside a pixel.
// Alpha, when present, is never read.
func (f PixelFormat) Offsets() (r, g, b int) {
	switch f {
	case PixelFormatBGRA8888, PixelFormatBGR888:
		return 2, 1, 0
	case PixelFormatARGB8888:
		return 1, 2, 3
	default:
		return 0, 1, 2
	}
}

func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRGBA8888:
		return "RGBA8888"
	case PixelFormatBGRA8888:
		return "BGRA8888"
	case PixelFormatARGB8888:
		return "ARGB8888"
	case PixelFormatRGB888:
		return "RGB888"
	case PixelFormatBGR888:
		return "BGR888"
	default:
		return fmt.Sprintf("PixelFormat(%d)", int(f))
	}
}

// Frame is a rectangular pixel buffer handed to the pipeline for a single inference call.
// The pipeline reads it and never keeps a reference to it.
type Frame struct {
	// Width of the frame in pixels.
	Width int
	// Height of the frame in pixels.
	Height int
	// Stride is the number of bytes between the start of two consecutive rows.
	// Zero means tightly packed (Width * BytesPerPixel).
	Stride int
	// Format is the channel layout of Pix.
	Format PixelFormat
	// Pix holds the pixel data, row-major.
	Pix []byte
}

// NewFrame allocates a tightly packed frame.
func NewFrame(width, height int, format PixelFormat) Frame {
	return Frame{
		Width:  width,
		Height: height,
		Stride: width * format.BytesPerPixel(),
		Format: format,
		Pix:    make([]byte, width*height*format.BytesPerPixel()),
	}
}

// RowStride returns the effective stride of the frame.
func (f Frame) RowStride() int {
	if f.Stride > 0 {
		return f.Stride
	}
	return f.Width * f.Format.BytesPerPixel()
}

// Validate checks that Pix is large enough for the declared geometry.
//
// Returns:
//   - error: An error describing the first inconsistency, or nil.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return errors.Errorf("invalid frame dimensions: %dx%d", f.Width, f.Height)
	}
	stride := f.RowStride()
	if stride < f.Width*f.Format.BytesPerPixel() {
		return errors.Errorf("frame stride %d too small for width %d (%s)", stride, f.Width, f.Format)
	}
	need := stride*(f.Height-1) + f.Width*f.Format.BytesPerPixel()
	if len(f.Pix) < need {
		return errors.Errorf("frame holds %d bytes, needs %d", len(f.Pix), need)
	}
	return nil
}

// FrameFromImage wraps an image.Image as a Frame.
//
// *image.RGBA and *image.NRGBA are wrapped without copying. Any other image type is
// drawn into a new RGBA buffer first.
//
// Arguments:
//   - img: The source image.
//
// Returns:
//   - Frame: An RGBA8888 frame covering img.Bounds().
func FrameFromImage(img image.Image) Frame {
	switch src := img.(type) {
	case *image.RGBA:
		return rgbaFrame(src.Pix, src.Stride, src.Bounds())
	case *image.NRGBA:
		return rgbaFrame(src.Pix, src.Stride, src.Bounds())
	}

	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return rgbaFrame(dst.Pix, dst.Stride, dst.Bounds())
}

// Pix of an RGBA/NRGBA image (or sub-image) starts at bounds.Min.
func rgbaFrame(pix []byte, stride int, bounds image.Rectangle) Frame {
	return Frame{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Stride: stride,
		Format: PixelFormatRGBA8888,
		Pix:    pix,
	}
}
