package speed

import "fmt"

// BytesPerPixel is the RGBA channel layout of every Frame.
const BytesPerPixel = 4

// Frame is a single RGBA raster, row-major, 4 bytes per pixel.
// A Frame is never modified after capture.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// NewFrame allocates a zeroed frame.
func NewFrame(width, height int) Frame {
	return Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*BytesPerPixel),
	}
}

// Validate checks that the pixel buffer matches the declared dimensions.
func (f Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", f.Width, f.Height)
	}
	if want := f.Width * f.Height * BytesPerPixel; len(f.Pix) != want {
		return fmt.Errorf("frame buffer has %d bytes, want %d", len(f.Pix), want)
	}
	return nil
}

func (f Frame) sameSize(o Frame) bool {
	return f.Width == o.Width && f.Height == o.Height
}
