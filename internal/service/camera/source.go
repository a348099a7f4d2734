package camera

import (
	"context"
	"errors"
	"fmt"

	"speedgate/internal/speed"

	"gocv.io/x/gocv"
)

// ErrSourceClosed is returned by Read once the source has no more frames.
var ErrSourceClosed = errors.New("camera: source closed")

// Source delivers decoded frames to the engine loop.
type Source interface {
	Read(ctx context.Context) (speed.Frame, error)
	Close() error
}

// matToFrame converts a BGR Mat into an RGBA frame.
func matToFrame(mat gocv.Mat) (speed.Frame, error) {
	if mat.Empty() {
		return speed.Frame{}, fmt.Errorf("empty frame")
	}

	rgba := gocv.NewMat()
	defer rgba.Close()
	if err := gocv.CvtColor(mat, &rgba, gocv.ColorBGRToRGBA); err != nil {
		return speed.Frame{}, fmt.Errorf("failed to convert frame: %w", err)
	}

	frame := speed.Frame{Width: rgba.Cols(), Height: rgba.Rows(), Pix: rgba.ToBytes()}
	if err := frame.Validate(); err != nil {
		return speed.Frame{}, err
	}
	return frame, nil
}

// frameToMat converts an RGBA frame into a BGR Mat owned by the caller.
func frameToMat(frame speed.Frame) (gocv.Mat, error) {
	if err := frame.Validate(); err != nil {
		return gocv.NewMat(), err
	}

	rgba, err := gocv.NewMatFromBytes(frame.Height, frame.Width, gocv.MatTypeCV8UC4, frame.Pix)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to wrap frame: %w", err)
	}
	defer rgba.Close()

	bgr := gocv.NewMat()
	if err := gocv.CvtColor(rgba, &bgr, gocv.ColorRGBAToBGR); err != nil {
		bgr.Close()
		return gocv.NewMat(), fmt.Errorf("failed to convert frame: %w", err)
	}
	return bgr, nil
}
