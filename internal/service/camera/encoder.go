package camera

import (
	"fmt"

	"speedgate/internal/speed"

	"gocv.io/x/gocv"
)

// JPEGEncoder encodes frames for snapshots and live view.
type JPEGEncoder struct{}

func (JPEGEncoder) Encode(frame speed.Frame) ([]byte, error) {
	mat, err := frameToMat(frame)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	buf, err := gocv.IMEncode(".jpg", mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}

// DecodeJPEG decodes a JPEG image into an RGBA frame.
func DecodeJPEG(data []byte) (speed.Frame, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return speed.Frame{}, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	return matToFrame(mat)
}
