package camera

import (
	"context"
	"fmt"
	"sync"

	"speedgate/internal/speed"

	"gocv.io/x/gocv"
)

// DeviceSource reads frames from a local camera or a video file.
type DeviceSource struct {
	capture *gocv.VideoCapture
	mat     gocv.Mat
	name    string
	mu      sync.Mutex
	closed  bool
}

// OpenDevice opens a camera by index.
func OpenDevice(device int) (*DeviceSource, error) {
	capture, err := gocv.VideoCaptureDevice(device)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %d: %w", device, err)
	}
	return newDeviceSource(capture, fmt.Sprintf("device %d", device))
}

// OpenFile opens a video file or stream URL.
func OpenFile(path string) (*DeviceSource, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open video %s: %w", path, err)
	}
	return newDeviceSource(capture, path)
}

func newDeviceSource(capture *gocv.VideoCapture, name string) (*DeviceSource, error) {
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("capture %s is not opened", name)
	}
	// Keep latency low, stale frames skew the timing.
	capture.Set(gocv.VideoCaptureBufferSize, 1)

	return &DeviceSource{
		capture: capture,
		mat:     gocv.NewMat(),
		name:    name,
	}, nil
}

// Read blocks until the next frame is captured.
func (s *DeviceSource) Read(ctx context.Context) (speed.Frame, error) {
	if err := ctx.Err(); err != nil {
		return speed.Frame{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return speed.Frame{}, ErrSourceClosed
	}
	if ok := s.capture.Read(&s.mat); !ok || s.mat.Empty() {
		return speed.Frame{}, fmt.Errorf("%s: %w", s.name, ErrSourceClosed)
	}
	return matToFrame(s.mat)
}

func (s *DeviceSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	s.mat.Close()
	return s.capture.Close()
}
