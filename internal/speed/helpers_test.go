package speed

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"speedgate/internal/logger"
	"speedgate/internal/model"

	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.NewLogger(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

// frameWithBand returns a black frame with a white horizontal band covering
// rows [top, bottom].
func frameWithBand(width, height, top, bottom int) Frame {
	f := NewFrame(width, height)
	for y := top; y <= bottom; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * BytesPerPixel
			f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3] = 255, 255, 255, 255
		}
	}
	return f
}

func filledFrame(width, height int, value byte) Frame {
	f := NewFrame(width, height)
	for i := range f.Pix {
		f.Pix[i] = value
	}
	return f
}

type fakeEncoder struct {
	err   error
	calls atomic.Int32
}

func (e *fakeEncoder) Encode(frame Frame) ([]byte, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return []byte{0xFF, 0xD8, byte(frame.Width), 0xFF, 0xD9}, nil
}

// gatedRecognizer blocks every call until release is closed or the context
// ends.
type gatedRecognizer struct {
	plate   string
	err     error
	release chan struct{}
	started chan struct{}
	calls   atomic.Int32
}

func newGatedRecognizer(plate string, err error) *gatedRecognizer {
	return &gatedRecognizer{
		plate:   plate,
		err:     err,
		release: make(chan struct{}),
		started: make(chan struct{}, 16),
	}
}

func (r *gatedRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	r.calls.Add(1)
	r.started <- struct{}{}
	select {
	case <-r.release:
		return r.plate, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type instantRecognizer struct {
	plate string
	err   error
	calls atomic.Int32
}

func (r *instantRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	r.calls.Add(1)
	return r.plate, r.err
}

type recordingSink struct {
	mu         sync.Mutex
	violations []model.Violation
	err        error
}

func (s *recordingSink) ReportViolation(v model.Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.violations = append(s.violations, v)
	return s.err
}

func (s *recordingSink) all() []model.Violation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Violation(nil), s.violations...)
}

var errBoom = errors.New("boom")
