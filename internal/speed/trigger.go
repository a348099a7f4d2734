package speed

import (
	"context"
	"sync"
	"time"

	"speedgate/internal/logger"
	"speedgate/internal/model"
	"speedgate/internal/recognition"
)

// SnapshotEncoder turns a frame into an image file (JPEG).
type SnapshotEncoder interface {
	Encode(frame Frame) ([]byte, error)
}

// ViolationSink receives finished violations. The trigger keeps no
// reference to a violation after handing it over.
type ViolationSink interface {
	ReportViolation(v model.Violation) error
}

type captureState int

const (
	captureIdle captureState = iota
	captureAwaitingRecognition
)

// ViolationTrigger captures a snapshot for estimates above the speed limit
// and resolves the plate asynchronously. Only one recognition call can be in
// flight; estimates arriving meanwhile are dropped.
type ViolationTrigger struct {
	limit      float64
	timeout    time.Duration
	encoder    SnapshotEncoder
	recognizer recognition.Recognizer
	sink       ViolationSink
	logger     *logger.Logger

	mu         sync.Mutex
	state      captureState
	generation uint64
	cancel     context.CancelFunc
	wg         sync.WaitGroup
}

func NewViolationTrigger(limitKmh float64, timeout time.Duration, encoder SnapshotEncoder,
	recognizer recognition.Recognizer, sink ViolationSink, logger *logger.Logger) *ViolationTrigger {
	if recognizer == nil {
		recognizer = recognition.Disabled{}
	}
	return &ViolationTrigger{
		limit:      limitKmh,
		timeout:    timeout,
		encoder:    encoder,
		recognizer: recognizer,
		sink:       sink,
		logger:     logger,
	}
}

// OnEstimate starts a capture when est is above the limit and no capture is
// pending. It returns true when a recognition call was started.
func (t *ViolationTrigger) OnEstimate(ctx context.Context, est Estimate, snapshot Frame) bool {
	if est.Kmh <= t.limit {
		return false
	}

	gen, ok := t.reserve()
	if !ok {
		t.logger.Info("Speed %.2f km/h above limit but recognition still pending - capture skipped", est.Kmh)
		return false
	}

	image, err := t.encoder.Encode(snapshot)
	if err != nil {
		t.logger.Error("Failed to encode violation snapshot: %v", err)
		t.release(gen)
		return false
	}

	var (
		callCtx context.Context
		cancel  context.CancelFunc
	)
	if t.timeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, t.timeout)
	} else {
		callCtx, cancel = context.WithCancel(ctx)
	}
	if !t.attachCancel(gen, cancel) {
		cancel()
		return false
	}

	t.logger.Info("🚨 Speed %.2f km/h exceeds limit %.0f km/h - recognizing plate", est.Kmh, t.limit)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer t.release(gen)
		defer cancel()

		plate := t.recognize(callCtx, image)
		violation := model.Violation{
			PlateNumber:   plate,
			SpeedKmh:      est.Kmh,
			SpeedLimitKmh: t.limit,
			Timestamp:     est.MeasuredAt,
			Snapshot:      image,
		}
		if violation.Timestamp.IsZero() {
			violation.Timestamp = time.Now()
		}

		if err := t.sink.ReportViolation(violation); err != nil {
			t.logger.Error("Failed to report violation for plate %s: %v", plate, err)
		}
	}()

	return true
}

func (t *ViolationTrigger) recognize(ctx context.Context, image []byte) (plate string) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("Plate recognition panicked: %v", r)
			plate = recognition.PlateError
		}
	}()

	text, err := t.recognizer.Recognize(ctx, image)
	if err != nil {
		t.logger.Warning("Plate recognition failed: %v", err)
	}
	return recognition.PlateText(text, err)
}

func (t *ViolationTrigger) reserve() (uint64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == captureAwaitingRecognition {
		return 0, false
	}
	t.state = captureAwaitingRecognition
	t.generation++
	return t.generation, true
}

// attachCancel stores the cancel func unless the reservation was reset
// while the snapshot was being encoded.
func (t *ViolationTrigger) attachCancel(gen uint64, cancel context.CancelFunc) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.generation != gen {
		return false
	}
	t.cancel = cancel
	return true
}

// release frees the slot only if it still belongs to gen.
func (t *ViolationTrigger) release(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.generation != gen {
		return
	}
	t.state = captureIdle
	t.cancel = nil
}

// Busy reports whether a recognition call is pending.
func (t *ViolationTrigger) Busy() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state == captureAwaitingRecognition
}

// Reset cancels a pending recognition call and frees the slot immediately.
func (t *ViolationTrigger) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.generation++
	t.state = captureIdle
}

// Wait blocks until every started capture has been handed to the sink.
func (t *ViolationTrigger) Wait() {
	t.wg.Wait()
}
