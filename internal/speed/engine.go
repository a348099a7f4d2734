package speed

import (
	"context"
	"time"

	"speedgate/internal/config"
	"speedgate/internal/logger"
)

// TickResult describes what one frame did to the pipeline.
type TickResult struct {
	Motion       *Point       `json:"motion,omitempty"`
	State        TrackerState `json:"state"`
	GateAY       float64      `json:"gateAY"`
	GateBY       float64      `json:"gateBY"`
	Estimate     *Estimate    `json:"estimate,omitempty"`
	Unmeasurable bool         `json:"unmeasurable,omitempty"`
	Triggered    bool         `json:"triggered,omitempty"`
}

// Engine advances detector, tracker, estimator and trigger once per frame.
// Tick must be called from a single goroutine.
type Engine struct {
	calibration config.Calibration
	detector    *MotionDetector
	tracker     *GateTracker
	trigger     *ViolationTrigger
	logger      *logger.Logger
}

func NewEngine(cal config.Calibration, trigger *ViolationTrigger, logger *logger.Logger) *Engine {
	return &Engine{
		calibration: cal,
		detector:    NewMotionDetector(cal),
		tracker:     NewGateTracker(cal),
		trigger:     trigger,
		logger:      logger,
	}
}

// Tick processes one frame captured at now.
func (e *Engine) Tick(ctx context.Context, frame Frame, now time.Time) TickResult {
	result := TickResult{}
	result.GateAY, result.GateBY = e.calibration.GateRows(frame.Height)

	var sample *Point
	if err := frame.Validate(); err != nil {
		e.logger.Warning("Skipping malformed frame: %v", err)
	} else if centroid, ok := e.detector.Detect(frame); ok {
		sample = &centroid
		result.Motion = sample
	}

	wasTracking := e.tracker.State() == StateTracking
	session, completed := e.tracker.Observe(sample, frame.Height, now)
	result.State = e.tracker.State()

	if !wasTracking && result.State == StateTracking {
		e.logger.Info("Gate A crossed, tracking started")
	}
	if !completed {
		return result
	}

	estimate, err := EstimateSpeed(session, e.calibration)
	if err != nil {
		e.logger.Warning("Session %s discarded (duration %v): %v", session.ID, session.Duration(), err)
		result.Unmeasurable = true
		return result
	}
	result.Estimate = &estimate
	e.logger.Info("Gate B crossed: %.2f km/h over %.2f m in %v", estimate.Kmh, estimate.Meters, estimate.Duration)

	if e.trigger != nil {
		result.Triggered = e.trigger.OnEstimate(ctx, estimate, frame)
	}

	return result
}

// Reset returns every stage to its initial state.
func (e *Engine) Reset() {
	e.detector.Reset()
	e.tracker.Reset()
	if e.trigger != nil {
		e.trigger.Reset()
	}
}

func (e *Engine) Calibration() config.Calibration {
	return e.calibration
}

func (e *Engine) Detector() *MotionDetector {
	return e.detector
}

func (e *Engine) Tracker() *GateTracker {
	return e.tracker
}

func (e *Engine) Trigger() *ViolationTrigger {
	return e.trigger
}
