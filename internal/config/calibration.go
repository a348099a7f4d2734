package config

import (
	"errors"
	"fmt"
	"time"
)

// Calibration holds the per-session measurement parameters. It is fixed for
// the lifetime of an engine; changing it requires a restart.
type Calibration struct {
	// GateA is the entry gate as a fraction of frame height.
	GateA float64 `json:"gateA"`
	// GateB is the exit gate as a fraction of frame height.
	GateB           float64 `json:"gateB"`
	PixelsPerMeter  float64 `json:"pixelsPerMeter"`
	SpeedLimitKmh   float64 `json:"speedLimitKmh"`
	MotionThreshold int     `json:"motionThreshold"`
	MinMotionPixels int     `json:"minMotionPixels"`
	SampleStride    int     `json:"sampleStride"`
	GateBandPx      float64 `json:"gateBandPx"`
	// CoolDown blocks a new session after a completed one.
	CoolDown time.Duration `json:"coolDown"`
	// MaxSessionAge abandons an open session older than this. Zero disables it.
	MaxSessionAge time.Duration `json:"maxSessionAge"`
}

func DefaultCalibration() Calibration {
	return Calibration{
		GateA:           0.3,
		GateB:           0.7,
		PixelsPerMeter:  150,
		SpeedLimitKmh:   30,
		MotionThreshold: 80,
		MinMotionPixels: 50,
		SampleStride:    10,
		GateBandPx:      15,
		CoolDown:        2 * time.Second,
	}
}

// Validate reports every violated constraint at once.
func (c Calibration) Validate() error {
	var errs []error

	if c.GateA < 0 || c.GateA > 1 {
		errs = append(errs, fmt.Errorf("gate A %.3f outside [0,1]", c.GateA))
	}
	if c.GateB < 0 || c.GateB > 1 {
		errs = append(errs, fmt.Errorf("gate B %.3f outside [0,1]", c.GateB))
	}
	if c.GateA >= c.GateB {
		errs = append(errs, fmt.Errorf("gate A (%.3f) must be above gate B (%.3f)", c.GateA, c.GateB))
	}
	if c.PixelsPerMeter <= 0 {
		errs = append(errs, errors.New("pixels per meter must be positive"))
	}
	if c.SpeedLimitKmh <= 0 {
		errs = append(errs, errors.New("speed limit must be positive"))
	}
	if c.MotionThreshold < 0 {
		errs = append(errs, errors.New("motion threshold must not be negative"))
	}
	if c.MinMotionPixels < 1 {
		errs = append(errs, errors.New("min motion pixels must be at least 1"))
	}
	if c.SampleStride < 1 {
		errs = append(errs, errors.New("sample stride must be at least 1"))
	}
	if c.GateBandPx < 0 {
		errs = append(errs, errors.New("gate band must not be negative"))
	}
	if c.CoolDown < 0 {
		errs = append(errs, errors.New("cool-down must not be negative"))
	}
	if c.MaxSessionAge < 0 {
		errs = append(errs, errors.New("max session age must not be negative"))
	}

	return errors.Join(errs...)
}

// GateRows returns the gate rows in pixels for a frame of the given height.
func (c Calibration) GateRows(frameHeight int) (float64, float64) {
	h := float64(frameHeight)
	return c.GateA * h, c.GateB * h
}
