package speed

import (
	"errors"
	"math"
	"time"

	"speedgate/internal/config"
)

// ErrUnmeasurable is returned for a session whose timing or geometry cannot
// produce a finite speed.
var ErrUnmeasurable = errors.New("speed: unmeasurable session")

// Estimate is a speed derived from one completed session.
type Estimate struct {
	Kmh      float64       `json:"kmh"`
	Meters   float64       `json:"meters"`
	Duration time.Duration `json:"duration"`

	// MeasuredAt is the moment the exit gate was crossed.
	MeasuredAt time.Time `json:"measuredAt"`
}

// EstimateSpeed converts a completed session into km/h. Gate fractions are
// scaled by the frame height recorded on the session.
func EstimateSpeed(session Session, cal config.Calibration) (Estimate, error) {
	if !session.Completed() || session.FrameHeight <= 0 || cal.PixelsPerMeter <= 0 {
		return Estimate{}, ErrUnmeasurable
	}

	duration := session.End.Sub(session.Start)
	seconds := duration.Seconds()
	if seconds <= 0 {
		return Estimate{}, ErrUnmeasurable
	}

	gateAY, gateBY := cal.GateRows(session.FrameHeight)
	meters := math.Abs(gateBY-gateAY) / cal.PixelsPerMeter
	kmh := meters / seconds * 3.6

	if math.IsInf(kmh, 0) || math.IsNaN(kmh) {
		return Estimate{}, ErrUnmeasurable
	}

	return Estimate{
		Kmh:        kmh,
		Meters:     meters,
		Duration:   duration,
		MeasuredAt: session.End,
	}, nil
}
