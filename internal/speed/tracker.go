package speed

import (
	"fmt"
	"math"
	"time"

	"speedgate/internal/config"

	"github.com/google/uuid"
)

// TrackerState is the gate tracker state.
type TrackerState int

const (
	StateIdle TrackerState = iota
	StateTracking
	StateCoolingDown
)

func (s TrackerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateTracking:
		return "tracking"
	case StateCoolingDown:
		return "cooling_down"
	default:
		return "unknown"
	}
}

// MarshalText lets the state appear by name in JSON payloads.
func (s TrackerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *TrackerState) UnmarshalText(text []byte) error {
	for _, candidate := range []TrackerState{StateIdle, StateTracking, StateCoolingDown} {
		if candidate.String() == string(text) {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown tracker state %q", text)
}

// Session is one gate A to gate B measurement.
type Session struct {
	ID    string
	Start time.Time
	// End is zero while the session is open.
	End time.Time
	// FrameHeight is the frame height seen when the session completed.
	FrameHeight int
}

// Completed reports whether the exit gate has been crossed.
func (s Session) Completed() bool {
	return !s.End.IsZero()
}

// Duration is the crossing time of a completed session.
func (s Session) Duration() time.Duration {
	if !s.Completed() {
		return 0
	}
	return s.End.Sub(s.Start)
}

// GateTracker watches centroids against the two gate bands. At most one
// session is open at a time. It is driven by a single tick loop and is not
// safe for concurrent use.
type GateTracker struct {
	gateA         float64
	gateB         float64
	band          float64
	coolDown      time.Duration
	maxSessionAge time.Duration

	state         TrackerState
	session       *Session
	coolDownUntil time.Time
}

func NewGateTracker(cal config.Calibration) *GateTracker {
	return &GateTracker{
		gateA:         cal.GateA,
		gateB:         cal.GateB,
		band:          cal.GateBandPx,
		coolDown:      cal.CoolDown,
		maxSessionAge: cal.MaxSessionAge,
		state:         StateIdle,
	}
}

// Observe feeds one tick to the tracker. sample is nil when no motion was
// detected. A completed session is returned exactly once, on the tick that
// crossed gate B.
func (t *GateTracker) Observe(sample *Point, frameHeight int, now time.Time) (Session, bool) {
	switch t.state {
	case StateCoolingDown:
		if now.Before(t.coolDownUntil) {
			return Session{}, false
		}
		t.toIdle()
	case StateTracking:
		if t.maxSessionAge > 0 && now.Sub(t.session.Start) > t.maxSessionAge {
			t.toIdle()
		}
	}

	if sample == nil {
		return Session{}, false
	}

	gateAY := t.gateA * float64(frameHeight)
	gateBY := t.gateB * float64(frameHeight)

	switch t.state {
	case StateIdle:
		if t.inBand(sample.Y, gateAY) {
			t.session = &Session{
				ID:    uuid.NewString(),
				Start: now,
			}
			t.state = StateTracking
		}
	case StateTracking:
		if t.inBand(sample.Y, gateBY) && !t.session.Completed() {
			t.session.End = now
			t.session.FrameHeight = frameHeight
			done := *t.session
			t.state = StateCoolingDown
			t.coolDownUntil = now.Add(t.coolDown)
			return done, true
		}
	}

	return Session{}, false
}

func (t *GateTracker) inBand(y, gateY float64) bool {
	return math.Abs(y-gateY) <= t.band
}

func (t *GateTracker) toIdle() {
	t.state = StateIdle
	t.session = nil
	t.coolDownUntil = time.Time{}
}

// State returns the current tracker state.
func (t *GateTracker) State() TrackerState {
	return t.state
}

// Session returns a copy of the session being tracked or cooling down.
func (t *GateTracker) Session() (Session, bool) {
	if t.session == nil {
		return Session{}, false
	}
	return *t.session, true
}

// Reset returns the tracker to Idle and forgets any session.
func (t *GateTracker) Reset() {
	t.toIdle()
}
