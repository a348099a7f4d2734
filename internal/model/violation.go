package model

import "time"

// Violation is a speed measurement above the configured limit.
type Violation struct {
	ID            string    `json:"id"`
	PlateNumber   string    `json:"plateNumber"`
	SpeedKmh      float64   `json:"speed"`
	SpeedLimitKmh float64   `json:"speedLimit"`
	Timestamp     time.Time `json:"timestamp"`
	ImagePath     string    `json:"imagePath"`
	FileSize      int64     `json:"fileSize"`

	// Snapshot is the encoded JPEG; it is written to disk by the sink and
	// never serialized.
	Snapshot []byte `json:"-"`
}

// Excess returns how far above the limit the measured speed was.
func (v Violation) Excess() float64 {
	return v.SpeedKmh - v.SpeedLimitKmh
}
