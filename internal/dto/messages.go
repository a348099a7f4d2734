package dto

import (
	"speedgate/internal/model"
	"speedgate/internal/speed"
)

// Message types pushed to live viewers.
const (
	MessageTick      = "tick"
	MessageViolation = "violation"
	MessageStatus    = "status"
)

// TickMessage carries the live overlay for one processed frame. Image is a
// base64 JPEG and is omitted when no encoder is configured.
type TickMessage struct {
	Type string `json:"type"`
	speed.TickResult
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Image  string `json:"image,omitempty"`
}

// ViolationMessage announces a recorded violation.
type ViolationMessage struct {
	Type      string          `json:"type"`
	Violation model.Violation `json:"violation"`
	Image     string          `json:"image,omitempty"`
}

// StatusMessage announces an engine start or stop.
type StatusMessage struct {
	Type      string `json:"type"`
	Running   bool   `json:"running"`
	LastError string `json:"lastError,omitempty"`
}
