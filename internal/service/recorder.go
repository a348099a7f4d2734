package service

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"speedgate/internal/dto"
	"speedgate/internal/logger"
	"speedgate/internal/model"
	"speedgate/internal/service/storage"
	"speedgate/internal/service/websocket"

	"github.com/google/uuid"
)

// Recorder is the violation sink: it assigns the record identity, queues the
// record for storage and tells live viewers about it.
type Recorder struct {
	buffer *storage.BufferService
	hub    *websocket.HubService
	logger *logger.Logger
}

func NewRecorder(buffer *storage.BufferService, hub *websocket.HubService, logger *logger.Logger) *Recorder {
	return &Recorder{buffer: buffer, hub: hub, logger: logger}
}

func (r *Recorder) ReportViolation(v model.Violation) error {
	if r.buffer == nil {
		return fmt.Errorf("no storage configured")
	}
	v.ID = uuid.NewString()
	r.buffer.AddViolation(v)

	r.logger.Info("🚨 Violation %s: %s at %.2f km/h (limit %.0f, +%.2f)", v.ID, v.PlateNumber, v.SpeedKmh, v.SpeedLimitKmh, v.Excess())

	if r.hub == nil {
		return nil
	}
	msg := dto.ViolationMessage{Type: dto.MessageViolation, Violation: v}
	if len(v.Snapshot) > 0 {
		msg.Image = base64.StdEncoding.EncodeToString(v.Snapshot)
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to encode violation message: %w", err)
	}
	r.hub.Broadcast(data)
	return nil
}
