package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"speedgate/internal/dto"
	"speedgate/internal/logger"
	"speedgate/internal/service/camera"
	"speedgate/internal/service/websocket"
	"speedgate/internal/speed"
)

var (
	ErrAlreadyRunning = errors.New("service: engine already running")
	ErrNotRunning     = errors.New("service: engine not running")
)

// SourceOpener opens the frame source for one engine run.
type SourceOpener func() (camera.Source, error)

// Status reports the engine loop to the HTTP API.
type Status struct {
	Running   bool               `json:"running"`
	State     speed.TrackerState `json:"state"`
	LastError string             `json:"lastError,omitempty"`
	StartedAt *time.Time         `json:"startedAt,omitempty"`
	Frames    uint64             `json:"frames"`
	Processed uint64             `json:"processed"`
}

// Manager drives the engine from a frame source and feeds the live view.
type Manager struct {
	engine          *speed.Engine
	openSource      SourceOpener
	encoder         speed.SnapshotEncoder
	hub             *websocket.HubService
	processEveryNth int
	logger          *logger.Logger
	now             func() time.Time

	mu        sync.Mutex
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	lastErr   error
	startedAt time.Time
	state     speed.TrackerState
	frames    uint64
	processed uint64
}

// NewManager creates a stopped manager. encoder and hub may be nil.
func NewManager(engine *speed.Engine, openSource SourceOpener, encoder speed.SnapshotEncoder,
	hub *websocket.HubService, processEveryNth int, logger *logger.Logger) *Manager {
	if processEveryNth < 1 {
		processEveryNth = 1
	}
	return &Manager{
		engine:          engine,
		openSource:      openSource,
		encoder:         encoder,
		hub:             hub,
		processEveryNth: processEveryNth,
		logger:          logger,
		now:             time.Now,
	}
}

// Start opens the source and runs the engine loop until ctx is done, Stop is
// called or the source fails. A stopped loop resets the engine; a failed one
// keeps in-flight recognition running.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return ErrAlreadyRunning
	}

	src, err := m.openSource()
	if err != nil {
		m.lastErr = err
		return fmt.Errorf("failed to open frame source: %w", err)
	}

	// A failed run leaves its context alive for in-flight recognition.
	if m.cancel != nil {
		m.cancel()
	}

	// Every run starts cold.
	m.engine.Reset()

	loopCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel
	m.done = make(chan struct{})
	m.lastErr = nil
	m.startedAt = m.now()
	m.state = speed.StateIdle
	m.frames = 0
	m.processed = 0

	go m.loop(loopCtx, src, m.done)

	m.logger.Info("🎬 Engine started - processing every %d frame(s)", m.processEveryNth)
	m.broadcastStatus(true, "")
	return nil
}

// Stop halts the loop, resets the engine and cancels in-flight recognition.
func (m *Manager) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return ErrNotRunning
	}
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	cancel()
	<-done

	m.logger.Info("🛑 Engine stopped")
	return nil
}

// Status returns a snapshot of the loop state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Status{
		Running:   m.running,
		State:     m.state,
		Frames:    m.frames,
		Processed: m.processed,
	}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	if !m.startedAt.IsZero() {
		started := m.startedAt
		s.StartedAt = &started
	}
	return s
}

// Engine returns the engine driven by this manager.
func (m *Manager) Engine() *speed.Engine {
	return m.engine
}

func (m *Manager) loop(ctx context.Context, src camera.Source, done chan struct{}) {
	var loopErr error
	defer func() {
		defer close(done)

		if err := src.Close(); err != nil {
			m.logger.Warning("Failed to close frame source: %v", err)
		}
		if loopErr == nil {
			m.engine.Reset()
		}

		m.mu.Lock()
		m.running = false
		m.lastErr = loopErr
		m.mu.Unlock()

		if loopErr != nil {
			m.logger.Error("Engine loop stopped: %v", loopErr)
			m.broadcastStatus(false, loopErr.Error())
		} else {
			m.broadcastStatus(false, "")
		}
	}()

	frameCount := 0
	for {
		frame, err := src.Read(ctx)
		if err != nil {
			if ctx.Err() == nil {
				loopErr = err
			}
			return
		}

		m.mu.Lock()
		m.frames++
		m.mu.Unlock()

		// Przetwarzaj tylko co N-tą klatkę
		frameCount++
		if frameCount%m.processEveryNth != 0 {
			continue
		}
		frameCount = 0

		m.process(ctx, frame, m.now())
	}
}

// process runs one tick and never lets a panic escape the loop.
func (m *Manager) process(ctx context.Context, frame speed.Frame, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Recovered from panic in engine tick: %v", r)
		}
	}()

	result := m.engine.Tick(ctx, frame, now)

	m.mu.Lock()
	m.state = result.State
	m.processed++
	m.mu.Unlock()

	m.sendToViewers(frame, result)
}

func (m *Manager) sendToViewers(frame speed.Frame, result speed.TickResult) {
	if m.hub == nil || m.hub.GetClientCount() == 0 {
		return
	}

	msg := dto.TickMessage{
		Type:       dto.MessageTick,
		TickResult: result,
		Width:      frame.Width,
		Height:     frame.Height,
	}
	if m.encoder != nil {
		image, err := m.encoder.Encode(frame)
		if err != nil {
			m.logger.Warning("Failed to encode live frame: %v", err)
		} else {
			msg.Image = base64.StdEncoding.EncodeToString(image)
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		m.logger.Error("Failed to encode tick message: %v", err)
		return
	}
	m.hub.Broadcast(data)
}

func (m *Manager) broadcastStatus(running bool, lastError string) {
	if m.hub == nil {
		return
	}
	data, err := json.Marshal(dto.StatusMessage{Type: dto.MessageStatus, Running: running, LastError: lastError})
	if err != nil {
		return
	}
	m.hub.Broadcast(data)
}
