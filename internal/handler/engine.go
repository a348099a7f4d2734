package handler

import (
	"context"
	"errors"
	"net/http"

	"speedgate/internal/logger"
	"speedgate/internal/service"
)

// StartEngineHandler starts the engine loop. The loop lives as long as ctx,
// not the request.
func StartEngineHandler(ctx context.Context, manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		err := manager.Start(ctx)
		switch {
		case errors.Is(err, service.ErrAlreadyRunning):
			http.Error(w, "Engine already running", http.StatusConflict)
			return
		case err != nil:
			logger.Error("Failed to start engine: %v", err)
			http.Error(w, err.Error(), http.StatusServiceUnavailable)
			return
		}

		writeJSON(w, logger, http.StatusOK, manager.Status())
	}
}

// StopEngineHandler stops the engine loop.
func StopEngineHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if err := manager.Stop(); errors.Is(err, service.ErrNotRunning) {
			http.Error(w, "Engine not running", http.StatusConflict)
			return
		}

		writeJSON(w, logger, http.StatusOK, manager.Status())
	}
}

func EngineStatusHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, manager.Status())
	}
}

// CalibrationHandler returns the calibration the engine runs with.
func CalibrationHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, logger, http.StatusOK, manager.Engine().Calibration())
	}
}
