package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"speedgate/internal/config"
	"speedgate/internal/logger"
	"speedgate/internal/recognition"
	"speedgate/internal/repository/sqlite"
	"speedgate/internal/route"
	"speedgate/internal/service"
	"speedgate/internal/service/camera"
	"speedgate/internal/service/storage"
	"speedgate/internal/service/websocket"
	"speedgate/internal/speed"

	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config        *config.Config
	logger        *logger.Logger
	db            *sqlite.DB
	violationRepo *sqlite.ViolationRepository
	bufferService *storage.BufferService
	hubService    *websocket.HubService
	engine        *speed.Engine
	manager       *service.Manager
}

// NewApp loads the configuration and wires every component.
func NewApp(ctx context.Context) (*App, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log, err := logger.NewLogger(cfg.LogDirectory)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0755); err != nil {
		log.Close()
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Close()
		return nil, err
	}
	violationRepo := sqlite.NewViolationRepository(db)

	recognizer, err := newRecognizer(ctx, cfg)
	if err != nil {
		db.Close()
		log.Close()
		return nil, err
	}

	if probe, ok := recognizer.(*recognition.HTTPRecognizer); ok {
		probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := probe.CheckHealth(probeCtx); err != nil {
			log.Warning("ANPR service not reachable, plates will read %s: %v", recognition.PlateError, err)
		}
		cancel()
	}

	buffer := storage.NewBufferService(cfg.ImageDirectory, cfg.BufferLimit,
		time.Duration(cfg.FlushInterval)*time.Second, log, violationRepo)
	hub := websocket.NewHubService(log)
	recorder := service.NewRecorder(buffer, hub, log)

	encoder := camera.JPEGEncoder{}
	trigger := speed.NewViolationTrigger(cfg.Calibration.SpeedLimitKmh, cfg.RecognitionTimeout,
		encoder, recognizer, recorder, log)
	engine := speed.NewEngine(cfg.Calibration, trigger, log)
	manager := service.NewManager(engine, sourceOpener(cfg, log), encoder, hub, cfg.ProcessingInterval, log)

	return &App{
		config:        cfg,
		logger:        log,
		db:            db,
		violationRepo: violationRepo,
		bufferService: buffer,
		hubService:    hub,
		engine:        engine,
		manager:       manager,
	}, nil
}

func newRecognizer(ctx context.Context, cfg *config.Config) (recognition.Recognizer, error) {
	switch cfg.RecognitionBackend {
	case config.RecognitionGemini:
		return recognition.NewGeminiRecognizer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	case config.RecognitionHTTP:
		return recognition.NewHTTPRecognizer(cfg.RecognitionURL, nil), nil
	default:
		return recognition.Disabled{}, nil
	}
}

func sourceOpener(cfg *config.Config, log *logger.Logger) service.SourceOpener {
	return func() (camera.Source, error) {
		switch cfg.CameraSource {
		case config.SourceFile:
			return camera.OpenFile(cfg.CameraFile)
		case config.SourceUDP:
			return camera.ListenUDP(cfg.CamerasPort, log)
		default:
			return camera.OpenDevice(cfg.CameraDevice)
		}
	}
}

// Run serves HTTP and runs the background services until ctx is done.
func (a *App) Run(ctx context.Context) error {
	defer a.close()

	g, ctx := errgroup.WithContext(ctx)

	// The buffer outlives ctx so late violations still reach its final flush.
	bufferCtx, stopBuffer := context.WithCancel(context.Background())
	defer stopBuffer()

	// Start background services
	g.Go(func() error { return a.bufferService.Run(bufferCtx) })
	g.Go(func() error { return a.hubService.Run(ctx) })

	router := route.SetupRoutes(ctx, a.manager, a.hubService, a.config, a.logger, a.violationRepo)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", a.config.Port),
		Handler: router,
	}

	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		if err := a.manager.Stop(); err != nil && !errors.Is(err, service.ErrNotRunning) {
			a.logger.Error("Failed to stop engine: %v", err)
		}
		a.engine.Trigger().Wait()
		stopBuffer()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if a.config.AutoStart {
		if err := a.manager.Start(ctx); err != nil {
			a.logger.Warning("Engine not started: %v", err)
		}
	}

	a.logger.Info("🚀 Speed gate server on http://localhost:%d", a.config.Port)
	a.logger.Info("📁 Snapshots: %s", a.config.ImageDirectory)
	a.logger.Info("📷 Camera source: %s", a.config.CameraSource)
	a.logger.Info("🔎 ANPR backend: %s", a.config.RecognitionBackend)
	a.logger.Info("📏 Gates %.2f/%.2f, %.0f px/m, limit %.0f km/h",
		a.config.Calibration.GateA, a.config.Calibration.GateB,
		a.config.Calibration.PixelsPerMeter, a.config.Calibration.SpeedLimitKmh)

	return g.Wait()
}

func (a *App) close() {
	if err := a.db.Close(); err != nil {
		a.logger.Error("Failed to close database: %v", err)
	}
	a.logger.Close()
}
