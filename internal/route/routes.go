package route

import (
	"context"
	"net/http"
	"os"
	"path/filepath"

	"speedgate/internal/config"
	"speedgate/internal/handler"
	"speedgate/internal/logger"
	"speedgate/internal/middleware"
	"speedgate/internal/repository"
	"speedgate/internal/service"
	"speedgate/internal/service/websocket"
)

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join("static", filepath.Clean("/"+path)+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers HTTP routes, static file serving, API endpoints,
// and wraps the mux with the authentication middleware. The engine loop
// started through the API lives as long as ctx.
func SetupRoutes(ctx context.Context, manager *service.Manager, hub *websocket.HubService, cfg *config.Config,
	log *logger.Logger, violationRepo repository.ViolationRepository) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	// Live view
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(hub, log))

	// Violations
	mux.HandleFunc("/api/violations", handler.GetViolationsHandler(log, violationRepo))
	mux.HandleFunc("/api/violations/count", handler.CountViolationsHandler(log, violationRepo))
	mux.HandleFunc("/api/violations/view", handler.ViewSnapshotHandler(cfg))
	mux.HandleFunc("/api/violations/delete", handler.DeleteViolationHandler(cfg, log, violationRepo))
	mux.HandleFunc("/api/violations/clear", handler.ClearViolationsHandler(cfg, log, violationRepo))

	// Engine control
	mux.HandleFunc("/api/engine/start", handler.StartEngineHandler(ctx, manager, log))
	mux.HandleFunc("/api/engine/stop", handler.StopEngineHandler(manager, log))
	mux.HandleFunc("/api/engine/status", handler.EngineStatusHandler(manager, log))
	mux.HandleFunc("/api/calibration", handler.CalibrationHandler(manager, log))

	// Log endpoints
	for name, file := range map[string]string{"info": logger.InfoFile, "warning": logger.WarningFile, "error": logger.ErrorFile} {
		mux.HandleFunc("/logs/"+name, handler.ShowLogsHandler(log, file))
		mux.HandleFunc("/logs/"+name+"/clear", handler.ClearLogsHandler(log, file))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, log))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping for example: /settings -> /static/settings.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	// Apply middleware
	return middleware.AuthMiddleware(mux)
}
