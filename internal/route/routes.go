package route

import (
	"net/http"
	"os"
	"path/filepath"

	"photocurator/internal/config"
	"photocurator/internal/handler"
	"photocurator/internal/logger"
	"photocurator/internal/middleware"
	"photocurator/internal/service"
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

// SetupRoutes registers the curator console routes and wraps the mux with
// the authentication middleware.
func SetupRoutes(manager *service.Manager, scheduler handler.NextRunner, cfg *config.Config, logger *logger.Logger) http.Handler {
	mux := http.NewServeMux()

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))

	// API endpoints
	mux.HandleFunc("/api/view", handler.ViewWebsocketHandler(manager, logger))
	mux.HandleFunc("/api/suggest", handler.SuggestHandler(manager, logger))
	mux.HandleFunc("/api/decision", handler.DecisionHandler(manager, logger))
	mux.HandleFunc("/api/schedule", handler.ScheduleHandler(scheduler, logger))
	mux.HandleFunc("/api/ledger/stats", handler.LedgerStatsHandler(manager, logger))
	mux.HandleFunc("/api/photos/view", handler.ViewPhotoHandler(cfg))

	// Log endpoints
	for _, level := range handler.LogLevels {
		mux.HandleFunc("/logs/"+level, handler.ShowLogsHandler(cfg, level))
		mux.HandleFunc("/logs/"+level+"/clear", handler.ClearLogsHandler(logger, level))
	}

	// Auth endpoints
	mux.HandleFunc("/auth/login", handler.LoginHandler(cfg, logger))
	mux.HandleFunc("/auth/logout", handler.LogoutHandler)

	// Automatic HTML handler mapping for example: /login -> /static/login.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	return middleware.AuthMiddleware([]byte(cfg.SessionSecret))(mux)
}
