package handler

import (
	"encoding/json"
	"net/http"
	"path/filepath"

	"photocurator/internal/config"
	"photocurator/internal/logger"
	"photocurator/internal/service"
)

// LedgerStatsHandler handles GET /api/ledger/stats.
func LedgerStatsHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := manager.Stats()
		if err != nil {
			logger.Error("Error reading ledger stats: %v", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}

// ViewPhotoHandler serves a full-size candidate from the photos folder,
// specified via the "image" query parameter.
func ViewPhotoHandler(config *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		image := r.URL.Query().Get("image")
		if image == "" || image != filepath.Base(image) {
			http.Error(w, "Image parameter is required", http.StatusBadRequest)
			return
		}
		http.ServeFile(w, r, filepath.Join(config.PhotosFolder, image))
	}
}
