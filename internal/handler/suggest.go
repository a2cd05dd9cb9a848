package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"photocurator/internal/logger"
	"photocurator/internal/service"
)

// SuggestHandler handles POST /api/suggest: runs an on-demand pass and returns
// the suggestion. The pass keeps running if the client goes away.
func SuggestHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		logger.Info("🔎 Processing on-demand suggestion")
		results := manager.SuggestNow(context.WithoutCancel(r.Context()))

		select {
		case <-r.Context().Done():
			logger.Warning("Client left before the suggestion was ready")
			return
		case result := <-results:
			if result.Err != nil {
				http.Error(w, "An error occurred while processing suggestion", http.StatusInternalServerError)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			if result.Suggestion == nil {
				json.NewEncoder(w).Encode(map[string]string{"message": "No candidates available right now."})
				return
			}
			if err := json.NewEncoder(w).Encode(result.Suggestion); err != nil {
				logger.Error("Error encoding JSON response: %v", err)
			}
		}
	}
}
