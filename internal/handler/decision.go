package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"photocurator/internal/dto"
	"photocurator/internal/logger"
	"photocurator/internal/repository"
	"photocurator/internal/service"
	"photocurator/internal/service/archive"
)

// DecisionHandler handles POST /api/decision with form fields action
// (approve|skip) and filename.
func DecisionHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		action := r.FormValue("action")
		filename := strings.TrimSpace(r.FormValue("filename"))
		if filename == "" {
			http.Error(w, "Filename required", http.StatusBadRequest)
			return
		}

		var (
			result *dto.DecisionResult
			err    error
		)
		switch action {
		case dto.ActionApprove:
			result, err = manager.Approve(filename)
		case dto.ActionSkip:
			result, err = manager.Skip(filename)
		default:
			http.Error(w, "Unknown action", http.StatusBadRequest)
			return
		}

		var fsErr *archive.FileSystemError
		switch {
		case err == nil, errors.As(err, &fsErr):
			// approval is committed even when the move failed
		case errors.Is(err, repository.ErrNotSuggested):
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		case errors.Is(err, repository.ErrAlreadyDecided):
			http.Error(w, err.Error(), http.StatusConflict)
			return
		default:
			logger.Error("Error applying %s to %s: %v", action, filename, err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(result); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}
