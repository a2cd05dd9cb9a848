package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"photocurator/internal/dto"
	"photocurator/internal/logger"
)

// NextRunner exposes the next scheduled pass.
type NextRunner interface {
	NextRun() time.Time
}

// ScheduleHandler handles GET /api/schedule.
func ScheduleHandler(scheduler NextRunner, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		next := scheduler.NextRun()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(dto.ScheduleInfo{
			NextRun:   next,
			Formatted: next.Format("2006/01/02:15:04"),
		}); err != nil {
			logger.Error("Error encoding JSON response: %v", err)
		}
	}
}
