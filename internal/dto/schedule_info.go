package dto

import "time"

// ScheduleInfo is the response payload of /api/schedule.
type ScheduleInfo struct {
	NextRun   time.Time `json:"next_run"`
	Formatted string    `json:"formatted"`
}
