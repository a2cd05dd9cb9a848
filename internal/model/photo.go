package model

import "time"

// Photo represents one row of the suggestion ledger, keyed by filename.
type Photo struct {
	Filename    string     `json:"filename"`
	SuggestedAt *time.Time `json:"suggested_at"`
	Approved    bool       `json:"approved"`
	Skipped     bool       `json:"skipped"`
	Caption     string     `json:"caption"`
	Score       float64    `json:"score"`
}

// Decided reports whether the photo reached a terminal state.
func (p *Photo) Decided() bool {
	return p.Approved || p.Skipped
}

// LedgerStats contains counters over the whole ledger.
type LedgerStats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Skipped  int `json:"skipped"`
}
