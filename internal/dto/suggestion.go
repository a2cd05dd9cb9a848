// Package dto holds the payloads exchanged with curator viewers.
package dto

// Suggestion is the payload pushed to curator viewers and returned by /api/suggest.
type Suggestion struct {
	Filename string  `json:"filename"`
	Image    []byte  `json:"image"` // base64 in JSON
	Caption  string  `json:"caption"`
	Score    float64 `json:"score"`
	Message  string  `json:"message"`
}

// SuggestResult is delivered on the channel returned by an on-demand pass.
// Suggestion is nil when no candidate was available.
type SuggestResult struct {
	Suggestion *Suggestion
	Err        error
}
