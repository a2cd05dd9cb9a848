package dto

// Decision actions accepted by /api/decision.
const (
	ActionApprove = "approve"
	ActionSkip    = "skip"
)

// DecisionResult reports what happened to a curator decision.
// ArchivedAs is empty when the file was not moved.
type DecisionResult struct {
	Filename   string `json:"filename"`
	Action     string `json:"action"`
	ArchivedAs string `json:"archived_as,omitempty"`
	Message    string `json:"message"`
}
