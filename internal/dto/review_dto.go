package dto

import "mime/multipart"

// GhostModeAcknowledgement is returned instead of a result while ghost mode is on.
const GhostModeAcknowledgement = "Submission received and is under review."

// ReviewResult is the structured outcome shown to the submitter.
type ReviewResult struct {
	Pass          bool     `json:"pass"`
	Confidence    int      `json:"confidence"`
	Violations    []string `json:"violations"`
	Summary       string   `json:"summary"`
	CustomMessage string   `json:"customMessage"`
}

// ReviewResponse is the 200 body of POST /api/review. Exactly one of Result or
// Message is set, depending on GhostMode.
type ReviewResponse struct {
	GhostMode bool          `json:"ghostMode"`
	Result    *ReviewResult `json:"result,omitempty"`
	Message   string        `json:"message,omitempty"`
}

// NewGhostModeResponse builds the acknowledgement returned while results are withheld.
func NewGhostModeResponse() ReviewResponse {
	return ReviewResponse{GhostMode: true, Message: GhostModeAcknowledgement}
}

// ReviewRequest carries the multipart fields of one review submission.
type ReviewRequest struct {
	AssetType string
	File      *multipart.FileHeader
}
