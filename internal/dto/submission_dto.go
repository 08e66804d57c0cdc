package dto

import (
	"time"

	"github.com/noah-isme/asset-review-api/internal/models"
)

// SubmissionListRequest describes query string filters for listing submissions.
type SubmissionListRequest struct {
	AssetType string `query:"asset_type" validate:"omitempty,max=64"`
	Result    string `query:"result" validate:"omitempty,oneof=pass fail"`
	From      string `query:"from"`
	To        string `query:"to"`
	Page      int    `query:"page" validate:"omitempty,min=1"`
	PageSize  int    `query:"page_size" validate:"omitempty,min=1,max=100"`
}

// SubmissionResponse is the admin view of a submission record.
type SubmissionResponse struct {
	ID              uint      `json:"id"`
	AssetType       string    `json:"asset_type"`
	FileName        string    `json:"file_name"`
	FileURL         string    `json:"file_url"`
	Result          string    `json:"result"`
	ConfidenceScore int       `json:"confidence_score"`
	Violations      []string  `json:"violations"`
	Summary         string    `json:"summary"`
	GhostMode       bool      `json:"ghost_mode"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// SubmissionListResponse wraps a page of submissions.
type SubmissionListResponse struct {
	Items      []SubmissionResponse `json:"items"`
	Pagination PaginationMeta       `json:"pagination"`
}

// SubmissionEvent is broadcast to live feed subscribers when a review completes.
type SubmissionEvent struct {
	ID              uint      `json:"id"`
	AssetType       string    `json:"asset_type"`
	FileName        string    `json:"file_name"`
	Result          string    `json:"result"`
	ConfidenceScore int       `json:"confidence_score"`
	ViolationCount  int       `json:"violation_count"`
	GhostMode       bool      `json:"ghost_mode"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

// NewSubmissionResponse converts a Submission model into a DTO.
func NewSubmissionResponse(model models.Submission) SubmissionResponse {
	violations := []string(model.Violations)
	if violations == nil {
		violations = []string{}
	}

	return SubmissionResponse{
		ID:              model.ID,
		AssetType:       model.AssetType,
		FileName:        model.FileName,
		FileURL:         model.FileURL,
		Result:          model.Result,
		ConfidenceScore: model.ConfidenceScore,
		Violations:      violations,
		Summary:         model.Summary,
		GhostMode:       model.GhostMode,
		SubmittedAt:     model.SubmittedAt,
	}
}

// NewSubmissionEvent summarizes a stored submission for the live feed.
func NewSubmissionEvent(model models.Submission) SubmissionEvent {
	return SubmissionEvent{
		ID:              model.ID,
		AssetType:       model.AssetType,
		FileName:        model.FileName,
		Result:          model.Result,
		ConfidenceScore: model.ConfidenceScore,
		ViolationCount:  len(model.Violations),
		GhostMode:       model.GhostMode,
		SubmittedAt:     model.SubmittedAt,
	}
}
