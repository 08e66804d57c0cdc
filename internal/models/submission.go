package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	// SubmissionResultPass marks an asset judged compliant.
	SubmissionResultPass = "pass"
	// SubmissionResultFail marks an asset with violations.
	SubmissionResultFail = "fail"
)

// Submission is the immutable record of one completed review.
type Submission struct {
	ID              uint                        `gorm:"primaryKey" json:"id"`
	AssetType       string                      `gorm:"size:64;not null;index" json:"asset_type"`
	FileName        string                      `gorm:"size:255;not null" json:"file_name"`
	FileURL         string                      `gorm:"type:text" json:"file_url"`
	StoragePath     string                      `gorm:"size:512" json:"storage_path"`
	Result          string                      `gorm:"size:8;not null;index" json:"result"`
	ConfidenceScore int                         `gorm:"not null" json:"confidence_score"`
	Violations      datatypes.JSONSlice[string] `json:"violations"`
	Summary         string                      `gorm:"type:text" json:"summary"`
	GhostMode       bool                        `gorm:"not null;default:false" json:"ghost_mode"`
	SubmittedAt     time.Time                   `gorm:"autoCreateTime;index" json:"submitted_at"`
}

// ResultFromPass converts a boolean verdict to the stored result label.
func ResultFromPass(passed bool) string {
	if passed {
		return SubmissionResultPass
	}
	return SubmissionResultFail
}

// Passed reports whether the stored verdict is a pass.
func (s Submission) Passed() bool {
	return s.Result == SubmissionResultPass
}
