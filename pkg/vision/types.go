package vision

import (
	"context"
	"errors"
)

// ErrInferenceFailed indicates the model call itself could not be completed.
// A reply that arrived but could not be parsed is not an error; see NormalizeReply.
var ErrInferenceFailed = errors.New("vision inference failed")

// FormatErrorViolation is reported when the model reply carries no usable JSON.
const FormatErrorViolation = "AI response format error"

// FallbackConfidence is the confidence assigned to unparseable replies.
const FallbackConfidence = 50

// Image is an in-memory picture sent to the model.
type Image struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Request carries everything needed for one compliance check.
type Request struct {
	Guidelines string
	References []Image
	Submission Image
}

// Verdict is the normalized model assessment.
type Verdict struct {
	Passed     bool     `json:"pass"`
	Confidence int      `json:"confidence"`
	Violations []string `json:"violations"`
	Summary    string   `json:"summary"`
	// Fallback is set when the reply could not be parsed and defaults were substituted.
	Fallback bool `json:"-"`
}

// Reviewer checks a submission image against guideline text.
type Reviewer interface {
	Review(ctx context.Context, req Request) (Verdict, error)
}
