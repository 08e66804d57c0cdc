package batch

import (
	"context"
	"errors"
)

var (
	// ErrBatchFull is returned when Add had to drop files beyond the item limit.
	ErrBatchFull = errors.New("batch is full")
	// ErrNotImage is returned when none of the offered files is an image.
	ErrNotImage = errors.New("please select valid image files")
	// ErrRunning is returned when Run is called while a run is in progress.
	ErrRunning = errors.New("batch is already running")
)

const (
	// DefaultMaxItems caps how many files one batch holds.
	DefaultMaxItems = 30
	// DefaultConcurrency is the number of reviews in flight at once.
	DefaultConcurrency = 5
)

// Status is the lifecycle state of one item's review.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// File is a candidate upload held in memory.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Item is a file accepted into the batch.
type Item struct {
	ID   string
	Name string
	Size int
}

// Result is the server's answer for one file. With GhostMode set only
// Message is meaningful.
type Result struct {
	GhostMode     bool
	Message       string
	Pass          bool
	Confidence    int
	Violations    []string
	Summary       string
	CustomMessage string
}

// Outcome is the current review state of an item.
type Outcome struct {
	ItemID   string
	FileName string
	Status   Status
	Result   *Result
	Error    string
}

// Progress reports completed reviews against the run size.
type Progress struct {
	Completed int
	Total     int
}

// Update is emitted on every outcome transition.
type Update struct {
	Item     Item
	Outcome  Outcome
	Progress Progress
}

// Counts tallies outcomes. Ghost-mode completions count as passes.
type Counts struct {
	Pass       int
	Fail       int
	Pending    int
	Processing int
	Error      int
}

// Reviewer performs the review call for one file.
type Reviewer interface {
	Review(ctx context.Context, assetType string, file File) (Result, error)
}

// ReviewerFunc adapts a function to Reviewer.
type ReviewerFunc func(ctx context.Context, assetType string, file File) (Result, error)

// Review calls f.
func (f ReviewerFunc) Review(ctx context.Context, assetType string, file File) (Result, error) {
	return f(ctx, assetType, file)
}

// Options tune a Scheduler. Zero values fall back to the defaults.
type Options struct {
	MaxItems    int
	Concurrency int
	// OnUpdate is called outside the scheduler lock, from worker goroutines.
	OnUpdate func(Update)
}
