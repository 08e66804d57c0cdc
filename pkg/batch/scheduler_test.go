package batch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func imageFiles(n int) []File {
	files := make([]File, 0, n)
	for i := 0; i < n; i++ {
		files = append(files, File{Name: fmt.Sprintf("asset-%02d.png", i), ContentType: "image/png", Data: []byte{byte(i)}})
	}
	return files
}

func passingReviewer() Reviewer {
	return ReviewerFunc(func(context.Context, string, File) (Result, error) {
		return Result{Pass: true, Confidence: 90}, nil
	})
}

// gate blocks the first review until released.
type gate struct {
	started  chan string
	release  chan struct{}
	mu       sync.Mutex
	reviewed []string
}

func newGate() *gate {
	return &gate{started: make(chan string, 64), release: make(chan struct{})}
}

func (g *gate) Review(_ context.Context, _ string, file File) (Result, error) {
	g.mu.Lock()
	first := len(g.reviewed) == 0
	g.reviewed = append(g.reviewed, file.Name)
	g.mu.Unlock()

	g.started <- file.Name
	if first {
		<-g.release
	}
	return Result{Pass: true, Confidence: 80}, nil
}

func (g *gate) names() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.reviewed...)
}

func TestAddRejectsFilesBeyondCapacity(t *testing.T) {
	scheduler := New(passingReviewer(), Options{})

	added, err := scheduler.Add(imageFiles(25)...)
	require.NoError(t, err)
	require.Len(t, added, 25)

	added, err = scheduler.Add(imageFiles(6)...)
	require.ErrorIs(t, err, ErrBatchFull)
	require.Contains(t, err.Error(), "can only add 5 more files (max 30)")
	require.Len(t, added, 5)
	require.Len(t, scheduler.Items(), 30)

	added, err = scheduler.Add(imageFiles(1)...)
	require.ErrorIs(t, err, ErrBatchFull)
	require.Empty(t, added)
}

func TestAddSkipsNonImages(t *testing.T) {
	scheduler := New(passingReviewer(), Options{})

	_, err := scheduler.Add(File{Name: "notes.txt", ContentType: "text/plain", Data: []byte("hello")})
	require.ErrorIs(t, err, ErrNotImage)
	require.Empty(t, scheduler.Items())

	added, err := scheduler.Add(
		File{Name: "notes.txt", Data: []byte("plain text body")},
		File{Name: "logo.png", Data: pngSignature},
	)
	require.NoError(t, err)
	require.Len(t, added, 1)
	require.Equal(t, "logo.png", added[0].Name)
	require.NotEmpty(t, added[0].ID)
}

func TestRunReviewsEveryItemOnceWithinConcurrency(t *testing.T) {
	var (
		inFlight atomic.Int32
		peak     atomic.Int32
		mu       sync.Mutex
		seen     = map[string]int{}
	)
	reviewer := ReviewerFunc(func(_ context.Context, _ string, file File) (Result, error) {
		current := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			prev := peak.Load()
			if current <= prev || peak.CompareAndSwap(prev, current) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		seen[file.Name]++
		mu.Unlock()
		return Result{Pass: true, Confidence: 95}, nil
	})

	var (
		updateMu     sync.Mutex
		maxCompleted int
		totals       = map[int]bool{}
	)
	scheduler := New(reviewer, Options{OnUpdate: func(update Update) {
		updateMu.Lock()
		defer updateMu.Unlock()
		if update.Progress.Completed > maxCompleted {
			maxCompleted = update.Progress.Completed
		}
		totals[update.Progress.Total] = true
	}})
	_, err := scheduler.Add(imageFiles(17)...)
	require.NoError(t, err)

	counts, err := scheduler.Run(context.Background(), "logo")
	require.NoError(t, err)
	require.Equal(t, Counts{Pass: 17}, counts)
	require.LessOrEqual(t, peak.Load(), int32(DefaultConcurrency))
	require.Len(t, seen, 17)
	for name, calls := range seen {
		require.Equal(t, 1, calls, name)
	}
	require.Equal(t, 17, maxCompleted)
	require.Equal(t, map[int]bool{17: true}, totals)
	require.Equal(t, Progress{Completed: 17, Total: 17}, scheduler.Progress())
}

func TestRunIsolatesItemFailures(t *testing.T) {
	reviewer := ReviewerFunc(func(_ context.Context, _ string, file File) (Result, error) {
		switch file.Name {
		case "asset-01.png":
			return Result{}, errors.New("Asset type \"logo\" not found")
		case "asset-02.png":
			return Result{Pass: false, Confidence: 70, Violations: []string{"wrong colour"}}, nil
		case "asset-03.png":
			return Result{GhostMode: true, Message: "Submission received."}, nil
		}
		return Result{Pass: true, Confidence: 90}, nil
	})

	scheduler := New(reviewer, Options{Concurrency: 2})
	_, err := scheduler.Add(imageFiles(4)...)
	require.NoError(t, err)

	counts, err := scheduler.Run(context.Background(), "logo")
	require.NoError(t, err)
	require.Equal(t, Counts{Pass: 2, Fail: 1, Error: 1}, counts)

	outcomes := scheduler.Outcomes()
	require.Len(t, outcomes, 4)
	require.Equal(t, StatusError, outcomes[1].Status)
	require.Contains(t, outcomes[1].Error, "not found")
	require.Nil(t, outcomes[1].Result)
	require.Equal(t, []string{"wrong colour"}, outcomes[2].Result.Violations)
	require.True(t, outcomes[3].Result.GhostMode)
}

func TestRemovedPendingItemIsNeverReviewed(t *testing.T) {
	g := newGate()
	scheduler := New(g, Options{Concurrency: 1})
	added, err := scheduler.Add(imageFiles(3)...)
	require.NoError(t, err)

	done := make(chan Counts, 1)
	go func() {
		counts, _ := scheduler.Run(context.Background(), "logo")
		done <- counts
	}()

	require.Equal(t, "asset-00.png", <-g.started)
	require.True(t, scheduler.Remove(added[1].ID))
	require.False(t, scheduler.Remove(added[1].ID))
	close(g.release)

	counts := <-done
	require.Equal(t, []string{"asset-00.png", "asset-02.png"}, g.names())
	require.Equal(t, Counts{Pass: 2}, counts)
	require.Equal(t, Progress{Completed: 2, Total: 2}, scheduler.Progress())
}

func TestRemovedInFlightResultIsDiscarded(t *testing.T) {
	g := newGate()
	var updates atomic.Int32
	scheduler := New(g, Options{Concurrency: 1, OnUpdate: func(update Update) {
		if update.Outcome.Status == StatusComplete && update.Item.Name == "asset-00.png" {
			updates.Add(1)
		}
	}})
	added, err := scheduler.Add(imageFiles(2)...)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = scheduler.Run(context.Background(), "logo")
	}()

	<-g.started
	require.True(t, scheduler.Remove(added[0].ID))
	close(g.release)
	<-done

	outcomes := scheduler.Outcomes()
	require.Len(t, outcomes, 1)
	require.Equal(t, added[1].ID, outcomes[0].ItemID)
	require.Equal(t, StatusComplete, outcomes[0].Status)
	require.Zero(t, updates.Load())
	require.Equal(t, Progress{Completed: 1, Total: 1}, scheduler.Progress())
}

func TestClearStopsDequeuing(t *testing.T) {
	g := newGate()
	scheduler := New(g, Options{Concurrency: 1})
	_, err := scheduler.Add(imageFiles(5)...)
	require.NoError(t, err)

	done := make(chan Counts, 1)
	go func() {
		counts, _ := scheduler.Run(context.Background(), "logo")
		done <- counts
	}()

	<-g.started
	scheduler.Clear()
	close(g.release)

	require.Equal(t, Counts{}, <-done)
	require.Equal(t, []string{"asset-00.png"}, g.names())
	require.Empty(t, scheduler.Items())
	require.Empty(t, scheduler.Outcomes())
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	reviewer := ReviewerFunc(func(context.Context, string, File) (Result, error) {
		calls.Add(1)
		cancel()
		return Result{Pass: true}, nil
	})

	scheduler := New(reviewer, Options{Concurrency: 1})
	_, err := scheduler.Add(imageFiles(4)...)
	require.NoError(t, err)

	counts, err := scheduler.Run(ctx, "logo")
	require.ErrorIs(t, err, context.Canceled)
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, Counts{Pass: 1, Pending: 3}, counts)
}

func TestRunRejectsConcurrentRuns(t *testing.T) {
	g := newGate()
	scheduler := New(g, Options{Concurrency: 1})
	_, err := scheduler.Add(imageFiles(1)...)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = scheduler.Run(context.Background(), "logo")
	}()
	<-g.started

	_, err = scheduler.Run(context.Background(), "logo")
	require.ErrorIs(t, err, ErrRunning)

	close(g.release)
	<-done
}

func TestRunResetsPreviousOutcomes(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	reviewer := ReviewerFunc(func(context.Context, string, File) (Result, error) {
		if fail.Load() {
			return Result{}, errors.New("boom")
		}
		return Result{Pass: true}, nil
	})

	scheduler := New(reviewer, Options{})
	_, err := scheduler.Add(imageFiles(2)...)
	require.NoError(t, err)

	counts, err := scheduler.Run(context.Background(), "banner")
	require.NoError(t, err)
	require.Equal(t, Counts{Error: 2}, counts)

	fail.Store(false)
	counts, err = scheduler.Run(context.Background(), "banner")
	require.NoError(t, err)
	require.Equal(t, Counts{Pass: 2}, counts)
}

func TestRemovingItemAddedMidRunKeepsProgressTotal(t *testing.T) {
	g := newGate()
	scheduler := New(g, Options{Concurrency: 1})
	_, err := scheduler.Add(imageFiles(2)...)
	require.NoError(t, err)

	done := make(chan Counts, 1)
	go func() {
		counts, _ := scheduler.Run(context.Background(), "logo")
		done <- counts
	}()

	require.Equal(t, "asset-00.png", <-g.started)
	late, err := scheduler.Add(File{Name: "late.png", ContentType: "image/png", Data: []byte("late")})
	require.NoError(t, err)
	require.Len(t, late, 1)
	require.True(t, scheduler.Remove(late[0].ID))
	require.Equal(t, Progress{Completed: 0, Total: 2}, scheduler.Progress())

	close(g.release)

	require.Equal(t, Counts{Pass: 2}, <-done)
	require.Equal(t, Progress{Completed: 2, Total: 2}, scheduler.Progress())
	require.Equal(t, []string{"asset-00.png", "asset-01.png"}, g.names())
}

func TestItemAddedMidRunWaitsForNextRun(t *testing.T) {
	g := newGate()
	scheduler := New(g, Options{Concurrency: 1})
	_, err := scheduler.Add(imageFiles(1)...)
	require.NoError(t, err)

	done := make(chan Counts, 1)
	go func() {
		counts, _ := scheduler.Run(context.Background(), "logo")
		done <- counts
	}()

	<-g.started
	_, err = scheduler.Add(File{Name: "late.png", ContentType: "image/png", Data: []byte("late")})
	require.NoError(t, err)
	close(g.release)

	require.Equal(t, Counts{Pass: 1, Pending: 1}, <-done)
	require.Equal(t, Progress{Completed: 1, Total: 1}, scheduler.Progress())

	counts, err := scheduler.Run(context.Background(), "logo")
	require.NoError(t, err)
	require.Equal(t, Counts{Pass: 2}, counts)
	require.Equal(t, Progress{Completed: 2, Total: 2}, scheduler.Progress())
}
