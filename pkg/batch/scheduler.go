package batch

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type entry struct {
	item    Item
	file    File
	outcome Outcome
	// queued marks membership of the active run's queue and total.
	queued bool
}

// Scheduler reviews a bounded set of files with a fixed number of workers
// pulling from a shared FIFO queue.
type Scheduler struct {
	reviewer Reviewer
	opts     Options

	mu      sync.Mutex
	order   []*entry
	byID    map[string]*entry
	queue   []*entry
	running bool
	total   int

	completed atomic.Int64
}

// New builds a scheduler around reviewer.
func New(reviewer Reviewer, opts Options) *Scheduler {
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxItems
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	return &Scheduler{
		reviewer: reviewer,
		opts:     opts,
		byID:     make(map[string]*entry),
	}
}

// Add accepts image files up to the remaining capacity, in order. Non-image
// files are skipped. When files had to be dropped for capacity the accepted
// prefix is returned together with ErrBatchFull.
func (s *Scheduler) Add(files ...File) ([]Item, error) {
	images := make([]File, 0, len(files))
	for _, file := range files {
		if file.ContentType == "" {
			file.ContentType = mimetype.Detect(file.Data).String()
		}
		if strings.HasPrefix(strings.ToLower(file.ContentType), "image/") {
			images = append(images, file)
		}
	}
	if len(images) == 0 {
		return nil, ErrNotImage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	remaining := s.opts.MaxItems - len(s.order)
	if remaining < 0 {
		remaining = 0
	}

	var err error
	if len(images) > remaining {
		err = fmt.Errorf("%w: can only add %d more files (max %d)", ErrBatchFull, remaining, s.opts.MaxItems)
		images = images[:remaining]
	}

	added := make([]Item, 0, len(images))
	for _, file := range images {
		e := &entry{
			item: Item{ID: uuid.NewString(), Name: file.Name, Size: len(file.Data)},
			file: file,
		}
		e.outcome = Outcome{ItemID: e.item.ID, FileName: file.Name, Status: StatusPending}
		s.order = append(s.order, e)
		s.byID[e.item.ID] = e
		added = append(added, e.item)
	}

	return added, err
}

// Remove drops an item. A queued item is never handed to a worker; an
// in-flight item's result is discarded when it arrives.
func (s *Scheduler) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.byID[id]
	if !ok {
		return false
	}
	delete(s.byID, id)
	for i, candidate := range s.order {
		if candidate == e {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	if s.running && e.queued && (e.outcome.Status == StatusPending || e.outcome.Status == StatusProcessing) {
		s.total--
	}
	return true
}

// Clear drops every item and stops further dequeuing. In-flight reviews
// finish but their results are discarded.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = nil
	s.byID = make(map[string]*entry)
	s.queue = nil
	s.total = 0
	s.completed.Store(0)
}

// Run reviews every item currently in the batch against assetType. Per-item
// failures are recorded as error outcomes and never stop other workers. A
// cancelled context stops further dequeuing and is returned.
func (s *Scheduler) Run(ctx context.Context, assetType string) (Counts, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return Counts{}, ErrRunning
	}
	s.running = true
	s.queue = make([]*entry, 0, len(s.order))
	for _, e := range s.order {
		e.outcome = Outcome{ItemID: e.item.ID, FileName: e.item.Name, Status: StatusPending}
		e.queued = true
		s.queue = append(s.queue, e)
	}
	s.total = len(s.queue)
	s.completed.Store(0)
	workers := min(s.opts.Concurrency, len(s.queue))
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.queue = nil
		for _, e := range s.order {
			e.queued = false
		}
		s.mu.Unlock()
	}()

	group, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		group.Go(func() error {
			return s.work(groupCtx, assetType)
		})
	}
	err := group.Wait()

	return s.Counts(), err
}

func (s *Scheduler) work(ctx context.Context, assetType string) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		e, update, ok := s.pop()
		if !ok {
			return nil
		}
		s.emit(update)

		result, err := s.reviewer.Review(ctx, assetType, e.file)

		outcome := Outcome{ItemID: e.item.ID, FileName: e.item.Name, Status: StatusComplete}
		if err != nil {
			outcome.Status = StatusError
			outcome.Error = err.Error()
		} else {
			outcome.Result = &result
		}

		if update, ok := s.finish(e, outcome); ok {
			s.emit(update)
		}
	}
}

// pop takes the next item that is still part of the batch and marks it processing.
func (s *Scheduler) pop() (*entry, Update, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for len(s.queue) > 0 {
		e := s.queue[0]
		s.queue = s.queue[1:]
		if s.byID[e.item.ID] != e {
			continue
		}
		e.outcome.Status = StatusProcessing
		return e, s.updateLocked(e), true
	}
	return nil, Update{}, false
}

// finish applies a terminal outcome unless the item was removed meanwhile.
func (s *Scheduler) finish(e *entry, outcome Outcome) (Update, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.byID[e.item.ID] != e {
		return Update{}, false
	}
	e.outcome = outcome
	s.completed.Add(1)
	return s.updateLocked(e), true
}

func (s *Scheduler) updateLocked(e *entry) Update {
	return Update{
		Item:     e.item,
		Outcome:  cloneOutcome(e.outcome),
		Progress: Progress{Completed: int(s.completed.Load()), Total: s.total},
	}
}

func (s *Scheduler) emit(update Update) {
	if s.opts.OnUpdate != nil {
		s.opts.OnUpdate(update)
	}
}

// Items returns the accepted items in insertion order.
func (s *Scheduler) Items() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]Item, 0, len(s.order))
	for _, e := range s.order {
		items = append(items, e.item)
	}
	return items
}

// Outcomes returns a snapshot of every item's outcome in insertion order.
func (s *Scheduler) Outcomes() []Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	outcomes := make([]Outcome, 0, len(s.order))
	for _, e := range s.order {
		outcomes = append(outcomes, cloneOutcome(e.outcome))
	}
	return outcomes
}

// Progress returns completed reviews against the current run size.
func (s *Scheduler) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Progress{Completed: int(s.completed.Load()), Total: s.total}
}

// Counts tallies the outcomes of the items still in the batch.
func (s *Scheduler) Counts() Counts {
	s.mu.Lock()
	defer s.mu.Unlock()

	var counts Counts
	for _, e := range s.order {
		switch e.outcome.Status {
		case StatusComplete:
			if e.outcome.Result != nil && (e.outcome.Result.GhostMode || e.outcome.Result.Pass) {
				counts.Pass++
			} else {
				counts.Fail++
			}
		case StatusError:
			counts.Error++
		case StatusProcessing:
			counts.Processing++
		default:
			counts.Pending++
		}
	}
	return counts
}

func cloneOutcome(outcome Outcome) Outcome {
	if outcome.Result != nil {
		result := *outcome.Result
		result.Violations = append([]string(nil), outcome.Result.Violations...)
		outcome.Result = &result
	}
	return outcome
}
