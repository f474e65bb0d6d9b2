package task

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yanizio/vitrine/internal/metrics"
)

// Defaults for Options.
const (
	DefaultWorkers         = 2
	DefaultSize            = 64
	DefaultItemConcurrency = 4
	DefaultTimeout         = 5 * time.Minute
)

// Options tunes a Queue.  Zero fields take the defaults above.
type Options struct {
	Workers         int
	Size            int
	ItemConcurrency int
	Timeout         time.Duration
}

// Queue is a bounded worker pool.  Tasks run detached from the submitter's
// context; Timeout bounds each task.
type Queue struct {
	tracker Tracker
	opts    Options
	log     *zap.Logger

	ch chan *job
	wg sync.WaitGroup

	mu     sync.Mutex
	closed bool
	done   map[string]chan struct{}

	now func() time.Time
}

type job struct {
	t Task

	mu sync.Mutex
	st Status
}

// NewQueue starts the workers.  log may be nil.
func NewQueue(tracker Tracker, opts Options, log *zap.Logger) *Queue {
	if log == nil {
		log = zap.L()
	}
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.Size <= 0 {
		opts.Size = DefaultSize
	}
	if opts.ItemConcurrency <= 0 {
		opts.ItemConcurrency = DefaultItemConcurrency
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	q := &Queue{
		tracker: tracker,
		opts:    opts,
		log:     log,
		ch:      make(chan *job, opts.Size),
		done:    make(map[string]chan struct{}),
		now:     time.Now,
	}
	for i := 0; i < opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	return q
}

// Submit records t as QUEUED and hands it to a worker.  It never blocks.
func (q *Queue) Submit(ctx context.Context, t Task) (string, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	j := &job{t: t, st: Status{
		ID:        t.ID,
		SiteID:    t.SiteID,
		State:     StateQueued,
		Items:     make([]ItemStatus, len(t.Items)),
		CreatedAt: q.now().UTC(),
	}}
	for i, it := range t.Items {
		j.st.Items[i] = ItemStatus{Name: it.Name, Kind: it.Kind, State: ItemPending}
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return "", ErrClosed
	}
	if _, dup := q.done[t.ID]; dup {
		return "", fmt.Errorf("task %s already queued", t.ID)
	}

	// The worker takes j.mu before its first write, so QUEUED is always
	// stored before RUNNING.
	j.mu.Lock()
	defer j.mu.Unlock()
	select {
	case q.ch <- j:
	default:
		return "", ErrQueueFull
	}
	q.done[t.ID] = make(chan struct{})
	metrics.QueueDepth.Inc()
	if err := q.tracker.Put(ctx, j.st.clone()); err != nil {
		q.log.Warn("task status not stored", zap.String("task_id", t.ID), zap.Error(err))
	}
	return t.ID, nil
}

// Get returns the tracked status of id.
func (q *Queue) Get(ctx context.Context, id string) (Status, error) {
	return q.tracker.Get(ctx, id)
}

// Wait blocks until task id finished or ctx ends, then returns its status.
// Tasks this queue does not run are read from the tracker as they are.
func (q *Queue) Wait(ctx context.Context, id string) (Status, error) {
	q.mu.Lock()
	ch, ok := q.done[id]
	q.mu.Unlock()
	if ok {
		select {
		case <-ch:
		case <-ctx.Done():
			return Status{}, ctx.Err()
		}
	}
	return q.tracker.Get(ctx, id)
}

// Close stops accepting tasks, lets the workers drain the buffer, and
// waits for them.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()
	q.wg.Wait()
}

func (q *Queue) worker(n int) {
	defer q.wg.Done()
	for j := range q.ch {
		metrics.QueueDepth.Dec()
		q.run(j)
	}
	q.log.Debug("task worker stopped", zap.Int("worker", n))
}

func (q *Queue) run(j *job) {
	ctx, cancel := context.WithTimeout(context.Background(), q.opts.Timeout)
	defer cancel()

	j.mu.Lock()
	j.st.State = StateRunning
	q.persist(j)
	j.mu.Unlock()

	var g errgroup.Group
	g.SetLimit(q.opts.ItemConcurrency)
	for i, it := range j.t.Items {
		g.Go(func() error {
			q.runItem(ctx, j, i, it)
			return nil
		})
	}
	_ = g.Wait()

	j.mu.Lock()
	at := q.now().UTC()
	j.st.State = StateDone
	j.st.FinishedAt = &at
	q.persist(j)
	final := j.st.clone()
	j.mu.Unlock()

	q.log.Info("task finished",
		zap.String("task_id", final.ID),
		zap.String("site_id", final.SiteID),
		zap.Int("items", len(final.Items)),
		zap.Int("failed", final.Failed()))

	if j.t.OnDone != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					q.log.Error("task completion hook panicked", zap.String("task_id", final.ID), zap.Any("panic", r))
				}
			}()
			j.t.OnDone(final)
		}()
	}

	q.mu.Lock()
	if ch, ok := q.done[final.ID]; ok {
		close(ch)
		delete(q.done, final.ID)
	}
	q.mu.Unlock()
}

func (q *Queue) runItem(ctx context.Context, j *job, i int, it Item) {
	j.mu.Lock()
	start := q.now().UTC()
	j.st.Items[i].State = ItemRunning
	j.st.Items[i].StartedAt = &start
	q.persist(j)
	j.mu.Unlock()

	err := safeRun(ctx, it)

	j.mu.Lock()
	end := q.now().UTC()
	st := &j.st.Items[i]
	st.FinishedAt = &end
	if err != nil {
		st.State = ItemFailed
		st.Error = err.Error()
	} else {
		st.State = ItemSucceeded
	}
	state := st.State
	q.persist(j)
	j.mu.Unlock()

	metrics.TaskItemsTotal.WithLabelValues(it.Kind, string(state)).Inc()
	if err != nil {
		q.log.Warn("task item failed",
			zap.String("task_id", j.t.ID),
			zap.String("item", it.Name),
			zap.Error(err))
	}
}

// persist writes the current status.  Caller holds j.mu.
func (q *Queue) persist(j *job) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.tracker.Put(ctx, j.st.clone()); err != nil {
		q.log.Warn("task status not stored", zap.String("task_id", j.t.ID), zap.Error(err))
	}
}

func safeRun(ctx context.Context, it Item) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("item %s panicked: %v", it.Name, r)
		}
	}()
	if it.Run == nil {
		return fmt.Errorf("item %s has no work", it.Name)
	}
	return it.Run(ctx)
}
