package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrUnknownJobType is returned for jobs without a registered handler.
var ErrUnknownJobType = errors.New("unknown job type")

// maxBackoffFactor caps the retry delay at RetryDelay << maxBackoffFactor.
const maxBackoffFactor = 4

// Job is one unit of background maintenance work.
type Job struct {
	ID       string
	Type     string
	Payload  interface{}
	Attempt  int
	Enqueued time.Time
}

// NewJob builds a job with a generated id.
func NewJob(jobType string, payload interface{}) Job {
	return Job{ID: uuid.NewString(), Type: jobType, Payload: payload}
}

// Handler processes a job. A returned error schedules a retry.
type Handler func(context.Context, Job) error

type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	// RetryDelay is the first retry delay; later attempts double it.
	RetryDelay time.Duration
	Logger     *zap.Logger
}

// Queue dispatches jobs by type to a fixed pool of goroutines. Scheduled
// jobs are coalesced: a tick is skipped while a job of the same type is
// still pending.
type Queue struct {
	name       string
	workers    int
	maxRetries int
	retryDelay time.Duration
	logger     *zap.Logger

	jobs chan Job

	mu       sync.Mutex
	handlers map[string]Handler
	pending  map[string]int
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	wg       sync.WaitGroup
}

func NewQueue(name string, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Queue{
		name:       name,
		workers:    cfg.Workers,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		logger:     cfg.Logger.With(zap.String("queue", name)),
		jobs:       make(chan Job, cfg.BufferSize),
		handlers:   make(map[string]Handler),
		pending:    make(map[string]int),
	}
}

// Handle registers the handler for jobType, replacing any previous one.
func (q *Queue) Handle(jobType string, handler Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[jobType] = handler
}

// Start launches the workers. Calls after the first are no-ops.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i + 1)
	}
	q.started = true
	q.logger.Info("queue started", zap.Int("workers", q.workers))
}

// Stop cancels in-flight work and waits for workers and schedules to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.logger.Info("queue stopped")
}

// Enqueue hands the job to a worker, blocking while the buffer is full.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return fmt.Errorf("queue %s not started", q.name)
	}
	ctx := q.ctx
	q.pending[job.Type]++
	q.mu.Unlock()

	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		q.done(job.Type)
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	}
}

// Pending reports queued, running or retrying jobs of jobType.
func (q *Queue) Pending(jobType string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending[jobType]
}

// Every enqueues a job of jobType now and on each tick until the queue stops.
func (q *Queue) Every(interval time.Duration, jobType string, payload func() interface{}) {
	q.mu.Lock()
	ctx := q.ctx
	started := q.started
	q.mu.Unlock()
	if !started || interval <= 0 {
		return
	}

	tick := func() {
		if n := q.Pending(jobType); n > 0 {
			q.logger.Debug("scheduled job skipped, previous run pending", zap.String("type", jobType), zap.Int("pending", n))
			return
		}
		var p interface{}
		if payload != nil {
			p = payload()
		}
		if err := q.Enqueue(NewJob(jobType, p)); err != nil {
			q.logger.Warn("scheduled enqueue failed", zap.String("type", jobType), zap.Error(err))
		}
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		tick()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				tick()
			}
		}
	}()
}

func (q *Queue) worker(workerID int) {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			q.run(workerID, job)
		}
	}
}

func (q *Queue) run(workerID int, job Job) {
	q.mu.Lock()
	handler, ok := q.handlers[job.Type]
	q.mu.Unlock()
	if !ok {
		q.logger.Error("job dropped", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Error(ErrUnknownJobType))
		q.done(job.Type)
		return
	}

	started := time.Now()
	if err := handler(q.ctx, job); err != nil {
		q.retry(job, err)
		return
	}
	q.done(job.Type)
	q.logger.Debug("job done",
		zap.Int("worker", workerID),
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Duration("took", time.Since(started)))
}

func (q *Queue) retry(job Job, err error) {
	job.Attempt++
	if job.Attempt > q.maxRetries || q.ctx.Err() != nil {
		q.logger.Error("job abandoned", zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempts", job.Attempt), zap.Error(err))
		q.done(job.Type)
		return
	}
	delay := q.backoff(job.Attempt)
	q.logger.Warn("job failed, retrying",
		zap.String("job_id", job.ID),
		zap.String("type", job.Type),
		zap.Int("attempt", job.Attempt),
		zap.Duration("delay", delay),
		zap.Error(err))

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
			q.done(job.Type)
		case <-timer.C:
			select {
			case q.jobs <- job:
			case <-q.ctx.Done():
				q.done(job.Type)
			}
		}
	}()
}

func (q *Queue) backoff(attempt int) time.Duration {
	shift := attempt - 1
	if shift > maxBackoffFactor {
		shift = maxBackoffFactor
	}
	return q.retryDelay << uint(shift)
}

func (q *Queue) done(jobType string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pending[jobType] <= 1 {
		delete(q.pending, jobType)
		return
	}
	q.pending[jobType]--
}
