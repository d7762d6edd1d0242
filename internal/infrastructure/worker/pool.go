// Package worker runs document tasks on a fixed set of goroutines fed by a
// bounded queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrPoolNotRunning is returned when submitting to a pool that is not started
	ErrPoolNotRunning = errors.New("worker pool is not running")
	// ErrTaskPanicked wraps the value recovered from a panicking task
	ErrTaskPanicked = errors.New("task panicked")
)

// Task is a unit of work executed by the pool
type Task func(ctx context.Context) error

// Config holds pool configuration
type Config struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

// DefaultConfig returns default pool configuration
func DefaultConfig() Config {
	return Config{
		Workers:     4,
		QueueSize:   100,
		TaskTimeout: 3 * time.Minute,
	}
}

// Stats is a snapshot of pool counters
type Stats struct {
	Workers   int    `json:"workers"`
	QueueSize int    `json:"queueSize"`
	Queued    int    `json:"queued"`
	Active    int64  `json:"active"`
	Submitted uint64 `json:"submitted"`
	Completed uint64 `json:"completed"`
	Failed    uint64 `json:"failed"`
	Running   bool   `json:"running"`
}

// Handle tracks one submitted task
type Handle struct {
	done chan struct{}
	err  error
}

// Done is closed when the task has finished
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the task error once Done is closed, nil before
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until the task finishes or ctx is done
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Handle) finish(err error) {
	h.err = err
	close(h.done)
}

type job struct {
	ctx    context.Context
	task   Task
	handle *Handle
}

// Pool executes tasks with bounded concurrency
type Pool struct {
	config Config
	logger *zap.Logger

	jobs    chan *job
	quit    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopMu  sync.Mutex
	running bool

	active    atomic.Int64
	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
}

// NewPool creates a stopped pool. Non-positive sizes fall back to the defaults.
func NewPool(config Config, logger *zap.Logger) *Pool {
	defaults := DefaultConfig()
	if config.Workers <= 0 {
		config.Workers = defaults.Workers
	}
	if config.QueueSize < 0 {
		config.QueueSize = defaults.QueueSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		config: config,
		logger: logger,
	}
}

// Start launches the workers. Tasks are cancelled when ctx is done.
func (p *Pool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return nil
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.jobs = make(chan *job, p.config.QueueSize)
	p.quit = make(chan struct{})
	p.running = true

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}

	p.logger.Info("Worker pool started",
		zap.Int("workers", p.config.Workers),
		zap.Int("queue_size", p.config.QueueSize),
		zap.Duration("task_timeout", p.config.TaskTimeout),
	)
	return nil
}

// Stop rejects new submissions and waits for queued and running tasks to
// finish. When ctx expires first, remaining tasks are cancelled.
func (p *Pool) Stop(ctx context.Context) error {
	p.stopMu.Lock()
	defer p.stopMu.Unlock()

	p.mu.RLock()
	if !p.running {
		p.mu.RUnlock()
		return nil
	}
	quit := p.quit
	p.mu.RUnlock()

	// Unblock submitters waiting on a full queue before taking the write lock
	close(quit)

	p.mu.Lock()
	p.running = false
	close(p.jobs)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("Worker pool stopped gracefully")
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		p.logger.Warn("Worker pool stop timed out, in-flight tasks cancelled")
		return ctx.Err()
	}
}

// Submit enqueues task. It blocks while the queue is full until the task is
// accepted, ctx is done, or the pool stops. Values of ctx are visible to the
// task but its cancellation is not.
func (p *Pool) Submit(ctx context.Context, task Task) (*Handle, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if !p.running {
		return nil, ErrPoolNotRunning
	}

	j := &job{
		ctx:    context.WithoutCancel(ctx),
		task:   task,
		handle: &Handle{done: make(chan struct{})},
	}
	select {
	case p.jobs <- j:
		p.submitted.Add(1)
		return j.handle, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.quit:
		return nil, ErrPoolNotRunning
	}
}

// Stats returns a snapshot of the pool counters
func (p *Pool) Stats() Stats {
	p.mu.RLock()
	running := p.running
	queued := len(p.jobs)
	p.mu.RUnlock()

	return Stats{
		Workers:   p.config.Workers,
		QueueSize: p.config.QueueSize,
		Queued:    queued,
		Active:    p.active.Load(),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
		Failed:    p.failed.Load(),
		Running:   running,
	}
}

func (p *Pool) worker(workerID int) {
	defer p.wg.Done()

	p.logger.Debug("Worker started", zap.Int("worker_id", workerID))
	for j := range p.jobs {
		p.process(j, workerID)
	}
	p.logger.Debug("Worker stopping", zap.Int("worker_id", workerID))
}

func (p *Pool) process(j *job, workerID int) {
	p.active.Add(1)
	defer p.active.Add(-1)

	ctx, cancel := context.WithCancel(j.ctx)
	defer cancel()
	stop := context.AfterFunc(p.ctx, cancel)
	defer stop()

	if p.config.TaskTimeout > 0 {
		var timeoutCancel context.CancelFunc
		ctx, timeoutCancel = context.WithTimeout(ctx, p.config.TaskTimeout)
		defer timeoutCancel()
	}

	err := p.execute(ctx, j.task, workerID)
	if err != nil {
		p.failed.Add(1)
	} else {
		p.completed.Add(1)
	}
	j.handle.finish(err)
}

func (p *Pool) execute(ctx context.Context, task Task, workerID int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Task panicked",
				zap.Int("worker_id", workerID),
				zap.Any("panic", r),
				zap.Stack("stack"),
			)
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, r)
		}
	}()
	return task(ctx)
}
