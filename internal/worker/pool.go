// Package worker runs blocking tasks on a fixed set of goroutines so that a
// slow dependency can tie up at most Workers goroutines, however many callers
// give up on it.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

var (
	ErrClosed       = errors.New("worker pool closed")
	ErrTaskPanicked = errors.New("worker task panicked")
)

// Task is a unit of blocking work. It should honour ctx cancellation.
type Task func(ctx context.Context) error

type Options struct {
	Workers   int // number of goroutines running tasks
	QueueSize int // tasks that may wait for a free worker
	Logger    *slog.Logger
}

type Pool struct {
	jobs     chan job
	done     chan struct{}
	wg       sync.WaitGroup
	inFlight atomic.Int64
	logger   *slog.Logger

	// mu orders Submit against Close: once closed is set no Submit can start,
	// and pending tracks the ones already sending so Close can drain after them.
	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

type job struct {
	ctx    context.Context
	task   Task
	result chan error
}

// New starts the workers. Workers below one is treated as one.
func New(opt Options) *Pool {
	if opt.Workers < 1 {
		opt.Workers = 1
	}
	if opt.QueueSize < 0 {
		opt.QueueSize = 0
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}

	p := &Pool{
		jobs:   make(chan job, opt.QueueSize),
		done:   make(chan struct{}),
		logger: opt.Logger,
	}

	p.wg.Add(opt.Workers)
	for i := 0; i < opt.Workers; i++ {
		go p.loop()
	}
	return p
}

// Submit queues task and returns a channel that receives its result exactly
// once. It waits for queue space until ctx ends. The channel is buffered, so a
// caller that stops listening never blocks the worker.
func (p *Pool) Submit(ctx context.Context, task Task) (<-chan error, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}
	p.pending.Add(1)
	p.mu.Unlock()
	defer p.pending.Done()

	j := job{ctx: ctx, task: task, result: make(chan error, 1)}
	select {
	case p.jobs <- j:
		return j.result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.done:
		return nil, ErrClosed
	}
}

// InFlight is the number of tasks currently running.
func (p *Pool) InFlight() int {
	return int(p.inFlight.Load())
}

// Queued is the number of tasks waiting for a worker.
func (p *Pool) Queued() int {
	return len(p.jobs)
}

// Close stops accepting work, fails queued tasks with ErrClosed and waits for
// running tasks until ctx ends. Every task accepted by Submit gets a result,
// including one queued while Close ran.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.done)
	}
	p.mu.Unlock()

	stopped := make(chan struct{})
	go func() {
		p.wg.Wait()
		// A Submit racing Close may have queued after the workers drained.
		p.pending.Wait()
		p.drain()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for %d running tasks: %w", p.InFlight(), ctx.Err())
	}
}

func (p *Pool) loop() {
	defer p.wg.Done()
	for {
		// Check done first so queued work is failed, not run, after Close.
		select {
		case <-p.done:
			p.drain()
			return
		default:
		}

		select {
		case <-p.done:
			p.drain()
			return
		case j := <-p.jobs:
			p.run(j)
		}
	}
}

func (p *Pool) drain() {
	for {
		select {
		case j := <-p.jobs:
			j.result <- ErrClosed
		default:
			return
		}
	}
}

func (p *Pool) run(j job) {
	// The submitter already gave up; don't spend a connection on it.
	if err := j.ctx.Err(); err != nil {
		j.result <- err
		return
	}

	p.inFlight.Add(1)
	defer p.inFlight.Add(-1)

	j.result <- p.safeRun(j)
}

func (p *Pool) safeRun(j job) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.ErrorContext(j.ctx, "worker task panicked",
				"panic", rec,
				"stack", string(debug.Stack()),
			)
			err = fmt.Errorf("%w: %v", ErrTaskPanicked, rec)
		}
	}()
	return j.task(j.ctx)
}
