// Package parallel runs independent evaluations concurrently. Each task must
// only read shared state; a *trs.TRS may be shared by tasks as long as no one
// mutates it while they run.
package parallel

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/gitrdm/gotrs/internal/parallel")

// WorkerPool manages a fixed set of goroutines fed from a buffered queue.
// Submit blocks once the queue is full. Submit and Shutdown may race: a task
// Submit accepted always runs before Shutdown returns.
type WorkerPool struct {
	maxWorkers   int
	taskChan     chan func()
	workerWg     sync.WaitGroup
	shutdownChan chan struct{}
	once         sync.Once

	// mu is held shared by Submit while it may send on taskChan and
	// exclusively by Shutdown before it closes taskChan.
	mu sync.RWMutex
}

// NewWorkerPool creates a new worker pool with the specified number of workers.
// If maxWorkers is 0 or negative, it defaults to the number of CPU cores.
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}

	pool := &WorkerPool{
		maxWorkers:   maxWorkers,
		taskChan:     make(chan func(), maxWorkers*2),
		shutdownChan: make(chan struct{}),
	}

	for i := 0; i < maxWorkers; i++ {
		pool.workerWg.Add(1)
		go pool.worker()
	}

	return pool
}

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int { return wp.maxWorkers }

func (wp *WorkerPool) worker() {
	defer wp.workerWg.Done()

	for task := range wp.taskChan {
		if task != nil {
			task()
		}
	}
}

// Submit queues a task, blocking while the queue is full.
func (wp *WorkerPool) Submit(ctx context.Context, task func()) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	select {
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	default:
	}
	select {
	case wp.taskChan <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-wp.shutdownChan:
		return ErrPoolShutdown
	}
}

// Shutdown stops accepting tasks and waits until every queued task has run.
func (wp *WorkerPool) Shutdown() {
	wp.once.Do(func() {
		close(wp.shutdownChan)
		// Wait out Submit calls already past their shutdown check.
		wp.mu.Lock()
		close(wp.taskChan)
		wp.mu.Unlock()
		wp.workerWg.Wait()
	})
}

// ErrPoolShutdown is returned when trying to submit tasks to a shutdown pool.
var ErrPoolShutdown = errors.New("worker pool has been shutdown")

// Map applies fn to every item on the pool and returns the results in input
// order. If submission fails, Map waits for the tasks already queued and
// returns the error.
func Map[T, R any](ctx context.Context, wp *WorkerPool, items []T, fn func(context.Context, T) R) ([]R, error) {
	ctx, span := tracer.Start(ctx, "parallel.Map",
		trace.WithAttributes(
			attribute.Int("parallel.items", len(items)),
			attribute.Int("parallel.workers", wp.maxWorkers),
		),
	)
	defer span.End()

	out := make([]R, len(items))
	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		err := wp.Submit(ctx, func() {
			defer wg.Done()
			out[i] = fn(ctx, item)
		})
		if err != nil {
			wg.Done()
			wg.Wait()
			span.RecordError(err)
			span.SetStatus(codes.Error, "submit failed")
			return nil, err
		}
	}
	wg.Wait()
	span.SetStatus(codes.Ok, "")
	return out, nil
}
