// Package worker evaluates batch estimation jobs pulled from a queue.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/xsit/internal/adapters/mq/queue"
	"github.com/okian/xsit/internal/domain/interference"
	"github.com/okian/xsit/internal/domain/scene"
	"github.com/okian/xsit/pkg/logger"
	"github.com/okian/xsit/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Estimator computes xSIT for one scene.
type Estimator interface {
	Estimate(ctx context.Context, s scene.Scene, kind interference.Kind) (interference.Result, error)
}

// EstimatorFunc adapts a function to Estimator.
type EstimatorFunc func(ctx context.Context, s scene.Scene, kind interference.Kind) (interference.Result, error)

// Estimate implements Estimator.
func (f EstimatorFunc) Estimate(ctx context.Context, s scene.Scene, kind interference.Kind) (interference.Result, error) {
	return f(ctx, s, kind)
}

// Queue defines how workers receive jobs.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Job
}

// Worker processes jobs and answers on each job's reply channel.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

type activity struct {
	busy atomic.Int64
}

func (a *activity) begin() {
	if a != nil {
		metrics.UpdateWorkerActiveCount(int(a.busy.Add(1)))
	}
}

func (a *activity) end() {
	if a != nil {
		metrics.UpdateWorkerActiveCount(int(a.busy.Add(-1)))
	}
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue     Queue
	estimator Estimator
	name      string
	activity  *activity

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, estimator Estimator, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     q,
		estimator: estimator,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop. It returns when ctx ends, when Shutdown is
// called, or once a closed queue has been drained. Shutdown leaves pending
// jobs in the queue for other workers; only closing the queue, as
// Pool.Shutdown does, makes Run answer every remaining job before returning.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	jobs := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			w.process(ctx, job)
		}
	}
}

// Shutdown stops the worker after its current job without draining the queue.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// process estimates a single job and sends exactly one Outcome.
func (w *InMemoryWorker) process(ctx context.Context, job queue.Job) { //nolint:gocritic // hugeParam: Job is passed by value for channel semantics
	jobCtx := job.Ctx
	if jobCtx == nil {
		jobCtx = ctx
	}

	out := queue.Outcome{Index: job.Index}
	if err := jobCtx.Err(); err != nil {
		// Submitter already gave up.
		out.Err = err
		job.Reply <- out
		return
	}

	w.activity.begin()
	start := time.Now()
	out.Result, out.Err = w.estimator.Estimate(jobCtx, job.Scene, job.Kind)
	metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Microseconds()) / 1000)
	w.activity.end()

	if out.Err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "estimate")
		w.logger.Debug(ctx, "estimation failed",
			logger.Int("index", job.Index),
			logger.String("estimator", job.Kind.String()),
			logger.Error(out.Err),
		)
	}
	job.Reply <- out
}

// Pool manages multiple workers.
type Pool struct {
	workers  []*InMemoryWorker
	queue    Queue
	activity *activity

	logger logger.Logger
}

// NewPool creates a new worker pool. A non-positive count uses one worker per CPU.
func NewPool(workerCount int, q Queue, estimator Estimator) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers:  make([]*InMemoryWorker, workerCount),
		queue:    q,
		activity: &activity{},
		logger:   logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			q,
			estimator,
			WithName("worker-"+strconv.Itoa(i)),
			withActivity(pool.activity),
		)
	}

	metrics.UpdateWorkerCount(workerCount)
	metrics.UpdateWorkerActiveCount(0)

	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Busy returns the number of workers currently estimating.
func (p *Pool) Busy() int {
	return int(p.activity.busy.Load())
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	p.logger.Info(ctx, "worker pool started", logger.Int("workers", len(p.workers)))
}

// Shutdown closes the queue and waits for workers to drain it.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
			return fmt.Errorf("worker pool shutdown: %w", shutdownCtx.Err())
		}
	}

	return nil
}
