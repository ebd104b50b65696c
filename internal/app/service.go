// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	jobqueue "github.com/okian/xsit/internal/adapters/mq/queue"
	workerpool "github.com/okian/xsit/internal/adapters/mq/worker"
	"github.com/okian/xsit/internal/domain/interference"
	"github.com/okian/xsit/internal/domain/scene"
	"github.com/okian/xsit/pkg/logger"
	"github.com/okian/xsit/pkg/metrics"
)

const defaultQueueSize = 1024

// counters backs /stats. Estimations are counted per estimator kind.
type counters struct {
	estimations [3]atomic.Int64
	degenerate  atomic.Int64
	failures    atomic.Int64
	batches     atomic.Int64
}

// Service evaluates scenes. Single estimations run inline on the caller's
// goroutine; batches are fanned out to a worker pool.
type Service struct {
	mu sync.RWMutex

	// Core components
	queue *jobqueue.InMemoryQueue
	pool  *workerpool.Pool

	// Configuration
	workerCount   int
	queueSize     int
	defaultKind   interference.Kind
	estimatorOpts interference.Options

	// State
	started   bool
	startedAt time.Time
	stats     counters

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of batch workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum number of pending batch jobs.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithDefaultEstimator sets the estimator used when a request names none.
func WithDefaultEstimator(kind interference.Kind) Option {
	return func(s *Service) {
		s.defaultKind = kind
	}
}

// WithEstimatorOptions sets tolerance and raster density for every estimation.
func WithEstimatorOptions(opts interference.Options) Option {
	return func(s *Service) {
		s.estimatorOpts = opts
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		defaultKind: interference.Analytic,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	return s
}

// Start creates the batch queue and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	s.logger.Info(ctx, "starting xsit service...")

	s.queue = jobqueue.NewInMemoryQueue(jobqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, workerpool.EstimatorFunc(s.Compute))
	// Workers outlive the start context; Stop drains them.
	s.pool.Start(context.WithoutCancel(ctx))

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "xsit service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("defaultEstimator", s.defaultKind.String()),
	)

	return nil
}

// Stop drains the batch queue and stops the worker pool.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping xsit service...")

	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	}

	s.started = false
	s.logger.Info(ctx, "xsit service stopped")
}

// DefaultKind returns the estimator used when a request names none.
func (s *Service) DefaultKind() interference.Kind {
	return s.defaultKind
}

// Compute validates the scene and estimates its xSIT with the given estimator.
func (s *Service) Compute(ctx context.Context, sc scene.Scene, kind interference.Kind) (interference.Result, error) {
	start := time.Now()
	res, err := interference.Compute(ctx, sc, kind, s.estimatorOpts)
	elapsed := time.Since(start)
	if err != nil {
		s.stats.failures.Add(1)
		return interference.Result{}, err
	}

	if int(kind) < len(s.stats.estimations) {
		s.stats.estimations[kind].Add(1)
	}
	if res.Degenerate {
		s.stats.degenerate.Add(1)
	}
	metrics.RecordEstimation(kind.String(), float64(elapsed.Microseconds())/1000, res.XSIT, res.Degenerate)

	s.logger.Debug(ctx, "estimated scene",
		logger.String("estimator", kind.String()),
		logger.Float64("xsit", res.XSIT),
		logger.Int("outfield", len(sc.Outfield)),
		logger.Bool("degenerate", res.Degenerate),
		logger.Duration("took", elapsed),
	)
	return res, nil
}

// ComputeBatch evaluates scenes on the worker pool. Items are returned in
// submission order and per-scene failures are reported in the matching item.
// The returned error covers the batch as a whole.
func (s *Service) ComputeBatch(ctx context.Context, scenes []scene.Scene, kind interference.Kind) ([]interference.BatchItem, error) {
	s.mu.RLock()
	started, q := s.started, s.queue
	s.mu.RUnlock()

	if !started {
		return nil, ErrNotStarted
	}

	s.stats.batches.Add(1)
	metrics.RecordBatchSize(len(scenes))

	items := make([]interference.BatchItem, len(scenes))
	if len(scenes) == 0 {
		return items, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so that workers never block on a departed submitter.
	reply := make(chan jobqueue.Outcome, len(scenes))
	for i := range scenes {
		err := q.Enqueue(ctx, jobqueue.Job{Ctx: ctx, Index: i, Scene: scenes[i], Kind: kind, Reply: reply})
		switch {
		case err == nil:
		case errors.Is(err, jobqueue.ErrFull), errors.Is(err, jobqueue.ErrClosed):
			s.logger.Warn(ctx, "batch rejected",
				logger.Int("size", len(scenes)),
				logger.Int("accepted", i),
				logger.Error(err),
			)
			return nil, fmt.Errorf("%w: %v", ErrBackpressure, err)
		default:
			return nil, err
		}
	}

	for pending := len(scenes); pending > 0; pending-- {
		select {
		case out := <-reply:
			items[out.Index] = interference.BatchItem{Result: out.Result, Err: out.Err}
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return items, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byKind := make(map[string]int64, len(interference.Kinds))
	var total int64
	for _, k := range interference.Kinds {
		n := s.stats.estimations[k].Load()
		byKind[k.String()] = n
		total += n
	}

	stats := map[string]interface{}{
		"started":          s.started,
		"workerCount":      s.workerCount,
		"queueSize":        s.queueSize,
		"defaultEstimator": s.defaultKind.String(),
		"estimations":      total,
		"byEstimator":      byKind,
		"degenerate":       s.stats.degenerate.Load(),
		"failures":         s.stats.failures.Load(),
		"batches":          s.stats.batches.Load(),
	}

	if s.started {
		stats["queueLength"] = s.queue.Len(context.Background())
		stats["busyWorkers"] = s.pool.Busy()
		stats["uptimeSeconds"] = int64(time.Since(s.startedAt).Seconds())
	}

	return stats
}
