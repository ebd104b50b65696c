package loadgen

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/okian/xsit/pkg/logger"
)

// counters are shared by the submitting workers.
type counters struct {
	singlesSent, singlesOK    atomic.Int64
	batchesSent, batchScenes  atomic.Int64
	rejected, failed, invalid atomic.Int64
	degenerate                atomic.Int64
}

func (c *counters) observe(cfg *Config, r Result) {
	if err := checkResult(cfg, r); err != nil {
		c.invalid.Add(1)
		return
	}
	if r.Degenerate {
		c.degenerate.Add(1)
	}
}

func (c *counters) into(stats *Stats) {
	stats.SinglesSent = int(c.singlesSent.Load())
	stats.SinglesOK = int(c.singlesOK.Load())
	stats.BatchesSent = int(c.batchesSent.Load())
	stats.BatchScenesOK = int(c.batchScenes.Load())
	stats.Rejected = int(c.rejected.Load())
	stats.Failed = int(c.failed.Load())
	stats.Invalid = int(c.invalid.Load())
	stats.Degenerate = int(c.degenerate.Load())
}

// fanOut runs fn over n work items on cfg.Workers goroutines.
func fanOut(ctx context.Context, workers, n int, fn func(i int)) {
	if workers <= 0 {
		workers = 1
	}
	work := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range work {
				if ctx.Err() != nil {
					continue
				}
				fn(i)
			}
		}()
	}

	func() {
		defer close(work)
		for i := 0; i < n; i++ {
			select {
			case <-ctx.Done():
				return
			case work <- i:
			}
		}
	}()
	wg.Wait()
}

// submitSingles posts every scene to /calculate_xsit.
func submitSingles(ctx context.Context, cfg *Config, client *HTTPClient, scenes []Scene, c *counters) {
	url := endpoint(cfg, "/calculate_xsit")
	log := logger.Get().Named("loadgen")

	fanOut(ctx, cfg.Workers, len(scenes), func(i int) {
		c.singlesSent.Add(1)
		var r Result
		status, err := client.PostJSON(ctx, url, scenes[i].ID, scenes[i], &r)
		switch {
		case err != nil:
			c.failed.Add(1)
			if cfg.Verbose {
				log.Warn(ctx, "scene request failed", logger.String("id", scenes[i].ID), logger.Error(err))
			}
		case status == http.StatusOK:
			c.singlesOK.Add(1)
			c.observe(cfg, r)
		case isRejection(status):
			c.rejected.Add(1)
		default:
			c.failed.Add(1)
			if cfg.Verbose {
				log.Warn(ctx, "scene rejected",
					logger.String("id", scenes[i].ID),
					logger.Int("status", status),
					logger.String("error", r.Error))
			}
		}
	})
}

type batchRequest struct {
	Scenes []Scene `json:"scenes"`
}

type batchResponse struct {
	Results []Result `json:"results"`
}

// submitBatches posts the scenes in chunks of cfg.BatchSize.
func submitBatches(ctx context.Context, cfg *Config, client *HTTPClient, scenes []Scene, c *counters) {
	if cfg.BatchSize <= 0 {
		return
	}
	url := endpoint(cfg, "/calculate_xsit/batch")
	log := logger.Get().Named("loadgen")
	chunks := (len(scenes) + cfg.BatchSize - 1) / cfg.BatchSize

	fanOut(ctx, cfg.Workers, chunks, func(i int) {
		lo := i * cfg.BatchSize
		hi := min(lo+cfg.BatchSize, len(scenes))
		c.batchesSent.Add(1)

		var resp batchResponse
		status, err := client.PostJSON(ctx, url, scenes[lo].ID, batchRequest{Scenes: scenes[lo:hi]}, &resp)
		switch {
		case err != nil:
			c.failed.Add(1)
			if cfg.Verbose {
				log.Warn(ctx, "batch request failed", logger.Int("batch", i), logger.Error(err))
			}
		case isRejection(status):
			c.rejected.Add(1)
		case status != http.StatusOK || len(resp.Results) != hi-lo:
			c.failed.Add(1)
			if cfg.Verbose {
				log.Warn(ctx, "malformed batch answer",
					logger.Int("batch", i),
					logger.Int("status", status),
					logger.Int("results", len(resp.Results)))
			}
		default:
			for _, r := range resp.Results {
				if r.Error != "" {
					c.failed.Add(1)
					continue
				}
				c.batchScenes.Add(1)
				c.observe(cfg, r)
			}
		}
	})
}

func isRejection(status int) bool {
	return status == http.StatusServiceUnavailable || status == http.StatusTooManyRequests
}
