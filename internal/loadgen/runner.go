package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/xsit/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

const percentageMultiplier = 100

// Run executes a complete load run: health check, single submissions, batch
// submissions and answer verification. Stats are returned even when the run
// fails verification.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("loadgen")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting xsit load run",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("scenes", cfg.NumScenes),
		logger.Int("batchSize", cfg.BatchSize),
		logger.Int("workers", cfg.Workers),
		logger.String("estimator", cfg.Estimator),
		logger.Duration("timeout", cfg.Timeout))

	client := newHTTPClient(cfg.Timeout)
	if err := checkServiceHealth(ctx, client, cfg); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	scenes := generateScenes(cfg.NumScenes, cfg.Seed)
	stats.ScenesGenerated = len(scenes)

	var c counters
	submitSingles(ctx, cfg, client, scenes, &c)
	submitBatches(ctx, cfg, client, scenes, &c)
	c.into(stats)

	if cfg.OutputFile != "" {
		if err := saveScenes(cfg.OutputFile, scenes); err != nil {
			log.Warn(ctx, "failed to save scenes to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats)

	if err := ctx.Err(); err != nil {
		return stats, err
	}
	if stats.Invalid > 0 {
		return stats, fmt.Errorf("%w: %d of %d answers", ErrInvalidAnswers, stats.Invalid, stats.SinglesOK+stats.BatchScenesOK)
	}
	log.Info(ctx, "load run completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, client *HTTPClient, cfg *Config) error {
	resp, err := client.Get(ctx, cfg.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()

	// The service answers with Prometheus metrics; any 200 is healthy.
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return nil
}

// savedScene keeps the generated id next to the payload.
type savedScene struct {
	ID string `json:"id"`
	Scene
}

// saveScenes writes the generated scenes as a JSON array.
func saveScenes(filename string, scenes []Scene) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	out := make([]savedScene, len(scenes))
	for i, s := range scenes {
		out[i] = savedScene{ID: s.ID, Scene: s}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scenes: %w", err)
	}
	return os.WriteFile(filename, data, filePermission)
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats) {
	var successRate, scenesPerSecond float64

	sent := stats.SinglesSent + stats.BatchesSent
	ok := stats.SinglesOK + stats.BatchScenesOK
	attempted := stats.SinglesSent
	if stats.BatchesSent > 0 {
		attempted += stats.ScenesGenerated
	}
	if attempted > 0 {
		successRate = float64(ok) / float64(attempted) * percentageMultiplier
	}
	if stats.Duration > 0 {
		scenesPerSecond = float64(ok) / stats.Duration.Seconds()
	}

	log.Info(ctx, "final statistics",
		logger.Int("scenesGenerated", stats.ScenesGenerated),
		logger.Int("requestsSent", sent),
		logger.Int("singlesOK", stats.SinglesOK),
		logger.Int("batchesSent", stats.BatchesSent),
		logger.Int("batchScenesOK", stats.BatchScenesOK),
		logger.Int("rejected", stats.Rejected),
		logger.Int("failed", stats.Failed),
		logger.Int("invalid", stats.Invalid),
		logger.Int("degenerate", stats.Degenerate),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("scenesPerSecond", scenesPerSecond))
}
