package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/xsit/internal/loadgen"
	"github.com/okian/xsit/pkg/logger"
)

// Default configuration constants.
const (
	defaultNumScenes   = 2000
	defaultBatchSize   = 50
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:5000", "Base URL of the service")
		numScenes = flag.Int("scenes", defaultNumScenes, "Number of scenes to generate")
		batchSize = flag.Int("batch", defaultBatchSize, "Scenes per batch request, 0 disables batches")
		workers   = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent submitters")
		estimator = flag.String("estimator", "", "Estimator: analytic, rasterized or vector")
		seed      = flag.Int64("seed", 1, "Seed of the scene generator")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		output    = flag.String("output", "", "Write the generated scenes to this JSON file")
		logFormat = flag.String("log-format", logger.FormatText, "Log format: text or json")
		verbose   = flag.Bool("verbose", false, "Log every failed request")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		loadgen.ShowHelp()
		return
	}

	if err := logger.InitWith(os.Stdout, *logFormat); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, defaultTestTimeout)
	defer cancel()

	cfg := &loadgen.Config{
		BaseURL:    *baseURL,
		NumScenes:  *numScenes,
		BatchSize:  *batchSize,
		Workers:    *workers,
		Timeout:    *timeout,
		Estimator:  *estimator,
		Seed:       *seed,
		OutputFile: *output,
		Verbose:    *verbose,
	}

	if _, err := loadgen.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "load run failed", logger.Error(err))
		cancel()
		stop()
		os.Exit(1)
	}
}
