package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/gpcscan/gpcscan/internal/config"
	"github.com/gpcscan/gpcscan/internal/model"
)

// BatchProcessor handles concurrent auditing of multiple targets.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-audit execution
// 2. It allows different batch strategies (e.g., rate limiting, retries)
// 3. It provides cleaner separation of concerns
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each audit.
	// We use a factory to ensure each audit gets a fresh pipeline instance.
	pipelineFactory func() *Pipeline

	// jurisdiction is stamped on every run the batch creates.
	jurisdiction string

	// concurrency is the maximum number of concurrent audits. Each audit
	// drives two browser sessions, so the default is deliberately low.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger

	// results stores completed audit runs.
	// Access is synchronized via mutex.
	results []*model.Run
	mu      sync.Mutex
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithBatchJurisdiction sets the jurisdiction stamped on every run.
func WithBatchJurisdiction(jurisdiction string) BatchOption {
	return func(b *BatchProcessor) {
		if jurisdiction != "" {
			b.jurisdiction = jurisdiction
		}
	}
}

// WithConcurrency sets the maximum number of concurrent audits.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each audit to create a fresh
// pipeline instance. This ensures that pipeline state doesn't leak between
// audits and allows for per-audit customization if needed.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		jurisdiction:    config.DefaultJurisdiction,
		concurrency:     config.DefaultBatchSize,
		results:         make([]*model.Run, 0),
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch audits multiple targets concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
// Each target gets its own goroutine, but only 'concurrency' goroutines
// run simultaneously.
//
// Returns all runs collected, even for targets that failed.
// The error return indicates if the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, targets []string) ([]*model.Run, error) {
	bp.logger.Info("starting batch processing",
		"total_targets", len(targets),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Pre-allocate results slice to maintain order
	bp.results = make([]*model.Run, len(targets))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			// Check for cancellation before starting
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			bp.logger.Info("auditing target",
				"target", target,
				"index", i+1,
				"total", len(targets),
			)

			// Create the run for this target
			run := model.NewRun(target, bp.jurisdiction)

			// Create and execute pipeline
			pipeline := bp.pipelineFactory()
			err := pipeline.Execute(ctx, run)
			run.Complete()

			// Store result regardless of error
			// The run contains error information if the audit failed
			bp.mu.Lock()
			bp.results[i] = run
			bp.mu.Unlock()

			if err != nil {
				bp.logger.Warn("audit failed",
					"target", target,
					"error", err,
				)
				// Don't return error to errgroup - we want to continue other audits
				// The error is recorded in the run
				return nil
			}

			bp.logger.Info("audit completed",
				"target", target,
			)

			return nil
		})
	}

	// Wait for all audits to complete
	err := g.Wait()

	elapsed := time.Since(startTime)
	bp.logger.Info("batch processing complete",
		"total_targets", len(targets),
		"elapsed", elapsed,
	)

	return bp.results, err
}

// ProcessBatchWithCallback audits multiple targets and calls a callback
// for each completed audit. This is useful for streaming results.
//
// The callback receives the run and the index of the target in the
// original slice. The callback is called from the goroutine that completed
// the audit, so it should be thread-safe if it accesses shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	targets []string,
	callback func(run *model.Run, index int),
) error {
	bp.logger.Info("starting batch processing with callback",
		"total_targets", len(targets),
		"concurrency", bp.concurrency,
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range targets {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			run := model.NewRun(target, bp.jurisdiction)
			pipeline := bp.pipelineFactory()
			_ = pipeline.Execute(ctx, run) //nolint:errcheck // Error is stored in the run
			run.Complete()

			// Call the callback with the result
			callback(run, i)

			return nil
		})
	}

	return g.Wait()
}
