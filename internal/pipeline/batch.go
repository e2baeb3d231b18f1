package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/nsetinspect/internal/model"
	"golang.org/x/sync/errgroup"
)

// BatchProcessor inspects several registries concurrently.
// Each registry runs through its own pipeline; inspections of different
// files share no state.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each registry.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent inspections.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent inspections.
// Default is 4 if not specified.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
// The pipelineFactory function is called once per registry.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     4,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch inspects the given registries and returns one inspection per
// path, in the order given. A failed inspection carries its error in
// Inspection.Error and does not stop the others.
//
// The returned error is non-nil only when the context was cancelled;
// registries not started by then have a nil entry.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, paths []string) ([]*model.Inspection, error) {
	bp.logger.Debug("starting batch inspection",
		"registries", len(paths),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()

	// Each goroutine writes only its own index.
	results := make([]*model.Inspection, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			inspection := model.NewInspection(path)
			results[i] = inspection

			if err := bp.pipelineFactory().Execute(ctx, inspection); err != nil {
				bp.logger.Warn("inspection failed",
					"registry", path,
					"error", err,
				)
				return nil
			}

			return nil
		})
	}

	err := g.Wait()

	bp.logger.Debug("batch inspection complete",
		"registries", len(paths),
		"elapsed", time.Since(startTime),
	)

	return results, err
}

// ProcessBatchWithCallback inspects the given registries and calls callback
// for each finished inspection with its index in paths. The callback runs
// on the goroutine that finished the inspection and must be safe for
// concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	paths []string,
	callback func(inspection *model.Inspection, index int),
) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, path := range paths {
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			inspection := model.NewInspection(path)
			_ = bp.pipelineFactory().Execute(ctx, inspection) //nolint:errcheck // Error is stored in inspection

			callback(inspection, i)

			return nil
		})
	}

	return g.Wait()
}
