package batchprocessor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// BatchProcessorConfig holds configuration for batch processing
type BatchProcessorConfig struct {
	BatchSize int    // Max items started together (default: 5)
	Name      string // Label used in log lines
}

// DefaultBatchProcessorConfig returns default configuration
func DefaultBatchProcessorConfig() BatchProcessorConfig {
	return BatchProcessorConfig{
		BatchSize: 5,
		Name:      "batch",
	}
}

// BatchResult holds the outcome of one batch
type BatchResult struct {
	BatchIndex int
	Processed  int
	Duration   time.Duration
}

// BatchProcessor fans work out in fixed-size groups. Each group is started
// together and fully awaited before the next one starts.
type BatchProcessor struct {
	config BatchProcessorConfig
	logger zerolog.Logger
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(config BatchProcessorConfig, logger zerolog.Logger) *BatchProcessor {
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultBatchProcessorConfig().BatchSize
	}
	return &BatchProcessor{
		config: config,
		logger: logger.With().Str("component", "BatchProcessor").Str("batch", config.Name).Logger(),
	}
}

// BatchSize returns the configured group size
func (bp *BatchProcessor) BatchSize() int {
	return bp.config.BatchSize
}

// SplitIntoBatches splits items into consecutive groups of at most size elements
func SplitIntoBatches[T any](items []T, size int) [][]T {
	if size <= 0 || len(items) <= size {
		if len(items) == 0 {
			return nil
		}
		return [][]T{items}
	}

	batches := make([][]T, 0, (len(items)+size-1)/size)
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		batches = append(batches, items[i:end])
	}
	return batches
}

// Map applies fn to every item, BatchSize items at a time, and returns the
// results in input order. When ctx is cancelled between batches the results
// of the batches already completed are returned.
func Map[T, R any](ctx context.Context, bp *BatchProcessor, items []T, fn func(ctx context.Context, item T) R) ([]R, []BatchResult) {
	batches := SplitIntoBatches(items, bp.config.BatchSize)
	results := make([]R, len(items))
	stats := make([]BatchResult, 0, len(batches))

	if len(items) > 0 {
		batchCount, lastSize := bp.GetBatchingStats(len(items))
		bp.logger.Debug().
			Int("items", len(items)).
			Int("batches", batchCount).
			Int("last_batch_size", lastSize).
			Msg("Batch processing started")
	}

	offset := 0
	for i, batch := range batches {
		select {
		case <-ctx.Done():
			bp.logger.Debug().
				Int("completed_batches", i).
				Int("total_batches", len(batches)).
				Msg("Batch processing interrupted by context cancellation")
			return results[:offset], stats
		default:
		}

		start := time.Now()
		var wg sync.WaitGroup
		for j, item := range batch {
			wg.Add(1)
			go func(slot int, item T) {
				defer wg.Done()
				results[slot] = fn(ctx, item)
			}(offset+j, item)
		}
		wg.Wait()

		stat := BatchResult{BatchIndex: i, Processed: len(batch), Duration: time.Since(start)}
		stats = append(stats, stat)
		offset += len(batch)

		bp.logger.Debug().
			Int("batch_index", i).
			Int("processed", stat.Processed).
			Int("total", len(batches)).
			Dur("duration", stat.Duration).
			Msg("Batch processing completed")
	}

	return results, stats
}

// GetBatchingStats returns the number of batches for inputSize and the size of the last one
func (bp *BatchProcessor) GetBatchingStats(inputSize int) (batches int, remainingItems int) {
	if inputSize == 0 {
		return 0, 0
	}
	batches = (inputSize + bp.config.BatchSize - 1) / bp.config.BatchSize
	remainingItems = inputSize % bp.config.BatchSize
	if remainingItems == 0 {
		remainingItems = bp.config.BatchSize
	}
	return batches, remainingItems
}
