// Package collector provides a batch-oriented parse event collector that
// accumulates events in memory and flushes them to Kafka in bulk.
package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/metrics"
)

// BatchPublisher writes several events at once. *kafka.Producer implements
// it.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, events []kafka.Event) error
}

// BatchCollector flushes buffered events when the buffer reaches batchSize
// or every flushInterval, whichever comes first. Failed batches are
// re-queued up to three batches' worth of events; the oldest beyond that are
// dropped.
type BatchCollector struct {
	publisher     BatchPublisher
	mu            sync.Mutex
	flushMu       sync.Mutex
	buffer        []kafka.Event
	batchSize     int
	flushInterval time.Duration
	metrics       *metrics.Metrics
	logger        *slog.Logger
	kick          chan struct{}
	done          chan struct{}
}

// NewBatchCollector creates a collector; m may be nil.
func NewBatchCollector(publisher BatchPublisher, batchSize int, flushInterval time.Duration, m *metrics.Metrics) *BatchCollector {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushInterval <= 0 {
		flushInterval = 5 * time.Second
	}
	return &BatchCollector{
		publisher:     publisher,
		buffer:        make([]kafka.Event, 0, batchSize),
		batchSize:     batchSize,
		flushInterval: flushInterval,
		metrics:       m,
		logger:        slog.Default().With("component", "batch-collector"),
		kick:          make(chan struct{}, 1),
		done:          make(chan struct{}),
	}
}

// Start launches the background flush loop. It stops when ctx is cancelled
// after one final flush.
func (bc *BatchCollector) Start(ctx context.Context) {
	go func() {
		defer close(bc.done)
		ticker := time.NewTicker(bc.flushInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				bc.flush(ctx)
			case <-bc.kick:
				bc.flush(ctx)
			case <-ctx.Done():
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				bc.flush(flushCtx)
				cancel()
				return
			}
		}
	}()
	bc.logger.Info("batch collector started",
		"batch_size", bc.batchSize,
		"flush_interval", bc.flushInterval,
	)
}

// Track buffers event and wakes the flush loop once a batch is full.
func (bc *BatchCollector) Track(event analytics.ParseEvent) {
	bc.mu.Lock()
	bc.buffer = append(bc.buffer, kafka.Event{Key: string(event.Type), Value: event})
	full := len(bc.buffer) >= bc.batchSize
	bc.mu.Unlock()

	if full {
		select {
		case bc.kick <- struct{}{}:
		default:
		}
	}
}

// Close waits for the flush loop to finish. Cancel the Start context first.
func (bc *BatchCollector) Close() {
	<-bc.done
}

// BufferLen returns the current number of buffered events.
func (bc *BatchCollector) BufferLen() int {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	return len(bc.buffer)
}

func (bc *BatchCollector) flush(ctx context.Context) {
	bc.flushMu.Lock()
	defer bc.flushMu.Unlock()

	bc.mu.Lock()
	if len(bc.buffer) == 0 {
		bc.mu.Unlock()
		return
	}
	batch := bc.buffer
	bc.buffer = make([]kafka.Event, 0, bc.batchSize)
	bc.mu.Unlock()

	if err := bc.publisher.PublishBatch(ctx, batch); err != nil {
		bc.logger.Error("batch flush failed", "batch_size", len(batch), "error", err)
		bc.count("failed", len(batch))

		bc.mu.Lock()
		bc.buffer = append(batch, bc.buffer...)
		if limit := bc.batchSize * 3; len(bc.buffer) > limit {
			dropped := len(bc.buffer) - limit
			bc.buffer = bc.buffer[dropped:]
			bc.count("dropped", dropped)
			bc.logger.Warn("buffer overflow, events dropped", "dropped", dropped)
		}
		bc.mu.Unlock()
		return
	}

	bc.count("published", len(batch))
	bc.logger.Debug("batch flushed", "events", len(batch))
}

func (bc *BatchCollector) count(status string, n int) {
	if bc.metrics != nil {
		bc.metrics.AnalyticsEventsTotal.WithLabelValues(status).Add(float64(n))
	}
}
