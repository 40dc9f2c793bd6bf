package analytics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/metrics"
)

// Publisher writes one event. *kafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, event kafka.Event) error
}

// Collector publishes parse events one at a time from a buffered channel.
// When the buffer is full new events are dropped.
type Collector struct {
	publisher Publisher
	eventCh   chan ParseEvent
	metrics   *metrics.Metrics
	logger    *slog.Logger
	done      chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewCollector creates a collector; m may be nil.
func NewCollector(publisher Publisher, bufferSize int, m *metrics.Metrics) *Collector {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	return &Collector{
		publisher: publisher,
		eventCh:   make(chan ParseEvent, bufferSize),
		metrics:   m,
		logger:    slog.Default().With("component", "analytics-collector"),
		done:      make(chan struct{}),
	}
}

// Start launches the publish loop. It runs until ctx is cancelled or Close
// is called, then publishes whatever is still buffered.
func (c *Collector) Start(ctx context.Context) {
	go func() {
		defer close(c.done)
		for {
			select {
			case event, ok := <-c.eventCh:
				if !ok {
					return
				}
				c.publish(ctx, event)
			case <-ctx.Done():
				c.drainRemaining()
				return
			}
		}
	}()
	c.logger.Info("analytics collector started", "buffer_size", cap(c.eventCh))
}

// Track queues event. Events tracked after Close are dropped.
func (c *Collector) Track(event ParseEvent) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		c.count("dropped")
		return
	}
	select {
	case c.eventCh <- event:
	default:
		c.count("dropped")
		c.logger.Warn("analytics event dropped (buffer full)")
	}
}

// Close stops accepting events and waits for the loop to finish. Start must
// have been called.
func (c *Collector) Close() {
	c.mu.Lock()
	if !c.closed {
		c.closed = true
		close(c.eventCh)
	}
	c.mu.Unlock()
	<-c.done
}

func (c *Collector) drainRemaining() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event, ok := <-c.eventCh:
			if !ok {
				return
			}
			c.publish(ctx, event)
		default:
			return
		}
	}
}

func (c *Collector) publish(ctx context.Context, event ParseEvent) {
	if err := c.publisher.Publish(ctx, kafka.Event{Key: string(event.Type), Value: event}); err != nil {
		c.count("failed")
		c.logger.Error("failed to publish analytics event", "error", err)
		return
	}
	c.count("published")
}

func (c *Collector) count(status string) {
	if c.metrics != nil {
		c.metrics.AnalyticsEventsTotal.WithLabelValues(status).Inc()
	}
}
