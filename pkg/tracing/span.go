// Package tracing provides lightweight, sampled span trees carried through
// contexts and written to slog when the root span ends.
package tracing

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/config"
)

type contextKey struct{}

// Span represents a timed operation within a trace. A nil *Span is a valid
// no-op span.
type Span struct {
	Name      string
	TraceID   string
	StartTime time.Time
	Duration  time.Duration
	Children  []*Span
	Attrs     map[string]any

	mu     sync.Mutex
	root   bool
	logger *slog.Logger
}

// Tracer decides which requests are traced.
type Tracer struct {
	enabled    bool
	sampleRate float64
	sample     func() float64
	logger     *slog.Logger
}

// NewTracer builds a tracer from cfg. A disabled tracer never samples.
func NewTracer(cfg config.TracingConfig) *Tracer {
	return &Tracer{
		enabled:    cfg.Enabled,
		sampleRate: cfg.SampleRate,
		sample:     rand.Float64,
		logger:     slog.Default().With("component", "tracing"),
	}
}

// StartSpan starts a root span if the request is sampled. Otherwise it
// returns ctx unchanged and a nil span.
func (t *Tracer) StartSpan(ctx context.Context, name, traceID string) (context.Context, *Span) {
	if t == nil || !t.enabled || t.sample() >= t.sampleRate {
		return ctx, nil
	}
	span := &Span{
		Name:      name,
		TraceID:   traceID,
		StartTime: time.Now(),
		Attrs:     make(map[string]any),
		root:      true,
		logger:    t.logger,
	}
	return context.WithValue(ctx, contextKey{}, span), span
}

// StartChildSpan creates a child of the span in ctx. Without a parent it
// returns a nil span.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	parent := SpanFromContext(ctx)
	if parent == nil {
		return ctx, nil
	}
	child := &Span{
		Name:      name,
		TraceID:   parent.TraceID,
		StartTime: time.Now(),
		Attrs:     make(map[string]any),
	}
	parent.mu.Lock()
	parent.Children = append(parent.Children, child)
	parent.mu.Unlock()
	return context.WithValue(ctx, contextKey{}, child), child
}

// End records the duration. Ending a root span logs the whole tree.
func (s *Span) End() {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.Duration = time.Since(s.StartTime)
	s.mu.Unlock()
	if s.root {
		s.logRecursive(s.logger, 0)
	}
}

// SetAttr attaches a key-value attribute to the span.
func (s *Span) SetAttr(key string, value any) {
	if s == nil {
		return
	}
	s.mu.Lock()
	s.Attrs[key] = value
	s.mu.Unlock()
}

// SpanFromContext extracts the current Span from ctx, or nil if none.
func SpanFromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(contextKey{}).(*Span)
	return span
}

func (s *Span) logRecursive(logger *slog.Logger, depth int) {
	s.mu.Lock()
	attrs := []any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"duration_us", s.Duration.Microseconds(),
		"depth", depth,
	}
	for k, v := range s.Attrs {
		attrs = append(attrs, k, v)
	}
	children := append([]*Span(nil), s.Children...)
	s.mu.Unlock()

	logger.Info("span", attrs...)
	for _, child := range children {
		child.logRecursive(logger, depth+1)
	}
}
