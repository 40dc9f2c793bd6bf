package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/metrics"
)

// latencyWindow is the number of most recent latencies kept for
// percentiles.
const latencyWindow = 10000

type AggregatedStats struct {
	TotalParses      int64            `json:"total_parses"`
	QueryTooLong     map[string]int64 `json:"query_too_long"`
	CacheHits        map[string]int64 `json:"cache_hits"`
	CacheMisses      int64            `json:"cache_misses"`
	Strategies       map[string]int64 `json:"cross_search_strategies"`
	Classes          map[string]int64 `json:"classes"`
	Features         map[string]int64 `json:"features"`
	Warnings         map[string]int64 `json:"warnings"`
	AvgLatencyMicros float64          `json:"avg_latency_us"`
	P50LatencyMicros int64            `json:"p50_latency_us"`
	P95LatencyMicros int64            `json:"p95_latency_us"`
	P99LatencyMicros int64            `json:"p99_latency_us"`
	TopQueries       []QueryCount     `json:"top_queries"`
	TopWarnedQueries []QueryCount     `json:"top_warned_queries"`
	QueriesPerMinute float64          `json:"queries_per_minute"`
	WindowStartedAt  time.Time        `json:"window_started_at"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds parse events into in-memory counters.
type Aggregator struct {
	mu            sync.RWMutex
	totalParses   int64
	tooLong       map[string]int64
	cacheHits     map[string]int64
	cacheMisses   int64
	strategies    map[string]int64
	classes       map[string]int64
	features      map[string]int64
	warnings      map[string]int64
	latencies     []int64
	latencyNext   int
	queryCounts   map[string]int64
	warnedQueries map[string]int64
	startTime     time.Time

	now     func() time.Time
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewAggregator creates an empty aggregator; m may be nil.
func NewAggregator(m *metrics.Metrics) *Aggregator {
	a := &Aggregator{
		now:     time.Now,
		metrics: m,
		logger:  slog.Default().With("component", "analytics-aggregator"),
	}
	a.reset()
	return a
}

func (a *Aggregator) reset() {
	a.totalParses = 0
	a.tooLong = make(map[string]int64)
	a.cacheHits = make(map[string]int64)
	a.cacheMisses = 0
	a.strategies = make(map[string]int64)
	a.classes = make(map[string]int64)
	a.features = make(map[string]int64)
	a.warnings = make(map[string]int64)
	a.latencies = make([]int64, 0, 1024)
	a.latencyNext = 0
	a.queryCounts = make(map[string]int64)
	a.warnedQueries = make(map[string]int64)
	a.startTime = a.now()
}

// HandleEvent adapts agg to a Kafka message handler.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[ParseEvent](value)
		if err != nil {
			agg.count("malformed")
			agg.logger.Warn("failed to decode parse event", "error", err)
			return err
		}
		agg.Record(event)
		agg.count("consumed")
		return nil
	}
}

// Record folds one event into the counters.
func (a *Aggregator) Record(event ParseEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.totalParses++
	a.queryCounts[event.Query]++
	a.recordLatency(event.LatencyMicros)

	if event.Type == EventQueryTooLong {
		a.tooLong[event.TooLongKind]++
		return
	}
	if event.CacheLevel != "" {
		a.cacheHits[event.CacheLevel]++
	} else {
		a.cacheMisses++
	}
	if event.CrossSearchStrategy != "" {
		a.strategies[event.CrossSearchStrategy]++
	}
	for _, c := range event.Classes {
		a.classes[c]++
	}
	for _, f := range event.FeaturesUsed {
		a.features[f]++
	}
	for _, w := range event.Warnings {
		a.warnings[w]++
	}
	if len(event.Warnings) > 0 {
		a.warnedQueries[event.Query]++
	}
}

func (a *Aggregator) recordLatency(us int64) {
	if len(a.latencies) < latencyWindow {
		a.latencies = append(a.latencies, us)
		return
	}
	a.latencies[a.latencyNext] = us
	a.latencyNext = (a.latencyNext + 1) % latencyWindow
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot()
}

// Rotate returns the current stats and starts a new window.
func (a *Aggregator) Rotate() AggregatedStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	stats := a.snapshot()
	a.reset()
	return stats
}

func (a *Aggregator) snapshot() AggregatedStats {
	stats := AggregatedStats{
		TotalParses:      a.totalParses,
		QueryTooLong:     copyCounts(a.tooLong),
		CacheHits:        copyCounts(a.cacheHits),
		CacheMisses:      a.cacheMisses,
		Strategies:       copyCounts(a.strategies),
		Classes:          copyCounts(a.classes),
		Features:         copyCounts(a.features),
		Warnings:         copyCounts(a.warnings),
		TopQueries:       topN(a.queryCounts, 10),
		TopWarnedQueries: topN(a.warnedQueries, 10),
		WindowStartedAt:  a.startTime.UTC(),
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMicros = float64(sum) / float64(len(sorted))
		stats.P50LatencyMicros = percentile(sorted, 50)
		stats.P95LatencyMicros = percentile(sorted, 95)
		stats.P99LatencyMicros = percentile(sorted, 99)
	}
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalParses) / elapsed
	}
	return stats
}

func (a *Aggregator) count(status string) {
	if a.metrics != nil {
		a.metrics.AnalyticsEventsTotal.WithLabelValues(status).Inc()
	}
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

// topN returns the n highest counts, ties broken by query text.
func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
