// Package handler serves the query parser over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/cache"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/classifier"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/factory"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/lexer"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/querystring"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/config"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/tracing"
)

// Publisher broadcasts cache invalidations to other replicas.
// *pkgredis.Client implements it.
type Publisher interface {
	Publish(ctx context.Context, channel, message string) error
}

// Deps are the collaborators of a Handler. Only Factory and Classifiers are
// required.
type Deps struct {
	Factory           *factory.Factory
	Classifiers       *classifier.Repository
	Parser            config.ParserConfig
	Cache             *cache.ParseCache
	Publisher         Publisher
	InvalidateChannel string
	Tracker           analytics.Tracker
	Tracer            *tracing.Tracer
	Metrics           *metrics.Metrics
}

type Handler struct {
	deps   Deps
	logger *slog.Logger
}

func New(d Deps) *Handler {
	return &Handler{
		deps:   d,
		logger: logger.WithComponent("parse-handler"),
	}
}

// ParseResponse is the body of a successful GET /api/v1/parse.
type ParseResponse struct {
	Parsed              map[string]any `json:"parsed"`
	CrossSearchStrategy string         `json:"crossSearchStrategy"`
	Classes             []string       `json:"classes"`
	FeaturesUsed        []string       `json:"featuresUsed"`
	CacheHit            bool           `json:"cacheHit"`
	CacheLevel          string         `json:"cacheLevel,omitempty"`
}

// TooLongResponse is the 400 body for queries over a length limit.
type TooLongResponse struct {
	Error      string `json:"error"`
	MessageKey string `json:"messageKey"`
	Params     []any  `json:"params"`
}

// Parse serves GET /api/v1/parse?q=. The optional parameters lang,
// stripQuestionMarks, allowLeadingWildcard and enableRegex override the
// configured grammar for one request.
func (h *Handler) Parse(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	params := r.URL.Query()
	if !params.Has("q") {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	query := params.Get("q")
	cfg, err := h.requestConfig(params)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, span := h.deps.Tracer.StartSpan(ctx, "parse", middleware.GetRequestID(ctx))
	defer span.End()
	span.SetAttr("query_length", utf8.RuneCountInString(query))

	p, err := h.deps.Factory.Build(cfg)
	if err != nil {
		log.Warn("parser configuration rejected", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), err.Error())
		return
	}

	entry, level, err := h.parse(ctx, p, cfg, query)
	latency := time.Since(start)

	var tooLong *querystring.QueryTooLongError
	if errors.As(err, &tooLong) {
		h.rejectTooLong(ctx, w, query, tooLong, latency)
		return
	}
	if err != nil {
		h.countResult("error")
		log.Error("parse failed", "query_length", utf8.RuneCountInString(query), "error", err)
		h.writeError(w, http.StatusInternalServerError, "parse failed")
		return
	}

	h.observe(entry, level, latency)
	span.SetAttr("cache_level", string(level))
	log.Info("query parsed",
		"query_length", utf8.RuneCountInString(query),
		"warnings", len(entry.Warnings),
		"strategy", entry.CrossSearchStrategy,
		"classes", entry.Classes,
		"cache_hit", level != cache.LevelNone,
		"latency_ms", float64(latency.Microseconds())/1000,
	)
	h.track(ctx, analytics.ParseEvent{
		Type:                analytics.EventParse,
		Query:               query,
		QueryLength:         utf8.RuneCountInString(query),
		CrossSearchStrategy: entry.CrossSearchStrategy,
		Classes:             entry.Classes,
		FeaturesUsed:        entry.FeaturesUsed,
		Warnings:            entry.Warnings,
		CacheLevel:          string(level),
		LatencyMicros:       latency.Microseconds(),
	})

	h.writeJSON(w, http.StatusOK, ParseResponse{
		Parsed:              entry.Parsed,
		CrossSearchStrategy: entry.CrossSearchStrategy,
		Classes:             entry.Classes,
		FeaturesUsed:        entry.FeaturesUsed,
		CacheHit:            level != cache.LevelNone,
		CacheLevel:          string(level),
	})
}

func (h *Handler) parse(ctx context.Context, p *querystring.Parser, cfg config.ParserConfig, query string) (*cache.Entry, cache.Level, error) {
	compute := func() (*cache.Entry, error) {
		_, span := tracing.StartChildSpan(ctx, "querystring.parse")
		defer span.End()
		pq, err := p.Parse(query)
		if err != nil {
			return nil, err
		}
		return cache.NewEntry(pq), nil
	}
	if h.deps.Cache == nil {
		e, err := compute()
		return e, cache.LevelNone, err
	}
	fp, err := factory.Fingerprint(cfg)
	if err != nil {
		return nil, cache.LevelNone, err
	}
	return h.deps.Cache.GetOrCompute(ctx, h.deps.Cache.Key(fp, query), compute)
}

func (h *Handler) requestConfig(params url.Values) (config.ParserConfig, error) {
	cfg := h.deps.Parser
	if v := params.Get("lang"); v != "" {
		cfg.LanguageCode = v
	}
	if v := params.Get("stripQuestionMarks"); v != "" {
		cfg.StripQuestionMarks = v
	}
	for name, dst := range map[string]*bool{
		"allowLeadingWildcard": &cfg.AllowLeadingWildcard,
		"enableRegex":          &cfg.EnableRegex,
	} {
		v := params.Get(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, errors.New(name + " must be a boolean")
		}
		*dst = b
	}
	return cfg, nil
}

func (h *Handler) rejectTooLong(ctx context.Context, w http.ResponseWriter, query string, e *querystring.QueryTooLongError, latency time.Duration) {
	kind := "soft"
	if e.Hard {
		kind = "hard"
	}
	h.countResult("too_long")
	if h.deps.Metrics != nil {
		h.deps.Metrics.QueryTooLongTotal.WithLabelValues(kind).Inc()
	}
	logger.FromContext(ctx).Info("query too long",
		"query_length", e.Actual,
		"limit", e.Limit,
		"kind", kind,
	)
	event := analytics.ParseEvent{
		Type:          analytics.EventQueryTooLong,
		QueryLength:   e.Actual,
		TooLongKind:   kind,
		LatencyMicros: latency.Microseconds(),
	}
	if !e.Hard {
		event.Query = query
	}
	h.track(ctx, event)
	h.writeJSON(w, http.StatusBadRequest, TooLongResponse{
		Error:      e.Error(),
		MessageKey: e.MessageKey(),
		Params:     e.Params(),
	})
}

func (h *Handler) observe(e *cache.Entry, level cache.Level, latency time.Duration) {
	if h.deps.Metrics == nil {
		return
	}
	h.countResult("ok")
	status := string(level)
	switch {
	case h.deps.Cache == nil:
		status = "disabled"
	case level == cache.LevelNone:
		status = "miss"
	}
	h.deps.Metrics.ParseLatency.WithLabelValues(status).Observe(latency.Seconds())
	h.deps.Metrics.CrossSearchTotal.WithLabelValues(e.CrossSearchStrategy).Inc()
	for _, c := range e.Classes {
		h.deps.Metrics.QueryClassesTotal.WithLabelValues(c).Inc()
	}
	for _, w := range e.Warnings {
		h.deps.Metrics.ParseWarningsTotal.WithLabelValues(w).Inc()
	}
}

func (h *Handler) countResult(result string) {
	if h.deps.Metrics != nil {
		h.deps.Metrics.ParseRequestsTotal.WithLabelValues(result).Inc()
	}
}

func (h *Handler) track(ctx context.Context, e analytics.ParseEvent) {
	if h.deps.Tracker == nil {
		return
	}
	e.Timestamp = time.Now().UTC()
	e.RequestID = middleware.GetRequestID(ctx)
	h.deps.Tracker.Track(e)
}

// TokenView is one lexical token as reported by GET /api/v1/tokens.
type TokenView struct {
	Kind      string `json:"kind"`
	Start     int    `json:"start"`
	End       int    `json:"end"`
	Text      string `json:"text"`
	Value     string `json:"value,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

// Tokens serves GET /api/v1/tokens?q= with the raw token stream of q.
func (h *Handler) Tokens(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := querystring.HardQueryLengthLimit
	if l := h.deps.Parser.HardQueryLengthLimit; l > 0 && l < limit {
		limit = l
	}
	if n := utf8.RuneCountInString(query); n > limit {
		h.writeError(w, http.StatusBadRequest, apperrors.ErrHardLengthExceeded.Error())
		return
	}
	tokens := lexer.Tokenize(query)
	out := make([]TokenView, 0, len(tokens))
	for _, t := range tokens {
		out = append(out, TokenView{
			Kind:      t.Kind.String(),
			Start:     t.Start,
			End:       t.End,
			Text:      t.Text,
			Value:     t.Value,
			Truncated: t.Truncated,
		})
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"query": query, "tokens": out})
}

func (h *Handler) Classifiers(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"classifiers": h.deps.Classifiers.Names()})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.deps.Cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}
	stats := h.deps.Cache.Stats()
	hits := stats.LocalHits + stats.RemoteHits
	var hitRate float64
	if total := hits + stats.Misses; total > 0 {
		hitRate = float64(hits) / float64(total)
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"stats":         stats,
		"hitRate":       hitRate,
		"cachedParsers": h.deps.Factory.Len(),
	})
}

// CacheInvalidate drops every cached parse result and tells other replicas
// to flush their in-process caches.
func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.deps.Cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}
	deleted, err := h.deps.Cache.Invalidate(r.Context())
	if err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}
	if h.deps.Publisher != nil && h.deps.InvalidateChannel != "" {
		if err := h.deps.Publisher.Publish(r.Context(), h.deps.InvalidateChannel, middleware.GetRequestID(r.Context())); err != nil {
			h.logger.Warn("invalidation broadcast failed", "error", err)
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keysDeleted": deleted})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
