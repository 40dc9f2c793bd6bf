// Package factory builds query parsers from configuration snapshots and
// memoizes them by configuration value.
package factory

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/ast"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/keyword"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/querystring"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/metrics"
)

// Factory hands out one parser per distinct grammar configuration. It is
// safe for concurrent use.
type Factory struct {
	registry   *keyword.Registry
	classifier ast.QueryClassifier
	metrics    *metrics.Metrics
	logger     *slog.Logger

	mu      sync.RWMutex
	parsers map[string]*querystring.Parser
	group   singleflight.Group
}

// New creates a factory drawing keywords from registry. classifier and m may
// be nil.
func New(registry *keyword.Registry, classifier ast.QueryClassifier, m *metrics.Metrics) *Factory {
	return &Factory{
		registry:   registry,
		classifier: classifier,
		metrics:    m,
		logger:     slog.Default().With("component", "parser-factory"),
		parsers:    make(map[string]*querystring.Parser),
	}
}

// Build returns the parser for cfg, constructing it on first use. Snapshots
// that differ only in options the grammar ignores share a parser.
func (f *Factory) Build(cfg config.ParserConfig) (*querystring.Parser, error) {
	fp, err := Fingerprint(cfg)
	if err != nil {
		return nil, err
	}

	f.mu.RLock()
	p, ok := f.parsers[fp]
	f.mu.RUnlock()
	if ok {
		return p, nil
	}

	v, err, _ := f.group.Do(fp, func() (any, error) {
		f.mu.RLock()
		existing, ok := f.parsers[fp]
		f.mu.RUnlock()
		if ok {
			return existing, nil
		}
		built, err := f.build(cfg)
		if err != nil {
			return nil, err
		}
		f.mu.Lock()
		f.parsers[fp] = built
		size := len(f.parsers)
		f.mu.Unlock()

		f.logger.Debug("parser built", "fingerprint", fp[:12], "cached_parsers", size)
		if f.metrics != nil {
			f.metrics.ParserBuildsTotal.Inc()
			f.metrics.CachedParsers.Set(float64(size))
		}
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*querystring.Parser), nil
}

func (f *Factory) build(cfg config.ParserConfig) (*querystring.Parser, error) {
	registry, err := f.registry.Subset(cfg.Keywords)
	if err != nil {
		return nil, fmt.Errorf("selecting keywords: %w", err)
	}
	p, err := querystring.New(registry, OptionsFrom(cfg), f.classifier)
	if err != nil {
		return nil, fmt.Errorf("building parser: %w", err)
	}
	return p, nil
}

// Len returns the number of distinct parsers built so far.
func (f *Factory) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.parsers)
}

// Reset drops every memoized parser.
func (f *Factory) Reset() {
	f.mu.Lock()
	f.parsers = make(map[string]*querystring.Parser)
	f.mu.Unlock()
	if f.metrics != nil {
		f.metrics.CachedParsers.Set(0)
	}
}

// OptionsFrom maps the parser section of the configuration onto grammar
// options.
func OptionsFrom(cfg config.ParserConfig) querystring.Options {
	return querystring.Options{
		MaxQueryLength:       cfg.MaxQueryLength,
		HardQueryLengthLimit: cfg.HardQueryLengthLimit,
		AllowLeadingWildcard: cfg.AllowLeadingWildcard,
		StripQuestionMarks:   querystring.QuestionMarkStripLevel(cfg.StripQuestionMarks),
		LanguageCode:         cfg.LanguageCode,
		EnableRegex:          cfg.EnableRegex,
		MaxKeywordConditions: cfg.MaxKeywordConditions,
		Namespaces:           cfg.Namespaces,
	}
}

// grammarKey is the canonical form of the options that change parser output.
type grammarKey struct {
	MaxQueryLength       int            `json:"maxQueryLength"`
	HardQueryLengthLimit int            `json:"hardQueryLengthLimit"`
	AllowLeadingWildcard bool           `json:"allowLeadingWildcard"`
	StripQuestionMarks   string         `json:"stripQuestionMarks"`
	LanguageCode         string         `json:"languageCode"`
	EnableRegex          bool           `json:"enableRegex"`
	Keywords             []string       `json:"keywords"`
	Namespaces           map[string]int `json:"namespaces"`
	MaxKeywordConditions int            `json:"maxKeywordConditions"`
}

// Fingerprint returns the SHA-256 of the canonical JSON of the grammar
// options in cfg. Keyword order and duplicates do not matter.
func Fingerprint(cfg config.ParserConfig) (string, error) {
	key := grammarKey{
		MaxQueryLength:       cfg.MaxQueryLength,
		HardQueryLengthLimit: cfg.HardQueryLengthLimit,
		AllowLeadingWildcard: cfg.AllowLeadingWildcard,
		StripQuestionMarks:   cfg.StripQuestionMarks,
		LanguageCode:         cfg.LanguageCode,
		EnableRegex:          cfg.EnableRegex,
		Keywords:             canonicalKeywords(cfg.Keywords),
		Namespaces:           cfg.Namespaces,
		MaxKeywordConditions: cfg.MaxKeywordConditions,
	}
	if len(key.Namespaces) == 0 {
		key.Namespaces = nil
	}
	// encoding/json writes map keys in sorted order.
	data, err := json.Marshal(key)
	if err != nil {
		return "", fmt.Errorf("encoding parser fingerprint: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func canonicalKeywords(names []string) []string {
	if len(names) == 0 {
		return nil
	}
	out := append([]string(nil), names...)
	sort.Strings(out)
	n := 0
	for i, name := range out {
		if i > 0 && name == out[n-1] {
			continue
		}
		out[n] = name
		n++
	}
	return out[:n]
}
