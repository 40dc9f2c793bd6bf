package ast

import (
	"sort"
	"sync"
)

// ParseWarning is a non-fatal anomaly found while parsing. Message is a
// localisation key; Params are its substitution parameters.
type ParseWarning struct {
	Message string
	Start   int
	End     int
	Params  []any
}

// NewWarning builds a warning anchored at a single offset.
func NewWarning(message string, start int, params ...any) ParseWarning {
	return ParseWarning{Message: message, Start: start, End: start, Params: params}
}

func (w ParseWarning) ToArray() map[string]any {
	out := map[string]any{
		"message": w.Message,
		"start":   w.Start,
		"end":     w.End,
	}
	if len(w.Params) > 0 {
		params := make([]any, len(w.Params))
		copy(params, w.Params)
		out["params"] = params
	}
	return out
}

// Cleanups records the rewrites applied to the raw query before parsing.
type Cleanups struct {
	StrippedQuestionMarks bool
	GershayimQuirks       bool
}

// Any reports whether at least one cleanup was applied.
func (c Cleanups) Any() bool {
	return c.StrippedQuestionMarks || c.GershayimQuirks
}

func (c Cleanups) ToArray() map[string]any {
	out := map[string]any{}
	if c.StrippedQuestionMarks {
		out["stripped_qmark"] = true
	}
	if c.GershayimQuirks {
		out["gershayim_quirks"] = true
	}
	return out
}

// QueryClassifier computes the class names that apply to a parsed query.
type QueryClassifier interface {
	Classify(pq *ParsedQuery) []string
}

// ParsedQuery is the result of a successful parse. It is immutable once
// returned; derived values are computed lazily and memoized.
type ParsedQuery struct {
	root      Node
	query     string
	rawQuery  string
	rawLength int
	cleanups  Cleanups
	warnings  []ParseWarning
	features  []string

	classifier QueryClassifier

	strategyOnce sync.Once
	strategy     CrossSearchStrategy

	classesOnce sync.Once
	classes     []string
}

// NewParsedQuery assembles a ParsedQuery. classifier may be nil.
func NewParsedQuery(
	root Node,
	query, rawQuery string,
	cleanups Cleanups,
	warnings []ParseWarning,
	classifier QueryClassifier,
) *ParsedQuery {
	pq := &ParsedQuery{
		root:       root,
		query:      query,
		rawQuery:   rawQuery,
		rawLength:  len([]rune(rawQuery)),
		cleanups:   cleanups,
		warnings:   append([]ParseWarning(nil), warnings...),
		classifier: classifier,
	}
	pq.features = collectKeywordNames(root)
	return pq
}

func (pq *ParsedQuery) Root() Node { return pq.root }
func (pq *ParsedQuery) Query() string { return pq.query }
func (pq *ParsedQuery) RawQuery() string { return pq.rawQuery }
func (pq *ParsedQuery) RawLength() int { return pq.rawLength }
func (pq *ParsedQuery) Cleanups() Cleanups { return pq.cleanups }
func (pq *ParsedQuery) HasCleanup() bool { return pq.cleanups.Any() }
func (pq *ParsedQuery) Warnings() []ParseWarning {
	return append([]ParseWarning(nil), pq.warnings...)
}

// FeaturesUsed returns the distinct canonical keyword names in the query,
// sorted.
func (pq *ParsedQuery) FeaturesUsed() []string {
	return append([]string(nil), pq.features...)
}

// CrossSearchStrategy returns the routing classification of the query.
func (pq *ParsedQuery) CrossSearchStrategy() CrossSearchStrategy {
	pq.strategyOnce.Do(func() {
		pq.strategy = StrategyFor(pq.root)
	})
	return pq.strategy
}

// Classes returns the query classes assigned by the configured classifier.
func (pq *ParsedQuery) Classes() []string {
	pq.classesOnce.Do(func() {
		if pq.classifier != nil {
			pq.classes = pq.classifier.Classify(pq)
		}
	})
	return append([]string(nil), pq.classes...)
}

// ToArray returns the canonical structural serialization used by golden
// fixtures.
func (pq *ParsedQuery) ToArray() map[string]any {
	out := map[string]any{
		"query":    pq.query,
		"rawQuery": pq.rawQuery,
		"root":     pq.root.ToArray(),
	}
	if pq.cleanups.Any() {
		out["queryCleanups"] = pq.cleanups.ToArray()
	}
	if len(pq.warnings) > 0 {
		warnings := make([]any, 0, len(pq.warnings))
		for _, w := range pq.warnings {
			warnings = append(warnings, w.ToArray())
		}
		out["warnings"] = warnings
	}
	return out
}

func collectKeywordNames(root Node) []string {
	seen := make(map[string]struct{})
	Walk(root, func(n Node) bool {
		if kw, ok := n.(*KeywordFeatureNode); ok {
			seen[kw.FeatureName()] = struct{}{}
		}
		return true
	})
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
