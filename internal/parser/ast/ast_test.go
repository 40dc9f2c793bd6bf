package ast

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func span(start, end int) Span { return Span{StartOffset: start, EndOffset: end} }

func kw(key string, start, end int) *KeywordFeatureNode {
	return &KeywordFeatureNode{Span: span(start, end), Key: key, Value: "v"}
}

func TestNodeToArray(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want map[string]any
	}{
		{
			name: "words",
			node: &WordsQueryNode{Span: span(0, 3), Words: "foo"},
			want: map[string]any{"words": map[string]any{"startOffset": 0, "endOffset": 3, "words": "foo"}},
		},
		{
			name: "phrase without slop",
			node: &PhraseQueryNode{Span: span(0, 5), Phrase: "foo", Slop: -1},
			want: map[string]any{"phrase": map[string]any{"startOffset": 0, "endOffset": 5, "phrase": "foo"}},
		},
		{
			name: "phrase with slop and stem",
			node: &PhraseQueryNode{Span: span(0, 8), Phrase: "foo", Slop: 2, Stem: true},
			want: map[string]any{"phrase": map[string]any{
				"startOffset": 0, "endOffset": 8, "phrase": "foo", "slop": 2, "stem": true,
			}},
		},
		{
			name: "fuzzy",
			node: &FuzzyNode{Span: span(0, 4), Word: "foo", Fuzziness: 2},
			want: map[string]any{"fuzzy": map[string]any{"startOffset": 0, "endOffset": 4, "word": "foo", "fuzziness": 2}},
		},
		{
			name: "negated",
			node: &NegatedNode{Span: span(0, 4), Child: &WordsQueryNode{Span: span(1, 4), Words: "foo"}, NegationType: "-"},
			want: map[string]any{"not": map[string]any{
				"startOffset":   0,
				"endOffset":     4,
				"negation_type": "-",
				"child":         map[string]any{"words": map[string]any{"startOffset": 1, "endOffset": 4, "words": "foo"}},
			}},
		},
		{
			name: "empty",
			node: &EmptyQueryNode{Span: span(0, 2)},
			want: map[string]any{"empty": map[string]any{"startOffset": 0, "endOffset": 2}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.node.ToArray())
		})
	}
}

func TestKeywordToArrayOmitsNilParsedValue(t *testing.T) {
	fields := kw("linksto", 0, 9).ToArray()["keyword"].(map[string]any)
	_, ok := fields["parsedValue"]
	assert.False(t, ok)
	assert.Equal(t, "linksto", fields["key"])
	assert.Equal(t, false, fields["negated"])
}

func TestWalkVisitsDescendants(t *testing.T) {
	root := &ParsedBooleanNode{
		Span: span(0, 20),
		Clauses: []BooleanClause{
			{Occur: Must, Node: kw("intitle", 0, 9)},
			{Occur: MustNot, Node: &NegatedNode{Span: span(10, 20), Child: kw("incategory", 11, 20)}},
		},
	}
	var keys []string
	Walk(root, func(n Node) bool {
		if k, ok := n.(*KeywordFeatureNode); ok {
			keys = append(keys, k.Key)
		}
		return true
	})
	assert.Equal(t, []string{"intitle", "incategory"}, keys)
}

func TestStrategyFor(t *testing.T) {
	assert.Equal(t, AllSources, StrategyFor(&EmptyQueryNode{}))
	assert.Equal(t, AllSources, StrategyFor(kw("intitle", 0, 9)))

	same := &ParsedBooleanNode{Clauses: []BooleanClause{
		{Occur: Must, Node: kw("intitle", 0, 9)},
		{Occur: Must, Node: kw("intitle", 10, 19)},
	}}
	assert.Equal(t, AllSources, StrategyFor(same))

	mixed := &ParsedBooleanNode{Clauses: []BooleanClause{
		{Occur: Must, Node: kw("intitle", 0, 9)},
		{Occur: Must, Node: &NamespaceHeaderNode{Child: &WordsQueryNode{}}},
		{Occur: MustNot, Node: kw("hastemplate", 10, 19)},
	}}
	strategy := StrategyFor(mixed)
	assert.Equal(t, HostSourceOnly, strategy)
	assert.Equal(t, "host_source_only", strategy.String())
	assert.False(t, strategy.CrossProjectSearchSupported())
	assert.False(t, strategy.CrossLanguageSearchSupported())
	assert.False(t, strategy.ExtraIndicesSearchSupported())
	assert.True(t, AllSources.ExtraIndicesSearchSupported())
}

type countingClassifier struct{ calls atomic.Int32 }

func (c *countingClassifier) Classify(*ParsedQuery) []string {
	c.calls.Add(1)
	return []string{"simple_bag_of_words"}
}

func TestParsedQueryMemoizesDerivedValues(t *testing.T) {
	c := &countingClassifier{}
	pq := NewParsedQuery(
		&WordsQueryNode{Span: span(0, 3), Words: "foo"},
		"foo", "foo?", Cleanups{StrippedQuestionMarks: true}, nil, c,
	)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, []string{"simple_bag_of_words"}, pq.Classes())
			assert.Equal(t, AllSources, pq.CrossSearchStrategy())
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, c.calls.Load())

	assert.Equal(t, 4, pq.RawLength())
	assert.True(t, pq.HasCleanup())
	assert.Equal(t, map[string]any{"stripped_qmark": true}, pq.ToArray()["queryCleanups"])
	_, hasWarnings := pq.ToArray()["warnings"]
	assert.False(t, hasWarnings)
}

func TestParsedQueryCopiesWarnings(t *testing.T) {
	warnings := []ParseWarning{NewWarning("cirrussearch-parse-error-unexpected-end", 3, "OR")}
	pq := NewParsedQuery(&EmptyQueryNode{}, "", "", Cleanups{}, warnings, nil)
	warnings[0].Message = "changed"

	got := pq.Warnings()
	require.Len(t, got, 1)
	assert.Equal(t, "cirrussearch-parse-error-unexpected-end", got[0].Message)
	got[0].Message = "changed again"
	assert.Equal(t, "cirrussearch-parse-error-unexpected-end", pq.Warnings()[0].Message)

	assert.Equal(t, []any{map[string]any{
		"message": "cirrussearch-parse-error-unexpected-end",
		"start":   3,
		"end":     3,
		"params":  []any{"OR"},
	}}, pq.ToArray()["warnings"])
	assert.Empty(t, pq.Classes())
}
