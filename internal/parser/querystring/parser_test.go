package querystring

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/ast"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/keyword"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/errors"
)

func newParser(t *testing.T, mutate func(*Options)) *Parser {
	t.Helper()
	opts := DefaultOptions()
	if mutate != nil {
		mutate(&opts)
	}
	p, err := New(keyword.Builtin(), opts, nil)
	require.NoError(t, err)
	return p
}

func mustParse(t *testing.T, p *Parser, query string) *ast.ParsedQuery {
	t.Helper()
	pq, err := p.Parse(query)
	require.NoError(t, err, "query %q", query)
	return pq
}

func warningKeys(pq *ast.ParsedQuery) []string {
	var keys []string
	for _, w := range pq.Warnings() {
		keys = append(keys, w.Message)
	}
	return keys
}

type clauseShape struct {
	occur    ast.Occur
	explicit bool
	text     string
}

// shape renders each clause node as the source text it covers.
func shape(t *testing.T, pq *ast.ParsedQuery) []clauseShape {
	t.Helper()
	root, ok := pq.Root().(*ast.ParsedBooleanNode)
	require.True(t, ok, "root is %T", pq.Root())
	src := []rune(pq.Query())
	out := make([]clauseShape, len(root.Clauses))
	for i, c := range root.Clauses {
		out[i] = clauseShape{c.Occur, c.Explicit, string(src[c.Node.Start():c.Node.End()])}
	}
	return out
}

func TestEmptyQuery(t *testing.T) {
	p := newParser(t, nil)
	for _, q := range []string{"", "   "} {
		pq := mustParse(t, p, q)
		empty, ok := pq.Root().(*ast.EmptyQueryNode)
		require.True(t, ok)
		assert.Equal(t, 0, empty.Start())
		assert.Equal(t, len(q), empty.End())
		assert.Equal(t, ast.AllSources, pq.CrossSearchStrategy())
	}
}

func TestUnterminatedTrailingQuote(t *testing.T) {
	pq := mustParse(t, newParser(t, nil), `test "`)
	root, ok := pq.Root().(*ast.ParsedBooleanNode)
	require.True(t, ok)
	require.Len(t, root.Clauses, 2)
	phrase, ok := root.Clauses[1].Node.(*ast.PhraseQueryNode)
	require.True(t, ok)
	assert.Equal(t, "", phrase.Phrase)
	assert.True(t, phrase.Unbalanced)
	assert.Equal(t, []string{msgUnbalancedPhrase}, warningKeys(pq))
}

func TestSoftLengthLimit(t *testing.T) {
	p := newParser(t, func(o *Options) { o.MaxQueryLength = 10 })

	_, err := p.Parse("aaaaaaaaaaa")
	require.Error(t, err)
	var tooLong *QueryTooLongError
	require.True(t, errors.As(err, &tooLong))
	assert.False(t, tooLong.Hard)
	assert.Equal(t, 11, tooLong.Actual)
	assert.Equal(t, 10, tooLong.Limit)
	assert.Equal(t, msgQueryTooLong, tooLong.MessageKey())
	assert.True(t, errors.Is(err, apperrors.ErrQueryTooLong))
	assert.True(t, errors.Is(err, apperrors.ErrSoftLengthExceeded))
	assert.False(t, errors.Is(err, apperrors.ErrHardLengthExceeded))

	_, err = p.Parse("aaaaaaaaaa")
	assert.NoError(t, err)
}

func TestSoftLimitKeywordExemption(t *testing.T) {
	p := newParser(t, func(o *Options) { o.MaxQueryLength = 10 })

	_, err := p.Parse("incategory:test " + strings.Repeat("a", 10))
	var tooLong *QueryTooLongError
	require.True(t, errors.As(err, &tooLong))
	assert.Equal(t, 26, tooLong.Actual)
	assert.Equal(t, 10+len("incategory:test"), tooLong.Limit)
	assert.Equal(t, msgQueryTooLongWithExemptions, tooLong.MessageKey())
	assert.Equal(t, []any{26, 25}, tooLong.Params())

	_, err = p.Parse("incategory:test " + strings.Repeat("a", 9))
	assert.NoError(t, err)

	_, err = p.Parse("-incategory:test aaaaaaaaa")
	assert.NoError(t, err, "the negation sign is part of the exempted span")

	_, err = p.Parse("!incategory:test aaaaaaaaa")
	assert.NoError(t, err, "a ! prefix is exempted like -")

	_, err = p.Parse("!incategory:test aaaaaaaaaa")
	require.True(t, errors.As(err, &tooLong))
	assert.Equal(t, []any{27, 26}, tooLong.Params())
}

func TestHardLengthLimit(t *testing.T) {
	p := newParser(t, func(o *Options) { o.MaxQueryLength = HardQueryLengthLimit * 2 })
	_, err := p.Parse(strings.Repeat("a", HardQueryLengthLimit+1))
	var tooLong *QueryTooLongError
	require.True(t, errors.As(err, &tooLong))
	assert.True(t, tooLong.Hard)
	assert.Equal(t, HardQueryLengthLimit, tooLong.Limit)
	assert.True(t, errors.Is(err, apperrors.ErrHardLengthExceeded))

	_, err = p.Parse(strings.Repeat("a", HardQueryLengthLimit))
	assert.NoError(t, err)

	lowered := newParser(t, func(o *Options) { o.HardQueryLengthLimit = 5; o.MaxQueryLength = 0 })
	_, err = lowered.Parse("abcdef")
	assert.True(t, errors.Is(err, apperrors.ErrHardLengthExceeded))

	raised := newParser(t, func(o *Options) { o.HardQueryLengthLimit = 10 * HardQueryLengthLimit; o.MaxQueryLength = 0 })
	_, err = raised.Parse(strings.Repeat("a", HardQueryLengthLimit+1))
	assert.True(t, errors.Is(err, apperrors.ErrHardLengthExceeded), "configuration cannot raise the ceiling")
}

func TestLengthCountsCodePoints(t *testing.T) {
	p := newParser(t, func(o *Options) { o.MaxQueryLength = 3 })
	_, err := p.Parse("ééé")
	assert.NoError(t, err)
}

func TestCrossSearchStrategy(t *testing.T) {
	p := newParser(t, nil)
	tests := []struct {
		query string
		want  ast.CrossSearchStrategy
	}{
		{"", ast.AllSources},
		{"foo bar", ast.AllSources},
		{"intitle:foo", ast.AllSources},
		{"intitle:foo -intitle:bar", ast.AllSources},
		{"intitle:foo incategory:test incategory:id:123", ast.HostSourceOnly},
		{"incategory:a OR !hastemplate:b", ast.HostSourceOnly},
		{"deepcat:a deepcategory:b", ast.AllSources},
		{"deepcategory:a intitle:b", ast.HostSourceOnly},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, mustParse(t, p, tt.query).CrossSearchStrategy())
		})
	}
}

func TestBooleanRoles(t *testing.T) {
	p := newParser(t, nil)
	tests := []struct {
		query string
		want  []clauseShape
	}{
		{"foo AND bar", []clauseShape{{ast.Must, true, "foo"}, {ast.Must, true, "bar"}}},
		{"foo && bar", []clauseShape{{ast.Must, true, "foo"}, {ast.Must, true, "bar"}}},
		{"a AND b OR c", []clauseShape{{ast.Must, true, "a"}, {ast.Should, true, "b"}, {ast.Should, true, "c"}}},
		{"a OR b AND c", []clauseShape{{ast.Should, true, "a"}, {ast.Must, true, "b"}, {ast.Must, true, "c"}}},
		{"a || b", []clauseShape{{ast.Should, true, "a"}, {ast.Should, true, "b"}}},
		{"a OR NOT b", []clauseShape{{ast.Should, true, "a"}, {ast.MustNot, true, "b"}}},
		{`a OR "b" c`, []clauseShape{{ast.Should, true, "a"}, {ast.Should, true, `"b"`}, {ast.Must, false, "c"}}},
		{"NOT AND foo", []clauseShape{{ast.MustNot, true, "AND"}, {ast.Must, false, "foo"}}},
		{"NOT NOT", []clauseShape{{ast.MustNot, true, "NOT"}}},
		{"-foo", []clauseShape{{ast.MustNot, false, "foo"}}},
		{"foo -bar baz", []clauseShape{{ast.Must, false, "foo"}, {ast.MustNot, false, "bar"}, {ast.Must, false, "baz"}}},
		{"foo !bar", []clauseShape{{ast.Must, false, "foo"}, {ast.MustNot, false, "bar"}}},
		{"foo AND AND bar", []clauseShape{{ast.Must, true, "foo"}, {ast.Must, true, "AND bar"}}},
		{"-foo AND", []clauseShape{{ast.MustNot, false, "foo"}, {ast.Must, false, "AND"}}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, shape(t, mustParse(t, p, tt.query)))
		})
	}
}

func TestOperatorFallbacks(t *testing.T) {
	p := newParser(t, nil)
	tests := []struct {
		query    string
		words    string
		warnings []string
	}{
		{"foo bar", "foo bar", nil},
		{"foo OR", "foo OR", []string{msgUnexpectedEnd}},
		{"foo AND", "foo AND", []string{msgUnexpectedEnd}},
		{"NOT", "NOT", []string{msgUnexpectedEnd}},
		{"AND foo", "AND foo", []string{msgUnexpectedToken}},
		{"NOT !foo", "foo", []string{msgDoubleNegation}},
		{"ANDROID OR1", "ANDROID OR1", nil},
		{`foo\ bar`, "foo bar", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			pq := mustParse(t, p, tt.query)
			words, ok := pq.Root().(*ast.WordsQueryNode)
			require.True(t, ok, "root is %T", pq.Root())
			assert.Equal(t, tt.words, words.Words)
			assert.Equal(t, tt.warnings, warningKeys(pq))
		})
	}
}

func TestTermClassification(t *testing.T) {
	tests := []struct {
		name    string
		query   string
		leading bool
		want    ast.Node
	}{
		{"fuzzy default", "foo~", false, &ast.FuzzyNode{Span: ast.Span{StartOffset: 0, EndOffset: 4}, Word: "foo", Fuzziness: 2}},
		{"fuzzy explicit", "foo~1", false, &ast.FuzzyNode{Span: ast.Span{StartOffset: 0, EndOffset: 5}, Word: "foo", Fuzziness: 1}},
		{"prefix", "foo**", false, &ast.PrefixNode{Span: ast.Span{StartOffset: 0, EndOffset: 5}, Prefix: "foo"}},
		{"wildcard", "fo*o", false, &ast.WildcardNode{Span: ast.Span{StartOffset: 0, EndOffset: 4}, Wildcard: "fo*o"}},
		{"question wildcard", `fo\?o`, false, &ast.WildcardNode{Span: ast.Span{StartOffset: 0, EndOffset: 4}, Wildcard: "fo?o"}},
		{"leading rejected", "*foo", false, &ast.WordsQueryNode{Span: ast.Span{StartOffset: 0, EndOffset: 4}, Words: "*foo"}},
		{"leading allowed", "*foo", true, &ast.WildcardNode{Span: ast.Span{StartOffset: 0, EndOffset: 4}, Wildcard: "*foo"}},
		{"too many wildcards", "a*b*c*d*", false, &ast.WordsQueryNode{Span: ast.Span{StartOffset: 0, EndOffset: 8}, Words: "a*b*c*d*"}},
		{"escaped star", `foo\*`, false, &ast.WordsQueryNode{Span: ast.Span{StartOffset: 0, EndOffset: 5}, Words: "foo*"}},
		{"unknown keyword", "foo:bar", false, &ast.WordsQueryNode{Span: ast.Span{StartOffset: 0, EndOffset: 7}, Words: "foo:bar"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newParser(t, func(o *Options) { o.AllowLeadingWildcard = tt.leading })
			assert.Equal(t, tt.want, mustParse(t, p, tt.query).Root())
		})
	}
}

func TestMalformedFuzzyDistance(t *testing.T) {
	pq := mustParse(t, newParser(t, nil), "foo~5")
	fuzzy, ok := pq.Root().(*ast.FuzzyNode)
	require.True(t, ok)
	assert.Equal(t, DefaultFuzziness, fuzzy.Fuzziness)
	assert.Equal(t, []string{msgFuzzyDistance}, warningKeys(pq))
}

func TestPhrases(t *testing.T) {
	p := newParser(t, nil)
	tests := []struct {
		query string
		want  ast.Node
	}{
		{`"foo bar"`, &ast.PhraseQueryNode{Span: ast.Span{StartOffset: 0, EndOffset: 9}, Phrase: "foo bar", Slop: -1}},
		{`"foo bar"~2`, &ast.PhraseQueryNode{Span: ast.Span{StartOffset: 0, EndOffset: 11}, Phrase: "foo bar", Slop: 2}},
		{`"foo bar"~`, &ast.PhraseQueryNode{Span: ast.Span{StartOffset: 0, EndOffset: 10}, Phrase: "foo bar", Slop: -1, Stem: true}},
		{`"foo bar"~2~`, &ast.PhraseQueryNode{Span: ast.Span{StartOffset: 0, EndOffset: 12}, Phrase: "foo bar", Slop: 2, Stem: true}},
		{`"foo bar"*`, &ast.PhrasePrefixNode{Span: ast.Span{StartOffset: 0, EndOffset: 10}, Phrase: "foo bar"}},
		{`"foo bar*"`, &ast.PhrasePrefixNode{Span: ast.Span{StartOffset: 0, EndOffset: 10}, Phrase: "foo bar"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, mustParse(t, p, tt.query).Root())
		})
	}

	// Backslashes do not escape quotes inside phrases.
	pq := mustParse(t, p, `"a \" b"`)
	assert.Equal(t, []clauseShape{{ast.Must, false, `"a \"`}, {ast.Must, false, `b`}, {ast.Must, false, `"`}}, shape(t, pq))
}

func TestNegatedPhrase(t *testing.T) {
	pq := mustParse(t, newParser(t, nil), `foo -"bar baz"`)
	root := pq.Root().(*ast.ParsedBooleanNode)
	require.Len(t, root.Clauses, 2)
	assert.Equal(t, ast.MustNot, root.Clauses[1].Occur)
	phrase, ok := root.Clauses[1].Node.(*ast.PhraseQueryNode)
	require.True(t, ok)
	assert.Equal(t, "bar baz", phrase.Phrase)
	assert.Equal(t, 5, phrase.Start())
	assert.Equal(t, 14, root.End())
}

func TestKeywordClauses(t *testing.T) {
	p := newParser(t, nil)

	pq := mustParse(t, p, "intitle:foo bar")
	assert.Equal(t, []clauseShape{{ast.Must, false, "intitle:foo"}, {ast.Must, false, "bar"}}, shape(t, pq))
	assert.Equal(t, []string{"intitle"}, pq.FeaturesUsed())

	pq = mustParse(t, p, "-intitle:foo")
	kw, ok := pq.Root().(*ast.KeywordFeatureNode)
	require.True(t, ok)
	assert.True(t, kw.Negated)
	assert.Equal(t, 0, kw.Start())

	pq = mustParse(t, p, "!intitle:foo")
	assert.Equal(t, []clauseShape{{ast.MustNot, false, "intitle:foo"}}, shape(t, pq))

	pq = mustParse(t, p, "NOT -intitle:foo")
	kw, ok = pq.Root().(*ast.KeywordFeatureNode)
	require.True(t, ok)
	assert.False(t, kw.Negated)
	assert.Equal(t, []string{msgDoubleNegation}, warningKeys(pq))

	pq = mustParse(t, p, `"x"intitle:foo`)
	assert.Empty(t, pq.FeaturesUsed(), "keywords need a clause boundary")

	pq = mustParse(t, p, "prefix:foo bar baz")
	kw, ok = pq.Root().(*ast.KeywordFeatureNode)
	require.True(t, ok)
	assert.Equal(t, "foo bar baz", kw.Value)

	pq = mustParse(t, p, "foo local: bar")
	assert.Empty(t, pq.FeaturesUsed(), "query headers only at the start")
}

func TestRegexOption(t *testing.T) {
	on := mustParse(t, newParser(t, func(o *Options) { o.EnableRegex = true }), "intitle:/findit/")
	off := mustParse(t, newParser(t, nil), "intitle:/findit/")

	kwOn := on.Root().(*ast.KeywordFeatureNode)
	kwOff := off.Root().(*ast.KeywordFeatureNode)
	for _, kw := range []*ast.KeywordFeatureNode{kwOn, kwOff} {
		assert.Equal(t, "findit", kw.Value)
		assert.Equal(t, "/", kw.Delimiter)
		assert.Equal(t, 16, kw.End())
	}
	assert.Empty(t, on.Warnings())
	assert.Equal(t, []string{"cirrussearch-feature-not-available"}, warningKeys(off))
	assert.Equal(t, map[string]any{"pattern": "findit", "caseInsensitive": false}, kwOn.ParsedValue.ToArray())
	assert.Equal(t, map[string]any{"text": "findit"}, kwOff.ParsedValue.ToArray())
	assert.NotEqual(t, on.ToArray(), off.ToArray())
}

func TestRegexSpanWithRegexDisabled(t *testing.T) {
	p := newParser(t, nil)

	pq := mustParse(t, p, `insource:/a"b/ foo`)
	assert.Equal(t, []clauseShape{{ast.Must, false, `insource:/a"b/`}, {ast.Must, false, "foo"}}, shape(t, pq))
	assert.Equal(t, []string{"cirrussearch-feature-not-available"}, warningKeys(pq))

	pq = mustParse(t, p, ` unrelated insource:/test\/"/i `)
	root := pq.Root().(*ast.ParsedBooleanNode)
	require.Len(t, root.Clauses, 2)
	kw, ok := root.Clauses[1].Node.(*ast.KeywordFeatureNode)
	require.True(t, ok, "second clause is %T", root.Clauses[1].Node)
	assert.Equal(t, 11, kw.Start())
	assert.Equal(t, 30, kw.End())
	assert.Equal(t, "/", kw.Delimiter)
	assert.Equal(t, `test/"`, kw.Value)
	assert.Equal(t, "i", kw.Suffix)
}

func TestEscapedWhitespaceKeepsKeywordBoundary(t *testing.T) {
	p := newParser(t, nil)
	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"escaped space", `foo\ filew:100 fileh:200`, []string{"words", "keyword", "keyword"}},
		{"escaped backslash then space", `foo\\ filew:100 fileh:200`, []string{"words", "keyword", "keyword"}},
		{"no space before keyword", `foo\filew:100 fileh:200`, []string{"words", "keyword"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, ok := mustParse(t, p, tt.query).Root().(*ast.ParsedBooleanNode)
			require.True(t, ok)
			var got []string
			for _, c := range root.Clauses {
				switch c.Node.(type) {
				case *ast.WordsQueryNode:
					got = append(got, "words")
				case *ast.KeywordFeatureNode:
					got = append(got, "keyword")
				default:
					got = append(got, fmt.Sprintf("%T", c.Node))
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNamespaceHeader(t *testing.T) {
	p := newParser(t, func(o *Options) {
		o.Namespaces = map[string]int{"Help": 12, "User_talk": 3}
	})
	tests := []struct {
		query string
		name  string
		id    int
	}{
		{"help:foo", "help", 12},
		{"Help:foo", "Help", 12},
		{"user_talk:foo", "user_talk", 3},
		{"all:foo", "all", -1},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			pq := mustParse(t, p, tt.query)
			ns, ok := pq.Root().(*ast.NamespaceHeaderNode)
			require.True(t, ok, "root is %T", pq.Root())
			assert.Equal(t, tt.name, ns.Namespace)
			assert.Equal(t, tt.id, ns.NamespaceID)
			assert.Equal(t, &ast.WordsQueryNode{Span: ast.Span{StartOffset: len(tt.name) + 1, EndOffset: len(tt.query)}, Words: "foo"}, ns.Child)
		})
	}

	for _, q := range []string{"unknown:foo", "foo help:bar", "help: foo"} {
		pq := mustParse(t, p, q)
		ast.Walk(pq.Root(), func(n ast.Node) bool {
			_, isHeader := n.(*ast.NamespaceHeaderNode)
			assert.False(t, isHeader, "query %q", q)
			return true
		})
	}
}

func TestQuestionMarkStripping(t *testing.T) {
	tests := []struct {
		level   QuestionMarkStripLevel
		query   string
		cleaned string
	}{
		{StripNone, "Will this pass?", "Will this pass?"},
		{StripLanguageDefault, "Will this pass?", "Will this pass"},
		{StripFinal, "what? is this?? ", "what? is this"},
		{StripBreak, "what? is th?s", "what is th?s"},
		{StripAll, "what? is th?s", "what  is th s"},
		{StripAll, `escaped\? stays`, "escaped? stays"},
		{StripAll, "insource:foo?", "insource:foo?"},
		{StripAll, "???", "???"},
	}
	for _, tt := range tests {
		t.Run(string(tt.level)+" "+tt.query, func(t *testing.T) {
			pq := mustParse(t, newParser(t, func(o *Options) { o.StripQuestionMarks = tt.level }), tt.query)
			assert.Equal(t, tt.cleaned, pq.Query())
			assert.Equal(t, tt.query, pq.RawQuery())
			assert.Equal(t, tt.cleaned != tt.query, pq.Cleanups().StrippedQuestionMarks)
		})
	}
}

func TestGershayim(t *testing.T) {
	he := mustParse(t, newParser(t, func(o *Options) { o.LanguageCode = "he" }), `gershayi"m`)
	en := mustParse(t, newParser(t, nil), `gershayi"m`)

	words, ok := he.Root().(*ast.WordsQueryNode)
	require.True(t, ok)
	assert.Equal(t, `gershayi"m`, words.Words)
	assert.True(t, he.Cleanups().GershayimQuirks)
	assert.Equal(t, map[string]any{"gershayim_quirks": true}, he.ToArray()["queryCleanups"])

	_, ok = en.Root().(*ast.ParsedBooleanNode)
	assert.True(t, ok)
	assert.False(t, en.Cleanups().GershayimQuirks)
}

func TestToArray(t *testing.T) {
	pq := mustParse(t, newParser(t, nil), "foo AND bar")
	want := map[string]any{
		"query":    "foo AND bar",
		"rawQuery": "foo AND bar",
		"root": map[string]any{
			"bool": map[string]any{
				"startOffset": 0,
				"endOffset":   11,
				"clauses": []any{
					map[string]any{
						"occur":    "MUST",
						"explicit": true,
						"node": map[string]any{"words": map[string]any{
							"startOffset": 0, "endOffset": 3, "words": "foo",
						}},
					},
					map[string]any{
						"occur":    "MUST",
						"explicit": true,
						"node": map[string]any{"words": map[string]any{
							"startOffset": 8, "endOffset": 11, "words": "bar",
						}},
					},
				},
			},
		},
	}
	assert.Equal(t, want, pq.ToArray())
}

func TestOffsetsAreMonotonic(t *testing.T) {
	p := newParser(t, func(o *Options) { o.AllowLeadingWildcard = true })
	queries := []string{
		`a AND "b c" OR -d~ intitle:"x y" *e f* NOT g`,
		`!!! -- && || "`,
		`été "ü~" NOT -incategory:a|b ☃`,
		`foo\ bar "baz`,
	}
	for _, q := range queries {
		pq := mustParse(t, p, q)
		length := len([]rune(pq.Query()))
		prevEnd := 0
		if root, ok := pq.Root().(*ast.ParsedBooleanNode); ok {
			for _, c := range root.Clauses {
				assert.GreaterOrEqual(t, c.Node.Start(), prevEnd, "query %q", q)
				assert.LessOrEqual(t, c.Node.End(), length, "query %q", q)
				prevEnd = c.Node.End()
			}
		}
		assert.LessOrEqual(t, pq.Root().End(), length)
	}
}

func TestParseIsDeterministicAndConcurrent(t *testing.T) {
	p := newParser(t, nil)
	query := `intitle:foo "bar baz"~2 OR qux* -quux`
	want := mustParse(t, p, query).ToArray()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pq, err := p.Parse(query)
			if assert.NoError(t, err) {
				assert.Equal(t, want, pq.ToArray())
			}
		}()
	}
	wg.Wait()
}

func TestInvalidOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.StripQuestionMarks = "sometimes"
	_, err := New(keyword.Builtin(), opts, nil)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidConfig))
}

func BenchmarkParse(b *testing.B) {
	p, err := New(keyword.Builtin(), DefaultOptions(), nil)
	if err != nil {
		b.Fatal(err)
	}
	query := `intitle:foo "bar baz"~2 OR qux* -quux incategory:Cats|Dogs NOT fuzzy~1`
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := p.Parse(query); err != nil {
			b.Fatal(err)
		}
	}
}
