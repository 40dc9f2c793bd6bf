package keyword

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/lexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/errors"
)

func match(t *testing.T, opts Options, input string, pos int) (Match, bool, int) {
	t.Helper()
	s := lexer.NewScanner([]rune(input))
	s.Seek(pos)
	m, ok := NewRecognizer(Builtin(), opts).Match(s, pos == 0)
	return m, ok, s.Pos()
}

func TestRegistryValidation(t *testing.T) {
	tests := []struct {
		name string
		defs []Definition
	}{
		{"nil parser", []Definition{{Name: "intitle"}}},
		{"empty name", []Definition{{Name: "", Parse: parseRaw}}},
		{"colon", []Definition{{Name: "in:title", Parse: parseRaw}}},
		{"space", []Definition{{Name: "in title", Parse: parseRaw}}},
		{"duplicate", []Definition{{Name: "a", Parse: parseRaw}, {Name: "b", Aliases: []string{"a"}, Parse: parseRaw}}},
		{"greedy header", []Definition{{Name: "a", Greedy: true, QueryHeader: true, Parse: parseRaw}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry(tt.defs...)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrInvalidKeyword))
		})
	}
}

func TestRegistrySubset(t *testing.T) {
	reg := Builtin()
	sub, err := reg.Subset([]string{"intitle", "deepcategory"})
	require.NoError(t, err)
	assert.Equal(t, []string{"deepcat", "deepcategory", "intitle"}, sub.Names())

	_, err = reg.Subset([]string{"intitle", "nosuchkeyword"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrUnknownKeyword))

	all, err := reg.Subset(nil)
	require.NoError(t, err)
	assert.Equal(t, reg.Len(), all.Len())
}

func TestMatchForms(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		key       string
		value     string
		delimiter string
		negated   bool
		end       int
	}{
		{"bare", "intitle:foo bar", "intitle", "foo", "", false, 11},
		{"negated", "-intitle:foo", "intitle", "foo", "", true, 12},
		{"quoted", `intitle:"foo bar" baz`, "intitle", "foo bar", `"`, false, 17},
		{"quoted escape", `intitle:"a \"b\""`, "intitle", `a "b"`, `"`, false, 17},
		{"greedy keeps trailing space", `prefix:"test foo " bar `, "prefix", `"test foo " bar `, "", false, 23},
		{"alias", "deepcategory:Cats", "deepcategory", "Cats", "", false, 17},
		{"stops at quote", `intitle:foo"bar"`, "intitle", "foo", "", false, 11},
		{"empty allowed", "prefer-recent: foo", "prefer-recent", "", "", false, 14},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok, end := match(t, Options{}, tt.input, 0)
			require.True(t, ok)
			assert.Equal(t, tt.key, m.Node.Key)
			assert.Equal(t, tt.value, m.Node.Value)
			assert.Equal(t, tt.delimiter, m.Node.Delimiter)
			assert.Equal(t, tt.negated, m.Node.Negated)
			assert.Equal(t, tt.end, end)
			assert.Equal(t, 0, m.Node.Start())
			assert.Equal(t, tt.end, m.Node.End())
		})
	}
}

func TestNoMatchLeavesPosition(t *testing.T) {
	inputs := []string{
		"unknown:foo",
		"intitle:",
		`intitle:"unterminated`,
		"intitle",
		"prefix:",
		"foo",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, ok, end := match(t, Options{}, in, 0)
			assert.False(t, ok)
			assert.Equal(t, 0, end)
		})
	}
}

func TestQueryHeader(t *testing.T) {
	m, ok, _ := match(t, Options{}, "local: foo", 0)
	require.True(t, ok)
	assert.Equal(t, "local", m.Node.Key)
	assert.Equal(t, 6, m.Node.End())

	_, ok, _ = match(t, Options{}, "foo local: bar", 4)
	assert.False(t, ok, "header keywords only at query start")

	_, ok, _ = match(t, Options{}, "local:foo", 0)
	assert.False(t, ok)
}

func TestRegexValues(t *testing.T) {
	m, ok, _ := match(t, Options{EnableRegex: true}, "intitle:/fo+/i", 0)
	require.True(t, ok)
	assert.Equal(t, "fo+", m.Node.Value)
	assert.Equal(t, "/", m.Node.Delimiter)
	assert.Equal(t, "i", m.Node.Suffix)
	assert.Equal(t, map[string]any{"pattern": "fo+", "caseInsensitive": true}, m.Node.ParsedValue.ToArray())
	assert.Empty(t, m.Warnings)

	m, ok, _ = match(t, Options{}, "intitle:/fo+/", 0)
	require.True(t, ok)
	assert.Equal(t, "fo+", m.Node.Value)
	assert.Equal(t, "/", m.Node.Delimiter)
	assert.Equal(t, map[string]any{"text": "fo+"}, m.Node.ParsedValue.ToArray())
	require.Len(t, m.Warnings, 1)
	assert.Equal(t, "cirrussearch-feature-not-available", m.Warnings[0].Message)

	m, ok, _ = match(t, Options{EnableRegex: true}, "insource:/abc", 0)
	require.True(t, ok)
	require.Len(t, m.Warnings, 1)
	assert.Equal(t, "cirrussearch-parse-error-unbalanced-regex", m.Warnings[0].Message)
}

func TestRegexSpanIgnoresEnableRegex(t *testing.T) {
	for _, enabled := range []bool{false, true} {
		m, ok, end := match(t, Options{EnableRegex: enabled}, ` unrelated insource:/test\/"/i `, 11)
		require.True(t, ok)
		assert.Equal(t, 11, m.Node.Start())
		assert.Equal(t, 30, end)
		assert.Equal(t, "/", m.Node.Delimiter)
		assert.Equal(t, `test/"`, m.Node.Value)
		assert.Equal(t, `/test\/"/i`, m.Node.QuotedValue)
		assert.Equal(t, "i", m.Node.Suffix)
		if enabled {
			assert.Empty(t, m.Warnings)
		} else {
			require.Len(t, m.Warnings, 1)
			assert.Equal(t, "cirrussearch-feature-not-available", m.Warnings[0].Message)
		}
	}
}

func TestGreedyAtQueryEnd(t *testing.T) {
	_, ok, end := match(t, Options{}, "prefix:   ", 0)
	assert.False(t, ok, "whitespace alone is not a value")
	assert.Equal(t, 0, end)

	m, ok, end := match(t, Options{}, "morelike:a|b ", 0)
	require.True(t, ok)
	assert.Equal(t, 13, end)
	assert.Equal(t, "a|b ", m.Node.Value)
	assert.Equal(t, map[string]any{"titles": []string{"a", "b"}}, m.Node.ParsedValue.ToArray())
}

func TestAliasResolvesToFeature(t *testing.T) {
	m, ok, _ := match(t, Options{}, "deepcategory:Cats", 0)
	require.True(t, ok)
	assert.Equal(t, "deepcategory", m.Node.Key)
	assert.Equal(t, "deepcat", m.Node.Feature)
	assert.Equal(t, "deepcat", m.Node.FeatureName())

	m, ok, _ = match(t, Options{}, "intitle:foo", 0)
	require.True(t, ok)
	assert.Equal(t, "intitle", m.Node.Feature)
}

func TestParsedValues(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		want     map[string]any
		warnings []string
	}{
		{
			"categories", "incategory:Cats|id:123|Dogs",
			map[string]any{"names": []string{"Cats", "Dogs"}, "pageIds": []string{"123"}}, nil,
		},
		{
			"templates", "hastemplate:Foo|:Bar|Template:Baz",
			map[string]any{"templates": []string{"Template:Foo", "Bar", "Template:Baz"}}, nil,
		},
		{
			"prefer recent", "prefer-recent:.5,30",
			map[string]any{"decay": 0.5, "halfLife": 30.0}, nil,
		},
		{
			"prefer recent defaults", "prefer-recent:",
			map[string]any{"decay": 0.6, "halfLife": 160.0}, nil,
		},
		{
			"file size greater", "filesize:>100",
			map[string]any{"field": "file_size", "sign": 1, "value": 100}, nil,
		},
		{
			"file width range", "filew:100,500",
			map[string]any{"field": "file_width", "min": 100, "max": 500}, nil,
		},
		{
			"languages", "inlanguage:en,fr",
			map[string]any{"languages": []string{"en", "fr"}}, nil,
		},
		{
			"topics lower cased", "articletopic:Music|Sports",
			map[string]any{"topics": []string{"music", "sports"}}, nil,
		},
		{
			"page ids", "pageid:12|abc|34",
			map[string]any{"pageIds": []string{"12", "34"}}, []string{"cirrussearch-feature-pageid-invalid-id"},
		},
		{
			"boost templates", `boost-templates:"Template:Good|150% Bad"`,
			map[string]any{"boosts": map[string]any{"Template:Good": 1.5}}, []string{"cirrussearch-boost-templates-invalid"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, ok, _ := match(t, Options{}, tt.input, 0)
			require.True(t, ok)
			require.NotNil(t, m.Node.ParsedValue)
			assert.Equal(t, tt.want, m.Node.ParsedValue.ToArray())
			var got []string
			for _, w := range m.Warnings {
				got = append(got, w.Message)
			}
			assert.Equal(t, tt.warnings, got)
		})
	}
}

func TestFileNumericWarnings(t *testing.T) {
	m, ok, _ := match(t, Options{}, "filesize:big", 0)
	require.True(t, ok)
	assert.Nil(t, m.Node.ParsedValue)
	require.Len(t, m.Warnings, 1)
	assert.Equal(t, "cirrussearch-file-numeric-feature-not-a-number", m.Warnings[0].Message)
	assert.Equal(t, []any{"filesize", "big"}, m.Warnings[0].Params)

	m, ok, _ = match(t, Options{}, "fileh:>1,2", 0)
	require.True(t, ok)
	require.Len(t, m.Warnings, 1)
	assert.Equal(t, "cirrussearch-file-numeric-feature-multi-argument-w-sign", m.Warnings[0].Message)
}

func TestTooManyCategories(t *testing.T) {
	m, ok, _ := match(t, Options{MaxConditions: 2}, "incategory:a|b|c", 0)
	require.True(t, ok)
	require.Len(t, m.Warnings, 1)
	assert.Equal(t, "cirrussearch-feature-too-many-conditions", m.Warnings[0].Message)
	assert.Equal(t, []any{"incategory", 2}, m.Warnings[0].Params)
	assert.Equal(t, []string{"a", "b"}, m.Node.ParsedValue.(CategoryValue).Names)
}
