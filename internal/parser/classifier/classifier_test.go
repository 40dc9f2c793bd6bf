package classifier

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/ast"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/keyword"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/querystring"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/errors"
)

func basicRepository(t *testing.T) *Repository {
	t.Helper()
	repo := NewRepository()
	require.NoError(t, RegisterBasic(repo))
	repo.Freeze()
	return repo
}

func TestBasicClasses(t *testing.T) {
	repo := basicRepository(t)
	parser, err := querystring.New(keyword.Builtin(), querystring.DefaultOptions(), repo)
	require.NoError(t, err)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"simple", "foo", []string{SimpleBagOfWords}},
		{"simple unquoted phrase", "foo bar", []string{SimpleBagOfWords}},
		{"empty", "", []string{}},
		{"simple phrase", `"hello world"`, []string{SimplePhrase}},
		{"simple unbalanced phrase", `hello "world`, []string{BogusQuery}},
		{"words and simple phrase", `hello "world"`, []string{BagOfWordsWithPhrase}},
		{"wildcard", "hop*d", []string{ComplexQuery}},
		{"prefix", "hop*", []string{ComplexQuery}},
		{"fuzzy", "hop~", []string{ComplexQuery}},
		{"phrase prefix", `"foo bar*"`, []string{ComplexQuery}},
		{"complex phrase", `"foo bar"~`, []string{ComplexQuery}},
		{"complex phrase bis", `"foo bar"~2~`, []string{ComplexQuery}},
		{"keyword", "intitle:foo", []string{ComplexQuery}},
		{"boolean", "hello AND world", []string{ComplexQuery}},
		{"negation", "hello -world", []string{ComplexQuery}},
		{"negation explicit", "hello AND NOT world", []string{ComplexQuery}},
		{"complex", `intitle:foo AND hello AND NOT world* AND "foo bar"~3~`, []string{ComplexQuery}},
		{"complex and bogus", `intitle:foo AND hello AND NOT -world* AND "foo bar"~3~`, []string{BogusQuery, ComplexQuery}},
		{"morelike only", "morelike:foo", []string{ComplexQuery, MoreLikeOnly}},
		{"two keywords", "intitle:foo incategory:bar", []string{ComplexQuery, CrossSearchHostOnly}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pq, err := parser.Parse(tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, repo.Classify(pq))
			assert.ElementsMatch(t, tt.want, pq.Classes())
		})
	}
}

func TestRepositoryRegistration(t *testing.T) {
	repo := NewRepository()
	always := func(*ast.ParsedQuery) bool { return true }

	require.NoError(t, repo.Register("always", always))
	err := repo.Register("always", always)
	assert.True(t, errors.Is(err, apperrors.ErrClassifierConflict))

	err = repo.Register("", always)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))
	err = repo.Register("nil", nil)
	assert.True(t, errors.Is(err, apperrors.ErrInvalidInput))

	p, err := repo.Get("always")
	require.NoError(t, err)
	assert.True(t, p(nil))

	_, err = repo.Get("missing")
	assert.True(t, errors.Is(err, apperrors.ErrClassifierNotFound))

	repo.Freeze()
	err = repo.Register("late", always)
	assert.True(t, errors.Is(err, apperrors.ErrClassifierConflict))
	assert.Equal(t, []string{"always"}, repo.Names())
}

func TestRegisterBasicTwiceConflicts(t *testing.T) {
	repo := basicRepository(t)
	assert.Equal(t, []string{
		BagOfWordsWithPhrase,
		BogusQuery,
		ComplexQuery,
		CrossSearchHostOnly,
		MoreLikeOnly,
		SimpleBagOfWords,
		SimplePhrase,
	}, repo.Names())

	fresh := NewRepository()
	require.NoError(t, RegisterBasic(fresh))
	assert.Error(t, RegisterBasic(fresh))
}
