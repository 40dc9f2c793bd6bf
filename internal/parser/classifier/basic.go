package classifier

import (
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/ast"
)

const (
	SimpleBagOfWords       = "simple_bag_of_words"
	SimplePhrase           = "simple_phrase_query"
	BagOfWordsWithPhrase   = "bag_of_words_with_phrase_query"
	ComplexQuery           = "complex_query"
	BogusQuery             = "bogus_query"
	MoreLikeOnly           = "more_like_only"
	CrossSearchHostOnly    = "cross_search_host_only"
	moreLikeKeyword        = "morelike"
	maxDepthWordsAndPhrase = 1
)

// RegisterBasic installs the built-in syntactic classes.
func RegisterBasic(r *Repository) error {
	basic := map[string]Predicate{
		SimpleBagOfWords: func(pq *ast.ParsedQuery) bool {
			s := inspect(pq)
			return !s.complex && s.maxDepth == 0 && s.words && !s.simplePhrase
		},
		SimplePhrase: func(pq *ast.ParsedQuery) bool {
			s := inspect(pq)
			return !s.complex && s.maxDepth == 0 && !s.words && s.simplePhrase
		},
		BagOfWordsWithPhrase: func(pq *ast.ParsedQuery) bool {
			s := inspect(pq)
			return !s.complex && s.maxDepth == maxDepthWordsAndPhrase && s.words && s.simplePhrase
		},
		ComplexQuery: func(pq *ast.ParsedQuery) bool {
			return inspect(pq).complex
		},
		BogusQuery: func(pq *ast.ParsedQuery) bool {
			return len(pq.Warnings()) > 0
		},
		MoreLikeOnly: func(pq *ast.ParsedQuery) bool {
			if inspect(pq).maxDepth != 0 {
				return false
			}
			for _, f := range pq.FeaturesUsed() {
				if f == moreLikeKeyword {
					return true
				}
			}
			return false
		},
		CrossSearchHostOnly: func(pq *ast.ParsedQuery) bool {
			return pq.CrossSearchStrategy() == ast.HostSourceOnly
		},
	}
	for name, p := range basic {
		if err := r.Register(name, p); err != nil {
			return err
		}
	}
	return nil
}

// shape summarizes the syntax a query uses.
type shape struct {
	words        bool
	simplePhrase bool
	complex      bool
	depth        int
	maxDepth     int
}

func inspect(pq *ast.ParsedQuery) *shape {
	s := &shape{}
	pq.Root().Accept(s)
	return s
}

func (s *shape) VisitWords(*ast.WordsQueryNode) { s.words = true }

func (s *shape) VisitPhrase(n *ast.PhraseQueryNode) {
	switch {
	case n.Stem || n.Slop != -1:
		s.complex = true
	case !n.Unbalanced:
		s.simplePhrase = true
	}
}

func (s *shape) VisitPhrasePrefix(*ast.PhrasePrefixNode) { s.complex = true }
func (s *shape) VisitWildcard(*ast.WildcardNode) { s.complex = true }
func (s *shape) VisitFuzzy(*ast.FuzzyNode) { s.complex = true }
func (s *shape) VisitPrefix(*ast.PrefixNode) { s.complex = true }
func (s *shape) VisitKeyword(*ast.KeywordFeatureNode) { s.complex = true }
func (s *shape) VisitNegated(*ast.NegatedNode) { s.complex = true }

// Namespace headers restrict where to search, not what, so their child is
// not inspected.
func (s *shape) VisitNamespaceHeader(*ast.NamespaceHeaderNode) {}
func (s *shape) VisitEmpty(*ast.EmptyQueryNode) {}

func (s *shape) VisitBoolean(n *ast.ParsedBooleanNode) {
	for _, c := range n.Clauses {
		if s.complex {
			return
		}
		s.depth++
		s.maxDepth = max(s.maxDepth, s.depth)
		if c.Explicit || c.Occur == ast.MustNot {
			s.complex = true
		}
		c.Node.Accept(s)
		s.depth--
	}
}
