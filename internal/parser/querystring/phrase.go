package querystring

import (
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/ast"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/lexer"
)

const msgUnbalancedPhrase = "cirrus-parse-error-unbalanced-phrase"

// parsePhrase consumes an optionally negated quoted phrase. It never fails
// once a quote opens: a phrase missing its closing quote takes the rest of
// the query and raises a warning.
func parsePhrase(s *lexer.Scanner) (ast.Node, []ast.ParseWarning, bool) {
	start := s.Pos()
	negation := ""
	if r := s.Peek(0); (r == '-' || r == '!') && s.Peek(1) == '"' {
		negation = string(r)
		s.Seek(start + 1)
	}
	quoteStart := s.Pos()
	tok, ok := s.Quoted()
	if !ok {
		s.Seek(start)
		return nil, nil, false
	}

	var node ast.Node
	var warnings []ast.ParseWarning
	switch {
	case tok.Truncated:
		node = &ast.PhraseQueryNode{
			Span:       ast.Span{StartOffset: quoteStart, EndOffset: tok.End},
			Phrase:     tok.Value,
			Slop:       -1,
			Unbalanced: true,
		}
		warnings = append(warnings, ast.NewWarning(msgUnbalancedPhrase, quoteStart))
	case s.Peek(0) == '*':
		s.Seek(s.Pos() + 1)
		node = &ast.PhrasePrefixNode{
			Span:   ast.Span{StartOffset: quoteStart, EndOffset: s.Pos()},
			Phrase: tok.Value,
		}
	case isInnerPrefix(tok.Value):
		node = &ast.PhrasePrefixNode{
			Span:   ast.Span{StartOffset: quoteStart, EndOffset: tok.End},
			Phrase: strings.TrimSuffix(tok.Value, "*"),
		}
	default:
		slop, stem := phraseSuffix(s)
		node = &ast.PhraseQueryNode{
			Span:   ast.Span{StartOffset: quoteStart, EndOffset: s.Pos()},
			Phrase: tok.Value,
			Slop:   slop,
			Stem:   stem,
		}
	}

	if negation != "" {
		node = &ast.NegatedNode{
			Span:         ast.Span{StartOffset: start, EndOffset: node.End()},
			Child:        node,
			NegationType: negation,
		}
	}
	return node, warnings, true
}

// isInnerPrefix matches "foo bar*": a trailing star right after a word
// character inside the quotes.
func isInnerPrefix(phrase string) bool {
	runes := []rune(phrase)
	n := len(runes)
	return n >= 2 && runes[n-1] == '*' && lexer.IsWordChar(runes[n-2])
}

// phraseSuffix consumes ~N (slop) and a bare ~ (stemming), in that order.
func phraseSuffix(s *lexer.Scanner) (int, bool) {
	slop := -1
	if s.Peek(0) == '~' && isDigit(s.Peek(1)) {
		end := s.Pos() + 1
		for end < s.Len() && isDigit(s.Source()[end]) {
			end++
		}
		if n, err := strconv.Atoi(s.Text(s.Pos()+1, end)); err == nil {
			slop = n
		}
		s.Seek(end)
	}
	stem := false
	if s.Peek(0) == '~' && !isDigit(s.Peek(1)) {
		s.Seek(s.Pos() + 1)
		stem = true
	}
	return slop, stem
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }
