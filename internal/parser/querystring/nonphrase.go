package querystring

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/ast"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/lexer"
)

const msgFuzzyDistance = "cirrussearch-parse-error-fuzzy-distance"

const wordClass = `[\p{L}\p{N}\p{Mn}_]`

var (
	fuzzyWord  = regexp.MustCompile(`^(` + wordClass + `+)~(\d*)$`)
	prefixWord = regexp.MustCompile(`^(` + wordClass + `+)\*+$`)

	// At most three wildcards, each preceded by word characters.
	wildcardWord = regexp.MustCompile(`^(?:` + wordClass + `+[?*]){1,3}` + wordClass + `*$`)

	// A leading wildcard followed by a word, then at most two more.
	leadingWildcardWord = regexp.MustCompile(
		`^[?*]` + wordClass + `+(?:[?*](?:` + wordClass + `+(?:[?*]` + wordClass + `*)?)?)?$`)
)

// parseNonPhrase consumes an optionally negated bare term and classifies
// it as fuzzy, prefix, wildcard or plain words.
func parseNonPhrase(s *lexer.Scanner, allowLeadingWildcard bool) (ast.Node, []ast.ParseWarning, bool) {
	start := s.Pos()
	neg, negated := s.Negation(lexer.IsWordChar)
	tok, ok := s.Word()
	if !ok {
		s.Seek(start)
		return nil, nil, false
	}
	node, warnings := classifyTerm(tok, allowLeadingWildcard)
	if negated {
		node = &ast.NegatedNode{
			Span:         ast.Span{StartOffset: start, EndOffset: tok.End},
			Child:        node,
			NegationType: neg.Text,
		}
	}
	return node, warnings, true
}

func classifyTerm(tok lexer.Token, allowLeadingWildcard bool) (ast.Node, []ast.ParseWarning) {
	span := ast.Span{StartOffset: tok.Start, EndOffset: tok.End}
	raw := tok.Text

	if m := fuzzyWord.FindStringSubmatch(raw); m != nil {
		fuzziness := DefaultFuzziness
		var warnings []ast.ParseWarning
		switch n, err := strconv.Atoi(m[2]); {
		case m[2] == "":
		case err == nil && len(m[2]) == 1 && n <= 2:
			fuzziness = n
		default:
			warnings = append(warnings, ast.NewWarning(msgFuzzyDistance, tok.Start, m[2]))
		}
		return &ast.FuzzyNode{Span: span, Word: m[1], Fuzziness: fuzziness}, warnings
	}
	if m := prefixWord.FindStringSubmatch(raw); m != nil {
		return &ast.PrefixNode{Span: span, Prefix: m[1]}, nil
	}
	if strings.ContainsAny(raw, "*?") {
		leading := raw[0] == '*' || raw[0] == '?'
		if (leading && allowLeadingWildcard && leadingWildcardWord.MatchString(raw)) ||
			(!leading && wildcardWord.MatchString(raw)) {
			return &ast.WildcardNode{Span: span, Wildcard: raw}, nil
		}
	}
	return &ast.WordsQueryNode{Span: span, Words: lexer.Unescape(raw)}, nil
}
