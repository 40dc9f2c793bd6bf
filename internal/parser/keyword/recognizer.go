package keyword

import (
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/ast"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/lexer"
)

// Options tunes value recognition.
type Options struct {
	EnableRegex   bool
	MaxConditions int
}

// Recognizer matches [-]name:value at a clause boundary.
type Recognizer struct {
	registry *Registry
	opts     Options
}

func NewRecognizer(registry *Registry, opts Options) *Recognizer {
	return &Recognizer{registry: registry, opts: opts}
}

// Match is a recognized keyword with the warnings raised by its value.
type Match struct {
	Node     *ast.KeywordFeatureNode
	Warnings []ast.ParseWarning
}

// Match tries to consume a keyword at the scanner position, which the
// caller must have verified to be a clause boundary. headerAllowed is true
// only while no other clause has been read. On failure the scanner is left
// where it was.
func (r *Recognizer) Match(s *lexer.Scanner, headerAllowed bool) (Match, bool) {
	start := s.Pos()
	m, ok := r.match(s, start, headerAllowed)
	if !ok {
		s.Seek(start)
	}
	return m, ok
}

func (r *Recognizer) match(s *lexer.Scanner, start int, headerAllowed bool) (Match, bool) {
	negated := false
	if s.Peek(0) == '-' {
		negated = true
		s.Seek(start + 1)
	}
	name, ok := s.Identifier()
	if !ok {
		return Match{}, false
	}
	def, ok := r.registry.Lookup(name.Text)
	if !ok {
		return Match{}, false
	}
	s.Colon()

	node := &ast.KeywordFeatureNode{Key: name.Text, Feature: def.Name, Negated: negated}
	var warnings []ast.ParseWarning
	valueStart := s.Pos()
	val := Value{Key: name.Text, Start: valueStart, Negated: negated, MaxConditions: r.opts.MaxConditions}

	switch {
	case def.QueryHeader:
		if !headerAllowed || negated {
			return Match{}, false
		}
		if next := s.Peek(0); next != 0 && !lexer.IsWhitespace(next) {
			return Match{}, false
		}

	case def.Greedy:
		text := s.Rest().Text
		if strings.TrimFunc(text, lexer.IsWhitespace) == "" && !def.AllowEmptyValue {
			return Match{}, false
		}
		node.Value = text
		val.Text = text

	case def.Regex && s.Peek(0) == '/':
		// The span is the same with regex disabled; only the search
		// semantics change.
		tok, _ := s.Regex()
		if tok.Truncated {
			warnings = append(warnings, ast.NewWarning("cirrussearch-parse-error-unbalanced-regex", tok.Start))
			node.Value = tok.Text
			val.Text = tok.Text
			break
		}
		if !r.opts.EnableRegex {
			warnings = append(warnings, ast.NewWarning("cirrussearch-feature-not-available", valueStart, name.Text+" regex"))
		}
		node.Value = tok.Value
		node.QuotedValue = tok.Text
		node.Delimiter = "/"
		node.Suffix = tok.Suffix
		val.Text, val.Regex, val.Suffix = tok.Value, r.opts.EnableRegex, tok.Suffix

	case s.Peek(0) == '"':
		tok, ok := s.QuotedEscaped()
		if !ok {
			return Match{}, false
		}
		text := strings.ReplaceAll(tok.Value, `\"`, `"`)
		node.Value = text
		node.QuotedValue = tok.Text
		node.Delimiter = `"`
		if s.Peek(0) == '~' {
			s.Seek(s.Pos() + 1)
			node.Suffix = "~"
		}
		val.Text, val.Quoted, val.Suffix = text, true, node.Suffix

	default:
		end := valueStart
		for end < s.Len() {
			c := s.Source()[end]
			if c == '"' || lexer.IsWhitespace(c) {
				break
			}
			end++
		}
		if end == valueStart && !def.AllowEmptyValue {
			return Match{}, false
		}
		s.Seek(end)
		node.Value = s.Text(valueStart, end)
		val.Text = node.Value
	}

	node.Span = ast.Span{StartOffset: start, EndOffset: s.Pos()}
	parsed, valueWarnings := def.Parse(val)
	node.ParsedValue = parsed
	warnings = append(warnings, valueWarnings...)
	return Match{Node: node, Warnings: warnings}, true
}
