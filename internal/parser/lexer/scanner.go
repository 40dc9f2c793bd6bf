// Package lexer splits query strings into offset-addressable tokens. All
// offsets are code point indices, never byte indices.
package lexer

import (
	"strings"
	"unicode"
)

// IsWhitespace reports whether r separates clauses. Separators and control
// characters both count.
func IsWhitespace(r rune) bool {
	return unicode.In(r, unicode.Z, unicode.C) || unicode.IsSpace(r)
}

// IsWordChar reports whether r is a word character in the Unicode sense:
// letters, numbers, combining marks and the underscore.
func IsWordChar(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.Is(unicode.Mn, r)
}

// Scanner walks a rune slice. Every primitive either consumes a complete
// construct and advances, or leaves the position unchanged.
type Scanner struct {
	src []rune
	pos int
}

// NewScanner returns a scanner positioned at the start of src.
func NewScanner(src []rune) *Scanner {
	return &Scanner{src: src}
}

func (s *Scanner) Pos() int { return s.pos }
func (s *Scanner) Len() int { return len(s.src) }
func (s *Scanner) EOF() bool { return s.pos >= len(s.src) }
func (s *Scanner) Source() []rune { return s.src }

// Seek moves the scanner to pos, clamped to the input bounds.
func (s *Scanner) Seek(pos int) {
	switch {
	case pos < 0:
		s.pos = 0
	case pos > len(s.src):
		s.pos = len(s.src)
	default:
		s.pos = pos
	}
}

// Peek returns the rune at pos+n, or 0 past the end.
func (s *Scanner) Peek(n int) rune {
	i := s.pos + n
	if i < 0 || i >= len(s.src) {
		return 0
	}
	return s.src[i]
}

// Text returns the source text in [start,end).
func (s *Scanner) Text(start, end int) string {
	return string(s.src[start:end])
}

// Whitespace consumes a run of whitespace.
func (s *Scanner) Whitespace() (Token, bool) {
	start := s.pos
	for s.pos < len(s.src) && IsWhitespace(s.src[s.pos]) {
		s.pos++
	}
	if s.pos == start {
		return Token{}, false
	}
	return s.token(Whitespace, start), true
}

// Operator consumes AND, &&, OR, ||, or NOT when it is followed by
// whitespace, a double quote, or the end of input.
func (s *Scanner) Operator() (Token, bool) {
	for _, op := range operators {
		n := len(op)
		if s.pos+n > len(s.src) || string(s.src[s.pos:s.pos+n]) != op {
			continue
		}
		if next := s.Peek(n); next != 0 && next != '"' && !IsWhitespace(next) {
			continue
		}
		start := s.pos
		s.pos += n
		return s.token(Operator, start), true
	}
	return Token{}, false
}

var operators = []string{"AND", "&&", "OR", "||", "NOT"}

// Negation consumes a '-' or '!' prefix when the following rune satisfies
// next.
func (s *Scanner) Negation(next func(rune) bool) (Token, bool) {
	r := s.Peek(0)
	if r != '-' && r != '!' {
		return Token{}, false
	}
	if n := s.Peek(1); n == 0 || !next(n) {
		return Token{}, false
	}
	start := s.pos
	s.pos++
	return s.token(Negation, start), true
}

// Quoted consumes a double-quoted span. Quotes are structural only; a
// backslash does not escape them. Value holds the text between the quotes.
// Without a closing quote the span runs to the end of input and is marked
// Truncated.
func (s *Scanner) Quoted() (Token, bool) {
	if s.Peek(0) != '"' {
		return Token{}, false
	}
	start := s.pos
	for i := start + 1; i < len(s.src); i++ {
		if s.src[i] == '"' {
			s.pos = i + 1
			tok := s.token(Quote, start)
			tok.Value = string(s.src[start+1 : i])
			return tok, true
		}
	}
	s.pos = len(s.src)
	tok := s.token(Quote, start)
	tok.Value = string(s.src[start+1:])
	tok.Truncated = true
	return tok, true
}

// QuotedEscaped consumes a double-quoted span in which \" does not close
// the span. An unterminated span is not consumed. Value holds the raw text
// between the quotes, escapes included.
func (s *Scanner) QuotedEscaped() (Token, bool) {
	if s.Peek(0) != '"' {
		return Token{}, false
	}
	start := s.pos
	for i := start + 1; i < len(s.src); i++ {
		switch s.src[i] {
		case '\\':
			if i+1 < len(s.src) && s.src[i+1] == '"' {
				i++
			}
		case '"':
			s.pos = i + 1
			tok := s.token(Quote, start)
			tok.Value = string(s.src[start+1 : i])
			return tok, true
		}
	}
	return Token{}, false
}

// Regex consumes a /pattern/ span with an optional trailing i. Value holds
// the pattern with \/ unescaped. Without a closing slash the span runs to
// the next whitespace and is marked Truncated.
func (s *Scanner) Regex() (Token, bool) {
	if s.Peek(0) != '/' {
		return Token{}, false
	}
	start := s.pos
	var b strings.Builder
	for i := start + 1; i < len(s.src); i++ {
		r := s.src[i]
		if r == '\\' && i+1 < len(s.src) && s.src[i+1] == '/' {
			b.WriteRune('/')
			i++
			continue
		}
		if r == '/' {
			s.pos = i + 1
			suffix := ""
			if s.Peek(0) == 'i' {
				if n := s.Peek(1); n == 0 || IsWhitespace(n) {
					s.pos++
					suffix = "i"
				}
			}
			tok := s.token(Regex, start)
			tok.Value = b.String()
			tok.Suffix = suffix
			return tok, true
		}
		b.WriteRune(r)
	}
	end := start + 1
	for end < len(s.src) && !IsWhitespace(s.src[end]) {
		end++
	}
	s.pos = end
	tok := s.token(Regex, start)
	tok.Value = string(s.src[start+1 : end])
	tok.Truncated = true
	return tok, true
}

// Word consumes a run of non-whitespace runes. A backslash escapes the rune
// after it unless that rune is whitespace, so whitespace always ends the run.
// The run stops before a double quote, and before a '-' or '!' directly
// followed by a double quote.
func (s *Scanner) Word() (Token, bool) {
	start := s.pos
	i := s.pos
	for i < len(s.src) {
		r := s.src[i]
		if r == '\\' && i+1 < len(s.src) && !IsWhitespace(s.src[i+1]) {
			i += 2
			continue
		}
		if r == '"' || IsWhitespace(r) {
			break
		}
		if (r == '-' || r == '!') && i+1 < len(s.src) && s.src[i+1] == '"' {
			break
		}
		i++
	}
	if i == start {
		return Token{}, false
	}
	s.pos = i
	return s.token(Word, start), true
}

// Identifier consumes a keyword-like name immediately followed by ':'. The
// colon is not consumed.
func (s *Scanner) Identifier() (Token, bool) {
	start := s.pos
	i := s.pos
	for i < len(s.src) && isIdentRune(s.src[i]) {
		i++
	}
	if i == start || i >= len(s.src) || s.src[i] != ':' {
		return Token{}, false
	}
	s.pos = i
	return s.token(Word, start), true
}

// Colon consumes a single ':'.
func (s *Scanner) Colon() (Token, bool) {
	if s.Peek(0) != ':' {
		return Token{}, false
	}
	start := s.pos
	s.pos++
	return s.token(KeywordColon, start), true
}

// Rest consumes everything up to the end of input.
func (s *Scanner) Rest() Token {
	start := s.pos
	s.pos = len(s.src)
	return s.token(Word, start)
}

func (s *Scanner) token(kind Kind, start int) Token {
	return Token{Kind: kind, Start: start, End: s.pos, Text: string(s.src[start:s.pos])}
}

func isIdentRune(r rune) bool {
	return r != ':' && r != '"' && r != '\\' && !IsWhitespace(r)
}

// Unescape drops every backslash that escapes the following rune.
func Unescape(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	escaped := false
	for _, r := range s {
		if r == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(r)
	}
	if escaped {
		b.WriteRune('\\')
	}
	return b.String()
}
