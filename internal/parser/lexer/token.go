package lexer

// Kind is the lexical class of a token.
type Kind int

const (
	Word Kind = iota
	Quote
	Operator
	Negation
	KeywordColon
	WildcardMarker
	FuzzyMarker
	Regex
	Whitespace
)

func (k Kind) String() string {
	switch k {
	case Word:
		return "word"
	case Quote:
		return "quote"
	case Operator:
		return "operator"
	case Negation:
		return "negation"
	case KeywordColon:
		return "keyword_colon"
	case WildcardMarker:
		return "wildcard"
	case FuzzyMarker:
		return "fuzzy"
	case Regex:
		return "regex"
	case Whitespace:
		return "whitespace"
	default:
		return "unknown"
	}
}

// Token is an immutable lexical unit. Text is the raw source of
// [Start,End); Value is the decoded payload for quotes and regexes.
type Token struct {
	Kind      Kind
	Start     int
	End       int
	Text      string
	Value     string
	Suffix    string
	Truncated bool
}

// Tokenize splits input into tokens covering every code point. It never
// fails: unterminated quotes and regexes come back Truncated.
func Tokenize(input string) []Token {
	s := NewScanner([]rune(input))
	var tokens []Token
	emit := func(t Token) { tokens = append(tokens, t) }

	for !s.EOF() {
		if t, ok := s.Whitespace(); ok {
			emit(t)
			continue
		}
		if t, ok := s.Operator(); ok {
			emit(t)
			continue
		}
		if t, ok := s.Negation(func(r rune) bool { return !IsWhitespace(r) }); ok {
			emit(t)
			continue
		}
		if t, ok := s.Quoted(); ok {
			emit(t)
			if !t.Truncated {
				tokens = append(tokens, suffixTokens(s)...)
			}
			continue
		}
		if t, ok := s.Identifier(); ok {
			emit(t)
			colon, _ := s.Colon()
			emit(colon)
			if r, ok := s.Regex(); ok {
				emit(r)
			}
			continue
		}
		t, ok := s.Word()
		if !ok {
			// A lone quote-adjacent '-' or '!'.
			start := s.Pos()
			s.Seek(start + 1)
			emit(s.token(Word, start))
			continue
		}
		tokens = append(tokens, splitWordSuffix(t)...)
	}
	return tokens
}

// suffixTokens consumes the * or ~N markers that may follow a phrase.
func suffixTokens(s *Scanner) []Token {
	switch s.Peek(0) {
	case '*':
		start := s.Pos()
		s.Seek(start + 1)
		return []Token{s.token(WildcardMarker, start)}
	case '~':
		start := s.Pos()
		end := start + 1
		for end < s.Len() && s.src[end] >= '0' && s.src[end] <= '9' {
			end++
		}
		s.Seek(end)
		return []Token{s.token(FuzzyMarker, start)}
	}
	return nil
}

// splitWordSuffix separates trailing star runs and ~N fuzzy markers from a
// word token.
func splitWordSuffix(t Token) []Token {
	runes := []rune(t.Text)
	n := len(runes)

	stars := n
	for stars > 0 && runes[stars-1] == '*' {
		stars--
	}
	if stars > 0 && stars < n && runes[stars-1] != '\\' {
		return []Token{
			{Kind: Word, Start: t.Start, End: t.Start + stars, Text: string(runes[:stars])},
			{Kind: WildcardMarker, Start: t.Start + stars, End: t.End, Text: string(runes[stars:])},
		}
	}

	digits := n
	for digits > 0 && runes[digits-1] >= '0' && runes[digits-1] <= '9' {
		digits--
	}
	if tilde := digits - 1; tilde > 0 && runes[tilde] == '~' && runes[tilde-1] != '\\' {
		return []Token{
			{Kind: Word, Start: t.Start, End: t.Start + tilde, Text: string(runes[:tilde])},
			{Kind: FuzzyMarker, Start: t.Start + tilde, End: t.End, Text: string(runes[tilde:])},
		}
	}
	return []Token{t}
}

// OffsetTracker records claimed [start,end) spans.
type OffsetTracker struct {
	spans [][2]int
}

// Append claims a span. It reports false, claiming nothing, when the span is
// empty, inverted, or overlaps an existing claim.
func (o *OffsetTracker) Append(start, end int) bool {
	if end <= start || o.Overlaps(start, end) {
		return false
	}
	o.spans = append(o.spans, [2]int{start, end})
	return true
}

// Overlaps reports whether [start,end) intersects any claimed span.
func (o *OffsetTracker) Overlaps(start, end int) bool {
	for _, s := range o.spans {
		if start < s[1] && s[0] < end {
			return true
		}
	}
	return false
}

// Covered returns the total number of code points claimed.
func (o *OffsetTracker) Covered() int {
	total := 0
	for _, s := range o.spans {
		total += s[1] - s[0]
	}
	return total
}
