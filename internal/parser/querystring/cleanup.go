package querystring

import (
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/ast"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/lexer"
)

// cleanup rewrites the raw query before parsing and records what changed.
func cleanup(query string, opts Options) (string, ast.Cleanups) {
	var c ast.Cleanups
	if stripped, ok := stripQuestionMarks(query, opts.stripLevel()); ok {
		query = stripped
		c.StrippedQuestionMarks = true
	}
	if opts.LanguageCode == "he" {
		if escaped, ok := escapeGershayim(query); ok {
			query = escaped
			c.GershayimQuirks = true
		}
	}
	return query, c
}

// stripQuestionMarks removes unescaped '?' according to level, then turns
// \? into a literal '?'. Queries using insource: and queries made only of
// punctuation and spaces are left alone.
func stripQuestionMarks(query string, level QuestionMarkStripLevel) (string, bool) {
	if level == StripNone || !strings.ContainsRune(query, '?') ||
		strings.Contains(query, "insource:") || onlyPunctuation(query) {
		return query, false
	}
	runes := []rune(query)
	var out []rune
	switch level {
	case StripFinal:
		out = stripFinal(runes)
	case StripBreak:
		out = stripRuns(runes, nil, true)
	case StripAll:
		out = stripRuns(runes, []rune{' '}, false)
	default:
		return query, false
	}
	result := strings.ReplaceAll(string(out), `\?`, "?")
	return result, result != query
}

func onlyPunctuation(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// stripFinal drops trailing whitespace and unescaped '?'.
func stripFinal(runes []rune) []rune {
	end := len(runes)
	for end > 0 {
		r := runes[end-1]
		if lexer.IsWhitespace(r) || (r == '?' && !escapedAt(runes, end-1)) {
			end--
			continue
		}
		break
	}
	return runes[:end]
}

// stripRuns replaces each run of unescaped '?' with replacement. With
// onlyBeforeBreak set, a run directly followed by a letter is kept.
func stripRuns(runes []rune, replacement []rune, onlyBeforeBreak bool) []rune {
	out := make([]rune, 0, len(runes))
	for i := 0; i < len(runes); i++ {
		if runes[i] != '?' || escapedAt(runes, i) {
			out = append(out, runes[i])
			continue
		}
		j := i
		for j < len(runes) && runes[j] == '?' {
			j++
		}
		if onlyBeforeBreak && j < len(runes) && unicode.IsLetter(runes[j]) {
			out = append(out, runes[i:j]...)
		} else {
			out = append(out, replacement...)
		}
		i = j - 1
	}
	return out
}

func escapedAt(runes []rune, i int) bool {
	return i > 0 && runes[i-1] == '\\'
}

// escapeGershayim escapes a double quote used as a Hebrew gershayim: two or
// more letters, the quote, then exactly one letter before a non-letter or
// the end of the query.
func escapeGershayim(query string) (string, bool) {
	if !strings.ContainsRune(query, '"') {
		return query, false
	}
	runes := []rune(query)
	out := make([]rune, 0, len(runes)+2)
	changed := false
	for i, r := range runes {
		if r == '"' && isGershayim(runes, i) {
			out = append(out, '\\')
			changed = true
		}
		out = append(out, r)
	}
	return string(out), changed
}

func isGershayim(runes []rune, i int) bool {
	if i < 2 || i+1 >= len(runes) {
		return false
	}
	if !unicode.IsLetter(runes[i-1]) || !unicode.IsLetter(runes[i-2]) || !unicode.IsLetter(runes[i+1]) {
		return false
	}
	return i+2 == len(runes) || !unicode.IsLetter(runes[i+2])
}
