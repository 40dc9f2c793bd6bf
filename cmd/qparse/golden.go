package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/querystring"
)

// fixture is one golden file: a query and either its serialized AST or the
// length error it produces.
type fixture struct {
	Query  string         `json:"query"`
	Parsed map[string]any `json:"parsed,omitempty"`
	Error  *fixtureError  `json:"error,omitempty"`
}

type fixtureError struct {
	MessageKey string `json:"messageKey"`
	Params     []any  `json:"params"`
}

func render(p *querystring.Parser, query string) (fixture, error) {
	f := fixture{Query: query}
	pq, err := p.Parse(query)
	var tooLong *querystring.QueryTooLongError
	switch {
	case errors.As(err, &tooLong):
		f.Error = &fixtureError{MessageKey: tooLong.MessageKey(), Params: tooLong.Params()}
	case err != nil:
		return f, err
	default:
		f.Parsed = pq.ToArray()
	}
	return f, nil
}

// writeGolden renders every query into dir, one file per query.
func writeGolden(p *querystring.Parser, dir string, queries []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	for i, q := range queries {
		f, err := render(p, q)
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(f, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding %q: %w", q, err)
		}
		name := filepath.Join(dir, fmt.Sprintf("%03d-%s.json", i, slug(q)))
		if err := os.WriteFile(name, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}

// checkGolden re-parses every fixture in dir and returns the names of files
// whose output changed.
func checkGolden(p *querystring.Parser, dir string) ([]string, error) {
	names, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no fixtures in %s", dir)
	}
	sort.Strings(names)

	var changed []string
	for _, name := range names {
		data, err := os.ReadFile(name)
		if err != nil {
			return nil, err
		}
		var want map[string]any
		if err := json.Unmarshal(data, &want); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", name, err)
		}
		query, _ := want["query"].(string)
		f, err := render(p, query)
		if err != nil {
			return nil, err
		}
		got, err := normalize(f)
		if err != nil {
			return nil, err
		}
		if !reflect.DeepEqual(want, got) {
			changed = append(changed, filepath.Base(name))
		}
	}
	return changed, nil
}

// normalize round-trips v through JSON so it compares equal to decoded
// fixture files.
func normalize(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	return out, json.Unmarshal(data, &out)
}

func slug(q string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(q) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
			dash = false
		} else if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
		if b.Len() >= 32 {
			break
		}
	}
	s := strings.TrimRight(b.String(), "-")
	if s == "" {
		return "query"
	}
	return s
}
