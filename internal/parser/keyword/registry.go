// Package keyword recognizes keyword:value operators such as intitle:foo.
// Keywords are described by Definitions collected into a Registry that is
// validated once, when it is built.
package keyword

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/ast"
	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/lexer"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/errors"
)

// Value is the raw keyword value handed to a ValueParser.
type Value struct {
	Key           string
	Text          string
	Quoted        bool
	Regex         bool
	Suffix        string
	Start         int
	Negated       bool
	MaxConditions int
}

// ValueParser interprets a keyword value. It may return a nil ParsedValue
// when the value carries no structure beyond its text.
type ValueParser func(v Value) (ast.ParsedValue, []ast.ParseWarning)

// Definition describes one keyword and its capabilities.
type Definition struct {
	Name    string
	Aliases []string
	// Greedy keywords take the remainder of the query as their value.
	Greedy bool
	// QueryHeader keywords take no value and are only recognized before
	// any other clause.
	QueryHeader     bool
	AllowEmptyValue bool
	// Regex keywords accept /pattern/ values when regex is enabled.
	Regex bool
	Parse ValueParser
}

// Registry is an immutable set of keyword definitions indexed by every
// name and alias.
type Registry struct {
	defs   []Definition
	byName map[string]int
}

// NewRegistry validates defs and indexes them. Names and aliases must be
// unique, non-empty, and free of whitespace, quotes, backslashes and colons.
func NewRegistry(defs ...Definition) (*Registry, error) {
	r := &Registry{byName: make(map[string]int)}
	for _, d := range defs {
		if d.Parse == nil {
			return nil, fmt.Errorf("%w: %q has no value parser", apperrors.ErrInvalidKeyword, d.Name)
		}
		if d.Greedy && d.QueryHeader {
			return nil, fmt.Errorf("%w: %q cannot be both greedy and a query header", apperrors.ErrInvalidKeyword, d.Name)
		}
		idx := len(r.defs)
		for _, name := range append([]string{d.Name}, d.Aliases...) {
			if !validName(name) {
				return nil, fmt.Errorf("%w: invalid name %q", apperrors.ErrInvalidKeyword, name)
			}
			if _, dup := r.byName[name]; dup {
				return nil, fmt.Errorf("%w: %q registered twice", apperrors.ErrInvalidKeyword, name)
			}
			r.byName[name] = idx
		}
		d.Aliases = append([]string(nil), d.Aliases...)
		r.defs = append(r.defs, d)
	}
	return r, nil
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, c := range name {
		if c == ':' || c == '"' || c == '\\' || lexer.IsWhitespace(c) {
			return false
		}
	}
	return true
}

// Lookup returns the definition registered under name or alias.
func (r *Registry) Lookup(name string) (Definition, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return Definition{}, false
	}
	return r.defs[idx], true
}

// Names returns every recognized name, aliases included, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of definitions.
func (r *Registry) Len() int { return len(r.defs) }

// Subset returns a registry restricted to the definitions named in names.
// Each entry may be a primary name or an alias. An empty list keeps every
// definition.
func (r *Registry) Subset(names []string) (*Registry, error) {
	if len(names) == 0 {
		return r, nil
	}
	keep := make(map[int]bool, len(names))
	var unknown []string
	for _, name := range names {
		idx, ok := r.byName[strings.TrimSpace(name)]
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		keep[idx] = true
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownKeyword, strings.Join(unknown, ", "))
	}
	defs := make([]Definition, 0, len(keep))
	for idx, d := range r.defs {
		if keep[idx] {
			defs = append(defs, d)
		}
	}
	return NewRegistry(defs...)
}
