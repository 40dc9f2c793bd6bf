// Package classifier holds named predicates over parsed queries. Consumers
// use the class names to pick a search profile or to bucket analytics.
package classifier

import (
	"fmt"
	"sort"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/internal/parser/ast"
	apperrors "github.com/Adithya-Monish-Kumar-K/Distributed-Search-Query-Parser/pkg/errors"
)

// Predicate reports whether a parsed query belongs to a class.
type Predicate func(pq *ast.ParsedQuery) bool

// Repository maps class names to predicates. Registration normally happens
// at startup; Freeze marks the end of it.
type Repository struct {
	mu         sync.RWMutex
	predicates map[string]Predicate
	frozen     bool
}

func NewRepository() *Repository {
	return &Repository{predicates: make(map[string]Predicate)}
}

// Register adds a predicate under name. Names are unique.
func (r *Repository) Register(name string, p Predicate) error {
	if name == "" || p == nil {
		return fmt.Errorf("%w: classifier needs a name and a predicate", apperrors.ErrInvalidInput)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("%w: repository is frozen, cannot add %q", apperrors.ErrClassifierConflict, name)
	}
	if _, exists := r.predicates[name]; exists {
		return fmt.Errorf("%w: %q", apperrors.ErrClassifierConflict, name)
	}
	r.predicates[name] = p
	return nil
}

// Freeze rejects any further registration.
func (r *Repository) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

func (r *Repository) Get(name string) (Predicate, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.predicates[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", apperrors.ErrClassifierNotFound, name)
	}
	return p, nil
}

// Names returns the registered class names, sorted.
func (r *Repository) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.predicates))
	for name := range r.predicates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Classify evaluates every predicate and returns the matching names, sorted.
func (r *Repository) Classify(pq *ast.ParsedQuery) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	classes := make([]string, 0, 2)
	for name, p := range r.predicates {
		if p(pq) {
			classes = append(classes, name)
		}
	}
	sort.Strings(classes)
	return classes
}
