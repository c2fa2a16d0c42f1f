// Package doid resolves Disease Ontology (DOID) hierarchy queries: the
// reflexive-transitive ancestor closure of a concept, subsumption between
// concepts and term lookup.
//
// A Model is built once from child->parent edges and never mutated. It is safe
// for concurrent use; computed closures are memoized in a bounded LRU cache.
package doid

import (
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultClosureCacheSize bounds the number of memoized ancestor closures.
const DefaultClosureCacheSize = 4096

// Model is an in-memory disease ontology.
type Model struct {
	parents     map[string][]string
	terms       map[string]string
	doidsByTerm map[string][]string
	closures    *lru.Cache[string, []string]
}

// NewModel copies childToParents and terms into a read-only model.
// cacheSize <= 0 selects DefaultClosureCacheSize.
func NewModel(childToParents map[string][]string, terms map[string]string, cacheSize int) (*Model, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultClosureCacheSize
	}
	closures, err := lru.New[string, []string](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create closure cache: %w", err)
	}

	m := &Model{
		parents:     make(map[string][]string, len(childToParents)),
		terms:       make(map[string]string, len(terms)),
		doidsByTerm: make(map[string][]string, len(terms)),
		closures:    closures,
	}
	for child, parents := range childToParents {
		if child == "" {
			return nil, fmt.Errorf("edge with empty child doid")
		}
		m.parents[child] = append([]string(nil), parents...)
	}
	for doid, term := range terms {
		m.terms[doid] = term
		key := normalizeTerm(term)
		m.doidsByTerm[key] = append(m.doidsByTerm[key], doid)
	}
	for key := range m.doidsByTerm {
		sort.Strings(m.doidsByTerm[key])
	}
	return m, nil
}

// AncestorsOf returns doid and all of its transitive parents, sorted.
// Cycles in the parent relation are tolerated.
func (m *Model) AncestorsOf(doid string) []string {
	if cached, ok := m.closures.Get(doid); ok {
		return append([]string(nil), cached...)
	}

	visited := map[string]struct{}{doid: {}}
	stack := []string{doid}
	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, parent := range m.parents[current] {
			if _, seen := visited[parent]; seen {
				continue
			}
			visited[parent] = struct{}{}
			stack = append(stack, parent)
		}
	}

	closure := make([]string, 0, len(visited))
	for id := range visited {
		closure = append(closure, id)
	}
	sort.Strings(closure)
	m.closures.Add(doid, closure)
	return append([]string(nil), closure...)
}

// Subsumes reports whether target is doid or one of its ancestors, i.e.
// whether doid is a specialisation of target.
func (m *Model) Subsumes(doid, target string) bool {
	if doid == target {
		return true
	}
	closure := m.AncestorsOf(doid)
	i := sort.SearchStrings(closure, target)
	return i < len(closure) && closure[i] == target
}

// IsExactMatch reports whether doid equals target.
func (m *Model) IsExactMatch(doid, target string) bool {
	return doid == target
}

// TermFor returns the ontology label of doid.
func (m *Model) TermFor(doid string) (string, bool) {
	term, ok := m.terms[doid]
	return term, ok
}

// DoidsForTerm returns the concepts labelled term, compared case-insensitively.
func (m *Model) DoidsForTerm(term string) []string {
	return append([]string(nil), m.doidsByTerm[normalizeTerm(term)]...)
}

// Size returns the number of concepts with a term or a parent edge.
func (m *Model) Size() int {
	ids := make(map[string]struct{}, len(m.terms)+len(m.parents))
	for id := range m.terms {
		ids[id] = struct{}{}
	}
	for id := range m.parents {
		ids[id] = struct{}{}
	}
	return len(ids)
}

func normalizeTerm(term string) string {
	return strings.ToLower(strings.TrimSpace(term))
}
