package doid

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
)

const (
	doidURIPrefix = "http://purl.obolibrary.org/obo/DOID_"
	isAPredicate  = "is_a"
)

// graphDocument mirrors the subset of the OBO Graphs JSON layout the disease
// ontology is published in.
type graphDocument struct {
	Graphs []struct {
		Nodes []struct {
			ID    string `json:"id"`
			Label string `json:"lbl"`
			Type  string `json:"type"`
			Meta  *struct {
				Deprecated bool `json:"deprecated"`
			} `json:"meta"`
		} `json:"nodes"`
		Edges []struct {
			Sub  string `json:"sub"`
			Pred string `json:"pred"`
			Obj  string `json:"obj"`
		} `json:"edges"`
	} `json:"graphs"`
}

// Load reads an OBO Graphs JSON document and builds a Model from its DOID
// classes and is_a edges. Nodes outside the DOID namespace and deprecated
// classes are ignored.
func Load(r io.Reader, cacheSize int) (*Model, error) {
	var doc graphDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode doid graph: %w", err)
	}

	parents := make(map[string][]string)
	terms := make(map[string]string)
	deprecated := make(map[string]struct{})
	for _, g := range doc.Graphs {
		for _, n := range g.Nodes {
			id, ok := ExtractDoid(n.ID)
			if !ok {
				continue
			}
			if n.Meta != nil && n.Meta.Deprecated {
				deprecated[id] = struct{}{}
				continue
			}
			if n.Label != "" {
				terms[id] = n.Label
			}
		}
	}
	// Deprecated classes keep no ancestry.
	for _, g := range doc.Graphs {
		for _, e := range g.Edges {
			if e.Pred != isAPredicate {
				continue
			}
			child, okChild := ExtractDoid(e.Sub)
			parent, okParent := ExtractDoid(e.Obj)
			if !okChild || !okParent {
				continue
			}
			if _, skip := deprecated[child]; skip {
				continue
			}
			parents[child] = append(parents[child], parent)
		}
	}
	if len(terms) == 0 && len(parents) == 0 {
		return nil, fmt.Errorf("doid graph contains no DOID classes")
	}
	return NewModel(parents, terms, cacheSize)
}

// LoadFile opens path and calls Load.
func LoadFile(path string, cacheSize int) (*Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open doid file: %w", err)
	}
	defer f.Close()
	return Load(f, cacheSize)
}

// ExtractDoid returns the bare identifier ("1324") of a DOID URI or CURIE.
func ExtractDoid(id string) (string, bool) {
	var rest string
	switch {
	case strings.HasPrefix(id, doidURIPrefix):
		rest = strings.TrimPrefix(id, doidURIPrefix)
	case strings.HasPrefix(id, "DOID:"):
		rest = strings.TrimPrefix(id, "DOID:")
	default:
		return "", false
	}
	if rest == "" {
		return "", false
	}
	return rest, true
}
