package graph

import (
	"slices"
	"sort"

	"github.com/agentpm/modgraph/pkg/errors"
	"github.com/agentpm/modgraph/pkg/ident"
)

// Unit is one raw (source unit, import targets) pair as produced by the
// scanner and import parser. Both fields are raw spellings; the builder
// normalizes them.
type Unit struct {
	RawSourceID string
	RawImports  []string
}

// Limits bounds the size of a build as a defensive guard against pathological
// inputs. A zero field means unlimited.
type Limits struct {
	MaxNodes int
	MaxEdges int
}

// Builder constructs dependency graphs from raw units.
//
// Building is order-insensitive: the same multiset of units produces the same
// graph regardless of input order. Malformed identifiers do not abort the
// build; they are collected and reported alongside the result so one bad scan
// record cannot block analysis of an otherwise healthy codebase.
type Builder struct {
	rules  ident.Rules
	limits Limits
}

// NewBuilder creates a builder with the given normalization rules and limits.
func NewBuilder(rules ident.Rules, limits Limits) *Builder {
	return &Builder{rules: rules, limits: limits}
}

// Build constructs the dependency graph from units.
//
// Every unit with a valid source identifier becomes a node, even with zero
// imports, so isolated modules still appear (required for correct root and
// leaf counting). Import targets that match a scanned unit become internal
// edges; all other targets become external, sourceless nodes. Duplicate
// (from, to) pairs collapse. A module importing itself produces an internal
// self-loop edge.
//
// The []error return carries the per-unit INVALID_IDENTIFIER problems that
// were skipped over. The final error is non-nil only for fatal conditions:
// currently a tripped Limits ceiling, reported with code RESOURCE_EXCEEDED
// and the partial node/edge counts gathered so far.
func (b *Builder) Build(units []Unit) (*Graph, []error, error) {
	var malformed []error

	// First pass: intern every valid source identity. Membership of this
	// set decides internal vs external for every import target, so it must
	// be complete before any edge is classified.
	sources := make(map[ident.Identity][]string, len(units))
	for _, u := range units {
		id, err := b.rules.Normalize(u.RawSourceID)
		if err != nil {
			malformed = append(malformed, errors.Wrap(errors.ErrCodeInvalidIdentifier, err,
				"skipping unit %q", u.RawSourceID))
			continue
		}
		// The same module may be scanned under several spellings; union
		// their import lists.
		sources[id] = append(sources[id], u.RawImports...)
	}

	if b.limits.MaxNodes > 0 && len(sources) > b.limits.MaxNodes {
		return nil, malformed, exceeded("nodes", b.limits.MaxNodes, len(sources), 0)
	}

	internalIDs := make([]ident.Identity, 0, len(sources))
	for id := range sources {
		internalIDs = append(internalIDs, id)
	}
	sort.Slice(internalIDs, func(i, j int) bool { return internalIDs[i] < internalIDs[j] })

	index := make(map[ident.Identity]int, len(sources))
	for i, id := range internalIDs {
		index[id] = i
	}

	// Second pass: classify targets, collecting external identities and
	// deduplicating edges with set semantics.
	type pair struct{ from, to int }
	internalSet := make(map[pair]struct{})
	externalRaw := make(map[ident.Identity]map[int]struct{}) // external identity -> source indices
	edgeCount := 0

	for _, srcID := range internalIDs {
		from := index[srcID]
		for _, rawTarget := range sources[srcID] {
			target, err := b.rules.Normalize(rawTarget)
			if err != nil {
				malformed = append(malformed, errors.Wrap(errors.ErrCodeInvalidIdentifier, err,
					"skipping import %q of %s", rawTarget, srcID))
				continue
			}
			if to, ok := index[target]; ok {
				if _, dup := internalSet[pair{from, to}]; dup {
					continue
				}
				internalSet[pair{from, to}] = struct{}{}
			} else {
				srcs, ok := externalRaw[target]
				if !ok {
					srcs = make(map[int]struct{})
					externalRaw[target] = srcs
				}
				if _, dup := srcs[from]; dup {
					continue
				}
				srcs[from] = struct{}{}
			}
			edgeCount++
			if b.limits.MaxEdges > 0 && edgeCount > b.limits.MaxEdges {
				return nil, malformed, exceeded("edges", b.limits.MaxEdges,
					len(sources)+len(externalRaw), edgeCount)
			}
		}
	}

	totalNodes := len(internalIDs) + len(externalRaw)
	if b.limits.MaxNodes > 0 && totalNodes > b.limits.MaxNodes {
		return nil, malformed, exceeded("nodes", b.limits.MaxNodes, totalNodes, edgeCount)
	}

	// External nodes take the indices after the internal block, again in
	// lexicographic order for determinism.
	externalIDs := make([]ident.Identity, 0, len(externalRaw))
	for id := range externalRaw {
		externalIDs = append(externalIDs, id)
	}
	sort.Slice(externalIDs, func(i, j int) bool { return externalIDs[i] < externalIDs[j] })

	g := &Graph{
		nodes: make([]Node, 0, totalNodes),
		index: index,
		out:   make([][]int, totalNodes),
		in:    make([][]int, totalNodes),
		ext:   make([][]int, totalNodes),
	}
	for _, id := range internalIDs {
		g.nodes = append(g.nodes, Node{ID: id})
	}
	for _, id := range externalIDs {
		index[id] = len(g.nodes)
		g.nodes = append(g.nodes, Node{ID: id, External: true})
	}

	for p := range internalSet {
		g.out[p.from] = append(g.out[p.from], p.to)
		g.in[p.to] = append(g.in[p.to], p.from)
	}
	for _, id := range externalIDs {
		to := index[id]
		for from := range externalRaw[id] {
			g.ext[from] = append(g.ext[from], to)
			g.external++
		}
	}
	g.internal = len(internalSet)

	for i := range g.nodes {
		slices.Sort(g.out[i])
		slices.Sort(g.in[i])
		slices.Sort(g.ext[i])
	}

	return g, malformed, nil
}

func exceeded(limit string, max, nodes, edges int) error {
	return errors.Wrap(errors.ErrCodeResourceExceeded,
		&errors.ResourceExceededError{Limit: limit, Max: max, Nodes: nodes, Edges: edges},
		"graph build aborted")
}
