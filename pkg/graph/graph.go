// Package graph builds and represents the module dependency graph.
//
// The graph is constructed once from raw (source unit, import targets) pairs
// and is immutable afterwards: the analysis passes (cycles, depth, metrics)
// share it by reference without coordination. Nodes live in a contiguous
// arena table and adjacency lists are keyed by node index, so identity
// comparisons and traversals never chase pointers.
//
// Node identity is canonical: every raw spelling passes through
// ident.Normalize before it is interned, so a module scanned as
// "agentpm/cli/project.py" and imported as "agentpm.cli.project" is one node.
package graph

import (
	"slices"

	"github.com/agentpm/modgraph/pkg/ident"
)

// EdgeKind distinguishes dependencies on scanned modules from references to
// modules that were never scanned (third-party libraries, stdlib).
type EdgeKind uint8

const (
	// EdgeInternal links two modules that were both produced by the same
	// build. Only internal edges participate in cycles, depth, and counts.
	EdgeInternal EdgeKind = iota
	// EdgeExternal links a scanned module to a target that no scanned
	// unit produced. External targets are terminal, opaque nodes.
	EdgeExternal
)

// String returns the serialization name of the edge kind.
func (k EdgeKind) String() string {
	if k == EdgeExternal {
		return "external"
	}
	return "internal"
}

// Node is a vertex in the dependency graph.
type Node struct {
	ID       ident.Identity // canonical module identity
	External bool           // true when the module was never scanned as a source unit
}

// Edge is a directed dependency between two nodes, identified by arena index.
// Duplicate raw imports between the same pair collapse to one edge.
type Edge struct {
	From int
	To   int
	Kind EdgeKind
}

// Graph is the immutable module dependency graph.
//
// Internal nodes occupy the low indices in lexicographic identity order,
// followed by external nodes in lexicographic order. Adjacency lists are
// sorted ascending. Building from the same unit set in any input order
// therefore produces an identical Graph, which the tests rely on.
//
// The zero value is not usable; graphs come from Builder.Build.
type Graph struct {
	nodes    []Node
	index    map[ident.Identity]int
	out      [][]int // internal forward adjacency: module -> its dependencies
	in       [][]int // internal reverse adjacency: module -> its dependents
	ext      [][]int // external references per source node
	internal int     // internal edge count
	external int     // external edge count
}

// NodeCount returns the total number of nodes, internal and external.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// InternalEdgeCount returns the number of internal dependency edges.
func (g *Graph) InternalEdgeCount() int { return g.internal }

// ExternalEdgeCount returns the number of external reference edges.
func (g *Graph) ExternalEdgeCount() int { return g.external }

// Node returns the node at the given arena index.
func (g *Graph) Node(i int) Node { return g.nodes[i] }

// Identity returns the canonical identity of the node at index i.
func (g *Graph) Identity(i int) ident.Identity { return g.nodes[i].ID }

// Lookup returns the arena index for an identity, if present.
func (g *Graph) Lookup(id ident.Identity) (int, bool) {
	i, ok := g.index[id]
	return i, ok
}

// Dependencies returns the internal targets of node i, sorted ascending.
// The returned slice is a read-only view into the graph.
func (g *Graph) Dependencies(i int) []int { return g.out[i] }

// Dependents returns the internal sources pointing at node i, sorted
// ascending. The returned slice is a read-only view into the graph.
func (g *Graph) Dependents(i int) []int { return g.in[i] }

// ExternalRefs returns the external targets of node i, sorted ascending.
func (g *Graph) ExternalRefs(i int) []int { return g.ext[i] }

// OutDegree returns the internal out-degree of node i.
func (g *Graph) OutDegree(i int) int { return len(g.out[i]) }

// InDegree returns the internal in-degree of node i.
func (g *Graph) InDegree(i int) int { return len(g.in[i]) }

// Edges returns all edges sorted by (From, To, Kind). The slice is built on
// each call; callers own it.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, g.internal+g.external)
	for from, targets := range g.out {
		for _, to := range targets {
			edges = append(edges, Edge{From: from, To: to, Kind: EdgeInternal})
		}
	}
	for from, targets := range g.ext {
		for _, to := range targets {
			edges = append(edges, Edge{From: from, To: to, Kind: EdgeExternal})
		}
	}
	slices.SortFunc(edges, func(a, b Edge) int {
		if a.From != b.From {
			return a.From - b.From
		}
		if a.To != b.To {
			return a.To - b.To
		}
		return int(a.Kind) - int(b.Kind)
	})
	return edges
}

// Identities returns the identities of all nodes in arena order.
func (g *Graph) Identities() []ident.Identity {
	ids := make([]ident.Identity, len(g.nodes))
	for i, n := range g.nodes {
		ids[i] = n.ID
	}
	return ids
}

// Equal reports whether two graphs have the same node and edge sets.
// Because construction is canonical, set equality reduces to structural
// equality of the arenas.
func (g *Graph) Equal(other *Graph) bool {
	if g.NodeCount() != other.NodeCount() ||
		g.internal != other.internal || g.external != other.external {
		return false
	}
	if !slices.Equal(g.nodes, other.nodes) {
		return false
	}
	for i := range g.nodes {
		if !slices.Equal(g.out[i], other.out[i]) ||
			!slices.Equal(g.in[i], other.in[i]) ||
			!slices.Equal(g.ext[i], other.ext[i]) {
			return false
		}
	}
	return true
}
