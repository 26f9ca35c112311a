// Package analysis computes structural results over a built dependency graph:
// circular dependency chains, maximum dependency depth, and coupling metrics.
//
// All passes are pure reads over an immutable graph.Graph and only consider
// internal edges; external nodes have no outgoing edges by construction and
// cannot participate in cycles or depth. Every traversal uses an explicit
// stack or queue, never recursion keyed to graph depth, so pathological
// inputs with thousands of nodes cannot blow the goroutine stack.
package analysis

import "github.com/agentpm/modgraph/pkg/graph"

// sccSet is the strongly-connected-component partition of the internal-edge
// subgraph. Component IDs are assigned in Tarjan completion order; members
// keep the pop order off the Tarjan stack.
type sccSet struct {
	comp    []int   // node index -> component id
	members [][]int // component id -> member node indices
}

// size returns the member count of component id.
func (s *sccSet) size(id int) int { return len(s.members[id]) }

// stronglyConnected partitions the graph into SCCs using an iterative
// Tarjan traversal. External nodes form trivial singleton components.
func stronglyConnected(g *graph.Graph) *sccSet {
	n := g.NodeCount()

	const unvisited = 0
	index := make([]int, n) // discovery index + 1; 0 means unvisited
	lowlink := make([]int, n)
	onStack := make([]bool, n)
	comp := make([]int, n)
	for i := range comp {
		comp[i] = -1
	}

	var (
		members [][]int
		stack   []int
		counter int
	)

	// frame replaces the recursive call: child tracks how far we got
	// through v's adjacency before descending.
	type frame struct {
		v     int
		child int
	}
	frames := make([]frame, 0, 64)

	for start := 0; start < n; start++ {
		if index[start] != unvisited {
			continue
		}
		frames = append(frames, frame{v: start})

		for len(frames) > 0 {
			f := &frames[len(frames)-1]
			v := f.v

			if f.child == 0 {
				counter++
				index[v] = counter
				lowlink[v] = counter
				stack = append(stack, v)
				onStack[v] = true
			}

			descended := false
			deps := g.Dependencies(v)
			for f.child < len(deps) {
				w := deps[f.child]
				f.child++
				if index[w] == unvisited {
					frames = append(frames, frame{v: w})
					descended = true
					break
				}
				if onStack[w] && index[w] < lowlink[v] {
					lowlink[v] = index[w]
				}
			}
			if descended {
				continue
			}

			// v is fully explored; pop its component if it is a root.
			if lowlink[v] == index[v] {
				id := len(members)
				var ms []int
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					comp[w] = id
					ms = append(ms, w)
					if w == v {
						break
					}
				}
				members = append(members, ms)
			}

			frames = frames[:len(frames)-1]
			if len(frames) > 0 {
				parent := frames[len(frames)-1].v
				if lowlink[v] < lowlink[parent] {
					lowlink[parent] = lowlink[v]
				}
			}
		}
	}

	return &sccSet{comp: comp, members: members}
}

// CondensationEdge is a directed edge in the condensation DAG, where each
// SCC has been contracted to a single node. Kept internal to analysis for
// now; the report deliberately does not expose a numeric depth for cyclic
// graphs (see ComputeDepth).
type CondensationEdge struct {
	FromSCC int
	ToSCC   int
	Count   int // number of original edges aggregated into this edge
}

// condensation aggregates internal edges between distinct SCCs.
func condensation(g *graph.Graph, scc *sccSet) []CondensationEdge {
	type key struct{ from, to int }
	counts := make(map[key]int)

	for v := 0; v < g.NodeCount(); v++ {
		for _, w := range g.Dependencies(v) {
			if scc.comp[v] == scc.comp[w] {
				continue
			}
			counts[key{scc.comp[v], scc.comp[w]}]++
		}
	}

	edges := make([]CondensationEdge, 0, len(counts))
	for k, c := range counts {
		edges = append(edges, CondensationEdge{FromSCC: k.from, ToSCC: k.to, Count: c})
	}
	return edges
}
