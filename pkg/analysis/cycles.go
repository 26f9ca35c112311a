package analysis

import (
	"slices"

	"github.com/agentpm/modgraph/pkg/graph"
	"github.com/agentpm/modgraph/pkg/ident"
)

// Cycle is an ordered module sequence [n0, n1, ..., nk] such that an internal
// edge exists from each ni to n(i+1) and from nk back to n0. A self-import is
// a 1-node cycle.
type Cycle []ident.Identity

// CycleReport lists the detected circular dependency chains.
//
// Full enumeration of all elementary cycles is combinatorially explosive on
// dense graphs, so the report carries one witness cycle per non-trivial SCC
// plus the size of the SCC backing it. Ordering is deterministic: cycles are
// sorted by their lexicographically smallest member and each cycle starts at
// that member, so the same graph always yields a byte-identical report.
type CycleReport struct {
	Cycles   []Cycle
	SCCSizes []int // SCCSizes[i] is the member count of the SCC behind Cycles[i]
}

// HasCycles reports whether any circular dependency exists.
func (r CycleReport) HasCycles() bool { return len(r.Cycles) > 0 }

// Strings returns the cycles as plain string slices for serialization.
// Never nil: an acyclic graph yields an empty, non-null list.
func (r CycleReport) Strings() [][]string {
	out := make([][]string, len(r.Cycles))
	for i, c := range r.Cycles {
		out[i] = make([]string, len(c))
		for j, id := range c {
			out[i][j] = id.String()
		}
	}
	return out
}

// FindCycles analyzes the graph for circular dependency chains.
// Only internal edges are considered.
func FindCycles(g *graph.Graph) CycleReport {
	return findCycles(g, stronglyConnected(g))
}

// findCycles extracts witness cycles from an existing SCC partition. Split
// out so ComputeDepth can share a single SCC pass with cycle detection.
func findCycles(g *graph.Graph, scc *sccSet) CycleReport {
	var report CycleReport

	for id, members := range scc.members {
		switch {
		case len(members) > 1:
			report.Cycles = append(report.Cycles, witnessCycle(g, scc, id, members))
			report.SCCSizes = append(report.SCCSizes, len(members))
		case hasSelfLoop(g, members[0]):
			report.Cycles = append(report.Cycles, Cycle{g.Identity(members[0])})
			report.SCCSizes = append(report.SCCSizes, 1)
		}
	}

	// Deterministic enumeration: order by each cycle's starting (smallest)
	// identity. Witness cycles already start at their smallest member.
	order := make([]int, len(report.Cycles))
	for i := range order {
		order[i] = i
	}
	slices.SortFunc(order, func(a, b int) int {
		if report.Cycles[a][0] < report.Cycles[b][0] {
			return -1
		}
		if report.Cycles[a][0] > report.Cycles[b][0] {
			return 1
		}
		return 0
	})

	sorted := CycleReport{
		Cycles:   make([]Cycle, len(order)),
		SCCSizes: make([]int, len(order)),
	}
	for i, j := range order {
		sorted.Cycles[i] = report.Cycles[j]
		sorted.SCCSizes[i] = report.SCCSizes[j]
	}
	return sorted
}

func hasSelfLoop(g *graph.Graph, v int) bool {
	_, found := slices.BinarySearch(g.Dependencies(v), v)
	return found
}

// witnessCycle extracts one elementary cycle from a multi-node SCC.
//
// It starts at the member with the smallest identity and runs a BFS
// restricted to the SCC until an edge closes back on the start. Adjacency
// lists are sorted, so the BFS, its parent links, and therefore the reported
// cycle are deterministic. The witness is a shortest cycle through the start
// node; the full SCC membership is conveyed separately via SCCSizes.
func witnessCycle(g *graph.Graph, scc *sccSet, id int, members []int) Cycle {
	start := members[0]
	for _, v := range members[1:] {
		if g.Identity(v) < g.Identity(start) {
			start = v
		}
	}

	parent := make(map[int]int, len(members))
	queue := []int{start}
	visited := map[int]bool{start: true}

	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, w := range g.Dependencies(v) {
			if scc.comp[w] != id {
				continue
			}
			if w == start {
				// Closing edge found: walk parents back to start.
				path := []int{v}
				for u := v; u != start; {
					u = parent[u]
					path = append(path, u)
				}
				cycle := make(Cycle, 0, len(path))
				for i := len(path) - 1; i >= 0; i-- {
					cycle = append(cycle, g.Identity(path[i]))
				}
				return cycle
			}
			if !visited[w] {
				visited[w] = true
				parent[w] = v
				queue = append(queue, w)
			}
		}
	}

	// Unreachable: an SCC with more than one member always closes a cycle
	// through each of its members.
	return Cycle{g.Identity(start)}
}
