package analysis

import "github.com/agentpm/modgraph/pkg/graph"

// DepthResult is the outcome of the longest-chain computation. It is a
// tagged two-variant value: a numeric depth exists only for acyclic graphs,
// and a cyclic graph carries the cycle report instead. Callers must handle
// both; there is deliberately no numeric sentinel inside the engine (legacy
// consumers can map the cyclic variant to -1 at the serialization boundary,
// see Report.LegacyMaxDepth).
type DepthResult struct {
	cyclic bool
	depth  int
	cycles CycleReport
}

// Acyclic constructs the acyclic variant with the given maximum depth.
func Acyclic(depth int) DepthResult {
	return DepthResult{depth: depth}
}

// Cyclic constructs the cyclic variant carrying the detected cycles.
func Cyclic(cycles CycleReport) DepthResult {
	return DepthResult{cyclic: true, cycles: cycles}
}

// IsCyclic reports whether the graph contained a circular dependency.
func (r DepthResult) IsCyclic() bool { return r.cyclic }

// MaxDepth returns the longest dependency chain length in edges.
// ok is false for the cyclic variant, which has no numeric depth.
func (r DepthResult) MaxDepth() (depth int, ok bool) {
	if r.cyclic {
		return 0, false
	}
	return r.depth, true
}

// Cycles returns the cycle report. Empty for the acyclic variant.
func (r DepthResult) Cycles() CycleReport { return r.cycles }

// ComputeDepth computes the maximum dependency depth of the graph.
//
// Depth (longest chain, counted in edges) is only well-defined on an acyclic
// graph. When cycles is non-empty the cyclic variant is returned unchanged —
// the engine never silently breaks cycles to produce a number, because a
// numeric depth on a cyclic graph has no canonical definition and would mask
// the cycle as a more urgent finding than a metric.
//
// The cycles argument is the already-computed report from FindCycles so the
// SCC pass runs once per analysis, not once per component.
//
// The acyclic computation is a longest-path dynamic program over Kahn
// topological order: depth[n] = 1 + max(depth[p]) over internal dependents p,
// 0 with no dependents. The result is the maximum over all nodes, 0 for a
// graph with no internal edges.
func ComputeDepth(g *graph.Graph, cycles CycleReport) DepthResult {
	if cycles.HasCycles() {
		return Cyclic(cycles)
	}

	n := g.NodeCount()
	remaining := make([]int, n)
	depth := make([]int, n)
	queue := make([]int, 0, n)

	for v := 0; v < n; v++ {
		remaining[v] = g.InDegree(v)
		if remaining[v] == 0 {
			queue = append(queue, v)
		}
	}

	maxDepth := 0
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]

		for _, w := range g.Dependencies(v) {
			if d := depth[v] + 1; d > depth[w] {
				depth[w] = d
				if d > maxDepth {
					maxDepth = d
				}
			}
			remaining[w]--
			if remaining[w] == 0 {
				queue = append(queue, w)
			}
		}
	}

	return Acyclic(maxDepth)
}
