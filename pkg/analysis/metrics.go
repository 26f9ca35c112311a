package analysis

import (
	"github.com/agentpm/modgraph/pkg/graph"
	"github.com/agentpm/modgraph/pkg/ident"
)

// ModuleStat carries per-module coupling counts.
type ModuleStat struct {
	ID           string `json:"id" bson:"id"`
	FanIn        int    `json:"fan_in" bson:"fan_in"`               // internal modules depending on this one
	FanOut       int    `json:"fan_out" bson:"fan_out"`             // internal modules this one depends on
	ExternalRefs int    `json:"external_refs" bson:"external_refs"` // external targets referenced
}

// Metrics are the aggregate statistics of one dependency graph.
//
// Roots and leaves are computed over scanned (internal) modules only: a
// third-party target is not part of the analyzed architecture, and counting
// external nodes as roots or leaves would inflate both sets with noise.
type Metrics struct {
	ModuleCount            int              // total nodes, internal + external
	DependencyCount        int              // internal edges
	ExternalReferenceCount int              // external edges
	RootModules            []ident.Identity // internal in-degree 0, sorted
	LeafModules            []ident.Identity // internal out-degree 0, sorted
	Modules                []ModuleStat     // one per internal module, in identity order
}

// ComputeMetrics derives aggregate statistics from the graph in one
// read-only pass.
func ComputeMetrics(g *graph.Graph) Metrics {
	m := Metrics{
		ModuleCount:            g.NodeCount(),
		DependencyCount:        g.InternalEdgeCount(),
		ExternalReferenceCount: g.ExternalEdgeCount(),
		RootModules:            []ident.Identity{},
		LeafModules:            []ident.Identity{},
	}

	// Internal nodes occupy the low indices in identity order, so a single
	// forward sweep yields sorted root/leaf/module lists for free.
	for v := 0; v < g.NodeCount(); v++ {
		node := g.Node(v)
		if node.External {
			continue
		}
		if g.InDegree(v) == 0 {
			m.RootModules = append(m.RootModules, node.ID)
		}
		if g.OutDegree(v) == 0 {
			m.LeafModules = append(m.LeafModules, node.ID)
		}
		m.Modules = append(m.Modules, ModuleStat{
			ID:           node.ID.String(),
			FanIn:        g.InDegree(v),
			FanOut:       g.OutDegree(v),
			ExternalRefs: len(g.ExternalRefs(v)),
		})
	}

	return m
}
