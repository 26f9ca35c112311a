package analysis

import (
	"encoding/json"

	"github.com/agentpm/modgraph/pkg/graph"
	"github.com/agentpm/modgraph/pkg/ident"
)

// Report is the serializable analysis result for one dependency graph.
//
// MaxDepth is a pointer on purpose: it is null when the graph is cyclic,
// because depth is undefined there. Cycles is always present and empty for
// an acyclic graph, never null.
type Report struct {
	ModuleCount             int          `json:"module_count" bson:"module_count"`
	DependencyCount         int          `json:"dependency_count" bson:"dependency_count"`
	ExternalReferenceCount  int          `json:"external_reference_count" bson:"external_reference_count"`
	CircularDependencyCount int          `json:"circular_dependency_count" bson:"circular_dependency_count"`
	RootModules             []string     `json:"root_modules" bson:"root_modules"`
	LeafModules             []string     `json:"leaf_modules" bson:"leaf_modules"`
	MaxDepth                *int         `json:"max_depth" bson:"max_depth"`
	Cycles                  [][]string   `json:"cycles" bson:"cycles"`
	Modules                 []ModuleStat `json:"modules,omitempty" bson:"modules,omitempty"`
	Malformed               []string     `json:"malformed,omitempty" bson:"malformed,omitempty"`
}

// Analyze runs cycle detection, depth computation, and metrics over the graph
// and assembles the report. The SCC partition is computed once and shared
// between cycle extraction and the depth decision.
func Analyze(g *graph.Graph) *Report {
	scc := stronglyConnected(g)
	cycles := findCycles(g, scc)
	depth := ComputeDepth(g, cycles)
	metrics := ComputeMetrics(g)

	r := &Report{
		ModuleCount:             metrics.ModuleCount,
		DependencyCount:         metrics.DependencyCount,
		ExternalReferenceCount:  metrics.ExternalReferenceCount,
		CircularDependencyCount: len(cycles.Cycles),
		RootModules:             identStrings(metrics.RootModules),
		LeafModules:             identStrings(metrics.LeafModules),
		Cycles:                  cycles.Strings(),
		Modules:                 metrics.Modules,
	}
	if d, ok := depth.MaxDepth(); ok {
		r.MaxDepth = &d
	}
	return r
}

// HasCycles reports whether the analyzed graph contained a cycle.
func (r *Report) HasCycles() bool { return r.CircularDependencyCount > 0 }

// LegacyMaxDepth maps the depth to the flat integer convention used by older
// consumers: the numeric depth for acyclic graphs and -1 for cyclic ones.
// The -1 sentinel exists only at this boundary; inside the engine depth is a
// tagged value, see DepthResult.
func (r *Report) LegacyMaxDepth() int {
	if r.MaxDepth == nil {
		return -1
	}
	return *r.MaxDepth
}

// MarshalJSON ensures list fields serialize as [] rather than null so the
// output shape is stable regardless of how the report was constructed.
func (r *Report) MarshalJSON() ([]byte, error) {
	type alias Report
	a := alias(*r)
	if a.RootModules == nil {
		a.RootModules = []string{}
	}
	if a.LeafModules == nil {
		a.LeafModules = []string{}
	}
	if a.Cycles == nil {
		a.Cycles = [][]string{}
	}
	return json.Marshal(a)
}

func identStrings(ids []ident.Identity) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}
