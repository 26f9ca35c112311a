package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/agentpm/modgraph/pkg/graph"
	"github.com/agentpm/modgraph/pkg/ident"
)

func build(t *testing.T, units []graph.Unit) *graph.Graph {
	t.Helper()
	g, malformed, err := graph.NewBuilder(ident.DefaultRules(), graph.Limits{}).Build(units)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(malformed) != 0 {
		t.Fatalf("unexpected malformed units: %v", malformed)
	}
	return g
}

func unit(src string, imports ...string) graph.Unit {
	return graph.Unit{RawSourceID: src, RawImports: imports}
}

func TestAnalyze_Chain(t *testing.T) {
	g := build(t, []graph.Unit{
		unit("app/a.py", "app.b"),
		unit("app/b.py", "app.c"),
		unit("app/c.py"),
	})
	r := Analyze(g)

	if r.ModuleCount != 3 || r.DependencyCount != 2 {
		t.Fatalf("counts = (%d, %d), want (3, 2)", r.ModuleCount, r.DependencyCount)
	}
	if r.HasCycles() {
		t.Fatalf("unexpected cycles: %v", r.Cycles)
	}
	if r.MaxDepth == nil || *r.MaxDepth != 2 {
		t.Fatalf("max depth = %v, want 2", r.MaxDepth)
	}
	if len(r.RootModules) != 1 || r.RootModules[0] != "app.a" {
		t.Fatalf("roots = %v, want [app.a]", r.RootModules)
	}
	if len(r.LeafModules) != 1 || r.LeafModules[0] != "app.c" {
		t.Fatalf("leaves = %v, want [app.c]", r.LeafModules)
	}
}

func TestAnalyze_Diamond(t *testing.T) {
	g := build(t, []graph.Unit{
		unit("app/a.py", "app.b", "app.c"),
		unit("app/b.py", "app.d"),
		unit("app/c.py", "app.d"),
		unit("app/d.py"),
	})
	r := Analyze(g)

	if r.ModuleCount != 4 {
		t.Fatalf("module count = %d, want 4", r.ModuleCount)
	}
	if r.DependencyCount != 4 {
		t.Fatalf("dependency count = %d, want 4", r.DependencyCount)
	}
	if r.MaxDepth == nil || *r.MaxDepth != 2 {
		t.Fatalf("max depth = %v, want 2 (two converging paths, not 4)", r.MaxDepth)
	}
	if len(r.RootModules) != 1 || r.RootModules[0] != "app.a" {
		t.Fatalf("roots = %v, want [app.a]", r.RootModules)
	}
}

func TestAnalyze_TwoCycle(t *testing.T) {
	g := build(t, []graph.Unit{
		unit("app/a.py", "app.b"),
		unit("app/b.py", "app.a"),
	})
	r := Analyze(g)

	if r.CircularDependencyCount != 1 {
		t.Fatalf("cycle count = %d, want exactly 1 for one SCC", r.CircularDependencyCount)
	}
	want := []string{"app.a", "app.b"}
	if len(r.Cycles[0]) != 2 || r.Cycles[0][0] != want[0] || r.Cycles[0][1] != want[1] {
		t.Fatalf("cycle = %v, want %v", r.Cycles[0], want)
	}
	if r.MaxDepth != nil {
		t.Fatalf("max depth = %d, want nil on a cyclic graph", *r.MaxDepth)
	}
	if r.LegacyMaxDepth() != -1 {
		t.Fatalf("legacy max depth = %d, want -1", r.LegacyMaxDepth())
	}
}

func TestAnalyze_SelfImport(t *testing.T) {
	g := build(t, []graph.Unit{
		unit("app/a.py", "app.a"),
	})
	r := Analyze(g)

	if r.CircularDependencyCount != 1 {
		t.Fatalf("cycle count = %d, want 1", r.CircularDependencyCount)
	}
	if len(r.Cycles[0]) != 1 || r.Cycles[0][0] != "app.a" {
		t.Fatalf("cycle = %v, want [app.a]", r.Cycles[0])
	}
}

func TestAnalyze_ExternalTargetsAreInert(t *testing.T) {
	// The external target shares its spelling with nothing internal, so it
	// must not show up as a root, a leaf, or part of a cycle.
	g := build(t, []graph.Unit{
		unit("app/a.py", "requests", "app.b"),
		unit("app/b.py", "requests"),
	})
	r := Analyze(g)

	if r.HasCycles() {
		t.Fatalf("unexpected cycles: %v", r.Cycles)
	}
	if r.ExternalReferenceCount != 2 {
		t.Fatalf("external refs = %d, want 2", r.ExternalReferenceCount)
	}
	for _, root := range r.RootModules {
		if root == "requests" {
			t.Fatal("external node reported as root")
		}
	}
	for _, leaf := range r.LeafModules {
		if leaf == "requests" {
			t.Fatal("external node reported as leaf")
		}
	}
	if r.MaxDepth == nil || *r.MaxDepth != 1 {
		t.Fatalf("max depth = %v, want 1 (external edges do not extend chains)", r.MaxDepth)
	}
}

func TestAnalyze_DisjointComponents(t *testing.T) {
	g := build(t, []graph.Unit{
		unit("app/a.py", "app.b"),
		unit("app/b.py"),
		unit("lib/x.py", "lib.y"),
		unit("lib/y.py", "lib.x"),
	})
	r := Analyze(g)

	if r.CircularDependencyCount != 1 {
		t.Fatalf("cycle count = %d, want 1", r.CircularDependencyCount)
	}
	if r.Cycles[0][0] != "lib.x" {
		t.Fatalf("cycle starts at %s, want lib.x (smallest member)", r.Cycles[0][0])
	}
	// One cycle anywhere makes depth undefined for the whole graph.
	if r.MaxDepth != nil {
		t.Fatalf("max depth = %d, want nil", *r.MaxDepth)
	}
}

func TestAnalyze_MultipleCyclesDeterministicOrder(t *testing.T) {
	units := []graph.Unit{
		unit("zeta/a.py", "zeta.b"),
		unit("zeta/b.py", "zeta.a"),
		unit("alpha/a.py", "alpha.b"),
		unit("alpha/b.py", "alpha.a"),
	}
	r1 := Analyze(build(t, units))

	reversed := make([]graph.Unit, len(units))
	for i, u := range units {
		reversed[len(units)-1-i] = u
	}
	r2 := Analyze(build(t, reversed))

	if r1.CircularDependencyCount != 2 || r2.CircularDependencyCount != 2 {
		t.Fatalf("cycle counts = (%d, %d), want (2, 2)", r1.CircularDependencyCount, r2.CircularDependencyCount)
	}
	if r1.Cycles[0][0] != "alpha.a" {
		t.Fatalf("first cycle starts at %s, want alpha.a", r1.Cycles[0][0])
	}
	for i := range r1.Cycles {
		if strings.Join(r1.Cycles[i], ",") != strings.Join(r2.Cycles[i], ",") {
			t.Fatalf("cycle order depends on input order: %v vs %v", r1.Cycles, r2.Cycles)
		}
	}
}

func TestAnalyze_RootInvariant(t *testing.T) {
	g := build(t, []graph.Unit{
		unit("app/a.py", "app.c"),
		unit("app/b.py", "app.c"),
		unit("app/c.py", "app.d"),
		unit("app/d.py"),
		unit("app/lone.py"),
	})
	r := Analyze(g)

	// Recompute roots straight from the edge list and compare.
	hasParent := make(map[string]bool)
	for _, e := range g.Edges() {
		if e.Kind == graph.EdgeInternal {
			hasParent[g.Identity(e.To).String()] = true
		}
	}
	want := 0
	for i := 0; i < g.NodeCount(); i++ {
		if n := g.Node(i); !n.External && !hasParent[n.ID.String()] {
			want++
		}
	}
	if len(r.RootModules) != want {
		t.Fatalf("root count = %d, recomputed from edges = %d", len(r.RootModules), want)
	}
}

func TestComputeMetrics_FanInFanOut(t *testing.T) {
	g := build(t, []graph.Unit{
		unit("app/a.py", "app.b", "app.c", "numpy"),
		unit("app/b.py", "app.c"),
		unit("app/c.py"),
	})
	m := ComputeMetrics(g)

	stats := make(map[string]ModuleStat, len(m.Modules))
	for _, s := range m.Modules {
		stats[s.ID] = s
	}
	if s := stats["app.a"]; s.FanOut != 2 || s.FanIn != 0 || s.ExternalRefs != 1 {
		t.Fatalf("app.a stat = %+v", s)
	}
	if s := stats["app.c"]; s.FanIn != 2 || s.FanOut != 0 {
		t.Fatalf("app.c stat = %+v", s)
	}
	if _, ok := stats["numpy"]; ok {
		t.Fatal("external node has a module stat")
	}
}

func TestCondensation(t *testing.T) {
	g := build(t, []graph.Unit{
		unit("app/a.py", "app.b"),
		unit("app/b.py", "app.a"),
		unit("app/c.py", "app.a", "app.b"),
	})
	scc := stronglyConnected(g)

	if len(scc.members) != 2 {
		t.Fatalf("scc count = %d, want 2", len(scc.members))
	}
	edges := condensation(g, scc)
	if len(edges) != 1 {
		t.Fatalf("condensation edges = %v, want exactly 1", edges)
	}
	if edges[0].Count != 2 {
		t.Fatalf("aggregated edge count = %d, want 2", edges[0].Count)
	}
	c, _ := g.Lookup(ident.Identity("app.c"))
	a, _ := g.Lookup(ident.Identity("app.a"))
	if edges[0].FromSCC != scc.comp[c] || edges[0].ToSCC != scc.comp[a] {
		t.Fatalf("condensation edge %+v does not point from c's SCC to the {a,b} SCC", edges[0])
	}
}

func TestReport_JSONShape(t *testing.T) {
	cyclic := Analyze(build(t, []graph.Unit{
		unit("app/a.py", "app.b"),
		unit("app/b.py", "app.a"),
	}))
	raw, err := json.Marshal(cyclic)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(fields["max_depth"]) != "null" {
		t.Fatalf("max_depth = %s, want null on a cyclic graph", fields["max_depth"])
	}

	acyclic := Analyze(build(t, []graph.Unit{unit("app/a.py")}))
	raw, err = json.Marshal(acyclic)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if string(fields["cycles"]) != "[]" {
		t.Fatalf("cycles = %s, want [] on an acyclic graph", fields["cycles"])
	}
	if string(fields["max_depth"]) != "0" {
		t.Fatalf("max_depth = %s, want 0", fields["max_depth"])
	}
}

func TestComputeDepth_EmptyGraph(t *testing.T) {
	g := build(t, nil)
	r := Analyze(g)
	if r.ModuleCount != 0 || r.MaxDepth == nil || *r.MaxDepth != 0 {
		t.Fatalf("empty graph report = %+v", r)
	}
}

func TestStronglyConnected_DeepChainIterative(t *testing.T) {
	// A 5000-node chain would overflow a recursive traversal's stack budget
	// in some runtimes; the iterative pass must handle it without issue.
	const n = 5000
	units := make([]graph.Unit, n)
	for i := 0; i < n; i++ {
		u := unit(modName(i))
		if i+1 < n {
			u.RawImports = []string{strings.TrimSuffix(modName(i+1), ".py")}
		}
		units[i] = u
	}
	g := build(t, units)
	r := Analyze(g)

	if r.HasCycles() {
		t.Fatal("chain reported cyclic")
	}
	if r.MaxDepth == nil || *r.MaxDepth != n-1 {
		t.Fatalf("max depth = %v, want %d", r.MaxDepth, n-1)
	}
}

// modName zero-pads so lexicographic and numeric order agree.
func modName(i int) string {
	return fmt.Sprintf("deep/m%05d.py", i)
}
