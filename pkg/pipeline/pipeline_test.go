package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/agentpm/modgraph/pkg/cache"
	"github.com/agentpm/modgraph/pkg/errors"
)

func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func sampleProject(t *testing.T) string {
	return writeProject(t, map[string]string{
		"app/__init__.py": "",
		"app/main.py":     "from app import db\nimport requests\n",
		"app/db.py":       "import sqlite3\n",
	})
}

func TestOptions_Validation(t *testing.T) {
	var opts Options
	if err := opts.ValidateAndSetDefaults(); err == nil {
		t.Fatal("expected error for missing root")
	}

	opts = Options{Root: "/proj"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}
	if opts.MaxNodes != DefaultMaxNodes || opts.MaxEdges != DefaultMaxEdges {
		t.Fatalf("defaults not applied: %+v", opts)
	}
	if opts.Logger == nil {
		t.Fatal("logger default not applied")
	}

	opts = Options{Root: "/proj", MaxNodes: -1}
	if err := opts.ValidateAndSetDefaults(); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Fatalf("err = %v, want INVALID_CONFIG", err)
	}
}

func TestExecute_FullRun(t *testing.T) {
	runner := NewRunner(cache.NewNullCache(), nil)
	defer runner.Close()

	result, err := runner.Execute(context.Background(), Options{Root: sampleProject(t)})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Report == nil {
		t.Fatal("no report")
	}
	// app, app.main, app.db internal plus requests and sqlite3 external.
	if result.Report.ModuleCount != 5 {
		t.Fatalf("module count = %d, want 5", result.Report.ModuleCount)
	}
	if result.Report.ExternalReferenceCount != 2 {
		t.Fatalf("external refs = %d, want 2", result.Report.ExternalReferenceCount)
	}
	if result.Stats.UnitCount != 3 {
		t.Fatalf("unit count = %d, want 3", result.Stats.UnitCount)
	}
	if result.CacheInfo.ReportHit {
		t.Fatal("null cache reported a hit")
	}
	if result.Document != nil {
		t.Fatal("document present without IncludeGraph")
	}
}

func TestExecute_IncludeGraph(t *testing.T) {
	runner := NewRunner(nil, nil)
	result, err := runner.Execute(context.Background(), Options{
		Root:         sampleProject(t),
		IncludeGraph: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Document == nil || len(result.Document.Nodes) != result.Report.ModuleCount {
		t.Fatalf("document = %+v", result.Document)
	}
}

func TestExecute_CacheRoundTrip(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fc, nil)
	defer runner.Close()

	root := sampleProject(t)
	opts := Options{Root: root}

	first, err := runner.Execute(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}
	if first.CacheInfo.ReportHit {
		t.Fatal("first run hit the cache")
	}

	second, err := runner.Execute(context.Background(), Options{Root: root})
	if err != nil {
		t.Fatal(err)
	}
	if !second.CacheInfo.ReportHit {
		t.Fatal("second run missed the cache")
	}
	if second.Report.ModuleCount != first.Report.ModuleCount {
		t.Fatalf("cached report differs: %d vs %d", second.Report.ModuleCount, first.Report.ModuleCount)
	}
	if second.Graph == nil || second.Graph.NodeCount() != first.Graph.NodeCount() {
		t.Fatal("graph not reconstituted on cache hit")
	}

	// Refresh bypasses the cache.
	third, err := runner.Execute(context.Background(), Options{Root: root, Refresh: true})
	if err != nil {
		t.Fatal(err)
	}
	if third.CacheInfo.ReportHit {
		t.Fatal("refresh run hit the cache")
	}
}

func TestExecute_SourceChangeMissesCache(t *testing.T) {
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(fc, nil)
	defer runner.Close()

	root := sampleProject(t)
	if _, err := runner.Execute(context.Background(), Options{Root: root}); err != nil {
		t.Fatal(err)
	}

	// Adding an import changes the fingerprint.
	path := filepath.Join(root, "app", "db.py")
	if err := os.WriteFile(path, []byte("import sqlite3\nimport json\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	result, err := runner.Execute(context.Background(), Options{Root: root})
	if err != nil {
		t.Fatal(err)
	}
	if result.CacheInfo.ReportHit {
		t.Fatal("stale report served after source change")
	}
}

func TestExecute_MalformedIsNonFatal(t *testing.T) {
	root := writeProject(t, map[string]string{
		"app/bad.py":  "from ....above import x\n",
		"app/good.py": "import os\n",
	})
	runner := NewRunner(nil, nil)
	result, err := runner.Execute(context.Background(), Options{Root: root})
	if err != nil {
		t.Fatalf("malformed file was fatal: %v", err)
	}
	if len(result.Malformed) != 1 {
		t.Fatalf("malformed = %v, want one entry", result.Malformed)
	}
	if len(result.Report.Malformed) != 1 {
		t.Fatal("report does not carry malformed entries")
	}
	if result.Report.ModuleCount == 0 {
		t.Fatal("healthy files not analyzed")
	}
}

func TestExecute_NodeLimit(t *testing.T) {
	runner := NewRunner(nil, nil)
	_, err := runner.Execute(context.Background(), Options{
		Root:     sampleProject(t),
		MaxNodes: 1,
	})
	if !errors.Is(err, errors.ErrCodeResourceExceeded) {
		t.Fatalf("err = %v, want RESOURCE_EXCEEDED", err)
	}
}
