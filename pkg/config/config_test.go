package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/agentpm/modgraph/pkg/errors"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, FileName), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return root
}

func TestLoadDir_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Cache.Backend != "file" {
		t.Fatalf("default cache backend = %q, want file", cfg.Cache.Backend)
	}
	rules := cfg.Rules()
	if len(rules.Extensions) == 0 || rules.Extensions[0] != ".py" {
		t.Fatalf("default extensions = %v", rules.Extensions)
	}
}

func TestLoadDir_OverridesMergeWithDefaults(t *testing.T) {
	root := writeConfig(t, `
[scan]
ignore_dirs = ["migrations", "generated"]
max_nodes = 5000

[cache]
backend = "redis"
addr = "localhost:6379"
`)
	cfg, err := LoadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scan.MaxNodes != 5000 {
		t.Fatalf("max nodes = %d", cfg.Scan.MaxNodes)
	}
	if len(cfg.Scan.IgnoreDirs) != 2 {
		t.Fatalf("ignore dirs = %v", cfg.Scan.IgnoreDirs)
	}
	// Extensions untouched by the file keep their defaults.
	if rules := cfg.Rules(); rules.Extensions[0] != ".py" {
		t.Fatalf("extensions = %v", rules.Extensions)
	}
	if cfg.Cache.Backend != "redis" || cfg.Cache.Addr != "localhost:6379" {
		t.Fatalf("cache = %+v", cfg.Cache)
	}
}

func TestLoad_InvalidToml(t *testing.T) {
	root := writeConfig(t, "[scan\nbroken")
	_, err := LoadDir(root)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Fatalf("error code = %v, want INVALID_CONFIG", errors.GetCode(err))
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative limit", "[scan]\nmax_nodes = -1\n"},
		{"unknown backend", "[cache]\nbackend = \"memcached\"\n"},
		{"redis without addr", "[cache]\nbackend = \"redis\"\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadDir(writeConfig(t, tt.content))
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Fatalf("err = %v, want INVALID_CONFIG", err)
			}
		})
	}
}

func TestConfig_Limits(t *testing.T) {
	root := writeConfig(t, "[scan]\nmax_nodes = 10\nmax_edges = 20\n")
	cfg, err := LoadDir(root)
	if err != nil {
		t.Fatal(err)
	}
	limits := cfg.Limits()
	if limits.MaxNodes != 10 || limits.MaxEdges != 20 {
		t.Fatalf("limits = %+v", limits)
	}
}
