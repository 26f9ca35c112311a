// Package pipeline runs the complete scan → build → analyze flow shared by
// the CLI and the server. Centralizing it here keeps caching, limits, and
// defaults identical across every entry point.
package pipeline

import (
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/agentpm/modgraph/pkg/errors"
	"github.com/agentpm/modgraph/pkg/graph"
	"github.com/agentpm/modgraph/pkg/ident"
)

// Default ceilings. Conservative enough to stop a runaway scan of a vendored
// tree before it exhausts memory; real projects stay far below them.
const (
	DefaultMaxNodes = 50000
	DefaultMaxEdges = 500000

	// DefaultReportTTL bounds how long a cached report is served before the
	// project is rescanned even with an unchanged fingerprint.
	DefaultReportTTL = 24 * time.Hour
)

// Options configures one pipeline run. The struct serializes for API
// requests; runtime-only fields are excluded.
type Options struct {
	// Root is the project directory to scan. Required.
	Root string `json:"root"`

	// Extensions and IndexNames override identity normalization rules.
	Extensions []string `json:"extensions,omitempty"`
	IndexNames []string `json:"index_names,omitempty"`

	// IgnoreDirs adds directory names to the scan skip list.
	IgnoreDirs []string `json:"ignore_dirs,omitempty"`

	// MaxNodes and MaxEdges cap graph size. Zero means the package default.
	MaxNodes int `json:"max_nodes,omitempty"`
	MaxEdges int `json:"max_edges,omitempty"`

	// IncludeGraph keeps the full graph document on the result.
	IncludeGraph bool `json:"include_graph,omitempty"`

	// Refresh bypasses the report cache.
	Refresh bool `json:"refresh,omitempty"`

	// Concurrency bounds parallel file parsing. Zero means GOMAXPROCS.
	Concurrency int `json:"concurrency,omitempty"`

	// Runtime options (not serialized)
	Logger *log.Logger `json:"-"`

	validated bool `json:"-"`
}

// ValidateAndSetDefaults checks required fields and applies defaults.
// Idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.Root == "" {
		return errors.New(errors.ErrCodeInvalidPath, "root is required")
	}
	if o.MaxNodes < 0 || o.MaxEdges < 0 {
		return errors.New(errors.ErrCodeInvalidConfig, "limits must be non-negative")
	}
	if o.MaxNodes == 0 {
		o.MaxNodes = DefaultMaxNodes
	}
	if o.MaxEdges == 0 {
		o.MaxEdges = DefaultMaxEdges
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	o.validated = true
	return nil
}

// Rules returns the normalization rules for this run.
func (o *Options) Rules() ident.Rules {
	rules := ident.DefaultRules()
	if len(o.Extensions) > 0 {
		rules.Extensions = o.Extensions
	}
	if len(o.IndexNames) > 0 {
		rules.IndexNames = o.IndexNames
	}
	return rules
}

// Limits returns the graph build ceilings for this run.
func (o *Options) Limits() graph.Limits {
	return graph.Limits{MaxNodes: o.MaxNodes, MaxEdges: o.MaxEdges}
}

// Stats carries per-stage timing and size information.
type Stats struct {
	UnitCount   int
	NodeCount   int
	EdgeCount   int
	ScanTime    time.Duration
	BuildTime   time.Duration
	AnalyzeTime time.Duration
}

// CacheInfo records whether the run was served from cache.
type CacheInfo struct {
	ReportHit bool
}
