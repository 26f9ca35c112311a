package pipeline

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"

	"github.com/agentpm/modgraph/pkg/analysis"
	"github.com/agentpm/modgraph/pkg/cache"
	"github.com/agentpm/modgraph/pkg/graph"
	"github.com/agentpm/modgraph/pkg/observability"
	"github.com/agentpm/modgraph/pkg/scan"
)

// Result contains the outputs of a pipeline run.
type Result struct {
	// Graph is the built dependency graph.
	Graph *graph.Graph

	// Document is the serialized graph. Only set with Options.IncludeGraph.
	Document *graph.Document

	// Report is the analysis result.
	Report *analysis.Report

	// Malformed lists non-fatal per-file failures encountered while
	// scanning and building.
	Malformed []string

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks whether the report came from cache.
	CacheInfo CacheInfo
}

// Runner executes pipelines with report caching. It is stateless apart from
// the cache and logger; one Runner serves concurrent runs safely.
type Runner struct {
	Cache  cache.Cache
	Logger *log.Logger
}

// NewRunner creates a runner. A nil cache disables caching.
func NewRunner(c cache.Cache, logger *log.Logger) *Runner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Cache: c, Logger: logger}
}

// cachedRun is the cache payload: everything needed to reproduce a Result
// without rebuilding, plus the document to reconstitute the graph.
type cachedRun struct {
	Report    *analysis.Report `json:"report"`
	Document  graph.Document   `json:"document"`
	Malformed []string         `json:"malformed,omitempty"`
}

// Execute runs scan → build → analyze with caching.
//
// The cache key is a fingerprint of the scanned units plus every setting
// that affects analysis, so any source or configuration change misses
// naturally. Scanning always runs; it is the cheap stage and its output is
// the fingerprint.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := r.runLogger(opts)

	result := &Result{}

	// Stage 1: scan.
	scanStart := time.Now()
	scanner, err := scan.New(scan.Options{
		Root:        opts.Root,
		Rules:       opts.Rules(),
		IgnoreDirs:  opts.IgnoreDirs,
		Concurrency: opts.Concurrency,
	})
	if err != nil {
		return nil, err
	}
	units, scanErrs, err := scanner.Scan(ctx)
	result.Stats.ScanTime = time.Since(scanStart)
	observability.Pipeline().OnScanComplete(ctx, opts.Root, len(units), result.Stats.ScanTime, err)
	if err != nil {
		return nil, err
	}
	for _, e := range scanErrs {
		result.Malformed = append(result.Malformed, e.Error())
	}
	result.Stats.UnitCount = len(units)

	logger.Info("scanned project",
		"units", len(units),
		"malformed", len(scanErrs),
		"duration", result.Stats.ScanTime)

	key := r.reportKey(units, opts)

	// Serve from cache when the fingerprint matches.
	if !opts.Refresh {
		if run, ok := r.lookup(ctx, key); ok {
			if err := r.restore(result, run, opts); err == nil {
				result.CacheInfo.ReportHit = true
				observability.Cache().OnCacheHit(ctx, key)
				logger.Info("report served from cache", "key", key[:16])
				return result, nil
			}
		}
		observability.Cache().OnCacheMiss(ctx, key)
	}

	// Stage 2: build.
	buildStart := time.Now()
	g, buildErrs, err := graph.NewBuilder(opts.Rules(), opts.Limits()).Build(units)
	result.Stats.BuildTime = time.Since(buildStart)
	if err != nil {
		observability.Pipeline().OnBuildComplete(ctx, opts.Root, 0, 0, result.Stats.BuildTime, err)
		return nil, err
	}
	for _, e := range buildErrs {
		result.Malformed = append(result.Malformed, e.Error())
	}
	result.Graph = g
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.InternalEdgeCount() + g.ExternalEdgeCount()
	observability.Pipeline().OnBuildComplete(ctx, opts.Root, result.Stats.NodeCount, result.Stats.EdgeCount, result.Stats.BuildTime, nil)

	logger.Info("built graph",
		"nodes", g.NodeCount(),
		"edges", result.Stats.EdgeCount,
		"duration", result.Stats.BuildTime)

	// Stage 3: analyze.
	analyzeStart := time.Now()
	report := analysis.Analyze(g)
	report.Malformed = result.Malformed
	result.Report = report
	result.Stats.AnalyzeTime = time.Since(analyzeStart)
	observability.Pipeline().OnAnalyzeComplete(ctx, opts.Root, report.CircularDependencyCount, result.Stats.AnalyzeTime, nil)

	logger.Info("analyzed graph",
		"cycles", report.CircularDependencyCount,
		"max_depth", report.LegacyMaxDepth(),
		"duration", result.Stats.AnalyzeTime)

	if opts.IncludeGraph {
		doc := g.ToDocument()
		result.Document = &doc
	}

	r.save(ctx, key, result)
	return result, nil
}

// reportKey fingerprints the scanned units together with the settings that
// change analysis output.
func (r *Runner) reportKey(units []graph.Unit, opts Options) string {
	data, _ := json.Marshal(units)
	return cache.ReportKey(cache.Hash(data), opts.Rules(), opts.Limits())
}

func (r *Runner) lookup(ctx context.Context, key string) (*cachedRun, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		return nil, false
	}
	var run cachedRun
	if err := json.Unmarshal(data, &run); err != nil || run.Report == nil {
		return nil, false
	}
	return &run, true
}

// restore rebuilds a Result from the cached payload. The graph is
// reconstituted from the cached document so interactive consumers still get
// a queryable graph on cache hits.
func (r *Runner) restore(result *Result, run *cachedRun, opts Options) error {
	g, _, err := graph.NewBuilder(opts.Rules(), opts.Limits()).Build(run.Document.Units())
	if err != nil {
		return err
	}
	result.Graph = g
	result.Report = run.Report
	result.Malformed = run.Malformed
	result.Stats.NodeCount = g.NodeCount()
	result.Stats.EdgeCount = g.InternalEdgeCount() + g.ExternalEdgeCount()
	if opts.IncludeGraph {
		doc := g.ToDocument()
		result.Document = &doc
	}
	return nil
}

func (r *Runner) save(ctx context.Context, key string, result *Result) {
	doc := result.Graph.ToDocument()
	data, err := json.Marshal(cachedRun{
		Report:    result.Report,
		Document:  doc,
		Malformed: result.Malformed,
	})
	if err != nil {
		return
	}
	if r.Cache.Set(ctx, key, data, DefaultReportTTL) == nil {
		observability.Cache().OnCacheSet(ctx, key, len(data))
	}
}

// Close releases the runner's cache.
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) runLogger(opts Options) *log.Logger {
	if opts.Logger != nil {
		return opts.Logger
	}
	return r.Logger
}
