// Package cli implements the modgraph command-line interface.
//
// This package provides commands for analyzing the module dependency
// structure of a Python codebase, serving reports over HTTP, browsing
// persisted runs, and managing the report cache. The CLI is built using
// cobra and supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - analyze: Scan a project and report cycles, depth, and coupling
//   - serve: Expose analysis over an HTTP API
//   - runs: Browse persisted analysis runs
//   - cache: Manage the report cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/agentpm/modgraph/pkg/buildinfo"
	"github.com/agentpm/modgraph/pkg/cache"
	"github.com/agentpm/modgraph/pkg/config"
	"github.com/agentpm/modgraph/pkg/pipeline"
	"github.com/agentpm/modgraph/pkg/store"
)

// appName is used for cache directories and display.
const appName = "modgraph"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Modgraph analyzes module dependency structure",
		Long:         `Modgraph scans a Python codebase, builds its module dependency graph, and reports circular dependencies, dependency depth, and coupling metrics.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.analyzeCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.runsCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// newRunner creates a pipeline runner honoring the project's cache config.
func (c *CLI) newRunner(ctx context.Context, cfg config.Config, noCache bool) (*pipeline.Runner, error) {
	backend, err := newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(backend, c.Logger), nil
}

func newCache(ctx context.Context, cfg config.Config, noCache bool) (cache.Cache, error) {
	if noCache || cfg.Cache.Backend == "none" {
		return cache.NewNullCache(), nil
	}
	if cfg.Cache.Backend == "redis" {
		return cache.NewRedisCache(ctx, cfg.Cache.Addr)
	}
	dir := cfg.Cache.Dir
	if dir == "" {
		var err error
		if dir, err = cacheDir(); err != nil {
			return cache.NewNullCache(), nil
		}
	}
	return cache.NewFileCache(dir)
}

// newStore creates the run store: Mongo when configured, in-memory otherwise.
func newStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.Store.MongoURI != "" {
		return store.NewMongoStore(ctx, cfg.Store.MongoURI, cfg.Store.Database)
	}
	return store.NewMemoryStore(), nil
}

// cacheDir returns the cache directory using XDG standard (~/.cache/modgraph/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// pipelineOptions merges the project config with per-command overrides.
func pipelineOptions(root string, cfg config.Config) pipeline.Options {
	return pipeline.Options{
		Root:       root,
		Extensions: cfg.Scan.Extensions,
		IndexNames: cfg.Scan.IndexNames,
		IgnoreDirs: cfg.Scan.IgnoreDirs,
		MaxNodes:   cfg.Scan.MaxNodes,
		MaxEdges:   cfg.Scan.MaxEdges,
	}
}
