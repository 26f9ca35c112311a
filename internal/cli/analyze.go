package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/agentpm/modgraph/pkg/config"
	"github.com/agentpm/modgraph/pkg/errors"
	"github.com/agentpm/modgraph/pkg/pipeline"
	"github.com/agentpm/modgraph/pkg/store"
)

// analyzeOpts holds the command-line flags for the analyze command.
type analyzeOpts struct {
	jsonOut      bool     // emit the report as JSON instead of the text summary
	graphOut     string   // write the full graph document to this file
	save         bool     // persist the run to the configured store
	noCache      bool     // disable the report cache
	refresh      bool     // bypass the cache for this run
	interactive  bool     // open the module browser after analysis
	failOnCycles bool     // non-zero exit when cycles are found (for CI)
	maxNodes     int      // override the node ceiling
	maxEdges     int      // override the edge ceiling
	exclude      []string // extra directory names to skip
}

// analyzeCommand creates the analyze command.
func (c *CLI) analyzeCommand() *cobra.Command {
	var opts analyzeOpts

	cmd := &cobra.Command{
		Use:   "analyze [path]",
		Short: "Analyze the module dependency structure of a project",
		Long: `Analyze scans a project directory, builds its module dependency graph,
and reports circular dependencies, maximum dependency depth, and coupling
metrics.

Settings are read from .modgraph.toml at the project root when present;
flags override the file.

Examples:
  modgraph analyze                      # analyze the current directory
  modgraph analyze ./src --json         # machine-readable report
  modgraph analyze . --fail-on-cycles   # CI gate
  modgraph analyze . --graph-out g.json # export the full graph
  modgraph analyze . --interactive      # browse modules after analysis`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}
			return c.runAnalyze(cmd.Context(), root, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "output the report as JSON")
	cmd.Flags().StringVar(&opts.graphOut, "graph-out", "", "write the graph document to a file")
	cmd.Flags().BoolVar(&opts.save, "save", false, "persist the run to the configured store")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable caching")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the report cache")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "browse modules interactively")
	cmd.Flags().BoolVar(&opts.failOnCycles, "fail-on-cycles", false, "exit non-zero when cycles are found")
	cmd.Flags().IntVar(&opts.maxNodes, "max-nodes", 0, "maximum graph nodes (0 = default)")
	cmd.Flags().IntVar(&opts.maxEdges, "max-edges", 0, "maximum graph edges (0 = default)")
	cmd.Flags().StringSliceVar(&opts.exclude, "exclude", nil, "additional directory names to skip")

	return cmd
}

func (c *CLI) runAnalyze(ctx context.Context, root string, opts analyzeOpts) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve path %s: %w", root, err)
	}

	cfg, err := config.LoadDir(absRoot)
	if err != nil {
		return err
	}

	popts := pipelineOptions(absRoot, cfg)
	popts.Refresh = opts.refresh
	popts.IncludeGraph = opts.graphOut != "" || opts.save
	popts.IgnoreDirs = append(popts.IgnoreDirs, opts.exclude...)
	if opts.maxNodes > 0 {
		popts.MaxNodes = opts.maxNodes
	}
	if opts.maxEdges > 0 {
		popts.MaxEdges = opts.maxEdges
	}

	runner, err := c.newRunner(ctx, cfg, opts.noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	var spinner *Spinner
	if !opts.jsonOut {
		spinner = newSpinnerWithContext(ctx, fmt.Sprintf("Analyzing %s", absRoot))
		spinner.Start()
	}

	tracker := newProgress(c.Logger)
	result, err := runner.Execute(ctx, popts)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		if errors.Is(err, errors.ErrCodeResourceExceeded) {
			printError("Graph too large: %s", errors.UserMessage(err))
		}
		return err
	}
	tracker.done(fmt.Sprintf("Analyzed %d modules", result.Report.ModuleCount))

	if opts.graphOut != "" {
		if err := writeGraphDocument(opts.graphOut, result); err != nil {
			return err
		}
	}
	if opts.save {
		if err := c.saveRun(ctx, cfg, absRoot, result); err != nil {
			return err
		}
	}

	if opts.jsonOut {
		data, err := json.MarshalIndent(result.Report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
	} else {
		renderReport(result)
	}

	if opts.interactive {
		model := newModuleBrowser(result.Report)
		if _, err := tea.NewProgram(model).Run(); err != nil {
			return fmt.Errorf("module browser: %w", err)
		}
	}

	if opts.failOnCycles && result.Report.HasCycles() {
		return errors.New(errors.ErrCodeInternal,
			"%d circular dependencies found", result.Report.CircularDependencyCount)
	}
	return nil
}

func writeGraphDocument(path string, result *pipeline.Result) error {
	data, err := json.MarshalIndent(result.Document, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write graph document: %w", err)
	}
	printFile(path)
	return nil
}

func (c *CLI) saveRun(ctx context.Context, cfg config.Config, root string, result *pipeline.Result) error {
	st, err := newStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close(ctx)

	run := store.NewRun(root, result.Report, result.Document)
	if err := st.Save(ctx, run); err != nil {
		return err
	}
	printSuccess("Saved run %s", run.ID)
	return nil
}
