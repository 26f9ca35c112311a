package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentpm/modgraph/pkg/config"
	"github.com/agentpm/modgraph/pkg/store"
)

// runsCommand creates the runs command for browsing persisted analyses.
// Runs are written by "analyze --save" or the server's save endpoint, so
// this command is only useful with a Mongo store configured; the in-memory
// fallback does not outlive the process that wrote it.
func (c *CLI) runsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Browse persisted analysis runs",
	}

	cmd.AddCommand(c.runsListCommand())
	cmd.AddCommand(c.runsShowCommand())

	return cmd
}

func (c *CLI) runsListCommand() *cobra.Command {
	var (
		rootFilter string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list [path]",
		Short: "List persisted runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore(cmd.Context(), args)
			if err != nil {
				return err
			}
			defer st.Close(cmd.Context())

			runs, err := st.List(cmd.Context(), rootFilter, limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				printInfo("No runs found")
				return nil
			}
			for _, run := range runs {
				printKeyValue(run.CreatedAt.Format("2006-01-02 15:04:05"), run.ID)
				printDetail("%s · %d modules · %d cycles",
					run.Root, run.Report.ModuleCount, run.Report.CircularDependencyCount)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&rootFilter, "root", "", "only runs for this project root")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum runs to list (0 = all)")

	return cmd
}

func (c *CLI) runsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Print one run's report as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := c.openStore(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer st.Close(cmd.Context())

			run, err := st.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(run, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	}
}

// openStore loads the config for the optional path argument and opens the
// configured store.
func (c *CLI) openStore(ctx context.Context, args []string) (store.Store, error) {
	root := "."
	if len(args) == 1 {
		root = args[0]
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadDir(absRoot)
	if err != nil {
		return nil, err
	}
	if cfg.Store.MongoURI == "" {
		printWarning("No store configured; runs saved by other processes are not visible")
	}
	return newStore(ctx, cfg)
}
