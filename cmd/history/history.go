// Package history handles the history command: recorded runs.
package history

import (
	"context"
	"errors"
	"fmt"
	"io"

	"fjacquet/budget-sync/cmd/root"
	"fjacquet/budget-sync/internal/cli"
	"fjacquet/budget-sync/internal/models"

	"github.com/spf13/cobra"
)

var (
	limit int
	runID string
)

// Cmd represents the history command
var Cmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded runs",
	Long:  `List recorded runs, newest first, or show the log of one run with --id.`,
	RunE:  historyFunc,
}

func init() {
	Cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list (0 lists all)")
	Cmd.Flags().StringVar(&runID, "id", "", "Show the log of this run")
}

// Store reads recorded runs. *history.Store satisfies it.
type Store interface {
	List(ctx context.Context, limit int) ([]models.RunRecord, error)
	Get(ctx context.Context, id string) (models.RunRecord, error)
}

func historyFunc(cmd *cobra.Command, _ []string) error {
	c, err := root.NewContainer()
	if err != nil {
		return err
	}
	defer func() { _ = c.Close() }()

	store := c.GetHistory()
	if store == nil {
		return errors.New("run history is disabled (history.enabled=false)")
	}
	return Execute(cmd.Context(), store, runID, limit, cmd.OutOrStdout())
}

// Execute prints one run when id is set, the latest runs otherwise.
func Execute(ctx context.Context, store Store, id string, limit int, out io.Writer) error {
	if id == "" {
		runs, err := store.List(ctx, limit)
		if err != nil {
			return err
		}
		fmt.Fprint(out, cli.RenderRuns(runs))
		return nil
	}

	run, err := store.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("run %s: %w", id, err)
	}
	fmt.Fprint(out, cli.RenderRuns([]models.RunRecord{run}))
	fmt.Fprint(out, cli.RenderLog(run.Log))
	return nil
}
