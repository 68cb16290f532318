package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the validation algorithm catalog",
	Long: `The catalog maps algorithm names to stable IDs and holds each algorithm's
confidence threshold. Validators can only be registered for catalogued names.`,
}

var catalogSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Insert or update catalog entries from the configured thresholds",
	Long: `Sync writes every algorithm that has a threshold in the configuration to the
catalog. Existing entries keep their ID and get the new threshold.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, err := setup(ctx)
		if err != nil {
			return err
		}
		defer e.close()

		if err := e.store.SyncCatalog(ctx, e.cfg.Thresholds()); err != nil {
			return fmt.Errorf("sync catalog: %w", err)
		}
		fmt.Fprintf(os.Stderr, "✓ Synced %d algorithms\n", len(e.cfg.Thresholds()))
		return listCatalog(ctx, e)
	},
}

var catalogListCmd = &cobra.Command{
	Use:   "list",
	Short: "List catalog entries",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		e, err := setup(ctx)
		if err != nil {
			return err
		}
		defer e.close()
		return listCatalog(ctx, e)
	},
}

func listCatalog(ctx context.Context, e *env) error {
	algs, err := e.store.Algorithms(ctx)
	if err != nil {
		return fmt.Errorf("list catalog: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tALGORITHM\tTHRESHOLD\tENABLED")
	for _, a := range algs {
		enabled := e.cfg.Algorithms[a.Name].Enabled
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%v\n", a.ID, a.Name, a.Threshold, enabled)
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogSyncCmd)
	catalogCmd.AddCommand(catalogListCmd)
}
