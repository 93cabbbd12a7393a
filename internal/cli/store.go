package cli

import (
	"fmt"

	"github.com/raphaelgruber/recsys-go/internal/db"
	"github.com/spf13/cobra"
)

var (
	storeRunID string
	storeForce bool
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect or clear the SurrealDB feature store",
}

var storeCountCmd = &cobra.Command{
	Use:   "count",
	Short: "Count stored features written by a run",
	Long: `Count the anime, rating and user features stored under a run id.

Examples:
  recsys store count --run 0b7e3c1a-6f0e-4d52-9c55-2a3f5e1b7c90`,
	Args: cobra.NoArgs,
	RunE: runStoreCount,
}

var storeWipeCmd = &cobra.Command{
	Use:   "wipe",
	Short: "Delete every stored feature, keeping the schema",
	Args:  cobra.NoArgs,
	RunE:  runStoreWipe,
}

func init() {
	storeCountCmd.Flags().StringVar(&storeRunID, "run", "", "run id (required)")
	_ = storeCountCmd.MarkFlagRequired("run")
	storeWipeCmd.Flags().BoolVarP(&storeForce, "force", "f", false, "skip confirmation")

	storeCmd.AddCommand(storeCountCmd)
	storeCmd.AddCommand(storeWipeCmd)
}

func runStoreCount(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	client, err := getDB(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s\n", storeRunID)
	for _, table := range db.Tables {
		n, err := client.CountRun(ctx, table, storeRunID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "  %-16s %d\n", table, n)
	}
	return nil
}

func runStoreWipe(cmd *cobra.Command, args []string) error {
	if !storeForce {
		return fmt.Errorf("refusing to wipe %s/%s without --force", cfg.SurrealDBNamespace, cfg.SurrealDBDatabase)
	}

	ctx := cmd.Context()
	client, err := getDB(ctx)
	if err != nil {
		return err
	}
	if err := client.WipeData(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Feature store wiped")
	return nil
}
