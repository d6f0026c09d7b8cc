package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/studysync/internal/store"
)

var pruneOlderThan time.Duration

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop tombstones older than the retention window",
	Long:  "Remove queued deletes older than the retention window. Pruned deletes will never reach the server; use this only for tombstones that can no longer be acknowledged.",
	RunE:  runPrune,
}

func init() {
	pruneCmd.Flags().DurationVar(&pruneOlderThan, "older-than", 0,
		"Retention window (default: config prune.retention, 90 days)")
}

func runPrune(cmd *cobra.Command, args []string) error {
	cfg, err := initRuntime()
	if err != nil {
		return err
	}

	olderThan := pruneOlderThan
	if olderThan == 0 {
		olderThan = time.Duration(cfg.Prune.Retention)
	}

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer st.Close()

	pruned, err := st.PruneTombstones(cmd.Context(), olderThan)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d tombstones older than %s\n", pruned, olderThan)
	return nil
}
