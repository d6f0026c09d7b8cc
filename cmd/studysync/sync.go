package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var syncJSONOutput bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Push pending local changes and pull server updates",
	RunE:  runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncJSONOutput, "json", false, "Output in JSON format")
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := initRuntime()
	if err != nil {
		return err
	}

	c, st, err := openClient(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	result := c.SyncNow(cmd.Context())

	if syncJSONOutput {
		if err := printJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else if result.Success {
		fmt.Fprintf(cmd.OutOrStdout(), "Synced: pushed %d, pulled %d, conflicts %d\n",
			result.Pushed, result.Pulled, result.Conflicts)
	} else {
		fmt.Fprintf(cmd.OutOrStdout(), "Sync failed: %s\n", result.Error)
	}

	if !result.Success {
		return errors.New(result.Error)
	}
	return nil
}
