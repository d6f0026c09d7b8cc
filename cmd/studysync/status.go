package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var statusJSONOutput bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show sync status without touching the network",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSONOutput, "json", false, "Output in JSON format")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := initRuntime()
	if err != nil {
		return err
	}

	c, st, err := openClient(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	status, err := c.GetStatus(cmd.Context())
	if err != nil {
		return err
	}

	if statusJSONOutput {
		return printJSON(cmd.OutOrStdout(), status)
	}

	lastSync := "never"
	if status.LastSyncAt != nil {
		lastSync = time.Unix(*status.LastSyncAt, 0).Local().Format(time.RFC3339)
	}

	tw := newTabWriter(cmd.OutOrStdout())
	fmt.Fprintf(tw, "Server:\t%s\n", valueOr(status.ServerURL, "not configured"))
	fmt.Fprintf(tw, "Authenticated:\t%t\n", status.Authenticated)
	fmt.Fprintf(tw, "Pending changes:\t%d\n", status.PendingChanges)
	fmt.Fprintf(tw, "Last sync:\t%s\n", lastSync)
	return tw.Flush()
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
