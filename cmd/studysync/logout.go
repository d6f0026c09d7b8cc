package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard stored credentials; pending changes survive",
	RunE:  runLogout,
}

func runLogout(cmd *cobra.Command, args []string) error {
	cfg, err := initRuntime()
	if err != nil {
		return err
	}

	c, st, err := openClient(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := c.Logout(); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
	return nil
}
