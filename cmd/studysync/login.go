package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	authEmail    string
	authPassword string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Authenticate against the sync server",
	RunE:  runLogin,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account on the sync server and log in",
	RunE:  runRegister,
}

func init() {
	for _, cmd := range []*cobra.Command{loginCmd, registerCmd} {
		cmd.Flags().StringVar(&authEmail, "email", "", "Account email")
		cmd.Flags().StringVar(&authPassword, "password", "", "Account password")
		cmd.MarkFlagRequired("email")
		cmd.MarkFlagRequired("password")
	}
}

func runLogin(cmd *cobra.Command, args []string) error {
	cfg, err := initRuntime()
	if err != nil {
		return err
	}

	c, st, err := openClient(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	result, err := c.Login(cmd.Context(), authEmail, authPassword)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s (user %s)\n", authEmail, result.UserID)
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	cfg, err := initRuntime()
	if err != nil {
		return err
	}

	c, st, err := openClient(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	result, err := c.Register(cmd.Context(), authEmail, authPassword)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Registered %s (user %s)\n", authEmail, result.UserID)
	return nil
}
