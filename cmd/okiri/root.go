// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/okiri/okiri/internal/config"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the okiri CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "okiri",
		Short: "okiri - local account authentication and password recovery",
		Long: `okiri manages email/password accounts and the one-time codes
used to reset a forgotten password.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewAccountCmd())
	cmd.AddCommand(NewResetCmd())
	cmd.AddCommand(NewConfigCmd())

	return cmd
}
