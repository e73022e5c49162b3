// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"
)

// NewAccountCmd creates the account subcommand.
func NewAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Register and sign in local accounts",
	}
	cmd.AddCommand(newAccountRegisterCmd())
	cmd.AddCommand(newAccountLoginCmd())
	return cmd
}

func newAccountRegisterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "register EMAIL [PASSWORD]",
		Short: "Create an account",
		Long:  `Create an account. The password is read from stdin when not given.`,
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := passwordArg(cmd, args, 1)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				if err := a.svc.Register(cmd.Context(), args[0], password); err != nil {
					return userError(err)
				}
				cmd.Println("Account created.")
				return nil
			})
		},
	}
}

func newAccountLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login EMAIL [PASSWORD]",
		Short: "Check an email and password",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := passwordArg(cmd, args, 1)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				ok, err := a.svc.Login(cmd.Context(), args[0], password)
				if err != nil {
					return userError(err)
				}
				if !ok {
					return oops.Code("LOGIN_FAILED").Errorf("invalid email or password")
				}
				cmd.Println("Login successful.")
				return nil
			})
		},
	}
}
