// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package main

import (
	"context"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/okiri/okiri/internal/auth"
	"github.com/okiri/okiri/internal/observability"
)

// NewResetCmd creates the reset subcommand.
func NewResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Recover a forgotten password with a one-time code",
	}
	cmd.AddCommand(newResetRequestCmd())
	cmd.AddCommand(newResetConfirmCmd())
	cmd.AddCommand(newResetApplyCmd())
	cmd.AddCommand(newResetPurgeCmd())
	return cmd
}

func newResetRequestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "request EMAIL",
		Short: "Send a reset code to EMAIL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				if err := a.svc.SendCode(cmd.Context(), args[0]); err != nil {
					return userError(err)
				}
				cmd.Println("Reset code sent.")
				return nil
			})
		},
	}
}

func newResetConfirmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "confirm EMAIL CODE",
		Short: "Check a reset code",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				if !a.svc.ConfirmReset(cmd.Context(), args[0], args[1]) {
					return oops.Code("CODE_REJECTED").Errorf("code is invalid or expired")
				}
				cmd.Println("Code accepted.")
				return nil
			})
		},
	}
}

func newResetApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply EMAIL [NEW_PASSWORD]",
		Short: "Set a new password",
		Long: `Set a new password for EMAIL. The password is read from stdin when
not given. Run "reset confirm" first; apply does not check the code.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := passwordArg(cmd, args, 1)
			if err != nil {
				return err
			}
			return withApp(cmd, func(a *app) error {
				if err := a.svc.ResetPassword(cmd.Context(), args[0], password); err != nil {
					return userError(err)
				}
				cmd.Println("Password updated.")
				return nil
			})
		},
	}
}

type purgeConfig struct {
	every       time.Duration
	metricsAddr string
}

func newResetPurgeCmd() *cobra.Command {
	cfg := &purgeConfig{}

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete expired reset codes",
		Long: `Delete reset codes that can no longer be confirmed. With --every the
command keeps running and purges on that interval until interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				if cfg.every <= 0 {
					n, err := a.svc.Purge(cmd.Context())
					if err != nil {
						return userError(err)
					}
					cmd.Printf("Purged %d expired code(s).\n", n)
					return nil
				}
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				return runPurgeLoop(ctx, a, cfg)
			})
		},
	}

	cmd.Flags().DurationVar(&cfg.every, "every", 0, "purge repeatedly on this interval")
	cmd.Flags().StringVar(&cfg.metricsAddr, "metrics-addr", "", "metrics/health HTTP address while looping (empty = disabled)")
	return cmd
}

// runPurgeLoop purges immediately and then on every tick until ctx ends.
// Readiness turns true after the first successful purge.
func runPurgeLoop(ctx context.Context, a *app, cfg *purgeConfig) error {
	var ready atomic.Bool

	if cfg.metricsAddr != "" {
		srv := observability.NewServer(cfg.metricsAddr, ready.Load, a.logger, auth.RegisterMetrics)
		errCh, err := srv.Start()
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Stop(shutdownCtx); err != nil {
				a.logger.Warn("failed to stop observability server", "error", err)
			}
		}()
		go func() {
			if err, ok := <-errCh; ok && err != nil {
				a.logger.Error("observability server failed", "error", err)
			}
		}()
	}

	ticker := time.NewTicker(cfg.every)
	defer ticker.Stop()

	for {
		n, err := a.svc.Purge(ctx)
		if err != nil {
			ready.Store(false)
			a.logger.WarnContext(ctx, "purge failed", "error", err)
		} else {
			ready.Store(true)
			a.logger.InfoContext(ctx, "purged expired codes", "count", n)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
