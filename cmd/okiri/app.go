// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

package main

import (
	"bufio"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/okiri/okiri/internal/auth"
	"github.com/okiri/okiri/internal/config"
	"github.com/okiri/okiri/internal/dispatch"
	"github.com/okiri/okiri/internal/logging"
	"github.com/okiri/okiri/internal/store"
)

// app is the auth stack assembled from configuration for one command.
type app struct {
	cfg     config.Config
	logger  *slog.Logger
	backend *store.Backend
	svc     *auth.Service
	closers []func() error
}

func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := logging.Setup(logging.Options{
		Service: "okiri",
		Version: version,
		Format:  cfg.Log.Format,
		Level:   cfg.Log.Level,
		Writer:  cmd.ErrOrStderr(),
	})
	return cfg, logger, nil
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	ctx := cmd.Context()

	backend, err := store.Open(ctx, cfg.StoreOptions(), logger)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, backend: backend, closers: []func() error{backend.Close}}

	dispatcher, err := a.dispatcher()
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	credentials, err := auth.NewCredentialStore(backend.Accounts, auth.NewArgon2idHasher(), auth.SystemClock{}, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	flow, err := auth.NewVerificationFlow(backend.Accounts, backend.Verifications,
		auth.WithDispatcher(dispatcher),
		auth.WithWindows(cfg.Reset.ResendInterval, cfg.Reset.CodeTTL),
		auth.WithFlowLogger(logger),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.svc, err = auth.NewService(credentials, flow, auth.WithLogger(logger))
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) dispatcher() (auth.CodeDispatcher, error) {
	if a.cfg.Dispatch.Driver != config.DispatchNATS {
		return auth.NewLogDispatcher(a.logger), nil
	}
	d, err := dispatch.Connect(a.cfg.Dispatch.NATSURL, a.cfg.Dispatch.Subject, nats.Name("okiri"))
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, d.Close)
	return d, nil
}

// Close releases the dispatcher and store in reverse order of creation.
func (a *app) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// withApp runs fn with a fully wired app and closes it afterwards.
func withApp(cmd *cobra.Command, fn func(*app) error) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil {
			a.logger.Warn("shutdown failed", "error", cerr)
		}
	}()
	return fn(a)
}

// userError replaces err with the message a user should see, keeping its code.
func userError(err error) error {
	if err == nil {
		return nil
	}
	return oops.Code(auth.ErrorCode(err)).Errorf("%s", auth.UserMessage(err))
}

// passwordArg returns args[i], or reads one line from stdin when absent.
// Surrounding whitespace is part of the password and is kept.
func passwordArg(cmd *cobra.Command, args []string, i int) (string, error) {
	if len(args) > i {
		return args[i], nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", oops.Code("INPUT_READ_FAILED").Wrap(err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
