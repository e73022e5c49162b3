// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Okiri Contributors

// Package config loads okiri settings from defaults, an optional YAML file,
// OKIRI_* environment variables and command-line flags, in that order.
package config

import (
	"os"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/okiri/okiri/internal/auth"
	"github.com/okiri/okiri/internal/dispatch"
	"github.com/okiri/okiri/internal/store"
	"github.com/okiri/okiri/internal/xdg"
)

// EnvPrefix is the prefix for environment overrides. OKIRI_STORE_REDIS_ADDR
// sets store.redis_addr: the first underscore after the prefix separates the
// section from the key.
const EnvPrefix = "OKIRI_"

// Dispatch drivers.
const (
	DispatchLog  = "log"
	DispatchNATS = "nats"
)

// Config is the complete okiri configuration.
type Config struct {
	Log      LogConfig      `koanf:"log" json:"log,omitempty"`
	Store    StoreConfig    `koanf:"store" json:"store,omitempty"`
	Dispatch DispatchConfig `koanf:"dispatch" json:"dispatch,omitempty"`
	Reset    ResetConfig    `koanf:"reset" json:"reset,omitempty"`
}

// LogConfig controls log output.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// StoreConfig selects the account and code storage backend.
type StoreConfig struct {
	Driver          string `koanf:"driver" json:"driver,omitempty" jsonschema:"enum=memory,enum=sqlite,enum=postgres,enum=redis"`
	DSN             string `koanf:"dsn" json:"dsn,omitempty" jsonschema:"description=SQLite file path or PostgreSQL URL"`
	RedisAddr       string `koanf:"redis_addr" json:"redis_addr,omitempty"`
	RedisPrefix     string `koanf:"redis_prefix" json:"redis_prefix,omitempty"`
	AutoMigrate     bool   `koanf:"auto_migrate" json:"auto_migrate,omitempty"`
	ConnectAttempts uint64 `koanf:"connect_attempts" json:"connect_attempts,omitempty" jsonschema:"minimum=1"`
}

// DispatchConfig selects how issued codes leave the process.
type DispatchConfig struct {
	Driver  string `koanf:"driver" json:"driver,omitempty" jsonschema:"enum=log,enum=nats"`
	NATSURL string `koanf:"nats_url" json:"nats_url,omitempty"`
	Subject string `koanf:"subject" json:"subject,omitempty"`
}

// ResetConfig holds the password-reset timing windows.
type ResetConfig struct {
	ResendInterval time.Duration `koanf:"resend_interval" json:"resend_interval,omitempty"`
	CodeTTL        time.Duration `koanf:"code_ttl" json:"code_ttl,omitempty"`
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Log: LogConfig{Format: "json", Level: "info"},
		Store: StoreConfig{
			Driver:          store.DriverSQLite,
			DSN:             defaultDatabaseFile(),
			RedisPrefix:     "okiri:",
			ConnectAttempts: 5,
		},
		Dispatch: DispatchConfig{Driver: DispatchLog, Subject: dispatch.DefaultSubject},
		Reset: ResetConfig{
			ResendInterval: auth.DefaultResendInterval,
			CodeTTL:        auth.DefaultCodeTTL,
		},
	}
}

func defaultDatabaseFile() string {
	path, err := xdg.DatabaseFile()
	if err != nil {
		return "okiri.db"
	}
	return path
}

// StoreOptions converts the store section for store.Open.
func (c Config) StoreOptions() store.Config {
	return store.Config{
		Driver:          c.Store.Driver,
		DSN:             c.Store.DSN,
		RedisAddr:       c.Store.RedisAddr,
		RedisPrefix:     c.Store.RedisPrefix,
		AutoMigrate:     c.Store.AutoMigrate,
		ConnectAttempts: c.Store.ConnectAttempts,
	}
}

// Load builds the configuration. An empty path reads the XDG config file
// when one exists; flags may be nil. Flags registered with RegisterFlags only override earlier
// sources when set. --store-redis-addr maps to store.redis_addr.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path == "" {
		path = existingDefaultFile()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
		if err := ValidateFile(data); err != nil {
			return Config{}, oops.With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
			return Config{}, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	cfg := Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Config{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func existingDefaultFile() string {
	path, err := xdg.ConfigFile()
	if err != nil {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func envKey(s string) string {
	return strings.Replace(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".", 1)
}

func flagKey(fs *pflag.FlagSet) func(*pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		// Flags outside any section, such as --config, are not settings.
		if !strings.Contains(f.Name, "-") {
			return "", nil
		}
		key := strings.Replace(f.Name, "-", ".", 1)
		return strings.ReplaceAll(key, "-", "_"), posflag.FlagVal(fs, f)
	}
}

// RegisterFlags adds a flag for every setting to fs, defaulting to Default().
func RegisterFlags(fs *pflag.FlagSet) {
	d := Default()
	fs.String("log-format", d.Log.Format, "log format (json|text)")
	fs.String("log-level", d.Log.Level, "log level (debug|info|warn|error)")
	fs.String("store-driver", d.Store.Driver, "storage backend ("+strings.Join(store.Drivers, "|")+")")
	fs.String("store-dsn", d.Store.DSN, "SQLite path or PostgreSQL URL")
	fs.String("store-redis-addr", d.Store.RedisAddr, "Redis host:port")
	fs.String("store-redis-prefix", d.Store.RedisPrefix, "Redis key prefix")
	fs.Bool("store-auto-migrate", d.Store.AutoMigrate, "apply PostgreSQL migrations on start")
	fs.Uint64("store-connect-attempts", d.Store.ConnectAttempts, "connection attempts for network backends")
	fs.String("dispatch-driver", d.Dispatch.Driver, "code delivery (log|nats)")
	fs.String("dispatch-nats-url", d.Dispatch.NATSURL, "NATS server URL")
	fs.String("dispatch-subject", d.Dispatch.Subject, "NATS subject for issued codes")
	fs.Duration("reset-resend-interval", d.Reset.ResendInterval, "minimum time between reset codes")
	fs.Duration("reset-code-ttl", d.Reset.CodeTTL, "reset code lifetime")
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	invalid := func(key string, value any, msg string) error {
		return oops.Code("CONFIG_INVALID").With("key", key).With("value", value).Errorf("%s: %s", key, msg)
	}

	if !slices.Contains([]string{"json", "text"}, c.Log.Format) {
		return invalid("log.format", c.Log.Format, "must be json or text")
	}
	if !slices.Contains(store.Drivers, c.Store.Driver) {
		return invalid("store.driver", c.Store.Driver, "must be one of "+strings.Join(store.Drivers, ", "))
	}
	switch c.Store.Driver {
	case store.DriverSQLite, store.DriverPostgres:
		if c.Store.DSN == "" {
			return invalid("store.dsn", c.Store.DSN, "required for "+c.Store.Driver)
		}
	case store.DriverRedis:
		if c.Store.RedisAddr == "" {
			return invalid("store.redis_addr", c.Store.RedisAddr, "required for redis")
		}
	}
	switch c.Dispatch.Driver {
	case DispatchLog:
	case DispatchNATS:
		if c.Dispatch.NATSURL == "" {
			return invalid("dispatch.nats_url", c.Dispatch.NATSURL, "required for nats")
		}
	default:
		return invalid("dispatch.driver", c.Dispatch.Driver, "must be log or nats")
	}
	if c.Reset.ResendInterval <= 0 {
		return invalid("reset.resend_interval", c.Reset.ResendInterval, "must be positive")
	}
	if c.Reset.CodeTTL <= 0 {
		return invalid("reset.code_ttl", c.Reset.CodeTTL, "must be positive")
	}
	return nil
}
