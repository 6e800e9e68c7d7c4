// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

// Package config loads feedpress configuration from defaults, a YAML file,
// FEEDPRESS_* environment variables and command-line flags, in that order of
// increasing precedence.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/feedpress/feedpress/internal/auth"
	"github.com/feedpress/feedpress/internal/post"
	"github.com/feedpress/feedpress/internal/store"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// nesting levels: FEEDPRESS_AUTH__JWT_SECRET sets auth.jwt_secret.
const EnvPrefix = "FEEDPRESS_"

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Mail drivers.
const (
	MailLog  = "log"
	MailSMTP = "smtp"
)

// Config is the complete process configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http" json:"http,omitempty"`
	Metrics  MetricsConfig  `koanf:"metrics" json:"metrics,omitempty"`
	Log      LogConfig      `koanf:"log" json:"log,omitempty"`
	Database DatabaseConfig `koanf:"database" json:"database,omitempty"`
	Auth     AuthConfig     `koanf:"auth" json:"auth,omitempty"`
	Mail     MailConfig     `koanf:"mail" json:"mail,omitempty"`
	Feed     FeedConfig     `koanf:"feed" json:"feed,omitempty"`
}

// HTTPConfig configures the public listener shared by both API surfaces.
type HTTPConfig struct {
	Addr    string `koanf:"addr" json:"addr,omitempty" jsonschema:"description=listen address of the web and graphql surfaces"`
	BaseURL string `koanf:"base_url" json:"base_url,omitempty" jsonschema:"description=public URL used in emailed links"`
}

// MetricsConfig configures the observability listener. An empty address
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" json:"addr,omitempty"`
}

// LogConfig configures slog output.
type LogConfig struct {
	Format string `koanf:"format" json:"format,omitempty" jsonschema:"enum=json,enum=text"`
	Level  string `koanf:"level" json:"level,omitempty" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
}

// DatabaseConfig selects and configures storage.
type DatabaseConfig struct {
	Driver         string `koanf:"driver" json:"driver,omitempty" jsonschema:"enum=postgres,enum=memory"`
	URL            string `koanf:"url" json:"url,omitempty"`
	MaxConns       int32  `koanf:"max_conns" json:"max_conns,omitempty" jsonschema:"minimum=0"`
	ConnectRetries uint64 `koanf:"connect_retries" json:"connect_retries,omitempty"`
	AutoMigrate    bool   `koanf:"auto_migrate" json:"auto_migrate,omitempty"`
}

// AuthConfig configures credentials, sessions and bearer tokens.
type AuthConfig struct {
	JWTSecret     string        `koanf:"jwt_secret" json:"jwt_secret,omitempty" jsonschema:"minLength=32"`
	Hasher        string        `koanf:"hasher" json:"hasher,omitempty" jsonschema:"enum=bcrypt,enum=argon2id"`
	BcryptCost    int           `koanf:"bcrypt_cost" json:"bcrypt_cost,omitempty" jsonschema:"minimum=12,maximum=31"`
	SessionTTL    time.Duration `koanf:"session_ttl" json:"session_ttl,omitempty"`
	CookieName    string        `koanf:"cookie_name" json:"cookie_name,omitempty"`
	CookieSecure  bool          `koanf:"cookie_secure" json:"cookie_secure,omitempty"`
	SweepInterval time.Duration `koanf:"sweep_interval" json:"sweep_interval,omitempty"`
}

// MailConfig configures outgoing email.
type MailConfig struct {
	Driver string     `koanf:"driver" json:"driver,omitempty" jsonschema:"enum=log,enum=smtp"`
	From   string     `koanf:"from" json:"from,omitempty"`
	SMTP   SMTPConfig `koanf:"smtp" json:"smtp,omitempty"`
}

// SMTPConfig configures the smtp mail driver.
type SMTPConfig struct {
	Host     string `koanf:"host" json:"host,omitempty"`
	Port     int    `koanf:"port" json:"port,omitempty" jsonschema:"minimum=1,maximum=65535"`
	Username string `koanf:"username" json:"username,omitempty"`
	Password string `koanf:"password" json:"password,omitempty"`
}

// FeedConfig configures the post listing.
type FeedConfig struct {
	PerPage int `koanf:"per_page" json:"per_page,omitempty" jsonschema:"minimum=1"`
}

// Defaults returns the built-in configuration.
func Defaults() map[string]any {
	return map[string]any{
		"http.addr":                ":8080",
		"http.base_url":            "http://localhost:8080",
		"metrics.addr":             "127.0.0.1:9100",
		"log.format":               "json",
		"log.level":                "info",
		"database.driver":          DriverPostgres,
		"database.max_conns":       0,
		"database.connect_retries": store.DefaultConnectRetries,
		"database.auto_migrate":    false,
		"auth.hasher":              auth.HasherBcrypt,
		"auth.bcrypt_cost":         auth.DefaultBcryptCost,
		"auth.session_ttl":         auth.DefaultSessionTTL.String(),
		"auth.cookie_name":         auth.DefaultSessionCookie,
		"auth.cookie_secure":       false,
		"auth.sweep_interval":      auth.DefaultSweepInterval.String(),
		"mail.driver":              MailLog,
		"mail.from":                "shop@feedpress.local",
		"mail.smtp.port":           587,
		"feed.per_page":            post.DefaultPerPage,
	}
}

// Load builds a Config. path may be empty. flags may be nil; only flags the
// user changed override earlier sources. Flag names map to keys by turning
// the first '-' into '.', so --log-format sets log.format.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	for key, value := range Defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}

	if path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path comes from the operator
		if err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
		if err := ValidateSchema(data); err != nil {
			return nil, oops.With("path", path).Wrap(err)
		}
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "decode config").Wrap(err)
	}
	cfg.HTTP.BaseURL = strings.TrimRight(cfg.HTTP.BaseURL, "/")
	return &cfg, nil
}

// envKey maps FEEDPRESS_MAIL__SMTP__HOST to mail.smtp.host.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func flagKey(fs *pflag.FlagSet) func(*pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		if f.Name == "config" {
			return "", nil
		}
		return strings.Replace(f.Name, "-", ".", 1), posflag.FlagVal(fs, f)
	}
}

// Validate checks the loaded configuration. The error carries code
// CONFIG_INVALID and a "fields" map of key to message.
func (c *Config) Validate() error {
	fields := map[string]string{}
	collect := func(prefix string, err error) {
		var errs validation.Errors
		if !errors.As(err, &errs) {
			if err != nil {
				fields[prefix] = err.Error()
			}
			return
		}
		for name, fieldErr := range errs {
			fields[prefix+"."+name] = fieldErr.Error()
		}
	}

	collect("http", validation.ValidateStruct(&c.HTTP,
		validation.Field(&c.HTTP.Addr, validation.Required),
		validation.Field(&c.HTTP.BaseURL, validation.Required, is.URL),
	))
	collect("log", validation.ValidateStruct(&c.Log,
		validation.Field(&c.Log.Format, validation.In("json", "text")),
		validation.Field(&c.Log.Level, validation.In("debug", "info", "warn", "warning", "error")),
	))
	collect("database", validation.ValidateStruct(&c.Database,
		validation.Field(&c.Database.Driver, validation.Required, validation.In(DriverPostgres, DriverMemory)),
		validation.Field(&c.Database.URL, databaseURLRules(c.Database.Driver)...),
		validation.Field(&c.Database.MaxConns, validation.Min(int32(0))),
	))
	collect("auth", validation.ValidateStruct(&c.Auth,
		validation.Field(&c.Auth.JWTSecret, validation.Required, validation.Length(auth.MinSigningKeyLength, 0)),
		validation.Field(&c.Auth.Hasher, validation.In(auth.HasherBcrypt, auth.HasherArgon2id)),
		validation.Field(&c.Auth.BcryptCost, validation.Min(auth.DefaultBcryptCost), validation.Max(31)),
		validation.Field(&c.Auth.SessionTTL, validation.Min(time.Minute)),
	))
	collect("mail", validation.ValidateStruct(&c.Mail,
		validation.Field(&c.Mail.Driver, validation.Required, validation.In(MailLog, MailSMTP)),
		validation.Field(&c.Mail.From, validation.Required, is.Email),
	))
	if c.Mail.Driver == MailSMTP {
		collect("mail.smtp", validation.ValidateStruct(&c.Mail.SMTP,
			validation.Field(&c.Mail.SMTP.Host, validation.Required),
			validation.Field(&c.Mail.SMTP.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		))
	}
	collect("feed", validation.ValidateStruct(&c.Feed,
		validation.Field(&c.Feed.PerPage, validation.Min(1)),
	))

	if len(fields) == 0 {
		return nil
	}
	return oops.Code("CONFIG_INVALID").
		With("fields", fields).
		Errorf("invalid configuration: %d field(s)", len(fields))
}

func databaseURLRules(driver string) []validation.Rule {
	if driver == DriverPostgres {
		return []validation.Rule{validation.Required}
	}
	return nil
}
