// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Feedpress Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feedpress/feedpress/internal/auth"
	"github.com/feedpress/feedpress/pkg/errutil"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feedpress.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg, err := Load("", nil)
	require.NoError(t, err)
	cfg.Auth.JWTSecret = testSecret
	cfg.Database.URL = "postgres://feedpress@localhost/feedpress"
	return cfg
}

func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
	v, ok := errutil.Value(err, "fields")
	require.True(t, ok)
	fields, ok := v.(map[string]string)
	require.True(t, ok)
	return fields
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "http://localhost:8080", cfg.HTTP.BaseURL)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, DriverPostgres, cfg.Database.Driver)
	assert.Equal(t, auth.HasherBcrypt, cfg.Auth.Hasher)
	assert.Equal(t, auth.DefaultBcryptCost, cfg.Auth.BcryptCost)
	assert.Equal(t, auth.DefaultSessionTTL, cfg.Auth.SessionTTL)
	assert.Equal(t, auth.DefaultSweepInterval, cfg.Auth.SweepInterval)
	assert.Equal(t, auth.DefaultSessionCookie, cfg.Auth.CookieName)
	assert.Equal(t, MailLog, cfg.Mail.Driver)
	assert.Equal(t, 587, cfg.Mail.SMTP.Port)
	assert.Equal(t, 2, cfg.Feed.PerPage)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
http:
  base_url: https://feed.example.com/
database:
  driver: memory
auth:
  hasher: argon2id
  session_ttl: 2h
feed:
  per_page: 10
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, "https://feed.example.com", cfg.HTTP.BaseURL)
	assert.Equal(t, ":8080", cfg.HTTP.Addr, "untouched keys keep defaults")
	assert.Equal(t, DriverMemory, cfg.Database.Driver)
	assert.Equal(t, auth.HasherArgon2id, cfg.Auth.Hasher)
	assert.Equal(t, 2*time.Hour, cfg.Auth.SessionTTL)
	assert.Equal(t, 10, cfg.Feed.PerPage)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "feed:\n  per_page: 10\n")
	t.Setenv("FEEDPRESS_FEED__PER_PAGE", "7")
	t.Setenv("FEEDPRESS_AUTH__JWT_SECRET", testSecret)
	t.Setenv("FEEDPRESS_MAIL__SMTP__HOST", "smtp.example.com")
	t.Setenv("FEEDPRESS_AUTH__COOKIE_SECURE", "true")

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Feed.PerPage)
	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, "smtp.example.com", cfg.Mail.SMTP.Host)
	assert.True(t, cfg.Auth.CookieSecure)
}

func TestLoad_ChangedFlagsWin(t *testing.T) {
	t.Setenv("FEEDPRESS_LOG__FORMAT", "json")
	t.Setenv("FEEDPRESS_HTTP__ADDR", ":9000")

	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.String("config", "", "")
	fs.String("log-format", "json", "")
	fs.String("http-addr", ":8080", "")
	require.NoError(t, fs.Parse([]string{"--log-format=text"}))

	cfg, err := Load("", fs)
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, ":9000", cfg.HTTP.Addr, "unchanged flag must not override env")
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
		errutil.AssertErrorCode(t, err, "CONFIG_LOAD_FAILED")
	})

	t.Run("unknown key", func(t *testing.T) {
		path := writeConfig(t, "auth:\n  jwt_secert: oops\n")
		_, err := Load(path, nil)
		errutil.AssertErrorCode(t, err, "CONFIG_SCHEMA_VIOLATION")
		errutil.AssertErrorContext(t, err, "path", path)
	})

	t.Run("bad duration", func(t *testing.T) {
		path := writeConfig(t, "auth:\n  session_ttl: tomorrow\n")
		_, err := Load(path, nil)
		errutil.AssertErrorCode(t, err, "CONFIG_SCHEMA_VIOLATION")
	})
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "auth.jwt_secret", envKey("FEEDPRESS_AUTH__JWT_SECRET"))
	assert.Equal(t, "mail.smtp.host", envKey("FEEDPRESS_MAIL__SMTP__HOST"))
}

func TestValidate_AcceptsDefaultsWithSecret(t *testing.T) {
	require.NoError(t, validConfig(t).Validate())
}

func TestValidate_Fields(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, "auth.jwt_secret"},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "auth.jwt_secret"},
		{"weak bcrypt cost", func(c *Config) { c.Auth.BcryptCost = 10 }, "auth.bcrypt_cost"},
		{"unknown hasher", func(c *Config) { c.Auth.Hasher = "md5" }, "auth.hasher"},
		{"unknown driver", func(c *Config) { c.Database.Driver = "sqlite" }, "database.driver"},
		{"postgres without url", func(c *Config) { c.Database.URL = "" }, "database.url"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad sender", func(c *Config) { c.Mail.From = "not-an-address" }, "mail.from"},
		{"bad base url", func(c *Config) { c.HTTP.BaseURL = "not a url" }, "http.base_url"},
		{"smtp without host", func(c *Config) { c.Mail.Driver = MailSMTP }, "mail.smtp.host"},
		{"negative page size", func(c *Config) { c.Feed.PerPage = -1 }, "feed.per_page"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig(t)
			tt.mutate(cfg)
			assert.Contains(t, fieldErrors(t, cfg.Validate()), tt.field)
		})
	}
}

func TestValidate_MemoryDriverNeedsNoURL(t *testing.T) {
	cfg := validConfig(t)
	cfg.Database.Driver = DriverMemory
	cfg.Database.URL = ""
	require.NoError(t, cfg.Validate())
}
