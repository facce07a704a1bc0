// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package config loads gatehouse settings from defaults, a YAML file,
// the environment and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/gatehouse/gatehouse/internal/logging"
	"github.com/gatehouse/gatehouse/internal/xdg"
)

// EnvPrefix prefixes every environment variable gatehouse reads, except
// the conventional DATABASE_URL.
const EnvPrefix = "GATEHOUSE_"

// DefaultTokenSecret is the signing secret used when none is configured.
// It is only fit for local development.
const DefaultTokenSecret = "secret"

// Config is the effective gatehouse configuration.
type Config struct {
	HTTP     HTTPConfig     `koanf:"http" yaml:"http"`
	Metrics  MetricsConfig  `koanf:"metrics" yaml:"metrics"`
	Database DatabaseConfig `koanf:"database" yaml:"database"`
	Log      LogConfig      `koanf:"log" yaml:"log"`
	Token    TokenConfig    `koanf:"token" yaml:"token"`
	Admin    AdminConfig    `koanf:"admin" yaml:"admin"`
}

// HTTPConfig configures the public API listener.
type HTTPConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// MetricsConfig configures the metrics and health listener. An empty
// address disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

// DatabaseConfig configures the PostgreSQL connection. AutoMigrate applies
// pending migrations when the server starts.
type DatabaseConfig struct {
	URL            string        `koanf:"url" yaml:"url"`
	ConnectTimeout time.Duration `koanf:"connect_timeout" yaml:"connect_timeout"`
	AutoMigrate    bool          `koanf:"auto_migrate" yaml:"auto_migrate"`
}

// LogConfig configures the default slog logger.
type LogConfig struct {
	Format string `koanf:"format" yaml:"format"`
	Level  string `koanf:"level" yaml:"level"`
}

// TokenConfig configures access token signing.
type TokenConfig struct {
	Secret string        `koanf:"secret" yaml:"secret"`
	TTL    time.Duration `koanf:"ttl" yaml:"ttl"`
}

// AdminConfig is the administrator account ensured at startup.
type AdminConfig struct {
	Name     string `koanf:"name" yaml:"name"`
	Email    string `koanf:"email" yaml:"email"`
	Password string `koanf:"password" yaml:"password"`
}

func defaults() map[string]any {
	return map[string]any{
		"http.addr":                ":3000",
		"metrics.addr":             "127.0.0.1:9100",
		"database.url":             "",
		"database.connect_timeout": 30 * time.Second,
		"database.auto_migrate":    true,
		"log.format":               "json",
		"log.level":                "info",
		"token.secret":             DefaultTokenSecret,
		"token.ttl":                24 * time.Hour,
		"admin.name":               "Administrator",
		"admin.email":              "admin@app.com",
		"admin.password":           "Admin1234",
	}
}

// envKeys maps environment variables, without EnvPrefix, to config keys.
var envKeys = map[string]string{
	"HTTP_ADDR":                "http.addr",
	"METRICS_ADDR":             "metrics.addr",
	"DATABASE_URL":             "database.url",
	"DATABASE_CONNECT_TIMEOUT": "database.connect_timeout",
	"DATABASE_AUTO_MIGRATE":    "database.auto_migrate",
	"LOG_FORMAT":               "log.format",
	"LOG_LEVEL":                "log.level",
	"TOKEN_SECRET":             "token.secret",
	"TOKEN_TTL":                "token.ttl",
	"ADMIN_NAME":               "admin.name",
	"ADMIN_EMAIL":              "admin.email",
	"ADMIN_PASSWORD":           "admin.password",
}

// flagKeys maps command-line flag names to config keys. Flags not listed
// here are ignored by Load.
var flagKeys = map[string]string{
	"http-addr":       "http.addr",
	"metrics-addr":    "metrics.addr",
	"database-url":    "database.url",
	"connect-timeout": "database.connect_timeout",
	"auto-migrate":    "database.auto_migrate",
	"log-format":      "log.format",
	"log-level":       "log.level",
	"token-ttl":       "token.ttl",
	"admin-email":     "admin.email",
}

// Load builds the effective configuration. path names a YAML file; when
// empty, the XDG config file is read if it exists. flags may be nil.
func Load(flags *pflag.FlagSet, path string) (*Config, error) {
	k, err := newKoanf()
	if err != nil {
		return nil, err
	}

	if err := loadFile(k, path); err != nil {
		return nil, err
	}

	// DATABASE_URL is honored for compatibility; the prefixed form wins.
	if err := k.Load(env.Provider("DATABASE_URL", ".", func(s string) string {
		if s != "DATABASE_URL" {
			return ""
		}
		return "database.url"
	}), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return envKeys[strings.TrimPrefix(s, EnvPrefix)]
	}), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			key, ok := flagKeys[f.Name]
			if !ok {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
		}
	}

	return decode(k)
}

// Default returns the built-in configuration without reading any file,
// environment variable or flag.
func Default() (*Config, error) {
	k, err := newKoanf()
	if err != nil {
		return nil, err
	}
	return decode(k)
}

func newKoanf() (*koanf.Koanf, error) {
	k := koanf.New(".")
	for key, value := range defaults() {
		if err := k.Set(key, value); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").With("key", key).Wrap(err)
		}
	}
	return k, nil
}

func decode(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, oops.Code("CONFIG_INVALID").With("operation", "decode config").Wrap(err)
	}
	return &cfg, nil
}

// WriteFile writes cfg to path as YAML, creating the parent directory.
// An existing file is replaced only when overwrite is set.
func WriteFile(path string, cfg *Config, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return oops.Code("CONFIG_EXISTS").With("path", path).Errorf("config file already exists")
		}
	}
	if err := xdg.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}

	data, err := yamlv3.Marshal(cfg)
	if err != nil {
		return oops.Code("CONFIG_ENCODE_FAILED").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return oops.Code("CONFIG_WRITE_FAILED").With("path", path).Wrap(err)
	}
	return nil
}

func loadFile(k *koanf.Koanf, path string) error {
	explicit := path != ""
	if !explicit {
		var err error
		path, err = xdg.ConfigFile()
		if err != nil {
			// Without a home directory there is no default file to read.
			return nil //nolint:nilerr // the default file is optional
		}
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) && !explicit {
		return nil
	}

	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return oops.Code("CONFIG_LOAD_FAILED").With("source", "file").With("path", path).Wrap(err)
	}
	return nil
}

// Validate checks that the configuration is usable by the server.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return oops.Code("CONFIG_INVALID").With("key", "http.addr").Errorf("http.addr is required")
	}
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").With("key", "database.url").
			Errorf("database.url is required (set %sDATABASE_URL or DATABASE_URL)", EnvPrefix)
	}
	if c.Database.ConnectTimeout <= 0 {
		return oops.Code("CONFIG_INVALID").With("key", "database.connect_timeout").
			Errorf("database.connect_timeout must be positive, got %s", c.Database.ConnectTimeout)
	}
	if c.Token.Secret == "" {
		return oops.Code("CONFIG_INVALID").With("key", "token.secret").Errorf("token.secret is required")
	}
	if c.Token.TTL <= 0 {
		return oops.Code("CONFIG_INVALID").With("key", "token.ttl").
			Errorf("token.ttl must be positive, got %s", c.Token.TTL)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").With("key", "log.format").
			Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return oops.Code("CONFIG_INVALID").With("key", "log.level").Errorf("%v", err)
	}
	return nil
}

// UsesDefaultSecret reports whether tokens are signed with DefaultTokenSecret.
func (c *Config) UsesDefaultSecret() bool {
	return c.Token.Secret == DefaultTokenSecret
}

const redacted = "[REDACTED]"

// Redacted returns a copy with secrets and database credentials masked.
func (c *Config) Redacted() Config {
	out := *c
	if out.Token.Secret != "" {
		out.Token.Secret = redacted
	}
	if out.Admin.Password != "" {
		out.Admin.Password = redacted
	}
	out.Database.URL = redactURL(out.Database.URL)
	return out
}

// redactURL masks the password in a URL-form DSN. Key/value DSNs are
// masked entirely since they may carry password=.
func redactURL(dsn string) string {
	if dsn == "" {
		return ""
	}
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return redacted
	}
	return u.Redacted()
}
