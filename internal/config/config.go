// Package config loads the service configuration from an optional YAML file
// and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config is the full service configuration.
type Config struct {
	Addr    string        `yaml:"addr"`
	WebDir  string        `yaml:"web_dir"`
	Storage StorageConfig `yaml:"storage"`
	Card    CardConfig    `yaml:"card"`
	Auth    AuthConfig    `yaml:"auth"`
	AMQP    AMQPConfig    `yaml:"amqp"`
	Log     LogConfig     `yaml:"log"`
}

// StorageConfig selects and locates the repository backend.
type StorageConfig struct {
	Driver      string `yaml:"driver"`
	DatabaseURL string `yaml:"database_url"`
	SQLitePath  string `yaml:"sqlite_path"`
}

// CardConfig holds habit card defaults.
type CardConfig struct {
	FirstWeekday string `yaml:"first_weekday"`
	Prefetch     bool   `yaml:"prefetch"`
}

// AuthConfig configures login and sessions.
type AuthConfig struct {
	Disabled        bool          `yaml:"disabled"`
	InitialUser     string        `yaml:"initial_user"`
	InitialPassword string        `yaml:"initial_password"`
	SessionCleanup  time.Duration `yaml:"session_cleanup"`
	OIDC            OIDCConfig    `yaml:"oidc"`
}

// OIDCConfig enables SSO login when Issuer is set.
type OIDCConfig struct {
	Issuer       string `yaml:"issuer"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
}

// Enabled reports whether SSO is configured.
func (o OIDCConfig) Enabled() bool {
	return o.Issuer != "" && o.ClientID != ""
}

// AMQPConfig enables event publishing when URL is set.
type AMQPConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Addr: ":8080",
		Storage: StorageConfig{
			Driver:     DriverMemory,
			SQLitePath: "habits.db",
		},
		Card: CardConfig{
			FirstWeekday: "sunday",
			Prefetch:     true,
		},
		Auth: AuthConfig{
			SessionCleanup: time.Hour,
		},
		AMQP: AMQPConfig{
			Exchange: "habits.events",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path (if not empty) over the defaults, then applies environment
// overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	switch c.Storage.Driver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.Storage.DatabaseURL == "" {
			return errors.New("storage.database_url is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	if c.Auth.SessionCleanup <= 0 {
		return errors.New("auth.session_cleanup must be positive")
	}
	if (c.Auth.InitialUser == "") != (c.Auth.InitialPassword == "") {
		return errors.New("auth.initial_user and auth.initial_password must be set together")
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok && v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}

	str("ADDR", &c.Addr)
	str("WEB_DIR", &c.WebDir)
	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("SQLITE_PATH", &c.Storage.SQLitePath)
	if v, ok := lookup("DATABASE_URL"); ok && v != "" {
		c.Storage.DatabaseURL = v
		if _, set := lookup("STORAGE_DRIVER"); !set {
			c.Storage.Driver = DriverPostgres
		}
	}
	str("FIRST_WEEKDAY", &c.Card.FirstWeekday)
	boolean("CARD_PREFETCH", &c.Card.Prefetch)

	boolean("AUTH_DISABLED", &c.Auth.Disabled)
	str("INITIAL_USER", &c.Auth.InitialUser)
	str("INITIAL_PASSWORD", &c.Auth.InitialPassword)
	if v, ok := lookup("SESSION_CLEANUP"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SESSION_CLEANUP: %w", err))
		} else {
			c.Auth.SessionCleanup = d
		}
	}
	str("OIDC_ISSUER", &c.Auth.OIDC.Issuer)
	str("OIDC_CLIENT_ID", &c.Auth.OIDC.ClientID)
	str("OIDC_CLIENT_SECRET", &c.Auth.OIDC.ClientSecret)
	str("OIDC_REDIRECT_URL", &c.Auth.OIDC.RedirectURL)

	str("AMQP_URL", &c.AMQP.URL)
	str("AMQP_EXCHANGE", &c.AMQP.Exchange)

	str("LOG_LEVEL", &c.Log.Level)
	boolean("LOG_DEVELOPMENT", &c.Log.Development)

	return errors.Join(errs...)
}
