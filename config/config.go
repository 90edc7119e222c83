// Package config loads service settings: built-in defaults, then an optional
// TOML file, then CUSEXT_* environment variables, then validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	toml "github.com/pelletier/go-toml/v2"
)

const (
	defaultSchema          = "cusext"
	defaultMaxConns        = 10
	defaultConnMaxLifetime = 30 * time.Minute
	defaultHTTPAddr        = ":8080"
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 15 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultTokenTTL        = 8 * time.Hour
	defaultLogLevel        = "info"
	defaultLogFormat       = "json"
	defaultLogMaxSizeMB    = 10
	defaultLogMaxFiles     = 5
)

var ErrInvalidConfig = errors.New("invalid config")

var schemaPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

type Config struct {
	Database DatabaseConfig `envPrefix:"DB_"`
	HTTP     HTTPConfig     `envPrefix:"HTTP_"`
	Auth     AuthConfig     `envPrefix:"AUTH_"`
	Logging  LoggingConfig  `envPrefix:"LOG_"`
}

type DatabaseConfig struct {
	DSN             string        `env:"DSN"`
	Schema          string        `env:"SCHEMA"`
	MaxConns        int32         `env:"MAX_CONNS"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME"`
}

type HTTPConfig struct {
	Addr            string        `env:"ADDR"`
	ReadTimeout     time.Duration `env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT"`
}

type AuthConfig struct {
	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL"`
}

type LoggingConfig struct {
	Level     string `env:"LEVEL"`
	Format    string `env:"FORMAT"`
	File      string `env:"FILE"`
	MaxSizeMB int    `env:"MAX_SIZE_MB"`
	MaxFiles  int    `env:"MAX_FILES"`
}

type LoadOptions struct {
	// ConfigPath is an optional TOML file. When empty, CUSEXT_CONFIG is used.
	ConfigPath string
	// Env overrides the process environment; used by tests.
	Env map[string]string
	// RequireSecret makes an empty JWT secret a validation error.
	RequireSecret bool
}

func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			Schema:          defaultSchema,
			MaxConns:        defaultMaxConns,
			ConnMaxLifetime: defaultConnMaxLifetime,
		},
		HTTP: HTTPConfig{
			Addr:            defaultHTTPAddr,
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Auth: AuthConfig{
			TokenTTL: defaultTokenTTL,
		},
		Logging: LoggingConfig{
			Level:     defaultLogLevel,
			Format:    defaultLogFormat,
			MaxSizeMB: defaultLogMaxSizeMB,
			MaxFiles:  defaultLogMaxFiles,
		},
	}
}

func Load(opts LoadOptions) (Config, error) {
	cfg := DefaultConfig()

	path := opts.ConfigPath
	if path == "" {
		path = lookup(opts, "CUSEXT_CONFIG")
	}
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	envOpts := env.Options{Prefix: "CUSEXT_"}
	if opts.Env != nil {
		envOpts.Environment = opts.Env
	}
	if err := env.ParseWithOptions(&cfg, envOpts); err != nil {
		return Config{}, fmt.Errorf("%w: parse env: %v", ErrInvalidConfig, err)
	}

	if err := validate(cfg, opts); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type rawConfig struct {
	Database *rawDatabase `toml:"database"`
	HTTP     *rawHTTP     `toml:"http"`
	Auth     *rawAuth     `toml:"auth"`
	Logging  *rawLogging  `toml:"logging"`
}

type rawDatabase struct {
	DSN             *string `toml:"dsn"`
	Schema          *string `toml:"schema"`
	MaxConns        *int32  `toml:"max_conns"`
	ConnMaxLifetime *string `toml:"conn_max_lifetime"`
}

type rawHTTP struct {
	Addr            *string `toml:"addr"`
	ReadTimeout     *string `toml:"read_timeout"`
	WriteTimeout    *string `toml:"write_timeout"`
	ShutdownTimeout *string `toml:"shutdown_timeout"`
}

type rawAuth struct {
	JWTSecret *string `toml:"jwt_secret"`
	TokenTTL  *string `toml:"token_ttl"`
}

type rawLogging struct {
	Level     *string `toml:"level"`
	Format    *string `toml:"format"`
	File      *string `toml:"file"`
	MaxSizeMB *int    `toml:"max_size_mb"`
	MaxFiles  *int    `toml:"max_files"`
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}

	var raw rawConfig
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: parse TOML file %q: %v", ErrInvalidConfig, path, err)
	}
	return applyRaw(cfg, raw)
}

func applyRaw(cfg *Config, raw rawConfig) error {
	if raw.Database != nil {
		setValue(raw.Database.DSN, &cfg.Database.DSN)
		setValue(raw.Database.Schema, &cfg.Database.Schema)
		setValue(raw.Database.MaxConns, &cfg.Database.MaxConns)
		if err := setDuration("database.conn_max_lifetime", raw.Database.ConnMaxLifetime, &cfg.Database.ConnMaxLifetime); err != nil {
			return err
		}
	}

	if raw.HTTP != nil {
		setValue(raw.HTTP.Addr, &cfg.HTTP.Addr)
		if err := setDuration("http.read_timeout", raw.HTTP.ReadTimeout, &cfg.HTTP.ReadTimeout); err != nil {
			return err
		}
		if err := setDuration("http.write_timeout", raw.HTTP.WriteTimeout, &cfg.HTTP.WriteTimeout); err != nil {
			return err
		}
		if err := setDuration("http.shutdown_timeout", raw.HTTP.ShutdownTimeout, &cfg.HTTP.ShutdownTimeout); err != nil {
			return err
		}
	}

	if raw.Auth != nil {
		setValue(raw.Auth.JWTSecret, &cfg.Auth.JWTSecret)
		if err := setDuration("auth.token_ttl", raw.Auth.TokenTTL, &cfg.Auth.TokenTTL); err != nil {
			return err
		}
	}

	if raw.Logging != nil {
		setValue(raw.Logging.Level, &cfg.Logging.Level)
		setValue(raw.Logging.Format, &cfg.Logging.Format)
		setValue(raw.Logging.File, &cfg.Logging.File)
		setValue(raw.Logging.MaxSizeMB, &cfg.Logging.MaxSizeMB)
		setValue(raw.Logging.MaxFiles, &cfg.Logging.MaxFiles)
	}
	return nil
}

func setValue[T any](src *T, dst *T) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(key string, src *string, dst *time.Duration) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return fmt.Errorf("%w: parse %s: %v", ErrInvalidConfig, key, err)
	}
	*dst = d
	return nil
}

func lookup(opts LoadOptions, key string) string {
	if opts.Env != nil {
		return opts.Env[key]
	}
	return os.Getenv(key)
}

func validate(cfg Config, opts LoadOptions) error {
	if !schemaPattern.MatchString(cfg.Database.Schema) {
		return fmt.Errorf("%w: database.schema %q must be a lowercase identifier", ErrInvalidConfig, cfg.Database.Schema)
	}
	if cfg.Database.MaxConns <= 0 {
		return fmt.Errorf("%w: database.max_conns must be positive", ErrInvalidConfig)
	}
	if cfg.Database.ConnMaxLifetime < 0 {
		return fmt.Errorf("%w: database.conn_max_lifetime must not be negative", ErrInvalidConfig)
	}
	if cfg.HTTP.Addr == "" {
		return fmt.Errorf("%w: http.addr is required", ErrInvalidConfig)
	}
	if cfg.Auth.TokenTTL <= 0 {
		return fmt.Errorf("%w: auth.token_ttl must be positive", ErrInvalidConfig)
	}
	if opts.RequireSecret && len(cfg.Auth.JWTSecret) < 16 {
		return fmt.Errorf("%w: auth.jwt_secret must be at least 16 bytes", ErrInvalidConfig)
	}
	switch strings.ToLower(cfg.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("%w: logging.format %q", ErrInvalidConfig, cfg.Logging.Format)
	}
	return nil
}
