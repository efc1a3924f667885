// Package config resolves runtime settings: defaults, then an optional TOML
// file, then environment variables (a .env file is loaded first when present).
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Storage substrates.
const (
	StorageMemory   = "memory"
	StorageBadger   = "badger"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
	StorageRedis    = "redis"
)

// Config is the full runtime configuration.
type Config struct {
	LogLevel string        `toml:"log_level"`
	Storage  StorageConfig `toml:"storage"`
	Auth     AuthConfig    `toml:"auth"`
	Portal   PortalConfig  `toml:"portal"`
}

// StorageConfig selects the KV substrate. Only the fields of the chosen type
// are used.
type StorageConfig struct {
	Type        string `toml:"type"`
	Prefix      string `toml:"prefix"`
	ActivityCap int    `toml:"activity_cap"`

	BadgerPath string `toml:"badger_path,omitempty"` // badger
	DSN        string `toml:"dsn,omitempty"`         // postgres, sqlite
	Migrate    bool   `toml:"migrate"`               // postgres, sqlite: apply migrations on open
	RedisURL   string `toml:"redis_url,omitempty"`   // redis
}

type AuthConfig struct {
	SessionTTL time.Duration `toml:"session_ttl"`
	// Secret signs session tokens. Empty means a random per-process key.
	Secret        string        `toml:"secret"`
	LoginBurst    int           `toml:"login_burst"`
	LoginInterval time.Duration `toml:"login_interval"`
}

type PortalConfig struct {
	NearbyRadiusKm    float64 `toml:"nearby_radius_km"`
	EnrichConcurrency int     `toml:"enrich_concurrency"`
}

// Default returns the built-in configuration: in-memory storage and the
// portal's standard limits.
func Default() Config {
	return Config{
		LogLevel: "info",
		Storage: StorageConfig{
			Type:        StorageMemory,
			Prefix:      "maptss_",
			ActivityCap: 1000,
			Migrate:     true,
		},
		Auth: AuthConfig{
			SessionTTL:    8 * time.Hour,
			LoginBurst:    5,
			LoginInterval: time.Minute,
		},
		Portal: PortalConfig{
			NearbyRadiusKm:    50,
			EnrichConcurrency: 8,
		},
	}
}

// Load builds the configuration. path names an optional TOML file. envFiles
// are loaded into the process environment without overriding variables that
// are already set; with none given, ./.env is used when it exists.
func Load(path string, envFiles ...string) (Config, error) {
	cfg := Default()
	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("reading config from %s: %w", path, err)
		}
	}
	if len(envFiles) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("loading .env: %w", err)
		}
	} else if err := godotenv.Load(envFiles...); err != nil {
		return Config{}, fmt.Errorf("loading env files: %w", err)
	}
	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode reads TOML from r over the defaults, without environment overrides.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("MAPTSS_LOG_LEVEL", &c.LogLevel)
	str("MAPTSS_STORAGE", &c.Storage.Type)
	str("MAPTSS_STORAGE_PREFIX", &c.Storage.Prefix)
	str("MAPTSS_BADGER_PATH", &c.Storage.BadgerPath)
	str("MAPTSS_DSN", &c.Storage.DSN)
	str("MAPTSS_REDIS_URL", &c.Storage.RedisURL)
	str("MAPTSS_SESSION_SECRET", &c.Auth.Secret)

	for key, dst := range map[string]*int{
		"MAPTSS_ACTIVITY_CAP":       &c.Storage.ActivityCap,
		"MAPTSS_LOGIN_BURST":        &c.Auth.LoginBurst,
		"MAPTSS_ENRICH_CONCURRENCY": &c.Portal.EnrichConcurrency,
	} {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = n
		}
	}
	for key, dst := range map[string]*time.Duration{
		"MAPTSS_SESSION_TTL":    &c.Auth.SessionTTL,
		"MAPTSS_LOGIN_INTERVAL": &c.Auth.LoginInterval,
	} {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}
	if v := strings.TrimSpace(getenv("MAPTSS_NEARBY_RADIUS_KM")); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("MAPTSS_NEARBY_RADIUS_KM: %w", err)
		}
		c.Portal.NearbyRadiusKm = f
	}
	if v := strings.TrimSpace(getenv("MAPTSS_MIGRATE")); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("MAPTSS_MIGRATE: %w", err)
		}
		c.Storage.Migrate = b
	}
	return nil
}

// Validate checks that the chosen storage has what it needs and that limits
// are positive.
func (c Config) Validate() error {
	var problems []string
	switch c.Storage.Type {
	case StorageMemory:
	case StorageBadger:
		if c.Storage.BadgerPath == "" {
			problems = append(problems, "storage.badger_path is required for badger")
		}
	case StoragePostgres, StorageSQLite:
		if c.Storage.DSN == "" {
			problems = append(problems, "storage.dsn is required for "+c.Storage.Type)
		}
	case StorageRedis:
		if c.Storage.RedisURL == "" {
			problems = append(problems, "storage.redis_url is required for redis")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown storage.type %q", c.Storage.Type))
	}
	if c.Storage.ActivityCap <= 0 {
		problems = append(problems, "storage.activity_cap must be positive")
	}
	if c.Auth.SessionTTL <= 0 {
		problems = append(problems, "auth.session_ttl must be positive")
	}
	if c.Auth.LoginBurst > 0 && c.Auth.LoginInterval <= 0 {
		problems = append(problems, "auth.login_interval must be positive when throttling")
	}
	if c.Portal.NearbyRadiusKm < 0 {
		problems = append(problems, "portal.nearby_radius_km must not be negative")
	}
	if c.Portal.EnrichConcurrency < 1 {
		problems = append(problems, "portal.enrich_concurrency must be at least 1")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}
