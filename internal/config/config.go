// Package config loads the panel configuration from a YAML file, an optional
// .env file and environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/tvpanel/tvpanel/internal/db"
	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is used when neither a flag nor TVPANEL_CONFIG names a file.
const DefaultConfigPath = "config.yaml"

// Session backends.
const (
	SessionBackendDatabase = "database"
	SessionBackendRedis    = "redis"
)

// AppConfig carries command line inputs.
type AppConfig struct {
	ConfigPath string
}

// Config is the full panel configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Session   SessionConfig   `yaml:"session"`
	Log       LogConfig       `yaml:"log"`
	Timezone  string          `yaml:"timezone"`
	Bootstrap BootstrapConfig `yaml:"bootstrap"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr          string   `yaml:"addr"`
	CORSOrigins   []string `yaml:"cors_origins"`
	SecureCookies bool     `yaml:"secure_cookies"`
}

// DatabaseConfig holds the connection string.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SessionConfig configures admin sessions and bearer tokens.
type SessionConfig struct {
	Backend    string        `yaml:"backend"`
	CookieName string        `yaml:"cookie_name"`
	TTL        time.Duration `yaml:"ttl"`
	JWTSecret  string        `yaml:"jwt_secret"`
	JWTTTL     time.Duration `yaml:"jwt_ttl"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig locates the redis session backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LogConfig configures logrus and the optional rotating file.
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// BootstrapConfig is the admin account created on an empty database.
type BootstrapConfig struct {
	AdminUsername string `yaml:"admin_username"`
	AdminPassword string `yaml:"admin_password"`
}

// Default returns the configuration used for absent keys.
func Default() Config {
	return Config{
		Server:   ServerConfig{Addr: ":8080"},
		Database: DatabaseConfig{DSN: "file:tvpanel.db"},
		Session: SessionConfig{
			Backend:    SessionBackendDatabase,
			CookieName: "tvpanel_session",
			TTL:        24 * time.Hour,
			JWTTTL:     12 * time.Hour,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 5,
			MaxAgeDays: 30,
		},
		Timezone: "Europe/Warsaw",
		Bootstrap: BootstrapConfig{
			AdminUsername: "admin",
			AdminPassword: "admin123",
		},
	}
}

// ResolveConfigPath returns the config file path to use.
func ResolveConfigPath(path string) string {
	if p := strings.TrimSpace(path); p != "" {
		return p
	}
	if p := strings.TrimSpace(os.Getenv("TVPANEL_CONFIG")); p != "" {
		return p
	}
	return DefaultConfigPath
}

// ConfigExists reports whether path names a regular file.
func ConfigExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Load reads path over the defaults, then applies .env and environment overrides.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, errRead := os.ReadFile(path)
	switch {
	case errRead == nil:
		if errUnmarshal := yaml.Unmarshal(raw, &cfg); errUnmarshal != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
		}
	case errors.Is(errRead, os.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", path, errRead)
	}

	_ = godotenv.Load()
	applyEnv(&cfg)

	if errValidate := cfg.Validate(); errValidate != nil {
		return Config{}, errValidate
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("TVPANEL_ADDR")); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv("TVPANEL_DSN")); v != "" {
		cfg.Database.DSN = v
	} else if dsn, ok := legacyMySQLDSN(); ok {
		cfg.Database.DSN = dsn
	}
	if v := os.Getenv("TVPANEL_SESSION_SECRET"); v != "" {
		cfg.Session.JWTSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("TVPANEL_LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
	if v := strings.TrimSpace(os.Getenv("TVPANEL_REDIS_ADDR")); v != "" {
		cfg.Session.Redis.Addr = v
		cfg.Session.Backend = SessionBackendRedis
	}
	if v := strings.TrimSpace(os.Getenv("TVPANEL_REDIS_DB")); v != "" {
		if n, errAtoi := strconv.Atoi(v); errAtoi == nil {
			cfg.Session.Redis.DB = n
		}
	}
}

// legacyMySQLDSN builds a MySQL DSN from the DB_HOST/DB_NAME/DB_USER/DB_PASS
// variables used by earlier panel deployments.
func legacyMySQLDSN() (string, bool) {
	host, okHost := os.LookupEnv("DB_HOST")
	name, okName := os.LookupEnv("DB_NAME")
	if !okHost && !okName {
		return "", false
	}
	if strings.TrimSpace(host) == "" {
		host = "localhost"
	}
	if strings.TrimSpace(name) == "" {
		name = "tv_panel"
	}
	user := os.Getenv("DB_USER")
	if strings.TrimSpace(user) == "" {
		user = "root"
	}
	return db.MySQLDSN(strings.TrimSpace(host), strings.TrimSpace(name), user, os.Getenv("DB_PASS")), true
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database.dsn is required")
	}
	switch c.Session.Backend {
	case SessionBackendDatabase:
	case SessionBackendRedis:
		if strings.TrimSpace(c.Session.Redis.Addr) == "" {
			return errors.New("config: session.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("config: unknown session.backend %q", c.Session.Backend)
	}
	if c.Session.TTL <= 0 {
		return errors.New("config: session.ttl must be positive")
	}
	if strings.TrimSpace(c.Session.CookieName) == "" {
		return errors.New("config: session.cookie_name is required")
	}
	if _, errLoc := c.Location(); errLoc != nil {
		return errLoc
	}
	return nil
}

// Location returns the configured fallback timezone.
func (c Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Timezone)
	if name == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", name, err)
	}
	return loc, nil
}
