// Package config loads server settings from defaults, an optional TOML
// file, a .env file and the environment, in that order of precedence
// (later wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config is the full server configuration.
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Storage    StorageConfig    `toml:"storage"`
	Session    SessionConfig    `toml:"session"`
	Extraction ExtractionConfig `toml:"extraction"`
	Events     EventsConfig     `toml:"events"`
	Auth       AuthConfig       `toml:"auth"`
	Log        LogConfig        `toml:"log"`
}

type ServerConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	StaticPath string `toml:"static_path"`
	// MaxBodyBytes caps request bodies; receipt photos arrive base64 encoded.
	MaxBodyBytes int64 `toml:"max_body_bytes"`
}

// Addr returns host:port for net.Listen.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type StorageConfig struct {
	// Driver is sqlite, postgres or memory.
	Driver      string `toml:"driver"`
	DBPath      string `toml:"db_path"`
	DatabaseURL string `toml:"database_url"`
}

type SessionConfig struct {
	// Backend is memory or redis.
	Backend   string   `toml:"backend"`
	RedisAddr string   `toml:"redis_addr"`
	TTL       Duration `toml:"ttl"`
}

type ExtractionConfig struct {
	APIKey   string   `toml:"api_key"`
	Endpoint string   `toml:"endpoint"`
	Timeout  Duration `toml:"timeout"`
}

type EventsConfig struct {
	Brokers []string `toml:"brokers"`
	Topic   string   `toml:"topic"`
}

type AuthConfig struct {
	JWTSecret string   `toml:"jwt_secret"`
	TokenTTL  Duration `toml:"token_ttl"`
}

type LogConfig struct {
	Level string `toml:"level"`
	JSON  bool   `toml:"json"`
}

// Duration is a time.Duration written as "30s" or "24h" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns a configuration that runs locally without external services.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:         "",
			Port:         8080,
			StaticPath:   "./static",
			MaxBodyBytes: 10 << 20,
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			DBPath: "./data/bills.db",
		},
		Session: SessionConfig{
			Backend: "memory",
			TTL:     Duration{24 * time.Hour},
		},
		Extraction: ExtractionConfig{
			Timeout: Duration{30 * time.Second},
		},
		Events: EventsConfig{
			Topic: "bill_finalized",
		},
		Auth: AuthConfig{
			JWTSecret: "dev-secret-change-me",
			TokenTTL:  Duration{24 * time.Hour},
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration. path may be empty. A missing .env file is
// not an error; a missing TOML file named by path is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("failed to read .env: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	dur := func(key string, dst *Duration) error {
		v, ok := lookup(key)
		if !ok || v == "" {
			return nil
		}
		if err := dst.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		return nil
	}

	str("HOST", &c.Server.Host)
	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("PORT: %w", err)
		}
		c.Server.Port = port
	}
	str("STATIC_PATH", &c.Server.StaticPath)

	str("STORAGE_DRIVER", &c.Storage.Driver)
	str("DB_PATH", &c.Storage.DBPath)
	str("DATABASE_URL", &c.Storage.DatabaseURL)

	str("SESSION_BACKEND", &c.Session.Backend)
	str("REDIS_ADDR", &c.Session.RedisAddr)
	if err := dur("SESSION_TTL", &c.Session.TTL); err != nil {
		return err
	}

	str("GEMINI_API_KEY", &c.Extraction.APIKey)
	str("EXTRACTION_ENDPOINT", &c.Extraction.Endpoint)

	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Events.Brokers = nil
		for _, b := range strings.Split(v, ",") {
			if b = strings.TrimSpace(b); b != "" {
				c.Events.Brokers = append(c.Events.Brokers, b)
			}
		}
	}
	str("KAFKA_TOPIC", &c.Events.Topic)

	str("JWT_SECRET", &c.Auth.JWTSecret)
	if err := dur("TOKEN_TTL", &c.Auth.TokenTTL); err != nil {
		return err
	}

	str("LOG_LEVEL", &c.Log.Level)
	if v, ok := lookup("LOG_FORMAT"); ok {
		c.Log.JSON = strings.EqualFold(v, "json")
	}
	return nil
}

// Validate reports the first setting that cannot work.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Server.Port)
	}

	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return errors.New("storage driver sqlite needs db_path")
		}
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return errors.New("storage driver postgres needs database_url")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Session.Backend {
	case "memory":
	case "redis":
		if c.Session.RedisAddr == "" {
			return errors.New("session backend redis needs redis_addr")
		}
	default:
		return fmt.Errorf("unknown session backend %q", c.Session.Backend)
	}

	if c.Session.TTL.Duration <= 0 {
		return errors.New("session ttl must be positive")
	}
	if c.Auth.TokenTTL.Duration <= 0 {
		return errors.New("token ttl must be positive")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("jwt secret must be set")
	}
	return nil
}
