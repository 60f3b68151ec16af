package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds every setting of the server. Values come from an optional YAML
// file and are overridden by environment variables.
type Config struct {
	HTTPAddr string `yaml:"http-addr" env:"HTTP_ADDR" env-default:":8080"`
	LogLevel string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`

	Redis     Redis     `yaml:"redis"`
	SQLite    SQLite    `yaml:"sqlite"`
	Auth      Auth      `yaml:"auth"`
	Game      Game      `yaml:"game"`
	Telemetry Telemetry `yaml:"telemetry"`
}

type Redis struct {
	ConnString string        `yaml:"conn-string" env:"REDIS_CONNSTRING" env-default:"localhost:6379"`
	SessionTTL time.Duration `yaml:"session-ttl" env:"SESSION_TTL" env-default:"24h"`
}

type SQLite struct {
	Path string `yaml:"path" env:"SQLITE_PATH" env-default:"./history.db"`
}

type Auth struct {
	JWTSecret string        `yaml:"jwt-secret" env:"JWT_SECRET"`
	TokenTTL  time.Duration `yaml:"token-ttl" env:"TOKEN_TTL" env-default:"24h"`
}

// Game tunes the live rooms.
type Game struct {
	ComputerDelay     time.Duration `yaml:"computer-delay" env:"COMPUTER_DELAY" env-default:"500ms"`
	ReconnectGrace    time.Duration `yaml:"reconnect-grace" env:"RECONNECT_GRACE" env-default:"60s"`
	HeartbeatInterval time.Duration `yaml:"heartbeat-interval" env:"HEARTBEAT_INTERVAL" env-default:"10s"`
}

type Telemetry struct {
	Enabled       bool   `yaml:"enabled" env:"TELEMETRY_ENABLED" env-default:"false"`
	CollectorAddr string `yaml:"collector-addr" env:"OTEL_COLLECTOR_ADDR" env-default:"otel-collector:4317"`
	StdoutTrace   bool   `yaml:"stdout-trace" env:"OTEL_STDOUT_TRACE" env-default:"false"`
	ServiceName   string `yaml:"service-name" env:"OTEL_SERVICE_NAME" env-default:"tictactoe-minimax"`
}

var ErrMissingSecret = errors.New("jwt secret is not configured")

// Load reads the YAML file at path when it exists, otherwise the environment
// alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	var err error
	switch _, statErr := os.Stat(path); {
	case statErr == nil:
		err = cleanenv.ReadConfig(path, cfg)
	case errors.Is(statErr, fs.ErrNotExist):
		err = cleanenv.ReadEnv(cfg)
	default:
		return nil, fmt.Errorf("unable to stat config file: %w", statErr)
	}
	if err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	return cfg, nil
}

// MustLoad is Load that panics on failure.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}
