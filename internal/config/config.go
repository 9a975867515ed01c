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

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when no --config flag is given. It may be absent.
const DefaultPath = "configs/config.yml"

// Config holds the application's configuration.
type Config struct {
	Server struct {
		Port         string `yaml:"port"`
		GinMode      string `yaml:"gin_mode"`
		StaticRoot   string `yaml:"static_root"`
		MaxBodyBytes int64  `yaml:"max_body_bytes"`
	} `yaml:"server"`
	Models struct {
		Dir string `yaml:"dir"`
		// Artifacts overrides the artifact path per category key.
		Artifacts        map[string]string `yaml:"artifacts"`
		InferenceTimeout time.Duration     `yaml:"inference_timeout"`
	} `yaml:"models"`
	History struct {
		Enabled bool   `yaml:"enabled"`
		Driver  string `yaml:"driver"` // "sqlite" or "postgres"
		URL     string `yaml:"url"`    // SQLite path or PostgreSQL URL
	} `yaml:"history"`
	Log struct {
		Level       string `yaml:"level"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
}

// Load reads the YAML file at path (skipped when missing and not required),
// then .env, then environment overrides, then fills defaults.
func Load(path string, required bool) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if path != "" {
		file, err := os.Open(path)
		switch {
		case err == nil:
			defer file.Close()
			decoder := yaml.NewDecoder(file)
			if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("failed to decode config file: %w", err)
			}
		case errors.Is(err, fs.ErrNotExist) && !required:
		default:
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)

	if cfg.History.Enabled && cfg.History.Driver == "postgres" {
		if cfg.History.URL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required when history uses postgres")
		}
		if !strings.HasPrefix(cfg.History.URL, "postgres://") && !strings.HasPrefix(cfg.History.URL, "postgresql://") {
			return nil, fmt.Errorf("DATABASE_URL must be a postgres:// or postgresql:// URL when history uses postgres")
		}
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Server.GinMode, "GIN_MODE")
	setString(&cfg.Server.StaticRoot, "STATIC_ROOT")
	setString(&cfg.Models.Dir, "MODELS_DIR")
	setString(&cfg.History.Driver, "HISTORY_DRIVER")
	setString(&cfg.History.URL, "DATABASE_URL")
	setString(&cfg.Log.Level, "LOG_LEVEL")

	if v := os.Getenv("HISTORY_ENABLED"); v != "" {
		cfg.History.Enabled = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("LOG_DEVELOPMENT"); v != "" {
		cfg.Log.Development = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("INFERENCE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("INFERENCE_TIMEOUT: %w", err)
		}
		cfg.Models.InferenceTimeout = d
	}
	if v := os.Getenv("MAX_BODY_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_BODY_BYTES: %w", err)
		}
		cfg.Server.MaxBodyBytes = n
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.GinMode == "" {
		cfg.Server.GinMode = "release"
	}
	if cfg.Server.MaxBodyBytes <= 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}
	if cfg.Models.Dir == "" {
		cfg.Models.Dir = "models"
	}
	if cfg.Models.InferenceTimeout == 0 {
		cfg.Models.InferenceTimeout = 5 * time.Second
	}
	if cfg.History.Driver == "" {
		cfg.History.Driver = "sqlite"
	}
	if cfg.History.Driver == "sqlite" && cfg.History.URL == "" {
		cfg.History.URL = "./data/history.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
