package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port string `yaml:"port"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Artifact cache
	ArtifactDir string `yaml:"artifact_dir"`

	// Generation
	GenerateTimeout time.Duration `yaml:"generate_timeout"`
	MaxUploadBytes  int64         `yaml:"max_upload_bytes"`

	// Image fetching
	FetchTimeout      time.Duration `yaml:"fetch_timeout"`
	MaxImageBytes     int64         `yaml:"max_image_bytes"`
	AllowedImageHosts []string      `yaml:"allowed_image_hosts"`
	DeniedImageHosts  []string      `yaml:"denied_image_hosts"`
}

// Load builds the configuration from defaults, an optional YAML file, and
// environment variables, in increasing order of precedence.
func Load(path string) (Config, error) {
	cfg := Config{
		Port:            "8091",
		ArtifactDir:     "artifacts",
		GenerateTimeout: 30 * time.Second,
		MaxUploadBytes:  10 << 20,
		FetchTimeout:    15 * time.Second,
		MaxImageBytes:   20 << 20,
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config file: %w", err)
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("DOCEXPORT_API_KEY", cfg.APIKey)
	cfg.ArtifactDir = envOr("ARTIFACT_DIR", cfg.ArtifactDir)
	cfg.GenerateTimeout = envDuration("GENERATE_TIMEOUT", cfg.GenerateTimeout)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.FetchTimeout = envDuration("FETCH_TIMEOUT", cfg.FetchTimeout)
	cfg.MaxImageBytes = envInt64("MAX_IMAGE_BYTES", cfg.MaxImageBytes)

	if cfg.GenerateTimeout <= 0 {
		cfg.GenerateTimeout = 30 * time.Second
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 20 << 20
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("DOCEXPORT_API_KEY is required")
	}
	if c.ArtifactDir == "" {
		return fmt.Errorf("artifact_dir must not be empty")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
