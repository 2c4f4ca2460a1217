// Package config resolves the service configuration from defaults, an
// optional YAML file and environment overrides, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when REACTIVATION_CONFIG is unset.
const DefaultPath = "config/reactivation.yaml"

// Config is the resolved runtime configuration.
type Config struct {
	Port           int
	DatabaseURL    string
	AllowedOrigins []string

	ProfilesPath string
	Profile      string

	Workers     int
	ReportTopN  int
	ReportsDir  string
	EventBuffer int
}

// configFile mirrors the YAML layout of config/reactivation.yaml.
type configFile struct {
	Server struct {
		Port           int      `yaml:"port"`
		AllowedOrigins []string `yaml:"allowed_origins"`
	} `yaml:"server"`
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Scoring struct {
		ProfilesPath string `yaml:"profiles_path"`
		Profile      string `yaml:"profile"`
		Workers      int    `yaml:"workers"`
	} `yaml:"scoring"`
	Reports struct {
		TopN int    `yaml:"top_n"`
		Dir  string `yaml:"dir"`
	} `yaml:"reports"`
	Events struct {
		Buffer int `yaml:"buffer"`
	} `yaml:"events"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:        8080,
		DatabaseURL: "file:reactivation.db?_pragma=busy_timeout(5000)",
		Profile:     "default",
		Workers:     4,
		ReportTopN:  5,
		ReportsDir:  "reports",
		EventBuffer: 256,
	}
}

// Load resolves configuration using the file named by REACTIVATION_CONFIG,
// falling back to DefaultPath.
func Load() (Config, error) {
	return LoadFile(envOrDefault("REACTIVATION_CONFIG", DefaultPath))
}

// LoadFile resolves configuration from path plus the environment. A missing
// file is not an error.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		var f configFile
		if err := yaml.Unmarshal(raw, &f); err != nil {
			return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
		}
		f.apply(&cfg)
	case errors.Is(err, fs.ErrNotExist):
	default:
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg.DatabaseURL = envOrDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.Port = envInt("PORT", cfg.Port)
	cfg.ProfilesPath = envOrDefault("REACTIVATION_PROFILES", cfg.ProfilesPath)
	cfg.Profile = envOrDefault("REACTIVATION_PROFILE", cfg.Profile)
	cfg.Workers = envInt("REACTIVATION_WORKERS", cfg.Workers)
	cfg.AllowedOrigins = envCSV("ALLOWED_ORIGINS", cfg.AllowedOrigins)

	if cfg.Port <= 0 {
		return Config{}, fmt.Errorf("invalid port %d", cfg.Port)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return cfg, nil
}

func (f configFile) apply(cfg *Config) {
	if f.Server.Port > 0 {
		cfg.Port = f.Server.Port
	}
	if len(f.Server.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = f.Server.AllowedOrigins
	}
	if f.Database.URL != "" {
		cfg.DatabaseURL = f.Database.URL
	}
	if f.Scoring.ProfilesPath != "" {
		cfg.ProfilesPath = f.Scoring.ProfilesPath
	}
	if f.Scoring.Profile != "" {
		cfg.Profile = f.Scoring.Profile
	}
	if f.Scoring.Workers > 0 {
		cfg.Workers = f.Scoring.Workers
	}
	if f.Reports.TopN > 0 {
		cfg.ReportTopN = f.Reports.TopN
	}
	if f.Reports.Dir != "" {
		cfg.ReportsDir = f.Reports.Dir
	}
	if f.Events.Buffer > 0 {
		cfg.EventBuffer = f.Events.Buffer
	}
}

func envOrDefault(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// envInt falls back on empty or unparseable values.
func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envCSV(name string, fallback []string) []string {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	var parts []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	return parts
}
