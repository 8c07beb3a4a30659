// Package config loads impactd settings from a YAML file, a .env file and
// IMPACT_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFactsFile is the fact document name searched for by Discover
const DefaultFactsFile = "dependency-graph.json"

// Environment variable names
const (
	EnvFactsPath         = "IMPACT_FACTS_PATH"
	EnvFactsDB           = "IMPACT_FACTS_DB"
	EnvAddr              = "IMPACT_ADDR"
	EnvInDegreeThreshold = "IMPACT_CRITICAL_IN_DEGREE_THRESHOLD"
	EnvMarkCrossPackage  = "IMPACT_MARK_CROSS_PACKAGE_CRITICAL"
	EnvLogLevel          = "IMPACT_LOG_LEVEL"
	EnvLogFormat         = "IMPACT_LOG_FORMAT"
)

// Config is the complete impactd configuration
type Config struct {
	Facts     FactsConfig     `json:"facts" yaml:"facts"`
	Graph     GraphConfig     `json:"graph" yaml:"graph"`
	Server    ServerConfig    `json:"server" yaml:"server"`
	Log       LogConfig       `json:"log" yaml:"log"`
	Telemetry TelemetryConfig `json:"telemetry" yaml:"telemetry"`
}

// FactsConfig locates the dependency fact sources.
type FactsConfig struct {
	// Path is the JSON fact document. Missing file means an empty graph.
	Path string `json:"path" yaml:"path"`

	// DBPath is an optional SQLite staging store written by `impactd ingest`.
	DBPath string `json:"db_path" yaml:"db_path"`

	// Relations overrides the relation names scanned in grouped entries.
	Relations []string `json:"relations,omitempty" yaml:"relations,omitempty"`
}

// GraphConfig contains criticality settings.
type GraphConfig struct {
	CriticalInDegreeThreshold int  `json:"critical_in_degree_threshold" yaml:"critical_in_degree_threshold"`
	MarkCrossPackageCritical  bool `json:"mark_cross_package_critical" yaml:"mark_cross_package_critical"`
}

// ServerConfig contains HTTP settings.
type ServerConfig struct {
	Addr       string `json:"addr" yaml:"addr"`
	CacheSize  int    `json:"cache_size" yaml:"cache_size"`
	Watch      bool   `json:"watch" yaml:"watch"`
	DebounceMS int    `json:"debounce_ms" yaml:"debounce_ms"`
	CORSOrigin string `json:"cors_origin" yaml:"cors_origin"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// TelemetryConfig selects OpenTelemetry exporters.
type TelemetryConfig struct {
	// TraceExporter is "stdout" or "none".
	TraceExporter string `json:"trace_exporter" yaml:"trace_exporter"`
	// MetricExporter is "prometheus" or "none".
	MetricExporter string `json:"metric_exporter" yaml:"metric_exporter"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Facts: FactsConfig{
			Path: DefaultFactsFile,
		},
		Graph: GraphConfig{
			CriticalInDegreeThreshold: 5,
			MarkCrossPackageCritical:  true,
		},
		Server: ServerConfig{
			Addr:       ":8080",
			CacheSize:  256,
			DebounceMS: 500,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "prometheus",
		},
	}
}

// Load reads path over the defaults, then applies .env and environment
// overrides. An empty or missing path is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing config %s: %w", path, err)
			}
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Facts.Path = firstNonEmpty(strings.TrimSpace(os.Getenv(EnvFactsPath)), c.Facts.Path)
	c.Facts.DBPath = firstNonEmpty(strings.TrimSpace(os.Getenv(EnvFactsDB)), c.Facts.DBPath)
	c.Server.Addr = firstNonEmpty(strings.TrimSpace(os.Getenv(EnvAddr)), c.Server.Addr)
	c.Log.Level = firstNonEmpty(strings.TrimSpace(os.Getenv(EnvLogLevel)), c.Log.Level)
	c.Log.Format = firstNonEmpty(strings.TrimSpace(os.Getenv(EnvLogFormat)), c.Log.Format)

	if raw := strings.TrimSpace(os.Getenv(EnvInDegreeThreshold)); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvInDegreeThreshold, err)
		}
		c.Graph.CriticalInDegreeThreshold = v
	}
	if raw := strings.TrimSpace(os.Getenv(EnvMarkCrossPackage)); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvMarkCrossPackage, err)
		}
		c.Graph.MarkCrossPackageCritical = v
	}
	return nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Graph.CriticalInDegreeThreshold < 1 {
		return fmt.Errorf("critical_in_degree_threshold must be at least 1, got %d", c.Graph.CriticalInDegreeThreshold)
	}
	if c.Server.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative, got %d", c.Server.CacheSize)
	}
	return nil
}

// Discover finds the fact document.
// Priority: IMPACT_FACTS_PATH env var > explicit path > walk up from cwd.
// Returns "" when nothing is found.
func Discover(explicit string) string {
	if env := os.Getenv(EnvFactsPath); env != "" {
		return env
	}
	if explicit != "" {
		return explicit
	}

	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, DefaultFactsFile)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
