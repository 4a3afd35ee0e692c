// Package config loads the substrate's YAML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/psi-substrate/go-engine/internal/logging"
)

// Diagnostics backends.
const (
	BackendGenAI = "genai"
	BackendCodec = "codec"
	BackendNone  = "none"
)

// Config is the root configuration.
type Config struct {
	Engine      EngineConfig      `yaml:"engine"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	Journal     JournalConfig     `yaml:"journal"`
	Logging     logging.Config    `yaml:"logging"`
}

// EngineConfig tunes the simulation loop.
type EngineConfig struct {
	Interval     string `yaml:"interval"`
	AffectWindow string `yaml:"affect_window"`
	// Seed fixes the metrics random source. Zero picks one from the clock.
	Seed int64 `yaml:"seed"`
}

// DiagnosticsConfig selects and tunes the supervisor backend.
type DiagnosticsConfig struct {
	Backend     string `yaml:"backend"`
	Model       string `yaml:"model"`
	APIKey      string `yaml:"api_key"`
	CodecAddr   string `yaml:"codec_addr"`
	Timeout     string `yaml:"timeout"`
	MinInterval string `yaml:"min_interval"`
}

// JournalConfig points at the optional SQLite journal. Empty disables it.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			Interval:     "1s",
			AffectWindow: "5s",
		},
		Diagnostics: DiagnosticsConfig{
			Backend:     BackendGenAI,
			Model:       "gemini-3-flash-preview",
			CodecAddr:   "localhost:50051",
			Timeout:     "30s",
			MinInterval: "2s",
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
// Environment overrides apply in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	// GEMINI_API_KEY wins over the generic API_KEY
	if key := os.Getenv("API_KEY"); key != "" {
		c.Diagnostics.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Diagnostics.APIKey = key
	}
	if addr := os.Getenv("SUBSTRATE_CODEC_ADDR"); addr != "" {
		c.Diagnostics.CodecAddr = addr
		c.Diagnostics.Backend = BackendCodec
	}
	if path := os.Getenv("SUBSTRATE_JOURNAL"); path != "" {
		c.Journal.Path = path
	}
	if lvl := os.Getenv("SUBSTRATE_LOG_LEVEL"); lvl != "" {
		c.Logging.Level = lvl
	}
	if seed := os.Getenv("SUBSTRATE_SEED"); seed != "" {
		if n, err := strconv.ParseInt(seed, 10, 64); err == nil {
			c.Engine.Seed = n
		}
	}
}

// GetInterval returns the tick interval.
func (c *Config) GetInterval() time.Duration {
	return parseDuration(c.Engine.Interval, time.Second)
}

// GetAffectWindow returns how long an injected affect lasts.
func (c *Config) GetAffectWindow() time.Duration {
	return parseDuration(c.Engine.AffectWindow, 5*time.Second)
}

// GetDiagnosticsTimeout returns the per-request supervisor timeout.
func (c *Config) GetDiagnosticsTimeout() time.Duration {
	return parseDuration(c.Diagnostics.Timeout, 30*time.Second)
}

// GetMinInterval returns the minimum spacing of supervisor requests.
func (c *Config) GetMinInterval() time.Duration {
	return parseDuration(c.Diagnostics.MinInterval, 2*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	for name, v := range map[string]string{
		"engine.interval":          c.Engine.Interval,
		"engine.affect_window":     c.Engine.AffectWindow,
		"diagnostics.timeout":      c.Diagnostics.Timeout,
		"diagnostics.min_interval": c.Diagnostics.MinInterval,
	} {
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err != nil || d <= 0 {
			return fmt.Errorf("%s: invalid duration %q", name, v)
		}
	}
	switch c.Diagnostics.Backend {
	case BackendGenAI, BackendNone, "":
	case BackendCodec:
		if c.Diagnostics.CodecAddr == "" {
			return fmt.Errorf("diagnostics.codec_addr is required for the codec backend")
		}
	default:
		return fmt.Errorf("diagnostics.backend: unknown backend %q", c.Diagnostics.Backend)
	}
	return nil
}

// DiagnosticsEnabled reports whether a backend can be built.
func (c *Config) DiagnosticsEnabled() bool {
	switch c.Diagnostics.Backend {
	case BackendGenAI:
		return c.Diagnostics.APIKey != ""
	case BackendCodec:
		return c.Diagnostics.CodecAddr != ""
	}
	return false
}
