// Package config handles Pennywise configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/pennywise/config.yaml, /etc/pennywise/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "pennywise", "config.yaml"))
	}

	paths = append(paths, "/etc/pennywise/config.yaml")
	return paths
}

// FindConfig locates a config file. If explicit is non-empty, it must exist.
// Otherwise, searches DefaultSearchPaths and returns the first that exists.
// Returns the path found, or an error if nothing was found.
func FindConfig(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	for _, p := range DefaultSearchPaths() {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}

	return "", fmt.Errorf("no config file found (searched: %v)", DefaultSearchPaths())
}

// Config holds all Pennywise configuration.
type Config struct {
	Listen    ListenConfig    `yaml:"listen"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Agent     AgentConfig     `yaml:"agent"`
	Streaming StreamingConfig `yaml:"streaming"`
	LogLevel  string          `yaml:"log_level"`
}

// ListenConfig defines the API server settings.
type ListenConfig struct {
	Address string `yaml:"address"` // Bind address (default: "" = all interfaces)
	Port    int    `yaml:"port"`
}

// GeminiConfig defines the Gemini provider settings. APIKey supports
// ${GEMINI_API_KEY}-style substitution; see Load.
type GeminiConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

// AgentConfig bounds the expense agent's think/act/observe loop.
type AgentConfig struct {
	// MaxIterations caps tool-using cycles per request (default 5).
	MaxIterations int `yaml:"max_iterations"`
	// TimeoutSec is the wall-clock budget for one loop run (default 10).
	TimeoutSec int `yaml:"timeout_sec"`
}

// Streaming modes. Synthetic re-emits a precomputed answer as delayed
// chunks; relay forwards provider partial output as it arrives.
const (
	ModeRelay     = "relay"
	ModeSynthetic = "synthetic"
)

// StreamingConfig selects how each endpoint streams its response body.
// The tracker endpoint always uses synthetic emission: the agent loop
// runs to completion before anything is written.
type StreamingConfig struct {
	QnaMode       string `yaml:"qna_mode"`       // relay (default) or synthetic
	SummarizeMode string `yaml:"summarize_mode"` // relay (default) or synthetic
	ChunkSize     int    `yaml:"chunk_size"`     // runes per chunk (default 1)
	DelayMs       int    `yaml:"delay_ms"`       // inter-chunk delay (default 15)
}

// Timeout returns the agent wall-clock budget as a duration.
func (a AgentConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSec) * time.Second
}

// Delay returns the synthetic inter-chunk delay as a duration.
func (s StreamingConfig) Delay() time.Duration {
	return time.Duration(s.DelayMs) * time.Millisecond
}

// Load reads configuration from a YAML file. Environment variables in
// the file are expanded before parsing, so credentials can be supplied
// as ${GEMINI_API_KEY} rather than inlined.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Default returns a default configuration. Port 5001 avoids the common
// dev-server ports.
func Default() *Config {
	return &Config{
		Listen: ListenConfig{Port: 5001},
		Gemini: GeminiConfig{
			Model: "gemini-2.5-flash",
		},
		Agent: AgentConfig{
			MaxIterations: 5,
			TimeoutSec:    10,
		},
		Streaming: StreamingConfig{
			QnaMode:       ModeRelay,
			SummarizeMode: ModeRelay,
			ChunkSize:     1,
			DelayMs:       15,
		},
	}
}

// Validate checks the configuration for startup-fatal problems and
// fills in zero values with defaults. A missing API key is fatal: the
// service cannot do anything useful without the provider.
func (c *Config) Validate() error {
	if c.Gemini.APIKey == "" {
		return fmt.Errorf("no GEMINI_API_KEY set (gemini.api_key)")
	}
	if c.Listen.Port <= 0 || c.Listen.Port > 65535 {
		return fmt.Errorf("invalid listen port %d", c.Listen.Port)
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = "gemini-2.5-flash"
	}
	if c.Agent.MaxIterations <= 0 {
		c.Agent.MaxIterations = 5
	}
	if c.Agent.TimeoutSec <= 0 {
		c.Agent.TimeoutSec = 10
	}
	if c.Streaming.ChunkSize <= 0 {
		c.Streaming.ChunkSize = 1
	}
	if c.Streaming.DelayMs < 0 {
		c.Streaming.DelayMs = 15
	}
	for _, m := range []string{c.Streaming.QnaMode, c.Streaming.SummarizeMode} {
		if m != "" && m != ModeRelay && m != ModeSynthetic {
			return fmt.Errorf("invalid streaming mode %q (valid: relay, synthetic)", m)
		}
	}
	if c.Streaming.QnaMode == "" {
		c.Streaming.QnaMode = ModeRelay
	}
	if c.Streaming.SummarizeMode == "" {
		c.Streaming.SummarizeMode = ModeRelay
	}
	return nil
}
