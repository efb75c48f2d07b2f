// Package config handles araliyad configuration loading.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultSearchPaths returns the config file search order.
// An explicit path (from -config flag) is checked first.
// Then: ./config.yaml, ~/.config/araliya/config.yaml, /config/config.yaml,
// /etc/araliya/config.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"config.yaml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "araliya", "config.yaml"))
	}

	paths = append(paths, "/config/config.yaml") // Container convention
	paths = append(paths, "/etc/araliya/config.yaml")
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

// Config holds all araliyad configuration.
type Config struct {
	// WorkDir is the root directory under which the control socket,
	// cron store, and other runtime state live when not independently
	// overridden. Defaults to ~/.araliya (original_source parity).
	WorkDir string `yaml:"work_dir"`

	Socket  SocketConfig  `yaml:"socket"`
	Listen  ListenConfig  `yaml:"listen"`
	Bus     BusConfig     `yaml:"bus"`
	Cron    CronConfig    `yaml:"cron"`
	Console ConsoleConfig `yaml:"console"`
	LLM     LLMConfig     `yaml:"llm"`

	// Handlers lists which demo subsystems to register at startup.
	// Valid entries: "echo", "llm", "cron", "management".
	Handlers []string `yaml:"handlers"`

	LogLevel string `yaml:"log_level"`
}

// SocketConfig controls the Unix domain socket control adapter.
type SocketConfig struct {
	// Path is the control socket path. If empty, defaults to
	// <work_dir>/araliya.sock.
	Path string `yaml:"path"`
}

// ListenConfig controls the HTTP live-ops adapter (event feed + health).
type ListenConfig struct {
	// Enabled turns on the HTTP adapter. Disabled by default: a
	// headless daemon only needs the control socket.
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"` // bind address, "" = all interfaces
	Port    int    `yaml:"port"`
}

// BusConfig sizes the kernel's bounded channels.
type BusConfig struct {
	Buffer        int `yaml:"buffer"`
	ControlBuffer int `yaml:"control_buffer"`
}

// CronConfig controls the demo scheduler handler's SQLite-backed store.
type CronConfig struct {
	Enabled bool `yaml:"enabled"`
	// DBPath is the SQLite database path. If empty, defaults to
	// <work_dir>/cron.db.
	DBPath string `yaml:"db_path"`
}

// ConsoleConfig controls the interactive console adapter.
type ConsoleConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LLMConfig defines the demo LLM handler's upstream, standing in for
// the out-of-scope agents/LLM subsystem the control protocol was
// designed to supervise.
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Load reads configuration from a YAML file, expands environment
// variables, applies defaults for any unset fields, and validates
// the result. After Load returns successfully, all fields are usable
// without additional nil/empty checks.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${HOME}, ${ARALIYA_WORK_DIR}).
	// This is a convenience for container deployments; the recommended
	// approach is to put values directly in the config file.
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// applyDefaults fills in zero-value fields with sensible defaults.
// Called automatically by Load. After this, callers can read any field
// without checking for empty strings or zero values.
func (c *Config) applyDefaults() {
	if c.WorkDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.WorkDir = filepath.Join(home, ".araliya")
		} else {
			c.WorkDir = ".araliya"
		}
	}
	if c.Socket.Path == "" {
		c.Socket.Path = filepath.Join(c.WorkDir, "araliya.sock")
	}
	if c.Listen.Port == 0 {
		c.Listen.Port = 8787
	}
	if c.Bus.Buffer == 0 {
		c.Bus.Buffer = 64
	}
	if c.Bus.ControlBuffer == 0 {
		c.Bus.ControlBuffer = 32
	}
	if c.Cron.DBPath == "" {
		c.Cron.DBPath = filepath.Join(c.WorkDir, "cron.db")
	}
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = "http://localhost:11434"
	}
	if c.LLM.Model == "" {
		c.LLM.Model = "demo"
	}
	if len(c.Handlers) == 0 {
		c.Handlers = []string{"echo", "llm", "cron", "management"}
	}
}

// Validate checks that the configuration is internally consistent.
// It runs after applyDefaults, so it can assume defaults are populated.
// Returns an error describing the first problem found, or nil.
func (c *Config) Validate() error {
	if c.Listen.Enabled && (c.Listen.Port < 1 || c.Listen.Port > 65535) {
		return fmt.Errorf("listen.port %d out of range (1-65535)", c.Listen.Port)
	}
	if c.Bus.Buffer < 1 {
		return fmt.Errorf("bus.buffer must be positive, got %d", c.Bus.Buffer)
	}
	if c.Bus.ControlBuffer < 1 {
		return fmt.Errorf("bus.control_buffer must be positive, got %d", c.Bus.ControlBuffer)
	}
	if c.Socket.Path == "" {
		return fmt.Errorf("socket.path must not be empty")
	}
	if c.LogLevel != "" {
		if _, err := ParseLogLevel(c.LogLevel); err != nil {
			return err
		}
	}
	for _, h := range c.Handlers {
		switch h {
		case "echo", "llm", "cron", "management":
		default:
			return fmt.Errorf("unknown handler %q", h)
		}
	}
	return nil
}

// Default returns a default configuration suitable for local
// development. All defaults are already applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}
