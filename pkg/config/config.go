// Package config handles loading and saving herbgraph configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/herbgraph/config.yaml
//   - Data:    ~/.local/share/herbgraph/ (knowledge-graph database, taxonomy and name lists)
//   - State:   ~/.local/state/herbgraph/ (exported graph snapshots)
//
// Both the hg client and the hgserve backend read the same file; each uses
// its own section.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const appName = "herbgraph"

// ClientConfig controls how hg reaches the backend.
type ClientConfig struct {
	ServerURL string        `yaml:"server_url,omitempty"`
	Timeout   time.Duration `yaml:"timeout,omitempty"` // 0 = wait indefinitely
}

// UIConfig holds UI preference settings.
type UIConfig struct {
	DefaultPane string  `yaml:"default_pane,omitempty"` // graph, tree, info
	SplitRatio  float64 `yaml:"split_ratio,omitempty"`  // Width share of the left pane (0.2-0.8)
	ExportDir   string  `yaml:"export_dir,omitempty"`   // Where 'e' writes graph snapshots
}

// ScriptConfig holds the fixed parameters of chained script suggestions.
type ScriptConfig struct {
	Platform string `yaml:"platform,omitempty"`
	Style    string `yaml:"style,omitempty"`
	Audience string `yaml:"audience,omitempty"`
	N        int    `yaml:"n,omitempty"`
}

// LLMConfig points the backend at an OpenAI-compatible chat endpoint.
type LLMConfig struct {
	BaseURL     string        `yaml:"base_url,omitempty"`
	Model       string        `yaml:"model,omitempty"`
	APIKeyEnv   string        `yaml:"api_key_env,omitempty"` // Env var holding the key
	Temperature float64       `yaml:"temperature,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty"`
}

// APIKey returns the key from the configured environment variable.
func (l LLMConfig) APIKey() string {
	if l.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(l.APIKeyEnv)
}

// ServerConfig configures hgserve.
type ServerConfig struct {
	Addr                string    `yaml:"addr,omitempty"`
	Database            string    `yaml:"database,omitempty"`
	TaxonomyPath        string    `yaml:"taxonomy_path,omitempty"`
	NamesPath           string    `yaml:"names_path,omitempty"`
	HiddenPredicates    []string  `yaml:"hidden_predicates,omitempty"`
	MaxQueryResults     int       `yaml:"max_query_results,omitempty"`
	MaxDetailProperties int       `yaml:"max_detail_properties,omitempty"`
	MaxSuggestions      int       `yaml:"max_suggestions,omitempty"`
	AllowedOrigins      []string  `yaml:"allowed_origins,omitempty"`
	LLM                 LLMConfig `yaml:"llm,omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	Client ClientConfig `yaml:"client,omitempty"`
	UI     UIConfig     `yaml:"ui,omitempty"`
	Script ScriptConfig `yaml:"script,omitempty"`
	Server ServerConfig `yaml:"server,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Client: ClientConfig{
			ServerURL: "http://127.0.0.1:5000",
		},
		UI: UIConfig{
			DefaultPane: "graph",
			SplitRatio:  0.6,
			ExportDir:   StateDir(),
		},
		Script: ScriptConfig{
			Platform: "video",
			Style:    "科普",
			Audience: "大众",
			N:        1,
		},
		Server: ServerConfig{
			Addr:                "127.0.0.1:5000",
			Database:            filepath.Join(DataDir(), "kg.db"),
			TaxonomyPath:        filepath.Join(DataDir(), "taxonomy_table.json"),
			NamesPath:           filepath.Join(DataDir(), "name.csv"),
			HiddenPredicates:    []string{"特征"},
			MaxQueryResults:     100,
			MaxDetailProperties: 20,
			MaxSuggestions:      10,
			AllowedOrigins:      []string{"*"},
			LLM: LLMConfig{
				BaseURL:     "https://api.deepseek.com/v1",
				Model:       "deepseek-chat",
				APIKeyEnv:   "DEEPSEEK_API_KEY",
				Temperature: 0.7,
				Timeout:     60 * time.Second,
			},
		},
	}
}

// ConfigDir returns the XDG config directory.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", appName)
}

// DataDir returns the XDG data directory.
func DataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "share", appName)
}

// StateDir returns the XDG state directory.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.normalize()
	return cfg, nil
}

// normalize expands ~ in paths and clamps values a hand-edited file may get
// wrong.
func (c *Config) normalize() {
	c.UI.ExportDir = expandHome(c.UI.ExportDir)
	c.Server.Database = expandHome(c.Server.Database)
	c.Server.TaxonomyPath = expandHome(c.Server.TaxonomyPath)
	c.Server.NamesPath = expandHome(c.Server.NamesPath)

	if c.UI.SplitRatio < 0.2 || c.UI.SplitRatio > 0.8 {
		c.UI.SplitRatio = 0.6
	}
	if c.Script.N < 1 {
		c.Script.N = 1
	}
	if c.Client.Timeout < 0 {
		c.Client.Timeout = 0
	}
	switch c.UI.DefaultPane {
	case "graph", "tree", "info":
	default:
		c.UI.DefaultPane = "graph"
	}
}

// ApplyEnv overrides values from environment variables.
func (c *Config) ApplyEnv() {
	if v := strings.TrimSpace(os.Getenv("HG_SERVER_URL")); v != "" {
		c.Client.ServerURL = v
	}
	if v := strings.TrimSpace(os.Getenv("HG_SERVER_ADDR")); v != "" {
		c.Server.Addr = v
	}
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
