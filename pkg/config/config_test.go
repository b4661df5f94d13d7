package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Client.ServerURL != "http://127.0.0.1:5000" {
		t.Errorf("unexpected default server url %q", cfg.Client.ServerURL)
	}
	if cfg.Client.Timeout != 0 {
		t.Errorf("expected no client timeout by default, got %v", cfg.Client.Timeout)
	}
	if cfg.Script.Platform != "video" || cfg.Script.Style != "科普" || cfg.Script.Audience != "大众" || cfg.Script.N != 1 {
		t.Errorf("unexpected script defaults %+v", cfg.Script)
	}
	if len(cfg.Server.HiddenPredicates) != 1 || cfg.Server.HiddenPredicates[0] != "特征" {
		t.Errorf("unexpected hidden predicates %v", cfg.Server.HiddenPredicates)
	}
	if cfg.Server.MaxQueryResults != 100 || cfg.Server.MaxDetailProperties != 20 || cfg.Server.MaxSuggestions != 10 {
		t.Errorf("unexpected server limits %+v", cfg.Server)
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.UI.DefaultPane != "graph" {
		t.Errorf("expected default config, got pane %q", cfg.UI.DefaultPane)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
client:
  server_url: http://kg.local:8080
  timeout: 15s

ui:
  default_pane: tree
  split_ratio: 0.5
  export_dir: ~/snapshots

script:
  platform: 小红书
  n: 3

server:
  database: ~/kg/plants.db
  max_query_results: 50
  llm:
    model: deepseek-reasoner
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Client.ServerURL != "http://kg.local:8080" || cfg.Client.Timeout != 15*time.Second {
		t.Errorf("unexpected client config %+v", cfg.Client)
	}
	if cfg.UI.DefaultPane != "tree" || cfg.UI.SplitRatio != 0.5 {
		t.Errorf("unexpected ui config %+v", cfg.UI)
	}
	home, _ := os.UserHomeDir()
	if cfg.UI.ExportDir != filepath.Join(home, "snapshots") {
		t.Errorf("export dir not expanded: %q", cfg.UI.ExportDir)
	}
	if cfg.Server.Database != filepath.Join(home, "kg/plants.db") {
		t.Errorf("database not expanded: %q", cfg.Server.Database)
	}
	if cfg.Script.Platform != "小红书" || cfg.Script.N != 3 || cfg.Script.Style != "科普" {
		t.Errorf("unexpected script config %+v", cfg.Script)
	}
	if cfg.Server.MaxQueryResults != 50 || cfg.Server.MaxDetailProperties != 20 {
		t.Errorf("unexpected limits %+v", cfg.Server)
	}
	if cfg.Server.LLM.Model != "deepseek-reasoner" || cfg.Server.LLM.BaseURL != "https://api.deepseek.com/v1" {
		t.Errorf("unexpected llm config %+v", cfg.Server.LLM)
	}
}

func TestLoadFrom_ClampsInvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
ui:
  default_pane: board
  split_ratio: 1.5
script:
  n: 0
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.UI.DefaultPane != "graph" || cfg.UI.SplitRatio != 0.6 || cfg.Script.N != 1 {
		t.Errorf("values not clamped: %+v %+v", cfg.UI, cfg.Script)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("client: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Client.ServerURL = "http://example:9000"
	cfg.Script.Audience = "学生"
	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Client.ServerURL != "http://example:9000" || loaded.Script.Audience != "学生" {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("HG_SERVER_URL", "http://env:1234")
	t.Setenv("HG_SERVER_ADDR", ":7000")
	cfg := DefaultConfig()
	cfg.ApplyEnv()
	if cfg.Client.ServerURL != "http://env:1234" || cfg.Server.Addr != ":7000" {
		t.Errorf("env not applied: %+v %+v", cfg.Client, cfg.Server.Addr)
	}
}

func TestXDGDirs(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/cfg")
	t.Setenv("XDG_DATA_HOME", "/tmp/data")
	t.Setenv("XDG_STATE_HOME", "/tmp/state")
	if ConfigPath() != "/tmp/cfg/herbgraph/config.yaml" {
		t.Errorf("ConfigPath = %q", ConfigPath())
	}
	if DataDir() != "/tmp/data/herbgraph" || StateDir() != "/tmp/state/herbgraph" {
		t.Errorf("DataDir=%q StateDir=%q", DataDir(), StateDir())
	}
}
