package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Join(dir, configDir), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, configDir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Listen != ":8000" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.APIURL != "http://localhost:8000" {
		t.Errorf("api url = %q", cfg.APIURL)
	}
	if cfg.Model != "gpt-4o" {
		t.Errorf("model = %q", cfg.Model)
	}
}

func TestLoadConfigYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "config.yaml", "listen: \":9000\"\nproject_root: /srv/agent\n")

	cfg, err := loadConfig(dir)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Listen != ":9000" {
		t.Errorf("listen = %q", cfg.Listen)
	}
	if cfg.ProjectRoot != "/srv/agent" {
		t.Errorf("project root = %q", cfg.ProjectRoot)
	}
	// Unset keys keep their defaults.
	if cfg.Model != "gpt-4o" {
		t.Errorf("model = %q", cfg.Model)
	}
}

func TestLoadConfigOverridesBeatYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "config.yaml", "project_root: /from/yaml\nmodel: gpt-4o-mini\n")
	writeConfigFile(t, dir, "overrides.toml", "project_root = \"/from/toml\"\n")

	cfg, err := loadConfig(dir)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.ProjectRoot != "/from/toml" {
		t.Errorf("project root = %q", cfg.ProjectRoot)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("model = %q, want yaml value kept", cfg.Model)
	}
}

func TestLoadConfigEnvBeatsFiles(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "config.yaml", "api_url: http://files:8000\n")
	t.Setenv("EPILOG_API_URL", "http://env:8000")
	t.Setenv("EPILOG_MODEL", "gpt-5")

	cfg, err := loadConfig(dir)
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.APIURL != "http://env:8000" {
		t.Errorf("api url = %q", cfg.APIURL)
	}
	if cfg.Model != "gpt-5" {
		t.Errorf("model = %q", cfg.Model)
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfigFile(t, dir, "config.yaml", "listen: [unclosed\n")

	if _, err := loadConfig(dir); err == nil {
		t.Fatal("expected parse error")
	}
}
