package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// configDir is the per-project directory holding epilog state.
const configDir = ".epilog"

// config represents the .epilog/config.yaml structure.
type config struct {
	Listen      string `yaml:"listen"`
	Database    string `yaml:"database"`
	APIURL      string `yaml:"api_url"`
	ProjectRoot string `yaml:"project_root,omitempty"`
	Model       string `yaml:"model,omitempty"`
	OpenAIBase  string `yaml:"openai_base_url,omitempty"`
}

// overrides represents .epilog/overrides.toml, a machine-written file that
// takes precedence over config.yaml. Used by tooling that knows the project
// layout better than the scaffolded defaults.
type overrides struct {
	ProjectRoot string `toml:"project_root"`
	Model       string `toml:"model"`
}

func defaultConfig() config {
	return config{
		Listen:   ":8000",
		Database: filepath.Join(configDir, "traces.db"),
		APIURL:   "http://localhost:8000",
		Model:    "gpt-4o",
	}
}

// loadConfig reads the layered configuration rooted at dir: built-in
// defaults, then config.yaml, then overrides.toml, then environment.
func loadConfig(dir string) (config, error) {
	cfg := defaultConfig()

	yamlPath := filepath.Join(dir, configDir, "config.yaml")
	if data, err := os.ReadFile(yamlPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return config{}, fmt.Errorf("parse %s: %w", yamlPath, err)
		}
	}

	tomlPath := filepath.Join(dir, configDir, "overrides.toml")
	if data, err := os.ReadFile(tomlPath); err == nil {
		var ov overrides
		if err := toml.Unmarshal(data, &ov); err != nil {
			return config{}, fmt.Errorf("parse %s: %w", tomlPath, err)
		}
		if ov.ProjectRoot != "" {
			cfg.ProjectRoot = ov.ProjectRoot
		}
		if ov.Model != "" {
			cfg.Model = ov.Model
		}
	}

	if url := os.Getenv("EPILOG_API_URL"); url != "" {
		cfg.APIURL = url
	}
	if base := os.Getenv("EPILOG_OPENAI_BASE_URL"); base != "" {
		cfg.OpenAIBase = base
	}
	if model := os.Getenv("EPILOG_MODEL"); model != "" {
		cfg.Model = model
	}

	return cfg, nil
}
