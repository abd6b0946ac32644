package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigDefaults(t *testing.T) {
	config, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() failed: %v", err)
	}
	if config == nil {
		t.Fatal("LoadConfig() returned nil config")
	}
	if config.Handlers.Extensions[".csv"] != "csv" {
		t.Errorf("expected default .csv handler to be \"csv\", got %q", config.Handlers.Extensions[".csv"])
	}
	if config.Dispatch.WorkerType != "thread" {
		t.Errorf("expected default worker type \"thread\", got %q", config.Dispatch.WorkerType)
	}
}

func TestLoadDatasetConfigOverlaysProjectFile(t *testing.T) {
	dir := t.TempDir()
	cwd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Chdir(cwd) }()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}

	contents := []byte("template: \"{year}/{month}/data_{hour}{minute}.csv\"\nbase_dir: \"/data/obs\"\n")
	if err := os.WriteFile(filepath.Join(dir, "tempo.yaml"), contents, 0o644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadDatasetConfig()
	if err != nil {
		t.Fatalf("LoadDatasetConfig() failed: %v", err)
	}
	if config.Template != "{year}/{month}/data_{hour}{minute}.csv" {
		t.Errorf("expected template to be overlaid from tempo.yaml, got %q", config.Template)
	}
	if config.BaseDir != "/data/obs" {
		t.Errorf("expected base_dir to be overlaid from tempo.yaml, got %q", config.BaseDir)
	}
}

func TestEffectiveDelimiterDefaultsToComma(t *testing.T) {
	c := &Config{}
	if c.EffectiveDelimiter() != ',' {
		t.Errorf("expected default delimiter ',', got %q", c.EffectiveDelimiter())
	}
}

func TestEffectiveDelimiterHonorsConfig(t *testing.T) {
	c := &Config{Handlers: HandlersConfig{CSV: CSVHandlerConfig{Delimiter: ";"}}}
	if c.EffectiveDelimiter() != ';' {
		t.Errorf("expected delimiter ';', got %q", c.EffectiveDelimiter())
	}
}
