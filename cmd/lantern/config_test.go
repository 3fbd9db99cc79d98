package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigFrom(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`model: /models/phi-4.gguf
library_path: /opt/llama/lib
temperature: 0.5
top_k: 20
max_tokens: 256
stream_mode: quiet
log_level: debug
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := LoadConfigFrom(path)
	if cfg.Model != "/models/phi-4.gguf" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.LibraryPath != "/opt/llama/lib" {
		t.Errorf("LibraryPath = %q", cfg.LibraryPath)
	}
	if cfg.Temperature == nil || *cfg.Temperature != 0.5 {
		t.Errorf("Temperature = %v", cfg.Temperature)
	}
	if cfg.TopK == nil || *cfg.TopK != 20 {
		t.Errorf("TopK = %v", cfg.TopK)
	}
	if cfg.MaxTokens == nil || *cfg.MaxTokens != 256 {
		t.Errorf("MaxTokens = %v", cfg.MaxTokens)
	}
	if cfg.StreamMode != "quiet" {
		t.Errorf("StreamMode = %q", cfg.StreamMode)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.Seed != nil {
		t.Errorf("Seed should be unset, got %v", *cfg.Seed)
	}
}

func TestLoadConfigFromMissingFile(t *testing.T) {
	cfg := LoadConfigFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if cfg != (Config{}) {
		t.Errorf("missing file should yield zero config, got %+v", cfg)
	}
}

func TestLoadConfigFromBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("model: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg := LoadConfigFrom(path)
	if cfg != (Config{}) {
		t.Errorf("bad yaml should yield zero config, got %+v", cfg)
	}
}

func TestLoadConfigFromEmptyPath(t *testing.T) {
	if cfg := LoadConfigFrom(""); cfg != (Config{}) {
		t.Errorf("empty path should yield zero config, got %+v", cfg)
	}
}
