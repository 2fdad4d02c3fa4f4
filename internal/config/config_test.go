package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}

	if cfg.Normalize.TargetWidth != 640 {
		t.Errorf("Expected default target width 640, got %d", cfg.Normalize.TargetWidth)
	}
	if cfg.Normalize.JPEGQuality != 85 {
		t.Errorf("Expected default JPEG quality 85, got %d", cfg.Normalize.JPEGQuality)
	}
	if cfg.Overlay.ReferenceWidth != 600 {
		t.Errorf("Expected default reference width 600, got %f", cfg.Overlay.ReferenceWidth)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty endpoint", func(c *Config) { c.Detection.Endpoint = "" }},
		{"unknown backend", func(c *Config) { c.Detection.Backend = "grpc" }},
		{"zero timeout", func(c *Config) { c.Detection.TimeoutSeconds = 0 }},
		{"zero width", func(c *Config) { c.Normalize.TargetWidth = 0 }},
		{"quality too high", func(c *Config) { c.Normalize.JPEGQuality = 101 }},
		{"quality too low", func(c *Config) { c.Normalize.JPEGQuality = 0 }},
		{"zero reference width", func(c *Config) { c.Overlay.ReferenceWidth = 0 }},
		{"zero line minimum", func(c *Config) { c.Overlay.MinLineWidth = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error")
			}
		})
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"detection": {"endpoint": "http://api.example.com/detect"},
		"normalize": {"target_width": 800}
	}`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Detection.Endpoint != "http://api.example.com/detect" {
		t.Errorf("Endpoint not loaded: %s", cfg.Detection.Endpoint)
	}
	if cfg.Normalize.TargetWidth != 800 {
		t.Errorf("Target width not loaded: %d", cfg.Normalize.TargetWidth)
	}
	// Unspecified fields keep defaults
	if cfg.Normalize.JPEGQuality != 85 {
		t.Errorf("Expected default quality 85, got %d", cfg.Normalize.JPEGQuality)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	if _, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("PHOTODETECT_ENDPOINT", "http://override.example.com/detect")
	t.Setenv("PHOTODETECT_TARGET_WIDTH", "720")
	t.Setenv("PHOTODETECT_JPEG_QUALITY", "90")

	cfg := Default()
	if err := cfg.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv failed: %v", err)
	}

	if cfg.Detection.Endpoint != "http://override.example.com/detect" {
		t.Errorf("Endpoint override not applied: %s", cfg.Detection.Endpoint)
	}
	if cfg.Normalize.TargetWidth != 720 {
		t.Errorf("Width override not applied: %d", cfg.Normalize.TargetWidth)
	}
	if cfg.Normalize.JPEGQuality != 90 {
		t.Errorf("Quality override not applied: %d", cfg.Normalize.JPEGQuality)
	}
}

func TestApplyEnvRejectsGarbage(t *testing.T) {
	t.Setenv("PHOTODETECT_TARGET_WIDTH", "not-a-number")

	cfg := Default()
	if err := cfg.ApplyEnv(); err == nil {
		t.Error("Expected error for non-numeric width")
	}
}
