package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	Detection DetectionConfig `json:"detection"`
	Normalize NormalizeConfig `json:"normalize"`
	Overlay   OverlayConfig   `json:"overlay"`
}

// DetectionConfig holds configuration for the detection backend
type DetectionConfig struct {
	Endpoint       string `json:"endpoint"`
	Backend        string `json:"backend"`
	OllamaURL      string `json:"ollama_url"`
	Model          string `json:"model"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// NormalizeConfig holds configuration for image normalization
type NormalizeConfig struct {
	TargetWidth int `json:"target_width"`
	JPEGQuality int `json:"jpeg_quality"`
}

// OverlayConfig holds the renderer's scale-aware drawing constants
type OverlayConfig struct {
	ReferenceWidth float64 `json:"reference_width"`
	BaseLineWidth  float64 `json:"base_line_width"`
	MinLineWidth   float64 `json:"min_line_width"`
	BaseFontSize   float64 `json:"base_font_size"`
	MinFontSize    float64 `json:"min_font_size"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Detection: DetectionConfig{
			Endpoint:       "http://localhost:8000/detect",
			Backend:        "http",
			OllamaURL:      "http://localhost:11434",
			Model:          "llava",
			TimeoutSeconds: 60,
		},
		Normalize: NormalizeConfig{
			TargetWidth: 640,
			JPEGQuality: 85,
		},
		Overlay: OverlayConfig{
			ReferenceWidth: 600,
			BaseLineWidth:  2,
			MinLineWidth:   2,
			BaseFontSize:   14,
			MinFontSize:    12,
		},
	}
}

// LoadFromFile loads configuration from a JSON file
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// ApplyEnv overrides configuration values from the environment. Load a
// .env file first (godotenv in the CLI) to feed these.
func (c *Config) ApplyEnv() error {
	if v := os.Getenv("PHOTODETECT_ENDPOINT"); v != "" {
		c.Detection.Endpoint = v
	}
	if v := os.Getenv("PHOTODETECT_BACKEND"); v != "" {
		c.Detection.Backend = v
	}
	if v := os.Getenv("PHOTODETECT_TARGET_WIDTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PHOTODETECT_TARGET_WIDTH: %w", err)
		}
		c.Normalize.TargetWidth = n
	}
	if v := os.Getenv("PHOTODETECT_JPEG_QUALITY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PHOTODETECT_JPEG_QUALITY: %w", err)
		}
		c.Normalize.JPEGQuality = n
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Detection.Endpoint == "" {
		return fmt.Errorf("detection.endpoint cannot be empty")
	}

	if c.Detection.Backend != "http" && c.Detection.Backend != "ollama" {
		return fmt.Errorf("detection.backend must be http or ollama")
	}

	if c.Detection.TimeoutSeconds < 1 {
		return fmt.Errorf("detection.timeout_seconds must be positive")
	}

	if c.Normalize.TargetWidth < 1 {
		return fmt.Errorf("normalize.target_width must be positive")
	}

	if c.Normalize.JPEGQuality < 1 || c.Normalize.JPEGQuality > 100 {
		return fmt.Errorf("normalize.jpeg_quality must be between 1 and 100")
	}

	if c.Overlay.ReferenceWidth < 1 {
		return fmt.Errorf("overlay.reference_width must be positive")
	}

	if c.Overlay.MinLineWidth < 1 || c.Overlay.MinFontSize < 1 {
		return fmt.Errorf("overlay minimums must be positive")
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "photo-detect", "config.json")
}
