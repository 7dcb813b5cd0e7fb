// Package config provides configuration loading and management for mammoprep.
// It handles loading configuration from YAML files and provides default values
// for the crop calibration constants and runtime processing settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// CropCalibration holds the border-cropper constants. The corner
// rectangle geometry and both thresholds are tied to one modality's
// burned-in text layout; they are configuration, never derived from
// image content.
type CropCalibration struct {
	// IntensityThreshold separates tissue from background: pixels
	// strictly above it count as content when computing the crop
	// rectangle.
	IntensityThreshold uint8 `yaml:"intensityThreshold"`

	// BrightThreshold marks residual burned-in text: pixels strictly
	// above it are zeroed before the content mask is built. Useful
	// values for the target modality lie in 150..240.
	BrightThreshold uint8 `yaml:"brightThreshold"`

	// CornerHeight and CornerWidth are the dimensions of the fixed
	// corner rectangles masked out before cropping, matching the known
	// patient-text placement on the target modality.
	CornerHeight int `yaml:"cornerHeight"`
	CornerWidth  int `yaml:"cornerWidth"`
}

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// Workers specifies how many files are processed concurrently
		Workers int `yaml:"workers"`

		// Resize enables the padder on the whole-image path
		Resize bool `yaml:"resize"`

		// TargetWidth and TargetHeight are the padded output canvas size
		TargetWidth  int `yaml:"targetWidth"`
		TargetHeight int `yaml:"targetHeight"`
	} `yaml:"processing"`

	// Crop holds the border-cropper calibration
	Crop CropCalibration `yaml:"crop"`

	// Output parameters
	Output struct {
		// PNGCompression selects the PNG compression level
		// (0 default, -1 none, -2 fastest, -3 best)
		PNGCompression int `yaml:"pngCompression"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	// Set default processing parameters
	cfg.Processing.Workers = runtime.NumCPU()
	cfg.Processing.Resize = false
	cfg.Processing.TargetWidth = 512
	cfg.Processing.TargetHeight = 512

	// Set default crop calibration
	cfg.Crop.IntensityThreshold = 10
	cfg.Crop.BrightThreshold = 240
	cfg.Crop.CornerHeight = 45
	cfg.Crop.CornerWidth = 80

	// Set default output parameters
	cfg.Output.PNGCompression = 0
	cfg.Output.Verbose = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	// Check if config file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Parse YAML
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	// Marshal config to YAML
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	// Write to file
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	cfg := DefaultConfig()
	return SaveConfig(cfg, configPath)
}
