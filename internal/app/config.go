package app

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/ritmo-radar/configs"
)

// loadConfigFromFile reads a configuration file directly, bypassing the
// viper search path. Used by the standalone config subcommands.
func loadConfigFromFile(filePath string) (*configs.Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := configs.GetDefaultConfig()

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", filepath.Ext(filePath))
	}

	return config, nil
}

// GenerateExampleConfig generates an example configuration file with all
// defaults spelled out
func GenerateExampleConfig(outputFile string) error {
	exampleConfig := configs.GetDefaultConfig()

	// Write to YAML file
	data, err := yaml.Marshal(exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(outputFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(outputFile, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("✅ Example configuration written to: %s\n", outputFile)
	return nil
}

// ValidateConfigFile validates a configuration file
func ValidateConfigFile(configFile string) error {
	config, err := loadConfigFromFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := configs.ValidateConfig(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	fmt.Printf("✅ Configuration is valid: %s\n", configFile)
	fmt.Printf("   - Window: %d samples, hop %d (%s)\n",
		config.Audio.WindowSize, config.Audio.HopSize, config.Audio.WindowFunction)
	fmt.Printf("   - Pitch method: %s (%.0f-%.0f Hz)\n",
		config.Pitch.Method, config.Pitch.MinFrequency, config.Pitch.MaxFrequency)
	fmt.Printf("   - Tempo range: %.0f-%.0f BPM\n",
		config.Tempo.MinBPM, config.Tempo.MaxBPM)

	return nil
}
