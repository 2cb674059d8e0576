package otaserve

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds server configuration, loadable from a YAML file.
// CLI flags override file values.
type Config struct {
	// Listen is the address the HTTP server binds to.
	Listen string `yaml:"listen"`

	// Package is the path of the OTA package to serve.
	Package string `yaml:"package"`

	// Secondary selects the secondary payload entries inside the package.
	Secondary bool `yaml:"secondary"`

	// Strict turns locate warnings (magic mismatch, compressed payload
	// entry) into errors.
	Strict bool `yaml:"strict"`

	// Payload and Properties select a bare payload file instead of an OTA
	// package. Mutually exclusive with Package.
	Payload    string `yaml:"payload"`
	Properties string `yaml:"properties"`

	// CORS enables permissive CORS headers on the HTTP surface.
	CORS bool `yaml:"cors"`
}

// DefaultConfig returns the configuration used when no file or flags are given.
func DefaultConfig() Config {
	return Config{
		Listen: "127.0.0.1:8080",
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects contradictory settings.
func (c *Config) Validate() error {
	if c.Package != "" && c.Payload != "" {
		return fmt.Errorf("otaserve: package and payload are mutually exclusive")
	}
	if c.Payload == "" && c.Properties != "" {
		return fmt.Errorf("otaserve: properties requires payload")
	}
	if c.Secondary && c.Package == "" {
		return fmt.Errorf("otaserve: secondary requires package")
	}
	return nil
}
