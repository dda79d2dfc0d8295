package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/vietddude/flowpanel/internal/core/domain"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content, expanding environment variables first.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	if domain.ParseNetworkID(cfg.Network) == domain.NetworkUnknown {
		return nil, fmt.Errorf("unknown network %q", cfg.Network)
	}
	for _, o := range cfg.Networks {
		if domain.ParseNetworkID(o.Name) == domain.NetworkUnknown {
			return nil, fmt.Errorf("unknown network override %q", o.Name)
		}
	}

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Network == "" {
		cfg.Network = string(domain.NetworkEmulator)
	}
	if cfg.Transfer.DwellInterval == 0 {
		cfg.Transfer.DwellInterval = 3 * time.Second
	}
	if cfg.Submission.Timeout == 0 {
		cfg.Submission.Timeout = 30 * time.Second
	}
	if cfg.Seal.PollInterval == 0 {
		cfg.Seal.PollInterval = time.Second
	}
	if cfg.Seal.RequestTimeout == 0 {
		cfg.Seal.RequestTimeout = 10 * time.Second
	}
	if cfg.Seal.Timeout == 0 {
		cfg.Seal.Timeout = 15 * time.Minute
	}
}
