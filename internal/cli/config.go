package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/evcraddock/visit-hub/internal/identity"
)

const defaultServerURL = "http://localhost:8080"

// CLIConfig holds CLI configuration persisted to disk.
type CLIConfig struct {
	ServerURL string            `yaml:"server_url,omitempty"`
	Token     string            `yaml:"token,omitempty"`
	Profile   *identity.Profile `yaml:"profile,omitempty"`
}

// configPath returns the path to the CLI config file.
func configPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "vh", "config.yaml"), nil
}

// loadConfig reads the CLI config from disk.
// Returns a zero-value config if the file doesn't exist.
func loadConfig() (CLIConfig, error) {
	path, err := configPath()
	if err != nil {
		return CLIConfig{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return CLIConfig{}, nil
	}
	if err != nil {
		return CLIConfig{}, fmt.Errorf("reading config: %w", err)
	}

	var cfg CLIConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return CLIConfig{}, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// saveConfig writes the CLI config to disk.
func saveConfig(cfg CLIConfig) error {
	path, err := configPath()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// getServerURL returns the server URL from the --server flag, env var,
// config, or default.
func getServerURL() string {
	if flagServer != "" {
		return flagServer
	}
	if v := os.Getenv("VH_SERVER_URL"); v != "" {
		return v
	}
	cfg, err := loadConfig()
	if err == nil && cfg.ServerURL != "" {
		return cfg.ServerURL
	}
	return defaultServerURL
}

// fileCache stores the signed-in identity in the CLI config file, leaving
// the other settings in place. VH_TOKEN takes precedence over the file.
type fileCache struct{}

var _ identity.Cache = fileCache{}

func (fileCache) Load() (identity.Snapshot, error) {
	if v := os.Getenv("VH_TOKEN"); v != "" {
		return identity.Snapshot{Token: v}, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return identity.Snapshot{}, err
	}
	return identity.Snapshot{Token: cfg.Token, Profile: cfg.Profile}, nil
}

func (fileCache) Save(s identity.Snapshot) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Token = s.Token
	cfg.Profile = s.Profile
	return saveConfig(cfg)
}

func (fileCache) Clear() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cfg.Token == "" && cfg.Profile == nil {
		return nil
	}
	cfg.Token = ""
	cfg.Profile = nil
	return saveConfig(cfg)
}
