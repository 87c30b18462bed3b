package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config represents the reposync tool configuration
type Config struct {
	GitHub GitHubConfig `yaml:"github"`
	Log    LogConfig    `yaml:"log"`
}

// GitHubConfig represents GitHub connection and reconciliation settings
type GitHubConfig struct {
	Token string `yaml:"token,omitempty"`
	// BaseURL points at a GitHub Enterprise Server API, empty for github.com.
	BaseURL       string `yaml:"base_url,omitempty"`
	Owner         string `yaml:"owner,omitempty"`
	DefaultBranch string `yaml:"default_branch,omitempty"`
	SettingsFile  string `yaml:"settings_file,omitempty"`
	JiraURL       string `yaml:"jira_url,omitempty"`

	RecreateExistingPolicies bool `yaml:"recreate_existing_policies,omitempty"`
}

// LogConfig controls log output
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`
	Format string `yaml:"format,omitempty"` // console, json or auto
}

// Defaults used when the configuration leaves a value empty
const (
	DefaultSettingsFile  = ".reposync.yaml"
	DefaultDefaultBranch = "main"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "auto"
)

// LoadConfig loads configuration from the default location
func LoadConfig() (*Config, error) {
	configPath, err := GetConfigPath()
	if err != nil {
		return nil, err
	}

	return LoadConfigFromPath(configPath)
}

// LoadConfigFromPath loads configuration from a specific path
func LoadConfigFromPath(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		config := &Config{}
		config.ApplyDefaults()
		return config, nil // Return defaults if file doesn't exist
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.ApplyDefaults()
	return &config, nil
}

// ApplyDefaults fills empty values with their defaults
func (c *Config) ApplyDefaults() {
	if c.GitHub.DefaultBranch == "" {
		c.GitHub.DefaultBranch = DefaultDefaultBranch
	}
	if c.GitHub.SettingsFile == "" {
		c.GitHub.SettingsFile = DefaultSettingsFile
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}

// SaveConfig saves configuration to the default location
func (c *Config) SaveConfig() error {
	configPath, err := GetConfigPath()
	if err != nil {
		return err
	}

	return c.SaveConfigToPath(configPath)
}

// SaveConfigToPath saves configuration to a specific path
func (c *Config) SaveConfigToPath(path string) error {
	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file may hold a token.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	return filepath.Join(homeDir, ".reposync", "config.yaml"), nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "", "auto", "console", "json":
	default:
		return fmt.Errorf("log format must be one of: auto, console, json")
	}

	return nil
}
