package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
)

const (
	// EnvURL is the environment variable name for the Redmine base URL
	EnvURL = "REDMINE_URL"
	// EnvAPIKey is the environment variable name for the Redmine API key
	EnvAPIKey = "REDMINE_API_KEY"
	// EnvLogin is the environment variable name for the Redmine login
	EnvLogin = "REDMINE_LOGIN"
	// EnvPassword is the environment variable name for the Redmine password
	EnvPassword = "REDMINE_PASSWORD"
	// EnvAccessToken is the environment variable name for an OAuth2 access token
	EnvAccessToken = "REDMINE_ACCESS_TOKEN"

	DefaultUserAgent    = "redmine-tracker"
	DefaultDatabasePath = "redmine_tracker.db"
	DefaultPageSize     = 100
)

// Config represents the application configuration
type Config struct {
	// Base URL of the Redmine instance, e.g. https://redmine.example.com
	URL string `json:"url" yaml:"url"`

	// API key (optional, can be set via REDMINE_API_KEY env var). Takes
	// precedence over login and password.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// OAuth2 access token (Redmine 6.1+), used when no API key is set
	AccessToken string `json:"access_token,omitempty" yaml:"access_token,omitempty"`

	Login    string `json:"login,omitempty" yaml:"login,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty"`

	// Verify the server certificate
	CheckSSL bool `json:"check_ssl" yaml:"check_ssl"`

	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// Path to the SQLite database holding the remembered login
	DatabasePath string `json:"database_path" yaml:"database_path"`

	// Number of issues requested per page
	PageSize int `json:"page_size" yaml:"page_size"`
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

// LoadConfig loads the configuration from a JSON or YAML file
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{CheckSSL: true}
	if isYAML(path) {
		err = yaml.Unmarshal(data, &config)
	} else {
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnv()
	config.applyDefaults()

	// Make database path absolute if it's relative
	if !filepath.IsAbs(config.DatabasePath) {
		configDir := filepath.Dir(path)
		config.DatabasePath = filepath.Join(configDir, config.DatabasePath)
	}

	return &config, nil
}

func (c *Config) applyEnv() {
	overrides := []struct {
		env string
		dst *string
	}{
		{EnvURL, &c.URL},
		{EnvAPIKey, &c.APIKey},
		{EnvLogin, &c.Login},
		{EnvPassword, &c.Password},
		{EnvAccessToken, &c.AccessToken},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

func (c *Config) applyDefaults() {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.DatabasePath == "" {
		c.DatabasePath = DefaultDatabasePath
	}
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
}

// SaveConfig saves the configuration as JSON or YAML, depending on the extension
func SaveConfig(config *Config, path string) error {
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(config)
	} else {
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// The file may hold credentials
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateDefaultConfig creates a default configuration file if it doesn't exist
func CreateDefaultConfig(path string) error {
	// Check if the file already exists
	if _, err := os.Stat(path); err == nil {
		return nil // File exists, don't overwrite
	}

	config := &Config{
		URL:          "https://redmine.example.com",
		CheckSSL:     true,
		UserAgent:    DefaultUserAgent,
		DatabasePath: DefaultDatabasePath,
		PageSize:     DefaultPageSize,
	}

	// Ensure the directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	return SaveConfig(config, path)
}
