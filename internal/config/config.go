package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the configuration file is absent or partial.
const (
	// DefaultClientID is the fixed public client identifier registered at
	// the identity provider. Public clients hold no secret.
	DefaultClientID = "public-client"

	// DefaultScope is requested on every authorization redirect.
	DefaultScope = "openid email"

	// DefaultCallbackPort is the port of the loopback callback listener.
	DefaultCallbackPort = 3000

	// defaultConfigDir is relative to the user's home directory.
	defaultConfigDir = ".config/og-session"

	configFileName = "config.yaml"
)

// Config is the top-level configuration for og-session.
type Config struct {
	Provider ProviderConfig `yaml:"provider"`
	Storage  StorageConfig  `yaml:"storage,omitempty"`

	// CallbackPort is the local port the identity provider redirects back
	// to during login (default: 3000).
	CallbackPort int `yaml:"callbackPort,omitempty"`
}

// ProviderConfig identifies the identity provider and this application's
// registration with it. Either Issuer (endpoints discovered via the
// well-known document) or the two explicit endpoints must be set.
type ProviderConfig struct {
	Issuer                string `yaml:"issuer,omitempty"`
	AuthorizationEndpoint string `yaml:"authorizationEndpoint,omitempty"`
	TokenEndpoint         string `yaml:"tokenEndpoint,omitempty"`
	ClientID              string `yaml:"clientID,omitempty"`
	Scope                 string `yaml:"scope,omitempty"`
}

// StorageConfig controls where session state is persisted.
type StorageConfig struct {
	// Dir is the directory for the session and return URL slots
	// (default: ~/.config/og-session).
	Dir string `yaml:"dir,omitempty"`
}

// DefaultConfigPath returns the standard location of the configuration file.
func DefaultConfigPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, defaultConfigDir, configFileName), nil
}

// Load reads the configuration from path and applies defaults. A missing
// file yields the default configuration; a malformed file is an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyDefaults(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	applyDefaults(cfg)
	return cfg, nil
}

// Validate checks that the provider is addressable.
func (c *Config) Validate() error {
	p := c.Provider
	if p.Issuer == "" && (p.AuthorizationEndpoint == "" || p.TokenEndpoint == "") {
		return fmt.Errorf("provider requires either issuer or both authorizationEndpoint and tokenEndpoint")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Provider.ClientID == "" {
		cfg.Provider.ClientID = DefaultClientID
	}
	if cfg.Provider.Scope == "" {
		cfg.Provider.Scope = DefaultScope
	}
	if cfg.CallbackPort == 0 {
		cfg.CallbackPort = DefaultCallbackPort
	}
}
