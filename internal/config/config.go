// Package config provides configuration management for the installer.
// It handles the YAML file naming the remote endpoints, the target platform
// and HTTP settings.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/prostore-ios/installer/internal/advisory"
	"github.com/prostore-ios/installer/internal/platform"
	"github.com/prostore-ios/installer/internal/transport"
)

// DefaultConfigFile is the config path used when none is given.
const DefaultConfigFile = "installer.yaml"

// Sentinel errors for configuration validation
var (
	ErrVersionRequired       = errors.New("version is required")
	ErrInvalidURL            = errors.New("invalid url")
	ErrInvalidTimeout        = errors.New("invalid http timeout")
	ErrFileExtensionRequired = errors.New("platform file_extension is required")
)

// Config represents the top-level configuration structure.
type Config struct {
	Version   string         `yaml:"version"`
	Endpoints EndpointConfig `yaml:"endpoints"`
	Platform  PlatformConfig `yaml:"platform"`
	HTTP      HTTPConfig     `yaml:"http"`
	Defaults  DefaultsConfig `yaml:"defaults"`
}

// EndpointConfig names the remote services the installer talks to.
type EndpointConfig struct {
	GitHubAPIBase string `yaml:"github_api_base"` // empty uses api.github.com
	AdvisoryURL   string `yaml:"advisory_url"`
	SigningURL    string `yaml:"signing_url"`
	InstallBase   string `yaml:"install_base"`
	ManifestPath  string `yaml:"manifest_path"`
	TriggerPrefix string `yaml:"trigger_prefix"`
}

// PlatformConfig selects the install target.
type PlatformConfig struct {
	Name          string `yaml:"name"`
	FileExtension string `yaml:"file_extension"`
}

// HTTPConfig represents HTTP client settings shared by every remote call.
type HTTPConfig struct {
	Timeout   string `yaml:"timeout"`
	UserAgent string `yaml:"user_agent"`
}

// DefaultsConfig holds defaults for the install command flags.
type DefaultsConfig struct {
	Repository         string `yaml:"repository"`
	IncludePrereleases bool   `yaml:"include_prereleases"`
}

// GetTimeout parses and returns the HTTP timeout duration
func (h *HTTPConfig) GetTimeout() time.Duration {
	if h.Timeout == "" {
		return transport.DefaultTimeout
	}
	timeout, err := time.ParseDuration(h.Timeout)
	if err != nil || timeout <= 0 {
		return transport.DefaultTimeout
	}
	return timeout
}

// GetUserAgent returns the configured User-Agent or the default.
func (h *HTTPConfig) GetUserAgent() string {
	if h.UserAgent == "" {
		return transport.DefaultUserAgent
	}
	return h.UserAgent
}

// LoadConfig loads and parses the installer configuration from a YAML file.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filePath, err)
	}
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filePath, err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// LoadConfigOrDefault loads filePath, or returns DefaultConfig when the file
// does not exist. Any other error is returned.
func LoadConfigOrDefault(filePath string) (*Config, bool, error) {
	if _, err := os.Stat(filePath); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), false, nil
	}
	config, err := LoadConfig(filePath)
	if err != nil {
		return nil, false, err
	}
	return config, true, nil
}

// Validate validates the configuration structure and required fields.
// Endpoints left empty are allowed here; the commands that need them report
// their absence.
func (c *Config) Validate() error {
	if c.Version == "" {
		return ErrVersionRequired
	}
	for name, raw := range map[string]string{
		"github_api_base": c.Endpoints.GitHubAPIBase,
		"advisory_url":    c.Endpoints.AdvisoryURL,
		"signing_url":     c.Endpoints.SigningURL,
		"install_base":    c.Endpoints.InstallBase,
	} {
		if err := validateURL(raw); err != nil {
			return fmt.Errorf("endpoints.%s: %w", name, err)
		}
	}
	if strings.TrimSpace(c.Platform.FileExtension) == "" {
		return ErrFileExtensionRequired
	}
	if c.HTTP.Timeout != "" {
		if d, err := time.ParseDuration(c.HTTP.Timeout); err != nil || d <= 0 {
			return fmt.Errorf("%w: %q", ErrInvalidTimeout, c.HTTP.Timeout)
		}
	}
	return nil
}

func validateURL(raw string) error {
	if raw == "" {
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: %q must be http or https", ErrInvalidURL, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%w: %q has no host", ErrInvalidURL, raw)
	}
	return nil
}

// TargetPlatform resolves the configured platform, applying a custom file
// extension over the predefined one.
func (c *Config) TargetPlatform() (platform.Platform, error) {
	p, err := platform.FindPlatform(c.Platform.Name)
	if err != nil {
		return platform.Platform{}, err
	}
	if ext := strings.TrimSpace(c.Platform.FileExtension); ext != "" {
		p.FileExt = platform.NormalizeExtension(ext)
	}
	return p, nil
}

// DefaultConfig returns a configuration targeting iOS with the public
// certificate advisory. Signing and install endpoints are deployment specific
// and left empty.
func DefaultConfig() *Config {
	ios := platform.Default()
	return &Config{
		Version: "1.0",
		Endpoints: EndpointConfig{
			AdvisoryURL:   advisory.DefaultURL,
			ManifestPath:  ios.ManifestPath,
			TriggerPrefix: ios.TriggerPrefix,
		},
		Platform: PlatformConfig{
			Name:          ios.Name,
			FileExtension: ios.FileExt,
		},
		HTTP: HTTPConfig{
			Timeout:   transport.DefaultTimeout.String(),
			UserAgent: transport.DefaultUserAgent,
		},
	}
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(config *Config, filePath string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", filePath, err)
	}
	return nil
}
