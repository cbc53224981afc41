package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prostore-ios/installer/internal/advisory"
	"github.com/prostore-ios/installer/internal/transport"
)

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name        string
		configData  string
		expectError bool
		errorMsg    string
	}{
		{
			name: "valid config",
			configData: `
version: "1.0"
endpoints:
  github_api_base: "https://ghe.example.com/api/v3"
  advisory_url: "https://example.com/README.md"
  signing_url: "https://sign.example.com/sign"
  install_base: "https://sign.example.com/install"
platform:
  name: "ios"
  file_extension: ".ipa"
http:
  timeout: "10s"
  user_agent: "test-agent/1.0"
defaults:
  repository: "owner/app"
  include_prereleases: true
`,
			expectError: false,
		},
		{
			name:        "partial config keeps defaults",
			configData:  "version: \"1.0\"\n",
			expectError: false,
		},
		{
			name:        "missing version",
			configData:  "version: \"\"\n",
			expectError: true,
			errorMsg:    "version is required",
		},
		{
			name:        "invalid yaml",
			configData:  "version: [unclosed",
			expectError: true,
			errorMsg:    "failed to parse config file",
		},
		{
			name: "non-http signing url",
			configData: `
version: "1.0"
endpoints:
  signing_url: "ftp://sign.example.com"
`,
			expectError: true,
			errorMsg:    "endpoints.signing_url",
		},
		{
			name: "bad timeout",
			configData: `
version: "1.0"
http:
  timeout: "soon"
`,
			expectError: true,
			errorMsg:    "invalid http timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpFile, err := os.CreateTemp("", "config-test-*.yaml")
			if err != nil {
				t.Fatalf("Failed to create temp file: %v", err)
			}
			defer func() { _ = os.Remove(tmpFile.Name()) }()

			if _, err := tmpFile.WriteString(tt.configData); err != nil {
				t.Fatalf("Failed to write test data: %v", err)
			}
			_ = tmpFile.Close()

			config, err := LoadConfig(tmpFile.Name())

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !strings.Contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error message to contain %q, got %q", tt.errorMsg, err.Error())
				}
				return
			}

			if err != nil {
				t.Errorf("Unexpected error: %v", err)
				return
			}
			if config == nil {
				t.Fatal("Expected config to be non-nil")
			}
			if config.Platform.FileExtension != ".ipa" {
				t.Errorf("FileExtension = %q, want .ipa", config.Platform.FileExtension)
			}
		})
	}
}

func TestLoadConfig_Values(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	data := `
version: "1.0"
endpoints:
  signing_url: "https://sign.example.com/sign"
defaults:
  repository: "owner/app"
  include_prereleases: true
`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if config.Endpoints.SigningURL != "https://sign.example.com/sign" {
		t.Errorf("SigningURL = %q", config.Endpoints.SigningURL)
	}
	if config.Endpoints.AdvisoryURL != advisory.DefaultURL {
		t.Errorf("AdvisoryURL = %q, want default", config.Endpoints.AdvisoryURL)
	}
	if config.Defaults.Repository != "owner/app" || !config.Defaults.IncludePrereleases {
		t.Errorf("Defaults = %+v", config.Defaults)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig("nonexistent-file.yaml")
	if err == nil {
		t.Errorf("Expected error for nonexistent file")
	}
}

func TestLoadConfigOrDefault(t *testing.T) {
	config, found, err := LoadConfigOrDefault(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfigOrDefault() error: %v", err)
	}
	if found {
		t.Error("found = true for missing file")
	}
	if config.Version != "1.0" {
		t.Errorf("Version = %q, want default", config.Version)
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("version: \"\"\n"), 0644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if _, _, err := LoadConfigOrDefault(path); !errors.Is(err, ErrVersionRequired) {
		t.Errorf("LoadConfigOrDefault() error = %v, want ErrVersionRequired", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{name: "default config", mutate: func(*Config) {}},
		{name: "missing version", mutate: func(c *Config) { c.Version = "" }, wantErr: ErrVersionRequired},
		{name: "missing extension", mutate: func(c *Config) { c.Platform.FileExtension = " " }, wantErr: ErrFileExtensionRequired},
		{name: "install base without host", mutate: func(c *Config) { c.Endpoints.InstallBase = "https://" }, wantErr: ErrInvalidURL},
		{name: "advisory relative url", mutate: func(c *Config) { c.Endpoints.AdvisoryURL = "/README.md" }, wantErr: ErrInvalidURL},
		{name: "negative timeout", mutate: func(c *Config) { c.HTTP.Timeout = "-1s" }, wantErr: ErrInvalidTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			err := config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestHTTPConfig_Getters(t *testing.T) {
	tests := []struct {
		name        string
		http        HTTPConfig
		wantTimeout time.Duration
		wantAgent   string
	}{
		{name: "empty", http: HTTPConfig{}, wantTimeout: transport.DefaultTimeout, wantAgent: transport.DefaultUserAgent},
		{name: "set", http: HTTPConfig{Timeout: "5s", UserAgent: "ua"}, wantTimeout: 5 * time.Second, wantAgent: "ua"},
		{name: "unparseable timeout", http: HTTPConfig{Timeout: "x"}, wantTimeout: transport.DefaultTimeout, wantAgent: transport.DefaultUserAgent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.http.GetTimeout(); got != tt.wantTimeout {
				t.Errorf("GetTimeout() = %v, want %v", got, tt.wantTimeout)
			}
			if got := tt.http.GetUserAgent(); got != tt.wantAgent {
				t.Errorf("GetUserAgent() = %q, want %q", got, tt.wantAgent)
			}
		})
	}
}

func TestConfig_TargetPlatform(t *testing.T) {
	config := DefaultConfig()
	config.Platform.FileExtension = "IPA"

	p, err := config.TargetPlatform()
	if err != nil {
		t.Fatalf("TargetPlatform() error: %v", err)
	}
	if p.Name != "ios" || p.FileExt != ".ipa" {
		t.Errorf("TargetPlatform() = %+v, want ios/.ipa", p)
	}

	config.Platform.Name = "android"
	if _, err := config.TargetPlatform(); err == nil {
		t.Error("TargetPlatform() expected error for unknown platform")
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Version != "1.0" {
		t.Errorf("Version = %q, want 1.0", config.Version)
	}
	if config.Endpoints.SigningURL != "" || config.Endpoints.InstallBase != "" {
		t.Errorf("deployment endpoints should be empty: %+v", config.Endpoints)
	}
	if !strings.HasPrefix(config.Endpoints.TriggerPrefix, "itms-services://") {
		t.Errorf("TriggerPrefix = %q", config.Endpoints.TriggerPrefix)
	}
	if err := config.Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() error: %v", err)
	}
}

func TestSaveConfig(t *testing.T) {
	config := DefaultConfig()
	config.Endpoints.SigningURL = "https://sign.example.com/sign"
	config.Defaults.Repository = "owner/app"

	path := filepath.Join(t.TempDir(), DefaultConfigFile)
	if err := SaveConfig(config, path); err != nil {
		t.Fatalf("Unexpected error saving config: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}
	if loaded.Endpoints.SigningURL != config.Endpoints.SigningURL {
		t.Errorf("SigningURL = %q, want %q", loaded.Endpoints.SigningURL, config.Endpoints.SigningURL)
	}
	if loaded.Defaults.Repository != "owner/app" {
		t.Errorf("Repository = %q, want owner/app", loaded.Defaults.Repository)
	}
}

func TestSaveConfig_InvalidPath(t *testing.T) {
	err := SaveConfig(DefaultConfig(), "/nonexistent/directory/config.yaml")
	if err == nil {
		t.Errorf("Expected error when saving to invalid path")
	}
}
