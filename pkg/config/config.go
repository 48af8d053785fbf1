// Package config handles configuration for swaglabs-runner.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/devicelab-dev/swaglabs-runner/pkg/core"
)

// Defaults for an Android emulator running the Swag Labs demo app.
const (
	DefaultServerURL    = "http://127.0.0.1:4723"
	DefaultPlatform     = "android"
	DefaultImplicitWait = 10 * time.Second
	DefaultOutputDir    = "reports"
)

// Platforms the runner can drive. The view locators use Android widget
// classes, so iOS is not supported.
var Platforms = []string{"android", "mock"}

// Config represents the workspace configuration (swaglabs.yaml).
type Config struct {
	// Appium connection
	ServerURL    string                 `yaml:"serverUrl"`
	Platform     string                 `yaml:"platform"`     // android, mock
	Capabilities map[string]interface{} `yaml:"capabilities"` // merged over the defaults
	Devices      []string               `yaml:"devices"`      // udids; more than one runs in parallel

	// Scenario selection
	Run         string   `yaml:"run"`         // name glob
	IncludeTags []string `yaml:"includeTags"` // Tags to include
	ExcludeTags []string `yaml:"excludeTags"` // Tags to exclude

	// Execution settings
	ImplicitWait time.Duration `yaml:"implicitWait"`
	Retries      int           `yaml:"retries"`
	StopOnFail   bool          `yaml:"stopOnFail"`
	OutputDir    string        `yaml:"outputDir"`

	// Failure artifacts
	Artifacts core.ArtifactConfig `yaml:"artifacts"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		ServerURL: DefaultServerURL,
		Platform:  DefaultPlatform,
		Capabilities: map[string]interface{}{
			"platformName":   "Android",
			"automationName": "UiAutomator2",
			"appPackage":     "com.swaglabsmobileapp",
			"appActivity":    "com.swaglabsmobileapp.MainActivity",
			"noReset":        true,
		},
		ImplicitWait: DefaultImplicitWait,
		OutputDir:    DefaultOutputDir,
		Artifacts:    core.ArtifactConfig{Screenshot: true, PageSource: true}, // capture is opt-in
	}
}

// Load loads configuration from a file. Keys missing from the file keep
// their defaults; capabilities are merged key by key.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, core.ErrInvalidConfig.WithMessage(fmt.Sprintf("parse %s", path)).WithCause(err)
	}
	return cfg, nil
}

// LoadFromDir looks for swaglabs.yaml or swaglabs.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	// Try swaglabs.yaml first
	configPath := filepath.Join(dir, "swaglabs.yaml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	configPath = filepath.Join(dir, "swaglabs.yml")
	if _, err := os.Stat(configPath); err == nil {
		return Load(configPath)
	}

	// No config file found, use defaults
	return Default(), nil
}

// Validate checks the configuration for values the runner cannot use.
func (c *Config) Validate() error {
	u, err := url.Parse(c.ServerURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("serverUrl %q is not an http(s) URL", c.ServerURL))
	}

	known := false
	for _, p := range Platforms {
		if c.Platform == p {
			known = true
			break
		}
	}
	if !known {
		return core.ErrInvalidConfig.WithMessage(fmt.Sprintf("platform %q is not one of %v", c.Platform, Platforms))
	}

	if c.Retries < 0 {
		return core.ErrInvalidConfig.WithMessage("retries must not be negative")
	}
	if c.ImplicitWait < 0 {
		return core.ErrInvalidConfig.WithMessage("implicitWait must not be negative")
	}
	if c.OutputDir == "" {
		return core.ErrMissingRequired.WithMessage("outputDir is empty")
	}
	return nil
}

// CapabilitiesFor returns the capabilities for a session on device.
// An empty device leaves device selection to the Appium server.
func (c *Config) CapabilitiesFor(device string) map[string]interface{} {
	caps := make(map[string]interface{}, len(c.Capabilities)+1)
	for k, v := range c.Capabilities {
		caps[k] = v
	}
	if device != "" {
		caps["udid"] = device
	}
	return caps
}
