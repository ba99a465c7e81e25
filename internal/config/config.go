// Package config holds the explicit configuration value threaded into the
// transport and engine layers. Ambient state (environment variables) is
// resolved once at the CLI edge and never read inside the engine.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// ConfigDir is the configuration directory name under the user config root.
	ConfigDir = "sessh"
	// ConfigFile is the config filename.
	ConfigFile = "config.yaml"
)

// Duration wraps time.Duration with yaml support for "250ms"/"2m" strings.
type Duration time.Duration

// UnmarshalYAML parses a Go duration string.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders the duration string form.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config is everything the engine needs, resolved up front.
type Config struct {
	// Identity is the path to the SSH private key; empty auto-discovers
	// common keys under ~/.ssh.
	Identity string `yaml:"identity,omitempty"`
	// ProxyJump is a bastion hop spec, user@host[:port].
	ProxyJump string `yaml:"proxy_jump,omitempty"`
	// KnownHosts is the host key database; empty uses ~/.ssh/known_hosts.
	KnownHosts string `yaml:"known_hosts,omitempty"`

	ConnectTimeout Duration `yaml:"connect_timeout,omitempty"`
	DialRetries    int      `yaml:"dial_retries,omitempty"`
	RetryDelay     Duration `yaml:"retry_delay,omitempty"`
	RetryMaxDelay  Duration `yaml:"retry_max_delay,omitempty"`

	PollInterval Duration `yaml:"poll_interval,omitempty"`
	RunTimeout   Duration `yaml:"run_timeout,omitempty"`
	CaptureLines int      `yaml:"capture_lines,omitempty"`
	LogsLines    int      `yaml:"logs_lines,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		ConnectTimeout: Duration(10 * time.Second),
		DialRetries:    3,
		RetryDelay:     Duration(1 * time.Second),
		RetryMaxDelay:  Duration(8 * time.Second),
		PollInterval:   Duration(250 * time.Millisecond),
		RunTimeout:     Duration(120 * time.Second),
		CaptureLines:   2000,
		LogsLines:      300,
	}
}

// Path returns the default config file location.
func Path() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(homeDir, ".config")
	}
	return filepath.Join(configDir, ConfigDir, ConfigFile), nil
}

// Load reads the config file at path, or the default location when path is
// empty. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		path, err = Path()
		if err != nil {
			return nil, err
		}
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays the recognized environment variables onto the config.
// lookup is injectable so tests stay hermetic; pass os.Getenv in production.
func (c *Config) ApplyEnv(lookup func(string) string) {
	if v := lookup("SESSH_IDENTITY"); v != "" {
		c.Identity = v
	}
	if v := lookup("SESSH_PROXYJUMP"); v != "" {
		c.ProxyJump = v
	}
}
