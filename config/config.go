// Package config loads tracedec defaults from YAML.
//
// Every field can be overridden by a command-line flag; the file only saves
// retyping the image path and filters for a given board.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"firmtrace/decoder"
)

// EnvPath names the environment variable consulted when no path is given.
const EnvPath = "FIRMTRACE_CONFIG"

var ErrInvalid = errors.New("config: invalid")

// Config holds decoder tool defaults.
type Config struct {
	Image    string   `yaml:"image"`   // built image to extract descriptors from
	Sidecar  string   `yaml:"sidecar"` // JSON descriptor table, used when no image is given
	Capture  string   `yaml:"capture"`
	Mailbox  string   `yaml:"mailbox"` // mapped mailbox file for live polling
	Classes  []string `yaml:"classes"`
	Levels   []string `yaml:"levels"`
	Format   string   `yaml:"format"`
	Colour   bool     `yaml:"colour"`
	Unknown  *bool    `yaml:"show_unknown"`
	Database string   `yaml:"database"`

	Follow FollowConfig `yaml:"follow"`
	Poll   PollConfig   `yaml:"poll"`
}

// FollowConfig tunes capture file watching.
type FollowConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

// PollConfig tunes live mailbox polling.
type PollConfig struct {
	Core int `yaml:"core"` // CPU to pin the poller to, -1 for none
}

// Default returns the built-in defaults.
func Default() *Config {
	return &Config{
		Format: "text",
		Colour: true,
		Follow: FollowConfig{Debounce: 100 * time.Millisecond},
		Poll:   PollConfig{Core: -1},
	}
}

// Load reads path over the defaults. An empty path falls back to
// $FIRMTRACE_CONFIG, then ~/.firmtrace/tracedec.yaml. A missing file is not
// an error; the defaults are returned.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = os.Getenv(EnvPath)
		explicit = path != ""
	}
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Default(), nil
		}
		path = filepath.Join(home, ".firmtrace", "tracedec.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return Default(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks names and ranges.
func (c *Config) Validate() error {
	if _, ok := decoder.ParseFormat(c.Format); !ok {
		return fmt.Errorf("%w: format %q", ErrInvalid, c.Format)
	}
	if _, err := decoder.NewFilter(c.Classes, c.Levels); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Follow.Debounce < 0 {
		return fmt.Errorf("%w: follow.debounce %s", ErrInvalid, c.Follow.Debounce)
	}
	if c.Poll.Core < -1 {
		return fmt.Errorf("%w: poll.core %d", ErrInvalid, c.Poll.Core)
	}
	return nil
}

// Filter builds the decoder filter described by the config.
func (c *Config) Filter() (decoder.Filter, error) {
	f, err := decoder.NewFilter(c.Classes, c.Levels)
	if err != nil {
		return f, err
	}
	f.HideUnknown = c.Unknown != nil && !*c.Unknown
	return f, nil
}

// OutputFormat returns the parsed output encoding.
func (c *Config) OutputFormat() decoder.Format {
	f, _ := decoder.ParseFormat(c.Format)
	return f
}
