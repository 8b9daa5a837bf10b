// Package config loads the daemon's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/i5heu/ouroboros-jsonmeta/internal/accountstore"
	"github.com/i5heu/ouroboros-jsonmeta/pkg/address"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Listen        string `yaml:"listen"`
	DataPath      string `yaml:"dataPath"`
	Backend       string `yaml:"backend"`
	MinimumFreeGB int    `yaml:"minimumFreeGB"`
	LogLevel      string `yaml:"logLevel"`
	ProgramID     string `yaml:"programID"`
	AuthToken     string `yaml:"authToken"`
}

// Default is the configuration used for every field the file leaves out.
func Default() Config {
	return Config{
		Listen:        "localhost:4242",
		DataPath:      "./data",
		Backend:       accountstore.BackendBadger,
		MinimumFreeGB: 1,
		LogLevel:      "info",
		ProgramID:     address.ProgramID.String(),
	}
}

// Load reads path and fills missing fields from Default. A missing file
// yields the defaults.
func Load(path string) (Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return config, nil
	case err != nil:
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var fromFile Config
	if err := yaml.UnmarshalStrict(data, &fromFile); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	config.merge(fromFile)

	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c *Config) merge(o Config) {
	if o.Listen != "" {
		c.Listen = o.Listen
	}
	if o.DataPath != "" {
		c.DataPath = o.DataPath
	}
	if o.Backend != "" {
		c.Backend = o.Backend
	}
	if o.MinimumFreeGB != 0 {
		c.MinimumFreeGB = o.MinimumFreeGB
	}
	if o.LogLevel != "" {
		c.LogLevel = o.LogLevel
	}
	if o.ProgramID != "" {
		c.ProgramID = o.ProgramID
	}
	if o.AuthToken != "" {
		c.AuthToken = o.AuthToken
	}
}

func (c Config) Validate() error {
	switch c.Backend {
	case accountstore.BackendMemory, accountstore.BackendBadger, accountstore.BackendBolt:
	default:
		return fmt.Errorf("%w: backend %q", ErrInvalid, c.Backend)
	}
	if c.Backend != accountstore.BackendMemory && c.DataPath == "" {
		return fmt.Errorf("%w: dataPath is required for backend %q", ErrInvalid, c.Backend)
	}
	if c.MinimumFreeGB < 0 {
		return fmt.Errorf("%w: minimumFreeGB must not be negative", ErrInvalid)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: logLevel %q", ErrInvalid, c.LogLevel)
	}
	if _, err := c.Program(); err != nil {
		return err
	}
	return nil
}

// Program parses ProgramID.
func (c Config) Program() (address.Address, error) {
	id, err := address.Parse(c.ProgramID)
	if err != nil {
		return address.Address{}, fmt.Errorf("%w: programID: %v", ErrInvalid, err)
	}
	return id, nil
}

// Save writes c to path as YAML.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
