// Package config loads the YAML configuration of the valuestore CLI.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/solidifylabs/valuestore/runopts"
)

// Config holds all CLI configuration. Every field can be overridden by the
// command-line flag of the same name.
type Config struct {
	// DataDir is the directory of the on-disk chain.
	DataDir string `yaml:"datadir"`
	// From is the hex address from which executions are sent.
	From string `yaml:"from"`
	// Contract is the hex address of a deployed ValueStore, used by commands
	// that call one.
	Contract string `yaml:"contract"`
	// GasLimit is the gas available to every execution.
	GasLimit uint64 `yaml:"gas_limit"`
	// Verbosity is the geth-style log level: 0 (critical only) to 5 (trace).
	Verbosity int `yaml:"verbosity"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		DataDir:   defaultDataDir(),
		From:      runopts.DefaultFrom().Hex(),
		GasLimit:  runopts.DefaultGasLimit,
		Verbosity: 3,
	}
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".valuestore"
	}
	return filepath.Join(home, ".valuestore")
}

// Load loads configuration from a YAML file, with fields missing from the file
// retaining their Default() values. An empty path, or one that doesn't exist,
// results in the default configuration.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration to a YAML file, creating its directory if
// necessary.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate returns an error if any field is malformed. An empty Contract is
// valid as not all commands need one.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return errors.New("empty datadir")
	}
	if _, err := c.FromAddress(); err != nil {
		return err
	}
	if c.Contract != "" {
		if _, err := c.ContractAddress(); err != nil {
			return err
		}
	}
	if c.GasLimit == 0 {
		return errors.New("zero gas limit")
	}
	if c.Verbosity < 0 || c.Verbosity > 5 {
		return fmt.Errorf("verbosity %d out of range [0,5]", c.Verbosity)
	}
	return nil
}

// FromAddress parses From.
func (c *Config) FromAddress() (common.Address, error) {
	return parseAddress("from", c.From)
}

// ContractAddress parses Contract, which MUST be non-empty.
func (c *Config) ContractAddress() (common.Address, error) {
	if c.Contract == "" {
		return common.Address{}, errors.New("no contract address configured")
	}
	return parseAddress("contract", c.Contract)
}

func parseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%s: invalid hex address %q", field, s)
	}
	return common.HexToAddress(s), nil
}

// Options returns the runopts.Options to apply to every execution.
func (c *Config) Options() ([]runopts.Option, error) {
	from, err := c.FromAddress()
	if err != nil {
		return nil, err
	}
	return []runopts.Option{
		runopts.From(from),
		runopts.GasLimit(c.GasLimit),
	}, nil
}
