// Package commands implements the valuestore CLI.
package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"

	"github.com/solidifylabs/valuestore/host"
	"github.com/solidifylabs/valuestore/internal/config"
)

// Execute runs the CLI with os.Args.
func Execute(ctx context.Context) error {
	return newRootCmd().ExecuteContext(ctx)
}

// cli carries state shared by all commands, populated before any of them run.
type cli struct {
	configPath string
	cfg        *config.Config

	// Flag values, only used if the flag was explicitly set.
	dataDir   string
	from      string
	gasLimit  uint64
	verbosity int
}

func newRootCmd() *cobra.Command {
	c := new(cli)
	def := config.Default()

	root := &cobra.Command{
		Use:          "valuestore",
		Short:        "Deploy and call ValueStore contracts on a local chain",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load(cmd)
		},
	}

	fs := root.PersistentFlags()
	fs.StringVar(&c.configPath, "config", "", "YAML config file")
	fs.StringVar(&c.dataDir, "datadir", def.DataDir, "chain data directory")
	fs.StringVar(&c.from, "from", def.From, "sender address")
	fs.Uint64Var(&c.gasLimit, "gas", def.GasLimit, "gas limit of every execution")
	fs.IntVar(&c.verbosity, "verbosity", def.Verbosity, "log level: 0 (critical only) to 5 (trace)")

	root.AddCommand(
		c.compileCmd(),
		c.deployCmd(),
		c.getCmd(),
		c.setCmd(),
		c.debugCmd(),
		c.configCmd(),
	)
	return root
}

// load loads the config file, overrides it with any explicitly set flags, and
// installs the logger.
func (c *cli) load(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}

	fs := cmd.Flags()
	if fs.Changed("datadir") {
		cfg.DataDir = c.dataDir
	}
	if fs.Changed("from") {
		cfg.From = c.from
	}
	if fs.Changed("gas") {
		cfg.GasLimit = c.gasLimit
	}
	if fs.Changed("verbosity") {
		cfg.Verbosity = c.verbosity
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.cfg = cfg

	h := log.NewTerminalHandlerWithLevel(cmd.ErrOrStderr(), log.FromLegacyLevel(cfg.Verbosity), false)
	log.SetDefault(log.NewLogger(h))
	log.Debug("Loaded config", "datadir", cfg.DataDir, "from", cfg.From, "gas", cfg.GasLimit)
	return nil
}

// withChain opens the configured chain, calls fn, and then closes the chain.
func (c *cli) withChain(fn func(*host.Chain) error) (retErr error) {
	opts, err := c.cfg.Options()
	if err != nil {
		return err
	}
	chain, err := host.Open(c.cfg.DataDir, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if err := chain.Close(); err != nil && retErr == nil {
			retErr = err
		}
	}()
	return fn(chain)
}

// contractFlag registers a persistent --contract flag on cmd, overriding the
// configured address, and returns a function that resolves the address once
// flags are parsed.
func (c *cli) contractFlag(cmd *cobra.Command) func() (common.Address, error) {
	var addr string
	fs := cmd.PersistentFlags()
	fs.StringVar(&addr, "contract", "", "address of the ValueStore (default from config)")

	return func() (common.Address, error) {
		if fs.Changed("contract") {
			c.cfg.Contract = addr
		}
		return c.cfg.ContractAddress()
	}
}

func parseValue(s string) (uint32, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid uint32 %q: %v", s, err)
	}
	return uint32(v), nil
}
