package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func (c *cli) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the YAML config file",
	}

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the effective configuration, including flags, to --config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if c.configPath == "" {
				return errors.New("--config is required")
			}
			if !force {
				if _, err := os.Stat(c.configPath); err == nil {
					return fmt.Errorf("%q already exists; use --force to overwrite", c.configPath)
				}
			}
			if err := c.cfg.Save(c.configPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.configPath)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	cmd.AddCommand(initCmd)
	return cmd
}
