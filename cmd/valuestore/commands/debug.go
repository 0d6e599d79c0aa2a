package commands

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/solidifylabs/valuestore/contract"
	"github.com/solidifylabs/valuestore/evmdebug"
	"github.com/solidifylabs/valuestore/host"
	"github.com/solidifylabs/valuestore/runopts"
)

func (c *cli) debugCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "debug",
		Short: "Step through a call in the terminal debugger",
	}
	addr := c.contractFlag(cmd)

	get := &cobra.Command{
		Use:   "get",
		Short: "Debug get()",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.debug(cmd, addr, contract.GetCallData())
		},
	}
	set := &cobra.Command{
		Use:   "set VALUE",
		Short: "Debug set(VALUE); the result is committed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := parseValue(args[0])
			if err != nil {
				return err
			}
			input, err := contract.SetCallData(v)
			if err != nil {
				return err
			}
			return c.debug(cmd, addr, input)
		},
	}

	cmd.AddCommand(get, set)
	return cmd
}

func (c *cli) debug(cmd *cobra.Command, addr func() (common.Address, error), input []byte) error {
	a, err := addr()
	if err != nil {
		return err
	}

	return c.withChain(func(chain *host.Chain) error {
		code, err := chain.CodeAt(a)
		if err != nil {
			return err
		}
		if len(code) == 0 {
			return fmt.Errorf("no code at %v", a)
		}

		dbg, results := evmdebug.Start(func(opts ...runopts.Option) ([]byte, error) {
			return chain.Call(cmd.Context(), a, input, opts...)
		})
		if err := dbg.RunTerminalUI(input, results, code); err != nil {
			results() //nolint:errcheck // releasing resources; UI error takes precedence
			return err
		}

		ret, err := results()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%#x\n", ret)
		return nil
	})
}
