package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solidifylabs/valuestore/contract"
	"github.com/solidifylabs/valuestore/evmdebug"
	"github.com/solidifylabs/valuestore/host"
)

func (c *cli) compileCmd() *cobra.Command {
	var disasm bool

	cmd := &cobra.Command{
		Use:   "compile",
		Short: "Compile the constructor and runtime bytecode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctor, err := contract.DefaultInitCode()
			if err != nil {
				return err
			}
			rt, err := contract.Runtime().Compile()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, code := range []struct {
				name string
				buf  []byte
			}{
				{"constructor", ctor},
				{"runtime", rt},
			} {
				if !disasm {
					fmt.Fprintf(out, "%s: %#x\n", code.name, code.buf)
					continue
				}
				fmt.Fprintf(out, "%s:\n", code.name)
				for _, in := range evmdebug.Disassemble(code.buf) {
					fmt.Fprintf(out, "%5d %v\n", in.PC, in)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&disasm, "disasm", false, "print disassembled instructions instead of hex")
	return cmd
}

func (c *cli) deployCmd() *cobra.Command {
	var initValue uint32

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy a ValueStore with new(--init), or default() if --init is absent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withChain(func(chain *host.Chain) error {
				var (
					vs  *contract.Instance
					err error
				)
				if cmd.Flags().Changed("init") {
					vs, err = contract.Deploy(cmd.Context(), chain, initValue)
				} else {
					vs, err = contract.DeployDefault(cmd.Context(), chain)
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), vs.Address().Hex())
				return nil
			})
		},
	}
	cmd.Flags().Uint32Var(&initValue, "init", 0, "initial value")
	return cmd
}

func (c *cli) getCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get",
		Short: "Print the stored value",
		Args:  cobra.NoArgs,
	}
	addr := c.contractFlag(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		a, err := addr()
		if err != nil {
			return err
		}
		return c.withChain(func(chain *host.Chain) error {
			v, err := contract.At(chain, a).Get(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), v)
			return nil
		})
	}
	return cmd
}

func (c *cli) setCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set VALUE",
		Short: "Replace the stored value",
		Args:  cobra.ExactArgs(1),
	}
	addr := c.contractFlag(cmd)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		v, err := parseValue(args[0])
		if err != nil {
			return err
		}
		a, err := addr()
		if err != nil {
			return err
		}
		return c.withChain(func(chain *host.Chain) error {
			return contract.At(chain, a).Set(cmd.Context(), v)
		})
	}
	return cmd
}
