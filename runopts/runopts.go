// Package runopts provides configuration options for executions performed by
// a host.Chain, e.g. deploying or calling a contract.
package runopts

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
)

// A Configuration carries all values that can be modified to configure a
// single execution. It is initially set by the host and then passed to all
// Options to be modified.
type Configuration struct {
	// vm.NewEVM()
	BlockCtx    vm.BlockContext
	TxCtx       vm.TxContext
	StateDB     vm.StateDB
	ChainConfig *params.ChainConfig
	VMConfig    vm.Config
	// EVM.{Create,Call,StaticCall}()
	From     common.Address
	Value    *uint256.Int
	GasLimit uint64
	ReadOnly bool // static call
}

// An Option modifies a Configuration.
type Option interface {
	Apply(*Configuration) error
}

// A Func converts any function into an Option by calling itself as Apply().
type Func func(*Configuration) error

// Apply returns f(c).
func (f Func) Apply(c *Configuration) error {
	return f(c)
}

// DefaultFrom returns the address from which executions are performed unless
// overridden by From().
func DefaultFrom() common.Address {
	return common.Address{'v', 'a', 'l', 'u', 'e', 's', 't', 'o', 'r', 'e'}
}

// DefaultGasLimit is the gas made available to every execution unless
// overridden by GasLimit().
const DefaultGasLimit = 30e6

// ReadOnly performs the execution as a static call. Any attempt to modify
// state results in an error, and nothing is committed.
func ReadOnly() Option {
	return Func(func(c *Configuration) error {
		c.ReadOnly = true
		return nil
	})
}

// From sets the caller address, which is also used as the transaction origin.
func From(addr common.Address) Option {
	return Func(func(c *Configuration) error {
		c.From = addr
		c.TxCtx.Origin = addr
		return nil
	})
}

// Value sets the value sent with the execution. The caller MUST have a
// sufficient balance.
func Value(v uint256.Int) Option {
	return Func(func(c *Configuration) error {
		c.Value = &v
		return nil
	})
}

// GasLimit sets the gas available to the execution.
func GasLimit(gas uint64) Option {
	return Func(func(c *Configuration) error {
		c.GasLimit = gas
		return nil
	})
}

// WithTracer installs the hooks as the vm.Config tracer, replacing any
// existing one.
func WithTracer(h *tracing.Hooks) Option {
	return Func(func(c *Configuration) error {
		c.VMConfig.Tracer = h
		return nil
	})
}
