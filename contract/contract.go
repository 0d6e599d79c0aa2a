// Package contract implements the ValueStore contract as EVM bytecode, along
// with a typed binding for deploying and calling it through any Backend, such
// as a host.Chain.
//
// The deployed contract is observably equivalent to valuestore.ValueStore: it
// holds a single uint32 in storage slot 0, set by one of two constructors and
// replaced in full by set().
package contract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/solidifylabs/valuestore/runopts"
)

// ABIJSON is the Solidity-compatible ABI of the contract.
const ABIJSON = `[
	{
		"type": "constructor",
		"stateMutability": "nonpayable",
		"inputs": [{"name": "initValue", "type": "uint32"}]
	},
	{
		"type": "function",
		"name": "set",
		"stateMutability": "nonpayable",
		"inputs": [{"name": "value", "type": "uint32"}],
		"outputs": []
	},
	{
		"type": "function",
		"name": "get",
		"stateMutability": "view",
		"inputs": [],
		"outputs": [{"name": "", "type": "uint32"}]
	}
]`

var parsedABI = mustParseABI(ABIJSON)

func mustParseABI(s string) abi.ABI {
	a, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("abi.JSON(ValueStore): %v", err))
	}
	return a
}

// ABI returns the parsed ABIJSON.
func ABI() abi.ABI {
	return parsedABI
}

// InitCode returns the code that deploys a ValueStore holding initValue; this
// is the new(initValue) constructor.
func InitCode(initValue uint32) ([]byte, error) {
	code, err := DefaultInitCode()
	if err != nil {
		return nil, err
	}
	args, err := parsedABI.Pack("", initValue)
	if err != nil {
		return nil, fmt.Errorf("packing constructor arguments: %v", err)
	}
	return append(code, args...), nil
}

// DefaultInitCode returns the code that deploys a ValueStore holding zero;
// this is the default() constructor. The resulting contract is
// indistinguishable from one deployed with InitCode(0).
func DefaultInitCode() ([]byte, error) {
	ctor, err := Constructor()
	if err != nil {
		return nil, err
	}
	code, err := ctor.Compile()
	if err != nil {
		return nil, fmt.Errorf("compiling constructor: %v", err)
	}
	return code, nil
}

// A Backend executes contract code. It is satisfied by *host.Chain.
type Backend interface {
	Deploy(ctx context.Context, initCode []byte, opts ...runopts.Option) (common.Address, error)
	Call(ctx context.Context, to common.Address, input []byte, opts ...runopts.Option) ([]byte, error)
	StaticCall(ctx context.Context, to common.Address, input []byte, opts ...runopts.Option) ([]byte, error)
}

// An Instance is a binding to a single deployed ValueStore.
type Instance struct {
	backend Backend
	addr    common.Address
}

// Deploy deploys a ValueStore holding initValue.
func Deploy(ctx context.Context, b Backend, initValue uint32, opts ...runopts.Option) (*Instance, error) {
	code, err := InitCode(initValue)
	if err != nil {
		return nil, err
	}
	return deploy(ctx, b, code, opts)
}

// DeployDefault deploys a ValueStore holding zero.
func DeployDefault(ctx context.Context, b Backend, opts ...runopts.Option) (*Instance, error) {
	code, err := DefaultInitCode()
	if err != nil {
		return nil, err
	}
	return deploy(ctx, b, code, opts)
}

func deploy(ctx context.Context, b Backend, code []byte, opts []runopts.Option) (*Instance, error) {
	addr, err := b.Deploy(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("deploying ValueStore: %w", err)
	}
	return At(b, addr), nil
}

// At returns a binding to a ValueStore already deployed at addr. It does not
// check that addr holds the contract's code.
func At(b Backend, addr common.Address) *Instance {
	return &Instance{
		backend: b,
		addr:    addr,
	}
}

// Address returns the address of the contract.
func (i *Instance) Address() common.Address {
	return i.addr
}

// Set replaces the stored value.
func (i *Instance) Set(ctx context.Context, value uint32, opts ...runopts.Option) error {
	input, err := SetCallData(value)
	if err != nil {
		return err
	}
	if _, err := i.backend.Call(ctx, i.addr, input, opts...); err != nil {
		return fmt.Errorf("%s.set(%d): %w", i.addr, value, err)
	}
	return nil
}

// Get returns the stored value. It is performed as a static call.
func (i *Instance) Get(ctx context.Context, opts ...runopts.Option) (uint32, error) {
	ret, err := i.backend.StaticCall(ctx, i.addr, GetCallData(), opts...)
	if err != nil {
		return 0, fmt.Errorf("%s.get(): %w", i.addr, err)
	}
	return UnpackGet(ret)
}

// GetCallData returns the call data for get().
func GetCallData() []byte {
	input, err := parsedABI.Pack("get")
	if err != nil {
		// Impossible as get() has no arguments.
		panic(fmt.Sprintf("BUG: packing get(): %v", err))
	}
	return input
}

// SetCallData returns the call data for set(value).
func SetCallData(value uint32) ([]byte, error) {
	input, err := parsedABI.Pack("set", value)
	if err != nil {
		return nil, fmt.Errorf("packing set(%d): %v", value, err)
	}
	return input, nil
}

// UnpackGet decodes the data returned by get().
func UnpackGet(ret []byte) (uint32, error) {
	out, err := parsedABI.Unpack("get", ret)
	if err != nil {
		return 0, fmt.Errorf("unpacking get() result %#x: %v", ret, err)
	}
	v, ok := out[0].(uint32)
	if !ok {
		return 0, fmt.Errorf("get() result unpacked as %T; want uint32", out[0])
	}
	return v, nil
}
