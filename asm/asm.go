// Package asm implements a small DSL for writing raw EVM bytecode, used to
// express contracts opcode by opcode without a high-level compiler.
//
// It is designed to be dot-imported such that all exported identifiers are
// available in the importing package, allowing a mnemonic-style programming
// environment akin to writing assembly. As a result, there are few top-level
// identifiers beyond the opcodes themselves.
package asm

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// A Bytecoder returns raw EVM bytecode. If the returned bytecode is the
// concatenation of multiple Bytecoder outputs, the type MUST also implement
// BytecodeHolder.
type Bytecoder interface {
	Bytecode() ([]byte, error)
}

// A BytecodeHolder is a concatenation of Bytecoders.
type BytecodeHolder interface {
	Bytecoder
	Bytecoders() []Bytecoder
}

// An OpCode is a Bytecoder for a single, regular EVM opcode.
type OpCode vm.OpCode

// Bytecode returns the single byte of the opcode, and a nil error.
func (o OpCode) Bytecode() ([]byte, error) {
	return []byte{byte(o)}, nil
}

// String returns the mnemonic of the opcode.
func (o OpCode) String() string {
	return vm.OpCode(o).String()
}

// Code is a slice of Bytecoders; it is itself a Bytecoder, allowing for
// nesting.
type Code []Bytecoder

// Bytecode always returns an error; use Code.Compile instead, which flattens
// nested Code instances and resolves labels.
func (c Code) Bytecode() ([]byte, error) {
	return nil, fmt.Errorf("call to %T.Bytecode()", c)
}

// Bytecoders returns the Code as a slice of Bytecoders.
func (c Code) Bytecoders() []Bytecoder {
	return []Bytecoder(c)
}

// Fn returns a Bytecoder that returns the concatenation of the *reverse* of
// bcs. This allows for a more human-readable syntax akin to a function call
// (hence the name), e.g. Fn(SSTORE, PUSH(slot), PUSH(value)). "Return" values
// are left on the stack to be used by later Fn()s or raw opcodes.
func Fn(bcs ...Bytecoder) BytecodeHolder {
	c := make(Code, len(bcs))
	for i, bc := range bcs {
		c[len(bcs)-1-i] = bc
	}
	return c
}

// Raw is a Bytecoder that bypasses all compiler checks and simply appends its
// contents to bytecode. It can be used for raw data, not meant to be executed,
// such as runtime code embedded in a constructor.
type Raw []byte

// Bytecode returns `r` unchanged, and a nil error.
func (r Raw) Bytecode() ([]byte, error) {
	return []byte(r), nil
}

// PUSHSelector returns a PUSH4 Bytecoder that pushes the selector of the
// signature, i.e. `keccak256(sig)[:4]`.
func PUSHSelector(sig string) Bytecoder {
	return PUSHBytes(crypto.Keccak256([]byte(sig))[:4]...)
}

// PUSHBytes accepts [1,32] bytes, returning a PUSH<x> Bytecoder where x is the
// smallest number of bytes (possibly zero) that can represent the concatenated
// values; i.e. x = len(bs) - leadingZeros(bs).
func PUSHBytes(bs ...byte) Bytecoder {
	return pusher(bs)
}

// PUSH returns a PUSH<n> Bytecoder appropriate for the type. It panics if v is
// negative. A string refers to the respective JUMPDEST or Label and always
// compiles to a PUSH2.
func PUSH[P interface {
	int | uint64 | byte | []byte | uint256.Int | common.Hash | common.Address | string | JUMPDEST | Label
}](v P,
) Bytecoder {
	switch v := any(v).(type) {
	case int:
		if v < 0 {
			panic(fmt.Sprintf("PUSH() negative value %d", v))
		}
		return pushUint64(uint64(v))

	case uint64:
		return pushUint64(v)

	case byte:
		return PUSHBytes(v)

	case []byte:
		return PUSHBytes(v...)

	case uint256.Int:
		b := v.Bytes32()
		return PUSHBytes(b[:]...)

	case common.Hash:
		return PUSHBytes(v[:]...)

	case common.Address:
		return PUSHBytes(v[:]...)

	case string:
		return pushTag(v)

	case JUMPDEST:
		return pushTag(v)

	case Label:
		return pushTag(v)

	default:
		panic(fmt.Sprintf("no type-switch for %T", v))
	}
}

func pushUint64(v uint64) Bytecoder {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	if v == 0 {
		return PUSHBytes(0)
	}
	return PUSHBytes(b[bits.LeadingZeros64(v)/8:]...)
}

// A pusher prepends the appropriate PUSH<N> opcode to its own bytes, after
// stripping leading zeroes.
type pusher []byte

func (p pusher) Bytecode() ([]byte, error) {
	n := len(p)
	if n == 0 || n > 32 {
		return nil, fmt.Errorf("%T of %d bytes must be in [1,32]", p, n)
	}

	size := n
	for _, b := range p {
		if b != 0 {
			break
		}
		size--
	}
	if size == 0 {
		return []byte{byte(vm.PUSH0)}, nil
	}

	return append(
		// PUSH0 to PUSH32 are contiguous, so we can perform arithmetic on them.
		[]byte{byte(vm.PUSH0 + vm.OpCode(size))},
		p[n-size:]...,
	), nil
}
