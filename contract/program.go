package contract

import (
	"fmt"

	. "github.com/solidifylabs/valuestore/asm" //lint:ignore ST1001 The asm DSL is designed to be dot-imported
)

// valueSlot is the storage slot holding the stored value.
const valueSlot = 0

// Signatures of the externally callable messages.
const (
	getSig = "get()"
	setSig = "set(uint32)"
)

// Runtime returns the code executed by every call to a deployed ValueStore.
//
// Calls carrying value revert, as do calls with an unknown selector. get()
// returns the stored value as a single ABI word. set(uint32) requires a full
// ABI word that fits in 32 bits, which it then stores unconditionally.
func Runtime() Code {
	return Code{
		Fn(JUMPI, PUSH("revert"), CALLVALUE),

		Fn(SHR, PUSH(224), Fn(CALLDATALOAD, PUSH0)), // <selector>
		Fn(JUMPI, PUSH("get"), Fn(EQ, PUSHSelector(getSig), DUP1)),
		Fn(JUMPI, PUSH("set"), Fn(EQ, PUSHSelector(setSig), DUP1)),

		JUMPDEST("revert"), SetDepth(0),
		Fn(REVERT, PUSH0, PUSH0),

		JUMPDEST("get"), SetDepth(1),
		Fn(MSTORE, PUSH0, Fn(SLOAD, PUSH(valueSlot))),
		Fn(RETURN, PUSH0, PUSH(32)),

		JUMPDEST("set"), SetDepth(1),
		Fn(JUMPI, PUSH("revert"), Fn(LT, CALLDATASIZE, PUSH(4+32))),
		Fn(CALLDATALOAD, PUSH(4)), // <selector, value>
		rangeCheck(),
		Fn(SSTORE, PUSH(valueSlot)),
		STOP,
	}
}

// Constructor returns the code that deploys Runtime(). If an ABI-encoded
// uint32 is appended to the compiled constructor then it is stored as the
// initial value, otherwise the value remains zero, which is equivalent to
// storing zero. Anything appended that is shorter than a full word reverts.
func Constructor() (Code, error) {
	runtime, err := Runtime().Compile()
	if err != nil {
		return nil, fmt.Errorf("compiling runtime: %v", err)
	}

	return Code{
		Fn(JUMPI, PUSH("revert"), CALLVALUE),

		Fn(JUMPI, PUSH("deploy"), Fn(EQ, CODESIZE, PUSH("args"))),
		Fn(JUMPI, PUSH("revert"), Fn(LT, CODESIZE, Fn(ADD, PUSH("args"), PUSH(32)))),
		Fn(CODECOPY, PUSH0, PUSH("args"), PUSH(32)),
		Fn(MLOAD, PUSH0), // <value>
		rangeCheck(),
		Fn(SSTORE, PUSH(valueSlot)),

		JUMPDEST("deploy"), SetDepth(0),
		Fn(CODECOPY, PUSH0, PUSH("runtime"), PUSHSize("runtime", "args")),
		Fn(RETURN, PUSH0, PUSHSize("runtime", "args")),

		JUMPDEST("revert"), SetDepth(0),
		Fn(REVERT, PUSH0, PUSH0),

		Label("runtime"),
		Raw(runtime),
		Label("args"),
	}, nil
}

// rangeCheck jumps to "revert" if the value on the top of the stack doesn't
// fit in 32 bits, leaving the stack unchanged otherwise.
func rangeCheck() Bytecoder {
	return Fn(JUMPI, PUSH("revert"), Fn(SHR, PUSH(32), DUP1))
}
