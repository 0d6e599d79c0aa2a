package asm

import "github.com/ethereum/go-ethereum/core/vm"

// Aliases of the regular vm.OpCode constants supported by Compile(). JUMPDEST
// and PUSH<N> have special replacements and are therefore absent.
const (
	STOP           = OpCode(vm.STOP)
	ADD            = OpCode(vm.ADD)
	MUL            = OpCode(vm.MUL)
	SUB            = OpCode(vm.SUB)
	DIV            = OpCode(vm.DIV)
	MOD            = OpCode(vm.MOD)
	LT             = OpCode(vm.LT)
	GT             = OpCode(vm.GT)
	EQ             = OpCode(vm.EQ)
	ISZERO         = OpCode(vm.ISZERO)
	AND            = OpCode(vm.AND)
	OR             = OpCode(vm.OR)
	XOR            = OpCode(vm.XOR)
	NOT            = OpCode(vm.NOT)
	SHL            = OpCode(vm.SHL)
	SHR            = OpCode(vm.SHR)
	KECCAK256      = OpCode(vm.KECCAK256)
	ADDRESS        = OpCode(vm.ADDRESS)
	CALLER         = OpCode(vm.CALLER)
	CALLVALUE      = OpCode(vm.CALLVALUE)
	CALLDATALOAD   = OpCode(vm.CALLDATALOAD)
	CALLDATASIZE   = OpCode(vm.CALLDATASIZE)
	CALLDATACOPY   = OpCode(vm.CALLDATACOPY)
	CODESIZE       = OpCode(vm.CODESIZE)
	CODECOPY       = OpCode(vm.CODECOPY)
	RETURNDATASIZE = OpCode(vm.RETURNDATASIZE)
	POP            = OpCode(vm.POP)
	MLOAD          = OpCode(vm.MLOAD)
	MSTORE         = OpCode(vm.MSTORE)
	SLOAD          = OpCode(vm.SLOAD)
	SSTORE         = OpCode(vm.SSTORE)
	JUMP           = OpCode(vm.JUMP)
	JUMPI          = OpCode(vm.JUMPI)
	PC             = OpCode(vm.PC)
	GAS            = OpCode(vm.GAS)
	PUSH0          = OpCode(vm.PUSH0)
	DUP1           = OpCode(vm.DUP1)
	DUP2           = OpCode(vm.DUP2)
	DUP3           = OpCode(vm.DUP3)
	DUP4           = OpCode(vm.DUP4)
	SWAP1          = OpCode(vm.SWAP1)
	SWAP2          = OpCode(vm.SWAP2)
	SWAP3          = OpCode(vm.SWAP3)
	RETURN         = OpCode(vm.RETURN)
	REVERT         = OpCode(vm.REVERT)
	INVALID        = OpCode(vm.INVALID)
)

type stackDelta struct {
	pop, push uint
}

// stackDeltas maps every opcode that Compile() accepts to the number of values
// it pops from and pushes to the stack. A DUP<N> or SWAP<N> "pops" the values
// it requires to be present so that underflow is detected.
var stackDeltas = map[vm.OpCode]stackDelta{
	vm.STOP:           {0, 0},
	vm.ADD:            {2, 1},
	vm.MUL:            {2, 1},
	vm.SUB:            {2, 1},
	vm.DIV:            {2, 1},
	vm.MOD:            {2, 1},
	vm.LT:             {2, 1},
	vm.GT:             {2, 1},
	vm.EQ:             {2, 1},
	vm.ISZERO:         {1, 1},
	vm.AND:            {2, 1},
	vm.OR:             {2, 1},
	vm.XOR:            {2, 1},
	vm.NOT:            {1, 1},
	vm.SHL:            {2, 1},
	vm.SHR:            {2, 1},
	vm.KECCAK256:      {2, 1},
	vm.ADDRESS:        {0, 1},
	vm.CALLER:         {0, 1},
	vm.CALLVALUE:      {0, 1},
	vm.CALLDATALOAD:   {1, 1},
	vm.CALLDATASIZE:   {0, 1},
	vm.CALLDATACOPY:   {3, 0},
	vm.CODESIZE:       {0, 1},
	vm.CODECOPY:       {3, 0},
	vm.RETURNDATASIZE: {0, 1},
	vm.POP:            {1, 0},
	vm.MLOAD:          {1, 1},
	vm.MSTORE:         {2, 0},
	vm.SLOAD:          {1, 1},
	vm.SSTORE:         {2, 0},
	vm.JUMP:           {1, 0},
	vm.JUMPI:          {2, 0},
	vm.PC:             {0, 1},
	vm.GAS:            {0, 1},
	vm.JUMPDEST:       {0, 0},
	vm.RETURN:         {2, 0},
	vm.REVERT:         {2, 0},
	vm.INVALID:        {0, 0},
}

func init() {
	for op := vm.PUSH0; op <= vm.PUSH32; op++ {
		stackDeltas[op] = stackDelta{0, 1}
	}
	for i := vm.OpCode(0); i < 4; i++ {
		stackDeltas[vm.DUP1+i] = stackDelta{uint(i) + 1, uint(i) + 2}
	}
	for i := vm.OpCode(0); i < 3; i++ {
		stackDeltas[vm.SWAP1+i] = stackDelta{uint(i) + 2, uint(i) + 2}
	}
}
