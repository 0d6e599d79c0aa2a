package evmdebug

import (
	"fmt"

	"github.com/ethereum/go-ethereum/core/vm"
)

// An Instruction is a single opcode, along with its immediate if it is a PUSH.
type Instruction struct {
	PC        uint64
	Op        vm.OpCode
	Immediate []byte
}

// String returns the mnemonic of the opcode, followed by the immediate in hex
// if there is one.
func (in Instruction) String() string {
	if len(in.Immediate) == 0 {
		return in.Op.String()
	}
	return fmt.Sprintf("%v %#x", in.Op, in.Immediate)
}

// Disassemble splits code into Instructions. A PUSH truncated by the end of
// the code has an immediate shorter than its opcode implies.
func Disassemble(code []byte) []Instruction {
	var ins []Instruction
	for pc := 0; pc < len(code); pc++ {
		in := Instruction{
			PC: uint64(pc),
			Op: vm.OpCode(code[pc]),
		}
		if in.Op.IsPush() && in.Op != vm.PUSH0 {
			end := min(pc+1+int(in.Op-vm.PUSH0), len(code))
			in.Immediate = code[pc+1 : end]
			pc = end - 1
		}
		ins = append(ins, in)
	}
	return ins
}
