package asm

import (
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/core/vm"
)

// pushTagSize is the number of bytes occupied by every pushTag and pushSize:
// a PUSH2 followed by its two-byte argument. A fixed width allows all tag
// locations to be known after a single pass, at the cost of an occasional
// wasted byte.
const pushTagSize = 3

// flatten returns a Code slice that only contains Bytecoders but no
// BytecodeHolders, the latter being recursively converted into their
// constituent Bytecoders.
func (c Code) flatten() Code {
	out := make(Code, 0, len(c))
	for _, bc := range c {
		switch bc := bc.(type) {
		case BytecodeHolder:
			out = append(out, Code(bc.Bytecoders()).flatten()...)
		default:
			out = append(out, bc)
		}
	}
	return out
}

// Compile returns compiled EVM bytecode with all special opcodes interpreted.
//
// The first pass records the location of every JUMPDEST and Label while
// tracking the stack depth; the second pass emits the bytes, resolving pushed
// tags to their locations.
func (c Code) Compile() ([]byte, error) {
	flat := c.flatten()

	var (
		pc              int
		depth           uint
		requireSetDepth bool
		tags            = make(map[tag]int)
	)

	for i, bc := range flat {
		posErr := func(format string, a ...any) error {
			format = "%T[%d]: " + format
			a = append([]any{c, i}, a...)
			return fmt.Errorf(format, a...)
		}

		switch op := bc.(type) {
		case SetDepth:
			depth = uint(op)
			requireSetDepth = false
			continue

		case ExpectDepth:
			if got, want := depth, uint(op); got != want {
				return nil, posErr("stack depth %d when expecting %d", got, want)
			}
			continue
		}

		if requireSetDepth {
			return nil, posErr("%T must be followed by %T", JUMPDEST(""), SetDepth(0))
		}

		switch op := bc.(type) {
		case JUMPDEST, Label:
			t := op.(tagged).tag()
			if _, ok := tags[t]; ok {
				return nil, posErr("duplicate tag %q", t)
			}
			if pc > math.MaxUint16 {
				return nil, posErr("tag %q at location %d beyond PUSH2 range", t, pc)
			}
			tags[t] = pc

			if _, ok := op.(JUMPDEST); ok {
				pc++
				requireSetDepth = true
			}

		case pushTag, pushSize:
			pc += pushTagSize
			depth++

		case Raw:
			pc += len(op)

		default:
			code, err := bc.Bytecode()
			if err != nil {
				return nil, posErr("%v", err)
			}

			for j, n := 0, len(code); j < n; j++ {
				op := vm.OpCode(code[j])
				d, ok := stackDeltas[op]
				if !ok {
					return nil, posErr("invalid %T(%v) as byte [%d] returned by Bytecode()", op, op, j)
				}
				if depth < d.pop {
					return nil, posErr("Bytecode()[%d] %v popping %d values with stack depth %d", j, op, d.pop, depth)
				}
				depth = depth - d.pop + d.push

				if op.IsPush() {
					j += int(op - vm.PUSH0)
				}
			}
			pc += len(code)
		}
	}

	out := make([]byte, 0, pc)
	for i, bc := range flat {
		switch op := bc.(type) {
		case SetDepth, ExpectDepth, Label:

		case JUMPDEST:
			out = append(out, byte(vm.JUMPDEST))

		case pushTag:
			loc, ok := tags[tag(op)]
			if !ok {
				return nil, fmt.Errorf("%T[%d]: push of unknown tag %q", c, i, op)
			}
			out = appendPUSH2(out, loc)

		case pushSize:
			a, okA := tags[op[0]]
			b, okB := tags[op[1]]
			if !okA || !okB {
				return nil, fmt.Errorf("%T[%d]: %T(%q, %q) with unknown tag", c, i, op, op[0], op[1])
			}
			if a > b {
				a, b = b, a
			}
			out = appendPUSH2(out, b-a)

		default:
			code, err := bc.Bytecode()
			if err != nil {
				// Impossible as the first pass would have returned the error.
				return nil, fmt.Errorf("BUG: %T[%d]: %v", c, i, err)
			}
			out = append(out, code...)
		}
	}
	return out, nil
}

func appendPUSH2(code []byte, v int) []byte {
	return append(code, byte(vm.PUSH2), byte(v>>8), byte(v))
}
