package asm

import "fmt"

// ExpectDepth is a sentinel value that signals to Code.Compile() that it must
// assert the expected stack depth, returning an error if incorrect. See
// SetDepth for caveats; the expectation is with respect to Compile()'s own
// bookkeeping and has nothing to do with concrete (runtime) depths.
type ExpectDepth uint

// Bytecode always returns an error.
func (d ExpectDepth) Bytecode() ([]byte, error) {
	return nil, fmt.Errorf("call to %T.Bytecode()", d)
}

// SetDepth is a sentinel value that signals to Code.Compile() that it must
// overwrite its internal counter reflecting the current stack depth.
//
// Compile() tracks the depth across straight-line code only, so the
// programmer MUST state the depth after every JUMPDEST.
type SetDepth uint

// Bytecode always returns an error.
func (d SetDepth) Bytecode() ([]byte, error) {
	return nil, fmt.Errorf("call to %T.Bytecode()", d)
}
