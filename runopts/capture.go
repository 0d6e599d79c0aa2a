package runopts

import "github.com/ethereum/go-ethereum/core/vm"

// A Captured value is an [Option] that stores part of the [Configuration] for
// later inspection. After the execution it was passed to returns, the Val
// field will be populated.
//
// A set of constructors is provided for commonly captured values.
type Captured[T any] struct {
	Val T

	apply Func
}

var _ Option = (*Captured[struct{}])(nil)

// Apply implements the [Option] interface, storing the value to be captured.
func (c *Captured[T]) Apply(cfg *Configuration) error {
	return c.apply(cfg)
}

// Capture returns a Captured value that is valid _after_ being passed as an
// option to an execution. [fn] must extract and return the value to capture.
//
// Options are applied in order so a Captured value only reflects the Options
// preceding it.
func Capture[T any](fn func(*Configuration) T) *Captured[T] {
	c := new(Captured[T])
	c.apply = func(cfg *Configuration) error {
		c.Val = fn(cfg)
		return nil
	}
	return c
}

// CaptureConfig captures the entire [Configuration].
func CaptureConfig() *Captured[*Configuration] {
	return Capture(func(c *Configuration) *Configuration {
		return c
	})
}

// CaptureStateDB captures the [vm.StateDB] used for storage of accounts (i.e.
// balances, code, storage, etc). After the execution, it reflects the state
// as modified by the execution, regardless of whether it was committed.
func CaptureStateDB() *Captured[vm.StateDB] {
	return Capture(func(c *Configuration) vm.StateDB {
		return c.StateDB
	})
}
