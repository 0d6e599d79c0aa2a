// Package revert surfaces the data returned by a reverted EVM execution.
package revert

import (
	"errors"

	"github.com/ethereum/go-ethereum/core/vm"
)

// An Error is returned by executions that end in a REVERT, carrying the data
// passed to the opcode.
type Error struct {
	Data []byte
	Err  error
}

var _ error = (*Error)(nil)

// ErrFrom converts the return values of an EVM execution into an error. If
// err is a revert, the returned error is an *Error carrying ret; otherwise err
// is returned unchanged, which includes nil.
func ErrFrom(ret []byte, err error) error {
	if !errors.Is(err, vm.ErrExecutionReverted) {
		return err
	}
	return &Error{
		Data: ret,
		Err:  err,
	}
}

func (e *Error) Error() string {
	return e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Data returns the revert data carried by err, if any, and a boolean
// indicating whether err is (or wraps) an *Error.
func Data(err error) ([]byte, bool) {
	var e *Error
	if !errors.As(err, &e) {
		return nil, false
	}
	return e.Data, true
}
