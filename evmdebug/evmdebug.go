// Package evmdebug provides debugging mechanisms for EVM contracts,
// intercepting opcode-level execution and allowing for inspection of data such
// as the VM's stack and memory.
package evmdebug

import (
	"context"

	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/holiman/uint256"

	"github.com/solidifylabs/valuestore/internal/sync"
	"github.com/solidifylabs/valuestore/runopts"
)

// NewDebugger constructs a new Debugger, which is a runopts.Option to be
// passed to a single execution.
//
// Execution SHOULD be advanced until Debugger.Done() returns true otherwise
// resources will be leaked. Best practice is to always call FastForward(),
// usually in a deferred function. Start() does this for its caller.
//
// Debugger.State().Err SHOULD be checked once Debugger.Done() returns true.
//
// NOTE: see the limitations described in the Debugger comments.
func NewDebugger() *Debugger {
	step := make(chan step)
	fastForward := make(chan fastForward)
	stepped := make(chan stepped)
	done := make(chan done)

	// The outer and inner values have complementary send-receive abilities,
	// hence the duplication. This provides compile-time guarantees of intended
	// usage.
	return &Debugger{
		step:        step,        // sent on to trigger a step
		fastForward: fastForward, // closed to trigger unblocked running
		stepped:     stepped,
		done:        done,
		d: &debugger{
			step:        step,
			fastForward: fastForward,
			stepped:     stepped, // sent on to signal end of single step
			done:        done,    // closed to signal end of running
		},
	}
}

// For stricter channel types as there are otherwise many with void types that
// can be accidentally switched.
type (
	step        struct{}
	fastForward struct{}
	stepped     struct{}
	done        struct{}
)

// A Debugger intercepts EVM opcode execution to allow inspection of the stack,
// memory, etc. It is a runopts.Option that installs itself as the tracer of
// the execution to which it is passed.
//
// Only a single call frame is supported; the ValueStore contract never calls
// out so this is sufficient for stepping through any of its messages.
type Debugger struct {
	d *debugger

	// Send external signals
	step        chan<- step
	fastForward chan<- fastForward
	// Receive internal state changes
	stepped <-chan stepped
	done    <-chan done
}

var _ runopts.Option = (*Debugger)(nil)

// Apply sets the VMConfig.Tracer of the Configuration, intercepting execution
// of every opcode.
func (d *Debugger) Apply(c *runopts.Configuration) error {
	c.VMConfig.Tracer = &tracing.Hooks{
		OnOpcode: d.d.onOpcode,
		OnFault:  d.d.onFault,
	}
	return nil
}

// An Execution runs code with the provided Options, e.g. a closure around
// host.Chain.Call().
type Execution func(...runopts.Option) ([]byte, error)

// Start runs exec in a new goroutine, with a new Debugger appended to opts,
// and returns the Debugger. The returned function fast-forwards the Debugger
// and then returns the results of exec; it MUST be called to release
// resources.
func Start(exec Execution, opts ...runopts.Option) (*Debugger, func() ([]byte, error)) {
	dbg := NewDebugger()
	opts = append(opts[:len(opts):len(opts)], dbg)

	var (
		ret []byte
		err error
	)
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		ret, err = exec(opts...)
		// If exec errored before any opcode was run, or the execution had no
		// code at all, nothing will have closed d.done.
		dbg.d.finish()
	}()

	return dbg, func() ([]byte, error) {
		dbg.FastForward()
		<-finished
		return ret, err
	}
}

// Wait blocks until Debugger is blocking the EVM from running the next opcode,
// or until execution has finished. The only reason to call Wait() is to access
// State() before the first Step().
func (d *Debugger) Wait() {
	// The only possible error is sync.ErrToggleClosed, which signals that
	// execution is already over.
	_ = d.d.blockingEVM.Wait(context.Background())
}

// Step advances the execution by one opcode. Step MUST NOT be called
// concurrently with any other Debugger methods. The first opcode is only
// executed upon the first call to Step(), allowing initial state to be
// inspected beforehand; see Wait() for this purpose.
//
// Step blocks until the opcode execution completes and the next opcode is being
// blocked. Calling Step after Done() returns true is a no-op.
func (d *Debugger) Step() {
	select {
	case d.step <- step{}:
	case <-d.done:
		return
	}
	// The tracer either closes d.done or toggles (off) and blocks d.Wait()
	// before closing / sending on this channel, so the checks below are
	// synchronised.
	<-d.stepped

	select {
	case <-d.done:
	default:
		// When this unblocks we are guaranteed that the *next* opcode is being
		// blocked, which implies that the *current* one is finished.
		d.Wait()
	}
}

// FastForward executes all remaining opcodes, effectively the same as calling
// Step() in a loop until Done() returns true.
//
// Unlike Step(), calling FastForward() when Done() returns true is acceptable.
// This allows it to be called in a deferred manner, which is best practice to
// avoid leaking resources:
//
//	dbg := evmdebug.NewDebugger()
//	defer dbg.FastForward()
func (d *Debugger) FastForward() {
	select {
	case <-d.d.fastForward: // already closed
		return
	default:
	}

	close(d.fastForward)
	for {
		select {
		case <-d.stepped:
		case <-d.done:
			return
		}
	}
}

// Done returns whether execution has ended.
func (d *Debugger) Done() bool {
	select {
	case <-d.done:
		return true
	default:
		return false
	}
}

// State returns the last-captured state, which will be modified upon each call
// to Step(). It is expected that State() only be called once, at any time after
// construction of the Debugger, and its result retained for inspection at each
// Step(). The CapturedState is, however, only valid after the first call to
// Step().
//
// Ownership of the Context is retained by the EVM instance that created it;
// modify with caution!
func (d *Debugger) State() *CapturedState {
	return &d.d.last
}

// CapturedState carries all values passed to the debugger.
//
// N.B. See ownership note in Debugger.State() documentation.
type CapturedState struct {
	PC, GasLeft, GasCost uint64
	Op                   vm.OpCode
	Context              tracing.OpContext // contains memory and stack
	ReturnData           []byte
	Err                  error
}

// StackBack returns the n-th item from the top of the stack, i.e. 0 is the
// top. It panics if n is out of range.
func (s *CapturedState) StackBack(n int) *uint256.Int {
	st := s.Context.StackData()
	return &st[len(st)-1-n]
}

// debugger provides the tracing hooks installed by its parent Debugger to
// intercept opcode execution.
type debugger struct {
	// Waited upon by the hooks, signalling an external call to Step() or
	// FastForward().
	step        <-chan step
	fastForward <-chan fastForward
	stepped     chan<- stepped
	// Toggled by the hooks, externally signalling that the next opcode is
	// being blocked (also implying that the last one has completed).
	blockingEVM sync.Toggle
	// Closed after execution of STOP or RETURN, upon a fault, or when the
	// execution returns without either.
	done     chan<- done
	finished bool

	last CapturedState
}

// awaitStep blocks until the Debugger allows the EVM to proceed.
func (d *debugger) awaitStep() {
	d.blockingEVM.Set(true) // unblocks Debugger.Wait()
	select {
	case <-d.step:
	case <-d.fastForward:
	}
}

// finish closes d.done, if not already closed, and then d.stepped. It is only
// ever called from the goroutine running the EVM.
func (d *debugger) finish() {
	if d.finished {
		return
	}
	d.finished = true
	close(d.done)
	d.blockingEVM.Close()
	close(d.stepped)
}

func (d *debugger) capture(pc uint64, op byte, gas, cost uint64, scope tracing.OpContext, rData []byte, err error) {
	d.last = CapturedState{
		PC:         pc,
		Op:         vm.OpCode(op),
		GasLeft:    gas,
		GasCost:    cost,
		Context:    scope,
		ReturnData: rData,
		Err:        err,
	}
}

func (d *debugger) onOpcode(pc uint64, op byte, gas, cost uint64, scope tracing.OpContext, rData []byte, depth int, err error) {
	d.awaitStep()
	d.capture(pc, op, gas, cost, scope, rData, err)

	// In all cases below, closing / sending on d.stepped MUST be the last
	// action. Debugger.Step() relies on this to perform checks once its receive
	// on d.stepped is unblocked.
	switch vm.OpCode(op) {
	case vm.STOP, vm.RETURN:
		d.finish()
		return
	}
	if err != nil {
		// An error before the opcode is executed (e.g. stack underflow) is
		// reported here, and never via onFault().
		d.finish()
		return
	}
	d.blockingEVM.Set(false) // blocks Debugger.Wait()
	d.stepped <- stepped{}
}

// onFault is called after onOpcode() for the same opcode, if its execution
// errors. This includes REVERT.
func (d *debugger) onFault(pc uint64, op byte, gas, cost uint64, scope tracing.OpContext, depth int, err error) {
	d.awaitStep()
	d.capture(pc, op, gas, cost, scope, nil, err)
	d.finish()
}
