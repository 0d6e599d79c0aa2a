package runopts_test

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	. "github.com/solidifylabs/valuestore/asm" //lint:ignore ST1001 The asm DSL is designed to be dot-imported
	"github.com/solidifylabs/valuestore/host"
	"github.com/solidifylabs/valuestore/runopts"
)

func randomAddresses(n int, seed []byte) []common.Address {
	keccak := crypto.NewKeccakState()
	keccak.Write(seed)

	addrs := make([]common.Address, n)
	buf := make([]byte, common.AddressLength)
	for i := range addrs {
		keccak.Read(buf) //nolint:errcheck // never returns an error
		copy(addrs[i][:], buf)
	}
	return addrs
}

// deploy deploys the runtime code, returning the address of the contract.
func deploy(ctx context.Context, c *host.Chain, runtime Code) (common.Address, error) {
	rt, err := runtime.Compile()
	if err != nil {
		return common.Address{}, err
	}
	initCode, err := Code{
		Fn(CODECOPY, PUSH0, PUSH("runtime"), PUSHSize("runtime", "end")),
		Fn(RETURN, PUSH0, PUSHSize("runtime", "end")),
		Label("runtime"),
		Raw(rt),
		Label("end"),
	}.Compile()
	if err != nil {
		return common.Address{}, err
	}
	return c.Deploy(ctx, initCode)
}

func setup(t *testing.T, runtime Code) (*host.Chain, common.Address) {
	t.Helper()

	c, err := host.NewMemory()
	if err != nil {
		t.Fatalf("host.NewMemory() error %v", err)
	}
	t.Cleanup(func() { c.Close() })

	addr, err := deploy(context.Background(), c, runtime)
	if err != nil {
		t.Fatalf("deploy() error %v", err)
	}
	return c, addr
}

// returnWord returns a contract that returns the single word pushed by op.
func returnWord(op Bytecoder) Code {
	return Code{
		Fn(MSTORE, PUSH0, op),
		Fn(RETURN, PUSH0, PUSH(32)),
	}
}

func TestFrom(t *testing.T) {
	ctx := context.Background()
	c, addr := setup(t, returnWord(CALLER))

	for _, from := range randomAddresses(20, nil) {
		got, err := c.StaticCall(ctx, addr, nil, runopts.From(from))
		if err != nil {
			t.Fatalf("%T.StaticCall() error %v", c, err)
		}
		if got := common.BytesToAddress(got); got != from {
			t.Errorf("contract called from address %v; want %v", got, from)
		}
	}
}

func TestDefaultFrom(t *testing.T) {
	c, addr := setup(t, returnWord(CALLER))

	got, err := c.StaticCall(context.Background(), addr, nil)
	if err != nil {
		t.Fatalf("%T.StaticCall() error %v", c, err)
	}
	if got, want := common.BytesToAddress(got), runopts.DefaultFrom(); got != want {
		t.Errorf("contract called from address %v; want %v", got, want)
	}
}

func TestValue(t *testing.T) {
	ctx := context.Background()
	c, addr := setup(t, returnWord(CALLVALUE))

	from := runopts.DefaultFrom()
	if err := c.Fund(from, uint256.NewInt(math.MaxUint64)); err != nil {
		t.Fatalf("%T.Fund() error %v", c, err)
	}

	keccak := crypto.NewKeccakState()
	buf := make([]byte, 7)
	vals := make([]uint256.Int, 20)
	for i := range vals {
		keccak.Read(buf) //nolint:errcheck // never returns an error
		vals[i].SetBytes(buf)
	}

	for _, val := range vals {
		got, err := c.Call(ctx, addr, nil, runopts.Value(val))
		if err != nil {
			t.Fatalf("%T.Call(…, runopts.Value(%v)) error %v", c, &val, err)
		}
		if got := new(uint256.Int).SetBytes(got); !got.Eq(&val) {
			t.Errorf("contract received value %v; want %v", got, &val)
		}
	}
}

func TestValueWithoutBalance(t *testing.T) {
	c, addr := setup(t, returnWord(CALLVALUE))

	_, err := c.Call(context.Background(), addr, nil, runopts.Value(*uint256.NewInt(1)))
	if !errors.Is(err, vm.ErrInsufficientBalance) {
		t.Errorf("%T.Call(…, runopts.Value(1)) from unfunded account got err %v; want %v", c, err, vm.ErrInsufficientBalance)
	}
}

func TestGasLimit(t *testing.T) {
	c, addr := setup(t, returnWord(GAS))

	const limit = 100_000
	got, err := c.StaticCall(context.Background(), addr, nil, runopts.GasLimit(limit))
	if err != nil {
		t.Fatalf("%T.StaticCall() error %v", c, err)
	}
	// GAS is the first opcode so observes the limit less only its own cost.
	if got, want := new(big.Int).SetBytes(got), big.NewInt(limit-2); got.Cmp(want) != 0 {
		t.Errorf("GAS opcode returned %v; want %v", got, want)
	}

	_, err = c.StaticCall(context.Background(), addr, nil, runopts.GasLimit(3))
	if !errors.Is(err, vm.ErrOutOfGas) {
		t.Errorf("%T.StaticCall(…, runopts.GasLimit(3)) got err %v; want %v", c, err, vm.ErrOutOfGas)
	}
}

func TestStorage(t *testing.T) {
	slot := common.Hash{'s', 'o', 'm', 'e', 'w', 'h', 'e', 'r', 'e'}
	const initVal = 42

	c, addr := setup(t, Code{
		Fn(SSTORE,
			PUSH(slot),
			Fn(ADD,
				PUSH(1),
				Fn(SLOAD, PUSH(slot)),
			),
		),
	})

	db := runopts.CaptureStateDB()
	opts := []runopts.Option{
		runopts.Func(func(c *runopts.Configuration) error {
			c.StateDB.SetState(addr, slot, common.BigToHash(big.NewInt(initVal)))
			return nil
		}),
		db,
	}
	if _, err := c.Call(context.Background(), addr, nil, opts...); err != nil {
		t.Fatalf("%T.Call() error %v", c, err)
	}

	for _, tt := range []struct {
		name string
		get  func() (common.Hash, error)
	}{
		{
			name: "captured",
			get: func() (common.Hash, error) {
				return db.Val.GetState(addr, slot), nil
			},
		},
		{
			name: "committed",
			get: func() (common.Hash, error) {
				return c.StorageAt(addr, slot)
			},
		},
	} {
		t.Run(tt.name, func(t *testing.T) {
			h, err := tt.get()
			if err != nil {
				t.Fatal(err)
			}
			got := h.Big()
			if want := big.NewInt(initVal + 1); got.Cmp(want) != 0 {
				t.Errorf("got slot %v value = %v; want %v (initial value + 1)", slot, got, want)
			}
		})
	}
}

func TestOptionError(t *testing.T) {
	c, addr := setup(t, Code{STOP})

	errBad := errors.New("bad option")
	_, err := c.Call(context.Background(), addr, nil, runopts.Func(func(*runopts.Configuration) error {
		return errBad
	}))
	if !errors.Is(err, errBad) {
		t.Errorf("%T.Call() with failing Option got err %v; want %v", c, err, errBad)
	}
}

func TestWithTracer(t *testing.T) {
	c, addr := setup(t, Code{PUSH0, PUSH0, STOP})

	var ops []vm.OpCode
	tracer := &tracing.Hooks{
		OnOpcode: func(pc uint64, op byte, gas, cost uint64, scope tracing.OpContext, rData []byte, depth int, err error) {
			ops = append(ops, vm.OpCode(op))
		},
	}
	if _, err := c.StaticCall(context.Background(), addr, nil, runopts.WithTracer(tracer)); err != nil {
		t.Fatalf("%T.StaticCall() error %v", c, err)
	}

	want := []vm.OpCode{vm.PUSH0, vm.PUSH0, vm.STOP}
	if fmt.Sprint(ops) != fmt.Sprint(want) {
		t.Errorf("traced opcodes %v; want %v", ops, want)
	}
}

func ExampleCaptured() {
	const (
		slot  = 42
		value = 314159
	)

	c, err := host.NewMemory()
	if err != nil {
		log.Fatal(err)
	}
	defer c.Close()

	ctx := context.Background()
	addr, err := deploy(ctx, c, Code{
		Fn(SSTORE, PUSH(slot), PUSH(value)),
	})
	if err != nil {
		log.Fatal(err)
	}

	// All runopts.Captured[T] values are passed to the execution to be
	// populated, after which, their Val fields can be used.
	cfg := runopts.CaptureConfig()
	if _, err := c.Call(ctx, addr, nil, cfg); err != nil {
		log.Fatal(err)
	}

	got := cfg.Val.StateDB.GetState(addr, common.BigToHash(big.NewInt(slot)))
	fmt.Println(new(uint256.Int).SetBytes(got[:]))
	fmt.Println(cfg.Val.GasLimit == runopts.DefaultGasLimit)

	// Output:
	// 314159
	// true
}
