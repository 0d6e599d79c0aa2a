// Package host provides an execution environment for EVM contracts: a single
// world state, backed by an ethdb.Database, against which contracts are
// deployed and called.
//
// All executions on a Chain are serialised, and the resulting state is only
// committed if the execution succeeds, so every mutating call is atomic.
package host

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core"
	"github.com/ethereum/go-ethereum/core/rawdb"
	"github.com/ethereum/go-ethereum/core/state"
	"github.com/ethereum/go-ethereum/core/tracing"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/core/vm"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"

	"github.com/solidifylabs/valuestore/revert"
	"github.com/solidifylabs/valuestore/runopts"
)

// headRootKey is the database key under which the latest committed state root
// is stored.
var headRootKey = []byte("valuestore-head-root")

// A Chain is a world state against which contracts are executed. It is safe
// for concurrent use; executions are performed one at a time, in the order in
// which they acquire the Chain.
type Chain struct {
	mu     sync.Mutex
	db     ethdb.Database
	states state.Database
	root   common.Hash
	block  uint64

	defaults []runopts.Option
}

// NewMemory returns a Chain backed by an in-memory database. The Options are
// applied to every execution, before those passed to the specific method.
func NewMemory(opts ...runopts.Option) (*Chain, error) {
	return newChain(rawdb.NewMemoryDatabase(), opts)
}

// Open returns a Chain backed by a pebble database in dir, resuming from the
// last committed state if one exists. The Options are treated as for
// NewMemory.
func Open(dir string, opts ...runopts.Option) (*Chain, error) {
	db, err := rawdb.NewPebbleDBDatabase(dir, 16, 16, "valuestore/", false, false)
	if err != nil {
		return nil, fmt.Errorf("rawdb.NewPebbleDBDatabase(%q): %w", dir, err)
	}
	c, err := newChain(db, opts)
	if err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func newChain(db ethdb.Database, opts []runopts.Option) (*Chain, error) {
	c := &Chain{
		db:       db,
		states:   state.NewDatabase(db),
		root:     types.EmptyRootHash,
		defaults: opts,
	}

	has, err := db.Has(headRootKey)
	if err != nil {
		return nil, fmt.Errorf("%T.Has(head root): %w", db, err)
	}
	if has {
		enc, err := db.Get(headRootKey)
		if err != nil {
			return nil, fmt.Errorf("%T.Get(head root): %w", db, err)
		}
		c.root = common.BytesToHash(enc)
		log.Debug("Resuming from committed state", "root", c.root)
	}
	return c, nil
}

// Close releases the underlying database. The Chain MUST NOT be used after a
// call to Close.
func (c *Chain) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.db.Close()
}

// Root returns the root hash of the last committed state.
func (c *Chain) Root() common.Hash {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.root
}

// Deploy runs initCode as a contract-creation execution and returns the
// address of the new contract, which is derived from the sender address and
// nonce.
func (c *Chain) Deploy(ctx context.Context, initCode []byte, opts ...runopts.Option) (common.Address, error) {
	var addr common.Address
	_, err := c.execute(ctx, opts, func(evm *vm.EVM, cfg *runopts.Configuration) ([]byte, error) {
		prepare(cfg, nil)
		ret, a, _, err := evm.Create(vm.AccountRef(cfg.From), initCode, cfg.GasLimit, cfg.Value)
		addr = a
		return ret, err
	})
	if err != nil {
		return common.Address{}, err
	}
	log.Debug("Deployed contract", "address", addr, "initcode", len(initCode))
	return addr, nil
}

// Call calls the contract at address `to`, committing any state changes if,
// and only if, execution succeeds. If the runopts.ReadOnly() Option is
// included then Call is equivalent to StaticCall.
func (c *Chain) Call(ctx context.Context, to common.Address, input []byte, opts ...runopts.Option) ([]byte, error) {
	return c.execute(ctx, opts, func(evm *vm.EVM, cfg *runopts.Configuration) ([]byte, error) {
		prepare(cfg, &to)
		caller := vm.AccountRef(cfg.From)
		if cfg.ReadOnly {
			ret, _, err := evm.StaticCall(caller, to, input, cfg.GasLimit)
			return ret, err
		}
		ret, _, err := evm.Call(caller, to, input, cfg.GasLimit, cfg.Value)
		return ret, err
	})
}

// StaticCall calls the contract at address `to` without the ability to modify
// state. Nothing is committed.
func (c *Chain) StaticCall(ctx context.Context, to common.Address, input []byte, opts ...runopts.Option) ([]byte, error) {
	opts = append(opts[:len(opts):len(opts)], runopts.ReadOnly())
	return c.Call(ctx, to, input, opts...)
}

// Fund adds amount to the balance of addr, committing the change.
func (c *Chain) Fund(addr common.Address, amount *uint256.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	sdb, err := state.New(c.root, c.states, nil)
	if err != nil {
		return fmt.Errorf("state.New(%v): %w", c.root, err)
	}
	sdb.AddBalance(addr, amount, tracing.BalanceChangeUnspecified)
	return c.commit(sdb)
}

// StorageAt returns the value of the storage slot of addr in the last
// committed state.
func (c *Chain) StorageAt(addr common.Address, slot common.Hash) (common.Hash, error) {
	sdb, err := c.committedState()
	if err != nil {
		return common.Hash{}, err
	}
	return sdb.GetState(addr, slot), nil
}

// CodeAt returns the code deployed at addr in the last committed state.
func (c *Chain) CodeAt(addr common.Address) ([]byte, error) {
	sdb, err := c.committedState()
	if err != nil {
		return nil, err
	}
	return sdb.GetCode(addr), nil
}

func (c *Chain) committedState() (*state.StateDB, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sdb, err := state.New(c.root, c.states, nil)
	if err != nil {
		return nil, fmt.Errorf("state.New(%v): %w", c.root, err)
	}
	return sdb, nil
}

// prepare resets the per-transaction state of cfg.StateDB and warms the
// sender, destination (nil for contract creation), coinbase and precompiles,
// as for a transaction. Storage gas accounting from Berlin onwards requires
// the executing address to be in the access list.
func prepare(cfg *runopts.Configuration, dst *common.Address) {
	rules := cfg.ChainConfig.Rules(cfg.BlockCtx.BlockNumber, cfg.BlockCtx.Random != nil, cfg.BlockCtx.Time)
	cfg.StateDB.Prepare(rules, cfg.From, cfg.BlockCtx.Coinbase, dst, vm.ActivePrecompiles(rules), nil)
}

// An execution performs a single top-level EVM operation.
type execution func(*vm.EVM, *runopts.Configuration) ([]byte, error)

// execute runs fn on a fresh EVM over the last committed state, committing the
// result unless fn errors or the Configuration is read-only.
func (c *Chain) execute(ctx context.Context, opts []runopts.Option, fn execution) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sdb, err := state.New(c.root, c.states, nil)
	if err != nil {
		return nil, fmt.Errorf("state.New(%v): %w", c.root, err)
	}

	all := make([]runopts.Option, 0, len(c.defaults)+len(opts))
	all = append(all, c.defaults...)
	all = append(all, opts...)
	cfg, err := c.newConfiguration(sdb, all...)
	if err != nil {
		return nil, err
	}

	evm := vm.NewEVM(
		cfg.BlockCtx,
		cfg.TxCtx,
		cfg.StateDB,
		cfg.ChainConfig,
		cfg.VMConfig,
	)
	stop := context.AfterFunc(ctx, evm.Cancel)
	defer stop()

	ret, err := fn(evm, cfg)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("%T execution: %w", evm, ctxErr)
	}
	if err != nil {
		return ret, fmt.Errorf("%T execution from %v: %w", evm, cfg.From, revert.ErrFrom(ret, err))
	}

	if cfg.ReadOnly {
		return ret, nil
	}
	if err := c.commit(sdb); err != nil {
		return nil, err
	}
	return ret, nil
}

// commit writes sdb to the database and records the new root as the head.
// The caller MUST hold c.mu.
func (c *Chain) commit(sdb *state.StateDB) error {
	root, err := sdb.Commit(c.block, true)
	if err != nil {
		return fmt.Errorf("%T.Commit(): %w", sdb, err)
	}
	if err := c.states.TrieDB().Commit(root, false); err != nil {
		return fmt.Errorf("committing trie %v: %w", root, err)
	}
	if err := c.db.Put(headRootKey, root[:]); err != nil {
		return fmt.Errorf("%T.Put(head root): %w", c.db, err)
	}

	log.Trace("Committed state", "block", c.block, "root", root, "parent", c.root)
	c.root = root
	c.block++
	return nil
}

// newConfiguration returns the default Configuration for an execution against
// sdb, modified by the Options. The defaults MUST NOT be considered stable:
// they are currently such that code runs on the Cancun fork.
func (c *Chain) newConfiguration(sdb *state.StateDB, opts ...runopts.Option) (*runopts.Configuration, error) {
	zero := new(big.Int)
	from := runopts.DefaultFrom()

	cfg := &runopts.Configuration{
		BlockCtx: vm.BlockContext{
			CanTransfer: core.CanTransfer,
			Transfer:    core.Transfer,
			GetHash:     func(uint64) common.Hash { return common.Hash{} },
			GasLimit:    runopts.DefaultGasLimit,
			BlockNumber: new(big.Int).SetUint64(c.block),
			Difficulty:  zero,
			BaseFee:     zero,
			BlobBaseFee: zero,
			Random:      &common.Hash{}, // post merge
		},
		TxCtx: vm.TxContext{
			Origin:   from,
			GasPrice: zero,
		},
		StateDB: sdb,
		ChainConfig: &params.ChainConfig{
			ChainID:             big.NewInt(1337),
			HomesteadBlock:      zero,
			EIP150Block:         zero,
			EIP155Block:         zero,
			EIP158Block:         zero,
			ByzantiumBlock:      zero,
			ConstantinopleBlock: zero,
			PetersburgBlock:     zero,
			IstanbulBlock:       zero,
			BerlinBlock:         zero,
			LondonBlock:         zero,
			ShanghaiTime:        new(uint64),
			CancunTime:          new(uint64),
		},
		From:     from,
		Value:    new(uint256.Int),
		GasLimit: runopts.DefaultGasLimit,
	}
	for _, o := range opts {
		if err := o.Apply(cfg); err != nil {
			return nil, fmt.Errorf("runopts.Option[%T].Apply(): %w", o, err)
		}
	}
	return cfg, nil
}
