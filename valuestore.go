// Package valuestore implements a contract that holds a single unsigned 32-bit
// integer, exposing two constructors and two messages:
//
//	new(initValue uint32)  // constructor
//	default()              // constructor, equivalent to new(0)
//	set(value uint32)      // overwrites the value in full
//	get() uint32           // returns the value
//
// The ValueStore type is the in-process form of the contract. The contract
// package provides the same contract as EVM bytecode, deployable to a
// host.Chain, and the two are observably equivalent.
//
// Calls to a single ValueStore MUST be serialised by the caller, as is
// guaranteed to deployed contracts by their execution environment.
package valuestore

// A ValueStore holds a single uint32. The zero value is equivalent to
// Default().
type ValueStore struct {
	value uint32
}

// New returns a ValueStore holding initValue.
func New(initValue uint32) *ValueStore {
	return &ValueStore{value: initValue}
}

// Default returns a ValueStore holding zero.
func Default() *ValueStore {
	return New(0)
}

// Set replaces the stored value.
func (s *ValueStore) Set(value uint32) {
	s.value = value
}

// Get returns the stored value.
func (s *ValueStore) Get() uint32 {
	return s.value
}
