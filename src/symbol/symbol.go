// Package symbol provides interned names with O(1) comparison via a memoised hash. Creation is the
// only mutation; a Symbol is value-typed and safe to copy and use as a map key.
package symbol

import "hash/maphash"

// seed is shared by every Symbol created in the process so that two Symbols built from equal names
// always hash equal.
var seed = maphash.MakeSeed()

// Symbol is a globally interned name. Equality and hashing use the memoised hash; the debug name is
// kept only for diagnostics and is never consulted for comparison.
type Symbol struct {
	debugName string
	hash      uint64
}

// New creates a Symbol for name, computing and memoising its hash.
func New(name string) Symbol {
	return Symbol{debugName: name, hash: hashString(name)}
}

// Name returns the symbol's debug name, for diagnostics and printing only.
func (s Symbol) Name() string {
	return s.debugName
}

// Hash returns the symbol's memoised 64-bit hash.
func (s Symbol) Hash() uint64 {
	return s.hash
}

// Equal reports whether two symbols are the same name, comparing only the memoised hash.
func (s Symbol) Equal(other Symbol) bool {
	return s.hash == other.hash
}

// String implements fmt.Stringer, printing the symbol's debug name.
func (s Symbol) String() string {
	return s.debugName
}

// hashString computes a 64-bit hash of name using the process-wide seed.
func hashString(name string) uint64 {
	var h maphash.Hash
	h.SetSeed(seed)
	_, _ = h.WriteString(name)
	return h.Sum64()
}
