// value.go implements the constructors and accessors for every runtime value variant, and the
// classify/equal operations the interpreter and backend contract both rely on.

package runtime

import "soft/src/symbol"

// NewInt tags a signed integer. Only the low 61 bits of n are representable; the top three bits are
// shifted out by the tag.
func NewInt(n int64) Value {
	return Value(uint64(n)<<3) | Value(TagInt)
}

// Int untags v as a signed integer, arithmetic-shifting the payload back into range.
func (v Value) Int() int64 {
	return int64(v) >> 3
}

// NewCons allocates a cons cell and tags it.
func NewCons(head, tail Value) Value {
	id := heap.alloc(&consCell{head: head, tail: tail})
	return Value(id<<3) | Value(TagCons)
}

func (v Value) cons() *consCell {
	return heap.get(idOf(v)).(*consCell)
}

// Head returns the head of a cons cell.
func (v Value) Head() Value { return v.cons().head }

// Tail returns the tail of a cons cell.
func (v Value) Tail() Value { return v.cons().tail }

// NewVector allocates a vector from elems, copying the slice.
func NewVector(elems []Value) Value {
	data := append([]Value(nil), elems...)
	id := heap.alloc(&vectorObj{data: data})
	return Value(id<<3) | Value(TagVector)
}

func (v Value) vector() *vectorObj {
	return heap.get(idOf(v)).(*vectorObj)
}

// Len returns a vector's element count.
func (v Value) Len() int { return len(v.vector().data) }

// Get returns a vector's i-th element.
func (v Value) Get(i int) Value { return v.vector().data[i] }

// Set destructively replaces a vector's i-th element.
func (v Value) Set(i int, elem Value) { v.vector().data[i] = elem }

// NewString allocates a string.
func NewString(s string) Value {
	id := heap.alloc(&stringObj{s: s})
	return Value(id<<3) | Value(TagString)
}

func (v Value) str() *stringObj {
	return heap.get(idOf(v)).(*stringObj)
}

// Str returns a string value's contents.
func (v Value) Str() string { return v.str().s }

// NewSymbol tags a Symbol by its memoised hash, with the low 3 bits overwritten by the tag.
func NewSymbol(s symbol.Symbol) Value {
	return Value(s.Hash()&^0b111) | Value(TagSymbol)
}

// symbolHashes lets the interpreter recover a debug name for a tagged symbol; the tag itself
// carries only the hash, so the global symbol table is consulted to print one.
var symbolHashes = map[uint64]symbol.Symbol{}

// RegisterSymbol records s so that a later Value carrying its hash can be displayed by name.
func RegisterSymbol(s symbol.Symbol) Value {
	symbolHashes[s.Hash()&^0b111] = s
	return NewSymbol(s)
}

// SymbolHash returns the masked hash carried by a tagged symbol value.
func (v Value) SymbolHash() uint64 {
	return uint64(v) &^ 0b111
}

// Symbol recovers the original symbol.Symbol behind a tagged symbol value, if it was ever passed to
// RegisterSymbol. Used by the macro expander to read a symbol value back out as a name.
func (v Value) Symbol() (symbol.Symbol, bool) {
	s, ok := symbolHashes[v.SymbolHash()]
	return s, ok
}

// NewClosure allocates a closure with the given captured environment and opaque code payload.
func NewClosure(env []Value, code interface{}) Value {
	id := heap.alloc(&closureObj{env: append([]Value(nil), env...), code: code})
	return Value(id<<3) | Value(TagClosure)
}

func (v Value) closure() *closureObj {
	return heap.get(idOf(v)).(*closureObj)
}

// Env returns a closure's captured environment vector.
func (v Value) Env() []Value { return v.closure().env }

// Code returns a closure's opaque code payload, as set by NewClosure.
func (v Value) Code() interface{} { return v.closure().code }

// NewChar tags a UTF-32 code point.
func NewChar(r rune) Value {
	return Value(uint64(r)<<32) | Value(subtagChar)
}

// Char untags v as a rune.
func (v Value) Char() rune {
	return rune(uint64(v) >> 32)
}

var (
	// True is the canonical tagged boolean true.
	True = Value(subtagBool) | Value(boolValueBit)
	// False is the canonical tagged boolean false.
	False = Value(subtagBool)
	// Nil is the canonical tagged nil value.
	Nil = Value(subtagNil)
)

// NewBool tags b as a boolean.
func NewBool(b bool) Value {
	if b {
		return True
	}
	return False
}

// Bool untags v as a boolean.
func (v Value) Bool() bool {
	return uint64(v)&boolValueBit != 0
}

// Free removes v's own heap object from the arena, releasing its payload with it: a vector's backing
// array, a string's buffer, or a closure's environment vector. It does not recurse: the Values a
// vector or cons cell holds are left untouched, since they are independently owned.
func (v Value) Free() {
	switch v.tag() {
	case TagCons:
		heap.free(idOf(v))
	case TagVector:
		heap.free(idOf(v))
	case TagString:
		heap.free(idOf(v))
	case TagClosure:
		heap.free(idOf(v))
	}
}

// Equal implements the runtime's equality rule: raw-bit comparison for immediates and pointer
// identity for heap objects, except strings, integers and symbols, which compare by value.
func (v Value) Equal(other Value) bool {
	if v.tag() != other.tag() {
		return false
	}
	switch v.tag() {
	case TagInt:
		return v.Int() == other.Int()
	case TagString:
		return v.Str() == other.Str()
	case TagSymbol:
		return v.SymbolHash() == other.SymbolHash()
	default:
		return v == other
	}
}
