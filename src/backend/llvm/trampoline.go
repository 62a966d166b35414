// trampoline.go is the one FFI boundary this backend crosses: every operation compiled code cannot
// do with plain LLVM integer instructions (anything touching the heap: cons cells, vectors, strings,
// symbols, boxes, or the global table) is dispatched through a single extern function,
// __soft_trampoline(op, a, b, c) i64, that calls back into the exact soft/src/runtime functions
// src/interp/prim.go and intrinsics.go use. One opcode word plus three operand words keeps the
// extern function's C ABI fixed regardless of how many distinct operations it carries, the same way
// the teacher declares one fixed-shape extern per libc function it calls (genPrintf, genAtoi) rather
// than one per VSL builtin.
package llvm

import (
	"fmt"
	"reflect"
	"sync"
	"unsafe"

	"tinygo.org/x/go-llvm"

	"soft/src/frontend"
	"soft/src/interp"
	"soft/src/runtime"
	"soft/src/symbol"
)

type opcode uint64

const (
	opTruthy opcode = iota
	opEqual
	opNewString
	opNewSymbol
	opTypeOf
	opGlobalGet
	opGlobalSet
	opVecAlloc
	opVecGet
	opVecSet
	opVecLen
	opCons
	opHead
	opTail
	opBox
	opUnbox
	opBoxSet
)

const trampolineName = "__soft_trampoline"

var (
	trueWord  = runtime.True
	falseWord = runtime.False
	nilWord   = runtime.Nil
)

// stringTable holds every string/symbol literal this module's codegen has embedded, indexed by
// position; a compiled module only ever grows it at codegen time, never at run time, so the mutex
// only needs to guard the two-phase parallel declare/define passes racing on it.
var (
	stringTableMu sync.Mutex
	stringTable   []string
)

func internString(s string) int {
	stringTableMu.Lock()
	defer stringTableMu.Unlock()
	stringTable = append(stringTable, s)
	return len(stringTable) - 1
}

func stringAt(i int64) string {
	stringTableMu.Lock()
	defer stringTableMu.Unlock()
	return stringTable[i]
}

// declareRuntimeTrampoline adds the single extern function declaration every FFI call site in
// codegen.go/codegen_ops.go calls through.
func declareRuntimeTrampoline(m llvm.Module) {
	ftyp := llvm.FunctionType(word, []llvm.Type{word, word, word, word}, false)
	llvm.AddFunction(m, trampolineName, ftyp)
}

// activeEnv is the *interp.Environment a running JIT'd module dispatches opGlobalGet/opGlobalSet
// against. Safe as a package var because runJIT runs one module to completion before returning, the
// same single-module-at-a-time assumption GenLLVM's caller already makes.
var activeEnv *interp.Environment

// quoteConstant builds the runtime.Value a quoted literal denotes, entirely at codegen time: unlike
// the interpreter's quoteValue, it never has an env to evaluate an unquote against, so an unquote
// prefix inside compiled quoted data is rejected rather than silently treated as a no-op.
func quoteConstant(n frontend.Node) (runtime.Value, error) {
	if len(n.Prefixes) > 0 && n.Prefixes[0] == frontend.PrefixUnquote {
		return runtime.Nil, &UnsupportedTermError{Detail: "unquote inside compiled quoted data (only the interpreter evaluates unquote)"}
	}
	switch n.Type {
	case frontend.NodeNumber:
		return runtime.NewInt(int64(n.Number)), nil
	case frontend.NodeString:
		return runtime.NewString(n.Text), nil
	case frontend.NodeIdentifier:
		return runtime.RegisterSymbol(symbol.New(n.Text)), nil
	case frontend.NodeAtom:
		switch n.Text {
		case "true":
			return runtime.True, nil
		case "false":
			return runtime.False, nil
		default:
			return runtime.RegisterSymbol(symbol.New(n.Text)), nil
		}
	case frontend.NodeList:
		list := runtime.Nil
		for i := len(n.Children) - 1; i >= 0; i-- {
			elem, err := quoteConstant(n.Children[i])
			if err != nil {
				return runtime.Nil, err
			}
			list = runtime.NewCons(elem, list)
		}
		return list, nil
	default:
		return runtime.Nil, fmt.Errorf("llvm backend: unsupported quoted node type %v", n.Type)
	}
}

// dispatch is the Go-side implementation __soft_trampoline's address resolves to at JIT time: one
// opcode multiplexing every runtime operation compiled code needs, in exchange for a single,
// fixed-arity extern declaration.
func dispatch(op, a, b, c int64) int64 {
	switch opcode(op) {
	case opTruthy:
		if runtime.Value(a).Truthy() {
			return 1
		}
		return 0
	case opEqual:
		if runtime.Value(a).Equal(runtime.Value(b)) {
			return 1
		}
		return 0
	case opNewString:
		return int64(runtime.NewString(stringAt(a)))
	case opNewSymbol:
		return int64(runtime.RegisterSymbol(symbol.New(stringAt(a))))
	case opTypeOf:
		name := typeNames[runtime.Classify(runtime.Value(a)).Kind]
		return int64(runtime.RegisterSymbol(symbol.New(name)))
	case opGlobalGet:
		sym := symbol.New(stringAt(a))
		v, ok := activeEnv.GlobalValue(sym)
		if !ok {
			panic(&UnresolvedSymbolError{Name: sym.Name()})
		}
		return int64(v)
	case opGlobalSet:
		sym := symbol.New(stringAt(a))
		activeEnv.SetGlobal(sym, runtime.Value(b), false)
		return b
	case opVecAlloc:
		elems := make([]runtime.Value, a)
		for i := range elems {
			elems[i] = runtime.Nil
		}
		return int64(runtime.NewVector(elems))
	case opVecGet:
		return int64(runtime.Value(a).Get(int(b)))
	case opVecSet:
		runtime.Value(a).Set(int(b), runtime.Value(c))
		return c
	case opVecLen:
		return int64(runtime.NewInt(int64(runtime.Value(a).Len())))
	case opCons:
		return int64(runtime.NewCons(runtime.Value(a), runtime.Value(b)))
	case opHead:
		return int64(runtime.Value(a).Head())
	case opTail:
		return int64(runtime.Value(a).Tail())
	case opBox:
		return int64(runtime.NewVector([]runtime.Value{runtime.Value(a)}))
	case opUnbox:
		return int64(runtime.Value(a).Get(0))
	case opBoxSet:
		runtime.Value(a).Set(0, runtime.Value(b))
		return b
	default:
		panic(fmt.Sprintf("llvm backend: unknown trampoline opcode %d", op))
	}
}

// typeNames mirrors src/interp/prim.go's table: the JIT and the interpreter must agree on what
// type-of names.
var typeNames = map[runtime.Kind]string{
	runtime.KindInt:     "int",
	runtime.KindCons:    "cons",
	runtime.KindVector:  "vector",
	runtime.KindString:  "string",
	runtime.KindSymbol:  "symbol",
	runtime.KindClosure: "function",
	runtime.KindChar:    "char",
	runtime.KindBool:    "bool",
	runtime.KindNil:     "nil",
}

// runJIT creates an MCJIT execution engine over m, binds __soft_trampoline's declaration to dispatch
// and runs entry, printing its result the way the interpreter's own driver prints a top-level value.
//
// AddGlobalMapping takes the callback's entry address rather than a cgo-exported symbol, which only
// works because dispatch's signature (four fixed int64 words in, one word out) already matches the
// platform C ABI's first four integer-argument registers; this is the same no-cgo trampoline trick
// several pure-Go LLVM-binding projects use to call back into Go from jitted code.
func runJIT(m llvm.Module, entry llvm.Value, env *interp.Environment) error {
	if err := llvm.InitializeNativeTarget(); err != nil {
		return &ConfigError{Stage: "InitializeNativeTarget", Err: err}
	}
	if err := llvm.InitializeNativeAsmPrinter(); err != nil {
		return &ConfigError{Stage: "InitializeNativeAsmPrinter", Err: err}
	}

	engine, err := llvm.NewExecutionEngine(m)
	if err != nil {
		return &ConfigError{Stage: "NewExecutionEngine", Err: err}
	}
	defer engine.Dispose()

	trampolineFn := m.NamedFunction(trampolineName)
	engine.AddGlobalMapping(trampolineFn, unsafe.Pointer(reflect.ValueOf(dispatch).Pointer()))

	activeEnv = env
	defer func() { activeEnv = nil }()

	result := engine.RunFunction(entry, nil)
	v := runtime.Value(result.Int(word, false))
	fmt.Println(v.String())
	return nil
}
