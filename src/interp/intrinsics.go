// intrinsics.go installs the global closures available to every program: type predicates, string
// operations, coercions, error inspection and host interop. Unlike the Prim-lowered structural
// operators in prim.go, these are ordinary global bindings reached through an *ir.Call like any
// user-defined function — RegisterIntrinsics just pre-populates the environment's global table with
// runtime.Value closures whose Code is a Builtin rather than an *ir.Lambda.
package interp

import (
	"fmt"
	"plugin"
	"reflect"
	"strings"

	"soft/src/runtime"
	"soft/src/symbol"
)

// Builtin is a host-implemented closure body. enterCall never sees one: evalCall invokes a Builtin
// directly and never trampolines into it, since a builtin by construction cannot make a tail call
// back into interpreted code that needs bouncing through Eval's driver loop.
type Builtin func(args []runtime.Value, env *Environment) (runtime.Value, error)

func installBuiltin(env *Environment, name string, fn Builtin) {
	sym := symbol.New(name)
	env.SetGlobal(sym, runtime.NewClosure(nil, fn), false)
}

// RegisterIntrinsics installs the full built-in surface into env's global table. Called once by the
// driver (src/main.go) before reading the program.
func RegisterIntrinsics(env *Environment) {
	installPredicates(env)
	installStrings(env)
	installCoercions(env)
	installConstructors(env)
	installErrors(env)
	installFFI(env)
	installImport(env)
}

func arity(name string, args []runtime.Value, want int) error {
	if len(args) != want {
		return fmt.Errorf("%s: expected %d argument(s), got %d", name, want, len(args))
	}
	return nil
}

func installPredicates(env *Environment) {
	pred := func(name string, test func(runtime.Value) bool) {
		installBuiltin(env, name, func(args []runtime.Value, _ *Environment) (runtime.Value, error) {
			if err := arity(name, args, 1); err != nil {
				return runtime.Nil, err
			}
			return runtime.NewBool(test(args[0])), nil
		})
	}
	pred("cons?", runtime.Value.IsCons)
	pred("nil?", runtime.Value.IsNil)
	pred("vec?", runtime.Value.IsVector)
	pred("int?", runtime.Value.IsInt)
	pred("atom?", runtime.Value.IsSymbol)
	pred("function?", runtime.Value.IsClosure)
	pred("char?", runtime.Value.IsChar)
	pred("bool?", runtime.Value.IsBool)
	pred("string?", runtime.Value.IsString)
	pred("err?", func(v runtime.Value) bool {
		return v.IsVector() && v.Len() == 2 && v.Get(0).IsSymbol() && v.Get(0).Equal(errorTag)
	})
}

func installStrings(env *Environment) {
	installBuiltin(env, "string/len", func(args []runtime.Value, _ *Environment) (runtime.Value, error) {
		if err := arity("string/len", args, 1); err != nil {
			return runtime.Nil, err
		}
		if !args[0].IsString() {
			return runtime.Nil, &MalformedPrimError{Op: "string/len", Got: args[0]}
		}
		return runtime.NewInt(int64(len(args[0].Str()))), nil
	})
	installBuiltin(env, "string/concat", func(args []runtime.Value, _ *Environment) (runtime.Value, error) {
		var sb strings.Builder
		for _, a := range args {
			if !a.IsString() {
				return runtime.Nil, &MalformedPrimError{Op: "string/concat", Got: a}
			}
			sb.WriteString(a.Str())
		}
		return runtime.NewString(sb.String()), nil
	})
	installBuiltin(env, "string/slice", func(args []runtime.Value, _ *Environment) (runtime.Value, error) {
		if err := arity("string/slice", args, 3); err != nil {
			return runtime.Nil, err
		}
		s, from, to := args[0], args[1], args[2]
		if !s.IsString() || !from.IsInt() || !to.IsInt() {
			return runtime.Nil, &MalformedPrimError{Op: "string/slice", Got: s}
		}
		str := s.Str()
		i, j := int(from.Int()), int(to.Int())
		if i < 0 || j > len(str) || i > j {
			return runtime.Nil, &MalformedPrimError{Op: "string/slice", Got: from}
		}
		return runtime.NewString(str[i:j]), nil
	})
	installBuiltin(env, "string/get", func(args []runtime.Value, _ *Environment) (runtime.Value, error) {
		if err := arity("string/get", args, 2); err != nil {
			return runtime.Nil, err
		}
		s, idx := args[0], args[1]
		if !s.IsString() || !idx.IsInt() {
			return runtime.Nil, &MalformedPrimError{Op: "string/get", Got: s}
		}
		runes := []rune(s.Str())
		i := int(idx.Int())
		if i < 0 || i >= len(runes) {
			return runtime.Nil, &MalformedPrimError{Op: "string/get", Got: idx}
		}
		return runtime.NewChar(runes[i]), nil
	})
	installBuiltin(env, "string/contains?", func(args []runtime.Value, _ *Environment) (runtime.Value, error) {
		if err := arity("string/contains?", args, 2); err != nil {
			return runtime.Nil, err
		}
		s, sub := args[0], args[1]
		if !s.IsString() || !sub.IsString() {
			return runtime.Nil, &MalformedPrimError{Op: "string/contains?", Got: s}
		}
		return runtime.NewBool(strings.Contains(s.Str(), sub.Str())), nil
	})
	installBuiltin(env, "string/split", func(args []runtime.Value, _ *Environment) (runtime.Value, error) {
		if err := arity("string/split", args, 2); err != nil {
			return runtime.Nil, err
		}
		s, sep := args[0], args[1]
		if !s.IsString() || !sep.IsString() {
			return runtime.Nil, &MalformedPrimError{Op: "string/split", Got: s}
		}
		parts := strings.Split(s.Str(), sep.Str())
		list := runtime.Nil
		for i := len(parts) - 1; i >= 0; i-- {
			list = runtime.NewCons(runtime.NewString(parts[i]), list)
		}
		return list, nil
	})
}

func installCoercions(env *Environment) {
	installBuiltin(env, "to-string", func(args []runtime.Value, _ *Environment) (runtime.Value, error) {
		if err := arity("to-string", args, 1); err != nil {
			return runtime.Nil, err
		}
		return runtime.NewString(args[0].String()), nil
	})
	installBuiltin(env, "to-int", func(args []runtime.Value, _ *Environment) (runtime.Value, error) {
		if err := arity("to-int", args, 1); err != nil {
			return runtime.Nil, err
		}
		v := args[0]
		switch {
		case v.IsInt():
			return v, nil
		case v.IsChar():
			return runtime.NewInt(int64(v.Char())), nil
		case v.IsBool():
			if v.Bool() {
				return runtime.NewInt(1), nil
			}
			return runtime.NewInt(0), nil
		default:
			return runtime.Nil, &MalformedPrimError{Op: "to-int", Got: v}
		}
	})
	installBuiltin(env, "to-atom", func(args []runtime.Value, _ *Environment) (runtime.Value, error) {
		if err := arity("to-atom", args, 1); err != nil {
			return runtime.Nil, err
		}
		v := args[0]
		if !v.IsString() {
			return runtime.Nil, &MalformedPrimError{Op: "to-atom", Got: v}
		}
		return runtime.RegisterSymbol(symbol.New(v.Str())), nil
	})
}

// installConstructors exposes the variadic cons-list builder. cons/head/tail/vec!/box are already
// lowered to Prim forms by the specializer (src/ir/specialize.go) since they have fixed arity known
// at specialize time; list is the one core constructor left over because it takes any number of
// arguments and so can only be an ordinary global closure evaluating its args at call time, the way
// a user-defined variadic function would.
func installConstructors(env *Environment) {
	installBuiltin(env, "list", func(args []runtime.Value, _ *Environment) (runtime.Value, error) {
		result := runtime.Nil
		for i := len(args) - 1; i >= 0; i-- {
			result = runtime.NewCons(args[i], result)
		}
		return result, nil
	})
}

// errorTag marks the first slot of an error's two-element vector representation, distinguishing a
// thrown error from an ordinary vector for err? and err/message.
var errorTag = runtime.NewSymbol(symbol.New("soft/error"))

func installErrors(env *Environment) {
	installBuiltin(env, "err/message", func(args []runtime.Value, _ *Environment) (runtime.Value, error) {
		if err := arity("err/message", args, 1); err != nil {
			return runtime.Nil, err
		}
		v := args[0]
		if !v.IsVector() || v.Len() != 2 {
			return runtime.Nil, &MalformedPrimError{Op: "err/message", Got: v}
		}
		return v.Get(1), nil
	})
	installBuiltin(env, "err/print-stack", func(args []runtime.Value, _ *Environment) (runtime.Value, error) {
		if err := arity("err/print-stack", args, 1); err != nil {
			return runtime.Nil, err
		}
		fmt.Println(args[0].String())
		return runtime.Nil, nil
	})
}

// installFFI exposes the host plugin loader: ffi/open loads a Go plugin by path, ffi/get resolves an
// exported symbol inside it to a callable closure, and ffi/apply invokes it with reflect, converting
// between runtime.Value and whatever Go types the exported function declares.
func installFFI(env *Environment) {
	installBuiltin(env, "ffi/open", func(args []runtime.Value, _ *Environment) (runtime.Value, error) {
		if err := arity("ffi/open", args, 1); err != nil {
			return runtime.Nil, err
		}
		if !args[0].IsString() {
			return runtime.Nil, &MalformedPrimError{Op: "ffi/open", Got: args[0]}
		}
		p, err := plugin.Open(args[0].Str())
		if err != nil {
			return runtime.Nil, err
		}
		handle := runtime.NewVector([]runtime.Value{runtime.NewString(args[0].Str())})
		ffiHandles[handle] = p
		return handle, nil
	})
	installBuiltin(env, "ffi/get", func(args []runtime.Value, _ *Environment) (runtime.Value, error) {
		if err := arity("ffi/get", args, 2); err != nil {
			return runtime.Nil, err
		}
		handle, name := args[0], args[1]
		if !name.IsString() {
			return runtime.Nil, &MalformedPrimError{Op: "ffi/get", Got: name}
		}
		p, ok := ffiHandles[handle]
		if !ok {
			return runtime.Nil, &MalformedPrimError{Op: "ffi/get", Got: handle}
		}
		sym, err := p.Lookup(name.Str())
		if err != nil {
			return runtime.Nil, err
		}
		return runtime.NewClosure(nil, Builtin(func(args []runtime.Value, _ *Environment) (runtime.Value, error) {
			return callReflected(sym, args)
		})), nil
	})
	installBuiltin(env, "ffi/apply", func(args []runtime.Value, _ *Environment) (runtime.Value, error) {
		if len(args) < 1 {
			return runtime.Nil, fmt.Errorf("ffi/apply: expected at least one argument")
		}
		fn := args[0]
		if !fn.IsClosure() {
			return runtime.Nil, &NotCallableError{Value: fn}
		}
		builtin, ok := fn.Code().(Builtin)
		if !ok {
			return runtime.Nil, &NotCallableError{Value: fn}
		}
		return builtin(args[1:], nil)
	})
}

// ffiHandles maps the vector returned by ffi/open back to the loaded plugin; the vector merely
// carries the originating path so an opened handle prints meaningfully.
var ffiHandles = map[runtime.Value]*plugin.Plugin{}

// callReflected invokes a host function looked up through ffi/get via reflection, converting
// runtime.Value arguments to the function's declared parameter types and its single result back to
// a runtime.Value. Only integer, string, and bool parameter/result types are supported.
func callReflected(sym plugin.Symbol, args []runtime.Value) (runtime.Value, error) {
	fn := reflect.ValueOf(sym)
	if fn.Kind() != reflect.Func {
		return runtime.Nil, fmt.Errorf("ffi: exported symbol is not a function")
	}
	if fn.Type().NumIn() != len(args) {
		return runtime.Nil, fmt.Errorf("ffi: expected %d arguments, got %d", fn.Type().NumIn(), len(args))
	}
	in := make([]reflect.Value, len(args))
	for i, a := range args {
		switch {
		case a.IsInt():
			in[i] = reflect.ValueOf(a.Int()).Convert(fn.Type().In(i))
		case a.IsString():
			in[i] = reflect.ValueOf(a.Str())
		case a.IsBool():
			in[i] = reflect.ValueOf(a.Bool())
		default:
			return runtime.Nil, fmt.Errorf("ffi: unsupported argument kind for host call")
		}
	}
	out := fn.Call(in)
	if len(out) == 0 {
		return runtime.Nil, nil
	}
	switch v := out[0].Interface().(type) {
	case int, int64, int32:
		return runtime.NewInt(reflect.ValueOf(v).Int()), nil
	case string:
		return runtime.NewString(v), nil
	case bool:
		return runtime.NewBool(v), nil
	default:
		return runtime.Nil, fmt.Errorf("ffi: unsupported host return type")
	}
}
