// eval.go is the tree-walking evaluator (C8): it turns a closure-converted ir.Term into a
// runtime.Value. Self- and mutually-tail-recursive calls are driven through a trampoline so that an
// unbounded tail loop consumes a bounded number of Go stack frames, matching the Eval/Return
// state-machine original_source/soft-interpreter/src/eval.rs builds (Trampoline::Eval /
// Trampoline::Return / Trampoline::EvalPop) — reshaped here around a single pendingCall token
// rather than a three-variant enum, since this tree's closure conversion already guarantees that
// the only thing a tail position can hand back to its driver is "apply this closure to these
// already-evaluated arguments".
package interp

import (
	"fmt"

	"soft/src/frontend"
	"soft/src/ir"
	"soft/src/runtime"
	"soft/src/symbol"
)

// pendingCall is the trampoline's bounce token: "apply this closure to these arguments next",
// produced only by a Call in tail position.
type pendingCall struct {
	closure runtime.Value
	args    []runtime.Value
}

// Eval fully evaluates t, trampolining through any tail calls t makes. This is the only entry point
// callers outside this package need; evalStep is the internal one-step relation it drives.
func Eval(t ir.Term, env *Environment) (runtime.Value, error) {
	cur := t
	pushedOwn := false
	for {
		val, tail, err := evalStep(cur, env)
		if err != nil {
			if pushedOwn {
				env.PopFrame()
			}
			return runtime.Nil, err
		}
		if tail == nil {
			if pushedOwn {
				env.PopFrame()
			}
			return val, nil
		}
		body, err := enterCall(tail.closure, tail.args, env, pushedOwn)
		if err != nil {
			if pushedOwn {
				env.PopFrame()
			}
			return runtime.Nil, err
		}
		pushedOwn = true
		cur = body
	}
}

// enterCall validates the call's arity, replaces the trampoline's own frame (if it had already
// pushed one for an earlier tail call in this same chain) and returns the callee's body to continue
// evaluating. A closure whose Code is not an *ir.Lambda is a builtin wrapped to look callable but
// which never itself produces a tail call (see intrinsics.go), so enterCall only ever sees lambdas.
func enterCall(closure runtime.Value, args []runtime.Value, env *Environment, replace bool) (ir.Term, error) {
	lam, ok := closure.Code().(*ir.Lambda)
	if !ok {
		return nil, &NotCallableError{Value: closure}
	}
	params := lam.Def.Parameters
	if lam.Def.Variadic {
		if len(args) < len(params)-1 {
			return nil, &WrongArityError{Want: len(params) - 1, Got: len(args)}
		}
	} else if len(args) != len(params) {
		return nil, &WrongArityError{Want: len(params), Got: len(args)}
	}

	if replace {
		env.PopFrame()
	}
	env.PushFrame(closure.Env())
	bindParams(env, params, lam.Def.Variadic, args)
	return lam.Def.Body, nil
}

// Apply invokes closure against already-evaluated arguments, trampolining any tail call the same
// way Eval does for an ordinary ir.Call. Used by the macro expander (to run a macro's transformer)
// and by host interop, neither of which has an ir.Call term to evaluate.
func Apply(closure runtime.Value, args []runtime.Value, env *Environment) (runtime.Value, error) {
	if !closure.IsClosure() {
		return runtime.Nil, &NotCallableError{Value: closure}
	}
	if builtin, ok := closure.Code().(Builtin); ok {
		return builtin(args, env)
	}
	body, err := enterCall(closure, args, env, false)
	if err != nil {
		return runtime.Nil, err
	}
	defer env.PopFrame()
	return Eval(body, env)
}

func bindParams(env *Environment, params []symbol.Symbol, variadic bool, args []runtime.Value) {
	fixed := len(params)
	if variadic {
		fixed--
	}
	for i := 0; i < fixed; i++ {
		env.Bind(params[i], args[i])
	}
	if variadic {
		rest := runtime.Nil
		for i := len(args) - 1; i >= fixed; i-- {
			rest = runtime.NewCons(args[i], rest)
		}
		env.Bind(params[fixed], rest)
	}
}

// evalStep evaluates t one step. A non-nil pendingCall means t ended in a tail call that still
// needs applying; the value return is meaningless in that case.
func evalStep(t ir.Term, env *Environment) (runtime.Value, *pendingCall, error) {
	switch n := t.(type) {
	case *ir.Atom:
		return runtime.RegisterSymbol(symbol.New(n.Name)), nil, nil
	case *ir.Number:
		return runtime.NewInt(int64(n.Value)), nil, nil
	case *ir.StringLit:
		return runtime.NewString(n.Value), nil, nil
	case *ir.Bool:
		return runtime.NewBool(n.Value), nil, nil
	case *ir.Quote:
		v, err := quoteValue(n.Datum, env)
		return v, nil, err
	case *ir.Variable:
		v, err := evalVariable(n, env)
		return v, nil, err
	case *ir.Let:
		return evalLet(n, env)
	case *ir.Set:
		v, err := Eval(n.Value, env)
		if err != nil {
			return runtime.Nil, nil, err
		}
		env.SetGlobal(n.Sym, v, n.IsMacro)
		return v, nil, nil
	case *ir.Lambda:
		// A bare Lambda only reaches here if closure conversion never ran over it (e.g. a term
		// built directly by a test); treat it as capturing nothing.
		return runtime.NewClosure(nil, n), nil, nil
	case *ir.Block:
		return evalBlock(n, env)
	case *ir.If:
		cond, err := Eval(n.Cond, env)
		if err != nil {
			return runtime.Nil, nil, err
		}
		if cond.Truthy() {
			return evalStep(n.Then, env)
		}
		return evalStep(n.Else, env)
	case *ir.Operation:
		v, err := evalOperation(n, env)
		return v, nil, err
	case *ir.Call:
		return evalCall(n, env)
	case *ir.Prim:
		v, err := evalPrim(n, env)
		return v, nil, err
	case *ir.Try:
		return evalTry(n, env)
	case *ir.Throw:
		v, err := evalThrow(n, env)
		return v, nil, err
	default:
		return runtime.Nil, nil, fmt.Errorf("interp: unhandled term %T", t)
	}
}

// evalTry runs n.Body with the current frame marked catching (see environment.go's EnableCatching)
// and, on failure, binds the resulting error value to n.CatchSym and evaluates n.CatchBody in its
// place. Catches any error Body raises, not only a thrown *UserError: resolution and shape errors
// (undefined name, wrong arity, malformed operand, ...) are recoverable here too, not just
// explicitly thrown values.
func evalTry(n *ir.Try, env *Environment) (runtime.Value, *pendingCall, error) {
	if n.Malformed {
		return runtime.Nil, nil, &CatchRequiresTwoArgsError{}
	}
	prev := env.EnableCatching()
	val, err := Eval(n.Body, env)
	if err == nil {
		env.SetCatching(prev)
		return val, nil, nil
	}
	env.Unwind()
	env.SetCatching(prev)
	env.Bind(n.CatchSym, caughtErrorValue(err))
	v, cerr := Eval(n.CatchBody, env)
	return v, nil, cerr
}

// caughtErrorValue renders a Go error into the two-element soft/error vector err?/err/message
// expect, preserving the original thrown value for a UserError rather than restringifying it.
func caughtErrorValue(err error) runtime.Value {
	msg := runtime.NewString(err.Error())
	if ue, ok := err.(*UserError); ok {
		msg = ue.Value
	}
	return runtime.NewVector([]runtime.Value{errorTag, msg})
}

func evalThrow(n *ir.Throw, env *Environment) (runtime.Value, error) {
	v, err := Eval(n.Value, env)
	if err != nil {
		return runtime.Nil, err
	}
	return runtime.Nil, &UserError{Value: v}
}

func evalVariable(v *ir.Variable, env *Environment) (runtime.Value, error) {
	switch v.Kind {
	case ir.VarLocal:
		if val, ok := env.Local(v.Sym); ok {
			return val, nil
		}
		return runtime.Nil, &UndefinedNameError{Name: v.Sym.Name()}
	case ir.VarEnv:
		if val, ok := env.EnvSlot(v.Index); ok {
			return val, nil
		}
		return runtime.Nil, &UndefinedNameError{Name: v.Sym.Name()}
	default: // VarGlobal
		if d, ok := env.Global(v.Sym); ok {
			return d.value, nil
		}
		return runtime.Nil, &UndefinedNameError{Name: v.Sym.Name()}
	}
}

func evalLet(n *ir.Let, env *Environment) (runtime.Value, *pendingCall, error) {
	type shadowed struct {
		sym symbol.Symbol
		v   runtime.Value
	}
	var prior []shadowed
	defer func() {
		for i := len(prior) - 1; i >= 0; i-- {
			env.Bind(prior[i].sym, prior[i].v)
		}
	}()
	for _, b := range n.Bindings {
		v, err := Eval(b.Value, env)
		if err != nil {
			return runtime.Nil, nil, err
		}
		if old, ok := env.Local(b.Sym); ok {
			prior = append(prior, shadowed{sym: b.Sym, v: old})
		}
		env.Bind(b.Sym, v)
	}
	return evalStep(n.Body, env)
}

func evalBlock(n *ir.Block, env *Environment) (runtime.Value, *pendingCall, error) {
	if len(n.Body) == 0 {
		return runtime.Nil, nil, nil
	}
	for _, s := range n.Body[:len(n.Body)-1] {
		if _, err := Eval(s, env); err != nil {
			return runtime.Nil, nil, err
		}
	}
	return evalStep(n.Body[len(n.Body)-1], env)
}

func evalCall(n *ir.Call, env *Environment) (runtime.Value, *pendingCall, error) {
	fn, err := Eval(n.Fun, env)
	if err != nil {
		return runtime.Nil, nil, err
	}
	if !fn.IsClosure() {
		return runtime.Nil, nil, &NotCallableError{Value: fn}
	}
	args := make([]runtime.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := Eval(a, env)
		if err != nil {
			return runtime.Nil, nil, err
		}
		args[i] = v
	}
	if builtin, ok := fn.Code().(Builtin); ok {
		v, err := builtin(args, env)
		return v, nil, err
	}
	return runtime.Nil, &pendingCall{closure: fn, args: args}, nil
}

// quoteValue converts a raw reader datum into the runtime value a (quote ...) form produces. A
// sub-datum prefixed with unquote is not treated as data: it is specialized and evaluated against
// env right there, and its result spliced into the structure being built — there is no separate
// quasiquote syntax, so this is the only place an unquote prefix is ever honored (see
// ir.specializePrefixed, which treats a top-level unquote as a no-op outside of quoted data).
func quoteValue(n frontend.Node, env *Environment) (runtime.Value, error) {
	if len(n.Prefixes) > 0 && n.Prefixes[0] == frontend.PrefixUnquote {
		rest := n
		rest.Prefixes = n.Prefixes[1:]
		return Eval(ir.Specialize(ir.NewCtx(), rest), env)
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
			elem, err := quoteValue(n.Children[i], env)
			if err != nil {
				return runtime.Nil, err
			}
			list = runtime.NewCons(elem, list)
		}
		return list, nil
	default:
		return runtime.Nil, nil
	}
}
