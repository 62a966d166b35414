// prim.go evaluates ir.Prim, the structural primitives the specializer lowers directly from surface
// syntax (cons/vec/box operations, type-of, get-env, and the closure-conversion-introduced
// create-closure) rather than leaving them as ordinary global calls. The broader intrinsics surface
// (predicates, string operations, coercions, FFI) is built on top of these as plain Builtin closures
// in intrinsics.go instead of growing this set further.
package interp

import (
	"soft/src/ir"
	"soft/src/runtime"
	"soft/src/symbol"
)

func evalPrim(n *ir.Prim, env *Environment) (runtime.Value, error) {
	switch n.Kind {
	case ir.PrimNil:
		return runtime.Nil, nil
	case ir.PrimTypeOf:
		return evalTypeOf(n, env)
	case ir.PrimVec:
		return evalVecLit(n, env)
	case ir.PrimCons:
		return evalCons(n, env)
	case ir.PrimHead:
		return evalHead(n, env)
	case ir.PrimTail:
		return evalTail(n, env)
	case ir.PrimVecIndex:
		return evalVecIndex(n, env)
	case ir.PrimVecLength:
		return evalVecLength(n, env)
	case ir.PrimVecSet:
		return evalVecSet(n, env)
	case ir.PrimBox:
		return evalBox(n, env)
	case ir.PrimUnbox:
		return evalUnbox(n, env)
	case ir.PrimBoxSet:
		return evalBoxSet(n, env)
	case ir.PrimGetEnv:
		return evalGetEnv(n, env)
	case ir.PrimCreateClosure:
		return evalCreateClosure(n, env)
	default:
		return runtime.Nil, &MalformedPrimError{Op: "prim", Got: runtime.Nil}
	}
}

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

func evalTypeOf(n *ir.Prim, env *Environment) (runtime.Value, error) {
	v, err := Eval(n.Operand, env)
	if err != nil {
		return runtime.Nil, err
	}
	name := typeNames[runtime.Classify(v).Kind]
	return runtime.RegisterSymbol(symbol.New(name)), nil
}

func evalVecLit(n *ir.Prim, env *Environment) (runtime.Value, error) {
	elems := make([]runtime.Value, len(n.Elems))
	for i, e := range n.Elems {
		v, err := Eval(e, env)
		if err != nil {
			return runtime.Nil, err
		}
		elems[i] = v
	}
	return runtime.NewVector(elems), nil
}

func evalCons(n *ir.Prim, env *Environment) (runtime.Value, error) {
	head, err := Eval(n.Operand, env)
	if err != nil {
		return runtime.Nil, err
	}
	tail, err := Eval(n.Operand2, env)
	if err != nil {
		return runtime.Nil, err
	}
	return runtime.NewCons(head, tail), nil
}

func evalHead(n *ir.Prim, env *Environment) (runtime.Value, error) {
	v, err := Eval(n.Operand, env)
	if err != nil {
		return runtime.Nil, err
	}
	if !v.IsCons() {
		return runtime.Nil, &MalformedPrimError{Op: "head", Got: v}
	}
	return v.Head(), nil
}

func evalTail(n *ir.Prim, env *Environment) (runtime.Value, error) {
	v, err := Eval(n.Operand, env)
	if err != nil {
		return runtime.Nil, err
	}
	if !v.IsCons() {
		return runtime.Nil, &MalformedPrimError{Op: "tail", Got: v}
	}
	return v.Tail(), nil
}

func evalVecIndex(n *ir.Prim, env *Environment) (runtime.Value, error) {
	vec, err := Eval(n.Operand, env)
	if err != nil {
		return runtime.Nil, err
	}
	idx, err := Eval(n.Operand2, env)
	if err != nil {
		return runtime.Nil, err
	}
	if !vec.IsVector() || !idx.IsInt() {
		return runtime.Nil, &MalformedPrimError{Op: "vec/get", Got: vec}
	}
	i := int(idx.Int())
	if i < 0 || i >= vec.Len() {
		return runtime.Nil, &MalformedPrimError{Op: "vec/get", Got: idx}
	}
	return vec.Get(i), nil
}

func evalVecLength(n *ir.Prim, env *Environment) (runtime.Value, error) {
	vec, err := Eval(n.Operand, env)
	if err != nil {
		return runtime.Nil, err
	}
	if !vec.IsVector() {
		return runtime.Nil, &MalformedPrimError{Op: "vec/len", Got: vec}
	}
	return runtime.NewInt(int64(vec.Len())), nil
}

func evalVecSet(n *ir.Prim, env *Environment) (runtime.Value, error) {
	vec, err := Eval(n.Operand, env)
	if err != nil {
		return runtime.Nil, err
	}
	idx, err := Eval(n.Operand2, env)
	if err != nil {
		return runtime.Nil, err
	}
	val, err := Eval(n.Operand3, env)
	if err != nil {
		return runtime.Nil, err
	}
	if !vec.IsVector() || !idx.IsInt() {
		return runtime.Nil, &MalformedPrimError{Op: "vec/set!", Got: vec}
	}
	i := int(idx.Int())
	if i < 0 || i >= vec.Len() {
		return runtime.Nil, &MalformedPrimError{Op: "vec/set!", Got: idx}
	}
	vec.Set(i, val)
	return val, nil
}

// evalBox and evalUnbox/evalBoxSet represent a mutable box as a length-one vector: boxing has no
// dedicated heap tag of its own, and a vector cell already gives us a mutable single slot.
func evalBox(n *ir.Prim, env *Environment) (runtime.Value, error) {
	v, err := Eval(n.Operand, env)
	if err != nil {
		return runtime.Nil, err
	}
	return runtime.NewVector([]runtime.Value{v}), nil
}

func evalUnbox(n *ir.Prim, env *Environment) (runtime.Value, error) {
	v, err := Eval(n.Operand, env)
	if err != nil {
		return runtime.Nil, err
	}
	if !v.IsVector() || v.Len() != 1 {
		return runtime.Nil, &MalformedPrimError{Op: "unbox", Got: v}
	}
	return v.Get(0), nil
}

func evalBoxSet(n *ir.Prim, env *Environment) (runtime.Value, error) {
	box, err := Eval(n.Operand, env)
	if err != nil {
		return runtime.Nil, err
	}
	val, err := Eval(n.Operand2, env)
	if err != nil {
		return runtime.Nil, err
	}
	if !box.IsVector() || box.Len() != 1 {
		return runtime.Nil, &MalformedPrimError{Op: "box-set!", Got: box}
	}
	box.Set(0, val)
	return val, nil
}

func evalGetEnv(n *ir.Prim, env *Environment) (runtime.Value, error) {
	d, ok := env.Global(n.EnvSym)
	if !ok {
		return runtime.Nil, &UndefinedNameError{Name: n.EnvSym.Name()}
	}
	return d.value, nil
}

// evalCreateClosure builds the runtime closure a Lambda specializes to once closure conversion has
// run: each capture is evaluated against the environment active at closure-creation time, in
// first-appearance order, becoming the new closure's environment vector.
func evalCreateClosure(n *ir.Prim, env *Environment) (runtime.Value, error) {
	captured := make([]runtime.Value, len(n.Env))
	for i, c := range n.Env {
		v, err := Eval(c.Value, env)
		if err != nil {
			return runtime.Nil, err
		}
		captured[i] = v
	}
	lam, _ := n.Func.(*ir.Lambda)
	return runtime.NewClosure(captured, lam), nil
}
