// operation.go evaluates the fixed operator set the specializer recognizes directly (src/ir's
// OperationKind), as opposed to the broader intrinsics surface (intrinsics.go) which is ordinary
// global closures reached through Call. Arithmetic, bitwise and comparison operators fold left to
// right over two or more operands; ! and the two logical connectives are the exceptions called out
// below.
package interp

import (
	"fmt"

	"soft/src/ir"
	"soft/src/runtime"
)

func evalOperation(n *ir.Operation, env *Environment) (runtime.Value, error) {
	if n.Op == ir.OpNot {
		if len(n.Args) != 1 {
			return runtime.Nil, fmt.Errorf("interp: ! takes exactly one operand, got %d", len(n.Args))
		}
		v, err := Eval(n.Args[0], env)
		if err != nil {
			return runtime.Nil, err
		}
		return runtime.NewBool(!v.Truthy()), nil
	}
	if n.Op == ir.OpLAnd || n.Op == ir.OpLOr {
		return evalShortCircuit(n, env)
	}
	if len(n.Args) < 2 {
		return runtime.Nil, fmt.Errorf("interp: operator %s takes at least two operands, got %d", n.Op, len(n.Args))
	}
	vals := make([]runtime.Value, len(n.Args))
	for i, a := range n.Args {
		v, err := Eval(a, env)
		if err != nil {
			return runtime.Nil, err
		}
		vals[i] = v
	}
	if isComparison(n.Op) {
		return evalComparisonChain(n.Op, vals)
	}
	acc := vals[0]
	for _, v := range vals[1:] {
		next, err := applyArith(n.Op, acc, v)
		if err != nil {
			return runtime.Nil, err
		}
		acc = next
	}
	return acc, nil
}

// evalShortCircuit implements && and || without evaluating operands the result no longer depends on.
func evalShortCircuit(n *ir.Operation, env *Environment) (runtime.Value, error) {
	var result runtime.Value = runtime.NewBool(n.Op == ir.OpLAnd)
	for _, a := range n.Args {
		v, err := Eval(a, env)
		if err != nil {
			return runtime.Nil, err
		}
		result = v
		if n.Op == ir.OpLAnd && !v.Truthy() {
			return v, nil
		}
		if n.Op == ir.OpLOr && v.Truthy() {
			return v, nil
		}
	}
	return result, nil
}

func isComparison(op ir.OperationKind) bool {
	switch op {
	case ir.OpEql, ir.OpNeq, ir.OpGtn, ir.OpGte, ir.OpLtn, ir.OpLte:
		return true
	default:
		return false
	}
}

func evalComparisonChain(op ir.OperationKind, vals []runtime.Value) (runtime.Value, error) {
	for i := 0; i+1 < len(vals); i++ {
		ok, err := compare(op, vals[i], vals[i+1])
		if err != nil {
			return runtime.Nil, err
		}
		if !ok {
			return runtime.False, nil
		}
	}
	return runtime.True, nil
}

func compare(op ir.OperationKind, a, b runtime.Value) (bool, error) {
	if op == ir.OpEql {
		return a.Equal(b), nil
	}
	if op == ir.OpNeq {
		return !a.Equal(b), nil
	}
	if !a.IsInt() || !b.IsInt() {
		return false, fmt.Errorf("interp: %s requires integer operands", op)
	}
	x, y := a.Int(), b.Int()
	switch op {
	case ir.OpGtn:
		return x > y, nil
	case ir.OpGte:
		return x >= y, nil
	case ir.OpLtn:
		return x < y, nil
	case ir.OpLte:
		return x <= y, nil
	default:
		return false, fmt.Errorf("interp: unknown comparison %s", op)
	}
}

func applyArith(op ir.OperationKind, a, b runtime.Value) (runtime.Value, error) {
	if !a.IsInt() || !b.IsInt() {
		return runtime.Nil, fmt.Errorf("interp: %s requires integer operands", op)
	}
	x, y := a.Int(), b.Int()
	switch op {
	case ir.OpAdd:
		return runtime.NewInt(x + y), nil
	case ir.OpSub:
		return runtime.NewInt(x - y), nil
	case ir.OpMul:
		return runtime.NewInt(x * y), nil
	case ir.OpDiv:
		if y == 0 {
			return runtime.Nil, fmt.Errorf("interp: division by zero")
		}
		return runtime.NewInt(x / y), nil
	case ir.OpMod:
		if y == 0 {
			return runtime.Nil, fmt.Errorf("interp: division by zero")
		}
		return runtime.NewInt(x % y), nil
	case ir.OpShl:
		return runtime.NewInt(x << uint(y)), nil
	case ir.OpShr:
		return runtime.NewInt(x >> uint(y)), nil
	case ir.OpAnd:
		return runtime.NewInt(x & y), nil
	case ir.OpXor:
		return runtime.NewInt(x ^ y), nil
	case ir.OpOr:
		return runtime.NewInt(x | y), nil
	default:
		return runtime.Nil, fmt.Errorf("interp: unknown arithmetic operator %s", op)
	}
}
