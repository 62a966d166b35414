// codegen_ops.go lowers ir.Operation and ir.Prim, the two term kinds eval.go's operation.go and
// prim.go evaluate by direct Go switch. Int arithmetic/bitwise/comparison operators unbox and rebox
// inline (the tagged encoding's low three bits are always zero for an int, so this is exact, not an
// approximation), since that is cheap and exercises LLVM's own instruction selection; everything
// that needs heap access goes through the same trampoline opcodes prim.go's evalPrim implements.
package llvm

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"soft/src/ir"
)

func (g *gen) unbox(v llvm.Value) llvm.Value {
	return g.b.CreateAShr(v, constWord(three), "")
}

func (g *gen) rebox(raw llvm.Value) llvm.Value {
	return g.b.CreateShl(raw, constWord(three), "")
}

func (g *gen) boolOf(cmp llvm.Value) llvm.Value {
	return g.b.CreateSelect(cmp, constWord(uint64(trueWord)), constWord(uint64(falseWord)), "")
}

func (g *gen) operation(n *ir.Operation) (llvm.Value, error) {
	switch n.Op {
	case ir.OpNot:
		if len(n.Args) != 1 {
			return llvm.Value{}, fmt.Errorf("llvm backend: ! takes exactly one argument")
		}
		v, err := g.term(n.Args[0])
		if err != nil {
			return llvm.Value{}, err
		}
		truthy := g.call(opTruthy, v)
		return g.boolOf(g.b.CreateICmp(llvm.IntEQ, truthy, constWord(0), "")), nil
	case ir.OpLAnd, ir.OpLOr:
		return g.shortCircuit(n)
	}

	if len(n.Args) != 2 {
		return llvm.Value{}, &UnsupportedTermError{Detail: fmt.Sprintf("%s with != 2 operands (only the interpreter supports variadic operators)", n.Op)}
	}
	lhs, err := g.term(n.Args[0])
	if err != nil {
		return llvm.Value{}, err
	}
	rhs, err := g.term(n.Args[1])
	if err != nil {
		return llvm.Value{}, err
	}

	switch n.Op {
	case ir.OpEql:
		return g.boolOf(g.b.CreateICmp(llvm.IntNE, g.call(opEqual, lhs, rhs), constWord(0), "")), nil
	case ir.OpNeq:
		return g.boolOf(g.b.CreateICmp(llvm.IntEQ, g.call(opEqual, lhs, rhs), constWord(0), "")), nil
	}

	a, b := g.unbox(lhs), g.unbox(rhs)
	switch n.Op {
	case ir.OpAdd:
		return g.rebox(g.b.CreateAdd(a, b, "")), nil
	case ir.OpSub:
		return g.rebox(g.b.CreateSub(a, b, "")), nil
	case ir.OpMul:
		return g.rebox(g.b.CreateMul(a, b, "")), nil
	case ir.OpDiv:
		return g.rebox(g.b.CreateSDiv(a, b, "")), nil
	case ir.OpMod:
		return g.rebox(g.b.CreateSRem(a, b, "")), nil
	case ir.OpShl:
		return g.rebox(g.b.CreateShl(a, b, "")), nil
	case ir.OpShr:
		return g.rebox(g.b.CreateAShr(a, b, "")), nil
	case ir.OpAnd:
		return g.rebox(g.b.CreateAnd(a, b, "")), nil
	case ir.OpXor:
		return g.rebox(g.b.CreateXor(a, b, "")), nil
	case ir.OpOr:
		return g.rebox(g.b.CreateOr(a, b, "")), nil
	case ir.OpGtn:
		return g.boolOf(g.b.CreateICmp(llvm.IntSGT, a, b, "")), nil
	case ir.OpGte:
		return g.boolOf(g.b.CreateICmp(llvm.IntSGE, a, b, "")), nil
	case ir.OpLtn:
		return g.boolOf(g.b.CreateICmp(llvm.IntSLT, a, b, "")), nil
	case ir.OpLte:
		return g.boolOf(g.b.CreateICmp(llvm.IntSLE, a, b, "")), nil
	default:
		return llvm.Value{}, fmt.Errorf("llvm backend: unhandled operator %s", n.Op)
	}
}

// shortCircuit compiles && and || with real control flow, matching the interpreter's
// evalShortCircuit: the first operand's value is produced unconditionally, the second only if
// needed, and the result is whichever operand's raw value decided the outcome (not coerced to a
// bool), merged through a PHI.
func (g *gen) shortCircuit(n *ir.Operation) (llvm.Value, error) {
	if len(n.Args) != 2 {
		return llvm.Value{}, &UnsupportedTermError{Detail: fmt.Sprintf("%s with != 2 operands (only the interpreter supports variadic operators)", n.Op)}
	}
	lhs, err := g.term(n.Args[0])
	if err != nil {
		return llvm.Value{}, err
	}
	truthy := g.call(opTruthy, lhs)
	cmp := g.b.CreateICmp(llvm.IntNE, truthy, constWord(0), "")

	shortBB := llvm.AddBasicBlock(g.fn, "short")
	otherBB := llvm.AddBasicBlock(g.fn, "other")
	mergeBB := llvm.AddBasicBlock(g.fn, "merge")
	if n.Op == ir.OpLAnd {
		g.b.CreateCondBr(cmp, otherBB, shortBB)
	} else {
		g.b.CreateCondBr(cmp, shortBB, otherBB)
	}

	g.b.SetInsertPointAtEnd(shortBB)
	shortEnd := g.b.GetInsertBlock()
	g.b.CreateBr(mergeBB)

	g.b.SetInsertPointAtEnd(otherBB)
	rhs, err := g.term(n.Args[1])
	if err != nil {
		return llvm.Value{}, err
	}
	otherEnd := g.b.GetInsertBlock()
	g.b.CreateBr(mergeBB)

	g.b.SetInsertPointAtEnd(mergeBB)
	phi := g.b.CreatePHI(word, "")
	phi.AddIncoming([]llvm.Value{lhs, rhs}, []llvm.BasicBlock{shortEnd, otherEnd})
	return phi, nil
}

func (g *gen) prim(n *ir.Prim) (llvm.Value, error) {
	switch n.Kind {
	case ir.PrimNil:
		return constWord(uint64(nilWord)), nil
	case ir.PrimTypeOf:
		v, err := g.term(n.Operand)
		if err != nil {
			return llvm.Value{}, err
		}
		return g.call(opTypeOf, v), nil
	case ir.PrimVec:
		return g.vecLit(n)
	case ir.PrimCons:
		head, err := g.term(n.Operand)
		if err != nil {
			return llvm.Value{}, err
		}
		tail, err := g.term(n.Operand2)
		if err != nil {
			return llvm.Value{}, err
		}
		return g.call(opCons, head, tail), nil
	case ir.PrimHead:
		v, err := g.term(n.Operand)
		if err != nil {
			return llvm.Value{}, err
		}
		return g.call(opHead, v), nil
	case ir.PrimTail:
		v, err := g.term(n.Operand)
		if err != nil {
			return llvm.Value{}, err
		}
		return g.call(opTail, v), nil
	case ir.PrimVecIndex:
		vec, idx, err := g.two(n.Operand, n.Operand2)
		if err != nil {
			return llvm.Value{}, err
		}
		return g.call(opVecGet, vec, idx), nil
	case ir.PrimVecLength:
		v, err := g.term(n.Operand)
		if err != nil {
			return llvm.Value{}, err
		}
		return g.call(opVecLen, v), nil
	case ir.PrimVecSet:
		vec, idx, err := g.two(n.Operand, n.Operand2)
		if err != nil {
			return llvm.Value{}, err
		}
		val, err := g.term(n.Operand3)
		if err != nil {
			return llvm.Value{}, err
		}
		return g.call(opVecSet, vec, idx, val), nil
	case ir.PrimBox:
		v, err := g.term(n.Operand)
		if err != nil {
			return llvm.Value{}, err
		}
		return g.call(opBox, v), nil
	case ir.PrimUnbox:
		v, err := g.term(n.Operand)
		if err != nil {
			return llvm.Value{}, err
		}
		return g.call(opUnbox, v), nil
	case ir.PrimBoxSet:
		box, val, err := g.two(n.Operand, n.Operand2)
		if err != nil {
			return llvm.Value{}, err
		}
		return g.call(opBoxSet, box, val), nil
	case ir.PrimGetEnv:
		return g.call(opGlobalGet, constWord(uint64(internString(n.EnvSym.Name())))), nil
	case ir.PrimCreateClosure:
		return llvm.Value{}, &UnsupportedTermError{Detail: "create-closure outside a top-level (set! name (lambda ...)) (only non-capturing top-level functions compile)"}
	default:
		return llvm.Value{}, fmt.Errorf("llvm backend: unhandled prim kind %v", n.Kind)
	}
}

func (g *gen) two(a, b ir.Term) (llvm.Value, llvm.Value, error) {
	av, err := g.term(a)
	if err != nil {
		return llvm.Value{}, llvm.Value{}, err
	}
	bv, err := g.term(b)
	if err != nil {
		return llvm.Value{}, llvm.Value{}, err
	}
	return av, bv, nil
}

// vecLit allocates a vector of the literal's length and fills it in, unrolled at codegen time since
// the element count is always known statically here.
func (g *gen) vecLit(n *ir.Prim) (llvm.Value, error) {
	vec := g.call(opVecAlloc, constWord(uint64(len(n.Elems))))
	for i, e := range n.Elems {
		v, err := g.term(e)
		if err != nil {
			return llvm.Value{}, err
		}
		g.call(opVecSet, vec, constWord(uint64(i)), v)
	}
	return vec, nil
}
