// codegen.go lowers one ir.Term to LLVM IR within the function currently being built. gen mirrors
// the teacher's gen(b, m, fun, n, st, ls) recursive walk, generalized from a statement/expression
// split to this tree's single Term hierarchy, and reshaped to thread locals through an
// immutably-extended map (like src/ir's Ctx and cctx) instead of the teacher's scope stack, since
// this tree's locals are bound once and never reassigned.
package llvm

import (
	"fmt"

	"tinygo.org/x/go-llvm"

	"soft/src/ir"
	"soft/src/runtime"
	"soft/src/symbol"
)

const three = 3 // the tagged Value encoding's fixed low-bit shift (soft/src/runtime/tag.go)

type gen struct {
	b      llvm.Builder
	m      llvm.Module
	fn     llvm.Value
	locals map[uint64]llvm.Value
}

func (g *gen) withLocal(sym symbol.Symbol, v llvm.Value) *gen {
	next := make(map[uint64]llvm.Value, len(g.locals)+1)
	for k, val := range g.locals {
		next[k] = val
	}
	next[sym.Hash()] = v
	return &gen{b: g.b, m: g.m, fn: g.fn, locals: next}
}

func (g *gen) trampoline() llvm.Value {
	return g.m.NamedFunction(trampolineName)
}

func (g *gen) call(op opcode, args ...llvm.Value) llvm.Value {
	full := [3]llvm.Value{constWord(0), constWord(0), constWord(0)}
	copy(full[:], args)
	return g.b.CreateCall(g.trampoline(), []llvm.Value{constWord(uint64(op)), full[0], full[1], full[2]}, "")
}

func constWord(n uint64) llvm.Value {
	return llvm.ConstInt(word, n, false)
}

func (g *gen) term(t ir.Term) (llvm.Value, error) {
	switch n := t.(type) {
	case *ir.Number:
		return constWord(uint64(runtime.NewInt(int64(n.Value)))), nil
	case *ir.Bool:
		return constWord(uint64(runtime.NewBool(n.Value))), nil
	case *ir.StringLit:
		return g.call(opNewString, constWord(uint64(internString(n.Value)))), nil
	case *ir.Atom:
		return g.call(opNewSymbol, constWord(uint64(internString(n.Name)))), nil
	case *ir.Quote:
		v, err := quoteConstant(n.Datum)
		if err != nil {
			return llvm.Value{}, err
		}
		return constWord(uint64(v)), nil
	case *ir.Variable:
		return g.variable(n)
	case *ir.Let:
		return g.let(n)
	case *ir.Set:
		return g.set(n)
	case *ir.Block:
		return g.block(n)
	case *ir.If:
		return g.ifTerm(n)
	case *ir.Operation:
		return g.operation(n)
	case *ir.Call:
		return g.call_(n)
	case *ir.Prim:
		return g.prim(n)
	case *ir.Lambda:
		return llvm.Value{}, &UnsupportedTermError{Detail: "bare lambda reached codegen (closure conversion should have rewritten it)"}
	default:
		return llvm.Value{}, fmt.Errorf("llvm backend: unhandled term %T", t)
	}
}

func (g *gen) variable(n *ir.Variable) (llvm.Value, error) {
	switch n.Kind {
	case ir.VarLocal:
		if v, ok := g.locals[n.Sym.Hash()]; ok {
			return v, nil
		}
		return llvm.Value{}, fmt.Errorf("llvm backend: local %q not bound in this function", n.Sym.Name())
	case ir.VarGlobal:
		return g.call(opGlobalGet, constWord(uint64(internString(n.Sym.Name())))), nil
	default: // VarEnv
		return llvm.Value{}, &UnsupportedTermError{Detail: "captured upvalue reference (only non-capturing top-level functions compile)"}
	}
}

func (g *gen) let(n *ir.Let) (llvm.Value, error) {
	cur := g
	for _, bind := range n.Bindings {
		v, err := cur.term(bind.Value)
		if err != nil {
			return llvm.Value{}, err
		}
		cur = cur.withLocal(bind.Sym, v)
	}
	return cur.term(n.Body)
}

func (g *gen) set(n *ir.Set) (llvm.Value, error) {
	v, err := g.term(n.Value)
	if err != nil {
		return llvm.Value{}, err
	}
	g.call(opGlobalSet, constWord(uint64(internString(n.Sym.Name()))), v)
	return v, nil
}

func (g *gen) block(n *ir.Block) (llvm.Value, error) {
	result := constWord(uint64(runtime.Nil))
	for _, stmt := range n.Body {
		v, err := g.term(stmt)
		if err != nil {
			return llvm.Value{}, err
		}
		result = v
	}
	return result, nil
}

func (g *gen) ifTerm(n *ir.If) (llvm.Value, error) {
	cond, err := g.term(n.Cond)
	if err != nil {
		return llvm.Value{}, err
	}
	truthy := g.call(opTruthy, cond)
	cmp := g.b.CreateICmp(llvm.IntNE, truthy, constWord(0), "")

	thenBB := llvm.AddBasicBlock(g.fn, "then")
	elseBB := llvm.AddBasicBlock(g.fn, "else")
	mergeBB := llvm.AddBasicBlock(g.fn, "merge")
	g.b.CreateCondBr(cmp, thenBB, elseBB)

	g.b.SetInsertPointAtEnd(thenBB)
	thenVal, err := g.term(n.Then)
	if err != nil {
		return llvm.Value{}, err
	}
	thenEnd := g.b.GetInsertBlock()
	g.b.CreateBr(mergeBB)

	g.b.SetInsertPointAtEnd(elseBB)
	elseVal, err := g.term(n.Else)
	if err != nil {
		return llvm.Value{}, err
	}
	elseEnd := g.b.GetInsertBlock()
	g.b.CreateBr(mergeBB)

	g.b.SetInsertPointAtEnd(mergeBB)
	phi := g.b.CreatePHI(word, "")
	phi.AddIncoming([]llvm.Value{thenVal, elseVal}, []llvm.BasicBlock{thenEnd, elseEnd})
	return phi, nil
}

func (g *gen) call_(n *ir.Call) (llvm.Value, error) {
	v, ok := n.Fun.(*ir.Variable)
	if !ok || v.Kind != ir.VarGlobal {
		return llvm.Value{}, &UnsupportedTermError{Detail: "call through a non-global function value (only direct calls to top-level functions compile)"}
	}
	globals.RLock()
	fn, ok := globals.m[v.Sym.Name()]
	globals.RUnlock()
	if !ok {
		return llvm.Value{}, &UnresolvedSymbolError{Name: v.Sym.Name()}
	}
	args := make([]llvm.Value, len(n.Args))
	for i, a := range n.Args {
		arg, err := g.term(a)
		if err != nil {
			return llvm.Value{}, err
		}
		args[i] = arg
	}
	if len(args) != len(fn.Params()) {
		return llvm.Value{}, fmt.Errorf("llvm backend: %q called with %d arguments, wants %d", v.Sym.Name(), len(args), len(fn.Params()))
	}
	return g.b.CreateCall(fn, args, ""), nil
}
