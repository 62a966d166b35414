// free.go computes the free variables of a term (C5): the local variables it references that are
// not bound by an enclosing Let or Lambda within the term itself. Closure conversion uses this to
// decide what a lambda must capture. Grounded on
// original_source/crates/soft-compiler/src/specialize/free.rs's VarCollector trait, restructured
// from a trait-per-node-kind into a single recursive function the way the teacher's tree walkers
// (e.g. ir/symtab.go's scope walk) are written.

package ir

import "soft/src/symbol"

// VarSet is an unordered set of symbols, keyed by their memoised hash.
type VarSet map[uint64]symbol.Symbol

func newVarSet() VarSet { return VarSet{} }

func (s VarSet) add(sym symbol.Symbol) { s[sym.Hash()] = sym }

func (s VarSet) has(sym symbol.Symbol) bool {
	_, ok := s[sym.Hash()]
	return ok
}

func (s VarSet) clone() VarSet {
	next := make(VarSet, len(s))
	for k, v := range s {
		next[k] = v
	}
	return next
}

// FreeVars returns the set of local variables t references without binding.
func FreeVars(t Term) VarSet {
	free := newVarSet()
	collectFreeVars(t, newVarSet(), free)
	return free
}

func collectFreeVars(t Term, bound VarSet, free VarSet) {
	switch n := t.(type) {
	case *Atom, *Number, *StringLit, *Bool, *Quote:
		// contribute nothing
	case *Variable:
		if n.Kind == VarLocal && !bound.has(n.Sym) {
			free.add(n.Sym)
		}
	case *Let:
		cur := bound
		for _, b := range n.Bindings {
			collectFreeVars(b.Value, cur, free)
			cur = cur.clone()
			cur.add(b.Sym)
		}
		collectFreeVars(n.Body, cur, free)
	case *Set:
		collectFreeVars(n.Value, bound, free)
	case *Lambda:
		collectDefinitionFreeVars(n.Def, bound, free)
	case *Block:
		for _, s := range n.Body {
			collectFreeVars(s, bound, free)
		}
	case *If:
		collectFreeVars(n.Cond, bound, free)
		collectFreeVars(n.Then, bound, free)
		collectFreeVars(n.Else, bound, free)
	case *Operation:
		for _, a := range n.Args {
			collectFreeVars(a, bound, free)
		}
	case *Call:
		collectFreeVars(n.Fun, bound, free)
		for _, a := range n.Args {
			collectFreeVars(a, bound, free)
		}
	case *Prim:
		collectPrimFreeVars(n, bound, free)
	case *Try:
		collectFreeVars(n.Body, bound, free)
		if !n.Malformed {
			cur := bound.clone()
			cur.add(n.CatchSym)
			collectFreeVars(n.CatchBody, cur, free)
		}
	case *Throw:
		collectFreeVars(n.Value, bound, free)
	}
}

func collectDefinitionFreeVars(def Definition, bound VarSet, free VarSet) {
	cur := bound.clone()
	for _, p := range def.Parameters {
		cur.add(p)
	}
	collectFreeVars(def.Body, cur, free)
}

func collectPrimFreeVars(p *Prim, bound VarSet, free VarSet) {
	switch p.Kind {
	case PrimNil, PrimGetEnv:
		// contribute nothing
	case PrimTypeOf, PrimHead, PrimTail, PrimVecLength, PrimBox, PrimUnbox:
		collectFreeVars(p.Operand, bound, free)
	case PrimCons, PrimBoxSet:
		collectFreeVars(p.Operand, bound, free)
		collectFreeVars(p.Operand2, bound, free)
	case PrimVecIndex:
		collectFreeVars(p.Operand, bound, free)
		collectFreeVars(p.Operand2, bound, free)
	case PrimVecSet:
		collectFreeVars(p.Operand, bound, free)
		collectFreeVars(p.Operand2, bound, free)
		collectFreeVars(p.Operand3, bound, free)
	case PrimVec:
		for _, e := range p.Elems {
			collectFreeVars(e, bound, free)
		}
	case PrimCreateClosure:
		collectFreeVars(p.Func, bound, free)
		for _, c := range p.Env {
			collectFreeVars(c.Value, bound, free)
		}
	}
}
