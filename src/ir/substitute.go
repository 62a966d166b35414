// substitute.go implements capture-avoiding substitution of terms for symbols (C5), used by the
// macro expander to splice an expansion's arguments into its body and by closure conversion to
// replace a captured Variable(Local) with a Variable(Env) reference. Because slot indices and
// symbol identity are already unique, substitution here never needs to rename a binder to avoid
// capture: shadowing is handled by simply removing a shadowed key from the substitution before
// descending into the binder's scope. Grounded on
// original_source/crates/soft-compiler/src/specialize/substitute.rs, reshaped from in-place mutable
// trait methods into value-returning functions to match the rest of this tree's style (see
// specialize.go's Ctx).
package ir

import "soft/src/symbol"

// Subst maps a symbol's hash to the term it should be replaced with.
type Subst map[uint64]substEntry

type substEntry struct {
	sym   symbol.Symbol
	value Term
}

// NewSubst builds a Subst from (symbol, term) pairs.
func NewSubst(pairs ...SubstPair) Subst {
	s := make(Subst, len(pairs))
	for _, p := range pairs {
		s[p.Sym.Hash()] = substEntry{sym: p.Sym, value: p.Value}
	}
	return s
}

// SubstPair is one substitution binding.
type SubstPair struct {
	Sym   symbol.Symbol
	Value Term
}

func (s Subst) without(sym symbol.Symbol) Subst {
	if _, ok := s[sym.Hash()]; !ok {
		return s
	}
	next := make(Subst, len(s))
	for k, v := range s {
		if k != sym.Hash() {
			next[k] = v
		}
	}
	return next
}

// Substitute rewrites every free occurrence of a symbol in subst's domain within t, returning the
// rewritten term. t itself is left untouched.
func Substitute(t Term, subst Subst) Term {
	if len(subst) == 0 {
		return t
	}
	switch n := t.(type) {
	case *Atom, *Number, *StringLit, *Bool, *Quote:
		return t
	case *Variable:
		if e, ok := subst[n.Sym.Hash()]; ok {
			return e.value
		}
		return t
	case *Let:
		cur := subst
		bindings := make([]LetBinding, len(n.Bindings))
		for i, b := range n.Bindings {
			bindings[i] = LetBinding{Sym: b.Sym, Value: Substitute(b.Value, cur)}
			cur = cur.without(b.Sym)
			if len(cur) == 0 {
				for j := i + 1; j < len(n.Bindings); j++ {
					bindings[j] = n.Bindings[j]
				}
				return &Let{base: n.base, Bindings: bindings, Body: n.Body}
			}
		}
		return &Let{base: n.base, Bindings: bindings, Body: Substitute(n.Body, cur)}
	case *Set:
		return &Set{base: n.base, Sym: n.Sym, Value: Substitute(n.Value, subst), IsMacro: n.IsMacro}
	case *Lambda:
		return &Lambda{base: n.base, Def: substituteDefinition(n.Def, subst), IsLifted: n.IsLifted}
	case *Block:
		body := make([]Term, len(n.Body))
		for i, s := range n.Body {
			body[i] = Substitute(s, subst)
		}
		return &Block{base: n.base, Body: body}
	case *If:
		return &If{
			base: n.base,
			Cond: Substitute(n.Cond, subst),
			Then: Substitute(n.Then, subst),
			Else: Substitute(n.Else, subst),
		}
	case *Operation:
		return &Operation{base: n.base, Op: n.Op, Args: substituteAll(n.Args, subst)}
	case *Call:
		return &Call{base: n.base, Fun: Substitute(n.Fun, subst), Args: substituteAll(n.Args, subst)}
	case *Prim:
		return substitutePrim(n, subst)
	case *Try:
		body := Substitute(n.Body, subst)
		if n.Malformed {
			return &Try{base: n.base, Body: body, Malformed: true}
		}
		cur := subst.without(n.CatchSym)
		return &Try{base: n.base, Body: body, CatchSym: n.CatchSym, CatchBody: Substitute(n.CatchBody, cur)}
	case *Throw:
		return &Throw{base: n.base, Value: Substitute(n.Value, subst)}
	default:
		return t
	}
}

func substituteAll(terms []Term, subst Subst) []Term {
	out := make([]Term, len(terms))
	for i, t := range terms {
		out[i] = Substitute(t, subst)
	}
	return out
}

func substituteDefinition(def Definition, subst Subst) Definition {
	cur := subst
	for _, p := range def.Parameters {
		cur = cur.without(p)
	}
	if len(cur) == 0 {
		return def
	}
	return Definition{Variadic: def.Variadic, Parameters: def.Parameters, Body: Substitute(def.Body, cur)}
}

func substitutePrim(p *Prim, subst Subst) Term {
	out := &Prim{base: p.base, Kind: p.Kind, EnvSym: p.EnvSym}
	switch p.Kind {
	case PrimNil, PrimGetEnv:
		return p
	case PrimTypeOf, PrimHead, PrimTail, PrimVecLength, PrimBox, PrimUnbox:
		out.Operand = Substitute(p.Operand, subst)
	case PrimCons, PrimBoxSet:
		out.Operand = Substitute(p.Operand, subst)
		out.Operand2 = Substitute(p.Operand2, subst)
	case PrimVecIndex:
		out.Operand = Substitute(p.Operand, subst)
		out.Operand2 = Substitute(p.Operand2, subst)
	case PrimVecSet:
		out.Operand = Substitute(p.Operand, subst)
		out.Operand2 = Substitute(p.Operand2, subst)
		out.Operand3 = Substitute(p.Operand3, subst)
	case PrimVec:
		out.Elems = substituteAll(p.Elems, subst)
	case PrimCreateClosure:
		out.Func = Substitute(p.Func, subst)
		env := make([]EnvCapture, len(p.Env))
		for i, c := range p.Env {
			env[i] = EnvCapture{Sym: c.Sym, Value: Substitute(c.Value, subst)}
		}
		out.Env = env
	}
	return out
}
