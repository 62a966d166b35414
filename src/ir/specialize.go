// specialize.go turns a surface syntax tree (src/frontend) into the intermediate tree (C4). Ctx is
// an immutable, functionally-extended context: every Specialize call that introduces a binder
// returns a new Ctx rather than mutating the caller's, so that backtracking out of a failed
// special-form match (this form of operator, say, but with the wrong arity) never leaves the
// context in a partially-extended state.

package ir

import "soft/src/frontend"
import "soft/src/symbol"

// Ctx tracks which symbols are bound in the current lexical scope and at what slot index.
type Ctx struct {
	params map[uint64]ctxEntry
	count  int
}

type ctxEntry struct {
	sym   symbol.Symbol
	index int
}

// NewCtx returns an empty specialization context.
func NewCtx() Ctx {
	return Ctx{params: map[uint64]ctxEntry{}}
}

// extend returns a Ctx with each symbol in syms bound to the next available slot, in order.
func (c Ctx) extend(syms []symbol.Symbol) Ctx {
	next := make(map[uint64]ctxEntry, len(c.params)+len(syms))
	for k, v := range c.params {
		next[k] = v
	}
	count := c.count
	for _, s := range syms {
		next[s.Hash()] = ctxEntry{sym: s, index: count}
		count++
	}
	return Ctx{params: next, count: count}
}

// add is extend for a single symbol.
func (c Ctx) add(s symbol.Symbol) Ctx {
	return c.extend([]symbol.Symbol{s})
}

func (c Ctx) lookup(s symbol.Symbol) (int, bool) {
	e, ok := c.params[s.Hash()]
	return e.index, ok
}

var operatorNames = map[string]OperationKind{
	"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv, "%": OpMod,
	"<<": OpShl, ">>": OpShr, "&": OpAnd, "^": OpXor, "|": OpOr,
	"!": OpNot, "==": OpEql, "!=": OpNeq, ">": OpGtn, ">=": OpGte,
	"<": OpLtn, "=<": OpLte, "&&": OpLAnd, "||": OpLOr,
}

// Specialize lowers a single surface node into a Term under ctx.
func Specialize(ctx Ctx, n frontend.Node) Term {
	if len(n.Prefixes) > 0 {
		return specializePrefixed(ctx, n)
	}
	switch n.Type {
	case frontend.NodeIdentifier:
		return specializeVar(ctx, n)
	case frontend.NodeNumber:
		return &Number{base: base{n.Range}, Value: n.Number}
	case frontend.NodeString:
		return &StringLit{base: base{n.Range}, Value: n.Text}
	case frontend.NodeAtom:
		switch n.Text {
		case "true":
			return &Bool{base: base{n.Range}, Value: true}
		case "false":
			return &Bool{base: base{n.Range}, Value: false}
		default:
			return &Atom{base: base{n.Range}, Name: n.Text}
		}
	case frontend.NodeList:
		if len(n.Children) == 0 {
			return &Prim{base: base{n.Range}, Kind: PrimNil}
		}
		return specializeCallExpr(ctx, n)
	default:
		return &Prim{base: base{n.Range}, Kind: PrimNil}
	}
}

// SpecializeAll lowers each of a sequence of independent top-level surface nodes.
func SpecializeAll(nodes []frontend.Node) []Term {
	ctx := NewCtx()
	terms := make([]Term, len(nodes))
	for i, n := range nodes {
		terms[i] = Specialize(ctx, n)
	}
	return terms
}

// specializePrefixed peels the outermost reader-macro prefix off n. A leading quote produces a
// Quote term wrapping the rest of n unevaluated; a leading unquote outside any enclosing quote is a
// no-op escape (it only has meaning inside quoted data — see interp.quoteValue, which is where an
// unquote nested inside a Quote's Datum is actually honored).
func specializePrefixed(ctx Ctx, n frontend.Node) Term {
	rest := n
	rest.Prefixes = n.Prefixes[1:]
	switch n.Prefixes[0] {
	case frontend.PrefixQuote:
		return &Quote{base: base{n.Range}, Datum: rest}
	default:
		return Specialize(ctx, rest)
	}
}

func specializeVar(ctx Ctx, n frontend.Node) Term {
	sym := symbol.New(n.Text)
	if idx, ok := ctx.lookup(sym); ok {
		return &Variable{base: base{n.Range}, Kind: VarLocal, Index: idx, Sym: sym}
	}
	return &Variable{base: base{n.Range}, Kind: VarGlobal, Sym: sym}
}

func specializeCallExpr(ctx Ctx, n frontend.Node) Term {
	head := n.Children[0]
	args := n.Children[1:]
	if head.Type == frontend.NodeIdentifier {
		if t, ok := specializeForm(ctx, n.Range, head.Text, args); ok {
			return t
		}
	}
	return fallbackCall(ctx, n.Range, n.Children)
}

func specializeForm(ctx Ctx, rng frontend.Range, name string, args []frontend.Node) (Term, bool) {
	switch name {
	case "let":
		return specializeLet(ctx, rng, args)
	case "lambda":
		return specializeLambda(ctx, rng, args)
	case "set!":
		return specializeSet(ctx, rng, args, false)
	case "setm!":
		return specializeSet(ctx, rng, args, true)
	case "block":
		return specializeBlock(ctx, rng, args), true
	case "quote":
		return specializeQuote(rng, args)
	case "if":
		return specializeIf(ctx, rng, args)
	case "type-of":
		return specializePrim1(ctx, rng, args, PrimTypeOf)
	case "head":
		return specializePrim1(ctx, rng, args, PrimHead)
	case "tail":
		return specializePrim1(ctx, rng, args, PrimTail)
	case "vec/len":
		return specializePrim1(ctx, rng, args, PrimVecLength)
	case "box":
		return specializePrim1(ctx, rng, args, PrimBox)
	case "unbox":
		return specializePrim1(ctx, rng, args, PrimUnbox)
	case "cons":
		return specializePrim2(ctx, rng, args, PrimCons)
	case "vec/get":
		return specializePrim2(ctx, rng, args, PrimVecIndex)
	case "box-set!":
		return specializePrim2(ctx, rng, args, PrimBoxSet)
	case "vec/set!":
		return specializePrim3(ctx, rng, args, PrimVecSet)
	case "vec!":
		return &Prim{base: base{rng}, Kind: PrimVec, Elems: specializeIter(ctx, args)}, true
	case "get-env":
		return specializeGetEnv(rng, args)
	case "try":
		return specializeTry(ctx, rng, args)
	case "throw":
		return specializeThrow(ctx, rng, args)
	default:
		if op, ok := operatorNames[name]; ok {
			return &Operation{base: base{rng}, Op: op, Args: specializeIter(ctx, args)}, true
		}
		return nil, false
	}
}

func specializePrim1(ctx Ctx, rng frontend.Range, args []frontend.Node, kind PrimKind) (Term, bool) {
	if len(args) != 1 {
		return nil, false
	}
	return &Prim{base: base{rng}, Kind: kind, Operand: Specialize(ctx, args[0])}, true
}

func specializePrim2(ctx Ctx, rng frontend.Range, args []frontend.Node, kind PrimKind) (Term, bool) {
	if len(args) != 2 {
		return nil, false
	}
	return &Prim{
		base:     base{rng},
		Kind:     kind,
		Operand:  Specialize(ctx, args[0]),
		Operand2: Specialize(ctx, args[1]),
	}, true
}

func specializePrim3(ctx Ctx, rng frontend.Range, args []frontend.Node, kind PrimKind) (Term, bool) {
	if len(args) != 3 {
		return nil, false
	}
	return &Prim{
		base:     base{rng},
		Kind:     kind,
		Operand:  Specialize(ctx, args[0]),
		Operand2: Specialize(ctx, args[1]),
		Operand3: Specialize(ctx, args[2]),
	}, true
}

func specializeIter(ctx Ctx, nodes []frontend.Node) []Term {
	terms := make([]Term, len(nodes))
	for i, n := range nodes {
		terms[i] = Specialize(ctx, n)
	}
	return terms
}

func specializeIf(ctx Ctx, rng frontend.Range, args []frontend.Node) (Term, bool) {
	if len(args) != 3 {
		return nil, false
	}
	return &If{
		base: base{rng},
		Cond: Specialize(ctx, args[0]),
		Then: Specialize(ctx, args[1]),
		Else: Specialize(ctx, args[2]),
	}, true
}

func specializeQuote(rng frontend.Range, args []frontend.Node) (Term, bool) {
	if len(args) != 1 {
		return nil, false
	}
	return &Quote{base: base{rng}, Datum: args[0]}, true
}

func specializeBlock(ctx Ctx, rng frontend.Range, args []frontend.Node) Term {
	return &Block{base: base{rng}, Body: specializeIter(ctx, args)}
}

func specializeLet(ctx Ctx, rng frontend.Range, args []frontend.Node) (Term, bool) {
	if len(args) == 0 {
		return nil, false
	}
	cur := ctx
	bindings := make([]LetBinding, 0, len(args)-1)
	for _, arg := range args[:len(args)-1] {
		if arg.Type != frontend.NodeList || len(arg.Children) != 2 {
			return nil, false
		}
		nameNode := arg.Children[0]
		if nameNode.Type != frontend.NodeIdentifier {
			return nil, false
		}
		sym := symbol.New(nameNode.Text)
		value := Specialize(cur, arg.Children[1])
		bindings = append(bindings, LetBinding{Sym: sym, Value: value})
		cur = cur.add(sym)
	}
	body := Specialize(cur, args[len(args)-1])
	return &Let{base: base{rng}, Bindings: bindings, Body: body}, true
}

func specializeLambda(ctx Ctx, rng frontend.Range, args []frontend.Node) (Term, bool) {
	if len(args) != 2 {
		return nil, false
	}
	if args[0].Type != frontend.NodeList {
		return nil, false
	}
	params := make([]symbol.Symbol, len(args[0].Children))
	for i, p := range args[0].Children {
		if p.Type != frontend.NodeIdentifier {
			return nil, false
		}
		params[i] = symbol.New(p.Text)
	}
	variadic := false
	if n := len(params); n > 0 {
		name := params[n-1].Name()
		if len(name) > 0 && name[0] == '&' {
			params[n-1] = symbol.New(name[1:])
			variadic = true
		}
	}
	inner := ctx.extend(params)
	def := Definition{
		Variadic:   variadic,
		Parameters: params,
		Body:       Specialize(inner, args[1]),
	}
	return &Lambda{base: base{rng}, Def: def, IsLifted: false}, true
}

func specializeSet(ctx Ctx, rng frontend.Range, args []frontend.Node, isMacro bool) (Term, bool) {
	if len(args) != 2 {
		return nil, false
	}
	if args[0].Type != frontend.NodeIdentifier {
		return nil, false
	}
	sym := symbol.New(args[0].Text)
	value := Specialize(ctx, args[1])
	return &Set{base: base{rng}, Sym: sym, Value: value, IsMacro: isMacro}, true
}

// specializeGetEnv lowers (get-env name), a debugging/reflective escape hatch that fetches a global
// binding by name regardless of the current lexical scope, bypassing the Variable resolution rules.
func specializeGetEnv(rng frontend.Range, args []frontend.Node) (Term, bool) {
	if len(args) != 1 || args[0].Type != frontend.NodeIdentifier {
		return nil, false
	}
	return &Prim{base: base{rng}, Kind: PrimGetEnv, EnvSym: symbol.New(args[0].Text)}, true
}

// specializeTry lowers (try body (name handler)). A catch form that isn't a two-element list headed
// by an identifier is still recognized as try — it just evaluates to the catch-form-arity invocation
// error at eval time, matching how a runtime-only shape check would surface it.
func specializeTry(ctx Ctx, rng frontend.Range, args []frontend.Node) (Term, bool) {
	if len(args) != 2 {
		return nil, false
	}
	body := Specialize(ctx, args[0])
	catch := args[1]
	if catch.Type != frontend.NodeList || len(catch.Children) != 2 || catch.Children[0].Type != frontend.NodeIdentifier {
		return &Try{base: base{rng}, Body: body, Malformed: true}, true
	}
	sym := symbol.New(catch.Children[0].Text)
	catchBody := Specialize(ctx.add(sym), catch.Children[1])
	return &Try{base: base{rng}, Body: body, CatchSym: sym, CatchBody: catchBody}, true
}

func specializeThrow(ctx Ctx, rng frontend.Range, args []frontend.Node) (Term, bool) {
	if len(args) != 1 {
		return nil, false
	}
	return &Throw{base: base{rng}, Value: Specialize(ctx, args[0])}, true
}

func fallbackCall(ctx Ctx, rng frontend.Range, children []frontend.Node) Term {
	fun := Specialize(ctx, children[0])
	args := specializeIter(ctx, children[1:])
	return &Call{base: base{rng}, Fun: fun, Args: args}
}
