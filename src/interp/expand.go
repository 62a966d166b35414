// expand.go is the macro expander (C7): it walks a specialized ir.Term bottom-up and, at every call
// whose head names a global bound by setm!, runs the macro's transformer on the call's unevaluated
// argument forms and splices the result back in, repeating until no macro call remains. It
// implements ir.Expander so src/ir/pipeline.go's Compile can drive it without src/ir importing this
// package.
//
// A macro transformer is an ordinary closure; its arguments and result travel as runtime.Value data
// the same way quote/unquote do (see eval.go's quoteValue), so a macro body reads like code
// operating on the s-expression it was handed. termToValue/valueToTerm are the two directions of
// that bridge: termToValue prints a term back to surface text and re-reads it as data (reusing
// print.go, which already renders every Term kind as valid surface syntax), and valueToTerm reads
// the transformer's result back the other way and re-specializes it with a fresh, global-only Ctx —
// a macro only ever introduces top-level-visible names, matching the rule already established for
// unquote inside quoted data.
package interp

import (
	"fmt"

	"soft/src/frontend"
	"soft/src/ir"
	"soft/src/runtime"
	"soft/src/symbol"
)

// Expander drives macro expansion against env's global table, where setm! installs transformers.
type Expander struct {
	env *Environment
}

// NewExpander returns an Expander that resolves macros through env's globals.
func NewExpander(env *Environment) *Expander {
	return &Expander{env: env}
}

// Expand implements ir.Expander.
func (x *Expander) Expand(t ir.Term) (ir.Term, error) {
	return x.expand(t)
}

func (x *Expander) expand(t ir.Term) (ir.Term, error) {
	switch n := t.(type) {
	case *ir.Atom, *ir.Number, *ir.StringLit, *ir.Bool, *ir.Variable, *ir.Quote:
		return t, nil
	case *ir.Let:
		bindings := make([]ir.LetBinding, len(n.Bindings))
		for i, b := range n.Bindings {
			v, err := x.expand(b.Value)
			if err != nil {
				return nil, err
			}
			bindings[i] = ir.LetBinding{Sym: b.Sym, Value: v}
		}
		body, err := x.expand(n.Body)
		if err != nil {
			return nil, err
		}
		return &ir.Let{Bindings: bindings, Body: body}, nil
	case *ir.Set:
		v, err := x.expand(n.Value)
		if err != nil {
			return nil, err
		}
		return &ir.Set{Sym: n.Sym, Value: v, IsMacro: n.IsMacro}, nil
	case *ir.Lambda:
		body, err := x.expand(n.Def.Body)
		if err != nil {
			return nil, err
		}
		def := n.Def
		def.Body = body
		return &ir.Lambda{Def: def, IsLifted: n.IsLifted}, nil
	case *ir.Block:
		body, err := x.expandAll(n.Body)
		if err != nil {
			return nil, err
		}
		return &ir.Block{Body: body}, nil
	case *ir.If:
		cond, err := x.expand(n.Cond)
		if err != nil {
			return nil, err
		}
		then, err := x.expand(n.Then)
		if err != nil {
			return nil, err
		}
		els, err := x.expand(n.Else)
		if err != nil {
			return nil, err
		}
		return &ir.If{Cond: cond, Then: then, Else: els}, nil
	case *ir.Operation:
		args, err := x.expandAll(n.Args)
		if err != nil {
			return nil, err
		}
		return &ir.Operation{Op: n.Op, Args: args}, nil
	case *ir.Call:
		return x.expandCall(n)
	case *ir.Prim:
		return x.expandPrim(n)
	case *ir.Try:
		body, err := x.expand(n.Body)
		if err != nil {
			return nil, err
		}
		if n.Malformed {
			return &ir.Try{Body: body, Malformed: true}, nil
		}
		catchBody, err := x.expand(n.CatchBody)
		if err != nil {
			return nil, err
		}
		return &ir.Try{Body: body, CatchSym: n.CatchSym, CatchBody: catchBody}, nil
	case *ir.Throw:
		v, err := x.expand(n.Value)
		if err != nil {
			return nil, err
		}
		return &ir.Throw{Value: v}, nil
	default:
		return nil, fmt.Errorf("interp: expand: unhandled term %T", t)
	}
}

func (x *Expander) expandAll(terms []ir.Term) ([]ir.Term, error) {
	out := make([]ir.Term, len(terms))
	for i, t := range terms {
		v, err := x.expand(t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (x *Expander) expandCall(n *ir.Call) (ir.Term, error) {
	if v, ok := n.Fun.(*ir.Variable); ok && v.Kind == ir.VarGlobal {
		if d, ok := x.env.Global(v.Sym); ok && d.isMacro {
			return x.expandMacroCall(d.value, n.Args)
		}
	}
	fun, err := x.expand(n.Fun)
	if err != nil {
		return nil, err
	}
	args, err := x.expandAll(n.Args)
	if err != nil {
		return nil, err
	}
	return &ir.Call{Fun: fun, Args: args}, nil
}

// expandMacroCall runs a macro transformer against its call's unevaluated argument terms and
// re-specializes whatever data it returns, then recursively expands that in case the macro produced
// another macro call.
func (x *Expander) expandMacroCall(transformer runtime.Value, argTerms []ir.Term) (ir.Term, error) {
	args := make([]runtime.Value, len(argTerms))
	for i, t := range argTerms {
		v, err := termToValue(t)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	result, err := Apply(transformer, args, x.env)
	if err != nil {
		return nil, err
	}
	expanded, err := valueToTerm(result)
	if err != nil {
		return nil, err
	}
	return x.expand(expanded)
}

// expandPrim expands the sub-terms of a structural primitive without disturbing its Kind or
// non-Term fields (Elems aside, which is expanded element-wise).
func (x *Expander) expandPrim(n *ir.Prim) (ir.Term, error) {
	out := *n
	var err error
	if n.Operand != nil {
		if out.Operand, err = x.expand(n.Operand); err != nil {
			return nil, err
		}
	}
	if n.Operand2 != nil {
		if out.Operand2, err = x.expand(n.Operand2); err != nil {
			return nil, err
		}
	}
	if n.Operand3 != nil {
		if out.Operand3, err = x.expand(n.Operand3); err != nil {
			return nil, err
		}
	}
	if n.Elems != nil {
		if out.Elems, err = x.expandAll(n.Elems); err != nil {
			return nil, err
		}
	}
	if n.Func != nil {
		if out.Func, err = x.expand(n.Func); err != nil {
			return nil, err
		}
	}
	return &out, nil
}

// termToValue renders t back to surface text (print.go already knows how to print every Term kind
// as valid syntax) and reads it back as plain data, the same conversion quote performs on a literal
// datum.
func termToValue(t ir.Term) (runtime.Value, error) {
	node, err := readOneNode(t.String())
	if err != nil {
		return runtime.Nil, err
	}
	return nodeToValue(node)
}

func readOneNode(src string) (frontend.Node, error) {
	r := frontend.NewReader(src)
	node, ok, err := r.Read()
	if err != nil {
		return frontend.Node{}, err
	}
	if !ok {
		return frontend.Node{}, fmt.Errorf("interp: expand: empty term rendering %q", src)
	}
	return node, nil
}

func nodeToValue(n frontend.Node) (runtime.Value, error) {
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
			elem, err := nodeToValue(n.Children[i])
			if err != nil {
				return runtime.Nil, err
			}
			list = runtime.NewCons(elem, list)
		}
		return list, nil
	default:
		return runtime.Nil, fmt.Errorf("interp: expand: unsupported node type %v", n.Type)
	}
}

// valueToTerm reads a macro's result value back into a term, using a fresh top-level Ctx: a macro
// only ever sees its arguments as opaque data, so whatever it returns is specialized as if it had
// been written at the top level, not in the lexical scope of the call site.
func valueToTerm(v runtime.Value) (ir.Term, error) {
	node, err := valueToNode(v)
	if err != nil {
		return nil, err
	}
	return ir.Specialize(ir.NewCtx(), node), nil
}

func valueToNode(v runtime.Value) (frontend.Node, error) {
	switch runtime.Classify(v).Kind {
	case runtime.KindInt:
		return frontend.Node{Type: frontend.NodeNumber, Number: uint64(v.Int())}, nil
	case runtime.KindString:
		return frontend.Node{Type: frontend.NodeString, Text: v.Str()}, nil
	case runtime.KindBool:
		text := "false"
		if v.Bool() {
			text = "true"
		}
		return frontend.Node{Type: frontend.NodeAtom, Text: text}, nil
	case runtime.KindNil:
		return frontend.Node{Type: frontend.NodeList}, nil
	case runtime.KindSymbol:
		sym, ok := v.Symbol()
		if !ok {
			return frontend.Node{}, fmt.Errorf("interp: expand: unregistered symbol in macro result")
		}
		return frontend.Node{Type: frontend.NodeIdentifier, Text: sym.Name()}, nil
	case runtime.KindCons:
		var children []frontend.Node
		cur := v
		for cur.IsCons() {
			child, err := valueToNode(cur.Head())
			if err != nil {
				return frontend.Node{}, err
			}
			children = append(children, child)
			cur = cur.Tail()
		}
		if !cur.IsNil() {
			return frontend.Node{}, fmt.Errorf("interp: expand: macro result is a dotted list, not valid syntax")
		}
		return frontend.Node{Type: frontend.NodeList, Children: children}, nil
	case runtime.KindVector:
		children := []frontend.Node{{Type: frontend.NodeIdentifier, Text: "vec!"}}
		for i := 0; i < v.Len(); i++ {
			child, err := valueToNode(v.Get(i))
			if err != nil {
				return frontend.Node{}, err
			}
			children = append(children, child)
		}
		return frontend.Node{Type: frontend.NodeList, Children: children}, nil
	default:
		return frontend.Node{}, fmt.Errorf("interp: expand: macro result has no surface syntax")
	}
}
