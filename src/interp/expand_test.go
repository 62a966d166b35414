package interp

import "testing"

// TestExpandMacroRewritesCallSite defines a macro that turns (twice x) into (+ x x) and checks the
// rewritten form evaluates as if it had been written directly. A macro transformer receives each of
// its call's unevaluated argument forms as data (not the whole call form), so the transformer below
// takes x as the single unevaluated argument and builds a (+ x x) list out of it.
func TestExpandMacroRewritesCallSite(t *testing.T) {
	env := NewEnvironment()
	RegisterIntrinsics(env)
	mustEval(t, env, `(setm! twice (lambda (x) (cons (to-atom "+") (cons x (cons x ())))))`)
	v, err := evalSrc(t, env, "(twice 21)")
	if err != nil {
		t.Fatalf("eval (twice 21): %s", err)
	}
	if v.Int() != 42 {
		t.Errorf("(twice 21) = %s, want 42", v)
	}
}

// TestExpandLeavesNonMacroCallsAlone checks that an ordinary function call is never treated as a
// macro invocation, even if it shares a name pattern.
func TestExpandLeavesNonMacroCallsAlone(t *testing.T) {
	env := NewEnvironment()
	mustEval(t, env, "(set! twice (lambda (x) (* x 2)))")
	v := mustEval(t, env, "(twice 10)")
	if v.Int() != 20 {
		t.Errorf("(twice 10) = %s, want 20 (ordinary call, not macro-expanded)", v)
	}
}

// TestTermToValueRoundTripsThroughSurfaceSyntax checks that a macro transformer sees its argument's
// unevaluated surface form as ordinary cons data, by having the transformer quote it back
// unmodified rather than trying to evaluate it (the argument, (ignored 99), is never actually run,
// since "ignored" is not bound to anything).
func TestTermToValueRoundTripsThroughSurfaceSyntax(t *testing.T) {
	env := NewEnvironment()
	RegisterIntrinsics(env)
	mustEval(t, env, `(setm! wrap-quote (lambda (form) (cons (to-atom "quote") (cons form ()))))`)
	v := mustEval(t, env, "(wrap-quote (ignored 99))")
	if !v.IsCons() {
		t.Fatalf("wrap-quote result = %s, want the unevaluated form (ignored 99) as data", v)
	}
	head := v.Head()
	if !head.IsSymbol() {
		t.Fatalf("head of result = %s, want the symbol ignored", head)
	}
	if sym, ok := head.Symbol(); !ok || sym.Name() != "ignored" {
		t.Errorf("head symbol = %v, want ignored", sym)
	}
	if v.Tail().Head().Int() != 99 {
		t.Errorf("second element = %s, want 99", v.Tail().Head())
	}
}
