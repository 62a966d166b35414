package ir

import "testing"

func specializeSrc(t *testing.T, src string) Term {
	t.Helper()
	return Specialize(NewCtx(), readOne(t, src))
}

// TestClosureConvertNoCapture checks that a lambda referencing only its own parameter is marked
// lifted and gets an empty capture list.
func TestClosureConvertNoCapture(t *testing.T) {
	term := ClosureConvert(specializeSrc(t, "(lambda (a) a)"))
	prim, ok := term.(*Prim)
	if !ok || prim.Kind != PrimCreateClosure {
		t.Fatalf("ClosureConvert(lambda (a) a) = %#v, want Prim(CreateClosure)", term)
	}
	lam, ok := prim.Func.(*Lambda)
	if !ok {
		t.Fatalf("prim.Func = %T, want *Lambda", prim.Func)
	}
	if !lam.IsLifted {
		t.Errorf("lambda with no free variables should be IsLifted")
	}
	if len(prim.Env) != 0 {
		t.Errorf("got %d captures, want 0", len(prim.Env))
	}
}

// TestClosureConvertCapturesOuterLet checks that a lambda nested inside a let which references the
// let-bound name captures it by name, rewriting the reference to Variable(Env).
func TestClosureConvertCapturesOuterLet(t *testing.T) {
	term := ClosureConvert(specializeSrc(t, "(let (n 1) (lambda (a) (+ a n)))"))
	let, ok := term.(*Let)
	if !ok {
		t.Fatalf("outer term = %T, want *Let", term)
	}
	prim, ok := let.Body.(*Prim)
	if !ok || prim.Kind != PrimCreateClosure {
		t.Fatalf("let body = %#v, want Prim(CreateClosure)", let.Body)
	}
	if lam := prim.Func.(*Lambda); lam.IsLifted {
		t.Errorf("lambda capturing n should not be IsLifted")
	}
	if len(prim.Env) != 1 || prim.Env[0].Sym.Name() != "n" {
		t.Fatalf("captures = %v, want [n]", prim.Env)
	}
	capturedValue, ok := prim.Env[0].Value.(*Variable)
	if !ok || capturedValue.Kind != VarLocal {
		t.Fatalf("capture value = %#v, want Local Variable referencing the let binding", prim.Env[0].Value)
	}

	op, ok := prim.Func.(*Lambda).Def.Body.(*Operation)
	if !ok {
		t.Fatalf("lambda body = %T, want *Operation", prim.Func.(*Lambda).Def.Body)
	}
	nRef, ok := op.Args[1].(*Variable)
	if !ok || nRef.Kind != VarEnv {
		t.Fatalf("reference to n inside body = %#v, want Env Variable", op.Args[1])
	}
}

// TestClosureConvertNestedLambdaOwnParam checks that a reference to the innermost lambda's own
// parameter is left as a Local variable, never captured.
func TestClosureConvertNestedLambdaOwnParam(t *testing.T) {
	term := ClosureConvert(specializeSrc(t, "(lambda (a) (lambda (b) (+ a b)))"))
	outer := term.(*Prim).Func.(*Lambda)
	inner := outer.Def.Body.(*Prim)
	if inner.Kind != PrimCreateClosure {
		t.Fatalf("inner body = %#v, want Prim(CreateClosure)", inner)
	}
	if len(inner.Env) != 1 || inner.Env[0].Sym.Name() != "a" {
		t.Fatalf("inner captures = %v, want [a]", inner.Env)
	}
	op := inner.Func.(*Lambda).Def.Body.(*Operation)
	aRef := op.Args[0].(*Variable)
	bRef := op.Args[1].(*Variable)
	if aRef.Kind != VarEnv {
		t.Errorf("a inside innermost body = %v, want Env", aRef.Kind)
	}
	if bRef.Kind != VarLocal {
		t.Errorf("b inside innermost body = %v, want Local", bRef.Kind)
	}
}
