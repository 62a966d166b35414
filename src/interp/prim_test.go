package interp

import "testing"

func TestPrimConsHeadTail(t *testing.T) {
	env := NewEnvironment()
	v := mustEval(t, env, "(cons 1 2)")
	if v.Head().Int() != 1 || v.Tail().Int() != 2 {
		t.Errorf("(cons 1 2) = %s, want (1 . 2)", v)
	}
	if mustEval(t, env, "(head (cons 1 2))").Int() != 1 {
		t.Error("head of cons should be 1")
	}
	if mustEval(t, env, "(tail (cons 1 2))").Int() != 2 {
		t.Error("tail of cons should be 2")
	}
}

func TestPrimHeadOfNonConsErrors(t *testing.T) {
	env := NewEnvironment()
	_, err := evalSrc(t, env, "(head 5)")
	if _, ok := err.(*MalformedPrimError); !ok {
		t.Fatalf("err = %T, want *MalformedPrimError", err)
	}
}

func TestPrimVectorRoundTrip(t *testing.T) {
	env := NewEnvironment()
	v := mustEval(t, env, "(vec! 1 2 3)")
	if !v.IsVector() || v.Len() != 3 {
		t.Fatalf("(vec! 1 2 3) = %s, want a 3-element vector", v)
	}
	if mustEval(t, env, "(vec/get (vec! 10 20 30) 1)").Int() != 20 {
		t.Error("vec/get index 1 should be 20")
	}
	if mustEval(t, env, "(vec/len (vec! 10 20 30))").Int() != 3 {
		t.Error("vec/len should be 3")
	}
}

func TestPrimVecSetMutatesAndReturnsValue(t *testing.T) {
	env := NewEnvironment()
	mustEval(t, env, "(set! v (vec! 1 2 3))")
	result := mustEval(t, env, "(vec/set! v 0 99)")
	if result.Int() != 99 {
		t.Errorf("vec/set! should return the new value, got %s", result)
	}
	if mustEval(t, env, "(vec/get v 0)").Int() != 99 {
		t.Error("vec/set! should have mutated the vector in place")
	}
}

func TestPrimVecIndexOutOfRange(t *testing.T) {
	env := NewEnvironment()
	_, err := evalSrc(t, env, "(vec/get (vec! 1 2) 5)")
	if _, ok := err.(*MalformedPrimError); !ok {
		t.Fatalf("err = %T, want *MalformedPrimError", err)
	}
}

func TestPrimBoxRoundTrip(t *testing.T) {
	env := NewEnvironment()
	mustEval(t, env, "(set! b (box 1))")
	if mustEval(t, env, "(unbox b)").Int() != 1 {
		t.Error("unbox of (box 1) should be 1")
	}
	mustEval(t, env, "(box-set! b 2)")
	if mustEval(t, env, "(unbox b)").Int() != 2 {
		t.Error("box-set! should have mutated the box")
	}
}

func TestPrimUnboxRejectsPlainVector(t *testing.T) {
	env := NewEnvironment()
	_, err := evalSrc(t, env, "(unbox (vec! 1 2))")
	if _, ok := err.(*MalformedPrimError); !ok {
		t.Fatalf("err = %T, want *MalformedPrimError (unbox requires a length-one vector)", err)
	}
}

func TestPrimTypeOf(t *testing.T) {
	env := NewEnvironment()
	cases := map[string]string{
		"(type-of 1)":       "int",
		`(type-of "s")`:     "string",
		"(type-of (vec!))":  "vector",
		"(type-of (cons 1 2))": "cons",
		"(type-of :true)":   "bool",
	}
	for src, want := range cases {
		v := mustEval(t, env, src)
		if !v.IsSymbol() {
			t.Fatalf("%s = %s, want a symbol", src, v)
		}
		sym, ok := v.Symbol()
		if !ok || sym.Name() != want {
			t.Errorf("%s = %v, want %s", src, sym, want)
		}
	}
}

func TestPrimGetEnv(t *testing.T) {
	env := NewEnvironment()
	mustEval(t, env, "(set! x 7)")
	v := mustEval(t, env, "(get-env x)")
	if v.Int() != 7 {
		t.Errorf("(get-env x) = %s, want 7", v)
	}
}

func TestPrimGetEnvUndefined(t *testing.T) {
	env := NewEnvironment()
	_, err := evalSrc(t, env, "(get-env nosuch)")
	if _, ok := err.(*UndefinedNameError); !ok {
		t.Fatalf("err = %T, want *UndefinedNameError", err)
	}
}

func TestPrimCreateClosureCapturesLetBinding(t *testing.T) {
	env := NewEnvironment()
	v := mustEval(t, env, "(let (n 10) ((lambda (a) (+ a n)) 5))")
	if v.Int() != 15 {
		t.Errorf("closure capturing n = %s, want 15", v)
	}
}
