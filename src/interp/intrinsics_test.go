package interp

import "testing"

func TestPredicates(t *testing.T) {
	env := NewEnvironment()
	RegisterIntrinsics(env)
	cases := []struct {
		src  string
		want bool
	}{
		{"(int? 1)", true},
		{`(int? "s")`, false},
		{"(cons? (cons 1 2))", true},
		{"(nil? ())", true},
		{"(vec? (vec!))", true},
		{"(bool? :true)", true},
		{`(string? "s")`, true},
		{"(function? (lambda (x) x))", true},
	}
	for _, c := range cases {
		v := mustEval(t, env, c.src)
		if v.Bool() != c.want {
			t.Errorf("%s = %s, want %v", c.src, v, c.want)
		}
	}
}

func TestStringOps(t *testing.T) {
	env := NewEnvironment()
	RegisterIntrinsics(env)
	if v := mustEval(t, env, `(string/len "hello")`); v.Int() != 5 {
		t.Errorf(`(string/len "hello") = %s, want 5`, v)
	}
	if v := mustEval(t, env, `(string/concat "foo" "bar")`); v.Str() != "foobar" {
		t.Errorf(`string/concat = %s, want foobar`, v)
	}
	if v := mustEval(t, env, `(string/slice "hello" 1 3)`); v.Str() != "el" {
		t.Errorf(`string/slice = %s, want el`, v)
	}
	if v := mustEval(t, env, `(string/contains? "hello" "ell")`); !v.Bool() {
		t.Error(`string/contains? should be true`)
	}
	if v := mustEval(t, env, `(string/get "hi" 0)`); v.Char() != 'h' {
		t.Errorf(`string/get = %c, want h`, v.Char())
	}
}

func TestStringSplit(t *testing.T) {
	env := NewEnvironment()
	RegisterIntrinsics(env)
	v := mustEval(t, env, `(string/split "a,b,c" ",")`)
	if v.Head().Str() != "a" || v.Tail().Head().Str() != "b" || v.Tail().Tail().Head().Str() != "c" {
		t.Errorf("string/split result = %s, want (a b c)", v)
	}
}

func TestCoercions(t *testing.T) {
	env := NewEnvironment()
	RegisterIntrinsics(env)
	if v := mustEval(t, env, "(to-string 42)"); v.Str() != "42" {
		t.Errorf("(to-string 42) = %s, want \"42\"", v)
	}
	if v := mustEval(t, env, "(to-int :true)"); v.Int() != 1 {
		t.Errorf("(to-int :true) = %s, want 1", v)
	}
	if v := mustEval(t, env, `(to-atom "foo")`); !v.IsSymbol() {
		t.Errorf(`(to-atom "foo") = %s, want a symbol`, v)
	}
}

func TestErrMessage(t *testing.T) {
	env := NewEnvironment()
	RegisterIntrinsics(env)
	mustEval(t, env, `(set! e (vec! (to-atom "soft/error") "boom"))`)
	if v := mustEval(t, env, "(err? e)"); !v.Bool() {
		t.Error("err? of a tagged error vector should be true")
	}
	if v := mustEval(t, env, "(err/message e)"); v.Str() != "boom" {
		t.Errorf("(err/message e) = %s, want boom", v)
	}
}

func TestBuiltinArityError(t *testing.T) {
	env := NewEnvironment()
	RegisterIntrinsics(env)
	_, err := evalSrc(t, env, `(string/len "a" "b")`)
	if err == nil {
		t.Fatal("expected an arity error")
	}
}

func TestMalformedStringOp(t *testing.T) {
	env := NewEnvironment()
	RegisterIntrinsics(env)
	_, err := evalSrc(t, env, "(string/len 5)")
	if _, ok := err.(*MalformedPrimError); !ok {
		t.Fatalf("err = %T, want *MalformedPrimError", err)
	}
}
