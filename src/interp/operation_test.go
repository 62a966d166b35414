package interp

import "testing"

func TestOperationArithmeticFoldsLeftToRight(t *testing.T) {
	env := NewEnvironment()
	if v := mustEval(t, env, "(- 10 1 2)"); v.Int() != 7 {
		t.Errorf("(- 10 1 2) = %s, want 7", v)
	}
}

func TestOperationDivisionByZero(t *testing.T) {
	env := NewEnvironment()
	_, err := evalSrc(t, env, "(/ 1 0)")
	if err == nil {
		t.Fatal("expected a division-by-zero error")
	}
}

func TestOperationComparisonChain(t *testing.T) {
	env := NewEnvironment()
	if v := mustEval(t, env, "(< 1 2 3)"); !v.Bool() {
		t.Errorf("(< 1 2 3) = %s, want true", v)
	}
	if v := mustEval(t, env, "(< 1 3 2)"); v.Bool() {
		t.Errorf("(< 1 3 2) = %s, want false", v)
	}
}

func TestOperationEqualityWorksOnNonInts(t *testing.T) {
	env := NewEnvironment()
	if v := mustEval(t, env, `(== "a" "a")`); !v.Bool() {
		t.Errorf(`(== "a" "a") = %s, want true`, v)
	}
	if v := mustEval(t, env, `(!= "a" "b")`); !v.Bool() {
		t.Errorf(`(!= "a" "b") = %s, want true`, v)
	}
}

func TestOperationNot(t *testing.T) {
	env := NewEnvironment()
	if v := mustEval(t, env, "(! :false)"); !v.Bool() {
		t.Errorf("(! :false) = %s, want true", v)
	}
}

// TestOperationShortCircuitSkipsSecondOperand checks that && stops evaluating once the first
// operand is false, by making the second operand a form that would error if evaluated.
func TestOperationShortCircuitSkipsSecondOperand(t *testing.T) {
	env := NewEnvironment()
	v := mustEval(t, env, "(&& :false (/ 1 0))")
	if v.Bool() {
		t.Errorf("(&& :false ...) = %s, want false", v)
	}
}

func TestOperationOrReturnsDecidingOperandRaw(t *testing.T) {
	env := NewEnvironment()
	v := mustEval(t, env, "(|| 5 :false)")
	if !v.IsInt() || v.Int() != 5 {
		t.Errorf("(|| 5 :false) = %s, want the raw int 5, not a coerced bool", v)
	}
}

func TestOperationComparisonRequiresInts(t *testing.T) {
	env := NewEnvironment()
	_, err := evalSrc(t, env, `(> 1 "x")`)
	if err == nil {
		t.Fatal("expected an error comparing an int to a string")
	}
}
