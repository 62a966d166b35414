package runtime

import (
	"soft/src/symbol"
	"testing"
)

func TestIntRoundtrip(t *testing.T) {
	cases := []int64{0, 1, -1, 42, -42, 1 << 40, -(1 << 40)}
	for _, c := range cases {
		v := NewInt(c)
		if !v.IsInt() {
			t.Fatalf("NewInt(%d): expected IsInt", c)
		}
		if got := v.Int(); got != c {
			t.Errorf("NewInt(%d).Int() = %d", c, got)
		}
		if v.tag() != TagInt {
			t.Errorf("NewInt(%d): low 3 bits not zero: tag=%03b", c, v.tag())
		}
	}
}

func TestBoolAndNil(t *testing.T) {
	if !True.IsBool() || !True.Bool() {
		t.Error("True is not a true boolean")
	}
	if !False.IsBool() || False.Bool() {
		t.Error("False is not a false boolean")
	}
	if !Nil.IsNil() {
		t.Error("Nil is not nil")
	}
	if Nil.Truthy() {
		t.Error("nil must not be truthy")
	}
	if False.Truthy() {
		t.Error("false must not be truthy")
	}
	if NewInt(0).Truthy() {
		t.Error("integer zero must not be truthy")
	}
	if !NewInt(1).Truthy() {
		t.Error("nonzero integer must be truthy")
	}
}

func TestCharRoundtrip(t *testing.T) {
	v := NewChar('λ')
	if !v.IsChar() {
		t.Fatal("expected IsChar")
	}
	if v.Char() != 'λ' {
		t.Errorf("got %q", v.Char())
	}
}

func TestConsAndClassify(t *testing.T) {
	v := NewCons(NewInt(1), NewCons(NewInt(2), Nil))
	if fp := Classify(v); fp.Kind != KindCons {
		t.Fatalf("expected KindCons, got %d", fp.Kind)
	}
	if v.Head().Int() != 1 {
		t.Errorf("head = %d", v.Head().Int())
	}
	if v.Tail().Head().Int() != 2 {
		t.Errorf("second = %d", v.Tail().Head().Int())
	}
	if s := v.String(); s != "(1 2)" {
		t.Errorf("String() = %q", s)
	}
}

func TestDottedPairDisplay(t *testing.T) {
	v := NewCons(NewInt(1), NewInt(2))
	if s := v.String(); s != "(1 . 2)" {
		t.Errorf("String() = %q", s)
	}
}

func TestVector(t *testing.T) {
	v := NewVector([]Value{NewInt(1), NewInt(2), NewInt(3)})
	if v.Len() != 3 {
		t.Fatalf("Len() = %d", v.Len())
	}
	v.Set(1, NewInt(99))
	if v.Get(1).Int() != 99 {
		t.Errorf("Get(1) after Set = %d", v.Get(1).Int())
	}
	if s := v.String(); s != "[1 99 3]" {
		t.Errorf("String() = %q", s)
	}
}

func TestStringValue(t *testing.T) {
	v := NewString("hello")
	if v.Str() != "hello" {
		t.Errorf("Str() = %q", v.Str())
	}
	if s := v.String(); s != `"hello"` {
		t.Errorf("String() = %q", s)
	}
}

func TestSymbolEquality(t *testing.T) {
	a := RegisterSymbol(symbol.New("foo"))
	b := RegisterSymbol(symbol.New("foo"))
	c := RegisterSymbol(symbol.New("bar"))
	if !a.Equal(b) {
		t.Error("two symbols built from the same name must be equal")
	}
	if a.Equal(c) {
		t.Error("symbols built from different names must not be equal")
	}
	if a.String() != "foo" {
		t.Errorf("String() = %q", a.String())
	}
}

func TestEqualityRules(t *testing.T) {
	if !NewInt(5).Equal(NewInt(5)) {
		t.Error("equal integers must compare equal")
	}
	if !NewString("x").Equal(NewString("x")) {
		t.Error("equal strings must compare equal by value")
	}
	v := NewVector([]Value{NewInt(1)})
	if !v.Equal(v) {
		t.Error("identical vector value must equal itself")
	}
	if NewVector([]Value{NewInt(1)}).Equal(NewVector([]Value{NewInt(1)})) {
		t.Error("distinct vector allocations must not compare equal")
	}
}

func TestFreeRemovesFromHeap(t *testing.T) {
	v := NewString("throwaway")
	id := idOf(v)
	v.Free()
	if _, ok := heap.objects[id]; ok {
		t.Error("Free did not remove the object from the heap")
	}
}

func TestClosure(t *testing.T) {
	env := []Value{NewInt(1), NewInt(2)}
	v := NewClosure(env, "code-payload")
	if !v.IsClosure() {
		t.Fatal("expected IsClosure")
	}
	if len(v.Env()) != 2 {
		t.Errorf("Env() length = %d", len(v.Env()))
	}
	if v.Code().(string) != "code-payload" {
		t.Errorf("Code() = %v", v.Code())
	}
}
