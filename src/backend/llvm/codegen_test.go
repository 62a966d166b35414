package llvm

import (
	"testing"

	"tinygo.org/x/go-llvm"

	"soft/src/frontend"
	"soft/src/interp"
	"soft/src/ir"
)

func compileSrc(t *testing.T, env *interp.Environment, src string) ir.Term {
	t.Helper()
	n, ok, err := frontend.NewReader(src).Read()
	if err != nil {
		t.Fatalf("read %q: %s", src, err)
	}
	if !ok {
		t.Fatalf("read %q: expected a datum", src)
	}
	term, err := ir.Compile(ir.NewCtx(), n, interp.NewExpander(env))
	if err != nil {
		t.Fatalf("compile %q: %s", src, err)
	}
	return term
}

// newTestModule sets up a fresh context/module/builder with the runtime trampoline declared, the
// same prelude GenLLVM itself runs before handing any term to gen.term.
func newTestModule(t *testing.T) (llvm.Context, llvm.Module, llvm.Builder) {
	t.Helper()
	globals.m = map[string]llvm.Value{}
	ctx := llvm.NewContext()
	m := ctx.NewModule("test")
	b := ctx.NewBuilder()
	declareRuntimeTrampoline(m)
	return ctx, m, b
}

// buildEntry wraps term in a zero-argument function returning its value and verifies the resulting
// module, the same check GenLLVM performs before JIT-ing.
func buildEntry(t *testing.T, m llvm.Module, b llvm.Builder, term ir.Term) llvm.Value {
	t.Helper()
	ftyp := llvm.FunctionType(word, nil, false)
	fn := llvm.AddFunction(m, "entry", ftyp)
	bb := llvm.AddBasicBlock(fn, "entry")
	b.SetInsertPointAtEnd(bb)

	g := &gen{b: b, m: m, fn: fn, locals: map[uint64]llvm.Value{}}
	v, err := g.term(term)
	if err != nil {
		t.Fatalf("term(%v) = %s", term, err)
	}
	b.CreateRet(v)

	if err := llvm.VerifyModule(m, llvm.ReturnStatusAction); err != nil {
		t.Fatalf("module failed verification: %s", err)
	}
	return fn
}

// TestTermNumberLiteral and TestTermBoolLiteral check that a bare literal compiles to a single
// constant word and the function wrapping it verifies cleanly.
func TestTermNumberLiteral(t *testing.T) {
	ctx, m, b := newTestModule(t)
	defer ctx.Dispose()
	defer m.Dispose()
	defer b.Dispose()

	env := interp.NewEnvironment()
	term := compileSrc(t, env, "42")
	buildEntry(t, m, b, term)
}

func TestTermBoolLiteral(t *testing.T) {
	ctx, m, b := newTestModule(t)
	defer ctx.Dispose()
	defer m.Dispose()
	defer b.Dispose()

	env := interp.NewEnvironment()
	term := compileSrc(t, env, ":true")
	buildEntry(t, m, b, term)
}

// TestArithmeticVerifies checks that a plain arithmetic expression compiles to a verifiable module,
// going through the unbox/compute/rebox path entirely in native LLVM instructions (no trampoline
// call for +, unlike string or cons construction).
func TestArithmeticVerifies(t *testing.T) {
	ctx, m, b := newTestModule(t)
	defer ctx.Dispose()
	defer m.Dispose()
	defer b.Dispose()

	env := interp.NewEnvironment()
	term := compileSrc(t, env, "(+ 1 2)")
	buildEntry(t, m, b, term)
}

// TestIfVerifies checks that an if with two different-typed branches still compiles: the merge PHI
// only needs both operands to be the same LLVM word type, not the same runtime.Kind.
func TestIfVerifies(t *testing.T) {
	ctx, m, b := newTestModule(t)
	defer ctx.Dispose()
	defer m.Dispose()
	defer b.Dispose()

	env := interp.NewEnvironment()
	term := compileSrc(t, env, `(if :true 1 "no")`)
	buildEntry(t, m, b, term)
}

// TestShortCircuitVerifies exercises && and || compiling to real branches.
func TestShortCircuitVerifies(t *testing.T) {
	for _, src := range []string{"(&& :true 1)", "(|| :false 2)"} {
		ctx, m, b := newTestModule(t)
		env := interp.NewEnvironment()
		term := compileSrc(t, env, src)
		buildEntry(t, m, b, term)
		b.Dispose()
		m.Dispose()
		ctx.Dispose()
	}
}

// TestLetVerifies checks sequential let-binding extension compiles and resolves correctly: a later
// binding can reference an earlier one.
func TestLetVerifies(t *testing.T) {
	ctx, m, b := newTestModule(t)
	defer ctx.Dispose()
	defer m.Dispose()
	defer b.Dispose()

	env := interp.NewEnvironment()
	term := compileSrc(t, env, "(let (a 1) (b (+ a 1)) (+ a b))")
	buildEntry(t, m, b, term)
}

// TestBareLambdaRejected checks that a Lambda reaching codegen directly (which closure conversion
// should never leave behind) is reported, not silently mishandled.
func TestBareLambdaRejected(t *testing.T) {
	ctx, m, b := newTestModule(t)
	defer ctx.Dispose()
	defer m.Dispose()
	defer b.Dispose()

	g := &gen{b: b, m: m, locals: map[uint64]llvm.Value{}}
	_, err := g.term(&ir.Lambda{})
	if err == nil {
		t.Fatal("expected an error compiling a bare Lambda")
	}
	if _, ok := err.(*UnsupportedTermError); !ok {
		t.Errorf("err = %T, want *UnsupportedTermError", err)
	}
}

// TestCallUnresolvedGlobal checks that calling a global which was never declared as a top-level
// function reports UnresolvedSymbolError rather than a nil-pointer panic.
func TestCallUnresolvedGlobal(t *testing.T) {
	ctx, m, b := newTestModule(t)
	defer ctx.Dispose()
	defer m.Dispose()
	defer b.Dispose()

	env := interp.NewEnvironment()
	term := compileSrc(t, env, "(f 1 2)")

	g := &gen{b: b, m: m, locals: map[uint64]llvm.Value{}}
	_, err := g.term(term)
	if err == nil {
		t.Fatal("expected an error calling an unresolved global")
	}
	if _, ok := err.(*UnresolvedSymbolError); !ok {
		t.Errorf("err = %T, want *UnresolvedSymbolError", err)
	}
}

// TestCallArityMismatch checks that calling a known top-level function with the wrong number of
// arguments is rejected at codegen time rather than left to crash at JIT time.
func TestCallArityMismatch(t *testing.T) {
	ctx, m, b := newTestModule(t)
	defer ctx.Dispose()
	defer m.Dispose()
	defer b.Dispose()

	ftyp := llvm.FunctionType(word, []llvm.Type{word}, false)
	fn := llvm.AddFunction(m, "f", ftyp)
	globals.m["f"] = fn

	env := interp.NewEnvironment()
	term := compileSrc(t, env, "(f 1 2)")

	g := &gen{b: b, m: m, locals: map[uint64]llvm.Value{}}
	_, err := g.term(term)
	if err == nil {
		t.Fatal("expected an arity mismatch error")
	}
}

func TestSplitTopLevel(t *testing.T) {
	env := interp.NewEnvironment()
	nodes := []string{
		"(set! f (lambda (a) a))",
		"(+ 1 2)",
	}
	var terms []ir.Term
	for _, src := range nodes {
		terms = append(terms, compileSrc(t, env, src))
	}

	funcs, body, err := splitTopLevel(terms)
	if err != nil {
		t.Fatalf("splitTopLevel: %s", err)
	}
	if len(funcs) != 1 || funcs[0].name.Name() != "f" {
		t.Fatalf("funcs = %v, want one wrapper named f", funcs)
	}
	if len(body) != 1 {
		t.Fatalf("body = %v, want one leftover form", body)
	}
}

// TestSplitTopLevelRejectsCapturingTopLevel checks that a top-level binding whose lambda still
// captures something (which closure conversion should never produce for a true top-level form) is
// reported instead of silently compiled wrong.
func TestSplitTopLevelRejectsCapturingTopLevel(t *testing.T) {
	env := interp.NewEnvironment()
	term := compileSrc(t, env, "(let (n 1) (set! f (lambda (a) (+ a n))))")
	let, ok := term.(*ir.Let)
	if !ok {
		t.Fatalf("term = %T, want *ir.Let", term)
	}
	_, _, err := splitTopLevel([]ir.Term{let.Body})
	if err == nil {
		t.Fatal("expected an error for a top-level function capturing a free variable")
	}
}

// TestQuoteConstantList checks that a quoted list bakes down to a chain of cons cells built
// entirely at codegen time, with the same head/tail structure the interpreter's quoteValue would
// have produced at eval time.
func TestQuoteConstantList(t *testing.T) {
	env := interp.NewEnvironment()
	term := compileSrc(t, env, "'(1 2 3)")
	q, ok := term.(*ir.Quote)
	if !ok {
		t.Fatalf("term = %T, want *ir.Quote", term)
	}
	v, err := quoteConstant(q.Datum)
	if err != nil {
		t.Fatalf("quoteConstant: %s", err)
	}
	head := v.Head()
	if head.Int() != 1 {
		t.Errorf("head = %d, want 1", head.Int())
	}
	second := v.Tail().Head()
	if second.Int() != 2 {
		t.Errorf("second = %d, want 2", second.Int())
	}
}

func TestQuoteConstantRejectsUnquote(t *testing.T) {
	env := interp.NewEnvironment()
	term := compileSrc(t, env, "'(1 ,x)")
	q, ok := term.(*ir.Quote)
	if !ok {
		t.Fatalf("term = %T, want *ir.Quote", term)
	}
	// The inner unquoted element should fail when baked as a codegen-time constant.
	for _, child := range q.Datum.Children {
		if len(child.Prefixes) > 0 {
			_, err := quoteConstant(child)
			if err == nil {
				t.Fatal("expected an error quoting an unquoted datum at codegen time")
			}
			return
		}
	}
	t.Fatal("expected to find an unquoted child in the test fixture")
}
