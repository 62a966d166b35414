// pipeline.go sequences the passes that turn one read datum into a fully lowered term ready for
// either evaluator: specialize, expand macros to a fixed point, then run free-variable analysis and
// closure conversion. Every step here runs on the calling goroutine; none of them fork workers. That
// is a deliberate restriction, not an oversight — see src/backend/llvm for the one pass in this
// module that is allowed to shard work across util.Options.Threads.
package ir

import "soft/src/frontend"

// Expander macro-expands a specialized term to a fixed point. src/interp supplies the concrete
// implementation; ir depends only on this interface so that the compile pipeline does not import
// the interpreter package (which itself depends on ir.Term).
type Expander interface {
	Expand(t Term) (Term, error)
}

// Compile lowers one top-level surface node all the way to a closure-converted term: specialize,
// expand macros, find free variables (folded into closure conversion), convert closures.
func Compile(ctx Ctx, n frontend.Node, expand Expander) (Term, error) {
	specialized := Specialize(ctx, n)
	expanded, err := expand.Expand(specialized)
	if err != nil {
		return nil, err
	}
	return ClosureConvert(expanded), nil
}

// CompileProgram lowers a whole sequence of independent top-level forms, threading one
// specialization context across them so a later form can see an earlier form's `set!` globals only
// through the evaluator's global environment, never through Ctx (set! never extends Ctx itself,
// matching specializeSet's rewrite into the runtime environment rather than into the lexical scope).
func CompileProgram(nodes []frontend.Node, expand Expander) ([]Term, error) {
	ctx := NewCtx()
	terms := make([]Term, 0, len(nodes))
	for _, n := range nodes {
		t, err := Compile(ctx, n, expand)
		if err != nil {
			return nil, err
		}
		terms = append(terms, t)
	}
	return terms, nil
}
