// import.go implements the (import "path") builtin: reading, expanding and evaluating another
// source file's top-level forms into the same global environment. Grounded on
// original_source/soft-interpreter's module loader, simplified to plain relative-path file
// inclusion rather than a package/search-path resolver, since this tree has no build system of its
// own to resolve package names against.
package interp

import (
	"fmt"
	"os"
	"path/filepath"

	"soft/src/frontend"
	"soft/src/ir"
	"soft/src/runtime"
)

func installImport(env *Environment) {
	installBuiltin(env, "import", func(args []runtime.Value, callEnv *Environment) (runtime.Value, error) {
		if err := arity("import", args, 1); err != nil {
			return runtime.Nil, err
		}
		if !args[0].IsString() {
			return runtime.Nil, &MalformedPrimError{Op: "import", Got: args[0]}
		}
		return runtime.Nil, runImportFile(callEnv, args[0].Str())
	})
}

func runImportFile(env *Environment, path string) error {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if env.MarkImported(path) {
		return nil
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("import %q: %w", path, err)
	}
	r := frontend.NewReader(string(src))
	ctx := ir.NewCtx()
	expander := NewExpander(env)
	for {
		node, ok, err := r.Read()
		if err != nil {
			return fmt.Errorf("import %q: %w", path, err)
		}
		if !ok {
			return nil
		}
		term, err := ir.Compile(ctx, node, expander)
		if err != nil {
			return fmt.Errorf("import %q: %w", path, err)
		}
		if _, err := Eval(term, env); err != nil {
			return fmt.Errorf("import %q: %w", path, err)
		}
	}
}
