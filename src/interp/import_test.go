package interp

import (
	"os"
	"path/filepath"
	"testing"
)

func TestImportLoadsDefinitions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.soft")
	if err := os.WriteFile(path, []byte("(set! answer 42)"), 0o644); err != nil {
		t.Fatalf("write fixture: %s", err)
	}

	env := NewEnvironment()
	RegisterIntrinsics(env)
	mustEval(t, env, `(import "`+path+`")`)

	v := mustEval(t, env, "answer")
	if v.Int() != 42 {
		t.Errorf("answer after import = %s, want 42", v)
	}
}

func TestImportIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lib.soft")
	// Each import bumps a counter; if import were not idempotent, importing the same path twice
	// would run the file's side effects twice.
	src := `(set! counter (+ counter 1))`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("write fixture: %s", err)
	}

	env := NewEnvironment()
	RegisterIntrinsics(env)
	mustEval(t, env, "(set! counter 0)")
	mustEval(t, env, `(import "`+path+`")`)
	mustEval(t, env, `(import "`+path+`")`)

	v := mustEval(t, env, "counter")
	if v.Int() != 1 {
		t.Errorf("counter after two imports of the same path = %s, want 1 (import should be idempotent)", v)
	}
}

func TestImportMissingFile(t *testing.T) {
	env := NewEnvironment()
	RegisterIntrinsics(env)
	_, err := evalSrc(t, env, `(import "/no/such/file.soft")`)
	if err == nil {
		t.Fatal("expected an error importing a nonexistent file")
	}
}
