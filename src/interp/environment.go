// environment.go is the runtime context an ir.Term is evaluated against: a stack of call frames,
// each holding the closure environment vector it was invoked with plus the flat set of locals it
// binds itself (parameters and let-bindings), and a single global table of named definitions shared
// by every frame. Because closure conversion (src/ir/closure.go) already rewrote every reference to
// an outer scope's binder into an indexed Variable(Env) lookup, a frame's own locals never need to
// search an enclosing frame: Variable(Local) is always satisfied by the top of the current frame.
//
// Grounded on original_source/soft-interpreter/src/environment.rs's Frame/Environment split, cut
// down to match this tree's post-closure-conversion variable model: the Rust Frame's scope stack
// (one im_rc::HashMap per lexical block, searched innermost-first) collapses to one map per frame
// here: a Let binds into the current frame's map and, once its body has been evaluated, puts back
// any binding of the same name it shadowed (see evalLet in eval.go), not through explicit frame
// scopes.
package interp

import "soft/src/runtime"
import "soft/src/symbol"

// Frame is one active function invocation's local storage.
type Frame struct {
	env      []runtime.Value
	scope    map[uint64]runtime.Value
	catching bool
}

func newFrame(env []runtime.Value) Frame {
	return Frame{env: env, scope: map[uint64]runtime.Value{}}
}

// globalDef is a top-level binding installed by Set (or, with IsMacro set, by setm!).
type globalDef struct {
	sym     symbol.Symbol
	value   runtime.Value
	isMacro bool
}

// Environment is the full evaluation context threaded through Eval.
type Environment struct {
	frames   []Frame
	global   map[uint64]*globalDef
	imported map[string]bool
}

// NewEnvironment returns an environment with one top-level frame and no globals.
func NewEnvironment() *Environment {
	return &Environment{
		frames:   []Frame{newFrame(nil)},
		global:   map[uint64]*globalDef{},
		imported: map[string]bool{},
	}
}

// MarkImported records path as loaded, returning true if it had already been imported (so import
// is idempotent: runImportFile passes an absolute path, and a module sourced twice through different
// relative paths only runs once).
func (e *Environment) MarkImported(path string) (already bool) {
	if e.imported[path] {
		return true
	}
	e.imported[path] = true
	return false
}

func (e *Environment) top() *Frame { return &e.frames[len(e.frames)-1] }

// Depth reports how many frames are on the call stack, for the trampoline's push/replace bookkeeping.
func (e *Environment) Depth() int { return len(e.frames) }

// PushFrame enters a new call with the given closure environment vector.
func (e *Environment) PushFrame(env []runtime.Value) {
	e.frames = append(e.frames, newFrame(env))
}

// PopFrame leaves the innermost call.
func (e *Environment) PopFrame() {
	e.frames = e.frames[:len(e.frames)-1]
}

// EnableCatching marks the current frame as a try handler's target and reports whether it was
// already catching, so the caller can restore that prior state once its try form finishes.
func (e *Environment) EnableCatching() (prev bool) {
	f := e.top()
	prev = f.catching
	f.catching = true
	return prev
}

// SetCatching restores a frame's catching bit to a value previously returned by EnableCatching.
func (e *Environment) SetCatching(v bool) {
	e.top().catching = v
}

// Unwind pops frames above the nearest one marked catching. Grounded on
// original_source/soft-interpreter/src/environment.rs's Environment::unwind, but in this tree an
// error already pops every frame it passes through on its way up the Go call stack (see Eval and
// Apply's own PopFrame calls), so by the time try observes the failure the top frame is normally
// already the one it marked catching — this only does work if that invariant is ever violated.
func (e *Environment) Unwind() {
	for len(e.frames) > 1 && !e.top().catching {
		e.frames = e.frames[:len(e.frames)-1]
	}
}

// Bind stores a local in the current frame.
func (e *Environment) Bind(sym symbol.Symbol, v runtime.Value) {
	e.top().scope[sym.Hash()] = v
}

// Local looks up a name bound within the current frame.
func (e *Environment) Local(sym symbol.Symbol) (runtime.Value, bool) {
	v, ok := e.top().scope[sym.Hash()]
	return v, ok
}

// EnvSlot fetches the index-th value captured in the current frame's closure environment.
func (e *Environment) EnvSlot(index int) (runtime.Value, bool) {
	env := e.top().env
	if index < 0 || index >= len(env) {
		return runtime.Nil, false
	}
	return env[index], true
}

// SetGlobal installs or overwrites a top-level binding.
func (e *Environment) SetGlobal(sym symbol.Symbol, v runtime.Value, isMacro bool) {
	e.global[sym.Hash()] = &globalDef{sym: sym, value: v, isMacro: isMacro}
}

// Global looks up a top-level binding by name.
func (e *Environment) Global(sym symbol.Symbol) (*globalDef, bool) {
	d, ok := e.global[sym.Hash()]
	return d, ok
}

// GlobalValue looks up a top-level binding's value without exposing globalDef, for callers outside
// this package (the LLVM backend's runtime trampoline in particular) that only ever need the value.
func (e *Environment) GlobalValue(sym symbol.Symbol) (runtime.Value, bool) {
	d, ok := e.global[sym.Hash()]
	if !ok {
		return runtime.Nil, false
	}
	return d.value, true
}
