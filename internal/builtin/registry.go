// Package builtin implements the builtin command set of spec.md §4.5 and
// the registry that resolves a command name to one, grounded on the
// teacher's decorator registry (database/sql driver-registration
// pattern): a mutex-guarded map behind package-level Register/Lookup.
package builtin

import (
	"sync"

	"github.com/bashkit/bashkit/internal/interp"
)

// Registry holds registered builtins by name.
type Registry struct {
	mu    sync.RWMutex
	funcs map[string]interp.Builtin
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{funcs: make(map[string]interp.Builtin)}
}

// Register adds a builtin under name, overwriting any previous entry.
func (r *Registry) Register(name string, fn interp.Builtin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.funcs[name] = fn
}

// Lookup implements interp.Builtins.
func (r *Registry) Lookup(name string) (interp.Builtin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.funcs[name]
	return fn, ok
}

// Names implements interp.Builtins: every registered name, in no
// particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.funcs))
	for name := range r.funcs {
		names = append(names, name)
	}
	return names
}

// Default builds the standard registry of spec.md §4.5: the core POSIX
// builtins this subset supports, plus opaque stubs for the collaborator
// text tools (grep/sed/awk/jq/tar) that operate purely against the VFS.
func Default() *Registry {
	r := NewRegistry()
	r.Register("true", builtinTrue)
	r.Register(":", builtinTrue)
	r.Register("false", builtinFalse)
	r.Register("echo", builtinEcho)
	r.Register("printf", builtinPrintf)
	r.Register("cat", builtinCat)
	r.Register("pwd", builtinPwd)
	r.Register("cd", builtinCd)
	r.Register("export", builtinExport)
	r.Register("unset", builtinUnset)
	r.Register("readonly", builtinReadonly)
	r.Register("local", builtinLocal)
	r.Register("declare", builtinDeclare)
	r.Register("typeset", builtinDeclare)
	r.Register("read", builtinRead)
	r.Register("set", builtinSet)
	r.Register("shift", builtinShift)
	r.Register("test", builtinTest)
	r.Register("[", builtinTestBracket)
	r.Register("mkdir", builtinMkdir)
	r.Register("rm", builtinRm)
	r.Register("ls", builtinLs)
	r.Register("grep", builtinGrep)
	r.Register("sed", builtinSed)
	r.Register("wc", builtinWc)
	r.Register("head", builtinHead)
	r.Register("tail", builtinTail)
	r.Register("sort", builtinSort)
	r.Register("cut", builtinCut)
	r.Register("tr", builtinTr)
	r.Register("basename", builtinBasename)
	r.Register("dirname", builtinDirname)
	return r
}
