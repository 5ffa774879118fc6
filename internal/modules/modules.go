// Package modules resolves the `using "path";` statement the compiler
// emits as OpImport. The path "natives" names the one built-in module,
// which installs the native-function registry; any other path is read
// from disk relative to baseDir (with ".ash" appended when it has no
// extension), compiled, and run once for its side effects (global
// definitions).
package modules

import (
	"os"
	"path/filepath"
	"sync"

	c "github.com/ashlang/ashc/internal/compiler"
	e "github.com/ashlang/ashc/internal/errors"
	"github.com/ashlang/ashc/internal/natives"
)

// Target is the subset of *vm.VM a module needs to install itself: the
// ability to register globals and to run a compiled chunk in its own
// frame. modules never imports vm directly for the same reason natives
// doesn't — cmd/ashc wires the concrete *vm.VM in.
type Target interface {
	Define(name string, val c.Value)
	Run(fun c.VFun) error
}

// Loader resolves `using` paths against a source root and memoizes each
// distinct path so a module's top-level code runs at most once per
// Loader, matching ordinary import-once semantics.
type Loader struct {
	BaseDir string

	mu     sync.Mutex
	loaded map[string]bool
}

func NewLoader(baseDir string) *Loader {
	return &Loader{BaseDir: baseDir, loaded: map[string]bool{}}
}

// Load is installed as a vm.VM's Importer.
func (l *Loader) Load(path string, into Target) error {
	l.mu.Lock()
	already := l.loaded[path]
	l.loaded[path] = true
	l.mu.Unlock()
	if already {
		return nil
	}

	if path == "natives" {
		natives.Install(into)
		return nil
	}

	full := filepath.Join(l.BaseDir, path)
	if filepath.Ext(full) == "" {
		full += ".ash"
	}
	src, err := os.ReadFile(full)
	if err != nil {
		return &e.RuntimeError{Line: -1, Reason: "can't open module '" + path + "': " + err.Error()}
	}

	fun, err := c.Compile(string(src))
	if err != nil {
		return &e.RuntimeError{Line: -1, Reason: "module '" + path + "' failed to compile: " + err.Error()}
	}
	return into.Run(fun)
}
