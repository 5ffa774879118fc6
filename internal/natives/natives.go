// Package natives implements the native-function registry the compiler's
// external-collaborator notes call for: Go functions installed into a
// VM's global table so Ash source can call them like any other
// function, through the same OpCall path.
package natives

import (
	"fmt"
	"time"

	c "github.com/ashlang/ashc/internal/compiler"
	"github.com/ashlang/ashc/internal/utils"
)

// register is a one native function and the arity it enforces before its
// Go implementation ever runs.
type register struct {
	arity int
	fn    c.NativeFunc
}

// Installer defines globals, matching the subset of *vm.VM the registry
// needs — natives doesn't import vm so the dependency only runs one way
// (vm -> natives, wired by cmd/ashc), keeping internal/vm free to import
// internal/natives for its default Install wiring without a cycle.
type Installer interface {
	Define(name string, val c.Value)
}

var registry = map[string]register{
	"clock": {0, func(_ []c.Value) (c.Value, error) {
		return c.VNum(float64(time.Now().UnixNano()) / 1e9), nil
	}},
	"len": {1, func(args []c.Value) (c.Value, error) {
		s, ok := args[0].(c.VStr)
		if !ok {
			return nil, fmt.Errorf("len: argument must be a string")
		}
		return c.VNum(len(string(s))), nil
	}},
	"str": {1, func(args []c.Value) (c.Value, error) {
		return c.NewVStr(args[0].String()), nil
	}},
	"num": {1, func(args []c.Value) (c.Value, error) {
		// Coerces any value through its truthiness rather than
		// rejecting non-numbers outright: `num(nil)` is 0, `num(1)` is
		// a no-op, matching Ash's own "everything has a truth value"
		// stance (see compiler.Truthy).
		if n, ok := args[0].(c.VNum); ok {
			return n, nil
		}
		return c.VNum(utils.BoolToInt[int](c.Truthy(args[0]))), nil
	}},
}

// Install defines every native function on target.
func Install(target Installer) {
	for name, r := range registry {
		fn, arity := r.fn, r.arity
		target.Define(name, c.NewVNative(name, arityChecked(name, arity, fn)))
	}
}

// arityChecked wraps fn so a mismatched call count surfaces as an Ash
// runtime error pointing at the native's own name instead of an index
// panic deeper inside fn.
func arityChecked(name string, arity int, fn c.NativeFunc) c.NativeFunc {
	return func(args []c.Value) (c.Value, error) {
		if len(args) != arity {
			return nil, fmt.Errorf("%s: expected %d arguments but got %d", name, arity, len(args))
		}
		return fn(args)
	}
}
