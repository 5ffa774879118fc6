package compiler

import (
	"fmt"

	"github.com/josharian/intern"
)

// Value is the runtime representation of every constant the compiler can
// emit and every slot the VM stack can hold: nil, bool, number, string, or
// function. There is no separate "object" tag the way the original spec's
// §3 data model describes a tagged union with an object-ref case — Go's
// interface dispatch gives us that for free.
type Value interface {
	isValue()
	String() string
}

// VNil is the sole nil value.
type VNil struct{}

func (VNil) isValue()       {}
func (VNil) String() string { return "nil" }

// NewValue returns the zero Value (nil), mirroring the teacher's
// NewValue helper used as a safe default return before a type switch
// has determined whether an operation actually applies.
func NewValue() Value { return VNil{} }

// VBool is a boolean value.
type VBool bool

func (VBool) isValue()         {}
func (v VBool) String() string { return fmt.Sprintf("%t", bool(v)) }

// VNum is an IEEE-754 double, the only numeric type Ash has.
type VNum float64

func (VNum) isValue()         {}
func (v VNum) String() string { return fmt.Sprintf("%g", float64(v)) }

// VStr is an interned string. Two VStr constants built from the same
// lexeme bytes compare equal and share storage, matching the spec's
// requirement that "same lexeme bytes -> same constant pool entry".
type VStr string

func (VStr) isValue()         {}
func (v VStr) String() string { return fmt.Sprintf("%q", string(v)) }

// NewVStr interns s through the shared string interner so that repeated
// identifiers and string literals across a compile (and across compiles)
// do not each allocate their own backing array.
func NewVStr(s string) VStr { return VStr(intern.String(s)) }

// VFun is a compiled function: its interned name (nil for the top-level
// script), its arity, and the chunk emitted for its body. It is the value
// left on the stack by a `func` declaration's enclosing OpConst.
type VFun struct {
	name  *string
	arity int
	chunk *Chunk
}

// NewVFun allocates the function object a new Compiler frame builds into.
func NewVFun() VFun { return VFun{chunk: NewChunk()} }

func (VFun) isValue() {}

func (v VFun) String() string {
	return fmt.Sprintf("<fn %s>", v.Name())
}

// Name returns the function's name, or "script" for the implicit
// top-level frame that never gets one.
func (v VFun) Name() string {
	if v.name == nil {
		return "script"
	}
	return *v.name
}

func (v VFun) Arity() int    { return v.arity }
func (v VFun) Chunk() *Chunk { return v.chunk }

// NativeFunc is a Go function installed as an Ash callable (see
// internal/natives). It receives already-evaluated arguments and returns
// the value to leave on the stack.
type NativeFunc func(args []Value) (Value, error)

// VNative wraps a NativeFunc as a Value so it can live in the VM's global
// table and be called through the same OpCall path as a VFun.
type VNative struct {
	name string
	fn   NativeFunc
}

func NewVNative(name string, fn NativeFunc) VNative { return VNative{name: name, fn: fn} }

func (VNative) isValue()         {}
func (v VNative) String() string { return fmt.Sprintf("<native fn %s>", v.name) }
func (v VNative) Name() string   { return v.name }
func (v VNative) Call(args []Value) (Value, error) { return v.fn(args) }

// Truthy implements Ash's truthiness rule: nil and false are falsey,
// everything else — including 0 and the empty string — is truthy.
func Truthy(v Value) bool {
	switch v := v.(type) {
	case VBool:
		return bool(v)
	case VNil:
		return false
	default:
		return true
	}
}

// Eq implements OpEqual's value comparison. Values of different dynamic
// types are never equal.
func Eq(v, w Value) bool {
	switch v := v.(type) {
	case VBool:
		w, ok := w.(VBool)
		return ok && v == w
	case VNum:
		w, ok := w.(VNum)
		return ok && v == w
	case VStr:
		w, ok := w.(VStr)
		return ok && v == w
	case VNil:
		_, ok := w.(VNil)
		return ok
	default:
		return false
	}
}
