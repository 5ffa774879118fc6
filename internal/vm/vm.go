// Package vm executes the bytecode internal/compiler produces. It is the
// compiler's other external collaborator — the compiler never imports
// this package, only the other way around, so the VM can evolve its
// opcode handling independently of the single-pass parsing that emitted
// the chunk it runs.
package vm

import (
	"fmt"
	"math"

	c "github.com/ashlang/ashc/internal/compiler"
	e "github.com/ashlang/ashc/internal/errors"
	"github.com/ashlang/ashc/internal/modules"
	"github.com/sirupsen/logrus"
)

const framesMax = 64

// frame is one active call's bookkeeping: the function it is executing,
// its instruction pointer into that function's chunk, and the index into
// the shared value stack where its locals (slot 0 is the callee itself)
// begin.
type frame struct {
	fun      c.VFun
	ip       int
	stackBot int
}

// VM is a stack machine: one shared value stack across all active call
// frames, plus the global table that OpGetGlobal/OpSetGlobal/OpDefGlobal
// address by interned name.
type VM struct {
	frames  []frame
	stack   []c.Value
	globals map[c.Value]c.Value

	// Importer resolves a using "path" statement's argument to the
	// module it names. It takes a modules.Target rather than a bare
	// *VM so the field's type matches a (*modules.Loader).Load method
	// value exactly - modules never imports this package back, so the
	// dependency only runs one way. Nil-able: VMs built directly (e.g.
	// in compiler-focused tests) that never exercise OpImport don't
	// need one wired up.
	Importer func(path string, into modules.Target) error
}

// New returns a VM with empty stacks, ready for Interpret or Run.
func New() *VM {
	return &VM{globals: map[c.Value]c.Value{}}
}

// Define installs name as a global bound to val — how natives and
// imported modules populate the table OpGetGlobal reads from.
func (vm *VM) Define(name string, val c.Value) {
	vm.globals[c.NewVStr(name)] = val
}

// Get reads a global by name, for embedders and tests that need to
// inspect state without routing it through `info`.
func (vm *VM) Get(name string) (c.Value, bool) {
	val, ok := vm.globals[c.NewVStr(name)]
	return val, ok
}

func (vm *VM) push(val c.Value) { vm.stack = append(vm.stack, val) }

func (vm *VM) pop() (last c.Value) {
	n := len(vm.stack)
	vm.stack, last = vm.stack[:n-1], vm.stack[n-1]
	return
}

func (vm *VM) peek(dist int) c.Value { return vm.stack[len(vm.stack)-1-dist] }

// Interpret compiles src and runs it as the program's top-level script.
func (vm *VM) Interpret(src string) error {
	fun, err := c.Compile(src)
	if err != nil {
		return err
	}
	return vm.Run(fun)
}

// Run pushes fun as a new call frame over the current stack and executes
// until that frame (and everything it calls) returns. Module loaders use
// this directly to run an imported file's top-level code for its side
// effects, without going through a fresh compile.
func (vm *VM) Run(fun c.VFun) error {
	vm.push(fun)
	if err := vm.call(fun, 0); err != nil {
		return err
	}
	return vm.exec()
}

func (vm *VM) call(fun c.VFun, argCount int) error {
	if fun.Arity() != argCount {
		return vm.runtimeErr(fmt.Sprintf("expected %d arguments but got %d", fun.Arity(), argCount))
	}
	if len(vm.frames) >= framesMax {
		return vm.runtimeErr("stack overflow")
	}
	vm.frames = append(vm.frames, frame{fun: fun, stackBot: len(vm.stack) - argCount - 1})
	return nil
}

func (vm *VM) curr() *frame { return &vm.frames[len(vm.frames)-1] }

func (vm *VM) readByte() byte {
	f := vm.curr()
	b := f.fun.Chunk().Code[f.ip]
	f.ip++
	return b
}

func (vm *VM) readShort() int {
	hi, lo := vm.readByte(), vm.readByte()
	return int(hi)<<8 | int(lo)
}

func (vm *VM) readConst() c.Value { return vm.curr().fun.Chunk().Constants[vm.readByte()] }

func (vm *VM) runtimeErr(reason string) error {
	f := vm.curr()
	line := -1
	if f.ip > 0 && f.ip-1 < len(f.fun.Chunk().Lines) {
		line = f.fun.Chunk().Lines[f.ip-1]
	}
	return &e.RuntimeError{Line: line, Reason: reason}
}

// exec is the bytecode dispatch loop. It runs until the frame Run pushed
// executes OpReturn, at which point that frame's result is discarded and
// the stack is truncated back to the frame's base.
func (vm *VM) exec() error {
	baseFrames := len(vm.frames) - 1

	for {
		f := vm.curr()
		if logrus.IsLevelEnabled(logrus.DebugLevel) {
			inst, _ := f.fun.Chunk().DisassembleInst(f.ip)
			logrus.Debugln(vm.stackTrace(), inst)
		}

		switch op := c.OpCode(vm.readByte()); op {
		case c.OpConst:
			vm.push(vm.readConst())
		case c.OpNil:
			vm.push(c.NewValue())
		case c.OpTrue:
			vm.push(c.VBool(true))
		case c.OpFalse:
			vm.push(c.VBool(false))
		case c.OpPop:
			vm.pop()
		case c.OpGetLocal:
			vm.push(vm.stack[f.stackBot+int(vm.readByte())])
		case c.OpSetLocal:
			vm.stack[f.stackBot+int(vm.readByte())] = vm.peek(0)
		case c.OpGetGlobal:
			name := vm.readConst()
			val, ok := vm.globals[name]
			if !ok {
				return vm.runtimeErr(fmt.Sprintf("undefined variable '%s'", name))
			}
			vm.push(val)
		case c.OpDefGlobal:
			vm.globals[vm.readConst()] = vm.pop()
		case c.OpSetGlobal:
			name := vm.readConst()
			if _, ok := vm.globals[name]; !ok {
				return vm.runtimeErr(fmt.Sprintf("undefined variable '%s'", name))
			}
			vm.globals[name] = vm.peek(0)
		case c.OpEqual:
			rhs := vm.pop()
			vm.push(c.VBool(c.Eq(vm.pop(), rhs)))
		case c.OpGreater, c.OpLess:
			if err := vm.numericCompare(op); err != nil {
				return err
			}
		case c.OpAdd:
			if err := vm.add(); err != nil {
				return err
			}
		case c.OpSub, c.OpMul, c.OpDiv, c.OpMod, c.OpPow:
			if err := vm.arith(op); err != nil {
				return err
			}
		case c.OpNot:
			vm.push(c.VBool(!c.Truthy(vm.pop())))
		case c.OpNeg:
			n, ok := vm.pop().(c.VNum)
			if !ok {
				return vm.runtimeErr("operand must be a number")
			}
			vm.push(-n)
		case c.OpInfo:
			fmt.Println(vm.pop())
		case c.OpJump:
			f.ip += vm.readShort()
		case c.OpJumpUnless:
			offset := vm.readShort()
			if !c.Truthy(vm.peek(0)) {
				f.ip += offset
			}
		case c.OpLoop:
			f.ip -= vm.readShort()
		case c.OpCall:
			argCount := int(vm.readByte())
			if err := vm.callValue(vm.peek(argCount), argCount); err != nil {
				return err
			}
		case c.OpImport:
			path, ok := vm.pop().(c.VStr)
			if !ok {
				return vm.runtimeErr("module path must be a string")
			}
			if vm.Importer == nil {
				return vm.runtimeErr("no module importer configured")
			}
			if err := vm.Importer(string(path), vm); err != nil {
				return err
			}
		case c.OpReturn:
			result := vm.pop()
			vm.stack = vm.stack[:f.stackBot]
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) <= baseFrames {
				return nil
			}
			vm.push(result)
		default:
			return vm.runtimeErr(fmt.Sprintf("unknown instruction '%d'", op))
		}
	}
}

// callValue dispatches OpCall's callee, which may be a compiled
// function or a native registered through Define.
func (vm *VM) callValue(callee c.Value, argCount int) error {
	switch fn := callee.(type) {
	case c.VFun:
		return vm.call(fn, argCount)
	case c.VNative:
		args := append([]c.Value(nil), vm.stack[len(vm.stack)-argCount:]...)
		result, err := fn.Call(args)
		if err != nil {
			return vm.runtimeErr(err.Error())
		}
		vm.stack = vm.stack[:len(vm.stack)-argCount-1]
		vm.push(result)
		return nil
	default:
		return vm.runtimeErr("can only call functions")
	}
}

func (vm *VM) add() error {
	rhs, lhs := vm.pop(), vm.pop()
	switch lhs := lhs.(type) {
	case c.VNum:
		rhs, ok := rhs.(c.VNum)
		if !ok {
			return vm.runtimeErr("operands must be two numbers or two strings")
		}
		vm.push(lhs + rhs)
	case c.VStr:
		rhs, ok := rhs.(c.VStr)
		if !ok {
			return vm.runtimeErr("operands must be two numbers or two strings")
		}
		vm.push(c.NewVStr(string(lhs) + string(rhs)))
	default:
		return vm.runtimeErr("operands must be two numbers or two strings")
	}
	return nil
}

func (vm *VM) arith(op c.OpCode) error {
	rhs, ok1 := vm.pop().(c.VNum)
	lhs, ok2 := vm.pop().(c.VNum)
	if !ok1 || !ok2 {
		return vm.runtimeErr("operands must be numbers")
	}
	switch op {
	case c.OpSub:
		vm.push(lhs - rhs)
	case c.OpMul:
		vm.push(lhs * rhs)
	case c.OpDiv:
		vm.push(lhs / rhs)
	case c.OpMod:
		vm.push(c.VNum(math.Mod(float64(lhs), float64(rhs))))
	case c.OpPow:
		vm.push(c.VNum(math.Pow(float64(lhs), float64(rhs))))
	default:
		panic(e.Unreachable)
	}
	return nil
}

func (vm *VM) numericCompare(op c.OpCode) error {
	rhs, ok1 := vm.pop().(c.VNum)
	lhs, ok2 := vm.pop().(c.VNum)
	if !ok1 || !ok2 {
		return vm.runtimeErr("operands must be numbers")
	}
	if op == c.OpGreater {
		vm.push(c.VBool(lhs > rhs))
	} else {
		vm.push(c.VBool(lhs < rhs))
	}
	return nil
}

func (vm *VM) stackTrace() string {
	res := "          "
	for _, slot := range vm.stack {
		res += fmt.Sprintf("[ %s ]", slot)
	}
	return res
}
