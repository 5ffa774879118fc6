package compiler

import (
	"fmt"

	"github.com/ashlang/ashc/internal/debug"
)

// OpCode is one bytecode instruction. Operand-bearing opcodes are always
// followed by exactly the operand bytes DisassembleInst reads for them.
type OpCode byte

const (
	OpReturn OpCode = iota
	OpConst
	OpNil
	OpTrue
	OpFalse
	OpPop
	OpGetLocal
	OpSetLocal
	OpGetGlobal
	OpDefGlobal
	OpSetGlobal
	OpEqual
	OpGreater
	OpLess
	OpNot
	OpNeg
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpInfo
	OpJump
	OpJumpUnless
	OpLoop
	OpCall
	OpImport
)

var opNames = map[OpCode]string{
	OpReturn: "OP_RETURN", OpConst: "OP_CONST", OpNil: "OP_NIL",
	OpTrue: "OP_TRUE", OpFalse: "OP_FALSE", OpPop: "OP_POP",
	OpGetLocal: "OP_GET_LOCAL", OpSetLocal: "OP_SET_LOCAL",
	OpGetGlobal: "OP_GET_GLOBAL", OpDefGlobal: "OP_DEF_GLOBAL", OpSetGlobal: "OP_SET_GLOBAL",
	OpEqual: "OP_EQUAL", OpGreater: "OP_GREATER", OpLess: "OP_LESS",
	OpNot: "OP_NOT", OpNeg: "OP_NEG",
	OpAdd: "OP_ADD", OpSub: "OP_SUB", OpMul: "OP_MUL", OpDiv: "OP_DIV",
	OpMod: "OP_MOD", OpPow: "OP_POW",
	OpInfo: "OP_INFO", OpJump: "OP_JUMP", OpJumpUnless: "OP_JUMP_UNLESS",
	OpLoop: "OP_LOOP", OpCall: "OP_CALL", OpImport: "OP_IMPORT",
}

func (op OpCode) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("OP_UNKNOWN(%d)", byte(op))
}

// Chunk is an append-only bytecode buffer: a byte stream, a parallel line
// table (len(Lines) == len(Code) always), and the constant pool OpConst
// and friends index into.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []Value
}

func NewChunk() *Chunk { return &Chunk{} }

// Write appends one instruction byte tagged with the source line that
// produced it.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
	debug.AssertEq(len(c.Code), len(c.Lines))
}

// AddConst interns v into the constant pool and returns its index: a
// string already in the pool reuses its existing entry, any other value
// is appended. The emitter is responsible for rejecting indices past 255
// (see Parser.makeConst); this method always succeeds.
func (c *Chunk) AddConst(v Value) int {
	if s, ok := v.(VStr); ok {
		for i, k := range c.Constants {
			if ks, ok := k.(VStr); ok && ks == s {
				return i
			}
		}
	}
	idx := len(c.Constants)
	c.Constants = append(c.Constants, v)
	return idx
}

// DisassembleInst renders one instruction at offset and returns the
// offset of the instruction that follows it.
func (c *Chunk) DisassembleInst(offset int) (res string, next int) {
	line := fmt.Sprintf("%04d ", offset)
	if offset > 0 && c.Lines[offset] == c.Lines[offset-1] {
		line += "   | "
	} else {
		line += fmt.Sprintf("%4d ", c.Lines[offset])
	}

	inst := OpCode(c.Code[offset])
	switch inst {
	case OpConst, OpGetGlobal, OpDefGlobal, OpSetGlobal:
		const_ := c.Code[offset+1]
		line += fmt.Sprintf("%-16s %4d '%s'", inst, const_, c.Constants[const_])
		return line, offset + 2
	case OpGetLocal, OpSetLocal, OpCall:
		slot := c.Code[offset+1]
		line += fmt.Sprintf("%-16s %4d", inst, slot)
		return line, offset + 2
	case OpJump, OpJumpUnless, OpLoop:
		delta := int(c.Code[offset+1])<<8 | int(c.Code[offset+2])
		line += fmt.Sprintf("%-16s %4d -> %d", inst, delta, jumpTarget(inst, offset, delta))
		return line, offset + 3
	default:
		line += inst.String()
		return line, offset + 1
	}
}

func jumpTarget(inst OpCode, offset, delta int) int {
	if inst == OpLoop {
		return offset + 3 - delta
	}
	return offset + 3 + delta
}

// Disassemble renders every instruction in the chunk under a `== name ==`
// header, one line per instruction.
func (c *Chunk) Disassemble(name string) string {
	res := fmt.Sprintf("== %s ==\n", name)
	for i := 0; i < len(c.Code); {
		var line string
		line, i = c.DisassembleInst(i)
		res += line + "\n"
	}
	return res
}

// DisassembleAll disassembles this chunk and every nested function chunk
// reachable through its constant pool, depth-first.
func (c *Chunk) DisassembleAll(name string) string {
	res := c.Disassemble(name)
	for _, v := range c.Constants {
		if fn, ok := v.(VFun); ok {
			res += "\n" + fn.Chunk().DisassembleAll(fn.Name())
		}
	}
	return res
}
