package compiler_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	c "github.com/ashlang/ashc/internal/compiler"
	e "github.com/ashlang/ashc/internal/errors"
)

// opSequence walks a chunk's code skipping operand bytes, producing the
// list of opcodes actually emitted. Tests assert against this instead of
// raw bytes so they don't have to predict constant-pool indices.
func opSequence(t *testing.T, chunk *c.Chunk) []c.OpCode {
	t.Helper()
	var ops []c.OpCode
	for i := 0; i < len(chunk.Code); {
		op := c.OpCode(chunk.Code[i])
		ops = append(ops, op)
		switch op {
		case c.OpConst, c.OpGetGlobal, c.OpDefGlobal, c.OpSetGlobal,
			c.OpGetLocal, c.OpSetLocal, c.OpCall:
			i += 2
		case c.OpJump, c.OpJumpUnless, c.OpLoop:
			i += 3
		default:
			i++
		}
	}
	return ops
}

func compile(t *testing.T, src string) *c.Chunk {
	t.Helper()
	fun, err := c.Compile(src)
	assert.NoError(t, err)
	return fun.Chunk()
}

func compileErr(t *testing.T, src string) error {
	t.Helper()
	_, err := c.Compile(src)
	return err
}

func TestArithmeticExpressionStatement(t *testing.T) {
	chunk := compile(t, "info 1 + 2;")
	assert.Equal(t, []c.OpCode{c.OpConst, c.OpConst, c.OpAdd, c.OpInfo, c.OpNil, c.OpReturn}, opSequence(t, chunk))
	assert.Equal(t, c.VNum(1), chunk.Constants[0])
	assert.Equal(t, c.VNum(2), chunk.Constants[1])
}

func TestGlobalVarDeclAndRead(t *testing.T) {
	chunk := compile(t, "have x := 10; info x;")
	assert.Equal(t, []c.OpCode{
		c.OpConst, c.OpDefGlobal, c.OpGetGlobal, c.OpInfo, c.OpNil, c.OpReturn,
	}, opSequence(t, chunk))
	assert.Equal(t, c.VNum(10), chunk.Constants[1])
}

func TestLocalVarsInBlock(t *testing.T) {
	chunk := compile(t, "{ have a := 1; have b := 2; info a + b; }")
	assert.Equal(t, []c.OpCode{
		c.OpConst, c.OpConst, c.OpGetLocal, c.OpGetLocal, c.OpAdd, c.OpInfo,
		c.OpPop, c.OpPop, c.OpNil, c.OpReturn,
	}, opSequence(t, chunk))
}

func TestIfElse(t *testing.T) {
	chunk := compile(t, "if (true) info 1; else info 2;")
	assert.Equal(t, []c.OpCode{
		c.OpTrue, c.OpJumpUnless, c.OpPop, c.OpConst, c.OpInfo,
		c.OpJump, c.OpPop, c.OpConst, c.OpInfo,
		c.OpNil, c.OpReturn,
	}, opSequence(t, chunk))
}

func TestWhileBreak(t *testing.T) {
	chunk := compile(t, "while (true) break;")
	assert.Equal(t, []c.OpCode{
		c.OpTrue, c.OpJumpUnless, c.OpPop, c.OpJump, c.OpLoop, c.OpPop,
		c.OpNil, c.OpReturn,
	}, opSequence(t, chunk))
}

func TestFuncCall(t *testing.T) {
	fun, err := c.Compile("func f(x) { return x; } info f(3);")
	assert.NoError(t, err)
	chunk := fun.Chunk()
	assert.Equal(t, []c.OpCode{
		c.OpConst, c.OpDefGlobal, c.OpGetGlobal, c.OpConst, c.OpCall, c.OpInfo,
		c.OpNil, c.OpReturn,
	}, opSequence(t, chunk))

	var nested c.VFun
	for _, v := range chunk.Constants {
		if f, ok := v.(c.VFun); ok {
			nested = f
		}
	}
	assert.Equal(t, 1, nested.Arity())
	assert.Equal(t, []c.OpCode{c.OpGetLocal, c.OpReturn, c.OpNil, c.OpReturn}, opSequence(t, nested.Chunk()))
}

func TestForLoopDesugarsToLocalIndexAndBackEdges(t *testing.T) {
	chunk := compile(t, "for (have i := 0; i < 3; i = i + 1) info i;")
	ops := opSequence(t, chunk)
	// initializer pushes a local, condition compares it, body prints it,
	// increment reassigns it, and the back-edge lands on the increment.
	assert.Contains(t, ops, c.OpGetLocal)
	assert.Contains(t, ops, c.OpSetLocal)
	assert.Contains(t, ops, c.OpLoop)
	assert.Contains(t, ops, c.OpJumpUnless)
	// the loop variable never touches globals.
	assert.NotContains(t, ops, c.OpDefGlobal)
	assert.NotContains(t, ops, c.OpGetGlobal)
}

func TestPowerIsRightAssociative(t *testing.T) {
	// 2 ** 3 ** 2 == 2 ** (3 ** 2): all three constants are loaded before
	// the two OpPow run back to back. Left-associative parsing of
	// (2**3)**2 would emit Const Const Pow Const Pow instead. The constants
	// are 2, 3, 2 in source order under either parse.
	chunk := compile(t, "info 2 ** 3 ** 2;")
	assert.Equal(t, []c.OpCode{c.OpConst, c.OpConst, c.OpConst, c.OpPow, c.OpPow, c.OpInfo, c.OpNil, c.OpReturn},
		opSequence(t, chunk))
	assert.Equal(t, []c.Value{c.VNum(2), c.VNum(3), c.VNum(2)}, chunk.Constants)
}

func TestModuloEmitsMod(t *testing.T) {
	chunk := compile(t, "info 7 % 2;")
	assert.Equal(t, []c.OpCode{c.OpConst, c.OpConst, c.OpMod, c.OpInfo, c.OpNil, c.OpReturn}, opSequence(t, chunk))
}

func TestUsingEmitsImport(t *testing.T) {
	chunk := compile(t, `using "natives";`)
	assert.Equal(t, []c.OpCode{c.OpConst, c.OpImport, c.OpNil, c.OpReturn}, opSequence(t, chunk))
	assert.Equal(t, c.NewVStr("natives"), chunk.Constants[0])
}

func TestReadInOwnInitializer(t *testing.T) {
	err := compileErr(t, "have a := 1; { have a := a; }")
	assert.Error(t, err)
	assertHasKind(t, err, e.KindReadInOwnInitializer)
}

func TestDuplicateNameInSameScope(t *testing.T) {
	err := compileErr(t, "{ have a := 1; have a := 2; }")
	assert.Error(t, err)
	assertHasKind(t, err, e.KindDuplicateName)
}

func TestBreakOutsideLoop(t *testing.T) {
	err := compileErr(t, "break;")
	assert.Error(t, err)
	assertHasKind(t, err, e.KindBreakOutsideLoop)
}

func TestContinueOutsideLoop(t *testing.T) {
	err := compileErr(t, "continue;")
	assert.Error(t, err)
	assertHasKind(t, err, e.KindContinueOutsideLoop)
}

func TestReturnFromScript(t *testing.T) {
	err := compileErr(t, "return 1;")
	assert.Error(t, err)
	assertHasKind(t, err, e.KindReturnFromScript)
}

func TestExpectExpressionThenResync(t *testing.T) {
	// A dangling operator produces one diagnostic and recovers at the
	// next statement, rather than cascading into a second error for
	// "info 2;".
	err := compileErr(t, "1 + ; info 2;")
	assert.Error(t, err)
	assertHasKind(t, err, e.KindExpectExpression)
	walker, ok := err.(interface{ WrappedErrors() []error })
	assert.True(t, ok)
	assert.Len(t, walker.WrappedErrors(), 1)
}

func TestInvalidAssignmentTarget(t *testing.T) {
	err := compileErr(t, "have a := 1; a + 1 = 2;")
	assert.Error(t, err)
	assertHasKind(t, err, e.KindInvalidAssignmentTarget)
}

func TestTooManyLocals(t *testing.T) {
	src := "{\n"
	for i := 0; i < 256; i++ {
		src += "have a" + itoa(i) + " := 0;\n"
	}
	src += "}\n"
	err := compileErr(t, src)
	assert.Error(t, err)
	assertHasKind(t, err, e.KindTooManyLocals)
}

func TestTooManyConstants(t *testing.T) {
	var src strings.Builder
	for i := 0; i < 257; i++ {
		src.WriteString(itoa(i))
		src.WriteString(".5;\n")
	}
	err := compileErr(t, src.String())
	assert.Error(t, err)
	assertHasKind(t, err, e.KindTooManyConstants)
}

func TestTooManyParams(t *testing.T) {
	var params strings.Builder
	for i := 0; i < 257; i++ {
		if i > 0 {
			params.WriteString(", ")
		}
		params.WriteString("p")
		params.WriteString(itoa(i))
	}
	err := compileErr(t, "func f("+params.String()+") { return 0; }")
	assert.Error(t, err)
	assertHasKind(t, err, e.KindTooManyParams)
}

func TestTooManyArguments(t *testing.T) {
	var args strings.Builder
	for i := 0; i < 257; i++ {
		if i > 0 {
			args.WriteString(", ")
		}
		args.WriteString("nil")
	}
	err := compileErr(t, "func f() { return 0; }\nf("+args.String()+");")
	assert.Error(t, err)
	assertHasKind(t, err, e.KindTooManyArguments)
}

func TestJumpTooFar(t *testing.T) {
	var body strings.Builder
	for i := 0; i < 22000; i++ {
		body.WriteString("1;\n")
	}
	src := "if (true) {\n" + body.String() + "}\n"
	err := compileErr(t, src)
	assert.Error(t, err)
	assertHasKind(t, err, e.KindJumpTooFar)
}

func TestLoopBodyTooLarge(t *testing.T) {
	var body strings.Builder
	for i := 0; i < 22000; i++ {
		body.WriteString("1;\n")
	}
	src := "while (true) {\n" + body.String() + "break;\n}\n"
	err := compileErr(t, src)
	assert.Error(t, err)
	assertHasKind(t, err, e.KindLoopBodyTooLarge)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := ""
	for n > 0 {
		digits = string(rune('0'+n%10)) + digits
		n /= 10
	}
	return digits
}

func assertHasKind(t *testing.T, err error, kind e.Kind) {
	t.Helper()
	walker, ok := err.(interface{ WrappedErrors() []error })
	if !ok {
		t.Fatalf("expected a multierror, got %T", err)
	}
	for _, sub := range walker.WrappedErrors() {
		if ce, ok := sub.(*e.CompilationError); ok && ce.Kind == kind {
			return
		}
	}
	t.Fatalf("no error of kind %v found in %v", kind, err)
}
