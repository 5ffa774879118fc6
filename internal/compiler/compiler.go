// Package compiler implements ashc's single-pass compiler: a Pratt parser,
// a lexical scope resolver, and a jump patcher sharing one left-to-right
// walk over the token stream produced by internal/lexer. There is no
// intermediate AST — every declaration, statement, and expression emits
// bytecode directly into the current function frame's Chunk as it is
// parsed.
package compiler

import (
	"errors"
	"math"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/josharian/intern"
	"github.com/sirupsen/logrus"

	"github.com/ashlang/ashc/internal/debug"
	e "github.com/ashlang/ashc/internal/errors"
	"github.com/ashlang/ashc/internal/lexer"
	"github.com/ashlang/ashc/internal/utils"
)

type Token = lexer.Token
type TokenType = lexer.TokenType

// Uninit marks a Local that has been declared but whose initializer has
// not finished evaluating yet — reading it is the classic
// `have x := x;` self-reference bug.
const Uninit = -1

// Local is one entry in a function frame's stack-slot table.
type Local struct {
	name  Token
	depth int
}

// Loop tracks one active loop's back-edge target, the scope depth it was
// entered at (so break/continue know how many locals to pop without
// touching the frame's own locals slice), and the forward jumps emitted
// by `break` inside it, patched once the loop's exit point is known. A
// stack of these — rather than a single "innermost loop" pair — is what
// makes nested loops restore their enclosing loop's context correctly
// once a nested loop ends.
type Loop struct {
	start      int
	scopeDepth int
	breakHoles []int
}

// FuncType distinguishes the implicit top-level script frame (which
// cannot `return` a value and is never itself a constant in an enclosing
// chunk) from an ordinary function frame.
type FuncType int

const (
	FuncScript FuncType = iota
	FuncFunction
)

// Compiler is one function's compilation frame: its locals, its scope
// depth within its own body, and a link to the frame that was compiling
// when this one was opened (nil for the top-level script).
type Compiler struct {
	enclosing *Compiler
	fun       VFun
	funType   FuncType
	locals    []Local
	loops     []*Loop
	depth     int
}

// newCompiler opens a frame enclosed by parent (nil for the script).
// Slot 0 of locals is reserved — anonymous, depth 0 — for the callee's
// own value, matching the spec's "index 0 is reserved for the callee
// slot" invariant.
func newCompiler(parent *Compiler, funType FuncType) *Compiler {
	c := &Compiler{
		enclosing: parent,
		fun:       NewVFun(),
		funType:   funType,
		locals:    []Local{{}},
	}
	debug.AssertEq(0, c.locals[0].depth)
	return c
}

// Parser drives the single pass: it owns the lexer (the tokenizer
// collaborator), the two tokens of lookahead the spec's data model
// requires, the current function-frame chain, and the accumulated
// errors. A fresh Parser per Compile call means no process-global state
// is shared across concurrent compiles.
type Parser struct {
	*lexer.Lexer
	*Compiler
	prev, curr Token

	errors    *multierror.Error
	panicMode bool
}

// Compile parses src as a complete Ash program and returns its top-level
// function object. A non-nil error means the returned function's chunk
// is incomplete or wrong and must be discarded by the caller — compare
// the spec's `had_error` flag.
func Compile(src string) (VFun, error) {
	p := &Parser{Lexer: lexer.New(src)}
	p.wrapCompiler(FuncScript)

	p.advance()
	for !p.match(lexer.TEOF) {
		p.decl()
	}

	fun := p.endCompiler()
	return fun, p.errors.ErrorOrNil()
}

// wrapCompiler opens a new frame enclosing the current one. Called once
// for the script and once per `func` body.
func (p *Parser) wrapCompiler(funType FuncType) {
	next := newCompiler(p.Compiler, funType)
	if funType != FuncScript {
		name := intern.String(p.prev.String())
		next.fun.name = &name
	}
	p.Compiler = next
}

/* Emitter */

func (p *Parser) currentChunk() *Chunk { return p.fun.chunk }

func (p *Parser) emitByte(b byte) { p.currentChunk().Write(b, p.prev.Line) }

func (p *Parser) emitBytes(bs ...byte) {
	for _, b := range bs {
		p.emitByte(b)
	}
}

func (p *Parser) makeConst(val Value) byte {
	idx := p.currentChunk().AddConst(val)
	if idx > math.MaxUint8 {
		p.errorKind(e.KindTooManyConstants, "too many constants in one chunk")
		return 0
	}
	return byte(idx)
}

func (p *Parser) emitConst(val Value) { p.emitBytes(byte(OpConst), p.makeConst(val)) }

// emitJump writes op followed by a two-byte placeholder and returns the
// offset of the placeholder's first byte, to be passed to patchJump once
// the jump's target is known.
func (p *Parser) emitJump(op OpCode) int {
	p.emitBytes(byte(op), 0xff, 0xff)
	return len(p.currentChunk().Code) - 2
}

// patchJump back-fills the placeholder at offset with the distance from
// just past it to the current end of the chunk.
func (p *Parser) patchJump(offset int) {
	code := p.currentChunk().Code
	jump := len(code) - (offset + 2)
	if jump > math.MaxUint16 {
		p.errorKind(e.KindJumpTooFar, "too much code to jump over")
		return
	}
	code[offset] = byte(jump >> 8 & 0xff)
	code[offset+1] = byte(jump & 0xff)
}

// emitLoop emits OpLoop plus the backward distance to start.
func (p *Parser) emitLoop(start int) {
	p.emitByte(byte(OpLoop))
	backJump := len(p.currentChunk().Code) + 2 - start
	if backJump > math.MaxUint16 {
		p.errorKind(e.KindLoopBodyTooLarge, "loop body too large")
		return
	}
	p.emitBytes(byte(backJump>>8&0xff), byte(backJump&0xff))
}

func (p *Parser) emitReturn() { p.emitBytes(byte(OpNil), byte(OpReturn)) }

/* Scope & locals */

func (p *Parser) addLocal(name Token) {
	if len(p.locals) >= math.MaxUint8+1 {
		p.errorKind(e.KindTooManyLocals, "too many local variables in function")
		return
	}
	p.locals = append(p.locals, Local{name, Uninit})
	debug.Assertf(len(p.locals) <= math.MaxUint8+1, "locals grew past the 256 slots addLocal just bounded")
}

func (p *Parser) beginScope() { p.depth++ }

func (p *Parser) endScope() {
	p.depth--
	for len(p.locals) > 0 && p.locals[len(p.locals)-1].depth > p.depth {
		p.emitBytes(byte(OpPop))
		p.locals = p.locals[:len(p.locals)-1]
	}
}

// declareVar registers the just-consumed identifier token (p.prev) as a
// local, rejecting a redeclaration at the same scope depth. It is a
// no-op at global scope: globals are resolved by name at runtime, not by
// slot.
func (p *Parser) declareVar() {
	if p.depth == 0 {
		return
	}
	name := p.prev
	for i := len(p.locals) - 1; i >= 0; i-- {
		local := p.locals[i]
		if local.depth != Uninit && local.depth < p.depth {
			break // A shallower scope: shadowing is fine.
		}
		if name.Eq(local.name) {
			p.errorKind(e.KindDuplicateName, "already a variable with this name in this scope")
		}
	}
	p.addLocal(name)
}

// resolveLocal searches the active locals from the top down. Uninit is
// returned when no local matches (caller treats the name as global). A
// match that is still mid-initialization reports ReadInOwnInitializer
// and its slot is returned anyway, so the caller emits a local access
// instead of cascading into a second error.
func (p *Parser) resolveLocal(name Token) int {
	for i := len(p.locals) - 1; i >= 0; i-- {
		local := p.locals[i]
		if name.Eq(local.name) {
			if local.depth == Uninit {
				p.errorKind(e.KindReadInOwnInitializer, "can't read local variable in its own initializer")
			}
			return i
		}
	}
	return Uninit
}

func (p *Parser) identConst(name Token) byte { return p.makeConst(NewVStr(name.String())) }

func (p *Parser) markInit() {
	if p.depth == 0 {
		return
	}
	p.locals[len(p.locals)-1].depth = p.depth
}

// parseVar consumes an identifier and declares it. It returns the
// constant-pool index to pass to defVar for a global, or nil for a
// local (whose value just stays on the stack in its slot).
func (p *Parser) parseVar(errMsg string) *byte {
	tok := p.consume(lexer.TIdent, errMsg)
	if tok == nil {
		return nil
	}
	p.declareVar()
	if p.depth > 0 {
		return nil
	}
	return utils.Box(p.identConst(*tok))
}

func (p *Parser) defVar(global *byte) {
	if global == nil {
		p.markInit()
		return
	}
	p.emitBytes(byte(OpDefGlobal), *global)
}

/* Prefix & infix actions */

func (p *Parser) number(_canAssign bool) {
	val, err := strconv.ParseFloat(p.prev.String(), 64)
	if err != nil {
		// ParseFloat wraps every failure in a *strconv.NumError; only
		// ErrRange (an out-of-range literal, which still yields a usable
		// ±Inf) is expected here, since the lexer guarantees
		// digits-and-at-most-one-dot. Anything else means the lexer and
		// this parser have disagreed on what a number token looks like.
		var numErr *strconv.NumError
		if !errors.As(err, &numErr) || numErr.Err != strconv.ErrRange {
			p.error(err.Error())
		}
	}
	p.emitConst(VNum(val))
}

func (p *Parser) grouping(_canAssign bool) {
	p.expr()
	p.consume(lexer.TRParen, "expect ')' after expression")
}

func (p *Parser) literal(_canAssign bool) {
	switch p.prev.Type {
	case lexer.TFalse:
		p.emitBytes(byte(OpFalse))
	case lexer.TNil:
		p.emitBytes(byte(OpNil))
	case lexer.TTrue:
		p.emitBytes(byte(OpTrue))
	default:
		panic(e.Unreachable)
	}
}

func (p *Parser) str(_canAssign bool) {
	// Token.Runes already excludes the surrounding quotes (see
	// lexer.Lexer.string), so this is a direct copy into a constant.
	p.emitConst(NewVStr(p.prev.String()))
}

func (p *Parser) variable(canAssign bool) { p.namedVar(p.prev, canAssign) }

func (p *Parser) namedVar(name Token, canAssign bool) {
	slot := p.resolveLocal(name)

	var arg byte
	var get, set OpCode
	if slot == Uninit {
		arg, get, set = p.identConst(name), OpGetGlobal, OpSetGlobal
	} else {
		arg, get, set = byte(slot), OpGetLocal, OpSetLocal
	}

	if canAssign && p.match(lexer.TEqual) {
		p.expr()
		p.emitBytes(byte(set), arg)
	} else {
		p.emitBytes(byte(get), arg)
	}
}

func (p *Parser) unary(_canAssign bool) {
	op := p.prev.Type
	p.parsePrec(PrecUnary)
	switch op {
	case lexer.TBang:
		p.emitBytes(byte(OpNot))
	case lexer.TMinus:
		p.emitBytes(byte(OpNeg))
	default:
		panic(e.Unreachable)
	}
}

func (p *Parser) binary(_canAssign bool) {
	op := p.prev.Type
	rule := parseRules[op]
	p.parsePrec(rule.Prec + 1) // Left-associative: RHS binds one level tighter.

	switch op {
	case lexer.TBangEqual:
		p.emitBytes(byte(OpEqual), byte(OpNot))
	case lexer.TEqualEqual:
		p.emitBytes(byte(OpEqual))
	case lexer.TGreater:
		p.emitBytes(byte(OpGreater))
	case lexer.TGreaterEqual:
		p.emitBytes(byte(OpLess), byte(OpNot))
	case lexer.TLess:
		p.emitBytes(byte(OpLess))
	case lexer.TLessEqual:
		p.emitBytes(byte(OpGreater), byte(OpNot))
	case lexer.TPlus:
		p.emitBytes(byte(OpAdd))
	case lexer.TMinus:
		p.emitBytes(byte(OpSub))
	case lexer.TStar:
		p.emitBytes(byte(OpMul))
	case lexer.TSlash:
		p.emitBytes(byte(OpDiv))
	case lexer.TPercent:
		p.emitBytes(byte(OpMod))
	default:
		panic(e.Unreachable)
	}
}

// power is the one right-associative binary operator: it recurses at its
// own precedence (not +1), so `2 ** 3 ** 2` parses as `2 ** (3 ** 2)`.
func (p *Parser) power(_canAssign bool) {
	p.parsePrec(PrecPower)
	p.emitBytes(byte(OpPow))
}

func (p *Parser) and(_canAssign bool) {
	endJump := p.emitJump(OpJumpUnless)
	p.emitBytes(byte(OpPop))
	p.parsePrec(PrecAnd)
	p.patchJump(endJump)
}

func (p *Parser) or(_canAssign bool) {
	elseJump := p.emitJump(OpJumpUnless)
	endJump := p.emitJump(OpJump)
	p.patchJump(elseJump)
	p.emitBytes(byte(OpPop))
	p.parsePrec(PrecOr)
	p.patchJump(endJump)
}

func (p *Parser) call(_canAssign bool) {
	argCount := p.argList()
	p.emitBytes(byte(OpCall), byte(argCount))
}

func (p *Parser) argList() (argCount int) {
	if !p.check(lexer.TRParen) {
		for {
			p.expr()
			if argCount++; argCount > math.MaxUint8 {
				p.errorKind(e.KindTooManyArguments, "too many arguments")
			}
			if !p.match(lexer.TComma) {
				break
			}
		}
	}
	p.consume(lexer.TRParen, "expect ')' after arguments")
	return
}

/* Expressions */

func (p *Parser) expr() { p.parsePrec(PrecAssign) }

/* Statements & declarations */

func (p *Parser) exprStmt() {
	p.expr()
	p.consume(lexer.TSemi, "expect ';' after expression")
	p.emitBytes(byte(OpPop))
}

func (p *Parser) infoStmt() {
	p.expr()
	p.consume(lexer.TSemi, "expect ';' after value")
	p.emitBytes(byte(OpInfo))
}

func (p *Parser) usingStmt() {
	tok := p.consume(lexer.TStr, "expect a module path string after 'using'")
	if tok == nil {
		p.consume(lexer.TSemi, "expect ';' after module path")
		return
	}
	p.emitConst(NewVStr(tok.String()))
	p.emitBytes(byte(OpImport))
	p.consume(lexer.TSemi, "expect ';' after module path")
}

func (p *Parser) block() {
	for !p.check(lexer.TRBrace) && !p.check(lexer.TEOF) {
		p.decl()
	}
	p.consume(lexer.TRBrace, "expect '}' after block")
}

func (p *Parser) ifStmt() {
	p.consume(lexer.TLParen, "expect '(' after 'if'")
	p.expr()
	p.consume(lexer.TRParen, "expect ')' after condition")

	thenJump := p.emitJump(OpJumpUnless)
	p.emitBytes(byte(OpPop))
	p.stmt()

	elseJump := p.emitJump(OpJump)
	p.patchJump(thenJump)
	p.emitBytes(byte(OpPop))
	if p.match(lexer.TElse) {
		p.stmt()
	}
	p.patchJump(elseJump)
}

func (p *Parser) pushLoop(start int) *Loop {
	loop := &Loop{start: start, scopeDepth: p.depth}
	p.loops = append(p.loops, loop)
	return loop
}

func (p *Parser) currentLoop() *Loop {
	if len(p.loops) == 0 {
		return nil
	}
	return p.loops[len(p.loops)-1]
}

func (p *Parser) popLoop() {
	loop := p.loops[len(p.loops)-1]
	for _, hole := range loop.breakHoles {
		p.patchJump(hole)
	}
	p.loops = p.loops[:len(p.loops)-1]
}

func (p *Parser) whileStmt() {
	loop := p.pushLoop(len(p.currentChunk().Code))
	p.consume(lexer.TLParen, "expect '(' after 'while'")
	p.expr()
	p.consume(lexer.TRParen, "expect ')' after condition")

	exitJump := p.emitJump(OpJumpUnless)
	p.emitBytes(byte(OpPop))
	p.stmt()
	p.emitLoop(loop.start)

	p.patchJump(exitJump)
	p.emitBytes(byte(OpPop))
	p.popLoop()
}

// forStmt desugars the classical three-clause `for` into the same
// primitives as `while`: the initializer runs once in its own scope, the
// back-edge targets the increment (if present), and the increment itself
// loops back to the condition.
func (p *Parser) forStmt() {
	p.beginScope()

	p.consume(lexer.TLParen, "expect '(' after 'for'")
	switch {
	case p.match(lexer.TSemi):
		// No initializer.
	case p.match(lexer.THave):
		p.varDecl()
	default:
		p.exprStmt()
	}

	loop := p.pushLoop(len(p.currentChunk().Code))

	var exitJump *int
	if !p.match(lexer.TSemi) {
		p.expr()
		p.consume(lexer.TSemi, "expect ';' after loop condition")
		exitJump = utils.Box(p.emitJump(OpJumpUnless))
		p.emitBytes(byte(OpPop))
	}

	if !p.match(lexer.TRParen) {
		bodyJump := p.emitJump(OpJump)
		incrStart := len(p.currentChunk().Code)
		p.expr()
		p.emitBytes(byte(OpPop))
		p.consume(lexer.TRParen, "expect ')' after for clauses")

		p.emitLoop(loop.start)
		loop.start = incrStart
		p.patchJump(bodyJump)
	}

	p.stmt()
	p.emitLoop(loop.start)

	if exitJump != nil {
		p.patchJump(*exitJump)
		p.emitBytes(byte(OpPop))
	}
	p.popLoop()
	p.endScope()
}

// unwindLoopLocals pops every local declared since the loop's own scope
// depth without shrinking p.locals — the enclosing block is still
// lexically open, only control is leaving it early.
func (p *Parser) unwindLoopLocals(loop *Loop) {
	for i := len(p.locals) - 1; i >= 0 && p.locals[i].depth > loop.scopeDepth; i-- {
		p.emitBytes(byte(OpPop))
	}
}

func (p *Parser) continueStmt() {
	loop := p.currentLoop()
	if loop == nil {
		p.errorKind(e.KindContinueOutsideLoop, "'continue' outside a loop")
		p.consume(lexer.TSemi, "expect ';' after 'continue'")
		return
	}
	p.unwindLoopLocals(loop)
	p.emitLoop(loop.start)
	p.consume(lexer.TSemi, "expect ';' after 'continue'")
}

func (p *Parser) breakStmt() {
	loop := p.currentLoop()
	if loop == nil {
		p.errorKind(e.KindBreakOutsideLoop, "'break' outside a loop")
		p.consume(lexer.TSemi, "expect ';' after 'break'")
		return
	}
	p.unwindLoopLocals(loop)
	hole := p.emitJump(OpJump)
	loop.breakHoles = append(loop.breakHoles, hole)
	p.consume(lexer.TSemi, "expect ';' after 'break'")
}

func (p *Parser) returnStmt() {
	if p.funType == FuncScript {
		p.errorKind(e.KindReturnFromScript, "can't return from top-level code")
	}
	if p.match(lexer.TSemi) {
		p.emitReturn()
		return
	}
	p.expr()
	p.consume(lexer.TSemi, "expect ';' after return value")
	p.emitBytes(byte(OpReturn))
}

func (p *Parser) stmt() {
	switch {
	case p.match(lexer.TInfo):
		p.infoStmt()
	case p.match(lexer.TIf):
		p.ifStmt()
	case p.match(lexer.TWhile):
		p.whileStmt()
	case p.match(lexer.TFor):
		p.forStmt()
	case p.match(lexer.TContinue):
		p.continueStmt()
	case p.match(lexer.TBreak):
		p.breakStmt()
	case p.match(lexer.TReturn):
		p.returnStmt()
	case p.match(lexer.TUsing):
		p.usingStmt()
	case p.match(lexer.TLBrace):
		p.beginScope()
		p.block()
		p.endScope()
	default:
		p.exprStmt()
	}
}

// function compiles one function's parameter list and body into its own
// frame, then — back in the enclosing frame — emits the completed
// function as a constant. No matching endScope is needed for the body's
// own outer scope: the whole frame is discarded by endCompiler.
func (p *Parser) function(funType FuncType) {
	p.wrapCompiler(funType)
	p.beginScope()

	p.consume(lexer.TLParen, "expect '(' after function name")
	if !p.check(lexer.TRParen) {
		for {
			if p.fun.arity++; p.fun.arity > math.MaxUint8 {
				p.errorAtCurr(e.KindTooManyParams, "too many parameters")
			}
			param := p.parseVar("expect parameter name")
			p.defVar(param)
			if !p.match(lexer.TComma) {
				break
			}
		}
	}
	p.consume(lexer.TRParen, "expect ')' after parameters")
	p.consume(lexer.TLBrace, "expect '{' before function body")
	p.block()

	fun := p.endCompiler()
	p.emitBytes(byte(OpConst), p.makeConst(fun))
}

// funcDecl marks a local function's slot initialized before compiling
// its body (a no-op for a global function). The body is compiled in its
// own frame, which resolves only its own locals, so a reference to the
// function's name inside the body is looked up as a global at call time.
func (p *Parser) funcDecl() {
	global := p.parseVar("expect function name")
	p.markInit()
	p.function(FuncFunction)
	p.defVar(global)
}

func (p *Parser) varDecl() {
	global := p.parseVar("expect variable name")
	if p.match(lexer.TColonEqual) {
		p.expr()
	} else {
		p.emitBytes(byte(OpNil))
	}
	p.consume(lexer.TSemi, "expect ';' after variable declaration")
	p.defVar(global)
}

func (p *Parser) decl() {
	switch {
	case p.match(lexer.TFunc):
		p.funcDecl()
	case p.match(lexer.THave):
		p.varDecl()
	default:
		p.stmt()
	}
	if p.panicMode {
		p.sync()
	}
}

/* Parse-rule table & Pratt core */

type ParseFn = func(p *Parser, canAssign bool)

type ParseRule struct {
	Prefix, Infix ParseFn
	Prec
}

var parseRules map[TokenType]ParseRule

func init() {
	parseRules = map[TokenType]ParseRule{
		lexer.TLParen:       {(*Parser).grouping, (*Parser).call, PrecCall},
		lexer.TMinus:        {(*Parser).unary, (*Parser).binary, PrecTerm},
		lexer.TPlus:         {nil, (*Parser).binary, PrecTerm},
		lexer.TSlash:        {nil, (*Parser).binary, PrecFactor},
		lexer.TStar:         {nil, (*Parser).binary, PrecFactor},
		lexer.TPercent:      {nil, (*Parser).binary, PrecFactor},
		lexer.TStarStar:     {nil, (*Parser).power, PrecPower},
		lexer.TBang:         {(*Parser).unary, nil, PrecNone},
		lexer.TBangEqual:    {nil, (*Parser).binary, PrecEqual},
		lexer.TEqualEqual:   {nil, (*Parser).binary, PrecEqual},
		lexer.TGreater:      {nil, (*Parser).binary, PrecComp},
		lexer.TGreaterEqual: {nil, (*Parser).binary, PrecComp},
		lexer.TLess:         {nil, (*Parser).binary, PrecComp},
		lexer.TLessEqual:    {nil, (*Parser).binary, PrecComp},
		lexer.TIdent:        {(*Parser).variable, nil, PrecNone},
		lexer.TStr:          {(*Parser).str, nil, PrecNone},
		lexer.TNum:          {(*Parser).number, nil, PrecNone},
		lexer.TAnd:          {nil, (*Parser).and, PrecAnd},
		lexer.TOr:           {nil, (*Parser).or, PrecOr},
		lexer.TFalse:        {(*Parser).literal, nil, PrecNone},
		lexer.TNil:          {(*Parser).literal, nil, PrecNone},
		lexer.TTrue:         {(*Parser).literal, nil, PrecNone},
		lexer.TEOF:          {},
	}
}

func (p *Parser) rule(ty TokenType) ParseRule { return parseRules[ty] }

// parsePrec is the Pratt driver: it parses a prefix action for the
// current token, then keeps folding in infix actions whose precedence is
// at least prec. canAssign is threaded down so that only a prefix
// position reachable from assignment precedence or looser treats a
// trailing `=` as an assignment target, per the spec's disambiguation
// rule (assignment is never its own rule-table entry).
func (p *Parser) parsePrec(prec Prec) {
	p.advance()

	prefix := p.rule(p.prev.Type).Prefix
	if prefix == nil {
		p.errorKind(e.KindExpectExpression, "expect expression")
		return
	}
	canAssign := prec <= PrecAssign
	prefix(p, canAssign)

	for p.rule(p.curr.Type).Prec >= prec {
		p.advance()
		infix := p.rule(p.prev.Type).Infix
		if infix == nil {
			panic(e.Unreachable)
		}
		infix(p, canAssign)
	}

	if canAssign && p.match(lexer.TEqual) {
		p.errorKind(e.KindInvalidAssignmentTarget, "invalid assignment target")
	}
}

/* Parsing helpers */

func (p *Parser) check(ty TokenType) bool     { return p.curr.Type == ty }
func (p *Parser) checkPrev(ty TokenType) bool { return p.prev.Type == ty }

func (p *Parser) advance() {
	p.prev = p.curr
	for {
		p.curr = p.ScanToken()
		if !p.check(lexer.TErr) {
			break
		}
		p.errorAtCurr(e.KindUnexpectedToken, p.curr.String())
	}
}

func (p *Parser) match(ty TokenType) bool {
	if !p.check(ty) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) consume(ty TokenType, errMsg string) *Token {
	if !p.check(ty) {
		p.errorAtCurr(e.KindUnexpectedToken, errMsg)
		return nil
	}
	p.advance()
	return &p.prev
}

/* Compiling helpers */

func (p *Parser) endCompiler() VFun {
	p.emitReturn()
	fun := p.fun
	if debug.DEBUG() {
		logrus.Debugln(p.currentChunk().Disassemble(fun.Name()))
	}
	p.Compiler = p.Compiler.enclosing
	return fun
}

/* Precedence */

type Prec int

const (
	PrecNone   Prec = iota
	PrecAssign      // x = ... (handled in namedVar, not a rule-table entry)
	PrecOr          // or
	PrecAnd         // and
	PrecEqual       // == !=
	PrecComp        // < > <= >=
	PrecTerm        // + -
	PrecFactor      // * / %
	PrecPower       // ** (right-associative)
	PrecUnary       // ! -
	PrecCall        // ()
	PrecPrimary
)

/* Error handling */

// sync clears panicMode and advances until the previous token was `;` or
// the current token begins a new statement, bounding error-recovery
// cascades to one diagnostic per genuine syntax break.
func (p *Parser) sync() {
	p.panicMode = false
	for !p.check(lexer.TEOF) {
		if p.checkPrev(lexer.TSemi) {
			return
		}
		switch p.curr.Type {
		case lexer.TFunc, lexer.THave, lexer.TFor, lexer.TIf, lexer.TWhile,
			lexer.TInfo, lexer.TReturn, lexer.TUsing, lexer.TBreak, lexer.TContinue:
			return
		default:
			p.advance()
		}
	}
}

func (p *Parser) errorAt(tok Token, kind e.Kind, reason string) {
	if p.panicMode {
		return
	}
	p.panicMode = true
	p.errors = multierror.Append(p.errors, &e.CompilationError{Line: tok.Line, Kind: kind, Reason: reason})
}

func (p *Parser) error(reason string) { p.errorAt(p.prev, e.KindUnexpectedToken, reason) }
func (p *Parser) errorKind(kind e.Kind, reason string) { p.errorAt(p.prev, kind, reason) }
func (p *Parser) errorAtCurr(kind e.Kind, reason string) { p.errorAt(p.curr, kind, reason) }
