package compiler

import (
	"math"

	"aslang/internal/ast"
	"aslang/internal/diag"
)

// Options controls optional compilation behavior.
type Options struct {
	// DisableFolding turns off constant folding, so the emitted code mirrors
	// the source expression structure exactly. Useful for debugging and for
	// comparing folded against unfolded runs.
	DisableFolding bool
}

type loopCtx struct {
	breaks    []int
	continues []int
}

type Compiler struct {
	opts    Options
	chunk   *Chunk
	code    []Instruction
	names   map[string]int
	strings map[string]int
	arities map[string]int
	dupes   map[string]bool
	loops   []loopCtx
	errs    []error
}

// Compile lowers a program to a bytecode chunk with default options.
func Compile(prog *ast.Program) (*Chunk, []error) {
	return CompileWithOptions(prog, Options{})
}

// CompileWithOptions lowers a program to a bytecode chunk. All compile
// errors are collected and returned together; a chunk accompanied by errors
// must not be executed.
func CompileWithOptions(prog *ast.Program, opts Options) (*Chunk, []error) {
	c := &Compiler{
		opts:    opts,
		chunk:   &Chunk{},
		names:   map[string]int{},
		strings: map[string]int{},
		arities: map[string]int{},
		dupes:   map[string]bool{},
	}

	// Functions are registered up front so calls that appear before the
	// declaration still get their arity checked.
	for _, stmt := range prog.Stmts {
		fn, ok := stmt.(*ast.FuncStmt)
		if !ok {
			continue
		}
		if _, dup := c.arities[fn.Name]; dup {
			c.errf(diag.DuplicateFunction, fn.GetSpan(), "function %q is declared twice", fn.Name)
			c.dupes[fn.Name] = true
			continue
		}
		c.arities[fn.Name] = len(fn.Params)
	}

	for _, stmt := range prog.Stmts {
		c.compileStmt(stmt)
	}
	c.chunk.Code = c.code
	if len(c.errs) > 0 {
		return nil, c.errs
	}
	return c.chunk, nil
}

func (c *Compiler) compileStmt(stmt ast.Stmt) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		c.compileExpr(s.Init)
		c.emitA(OpStore, c.internName(s.Name), s.GetSpan())
	case *ast.AssignStmt:
		c.compileExpr(s.Value)
		c.emitA(OpAssign, c.internName(s.Name), s.GetSpan())
	case *ast.IndexAssignStmt:
		c.compileExpr(s.Array)
		c.compileExpr(s.Index)
		c.compileExpr(s.Value)
		c.emit(OpSetIndex, s.GetSpan())
	case *ast.OutputStmt:
		c.compileExpr(s.Expr)
		c.emit(OpOutput, s.GetSpan())
	case *ast.InputStmt:
		hasPrompt := 0
		if s.Prompt != nil {
			c.compileExpr(s.Prompt)
			hasPrompt = 1
		}
		c.emitAB(OpInput, c.internName(s.Target), hasPrompt, s.GetSpan())
	case *ast.FuncStmt:
		c.compileFunc(s)
	case *ast.IfStmt:
		c.compileIf(s)
	case *ast.WhileStmt:
		c.compileWhile(s)
	case *ast.ForStmt:
		c.compileFor(s)
	case *ast.BreakStmt:
		if len(c.loops) == 0 {
			c.errf(diag.UnresolvedBreakOrContinue, s.GetSpan(), "break outside of a loop")
			return
		}
		jmp := c.emitJump(OpJump, s.GetSpan())
		top := &c.loops[len(c.loops)-1]
		top.breaks = append(top.breaks, jmp)
	case *ast.ContinueStmt:
		if len(c.loops) == 0 {
			c.errf(diag.UnresolvedBreakOrContinue, s.GetSpan(), "continue outside of a loop")
			return
		}
		jmp := c.emitJump(OpJump, s.GetSpan())
		top := &c.loops[len(c.loops)-1]
		top.continues = append(top.continues, jmp)
	case *ast.ReturnStmt:
		if s.Value != nil {
			c.compileExpr(s.Value)
		} else {
			c.emit(OpNone, s.GetSpan())
		}
		c.emit(OpReturn, s.GetSpan())
	case *ast.ExprStmt:
		c.compileExpr(s.Expr)
		c.emit(OpPop, s.GetSpan())
	}
}

// compileFunc compiles a function body into its own instruction stream.
// Loop contexts never cross a function boundary.
func (c *Compiler) compileFunc(fn *ast.FuncStmt) {
	if _, exists := c.chunk.FuncByName(fn.Name); exists {
		// Top-level duplicates are reported by the registration pass; a
		// redeclaration nested in some body is reported here.
		if !c.dupes[fn.Name] {
			c.errf(diag.DuplicateFunction, fn.GetSpan(), "function %q is declared twice", fn.Name)
		}
		return
	}
	// A fn nested in a body is hoisted to the global function table, so its
	// arity is registered here rather than by the top-level pass.
	if _, known := c.arities[fn.Name]; !known {
		c.arities[fn.Name] = len(fn.Params)
	}
	params := make([]int, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = c.internName(p)
	}

	savedCode, savedLoops := c.code, c.loops
	c.code, c.loops = nil, nil
	for _, stmt := range fn.Body {
		c.compileStmt(stmt)
	}
	c.emit(OpNone, fn.GetSpan())
	c.emit(OpReturn, fn.GetSpan())
	body := c.code
	c.code, c.loops = savedCode, savedLoops

	c.internName(fn.Name)
	c.chunk.Funcs = append(c.chunk.Funcs, Function{
		Name:    fn.Name,
		Params:  params,
		Code:    body,
		IsAsync: fn.IsAsync,
	})
}

func (c *Compiler) compileIf(s *ast.IfStmt) {
	var endJumps []int

	c.compileExpr(s.Cond)
	next := c.emitJump(OpJumpIfFalse, s.GetSpan())
	c.compileBlock(s.Then)
	endJumps = append(endJumps, c.emitJump(OpJump, s.GetSpan()))
	c.patchJump(next)

	for _, elif := range s.Elifs {
		c.compileExpr(elif.Cond)
		next = c.emitJump(OpJumpIfFalse, elif.Cond.GetSpan())
		c.compileBlock(elif.Body)
		endJumps = append(endJumps, c.emitJump(OpJump, elif.Cond.GetSpan()))
		c.patchJump(next)
	}

	if s.Else != nil {
		c.compileBlock(s.Else)
	}
	for _, jmp := range endJumps {
		c.patchJump(jmp)
	}
}

func (c *Compiler) compileWhile(s *ast.WhileStmt) {
	start := len(c.code)
	c.compileExpr(s.Cond)
	exit := c.emitJump(OpJumpIfFalse, s.GetSpan())

	c.loops = append(c.loops, loopCtx{})
	c.compileBlock(s.Body)
	ctx := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]

	for _, jmp := range ctx.continues {
		c.patchJumpTo(jmp, start)
	}
	c.emitJumpTo(OpJump, start, s.GetSpan())
	c.patchJump(exit)
	for _, jmp := range ctx.breaks {
		c.patchJump(jmp)
	}
}

// compileFor lays out init, condition, body, then update; continue lands on
// the update clause, not the condition.
func (c *Compiler) compileFor(s *ast.ForStmt) {
	if s.Init != nil {
		c.compileStmt(s.Init)
	}
	condStart := len(c.code)
	exit := -1
	if s.Cond != nil {
		c.compileExpr(s.Cond)
		exit = c.emitJump(OpJumpIfFalse, s.GetSpan())
	}

	c.loops = append(c.loops, loopCtx{})
	c.compileBlock(s.Body)
	ctx := c.loops[len(c.loops)-1]
	c.loops = c.loops[:len(c.loops)-1]

	updateStart := len(c.code)
	for _, jmp := range ctx.continues {
		c.patchJumpTo(jmp, updateStart)
	}
	if s.Update != nil {
		c.compileStmt(s.Update)
	}
	c.emitJumpTo(OpJump, condStart, s.GetSpan())
	if exit >= 0 {
		c.patchJump(exit)
	}
	for _, jmp := range ctx.breaks {
		c.patchJump(jmp)
	}
}

func (c *Compiler) compileBlock(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		c.compileStmt(stmt)
	}
}

func (c *Compiler) compileExpr(expr ast.Expr) {
	if !c.opts.DisableFolding {
		expr = foldExpr(expr)
	}
	c.emitExpr(expr)
}

func (c *Compiler) emitExpr(expr ast.Expr) {
	switch e := expr.(type) {
	case *ast.NumberLit:
		c.emitConst(e.Value, e.GetSpan())
	case *ast.StringLit:
		c.emitA(OpString, c.internString(e.Value), e.GetSpan())
	case *ast.BoolLit:
		v := 0.0
		if e.Value {
			v = 1.0
		}
		c.emitConst(v, e.GetSpan())
	case *ast.IdentExpr:
		c.emitA(OpLoad, c.internName(e.Name), e.GetSpan())
	case *ast.CallExpr:
		callee, ok := e.Callee.(*ast.IdentExpr)
		if !ok {
			c.errf(diag.UnexpectedToken, e.GetSpan(), "only named functions can be called")
			return
		}
		if want, known := c.arities[callee.Name]; known && want != len(e.Args) {
			c.errf(diag.ArityMismatch, e.GetSpan(), "function %q takes %d arguments, got %d", callee.Name, want, len(e.Args))
		}
		for _, arg := range e.Args {
			c.emitExpr(arg)
		}
		c.emitAB(OpCall, c.internName(callee.Name), len(e.Args), e.GetSpan())
	case *ast.IndexExpr:
		c.emitExpr(e.Array)
		c.emitExpr(e.Index)
		c.emit(OpIndex, e.GetSpan())
	case *ast.ArrayLit:
		for _, elem := range e.Elems {
			c.emitExpr(elem)
		}
		c.emitA(OpMakeArray, len(e.Elems), e.GetSpan())
	case *ast.BinaryExpr:
		c.emitExpr(e.Left)
		c.emitExpr(e.Right)
		op, ok := binaryOpcode(e.Op)
		if !ok {
			c.errf(diag.UnknownOperator, e.GetSpan(), "operator %q cannot be compiled", e.Op)
			return
		}
		c.emit(op, e.GetSpan())
	case *ast.UnaryExpr:
		c.emitExpr(e.Expr)
		switch e.Op {
		case ast.Negate:
			c.emit(OpNeg, e.GetSpan())
		case ast.BitwiseNot:
			c.emit(OpBitNot, e.GetSpan())
		case ast.LogicalNot:
			c.emit(OpNot, e.GetSpan())
		default:
			c.errf(diag.UnknownOperator, e.GetSpan(), "operator %q cannot be compiled", e.Op)
		}
	}
}

func binaryOpcode(op ast.BinaryOp) (Opcode, bool) {
	switch op {
	case ast.Add:
		return OpAdd, true
	case ast.Subtract:
		return OpSub, true
	case ast.Multiply:
		return OpMul, true
	case ast.Divide:
		return OpDiv, true
	case ast.Modulo:
		return OpMod, true
	case ast.Power:
		return OpPow, true
	case ast.Eq:
		return OpEq, true
	case ast.Ne:
		return OpNe, true
	case ast.Lt:
		return OpLt, true
	case ast.Le:
		return OpLe, true
	case ast.Gt:
		return OpGt, true
	case ast.Ge:
		return OpGe, true
	case ast.And:
		return OpAnd, true
	case ast.Or:
		return OpOr, true
	case ast.BitwiseAnd:
		return OpBitAnd, true
	case ast.BitwiseOr:
		return OpBitOr, true
	case ast.LeftShift:
		return OpShl, true
	case ast.RightShift:
		return OpShr, true
	default:
		return 0, false
	}
}

// foldExpr evaluates literal-only subexpressions at compile time. Division
// and modulo by a zero literal are left alone so the fault still happens at
// run time.
func foldExpr(expr ast.Expr) ast.Expr {
	switch e := expr.(type) {
	case *ast.BoolLit:
		v := 0.0
		if e.Value {
			v = 1.0
		}
		return &ast.NumberLit{Value: v, Span: e.Span}
	case *ast.UnaryExpr:
		operand := foldExpr(e.Expr)
		if n, ok := operand.(*ast.NumberLit); ok {
			switch e.Op {
			case ast.Negate:
				return &ast.NumberLit{Value: -n.Value, Span: e.Span}
			case ast.BitwiseNot:
				return &ast.NumberLit{Value: float64(^int64(n.Value)), Span: e.Span}
			case ast.LogicalNot:
				v := 0.0
				if n.Value == 0 {
					v = 1.0
				}
				return &ast.NumberLit{Value: v, Span: e.Span}
			}
		}
		return &ast.UnaryExpr{Op: e.Op, Expr: operand, Span: e.Span}
	case *ast.BinaryExpr:
		left := foldExpr(e.Left)
		right := foldExpr(e.Right)
		if folded, ok := foldBinary(e.Op, left, right, e.Span); ok {
			return folded
		}
		return &ast.BinaryExpr{Op: e.Op, Left: left, Right: right, Span: e.Span}
	case *ast.CallExpr:
		args := make([]ast.Expr, len(e.Args))
		for i, arg := range e.Args {
			args[i] = foldExpr(arg)
		}
		return &ast.CallExpr{Callee: e.Callee, Args: args, Span: e.Span}
	case *ast.IndexExpr:
		return &ast.IndexExpr{Array: foldExpr(e.Array), Index: foldExpr(e.Index), Span: e.Span}
	case *ast.ArrayLit:
		elems := make([]ast.Expr, len(e.Elems))
		for i, elem := range e.Elems {
			elems[i] = foldExpr(elem)
		}
		return &ast.ArrayLit{Elems: elems, Span: e.Span}
	default:
		return expr
	}
}

func foldBinary(op ast.BinaryOp, left, right ast.Expr, span ast.Span) (ast.Expr, bool) {
	if ls, ok := left.(*ast.StringLit); ok {
		rs, ok := right.(*ast.StringLit)
		if !ok {
			return nil, false
		}
		switch op {
		case ast.Add:
			return &ast.StringLit{Value: ls.Value + rs.Value, Span: span}, true
		case ast.Eq:
			return boolNum(ls.Value == rs.Value, span), true
		case ast.Ne:
			return boolNum(ls.Value != rs.Value, span), true
		}
		return nil, false
	}

	ln, ok := left.(*ast.NumberLit)
	if !ok {
		return nil, false
	}
	rn, ok := right.(*ast.NumberLit)
	if !ok {
		return nil, false
	}
	l, r := ln.Value, rn.Value
	switch op {
	case ast.Add:
		return &ast.NumberLit{Value: l + r, Span: span}, true
	case ast.Subtract:
		return &ast.NumberLit{Value: l - r, Span: span}, true
	case ast.Multiply:
		return &ast.NumberLit{Value: l * r, Span: span}, true
	case ast.Divide:
		if r == 0 {
			return nil, false
		}
		return &ast.NumberLit{Value: l / r, Span: span}, true
	case ast.Modulo:
		if r == 0 {
			return nil, false
		}
		return &ast.NumberLit{Value: math.Mod(l, r), Span: span}, true
	case ast.Power:
		return &ast.NumberLit{Value: math.Pow(l, r), Span: span}, true
	case ast.Eq:
		return boolNum(l == r, span), true
	case ast.Ne:
		return boolNum(l != r, span), true
	case ast.Lt:
		return boolNum(l < r, span), true
	case ast.Le:
		return boolNum(l <= r, span), true
	case ast.Gt:
		return boolNum(l > r, span), true
	case ast.Ge:
		return boolNum(l >= r, span), true
	case ast.And:
		return boolNum(l != 0 && r != 0, span), true
	case ast.Or:
		return boolNum(l != 0 || r != 0, span), true
	case ast.BitwiseAnd:
		return &ast.NumberLit{Value: float64(int64(l) & int64(r)), Span: span}, true
	case ast.BitwiseOr:
		return &ast.NumberLit{Value: float64(int64(l) | int64(r)), Span: span}, true
	case ast.LeftShift:
		return &ast.NumberLit{Value: float64(int64(l) << uint64(int64(r))), Span: span}, true
	case ast.RightShift:
		return &ast.NumberLit{Value: float64(int64(l) >> uint64(int64(r))), Span: span}, true
	default:
		return nil, false
	}
}

func boolNum(b bool, span ast.Span) *ast.NumberLit {
	if b {
		return &ast.NumberLit{Value: 1, Span: span}
	}
	return &ast.NumberLit{Value: 0, Span: span}
}

func (c *Compiler) internName(name string) int {
	if idx, ok := c.names[name]; ok {
		return idx
	}
	idx := len(c.chunk.Names)
	c.chunk.Names = append(c.chunk.Names, name)
	c.names[name] = idx
	return idx
}

func (c *Compiler) internString(s string) int {
	if idx, ok := c.strings[s]; ok {
		return idx
	}
	idx := len(c.chunk.Strings)
	c.chunk.Strings = append(c.chunk.Strings, s)
	c.strings[s] = idx
	return idx
}

func (c *Compiler) emit(op Opcode, span ast.Span) {
	c.code = append(c.code, Instruction{Op: op, Line: span.Start.Line})
}

func (c *Compiler) emitA(op Opcode, a int, span ast.Span) {
	c.code = append(c.code, Instruction{Op: op, A: a, Line: span.Start.Line})
}

func (c *Compiler) emitAB(op Opcode, a, b int, span ast.Span) {
	c.code = append(c.code, Instruction{Op: op, A: a, B: b, Line: span.Start.Line})
}

func (c *Compiler) emitConst(v float64, span ast.Span) {
	c.code = append(c.code, Instruction{Op: OpConst, Num: v, Line: span.Start.Line})
}

// emitJump emits a jump with a placeholder target and returns its index for
// a later patchJump.
func (c *Compiler) emitJump(op Opcode, span ast.Span) int {
	c.code = append(c.code, Instruction{Op: op, A: -1, Line: span.Start.Line})
	return len(c.code) - 1
}

func (c *Compiler) emitJumpTo(op Opcode, target int, span ast.Span) {
	c.code = append(c.code, Instruction{Op: op, A: target, Line: span.Start.Line})
}

func (c *Compiler) patchJump(idx int) {
	c.code[idx].A = len(c.code)
}

func (c *Compiler) patchJumpTo(idx, target int) {
	c.code[idx].A = target
}

func (c *Compiler) errf(kind diag.Kind, span ast.Span, format string, args ...any) {
	c.errs = append(c.errs, diag.Errorf(kind, diag.Position{Line: span.Start.Line, Col: span.Start.Col}, format, args...))
}
