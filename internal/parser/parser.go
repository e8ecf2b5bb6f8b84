package parser

import (
	"strconv"

	"aslang/internal/ast"
	"aslang/internal/diag"
	"aslang/internal/lexer"
)

type Parser struct {
	lex  *lexer.Lexer
	curr lexer.Token
	errs []error
}

func New(src string) *Parser {
	lex := lexer.New(src)
	p := &Parser{lex: lex}
	p.curr = lex.Next()
	return p
}

// Parse consumes the whole token stream and returns the program together
// with every error recorded along the way, in source order. A program with
// any error must not be compiled.
func (p *Parser) Parse() (*ast.Program, []error) {
	prog := &ast.Program{}
	for p.curr.Kind != lexer.TokenEOF {
		n := len(p.errs)
		stmt := p.parseStmt()
		if len(p.errs) > n {
			p.sync()
			continue
		}
		if stmt != nil {
			prog.Stmts = append(prog.Stmts, stmt)
		}
	}
	return prog, p.errs
}

func (p *Parser) parseStmt() ast.Stmt {
	switch p.curr.Kind {
	case lexer.TokenLet:
		return p.parseLet()
	case lexer.TokenOutput:
		return p.parseOutput()
	case lexer.TokenInput:
		return p.parseInput()
	case lexer.TokenFn:
		return p.parseFunc(false)
	case lexer.TokenAsync:
		start := p.curr.Pos
		p.next()
		if p.curr.Kind != lexer.TokenFn {
			p.errExpect("fn expected after async")
			return nil
		}
		fn := p.parseFunc(true)
		if fn != nil {
			fn.Span.Start = posFromLex(start)
		}
		return fn
	case lexer.TokenIf:
		return p.parseIf()
	case lexer.TokenWhile:
		return p.parseWhile()
	case lexer.TokenFor:
		return p.parseFor()
	case lexer.TokenBreak:
		tok := p.curr
		p.next()
		p.optional(lexer.TokenSemicolon)
		return &ast.BreakStmt{Span: spanFrom(tok.Pos, tok.Pos)}
	case lexer.TokenContinue:
		tok := p.curr
		p.next()
		p.optional(lexer.TokenSemicolon)
		return &ast.ContinueStmt{Span: spanFrom(tok.Pos, tok.Pos)}
	case lexer.TokenReturn:
		return p.parseReturn()
	case lexer.TokenInvalid:
		p.errKind(diag.InvalidCharacter, "unexpected character %q", p.curr.Text)
		return nil
	case lexer.TokenUnterminated:
		p.errKind(diag.UnterminatedLiteral, "string literal is missing its closing quote")
		return nil
	default:
		return p.parseExprStmt()
	}
}

func (p *Parser) parseLet() ast.Stmt {
	start := p.curr.Pos
	p.expect(lexer.TokenLet)
	nameTok := p.expect(lexer.TokenIdent)
	typeName := ""
	if p.curr.Kind == lexer.TokenColon {
		p.next()
		typeTok := p.expect(lexer.TokenIdent)
		typeName = typeTok.Text
	}
	p.expect(lexer.TokenEq)
	init := p.parseExpr(0)
	p.optional(lexer.TokenSemicolon)
	end := p.curr.Pos
	return &ast.LetStmt{Name: nameTok.Text, TypeName: typeName, Init: init, Span: spanFrom(start, end)}
}

func (p *Parser) parseOutput() ast.Stmt {
	start := p.curr.Pos
	p.expect(lexer.TokenOutput)
	expr := p.parseExpr(0)
	p.optional(lexer.TokenSemicolon)
	end := p.curr.Pos
	return &ast.OutputStmt{Expr: expr, Span: spanFrom(start, end)}
}

func (p *Parser) parseInput() ast.Stmt {
	start := p.curr.Pos
	p.expect(lexer.TokenInput)
	var prompt ast.Expr
	if p.curr.Kind == lexer.TokenString {
		tok := p.curr
		p.next()
		prompt = &ast.StringLit{Value: tok.Text, Span: spanFrom(tok.Pos, tok.Pos)}
	}
	targetTok := p.expect(lexer.TokenIdent)
	p.optional(lexer.TokenSemicolon)
	end := p.curr.Pos
	return &ast.InputStmt{Prompt: prompt, Target: targetTok.Text, Span: spanFrom(start, end)}
}

func (p *Parser) parseFunc(isAsync bool) *ast.FuncStmt {
	start := p.curr.Pos
	p.expect(lexer.TokenFn)
	nameTok := p.expect(lexer.TokenIdent)
	p.expect(lexer.TokenLParen)
	var params []string
	var paramTypes []string
	if p.curr.Kind != lexer.TokenRParen {
		for {
			paramTok := p.expect(lexer.TokenIdent)
			params = append(params, paramTok.Text)
			typeName := ""
			if p.curr.Kind == lexer.TokenColon {
				p.next()
				typeTok := p.expect(lexer.TokenIdent)
				typeName = typeTok.Text
			}
			paramTypes = append(paramTypes, typeName)
			if p.curr.Kind != lexer.TokenComma {
				break
			}
			p.next()
		}
	}
	p.expect(lexer.TokenRParen)
	body := p.parseBlock()
	end := p.curr.Pos
	return &ast.FuncStmt{
		Name:       nameTok.Text,
		Params:     params,
		ParamTypes: paramTypes,
		Body:       body,
		IsAsync:    isAsync,
		Span:       spanFrom(start, end),
	}
}

func (p *Parser) parseIf() ast.Stmt {
	start := p.curr.Pos
	p.expect(lexer.TokenIf)
	cond := p.parseExpr(0)
	then := p.parseBlock()
	var elifs []ast.ElseIf
	for p.curr.Kind == lexer.TokenElseIf {
		p.next()
		elifCond := p.parseExpr(0)
		elifs = append(elifs, ast.ElseIf{Cond: elifCond, Body: p.parseBlock()})
	}
	var elseBody []ast.Stmt
	if p.curr.Kind == lexer.TokenElse {
		p.next()
		elseBody = p.parseBlock()
	}
	end := p.curr.Pos
	return &ast.IfStmt{Cond: cond, Then: then, Elifs: elifs, Else: elseBody, Span: spanFrom(start, end)}
}

func (p *Parser) parseWhile() ast.Stmt {
	start := p.curr.Pos
	p.expect(lexer.TokenWhile)
	cond := p.parseExpr(0)
	body := p.parseBlock()
	end := p.curr.Pos
	return &ast.WhileStmt{Cond: cond, Body: body, Span: spanFrom(start, end)}
}

func (p *Parser) parseFor() ast.Stmt {
	start := p.curr.Pos
	p.expect(lexer.TokenFor)
	p.expect(lexer.TokenLParen)

	var init ast.Stmt
	if p.curr.Kind == lexer.TokenSemicolon {
		p.next()
	} else if p.curr.Kind == lexer.TokenLet {
		init = p.parseLet()
	} else {
		init = p.parseSimpleStmt()
		p.expect(lexer.TokenSemicolon)
	}

	var cond ast.Expr
	if p.curr.Kind != lexer.TokenSemicolon {
		cond = p.parseExpr(0)
	}
	p.expect(lexer.TokenSemicolon)

	var update ast.Stmt
	if p.curr.Kind != lexer.TokenRParen {
		update = p.parseSimpleStmt()
	}
	p.expect(lexer.TokenRParen)

	body := p.parseBlock()
	end := p.curr.Pos
	return &ast.ForStmt{Init: init, Cond: cond, Update: update, Body: body, Span: spanFrom(start, end)}
}

func (p *Parser) parseReturn() ast.Stmt {
	start := p.curr.Pos
	p.expect(lexer.TokenReturn)
	var value ast.Expr
	if p.curr.Kind != lexer.TokenSemicolon && p.curr.Kind != lexer.TokenRBrace && p.curr.Kind != lexer.TokenEOF {
		value = p.parseExpr(0)
	}
	p.optional(lexer.TokenSemicolon)
	end := p.curr.Pos
	return &ast.ReturnStmt{Value: value, Span: spanFrom(start, end)}
}

func (p *Parser) parseExprStmt() ast.Stmt {
	stmt := p.parseSimpleStmt()
	p.optional(lexer.TokenSemicolon)
	return stmt
}

// parseSimpleStmt parses an expression statement or one of the assignment
// forms that may also appear in a for clause: "x = e", "a[i] = e", "x++",
// "x--". The trailing semicolon, if any, is the caller's business.
func (p *Parser) parseSimpleStmt() ast.Stmt {
	expr := p.parseExpr(0)
	switch p.curr.Kind {
	case lexer.TokenEq:
		p.next()
		value := p.parseExpr(0)
		span := ast.Span{Start: expr.GetSpan().Start, End: value.GetSpan().End}
		switch target := expr.(type) {
		case *ast.IdentExpr:
			return &ast.AssignStmt{Name: target.Name, Value: value, Span: span}
		case *ast.IndexExpr:
			return &ast.IndexAssignStmt{Array: target.Array, Index: target.Index, Value: value, Span: span}
		default:
			p.errExpect("assignment target must be a variable or array element")
			return &ast.ExprStmt{Expr: expr, Span: expr.GetSpan()}
		}
	case lexer.TokenInc, lexer.TokenDec:
		op := ast.Add
		if p.curr.Kind == lexer.TokenDec {
			op = ast.Subtract
		}
		tok := p.curr
		p.next()
		target, ok := expr.(*ast.IdentExpr)
		if !ok {
			p.errExpect(tok.Kind.String() + " requires a variable")
			return &ast.ExprStmt{Expr: expr, Span: expr.GetSpan()}
		}
		span := ast.Span{Start: expr.GetSpan().Start, End: posFromLex(tok.Pos)}
		one := &ast.NumberLit{Value: 1, Span: span}
		return &ast.AssignStmt{
			Name:  target.Name,
			Value: &ast.BinaryExpr{Op: op, Left: target, Right: one, Span: span},
			Span:  span,
		}
	default:
		return &ast.ExprStmt{Expr: expr, Span: expr.GetSpan()}
	}
}

func (p *Parser) parseBlock() []ast.Stmt {
	p.expect(lexer.TokenLBrace)
	var stmts []ast.Stmt
	for p.curr.Kind != lexer.TokenRBrace && p.curr.Kind != lexer.TokenEOF {
		n := len(p.errs)
		stmt := p.parseStmt()
		if len(p.errs) > n {
			p.sync()
			continue
		}
		if stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	p.expect(lexer.TokenRBrace)
	return stmts
}

// parseExpr climbs operator precedence: it parses a prefix term, then keeps
// consuming infix operators that bind at least as tightly as precedence.
// Left-associative operators recurse at prec+1; Power recurses at prec.
func (p *Parser) parseExpr(precedence int) ast.Expr {
	expr := p.parseUnary()
	for {
		prec := binaryPrecedence(p.curr.Kind)
		if prec < 0 || prec < precedence {
			break
		}
		op, _ := binaryOpFromToken(p.curr.Kind)
		p.next()
		next := prec + 1
		if op == ast.Power {
			next = prec
		}
		right := p.parseExpr(next)
		expr = &ast.BinaryExpr{
			Op:    op,
			Left:  expr,
			Right: right,
			Span:  ast.Span{Start: expr.GetSpan().Start, End: right.GetSpan().End},
		}
	}
	return expr
}

func (p *Parser) parseUnary() ast.Expr {
	var op ast.UnaryOp
	switch p.curr.Kind {
	case lexer.TokenMinus:
		op = ast.Negate
	case lexer.TokenNot:
		op = ast.LogicalNot
	case lexer.TokenTilde:
		op = ast.BitwiseNot
	default:
		return p.parsePostfix()
	}
	start := p.curr.Pos
	p.next()
	operand := p.parseUnary()
	return &ast.UnaryExpr{Op: op, Expr: operand, Span: ast.Span{Start: posFromLex(start), End: operand.GetSpan().End}}
}

func (p *Parser) parsePostfix() ast.Expr {
	expr := p.parsePrimary()
	for {
		switch p.curr.Kind {
		case lexer.TokenLParen:
			args := p.parseArgs()
			end := expr.GetSpan().End
			if len(args) > 0 {
				end = args[len(args)-1].GetSpan().End
			}
			expr = &ast.CallExpr{Callee: expr, Args: args, Span: ast.Span{Start: expr.GetSpan().Start, End: end}}
		case lexer.TokenLBracket:
			p.next()
			idx := p.parseExpr(0)
			p.expect(lexer.TokenRBracket)
			expr = &ast.IndexExpr{Array: expr, Index: idx, Span: ast.Span{Start: expr.GetSpan().Start, End: idx.GetSpan().End}}
		default:
			return expr
		}
	}
}

func (p *Parser) parsePrimary() ast.Expr {
	switch p.curr.Kind {
	case lexer.TokenNumber:
		tok := p.curr
		p.next()
		v, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			p.errKind(diag.SyntaxError, "invalid number %q", tok.Text)
		}
		return &ast.NumberLit{Value: v, Span: spanFrom(tok.Pos, tok.Pos)}
	case lexer.TokenString:
		tok := p.curr
		p.next()
		return &ast.StringLit{Value: tok.Text, Span: spanFrom(tok.Pos, tok.Pos)}
	case lexer.TokenTrue, lexer.TokenFalse:
		tok := p.curr
		p.next()
		return &ast.BoolLit{Value: tok.Kind == lexer.TokenTrue, Span: spanFrom(tok.Pos, tok.Pos)}
	case lexer.TokenIdent:
		tok := p.curr
		p.next()
		return &ast.IdentExpr{Name: tok.Text, Span: spanFrom(tok.Pos, tok.Pos)}
	case lexer.TokenLParen:
		p.next()
		expr := p.parseExpr(0)
		p.expect(lexer.TokenRParen)
		return expr
	case lexer.TokenLBracket:
		return p.parseArrayLit()
	case lexer.TokenInvalid:
		p.errKind(diag.InvalidCharacter, "unexpected character %q", p.curr.Text)
		p.next()
		return &ast.IdentExpr{Span: spanFrom(p.curr.Pos, p.curr.Pos)}
	case lexer.TokenUnterminated:
		p.errKind(diag.UnterminatedLiteral, "string literal is missing its closing quote")
		p.next()
		return &ast.StringLit{Span: spanFrom(p.curr.Pos, p.curr.Pos)}
	default:
		p.errExpect("expression required")
		p.next()
		return &ast.IdentExpr{Span: spanFrom(p.curr.Pos, p.curr.Pos)}
	}
}

func (p *Parser) parseArrayLit() ast.Expr {
	start := p.curr.Pos
	p.expect(lexer.TokenLBracket)
	var elems []ast.Expr
	if p.curr.Kind != lexer.TokenRBracket {
		for {
			elems = append(elems, p.parseExpr(0))
			if p.curr.Kind != lexer.TokenComma {
				break
			}
			p.next()
		}
	}
	p.expect(lexer.TokenRBracket)
	end := p.curr.Pos
	return &ast.ArrayLit{Elems: elems, Span: spanFrom(start, end)}
}

func (p *Parser) parseArgs() []ast.Expr {
	p.expect(lexer.TokenLParen)
	var args []ast.Expr
	if p.curr.Kind != lexer.TokenRParen {
		for {
			args = append(args, p.parseExpr(0))
			if p.curr.Kind != lexer.TokenComma {
				break
			}
			p.next()
		}
	}
	p.expect(lexer.TokenRParen)
	return args
}

// Precedence ladder, low to high. Power gets the highest infix level and is
// right-associative.
func binaryPrecedence(kind lexer.TokenKind) int {
	switch kind {
	case lexer.TokenOrOr:
		return 1
	case lexer.TokenAndAnd:
		return 2
	case lexer.TokenEqEq, lexer.TokenNotEq:
		return 3
	case lexer.TokenLT, lexer.TokenLTE, lexer.TokenGT, lexer.TokenGTE:
		return 4
	case lexer.TokenPipe:
		return 5
	case lexer.TokenAmp:
		return 6
	case lexer.TokenShl, lexer.TokenShr:
		return 7
	case lexer.TokenPlus, lexer.TokenMinus:
		return 8
	case lexer.TokenStar, lexer.TokenSlash, lexer.TokenPercent:
		return 9
	case lexer.TokenCaret:
		return 10
	default:
		return -1
	}
}

func binaryOpFromToken(kind lexer.TokenKind) (ast.BinaryOp, bool) {
	switch kind {
	case lexer.TokenPlus:
		return ast.Add, true
	case lexer.TokenMinus:
		return ast.Subtract, true
	case lexer.TokenStar:
		return ast.Multiply, true
	case lexer.TokenSlash:
		return ast.Divide, true
	case lexer.TokenPercent:
		return ast.Modulo, true
	case lexer.TokenCaret:
		return ast.Power, true
	case lexer.TokenEqEq:
		return ast.Eq, true
	case lexer.TokenNotEq:
		return ast.Ne, true
	case lexer.TokenLT:
		return ast.Lt, true
	case lexer.TokenLTE:
		return ast.Le, true
	case lexer.TokenGT:
		return ast.Gt, true
	case lexer.TokenGTE:
		return ast.Ge, true
	case lexer.TokenAndAnd:
		return ast.And, true
	case lexer.TokenOrOr:
		return ast.Or, true
	case lexer.TokenAmp:
		return ast.BitwiseAnd, true
	case lexer.TokenPipe:
		return ast.BitwiseOr, true
	case lexer.TokenShl:
		return ast.LeftShift, true
	case lexer.TokenShr:
		return ast.RightShift, true
	default:
		return 0, false
	}
}

func (p *Parser) optional(kind lexer.TokenKind) {
	if p.curr.Kind == kind {
		p.next()
	}
}

func (p *Parser) expect(kind lexer.TokenKind) lexer.Token {
	if p.curr.Kind != kind {
		p.errExpect(kind.String() + " expected, found " + p.curr.Kind.String())
		return p.curr
	}
	tok := p.curr
	p.next()
	return tok
}

func (p *Parser) next() {
	p.curr = p.lex.Next()
}

func (p *Parser) errExpect(msg string) {
	p.errKind(diag.UnexpectedToken, "%s", msg)
}

func (p *Parser) errKind(kind diag.Kind, format string, args ...any) {
	p.errs = append(p.errs, diag.Errorf(kind, diag.Position{Line: p.curr.Pos.Line, Col: p.curr.Pos.Col}, format, args...))
}

// sync skips to the next statement boundary so one malformed statement does
// not drown the rest of the parse in follow-on errors.
func (p *Parser) sync() {
	for p.curr.Kind != lexer.TokenEOF {
		switch p.curr.Kind {
		case lexer.TokenSemicolon, lexer.TokenRBrace:
			p.next()
			return
		case lexer.TokenLet, lexer.TokenFn, lexer.TokenAsync, lexer.TokenOutput, lexer.TokenInput,
			lexer.TokenIf, lexer.TokenWhile, lexer.TokenFor, lexer.TokenReturn:
			return
		default:
			p.next()
		}
	}
}

func spanFrom(start, end lexer.Position) ast.Span {
	return ast.Span{Start: posFromLex(start), End: posFromLex(end)}
}

func posFromLex(pos lexer.Position) ast.Position {
	return ast.Position{Line: pos.Line, Col: pos.Col}
}
