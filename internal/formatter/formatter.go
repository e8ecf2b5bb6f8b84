// Package formatter pretty-prints programs back to canonical source form:
// tab indentation, one statement per line, semicolons on simple statements.
package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"aslang/internal/ast"
	"aslang/internal/parser"
)

type Formatter struct {
	b      strings.Builder
	indent int
}

func New() *Formatter {
	return &Formatter{}
}

// Format parses src and returns its canonical rendering. Programs with
// parse errors are returned unchanged along with the first error.
func (f *Formatter) Format(src string) (string, error) {
	prog, errs := parser.New(src).Parse()
	if len(errs) > 0 {
		return src, errs[0]
	}
	return f.FormatProgram(prog), nil
}

func (f *Formatter) FormatProgram(prog *ast.Program) string {
	f.b.Reset()
	f.indent = 0
	for i, stmt := range prog.Stmts {
		if i > 0 {
			if _, ok := stmt.(*ast.FuncStmt); ok {
				f.b.WriteByte('\n')
			}
		}
		f.writeStmt(stmt)
	}
	return f.b.String()
}

func (f *Formatter) writeStmt(stmt ast.Stmt) {
	f.writeIndent()
	switch s := stmt.(type) {
	case *ast.LetStmt:
		f.b.WriteString("let " + s.Name)
		if s.TypeName != "" {
			f.b.WriteString(": " + s.TypeName)
		}
		f.b.WriteString(" = " + f.expr(s.Init) + ";\n")
	case *ast.AssignStmt:
		f.b.WriteString(s.Name + " = " + f.expr(s.Value) + ";\n")
	case *ast.IndexAssignStmt:
		f.b.WriteString(f.expr(s.Array) + "[" + f.expr(s.Index) + "] = " + f.expr(s.Value) + ";\n")
	case *ast.OutputStmt:
		f.b.WriteString("output " + f.expr(s.Expr) + ";\n")
	case *ast.InputStmt:
		f.b.WriteString("input ")
		if s.Prompt != nil {
			f.b.WriteString(f.expr(s.Prompt) + " ")
		}
		f.b.WriteString(s.Target + ";\n")
	case *ast.FuncStmt:
		if s.IsAsync {
			f.b.WriteString("async ")
		}
		f.b.WriteString("fn " + s.Name + "(")
		for i, p := range s.Params {
			if i > 0 {
				f.b.WriteString(", ")
			}
			f.b.WriteString(p)
			if s.ParamTypes[i] != "" {
				f.b.WriteString(": " + s.ParamTypes[i])
			}
		}
		f.b.WriteString(") ")
		f.writeBlock(s.Body)
		f.b.WriteByte('\n')
	case *ast.IfStmt:
		f.b.WriteString("if " + f.expr(s.Cond) + " ")
		f.writeBlock(s.Then)
		for _, elif := range s.Elifs {
			f.b.WriteString(" elseif " + f.expr(elif.Cond) + " ")
			f.writeBlock(elif.Body)
		}
		if s.Else != nil {
			f.b.WriteString(" else ")
			f.writeBlock(s.Else)
		}
		f.b.WriteByte('\n')
	case *ast.WhileStmt:
		f.b.WriteString("while " + f.expr(s.Cond) + " ")
		f.writeBlock(s.Body)
		f.b.WriteByte('\n')
	case *ast.ForStmt:
		f.b.WriteString("for (")
		if s.Init != nil {
			f.b.WriteString(f.clause(s.Init))
		}
		f.b.WriteString("; ")
		if s.Cond != nil {
			f.b.WriteString(f.expr(s.Cond))
		}
		f.b.WriteString("; ")
		if s.Update != nil {
			f.b.WriteString(f.clause(s.Update))
		}
		f.b.WriteString(") ")
		f.writeBlock(s.Body)
		f.b.WriteByte('\n')
	case *ast.BreakStmt:
		f.b.WriteString("break;\n")
	case *ast.ContinueStmt:
		f.b.WriteString("continue;\n")
	case *ast.ReturnStmt:
		if s.Value != nil {
			f.b.WriteString("return " + f.expr(s.Value) + ";\n")
		} else {
			f.b.WriteString("return;\n")
		}
	case *ast.ExprStmt:
		f.b.WriteString(f.expr(s.Expr) + ";\n")
	}
}

func (f *Formatter) writeBlock(stmts []ast.Stmt) {
	f.b.WriteString("{\n")
	f.indent++
	for _, stmt := range stmts {
		f.writeStmt(stmt)
	}
	f.indent--
	f.writeIndent()
	f.b.WriteString("}")
}

// clause renders a for-loop init or update without the trailing semicolon.
func (f *Formatter) clause(stmt ast.Stmt) string {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		out := "let " + s.Name
		if s.TypeName != "" {
			out += ": " + s.TypeName
		}
		return out + " = " + f.expr(s.Init)
	case *ast.AssignStmt:
		// x = x + 1 and x = x - 1 read better in their ++/-- forms.
		if bin, ok := s.Value.(*ast.BinaryExpr); ok {
			if id, ok := bin.Left.(*ast.IdentExpr); ok && id.Name == s.Name {
				if one, ok := bin.Right.(*ast.NumberLit); ok && one.Value == 1 {
					switch bin.Op {
					case ast.Add:
						return s.Name + "++"
					case ast.Subtract:
						return s.Name + "--"
					}
				}
			}
		}
		return s.Name + " = " + f.expr(s.Value)
	case *ast.IndexAssignStmt:
		return f.expr(s.Array) + "[" + f.expr(s.Index) + "] = " + f.expr(s.Value)
	case *ast.ExprStmt:
		return f.expr(s.Expr)
	default:
		return ""
	}
}

func (f *Formatter) expr(expr ast.Expr) string {
	return f.exprPrec(expr, 0)
}

// exprPrec renders expr, parenthesizing it when its operator binds looser
// than the context it appears in.
func (f *Formatter) exprPrec(expr ast.Expr, ctx int) string {
	switch e := expr.(type) {
	case *ast.NumberLit:
		return strconv.FormatFloat(e.Value, 'f', -1, 64)
	case *ast.StringLit:
		return strconv.Quote(e.Value)
	case *ast.BoolLit:
		if e.Value {
			return "true"
		}
		return "false"
	case *ast.IdentExpr:
		return e.Name
	case *ast.CallExpr:
		args := make([]string, len(e.Args))
		for i, arg := range e.Args {
			args[i] = f.exprPrec(arg, 0)
		}
		return f.exprPrec(e.Callee, precCall) + "(" + strings.Join(args, ", ") + ")"
	case *ast.IndexExpr:
		return f.exprPrec(e.Array, precCall) + "[" + f.exprPrec(e.Index, 0) + "]"
	case *ast.ArrayLit:
		elems := make([]string, len(e.Elems))
		for i, elem := range e.Elems {
			elems[i] = f.exprPrec(elem, 0)
		}
		return "[" + strings.Join(elems, ", ") + "]"
	case *ast.UnaryExpr:
		return wrap(e.Op.String()+f.exprPrec(e.Expr, precUnary), precUnary, ctx)
	case *ast.BinaryExpr:
		prec := binaryPrec(e.Op)
		leftCtx, rightCtx := prec, prec+1
		if e.Op == ast.Power {
			// Right-associative: a ^ (b ^ c) needs no parens, (a ^ b) ^ c does.
			leftCtx, rightCtx = prec+1, prec
		}
		left := f.exprPrec(e.Left, leftCtx)
		right := f.exprPrec(e.Right, rightCtx)
		return wrap(left+" "+e.Op.String()+" "+right, prec, ctx)
	default:
		return fmt.Sprintf("/*?%T*/", expr)
	}
}

const (
	precUnary = 11
	precCall  = 12
)

func binaryPrec(op ast.BinaryOp) int {
	switch op {
	case ast.Or:
		return 1
	case ast.And:
		return 2
	case ast.Eq, ast.Ne:
		return 3
	case ast.Lt, ast.Le, ast.Gt, ast.Ge:
		return 4
	case ast.BitwiseOr:
		return 5
	case ast.BitwiseAnd:
		return 6
	case ast.LeftShift, ast.RightShift:
		return 7
	case ast.Add, ast.Subtract:
		return 8
	case ast.Multiply, ast.Divide, ast.Modulo:
		return 9
	case ast.Power:
		return 10
	default:
		return 0
	}
}

func wrap(s string, prec, ctx int) string {
	if prec < ctx {
		return "(" + s + ")"
	}
	return s
}

func (f *Formatter) writeIndent() {
	for i := 0; i < f.indent; i++ {
		f.b.WriteByte('\t')
	}
}
