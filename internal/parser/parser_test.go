package parser

import (
	"errors"
	"testing"

	"aslang/internal/ast"
	"aslang/internal/diag"
)

func parseOne(t *testing.T, src string) ast.Stmt {
	t.Helper()
	prog, errs := New(src).Parse()
	if len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	if len(prog.Stmts) != 1 {
		t.Fatalf("got %d statements, want 1", len(prog.Stmts))
	}
	return prog.Stmts[0]
}

func parseExprStmt(t *testing.T, src string) ast.Expr {
	t.Helper()
	s := parseOne(t, src)
	stmt, ok := s.(*ast.ExprStmt)
	if !ok {
		t.Fatalf("not an expression statement: %T", s)
	}
	return stmt.Expr
}

func TestLetStatement(t *testing.T) {
	stmt, ok := parseOne(t, "let x: number = 42;").(*ast.LetStmt)
	if !ok {
		t.Fatalf("not a let statement")
	}
	if stmt.Name != "x" || stmt.TypeName != "number" {
		t.Errorf("got name=%q type=%q", stmt.Name, stmt.TypeName)
	}
	if n, ok := stmt.Init.(*ast.NumberLit); !ok || n.Value != 42 {
		t.Errorf("init: got %#v", stmt.Init)
	}
}

func TestPrecedenceMulBindsTighter(t *testing.T) {
	expr := parseExprStmt(t, "1 + 2 * 3")
	bin, ok := expr.(*ast.BinaryExpr)
	if !ok || bin.Op != ast.Add {
		t.Fatalf("top: got %#v", expr)
	}
	right, ok := bin.Right.(*ast.BinaryExpr)
	if !ok || right.Op != ast.Multiply {
		t.Fatalf("right: got %#v", bin.Right)
	}
}

func TestPowerIsRightAssociative(t *testing.T) {
	expr := parseExprStmt(t, "2 ^ 3 ^ 2")
	bin, ok := expr.(*ast.BinaryExpr)
	if !ok || bin.Op != ast.Power {
		t.Fatalf("top: got %#v", expr)
	}
	if left, ok := bin.Left.(*ast.NumberLit); !ok || left.Value != 2 {
		t.Errorf("left should stay a literal: got %#v", bin.Left)
	}
	if _, ok := bin.Right.(*ast.BinaryExpr); !ok {
		t.Errorf("right should be the nested power: got %#v", bin.Right)
	}
}

func TestComparisonBelowBitwise(t *testing.T) {
	// 1 < 2 | 4 parses as 1 < (2 | 4)
	expr := parseExprStmt(t, "1 < 2 | 4")
	bin, ok := expr.(*ast.BinaryExpr)
	if !ok || bin.Op != ast.Lt {
		t.Fatalf("top: got %#v", expr)
	}
	if right, ok := bin.Right.(*ast.BinaryExpr); !ok || right.Op != ast.BitwiseOr {
		t.Fatalf("right: got %#v", bin.Right)
	}
}

func TestUnaryAndParens(t *testing.T) {
	expr := parseExprStmt(t, "-(1 + 2)")
	un, ok := expr.(*ast.UnaryExpr)
	if !ok || un.Op != ast.Negate {
		t.Fatalf("got %#v", expr)
	}
	if inner, ok := un.Expr.(*ast.BinaryExpr); !ok || inner.Op != ast.Add {
		t.Fatalf("inner: got %#v", un.Expr)
	}
}

func TestCallAndIndexChain(t *testing.T) {
	expr := parseExprStmt(t, "f(1, 2)[0]")
	idx, ok := expr.(*ast.IndexExpr)
	if !ok {
		t.Fatalf("got %#v", expr)
	}
	call, ok := idx.Array.(*ast.CallExpr)
	if !ok || len(call.Args) != 2 {
		t.Fatalf("callee: got %#v", idx.Array)
	}
	if callee, ok := call.Callee.(*ast.IdentExpr); !ok || callee.Name != "f" {
		t.Errorf("callee name: got %#v", call.Callee)
	}
}

func TestIfElseifElse(t *testing.T) {
	stmt, ok := parseOne(t, "if a { output 1; } elseif b { output 2; } elseif c { output 3; } else { output 4; }").(*ast.IfStmt)
	if !ok {
		t.Fatalf("not an if statement")
	}
	if len(stmt.Elifs) != 2 {
		t.Errorf("got %d elseif branches, want 2", len(stmt.Elifs))
	}
	if stmt.Else == nil {
		t.Errorf("else branch missing")
	}
}

func TestForLoopClauses(t *testing.T) {
	stmt, ok := parseOne(t, "for (let i = 0; i < 10; i++) { output i; }").(*ast.ForStmt)
	if !ok {
		t.Fatalf("not a for statement")
	}
	if _, ok := stmt.Init.(*ast.LetStmt); !ok {
		t.Errorf("init: got %#v", stmt.Init)
	}
	if stmt.Cond == nil {
		t.Errorf("cond missing")
	}
	update, ok := stmt.Update.(*ast.AssignStmt)
	if !ok {
		t.Fatalf("update: got %#v", stmt.Update)
	}
	if update.Name != "i" {
		t.Errorf("update target: got %q", update.Name)
	}
}

func TestForLoopEmptyClauses(t *testing.T) {
	stmt, ok := parseOne(t, "for (;;) { break; }").(*ast.ForStmt)
	if !ok {
		t.Fatalf("not a for statement")
	}
	if stmt.Init != nil || stmt.Cond != nil || stmt.Update != nil {
		t.Errorf("clauses should all be nil: %#v", stmt)
	}
}

func TestAssignmentForms(t *testing.T) {
	if _, ok := parseOne(t, "x = 1;").(*ast.AssignStmt); !ok {
		t.Errorf("x = 1 should be an assignment")
	}
	if _, ok := parseOne(t, "a[0] = 1;").(*ast.IndexAssignStmt); !ok {
		t.Errorf("a[0] = 1 should be an index assignment")
	}
	stmt, ok := parseOne(t, "x++;").(*ast.AssignStmt)
	if !ok {
		t.Fatalf("x++ should desugar to an assignment")
	}
	if bin, ok := stmt.Value.(*ast.BinaryExpr); !ok || bin.Op != ast.Add {
		t.Errorf("x++ value: got %#v", stmt.Value)
	}
}

func TestAsyncFunction(t *testing.T) {
	stmt, ok := parseOne(t, "async fn work(a, b) { return a + b; }").(*ast.FuncStmt)
	if !ok {
		t.Fatalf("not a function statement")
	}
	if !stmt.IsAsync {
		t.Errorf("IsAsync not set")
	}
	if len(stmt.Params) != 2 {
		t.Errorf("got %d params, want 2", len(stmt.Params))
	}
}

func TestErrorRecoveryCollectsAll(t *testing.T) {
	src := "let = 1;\nlet y = 2;\nlet = 3;"
	prog, errs := New(src).Parse()
	if len(errs) < 2 {
		t.Fatalf("got %d errors, want at least 2: %v", len(errs), errs)
	}
	// The good statement in the middle survives recovery.
	found := false
	for _, stmt := range prog.Stmts {
		if let, ok := stmt.(*ast.LetStmt); ok && let.Name == "y" {
			found = true
		}
	}
	if !found {
		t.Errorf("let y = 2 was lost during recovery")
	}
}

func TestErrorsAreOrdered(t *testing.T) {
	src := "let = 1;\nlet x 2;"
	_, errs := New(src).Parse()
	if len(errs) < 2 {
		t.Fatalf("got %v", errs)
	}
	var lines []int
	for _, err := range errs {
		var derr *diag.Error
		if errors.As(err, &derr) {
			lines = append(lines, derr.Pos.Line)
		}
	}
	if len(lines) < 2 || lines[0] > lines[1] {
		t.Errorf("errors out of source order: %v", lines)
	}
}
