package ast

type Position struct {
	Line int
	Col  int
}

type Span struct {
	Start Position
	End   Position
}

// Program is an ordered sequence of top-level statements, the unit the
// compiler consumes.
type Program struct {
	Stmts []Stmt
}

type BinaryOp int

const (
	Add BinaryOp = iota
	Subtract
	Multiply
	Divide
	Modulo
	Power
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	And
	Or
	BitwiseAnd
	BitwiseOr
	LeftShift
	RightShift
)

func (op BinaryOp) String() string {
	switch op {
	case Add:
		return "+"
	case Subtract:
		return "-"
	case Multiply:
		return "*"
	case Divide:
		return "/"
	case Modulo:
		return "%"
	case Power:
		return "^"
	case Eq:
		return "=="
	case Ne:
		return "!="
	case Lt:
		return "<"
	case Le:
		return "<="
	case Gt:
		return ">"
	case Ge:
		return ">="
	case And:
		return "&&"
	case Or:
		return "||"
	case BitwiseAnd:
		return "&"
	case BitwiseOr:
		return "|"
	case LeftShift:
		return "<<"
	case RightShift:
		return ">>"
	default:
		return "?"
	}
}

type UnaryOp int

const (
	Negate UnaryOp = iota
	BitwiseNot
	LogicalNot
)

func (op UnaryOp) String() string {
	switch op {
	case Negate:
		return "-"
	case BitwiseNot:
		return "~"
	case LogicalNot:
		return "!"
	default:
		return "?"
	}
}

type Expr interface {
	exprNode()
	GetSpan() Span
}

type NumberLit struct {
	Value float64
	Span  Span
}

func (*NumberLit) exprNode()       {}
func (e *NumberLit) GetSpan() Span { return e.Span }

type StringLit struct {
	Value string
	Span  Span
}

func (*StringLit) exprNode()       {}
func (e *StringLit) GetSpan() Span { return e.Span }

type BoolLit struct {
	Value bool
	Span  Span
}

func (*BoolLit) exprNode()       {}
func (e *BoolLit) GetSpan() Span { return e.Span }

type IdentExpr struct {
	Name string
	Span Span
}

func (*IdentExpr) exprNode()       {}
func (e *IdentExpr) GetSpan() Span { return e.Span }

type CallExpr struct {
	Callee Expr
	Args   []Expr
	Span   Span
}

func (*CallExpr) exprNode()       {}
func (e *CallExpr) GetSpan() Span { return e.Span }

type IndexExpr struct {
	Array Expr
	Index Expr
	Span  Span
}

func (*IndexExpr) exprNode()       {}
func (e *IndexExpr) GetSpan() Span { return e.Span }

type ArrayLit struct {
	Elems []Expr
	Span  Span
}

func (*ArrayLit) exprNode()       {}
func (e *ArrayLit) GetSpan() Span { return e.Span }

type BinaryExpr struct {
	Op    BinaryOp
	Left  Expr
	Right Expr
	Span  Span
}

func (*BinaryExpr) exprNode()       {}
func (e *BinaryExpr) GetSpan() Span { return e.Span }

type UnaryExpr struct {
	Op   UnaryOp
	Expr Expr
	Span Span
}

func (*UnaryExpr) exprNode()       {}
func (e *UnaryExpr) GetSpan() Span { return e.Span }

type Stmt interface {
	stmtNode()
	GetSpan() Span
}

// LetStmt binds the value of Init to Name. TypeName records an optional
// ": type" annotation; annotations are parsed but never verified.
type LetStmt struct {
	Name     string
	TypeName string
	Init     Expr
	Span     Span
}

func (*LetStmt) stmtNode()       {}
func (s *LetStmt) GetSpan() Span { return s.Span }

// AssignStmt updates an existing binding. Unlike LetStmt it never creates
// one; assigning to an unknown name is a runtime fault.
type AssignStmt struct {
	Name  string
	Value Expr
	Span  Span
}

func (*AssignStmt) stmtNode()       {}
func (s *AssignStmt) GetSpan() Span { return s.Span }

// IndexAssignStmt writes an element of an array in place.
type IndexAssignStmt struct {
	Array Expr
	Index Expr
	Value Expr
	Span  Span
}

func (*IndexAssignStmt) stmtNode()       {}
func (s *IndexAssignStmt) GetSpan() Span { return s.Span }

type OutputStmt struct {
	Expr Expr
	Span Span
}

func (*OutputStmt) stmtNode()       {}
func (s *OutputStmt) GetSpan() Span { return s.Span }

// InputStmt reads one line into Target, optionally printing Prompt first.
type InputStmt struct {
	Prompt Expr // nil when no prompt string is given
	Target string
	Span   Span
}

func (*InputStmt) stmtNode()       {}
func (s *InputStmt) GetSpan() Span { return s.Span }

// FuncStmt declares a named function. IsAsync is recorded from the "async"
// keyword but does not alter execution.
type FuncStmt struct {
	Name       string
	Params     []string
	ParamTypes []string
	Body       []Stmt
	IsAsync    bool
	Span       Span
}

func (*FuncStmt) stmtNode()       {}
func (s *FuncStmt) GetSpan() Span { return s.Span }

type ElseIf struct {
	Cond Expr
	Body []Stmt
}

type IfStmt struct {
	Cond  Expr
	Then  []Stmt
	Elifs []ElseIf
	Else  []Stmt // nil when absent
	Span  Span
}

func (*IfStmt) stmtNode()       {}
func (s *IfStmt) GetSpan() Span { return s.Span }

type WhileStmt struct {
	Cond Expr
	Body []Stmt
	Span Span
}

func (*WhileStmt) stmtNode()       {}
func (s *WhileStmt) GetSpan() Span { return s.Span }

type ForStmt struct {
	Init   Stmt // nil when omitted
	Cond   Expr // nil when omitted
	Update Stmt // nil when omitted
	Body   []Stmt
	Span   Span
}

func (*ForStmt) stmtNode()       {}
func (s *ForStmt) GetSpan() Span { return s.Span }

type BreakStmt struct {
	Span Span
}

func (*BreakStmt) stmtNode()       {}
func (s *BreakStmt) GetSpan() Span { return s.Span }

type ContinueStmt struct {
	Span Span
}

func (*ContinueStmt) stmtNode()       {}
func (s *ContinueStmt) GetSpan() Span { return s.Span }

type ReturnStmt struct {
	Value Expr // nil for bare return
	Span  Span
}

func (*ReturnStmt) stmtNode()       {}
func (s *ReturnStmt) GetSpan() Span { return s.Span }

type ExprStmt struct {
	Expr Expr
	Span Span
}

func (*ExprStmt) stmtNode()       {}
func (s *ExprStmt) GetSpan() Span { return s.Span }
