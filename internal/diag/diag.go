package diag

import "fmt"

// Kind classifies a language error by the phase that produced it.
type Kind int

const (
	SyntaxError Kind = iota
	UnexpectedToken
	UnterminatedLiteral
	InvalidCharacter
	UnresolvedBreakOrContinue
	DuplicateFunction
	ArityMismatch
	UnknownOperator
	UndefinedVariable
	UndefinedFunction
	TypeMismatch
	DivisionByZero
	ArityMismatchAtCall
	StackUnderflow
	IndexOutOfRange
)

func (k Kind) String() string {
	switch k {
	case SyntaxError:
		return "syntax error"
	case UnexpectedToken:
		return "unexpected token"
	case UnterminatedLiteral:
		return "unterminated literal"
	case InvalidCharacter:
		return "invalid character"
	case UnresolvedBreakOrContinue:
		return "unresolved break or continue"
	case DuplicateFunction:
		return "duplicate function"
	case ArityMismatch:
		return "arity mismatch"
	case UnknownOperator:
		return "unknown operator"
	case UndefinedVariable:
		return "undefined variable"
	case UndefinedFunction:
		return "undefined function"
	case TypeMismatch:
		return "type mismatch"
	case DivisionByZero:
		return "division by zero"
	case ArityMismatchAtCall:
		return "arity mismatch at call"
	case StackUnderflow:
		return "stack underflow"
	case IndexOutOfRange:
		return "index out of range"
	default:
		return fmt.Sprintf("error(%d)", int(k))
	}
}

// Position is a 1-based line/column source location. A zero Position means
// the location is unknown.
type Position struct {
	Line int
	Col  int
}

// Error is a structured language error: kind, message and source position.
type Error struct {
	Kind Kind
	Msg  string
	Pos  Position
}

func (e *Error) Error() string {
	if e.Pos.Line > 0 {
		return fmt.Sprintf("%d:%d: %s: %s", e.Pos.Line, e.Pos.Col, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Errorf builds an Error with a formatted message.
func Errorf(kind Kind, pos Position, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Pos: pos}
}
