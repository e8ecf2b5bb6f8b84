package lexer

import "fmt"

type TokenKind int

const (
	TokenEOF TokenKind = iota
	TokenIdent
	TokenNumber
	TokenString
	TokenLet
	TokenFn
	TokenAsync
	TokenIf
	TokenElseIf
	TokenElse
	TokenWhile
	TokenFor
	TokenBreak
	TokenContinue
	TokenReturn
	TokenOutput
	TokenInput
	TokenTrue
	TokenFalse
	TokenLParen
	TokenRParen
	TokenLBrace
	TokenRBrace
	TokenLBracket
	TokenRBracket
	TokenComma
	TokenSemicolon
	TokenColon
	TokenPlus
	TokenMinus
	TokenStar
	TokenSlash
	TokenPercent
	TokenCaret
	TokenEq
	TokenEqEq
	TokenNotEq
	TokenLT
	TokenLTE
	TokenGT
	TokenGTE
	TokenAndAnd
	TokenOrOr
	TokenNot
	TokenAmp
	TokenPipe
	TokenShl
	TokenShr
	TokenTilde
	TokenInc
	TokenDec
	// TokenInvalid carries an unrecognized character; the lexer keeps going
	// and lets the parser decide whether to recover.
	TokenInvalid
	// TokenUnterminated carries the partial text of a string literal that
	// reached end of input before its closing quote.
	TokenUnterminated
)

type Position struct {
	Line int
	Col  int
}

type Token struct {
	Kind TokenKind
	Text string
	Pos  Position
}

func (k TokenKind) String() string {
	switch k {
	case TokenEOF:
		return "eof"
	case TokenIdent:
		return "ident"
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	case TokenLet:
		return "let"
	case TokenFn:
		return "fn"
	case TokenAsync:
		return "async"
	case TokenIf:
		return "if"
	case TokenElseIf:
		return "elseif"
	case TokenElse:
		return "else"
	case TokenWhile:
		return "while"
	case TokenFor:
		return "for"
	case TokenBreak:
		return "break"
	case TokenContinue:
		return "continue"
	case TokenReturn:
		return "return"
	case TokenOutput:
		return "output"
	case TokenInput:
		return "input"
	case TokenTrue:
		return "true"
	case TokenFalse:
		return "false"
	case TokenLParen:
		return "("
	case TokenRParen:
		return ")"
	case TokenLBrace:
		return "{"
	case TokenRBrace:
		return "}"
	case TokenLBracket:
		return "["
	case TokenRBracket:
		return "]"
	case TokenComma:
		return ","
	case TokenSemicolon:
		return ";"
	case TokenColon:
		return ":"
	case TokenPlus:
		return "+"
	case TokenMinus:
		return "-"
	case TokenStar:
		return "*"
	case TokenSlash:
		return "/"
	case TokenPercent:
		return "%"
	case TokenCaret:
		return "^"
	case TokenEq:
		return "="
	case TokenEqEq:
		return "=="
	case TokenNotEq:
		return "!="
	case TokenLT:
		return "<"
	case TokenLTE:
		return "<="
	case TokenGT:
		return ">"
	case TokenGTE:
		return ">="
	case TokenAndAnd:
		return "&&"
	case TokenOrOr:
		return "||"
	case TokenNot:
		return "!"
	case TokenAmp:
		return "&"
	case TokenPipe:
		return "|"
	case TokenShl:
		return "<<"
	case TokenShr:
		return ">>"
	case TokenTilde:
		return "~"
	case TokenInc:
		return "++"
	case TokenDec:
		return "--"
	case TokenInvalid:
		return "invalid character"
	case TokenUnterminated:
		return "unterminated string"
	default:
		return fmt.Sprintf("token(%d)", int(k))
	}
}

var keywords = map[string]TokenKind{
	"let":      TokenLet,
	"fn":       TokenFn,
	"async":    TokenAsync,
	"if":       TokenIf,
	"elseif":   TokenElseIf,
	"else":     TokenElse,
	"while":    TokenWhile,
	"for":      TokenFor,
	"break":    TokenBreak,
	"continue": TokenContinue,
	"return":   TokenReturn,
	"output":   TokenOutput,
	"input":    TokenInput,
	"true":     TokenTrue,
	"false":    TokenFalse,
}
