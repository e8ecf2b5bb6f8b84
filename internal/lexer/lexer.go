package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

type Lexer struct {
	src    string
	pos    int
	line   int
	col    int
	peeked *Token
}

func New(src string) *Lexer {
	return &Lexer{src: src, line: 1, col: 1}
}

func (l *Lexer) Next() Token {
	if l.peeked != nil {
		tok := *l.peeked
		l.peeked = nil
		return tok
	}
	l.skipSpace()
	startPos := Position{Line: l.line, Col: l.col}
	if l.eof() {
		return Token{Kind: TokenEOF, Pos: startPos}
	}
	ch := l.peek()
	if isIdentStart(ch) {
		text := l.readIdent()
		if kind, ok := keywords[text]; ok {
			return Token{Kind: kind, Text: text, Pos: startPos}
		}
		return Token{Kind: TokenIdent, Text: text, Pos: startPos}
	}
	if isDigit(ch) {
		return Token{Kind: TokenNumber, Text: l.readNumber(), Pos: startPos}
	}
	switch ch {
	case '"':
		text, ok := l.readString()
		if !ok {
			return Token{Kind: TokenUnterminated, Text: text, Pos: startPos}
		}
		return Token{Kind: TokenString, Text: text, Pos: startPos}
	case '(':
		l.advance()
		return Token{Kind: TokenLParen, Text: "(", Pos: startPos}
	case ')':
		l.advance()
		return Token{Kind: TokenRParen, Text: ")", Pos: startPos}
	case '{':
		l.advance()
		return Token{Kind: TokenLBrace, Text: "{", Pos: startPos}
	case '}':
		l.advance()
		return Token{Kind: TokenRBrace, Text: "}", Pos: startPos}
	case '[':
		l.advance()
		return Token{Kind: TokenLBracket, Text: "[", Pos: startPos}
	case ']':
		l.advance()
		return Token{Kind: TokenRBracket, Text: "]", Pos: startPos}
	case ',':
		l.advance()
		return Token{Kind: TokenComma, Text: ",", Pos: startPos}
	case ';':
		l.advance()
		return Token{Kind: TokenSemicolon, Text: ";", Pos: startPos}
	case ':':
		l.advance()
		return Token{Kind: TokenColon, Text: ":", Pos: startPos}
	case '+':
		if l.match("++") {
			return Token{Kind: TokenInc, Text: "++", Pos: startPos}
		}
		l.advance()
		return Token{Kind: TokenPlus, Text: "+", Pos: startPos}
	case '-':
		if l.match("--") {
			return Token{Kind: TokenDec, Text: "--", Pos: startPos}
		}
		l.advance()
		return Token{Kind: TokenMinus, Text: "-", Pos: startPos}
	case '*':
		l.advance()
		return Token{Kind: TokenStar, Text: "*", Pos: startPos}
	case '/':
		l.advance()
		return Token{Kind: TokenSlash, Text: "/", Pos: startPos}
	case '%':
		l.advance()
		return Token{Kind: TokenPercent, Text: "%", Pos: startPos}
	case '^':
		l.advance()
		return Token{Kind: TokenCaret, Text: "^", Pos: startPos}
	case '~':
		l.advance()
		return Token{Kind: TokenTilde, Text: "~", Pos: startPos}
	case '=':
		if l.match("==") {
			return Token{Kind: TokenEqEq, Text: "==", Pos: startPos}
		}
		l.advance()
		return Token{Kind: TokenEq, Text: "=", Pos: startPos}
	case '!':
		if l.match("!=") {
			return Token{Kind: TokenNotEq, Text: "!=", Pos: startPos}
		}
		l.advance()
		return Token{Kind: TokenNot, Text: "!", Pos: startPos}
	case '<':
		if l.match("<=") {
			return Token{Kind: TokenLTE, Text: "<=", Pos: startPos}
		}
		if l.match("<<") {
			return Token{Kind: TokenShl, Text: "<<", Pos: startPos}
		}
		l.advance()
		return Token{Kind: TokenLT, Text: "<", Pos: startPos}
	case '>':
		if l.match(">=") {
			return Token{Kind: TokenGTE, Text: ">=", Pos: startPos}
		}
		if l.match(">>") {
			return Token{Kind: TokenShr, Text: ">>", Pos: startPos}
		}
		l.advance()
		return Token{Kind: TokenGT, Text: ">", Pos: startPos}
	case '&':
		if l.match("&&") {
			return Token{Kind: TokenAndAnd, Text: "&&", Pos: startPos}
		}
		l.advance()
		return Token{Kind: TokenAmp, Text: "&", Pos: startPos}
	case '|':
		if l.match("||") {
			return Token{Kind: TokenOrOr, Text: "||", Pos: startPos}
		}
		l.advance()
		return Token{Kind: TokenPipe, Text: "|", Pos: startPos}
	default:
		l.advance()
		return Token{Kind: TokenInvalid, Text: string(ch), Pos: startPos}
	}
}

func (l *Lexer) Peek() Token {
	if l.peeked == nil {
		tok := l.Next()
		l.peeked = &tok
	}
	return *l.peeked
}

func (l *Lexer) skipSpace() {
	for {
		if l.eof() {
			return
		}
		ch := l.peek()
		if ch == '/' && l.peekN(1) == '/' {
			for !l.eof() && l.peek() != '\n' {
				l.advance()
			}
			continue
		}
		if unicode.IsSpace(ch) {
			l.advance()
			continue
		}
		return
	}
}

func (l *Lexer) readIdent() string {
	start := l.pos
	for !l.eof() {
		if !isIdentPart(l.peek()) {
			break
		}
		l.advance()
	}
	return l.src[start:l.pos]
}

// readNumber accepts a run of digits with at most one decimal point.
func (l *Lexer) readNumber() string {
	start := l.pos
	hasDot := false
	for !l.eof() {
		ch := l.peek()
		if isDigit(ch) {
			l.advance()
			continue
		}
		if ch == '.' && !hasDot && isDigit(l.peekN(1)) {
			hasDot = true
			l.advance()
			continue
		}
		break
	}
	return l.src[start:l.pos]
}

func (l *Lexer) readString() (string, bool) {
	l.advance()
	var b strings.Builder
	for !l.eof() {
		ch := l.peek()
		if ch == '"' {
			l.advance()
			return b.String(), true
		}
		if ch == '\\' {
			l.advance()
			if l.eof() {
				break
			}
			esc := l.peek()
			l.advance()
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case '\\':
				b.WriteByte('\\')
			case '"':
				b.WriteByte('"')
			default:
				b.WriteRune(esc)
			}
			continue
		}
		b.WriteRune(ch)
		l.advance()
	}
	return b.String(), false
}

func (l *Lexer) match(s string) bool {
	if strings.HasPrefix(l.src[l.pos:], s) {
		for range s {
			l.advance()
		}
		return true
	}
	return false
}

func (l *Lexer) advance() {
	if l.eof() {
		return
	}
	_, size := utf8.DecodeRuneInString(l.src[l.pos:])
	ch := l.src[l.pos : l.pos+size]
	l.pos += size
	if ch == "\n" {
		l.line++
		l.col = 1
		return
	}
	l.col++
}

func (l *Lexer) peek() rune {
	if l.eof() {
		return 0
	}
	ch, _ := utf8.DecodeRuneInString(l.src[l.pos:])
	return ch
}

func (l *Lexer) peekN(n int) rune {
	idx := l.pos
	for i := 0; i < n; i++ {
		if idx >= len(l.src) {
			return 0
		}
		_, size := utf8.DecodeRuneInString(l.src[idx:])
		idx += size
	}
	if idx >= len(l.src) {
		return 0
	}
	ch, _ := utf8.DecodeRuneInString(l.src[idx:])
	return ch
}

func (l *Lexer) eof() bool {
	return l.pos >= len(l.src)
}

func isIdentStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentPart(ch rune) bool {
	return isIdentStart(ch) || unicode.IsDigit(ch)
}

func isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}
