package xpath

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Lexer splits an expression into tokens.
type Lexer struct {
	src string
	off int
}

// NewLexer returns a lexer over src.
func NewLexer(src string) *Lexer {
	return &Lexer{src: src}
}

// Tokens scans the whole expression. The last token is always EOF.
func Tokens(src string) ([]Token, error) {
	lx := NewLexer(src)
	var out []Token
	for {
		tok, err := lx.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
		if tok.Kind == EOF {
			return out, nil
		}
	}
}

// Next returns the next token. After EOF it keeps returning EOF.
func (lx *Lexer) Next() (Token, error) {
	lx.skipSpace()
	if lx.off >= len(lx.src) {
		return Token{Kind: EOF, Off: lx.off}, nil
	}
	start := lx.off
	ch := lx.src[lx.off]
	switch {
	case ch == '$':
		lx.off++
		name := lx.scanName()
		if name == "" {
			return Token{}, lx.errorf(start, "expected variable name after '$'")
		}
		return Token{Kind: Var, Off: start, Text: name}, nil
	case ch == '\'' || ch == '"':
		return lx.scanString()
	case isDigit(ch), ch == '.' && lx.digitAt(lx.off+1):
		return lx.scanNumber(), nil
	case isNameStart(lx.peekRune()):
		return Token{Kind: Name, Off: start, Text: lx.scanName()}, nil
	}
	return lx.scanOperator()
}

func (lx *Lexer) skipSpace() {
	for lx.off < len(lx.src) {
		switch lx.src[lx.off] {
		case ' ', '\t', '\n', '\r':
			lx.off++
		default:
			return
		}
	}
}

func (lx *Lexer) peekRune() rune {
	r, _ := utf8.DecodeRuneInString(lx.src[lx.off:])
	return r
}

func (lx *Lexer) digitAt(i int) bool {
	return i < len(lx.src) && isDigit(lx.src[i])
}

// scanName reads an NCName, optionally followed by ':' and a second NCName.
// A '::' axis separator is left alone.
func (lx *Lexer) scanName() string {
	start := lx.off
	if !lx.scanNCName() {
		return ""
	}
	if lx.off+1 < len(lx.src) && lx.src[lx.off] == ':' && lx.src[lx.off+1] != ':' {
		save := lx.off
		lx.off++
		if !lx.scanNCName() {
			lx.off = save
		}
	}
	return lx.src[start:lx.off]
}

func (lx *Lexer) scanNCName() bool {
	r, n := utf8.DecodeRuneInString(lx.src[lx.off:])
	if !isNameStart(r) {
		return false
	}
	lx.off += n
	for lx.off < len(lx.src) {
		r, n = utf8.DecodeRuneInString(lx.src[lx.off:])
		if !isNameChar(r) {
			break
		}
		lx.off += n
	}
	return true
}

func (lx *Lexer) scanString() (Token, error) {
	start := lx.off
	quote := lx.src[lx.off]
	lx.off++
	var sb strings.Builder
	for lx.off < len(lx.src) {
		ch := lx.src[lx.off]
		lx.off++
		if ch != quote {
			sb.WriteByte(ch)
			continue
		}
		// a doubled quote stands for itself
		if lx.off < len(lx.src) && lx.src[lx.off] == quote {
			sb.WriteByte(quote)
			lx.off++
			continue
		}
		return Token{Kind: StringLit, Off: start, Text: sb.String()}, nil
	}
	return Token{}, lx.errorf(start, "unterminated string literal")
}

func (lx *Lexer) scanNumber() Token {
	start := lx.off
	for lx.off < len(lx.src) && isDigit(lx.src[lx.off]) {
		lx.off++
	}
	if lx.off < len(lx.src) && lx.src[lx.off] == '.' && !(lx.off+1 < len(lx.src) && lx.src[lx.off+1] == '.') {
		lx.off++
		for lx.off < len(lx.src) && isDigit(lx.src[lx.off]) {
			lx.off++
		}
	}
	return Token{Kind: NumberLit, Off: start, Text: lx.src[start:lx.off]}
}

func (lx *Lexer) scanOperator() (Token, error) {
	start := lx.off
	two := ""
	if lx.off+1 < len(lx.src) {
		two = lx.src[lx.off : lx.off+2]
	}
	var kind Kind
	switch two {
	case "//":
		kind = SlashSlash
	case "..":
		kind = DotDot
	case "!=":
		kind = BangEq
	case "<=":
		kind = LtEq
	case ">=":
		kind = GtEq
	}
	if kind != Invalid {
		lx.off += 2
		return Token{Kind: kind, Off: start, Text: two}, nil
	}
	switch lx.src[lx.off] {
	case '(':
		kind = LParen
	case ')':
		kind = RParen
	case ',':
		kind = Comma
	case '/':
		kind = Slash
	case '@':
		kind = At
	case '.':
		kind = Dot
	case '*':
		kind = Star
	case '+':
		kind = Plus
	case '-':
		kind = Minus
	case '=':
		kind = Eq
	case '<':
		kind = Lt
	case '>':
		kind = Gt
	case '|':
		kind = Pipe
	default:
		return Token{}, lx.errorf(start, "unexpected character %q", lx.peekRune())
	}
	lx.off++
	return Token{Kind: kind, Off: start, Text: lx.src[start:lx.off]}, nil
}

func (lx *Lexer) errorf(off int, format string, args ...any) error {
	return &SyntaxError{Expr: lx.src, Off: off, Msg: fmt.Sprintf(format, args...)}
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

func isNameStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isNameChar(r rune) bool {
	return isNameStart(r) || r == '-' || r == '.' || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r)
}
