package xpath

import (
	"strconv"
	"strings"

	"xsltrace/internal/qname"
	"xsltrace/internal/xdm"
)

// FnNamespace is the namespace of the core function library. Unprefixed
// function names resolve to it.
const FnNamespace = "http://www.w3.org/2005/xpath-functions"

// Namespaces resolves a prefix used in an expression.
type Namespaces func(prefix string) (uri string, ok bool)

// Binding powers of binary operators. Higher binds tighter.
const (
	precOr             = 1 // or
	precAnd            = 2 // and
	precComparison     = 3 // = != < <= > >=
	precAdditive       = 4 // + -
	precMultiplicative = 5 // * div mod
	precUnion          = 6 // |
)

// Parser builds an expression tree with precedence climbing.
type Parser struct {
	src  string
	toks []Token
	pos  int
	ns   Namespaces
}

// Parse compiles src. ns may be nil when the expression uses no prefixes.
func Parse(src string, ns Namespaces) (Expr, error) {
	toks, err := Tokens(src)
	if err != nil {
		return nil, err
	}
	p := &Parser{src: src, toks: toks, ns: ns}
	if p.peek().Kind == EOF {
		return nil, p.errorf(p.peek(), "empty expression")
	}
	e, err := p.parseSequence()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Kind != EOF {
		return nil, p.errorf(tok, "unexpected %s", describe(tok))
	}
	return e, nil
}

func (p *Parser) peek() Token {
	return p.toks[p.pos]
}

func (p *Parser) peekAt(n int) Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) advance() Token {
	tok := p.toks[p.pos]
	if tok.Kind != EOF {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(k Kind) (Token, error) {
	tok := p.peek()
	if tok.Kind != k {
		return tok, p.errorf(tok, "expected %s, found %s", k, describe(tok))
	}
	return p.advance(), nil
}

// parseSequence parses a comma-separated list.
func (p *Parser) parseSequence() (Expr, error) {
	first, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if p.peek().Kind != Comma {
		return first, nil
	}
	items := []Expr{first}
	for p.peek().Kind == Comma {
		p.advance()
		next, err := p.parseBinary(0)
		if err != nil {
			return nil, err
		}
		items = append(items, next)
	}
	return &SequenceExpr{Items: items}, nil
}

// parseBinary implements precedence climbing over left-associative operators.
func (p *Parser) parseBinary(minPrec int) (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, prec := p.binaryOperator(p.peek())
		if op == 0 || prec < minPrec {
			return left, nil
		}
		p.advance()
		right, err := p.parseBinary(prec + 1)
		if err != nil {
			return nil, err
		}
		left = &Binary{Op: op, Left: left, Right: right}
	}
}

// binaryOperator returns the operator a token denotes in operator position.
func (p *Parser) binaryOperator(tok Token) (BinaryOp, int) {
	switch tok.Kind {
	case Eq:
		return OpEq, precComparison
	case BangEq:
		return OpNotEq, precComparison
	case Lt:
		return OpLt, precComparison
	case LtEq:
		return OpLtEq, precComparison
	case Gt:
		return OpGt, precComparison
	case GtEq:
		return OpGtEq, precComparison
	case Plus:
		return OpAdd, precAdditive
	case Minus:
		return OpSub, precAdditive
	case Star:
		return OpMul, precMultiplicative
	case Pipe:
		return OpUnion, precUnion
	case Name:
		switch tok.Text {
		case "or":
			return OpOr, precOr
		case "and":
			return OpAnd, precAnd
		case "div":
			return OpDiv, precMultiplicative
		case "mod":
			return OpMod, precMultiplicative
		}
	}
	return 0, 0
}

func (p *Parser) parseUnary() (Expr, error) {
	neg := false
	for {
		switch p.peek().Kind {
		case Minus:
			neg = !neg
			p.advance()
			continue
		case Plus:
			p.advance()
			continue
		}
		break
	}
	e, err := p.parsePath()
	if err != nil {
		return nil, err
	}
	if neg {
		return &Negate{Operand: e}, nil
	}
	return e, nil
}

// parsePath parses an absolute path, a relative path, or a primary
// expression optionally followed by further steps.
func (p *Parser) parsePath() (Expr, error) {
	tok := p.peek()
	switch tok.Kind {
	case Slash:
		p.advance()
		path := &Path{Absolute: true}
		if !p.startsStep() {
			return path, nil
		}
		return p.parseSteps(path)
	case SlashSlash:
		p.advance()
		path := &Path{Absolute: true, Steps: []Step{{Axis: AxisDescendantOrSelf, Test: TestNode}}}
		return p.parseSteps(path)
	}

	if p.startsPrimary() {
		prim, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		if k := p.peek().Kind; k != Slash && k != SlashSlash {
			return prim, nil
		}
		path := &Path{Base: prim}
		if err := p.parseMoreSteps(path); err != nil {
			return nil, err
		}
		return path, nil
	}
	if !p.startsStep() {
		return nil, p.errorf(tok, "expected expression, found %s", describe(tok))
	}
	return p.parseSteps(&Path{})
}

func (p *Parser) parseSteps(path *Path) (Expr, error) {
	step, err := p.parseStep()
	if err != nil {
		return nil, err
	}
	path.Steps = append(path.Steps, step)
	if err := p.parseMoreSteps(path); err != nil {
		return nil, err
	}
	return path, nil
}

func (p *Parser) parseMoreSteps(path *Path) error {
	for {
		switch p.peek().Kind {
		case Slash:
			p.advance()
		case SlashSlash:
			p.advance()
			path.Steps = append(path.Steps, Step{Axis: AxisDescendantOrSelf, Test: TestNode})
		default:
			return nil
		}
		step, err := p.parseStep()
		if err != nil {
			return err
		}
		path.Steps = append(path.Steps, step)
	}
}

func (p *Parser) startsStep() bool {
	switch tok := p.peek(); tok.Kind {
	case At, Star, Dot, DotDot:
		return true
	case Name:
		return !tok.IsOperatorName() || p.peekAt(1).Kind == Slash
	}
	return false
}

// startsPrimary reports whether the next tokens begin a primary expression
// rather than a location step. Function calls look like names followed by
// "(", except for the node kind tests.
func (p *Parser) startsPrimary() bool {
	tok := p.peek()
	switch tok.Kind {
	case Var, StringLit, NumberLit, LParen:
		return true
	case Name:
		return p.peekAt(1).Kind == LParen && !isKindTest(tok.Text)
	}
	return false
}

func isKindTest(name string) bool {
	return name == "text" || name == "node"
}

func (p *Parser) parseStep() (Step, error) {
	tok := p.advance()
	switch tok.Kind {
	case Dot:
		return Step{Axis: AxisSelf, Test: TestNode}, nil
	case DotDot:
		return Step{Axis: AxisParent, Test: TestNode}, nil
	case Star:
		return Step{Axis: AxisChild, Test: TestWildcard}, nil
	case At:
		next := p.advance()
		switch next.Kind {
		case Star:
			return Step{Axis: AxisAttribute, Test: TestWildcard}, nil
		case Name:
			// unprefixed attribute names are in no namespace
			q, err := p.resolveName(next, "")
			if err != nil {
				return Step{}, err
			}
			return Step{Axis: AxisAttribute, Test: TestName, Name: q}, nil
		}
		return Step{}, p.errorf(next, "expected attribute name after '@'")
	case Name:
		if isKindTest(tok.Text) && p.peek().Kind == LParen {
			p.advance()
			if _, err := p.expect(RParen); err != nil {
				return Step{}, err
			}
			if tok.Text == "text" {
				return Step{Axis: AxisChild, Test: TestText}, nil
			}
			return Step{Axis: AxisChild, Test: TestNode}, nil
		}
		q, err := p.resolveName(tok, "")
		if err != nil {
			return Step{}, err
		}
		return Step{Axis: AxisChild, Test: TestName, Name: q}, nil
	}
	return Step{}, p.errorf(tok, "expected location step, found %s", describe(tok))
}

func (p *Parser) parsePrimary() (Expr, error) {
	tok := p.advance()
	switch tok.Kind {
	case StringLit:
		return &Literal{Value: xdm.String(tok.Text)}, nil
	case NumberLit:
		return numberLiteral(p, tok)
	case Var:
		q, err := p.resolveName(tok, "")
		if err != nil {
			return nil, err
		}
		return &VarRef{Name: q}, nil
	case LParen:
		if p.peek().Kind == RParen {
			p.advance()
			return &SequenceExpr{}, nil
		}
		inner, err := p.parseSequence()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RParen); err != nil {
			return nil, err
		}
		return inner, nil
	case Name:
		return p.parseCall(tok)
	}
	return nil, p.errorf(tok, "expected expression, found %s", describe(tok))
}

func numberLiteral(p *Parser, tok Token) (Expr, error) {
	if !strings.Contains(tok.Text, ".") {
		if n, err := strconv.ParseInt(tok.Text, 10, 64); err == nil {
			return &Literal{Value: xdm.Integer(n)}, nil
		}
	}
	f, err := strconv.ParseFloat(tok.Text, 64)
	if err != nil {
		return nil, p.errorf(tok, "invalid number %q", tok.Text)
	}
	return &Literal{Value: xdm.Double(f)}, nil
}

func (p *Parser) parseCall(name Token) (Expr, error) {
	q, err := p.resolveName(name, FnNamespace)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(LParen); err != nil {
		return nil, err
	}
	call := &Call{Name: q}
	if p.peek().Kind == RParen {
		p.advance()
		return call, nil
	}
	for {
		arg, err := p.parseBinary(0)
		if err != nil {
			return nil, err
		}
		call.Args = append(call.Args, arg)
		tok := p.advance()
		switch tok.Kind {
		case Comma:
			continue
		case RParen:
			return call, nil
		}
		return nil, p.errorf(tok, "expected ',' or ')' in call to %s", name.Text)
	}
}

// resolveName binds the prefix of a lexical name. Unprefixed names get
// defaultURI.
func (p *Parser) resolveName(tok Token, defaultURI string) (qname.QName, error) {
	prefix, local, ok := strings.Cut(tok.Text, ":")
	if !ok {
		return qname.QName{URI: defaultURI, Local: tok.Text}, nil
	}
	if p.ns == nil {
		return qname.QName{}, p.errorf(tok, "undeclared prefix %q", prefix)
	}
	uri, found := p.ns(prefix)
	if !found {
		return qname.QName{}, p.errorf(tok, "undeclared prefix %q", prefix)
	}
	return qname.New(prefix, uri, local), nil
}

func (p *Parser) errorf(tok Token, format string, args ...any) error {
	lx := Lexer{src: p.src}
	return lx.errorf(tok.Off, format, args...)
}

func describe(tok Token) string {
	switch tok.Kind {
	case EOF:
		return "end of expression"
	case Name, NumberLit:
		return strconv.Quote(tok.Text)
	case StringLit:
		return "string literal"
	case Var:
		return "$" + tok.Text
	}
	return "'" + tok.Kind.String() + "'"
}
