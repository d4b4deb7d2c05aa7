package xpath

import "fmt"

// Kind represents the category of an expression token.
type Kind uint8

const (
	// Invalid indicates an erroneous token.
	Invalid Kind = iota
	// EOF marks the end of the expression.
	EOF

	Name      // prefix:local or local
	Var       // $name
	StringLit // 'text' or "text"
	NumberLit // 12, 1.5, .5

	LParen     // (
	RParen     // )
	Comma      // ,
	Slash      // /
	SlashSlash // //
	At         // @
	Dot        // .
	DotDot     // ..
	Star       // *
	Plus       // +
	Minus      // -
	Eq         // =
	BangEq     // !=
	Lt         // <
	LtEq       // <=
	Gt         // >
	GtEq       // >=
	Pipe       // |
)

var kindNames = [...]string{
	Invalid: "invalid", EOF: "end of expression",
	Name: "name", Var: "variable", StringLit: "string", NumberLit: "number",
	LParen: "(", RParen: ")", Comma: ",", Slash: "/", SlashSlash: "//",
	At: "@", Dot: ".", DotDot: "..", Star: "*", Plus: "+", Minus: "-",
	Eq: "=", BangEq: "!=", Lt: "<", LtEq: "<=", Gt: ">", GtEq: ">=", Pipe: "|",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", k)
}

// Token is a single expression token. Off is the byte offset of its start.
type Token struct {
	Kind Kind
	Off  int
	Text string
}

// IsOperatorName reports whether the token is one of the word operators,
// which are only operators when they follow an operand.
func (t Token) IsOperatorName() bool {
	if t.Kind != Name {
		return false
	}
	switch t.Text {
	case "and", "or", "div", "mod":
		return true
	}
	return false
}
