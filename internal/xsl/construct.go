package xsl

import "xsltrace/internal/probe"

// Construct identifies the kind of a compiled instruction. The variable-like
// codes match the ones trace listeners expect from getConstructType.
type Construct int

const (
	ConstructVariable  Construct = probe.ConstructVariable
	ConstructParam     Construct = probe.ConstructParam
	ConstructWithParam Construct = probe.ConstructWithParam

	ConstructTemplate Construct = iota + 10
	ConstructValueOf
	ConstructCopyOf
	ConstructText
	ConstructIf
	ConstructChoose
	ConstructWhen
	ConstructOtherwise
	ConstructForEach
	ConstructCallTemplate
	ConstructMessage
	ConstructElement
	ConstructLiteralText
)

var constructNames = map[Construct]string{
	ConstructVariable:     "xsl:variable",
	ConstructParam:        "xsl:param",
	ConstructWithParam:    "xsl:with-param",
	ConstructTemplate:     "xsl:template",
	ConstructValueOf:      "xsl:value-of",
	ConstructCopyOf:       "xsl:copy-of",
	ConstructText:         "xsl:text",
	ConstructIf:           "xsl:if",
	ConstructChoose:       "xsl:choose",
	ConstructWhen:         "xsl:when",
	ConstructOtherwise:    "xsl:otherwise",
	ConstructForEach:      "xsl:for-each",
	ConstructCallTemplate: "xsl:call-template",
	ConstructMessage:      "xsl:message",
	ConstructElement:      "literal-result-element",
	ConstructLiteralText:  "text",
}

func (c Construct) String() string {
	if s, ok := constructNames[c]; ok {
		return s
	}
	return "construct"
}

// IsVariable reports whether c binds a value to a name.
func (c Construct) IsVariable() bool {
	return c == ConstructVariable || c == ConstructParam || c == ConstructWithParam
}
