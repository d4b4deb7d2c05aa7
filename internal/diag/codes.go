package diag

import (
	"fmt"
	"strconv"
	"strings"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Stylesheet structure
	XslInfo               Code = 1000
	XslNotStylesheet      Code = 1001
	XslUnknownInstruction Code = 1002
	XslMissingAttribute   Code = 1003
	XslMisplaced          Code = 1004
	XslDuplicateGlobal    Code = 1005
	XslDuplicateTemplate  Code = 1006
	XslUnknownTemplate    Code = 1007
	XslNoInitialTemplate  Code = 1008
	XslIgnoredAttribute   Code = 1009
	XslShadowedVariable   Code = 1010
	XslUnusedWithParam    Code = 1011

	// Expressions
	ExprInfo            Code = 2000
	ExprSyntax          Code = 2001
	ExprUnknownFunction Code = 2002
	ExprUnknownVariable Code = 2003
	ExprBadTemplate     Code = 2004

	// Tracing
	TraceInfo              Code = 3000
	TraceInstrumentation   Code = 3001
	TraceListenerRecovered Code = 3002

	// Run time
	RunInfo           Code = 4000
	RunCircularGlobal Code = 4001
	RunMessage        Code = 4002
	RunTerminated     Code = 4003
	RunDynamic        Code = 4004
)

var codeDescription = map[Code]string{
	UnknownCode:            "Unknown error",
	XslInfo:                "Stylesheet information",
	XslNotStylesheet:       "Document is not a stylesheet",
	XslUnknownInstruction:  "Unknown instruction",
	XslMissingAttribute:    "Missing required attribute",
	XslMisplaced:           "Instruction not allowed here",
	XslDuplicateGlobal:     "Duplicate global variable",
	XslDuplicateTemplate:   "Duplicate named template",
	XslUnknownTemplate:     "Call to unknown template",
	XslNoInitialTemplate:   "No initial template",
	XslIgnoredAttribute:    "Attribute ignored",
	XslShadowedVariable:    "Variable shadows another variable",
	XslUnusedWithParam:     "Parameter not declared by the called template",
	ExprInfo:               "Expression information",
	ExprSyntax:             "Expression syntax error",
	ExprUnknownFunction:    "Unknown function",
	ExprUnknownVariable:    "Unknown variable",
	ExprBadTemplate:        "Malformed attribute value template",
	TraceInfo:              "Tracing information",
	TraceInstrumentation:   "Trace instrumentation failed",
	TraceListenerRecovered: "Trace listener failure ignored",
	RunInfo:                "Run information",
	RunCircularGlobal:      "Circular global variable",
	RunMessage:             "Message",
	RunTerminated:          "Terminated by xsl:message",
	RunDynamic:             "Dynamic error",
}

func (c Code) ID() string {
	ic := int(c)
	switch {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("XSL%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("EXP%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("TRC%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("RUN%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}

// ParseCode accepts an ID such as "XSL1010" or a bare number.
func ParseCode(s string) (Code, bool) {
	s = strings.ToUpper(strings.TrimSpace(s))
	for _, prefix := range []string{"XSL", "EXP", "TRC", "RUN"} {
		if rest, ok := strings.CutPrefix(s, prefix); ok {
			s = rest
			break
		}
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return UnknownCode, false
	}
	c := Code(n)
	if _, known := codeDescription[c]; !known {
		return UnknownCode, false
	}
	return c, true
}
