package xdm

import (
	"fmt"
	"strings"

	"xsltrace/internal/qname"
)

// NodeKind distinguishes tree node kinds.
type NodeKind uint8

const (
	DocumentNode NodeKind = iota + 1
	ElementNode
	AttributeNode
	TextNode
	CommentNode
	PINode
)

// String returns the XPath kind test name.
func (k NodeKind) String() string {
	switch k {
	case DocumentNode:
		return "document-node"
	case ElementNode:
		return "element"
	case AttributeNode:
		return "attribute"
	case TextNode:
		return "text"
	case CommentNode:
		return "comment"
	case PINode:
		return "processing-instruction"
	default:
		return "node"
	}
}

// Namespace is a namespace declaration carried by an element.
type Namespace struct {
	Prefix string
	URI    string
}

// Node is a tree node. Nodes are compared by identity.
type Node struct {
	Kind     NodeKind
	Name     qname.QName
	Value    string
	Attrs    []*Node
	Children []*Node
	Parent   *Node
	NS       []Namespace
	Line     int
}

// NewDocument returns an empty document node.
func NewDocument() *Node {
	return &Node{Kind: DocumentNode}
}

// NewElement returns a detached element.
func NewElement(name qname.QName) *Node {
	return &Node{Kind: ElementNode, Name: name}
}

// NewText returns a detached text node.
func NewText(s string) *Node {
	return &Node{Kind: TextNode, Value: s}
}

// AppendChild attaches c as the last child of n.
func (n *Node) AppendChild(c *Node) {
	c.Parent = n
	n.Children = append(n.Children, c)
}

// SetAttr adds or replaces an attribute.
func (n *Node) SetAttr(name qname.QName, value string) {
	for _, a := range n.Attrs {
		if a.Name.Equal(name) {
			a.Value = value
			return
		}
	}
	n.Attrs = append(n.Attrs, &Node{Kind: AttributeNode, Name: name, Value: value, Parent: n})
}

// Attr returns the value of the no-namespace attribute local.
func (n *Node) Attr(local string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name.URI == "" && a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

// Elements returns the element children of n.
func (n *Node) Elements() []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Root returns the topmost ancestor of n.
func (n *Node) Root() *Node {
	for n.Parent != nil {
		n = n.Parent
	}
	return n
}

// LookupNamespace resolves prefix against the declarations in scope at n.
func (n *Node) LookupNamespace(prefix string) (string, bool) {
	if prefix == "xml" {
		return "http://www.w3.org/XML/1998/namespace", true
	}
	for cur := n; cur != nil; cur = cur.Parent {
		for i := len(cur.NS) - 1; i >= 0; i-- {
			if cur.NS[i].Prefix == prefix {
				return cur.NS[i].URI, true
			}
		}
	}
	if prefix == "" {
		return "", true
	}
	return "", false
}

// StringValue returns the concatenated text content for documents and
// elements and the node value otherwise.
func (n *Node) StringValue() (string, error) {
	switch n.Kind {
	case DocumentNode, ElementNode:
		var sb strings.Builder
		n.collectText(&sb)
		return sb.String(), nil
	default:
		return n.Value, nil
	}
}

func (n *Node) collectText(sb *strings.Builder) {
	for _, c := range n.Children {
		switch c.Kind {
		case TextNode:
			sb.WriteString(c.Value)
		case ElementNode:
			c.collectText(sb)
		}
	}
}

func (n *Node) String() string {
	switch n.Kind {
	case ElementNode, AttributeNode:
		return fmt.Sprintf("%s(%s)", n.Kind, n.Name.DisplayName())
	case TextNode, CommentNode:
		return fmt.Sprintf("%s(%q)", n.Kind, n.Value)
	default:
		return n.Kind.String() + "()"
	}
}
