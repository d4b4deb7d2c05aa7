package xdm

import (
	"io"
	"sort"
	"strings"
)

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;", "\n", "&#xA;", "\t", "&#x9;")
)

// Markup serializes n to XML text without a declaration.
func Markup(n *Node) string {
	var sb strings.Builder
	_ = Serialize(&sb, n)
	return sb.String()
}

// Serialize writes n as XML markup. Namespace bindings needed by the subtree
// root but declared on its ancestors are re-declared on the root.
func Serialize(w io.Writer, n *Node) error {
	s := serializer{w: w}
	s.node(n, true)
	return s.err
}

type serializer struct {
	w   io.Writer
	err error
}

func (s *serializer) write(str string) {
	if s.err != nil {
		return
	}
	_, s.err = io.WriteString(s.w, str)
}

func (s *serializer) escape(str string) {
	s.write(textEscaper.Replace(str))
}

func (s *serializer) escapeAttr(str string) {
	s.write(attrEscaper.Replace(str))
}

func (s *serializer) node(n *Node, root bool) {
	switch n.Kind {
	case DocumentNode:
		for _, c := range n.Children {
			s.node(c, true)
		}
	case ElementNode:
		s.element(n, root)
	case AttributeNode:
		s.write(n.Name.DisplayName())
		s.write(`="`)
		s.escapeAttr(n.Value)
		s.write(`"`)
	case TextNode:
		s.escape(n.Value)
	case CommentNode:
		s.write("<!--")
		s.write(n.Value)
		s.write("-->")
	case PINode:
		s.write("<?")
		s.write(n.Name.Local)
		if n.Value != "" {
			s.write(" ")
			s.write(n.Value)
		}
		s.write("?>")
	}
}

func (s *serializer) element(n *Node, root bool) {
	name := n.Name.DisplayName()
	s.write("<")
	s.write(name)
	decls := n.NS
	if root {
		decls = rootDeclarations(n)
	}
	for _, ns := range decls {
		if ns.Prefix == "" {
			s.write(` xmlns="`)
		} else {
			s.write(" xmlns:")
			s.write(ns.Prefix)
			s.write(`="`)
		}
		s.escapeAttr(ns.URI)
		s.write(`"`)
	}
	for _, a := range n.Attrs {
		s.write(" ")
		s.node(a, false)
	}
	if len(n.Children) == 0 {
		s.write("/>")
		return
	}
	s.write(">")
	for _, c := range n.Children {
		s.node(c, false)
	}
	s.write("</")
	s.write(name)
	s.write(">")
}

func rootDeclarations(n *Node) []Namespace {
	decls := append([]Namespace(nil), n.NS...)
	declared := make(map[string]bool, len(decls))
	for _, ns := range decls {
		declared[ns.Prefix] = true
	}
	if n.Parent == nil {
		return decls
	}
	needed := map[string]bool{n.Name.Prefix: n.Name.URI != "" || n.Name.Prefix != ""}
	for _, a := range n.Attrs {
		if a.Name.Prefix != "" && a.Name.Prefix != "xml" {
			needed[a.Name.Prefix] = true
		}
	}
	var extra []Namespace
	for prefix, need := range needed {
		if !need || declared[prefix] {
			continue
		}
		if uri, ok := n.Parent.LookupNamespace(prefix); ok {
			extra = append(extra, Namespace{Prefix: prefix, URI: uri})
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i].Prefix < extra[j].Prefix })
	return append(decls, extra...)
}
