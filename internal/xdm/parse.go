package xdm

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"xsltrace/internal/qname"
)

// ParseString parses an XML document held in s.
func ParseString(s string) (*Node, error) {
	return Parse(strings.NewReader(s))
}

// Parse reads a whole XML document into a tree. Prefixes are kept on element
// and attribute names so the tree serializes back with the original spelling.
func Parse(r io.Reader) (*Node, error) {
	dec := xml.NewDecoder(r)
	doc := NewDocument()
	cur := doc
	for {
		tok, err := dec.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse xml: %w", err)
		}
		line, _ := dec.InputPos()
		switch t := tok.(type) {
		case xml.StartElement:
			el := &Node{Kind: ElementNode, Line: line}
			for _, a := range t.Attr {
				switch {
				case a.Name.Space == "xmlns":
					el.NS = append(el.NS, Namespace{Prefix: a.Name.Local, URI: a.Value})
				case a.Name.Space == "" && a.Name.Local == "xmlns":
					el.NS = append(el.NS, Namespace{URI: a.Value})
				}
			}
			cur.AppendChild(el)
			name, err := resolveName(el, t.Name, true)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			el.Name = name
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns") {
					continue
				}
				an, err := resolveName(el, a.Name, false)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", line, err)
				}
				el.Attrs = append(el.Attrs, &Node{Kind: AttributeNode, Name: an, Value: a.Value, Parent: el})
			}
			cur = el
		case xml.EndElement:
			if cur.Parent == nil {
				return nil, fmt.Errorf("line %d: unexpected end element %s", line, t.Name.Local)
			}
			cur = cur.Parent
		case xml.CharData:
			if cur == doc {
				continue
			}
			if n := len(cur.Children); n > 0 && cur.Children[n-1].Kind == TextNode {
				cur.Children[n-1].Value += string(t)
				continue
			}
			cur.AppendChild(NewText(string(t)))
		case xml.Comment:
			cur.AppendChild(&Node{Kind: CommentNode, Value: string(t), Line: line})
		case xml.ProcInst:
			if t.Target == "xml" {
				continue
			}
			cur.AppendChild(&Node{Kind: PINode, Name: qname.Local(t.Target), Value: string(t.Inst), Line: line})
		}
	}
	if cur != doc {
		return nil, fmt.Errorf("parse xml: unclosed element %s", cur.Name.DisplayName())
	}
	if len(doc.Elements()) != 1 {
		return nil, errors.New("parse xml: document must have exactly one root element")
	}
	return doc, nil
}

func resolveName(scope *Node, n xml.Name, element bool) (qname.QName, error) {
	if n.Space == "" {
		if !element {
			return qname.Local(n.Local), nil
		}
		uri, _ := scope.LookupNamespace("")
		return qname.QName{URI: uri, Local: n.Local}, nil
	}
	uri, ok := scope.LookupNamespace(n.Space)
	if !ok {
		return qname.QName{}, fmt.Errorf("undeclared namespace prefix %q", n.Space)
	}
	return qname.QName{URI: uri, Local: n.Local, Prefix: n.Space}, nil
}
