// Package dom is the document-tree boundary: a thin wrapper over an HTML
// node tree exposing exactly what the scan pass needs — class queries,
// attributes, inner text, and content replacement.
package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
)

// Document wraps a parsed HTML tree.
type Document struct {
	root *html.Node
}

// Parse reads and parses an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseString parses an HTML document from a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// ElementsByClass returns, in document order, every element carrying the
// given class token.
func (d *Document) ElementsByClass(class string) []*Element {
	var out []*Element
	index := 0
	walk(d.root, func(n *html.Node) {
		if hasClass(n, class) {
			out = append(out, &Element{node: n, index: index})
		}
		index++
	})
	return out
}

// Render serializes the document, including any replaced element content.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// HTML returns the serialized document as a string.
func (d *Document) HTML() (string, error) {
	var b strings.Builder
	if err := d.Render(&b); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Element is one candidate node in the tree.
type Element struct {
	node  *html.Node
	index int
}

// Attr returns the value of the named attribute, or "" if absent.
func (e *Element) Attr(name string) string {
	for _, a := range e.node.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// SetAttr sets or replaces the named attribute.
func (e *Element) SetAttr(name, value string) {
	for i, a := range e.node.Attr {
		if a.Key == name {
			e.node.Attr[i].Val = value
			return
		}
	}
	e.node.Attr = append(e.node.Attr, html.Attribute{Key: name, Val: value})
}

// Attrs returns a copy of all attributes on the element.
func (e *Element) Attrs() map[string]string {
	out := make(map[string]string, len(e.node.Attr))
	for _, a := range e.node.Attr {
		out[a.Key] = a.Val
	}
	return out
}

// Text returns the concatenated text content of the element's subtree.
// Line-break elements are preserved as markup so downstream normalization
// can canonicalize them.
func (e *Element) Text() string {
	var b strings.Builder
	var collect func(n *html.Node)
	collect = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			b.WriteString("<br/>")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		collect(c)
	}
	return b.String()
}

// SetContent replaces the element's children with the parsed fragment.
func (e *Element) SetContent(raw string) error {
	nodes, err := html.ParseFragment(strings.NewReader(raw), e.node)
	if err != nil {
		return fmt.Errorf("parse content fragment: %w", err)
	}
	for c := e.node.FirstChild; c != nil; {
		next := c.NextSibling
		e.node.RemoveChild(c)
		c = next
	}
	for _, n := range nodes {
		e.node.AppendChild(n)
	}
	return nil
}

// Content returns the element's serialized inner HTML.
func (e *Element) Content() (string, error) {
	var b strings.Builder
	for c := e.node.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&b, c); err != nil {
			return "", err
		}
	}
	return b.String(), nil
}

// ID returns a stable identity for logging: the id attribute when present,
// otherwise tag and document position.
func (e *Element) ID() string {
	if id := e.Attr("id"); id != "" {
		return id
	}
	return fmt.Sprintf("%s#%d", e.node.Data, e.index)
}

// Tag returns the element's tag name.
func (e *Element) Tag() string {
	return e.node.Data
}

func walk(n *html.Node, visit func(*html.Node)) {
	if n.Type == html.ElementNode {
		visit(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func hasClass(n *html.Node, class string) bool {
	for _, a := range n.Attr {
		if a.Key != "class" {
			continue
		}
		for _, token := range strings.Fields(a.Val) {
			if token == class {
				return true
			}
		}
	}
	return false
}
