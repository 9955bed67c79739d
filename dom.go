package hxdrive

import (
	"bytes"
	"io"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ScrollState records where the viewport sits. Headless engines have no
// real viewport; the state is bookkeeping that swap show/scroll modifiers
// update and history snapshots preserve.
type ScrollState struct {
	TargetID string // element id scrolled to, "" for window
	Position string // "top" or "bottom"
}

// Document wraps a parsed HTML tree together with the browser-visible URL
// and viewport bookkeeping. All mutation goes through the engine's turn.
type Document struct {
	root    *html.Node
	url     string
	scroll  ScrollState
	focusID string
}

// ParseDocument parses a full HTML page.
func ParseDocument(r io.Reader, pageURL string) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	return &Document{root: root, url: pageURL}, nil
}

// ParseFragmentNodes parses markup as body content and returns the
// top-level nodes, detached from any parent.
func ParseFragmentNodes(markup string) ([]*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if n.Parent != nil {
			n.Parent.RemoveChild(n)
		}
	}
	return nodes, nil
}

// URL returns the current browser URL.
func (d *Document) URL() string { return d.url }

// Scroll returns the current viewport bookkeeping.
func (d *Document) Scroll() ScrollState { return d.scroll }

// FocusedID returns the id of the focused element, if any.
func (d *Document) FocusedID() string { return d.focusID }

// Root returns the document root node.
func (d *Document) Root() *html.Node { return d.root }

// Body returns the document body element.
func (d *Document) Body() *html.Node {
	return d.firstByAtom(atom.Body)
}

func (d *Document) firstByAtom(a atom.Atom) *html.Node {
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && n.DataAtom == a {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return found
}

// ByID returns the element with the given id, or nil.
func (d *Document) ByID(id string) *html.Node {
	if id == "" {
		return nil
	}
	var found *html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if found != nil {
			return
		}
		if n.Type == html.ElementNode && attrValue(n, "id") == id {
			found = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return found
}

// Query returns the first element matching the selector.
func (d *Document) Query(selector string) *html.Node {
	return querySelector(d.root, selector)
}

// QueryAll returns all elements matching the selector in document order.
func (d *Document) QueryAll(selector string) []*html.Node {
	return querySelectorAll(d.root, selector)
}

// Contains reports whether n is still attached to this document.
func (d *Document) Contains(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == d.root {
			return true
		}
	}
	return false
}

// Render serializes the whole document.
func (d *Document) Render() string {
	var buf bytes.Buffer
	_ = html.Render(&buf, d.root)
	return buf.String()
}

// renderNode serializes one node including its tag.
func renderNode(n *html.Node) string {
	var buf bytes.Buffer
	_ = html.Render(&buf, n)
	return buf.String()
}

// renderChildren serializes a node's contents without its own tag.
func renderChildren(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// resolveTarget resolves an hx-target expression relative to elt.
// Supported forms: "this", "closest <sel>", "find <sel>", "next",
// "next <sel>", "previous", "previous <sel>", or a plain CSS selector
// matched document-wide. Empty expressions fall back to elt itself.
func (d *Document) resolveTarget(elt *html.Node, expr string) *html.Node {
	expr = strings.TrimSpace(expr)
	if expr == "" || expr == "this" {
		return elt
	}

	keyword, rest, _ := strings.Cut(expr, " ")
	rest = strings.TrimSpace(rest)

	switch keyword {
	case "closest":
		return closest(elt, rest)
	case "find":
		return querySelector(elt, rest)
	case "next":
		if rest == "" {
			return nextElement(elt)
		}
		return d.scanFrom(elt, rest, false)
	case "previous":
		if rest == "" {
			return prevElement(elt)
		}
		return d.scanFrom(elt, rest, true)
	}

	return querySelector(d.root, expr)
}

// closest walks up from n (inclusive) to the first ancestor matching sel.
func closest(n *html.Node, sel string) *html.Node {
	for ; n != nil; n = n.Parent {
		if n.Type == html.ElementNode && matchesSelector(n, sel) {
			return n
		}
	}
	return nil
}

func nextElement(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func prevElement(n *html.Node) *html.Node {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

// scanFrom finds the nearest selector match after (or before) elt in
// document order.
func (d *Document) scanFrom(elt *html.Node, sel string, backwards bool) *html.Node {
	var last, found *html.Node
	seen := false
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n == elt {
			seen = true
			if backwards {
				found = last
			}
		} else if n.Type == html.ElementNode && matchesSelector(n, sel) {
			if backwards && !seen {
				last = n
			}
			if !backwards && seen && found == nil {
				found = n
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(d.root)
	return found
}

// attrValue returns the value of an attribute, or "".
func attrValue(n *html.Node, key string) string {
	v, _ := lookupAttr(n, key)
	return v
}

func lookupAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// inheritedAttr looks up an attribute on n or its nearest ancestor.
// Directive attributes like hx-target and hx-swap inherit down the tree.
func inheritedAttr(n *html.Node, key string) (string, bool) {
	for ; n != nil; n = n.Parent {
		if n.Type != html.ElementNode {
			continue
		}
		if v, ok := lookupAttr(n, key); ok {
			return v, true
		}
	}
	return "", false
}

// elementText collects the concatenated text content of a node.
func elementText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(sb.String())
}

// inputValue reads the current value of a form control.
func inputValue(n *html.Node) string {
	switch n.DataAtom {
	case atom.Textarea:
		return elementText(n)
	case atom.Select:
		for _, opt := range querySelectorAll(n, "option[selected]") {
			return optionValue(opt)
		}
		if opt := querySelector(n, "option"); opt != nil {
			return optionValue(opt)
		}
		return ""
	default:
		return attrValue(n, "value")
	}
}

func optionValue(opt *html.Node) string {
	if v, ok := lookupAttr(opt, "value"); ok {
		return v
	}
	return elementText(opt)
}

// collectValues gathers name/value pairs from every form control under
// root (inclusive). Unchecked checkboxes and radios are skipped, as are
// disabled controls.
func collectValues(root *html.Node, vals url.Values) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Input, atom.Textarea, atom.Select:
				name := attrValue(n, "name")
				if name != "" && !hasAttrFlag(n, "disabled") {
					typ := attrValue(n, "type")
					val := inputValue(n)
					if typ == "checkbox" || typ == "radio" {
						if !hasAttrFlag(n, "checked") {
							break
						}
						if val == "" {
							val = "on"
						}
					}
					vals.Add(name, val)
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
}

func hasAttrFlag(n *html.Node, key string) bool {
	_, ok := lookupAttr(n, key)
	return ok
}
