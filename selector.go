package hxdrive

import (
	"strings"

	"golang.org/x/net/html"
)

// Selector matching for target resolution and OOB selection.
//
// Supports the subset of CSS the directive surface needs:
//   - tag: "article", "div"
//   - .class: ".content"
//   - #id: "#main-content"
//   - tag.class, tag#id
//   - tag[attr], tag[attr=val]
//   - descendant combinator: "form input"
//   - selector groups: "#a, .b"

type simpleSelector struct {
	tag     string
	id      string
	class   string
	attrKey string
	attrVal string
}

// parseSimpleSelector parses "tag.class", "#id", "tag[attr=val]", etc.
func parseSimpleSelector(sel string) simpleSelector {
	var s simpleSelector

	// Attribute selector: tag[attr] or tag[attr=val].
	if idx := strings.IndexByte(sel, '['); idx >= 0 {
		attrPart := strings.TrimRight(sel[idx+1:], "]")
		sel = sel[:idx]
		if eqIdx := strings.IndexByte(attrPart, '='); eqIdx >= 0 {
			s.attrKey = attrPart[:eqIdx]
			s.attrVal = strings.Trim(attrPart[eqIdx+1:], `"'`)
		} else {
			s.attrKey = attrPart
		}
	}

	if idx := strings.IndexByte(sel, '#'); idx >= 0 {
		s.id = sel[idx+1:]
		sel = sel[:idx]
	}

	if idx := strings.IndexByte(sel, '.'); idx >= 0 {
		s.class = sel[idx+1:]
		sel = sel[:idx]
	}

	s.tag = sel
	return s
}

func matchesSimple(n *html.Node, m simpleSelector) bool {
	if n.Type != html.ElementNode {
		return false
	}
	if m.tag != "" && m.tag != "*" && n.Data != m.tag {
		return false
	}
	if m.id != "" && attrValue(n, "id") != m.id {
		return false
	}
	if m.class != "" && !hasClass(n, m.class) {
		return false
	}
	if m.attrKey != "" {
		val, ok := lookupAttr(n, m.attrKey)
		if !ok {
			return false
		}
		if m.attrVal != "" && val != m.attrVal {
			return false
		}
	}
	return true
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attrValue(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

// matchesSelector reports whether n matches any group of the selector,
// considering only the last simple selector of each descendant chain and
// verifying ancestors for the rest of the chain.
func matchesSelector(n *html.Node, selector string) bool {
	for _, group := range splitSelectorGroups(selector) {
		parts := strings.Fields(group)
		if len(parts) == 0 {
			continue
		}
		if !matchesSimple(n, parseSimpleSelector(parts[len(parts)-1])) {
			continue
		}
		if matchesAncestry(n, parts[:len(parts)-1]) {
			return true
		}
	}
	return false
}

// matchesAncestry checks that the remaining chain parts each match some
// strictly-closer ancestor, outermost first.
func matchesAncestry(n *html.Node, parts []string) bool {
	anc := n.Parent
	for i := len(parts) - 1; i >= 0; i-- {
		m := parseSimpleSelector(parts[i])
		for anc != nil && !matchesSimple(anc, m) {
			anc = anc.Parent
		}
		if anc == nil {
			return false
		}
		anc = anc.Parent
	}
	return true
}

// querySelectorAll returns all nodes under root matching the selector,
// in document order.
func querySelectorAll(root *html.Node, selector string) []*html.Node {
	if root == nil {
		return nil
	}
	var results []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && matchesSelector(n, selector) {
			results = append(results, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return results
}

// querySelector returns the first node under root matching the selector.
func querySelector(root *html.Node, selector string) *html.Node {
	if all := querySelectorAll(root, selector); len(all) > 0 {
		return all[0]
	}
	return nil
}

// splitSelectorGroups splits on commas outside brackets.
func splitSelectorGroups(selector string) []string {
	var groups []string
	depth := 0
	start := 0
	for i := 0; i < len(selector); i++ {
		switch selector[i] {
		case '[':
			depth++
		case ']':
			depth--
		case ',':
			if depth == 0 {
				if g := strings.TrimSpace(selector[start:i]); g != "" {
					groups = append(groups, g)
				}
				start = i + 1
			}
		}
	}
	if g := strings.TrimSpace(selector[start:]); g != "" {
		groups = append(groups, g)
	}
	return groups
}
