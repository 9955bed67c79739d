package hxdrive

import (
	"strings"

	"golang.org/x/net/html"
)

// OOBAttr marks a response node as out-of-band. Values: "true" (outer
// swap into the id-matched node), an insertion keyword, "delete", or
// "none".
const OOBAttr = "hx-swap-oob"

// ResponseFragment is a unit of returned markup: the primary fragment
// (applied to the resolved target) or an out-of-band fragment (applied
// to an identity-matched node elsewhere on the page).
type ResponseFragment struct {
	Nodes []*html.Node
	OOB   bool
	OOBID string   // identity to match; empty OOB ids are dropped with a diagnostic
	Mode  SwapMode // OOB fragments carry their own swap mode
}

// processBody parses a response body into exactly one primary fragment
// (possibly empty) plus zero or more OOB fragments.
//
// OOB fragments are identified two ways: an hx-swap-oob marker on a
// top-level response node, or the triggering element's hx-select-oob
// list naming response sub-trees as OOB regardless of in-body markers.
// hx-select, when present, narrows the primary fragment to matching
// sub-trees.
func processBody(body string, d *DirectiveSet) (ResponseFragment, []ResponseFragment, error) {
	nodes, err := ParseFragmentNodes(body)
	if err != nil {
		return ResponseFragment{}, nil, err
	}

	var oobs []ResponseFragment

	// Pull hx-select-oob matches out first: an explicit selector list
	// wins over in-body markers.
	if d != nil && d.SelectOOB != "" {
		for _, entry := range strings.Split(d.SelectOOB, ",") {
			sel, modeStr, _ := strings.Cut(strings.TrimSpace(entry), ":")
			mode := SwapOuter
			if modeStr != "" {
				if m, ok := parseSwapMode(modeStr); ok {
					mode = m
				}
			}
			for _, root := range nodes {
				for _, n := range querySelectorAll(root, sel) {
					if n.Parent != nil {
						n.Parent.RemoveChild(n)
					}
					nodes = removeNode(nodes, n)
					oobs = append(oobs, ResponseFragment{
						Nodes: []*html.Node{n},
						OOB:   true,
						OOBID: attrValue(n, "id"),
						Mode:  mode,
					})
				}
			}
		}
	}

	// Then scan remaining top-level nodes for hx-swap-oob markers.
	var primary []*html.Node
	for _, n := range nodes {
		if n.Type != html.ElementNode {
			primary = append(primary, n)
			continue
		}
		marker, ok := lookupAttr(n, OOBAttr)
		if !ok {
			primary = append(primary, n)
			continue
		}
		removeAttr(n, OOBAttr)
		oobs = append(oobs, ResponseFragment{
			Nodes: []*html.Node{n},
			OOB:   true,
			OOBID: attrValue(n, "id"),
			Mode:  oobMode(marker),
		})
	}

	// hx-select narrows the primary fragment.
	if d != nil && d.Select != "" {
		var selected []*html.Node
		for _, root := range primary {
			for _, n := range querySelectorAll(root, d.Select) {
				if n.Parent != nil {
					n.Parent.RemoveChild(n)
				}
				selected = append(selected, n)
			}
		}
		primary = selected
	}

	return ResponseFragment{Nodes: primary}, oobs, nil
}

// oobMode maps an hx-swap-oob marker value to a swap mode.
// "true" means replace the matched node wholesale.
func oobMode(marker string) SwapMode {
	marker = strings.TrimSpace(marker)
	if marker == "" || marker == "true" {
		return SwapOuter
	}
	if m, ok := parseSwapMode(marker); ok {
		return m
	}
	return SwapOuter
}

func removeNode(nodes []*html.Node, target *html.Node) []*html.Node {
	for i, n := range nodes {
		if n == target {
			return append(nodes[:i:i], nodes[i+1:]...)
		}
	}
	return nodes
}
