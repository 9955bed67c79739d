package hxdrive

import (
	"strings"
	"testing"
)

func TestProcessBodyPrimaryOnly(t *testing.T) {
	primary, oobs, err := processBody(`<li>one</li><li>two</li>`, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(oobs) != 0 {
		t.Fatalf("unexpected OOB fragments: %d", len(oobs))
	}
	if len(primary.Nodes) != 2 {
		t.Errorf("primary has %d nodes, want 2", len(primary.Nodes))
	}
}

func TestProcessBodyOOBMarkers(t *testing.T) {
	body := `<div id="main">content</div>
<div id="toast" hx-swap-oob="true">saved!</div>
<li id="item" hx-swap-oob="beforeend">extra</li>`

	primary, oobs, err := processBody(body, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(oobs) != 2 {
		t.Fatalf("got %d OOB fragments, want 2", len(oobs))
	}

	byID := map[string]ResponseFragment{}
	for _, f := range oobs {
		byID[f.OOBID] = f
	}
	if f := byID["toast"]; f.Mode != SwapOuter {
		t.Errorf("toast mode = %v, want outerHTML", f.Mode)
	}
	if f := byID["item"]; f.Mode != SwapBeforeEnd {
		t.Errorf("item mode = %v, want beforeend", f.Mode)
	}

	// The marker attribute must not survive into the swapped content.
	for id, f := range byID {
		if _, ok := lookupAttr(f.Nodes[0], OOBAttr); ok {
			t.Errorf("%s fragment still carries %s", id, OOBAttr)
		}
	}

	var primaryIDs []string
	for _, n := range primary.Nodes {
		if id := attrValue(n, "id"); id != "" {
			primaryIDs = append(primaryIDs, id)
		}
	}
	if len(primaryIDs) != 1 || primaryIDs[0] != "main" {
		t.Errorf("primary ids = %v, want [main]", primaryIDs)
	}
}

func TestProcessBodySelect(t *testing.T) {
	d := &DirectiveSet{Select: ".keep"}
	body := `<div><p class="keep">yes</p><p class="drop">no</p></div>`

	primary, _, err := processBody(body, d)
	if err != nil {
		t.Fatal(err)
	}
	if len(primary.Nodes) != 1 {
		t.Fatalf("got %d primary nodes, want 1", len(primary.Nodes))
	}
	if got := renderNode(primary.Nodes[0]); !strings.Contains(got, "yes") || strings.Contains(got, "no") {
		t.Errorf("hx-select kept the wrong content: %s", got)
	}
}

func TestProcessBodySelectOOB(t *testing.T) {
	d := &DirectiveSet{SelectOOB: "#sidebar, #badge:beforeend"}
	body := `<div id="content">main</div><div id="sidebar">side</div><span id="badge">3</span>`

	primary, oobs, err := processBody(body, d)
	if err != nil {
		t.Fatal(err)
	}
	if len(oobs) != 2 {
		t.Fatalf("got %d OOB fragments, want 2", len(oobs))
	}

	byID := map[string]SwapMode{}
	for _, f := range oobs {
		byID[f.OOBID] = f.Mode
	}
	if byID["sidebar"] != SwapOuter {
		t.Errorf("sidebar mode = %v, want outerHTML", byID["sidebar"])
	}
	if byID["badge"] != SwapBeforeEnd {
		t.Errorf("badge mode = %v, want beforeend", byID["badge"])
	}

	for _, n := range primary.Nodes {
		if id := attrValue(n, "id"); id == "sidebar" || id == "badge" {
			t.Errorf("#%s should have been extracted from the primary fragment", id)
		}
	}
}

func TestOOBMode(t *testing.T) {
	tests := []struct {
		marker string
		want   SwapMode
	}{
		{"true", SwapOuter},
		{"", SwapOuter},
		{"beforeend", SwapBeforeEnd},
		{"innerHTML", SwapInner},
		{"delete", SwapDelete},
		{"gibberish", SwapOuter},
	}
	for _, tt := range tests {
		if got := oobMode(tt.marker); got != tt.want {
			t.Errorf("oobMode(%q) = %v, want %v", tt.marker, got, tt.want)
		}
	}
}
