package hxdrive

import (
	"strings"
	"testing"
)

const selectorFixture = `<!doctype html>
<html><body>
  <div id="main" class="content wide">
    <form id="f" data-kind="search">
      <input name="q" type="search">
      <button class="btn primary">go</button>
    </form>
    <ul id="results">
      <li class="row">one</li>
      <li class="row alt">two</li>
    </ul>
  </div>
  <div class="content"><span>aside</span></div>
</body></html>`

func TestQuerySelectorAll(t *testing.T) {
	doc := mustDoc(t, selectorFixture)

	tests := []struct {
		selector string
		want     int
	}{
		{"div", 2},
		{"#main", 1},
		{".content", 2},
		{".row", 2},
		{".alt", 1},
		{"div.content", 2},
		{"li.row", 2},
		{"#main .content", 0},
		{"form input", 1},
		{"form button", 1},
		{"#main li", 2},
		{"form[data-kind]", 1},
		{"form[data-kind=search]", 1},
		{"form[data-kind=browse]", 0},
		{"input[type=search]", 1},
		{"#results, form", 2},
		{".btn.primary", 0}, // compound classes are not supported; single class only
		{"span", 1},
		{"#missing", 0},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			got := len(querySelectorAll(doc.Root(), tt.selector))
			if got != tt.want {
				t.Errorf("querySelectorAll(%q) = %d matches, want %d", tt.selector, got, tt.want)
			}
		})
	}
}

func TestQuerySelectorDocumentOrder(t *testing.T) {
	doc := mustDoc(t, selectorFixture)

	first := querySelector(doc.Root(), ".row")
	if first == nil {
		t.Fatal("no match for .row")
	}
	if got := elementText(first); got != "one" {
		t.Errorf("first .row text = %q, want %q", got, "one")
	}
}

func TestMatchesSelectorDescendantChain(t *testing.T) {
	doc := mustDoc(t, selectorFixture)
	btn := querySelector(doc.Root(), "button")
	if btn == nil {
		t.Fatal("no button")
	}

	tests := []struct {
		selector string
		want     bool
	}{
		{"button", true},
		{"form button", true},
		{"#main form button", true},
		{"#results button", false},
		{"div form button", true},
		{"ul button", false},
	}
	for _, tt := range tests {
		if got := matchesSelector(btn, tt.selector); got != tt.want {
			t.Errorf("matchesSelector(button, %q) = %v, want %v", tt.selector, got, tt.want)
		}
	}
}

func TestSplitSelectorGroups(t *testing.T) {
	got := splitSelectorGroups(`#a, input[name="x,y"], .b`)
	want := []string{"#a", `input[name="x,y"]`, ".b"}
	if len(got) != len(want) {
		t.Fatalf("got %d groups %v, want %d", len(got), got, len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("group %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func mustDoc(t *testing.T, markup string) *Document {
	t.Helper()
	doc, err := ParseDocument(strings.NewReader(markup), "http://example.test/")
	if err != nil {
		t.Fatalf("parse document: %v", err)
	}
	return doc
}
