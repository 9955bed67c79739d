package hxdrive

import (
	"errors"
	"net/http"
	"testing"
	"time"
)

func parseFor(t *testing.T, markup, selector string) (*DirectiveSet, error) {
	t.Helper()
	doc := mustDoc(t, markup)
	n := doc.Query(selector)
	if n == nil {
		t.Fatalf("no element matches %q", selector)
	}
	cfg := Config{}.defaults()
	return parseDirectives(n, &cfg)
}

func TestParseDirectivesVerbs(t *testing.T) {
	tests := []struct {
		name       string
		markup     string
		wantMethod string
	}{
		{"get", `<button id="x" hx-get="/a">x</button>`, http.MethodGet},
		{"post", `<button id="x" hx-post="/a">x</button>`, http.MethodPost},
		{"put", `<button id="x" hx-put="/a">x</button>`, http.MethodPut},
		{"patch", `<button id="x" hx-patch="/a">x</button>`, http.MethodPatch},
		{"delete", `<button id="x" hx-delete="/a">x</button>`, http.MethodDelete},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := parseFor(t, "<html><body>"+tt.markup+"</body></html>", "#x")
			if err != nil {
				t.Fatal(err)
			}
			if d.Method != tt.wantMethod || d.URL != "/a" {
				t.Errorf("got %s %s, want %s /a", d.Method, d.URL, tt.wantMethod)
			}
		})
	}
}

func TestParseDirectivesErrors(t *testing.T) {
	tests := []struct {
		name   string
		markup string
	}{
		{"two verbs", `<button id="x" hx-get="/a" hx-post="/b">x</button>`},
		{"empty url", `<button id="x" hx-get="">x</button>`},
		{"bad trigger", `<button id="x" hx-get="/a" hx-trigger="click bogus:nope">x</button>`},
		{"bad vals", `<button id="x" hx-get="/a" hx-vals="not json">x</button>`},
		{"bad sync", `<button id="x" hx-get="/a" hx-sync="#f:explode">x</button>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFor(t, "<html><body>"+tt.markup+"</body></html>", "#x")
			if err == nil {
				t.Fatal("expected an error")
			}
			if !IsParseError(err) {
				t.Errorf("error %v is not a parse error", err)
			}
		})
	}
}

func TestParseDirectivesVerblessElement(t *testing.T) {
	d, err := parseFor(t, `<html><body><div id="x" hx-target="#y">x</div></body></html>`, "#x")
	if err != nil {
		t.Fatal(err)
	}
	if d != nil {
		t.Errorf("verb-less element should not bind, got %+v", d)
	}
}

func TestDefaultTriggers(t *testing.T) {
	tests := []struct {
		name      string
		markup    string
		wantEvent string
	}{
		{"form submits", `<form id="x" hx-post="/a"></form>`, "submit"},
		{"input changes", `<input id="x" hx-get="/a">`, "change"},
		{"textarea changes", `<textarea id="x" hx-get="/a"></textarea>`, "change"},
		{"select changes", `<select id="x" hx-get="/a"></select>`, "change"},
		{"button clicks", `<button id="x" hx-get="/a">x</button>`, "click"},
		{"div clicks", `<div id="x" hx-get="/a">x</div>`, "click"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := parseFor(t, "<html><body>"+tt.markup+"</body></html>", "#x")
			if err != nil {
				t.Fatal(err)
			}
			if len(d.Triggers) != 1 || d.Triggers[0].Event != tt.wantEvent {
				t.Errorf("triggers = %+v, want one %q", d.Triggers, tt.wantEvent)
			}
		})
	}
}

func TestDirectiveInheritance(t *testing.T) {
	markup := `<html><body>
<div hx-target="#out" hx-swap="outerHTML settle:50ms" hx-sync="#form:abort" hx-confirm="sure?">
  <button id="x" hx-get="/a">x</button>
</div></body></html>`

	d, err := parseFor(t, markup, "#x")
	if err != nil {
		t.Fatal(err)
	}
	if d.Target != "#out" {
		t.Errorf("Target = %q, want #out", d.Target)
	}
	if d.Swap.Mode != SwapOuter || d.Swap.SettleDelay != 50*time.Millisecond {
		t.Errorf("Swap = %+v", d.Swap)
	}
	if d.Sync.Selector != "#form" || d.Sync.Policy != SyncAbort {
		t.Errorf("Sync = %+v", d.Sync)
	}
	if d.Confirm != "sure?" {
		t.Errorf("Confirm = %q", d.Confirm)
	}
}

func TestDirectiveValsAndHeaders(t *testing.T) {
	markup := `<html><body>
<button id="x" hx-post="/a"
        hx-vals='{"page": 2, "tag": "new"}'
        hx-headers='{"X-Section": "news"}'>x</button>
</body></html>`

	d, err := parseFor(t, markup, "#x")
	if err != nil {
		t.Fatal(err)
	}
	if d.Vals["page"] != "2" || d.Vals["tag"] != "new" {
		t.Errorf("Vals = %v", d.Vals)
	}
	if d.Headers["X-Section"] != "news" {
		t.Errorf("Headers = %v", d.Headers)
	}
}

func TestDirectiveHistoryModes(t *testing.T) {
	tests := []struct {
		name    string
		markup  string
		want    HistoryMode
		wantURL string
	}{
		{"none", `<button id="x" hx-get="/a">x</button>`, HistoryNone, ""},
		{"push", `<button id="x" hx-get="/a" hx-push-url="true">x</button>`, HistoryPush, ""},
		{"push explicit", `<button id="x" hx-get="/a" hx-push-url="/pretty">x</button>`, HistoryPush, "/pretty"},
		{"push disabled", `<button id="x" hx-get="/a" hx-push-url="false">x</button>`, HistoryNone, ""},
		{"replace", `<button id="x" hx-get="/a" hx-replace-url="true">x</button>`, HistoryReplace, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := parseFor(t, "<html><body>"+tt.markup+"</body></html>", "#x")
			if err != nil {
				t.Fatal(err)
			}
			if d.History != tt.want || d.HistoryURL != tt.wantURL {
				t.Errorf("History = %v %q, want %v %q", d.History, d.HistoryURL, tt.want, tt.wantURL)
			}
		})
	}
}

func TestIsParseErrorCoversDirectiveFamily(t *testing.T) {
	for _, err := range []error{ErrMalformedDirective, ErrMalformedTrigger, ErrMalformedSwap, ErrMalformedSync} {
		if !IsParseError(err) {
			t.Errorf("IsParseError(%v) = false", err)
		}
	}
	if IsParseError(errors.New("other")) {
		t.Error("IsParseError should reject unrelated errors")
	}
}
