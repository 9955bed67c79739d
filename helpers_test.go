package hxdrive

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/a-h/templ"
)

func TestRequestIntrospection(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/frag", nil)
	r.Header.Set(HeaderRequest, "true")
	r.Header.Set(HeaderTrigger, "save-btn")
	r.Header.Set(HeaderTriggerName, "save")
	r.Header.Set(HeaderTarget, "out")
	r.Header.Set(HeaderPrompt, "fluffy")
	r.Header.Set(HeaderCurrentURL, "http://example.test/edit")

	if !IsFragmentRequest(r) {
		t.Error("IsFragmentRequest = false")
	}
	if TriggerID(r) != "save-btn" || TriggerName(r) != "save" || TargetID(r) != "out" {
		t.Error("trigger introspection lost values")
	}
	if PromptValue(r) != "fluffy" || CurrentURL(r) != "http://example.test/edit" {
		t.Error("prompt/url introspection lost values")
	}

	plain := httptest.NewRequest(http.MethodGet, "/", nil)
	if IsFragmentRequest(plain) {
		t.Error("plain navigation misidentified as a fragment request")
	}
}

func TestResponseHeaderSetters(t *testing.T) {
	w := httptest.NewRecorder()
	Redirect(w, "/away")
	Refresh(w)
	PushURL(w, "/pretty")
	ReplaceURL(w, "/flat")
	Retarget(w, "#other")
	Reswap(w, "outerHTML")
	Trigger(w, NamedTrigger{Name: "saved"})
	TriggerAfterSwap(w, NamedTrigger{Name: "swapped"})
	TriggerAfterSettle(w, NamedTrigger{Name: "settled"})

	h := w.Header()
	checks := map[string]string{
		HeaderRedirect:           "/away",
		HeaderRefresh:            "true",
		HeaderPushURL:            "/pretty",
		HeaderReplaceURL:         "/flat",
		HeaderRetarget:           "#other",
		HeaderReswap:             "outerHTML",
		HeaderTriggerEvent:       "saved",
		HeaderTriggerAfterSwap:   "swapped",
		HeaderTriggerAfterSettle: "settled",
	}
	for k, want := range checks {
		if got := h.Get(k); got != want {
			t.Errorf("%s = %q, want %q", k, got, want)
		}
	}
}

func TestRenderWritesComponent(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)

	c := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, "<p>hello</p>")
		return err
	})
	if err := Render(w, r, c); err != nil {
		t.Fatal(err)
	}
	if got := w.Body.String(); got != "<p>hello</p>" {
		t.Errorf("body = %q", got)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}
}
