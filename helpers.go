package hxdrive

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/a-h/templ"
)

// Server-side helpers for handlers that serve fragments to the engine
// (or to any client speaking the same header protocol).

// IsFragmentRequest reports whether the request came from the engine
// rather than a full-page navigation.
func IsFragmentRequest(r *http.Request) bool {
	return r.Header.Get(HeaderRequest) == "true"
}

// TriggerID returns the id of the element that triggered the request.
func TriggerID(r *http.Request) string {
	return r.Header.Get(HeaderTrigger)
}

// TriggerName returns the name attribute of the triggering element.
func TriggerName(r *http.Request) string {
	return r.Header.Get(HeaderTriggerName)
}

// TargetID returns the id of the element the response will be swapped
// into, when the client could resolve one.
func TargetID(r *http.Request) string {
	return r.Header.Get(HeaderTarget)
}

// PromptValue returns the user's hx-prompt answer, if any.
func PromptValue(r *http.Request) string {
	return r.Header.Get(HeaderPrompt)
}

// CurrentURL returns the browser URL the request was issued from.
func CurrentURL(r *http.Request) string {
	return r.Header.Get(HeaderCurrentURL)
}

// Redirect asks the client for a full-page navigation. The response body
// is ignored.
func Redirect(w http.ResponseWriter, url string) {
	w.Header().Set(HeaderRedirect, url)
}

// Refresh asks the client for a full reload of its current URL.
func Refresh(w http.ResponseWriter) {
	w.Header().Set(HeaderRefresh, "true")
}

// PushURL records url in the client's history alongside this response.
func PushURL(w http.ResponseWriter, url string) {
	w.Header().Set(HeaderPushURL, url)
}

// ReplaceURL replaces the client's current history entry with url.
func ReplaceURL(w http.ResponseWriter, url string) {
	w.Header().Set(HeaderReplaceURL, url)
}

// Retarget overrides the client-side target selector for this response.
func Retarget(w http.ResponseWriter, selector string) {
	w.Header().Set(HeaderRetarget, selector)
}

// Reswap overrides the client-side swap spec for this response.
func Reswap(w http.ResponseWriter, spec string) {
	w.Header().Set(HeaderReswap, spec)
}

// Trigger fires named client-side events with this response. Triggers
// without details render as a comma list; any detail switches the header
// to its JSON form.
func Trigger(w http.ResponseWriter, triggers ...NamedTrigger) {
	appendTriggerHeader(w, HeaderTriggerEvent, triggers)
}

// TriggerAfterSwap fires named client-side events after the swap.
func TriggerAfterSwap(w http.ResponseWriter, triggers ...NamedTrigger) {
	appendTriggerHeader(w, HeaderTriggerAfterSwap, triggers)
}

// TriggerAfterSettle fires named client-side events after settling.
func TriggerAfterSettle(w http.ResponseWriter, triggers ...NamedTrigger) {
	appendTriggerHeader(w, HeaderTriggerAfterSettle, triggers)
}

func appendTriggerHeader(w http.ResponseWriter, key string, triggers []NamedTrigger) {
	if len(triggers) == 0 {
		return
	}
	w.Header().Set(key, BuildTriggerHeader(triggers))
}

// BuildTriggerHeader serializes triggers into the wire format
// parseTriggerHeader reads back.
func BuildTriggerHeader(triggers []NamedTrigger) string {
	detailed := false
	for _, t := range triggers {
		if len(t.Detail) > 0 {
			detailed = true
			break
		}
	}
	if !detailed {
		names := make([]string, len(triggers))
		for i, t := range triggers {
			names[i] = t.Name
		}
		return strings.Join(names, ", ")
	}

	obj := make(map[string]any, len(triggers))
	for _, t := range triggers {
		if len(t.Detail) > 0 {
			obj[t.Name] = t.Detail
		} else {
			obj[t.Name] = true
		}
	}
	encoded, err := json.Marshal(obj)
	if err != nil {
		return ""
	}
	return string(encoded)
}

// Render writes a templ component as the response body.
func Render(w http.ResponseWriter, r *http.Request, c templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return c.Render(r.Context(), w)
}
