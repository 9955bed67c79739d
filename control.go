package hxdrive

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Control headers a response may carry. The server steers the client
// without touching the body: forced navigation, URL updates, retargeting,
// and named client-side triggers in three phases.
const (
	HeaderRedirect           = "HX-Redirect"
	HeaderRefresh            = "HX-Refresh"
	HeaderPushURL            = "HX-Push-Url"
	HeaderReplaceURL         = "HX-Replace-Url"
	HeaderRetarget           = "HX-Retarget"
	HeaderReswap             = "HX-Reswap"
	HeaderTriggerEvent       = "HX-Trigger"
	HeaderTriggerAfterSwap   = "HX-Trigger-After-Swap"
	HeaderTriggerAfterSettle = "HX-Trigger-After-Settle"
)

// NamedTrigger is one server-fired client-side signal.
type NamedTrigger struct {
	Name   string
	Detail map[string]any
}

// ControlDirectives is the parsed control-header set of one response.
type ControlDirectives struct {
	Redirect   string // force full navigation to this URL
	Refresh    bool   // force a full reload of the current URL
	PushURL    string // push this URL without requiring a body swap
	ReplaceURL string // replace the current URL without a body swap
	Retarget   string // override the target selector for this response
	Reswap     string // override the swap spec for this response

	Triggers            []NamedTrigger // fire immediately
	TriggersAfterSwap   []NamedTrigger // fire after the primary swap
	TriggersAfterSettle []NamedTrigger // fire after the settle phase
}

// parseControlHeaders extracts control directives from response headers.
func parseControlHeaders(h http.Header) ControlDirectives {
	return ControlDirectives{
		Redirect:            h.Get(HeaderRedirect),
		Refresh:             h.Get(HeaderRefresh) == "true",
		PushURL:             h.Get(HeaderPushURL),
		ReplaceURL:          h.Get(HeaderReplaceURL),
		Retarget:            h.Get(HeaderRetarget),
		Reswap:              h.Get(HeaderReswap),
		Triggers:            parseTriggerHeader(h.Get(HeaderTriggerEvent)),
		TriggersAfterSwap:   parseTriggerHeader(h.Get(HeaderTriggerAfterSwap)),
		TriggersAfterSettle: parseTriggerHeader(h.Get(HeaderTriggerAfterSettle)),
	}
}

// parseTriggerHeader parses a trigger header value. Three formats:
//
//  1. bare event name: "item-updated"
//  2. comma list: "a, b, c"
//  3. JSON object: {"filter:changed": {"status": "active"}}
//
// In the JSON form each top-level key is an event name and its value the
// event detail (a bare true means no detail).
func parseTriggerHeader(value string) []NamedTrigger {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}

	if strings.HasPrefix(value, "{") {
		var obj map[string]any
		if err := json.Unmarshal([]byte(value), &obj); err != nil {
			// Malformed JSON degrades to a single opaque name rather
			// than losing the signal.
			return []NamedTrigger{{Name: value}}
		}
		triggers := make([]NamedTrigger, 0, len(obj))
		for name, detail := range obj {
			nt := NamedTrigger{Name: name}
			if m, ok := detail.(map[string]any); ok {
				nt.Detail = m
			}
			triggers = append(triggers, nt)
		}
		return triggers
	}

	parts := strings.Split(value, ",")
	triggers := make([]NamedTrigger, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			triggers = append(triggers, NamedTrigger{Name: p})
		}
	}
	return triggers
}

// fireTriggers delivers named server triggers as engine events.
// Callers hold the engine mutex.
func (e *Engine) fireTriggers(triggers []NamedTrigger, req *RequestDescriptor) {
	for _, t := range triggers {
		e.emit(&Event{
			Type:      EventType(t.Name),
			ElementID: req.binding.id,
			RequestID: req.ID,
			URL:       req.URL,
			Detail:    t.Detail,
		})
	}
}
