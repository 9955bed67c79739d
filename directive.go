package hxdrive

import (
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// The markup directive surface. Request verbs name the method and URL;
// the remaining attributes shape triggering, targeting, swapping,
// synchronization, and history participation.
const (
	AttrGet       = "hx-get"
	AttrPost      = "hx-post"
	AttrPut       = "hx-put"
	AttrPatch     = "hx-patch"
	AttrDelete    = "hx-delete"
	AttrTrigger   = "hx-trigger"
	AttrTarget    = "hx-target"
	AttrSwap      = "hx-swap"
	AttrSync      = "hx-sync"
	AttrConfirm   = "hx-confirm"
	AttrPromptMsg = "hx-prompt"
	AttrInclude   = "hx-include"
	AttrVals      = "hx-vals"
	AttrHeaders   = "hx-headers"
	AttrSelect    = "hx-select"
	AttrSelectOOB = "hx-select-oob"
	AttrPushURL   = "hx-push-url"
	AttrReplace   = "hx-replace-url"
	AttrDisabled  = "hx-disabled"
)

var verbAttrs = []struct {
	attr   string
	method string
}{
	{AttrGet, http.MethodGet},
	{AttrPost, http.MethodPost},
	{AttrPut, http.MethodPut},
	{AttrPatch, http.MethodPatch},
	{AttrDelete, http.MethodDelete},
}

// HistoryMode describes how a request participates in navigation history.
type HistoryMode int

const (
	HistoryNone HistoryMode = iota
	HistoryPush
	HistoryReplace
)

// DirectiveSet is the normalized directive set of one element, parsed
// once at bind time. It is never mutated in place; directive changes
// require the element to be replaced and re-parsed.
type DirectiveSet struct {
	Method   string
	URL      string
	Target   string
	Swap     SwapSpec
	Triggers []TriggerSpec
	Sync     SyncSpec
	Confirm  string
	Prompt   string
	Include  string
	Vals     map[string]string
	Headers  map[string]string
	Select   string
	SelectOOB string
	History  HistoryMode
	HistoryURL string // explicit URL for push/replace; "" means the request URL
}

// parseDirectives extracts an element's DirectiveSet. Elements without a
// request verb return (nil, nil) and are not bound. A malformed
// directive disables the element entirely: the caller surfaces the error
// as a parse-error event and must not let it escape.
func parseDirectives(n *html.Node, cfg *Config) (*DirectiveSet, error) {
	d := &DirectiveSet{}

	for _, v := range verbAttrs {
		if u, ok := lookupAttr(n, v.attr); ok {
			if d.Method != "" {
				return nil, fmt.Errorf("%w: multiple request verbs", ErrMalformedDirective)
			}
			d.Method = v.method
			d.URL = u
		}
	}
	if d.Method == "" {
		return nil, nil
	}
	if d.URL == "" {
		return nil, fmt.Errorf("%w: empty request URL", ErrMalformedDirective)
	}

	// Targeting and swapping inherit from ancestors.
	d.Target, _ = inheritedAttr(n, AttrTarget)

	swapValue, _ := inheritedAttr(n, AttrSwap)
	swap, err := ParseSwapSpec(swapValue, cfg.DefaultSwap)
	if err != nil {
		return nil, err
	}
	d.Swap = swap

	if raw, ok := lookupAttr(n, AttrTrigger); ok {
		specs, err := ParseTriggerSpecs(raw)
		if err != nil {
			return nil, err
		}
		d.Triggers = specs
	} else {
		d.Triggers = []TriggerSpec{defaultTrigger(n)}
	}

	// The sync scope is usually the nearest ancestor carrying hx-sync.
	if raw, ok := inheritedAttr(n, AttrSync); ok {
		sync, err := ParseSyncSpec(raw)
		if err != nil {
			return nil, err
		}
		d.Sync = sync
	}

	d.Confirm, _ = inheritedAttr(n, AttrConfirm)
	d.Prompt = attrValue(n, AttrPromptMsg)
	d.Include = attrValue(n, AttrInclude)
	d.Select = attrValue(n, AttrSelect)
	d.SelectOOB = attrValue(n, AttrSelectOOB)

	if raw, ok := lookupAttr(n, AttrVals); ok {
		vals, err := parseJSONMap(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: hx-vals: %v", ErrMalformedDirective, err)
		}
		d.Vals = vals
	}
	if raw, ok := lookupAttr(n, AttrHeaders); ok {
		headers, err := parseJSONMap(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: hx-headers: %v", ErrMalformedDirective, err)
		}
		d.Headers = headers
	}

	if raw, ok := inheritedAttr(n, AttrPushURL); ok && raw != "false" {
		d.History = HistoryPush
		if raw != "true" {
			d.HistoryURL = raw
		}
	}
	if raw, ok := inheritedAttr(n, AttrReplace); ok && raw != "false" {
		d.History = HistoryReplace
		if raw != "true" {
			d.HistoryURL = raw
		}
	}

	return d, nil
}

// defaultTrigger picks the natural event for an element: submit for
// forms, change for form controls, click for everything else.
func defaultTrigger(n *html.Node) TriggerSpec {
	spec := TriggerSpec{Queue: QueueLast}
	switch n.DataAtom {
	case atom.Form:
		spec.Event = "submit"
	case atom.Input, atom.Textarea, atom.Select:
		spec.Event = "change"
	default:
		spec.Event = "click"
	}
	return spec
}

// parseJSONMap decodes a JSON object of scalars into strings.
func parseJSONMap(raw string) (map[string]string, error) {
	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		out[k] = fmt.Sprint(v)
	}
	return out, nil
}
