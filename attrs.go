package hxdrive

import (
	"encoding/json"

	"github.com/a-h/templ"
)

// AttrBuilder assembles the hx-* attributes of an element as a templ
// attribute map. Chained calls accumulate; each call returns a copy, so
// partially built chains can be shared.
//
//	<button { hxdrive.Attrs().Post("/items").Target("#list").Swap("beforeend").Templ()... }>
type AttrBuilder templ.Attributes

// Attrs starts an attribute chain.
func Attrs() AttrBuilder { return AttrBuilder{} }

func (a AttrBuilder) set(key, val string) AttrBuilder {
	out := make(AttrBuilder, len(a)+1)
	for k, v := range a {
		out[k] = v
	}
	out[key] = val
	return out
}

// Get issues a GET request to url when triggered.
func (a AttrBuilder) Get(url string) AttrBuilder { return a.set(AttrGet, url) }

// Post issues a POST request to url when triggered.
func (a AttrBuilder) Post(url string) AttrBuilder { return a.set(AttrPost, url) }

// Put issues a PUT request to url when triggered.
func (a AttrBuilder) Put(url string) AttrBuilder { return a.set(AttrPut, url) }

// Patch issues a PATCH request to url when triggered.
func (a AttrBuilder) Patch(url string) AttrBuilder { return a.set(AttrPatch, url) }

// Delete issues a DELETE request to url when triggered.
func (a AttrBuilder) Delete(url string) AttrBuilder { return a.set(AttrDelete, url) }

// Trigger sets the trigger spec, e.g. "input changed delay:300ms".
func (a AttrBuilder) Trigger(spec string) AttrBuilder { return a.set(AttrTrigger, spec) }

// Target sets the swap target selector.
func (a AttrBuilder) Target(selector string) AttrBuilder { return a.set(AttrTarget, selector) }

// Swap sets the swap spec, e.g. "outerHTML settle:100ms".
func (a AttrBuilder) Swap(spec string) AttrBuilder { return a.set(AttrSwap, spec) }

// Sync sets the synchronization spec, e.g. "#form:abort".
func (a AttrBuilder) Sync(spec string) AttrBuilder { return a.set(AttrSync, spec) }

// Confirm asks for confirmation before the request.
func (a AttrBuilder) Confirm(message string) AttrBuilder { return a.set(AttrConfirm, message) }

// Prompt asks for a value sent in the HX-Prompt header.
func (a AttrBuilder) Prompt(message string) AttrBuilder { return a.set(AttrPromptMsg, message) }

// Include adds form values from elements matching selector.
func (a AttrBuilder) Include(selector string) AttrBuilder { return a.set(AttrInclude, selector) }

// Vals adds static request parameters as a JSON object.
func (a AttrBuilder) Vals(v map[string]string) AttrBuilder {
	encoded, err := json.Marshal(v)
	if err != nil {
		return a
	}
	return a.set(AttrVals, string(encoded))
}

// Headers adds static request headers as a JSON object.
func (a AttrBuilder) Headers(h map[string]string) AttrBuilder {
	encoded, err := json.Marshal(h)
	if err != nil {
		return a
	}
	return a.set(AttrHeaders, string(encoded))
}

// Select narrows the response to sub-trees matching selector.
func (a AttrBuilder) Select(selector string) AttrBuilder { return a.set(AttrSelect, selector) }

// SelectOOB names response sub-trees to treat as out-of-band.
func (a AttrBuilder) SelectOOB(list string) AttrBuilder { return a.set(AttrSelectOOB, list) }

// PushURL pushes the request URL (or an explicit one) into history.
func (a AttrBuilder) PushURL(v string) AttrBuilder { return a.set(AttrPushURL, v) }

// ReplaceURL replaces the current history entry instead of pushing.
func (a AttrBuilder) ReplaceURL(v string) AttrBuilder { return a.set(AttrReplace, v) }

// Templ finishes the chain as templ attributes.
func (a AttrBuilder) Templ() templ.Attributes { return templ.Attributes(a) }
