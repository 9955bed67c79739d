// Package hxdrive is a headless runtime for declarative partial-update
// markup. It parses hx-* directives from an HTML document, schedules
// triggers, issues HTTP requests, and swaps response fragments back into
// the tree, behaving the way a browser-side hypermedia runtime would but
// entirely in-process.
//
// # Driving a page
//
//	eng := hxdrive.New(hxdrive.Config{Client: srv.Client()})
//	eng.LoadHTML(srv.URL+"/", page)
//	eng.Fire("#search", hxdrive.DOMEvent{Type: "input", Value: "cat"})
//	eng.WaitIdle(time.Second)
//	fmt.Println(eng.Element("#results"))
//
// Elements become interactive when they carry a request verb (hx-get,
// hx-post, hx-put, hx-patch, hx-delete). hx-trigger, hx-target, hx-swap,
// and hx-sync shape when the request fires, where the response lands,
// how it is inserted, and how concurrent requests coordinate. Responses
// may carry out-of-band fragments (hx-swap-oob) and control headers
// (HX-Redirect, HX-Retarget, HX-Trigger, ...) that steer the client
// without touching the body.
//
// All engine state is serialized on one mutex: trigger handling, swaps,
// and event listeners run one logical turn at a time, so tests observe
// the document only at consistent points.
//
// The package also ships the server half of the protocol: request
// introspection helpers (IsFragmentRequest, TriggerID), response header
// setters (Retarget, Trigger), an attribute builder for templ
// components, and a test harness (Recorder, FragmentServer).
package hxdrive
