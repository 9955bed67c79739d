package hxdrive

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Engine drives a parsed HTML document the way a browser runtime would:
// it binds hx-* directives, schedules triggers, dispatches requests, and
// applies response fragments back into the tree.
//
// All document state is guarded by a single mutex. Every logical turn,
// whether started by Fire, a timer, or a returning response, runs to
// completion under it, so listeners and tests observe the document only
// at turn boundaries.
type Engine struct {
	cfg    Config
	logger *slog.Logger
	client *http.Client

	mu       sync.Mutex
	doc      *Document
	bindings map[*html.Node]*binding
	// listeners maps a listening node to the schedulers attached there.
	// An element's own schedulers listen on itself unless redirected by a
	// from: modifier.
	listeners map[*html.Node][]*scheduler

	handlers     map[EventType][]listenerEntry
	anyHandlers  []listenerEntry
	nextListener int

	groups map[string]*syncGroup

	history  *historyCache
	stack    []string
	stackPos int

	inflight int // network round trips on the wire
	timers   int // deferred swap/settle phases pending
	closed   bool
}

// New constructs an Engine. Load a document with LoadHTML or Open before
// firing events.
func New(cfg Config) *Engine {
	cfg = cfg.defaults()
	return &Engine{
		cfg:       cfg,
		logger:    cfg.Logger,
		client:    cfg.Client,
		bindings:  make(map[*html.Node]*binding),
		listeners: make(map[*html.Node][]*scheduler),
		handlers:  make(map[EventType][]listenerEntry),
		groups:    make(map[string]*syncGroup),
		history:   newHistoryCache(cfg.HistorySize),
	}
}

// LoadHTML installs markup as the current document without a network
// round trip. The URL becomes the base for relative request URLs and the
// first entry of the location stack.
func (e *Engine) LoadHTML(pageURL, markup string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}

	doc, err := ParseDocument(strings.NewReader(markup), pageURL)
	if err != nil {
		return err
	}
	e.installDocument(doc, pageURL)
	e.stack = []string{pageURL}
	e.stackPos = 0
	return nil
}

// Open fetches a full page over HTTP and installs it, like typing a URL
// into the address bar.
func (e *Engine) Open(pageURL string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	if err := e.navigateLocked(pageURL); err != nil {
		return err
	}
	e.stack = []string{pageURL}
	e.stackPos = 0
	return nil
}

// navigateLocked performs a full-page navigation: fetch, reparse,
// rebind. The location stack is managed by callers. Callers hold the
// engine mutex; the round trip happens inline because navigation
// replaces the whole document anyway.
func (e *Engine) navigateLocked(pageURL string) error {
	if e.doc != nil {
		if resolved, err := e.resolveURL(pageURL); err == nil {
			pageURL = resolved
		}
	}
	httpReq, err := http.NewRequest(http.MethodGet, pageURL, nil)
	if err != nil {
		return err
	}
	resp, err := e.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}

	doc, err := ParseDocument(strings.NewReader(string(body)), pageURL)
	if err != nil {
		return err
	}
	e.installDocument(doc, pageURL)
	return nil
}

// installDocument swaps the whole document, tearing down every binding of
// the old one first so its pollers and timers stop.
func (e *Engine) installDocument(doc *Document, pageURL string) {
	for _, b := range e.bindings {
		if b.inflight != nil {
			b.inflight.abort()
		}
		e.destroyBinding(b)
	}
	e.bindings = make(map[*html.Node]*binding)
	e.listeners = make(map[*html.Node][]*scheduler)

	e.doc = doc
	e.doc.url = pageURL
	e.bindTree(doc.root)
}

// Fire dispatches a DOM event at the element matching selector and lets
// it bubble to ancestors. An empty event type defaults to click. A
// consuming trigger stops propagation once it accepts the event.
func (e *Engine) Fire(selector string, ev DOMEvent) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	if e.doc == nil {
		return ErrNoDocument
	}

	n := e.doc.Query(selector)
	if n == nil {
		return fmt.Errorf("%w: no element matches %q", ErrTargetMissing, selector)
	}
	if ev.Type == "" {
		ev.Type = "click"
	}
	if ev.Value != "" {
		setControlValue(n, ev.Value)
	}

	for cur := n; cur != nil; cur = cur.Parent {
		for _, s := range e.listeners[cur] {
			if s.binding.destroyed || s.spec.Event != ev.Type {
				continue
			}
			accepted := s.handle(ev)
			if accepted && s.spec.Consume {
				return nil
			}
		}
	}
	return nil
}

// setControlValue updates a form control the way user input would.
func setControlValue(n *html.Node, value string) {
	switch n.DataAtom {
	case atom.Textarea:
		for c := n.FirstChild; c != nil; c = n.FirstChild {
			n.RemoveChild(c)
		}
		n.AppendChild(&html.Node{Type: html.TextNode, Data: value})
	case atom.Select:
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode && c.DataAtom == atom.Option {
				if optionValue(c) == value {
					setAttr(c, "selected", "selected")
				} else {
					removeAttr(c, "selected")
				}
			}
		}
	default:
		setAttr(n, "value", value)
	}
}

// handleResponse is the response processor: control headers first, then
// body processing, target resolution, the primary swap, out-of-band
// fragments, history, and the settle phase. Callers hold the engine
// mutex.
func (e *Engine) handleResponse(req *RequestDescriptor, status int, header http.Header, body string) {
	cd := parseControlHeaders(header)

	if cd.Redirect != "" {
		dest := cd.Redirect
		if resolved, err := e.resolveURL(dest); err == nil {
			dest = resolved
		}
		e.emit(&Event{Type: EventRedirect, RequestID: req.ID, URL: dest})
		e.snapshotCurrent()
		if err := e.navigateLocked(dest); err != nil {
			e.logger.Warn("hxdrive: redirect navigation failed", "url", dest, "error", err)
			return
		}
		e.pushLocation(dest, false)
		return
	}
	if cd.Refresh {
		e.emit(&Event{Type: EventRefresh, RequestID: req.ID, URL: e.doc.url})
		if err := e.navigateLocked(e.doc.url); err != nil {
			e.logger.Warn("hxdrive: refresh failed", "url", e.doc.url, "error", err)
		}
		return
	}

	e.fireTriggers(cd.Triggers, req)

	if status < 200 || status >= 300 {
		e.emit(&Event{
			Type: EventResponseError, ElementID: req.binding.id, RequestID: req.ID,
			URL: req.URL, Status: status, Body: body,
		})
		if !e.cfg.SwapErrorContent {
			return
		}
	}

	if req.binding.destroyed {
		e.logger.Debug("hxdrive: element gone, response discarded", "request", req.ID)
		return
	}

	d := req.directive
	primary, oobs, err := processBody(body, d)
	if err != nil {
		e.emitParseError(req.binding.id, err)
		return
	}

	spec := d.Swap
	if status == http.StatusNoContent {
		// 204 carries no content by definition; the turn still runs its
		// events and control directives.
		spec.Mode = SwapNone
	}
	if cd.Reswap != "" {
		if over, err := ParseSwapSpec(cd.Reswap, e.cfg.DefaultSwap); err == nil {
			spec = over
		} else {
			e.logger.Warn("hxdrive: bad reswap header", "request", req.ID, "value", cd.Reswap)
		}
	}

	targetExpr := d.Target
	if cd.Retarget != "" {
		targetExpr = cd.Retarget
	}
	target := e.doc.resolveTarget(req.binding.elt, targetExpr)
	skipPrimary := spec.Mode == SwapNone
	if target == nil {
		e.logger.Warn("hxdrive: swap target not found",
			"request", req.ID, "element", req.binding.id, "target", targetExpr)
		e.emit(&Event{
			Type: EventTargetMissing, ElementID: req.binding.id, RequestID: req.ID,
			Err: ErrTargetMissing, Detail: map[string]any{"target": targetExpr},
		})
		skipPrimary = true
	}

	if !skipPrimary {
		bev := &Event{
			Type: EventBeforeSwap, ElementID: req.binding.id, RequestID: req.ID,
			URL: req.URL, Status: status, Body: body,
		}
		e.emit(bev)
		if bev.Cancelled() {
			skipPrimary = true
		}
	}

	// History intent: the directive decides, control headers override.
	histMode := d.History
	histURL := d.HistoryURL
	if histURL == "" {
		histURL = req.URL
	}
	if cd.PushURL != "" {
		if cd.PushURL == "false" {
			histMode = HistoryNone
		} else {
			histMode, histURL = HistoryPush, cd.PushURL
		}
	}
	if cd.ReplaceURL != "" {
		if cd.ReplaceURL == "false" {
			histMode = HistoryNone
		} else {
			histMode, histURL = HistoryReplace, cd.ReplaceURL
		}
	}
	if histMode != HistoryNone {
		// Snapshot the departing page before any mutation.
		e.snapshotCurrent()
	}

	if spec.SwapDelay > 0 && !skipPrimary {
		e.timers++
		time.AfterFunc(spec.SwapDelay, func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.timers--
			if e.closed || req.aborted() {
				return
			}
			e.finishSwap(req, cd, spec, target, skipPrimary, primary, oobs, histMode, histURL)
		})
		return
	}
	e.finishSwap(req, cd, spec, target, skipPrimary, primary, oobs, histMode, histURL)
}

// finishSwap applies the primary fragment and OOB fragments, records
// history, and runs or schedules the settle phase. Callers hold the
// engine mutex.
func (e *Engine) finishSwap(
	req *RequestDescriptor, cd ControlDirectives, spec SwapSpec,
	target *html.Node, skipPrimary bool,
	primary ResponseFragment, oobs []ResponseFragment,
	histMode HistoryMode, histURL string,
) {
	swapped := false
	if !skipPrimary && e.doc.Contains(target) {
		e.unbindForSwap(target, spec.Mode)
		if err := applySwap(e.doc, target, spec.Mode, primary.Nodes); err != nil {
			e.logger.Warn("hxdrive: swap failed", "request", req.ID, "error", err)
		} else {
			swapped = true
			for _, n := range primary.Nodes {
				e.bindTree(n)
			}
		}
	}

	e.applyOOB(req, oobs)

	if histMode != HistoryNone {
		e.pushLocation(histURL, histMode == HistoryReplace)
	}

	if swapped {
		e.emit(&Event{Type: EventAfterSwap, ElementID: req.binding.id, RequestID: req.ID, URL: req.URL})
	}
	e.fireTriggers(cd.TriggersAfterSwap, req)

	if spec.SettleDelay > 0 {
		e.timers++
		time.AfterFunc(spec.SettleDelay, func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			e.timers--
			if e.closed {
				return
			}
			e.settle(req, cd, spec, target)
		})
		return
	}
	e.settle(req, cd, spec, target)
}

// settle finishes the turn: viewport adjustments, deferred server
// triggers, and the after-settle event. Callers hold the engine mutex.
func (e *Engine) settle(req *RequestDescriptor, cd ControlDirectives, spec SwapSpec, target *html.Node) {
	behavior := spec.Show
	if spec.Scroll != ScrollNone {
		behavior = spec.Scroll
	}
	if behavior != ScrollNone {
		e.doc.scroll = scrollStateFor(behavior, target)
	}
	if spec.FocusScroll && e.doc.focusID != "" {
		e.doc.scroll = ScrollState{TargetID: e.doc.focusID, Position: "top"}
	}

	e.fireTriggers(cd.TriggersAfterSettle, req)
	e.emit(&Event{Type: EventAfterSettle, ElementID: req.binding.id, RequestID: req.ID, URL: req.URL})
}

func scrollStateFor(b ScrollBehavior, target *html.Node) ScrollState {
	switch b {
	case ScrollWindowTop:
		return ScrollState{Position: "top"}
	case ScrollWindowBot:
		return ScrollState{Position: "bottom"}
	}
	st := ScrollState{Position: string(b)}
	if target != nil {
		st.TargetID = attrValue(target, "id")
	}
	return st
}

// WaitIdle blocks until no requests are on the wire and no deferred
// swap or settle phases are pending, or the timeout elapses. Debounce
// and poll timers do not count; tests advance those with real time.
func (e *Engine) WaitIdle(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		e.mu.Lock()
		idle := e.inflight == 0 && e.timers == 0
		e.mu.Unlock()
		if idle {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}

// HTML renders the current document.
func (e *Engine) HTML() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return ""
	}
	return e.doc.Render()
}

// Element renders the element matching selector, or "" if none matches.
func (e *Engine) Element(selector string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return ""
	}
	n := e.doc.Query(selector)
	if n == nil {
		return ""
	}
	return renderNode(n)
}

// Text returns the flattened text content of the element matching
// selector.
func (e *Engine) Text(selector string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return ""
	}
	n := e.doc.Query(selector)
	if n == nil {
		return ""
	}
	return elementText(n)
}

// Focus marks the element matching selector as holding input focus.
// Swaps with focus-scroll:true bring it back into view on settle.
func (e *Engine) Focus(selector string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return ErrNoDocument
	}
	n := e.doc.Query(selector)
	if n == nil {
		return fmt.Errorf("%w: no element matches %q", ErrTargetMissing, selector)
	}
	e.doc.focusID = attrValue(n, "id")
	return nil
}

// Scroll returns the current viewport bookkeeping.
func (e *Engine) Scroll() ScrollState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return ScrollState{}
	}
	return e.doc.scroll
}

// Close stops pollers and timers, cancels in-flight requests, and makes
// every subsequent call fail with ErrEngineClosed.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	e.closed = true
	for _, b := range e.bindings {
		if b.inflight != nil {
			b.inflight.abort()
		}
		e.destroyBinding(b)
	}
}
