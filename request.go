package hxdrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Request headers the dispatcher always attaches, mirroring what
// fragment-serving handlers introspect on the server side (see helpers.go).
const (
	HeaderRequest     = "HX-Request"
	HeaderCurrentURL  = "HX-Current-URL"
	HeaderTrigger     = "HX-Trigger"
	HeaderTriggerName = "HX-Trigger-Name"
	HeaderTarget      = "HX-Target"
	HeaderPrompt      = "HX-Prompt"
)

type requestState int

const (
	reqPending requestState = iota
	reqStarted
	reqDropped
	reqAborted
	reqDone
)

// RequestDescriptor is one outbound call: resolved URL, headers,
// parameters, the originating element, and a cancellation handle.
// Before-request listeners may mutate Header and Params.
type RequestDescriptor struct {
	ID     string // correlation id, carried on every event for this request
	Method string
	URL    string
	Header http.Header
	Params url.Values

	binding   *binding
	directive *DirectiveSet
	event     DOMEvent
	group     *syncGroup
	policy    SyncPolicy
	state     requestState

	ctx    context.Context
	cancel context.CancelFunc
}

// abort cancels the underlying network operation and suppresses the
// eventual response from reaching the response processor.
func (r *RequestDescriptor) abort() {
	r.state = reqAborted
	r.cancel()
}

func (r *RequestDescriptor) finish(err error) {
	if errors.Is(err, ErrRequestDropped) {
		r.state = reqDropped
	}
	r.cancel()
	if r.binding != nil && r.binding.inflight == r {
		r.binding.inflight = nil
	}
}

func (r *RequestDescriptor) aborted() bool {
	return r.state == reqAborted || r.state == reqDropped
}

// issueRequest builds and submits a request for a binding whose trigger
// fired. Callers hold the engine mutex.
func (e *Engine) issueRequest(b *binding, ev DOMEvent) {
	d := b.directives
	if d.Method == "" {
		return
	}

	if d.Confirm != "" && !e.cfg.Confirm(b.id, d.Confirm) {
		e.logger.Debug("hxdrive: confirmation declined", "element", b.id)
		return
	}
	promptVal := ""
	if d.Prompt != "" {
		promptVal = e.cfg.Prompt(b.id, d.Prompt)
	}

	req, err := e.buildRequest(b, ev, promptVal)
	if err != nil {
		e.emitParseError(b.id, err)
		return
	}

	bev := &Event{Type: EventBeforeRequest, ElementID: b.id, RequestID: req.ID, URL: req.URL, req: req}
	e.emit(bev)
	if bev.Cancelled() {
		e.logger.Debug("hxdrive: request cancelled by listener", "element", b.id, "url", req.URL)
		return
	}

	if d.Sync.Selector != "" {
		req.group = e.groupFor(b, d.Sync)
		req.policy = d.Sync.Policy
		if req.group.admit(req, d.Sync.Policy) == nil {
			if req.state == reqDropped {
				e.logger.Debug("hxdrive: request dropped by sync policy",
					"element", b.id, "policy", string(d.Sync.Policy))
			}
			return
		}
	}

	e.start(req)
}

// groupFor resolves the sync scope: the nearest element matching the
// sync selector, usually an ancestor carrying the hx-sync directive.
func (e *Engine) groupFor(b *binding, spec SyncSpec) *syncGroup {
	key := spec.Selector
	if spec.Selector == "this" {
		// "this" scopes to the element declaring hx-sync, which may be an
		// ancestor the directive was inherited from.
		scope := closest(b.elt, "["+AttrSync+"]")
		if scope == nil {
			scope = b.elt
		}
		key = fmt.Sprintf("this:%p", scope)
	} else if scope := closest(b.elt, spec.Selector); scope != nil {
		if id := attrValue(scope, "id"); id != "" {
			key = "#" + id
		}
	}
	g, ok := e.groups[key]
	if !ok {
		g = &syncGroup{key: key}
		e.groups[key] = g
	}
	return g
}

// buildRequest assembles the descriptor: resolved URL, identification
// headers, and parameters from the element, its enclosing form, and any
// hx-include selectors.
func (e *Engine) buildRequest(b *binding, ev DOMEvent, promptVal string) (*RequestDescriptor, error) {
	d := b.directives

	resolved, err := e.resolveURL(d.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: url %q", ErrMalformedDirective, d.URL)
	}

	params := url.Values{}
	paramRoot := closest(b.elt, "form")
	if paramRoot == nil {
		paramRoot = b.elt
	}
	collectValues(paramRoot, params)
	if d.Include != "" {
		for _, n := range e.doc.QueryAll(d.Include) {
			collectValues(n, params)
		}
	}
	for k, v := range d.Vals {
		params.Set(k, v)
	}

	header := http.Header{}
	header.Set(HeaderRequest, "true")
	header.Set(HeaderCurrentURL, e.doc.url)
	if b.id != "" {
		header.Set(HeaderTrigger, b.id)
	}
	if name := attrValue(b.elt, "name"); name != "" {
		header.Set(HeaderTriggerName, name)
	}
	if t := e.doc.resolveTarget(b.elt, d.Target); t != nil {
		if id := attrValue(t, "id"); id != "" {
			header.Set(HeaderTarget, id)
		}
	}
	if promptVal != "" {
		header.Set(HeaderPrompt, promptVal)
	}
	for k, v := range d.Headers {
		header.Set(k, v)
	}

	ctx := context.Background()
	var cancel context.CancelFunc
	if e.cfg.RequestTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.cfg.RequestTimeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}

	return &RequestDescriptor{
		ID:        uuid.NewString(),
		Method:    d.Method,
		URL:       resolved,
		Header:    header,
		Params:    params,
		binding:   b,
		directive: d,
		event:     ev,
		ctx:       ctx,
		cancel:    cancel,
	}, nil
}

func (e *Engine) resolveURL(raw string) (string, error) {
	ref, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	base, err := url.Parse(e.doc.url)
	if err != nil {
		return ref.String(), nil
	}
	return base.ResolveReference(ref).String(), nil
}

// start puts the request on the wire. The owning element is marked busy
// only here, so a request rejected at admission never disturbs the
// element's real in-flight pointer. Callers hold the engine mutex.
func (e *Engine) start(req *RequestDescriptor) {
	req.state = reqStarted
	req.binding.inflight = req
	e.inflight++
	e.emit(&Event{Type: EventRequestSent, ElementID: req.binding.id, RequestID: req.ID, URL: req.URL})

	go func() {
		status, header, body, err := e.send(req)

		e.mu.Lock()
		defer e.mu.Unlock()
		e.inflight--
		e.completeRequest(req, status, header, body, err)
	}()
}

// send performs the HTTP round trip off the engine turn.
func (e *Engine) send(req *RequestDescriptor) (int, http.Header, string, error) {
	target := req.URL
	var bodyReader io.Reader
	headers := req.Header

	if req.Method == http.MethodGet || req.Method == http.MethodDelete {
		if enc := req.Params.Encode(); enc != "" {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + enc
		}
	} else {
		bodyReader = strings.NewReader(req.Params.Encode())
	}

	httpReq, err := http.NewRequestWithContext(req.ctx, req.Method, target, bodyReader)
	if err != nil {
		return 0, nil, "", err
	}
	httpReq.Header = headers.Clone()
	if bodyReader != nil {
		httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return 0, nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, "", err
	}
	return resp.StatusCode, resp.Header, string(body), nil
}

// completeRequest routes the outcome back into the engine: suppressed
// cancellations, network failures, or the response processor. It then
// releases the element and launches the next queued sibling.
// Callers hold the engine mutex.
func (e *Engine) completeRequest(req *RequestDescriptor, status int, header http.Header, body string, err error) {
	req.cancel()

	switch {
	case e.closed:
	case req.aborted():
		// Cancellation is not an error; the response is discarded.
		e.logger.Debug("hxdrive: aborted response discarded", "request", req.ID)
	case err != nil:
		if errors.Is(err, context.Canceled) {
			e.logger.Debug("hxdrive: cancelled in flight", "request", req.ID)
			break
		}
		e.logger.Warn("hxdrive: network failure", "request", req.ID, "url", req.URL, "error", err)
		e.emit(&Event{
			Type: EventSendError, ElementID: req.binding.id, RequestID: req.ID,
			URL: req.URL, Err: fmt.Errorf("%w: %v", ErrNetwork, err),
		})
	default:
		req.state = reqDone
		e.handleResponse(req, status, header, body)
	}

	if req.binding.inflight == req {
		req.binding.inflight = nil
		for _, s := range req.binding.schedulers {
			s.flushQueue()
		}
	}

	if req.group != nil {
		if next := req.group.complete(req); next != nil {
			e.start(next)
		}
	}
}
