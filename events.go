package hxdrive

import "net/http"

// EventType identifies an engine event.
type EventType string

// The observable event surface. These are the only integration points
// page-specific code and test harnesses should depend on.
const (
	// EventBeforeRequest fires before a request is sent. Listeners may
	// mutate headers and parameters or cancel the request entirely.
	EventBeforeRequest EventType = "hxdrive:before-request"

	// EventRequestSent fires once the request is on the wire.
	EventRequestSent EventType = "hxdrive:request-sent"

	// EventSendError fires when no response was received at all
	// (connection refused, timeout). No swap is attempted.
	EventSendError EventType = "hxdrive:send-error"

	// EventResponseError fires for non-2xx responses. Status and Body are
	// populated; the body is swapped only when Config.SwapErrorContent
	// opts in.
	EventResponseError EventType = "hxdrive:response-error"

	// EventBeforeSwap fires after a successful response, before the
	// primary fragment is applied. Cancel() skips the swap.
	EventBeforeSwap EventType = "hxdrive:before-swap"

	// EventAfterSwap fires once the primary fragment is in the document.
	EventAfterSwap EventType = "hxdrive:after-swap"

	// EventAfterSettle fires after the settle phase: settle delay elapsed,
	// scroll and focus adjusted, deferred server triggers dispatched.
	EventAfterSettle EventType = "hxdrive:after-settle"

	// EventTargetMissing fires when the primary swap target cannot be
	// resolved. The swap is skipped; nothing throws.
	EventTargetMissing EventType = "hxdrive:target-missing"

	// EventOOBMissing fires when an out-of-band fragment has no
	// id-matched node on the page. The fragment is dropped.
	EventOOBMissing EventType = "hxdrive:oob-missing"

	// EventParseError fires when an element's directives cannot be
	// parsed. That element's triggering is disabled; the rest of the
	// page is unaffected.
	EventParseError EventType = "hxdrive:parse-error"

	EventHistoryPush    EventType = "hxdrive:history-push"
	EventHistoryRestore EventType = "hxdrive:history-restore"
	EventHistoryMiss    EventType = "hxdrive:history-miss"

	// EventRedirect fires when an HX-Redirect header forces navigation.
	EventRedirect EventType = "hxdrive:redirect"

	// EventRefresh fires when an HX-Refresh header forces a full reload.
	EventRefresh EventType = "hxdrive:refresh"
)

// Event carries the context of one engine event. Server-fired triggers
// (HX-Trigger and friends) are delivered with Type set to the trigger
// name and Detail carrying the trigger payload.
type Event struct {
	Type      EventType
	ElementID string // id of the element that owns the interaction
	RequestID string
	URL       string
	Status    int
	Body      string
	Err       error
	Detail    map[string]any

	req       *RequestDescriptor // non-nil only for before-request
	cancelled bool
}

// Cancel suppresses the pending operation. On before-request it drops the
// request before any network activity; on before-swap it skips the
// primary swap (control headers and OOB fragments still apply).
func (ev *Event) Cancel() { ev.cancelled = true }

// Cancelled reports whether a listener cancelled the operation.
func (ev *Event) Cancelled() bool { return ev.cancelled }

// SetHeader mutates an outgoing request header. Valid only on
// before-request events; a no-op elsewhere.
func (ev *Event) SetHeader(key, value string) {
	if ev.req != nil {
		ev.req.Header.Set(key, value)
	}
}

// SetParam mutates an outgoing request parameter. Valid only on
// before-request events; a no-op elsewhere.
func (ev *Event) SetParam(key, value string) {
	if ev.req != nil {
		ev.req.Params.Set(key, value)
	}
}

// RequestHeaders exposes the outgoing headers on before-request events.
func (ev *Event) RequestHeaders() http.Header {
	if ev.req == nil {
		return nil
	}
	return ev.req.Header
}

// Listener observes engine events. Listeners run synchronously on the
// engine turn; they must not block.
type Listener func(*Event)

// On registers a listener for one event type, or for a named server
// trigger. It returns an unsubscribe function.
func (e *Engine) On(t EventType, fn Listener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextListener
	e.nextListener++
	e.handlers[t] = append(e.handlers[t], listenerEntry{id, fn})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		hs := e.handlers[t]
		for i, h := range hs {
			if h.id == id {
				e.handlers[t] = append(hs[:i:i], hs[i+1:]...)
				return
			}
		}
	}
}

// OnAny registers a listener for every engine event.
func (e *Engine) OnAny(fn Listener) func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextListener
	e.nextListener++
	e.anyHandlers = append(e.anyHandlers, listenerEntry{id, fn})
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		for i, h := range e.anyHandlers {
			if h.id == id {
				e.anyHandlers = append(e.anyHandlers[:i:i], e.anyHandlers[i+1:]...)
				return
			}
		}
	}
}

type listenerEntry struct {
	id int
	fn Listener
}

// emit dispatches an event to type listeners then any-listeners.
// Callers hold the engine mutex.
func (e *Engine) emit(ev *Event) {
	for _, h := range e.handlers[ev.Type] {
		h.fn(ev)
	}
	for _, h := range e.anyHandlers {
		h.fn(ev)
	}
}
