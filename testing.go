package hxdrive

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"

	"github.com/a-h/templ"
)

// Test harness for exercising an Engine against a real HTTP server.
// These helpers are exported so downstream projects can drive their own
// pages in integration tests.

// Recorder captures every engine event in order. Construct one before
// firing and assert on what arrived.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	unsub  func()
}

// NewRecorder subscribes to all events of e.
func NewRecorder(e *Engine) *Recorder {
	r := &Recorder{}
	r.unsub = e.OnAny(func(ev *Event) {
		r.mu.Lock()
		r.events = append(r.events, *ev)
		r.mu.Unlock()
	})
	return r
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// OfType returns the recorded events of one type.
func (r *Recorder) OfType(t EventType) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// Count returns how many events of type t arrived.
func (r *Recorder) Count(t EventType) int {
	return len(r.OfType(t))
}

// Wait blocks until an event of type t has been recorded or the timeout
// elapses.
func (r *Recorder) Wait(t EventType, timeout time.Duration) (Event, bool) {
	deadline := time.Now().Add(timeout)
	for {
		for _, ev := range r.OfType(t) {
			return ev, true
		}
		if time.Now().After(deadline) {
			return Event{}, false
		}
		time.Sleep(time.Millisecond)
	}
}

// Stop unsubscribes the recorder.
func (r *Recorder) Stop() {
	if r.unsub != nil {
		r.unsub()
	}
}

// ReceivedRequest is one request a FragmentServer saw.
type ReceivedRequest struct {
	Method string
	Path   string
	Params url.Values
	Header http.Header
}

// FragmentServer is an httptest server with per-path handlers and a
// request log, for driving an Engine end to end.
type FragmentServer struct {
	srv *httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []ReceivedRequest
}

// NewFragmentServer starts an empty server. Register handlers with
// Handle and friends; unregistered paths 404.
func NewFragmentServer() *FragmentServer {
	s := &FragmentServer{handlers: make(map[string]http.HandlerFunc)}
	s.srv = httptest.NewServer(http.HandlerFunc(s.serve))
	return s
}

func (s *FragmentServer) serve(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	s.mu.Lock()
	s.requests = append(s.requests, ReceivedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Params: r.Form,
		Header: r.Header.Clone(),
	})
	h := s.handlers[r.URL.Path]
	s.mu.Unlock()

	if h == nil {
		http.NotFound(w, r)
		return
	}
	h(w, r)
}

// URL returns the server's base URL.
func (s *FragmentServer) URL() string { return s.srv.URL }

// Client returns an HTTP client wired to the server.
func (s *FragmentServer) Client() *http.Client { return s.srv.Client() }

// Handle registers a handler for path.
func (s *FragmentServer) Handle(path string, fn http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[path] = fn
}

// HandleHTML registers a handler returning a fixed markup body.
func (s *FragmentServer) HandleHTML(path, markup string) {
	s.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(markup))
	})
}

// HandleComponent registers a handler rendering a templ component.
func (s *FragmentServer) HandleComponent(path string, c templ.Component) {
	s.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		_ = Render(w, r, c)
	})
}

// Requests returns a copy of every request seen so far.
func (s *FragmentServer) Requests() []ReceivedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ReceivedRequest(nil), s.requests...)
}

// CountPath returns how many requests hit path.
func (s *FragmentServer) CountPath(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, req := range s.requests {
		if req.Path == path {
			n++
		}
	}
	return n
}

// Close shuts the server down.
func (s *FragmentServer) Close() { s.srv.Close() }

// Gate holds responses open until released, for tests that need a
// request pinned in flight.
type Gate struct {
	once sync.Once
	ch   chan struct{}
}

// NewGate returns a closed gate.
func NewGate() *Gate {
	return &Gate{ch: make(chan struct{})}
}

// Release lets every held response proceed. Safe to call twice.
func (g *Gate) Release() {
	g.once.Do(func() { close(g.ch) })
}

// Hold wraps a handler so it blocks until the gate releases or the
// request is cancelled.
func (g *Gate) Hold(fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-g.ch:
		case <-r.Context().Done():
			return
		}
		fn(w, r)
	}
}
