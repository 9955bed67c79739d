package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/pthm/hxdrive"
)

// The demo application: a searchable fruit list with a counter and
// out-of-band toast notifications. Point `hxdrive drive` at it, or open
// it in a real browser with the htmx script tag added.

var fruits = []string{
	"apple", "apricot", "banana", "blueberry", "cherry",
	"grape", "mango", "peach", "pear", "plum",
}

type demoState struct {
	mu    sync.Mutex
	count int
}

func runDemo(args []string) error {
	fs := flag.NewFlagSet("demo", flag.ExitOnError)
	addr := fs.String("addr", ":8080", "listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	state := &demoState{}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", state.page)
	r.Get("/search", state.search)
	r.Post("/count", state.increment)

	logger.Info("demo listening", "addr", *addr)
	return http.ListenAndServe(*addr, r)
}

func (s *demoState) page(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	count := s.count
	s.mu.Unlock()

	page := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, `<!doctype html>
<html>
<body>
  <h1>hxdrive demo</h1>
  <div id="toast"></div>
  <input id="search" name="q" type="search"
         hx-get="/search" hx-trigger="input changed delay:300ms"
         hx-target="#results">
  <ul id="results"></ul>
  <button id="bump" hx-post="/count" hx-target="#count" hx-sync="this:drop">
    bump
  </button>
  <span id="count">%d</span>
</body>
</html>`, count)
		return err
	})
	_ = hxdrive.Render(w, r, page)
}

func (s *demoState) search(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))

	var matches []string
	for _, f := range fruits {
		if q != "" && strings.Contains(f, q) {
			matches = append(matches, f)
		}
	}

	list := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		for _, m := range matches {
			if _, err := fmt.Fprintf(w, "<li>%s</li>\n", m); err != nil {
				return err
			}
		}
		// Out-of-band toast reporting the match count.
		_, err := fmt.Fprintf(w,
			`<div id="toast" hx-swap-oob="true">%d matches for %q</div>`,
			len(matches), q)
		return err
	})
	_ = hxdrive.Render(w, r, list)
}

func (s *demoState) increment(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.count++
	count := s.count
	s.mu.Unlock()

	hxdrive.Trigger(w, hxdrive.NamedTrigger{
		Name:   "count-changed",
		Detail: map[string]any{"count": count},
	})
	frag := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := fmt.Fprintf(w, "%d", count)
		return err
	})
	_ = hxdrive.Render(w, r, frag)
}
