package hxdrive

import (
	"log/slog"
	"net/http"
	"time"
)

// Config tunes an Engine. The zero value is usable; New fills in
// defaults for anything left unset. Config is copied at construction
// and never read again from the caller's value.
type Config struct {
	// Logger receives structured diagnostics. Defaults to slog.Default.
	Logger *slog.Logger

	// Client performs the HTTP round trips. Defaults to a plain
	// http.Client; tests usually point it at an httptest server or swap
	// in a RoundTripper.
	Client *http.Client

	// DefaultSwap is the swap strategy applied when an element carries
	// no hx-swap directive. Defaults to SwapInner.
	DefaultSwap SwapMode

	// SwapErrorContent swaps the body of non-2xx responses into the
	// target. By default error bodies are surfaced only through the
	// response-error event and the page is left untouched.
	SwapErrorContent bool

	// HistorySize bounds the navigation snapshot cache. Defaults to 10.
	HistorySize int

	// ReloadOnHistoryMiss emits a refresh event before re-fetching a URL
	// whose snapshot is absent from the cache.
	ReloadOnHistoryMiss bool

	// Confirm answers hx-confirm directives. The default accepts
	// everything. Returning false drops the request before any network
	// activity.
	Confirm func(elementID, message string) bool

	// Prompt answers hx-prompt directives with the value carried in the
	// HX-Prompt request header. The default returns "".
	Prompt func(elementID, message string) string

	// RequestTimeout bounds each round trip. Zero means no timeout
	// beyond the client's own.
	RequestTimeout time.Duration
}

func (c Config) defaults() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Client == nil {
		c.Client = &http.Client{}
	}
	if c.DefaultSwap == "" {
		c.DefaultSwap = SwapInner
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 10
	}
	if c.Confirm == nil {
		c.Confirm = func(string, string) bool { return true }
	}
	if c.Prompt == nil {
		c.Prompt = func(string, string) string { return "" }
	}
	return c
}
