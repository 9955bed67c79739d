package hxdrive

import (
	"time"

	"golang.org/x/net/html"

	"github.com/pthm/hxdrive/lib/snapshot"
)

// History attributes. The designated root is the element carrying
// hx-history-elt (default: body). hx-history="false" anywhere on the
// page excludes it from caching, for sensitive or volatile content.
const (
	HistoryEltAttr = "hx-history-elt"
	HistoryAttr    = "hx-history"
)

// HistoryEntry is a restorable snapshot of the designated history root,
// keyed by URL.
type HistoryEntry struct {
	URL       string
	Content   string
	Scroll    ScrollState
	Timestamp time.Time
}

// historyCache is a bounded LRU of encoded snapshots. Entries are stored
// in their packed form so a corrupted entry is caught on restore.
type historyCache struct {
	capacity int
	order    []string // oldest first
	entries  map[string]string
}

func newHistoryCache(capacity int) *historyCache {
	return &historyCache{capacity: capacity, entries: make(map[string]string)}
}

func (c *historyCache) put(entry HistoryEntry) error {
	encoded, err := snapshot.Encode(snapshot.Snapshot{
		URL:          entry.URL,
		Content:      entry.Content,
		ScrollTarget: entry.Scroll.TargetID,
		ScrollPos:    entry.Scroll.Position,
		Timestamp:    entry.Timestamp.UnixMilli(),
	})
	if err != nil {
		return err
	}

	if _, exists := c.entries[entry.URL]; exists {
		c.touch(entry.URL)
	} else {
		c.order = append(c.order, entry.URL)
		if len(c.order) > c.capacity {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
	}
	c.entries[entry.URL] = encoded
	return nil
}

func (c *historyCache) get(url string) (HistoryEntry, bool, error) {
	encoded, ok := c.entries[url]
	if !ok {
		return HistoryEntry{}, false, nil
	}

	s, err := snapshot.Decode(encoded)
	if err != nil {
		// A corrupted entry behaves like a miss and is purged.
		c.remove(url)
		return HistoryEntry{}, false, err
	}

	c.touch(url)
	return HistoryEntry{
		URL:       s.URL,
		Content:   s.Content,
		Scroll:    ScrollState{TargetID: s.ScrollTarget, Position: s.ScrollPos},
		Timestamp: time.UnixMilli(s.Timestamp),
	}, true, nil
}

func (c *historyCache) touch(url string) {
	for i, u := range c.order {
		if u == url {
			c.order = append(c.order[:i], c.order[i+1:]...)
			c.order = append(c.order, url)
			return
		}
	}
}

func (c *historyCache) remove(url string) {
	delete(c.entries, url)
	for i, u := range c.order {
		if u == url {
			c.order = append(c.order[:i], c.order[i+1:]...)
			return
		}
	}
}

func (c *historyCache) len() int { return len(c.order) }

// historyRoot returns the designated restorable region.
func (e *Engine) historyRoot() *html.Node {
	if n := e.doc.Query("[" + HistoryEltAttr + "]"); n != nil {
		return n
	}
	return e.doc.Body()
}

// snapshotCurrent captures the history root's content for the current
// URL. Pages flagged hx-history="false" are excluded from caching.
// Snapshots are taken before a navigation-triggered swap, so a restored
// page shows state as-departed.
func (e *Engine) snapshotCurrent() {
	if e.doc == nil {
		return
	}
	if n := e.doc.Query("[" + HistoryAttr + "=false]"); n != nil {
		e.logger.Debug("hxdrive: page excluded from history cache", "url", e.doc.url)
		return
	}
	root := e.historyRoot()
	if root == nil {
		return
	}
	entry := HistoryEntry{
		URL:       e.doc.url,
		Content:   renderChildren(root),
		Scroll:    e.doc.scroll,
		Timestamp: time.Now(),
	}
	if err := e.history.put(entry); err != nil {
		e.logger.Warn("hxdrive: history snapshot failed", "url", e.doc.url, "error", err)
	}
}

// pushLocation records a push/replace navigation in the location stack.
// Callers hold the engine mutex and have already snapshotted the
// departing page.
func (e *Engine) pushLocation(url string, replace bool) {
	if replace {
		if len(e.stack) == 0 {
			e.stack = []string{url}
			e.stackPos = 0
		} else {
			e.stack[e.stackPos] = url
		}
	} else {
		e.stack = append(e.stack[:e.stackPos+1], url)
		e.stackPos = len(e.stack) - 1
	}
	e.doc.url = url

	t := EventHistoryPush
	if replace {
		// Replace navigations reuse the push event with a detail flag;
		// the stack position did not advance.
		e.emit(&Event{Type: t, URL: url, Detail: map[string]any{"replace": true}})
		return
	}
	e.emit(&Event{Type: t, URL: url})
}

// Back navigates one entry backwards, restoring the cached snapshot for
// that URL without a network call. On a cache miss the URL is fetched
// fresh (or, with Config.ReloadOnHistoryMiss, a full reload is signalled
// before fetching).
func (e *Engine) Back() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return ErrNoDocument
	}
	if e.stackPos <= 0 {
		return nil
	}
	e.snapshotCurrent()
	e.stackPos--
	return e.restoreLocation(e.stack[e.stackPos])
}

// Forward navigates one entry forwards. Same restoration semantics as Back.
func (e *Engine) Forward() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return ErrNoDocument
	}
	if e.stackPos >= len(e.stack)-1 {
		return nil
	}
	e.snapshotCurrent()
	e.stackPos++
	return e.restoreLocation(e.stack[e.stackPos])
}

func (e *Engine) restoreLocation(url string) error {
	entry, ok, err := e.history.get(url)
	if err != nil {
		e.logger.Warn("hxdrive: corrupted history entry", "url", url, "error", err)
	}
	if !ok {
		e.emit(&Event{Type: EventHistoryMiss, URL: url, Err: err})
		if e.cfg.ReloadOnHistoryMiss {
			e.emit(&Event{Type: EventRefresh, URL: url})
		}
		return e.navigateLocked(url)
	}

	root := e.historyRoot()
	if root == nil {
		return ErrNoDocument
	}

	nodes, err := ParseFragmentNodes(entry.Content)
	if err != nil {
		return err
	}

	e.unbindForSwap(root, SwapInner)
	if err := applySwap(e.doc, root, SwapInner, nodes); err != nil {
		return err
	}
	e.doc.url = url
	e.doc.scroll = entry.Scroll
	for _, n := range nodes {
		e.bindTree(n)
	}

	e.emit(&Event{Type: EventHistoryRestore, URL: url})
	return nil
}

// Location returns the current browser URL.
func (e *Engine) Location() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.doc == nil {
		return ""
	}
	return e.doc.url
}
