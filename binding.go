package hxdrive

import (
	"time"

	"golang.org/x/net/html"
)

// binding is the live state of one bound element: its parsed directives,
// trigger schedulers, pollers, and in-flight request. Bindings are
// created when an element enters the document and destroyed when it
// leaves; a destroyed binding's in-flight response is never swapped.
type binding struct {
	elt        *html.Node
	id         string
	directives *DirectiveSet
	schedulers []*scheduler
	sources    []*html.Node // nodes the schedulers listen on
	stopPolls  []func()
	inflight   *RequestDescriptor
	destroyed  bool
}

// bindTree walks a newly attached subtree, parsing directives and
// activating trigger schedulers. Elements under hx-disabled are skipped.
// load-class triggers on new nodes fire immediately.
// Callers hold the engine mutex.
func (e *Engine) bindTree(root *html.Node) {
	if root == nil || !e.doc.Contains(root) {
		return
	}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			if hasAttrFlag(n, AttrDisabled) {
				return
			}
			e.bindElement(n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
}

func (e *Engine) bindElement(n *html.Node) {
	if _, ok := e.bindings[n]; ok {
		return
	}

	d, err := parseDirectives(n, &e.cfg)
	if err != nil {
		e.emitParseError(attrValue(n, "id"), err)
		return
	}
	if d == nil {
		return
	}

	b := &binding{elt: n, id: attrValue(n, "id"), directives: d}
	e.bindings[n] = b

	for _, spec := range d.Triggers {
		switch {
		case spec.Poll > 0:
			e.startPoller(b, spec)
		case spec.Event == "load":
			// load triggers fire as soon as the element is bound.
			s := newScheduler(e, b, spec)
			b.schedulers = append(b.schedulers, s)
			s.fireLocked(DOMEvent{Type: "load"})
		default:
			s := newScheduler(e, b, spec)
			b.schedulers = append(b.schedulers, s)

			source := n
			if spec.From != "" {
				source = e.resolveFrom(n, spec.From)
				if source == nil {
					e.logger.Warn("hxdrive: trigger source not found",
						"element", b.id, "from", spec.From)
					continue
				}
			}
			b.sources = append(b.sources, source)
			e.listeners[source] = append(e.listeners[source], s)
		}
	}
}

// resolveFrom resolves a from:<selector> listener source. "document" and
// "body" are keywords; everything else is a selector, closest-form
// included.
func (e *Engine) resolveFrom(elt *html.Node, expr string) *html.Node {
	switch expr {
	case "document", "window":
		return e.doc.root
	case "body":
		return e.doc.Body()
	}
	return e.doc.resolveTarget(elt, expr)
}

// startPoller runs an independent repeating timer for an "every"
// trigger. It is not tied to a DOM event and stops when the element is
// destroyed.
func (e *Engine) startPoller(b *binding, spec TriggerSpec) {
	ticker := time.NewTicker(spec.Poll)
	done := make(chan struct{})
	b.stopPolls = append(b.stopPolls, func() {
		ticker.Stop()
		close(done)
	})

	filter := spec.Filter
	var clauses []filterClause
	if filter != "" {
		clauses, _ = parseFilter(filter)
	}

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				e.mu.Lock()
				if b.destroyed || e.closed {
					e.mu.Unlock()
					return
				}
				ev := DOMEvent{Type: "every"}
				if clauses == nil || evalFilter(clauses, ev) {
					if b.inflight == nil {
						e.issueRequest(b, ev)
					}
				}
				e.mu.Unlock()
			}
		}
	}()
}

// destroyBinding tears a binding down: schedulers stopped, pollers
// stopped, listener registrations removed.
func (e *Engine) destroyBinding(b *binding) {
	if b.destroyed {
		return
	}
	b.destroyed = true
	for _, s := range b.schedulers {
		s.stop()
	}
	for _, stop := range b.stopPolls {
		stop()
	}
	for _, source := range b.sources {
		ss := e.listeners[source]
		kept := ss[:0]
		for _, s := range ss {
			if s.binding != b {
				kept = append(kept, s)
			}
		}
		if len(kept) == 0 {
			delete(e.listeners, source)
		} else {
			e.listeners[source] = kept
		}
	}
	delete(e.bindings, b.elt)
}

// unbindTree destroys every binding within a detaching subtree.
func (e *Engine) unbindTree(root *html.Node) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if b, ok := e.bindings[n]; ok {
			e.destroyBinding(b)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
}

// unbindForSwap destroys the bindings a swap is about to detach:
// the target's children for inner swaps, the whole target for outer
// swaps and deletes, nothing for the insert-adjacent strategies.
func (e *Engine) unbindForSwap(target *html.Node, mode SwapMode) {
	switch mode {
	case SwapInner:
		for c := target.FirstChild; c != nil; c = c.NextSibling {
			e.unbindTree(c)
		}
	case SwapOuter, SwapDelete:
		e.unbindTree(target)
	}
}

func (e *Engine) emitParseError(eltID string, err error) {
	e.logger.Warn("hxdrive: directive parse failed", "element", eltID, "error", err)
	e.emit(&Event{Type: EventParseError, ElementID: eltID, Err: err})
}
