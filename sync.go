package hxdrive

import (
	"fmt"
	"strings"
)

// SyncPolicy decides how competing requests within one sync scope are
// serialized or cancelled.
type SyncPolicy string

const (
	// SyncDrop discards a new submission while one is in flight
	// (drop-new). This is the default policy for a bare hx-sync scope.
	SyncDrop SyncPolicy = "drop"

	// SyncAbort cancels the in-flight request and starts the new one
	// immediately (abort-previous).
	SyncAbort SyncPolicy = "abort"

	// SyncReplace is an alias for abort-previous, kept for directive
	// surface compatibility.
	SyncReplace SyncPolicy = "replace"

	// SyncQueueFirst buffers the earliest submission and runs it after
	// the current request completes.
	SyncQueueFirst SyncPolicy = "queue first"

	// SyncQueueLast buffers only the most recent submission.
	SyncQueueLast SyncPolicy = "queue last"

	// SyncQueueAll buffers every submission and runs them in order.
	SyncQueueAll SyncPolicy = "queue all"
)

// SyncSpec is a parsed hx-sync value: the scope selector plus the policy.
type SyncSpec struct {
	Selector string
	Policy   SyncPolicy
}

// ParseSyncSpec parses "selector:policy". A missing policy defaults to
// drop; a bare "queue" defaults to queue last.
func ParseSyncSpec(value string) (SyncSpec, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return SyncSpec{}, fmt.Errorf("%w: empty expression", ErrMalformedSync)
	}

	sel, policy := value, ""
	if i := strings.LastIndexByte(value, ':'); i >= 0 {
		sel, policy = value[:i], strings.TrimSpace(value[i+1:])
	}
	sel = strings.TrimSpace(sel)
	if sel == "" {
		return SyncSpec{}, fmt.Errorf("%w: missing scope selector", ErrMalformedSync)
	}

	spec := SyncSpec{Selector: sel}
	switch policy {
	case "", string(SyncDrop):
		spec.Policy = SyncDrop
	case string(SyncAbort):
		spec.Policy = SyncAbort
	case string(SyncReplace):
		spec.Policy = SyncReplace
	case "queue", "queue last":
		spec.Policy = SyncQueueLast
	case "queue first":
		spec.Policy = SyncQueueFirst
	case "queue all":
		spec.Policy = SyncQueueAll
	default:
		return SyncSpec{}, fmt.Errorf("%w: unknown policy %q", ErrMalformedSync, policy)
	}
	return spec, nil
}

// syncGroup serializes requests sharing one scope. At most one request is
// in flight per group; queue policies buffer the rest.
type syncGroup struct {
	key      string
	inflight *RequestDescriptor
	queue    []*RequestDescriptor
}

// admit applies the submitting request's policy. It returns the request
// to start now (possibly req itself), or nil when req was queued or
// dropped. A cancelled sibling is aborted as a side effect.
func (g *syncGroup) admit(req *RequestDescriptor, policy SyncPolicy) *RequestDescriptor {
	if g.inflight == nil {
		g.inflight = req
		return req
	}

	switch policy {
	case SyncAbort, SyncReplace:
		g.inflight.abort()
		g.inflight = req
		return req
	case SyncQueueFirst:
		if len(g.queue) == 0 {
			g.queue = append(g.queue, req)
		} else {
			req.finish(ErrRequestDropped)
		}
	case SyncQueueLast:
		for _, q := range g.queue {
			q.finish(ErrRequestDropped)
		}
		g.queue = []*RequestDescriptor{req}
	case SyncQueueAll:
		g.queue = append(g.queue, req)
	default: // SyncDrop
		req.finish(ErrRequestDropped)
	}
	return nil
}

// complete clears the in-flight slot and returns the next queued request
// to start, if any. Buffered submissions run in order.
func (g *syncGroup) complete(req *RequestDescriptor) *RequestDescriptor {
	if g.inflight == req {
		g.inflight = nil
	}
	if g.inflight != nil || len(g.queue) == 0 {
		return nil
	}
	next := g.queue[0]
	g.queue = g.queue[1:]
	g.inflight = next
	return next
}
