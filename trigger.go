package hxdrive

import (
	"fmt"
	"strings"
	"time"
)

// DOMEvent is a user or environment event delivered into the engine.
// Headless drivers construct these explicitly; there is no real browser
// event object behind them.
type DOMEvent struct {
	// Type is the event name ("click", "keyup", "submit", "change", ...).
	Type string

	// Value, when non-empty, is written to the target element's value
	// before triggering, mimicking what an input control would hold.
	Value string

	// Fields are the filter-visible properties of the event
	// ("key", "ctrlKey", "shiftKey", ...).
	Fields map[string]any
}

// QueueMode controls what happens to events arriving while the owning
// element already has a request in flight.
type QueueMode string

const (
	QueueLast  QueueMode = "last" // keep only the most recent event (default)
	QueueFirst QueueMode = "first"
	QueueAll   QueueMode = "all"
	QueueNone  QueueMode = "none" // discard events while busy
)

// TriggerSpec is one parsed (event, modifiers) pair from an hx-trigger
// expression. Specs are immutable once parsed.
type TriggerSpec struct {
	Event    string        // event name, or "every" for polling
	Filter   string        // raw predicate from [...]
	Once     bool          // detach after first fire
	Changed  bool          // suppress if value unchanged since last fire
	Consume  bool          // stop propagation to ancestor listeners
	Delay    time.Duration // debounce window
	Throttle time.Duration // rate-limit window
	From     string        // listen on a different node
	Poll     time.Duration // polling interval for "every"
	Queue    QueueMode
}

// ParseTriggerSpecs parses an hx-trigger attribute: a comma-separated
// list of event specs, each an event name followed by an optional
// [filter] and space-separated modifiers.
func ParseTriggerSpecs(value string) ([]TriggerSpec, error) {
	var specs []TriggerSpec
	for _, part := range splitTopLevel(value, ',') {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		spec, err := parseTriggerSpec(part)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("%w: empty expression", ErrMalformedTrigger)
	}
	return specs, nil
}

func parseTriggerSpec(part string) (TriggerSpec, error) {
	spec := TriggerSpec{Queue: QueueLast}

	tokens := splitTopLevel(part, ' ')
	if len(tokens) == 0 {
		return spec, fmt.Errorf("%w: empty spec", ErrMalformedTrigger)
	}

	head := tokens[0]
	if i := strings.IndexByte(head, '['); i >= 0 {
		if !strings.HasSuffix(head, "]") {
			return spec, fmt.Errorf("%w: unterminated filter in %q", ErrMalformedTrigger, part)
		}
		spec.Filter = head[i+1 : len(head)-1]
		if _, err := parseFilter(spec.Filter); err != nil {
			return spec, err
		}
		head = head[:i]
	}
	if head == "" {
		return spec, fmt.Errorf("%w: missing event name in %q", ErrMalformedTrigger, part)
	}
	spec.Event = head

	rest := tokens[1:]

	// Polling: "every 2s".
	if spec.Event == "every" {
		if len(rest) == 0 {
			return spec, fmt.Errorf("%w: every needs an interval", ErrMalformedTrigger)
		}
		d, err := time.ParseDuration(rest[0])
		if err != nil || d <= 0 {
			return spec, fmt.Errorf("%w: bad poll interval %q", ErrMalformedTrigger, rest[0])
		}
		spec.Poll = d
		rest = rest[1:]
	}

	for _, tok := range rest {
		key, val, _ := strings.Cut(tok, ":")
		switch key {
		case "once":
			spec.Once = true
		case "changed":
			spec.Changed = true
		case "consume":
			spec.Consume = true
		case "delay":
			d, err := time.ParseDuration(val)
			if err != nil {
				return spec, fmt.Errorf("%w: delay %q", ErrMalformedTrigger, val)
			}
			spec.Delay = d
		case "throttle":
			d, err := time.ParseDuration(val)
			if err != nil {
				return spec, fmt.Errorf("%w: throttle %q", ErrMalformedTrigger, val)
			}
			spec.Throttle = d
		case "from":
			if val == "" {
				return spec, fmt.Errorf("%w: from needs a selector", ErrMalformedTrigger)
			}
			spec.From = val
		case "queue":
			switch QueueMode(val) {
			case QueueFirst, QueueLast, QueueAll, QueueNone:
				spec.Queue = QueueMode(val)
			default:
				return spec, fmt.Errorf("%w: queue mode %q", ErrMalformedTrigger, val)
			}
		default:
			return spec, fmt.Errorf("%w: unknown modifier %q", ErrMalformedTrigger, tok)
		}
	}

	return spec, nil
}

// splitTopLevel splits on sep outside [...] brackets.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
		case sep:
			if depth == 0 {
				if p := strings.TrimSpace(s[start:i]); p != "" {
					parts = append(parts, p)
				}
				start = i + 1
			}
		}
	}
	if p := strings.TrimSpace(s[start:]); p != "" {
		parts = append(parts, p)
	}
	return parts
}

// filterClause is one conjunct of a trigger filter predicate.
type filterClause struct {
	field  string
	negate bool
	op     string // "", "==", "!="
	value  string
}

// parseFilter parses the predicate grammar:
//
//	clause ( "&&" clause )*
//	clause = field | !field | field == 'lit' | field != 'lit'
func parseFilter(expr string) ([]filterClause, error) {
	var clauses []filterClause
	for _, raw := range strings.Split(expr, "&&") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return nil, fmt.Errorf("%w: empty filter clause", ErrMalformedTrigger)
		}
		var c filterClause
		if op := "=="; strings.Contains(raw, op) {
			c = splitClause(raw, op)
		} else if op := "!="; strings.Contains(raw, op) {
			c = splitClause(raw, op)
		} else if strings.HasPrefix(raw, "!") {
			c = filterClause{field: strings.TrimSpace(raw[1:]), negate: true}
		} else {
			c = filterClause{field: raw}
		}
		if c.field == "" || strings.ContainsAny(c.field, " '\"") {
			return nil, fmt.Errorf("%w: bad filter clause %q", ErrMalformedTrigger, raw)
		}
		clauses = append(clauses, c)
	}
	return clauses, nil
}

func splitClause(raw, op string) filterClause {
	lhs, rhs, _ := strings.Cut(raw, op)
	return filterClause{
		field: strings.TrimSpace(lhs),
		op:    op,
		value: strings.Trim(strings.TrimSpace(rhs), `'"`),
	}
}

// evalFilter evaluates a predicate against an event's fields.
// Non-matching events are discarded before modifiers run.
func evalFilter(clauses []filterClause, ev DOMEvent) bool {
	for _, c := range clauses {
		val, ok := ev.Fields[c.field]
		switch c.op {
		case "==":
			if !ok || fmt.Sprint(val) != c.value {
				return false
			}
		case "!=":
			if ok && fmt.Sprint(val) == c.value {
				return false
			}
		default:
			truthy := ok && val != false && val != "" && val != nil
			if truthy == c.negate {
				return false
			}
		}
	}
	return true
}

// scheduler owns the trigger state for one (binding, spec) pair: debounce
// timer, throttle window, change tracking, once latch, and the busy queue.
// All methods run under the engine mutex.
type scheduler struct {
	engine  *Engine
	binding *binding
	spec    TriggerSpec
	filter  []filterClause

	detached      bool
	lastValue     string
	hasLastValue  bool
	throttleUntil time.Time
	delayTimer    *time.Timer
	queued        []DOMEvent
}

func newScheduler(e *Engine, b *binding, spec TriggerSpec) *scheduler {
	s := &scheduler{engine: e, binding: b, spec: spec}
	if spec.Filter != "" {
		// Validated at parse time; error unreachable here.
		s.filter, _ = parseFilter(spec.Filter)
	}
	return s
}

// handle processes one delivered event. Returns true when the event was
// accepted (passed the filter), which consume uses to stop propagation.
func (s *scheduler) handle(ev DOMEvent) bool {
	if s.detached || s.binding.destroyed {
		return false
	}
	if s.filter != nil && !evalFilter(s.filter, ev) {
		return false
	}

	// While the element is busy, buffer per queue mode and replay on
	// completion. An element with a drop, abort, or replace sync policy
	// skips the buffer: the coordinator decides what happens to the new
	// submission.
	if s.binding.inflight != nil && !s.syncHandlesBusy() {
		switch s.spec.Queue {
		case QueueNone:
		case QueueFirst:
			if len(s.queued) == 0 {
				s.queued = append(s.queued, ev)
			}
		case QueueAll:
			s.queued = append(s.queued, ev)
		default: // QueueLast
			s.queued = []DOMEvent{ev}
		}
		return true
	}

	if s.spec.Delay > 0 {
		// Debounce: restart the window on every qualifying event.
		if s.delayTimer != nil {
			s.delayTimer.Stop()
		}
		s.delayTimer = time.AfterFunc(s.spec.Delay, func() {
			s.engine.mu.Lock()
			defer s.engine.mu.Unlock()
			s.fireLocked(ev)
		})
		return true
	}

	if s.spec.Throttle > 0 {
		now := time.Now()
		if now.Before(s.throttleUntil) {
			return true
		}
		s.throttleUntil = now.Add(s.spec.Throttle)
	}

	s.fireLocked(ev)
	return true
}

func (s *scheduler) syncHandlesBusy() bool {
	switch s.binding.directives.Sync.Policy {
	case SyncDrop, SyncAbort, SyncReplace:
		return s.binding.directives.Sync.Selector != ""
	}
	return false
}

// fireLocked performs the changed check and issues the request.
// Callers hold the engine mutex.
func (s *scheduler) fireLocked(ev DOMEvent) {
	if s.detached || s.binding.destroyed {
		return
	}

	if s.spec.Changed {
		current := inputValue(s.binding.elt)
		if s.hasLastValue && current == s.lastValue {
			return
		}
		s.lastValue = current
		s.hasLastValue = true
	}

	if s.spec.Once {
		s.detached = true
	}

	s.engine.issueRequest(s.binding, ev)
}

// flushQueue replays buffered events after the element's request
// completes.
func (s *scheduler) flushQueue() {
	if len(s.queued) == 0 {
		return
	}
	pending := s.queued
	s.queued = nil
	for _, ev := range pending {
		if s.binding.inflight != nil {
			// A replayed event started a new request; re-buffer the rest.
			s.queued = append(s.queued, ev)
			continue
		}
		s.handle(ev)
	}
}

// stop cancels any pending debounce timer and detaches the scheduler.
func (s *scheduler) stop() {
	s.detached = true
	if s.delayTimer != nil {
		s.delayTimer.Stop()
		s.delayTimer = nil
	}
	s.queued = nil
}
