package hxdrive

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/net/html"
)

// SwapMode defines the fixed set of insertion strategies for applying a
// response fragment to its target.
//
// Each mode corresponds to an hx-swap value. The default is SwapInner
// unless overridden by Config.DefaultSwap.
type SwapMode string

const (
	// SwapInner replaces only the target's contents, preserving the outer tag (innerHTML).
	// This is the default swap mode.
	SwapInner SwapMode = "innerHTML"

	// SwapOuter replaces the entire target including its tag (outerHTML).
	SwapOuter SwapMode = "outerHTML"

	// SwapBeforeEnd appends the fragment to the end of the target's contents (before closing tag).
	// Useful for adding items to lists.
	SwapBeforeEnd SwapMode = "beforeend"

	// SwapAfterEnd inserts the fragment after the target element (as next sibling).
	SwapAfterEnd SwapMode = "afterend"

	// SwapBeforeBegin inserts the fragment before the target element (as previous sibling).
	SwapBeforeBegin SwapMode = "beforebegin"

	// SwapAfterBegin prepends the fragment to the start of the target's contents (after opening tag).
	// Useful for prepending items to lists.
	SwapAfterBegin SwapMode = "afterbegin"

	// SwapDelete removes the target element entirely.
	// Fragment content is ignored.
	SwapDelete SwapMode = "delete"

	// SwapNone performs no swap - the fragment is discarded.
	// Useful for requests with only side effects or out-of-band content.
	SwapNone SwapMode = "none"
)

// ScrollBehavior positions the viewport after a swap settles.
type ScrollBehavior string

const (
	ScrollNone      ScrollBehavior = ""
	ScrollTargetTop ScrollBehavior = "top"
	ScrollTargetBot ScrollBehavior = "bottom"
	ScrollWindowTop ScrollBehavior = "window:top"
	ScrollWindowBot ScrollBehavior = "window:bottom"
)

// SwapSpec is a parsed hx-swap value: a strategy keyword plus
// space-separated modifiers.
type SwapSpec struct {
	Mode        SwapMode
	SwapDelay   time.Duration  // swap:<d> - wait before inserting
	SettleDelay time.Duration  // settle:<d> - wait before the settle phase
	Scroll      ScrollBehavior // scroll:top|bottom
	Show        ScrollBehavior // show:top|bottom|window:top|window:bottom
	FocusScroll bool           // focus-scroll:true - scroll the focused element into view
}

// parseSwapMode recognizes a bare strategy keyword.
func parseSwapMode(s string) (SwapMode, bool) {
	switch SwapMode(s) {
	case SwapInner, SwapOuter, SwapBeforeEnd, SwapAfterEnd,
		SwapBeforeBegin, SwapAfterBegin, SwapDelete, SwapNone:
		return SwapMode(s), true
	}
	return "", false
}

// ParseSwapSpec parses an hx-swap attribute value. An empty value yields
// the given default mode with no modifiers.
func ParseSwapSpec(value string, def SwapMode) (SwapSpec, error) {
	spec := SwapSpec{Mode: def}

	fields := strings.Fields(value)
	if len(fields) == 0 {
		return spec, nil
	}

	rest := fields
	if mode, ok := parseSwapMode(fields[0]); ok {
		spec.Mode = mode
		rest = fields[1:]
	}

	for _, f := range rest {
		key, val, hasVal := strings.Cut(f, ":")
		switch key {
		case "swap":
			d, err := time.ParseDuration(val)
			if err != nil {
				return spec, fmt.Errorf("%w: swap delay %q", ErrMalformedSwap, val)
			}
			spec.SwapDelay = d
		case "settle":
			d, err := time.ParseDuration(val)
			if err != nil {
				return spec, fmt.Errorf("%w: settle delay %q", ErrMalformedSwap, val)
			}
			spec.SettleDelay = d
		case "scroll":
			b, err := parseScrollBehavior(val)
			if err != nil {
				return spec, err
			}
			spec.Scroll = b
		case "show":
			b, err := parseScrollBehavior(val)
			if err != nil {
				return spec, err
			}
			spec.Show = b
		case "focus-scroll":
			spec.FocusScroll = val == "true"
		default:
			if !hasVal {
				return spec, fmt.Errorf("%w: unknown strategy %q", ErrMalformedSwap, key)
			}
			return spec, fmt.Errorf("%w: unknown modifier %q", ErrMalformedSwap, key)
		}
	}

	return spec, nil
}

func parseScrollBehavior(val string) (ScrollBehavior, error) {
	switch ScrollBehavior(val) {
	case ScrollTargetTop, ScrollTargetBot, ScrollWindowTop, ScrollWindowBot:
		return ScrollBehavior(val), nil
	}
	return ScrollNone, fmt.Errorf("%w: scroll behavior %q", ErrMalformedSwap, val)
}

// applySwap inserts nodes relative to target according to mode. The target
// must still be attached to doc; callers re-check liveness immediately
// before mutation, not only at request start.
func applySwap(doc *Document, target *html.Node, mode SwapMode, nodes []*html.Node) error {
	if mode != SwapNone && (target == nil || !doc.Contains(target)) {
		return ErrTargetMissing
	}

	switch mode {
	case SwapInner:
		removeChildren(target)
		for _, n := range nodes {
			target.AppendChild(n)
		}
	case SwapOuter:
		parent := target.Parent
		if parent == nil {
			return ErrTargetMissing
		}
		for _, n := range nodes {
			parent.InsertBefore(n, target)
		}
		parent.RemoveChild(target)
	case SwapBeforeBegin:
		parent := target.Parent
		if parent == nil {
			return ErrTargetMissing
		}
		for _, n := range nodes {
			parent.InsertBefore(n, target)
		}
	case SwapAfterBegin:
		first := target.FirstChild
		for _, n := range nodes {
			if first != nil {
				target.InsertBefore(n, first)
			} else {
				target.AppendChild(n)
			}
		}
	case SwapBeforeEnd:
		for _, n := range nodes {
			target.AppendChild(n)
		}
	case SwapAfterEnd:
		parent := target.Parent
		if parent == nil {
			return ErrTargetMissing
		}
		next := target.NextSibling
		for _, n := range nodes {
			if next != nil {
				parent.InsertBefore(n, next)
			} else {
				parent.AppendChild(n)
			}
		}
	case SwapDelete:
		if target.Parent == nil {
			return ErrTargetMissing
		}
		target.Parent.RemoveChild(target)
	case SwapNone:
		// Fragment discarded.
	default:
		return fmt.Errorf("%w: strategy %q", ErrMalformedSwap, mode)
	}
	return nil
}

func removeChildren(n *html.Node) {
	for n.FirstChild != nil {
		n.RemoveChild(n.FirstChild)
	}
}
