package hxdrive

import "errors"

// Sentinel errors for engine operations.
var (
	ErrMalformedDirective = errors.New("hxdrive: malformed directive")
	ErrMalformedTrigger   = errors.New("hxdrive: malformed trigger spec")
	ErrMalformedSwap      = errors.New("hxdrive: malformed swap spec")
	ErrMalformedSync      = errors.New("hxdrive: malformed sync spec")
	ErrTargetMissing      = errors.New("hxdrive: swap target not found")
	ErrOOBTargetMissing   = errors.New("hxdrive: out-of-band target not found")
	ErrRequestDropped     = errors.New("hxdrive: request dropped by sync policy")
	ErrRequestAborted     = errors.New("hxdrive: request aborted")
	ErrNetwork            = errors.New("hxdrive: network failure")
	ErrEngineClosed       = errors.New("hxdrive: engine closed")
	ErrNoDocument         = errors.New("hxdrive: no document loaded")
)

// IsParseError checks if err came from directive, trigger, swap, or sync parsing.
func IsParseError(err error) bool {
	return errors.Is(err, ErrMalformedDirective) ||
		errors.Is(err, ErrMalformedTrigger) ||
		errors.Is(err, ErrMalformedSwap) ||
		errors.Is(err, ErrMalformedSync)
}

// IsTargetMissing checks if err is a primary or OOB target-resolution failure.
func IsTargetMissing(err error) bool {
	return errors.Is(err, ErrTargetMissing) || errors.Is(err, ErrOOBTargetMissing)
}

// IsCancellation checks if err represents a sync-policy cancellation.
// Cancellations are not failures: the coordinator suppressed the request
// on purpose and no diagnostic event is owed.
func IsCancellation(err error) bool {
	return errors.Is(err, ErrRequestAborted) || errors.Is(err, ErrRequestDropped)
}
