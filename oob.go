package hxdrive

// applyOOB matches each out-of-band fragment to an existing node by id
// and applies that fragment's own swap mode, independent of the primary
// target's swap. A fragment with no match is dropped with a diagnostic
// event; a failure in one fragment never prevents the others, or the
// primary swap, from completing.
//
// Callers hold the engine mutex.
func (e *Engine) applyOOB(req *RequestDescriptor, frags []ResponseFragment) {
	for _, frag := range frags {
		target := e.doc.ByID(frag.OOBID)
		if frag.OOBID == "" || target == nil {
			e.logger.Warn("hxdrive: out-of-band fragment has no match",
				"request", req.ID, "oob_id", frag.OOBID)
			e.emit(&Event{
				Type:      EventOOBMissing,
				ElementID: req.binding.id,
				RequestID: req.ID,
				Err:       ErrOOBTargetMissing,
				Detail:    map[string]any{"id": frag.OOBID},
			})
			continue
		}

		e.unbindForSwap(target, frag.Mode)
		if err := applySwap(e.doc, target, frag.Mode, frag.Nodes); err != nil {
			e.logger.Warn("hxdrive: out-of-band swap failed",
				"request", req.ID, "oob_id", frag.OOBID, "error", err)
			continue
		}
		for _, n := range frag.Nodes {
			e.bindTree(n)
		}
	}
}
