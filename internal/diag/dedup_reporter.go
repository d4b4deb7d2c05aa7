package diag

import "sync"

type dedupKey struct {
	code Code
	sev  Severity
	loc  Location
	msg  string
}

// DedupReporter wraps another Reporter and suppresses duplicate diagnostics
// with the same code, severity, location and message. Codes listed as
// suppressed are dropped entirely. It is safe for concurrent use, so one
// instance can serve several compilations.
type DedupReporter struct {
	next       Reporter
	mu         sync.Mutex
	seen       map[dedupKey]struct{}
	suppressed map[Code]struct{}
}

// NewDedupReporter returns a Reporter that filters out duplicates and the
// suppressed codes while forwarding unique diagnostics to next.
func NewDedupReporter(next Reporter, suppress ...Code) *DedupReporter {
	r := &DedupReporter{
		next:       next,
		seen:       make(map[dedupKey]struct{}),
		suppressed: make(map[Code]struct{}, len(suppress)),
	}
	for _, c := range suppress {
		r.suppressed[c] = struct{}{}
	}
	return r
}

func (r *DedupReporter) Report(code Code, sev Severity, loc Location, msg string, notes []Note) {
	if r == nil {
		return
	}
	if _, drop := r.suppressed[code]; drop {
		return
	}
	key := dedupKey{code: code, sev: sev, loc: loc, msg: msg}
	r.mu.Lock()
	_, dup := r.seen[key]
	if !dup {
		r.seen[key] = struct{}{}
	}
	r.mu.Unlock()
	if dup {
		return
	}
	if r.next != nil {
		r.next.Report(code, sev, loc, msg, notes)
	}
}

// SyncReporter serializes calls to a Reporter that is not safe for
// concurrent use, such as BagReporter.
type SyncReporter struct {
	mu   sync.Mutex
	next Reporter
}

func NewSyncReporter(next Reporter) *SyncReporter {
	return &SyncReporter{next: next}
}

func (r *SyncReporter) Report(code Code, sev Severity, loc Location, msg string, notes []Note) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.next != nil {
		r.next.Report(code, sev, loc, msg, notes)
	}
}
