// Package dedupe tracks which match ids have already been credited to a
// user, so history reconciliation stays at-most-once per match.
package dedupe

// Ledger is the in-memory view of a user's processed-match set. It is
// loaded from the store at the start of a job and consulted while the
// job walks the full match history.
type Ledger struct {
	seen map[string]struct{}
}

// NewLedger wraps an already-loaded seen set. A nil map means an empty
// ledger.
func NewLedger(seen map[string]struct{}) *Ledger {
	if seen == nil {
		seen = make(map[string]struct{})
	}
	return &Ledger{seen: seen}
}

// Seen reports whether id has already been credited.
func (l *Ledger) Seen(id string) bool {
	_, ok := l.seen[id]
	return ok
}

// Record marks id as credited.
func (l *Ledger) Record(id string) {
	l.seen[id] = struct{}{}
}

// Filter returns the ids not yet in the ledger, preserving input order.
// Duplicates within ids are collapsed to their first occurrence.
func (l *Ledger) Filter(ids []string) []string {
	out := make([]string, 0, len(ids))
	batch := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if l.Seen(id) {
			continue
		}
		if _, dup := batch[id]; dup {
			continue
		}
		batch[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// Size returns the number of credited matches.
func (l *Ledger) Size() int {
	return len(l.seen)
}
