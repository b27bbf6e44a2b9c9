package session

import "time"

// window is an ordered list of request instants. Entries older than the
// active width are pruned lazily on each access, so the slice never grows
// past the cap plus whatever expired since the last check.
type window struct {
	entries []time.Time
}

// prune drops entries at or before cutoff. Entries are appended in time
// order, so the survivors are a suffix.
func (w *window) prune(cutoff time.Time) {
	i := 0
	for i < len(w.entries) && !w.entries[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.entries = append(w.entries[:0], w.entries[i:]...)
	}
}

func (w *window) record(t time.Time) {
	w.entries = append(w.entries, t)
}

func (w *window) count() int {
	return len(w.entries)
}
