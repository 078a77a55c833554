package workflow

// Queue is the ordered list of clips waiting to be trimmed. Duplicates and
// overlaps are kept as entered. Queue is not safe for concurrent use; the
// Session serialises access.
type Queue struct {
	items []ClipRange
}

// Append adds r to the end. Invalid ranges are refused and leave the queue
// untouched.
func (q *Queue) Append(r ClipRange) bool {
	if !r.Valid() {
		return false
	}
	q.items = append(q.items, r)
	return true
}

// RemoveAt drops the entry at i. Indexes outside [0, Len) are ignored.
func (q *Queue) RemoveAt(i int) bool {
	if i < 0 || i >= len(q.items) {
		return false
	}
	q.items = append(q.items[:i:i], q.items[i+1:]...)
	return true
}

func (q *Queue) Clear() {
	q.items = nil
}

func (q *Queue) Len() int {
	return len(q.items)
}

// Snapshot returns a copy that later mutations cannot reach.
func (q *Queue) Snapshot() []ClipRange {
	out := make([]ClipRange, len(q.items))
	copy(out, q.items)
	return out
}
