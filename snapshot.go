package denorm

// Snapshot holds the previous persisted version of a child record so the
// classifier can diff "before" against "after". It is owned exclusively by
// the record instance that embeds it and is never shared.
//
// Lifecycle: captured on record materialization (load or first persist),
// replaced after every successful persist, read exactly once per update
// event. It always reflects the last persisted state, never unsaved
// in-memory edits, which is why capture happens at load/post-persist time
// and never at mutation time.
//
// The copy is shallow; tracked source and parent-ref fields must be value
// types for the diff to be meaningful.
type Snapshot[C any] struct {
	prev *C
}

// Reset replaces the snapshot with the just-persisted state.
func (s *Snapshot[C]) Reset(cur C) {
	cp := cur
	s.prev = &cp
}

// Previous returns the last captured state. ok is false when nothing has
// been captured yet.
func (s *Snapshot[C]) Previous() (C, bool) {
	if s.prev == nil {
		var zero C
		return zero, false
	}
	return *s.prev, true
}

// Captured reports whether a previous version has been recorded.
func (s *Snapshot[C]) Captured() bool { return s != nil && s.prev != nil }
