package denorm

import (
	"context"
	"fmt"
	"reflect"
)

// Lifecycle is the seam between the host store's record lifecycle and the
// tracker. The host is contractually required to invoke the callbacks: the
// engine never intercepts persistence transparently.
//
//   - Loaded after materializing a record from the store
//   - Created after the first successful persist
//   - Saved after every subsequent successful persist
//   - Deleted after a successful delete
//   - Refreshed after reloading fields from the store outside a persist
type Lifecycle[C any] struct {
	tracker  *Tracker[C]
	snapshot func(*C) *Snapshot[C]
}

// NewLifecycle builds the adapter. snapshot locates the record's embedded
// snapshot slot (e.g. func(m *Member) *denorm.Snapshot[Member] { return &m.Prev }).
func NewLifecycle[C any](tracker *Tracker[C], snapshot func(*C) *Snapshot[C]) (*Lifecycle[C], error) {
	const op = "denorm.lifecycle"
	if tracker == nil {
		return nil, NewError(CodeConfig, op, "lifecycle requires a tracker", nil)
	}
	if snapshot == nil {
		return nil, NewError(CodeConfig, op, "lifecycle requires a snapshot accessor", nil)
	}
	return &Lifecycle[C]{tracker: tracker, snapshot: snapshot}, nil
}

// Loaded captures the snapshot of a record just materialized from the store.
func (l *Lifecycle[C]) Loaded(c *C) {
	if c == nil {
		return
	}
	l.snapshot(c).Reset(*c)
}

// Created tracks a first persist and captures the snapshot. The snapshot is
// captured even when tracking fails: the row is persisted either way, and
// the snapshot must keep reflecting persisted state.
func (l *Lifecycle[C]) Created(ctx context.Context, c *C) error {
	if c == nil {
		return NewError(CodeConfig, "denorm.lifecycle.created", "nil record", nil)
	}
	defer l.snapshot(c).Reset(*c)
	return l.tracker.RecordCreated(ctx, c)
}

// Saved tracks a re-persist against the previous snapshot, then resets the
// snapshot to the just-written state. The previous version is consumed
// exactly once per update event.
func (l *Lifecycle[C]) Saved(ctx context.Context, c *C) error {
	const op = "denorm.lifecycle.saved"
	if c == nil {
		return NewError(CodeConfig, op, "nil record", nil)
	}
	prev, ok := l.snapshot(c).Previous()
	if !ok {
		return NewError(CodeConfig, op, "no previous snapshot; the record was never registered via Loaded or Created", nil)
	}
	defer l.snapshot(c).Reset(*c)
	return l.tracker.RecordUpdated(ctx, c, prev)
}

// Deleted tracks a delete using the record's pre-delete field values. No
// snapshot reset is needed; the record is gone.
func (l *Lifecycle[C]) Deleted(ctx context.Context, c *C) error {
	if c == nil {
		return NewError(CodeConfig, "denorm.lifecycle.deleted", "nil record", nil)
	}
	return l.tracker.RecordDeleted(ctx, c)
}

// Refreshed re-aligns the snapshot after the host reloaded the record from
// the store. With no field names the whole snapshot is recaptured; with
// names, only those struct fields are merged into the existing snapshot,
// matching a partial refresh that left the rest of the record untouched.
func (l *Lifecycle[C]) Refreshed(c *C, fields ...string) error {
	const op = "denorm.lifecycle.refreshed"
	if c == nil {
		return NewError(CodeConfig, op, "nil record", nil)
	}
	snap := l.snapshot(c)
	if len(fields) == 0 || !snap.Captured() {
		snap.Reset(*c)
		return nil
	}
	prev := reflect.ValueOf(snap.prev).Elem()
	cur := reflect.ValueOf(c).Elem()
	for _, name := range fields {
		field := prev.FieldByName(name)
		if !field.IsValid() || !field.CanSet() {
			return NewError(CodeConfig, op, fmt.Sprintf("unknown or unexported field %q", name), nil)
		}
		field.Set(cur.FieldByName(name))
	}
	return nil
}
