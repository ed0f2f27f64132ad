package denorm

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/denorm/pkg/logger"
)

// Tracker is the incremental aggregate maintenance engine for one child
// record type. It is handed its descriptors at construction (no ambient
// registration) and invoked synchronously by the host's lifecycle adapter
// within the request handling the triggering mutation.
type Tracker[C any] struct {
	store       Store
	log         *logger.Logger
	descriptors []Descriptor[C]
}

// NewTracker validates the descriptors and builds a tracker. Configuration
// errors (unsupported kinds, missing accessors, duplicate target fields)
// fail here, never at event time.
func NewTracker[C any](store Store, baseLog *logger.Logger, descriptors ...Descriptor[C]) (*Tracker[C], error) {
	const op = "denorm.tracker"
	if store == nil {
		return nil, NewError(CodeConfig, op, "tracker requires a store", nil)
	}
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	seen := make(map[string]struct{}, len(descriptors))
	for _, d := range descriptors {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[d.TargetField]; dup {
			return nil, NewError(CodeConfig, op, fmt.Sprintf("target field %q is owned by more than one descriptor", d.TargetField), nil)
		}
		seen[d.TargetField] = struct{}{}
	}
	return &Tracker[C]{
		store:       store,
		log:         baseLog.With("component", "denorm.Tracker"),
		descriptors: descriptors,
	}, nil
}

// Descriptors returns the registered descriptors.
func (t *Tracker[C]) Descriptors() []Descriptor[C] { return t.descriptors }

// RecordCreated reacts to a child record having been persisted for the
// first time.
func (t *Tracker[C]) RecordCreated(ctx context.Context, cur *C) error {
	return t.track(ctx, eventCreated, cur, nil)
}

// RecordUpdated reacts to a child record having been re-persisted. prev must
// be the last persisted state (the previous snapshot), not any unsaved
// in-memory mutation.
func (t *Tracker[C]) RecordUpdated(ctx context.Context, cur *C, prev C) error {
	return t.track(ctx, eventUpdated, cur, &prev)
}

// RecordDeleted reacts to a child record having been deleted; cur carries
// the pre-delete field values.
func (t *Tracker[C]) RecordDeleted(ctx context.Context, cur *C) error {
	return t.track(ctx, eventDeleted, cur, nil)
}

// parentRef identifies one parent within one event: the same key reached
// through two different ref fields is two different parents.
type parentRef struct {
	field string
	key   uuid.UUID
}

func (t *Tracker[C]) track(ctx context.Context, ev eventKind, cur, prev *C) error {
	const op = "denorm.track"
	if cur == nil {
		return NewError(CodeConfig, op, "nil record", nil)
	}

	// collect directives from all descriptors, coalesced per parent so each
	// parent receives one multi-field write
	var order []parentRef
	pending := make(map[parentRef][]FieldOp)
	for _, d := range t.descriptors {
		for _, tr := range d.classify(ev, *cur, prev) {
			fieldOp, err := t.fieldOp(ctx, d, tr, cur, prev)
			if err != nil {
				return err
			}
			if fieldOp.Op == OpSkip {
				continue
			}
			ref := parentRef{field: d.ParentField, key: tr.Parent}
			if _, seen := pending[ref]; !seen {
				order = append(order, ref)
			}
			pending[ref] = append(pending[ref], fieldOp)
		}
	}

	var errs []error
	for _, ref := range order {
		if err := t.applyToParent(ctx, ref, pending[ref]); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		t.log.Error("aggregate update failed", "event", ev.String(), "errors", len(errs))
	}
	return errors.Join(errs...)
}

func (t *Tracker[C]) applyToParent(ctx context.Context, ref parentRef, ops []FieldOp) error {
	parent, err := t.store.LoadParent(ctx, ref.field, ref.key)
	if err != nil {
		return Wrap(CodeStore, "denorm.track.load_parent", err)
	}
	if parent == nil {
		// dangling reference: the parent vanished between event dispatch
		// and update (cascade delete), the directives are dropped
		t.log.Debug("parent reference unresolved, dropping update",
			"ref_field", ref.field, "parent_key", ref.key.String())
		return nil
	}
	if err := t.store.Apply(ctx, parent, ops); err != nil {
		return Wrap(CodeStore, "denorm.track.apply", err)
	}
	if err := t.store.Refresh(ctx, parent); err != nil {
		return Wrap(CodeStore, "denorm.track.refresh", err)
	}
	return nil
}

// Resync forces a full recompute of every descriptor reached through the
// given ref field for one parent. Used for disaster recovery and schema
// migration; unlike event handling, a missing parent is an error here.
func (t *Tracker[C]) Resync(ctx context.Context, refField string, key uuid.UUID) error {
	const op = "denorm.resync"
	var ops []FieldOp
	for _, d := range t.descriptors {
		if d.ParentField != refField {
			continue
		}
		ops = append(ops, FieldOp{
			Field:     d.TargetField,
			Op:        OpRecompute,
			Kind:      d.Kind,
			Recompute: d.recomputeSpec(),
		})
	}
	if len(ops) == 0 {
		return NewError(CodeConfig, op, fmt.Sprintf("no descriptor uses parent ref field %q", refField), nil)
	}
	parent, err := t.store.LoadParent(ctx, refField, key)
	if err != nil {
		return Wrap(CodeStore, op, err)
	}
	if parent == nil {
		return NewError(CodeNotFound, op, fmt.Sprintf("parent %s not found via %q", key, refField), nil)
	}
	if err := t.store.Apply(ctx, parent, ops); err != nil {
		return Wrap(CodeStore, op, err)
	}
	if err := t.store.Refresh(ctx, parent); err != nil {
		return Wrap(CodeStore, op, err)
	}
	t.log.Info("aggregates resynced", "ref_field", refField, "parent_key", key.String(), "fields", len(ops))
	return nil
}

// ResyncMany resyncs a set of parents with bounded concurrency. Recompute
// writes are idempotent, so concurrent resyncs of different parents are
// safe; concurrency <= 0 means sequential.
func (t *Tracker[C]) ResyncMany(ctx context.Context, refField string, keys []uuid.UUID, concurrency int) error {
	if concurrency <= 0 {
		concurrency = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, key := range keys {
		key := key
		g.Go(func() error {
			return t.Resync(gctx, refField, key)
		})
	}
	return g.Wait()
}
