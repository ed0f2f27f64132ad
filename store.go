package denorm

import (
	"context"

	"github.com/google/uuid"
)

// Op selects how a FieldOp updates the parent column.
type Op uint8

const (
	// OpSkip means the aggregate is unchanged; no store call is issued.
	OpSkip Op = iota
	// OpAdd is an atomic relative increment: field = field + Delta.
	OpAdd
	// OpClamp tightens a min/max bound toward Value:
	// field = COALESCE(LEAST(field, Value), Value) for min, GREATEST for max.
	OpClamp
	// OpRecompute re-derives the aggregate with a query over the current
	// eligible children and writes the scalar result.
	OpRecompute
)

func (o Op) String() string {
	switch o {
	case OpSkip:
		return "skip"
	case OpAdd:
		return "add"
	case OpClamp:
		return "clamp"
	default:
		return "recompute"
	}
}

// RecomputeSpec tells a store how to re-derive an aggregate from scratch:
// aggregate SourceField over children whose ParentField matches the parent
// being updated, restricted by Filter.
type RecomputeSpec struct {
	ParentField string
	SourceField string
	Filter      Filter
}

// FieldOp is one update directive for one parent column. Stores must express
// OpAdd and OpClamp relative to the stored value in a single statement; a
// read-modify-write rendition loses updates under concurrent writers.
type FieldOp struct {
	Field string
	Op    Op
	Kind  Kind

	// Delta is the OpAdd increment.
	Delta float64
	// Value is the OpClamp candidate bound.
	Value float64
	// Recompute describes the OpRecompute query.
	Recompute *RecomputeSpec
}

// Store is the boundary to the host data-access layer. Only Store methods
// touch persistence; classification and delta computation are pure.
type Store interface {
	// LoadParent dereferences a parent key through the given child ref
	// field. Returns (nil, nil) when the reference is absent or its target
	// no longer exists; that is not an error, it mirrors cascade-delete
	// races where the parent vanished between event dispatch and update.
	LoadParent(ctx context.Context, refField string, key uuid.UUID) (any, error)

	// Apply executes the given field directives against a parent loaded by
	// LoadParent, coalescing them into a single multi-field write where the
	// store supports it. Each directive is independent: no cross-field
	// transaction guarantee is required and partial application is
	// acceptable.
	Apply(ctx context.Context, parent any, ops []FieldOp) error

	// Refresh reloads a record's fields from the authoritative store after
	// a write made elsewhere, so callers observe the true post-write value.
	Refresh(ctx context.Context, record any) error

	// SourceValue reloads one child column's concrete value from the store,
	// used when the in-memory value is an unevaluated expression.
	SourceValue(ctx context.Context, child any, field string) (float64, error)
}
