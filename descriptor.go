package denorm

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

// Descriptor configures one denormalized aggregate field: which parent column
// it lives in, which aggregate kind maintains it, and how child records map
// into the aggregated set. Descriptors are immutable after registration.
type Descriptor[C any] struct {
	// TargetField is the parent column holding the aggregate value.
	TargetField string

	// Kind selects the aggregate function.
	Kind Kind

	// SourceField is the child column aggregated for Sum/Min/Max.
	// Unused for Count.
	SourceField string

	// ParentField is the child column referencing the parent.
	ParentField string

	// ParentOf extracts the parent key from a child. uuid.Nil means the
	// child is unlinked and cannot affect any aggregate.
	ParentOf func(C) uuid.UUID

	// SourceOf extracts the aggregated value from a child. ok=false means
	// the in-memory value is not materialized (e.g. the host updated the
	// column with a relative expression); the engine then reloads the
	// authoritative value through the store. Unused for Count.
	SourceOf func(C) (float64, bool)

	// EligibleIf decides whether a child counts toward the aggregate,
	// independent of parent linkage. nil means every child is eligible.
	EligibleIf func(C) bool

	// Filter is the query-side twin of EligibleIf, applied inside
	// full-recompute SQL. The two must agree on every child row.
	Filter Filter
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks the descriptor for configuration errors. Trackers call it
// at registration; a failure there is fatal and never deferred to runtime.
func (d Descriptor[C]) Validate() error {
	const op = "denorm.descriptor"
	if d.Kind < KindCount || d.Kind > KindMax {
		return NewError(CodeConfig, op, fmt.Sprintf("unsupported aggregate kind %d for field %q", uint8(d.Kind), d.TargetField), nil)
	}
	if !identPattern.MatchString(d.TargetField) {
		return NewError(CodeConfig, op, fmt.Sprintf("target field %q is not a valid column name", d.TargetField), nil)
	}
	if !identPattern.MatchString(d.ParentField) {
		return NewError(CodeConfig, op, fmt.Sprintf("parent ref field %q is not a valid column name", d.ParentField), nil)
	}
	if d.ParentOf == nil {
		return NewError(CodeConfig, op, fmt.Sprintf("descriptor for %q has no ParentOf accessor", d.TargetField), nil)
	}
	if d.Kind.NeedsSource() {
		if !identPattern.MatchString(d.SourceField) {
			return NewError(CodeConfig, op, fmt.Sprintf("source field %q is not a valid column name", d.SourceField), nil)
		}
		if d.SourceOf == nil {
			return NewError(CodeConfig, op, fmt.Sprintf("%s descriptor for %q has no SourceOf accessor", d.Kind, d.TargetField), nil)
		}
	}
	return nil
}

func (d Descriptor[C]) eligible(c C) bool {
	if d.EligibleIf == nil {
		return true
	}
	return d.EligibleIf(c)
}

func (d Descriptor[C]) recomputeSpec() *RecomputeSpec {
	return &RecomputeSpec{
		ParentField: d.ParentField,
		SourceField: d.SourceField,
		Filter:      d.Filter,
	}
}
