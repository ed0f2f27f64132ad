package denorm

// Filter is the query-side form of a descriptor's eligibility predicate,
// applied inside full-recompute SQL so the store filters eligible children
// itself instead of the engine filtering in process.
//
// Expr is a SQL condition fragment over child columns ("is_active = ?");
// Args are its placeholder values. A zero Filter matches every child.
//
// Filter and the in-process EligibleIf predicate must agree on every child
// row; the engine has no way to verify this and divergence silently breaks
// recompute correctness.
type Filter struct {
	Expr string
	Args []any
}

// IsZero reports whether the filter matches every child.
func (f Filter) IsZero() bool { return f.Expr == "" }
