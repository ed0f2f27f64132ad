package gormstore

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/denorm"
)

// AggregateSQL returns the SQL aggregate expression for a kind over a child
// column. Count and Sum coalesce to 0 so an empty eligible set lands on a
// definite value; Min and Max stay NULL-able, an empty set has no extremum.
func AggregateSQL(kind denorm.Kind, sourceColumn string) string {
	switch kind {
	case denorm.KindCount:
		return "COUNT(*)"
	case denorm.KindSum:
		return fmt.Sprintf("COALESCE(SUM(%s), 0)", sourceColumn)
	case denorm.KindMin:
		return fmt.Sprintf("MIN(%s)", sourceColumn)
	default:
		return fmt.Sprintf("MAX(%s)", sourceColumn)
	}
}

// clampExpr tightens a stored min/max bound toward value in a single
// relative expression. Postgres spells two-argument extremum LEAST/GREATEST;
// SQLite spells it with scalar min()/max(). COALESCE seeds a NULL bound
// (empty set) with the candidate itself.
func clampExpr(dialect string, kind denorm.Kind, field string, value float64) any {
	fn := leastFn(dialect)
	if kind == denorm.KindMax {
		fn = greatestFn(dialect)
	}
	return gorm.Expr(fmt.Sprintf("COALESCE(%s(%s, ?), ?)", fn, field), value, value)
}

func leastFn(dialect string) string {
	if dialect == "sqlite" {
		return "MIN"
	}
	return "LEAST"
}

func greatestFn(dialect string) string {
	if dialect == "sqlite" {
		return "MAX"
	}
	return "GREATEST"
}
