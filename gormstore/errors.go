package gormstore

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/denorm"
)

// MapError translates driver and ORM failures into coded engine errors.
// Errors that already carry a code pass through unchanged.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var coded *denorm.Error
	if errors.As(err, &coded) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return denorm.Wrap(denorm.CodeNotFound, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return denorm.Wrap(denorm.CodeRetryable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23503":
			// foreign_key_violation: the referenced parent is gone
			return denorm.Wrap(denorm.CodeUnresolvedParent, op, err)
		case "40001", "40P01", "55P03":
			// serialization/deadlock/lock_not_available
			return denorm.Wrap(denorm.CodeRetryable, op, err)
		}
		return denorm.Wrap(denorm.CodeStore, op, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "timeout"):
		return denorm.Wrap(denorm.CodeRetryable, op, err)
	default:
		return denorm.Wrap(denorm.CodeStore, op, err)
	}
}
