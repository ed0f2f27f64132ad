// Package gormstore implements the denorm.Store boundary over a *gorm.DB for
// arbitrary GORM models. Incremental directives become single-statement
// relative updates (gorm.Expr), recomputes become aggregate subqueries with
// the descriptor's filter applied in-query.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/yungbote/denorm"
	"github.com/yungbote/denorm/pkg/logger"
)

var schemaCache = &sync.Map{}

// Config wires a store to the host's models. Parents maps each child
// parent-ref column to a prototype of the parent model it references, e.g.
// {"group_id": &Group{}}.
type Config struct {
	DB      *gorm.DB
	Log     *logger.Logger
	Child   any
	Parents map[string]any
}

type parentBinding struct {
	proto  any
	schema *schema.Schema
}

// Store is a denorm.Store over one child model and its parent models.
type Store struct {
	db      *gorm.DB
	log     *logger.Logger
	child   *schema.Schema
	parents map[string]parentBinding
}

// New introspects the configured models and validates the bindings.
// Configuration problems fail here, not on the event path.
func New(cfg Config) (*Store, error) {
	const op = "gormstore.new"
	if cfg.DB == nil {
		return nil, denorm.NewError(denorm.CodeConfig, op, "nil gorm DB", nil)
	}
	if cfg.Child == nil {
		return nil, denorm.NewError(denorm.CodeConfig, op, "nil child model", nil)
	}
	if len(cfg.Parents) == 0 {
		return nil, denorm.NewError(denorm.CodeConfig, op, "no parent model bindings", nil)
	}
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}

	childSchema, err := parseSchema(cfg.DB, cfg.Child)
	if err != nil {
		return nil, denorm.Wrap(denorm.CodeConfig, op, err)
	}

	parents := make(map[string]parentBinding, len(cfg.Parents))
	for refField, proto := range cfg.Parents {
		if _, ok := childSchema.FieldsByDBName[refField]; !ok {
			return nil, denorm.NewError(denorm.CodeConfig, op,
				fmt.Sprintf("child table %q has no column %q", childSchema.Table, refField), nil)
		}
		parentSchema, err := parseSchema(cfg.DB, proto)
		if err != nil {
			return nil, denorm.Wrap(denorm.CodeConfig, op, err)
		}
		if parentSchema.PrioritizedPrimaryField == nil {
			return nil, denorm.NewError(denorm.CodeConfig, op,
				fmt.Sprintf("parent model %q has no primary key", parentSchema.Table), nil)
		}
		parents[refField] = parentBinding{proto: proto, schema: parentSchema}
	}

	return &Store{
		db:      cfg.DB,
		log:     cfg.Log.With("component", "gormstore.Store"),
		child:   childSchema,
		parents: parents,
	}, nil
}

// LoadParent dereferences a parent key through the given child ref column.
// Returns (nil, nil) when the key is unset or the parent row is gone.
func (s *Store) LoadParent(ctx context.Context, refField string, key uuid.UUID) (any, error) {
	const op = "gormstore.load_parent"
	binding, ok := s.parents[refField]
	if !ok {
		return nil, denorm.NewError(denorm.CodeConfig, op,
			fmt.Sprintf("no parent model bound to ref field %q", refField), nil)
	}
	if key == uuid.Nil {
		return nil, nil
	}

	parent := reflect.New(binding.schema.ModelType).Interface()
	pkColumn := binding.schema.PrioritizedPrimaryField.DBName
	err := s.db.WithContext(ctx).
		Table(binding.schema.Table).
		Where(fmt.Sprintf("%s = ?", pkColumn), key).
		Take(parent).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, MapError(op, err)
	}
	return parent, nil
}

// Apply executes the field directives against the parent as one multi-field
// UPDATE whose right-hand sides are expressed relative to the stored values.
func (s *Store) Apply(ctx context.Context, parent any, ops []denorm.FieldOp) error {
	const op = "gormstore.apply"
	if len(ops) == 0 {
		return nil
	}
	sch, pk, err := s.recordKey(parent)
	if err != nil {
		return denorm.Wrap(denorm.CodeConfig, op, err)
	}

	updates := make(map[string]any, len(ops))
	for _, fieldOp := range ops {
		expr, err := s.updateExpr(fieldOp, pk)
		if err != nil {
			return err
		}
		if expr == nil {
			continue
		}
		updates[fieldOp.Field] = expr
	}
	if len(updates) == 0 {
		return nil
	}

	res := s.db.WithContext(ctx).
		Table(sch.Table).
		Where(fmt.Sprintf("%s = ?", sch.PrioritizedPrimaryField.DBName), pk).
		UpdateColumns(updates)
	if res.Error != nil {
		return MapError(op, res.Error)
	}
	if res.RowsAffected == 0 {
		// the parent row vanished between load and update; the directives
		// are dropped, mirroring the unresolved-parent no-op
		s.log.Debug("parent row gone before update", "table", sch.Table, "pk", fmt.Sprint(pk))
	}
	return nil
}

// Refresh reloads the record's fields from the store in place.
func (s *Store) Refresh(ctx context.Context, record any) error {
	const op = "gormstore.refresh"
	sch, pk, err := s.recordKey(record)
	if err != nil {
		return denorm.Wrap(denorm.CodeConfig, op, err)
	}
	err = s.db.WithContext(ctx).
		Table(sch.Table).
		Where(fmt.Sprintf("%s = ?", sch.PrioritizedPrimaryField.DBName), pk).
		Take(record).Error
	if err != nil {
		return MapError(op, err)
	}
	return nil
}

// SourceValue reloads one child column's concrete value.
func (s *Store) SourceValue(ctx context.Context, child any, field string) (float64, error) {
	const op = "gormstore.source_value"
	if _, ok := s.child.FieldsByDBName[field]; !ok {
		return 0, denorm.NewError(denorm.CodeConfig, op,
			fmt.Sprintf("child table %q has no column %q", s.child.Table, field), nil)
	}
	_, pk, err := s.recordKey(child)
	if err != nil {
		return 0, denorm.Wrap(denorm.CodeConfig, op, err)
	}
	row := s.db.WithContext(ctx).
		Table(s.child.Table).
		Select(field).
		Where(fmt.Sprintf("%s = ?", s.child.PrioritizedPrimaryField.DBName), pk).
		Row()
	var v float64
	if err := row.Scan(&v); err != nil {
		return 0, MapError(op, err)
	}
	return v, nil
}

// updateExpr renders one directive as a SQL expression over the stored value.
func (s *Store) updateExpr(fieldOp denorm.FieldOp, parentPK any) (any, error) {
	switch fieldOp.Op {
	case denorm.OpSkip:
		return nil, nil
	case denorm.OpAdd:
		return gorm.Expr(fmt.Sprintf("%s + ?", fieldOp.Field), fieldOp.Delta), nil
	case denorm.OpClamp:
		return clampExpr(s.db.Dialector.Name(), fieldOp.Kind, fieldOp.Field, fieldOp.Value), nil
	case denorm.OpRecompute:
		if fieldOp.Recompute == nil {
			return nil, denorm.NewError(denorm.CodeConfig, "gormstore.apply", "recompute directive without spec", nil)
		}
		return s.recomputeExpr(fieldOp.Kind, *fieldOp.Recompute, parentPK), nil
	default:
		return nil, denorm.NewError(denorm.CodeConfig, "gormstore.apply",
			fmt.Sprintf("unsupported field op %d", uint8(fieldOp.Op)), nil)
	}
}

func (s *Store) recomputeExpr(kind denorm.Kind, spec denorm.RecomputeSpec, parentPK any) any {
	sql := fmt.Sprintf("(SELECT %s FROM %s WHERE %s = ?", AggregateSQL(kind, spec.SourceField), s.child.Table, spec.ParentField)
	args := []any{parentPK}
	if !spec.Filter.IsZero() {
		sql += fmt.Sprintf(" AND (%s)", spec.Filter.Expr)
		args = append(args, spec.Filter.Args...)
	}
	sql += ")"
	return gorm.Expr(sql, args...)
}

// recordKey parses a record's schema and extracts its primary key value.
func (s *Store) recordKey(record any) (*schema.Schema, any, error) {
	sch, err := parseSchema(s.db, record)
	if err != nil {
		return nil, nil, err
	}
	if sch.PrioritizedPrimaryField == nil {
		return nil, nil, fmt.Errorf("model %q has no primary key", sch.Table)
	}
	pk, isZero := sch.PrioritizedPrimaryField.ValueOf(context.Background(), reflect.ValueOf(record))
	if isZero {
		return nil, nil, fmt.Errorf("record of %q has a zero primary key", sch.Table)
	}
	return sch, pk, nil
}

func parseSchema(db *gorm.DB, model any) (*schema.Schema, error) {
	namer := db.NamingStrategy
	if namer == nil {
		namer = schema.NamingStrategy{}
	}
	return schema.Parse(model, schemaCache, namer)
}
