package resync

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/denorm"
	"github.com/yungbote/denorm/gormstore"
	"github.com/yungbote/denorm/pkg/logger"
)

// Options narrows and tunes a run.
type Options struct {
	// Tables restricts the run to specs whose parent table is listed.
	// Empty means all specs.
	Tables []string
	// DryRun logs the statements without executing them.
	DryRun bool
}

// Runner executes table-level resyncs.
type Runner struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRunner(db *gorm.DB, baseLog *logger.Logger) *Runner {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &Runner{db: db, log: baseLog.With("component", "resync.Runner")}
}

// Run resynchronizes every selected aggregate. Each spec is one correlated
// UPDATE over all parent rows; recompute writes are idempotent, so specs run
// concurrently up to cfg.Concurrency. Failed specs do not stop the others;
// the joined error reports each failure.
func (r *Runner) Run(ctx context.Context, cfg *Config, opts Options) error {
	const op = "resync.run"
	if cfg == nil {
		return denorm.NewError(denorm.CodeConfig, op, "nil config", nil)
	}
	selected := selectSpecs(cfg.Aggregates, opts.Tables)
	if len(selected) == 0 {
		return denorm.NewError(denorm.CodeConfig, op, "no aggregates selected", nil)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)
	for _, spec := range selected {
		spec := spec
		g.Go(func() error {
			return r.runSpec(gctx, spec, opts.DryRun)
		})
	}
	return g.Wait()
}

func (r *Runner) runSpec(ctx context.Context, spec Spec, dryRun bool) error {
	stmt := Statement(spec)
	if dryRun {
		r.log.Info("resync dry run", "aggregate", spec.Name, "sql", stmt)
		return nil
	}
	res := r.db.WithContext(ctx).Exec(stmt)
	if res.Error != nil {
		r.log.Error("resync failed", "aggregate", spec.Name, "error", res.Error.Error())
		return gormstore.MapError("resync."+spec.Name, res.Error)
	}
	r.log.Info("aggregate resynced", "aggregate", spec.Name, "rows", res.RowsAffected)
	return nil
}

// Statement renders the correlated recompute UPDATE for one spec. All
// identifiers are validated at config load; EligibleWhere is admin-authored
// SQL and is embedded as written.
func Statement(spec Spec) string {
	where := fmt.Sprintf("%s.%s = %s.%s", spec.ChildTable, spec.ParentRefField, spec.ParentTable, spec.ParentKey)
	if spec.EligibleWhere != "" {
		where += fmt.Sprintf(" AND (%s)", spec.EligibleWhere)
	}
	return fmt.Sprintf("UPDATE %s SET %s = (SELECT %s FROM %s WHERE %s)",
		spec.ParentTable,
		spec.TargetField,
		gormstore.AggregateSQL(spec.Kind, spec.SourceField),
		spec.ChildTable,
		where,
	)
}

func selectSpecs(specs []Spec, tables []string) []Spec {
	if len(tables) == 0 {
		return specs
	}
	wanted := make(map[string]struct{}, len(tables))
	for _, t := range tables {
		wanted[t] = struct{}{}
	}
	var out []Spec
	for _, spec := range specs {
		if _, ok := wanted[spec.ParentTable]; ok {
			out = append(out, spec)
		}
	}
	return out
}
