package denorm

import (
	"context"
	"fmt"
)

// fieldOp turns one classified transition into an update directive for the
// descriptor's target field. Pure except for the stale-source reload path.
func (t *Tracker[C]) fieldOp(ctx context.Context, d Descriptor[C], tr Transition, cur, prev *C) (FieldOp, error) {
	op := FieldOp{Field: d.TargetField, Kind: d.Kind, Op: OpSkip}

	switch d.Kind {
	case KindCount:
		// count is insensitive to value changes
		if tr.Mode == ModeChanging {
			return op, nil
		}
		op.Op = OpAdd
		op.Delta = float64(tr.Mode)
		return op, nil

	case KindSum:
		switch tr.Mode {
		case ModeEntering:
			v, err := t.sourceValue(ctx, d, cur, true)
			if err != nil {
				return op, err
			}
			op.Op = OpAdd
			op.Delta = v
		case ModeLeaving:
			state := cur
			if tr.FromPrevious {
				state = prev
			}
			v, err := t.sourceValue(ctx, d, state, !tr.FromPrevious)
			if err != nil {
				return op, err
			}
			op.Op = OpAdd
			op.Delta = -v
		case ModeChanging:
			newV, err := t.sourceValue(ctx, d, cur, true)
			if err != nil {
				return op, err
			}
			oldV, err := t.sourceValue(ctx, d, prev, false)
			if err != nil {
				return op, err
			}
			if newV == oldV {
				return op, nil
			}
			op.Op = OpAdd
			op.Delta = newV - oldV
		}
		return op, nil

	case KindMin, KindMax:
		switch tr.Mode {
		case ModeEntering:
			// tightening the bound toward the new value is always sound
			v, err := t.sourceValue(ctx, d, cur, true)
			if err != nil {
				return op, err
			}
			op.Op = OpClamp
			op.Value = v
		case ModeLeaving:
			// the removed value may have been the extremum; no incremental
			// shortcut exists
			op.Op = OpRecompute
			op.Recompute = d.recomputeSpec()
		case ModeChanging:
			newV, err := t.sourceValue(ctx, d, cur, true)
			if err != nil {
				return op, err
			}
			oldV, err := t.sourceValue(ctx, d, prev, false)
			if err != nil {
				return op, err
			}
			if newV == oldV {
				return op, nil
			}
			improved := newV < oldV
			if d.Kind == KindMax {
				improved = newV > oldV
			}
			if improved {
				op.Op = OpClamp
				op.Value = newV
			} else {
				// the bound may loosen and the record may have been the
				// extremum; recompute is the only safe answer
				op.Op = OpRecompute
				op.Recompute = d.recomputeSpec()
			}
		}
		return op, nil

	default:
		return op, NewError(CodeConfig, "denorm.delta", fmt.Sprintf("unsupported aggregate kind %d", uint8(d.Kind)), nil)
	}
}

// sourceValue reads the descriptor's source value from a record state. When
// the in-memory value is not materialized and allowReload is set, the
// authoritative value is reloaded through the store; a reload failure is a
// store failure. Previous snapshots always hold persisted, concrete values,
// so a stale previous value is a host contract violation.
func (t *Tracker[C]) sourceValue(ctx context.Context, d Descriptor[C], state *C, allowReload bool) (float64, error) {
	v, ok := d.SourceOf(*state)
	if ok {
		return v, nil
	}
	if !allowReload {
		return 0, NewError(CodeConfig, "denorm.delta",
			fmt.Sprintf("previous snapshot holds an unevaluated value for %q; snapshots must be captured from persisted state", d.SourceField), nil)
	}
	v, err := t.store.SourceValue(ctx, state, d.SourceField)
	if err != nil {
		return 0, Wrap(CodeStore, "denorm.delta.reload", err)
	}
	return v, nil
}
