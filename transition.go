package denorm

import "github.com/google/uuid"

// Mode classifies the effect of one lifecycle event on one parent's
// aggregated set. The numeric values double as the count delta.
type Mode int8

const (
	ModeLeaving  Mode = -1
	ModeChanging Mode = 0
	ModeEntering Mode = 1
)

func (m Mode) String() string {
	switch m {
	case ModeLeaving:
		return "leaving"
	case ModeChanging:
		return "changing"
	default:
		return "entering"
	}
}

// Transition is the request-scoped result of classifying a lifecycle event
// against one descriptor. A single event yields at most two transitions
// (a move between parents: leaving the old one, entering the new one).
type Transition struct {
	Parent uuid.UUID
	Mode   Mode

	// FromPrevious marks a leaving transition whose removed contribution
	// must be read from the previous snapshot rather than the new state.
	// Set when an update flips eligibility off or moves the child away:
	// what the old parent's aggregate contained is the last persisted
	// value, not whatever the same update wrote alongside.
	FromPrevious bool
}

type eventKind uint8

const (
	eventCreated eventKind = iota + 1
	eventUpdated
	eventDeleted
)

func (e eventKind) String() string {
	switch e {
	case eventCreated:
		return "created"
	case eventUpdated:
		return "updated"
	default:
		return "deleted"
	}
}

// classify maps (cur, prev, event) to zero, one, or two transitions for one
// descriptor. prev is required for update events and ignored otherwise.
// Transitions whose parent is uuid.Nil are never emitted: an unlinked child
// cannot affect any aggregate.
func (d Descriptor[C]) classify(ev eventKind, cur C, prev *C) []Transition {
	switch ev {
	case eventCreated, eventDeleted:
		if !d.eligible(cur) {
			return nil
		}
		parent := d.ParentOf(cur)
		if parent == uuid.Nil {
			return nil
		}
		mode := ModeEntering
		if ev == eventDeleted {
			mode = ModeLeaving
		}
		return []Transition{{Parent: parent, Mode: mode}}
	case eventUpdated:
		if prev == nil {
			return nil
		}
		curEligible := d.eligible(cur)
		prevEligible := d.eligible(*prev)
		curParent := d.ParentOf(cur)
		prevParent := d.ParentOf(*prev)

		switch {
		case curParent == prevParent && curEligible != prevEligible:
			if curParent == uuid.Nil {
				return nil
			}
			if curEligible {
				return []Transition{{Parent: curParent, Mode: ModeEntering}}
			}
			return []Transition{{Parent: curParent, Mode: ModeLeaving, FromPrevious: true}}
		case curParent != prevParent:
			out := make([]Transition, 0, 2)
			if prevEligible && prevParent != uuid.Nil {
				out = append(out, Transition{Parent: prevParent, Mode: ModeLeaving, FromPrevious: true})
			}
			if curEligible && curParent != uuid.Nil {
				out = append(out, Transition{Parent: curParent, Mode: ModeEntering})
			}
			return out
		case curEligible:
			// same parent, same eligibility: only the tracked value can
			// have changed
			if curParent == uuid.Nil {
				return nil
			}
			return []Transition{{Parent: curParent, Mode: ModeChanging}}
		default:
			return nil
		}
	default:
		return nil
	}
}
