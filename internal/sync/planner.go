package sync

import (
	"sort"
)

// Mode selects the reconciliation semantics of a pairing.
type Mode string

const (
	// ModeUnidirectional mirrors the source onto the target: missing
	// files are created, extra target files are deleted, and on any
	// fingerprint difference the source wins.
	ModeUnidirectional Mode = "unidirectional"
	// ModeBidirectional propagates changes both ways and surfaces
	// same-path divergence as conflicts.
	ModeBidirectional Mode = "bidirectional"
)

// PropagatePolicy names what a bidirectional pairing does with a file
// that exists only on the target side. It is an explicit knob rather
// than implied behavior.
type PropagatePolicy string

const (
	// PropagateCopyBack copies target-only files back to the source.
	PropagateCopyBack PropagatePolicy = "copy-back"
	// PropagateIgnore leaves target-only files untouched.
	PropagateIgnore PropagatePolicy = "ignore"
)

// ActionKind is what the planner decided for one path.
type ActionKind int

const (
	ActionCreate ActionKind = iota
	ActionUpdate
	ActionDelete
	ActionConflict
)

func (k ActionKind) String() string {
	switch k {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	case ActionDelete:
		return "delete"
	case ActionConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// Direction says which side an action writes to.
type Direction int

const (
	ToTarget Direction = iota
	ToSource
)

func (d Direction) String() string {
	if d == ToSource {
		return "source"
	}
	return "target"
}

// PlannedAction is one entry of a SyncPlan. Source and Target hold the
// snapshot entries of the respective sides; either may be nil. Resolved
// is nil until a Conflict action passes through the resolver.
type PlannedAction struct {
	Kind      ActionKind  `json:"kind"`
	Direction Direction   `json:"direction"`
	Path      string      `json:"path"`
	Source    *FileEntry  `json:"source,omitempty"`
	Target    *FileEntry  `json:"target,omitempty"`
	Resolved  *Resolution `json:"resolved,omitempty"`
}

// EffectiveKind is the kind that will actually execute: a resolved
// conflict executes as an update.
func (a PlannedAction) EffectiveKind() ActionKind {
	if a.Kind == ActionConflict && a.Resolved != nil && a.Resolved.Kind == ResolveUpdate {
		return ActionUpdate
	}
	return a.Kind
}

// EffectiveDirection folds the conflict resolution into the direction.
func (a PlannedAction) EffectiveDirection() Direction {
	if a.Kind == ActionConflict && a.Resolved != nil && a.Resolved.Kind == ResolveUpdate {
		return a.Resolved.Direction
	}
	return a.Direction
}

// SyncPlan is the ordered action list produced by diffing two snapshots
// before anything executes.
type SyncPlan struct {
	Actions []PlannedAction
}

// Conflicts returns the number of conflict actions in the plan.
func (p *SyncPlan) Conflicts() int {
	n := 0
	for _, a := range p.Actions {
		if a.Kind == ActionConflict {
			n++
		}
	}
	return n
}

// Plan diffs two snapshots. Pure computation: it never fails, and its
// output order is deterministic (sorted source paths, then sorted
// target-only paths) so runs are reproducible.
func Plan(source, target map[string]FileEntry, mode Mode, extra PropagatePolicy) *SyncPlan {
	plan := &SyncPlan{}

	for _, p := range sortedPaths(source) {
		src := source[p]
		tgt, inTarget := target[p]

		if !inTarget {
			plan.Actions = append(plan.Actions, PlannedAction{
				Kind: ActionCreate, Direction: ToTarget, Path: p, Source: &src,
			})
			continue
		}
		if src.Fingerprint == tgt.Fingerprint {
			continue
		}
		if mode == ModeBidirectional {
			// both sides changed relative to each other; defer to policy
			plan.Actions = append(plan.Actions, PlannedAction{
				Kind: ActionConflict, Direction: ToTarget, Path: p, Source: &src, Target: &tgt,
			})
		} else {
			plan.Actions = append(plan.Actions, PlannedAction{
				Kind: ActionUpdate, Direction: ToTarget, Path: p, Source: &src, Target: &tgt,
			})
		}
	}

	for _, p := range sortedPaths(target) {
		if _, inSource := source[p]; inSource {
			continue
		}
		tgt := target[p]

		switch mode {
		case ModeBidirectional:
			if extra == PropagateIgnore {
				continue
			}
			plan.Actions = append(plan.Actions, PlannedAction{
				Kind: ActionCreate, Direction: ToSource, Path: p, Target: &tgt,
			})
		default:
			// mirror semantics: the target must match the source exactly
			plan.Actions = append(plan.Actions, PlannedAction{
				Kind: ActionDelete, Direction: ToTarget, Path: p, Target: &tgt,
			})
		}
	}

	return plan
}

func sortedPaths(m map[string]FileEntry) []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
