package sync

import (
	"context"
	"log/slog"
)

// ConflictPolicy selects how a bidirectional conflict is settled.
type ConflictPolicy string

const (
	// PolicyOverwrite lets the source win unconditionally.
	PolicyOverwrite ConflictPolicy = "overwrite"
	// PolicySkip leaves both sides untouched.
	PolicySkip ConflictPolicy = "skip"
	// PolicyNewer lets the fresher ModifiedAt win.
	PolicyNewer ConflictPolicy = "newer"
	// PolicyLarger lets the larger file win.
	PolicyLarger ConflictPolicy = "larger"
	// PolicyMerge hands both entries to a merge collaborator.
	PolicyMerge ConflictPolicy = "merge"
	// PolicyManual hands the conflict to a caller-supplied decider.
	PolicyManual ConflictPolicy = "manual"
)

// ValidConflictPolicy reports whether the resolver knows the policy.
func ValidConflictPolicy(p ConflictPolicy) bool {
	switch p {
	case PolicyOverwrite, PolicySkip, PolicyNewer, PolicyLarger, PolicyMerge, PolicyManual:
		return true
	}
	return false
}

// ResolutionKind classifies a resolver decision.
type ResolutionKind int

const (
	// ResolveNone means no decision was made; the conflict is excluded
	// from execution, never guessed.
	ResolveNone ResolutionKind = iota
	// ResolveUpdate means one side's copy propagates per Direction.
	ResolveUpdate
	// ResolveSkip means the conflict is deliberately left alone.
	ResolveSkip
)

// Resolution is the resolver's verdict for one conflict.
type Resolution struct {
	Kind      ResolutionKind `json:"kind"`
	Direction Direction      `json:"direction"`
	// MergedRef carries the store reference to merged content when the
	// merge collaborator produced one.
	MergedRef string `json:"merged_ref,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Merger is the external merge collaborator used by PolicyMerge.
type Merger interface {
	// Merge combines both copies and returns a store reference to the
	// merged content.
	Merge(ctx context.Context, source, target FileEntry) (string, error)
}

// Decider is the synchronous decision function used by PolicyManual.
// Returning a zero Resolution or an error leaves the conflict
// unresolved.
type Decider func(conflict PlannedAction) (Resolution, error)

// Resolver settles conflict actions. Merger and Decide are optional;
// policies that need a missing collaborator degrade per policy rules.
type Resolver struct {
	Merger Merger
	Decide Decider
}

// Resolve maps one conflict action to a Resolution under the policy.
func (r *Resolver) Resolve(ctx context.Context, a PlannedAction, policy ConflictPolicy) Resolution {
	src, tgt := a.Source, a.Target

	switch policy {
	case PolicyOverwrite:
		return Resolution{Kind: ResolveUpdate, Direction: ToTarget, Reason: "source wins"}

	case PolicySkip:
		return Resolution{Kind: ResolveSkip, Reason: "policy skip"}

	case PolicyNewer:
		if tgt != nil && src != nil {
			switch {
			case tgt.ModifiedAt.After(src.ModifiedAt):
				return Resolution{Kind: ResolveUpdate, Direction: ToSource, Reason: "target is newer"}
			case tgt.ModifiedAt.Equal(src.ModifiedAt):
				return Resolution{Kind: ResolveUpdate, Direction: ToTarget, Reason: "tie, source wins"}
			}
		}
		return Resolution{Kind: ResolveUpdate, Direction: ToTarget, Reason: "source is newer"}

	case PolicyLarger:
		if tgt != nil && src != nil {
			switch {
			case tgt.Size > src.Size:
				return Resolution{Kind: ResolveUpdate, Direction: ToSource, Reason: "target is larger"}
			case tgt.Size == src.Size:
				return Resolution{Kind: ResolveUpdate, Direction: ToTarget, Reason: "tie, source wins"}
			}
		}
		return Resolution{Kind: ResolveUpdate, Direction: ToTarget, Reason: "source is larger"}

	case PolicyMerge:
		if r.Merger == nil {
			slog.Warn("merge policy without merge collaborator, skipping", "path", a.Path)
			return Resolution{Kind: ResolveSkip, Reason: "no merger configured"}
		}
		ref, err := r.Merger.Merge(ctx, *src, *tgt)
		if err != nil {
			slog.Warn("merge failed, skipping conflict", "path", a.Path, "err", err)
			return Resolution{Kind: ResolveSkip, Reason: "merge failed: " + err.Error()}
		}
		return Resolution{Kind: ResolveUpdate, Direction: ToTarget, MergedRef: ref, Reason: "merged"}

	case PolicyManual:
		if r.Decide == nil {
			slog.Warn("manual policy without decider, conflict unresolved", "path", a.Path)
			return Resolution{Kind: ResolveNone, Reason: "no decider configured"}
		}
		decision, err := r.Decide(a)
		if err != nil {
			slog.Warn("manual decider failed, conflict unresolved", "path", a.Path, "err", err)
			return Resolution{Kind: ResolveNone, Reason: "decider failed: " + err.Error()}
		}
		if decision.Kind == ResolveNone {
			return Resolution{Kind: ResolveNone, Reason: "no decision"}
		}
		return decision

	default:
		slog.Warn("unknown conflict policy, conflict unresolved", "policy", string(policy), "path", a.Path)
		return Resolution{Kind: ResolveNone, Reason: "unknown policy"}
	}
}
