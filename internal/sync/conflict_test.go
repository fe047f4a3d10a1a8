package sync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conflictAction(src, tgt FileEntry) PlannedAction {
	return PlannedAction{
		Kind:   ActionConflict,
		Path:   src.RelPath,
		Source: &src,
		Target: &tgt,
	}
}

type fakeMerger struct {
	ref string
	err error
}

func (m *fakeMerger) Merge(ctx context.Context, source, target FileEntry) (string, error) {
	return m.ref, m.err
}

func TestResolveOverwriteAndSkip(t *testing.T) {
	r := &Resolver{}
	a := conflictAction(entry("f.txt", 10, t2), entry("f.txt", 12, t1))

	res := r.Resolve(context.Background(), a, PolicyOverwrite)
	assert.Equal(t, ResolveUpdate, res.Kind)
	assert.Equal(t, ToTarget, res.Direction)

	res = r.Resolve(context.Background(), a, PolicySkip)
	assert.Equal(t, ResolveSkip, res.Kind)
}

func TestResolveNewer(t *testing.T) {
	r := &Resolver{}

	targetNewer := conflictAction(entry("f.txt", 10, t1), entry("f.txt", 12, t2))
	res := r.Resolve(context.Background(), targetNewer, PolicyNewer)
	assert.Equal(t, ResolveUpdate, res.Kind)
	assert.Equal(t, ToSource, res.Direction)

	sourceNewer := conflictAction(entry("f.txt", 10, t2), entry("f.txt", 12, t1))
	res = r.Resolve(context.Background(), sourceNewer, PolicyNewer)
	assert.Equal(t, ToTarget, res.Direction)
	assert.Equal(t, "source is newer", res.Reason)

	// ties go to the source, and are named as ties
	tie := conflictAction(entry("f.txt", 10, t1), entry("f.txt", 12, t1))
	res = r.Resolve(context.Background(), tie, PolicyNewer)
	assert.Equal(t, ToTarget, res.Direction)
	assert.Equal(t, "tie, source wins", res.Reason)
}

func TestResolveLarger(t *testing.T) {
	r := &Resolver{}

	targetLarger := conflictAction(entry("f.txt", 10, t1), entry("f.txt", 99, t1))
	res := r.Resolve(context.Background(), targetLarger, PolicyLarger)
	assert.Equal(t, ToSource, res.Direction)

	sourceLarger := conflictAction(entry("f.txt", 99, t1), entry("f.txt", 10, t2))
	res = r.Resolve(context.Background(), sourceLarger, PolicyLarger)
	assert.Equal(t, ToTarget, res.Direction)
	assert.Equal(t, "source is larger", res.Reason)

	tie := conflictAction(entry("f.txt", 10, t1), entry("f.txt", 10, t2))
	res = r.Resolve(context.Background(), tie, PolicyLarger)
	assert.Equal(t, ToTarget, res.Direction)
	assert.Equal(t, "tie, source wins", res.Reason)
}

func TestResolveMerge(t *testing.T) {
	a := conflictAction(entry("f.txt", 10, t1), entry("f.txt", 12, t2))

	r := &Resolver{Merger: &fakeMerger{ref: "merged-file-id"}}
	res := r.Resolve(context.Background(), a, PolicyMerge)
	require.Equal(t, ResolveUpdate, res.Kind)
	assert.Equal(t, "merged-file-id", res.MergedRef)

	// merge failure degrades to skip, never to a guess
	r = &Resolver{Merger: &fakeMerger{err: errors.New("binary content")}}
	res = r.Resolve(context.Background(), a, PolicyMerge)
	assert.Equal(t, ResolveSkip, res.Kind)

	// no merger configured behaves like a failed merge
	r = &Resolver{}
	res = r.Resolve(context.Background(), a, PolicyMerge)
	assert.Equal(t, ResolveSkip, res.Kind)
}

func TestResolveManual(t *testing.T) {
	a := conflictAction(entry("f.txt", 10, t1), entry("f.txt", 12, t2))

	r := &Resolver{Decide: func(conflict PlannedAction) (Resolution, error) {
		return Resolution{Kind: ResolveUpdate, Direction: ToSource}, nil
	}}
	res := r.Resolve(context.Background(), a, PolicyManual)
	assert.Equal(t, ResolveUpdate, res.Kind)
	assert.Equal(t, ToSource, res.Direction)

	// decider error leaves the conflict unresolved
	r = &Resolver{Decide: func(conflict PlannedAction) (Resolution, error) {
		return Resolution{}, errors.New("cannot decide")
	}}
	res = r.Resolve(context.Background(), a, PolicyManual)
	assert.Equal(t, ResolveNone, res.Kind)

	// zero decision counts as no decision
	r = &Resolver{Decide: func(conflict PlannedAction) (Resolution, error) {
		return Resolution{}, nil
	}}
	res = r.Resolve(context.Background(), a, PolicyManual)
	assert.Equal(t, ResolveNone, res.Kind)

	// no decider configured
	r = &Resolver{}
	res = r.Resolve(context.Background(), a, PolicyManual)
	assert.Equal(t, ResolveNone, res.Kind)
}
