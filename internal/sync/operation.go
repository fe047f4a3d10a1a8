package sync

import (
	"context"
	"fmt"
	"path"
	"strings"

	"drivesync/internal/drive"
)

// actionOp adapts one resolved PlannedAction to the batch executor's
// Operation interface, bound to the two drives of its pairing.
type actionOp struct {
	action       PlannedAction
	source       drive.API
	target       drive.API
	sourceRootID string
	targetRootID string
}

func newActionOp(a PlannedAction, source, target drive.API, cfg *OperationConfig) *actionOp {
	return &actionOp{
		action:       a,
		source:       source,
		target:       target,
		sourceRootID: cfg.SourceRootID,
		targetRootID: cfg.TargetRootID,
	}
}

func (o *actionOp) effective() (ActionKind, Direction) {
	return o.action.EffectiveKind(), o.action.EffectiveDirection()
}

func (o *actionOp) Name() string {
	kind, dir := o.effective()
	return fmt.Sprintf("%s %s -> %s", kind, o.action.Path, dir)
}

func (o *actionOp) Execute(ctx context.Context) error {
	kind, dir := o.effective()

	switch kind {
	case ActionCreate, ActionUpdate:
		if o.action.Resolved != nil && o.action.Resolved.MergedRef != "" {
			return o.applyMerged(ctx)
		}
		if dir == ToSource {
			return copyEntry(ctx, o.target, o.action.Target, o.source, o.sourceRootID, o.action.Path)
		}
		return copyEntry(ctx, o.source, o.action.Source, o.target, o.targetRootID, o.action.Path)

	case ActionDelete:
		return o.target.DeleteFile(ctx, o.action.Target.ID, false)

	default:
		return drive.NewError(drive.KindPolicyViolation, "execute", o.action.Path,
			fmt.Errorf("unresolved %s action", o.action.Kind))
	}
}

// Validate performs existence checks only; nothing is mutated.
func (o *actionOp) Validate(ctx context.Context) error {
	kind, dir := o.effective()

	switch kind {
	case ActionCreate, ActionUpdate:
		if dir == ToSource {
			_, err := o.target.ResolveParents(ctx, o.action.Target.ID)
			return err
		}
		_, err := o.source.ResolveParents(ctx, o.action.Source.ID)
		return err

	case ActionDelete:
		_, err := o.target.ResolveParents(ctx, o.action.Target.ID)
		return err

	default:
		return drive.NewError(drive.KindPolicyViolation, "validate", o.action.Path,
			fmt.Errorf("unresolved %s action", o.action.Kind))
	}
}

// applyMerged places merge-collaborator output at the conflicted path:
// the stale target copy is removed, then the merged content reference
// is copied into place under the original name.
func (o *actionOp) applyMerged(ctx context.Context) error {
	folderID, err := ensureFolder(ctx, o.target, o.targetRootID, path.Dir(o.action.Path))
	if err != nil {
		return err
	}
	if o.action.Target != nil {
		if err := o.target.DeleteFile(ctx, o.action.Target.ID, false); err != nil && !drive.IsNotFound(err) {
			return err
		}
	}
	_, err = o.target.CopyFile(ctx, o.action.Resolved.MergedRef, path.Base(o.action.Path), folderID)
	return err
}

// copyEntry streams one file across drives, creating the destination
// folder chain as needed. Destination files of the same name are
// replaced, which makes create and update the same motion.
func copyEntry(ctx context.Context, from drive.API, entry *FileEntry, to drive.API, toRootID, relPath string) error {
	if entry == nil {
		return drive.NewError(drive.KindNotFound, "copy_entry", relPath, fmt.Errorf("no origin entry"))
	}

	folderID, err := ensureFolder(ctx, to, toRootID, path.Dir(relPath))
	if err != nil {
		return err
	}

	content, err := from.Open(ctx, entry.ID)
	if err != nil {
		return err
	}
	defer content.Close()

	_, err = to.CreateFile(ctx, folderID, path.Base(relPath), content, entry.ModifiedAt)
	return err
}

// ensureFolder resolves (creating on demand) the folder chain for a
// relative directory path under rootID and returns the final folder id.
func ensureFolder(ctx context.Context, api drive.API, rootID, dir string) (string, error) {
	if dir == "." || dir == "" {
		return rootID, nil
	}

	folderID := rootID
	for _, segment := range strings.Split(dir, "/") {
		f, err := api.CreateFolder(ctx, folderID, segment)
		if err != nil {
			return "", err
		}
		folderID = f.ID
	}
	return folderID, nil
}
