package batch

import (
	"context"
	"fmt"

	"drivesync/internal/drive"
)

// Ready-made operations for common bulk jobs against a drive: mass
// move, copy, rename and delete. The sync engine wraps its own planned
// actions instead, but ad-hoc batch jobs compose these directly.

// MoveOp reparents one file.
type MoveOp struct {
	API          drive.API
	FileID       string
	FromFolderID string
	ToFolderID   string
}

func (o *MoveOp) Name() string {
	return fmt.Sprintf("move %s -> %s", o.FileID, o.ToFolderID)
}

func (o *MoveOp) Execute(ctx context.Context) error {
	return o.API.MoveFile(ctx, o.FileID, o.FromFolderID, o.ToFolderID)
}

func (o *MoveOp) Validate(ctx context.Context) error {
	if _, err := o.API.ResolveParents(ctx, o.FileID); err != nil {
		return err
	}
	_, err := o.API.ListChildren(ctx, o.ToFolderID)
	return err
}

// CopyOp duplicates one file.
type CopyOp struct {
	API            drive.API
	FileID         string
	NewName        string
	TargetFolderID string
}

func (o *CopyOp) Name() string {
	return fmt.Sprintf("copy %s", o.FileID)
}

func (o *CopyOp) Execute(ctx context.Context) error {
	_, err := o.API.CopyFile(ctx, o.FileID, o.NewName, o.TargetFolderID)
	return err
}

func (o *CopyOp) Validate(ctx context.Context) error {
	_, err := o.API.ResolveParents(ctx, o.FileID)
	return err
}

// RenameOp renames one file in place.
type RenameOp struct {
	API     drive.API
	FileID  string
	NewName string
}

func (o *RenameOp) Name() string {
	return fmt.Sprintf("rename %s -> %s", o.FileID, o.NewName)
}

func (o *RenameOp) Execute(ctx context.Context) error {
	return o.API.RenameFile(ctx, o.FileID, o.NewName)
}

func (o *RenameOp) Validate(ctx context.Context) error {
	_, err := o.API.ResolveParents(ctx, o.FileID)
	return err
}

// DeleteOp removes one file.
type DeleteOp struct {
	API       drive.API
	FileID    string
	Permanent bool
}

func (o *DeleteOp) Name() string {
	return fmt.Sprintf("delete %s", o.FileID)
}

func (o *DeleteOp) Execute(ctx context.Context) error {
	return o.API.DeleteFile(ctx, o.FileID, o.Permanent)
}

func (o *DeleteOp) Validate(ctx context.Context) error {
	_, err := o.API.ResolveParents(ctx, o.FileID)
	return err
}
