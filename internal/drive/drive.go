package drive

import (
	"context"
	"io"
	"time"
)

// File is one row of a folder listing, as the storage provider reports it.
type File struct {
	ID         string
	Name       string
	Size       int64
	ModifiedAt time.Time
	MimeType   string
	IsFolder   bool
}

// API is the unified abstraction over a hosted file store. The sync engine
// only ever talks to the store through this interface; provider wire
// protocols, auth and quotas live behind it.
type API interface {
	// ListChildren returns the direct children of a folder.
	ListChildren(ctx context.Context, folderID string) ([]*File, error)

	// ResolveParents returns the folder ids a file is contained in,
	// nearest first.
	ResolveParents(ctx context.Context, fileID string) ([]string, error)

	// Open returns the file content for reading.
	Open(ctx context.Context, fileID string) (io.ReadCloser, error)

	// CreateFolder creates (or returns an existing) child folder.
	CreateFolder(ctx context.Context, parentID, name string) (*File, error)

	// CreateFile writes a file into a folder, replacing any existing
	// child of the same name, and stamps it with modifiedAt.
	CreateFile(ctx context.Context, folderID, name string, content io.Reader, modifiedAt time.Time) (*File, error)

	// CopyFile duplicates a file, optionally renaming it and placing it
	// in another folder. Empty newName keeps the original name; empty
	// targetFolderID keeps the original parent.
	CopyFile(ctx context.Context, fileID, newName, targetFolderID string) (*File, error)

	// MoveFile reparents a file.
	MoveFile(ctx context.Context, fileID, fromFolderID, toFolderID string) error

	// RenameFile changes a file's name in place.
	RenameFile(ctx context.Context, fileID, newName string) error

	// DeleteFile removes a file; permanent bypasses the provider trash.
	DeleteFile(ctx context.Context, fileID string, permanent bool) error
}
