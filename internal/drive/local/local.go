// Package local adapts a directory on the local filesystem to the
// drive.API surface. File ids are slash-separated paths relative to the
// adapter root; the root folder has id "".
package local

import (
	"context"
	"io"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"time"

	"drivesync/internal/drive"
)

// Adapter exposes a local directory as a drive.
type Adapter struct {
	rootDir string
}

// New returns an adapter rooted at rootDir.
func New(rootDir string) *Adapter {
	absDir, err := filepath.Abs(rootDir)
	if err != nil {
		absDir = rootDir
	}
	return &Adapter{rootDir: absDir}
}

// Root returns the absolute root directory.
func (a *Adapter) Root() string {
	return a.rootDir
}

// RootID returns the id of the root folder.
func (a *Adapter) RootID() string {
	return ""
}

// toSysPath maps a relative id to an absolute system path.
func (a *Adapter) toSysPath(id string) string {
	return filepath.Join(a.rootDir, filepath.FromSlash(id))
}

func mapOSError(op, ref string, err error) error {
	if os.IsNotExist(err) {
		return drive.NewError(drive.KindNotFound, op, ref, err)
	}
	return drive.NewError(drive.KindUnrecoverable, op, ref, err)
}

func (a *Adapter) ListChildren(ctx context.Context, folderID string) ([]*drive.File, error) {
	sysPath := a.toSysPath(folderID)
	entries, err := os.ReadDir(sysPath)
	if err != nil {
		return nil, mapOSError("list_children", folderID, err)
	}

	out := make([]*drive.File, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			slog.Warn("stat failed during listing", "path", folderID, "name", e.Name(), "err", err)
			continue
		}
		f := &drive.File{
			ID:         path.Join(folderID, e.Name()),
			Name:       e.Name(),
			ModifiedAt: info.ModTime(),
			IsFolder:   e.IsDir(),
		}
		if !e.IsDir() {
			f.Size = info.Size()
			f.MimeType = mimeTypeFor(e.Name())
		}
		out = append(out, f)
	}
	return out, nil
}

func (a *Adapter) ResolveParents(ctx context.Context, fileID string) ([]string, error) {
	if _, err := os.Stat(a.toSysPath(fileID)); err != nil {
		return nil, mapOSError("resolve_parents", fileID, err)
	}

	var parents []string
	for dir := path.Dir(fileID); dir != "."; dir = path.Dir(dir) {
		parents = append(parents, dir)
	}
	parents = append(parents, "") // root
	return parents, nil
}

func (a *Adapter) Open(ctx context.Context, fileID string) (io.ReadCloser, error) {
	f, err := os.Open(a.toSysPath(fileID))
	if err != nil {
		return nil, mapOSError("open", fileID, err)
	}
	return f, nil
}

func (a *Adapter) CreateFolder(ctx context.Context, parentID, name string) (*drive.File, error) {
	id := path.Join(parentID, name)
	sysPath := a.toSysPath(id)
	if err := os.MkdirAll(sysPath, 0o755); err != nil {
		return nil, mapOSError("create_folder", id, err)
	}
	info, err := os.Stat(sysPath)
	if err != nil {
		return nil, mapOSError("create_folder", id, err)
	}
	return &drive.File{ID: id, Name: name, ModifiedAt: info.ModTime(), IsFolder: true}, nil
}

func (a *Adapter) CreateFile(ctx context.Context, folderID, name string, content io.Reader, modifiedAt time.Time) (*drive.File, error) {
	id := path.Join(folderID, name)
	sysPath := a.toSysPath(id)

	if err := os.MkdirAll(filepath.Dir(sysPath), 0o755); err != nil {
		return nil, mapOSError("create_file", id, err)
	}

	f, err := os.Create(sysPath)
	if err != nil {
		return nil, mapOSError("create_file", id, err)
	}
	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		return nil, drive.NewError(drive.KindTransient, "create_file", id, err)
	}
	if err := f.Close(); err != nil {
		return nil, mapOSError("create_file", id, err)
	}

	// restoring the modification time matters: change detection keys on it
	if !modifiedAt.IsZero() {
		if err := os.Chtimes(sysPath, time.Now(), modifiedAt); err != nil {
			slog.Warn("could not restore mod time", "path", id, "err", err)
		}
	}

	info, err := os.Stat(sysPath)
	if err != nil {
		return nil, mapOSError("create_file", id, err)
	}
	return &drive.File{
		ID:         id,
		Name:       name,
		Size:       info.Size(),
		ModifiedAt: info.ModTime(),
		MimeType:   mimeTypeFor(name),
	}, nil
}

func (a *Adapter) CopyFile(ctx context.Context, fileID, newName, targetFolderID string) (*drive.File, error) {
	if newName == "" {
		newName = path.Base(fileID)
	}
	if targetFolderID == "" {
		targetFolderID = path.Dir(fileID)
		if targetFolderID == "." {
			targetFolderID = ""
		}
	}

	src, err := a.Open(ctx, fileID)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	info, err := os.Stat(a.toSysPath(fileID))
	if err != nil {
		return nil, mapOSError("copy_file", fileID, err)
	}
	return a.CreateFile(ctx, targetFolderID, newName, src, info.ModTime())
}

func (a *Adapter) MoveFile(ctx context.Context, fileID, fromFolderID, toFolderID string) error {
	newID := path.Join(toFolderID, path.Base(fileID))
	newSysPath := a.toSysPath(newID)
	if err := os.MkdirAll(filepath.Dir(newSysPath), 0o755); err != nil {
		return mapOSError("move_file", fileID, err)
	}
	if err := os.Rename(a.toSysPath(fileID), newSysPath); err != nil {
		return mapOSError("move_file", fileID, err)
	}
	return nil
}

func (a *Adapter) RenameFile(ctx context.Context, fileID, newName string) error {
	newID := path.Join(path.Dir(fileID), newName)
	if err := os.Rename(a.toSysPath(fileID), a.toSysPath(newID)); err != nil {
		return mapOSError("rename_file", fileID, err)
	}
	return nil
}

func (a *Adapter) DeleteFile(ctx context.Context, fileID string, permanent bool) error {
	// a local directory has no trash; both flavors remove outright
	if err := os.RemoveAll(a.toSysPath(fileID)); err != nil {
		return mapOSError("delete_file", fileID, err)
	}
	return nil
}

func mimeTypeFor(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
