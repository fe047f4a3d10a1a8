// Package memory implements an in-memory drive. It backs the test suite
// and the `plan` command's offline experiments; semantics mirror the
// hosted store (id-addressed nodes, name-unique children).
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"sync"
	"time"

	"github.com/google/uuid"

	"drivesync/internal/drive"
)

type node struct {
	file     drive.File
	parentID string
	children map[string]string // name -> id, folders only
	content  []byte
}

// Drive is an in-memory drive.API implementation.
type Drive struct {
	mu     sync.RWMutex
	nodes  map[string]*node
	rootID string
	faults map[string]error
}

// New returns an empty drive with a single root folder.
func New() *Drive {
	rootID := uuid.NewString()
	return &Drive{
		nodes: map[string]*node{
			rootID: {
				file:     drive.File{ID: rootID, Name: "", IsFolder: true, ModifiedAt: time.Now()},
				children: map[string]string{},
			},
		},
		rootID: rootID,
		faults: map[string]error{},
	}
}

// RootID returns the id of the implicit root folder.
func (d *Drive) RootID() string {
	return d.rootID
}

// Fail injects an error for one op+id combination. op matches the
// drive.Error Op strings ("list_children", "create_file", ...).
func (d *Drive) Fail(op, id string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults[op+":"+id] = err
}

// ClearFault removes a previously injected error.
func (d *Drive) ClearFault(op, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.faults, op+":"+id)
}

func (d *Drive) fault(op, id string) error {
	return d.faults[op+":"+id]
}

// AddFolder creates a folder for test setup and returns its id.
func (d *Drive) AddFolder(parentID, name string) string {
	f, err := d.CreateFolder(context.Background(), parentID, name)
	if err != nil {
		panic(fmt.Sprintf("memory: add folder %s: %v", name, err))
	}
	return f.ID
}

// AddFile creates a file for test setup and returns its id.
func (d *Drive) AddFile(parentID, name string, content []byte, modifiedAt time.Time) string {
	f, err := d.CreateFile(context.Background(), parentID, name, bytes.NewReader(content), modifiedAt)
	if err != nil {
		panic(fmt.Sprintf("memory: add file %s: %v", name, err))
	}
	return f.ID
}

func (d *Drive) folder(op, id string) (*node, error) {
	n, ok := d.nodes[id]
	if !ok {
		return nil, drive.NewError(drive.KindNotFound, op, id, nil)
	}
	if !n.file.IsFolder {
		return nil, drive.NewError(drive.KindUnrecoverable, op, id, fmt.Errorf("not a folder"))
	}
	return n, nil
}

func (d *Drive) ListChildren(ctx context.Context, folderID string) ([]*drive.File, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.fault("list_children", folderID); err != nil {
		return nil, err
	}
	n, err := d.folder("list_children", folderID)
	if err != nil {
		return nil, err
	}

	out := make([]*drive.File, 0, len(n.children))
	for _, childID := range n.children {
		f := d.nodes[childID].file
		out = append(out, &f)
	}
	return out, nil
}

func (d *Drive) ResolveParents(ctx context.Context, fileID string) ([]string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	n, ok := d.nodes[fileID]
	if !ok {
		return nil, drive.NewError(drive.KindNotFound, "resolve_parents", fileID, nil)
	}

	var parents []string
	for n.parentID != "" {
		parents = append(parents, n.parentID)
		n = d.nodes[n.parentID]
	}
	return parents, nil
}

func (d *Drive) Open(ctx context.Context, fileID string) (io.ReadCloser, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if err := d.fault("open", fileID); err != nil {
		return nil, err
	}
	n, ok := d.nodes[fileID]
	if !ok || n.file.IsFolder {
		return nil, drive.NewError(drive.KindNotFound, "open", fileID, nil)
	}
	return io.NopCloser(bytes.NewReader(n.content)), nil
}

func (d *Drive) CreateFolder(ctx context.Context, parentID, name string) (*drive.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fault("create_folder", parentID); err != nil {
		return nil, err
	}
	parent, err := d.folder("create_folder", parentID)
	if err != nil {
		return nil, err
	}

	if existingID, ok := parent.children[name]; ok {
		existing := d.nodes[existingID]
		if !existing.file.IsFolder {
			return nil, drive.NewError(drive.KindUnrecoverable, "create_folder", name, fmt.Errorf("name taken by a file"))
		}
		f := existing.file
		return &f, nil
	}

	id := uuid.NewString()
	n := &node{
		file:     drive.File{ID: id, Name: name, IsFolder: true, ModifiedAt: time.Now()},
		parentID: parentID,
		children: map[string]string{},
	}
	d.nodes[id] = n
	parent.children[name] = id
	f := n.file
	return &f, nil
}

func (d *Drive) CreateFile(ctx context.Context, folderID, name string, content io.Reader, modifiedAt time.Time) (*drive.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fault("create_file", folderID); err != nil {
		return nil, err
	}
	parent, err := d.folder("create_file", folderID)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(content)
	if err != nil {
		return nil, drive.NewError(drive.KindTransient, "create_file", name, err)
	}

	// same-name child is replaced in place, keeping its id
	if existingID, ok := parent.children[name]; ok {
		existing := d.nodes[existingID]
		if existing.file.IsFolder {
			return nil, drive.NewError(drive.KindUnrecoverable, "create_file", name, fmt.Errorf("name taken by a folder"))
		}
		existing.content = data
		existing.file.Size = int64(len(data))
		existing.file.ModifiedAt = modifiedAt
		f := existing.file
		return &f, nil
	}

	id := uuid.NewString()
	n := &node{
		file: drive.File{
			ID:         id,
			Name:       name,
			Size:       int64(len(data)),
			ModifiedAt: modifiedAt,
			MimeType:   mimeTypeFor(name),
		},
		parentID: folderID,
		content:  data,
	}
	d.nodes[id] = n
	parent.children[name] = id
	f := n.file
	return &f, nil
}

func (d *Drive) CopyFile(ctx context.Context, fileID, newName, targetFolderID string) (*drive.File, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	src, ok := d.nodes[fileID]
	if !ok || src.file.IsFolder {
		return nil, drive.NewError(drive.KindNotFound, "copy_file", fileID, nil)
	}
	if newName == "" {
		newName = src.file.Name
	}
	if targetFolderID == "" {
		targetFolderID = src.parentID
	}
	parent, err := d.folder("copy_file", targetFolderID)
	if err != nil {
		return nil, err
	}
	if _, taken := parent.children[newName]; taken {
		return nil, drive.NewError(drive.KindUnrecoverable, "copy_file", newName, fmt.Errorf("name taken"))
	}

	id := uuid.NewString()
	dup := &node{
		file: drive.File{
			ID:         id,
			Name:       newName,
			Size:       src.file.Size,
			ModifiedAt: src.file.ModifiedAt,
			MimeType:   src.file.MimeType,
		},
		parentID: targetFolderID,
		content:  append([]byte(nil), src.content...),
	}
	d.nodes[id] = dup
	parent.children[newName] = id
	f := dup.file
	return &f, nil
}

func (d *Drive) MoveFile(ctx context.Context, fileID, fromFolderID, toFolderID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.nodes[fileID]
	if !ok {
		return drive.NewError(drive.KindNotFound, "move_file", fileID, nil)
	}
	if n.parentID != fromFolderID {
		return drive.NewError(drive.KindUnrecoverable, "move_file", fileID, fmt.Errorf("not a child of %s", fromFolderID))
	}
	target, err := d.folder("move_file", toFolderID)
	if err != nil {
		return err
	}
	if _, taken := target.children[n.file.Name]; taken {
		return drive.NewError(drive.KindUnrecoverable, "move_file", n.file.Name, fmt.Errorf("name taken"))
	}

	delete(d.nodes[fromFolderID].children, n.file.Name)
	target.children[n.file.Name] = fileID
	n.parentID = toFolderID
	return nil
}

func (d *Drive) RenameFile(ctx context.Context, fileID, newName string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	n, ok := d.nodes[fileID]
	if !ok {
		return drive.NewError(drive.KindNotFound, "rename_file", fileID, nil)
	}
	parent := d.nodes[n.parentID]
	if _, taken := parent.children[newName]; taken {
		return drive.NewError(drive.KindUnrecoverable, "rename_file", newName, fmt.Errorf("name taken"))
	}
	delete(parent.children, n.file.Name)
	parent.children[newName] = fileID
	n.file.Name = newName
	return nil
}

func (d *Drive) DeleteFile(ctx context.Context, fileID string, permanent bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fault("delete_file", fileID); err != nil {
		return err
	}
	n, ok := d.nodes[fileID]
	if !ok {
		return drive.NewError(drive.KindNotFound, "delete_file", fileID, nil)
	}
	if n.file.IsFolder && len(n.children) > 0 {
		return drive.NewError(drive.KindUnrecoverable, "delete_file", fileID, fmt.Errorf("folder not empty"))
	}
	// the memory store has no trash; permanent and soft delete coincide
	if n.parentID != "" {
		delete(d.nodes[n.parentID].children, n.file.Name)
	}
	delete(d.nodes, fileID)
	return nil
}

func mimeTypeFor(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
