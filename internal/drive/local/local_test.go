package local

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"drivesync/internal/drive"
)

func newTestAdapter(t *testing.T) *Adapter {
	t.Helper()
	return New(t.TempDir())
}

func TestListChildren(t *testing.T) {
	a := newTestAdapter(t)
	require.NoError(t, os.MkdirAll(filepath.Join(a.Root(), "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(a.Root(), "readme.md"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(a.Root(), "docs", "a.txt"), []byte("aaa"), 0o644))

	ctx := context.Background()
	root, err := a.ListChildren(ctx, a.RootID())
	require.NoError(t, err)
	require.Len(t, root, 2)

	byName := map[string]*drive.File{}
	for _, f := range root {
		byName[f.Name] = f
	}
	require.Contains(t, byName, "docs")
	assert.True(t, byName["docs"].IsFolder)
	assert.Equal(t, "docs", byName["docs"].ID)
	require.Contains(t, byName, "readme.md")
	assert.False(t, byName["readme.md"].IsFolder)
	assert.Equal(t, int64(2), byName["readme.md"].Size)

	nested, err := a.ListChildren(ctx, "docs")
	require.NoError(t, err)
	require.Len(t, nested, 1)
	assert.Equal(t, "docs/a.txt", nested[0].ID, "ids are slash paths relative to the root")

	_, err = a.ListChildren(ctx, "missing")
	require.Error(t, err)
	assert.True(t, drive.IsNotFound(err))
}

func TestCreateFilePreservesModTime(t *testing.T) {
	a := newTestAdapter(t)
	mtime := time.Date(2026, 2, 14, 8, 30, 0, 0, time.UTC)

	f, err := a.CreateFile(context.Background(), "docs/2026", "notes.txt", bytes.NewReader([]byte("notes")), mtime)
	require.NoError(t, err)
	assert.Equal(t, "docs/2026/notes.txt", f.ID)
	assert.Equal(t, int64(5), f.Size)
	assert.True(t, f.ModifiedAt.Equal(mtime), "got %v", f.ModifiedAt)

	info, err := os.Stat(filepath.Join(a.Root(), "docs", "2026", "notes.txt"))
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(mtime))
}

func TestCreateFileOverwrites(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()

	_, err := a.CreateFile(ctx, "", "a.txt", bytes.NewReader([]byte("first")), time.Now())
	require.NoError(t, err)
	f, err := a.CreateFile(ctx, "", "a.txt", bytes.NewReader([]byte("second!")), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(7), f.Size)

	rc, err := a.Open(ctx, "a.txt")
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "second!", string(data))
}

func TestResolveParents(t *testing.T) {
	a := newTestAdapter(t)
	_, err := a.CreateFile(context.Background(), "x/y", "z.txt", bytes.NewReader(nil), time.Now())
	require.NoError(t, err)

	parents, err := a.ResolveParents(context.Background(), "x/y/z.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"x/y", "x", ""}, parents)

	_, err = a.ResolveParents(context.Background(), "nope.txt")
	require.Error(t, err)
	assert.True(t, drive.IsNotFound(err))
}

func TestCopyMoveRenameDelete(t *testing.T) {
	a := newTestAdapter(t)
	ctx := context.Background()
	mtime := time.Date(2026, 2, 14, 8, 30, 0, 0, time.UTC)

	_, err := a.CreateFile(ctx, "in", "a.txt", bytes.NewReader([]byte("abc")), mtime)
	require.NoError(t, err)
	_, err = a.CreateFolder(ctx, "", "out")
	require.NoError(t, err)

	copied, err := a.CopyFile(ctx, "in/a.txt", "b.txt", "out")
	require.NoError(t, err)
	assert.Equal(t, "out/b.txt", copied.ID)
	assert.True(t, copied.ModifiedAt.Equal(mtime), "copies keep the source mod time")

	require.NoError(t, a.MoveFile(ctx, "in/a.txt", "in", "out"))
	_, err = a.ResolveParents(ctx, "in/a.txt")
	assert.True(t, drive.IsNotFound(err))

	require.NoError(t, a.RenameFile(ctx, "out/a.txt", "c.txt"))

	listing, err := a.ListChildren(ctx, "out")
	require.NoError(t, err)
	names := make([]string, 0, len(listing))
	for _, f := range listing {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{"b.txt", "c.txt"}, names)

	require.NoError(t, a.DeleteFile(ctx, "out/b.txt", true))
	_, err = a.Open(ctx, "out/b.txt")
	assert.True(t, drive.IsNotFound(err))
}

func TestOpenMissingFile(t *testing.T) {
	a := newTestAdapter(t)
	_, err := a.Open(context.Background(), "ghost.txt")
	require.Error(t, err)
	assert.True(t, drive.IsNotFound(err))
}
