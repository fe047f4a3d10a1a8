package sync

import (
	"context"
	"log/slog"
	"path"

	"drivesync/internal/drive"
)

// Snapshot walks the subtree rooted at rootID and returns its files
// keyed by relative path. Folders are descended (when recurse is true)
// but never appear as entries themselves.
//
// An unresolvable root is fatal. A branch whose listing fails deeper in
// the tree is logged and skipped: the snapshot is then advisory, a plan
// built from it simply excludes the unreadable branch.
func Snapshot(ctx context.Context, api drive.API, rootID string, filter *Filter, recurse bool) (map[string]FileEntry, error) {
	entries := make(map[string]FileEntry)
	skipped := 0

	var walk func(folderID, prefix string, depth int) error
	walk = func(folderID, prefix string, depth int) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		children, err := api.ListChildren(ctx, folderID)
		if err != nil {
			if depth == 0 {
				return err
			}
			slog.Warn("skipping unreadable branch", "path", prefix, "err", err)
			skipped++
			return nil
		}

		for _, child := range children {
			relPath := path.Join(prefix, child.Name)
			if child.IsFolder {
				if recurse {
					if err := walk(child.ID, relPath, depth+1); err != nil {
						return err
					}
				}
				continue
			}
			entry := NewFileEntry(relPath, child)
			if !filter.Match(entry) {
				continue
			}
			entries[relPath] = entry
		}
		return nil
	}

	if err := walk(rootID, "", 0); err != nil {
		return nil, err
	}
	if skipped > 0 {
		slog.Warn("snapshot incomplete", "root", rootID, "skipped_branches", skipped, "files", len(entries))
	}
	return entries, nil
}
