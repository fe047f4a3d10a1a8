package sync

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"drivesync/internal/drive"
)

// MimeClass is a coarse content category derived from the provider mime
// type. Filters match on it so pairings can sync "images only" without
// enumerating every mime string.
type MimeClass string

const (
	ClassFolder       MimeClass = "folder"
	ClassDocument     MimeClass = "document"
	ClassSpreadsheet  MimeClass = "spreadsheet"
	ClassPresentation MimeClass = "presentation"
	ClassImage        MimeClass = "image"
	ClassVideo        MimeClass = "video"
	ClassAudio        MimeClass = "audio"
	ClassArchive      MimeClass = "archive"
	ClassText         MimeClass = "text"
	ClassOther        MimeClass = "other"
)

// ClassifyMime maps a raw mime type onto a MimeClass.
func ClassifyMime(mimeType string) MimeClass {
	mt := strings.ToLower(mimeType)
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch mt {
	case "application/pdf", "application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.oasis.opendocument.text":
		return ClassDocument
	case "application/vnd.ms-excel", "text/csv",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.oasis.opendocument.spreadsheet":
		return ClassSpreadsheet
	case "application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation":
		return ClassPresentation
	case "application/zip", "application/gzip", "application/x-tar",
		"application/x-7z-compressed", "application/x-rar-compressed":
		return ClassArchive
	}

	switch {
	case strings.HasPrefix(mt, "image/"):
		return ClassImage
	case strings.HasPrefix(mt, "video/"):
		return ClassVideo
	case strings.HasPrefix(mt, "audio/"):
		return ClassAudio
	case strings.HasPrefix(mt, "text/"):
		return ClassText
	}
	return ClassOther
}

// FileEntry is the sync-relevant view of one file inside a tree snapshot.
// Immutable once built; RelPath is unique within a snapshot because the
// snapshot is keyed by it.
type FileEntry struct {
	ID          string    `json:"id"`
	RelPath     string    `json:"rel_path"` // slash-separated, relative to the snapshot root
	Size        int64     `json:"size"`
	ModifiedAt  time.Time `json:"modified_at"`
	Fingerprint string    `json:"fingerprint"`
	MimeClass   MimeClass `json:"mime_class"`
}

// Name returns the last path segment.
func (e FileEntry) Name() string {
	return path.Base(e.RelPath)
}

// NewFileEntry builds an entry from a listing row at the given relative
// path, computing its fingerprint.
func NewFileEntry(relPath string, f *drive.File) FileEntry {
	return FileEntry{
		ID:          f.ID,
		RelPath:     relPath,
		Size:        f.Size,
		ModifiedAt:  f.ModifiedAt,
		Fingerprint: Fingerprint(f.Name, f.Size, f.ModifiedAt),
		MimeClass:   ClassifyMime(f.MimeType),
	}
}

// Fingerprint derives a cheap change marker from name, size and mtime.
// It is a metadata stand-in for content equality, not a content hash:
// two files with identical name/size/mtime are assumed identical.
func Fingerprint(name string, size int64, modifiedAt time.Time) string {
	sum := xxhash.Sum64String(fmt.Sprintf("%s|%d|%d", name, size, modifiedAt.UnixMilli()))
	return fmt.Sprintf("%016x", sum)
}
