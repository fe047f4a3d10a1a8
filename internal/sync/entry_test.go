package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"drivesync/internal/drive"
)

func TestFingerprintDeterministic(t *testing.T) {
	mtime := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	fp := Fingerprint("report.pdf", 1024, mtime)
	assert.Equal(t, fp, Fingerprint("report.pdf", 1024, mtime))
	assert.Len(t, fp, 16)

	assert.NotEqual(t, fp, Fingerprint("report.pdf", 1025, mtime))
	assert.NotEqual(t, fp, Fingerprint("other.pdf", 1024, mtime))
	assert.NotEqual(t, fp, Fingerprint("report.pdf", 1024, mtime.Add(time.Second)))
}

func TestNewFileEntry(t *testing.T) {
	mtime := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	f := &drive.File{ID: "abc", Name: "photo.jpg", Size: 2048, ModifiedAt: mtime, MimeType: "image/jpeg"}

	e := NewFileEntry("vacation/photo.jpg", f)
	assert.Equal(t, "abc", e.ID)
	assert.Equal(t, "vacation/photo.jpg", e.RelPath)
	assert.Equal(t, "photo.jpg", e.Name())
	assert.Equal(t, ClassImage, e.MimeClass)
	assert.Equal(t, Fingerprint("photo.jpg", 2048, mtime), e.Fingerprint)
}

func TestClassifyMime(t *testing.T) {
	tests := map[string]MimeClass{
		"image/png":                 ClassImage,
		"video/mp4":                 ClassVideo,
		"audio/mpeg":                ClassAudio,
		"text/plain; charset=utf-8": ClassText,
		"application/pdf":           ClassDocument,
		"text/csv":                  ClassSpreadsheet,
		"application/zip":           ClassArchive,
		"application/x-unknown":     ClassOther,
		"": ClassOther,
	}
	for mt, want := range tests {
		assert.Equal(t, want, ClassifyMime(mt), "mime %q", mt)
	}
}
