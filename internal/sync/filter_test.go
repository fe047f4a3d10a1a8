package sync

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterNilAcceptsAll(t *testing.T) {
	var f *Filter
	assert.True(t, f.Match(entry("anything/at/all.bin", 1, t1)))
	assert.NoError(t, f.Validate())
}

func TestFilterGlobs(t *testing.T) {
	f := &Filter{
		Include: []string{"docs/**"},
		Exclude: []string{"**/*.tmp"},
	}
	assert.NoError(t, f.Validate())

	assert.True(t, f.Match(entry("docs/readme.md", 1, t1)))
	assert.True(t, f.Match(entry("docs/deep/nested/file.txt", 1, t1)))
	assert.False(t, f.Match(entry("src/main.go", 1, t1)))
	// exclude wins over include
	assert.False(t, f.Match(entry("docs/scratch.tmp", 1, t1)))
}

func TestFilterMimeAndSize(t *testing.T) {
	f := &Filter{
		MimeClasses: []MimeClass{ClassImage},
		MinSize:     100,
		MaxSize:     1000,
	}

	img := entry("a.jpg", 500, t1)
	img.MimeClass = ClassImage
	assert.True(t, f.Match(img))

	small := entry("b.jpg", 10, t1)
	small.MimeClass = ClassImage
	assert.False(t, f.Match(small))

	big := entry("c.jpg", 5000, t1)
	big.MimeClass = ClassImage
	assert.False(t, f.Match(big))

	doc := entry("d.pdf", 500, t1)
	doc.MimeClass = ClassDocument
	assert.False(t, f.Match(doc))
}

func TestFilterValidateRejectsBadGlob(t *testing.T) {
	f := &Filter{Include: []string{"docs/[**"}}
	assert.Error(t, f.Validate())
}
