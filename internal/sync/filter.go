package sync

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
)

// Filter selects which files a tree snapshot includes. The zero value
// (and nil) accepts everything.
type Filter struct {
	// Include, when non-empty, admits only paths matching at least one
	// doublestar glob ("docs/**/*.md").
	Include []string `json:"include,omitempty"`
	// Exclude rejects matching paths; it wins over Include.
	Exclude []string `json:"exclude,omitempty"`
	// MimeClasses, when non-empty, admits only the listed classes.
	MimeClasses []MimeClass `json:"mime_classes,omitempty"`
	// MinSize / MaxSize bound the file size in bytes; 0 means unbounded.
	MinSize int64 `json:"min_size,omitempty"`
	MaxSize int64 `json:"max_size,omitempty"`
}

// Validate checks every glob, so Match can ignore pattern errors.
func (f *Filter) Validate() error {
	if f == nil {
		return nil
	}
	for _, p := range append(append([]string{}, f.Include...), f.Exclude...) {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("invalid glob pattern %q", p)
		}
	}
	if f.MinSize < 0 || f.MaxSize < 0 {
		return fmt.Errorf("negative size bound")
	}
	return nil
}

// Match reports whether the entry passes the filter.
func (f *Filter) Match(e FileEntry) bool {
	if f == nil {
		return true
	}

	for _, p := range f.Exclude {
		if ok, _ := doublestar.Match(p, e.RelPath); ok {
			return false
		}
	}

	if len(f.Include) > 0 {
		matched := false
		for _, p := range f.Include {
			if ok, _ := doublestar.Match(p, e.RelPath); ok {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	if len(f.MimeClasses) > 0 {
		found := false
		for _, c := range f.MimeClasses {
			if c == e.MimeClass {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	if f.MinSize > 0 && e.Size < f.MinSize {
		return false
	}
	if f.MaxSize > 0 && e.Size > f.MaxSize {
		return false
	}
	return true
}
