package placement

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/ncruces/go-strftime"

	derrors "datesort/internal/errors"
)

// DefaultPattern places files under <year>/<month name>, e.g. 2020/January.
const DefaultPattern = "%Y/%B"

// sampleDates exercise every field width a pattern can react to.
var sampleDates = []time.Time{
	time.Date(1960, time.January, 1, 0, 0, 0, 0, time.UTC),
	time.Date(1999, time.December, 31, 23, 59, 59, 0, time.UTC),
	time.Date(2020, time.February, 29, 12, 30, 45, 0, time.UTC),
}

// Template maps a resolved date to a directory path relative to a source
// root, using strftime directives.
type Template struct {
	pattern string
}

// NewTemplate compiles pattern. It fails unless the pattern contains a
// directive and formats every sample date to a non-empty relative path that
// stays inside the root.
func NewTemplate(pattern string) (*Template, error) {
	if !strings.Contains(pattern, "%") {
		return nil, derrors.Newf(derrors.ErrTemplateInvalid, "template %q has no date directive", pattern)
	}
	t := &Template{pattern: pattern}
	for _, sample := range sampleDates {
		rel := t.Apply(sample)
		switch {
		case rel == "." || rel == "":
			return nil, derrors.Newf(derrors.ErrTemplateInvalid, "template %q formats to an empty path", pattern)
		case filepath.IsAbs(rel):
			return nil, derrors.Newf(derrors.ErrTemplateInvalid, "template %q formats to an absolute path", pattern)
		case rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)):
			return nil, derrors.Newf(derrors.ErrTemplateInvalid, "template %q escapes the source root", pattern)
		}
	}
	return t, nil
}

// MustTemplate is NewTemplate for patterns known to be valid.
func MustTemplate(pattern string) *Template {
	t, err := NewTemplate(pattern)
	if err != nil {
		panic(err)
	}
	return t
}

// Pattern returns the strftime pattern.
func (t *Template) Pattern() string { return t.pattern }

// Apply formats date into a cleaned, OS-specific relative directory path.
func (t *Template) Apply(date time.Time) string {
	out := strings.TrimSpace(strftime.Format(t.pattern, date))
	if out == "" {
		return ""
	}
	return filepath.Clean(filepath.FromSlash(out))
}
