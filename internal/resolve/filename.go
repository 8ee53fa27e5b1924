package resolve

import (
	"path/filepath"
	"time"

	"datesort/internal/datetime"
)

// Filename resolves dates from a file's base name using heuristic parsing.
type Filename struct {
	parser *datetime.Parser
}

// NewFilename returns a file name resolver.
func NewFilename(parser *datetime.Parser) *Filename {
	return &Filename{parser: parser}
}

func (f *Filename) Name() string { return "filename" }

// Resolve parses the base name only; the extension is left on.
func (f *Filename) Resolve(path string) (time.Time, bool) {
	base := filepath.Base(path)
	if base == "." || base == string(filepath.Separator) {
		return time.Time{}, false
	}
	return f.parser.Parse(base, false)
}
