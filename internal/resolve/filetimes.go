package resolve

import (
	"time"

	"github.com/djherbis/times"
	"github.com/spf13/afero"

	"datesort/internal/datetime"
	"datesort/internal/logging"
)

// FileTimes resolves dates from filesystem timestamps: the earlier of the
// birth time and the modification time. The modification time comes from the
// injected filesystem; birth time is only known on the real OS, where the
// platform records one.
type FileTimes struct {
	fs     afero.Fs
	parser *datetime.Parser
	birth  func(name string) (times.Timespec, error)
}

// NewFileTimes returns a file time resolver reading fs.
func NewFileTimes(fs afero.Fs, parser *datetime.Parser) *FileTimes {
	f := &FileTimes{fs: fs, parser: parser}
	if _, ok := fs.(*afero.OsFs); ok {
		f.birth = times.Stat
	}
	return f
}

func (f *FileTimes) Name() string { return "file-times" }

func (f *FileTimes) Resolve(path string) (time.Time, bool) {
	logger := logging.GetLogger("file-times")
	info, err := f.fs.Stat(path)
	if err != nil {
		logger.Debug().Err(err).Str("file", path).Msg("Cannot stat file")
		return time.Time{}, false
	}
	t := info.ModTime()
	if f.birth != nil {
		ts, err := f.birth(path)
		switch {
		case err != nil:
			logger.Debug().Err(err).Str("file", path).Msg("Cannot read birth time")
		case ts.HasBirthTime() && ts.BirthTime().Before(t):
			t = ts.BirthTime()
		}
	}
	return f.parser.Validate(datetime.Naive(t.Local()))
}
