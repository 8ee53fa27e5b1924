// Package placement computes where a dated file belongs and moves it there
// without ever overwriting another file.
package placement

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	derrors "datesort/internal/errors"
	"datesort/internal/logging"
)

// Engine places files into a date-partitioned tree under their source root.
// It is safe for concurrent use: the collision check, directory creation and
// rename for one destination path run as a single critical section.
type Engine struct {
	fs       afero.Fs
	template *Template
	locks    *keyedMutex

	mu sync.Mutex
	// projected maps destinations claimed by dry-run moves to their source.
	projected map[string]string
	// vacated holds sources a dry-run move has taken away.
	vacated map[string]struct{}
}

// NewEngine returns an engine operating on fs with the given template.
func NewEngine(filesystem afero.Fs, template *Template) *Engine {
	return &Engine{
		fs:        filesystem,
		template:  template,
		locks:     newKeyedMutex(),
		projected: make(map[string]string),
		vacated:   make(map[string]struct{}),
	}
}

// Template returns the engine's directory template.
func (e *Engine) Template() *Template { return e.template }

// Destination returns root/<template(date)>/<base name of file>.
func (e *Engine) Destination(file, root string, date time.Time) string {
	return filepath.Join(root, e.template.Apply(date), filepath.Base(file))
}

// Place moves file to its destination for date under root. An existing
// destination is never overwritten: if it is file itself the decision is
// AlreadyInPlace, otherwise Skipped. With dryRun set, the decision a real run
// would make is returned and the filesystem is left untouched.
//
// Stat, directory creation and rename failures are returned as errors along
// with a Failed decision.
func (e *Engine) Place(file, root string, date time.Time, dryRun bool) (Decision, error) {
	logger := logging.GetLogger("placement")
	dest := e.Destination(file, root, date)

	unlock := e.locks.Lock(dest)
	defer unlock()

	destInfo, err := e.fs.Stat(dest)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Decision{Kind: Failed, From: file, To: dest}, derrors.Wrapf(err, derrors.ErrStat, "stat destination %s", dest).
			WithDetail("path", dest)
	}
	occupied := err == nil
	if occupied && dryRun && e.wasVacated(dest) {
		occupied = false
	}
	if occupied {
		if e.isSameFile(file, dest, destInfo) {
			logger.Debug().Str("file", file).Msg("Already in place")
			return Decision{Kind: AlreadyInPlace, From: file, To: dest}, nil
		}
		logger.Debug().Str("file", file).Str("destination", dest).Msg("Destination exists, skipping")
		return Decision{Kind: Skipped, Reason: ReasonDestinationExists, From: file, To: dest}, nil
	}

	if dryRun {
		if !e.claim(dest, file) {
			logger.Debug().Str("file", file).Str("destination", dest).Msg("Destination already claimed in this dry run")
			return Decision{Kind: Skipped, Reason: ReasonDestinationExists, From: file, To: dest}, nil
		}
		return Decision{Kind: Moved, From: file, To: dest}, nil
	}

	parent := filepath.Dir(dest)
	if err := e.fs.MkdirAll(parent, 0o755); err != nil {
		return Decision{Kind: Failed, From: file, To: dest}, derrors.Wrapf(err, derrors.ErrDirCreate, "create directory %s", parent).
			WithDetail("path", parent)
	}
	if err := e.fs.Rename(file, dest); err != nil {
		return Decision{Kind: Failed, From: file, To: dest}, derrors.Wrapf(err, derrors.ErrMove, "move %s to %s", file, dest).
			WithDetail("path", file).
			WithDetail("destination", dest)
	}
	logger.Info().Str("file", file).Str("destination", dest).Msg("Moved")
	return Decision{Kind: Moved, From: file, To: dest}, nil
}

// claim records a dry-run move of file to dest. It reports false if another
// file already claimed dest during this run.
func (e *Engine) claim(dest, file string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if owner, ok := e.projected[dest]; ok && owner != file {
		return false
	}
	e.projected[dest] = file
	e.vacated[file] = struct{}{}
	return true
}

// wasVacated reports whether a dry-run move already took the file at path
// away, so a real run would find path free.
func (e *Engine) wasVacated(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.vacated[path]
	return ok
}

// isSameFile compares canonical paths first, then file identity, so that
// symlinked roots and hard links are recognised as already placed.
func (e *Engine) isSameFile(file, dest string, destInfo os.FileInfo) bool {
	if e.canonical(file) == e.canonical(dest) {
		return true
	}
	srcInfo, err := e.fs.Stat(file)
	return err == nil && os.SameFile(srcInfo, destInfo)
}

func (e *Engine) canonical(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if _, ok := e.fs.(*afero.OsFs); ok {
		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			return resolved
		}
	}
	return filepath.Clean(path)
}
