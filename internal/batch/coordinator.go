// Package batch runs the date resolution and placement pipeline over every
// file beneath a set of source roots.
package batch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/afero"

	"datesort/internal/discovery"
	derrors "datesort/internal/errors"
	"datesort/internal/logging"
	"datesort/internal/placement"
	"datesort/internal/resolve"
)

// DateResolver is the resolver chain as seen by the coordinator.
type DateResolver interface {
	Resolve(path string) (resolve.Resolution, bool)
}

// Placer is the placement engine as seen by the coordinator.
type Placer interface {
	Place(file, root string, date time.Time, dryRun bool) (placement.Decision, error)
}

// Options configure a Coordinator.
type Options struct {
	DryRun    bool
	Workers   int
	Discovery discovery.Options
	// LockDir holds per-root run lock files. Empty disables run locking.
	LockDir string
	// OnRootStart, when set, is called with the number of candidate files
	// before a root is processed.
	OnRootStart func(root string, files int)
}

// Coordinator sequences discovery, date resolution and placement.
type Coordinator struct {
	fs      afero.Fs
	chain   DateResolver
	engine  Placer
	opts    Options
	events  chan<- Outcome
}

// New creates a coordinator. Workers below 1 are treated as 1.
func New(fs afero.Fs, chain DateResolver, engine Placer, opts Options) *Coordinator {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Coordinator{fs: fs, chain: chain, engine: engine, opts: opts}
}

// SetEvents registers a channel that receives a copy of every outcome. Sends
// never block: when the channel is full the event is dropped and kept in
// Summary.Dropped instead. The caller owns the channel and closes it after
// Run returns.
func (c *Coordinator) SetEvents(events chan<- Outcome) {
	c.events = events
}

// Run processes every root in order. Roots are validated and locked before
// any file is touched; a bad root aborts the run with a SOURCE_INVALID or
// LOCK error. Per-file failures are tallied, never returned. A cancelled
// context stops dispatching new files and its error is returned with the
// partial summary.
func (c *Coordinator) Run(ctx context.Context, roots []string) (Summary, error) {
	logger := logging.GetLogger("batch")
	defer logging.LogOperationStart(logger, "organize")()
	start := time.Now()
	summary := Summary{DryRun: c.opts.DryRun}

	cleaned, err := c.validateRoots(roots)
	if err != nil {
		return summary, err
	}

	release, err := c.lockRoots(cleaned)
	if err != nil {
		return summary, err
	}
	defer release()

	for _, root := range cleaned {
		logger.Info().Str("root", root).Int("workers", c.opts.Workers).Bool("dryRun", c.opts.DryRun).Msg("Processing source root")
		rs, dropped, err := c.processRoot(ctx, root)
		summary.Roots = append(summary.Roots, rs)
		summary.Total.merge(rs.Stats)
		summary.Dropped = append(summary.Dropped, dropped...)
		if err != nil {
			summary.Elapsed = time.Since(start)
			return summary, err
		}
	}

	summary.Elapsed = time.Since(start)
	logger.Info().
		Int("total", summary.Total.Total).
		Int("moved", summary.Total.Moved).
		Int("failed", summary.Total.Failed).
		Dur("elapsed", summary.Elapsed).
		Msg("Run complete")
	return summary, nil
}

func (c *Coordinator) validateRoots(roots []string) ([]string, error) {
	if len(roots) == 0 {
		return nil, derrors.New(derrors.ErrSourceInvalid, "no source roots given")
	}
	seen := make(map[string]struct{}, len(roots))
	cleaned := make([]string, 0, len(roots))
	for _, root := range roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, derrors.Wrapf(err, derrors.ErrSourceInvalid, "resolve source root %s", root)
		}
		info, err := c.fs.Stat(abs)
		if err != nil {
			return nil, derrors.Wrapf(err, derrors.ErrSourceInvalid, "source root %s is not accessible", abs).
				WithDetail("path", abs)
		}
		if !info.IsDir() {
			return nil, derrors.Newf(derrors.ErrSourceInvalid, "source root %s is not a directory", abs).
				WithDetail("path", abs)
		}
		abs = c.canonicalRoot(abs)
		if _, dup := seen[abs]; dup {
			continue
		}
		seen[abs] = struct{}{}
		cleaned = append(cleaned, abs)
	}

	for i, a := range cleaned {
		for _, b := range cleaned[i+1:] {
			if within(a, b) || within(b, a) {
				return nil, derrors.Newf(derrors.ErrSourceInvalid, "source roots %s and %s overlap", a, b).
					WithDetail("path", b)
			}
		}
	}
	return cleaned, nil
}

// canonicalRoot resolves symlinks on the real filesystem. The walk does not
// follow links, so a linked root must be walked at its target.
func (c *Coordinator) canonicalRoot(path string) string {
	if _, ok := c.fs.(*afero.OsFs); !ok {
		return path
	}
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}
	return path
}

// within reports whether path lies strictly below parent.
func within(parent, path string) bool {
	rel, err := filepath.Rel(parent, path)
	if err != nil || rel == "." || rel == ".." {
		return false
	}
	return !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// lockRoots takes an exclusive lock per root so two runs never reorganize
// the same tree at once. The returned function releases every lock.
func (c *Coordinator) lockRoots(roots []string) (func(), error) {
	if c.opts.LockDir == "" {
		return func() {}, nil
	}
	if err := os.MkdirAll(c.opts.LockDir, 0o755); err != nil {
		return nil, derrors.Wrapf(err, derrors.ErrLock, "create lock directory %s", c.opts.LockDir)
	}

	var held []*flock.Flock
	release := func() {
		for _, l := range held {
			_ = l.Unlock()
		}
	}
	for _, root := range roots {
		l := flock.New(LockPath(c.opts.LockDir, root))
		ok, err := l.TryLock()
		if err != nil {
			release()
			return nil, derrors.Wrapf(err, derrors.ErrLock, "lock source root %s", root)
		}
		if !ok {
			release()
			return nil, derrors.Newf(derrors.ErrLock, "source root %s is being organized by another datesort run", root).
				WithDetail("path", root)
		}
		held = append(held, l)
	}
	return release, nil
}

// LockPath returns the lock file used for root inside lockDir.
func LockPath(lockDir, root string) string {
	sum := sha256.Sum256([]byte(root))
	return filepath.Join(lockDir, hex.EncodeToString(sum[:8])+".lock")
}

// processRoot snapshots the candidate list before any file moves, so files
// placed into not yet visited directories are never seen twice. It returns
// the root's outcomes and the ones the event channel could not take.
func (c *Coordinator) processRoot(ctx context.Context, root string) (RootStats, []Outcome, error) {
	rs := RootStats{Root: root}
	files, err := discovery.Collect(c.fs, root, c.opts.Discovery)
	if err != nil {
		return rs, nil, derrors.Wrapf(err, derrors.ErrSourceInvalid, "scan source root %s", root).
			WithDetail("path", root)
	}
	logger := logging.GetLogger("batch")
	logger.Debug().Str("root", root).Int("files", len(files)).Msg("Discovered candidate files")
	if c.opts.OnRootStart != nil {
		c.opts.OnRootStart(root, len(files))
	}

	jobs := make(chan string)
	results := make(chan Outcome, c.opts.Workers)
	var wg sync.WaitGroup

	for w := 0; w < c.opts.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range jobs {
				results <- c.processFile(root, path)
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, path := range files {
			if ctx.Err() != nil {
				return
			}
			select {
			case jobs <- path:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	var dropped []Outcome
	for outcome := range results {
		rs.Stats.Add(outcome)
		rs.Outcomes = append(rs.Outcomes, outcome)
		if !c.emit(outcome) {
			dropped = append(dropped, outcome)
		}
	}

	if err := ctx.Err(); err != nil {
		return rs, dropped, fmt.Errorf("organize %s: %w", root, err)
	}
	return rs, dropped, nil
}

func (c *Coordinator) processFile(root, path string) Outcome {
	logger := logging.GetLogger("batch")
	outcome := Outcome{Root: root, File: path}

	res, ok := c.chain.Resolve(path)
	if !ok {
		logger.Info().Str("file", path).Msg("Skipping, no date found")
		outcome.Decision = placement.Unresolvable(path)
		return outcome
	}
	outcome.Date = res.Date
	outcome.Resolver = res.Resolver

	decision, err := c.engine.Place(path, root, res.Date, c.opts.DryRun)
	if err != nil {
		logger.Error().Err(err).Str("file", path).Msg("Failed to place file")
		outcome.Decision = decision
		outcome.Err = err
		return outcome
	}
	outcome.Decision = decision
	return outcome
}

// emit reports false when an events channel is set but full.
func (c *Coordinator) emit(o Outcome) bool {
	if c.events == nil {
		return true
	}
	select {
	case c.events <- o:
		return true
	default:
		return false
	}
}
