// Package report renders batch outcomes for people: a progress bar or
// per-file lines while the run is going, and a summary table at the end.
package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"datesort/internal/batch"
	"datesort/internal/placement"
)

// Options control what a Reporter prints.
type Options struct {
	// Verbose prints one line per file instead of a progress bar.
	Verbose bool
	// Progress shows a progress bar on ProgressOut when not verbose.
	Progress    bool
	ProgressOut io.Writer
	Color       bool
	DryRun      bool
}

// Reporter consumes outcome events on its own goroutine.
type Reporter struct {
	out  io.Writer
	opts Options

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

// New returns a reporter writing lines and the summary to out.
func New(out io.Writer, opts Options) *Reporter {
	if opts.ProgressOut == nil {
		opts.ProgressOut = os.Stderr
	}
	return &Reporter{out: out, opts: opts}
}

// Interactive reports whether f is a terminal.
func Interactive(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// RootStarted resets the progress bar for a root with the given file count.
func (r *Reporter) RootStarted(root string, files int) {
	if r.opts.Verbose || !r.opts.Progress {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil {
		_ = r.bar.Finish()
	}
	r.bar = progressbar.NewOptions(files,
		progressbar.OptionSetWriter(r.opts.ProgressOut),
		progressbar.OptionSetDescription(root),
		progressbar.OptionSetWidth(20),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionClearOnFinish(),
	)
}

// Consume reads events until the channel is closed. The returned channel is
// closed once every event has been handled.
func (r *Reporter) Consume(events <-chan batch.Outcome) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for o := range events {
			r.handle(o)
		}
		r.mu.Lock()
		if r.bar != nil {
			_ = r.bar.Finish()
			r.bar = nil
		}
		r.mu.Unlock()
	}()
	return done
}

func (r *Reporter) handle(o batch.Outcome) {
	if r.opts.Verbose {
		fmt.Fprintln(r.out, r.Line(o))
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bar != nil {
		_ = r.bar.Add(1)
	}
}

// Replay prints outcomes the reporter never received, once the run is over,
// so verbose output still lists every file.
func (r *Reporter) Replay(outcomes []batch.Outcome) {
	if !r.opts.Verbose {
		return
	}
	for _, o := range outcomes {
		fmt.Fprintln(r.out, r.Line(o))
	}
}

// Line formats one outcome for display.
func (r *Reporter) Line(o batch.Outcome) string {
	label, colors := r.label(o)
	var body string
	switch {
	case o.Failed():
		body = fmt.Sprintf("%s: %v", o.File, o.Err)
	case o.Decision.Kind == placement.Moved && o.Resolver != "":
		body = fmt.Sprintf("%s (%s %s)", o.Decision, o.Resolver, o.Date.Format("2006-01-02 15:04:05"))
	default:
		body = o.Decision.String()
	}
	return r.paint(colors, fmt.Sprintf("%-10s", label)) + " " + body
}

func (r *Reporter) label(o batch.Outcome) (string, text.Colors) {
	switch {
	case o.Failed():
		return "failed", text.Colors{text.FgRed, text.Bold}
	case o.Decision.Kind == placement.Moved:
		if r.opts.DryRun {
			return "would move", text.Colors{text.FgCyan}
		}
		return "moved", text.Colors{text.FgGreen}
	case o.Decision.Kind == placement.AlreadyInPlace:
		return "in place", text.Colors{text.Faint}
	default:
		return "skipped", text.Colors{text.FgYellow}
	}
}

func (r *Reporter) paint(colors text.Colors, s string) string {
	if !r.opts.Color {
		return s
	}
	return colors.Sprint(s)
}

// Summary renders the per-root and total tallies as a table.
func (r *Reporter) Summary(s batch.Summary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Root", "Moved", "In place", "Collisions", "No date", "Failed", "Total"})
	for _, root := range s.Roots {
		tw.AppendRow(statsRow(root.Root, root.Stats))
	}
	if len(s.Roots) > 1 {
		tw.AppendFooter(statsRow("Total", s.Total))
	}

	configs := []table.ColumnConfig{{Number: 1, Align: text.AlignLeft, AlignHeader: text.AlignLeft}}
	for i := 2; i <= 7; i++ {
		configs = append(configs, table.ColumnConfig{Number: i, Align: text.AlignRight, AlignHeader: text.AlignLeft, AlignFooter: text.AlignRight})
	}
	tw.SetColumnConfigs(configs)

	out := tw.Render()
	if s.DryRun {
		out += "\n" + r.paint(text.Colors{text.FgCyan}, "Dry run: no files were changed.")
	}
	if s.Total.Failed > 0 {
		out += "\n" + r.paint(text.Colors{text.FgRed}, fmt.Sprintf("%d file(s) could not be placed; see the log for details.", s.Total.Failed))
	}
	return out
}

func statsRow(name string, st batch.Stats) table.Row {
	return table.Row{
		name,
		strconv.Itoa(st.Moved),
		strconv.Itoa(st.AlreadyInPlace),
		strconv.Itoa(st.Collisions),
		strconv.Itoa(st.Unresolvable),
		strconv.Itoa(st.Failed),
		strconv.Itoa(st.Total),
	}
}
