package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datesort/internal/batch"
	"datesort/internal/placement"
)

func TestLine(t *testing.T) {
	r := New(&bytes.Buffer{}, Options{})
	date := time.Date(2020, time.January, 1, 3, 4, 5, 0, time.UTC)

	moved := batch.Outcome{
		File:     "/p/a.jpg",
		Date:     date,
		Resolver: "filename",
		Decision: placement.Decision{Kind: placement.Moved, From: "/p/a.jpg", To: "/p/2020/January/a.jpg"},
	}
	assert.Equal(t, "moved      /p/a.jpg -> /p/2020/January/a.jpg (filename 2020-01-01 03:04:05)", r.Line(moved))

	inPlace := batch.Outcome{File: "/p/a.jpg", Decision: placement.Decision{Kind: placement.AlreadyInPlace, From: "/p/a.jpg"}}
	assert.Equal(t, "in place   /p/a.jpg (already in place)", r.Line(inPlace))

	skipped := batch.Outcome{File: "/p/b.jpg", Decision: placement.Unresolvable("/p/b.jpg")}
	assert.Equal(t, "skipped    /p/b.jpg (skipped: unresolvable date)", r.Line(skipped))

	failed := batch.Outcome{File: "/p/c.jpg", Err: errors.New("permission denied")}
	assert.Equal(t, "failed     /p/c.jpg: permission denied", r.Line(failed))

	dry := New(&bytes.Buffer{}, Options{DryRun: true})
	assert.True(t, strings.HasPrefix(dry.Line(moved), "would move "))
}

func TestLineColor(t *testing.T) {
	r := New(&bytes.Buffer{}, Options{Color: true})
	line := r.Line(batch.Outcome{File: "/p/c.jpg", Err: errors.New("boom")})
	assert.Contains(t, line, "\x1b[")
	assert.Contains(t, line, "/p/c.jpg: boom")
}

func TestConsumeVerbosePrintsEveryOutcome(t *testing.T) {
	var out bytes.Buffer
	r := New(&out, Options{Verbose: true})

	events := make(chan batch.Outcome, 2)
	done := r.Consume(events)
	events <- batch.Outcome{File: "/p/a.jpg", Decision: placement.Unresolvable("/p/a.jpg")}
	events <- batch.Outcome{File: "/p/b.jpg", Decision: placement.Unresolvable("/p/b.jpg")}
	close(events)
	<-done

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "/p/a.jpg")
	assert.Contains(t, lines[1], "/p/b.jpg")
}

func TestReplayPrintsOnlyWhenVerbose(t *testing.T) {
	missed := []batch.Outcome{{File: "/p/late.jpg", Decision: placement.Unresolvable("/p/late.jpg")}}

	var quiet bytes.Buffer
	New(&quiet, Options{}).Replay(missed)
	assert.Empty(t, quiet.String())

	var verbose bytes.Buffer
	New(&verbose, Options{Verbose: true}).Replay(missed)
	assert.Equal(t, "skipped    /p/late.jpg (skipped: unresolvable date)\n", verbose.String())
}

func TestConsumeDrivesProgressBar(t *testing.T) {
	var out, progress bytes.Buffer
	r := New(&out, Options{Progress: true, ProgressOut: &progress})
	r.RootStarted("/p", 2)

	events := make(chan batch.Outcome, 2)
	done := r.Consume(events)
	events <- batch.Outcome{File: "/p/a.jpg", Decision: placement.Unresolvable("/p/a.jpg")}
	events <- batch.Outcome{File: "/p/b.jpg", Decision: placement.Unresolvable("/p/b.jpg")}
	close(events)
	<-done

	assert.Empty(t, out.String())
	assert.NotEmpty(t, progress.String())
}

func TestSummary(t *testing.T) {
	r := New(&bytes.Buffer{}, Options{})
	s := batch.Summary{
		Roots: []batch.RootStats{
			{Root: "/photos", Stats: batch.Stats{Total: 4, Moved: 2, AlreadyInPlace: 1, Unresolvable: 1}},
			{Root: "/scans", Stats: batch.Stats{Total: 3, Collisions: 1, Failed: 2}},
		},
		Total:  batch.Stats{Total: 7, Moved: 2, AlreadyInPlace: 1, Collisions: 1, Unresolvable: 1, Failed: 2},
		DryRun: true,
	}

	out := r.Summary(s)
	assert.Contains(t, out, "/photos")
	assert.Contains(t, out, "/scans")
	assert.Equal(t, 2, strings.Count(strings.ToLower(out), "total"), "header and footer")
	assert.Contains(t, out, "Dry run: no files were changed.")
	assert.Contains(t, out, "2 file(s) could not be placed")
	assert.NotContains(t, out, "\x1b[")
}

func TestSummarySingleRootHasNoFooter(t *testing.T) {
	r := New(&bytes.Buffer{}, Options{})
	out := r.Summary(batch.Summary{
		Roots: []batch.RootStats{{Root: "/photos", Stats: batch.Stats{Total: 1, Moved: 1}}},
		Total: batch.Stats{Total: 1, Moved: 1},
	})
	assert.Contains(t, out, "/photos")
	assert.Equal(t, 1, strings.Count(strings.ToLower(out), "total"), "header only")
	assert.NotContains(t, out, "Dry run")
}
