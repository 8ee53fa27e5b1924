package placement

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	derrors "datesort/internal/errors"
)

var jan2020 = time.Date(2020, time.January, 1, 3, 4, 5, 0, time.UTC)

func writeFile(t *testing.T, fs afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, fs.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
}

func readFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	return string(data)
}

// snapshot returns every regular file under root with its contents.
func snapshot(t *testing.T, fs afero.Fs, root string) map[string]string {
	t.Helper()
	out := map[string]string{}
	require.NoError(t, afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			out[path+"/"] = ""
			return nil
		}
		out[path] = readFile(t, fs, path)
		return nil
	}))
	return out
}

func TestDestination(t *testing.T) {
	e := NewEngine(afero.NewMemMapFs(), MustTemplate(DefaultPattern))

	got := e.Destination("/photos/inbox/IMG_2020-01-01 03:04:05.jpg", "/photos", jan2020)
	assert.Equal(t, "/photos/2020/January/IMG_2020-01-01 03:04:05.jpg", got)
}

func TestPlaceMovesAndIsIdempotent(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := "/photos/inbox/IMG_2020-01-01 03:04:05.jpg"
	writeFile(t, fs, src, "pixels")
	e := NewEngine(fs, MustTemplate(DefaultPattern))

	d, err := e.Place(src, "/photos", jan2020, false)
	require.NoError(t, err)
	want := "/photos/2020/January/IMG_2020-01-01 03:04:05.jpg"
	assert.Equal(t, Decision{Kind: Moved, From: src, To: want}, d)

	exists, err := afero.Exists(fs, src)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, "pixels", readFile(t, fs, want))

	again, err := e.Place(want, "/photos", jan2020, false)
	require.NoError(t, err)
	assert.Equal(t, AlreadyInPlace, again.Kind)
	assert.Equal(t, "pixels", readFile(t, fs, want))
}

func TestPlaceNeverOverwrites(t *testing.T) {
	fs := afero.NewMemMapFs()
	src := "/photos/inbox/a.jpg"
	existing := "/photos/2020/January/a.jpg"
	writeFile(t, fs, src, "new")
	writeFile(t, fs, existing, "old")
	e := NewEngine(fs, MustTemplate(DefaultPattern))

	for _, dryRun := range []bool{true, false} {
		d, err := e.Place(src, "/photos", jan2020, dryRun)
		require.NoError(t, err)
		assert.Equal(t, Decision{Kind: Skipped, Reason: ReasonDestinationExists, From: src, To: existing}, d)
		assert.Equal(t, "new", readFile(t, fs, src))
		assert.Equal(t, "old", readFile(t, fs, existing))
	}
}

func TestDryRunMatchesRealRunWithoutMutation(t *testing.T) {
	files := map[string]string{
		"/photos/inbox/a.jpg":         "a",
		"/photos/inbox/nested/b.jpg":  "b",
		"/photos/2020/January/c.jpg":  "c",
		"/photos/other/c.jpg":         "c2",
		"/photos/2020/January/keep.x": "k",
	}
	order := []string{"/photos/inbox/a.jpg", "/photos/inbox/nested/b.jpg", "/photos/2020/January/c.jpg", "/photos/other/c.jpg"}

	build := func() afero.Fs {
		fs := afero.NewMemMapFs()
		for path, content := range files {
			writeFile(t, fs, path, content)
		}
		return fs
	}

	dryFS, realFS := build(), build()
	before := snapshot(t, dryFS, "/photos")

	dry := NewEngine(dryFS, MustTemplate(DefaultPattern))
	real := NewEngine(realFS, MustTemplate(DefaultPattern))
	for _, file := range order {
		dd, err := dry.Place(file, "/photos", jan2020, true)
		require.NoError(t, err)
		rd, err := real.Place(file, "/photos", jan2020, false)
		require.NoError(t, err)
		assert.Equal(t, rd, dd, file)
	}

	assert.Equal(t, before, snapshot(t, dryFS, "/photos"))
	assert.NotEqual(t, before, snapshot(t, realFS, "/photos"))
}

func TestDryRunProjectsCollisionsBetweenFiles(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/photos/a/IMG_1.jpg", "1")
	writeFile(t, fs, "/photos/b/IMG_1.jpg", "2")
	e := NewEngine(fs, MustTemplate(DefaultPattern))

	first, err := e.Place("/photos/a/IMG_1.jpg", "/photos", jan2020, true)
	require.NoError(t, err)
	assert.Equal(t, Moved, first.Kind)

	second, err := e.Place("/photos/b/IMG_1.jpg", "/photos", jan2020, true)
	require.NoError(t, err)
	assert.Equal(t, Skipped, second.Kind)
	assert.Equal(t, ReasonDestinationExists, second.Reason)

	repeat, err := e.Place("/photos/a/IMG_1.jpg", "/photos", jan2020, true)
	require.NoError(t, err)
	assert.Equal(t, Moved, repeat.Kind)
}

func TestDryRunSeesDestinationsVacatedEarlierInTheRun(t *testing.T) {
	jan2018 := time.Date(2018, time.January, 1, 0, 0, 0, 0, time.UTC)
	misplaced := "/photos/2020/January/x_2020-01-05.tif"
	incoming := "/photos/inbox/x_2020-01-05.tif"
	steps := []struct {
		file string
		date time.Time
	}{
		{misplaced, jan2018},
		{incoming, jan2020},
	}

	build := func() afero.Fs {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, misplaced, "dated 2018")
		writeFile(t, fs, incoming, "dated 2020")
		return fs
	}
	dryFS, realFS := build(), build()
	dry := NewEngine(dryFS, MustTemplate(DefaultPattern))
	wet := NewEngine(realFS, MustTemplate(DefaultPattern))

	for _, step := range steps {
		dd, err := dry.Place(step.file, "/photos", step.date, true)
		require.NoError(t, err)
		rd, err := wet.Place(step.file, "/photos", step.date, false)
		require.NoError(t, err)
		assert.Equal(t, rd, dd, step.file)
		assert.Equal(t, Moved, dd.Kind, step.file)
	}
	assert.Equal(t, "dated 2018", readFile(t, dryFS, misplaced))
	assert.Equal(t, "dated 2020", readFile(t, realFS, misplaced))
}

type failingRenameFs struct {
	afero.Fs
}

func (failingRenameFs) Rename(oldname, newname string) error {
	return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: os.ErrPermission}
}

func TestPlaceReportsFilesystemFaults(t *testing.T) {
	t.Run("directory creation", func(t *testing.T) {
		base := afero.NewMemMapFs()
		writeFile(t, base, "/photos/a.jpg", "a")
		e := NewEngine(afero.NewReadOnlyFs(base), MustTemplate(DefaultPattern))

		_, err := e.Place("/photos/a.jpg", "/photos", jan2020, false)
		require.Error(t, err)
		assert.True(t, derrors.IsErrorCode(err, derrors.ErrDirCreate), "got %v", err)
		assert.Equal(t, "/photos/2020/January", derrors.GetErrorDetails(err)["path"])
		assert.Equal(t, "a", readFile(t, base, "/photos/a.jpg"))
	})

	t.Run("rename", func(t *testing.T) {
		base := afero.NewMemMapFs()
		writeFile(t, base, "/photos/a.jpg", "a")
		e := NewEngine(failingRenameFs{base}, MustTemplate(DefaultPattern))

		d, err := e.Place("/photos/a.jpg", "/photos", jan2020, false)
		require.Error(t, err)
		assert.Equal(t, Failed, d.Kind)
		assert.True(t, derrors.IsErrorCode(err, derrors.ErrMove), "got %v", err)
		assert.ErrorIs(t, err, os.ErrPermission)
		assert.Equal(t, "/photos/a.jpg", derrors.GetErrorDetails(err)["path"])
	})
}

func TestPlaceSerializesSameDestination(t *testing.T) {
	fs := afero.NewMemMapFs()
	const workers = 16
	for i := 0; i < workers; i++ {
		writeFile(t, fs, fmt.Sprintf("/photos/dir%02d/IMG.jpg", i), fmt.Sprint(i))
	}
	e := NewEngine(fs, MustTemplate(DefaultPattern))

	var wg sync.WaitGroup
	decisions := make(chan Decision, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := e.Place(fmt.Sprintf("/photos/dir%02d/IMG.jpg", i), "/photos", jan2020, false)
			assert.NoError(t, err)
			decisions <- d
		}(i)
	}
	wg.Wait()
	close(decisions)

	counts := map[Kind]int{}
	for d := range decisions {
		counts[d.Kind]++
	}
	assert.Equal(t, 1, counts[Moved])
	assert.Equal(t, workers-1, counts[Skipped])
	assert.Empty(t, e.locks.locks, "locks are released")
}

func TestAlreadyInPlaceThroughSymlinkedRoot(t *testing.T) {
	tmp := t.TempDir()
	realRoot := filepath.Join(tmp, "real")
	link := filepath.Join(tmp, "link")
	placed := filepath.Join(realRoot, "2020", "January", "a.jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(placed), 0o755))
	require.NoError(t, os.WriteFile(placed, []byte("a"), 0o644))
	require.NoError(t, os.Symlink(realRoot, link))

	e := NewEngine(afero.NewOsFs(), MustTemplate(DefaultPattern))

	d, err := e.Place(filepath.Join(link, "2020", "January", "a.jpg"), realRoot, jan2020, false)
	require.NoError(t, err)
	assert.Equal(t, AlreadyInPlace, d.Kind)

	d, err = e.Place(placed, link, jan2020, false)
	require.NoError(t, err)
	assert.Equal(t, AlreadyInPlace, d.Kind)
}

func TestAlreadyInPlaceForHardLink(t *testing.T) {
	tmp := t.TempDir()
	placed := filepath.Join(tmp, "2020", "January", "a.jpg")
	other := filepath.Join(tmp, "inbox", "a.jpg")
	require.NoError(t, os.MkdirAll(filepath.Dir(placed), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Dir(other), 0o755))
	require.NoError(t, os.WriteFile(placed, []byte("a"), 0o644))
	if err := os.Link(placed, other); err != nil {
		t.Skipf("hard links unsupported: %v", err)
	}

	d, err := NewEngine(afero.NewOsFs(), MustTemplate(DefaultPattern)).Place(other, tmp, jan2020, false)
	require.NoError(t, err)
	assert.Equal(t, AlreadyInPlace, d.Kind)
}

func TestDecisionString(t *testing.T) {
	assert.Equal(t, "/a.jpg -> /2020/January/a.jpg", Decision{Kind: Moved, From: "/a.jpg", To: "/2020/January/a.jpg"}.String())
	assert.Equal(t, "/a.jpg (already in place)", Decision{Kind: AlreadyInPlace, From: "/a.jpg"}.String())
	assert.Equal(t, "/a.jpg (skipped: unresolvable date)", Unresolvable("/a.jpg").String())
	assert.Equal(t, "already in place", AlreadyInPlace.String())
	assert.Equal(t, "/a.jpg (failed)", Decision{From: "/a.jpg"}.String())
	assert.Equal(t, Failed, Decision{}.Kind, "zero decision must not read as a move")
}
