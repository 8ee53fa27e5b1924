// Package discovery enumerates candidate files beneath a source root.
package discovery

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"datesort/internal/logging"
)

// Options filter what Walk reports.
type Options struct {
	// Extensions, lower case with a leading dot. Empty accepts any file that
	// has an extension.
	Extensions []string
	// SkipDirs are directory base names never descended into.
	SkipDirs []string
}

// Walk calls fn for every candidate file under root in lexical order. Hidden
// files, files without an extension, non-regular files and skipped
// directories are left out. Unreadable entries are logged and skipped; an
// error from fn stops the walk and is returned.
func Walk(fs afero.Fs, root string, opts Options, fn func(path string) error) error {
	logger := logging.GetLogger("discovery")
	exts := toSet(opts.Extensions)
	skip := toSet(opts.SkipDirs)

	return afero.Walk(fs, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Error accessing path, skipping")
			if info != nil && info.IsDir() && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		name := info.Name()
		if info.IsDir() {
			if path != root {
				if _, ok := skip[name]; ok {
					logger.Debug().Str("path", path).Msg("Skipping directory")
					return filepath.SkipDir
				}
			}
			return nil
		}
		if !info.Mode().IsRegular() || strings.HasPrefix(name, ".") {
			return nil
		}
		if !accepts(exts, name) {
			return nil
		}
		return fn(path)
	})
}

// Collect returns every candidate file under root.
func Collect(fs afero.Fs, root string, opts Options) ([]string, error) {
	var files []string
	err := Walk(fs, root, opts, func(path string) error {
		files = append(files, path)
		return nil
	})
	return files, err
}

func accepts(exts map[string]struct{}, name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || ext == "." {
		return false
	}
	if len(exts) == 0 {
		return true
	}
	_, ok := exts[ext]
	return ok
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}
