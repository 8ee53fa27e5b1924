package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"

	derrors "datesort/internal/errors"
)

//go:embed sample_config.toml
var sampleConfig string

const configRelPath = "datesort/config.toml"

// Organize controls date resolution and placement.
type Organize struct {
	Template     string `toml:"template"`
	MinYear      int    `toml:"min_year"`
	DryRun       bool   `toml:"dry_run"`
	Workers      int    `toml:"workers"`
	UseFileTimes bool   `toml:"use_file_times"`
}

// Discovery controls which files under a source root are candidates.
type Discovery struct {
	Extensions []string `toml:"extensions"`
	SkipDirs   []string `toml:"skip_dirs"`
}

// Config holds the application configuration.
type Config struct {
	Sources   []string  `toml:"sources"`
	Organize  Organize  `toml:"organize"`
	Discovery Discovery `toml:"discovery"`
}

// DefaultConfigPath returns the XDG location of the user config file.
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, configRelPath)
}

// Load locates, parses, normalizes, and validates a configuration file. An
// empty path falls back to DefaultConfigPath; a missing file yields defaults.
// It returns the config, the resolved path, and whether that file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolved, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolved)
		if err != nil {
			return nil, "", false, derrors.Wrap(err, derrors.ErrConfigLoad, "open config")
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, derrors.Wrapf(err, derrors.ErrConfigLoad, "parse config %s", resolved)
		}
	}

	if err := cfg.Normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = DefaultConfigPath()
	}
	expanded, err := ExpandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, derrors.Wrap(err, derrors.ErrConfigLoad, "stat config")
	}
	if info.IsDir() {
		return "", false, derrors.Newf(derrors.ErrConfigLoad, "config path %s is a directory", expanded)
	}
	return expanded, true, nil
}

// Normalize expands source paths and canonicalizes extensions and skip dirs.
func (c *Config) Normalize() error {
	c.Organize.Template = strings.TrimSpace(c.Organize.Template)

	sources := make([]string, 0, len(c.Sources))
	for _, src := range c.Sources {
		if strings.TrimSpace(src) == "" {
			continue
		}
		expanded, err := ExpandPath(strings.TrimSpace(src))
		if err != nil {
			return err
		}
		sources = append(sources, expanded)
	}
	c.Sources = sources

	exts := make([]string, 0, len(c.Discovery.Extensions))
	seen := make(map[string]struct{}, len(c.Discovery.Extensions))
	for _, ext := range c.Discovery.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, dup := seen[ext]; dup {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	c.Discovery.Extensions = exts

	skip := c.Discovery.SkipDirs[:0]
	for _, dir := range c.Discovery.SkipDirs {
		if dir = strings.TrimSpace(dir); dir != "" {
			skip = append(skip, dir)
		}
	}
	c.Discovery.SkipDirs = skip
	return nil
}

// ExpandPath resolves a leading ~ and returns an absolute, cleaned path.
func ExpandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// CreateSample writes the commented sample configuration to path.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if _, err := os.Stat(path); err == nil {
		return derrors.Newf(derrors.ErrConfigInvalid, "config file %s already exists", path)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
