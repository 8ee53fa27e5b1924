package config

const (
	defaultTemplate = "%Y/%B"
	defaultMinYear  = 1960
	defaultWorkers  = 1
)

var defaultSkipDirs = []string{"@eaDir", ".git", ".thumbnails"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Organize: Organize{
			Template: defaultTemplate,
			MinYear:  defaultMinYear,
			Workers:  defaultWorkers,
		},
		Discovery: Discovery{
			SkipDirs: append([]string(nil), defaultSkipDirs...),
		},
	}
}
