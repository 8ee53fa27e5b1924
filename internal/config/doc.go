// Package config loads, normalizes, and validates datesort configuration.
//
// Settings come from repository defaults, an optional TOML file (explicit
// path, or $XDG_CONFIG_HOME/datesort/config.toml), and finally command-line
// overrides applied by the CLI. Always obtain settings through Load so
// extensions are canonical and paths are absolute.
package config
