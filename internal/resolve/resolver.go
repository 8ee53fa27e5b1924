// Package resolve infers a file's capture date from one signal at a time and
// chains those signals in a fixed order of confidence.
package resolve

import "time"

// Resolver infers a naive capture date for the file at path. Implementations
// never return errors: anything that prevents a confident answer is simply no
// result.
type Resolver interface {
	Name() string
	Resolve(path string) (time.Time, bool)
}
