package resolve

import (
	"time"

	"github.com/spf13/afero"

	"datesort/internal/datetime"
	"datesort/internal/logging"
)

// Resolution is a date together with the name of the resolver that found it.
type Resolution struct {
	Date     time.Time
	Resolver string
}

// Chain tries its resolvers in a fixed order and returns the first success.
// The order is set at construction and cannot change afterwards.
type Chain struct {
	resolvers []Resolver
}

// NewChain returns a chain over resolvers in the given priority order.
func NewChain(resolvers ...Resolver) *Chain {
	return &Chain{resolvers: append([]Resolver(nil), resolvers...)}
}

// NewDefaultChain builds the standard chain: embedded metadata, then the file
// name, then (only when useFileTimes is set) filesystem timestamps.
func NewDefaultChain(fs afero.Fs, parser *datetime.Parser, useFileTimes bool) *Chain {
	resolvers := []Resolver{
		NewMetadata(NewExifDecoder(fs), parser),
		NewFilename(parser),
	}
	if useFileTimes {
		resolvers = append(resolvers, NewFileTimes(fs, parser))
	}
	return NewChain(resolvers...)
}

// Names lists resolver names in priority order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.resolvers))
	for i, r := range c.resolvers {
		names[i] = r.Name()
	}
	return names
}

// Resolve returns the first resolver result. Later resolvers are not
// consulted once one succeeds.
func (c *Chain) Resolve(path string) (Resolution, bool) {
	logger := logging.GetLogger("resolve")
	for _, r := range c.resolvers {
		if date, ok := r.Resolve(path); ok {
			logger.Debug().Str("file", path).Str("resolver", r.Name()).Time("date", date).Msg("Resolved date")
			return Resolution{Date: date, Resolver: r.Name()}, true
		}
		logger.Trace().Str("file", path).Str("resolver", r.Name()).Msg("Resolver found nothing, trying next")
	}
	return Resolution{}, false
}
