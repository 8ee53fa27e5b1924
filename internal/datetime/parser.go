// Package datetime turns free text into naive calendar timestamps.
//
// Parse has two modes. Strict mode accepts only fully specified date-time
// layouts and is meant for trusted metadata fields. Heuristic mode scans noisy
// text such as file names for the most specific date pattern it can find.
// Both modes reject years outside the parser's plausibility window.
//
// Returned times are naive: the wall-clock fields are what was written, and
// the location is always UTC as a carrier. Callers must not convert them.
package datetime

import (
	"time"

	"datesort/internal/logging"
)

// DefaultMinYear is the default lower bound of the plausibility window.
const DefaultMinYear = 1960

// Parser parses date-time text and gates the result on a year window of
// [MinYear, current year].
type Parser struct {
	MinYear int
	// Now supplies the current time for the upper bound. Defaults to time.Now.
	Now func() time.Time
}

// New returns a Parser with the given lower year bound. A non-positive bound
// selects DefaultMinYear.
func New(minYear int) *Parser {
	if minYear <= 0 {
		minYear = DefaultMinYear
	}
	return &Parser{MinYear: minYear, Now: time.Now}
}

// Parse returns the timestamp found in text. It never panics: any internal
// fault is logged and reported as no result.
func (p *Parser) Parse(text string, strict bool) (result time.Time, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logger := logging.GetLogger("datetime")
			logger.Debug().
				Interface("panic", r).
				Str("text", text).
				Bool("strict", strict).
				Msg("Date parser fault, treating as no result")
			result, ok = time.Time{}, false
		}
	}()

	var t time.Time
	if strict {
		t, ok = parseStrict(text)
	} else {
		t, ok = parseHeuristic(text, p.plausible)
	}
	if !ok {
		return time.Time{}, false
	}
	return p.Validate(t)
}

// Validate returns t unchanged when its year lies inside the window, and no
// result otherwise. The upper bound is evaluated at call time.
func (p *Parser) Validate(t time.Time) (time.Time, bool) {
	if !p.plausible(t) {
		return time.Time{}, false
	}
	return t, true
}

func (p *Parser) plausible(t time.Time) bool {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	minYear := p.MinYear
	if minYear <= 0 {
		minYear = DefaultMinYear
	}
	year := t.Year()
	return year >= minYear && year <= now().Year()
}

// Naive drops the zone of t, keeping its wall clock in its own location.
func Naive(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC)
}
