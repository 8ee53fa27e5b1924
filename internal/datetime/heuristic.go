package datetime

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/width"
)

const monthNames = `january|february|march|april|may|june|july|august|september|october|november|december|` +
	`jan|feb|mar|apr|jun|jul|aug|sept|sep|oct|nov|dec`

var monthByPrefix = map[string]time.Month{
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
}

// fields is a candidate date pulled out of text. Missing time parts are zero.
type fields struct {
	year, month, day     int
	hour, minute, second int
}

type pattern struct {
	name    string
	regex   *regexp.Regexp
	extract func(m []string) (fields, bool)
}

// Order matters: more specific patterns come first. Every digit run is
// bounded by a non-digit so a date is never carved out of a longer number;
// the scanned text is padded with spaces so the bounds also hold at the edges.
var heuristicPatterns = []pattern{
	{
		// 2020-01-01 03:04:05, 2020_01_01-03.04.05, 2021-03-04 at 10.11.12
		name: "date-time",
		regex: regexp.MustCompile(`(?i)\D(\d{4})[-_.: ](\d{1,2})[-_.: ](\d{1,2})` +
			`(?:[T_\-. ]|\s+at\s+)(\d{1,2})[:.\-_h](\d{2})[:.\-_m](\d{2})\D`),
		extract: func(m []string) (fields, bool) {
			return fields{
				year: atoi(m[1]), month: atoi(m[2]), day: atoi(m[3]),
				hour: atoi(m[4]), minute: atoi(m[5]), second: atoi(m[6]),
			}, true
		},
	},
	{
		// IMG_20200101_030405, 20200101T030405
		name:  "compact-date-time",
		regex: regexp.MustCompile(`\D(\d{4})(\d{2})(\d{2})[T_\- ]?(\d{2})(\d{2})(\d{2})\D`),
		extract: func(m []string) (fields, bool) {
			return fields{
				year: atoi(m[1]), month: atoi(m[2]), day: atoi(m[3]),
				hour: atoi(m[4]), minute: atoi(m[5]), second: atoi(m[6]),
			}, true
		},
	},
	{
		// 2020-01-01, 2020_1_1, 2020.01.01
		name:  "date",
		regex: regexp.MustCompile(`\D(\d{4})[-_.: ](\d{1,2})[-_.: ](\d{1,2})\D`),
		extract: func(m []string) (fields, bool) {
			return fields{year: atoi(m[1]), month: atoi(m[2]), day: atoi(m[3])}, true
		},
	},
	{
		// 20200101_description
		name:  "compact-date",
		regex: regexp.MustCompile(`\D(\d{4})(\d{2})(\d{2})\D`),
		extract: func(m []string) (fields, bool) {
			return fields{year: atoi(m[1]), month: atoi(m[2]), day: atoi(m[3])}, true
		},
	},
	{
		// 1 Jan 2018, 21st-March-2019
		name: "day-month-name-year",
		regex: regexp.MustCompile(`(?i)[^0-9a-z](\d{1,2})(?:st|nd|rd|th)?[\s\-_.]*(` + monthNames +
			`)\.?[\s\-_.,]*(\d{4})\D`),
		extract: func(m []string) (fields, bool) {
			month, ok := monthFromName(m[2])
			return fields{year: atoi(m[3]), month: month, day: atoi(m[1])}, ok
		},
	},
	{
		// January 5, 2019 / Jan-05-2019
		name: "month-name-day-year",
		regex: regexp.MustCompile(`(?i)[^a-z](` + monthNames +
			`)\.?[\s\-_.]*(\d{1,2})(?:st|nd|rd|th)?,?[\s\-_.]+(\d{4})\D`),
		extract: func(m []string) (fields, bool) {
			month, ok := monthFromName(m[1])
			return fields{year: atoi(m[3]), month: month, day: atoi(m[2])}, ok
		},
	},
	{
		// 2019-11 trip, 2019_11_identity (defaults to the 1st). Not followed by
		// a third numeric part, so a rejected 2019-02-30 stays rejected.
		name:  "year-month",
		regex: regexp.MustCompile(`\D(\d{4})[-_.](\d{1,2})(?:[^0-9\-_.]|[-_.][^0-9])`),
		extract: func(m []string) (fields, bool) {
			return fields{year: atoi(m[1]), month: atoi(m[2]), day: 1}, true
		},
	},
}

// parseHeuristic returns the first calendar-valid candidate accepted by keep,
// trying patterns in priority order and matches left to right.
func parseHeuristic(text string, keep func(time.Time) bool) (time.Time, bool) {
	text = width.Fold.String(text)
	if strings.TrimSpace(text) == "" {
		return time.Time{}, false
	}
	text = " " + text + " "
	for _, p := range heuristicPatterns {
		var found time.Time
		matched := eachMatch(p.regex, text, func(m []string) bool {
			f, ok := p.extract(m)
			if !ok {
				return false
			}
			t, ok := f.toTime()
			if !ok || (keep != nil && !keep(t)) {
				return false
			}
			found = t
			return true
		})
		if matched {
			return found, true
		}
	}
	return time.Time{}, false
}

// eachMatch calls fn for every match of re in text, left to right, until fn
// accepts one. Unlike FindAll, a rejected match only advances the scan by one
// byte, so a boundary character shared by two adjacent dates is not lost.
func eachMatch(re *regexp.Regexp, text string, fn func(m []string) bool) bool {
	for pos := 0; pos < len(text); {
		loc := re.FindStringSubmatchIndex(text[pos:])
		if loc == nil {
			return false
		}
		m := make([]string, len(loc)/2)
		for i := range m {
			if loc[2*i] >= 0 {
				m[i] = text[pos+loc[2*i] : pos+loc[2*i+1]]
			}
		}
		if fn(m) {
			return true
		}
		pos += loc[0] + 1
	}
	return false
}

// toTime rejects field combinations that time.Date would normalize, such as
// February 30th or minute 61.
func (f fields) toTime() (time.Time, bool) {
	if f.month < 1 || f.month > 12 || f.day < 1 || f.day > 31 {
		return time.Time{}, false
	}
	if f.hour > 23 || f.minute > 59 || f.second > 59 {
		return time.Time{}, false
	}
	t := time.Date(f.year, time.Month(f.month), f.day, f.hour, f.minute, f.second, 0, time.UTC)
	if t.Year() != f.year || int(t.Month()) != f.month || t.Day() != f.day {
		return time.Time{}, false
	}
	return t, true
}

func monthFromName(name string) (int, bool) {
	name = strings.ToLower(name)
	if len(name) < 3 {
		return 0, false
	}
	m, ok := monthByPrefix[name[:3]]
	return int(m), ok
}

func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}
