package datetime

import (
	"strings"
	"time"
)

// strictLayouts are the only representations accepted from metadata.
var strictLayouts = []string{
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006:01:02 15:04:05", // EXIF
}

func parseStrict(text string) (time.Time, bool) {
	text = strings.TrimSpace(strings.Trim(text, "\x00"))
	if text == "" {
		return time.Time{}, false
	}
	for _, layout := range strictLayouts {
		if t, err := time.Parse(layout, text); err == nil {
			return Naive(t), true
		}
	}
	return time.Time{}, false
}
