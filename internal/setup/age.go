package setup

import (
	"strconv"
	"time"
)

// dateAfter is the age past which a setup shows its save date instead.
const dateAfter = 30 * 24 * time.Hour

var ageUnits = []struct {
	size   time.Duration
	suffix string
}{
	{24 * time.Hour, "d"},
	{time.Hour, "h"},
	{time.Minute, "m"},
}

// FormatAge renders how long before now a setup stamped with timeStamp
// (Unix milliseconds, as stored in the index) was saved. It returns "" for a
// missing stamp and "just now" for stamps under a minute old or in the future.
func FormatAge(timeStamp int64, now time.Time) string {
	if timeStamp <= 0 {
		return ""
	}
	savedAt := time.UnixMilli(timeStamp)
	d := now.Sub(savedAt)
	if d >= dateAfter {
		return savedAt.UTC().Format(time.DateOnly)
	}
	for _, u := range ageUnits {
		if d >= u.size {
			return strconv.FormatInt(int64(d/u.size), 10) + u.suffix + " ago"
		}
	}
	return "just now"
}
