// SPDX-License-Identifier: AGPL-3.0-only
package youtube

import (
	"time"

	"github.com/velonavasiliki/youtube-agent/internal/errors"
)

// DateLayout is the textual date form users supply: two-digit month and day,
// four-digit year.
const DateLayout = "01/02/2006"

// defaultWindowYears is how far back a search window reaches when the user
// gives no lower bound.
const defaultWindowYears = 5

// ValidateDate reports whether s parses exactly as mm/dd/yyyy. Go's parser
// accepts single-digit components for a padded layout, so the round trip
// check rejects them.
func ValidateDate(s string) bool {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return false
	}
	return t.Format(DateLayout) == s
}

// PublishWindow resolves the optional before/after bounds into a concrete
// [start, end] publish window in UTC. A missing upper bound defaults to now;
// a missing lower bound defaults to defaultWindowYears before now. Given
// bounds cover their whole day.
func PublishWindow(before, after string, now time.Time) (start, end time.Time, err error) {
	now = now.UTC()

	if before != "" {
		t, perr := time.Parse(DateLayout, before)
		if perr != nil {
			return start, end, errors.InvalidInput("before date must be in mm/dd/yyyy form: " + before)
		}
		end = endOfDay(t)
	} else {
		end = now
	}

	if after != "" {
		t, perr := time.Parse(DateLayout, after)
		if perr != nil {
			return start, end, errors.InvalidInput("after date must be in mm/dd/yyyy form: " + after)
		}
		start = startOfDay(t)
	} else {
		start = startOfDay(now.AddDate(-defaultWindowYears, 0, 0))
	}

	return start, end, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
}
