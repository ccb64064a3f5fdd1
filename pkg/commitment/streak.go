package commitment

import (
	"slices"
	"time"
)

// CalculateStreak counts consecutive local calendar days with at least one
// completion, ending today or yesterday. A most recent completion older than
// yesterday means the streak is broken: stale history never keeps it alive.
// Pure function; completions may arrive in any order and with same-day
// duplicates.
func CalculateStreak(completions []time.Time, now time.Time, loc *time.Location) int {
	if len(completions) == 0 {
		return 0
	}

	seen := make(map[civilDate]struct{}, len(completions))
	dates := make([]civilDate, 0, len(completions))
	for _, completion := range completions {
		date := toCivilDate(completion.In(loc))
		if _, ok := seen[date]; ok {
			continue
		}
		seen[date] = struct{}{}
		dates = append(dates, date)
	}

	// latest first
	slices.SortFunc(dates, func(a, b civilDate) int { return b.compare(a) })

	today := toCivilDate(now.In(loc))
	yesterday := today.prev()

	mostRecent := dates[0]
	if mostRecent != today && mostRecent != yesterday {
		return 0
	}

	streak := 1
	cursor := mostRecent
	for _, date := range dates[1:] {
		if date != cursor.prev() {
			break
		}
		streak++
		cursor = date
	}
	return streak
}

type civilDate struct {
	year  int
	month time.Month
	day   int
}

func toCivilDate(t time.Time) civilDate {
	year, month, day := t.Date()
	return civilDate{year, month, day}
}

func (d civilDate) time() time.Time {
	return time.Date(d.year, d.month, d.day, 0, 0, 0, 0, time.UTC)
}

func (d civilDate) prev() civilDate {
	return toCivilDate(d.time().AddDate(0, 0, -1))
}

func (d civilDate) compare(other civilDate) int {
	return d.time().Compare(other.time())
}
