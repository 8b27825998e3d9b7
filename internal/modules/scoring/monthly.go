package scoring

import (
	"sort"
	"time"

	"momentor/internal/domain"
)

// LastClosedMonthEnd returns the end of the last fully closed calendar month
// relative to the given date: the first day of the date's month, minus one
// day. Scores are always computed against closed months so that a partial
// month never leaks into the momentum window.
func LastClosedMonthEnd(date time.Time) time.Time {
	firstOfMonth := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, time.UTC)
	return firstOfMonth.AddDate(0, 0, -1)
}

// ResampleMonthly collapses a daily candle series into one observation per
// calendar month: the last valid daily candle of each month. Input is
// expected sorted by date ascending (as returned by the history provider);
// the output preserves month order.
func ResampleMonthly(daily []domain.Candle) []domain.Candle {
	type monthKey struct {
		year  int
		month time.Month
	}

	byMonth := make(map[monthKey]domain.Candle)
	keys := make([]monthKey, 0)

	for _, candle := range daily {
		if !candle.Valid() {
			continue
		}
		key := monthKey{candle.Date.Year(), candle.Date.Month()}
		if _, seen := byMonth[key]; !seen {
			keys = append(keys, key)
		}
		byMonth[key] = candle
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].year != keys[j].year {
			return keys[i].year < keys[j].year
		}
		return keys[i].month < keys[j].month
	})

	monthly := make([]domain.Candle, 0, len(keys))
	for _, key := range keys {
		monthly = append(monthly, byMonth[key])
	}
	return monthly
}
