package commitment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateStreak(t *testing.T) {
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	assert.NoError(t, err)
	now := time.Date(2025, 3, 12, 14, 30, 0, 0, warsaw)

	daysAgo := func(days int, hour int) time.Time {
		return time.Date(2025, 3, 12-days, hour, 0, 0, 0, warsaw)
	}

	t.Run("no completions means no streak", func(t *testing.T) {
		assert.Equal(t, 0, CalculateStreak(nil, now, warsaw))
	})

	t.Run("single completion today", func(t *testing.T) {
		completions := []time.Time{daysAgo(0, 9)}
		assert.Equal(t, 1, CalculateStreak(completions, now, warsaw))
	})

	t.Run("three consecutive days ending today", func(t *testing.T) {
		completions := []time.Time{daysAgo(0, 9), daysAgo(1, 20), daysAgo(2, 7)}
		assert.Equal(t, 3, CalculateStreak(completions, now, warsaw))
	})

	t.Run("gap before older completion breaks the walk", func(t *testing.T) {
		completions := []time.Time{daysAgo(0, 9), daysAgo(3, 9)}
		assert.Equal(t, 1, CalculateStreak(completions, now, warsaw))
	})

	t.Run("streak ending yesterday still counts", func(t *testing.T) {
		completions := []time.Time{daysAgo(1, 22), daysAgo(2, 8)}
		assert.Equal(t, 2, CalculateStreak(completions, now, warsaw))
	})

	t.Run("stale history does not keep a streak alive", func(t *testing.T) {
		completions := []time.Time{daysAgo(4, 9)}
		assert.Equal(t, 0, CalculateStreak(completions, now, warsaw))
	})

	t.Run("same-day duplicates count once", func(t *testing.T) {
		completions := []time.Time{daysAgo(0, 9), daysAgo(0, 21), daysAgo(1, 12)}
		assert.Equal(t, 2, CalculateStreak(completions, now, warsaw))
	})

	t.Run("order of input does not matter", func(t *testing.T) {
		completions := []time.Time{daysAgo(2, 7), daysAgo(0, 9), daysAgo(1, 20)}
		assert.Equal(t, 3, CalculateStreak(completions, now, warsaw))
	})

	t.Run("local dates decide day boundaries", func(t *testing.T) {
		// 23:30 UTC yesterday is already today in Warsaw.
		utcLateYesterday := time.Date(2025, 3, 11, 23, 30, 0, 0, time.UTC)
		assert.Equal(t, 1, CalculateStreak([]time.Time{utcLateYesterday}, now, warsaw))
	})
}
