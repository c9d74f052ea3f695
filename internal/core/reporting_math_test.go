package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPercentChange(t *testing.T) {
	tests := []struct {
		name             string
		current, previous float64
		want             float64
	}{
		{"simple increase", 150, 100, 50},
		{"simple decrease", 50, 100, -50},
		{"rounded to one decimal", 100, 300, -66.7},
		{"clamped above", 10000, 1, 999},
		{"clamped below", 0, 100, -99},
		{"previous zero current positive", 42, 0, 100},
		{"both zero", 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PercentChange(tt.current, tt.previous))
		})
	}
}

func TestStockLevelChange(t *testing.T) {
	assert.Equal(t, 10.0, StockLevelChange(30, 20, 100))
	assert.Equal(t, -5.0, StockLevelChange(0, 5, 100))
	// Tighter clamp than flow changes.
	assert.Equal(t, 99.0, StockLevelChange(1000, 0, 100))
	assert.Equal(t, -99.0, StockLevelChange(0, 1000, 100))
	assert.Equal(t, 0.0, StockLevelChange(10, 0, 0))
}

func TestTurnoverRate(t *testing.T) {
	assert.Equal(t, 25.0, TurnoverRate(25, 100))
	assert.Equal(t, 100.0, TurnoverRate(500, 100), "capped at 100")
	assert.Equal(t, 0.0, TurnoverRate(0, 100))
	// Zero total stock divides by a floor of 1 instead of panicking.
	assert.Equal(t, 100.0, TurnoverRate(7, 0))
}

func TestMonthBuckets(t *testing.T) {
	now := time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)
	buckets := MonthBuckets(now, 6)
	require.Len(t, buckets, 6)
	assert.Equal(t, "2025-10", buckets[0].Key)
	assert.Equal(t, "2026-03", buckets[5].Key)
	assert.Equal(t, "Oct", buckets[0].Label)
	assert.Equal(t, time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC), buckets[0].Start)
}

func TestQuarterBuckets(t *testing.T) {
	now := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)
	buckets := QuarterBuckets(now, 4)
	require.Len(t, buckets, 4)
	assert.Equal(t, "2025-Q2", buckets[0].Key)
	assert.Equal(t, "2025-Q3", buckets[1].Key)
	assert.Equal(t, "2025-Q4", buckets[2].Key)
	assert.Equal(t, "2026-Q1", buckets[3].Key)
	assert.Equal(t, "Q1", buckets[3].Label)
}

func TestYearBuckets(t *testing.T) {
	now := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	buckets := YearBuckets(now, 3)
	require.Len(t, buckets, 3)
	assert.Equal(t, []string{"2024", "2025", "2026"}, []string{buckets[0].Key, buckets[1].Key, buckets[2].Key})
}

func TestDayBuckets(t *testing.T) {
	now := time.Date(2026, time.January, 2, 23, 59, 0, 0, time.UTC)
	buckets := DayBuckets(now, 7)
	require.Len(t, buckets, 7)
	assert.Equal(t, "2025-12-27", buckets[0].Key)
	assert.Equal(t, "2026-01-02", buckets[6].Key)
}

func TestPrevMonthBounds(t *testing.T) {
	now := time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)
	start, end := prevMonthBounds(now)
	assert.Equal(t, time.Date(2026, time.February, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC), end)
}
